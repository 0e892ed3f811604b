package cli

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/4ngelGtz/chatbot-zen/internal/adapter/enumerator"
	"github.com/4ngelGtz/chatbot-zen/internal/adapter/provider"
	"github.com/4ngelGtz/chatbot-zen/internal/domain"
	"github.com/4ngelGtz/chatbot-zen/internal/usecase"
)

var (
	fetchIDs     []string
	fetchRefetch bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download transcripts for the video list",
	Long: `Download a transcript for every video in the list, trying the preferred
language, then the fallback language, then a translated track. Rate limits
are retried with backoff and a rotated browser identity. Failures are
recorded in the attempt ledger and never stop the batch.

The transcript manifest is rewritten when the batch finishes.

Examples:
  zen fetch                    # Fetch everything not yet on disk
  zen fetch --ids abc,def      # Fetch specific videos
  zen fetch --refetch          # Drop stored transcripts and download again`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringSliceVar(&fetchIDs, "ids", nil, "video IDs to fetch instead of the video list")
	fetchCmd.Flags().BoolVar(&fetchRefetch, "refetch", false, "delete stored transcripts for the listed videos and download them again")
}

func runFetch(cmd *cobra.Command, args []string) error {
	p, err := openPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	refs, err := p.videoRefs(fetchIDs)
	if err != nil {
		return err
	}

	if fetchRefetch {
		if err := p.clearStored(refs); err != nil {
			return err
		}
	}

	summary, err := p.ingest(cmd.Context(), refs, !fetchRefetch && p.cfg.Fetch.SkipExisting)
	if err != nil {
		return err
	}

	fmt.Printf("\nFetch complete (run %s):\n", summary.RunID)
	fmt.Printf("  OK:      %d\n", summary.OK)
	fmt.Printf("  Failed:  %d\n", summary.Failed)
	fmt.Printf("  Skipped: %d (already stored)\n", summary.Skipped)
	counts, err := p.ledger.RunCounts(cmd.Context(), summary.RunID)
	if err != nil {
		return err
	}
	fmt.Printf("  Ledger:  %d ok, %d exhausted\n", counts[domain.OutcomeOK], counts[domain.OutcomeExhausted])
	if len(summary.Errors) > 0 {
		fmt.Printf("\nFailures:\n")
		for _, e := range summary.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}

	return p.writeManifest(cmd.Context(), refs)
}

// clearStored deletes the stored transcripts of refs so they are downloaded again.
func (p *pipeline) clearStored(refs []domain.VideoRef) error {
	for _, ref := range refs {
		if err := p.store.Clear(ref.ID); err != nil {
			return fmt.Errorf("failed to clear transcripts for %s: %w", ref.ID, err)
		}
	}
	return nil
}

func (p *pipeline) videoRefs(ids []string) ([]domain.VideoRef, error) {
	if len(ids) > 0 {
		refs := make([]domain.VideoRef, len(ids))
		for i, id := range ids {
			refs[i] = domain.VideoRef{ID: id, SourceURL: domain.WatchURL(id)}
		}
		return refs, nil
	}
	path := p.cfg.VideoListPath(p.root)
	refs, err := enumerator.LoadList(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load video list %s (run 'zen ids' first): %w", path, err)
	}
	return refs, nil
}

func (p *pipeline) ingest(ctx context.Context, refs []domain.VideoRef, skipExisting bool) (domain.IngestSummary, error) {
	identities, err := newIdentities(p.cfg)
	if err != nil {
		return domain.IngestSummary{}, err
	}
	var ytOpts []provider.Option
	if p.cfg.Fetch.Timeout > 0 {
		// A listing only needs to outlive one video's provider chain.
		ytOpts = append(ytOpts, provider.WithTrackTTL(p.cfg.Fetch.Timeout))
	}
	yt := provider.NewYouTube(newFetcher(p.cfg), ytOpts...)
	providers := provider.Chain(yt, p.cfg.Fetch.PreferredLanguage, p.cfg.Fetch.FallbackLanguage, p.cfg.Fetch.TranslateTo)

	fetch := usecase.NewFetchUseCase(providers, identities, p.store, p.ledger, usecase.FetchOptions{
		Policy:        fetchPolicy(p.cfg),
		MinBytes:      p.cfg.Fetch.MinTranscriptBytes,
		RatePerSecond: p.cfg.Fetch.RatePerSecond,
	})

	bar := newBar(len(refs), "Fetching")
	start := time.Now()
	var mu sync.Mutex
	done := 0

	ingest := usecase.NewIngestUseCase(fetch, p.store, usecase.IngestOptions{
		Workers:      p.cfg.Fetch.Workers,
		Timeout:      p.cfg.Fetch.Timeout,
		SkipExisting: skipExisting,
		OnVideo: func(domain.VideoRef, domain.EntryStatus, error) {
			mu.Lock()
			defer mu.Unlock()
			done++
			_ = bar.Set(done)
			describeETA(bar, "Fetching", start, done, len(refs))
		},
	})

	summary, err := ingest.Run(ctx, refs)
	_ = bar.Finish()
	if err != nil {
		return summary, fmt.Errorf("fetch interrupted after %d videos: %w", summary.Total(), err)
	}
	return summary, nil
}

func (p *pipeline) writeManifest(ctx context.Context, refs []domain.VideoRef) error {
	entries, err := p.manifestBuilder().Build(ctx, refs)
	if err != nil {
		return fmt.Errorf("failed to build manifest: %w", err)
	}
	path := p.cfg.ManifestPath(p.root)
	if err := usecase.WriteManifest(path, entries); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	ok, failed, skipped := usecase.ManifestCounts(entries)
	fmt.Printf("\nManifest: %d ok, %d failed, %d skipped\n", ok, failed, skipped)
	fmt.Printf("Manifest written to: %s\n", path)
	return nil
}
