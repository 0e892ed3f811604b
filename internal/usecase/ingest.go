package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/4ngelGtz/chatbot-zen/internal/domain"
	"github.com/4ngelGtz/chatbot-zen/internal/metrics"
	"github.com/4ngelGtz/chatbot-zen/internal/port"
)

// IngestOptions tunes the fetch batch.
type IngestOptions struct {
	Workers      int
	Timeout      time.Duration // per video, 0 = none
	SkipExisting bool

	// OnVideo is called once per video as it finishes. It may be called
	// from several goroutines at once.
	OnVideo func(ref domain.VideoRef, status domain.EntryStatus, err error)
}

// IngestUseCase fetches transcripts for a list of videos with a bounded
// worker pool. One video's failure never stops the batch.
type IngestUseCase struct {
	fetcher *FetchUseCase
	store   port.TranscriptStore
	opts    IngestOptions
}

// NewIngestUseCase creates a new ingest use case.
func NewIngestUseCase(fetcher *FetchUseCase, store port.TranscriptStore, opts IngestOptions) *IngestUseCase {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &IngestUseCase{fetcher: fetcher, store: store, opts: opts}
}

// Run fetches every ref and returns the batch counts. The only error it
// returns is the context's, after in-flight videos have finished.
func (u *IngestUseCase) Run(ctx context.Context, refs []domain.VideoRef) (domain.IngestSummary, error) {
	summary := domain.IngestSummary{RunID: uuid.NewString()}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(u.opts.Workers)

	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if seen[ref.ID] {
			continue
		}
		seen[ref.ID] = true

		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			status, err := u.one(ctx, summary.RunID, ref)
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return nil
			}

			mu.Lock()
			switch status {
			case domain.StatusOK:
				summary.OK++
			case domain.StatusSkipped:
				summary.Skipped++
			default:
				summary.Failed++
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", ref.ID, err))
			}
			mu.Unlock()

			if u.opts.OnVideo != nil {
				u.opts.OnVideo(ref, status, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	slog.Info("ingest finished",
		slog.String("run_id", summary.RunID),
		slog.Int("ok", summary.OK), slog.Int("failed", summary.Failed), slog.Int("skipped", summary.Skipped))

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

func (u *IngestUseCase) one(ctx context.Context, runID string, ref domain.VideoRef) (domain.EntryStatus, error) {
	if u.opts.SkipExisting && u.store.Has(ref.ID) {
		return domain.StatusSkipped, nil
	}

	fetchCtx := ctx
	if u.opts.Timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, u.opts.Timeout)
		defer cancel()
	}

	rec, err := u.fetcher.FetchRun(fetchCtx, runID, ref)
	if err != nil {
		// The video's own deadline expired while the batch is still running:
		// record it as exhausted so the manifest agrees with the summary.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			metrics.IncrFetchFailed()
			u.fetcher.recordAttempt(context.WithoutCancel(ctx), domain.Attempt{
				RunID:   runID,
				VideoID: ref.ID,
				Outcome: domain.OutcomeExhausted,
				Reason:  fmt.Sprintf("timed out after %s", u.opts.Timeout),
			})
		}
		slog.Warn("transcript fetch failed", slog.String("id", ref.ID), slog.Any("error", err))
		return domain.StatusFailed, err
	}
	slog.Debug("transcript stored",
		slog.String("id", ref.ID), slog.String("provider", rec.Provider), slog.String("path", rec.StoragePath))
	return domain.StatusOK, nil
}
