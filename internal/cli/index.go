package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/4ngelGtz/chatbot-zen/internal/adapter/embedding"
	"github.com/4ngelGtz/chatbot-zen/internal/adapter/retry"
	"github.com/4ngelGtz/chatbot-zen/internal/adapter/store"
	"github.com/4ngelGtz/chatbot-zen/internal/usecase"
)

var indexDump bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed the corpus and publish the vector index",
	Long: `Embed every chunk of the corpus and publish the vector index. Chunks already
indexed with unchanged text keep their vectors, so rebuilding after a fetch
only embeds what is new. The previous index stays in place until the new one
is complete.

Examples:
  zen index          # Build or update the index
  zen index --dump   # Print the position to chunk_id mapping`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVar(&indexDump, "dump", false, "print the published index mapping and exit")
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, root := GetConfig(), GetRootDir()
	if indexDump {
		return dumpIndex(cfg.VectorIndexPath(root))
	}
	if err := cfg.EnsureDataDir(root); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return buildIndex(cmd.Context())
}

func buildIndex(ctx context.Context) error {
	cfg, root := GetConfig(), GetRootDir()

	chunks, err := usecase.ReadCorpus(cfg.CorpusPath(root))
	if err != nil {
		return fmt.Errorf("failed to read corpus: %w", err)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("corpus is empty (run 'zen chunk' first)")
	}

	emb, err := embedding.New(cfg.Embedding)
	if err != nil {
		return err
	}
	fmt.Printf("Embedding config: provider=%s, model=%s, dimension=%d\n",
		cfg.Embedding.Provider, emb.ModelName(), emb.Dimension())

	var bar *progressbar.ProgressBar
	var start time.Time
	path := cfg.VectorIndexPath(root)
	uc := usecase.NewIndexUseCase(path, emb, usecase.IndexOptions{
		Metric:    cfg.Embedding.Metric,
		BatchSize: cfg.Embedding.BatchSize,
		Policy:    retry.DefaultPolicy,
		OnEmbedded: func(done, total int) {
			if bar == nil {
				start = time.Now()
				bar = newBar(total, "Embedding")
			}
			_ = bar.Set(done)
			describeETA(bar, "Embedding", start, done, total)
		},
	})

	summary, err := uc.Build(ctx, chunks)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Printf("\nIndexing complete:\n")
	fmt.Printf("  Chunks indexed: %d\n", summary.Total)
	fmt.Printf("  Embedded:       %d\n", summary.Embedded)
	fmt.Printf("  Reused:         %d (unchanged)\n", summary.Reused)
	fmt.Printf("  Removed:        %d\n", summary.Removed)
	if len(summary.Failed) > 0 {
		fmt.Printf("\nExcluded chunks:\n")
		for _, f := range summary.Failed {
			fmt.Printf("  - %s: %s\n", f.ChunkID, f.Reason)
		}
	}
	fmt.Printf("\nIndex stored at: %s\n", path)
	return nil
}

func dumpIndex(path string) error {
	ix, err := store.OpenVectorIndex(path)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	meta := ix.Meta()
	fmt.Printf("# model=%s dimension=%d metric=%s count=%d built=%s\n",
		meta.Model, meta.Dimension, meta.Metric, meta.Count, meta.BuiltAt.Format(time.RFC3339))
	for _, e := range ix.Entries() {
		c, _ := ix.Chunk(e.ChunkID)
		fmt.Printf("%d\t%s\t%s\n", e.Position, e.ChunkID, c.VideoID)
	}
	return nil
}
