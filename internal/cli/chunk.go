package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/4ngelGtz/chatbot-zen/internal/adapter/chunker"
	"github.com/4ngelGtz/chatbot-zen/internal/usecase"
)

var chunkCmd = &cobra.Command{
	Use:   "chunk",
	Short: "Split committed transcripts into the retrieval corpus",
	Long: `Read every ok entry of the transcript manifest, clean the captions and split
them into overlapping token windows. The corpus is written as JSONL with
one {"chunk_id", "video_id", "text", "start_offset", "end_offset"} per line.`,
	RunE: runChunk,
}

func init() {
	rootCmd.AddCommand(chunkCmd)
}

func runChunk(cmd *cobra.Command, args []string) error {
	p, err := openPipeline()
	if err != nil {
		return err
	}
	defer p.Close()
	return p.chunk()
}

func (p *pipeline) chunk() error {
	entries, err := usecase.ReadManifest(p.cfg.ManifestPath(p.root))
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("manifest is empty (run 'zen fetch' first)")
	}

	c := p.cfg.Chunk
	chk, err := chunker.NewWindowChunker(c.WindowTokens, c.OverlapTokens, c.MinTokens)
	if err != nil {
		return err
	}

	result, err := usecase.NewCorpusUseCase(p.store, chk).Build(entries)
	if err != nil {
		return fmt.Errorf("chunking failed: %w", err)
	}

	path := p.cfg.CorpusPath(p.root)
	if err := usecase.WriteCorpus(path, result.Chunks); err != nil {
		return fmt.Errorf("failed to write corpus: %w", err)
	}

	fmt.Printf("\nChunking complete:\n")
	fmt.Printf("  Videos: %d\n", result.Videos)
	fmt.Printf("  Chunks: %d\n", len(result.Chunks))
	if len(result.Errors) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	fmt.Printf("\nCorpus written to: %s\n", path)
	return nil
}
