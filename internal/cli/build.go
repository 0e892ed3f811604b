package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var buildRefetch bool

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run fetch, manifest, chunk and index in one go",
	Long: `Run the whole ingestion pipeline over the video list: fetch missing
transcripts, rewrite the manifest, rebuild the corpus and update the vector
index. Enumerate the channel with 'zen ids' first.`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().BoolVar(&buildRefetch, "refetch", false, "download transcripts that are already stored")
}

func runBuild(cmd *cobra.Command, args []string) error {
	p, err := openPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	refs, err := p.videoRefs(nil)
	if err != nil {
		return err
	}

	fmt.Printf("Fetching %d videos...\n", len(refs))
	summary, err := p.ingest(cmd.Context(), refs, !buildRefetch && p.cfg.Fetch.SkipExisting)
	if err != nil {
		return err
	}
	fmt.Printf("Fetched %d, failed %d, skipped %d\n", summary.OK, summary.Failed, summary.Skipped)

	if err := p.writeManifest(cmd.Context(), refs); err != nil {
		return err
	}
	if err := p.chunk(); err != nil {
		return err
	}
	return buildIndex(cmd.Context())
}
