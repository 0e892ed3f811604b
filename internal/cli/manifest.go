package cli

import (
	"github.com/spf13/cobra"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Rebuild the transcript manifest without fetching",
	Long: `Rebuild the transcript manifest from the transcripts on disk and the attempt
ledger. Every listed video gets one entry marked ok, failed or skipped;
transcripts on disk that are not in the list are appended in ID order.`,
	RunE: runManifest,
}

func init() {
	rootCmd.AddCommand(manifestCmd)
}

func runManifest(cmd *cobra.Command, args []string) error {
	p, err := openPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	refs, err := p.videoRefs(nil)
	if err != nil {
		return err
	}
	return p.writeManifest(cmd.Context(), refs)
}
