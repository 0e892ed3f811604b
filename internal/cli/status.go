package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <video-id>...",
	Short: "Show the fetch history of videos",
	Long: `Print every recorded fetch attempt for each video, oldest first, followed
by the latest outcome. Videos that were never attempted are reported as such.

Examples:
  zen status abc123
  zen status abc123 def456`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	p, err := openPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	ctx := cmd.Context()
	for _, id := range args {
		last, ok, err := p.ledger.LastOutcome(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Printf("%s: never attempted\n", id)
			continue
		}

		history, err := p.ledger.History(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s (%d attempts, stored: %t)\n", id, last, len(history), p.store.Has(id))

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, a := range history {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n",
				a.Attempted.Local().Format(time.DateTime), a.Outcome, a.Provider, a.Language, a.Reason)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return nil
}
