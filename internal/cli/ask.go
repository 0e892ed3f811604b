package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/4ngelGtz/chatbot-zen/internal/domain"
)

var (
	askText string
	askTopK int
	askJSON bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a question from the transcripts",
	Long: `Retrieve the most relevant passages and generate an answer grounded in them.
Without a generation API key the answer is assembled from the passages.

Examples:
  zen ask -q "how long should I sit each day?"
  zen ask -q "what is shikantaza?" -k 8 --json`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askText, "query", "q", "", "question (required)")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "passages to retrieve (default is retrieve.top_k)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
	_ = askCmd.MarkFlagRequired("query")
}

func runAsk(cmd *cobra.Command, args []string) error {
	qs, err := openQueryStack()
	if err != nil {
		return err
	}

	resp, err := qs.asker.Ask(cmd.Context(), askText, topK(askTopK))
	var ge *domain.GenerationError
	if err != nil && !errors.As(err, &ge) {
		return err
	}

	if askJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(resp); encErr != nil {
			return encErr
		}
		return err
	}

	if ge == nil {
		fmt.Println(resp.Answer)
	}
	if len(resp.Sources) > 0 {
		fmt.Printf("\nSources:\n")
		for i, s := range resp.Sources {
			fmt.Printf("  [%d] %s\n", i+1, s.URL)
		}
	}
	return err
}
