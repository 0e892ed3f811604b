package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/4ngelGtz/chatbot-zen/internal/usecase"
)

var (
	promptText   string
	promptTopK   int
	promptSystem bool
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the generation prompt for a question",
	Long: `Retrieve passages for a question and print the prompt that would be sent to
the generation model, for use with an external LLM.

Examples:
  zen prompt -q "what is zazen?"
  zen prompt -q "what is zazen?" --system > prompt.txt`,
	RunE: runPrompt,
}

func init() {
	rootCmd.AddCommand(promptCmd)
	promptCmd.Flags().StringVarP(&promptText, "query", "q", "", "question (required)")
	promptCmd.Flags().IntVarP(&promptTopK, "top-k", "k", 0, "passages to retrieve (default is retrieve.top_k)")
	promptCmd.Flags().BoolVar(&promptSystem, "system", false, "include the system prompt")
	_ = promptCmd.MarkFlagRequired("query")
}

func runPrompt(cmd *cobra.Command, args []string) error {
	qs, err := openQueryStack()
	if err != nil {
		return err
	}

	results, err := qs.retriever.Retrieve(cmd.Context(), promptText, topK(promptTopK))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if len(results) == 0 {
		fmt.Println(usecase.NoContextAnswer)
		return nil
	}

	prompt, err := qs.answerer.Prompt(promptText, results)
	if err != nil {
		return err
	}
	if promptSystem {
		fmt.Println(usecase.SystemPrompt())
		fmt.Println()
	}
	fmt.Println(prompt)
	return nil
}
