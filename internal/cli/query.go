package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/anatolykoptev/go-kit/strutil"
	"github.com/spf13/cobra"

	"github.com/4ngelGtz/chatbot-zen/internal/adapter/analyzer"
	"github.com/4ngelGtz/chatbot-zen/internal/adapter/cache"
	"github.com/4ngelGtz/chatbot-zen/internal/adapter/embedding"
	"github.com/4ngelGtz/chatbot-zen/internal/adapter/store"
	"github.com/4ngelGtz/chatbot-zen/internal/domain"
	"github.com/4ngelGtz/chatbot-zen/internal/usecase"
)

var (
	queryText string
	queryTopK int
	queryJSON bool
	queryFull bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search the transcripts for passages relevant to a question",
	Long: `Search the vector index and print the most similar transcript passages.

Examples:
  zen query -q "breathing posture"
  zen query -q "breathing posture" -k 10 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default is retrieve.top_k)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.Flags().BoolVar(&queryFull, "full", false, "print whole passages")
	_ = queryCmd.MarkFlagRequired("query")
}

// queryStack wires the read side over the published index.
type queryStack struct {
	holder    *store.Holder
	retriever *usecase.RetrieveUseCase
	answerer  *usecase.AnswerUseCase
	asker     *usecase.AskUseCase
}

func openQueryStack() (*queryStack, error) {
	return newQueryStack(false)
}

// newQueryStack wires the read side. With allowMissing, a missing index
// leaves the holder pending until one is published.
func newQueryStack(allowMissing bool) (*queryStack, error) {
	cfg := GetConfig()

	path := cfg.VectorIndexPath(GetRootDir())
	holder, err := store.NewHolder(path)
	if err != nil {
		if !errors.Is(err, domain.ErrIndexNotFound) {
			return nil, err
		}
		if !allowMissing {
			return nil, fmt.Errorf("%w (run 'zen index' first)", err)
		}
		slog.Warn("no vector index yet, queries return 503 until 'zen index' publishes one", slog.String("path", path))
		holder = store.NewPendingHolder(path)
	}
	emb, err := embedding.New(cfg.Embedding)
	if err != nil {
		return nil, err
	}
	gen, err := newGenerator(cfg)
	if err != nil {
		return nil, err
	}

	qc := cache.NewQueryCache(cfg.Retrieve.CacheSize, cfg.Retrieve.CacheTTL)
	holder.OnReload(qc.Purge)
	retriever := usecase.NewRetrieveUseCase(holder, emb, qc)
	answerer := usecase.NewAnswerUseCase(gen, analyzer.NewTokenizer(false), cfg.Retrieve.ContextTokens)
	return &queryStack{
		holder:    holder,
		retriever: retriever,
		answerer:  answerer,
		asker:     usecase.NewAskUseCase(retriever, answerer),
	}, nil
}

func topK(flag int) int {
	if flag != 0 {
		return flag
	}
	return GetConfig().Retrieve.TopK
}

func runQuery(cmd *cobra.Command, args []string) error {
	qs, err := openQueryStack()
	if err != nil {
		return err
	}

	results, err := qs.retriever.Retrieve(cmd.Context(), queryText, topK(queryTopK))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if queryJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	for i, r := range results {
		fmt.Printf("--- [%d] %s (score: %.2f) ---\n", i+1, domain.WatchURL(r.VideoID), r.Score)
		text := r.Text
		if !queryFull {
			text = strutil.TruncateWith(text, 400, "...")
		}
		fmt.Println(text)
		fmt.Println()
	}
	return nil
}
