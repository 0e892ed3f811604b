package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/anatolykoptev/go-kit/strutil"

	"github.com/4ngelGtz/chatbot-zen/config"
	"github.com/4ngelGtz/chatbot-zen/internal/adapter/embedding"
	"github.com/4ngelGtz/chatbot-zen/internal/adapter/fs"
	"github.com/4ngelGtz/chatbot-zen/internal/adapter/store"
	"github.com/4ngelGtz/chatbot-zen/internal/domain"
	"github.com/4ngelGtz/chatbot-zen/internal/usecase"
)

// evalCase is one line of an evaluation file: a question and the video
// expected to answer it.
type evalCase struct {
	Query   string `json:"query"`
	VideoID string `json:"video_id"`
}

func main() {
	dir := flag.String("dir", ".", "Project directory")
	query := flag.String("q", "", "Query to test")
	evalPath := flag.String("eval", "", "JSONL of {\"query\", \"video_id\"} cases")
	topK := flag.Int("k", 10, "Number of results")
	flag.Parse()

	if *query == "" && *evalPath == "" {
		fmt.Println("Usage: go run ./cmd/benchmark -dir . -q \"query\"")
		fmt.Println("       go run ./cmd/benchmark -dir . -eval cases.jsonl -k 5")
		fmt.Println("\nTests:")
		fmt.Println("  1. Embedding infrastructure (model connection, index metadata)")
		fmt.Println("  2. Semantic similarity (query vs passages)")
		fmt.Println("  3. Retrieval quality (hit rate and MRR over labelled questions)")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	holder, err := store.NewHolder(cfg.VectorIndexPath(*dir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening index: %v\n", err)
		os.Exit(1)
	}
	emb, err := embedding.New(cfg.Embedding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedder init failed: %v\n", err)
		os.Exit(1)
	}
	retriever := usecase.NewRetrieveUseCase(holder, emb, nil)

	meta := holder.Meta()
	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Passages indexed: %d\n", meta.Count)
	fmt.Printf("Model: %s (%s)\n", meta.Model, cfg.Embedding.Provider)
	fmt.Printf("Dimension: %d, metric: %s\n", meta.Dimension, meta.Metric)
	fmt.Println()

	ctx := context.Background()
	if *evalPath != "" {
		if err := runEval(ctx, retriever, *evalPath, *topK); err != nil {
			fmt.Fprintf(os.Stderr, "Evaluation failed: %v\n", err)
			os.Exit(1)
		}
		return
	}
	if err := runQuery(ctx, retriever, *query, *topK); err != nil {
		fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
		os.Exit(1)
	}
}

func runQuery(ctx context.Context, r *usecase.RetrieveUseCase, query string, k int) error {
	fmt.Printf("Query: %q\n", query)
	fmt.Println(strings.Repeat("-", 70))

	results, err := r.Retrieve(ctx, query, k)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}

	fmt.Printf("Top %d semantic matches:\n\n", len(results))
	total := 0.0
	for i, res := range results {
		preview := strutil.TruncateWith(res.Text, 150, "...")
		total += res.Score
		fmt.Printf("%d. [%s %.3f] %s @%d-%d\n", i+1, rating(res.Score), res.Score, res.VideoID, res.StartOffset, res.EndOffset)
		fmt.Printf("   %s\n\n", preview)
	}

	avg := total / float64(len(results))
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Average similarity: %.3f\n", avg)
	fmt.Printf("  Top-1 similarity:   %.3f\n", results[0].Score)

	switch {
	case avg > 0.5:
		fmt.Println("  Status: GOOD - semantic search working well")
	case avg > 0.3:
		fmt.Println("  Status: OK - results are somewhat related")
	default:
		fmt.Println("  Status: POOR - may need better embeddings or re-indexing")
	}
	return nil
}

func runEval(ctx context.Context, r *usecase.RetrieveUseCase, path string, k int) error {
	cases, err := fs.ReadJSONL[evalCase](path)
	if err != nil {
		return err
	}
	if len(cases) == 0 {
		return fmt.Errorf("no cases in %s", path)
	}

	hits, rr := 0, 0.0
	for _, c := range cases {
		results, err := r.Retrieve(ctx, c.Query, k)
		if err != nil {
			return fmt.Errorf("%q: %w", c.Query, err)
		}
		rank := rankOf(results, c.VideoID)
		mark := "MISS"
		if rank > 0 {
			hits++
			rr += 1 / float64(rank)
			mark = fmt.Sprintf("HIT@%d", rank)
		}
		fmt.Printf("  [%-6s] %s\n", mark, c.Query)
	}

	n := float64(len(cases))
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS (%d questions, k=%d):\n", len(cases), k)
	fmt.Printf("  Hit rate: %.3f\n", float64(hits)/n)
	fmt.Printf("  MRR:      %.3f\n", rr/n)
	return nil
}

// rankOf returns the 1-based rank of the first passage from videoID, or 0.
func rankOf(results []domain.RetrievalResult, videoID string) int {
	for i, r := range results {
		if r.VideoID == videoID {
			return i + 1
		}
	}
	return 0
}

func rating(score float64) string {
	switch {
	case score > 0.7:
		return "HIGH"
	case score > 0.5:
		return "GOOD"
	case score > 0.3:
		return "OK"
	}
	return "LOW"
}
