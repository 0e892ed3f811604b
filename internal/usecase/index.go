package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/4ngelGtz/chatbot-zen/internal/adapter/retry"
	"github.com/4ngelGtz/chatbot-zen/internal/adapter/store"
	"github.com/4ngelGtz/chatbot-zen/internal/domain"
	"github.com/4ngelGtz/chatbot-zen/internal/port"
)

// IndexOptions tunes the vector index build.
type IndexOptions struct {
	Metric    string
	BatchSize int
	Policy    retry.Policy

	// OnEmbedded reports progress over the chunks that need embedding.
	OnEmbedded func(done, total int)
}

// IndexUseCase builds and publishes the vector index.
type IndexUseCase struct {
	path     string
	embedder port.Embedder
	opts     IndexOptions
}

// NewIndexUseCase creates a new index use case publishing to path.
func NewIndexUseCase(path string, embedder port.Embedder, opts IndexOptions) *IndexUseCase {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 64
	}
	if opts.Metric == "" {
		opts.Metric = domain.MetricCosine
	}
	return &IndexUseCase{path: path, embedder: embedder, opts: opts}
}

type pending struct {
	chunk  domain.Chunk
	vector []float32
}

// Build embeds the chunks and atomically replaces the published index.
// Chunks already in the previous index with unchanged text keep their
// vectors and relative order; only new chunks are embedded. On error or
// cancellation the previous index is left untouched.
func (u *IndexUseCase) Build(ctx context.Context, chunks []domain.Chunk) (domain.BuildSummary, error) {
	var summary domain.BuildSummary
	model, dim := u.embedder.ModelName(), u.embedder.Dimension()

	// Deduplicate the corpus, first occurrence wins
	current := make(map[string]domain.Chunk, len(chunks))
	ordered := make([]domain.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if _, dup := current[c.ID]; dup {
			continue
		}
		current[c.ID] = c
		ordered = append(ordered, c)
	}

	// Carry over still-present chunks from the previous index
	var carried []pending
	reused := make(map[string]bool)
	prev, err := u.previous(model, dim)
	if err != nil {
		return summary, err
	}
	if prev != nil {
		for _, e := range prev.Entries() {
			c, ok := current[e.ChunkID]
			if !ok {
				continue
			}
			old, _ := prev.Chunk(e.ChunkID)
			if old.Text != c.Text {
				continue
			}
			carried = append(carried, pending{chunk: c, vector: e.Vector})
			reused[c.ID] = true
		}
		summary.Removed = prev.Len() - len(carried)
	}
	summary.Reused = len(carried)

	var todo []domain.Chunk
	for _, c := range ordered {
		if !reused[c.ID] {
			todo = append(todo, c)
		}
	}

	embedded, failed, err := u.embedAll(ctx, todo, dim)
	if err != nil {
		return summary, err
	}
	summary.Embedded = len(embedded)
	summary.Failed = failed

	// Write carried chunks then new ones into a fresh artifact
	w, err := store.NewIndexWriter(u.path, model, dim, u.opts.Metric)
	if err != nil {
		return summary, err
	}
	for _, p := range append(carried, embedded...) {
		if err := ctx.Err(); err != nil {
			w.Abort()
			return summary, err
		}
		if err := w.Append(p.chunk, p.vector); err != nil {
			w.Abort()
			return summary, fmt.Errorf("append %s: %w", p.chunk.ID, err)
		}
	}
	meta, err := w.Commit()
	if err != nil {
		return summary, err
	}
	summary.Total = meta.Count

	slog.Info("vector index published",
		slog.String("path", u.path), slog.Int("total", summary.Total),
		slog.Int("embedded", summary.Embedded), slog.Int("reused", summary.Reused),
		slog.Int("removed", summary.Removed), slog.Int("failed", len(summary.Failed)))
	return summary, nil
}

// previous opens the published index when it can be extended in place.
func (u *IndexUseCase) previous(model string, dim int) (*store.VectorIndex, error) {
	prev, err := store.OpenVectorIndex(u.path)
	if errors.Is(err, domain.ErrIndexNotFound) {
		return nil, nil
	}
	if err != nil {
		slog.Warn("previous index unreadable, rebuilding from scratch", slog.String("path", u.path), slog.Any("error", err))
		return nil, nil
	}
	if m := store.CheckMigration(prev.Meta(), model, dim, u.opts.Metric); m.NeedsRebuild {
		slog.Info("previous index incompatible, rebuilding from scratch", slog.String("reason", m.Reason))
		return nil, nil
	}
	return prev, nil
}

// embedAll embeds chunks in batches. A batch that keeps failing is retried
// chunk by chunk so one bad input only excludes itself.
func (u *IndexUseCase) embedAll(ctx context.Context, todo []domain.Chunk, dim int) ([]pending, []domain.ChunkFailure, error) {
	var out []pending
	var failed []domain.ChunkFailure

	for start := 0; start < len(todo); start += u.opts.BatchSize {
		end := min(start+u.opts.BatchSize, len(todo))
		batch := todo[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}
		vecs, _, err := retry.Do(ctx, u.opts.Policy, func(int) ([][]float32, error) {
			return u.embedder.Embed(ctx, texts)
		})
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}

		if err == nil && len(vecs) == len(batch) {
			for i, c := range batch {
				if len(vecs[i]) != dim {
					return nil, nil, fmt.Errorf("%w: embedder returned dimension %d, want %d",
						domain.ErrModelMismatch, len(vecs[i]), dim)
				}
				out = append(out, pending{chunk: c, vector: vecs[i]})
			}
		} else {
			slog.Warn("embedding batch failed, retrying chunks individually",
				slog.Int("batch_start", start), slog.Any("error", err))
			for _, c := range batch {
				vec, _, err := retry.Do(ctx, u.opts.Policy, func(int) ([][]float32, error) {
					return u.embedder.Embed(ctx, []string{c.Text})
				})
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, nil, ctxErr
				}
				if err == nil && len(vec) != 1 {
					err = fmt.Errorf("%w: got %d vectors for 1 input", domain.ErrEmbeddingFailed, len(vec))
				}
				if err == nil && len(vec[0]) != dim {
					return nil, nil, fmt.Errorf("%w: embedder returned dimension %d, want %d",
						domain.ErrModelMismatch, len(vec[0]), dim)
				}
				if err != nil {
					failed = append(failed, domain.ChunkFailure{ChunkID: c.ID, Reason: err.Error()})
					continue
				}
				out = append(out, pending{chunk: c, vector: vec[0]})
			}
		}

		if u.opts.OnEmbedded != nil {
			u.opts.OnEmbedded(end, len(todo))
		}
	}
	return out, failed, nil
}
