package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/4ngelGtz/chatbot-zen/internal/adapter/cache"
	"github.com/4ngelGtz/chatbot-zen/internal/adapter/store"
	"github.com/4ngelGtz/chatbot-zen/internal/domain"
	"github.com/4ngelGtz/chatbot-zen/internal/metrics"
	"github.com/4ngelGtz/chatbot-zen/internal/port"
)

// IndexView is a published index whose snapshot may be swapped by reloads.
type IndexView interface {
	// Current returns the published snapshot and its generation, which
	// changes whenever a new snapshot is published.
	Current() (port.VectorSearcher, uint64, error)
}

// RetrieveUseCase answers similarity queries against the vector index.
type RetrieveUseCase struct {
	index    IndexView
	embedder port.Embedder
	cache    *cache.QueryCache
}

// NewRetrieveUseCase creates a new retrieve use case. cache may be nil.
func NewRetrieveUseCase(index IndexView, embedder port.Embedder, qc *cache.QueryCache) *RetrieveUseCase {
	return &RetrieveUseCase{index: index, embedder: embedder, cache: qc}
}

// Retrieve returns up to k chunks ordered by score descending, ties by position.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, query string, k int) ([]domain.RetrievalResult, error) {
	if k <= 0 {
		return nil, domain.NewConfigError("top_k", fmt.Sprintf("must be positive, got %d", k))
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.NewConfigError("query", "must not be empty")
	}

	// One snapshot serves the whole request, even if a reload lands midway.
	snap, gen, err := u.index.Current()
	if err != nil {
		return nil, err
	}

	// Refuse to compare vectors from different embedding spaces
	if err := store.CheckQueryModel(snap.Meta(), u.embedder.ModelName(), u.embedder.Dimension()); err != nil {
		return nil, err
	}

	metrics.IncrQuery()
	if u.cache != nil {
		if results, ok := u.cache.Get(gen, query, k); ok {
			metrics.IncrCacheHit()
			return results, nil
		}
		metrics.IncrCacheMiss()
	}

	vecs, err := u.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%w: got %d vectors for the query", domain.ErrEmbeddingFailed, len(vecs))
	}

	results, err := snap.Search(vecs[0], k)
	if err != nil {
		return nil, err
	}

	if u.cache != nil {
		u.cache.Put(gen, query, k, results)
	}
	return results, nil
}
