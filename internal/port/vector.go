package port

import "github.com/4ngelGtz/chatbot-zen/internal/domain"

// VectorSearcher answers nearest-neighbour queries over a published index snapshot.
type VectorSearcher interface {
	Meta() domain.IndexMeta

	Len() int

	// Search returns up to k results ordered by score descending, ties by position.
	Search(query []float32, k int) ([]domain.RetrievalResult, error)
}
