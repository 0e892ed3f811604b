package port

import (
	"context"

	"github.com/4ngelGtz/chatbot-zen/internal/domain"
)

// Retriever defines the interface for searching indexed transcripts.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]domain.RetrievalResult, error)
}

// Asker answers a question from retrieved transcript passages.
type Asker interface {
	Ask(ctx context.Context, query string, k int) (domain.AnswerResponse, error)
}
