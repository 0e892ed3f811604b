package port

import "github.com/4ngelGtz/chatbot-zen/internal/domain"

type Chunker interface {
	Chunk(videoID, text string) ([]domain.Chunk, error)
}
