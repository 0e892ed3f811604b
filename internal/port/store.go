package port

import (
	"context"

	"github.com/4ngelGtz/chatbot-zen/internal/domain"
)

// TranscriptStore is the content store for fetched transcripts.
type TranscriptStore interface {
	Path(videoID, lang string) string

	// Replace commits a transcript and drops the video's other-language transcripts.
	Replace(videoID, lang, text string) (string, error)

	Read(path string) (string, error)

	List() ([]domain.StoredTranscript, error)

	Has(videoID string) bool
}

// AttemptLedger records fetch attempts for later manifest builds.
type AttemptLedger interface {
	Record(ctx context.Context, a domain.Attempt) error

	// Exhausted returns video_id -> reason for videos whose latest terminal outcome was exhaustion.
	Exhausted(ctx context.Context) (map[string]string, error)
}
