package port

import (
	"context"

	"github.com/4ngelGtz/chatbot-zen/internal/domain"
)

// Identity is the client persona presented to a transcript source.
type Identity struct {
	Name      string
	UserAgent string
	Cookie    string
}

// TranscriptProvider is one strategy for obtaining a transcript.
type TranscriptProvider interface {
	Name() string

	// Language is the language code of transcripts this provider returns.
	Language() string

	// TryFetch returns the transcript as SRT text, or an error wrapping
	// domain.ErrNotFound, domain.ErrRateLimited or domain.ErrTransientNetwork.
	TryFetch(ctx context.Context, ref domain.VideoRef, id Identity) (string, error)
}

// IdentityRotator hands out client identities, advancing on every call.
type IdentityRotator interface {
	Next() Identity
}

// Enumerator lists candidate videos for a source.
type Enumerator interface {
	Enumerate(ctx context.Context, sourceURL string) ([]domain.VideoRef, error)
}
