package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for classification with errors.Is.
var (
	ErrRateLimited         = errors.New("rate limited")
	ErrNotFound            = errors.New("transcript not found")
	ErrTransientNetwork    = errors.New("transient network error")
	ErrProviderExhausted   = errors.New("all transcript providers exhausted")
	ErrConfig              = errors.New("invalid configuration")
	ErrModelMismatch       = errors.New("embedding model mismatch")
	ErrGeneration          = errors.New("answer generation failed")
	ErrIndexNotFound       = errors.New("vector index not found")
	ErrEmbeddingFailed     = errors.New("embedding failed")
	ErrInvalidVideoRecord  = errors.New("invalid video record")
	ErrTranscriptNotStored = errors.New("transcript not in store")
)

// ConfigError names the offending setting.
type ConfigError struct {
	Field  string
	Reason string
}

func NewConfigError(field, reason string) *ConfigError {
	return &ConfigError{Field: field, Reason: reason}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

// RateLimitError carries the server's retry hint, if any.
type RateLimitError struct {
	Provider   string
	RetryAfter int // seconds, 0 when unknown
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: rate limited (retry after %ds)", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("%s: rate limited", e.Provider)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// FetchFailure is returned when no provider produced a transcript.
type FetchFailure struct {
	VideoID  string
	Reason   string
	Attempts int
}

func (e *FetchFailure) Error() string {
	return fmt.Sprintf("fetch %s: %s (after %d attempts)", e.VideoID, e.Reason, e.Attempts)
}

func (e *FetchFailure) Unwrap() error { return ErrProviderExhausted }

// ModelMismatchError reports an index built with a different embedding model.
type ModelMismatchError struct {
	IndexModel     string
	IndexDimension int
	QueryModel     string
	QueryDimension int
}

func (e *ModelMismatchError) Error() string {
	return fmt.Sprintf("index built with %s (dim %d), query embedder is %s (dim %d)",
		e.IndexModel, e.IndexDimension, e.QueryModel, e.QueryDimension)
}

func (e *ModelMismatchError) Unwrap() error { return ErrModelMismatch }

// GenerationError carries the retrieved passages so callers can still show sources.
type GenerationError struct {
	Err     error
	Results []RetrievalResult
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%v: %v", ErrGeneration, e.Err)
}

func (e *GenerationError) Unwrap() []error { return []error{ErrGeneration, e.Err} }

// Retryable reports whether err is worth retrying against the same provider.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransientNetwork)
}
