package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	rl := fmt.Errorf("native:en: %w", &RateLimitError{Provider: "native:en", RetryAfter: 30})
	assert.True(t, errors.Is(rl, ErrRateLimited))
	assert.True(t, Retryable(rl))

	var rle *RateLimitError
	assert.True(t, errors.As(rl, &rle))
	assert.Equal(t, 30, rle.RetryAfter)

	assert.True(t, Retryable(fmt.Errorf("dial: %w", ErrTransientNetwork)))
	assert.False(t, Retryable(ErrNotFound))
	assert.False(t, Retryable(NewConfigError("x", "y")))
}

func TestFetchFailureWrapsExhausted(t *testing.T) {
	err := error(&FetchFailure{VideoID: "abc", Reason: "no captions", Attempts: 3})
	assert.True(t, errors.Is(err, ErrProviderExhausted))
	assert.Contains(t, err.Error(), "abc")
}

func TestGenerationErrorUnwrap(t *testing.T) {
	results := []RetrievalResult{{ChunkID: "c1"}}
	err := error(&GenerationError{Err: context.DeadlineExceeded, Results: results})

	assert.True(t, errors.Is(err, ErrGeneration))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	var ge *GenerationError
	if assert.True(t, errors.As(err, &ge)) {
		assert.Equal(t, results, ge.Results)
	}
}

func TestModelMismatchError(t *testing.T) {
	err := error(&ModelMismatchError{IndexModel: "a", IndexDimension: 3, QueryModel: "b", QueryDimension: 4})
	assert.True(t, errors.Is(err, ErrModelMismatch))
}

func TestIngestSummaryTotal(t *testing.T) {
	s := IngestSummary{OK: 2, Failed: 1, Skipped: 3}
	assert.Equal(t, 6, s.Total())
}
