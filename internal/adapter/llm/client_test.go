package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/4ngelGtz/chatbot-zen/internal/domain"
)

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(Options{Model: "gpt-4o-mini"})
	assert.ErrorIs(t, err, domain.ErrConfig)

	c, err := NewClient(Options{BaseURL: "http://localhost", APIKey: "k", Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", c.ModelName())
}

func TestClient_Complete(t *testing.T) {
	upstream := errors.New("upstream 503")
	c := &Client{model: "m"}

	c.complete = func(_ context.Context, system, prompt string) (string, error) {
		return "  grounded answer \n", nil
	}
	out, err := c.Complete(context.Background(), "sys", "q")
	require.NoError(t, err)
	assert.Equal(t, "grounded answer", out)

	c.complete = func(context.Context, string, string) (string, error) { return "", upstream }
	_, err = c.Complete(context.Background(), "sys", "q")
	assert.ErrorIs(t, err, upstream)

	c.complete = func(context.Context, string, string) (string, error) { return " ", nil }
	_, err = c.Complete(context.Background(), "sys", "q")
	assert.Error(t, err)
}
