package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	kitllm "github.com/anatolykoptev/go-kit/llm"

	"github.com/4ngelGtz/chatbot-zen/internal/domain"
	"github.com/4ngelGtz/chatbot-zen/internal/metrics"
)

// Options configures an OpenAI-compatible chat completion client.
type Options struct {
	BaseURL      string
	APIKey       string
	FallbackKeys []string
	Model        string
	MaxTokens    int
	Temperature  float64
	Timeout      time.Duration
}

// Client adapts the go-kit LLM client to port.Generator.
type Client struct {
	model    string
	complete func(ctx context.Context, system, prompt string) (string, error)
}

func NewClient(o Options) (*Client, error) {
	if o.APIKey == "" {
		return nil, domain.NewConfigError("generation.api_key_env", "no API key for the generation model")
	}
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}

	c := kitllm.NewClient(o.BaseURL, o.APIKey, o.Model,
		kitllm.WithFallbackKeys(o.FallbackKeys),
		kitllm.WithMaxTokens(o.MaxTokens),
		kitllm.WithTemperature(o.Temperature),
		kitllm.WithHTTPClient(&http.Client{Timeout: o.Timeout}),
	)
	return &Client{
		model: o.Model,
		complete: func(ctx context.Context, system, prompt string) (string, error) {
			return c.Complete(ctx, system, prompt)
		},
	}, nil
}

func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	metrics.IncrLLMCall()
	out, err := c.complete(ctx, system, prompt)
	if err != nil {
		metrics.IncrLLMError()
		return "", fmt.Errorf("llm %s: %w", c.model, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("llm %s: empty completion", c.model)
	}
	return out, nil
}

func (c *Client) ModelName() string {
	return c.model
}
