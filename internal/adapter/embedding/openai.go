package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/anatolykoptev/go-kit/strutil"

	"github.com/4ngelGtz/chatbot-zen/internal/domain"
	"github.com/4ngelGtz/chatbot-zen/internal/metrics"
)

const (
	openAIBaseURL = "https://api.openai.com/v1"
	jinaBaseURL   = "https://api.jina.ai/v1"
	ollamaBaseURL = "http://localhost:11434/v1"
)

// nativeDimensions are the default output widths of known models.
var nativeDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
	"jina-embeddings-v3":     1024,
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"all-minilm":             384,
}

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint. OpenAI,
// Jina and Ollama all speak this protocol.
type OpenAIEmbedder struct {
	apiKey    string
	model     string
	baseURL   string
	dimension int
	shorten   bool // request dimension explicitly
	batchSize int
	client    *http.Client
}

type embeddingRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Error *apiError       `json:"error,omitempty"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func NewOpenAIEmbedder(apiKeyEnv, model string) (*OpenAIEmbedder, error) {
	return NewOpenAICompatibleEmbedder(apiKeyEnv, model, openAIBaseURL)
}

func NewJinaEmbedder(apiKeyEnv, model string) (*OpenAIEmbedder, error) {
	return NewOpenAICompatibleEmbedder(apiKeyEnv, model, jinaBaseURL)
}

// NewOllamaEmbedder targets a local Ollama server, which needs no API key.
func NewOllamaEmbedder(model, baseURL string) (*OpenAIEmbedder, error) {
	if baseURL == "" {
		baseURL = ollamaBaseURL
	}
	return newRemote("ollama", model, baseURL, 768, 32, 120*time.Second), nil
}

// NewOpenAICompatibleEmbedder reads the API key from apiKeyEnv.
func NewOpenAICompatibleEmbedder(apiKeyEnv, model, baseURL string) (*OpenAIEmbedder, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, domain.NewConfigError("embedding.api_key_env",
			fmt.Sprintf("API key not found in environment variable: %s", apiKeyEnv))
	}
	return newRemote(apiKey, model, baseURL, 1536, 100, 60*time.Second), nil
}

func newRemote(apiKey, model, baseURL string, fallbackDim, batch int, timeout time.Duration) *OpenAIEmbedder {
	dim, ok := nativeDimensions[model]
	if !ok {
		dim = fallbackDim
	}
	return &OpenAIEmbedder{
		apiKey:    apiKey,
		model:     model,
		baseURL:   baseURL,
		dimension: dim,
		batchSize: batch,
		client:    &http.Client{Timeout: timeout},
	}
}

// WithDimension requests shortened embeddings of width d from models that
// support it. A d of zero or the model's native width is a no-op.
func (e *OpenAIEmbedder) WithDimension(d int) *OpenAIEmbedder {
	if d > 0 && d != e.dimension {
		e.dimension = d
		e.shorten = true
	}
	return e
}

// WithBatchSize caps how many texts go into one request.
func (e *OpenAIEmbedder) WithBatchSize(n int) *OpenAIEmbedder {
	if n > 0 {
		e.batchSize = n
	}
	return e
}

// Embed returns one vector per text, in input order.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))

		metrics.IncrEmbedCall()
		vecs, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			metrics.IncrEmbedError()
			return nil, err
		}
		out = append(out, vecs...)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	payload := embeddingRequest{Input: texts, Model: e.model}
	if e.shorten {
		payload.Dimensions = e.dimension
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var netErr net.Error
		if errors.As(err, &netErr) {
			return nil, fmt.Errorf("%w: %v", domain.ErrTransientNetwork, err)
		}
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read embedding response: %v", domain.ErrTransientNetwork, err)
	}
	if err := classifyStatus(resp, data); err != nil {
		return nil, err
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("%w: parse response %q: %v",
			domain.ErrEmbeddingFailed, strutil.TruncateWith(string(data), 200, "..."), err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("%w: API error: %s", domain.ErrEmbeddingFailed, parsed.Error.Message)
	}
	return e.ordered(parsed.Data, len(texts))
}

// ordered places vectors by their response index and checks every input got
// a vector of the expected width.
func (e *OpenAIEmbedder) ordered(items []embeddingData, n int) ([][]float32, error) {
	vecs := make([][]float32, n)
	for _, d := range items {
		if d.Index >= 0 && d.Index < n {
			vecs[d.Index] = d.Embedding
		}
	}
	for i, v := range vecs {
		switch {
		case v == nil:
			return nil, fmt.Errorf("%w: no embedding returned for input %d", domain.ErrEmbeddingFailed, i)
		case len(v) != e.dimension:
			return nil, fmt.Errorf("%w: input %d has dimension %d, want %d",
				domain.ErrEmbeddingFailed, i, len(v), e.dimension)
		}
	}
	return vecs, nil
}

// classifyStatus maps HTTP failures onto the retry taxonomy.
func classifyStatus(resp *http.Response, body []byte) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		return &domain.RateLimitError{Provider: "embeddings", RetryAfter: retryAfter}
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: API returned status %d", domain.ErrTransientNetwork, resp.StatusCode)
	default:
		return fmt.Errorf("%w: API returned status %d: %s",
			domain.ErrEmbeddingFailed, resp.StatusCode, strutil.TruncateWith(string(body), 200, "..."))
	}
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}
