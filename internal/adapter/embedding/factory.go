package embedding

import (
	"fmt"

	"github.com/4ngelGtz/chatbot-zen/config"
	"github.com/4ngelGtz/chatbot-zen/internal/adapter/analyzer"
	"github.com/4ngelGtz/chatbot-zen/internal/domain"
	"github.com/4ngelGtz/chatbot-zen/internal/port"
)

// New builds the embedder selected by c.Provider.
func New(c config.EmbeddingConfig) (port.Embedder, error) {
	var emb *OpenAIEmbedder
	var err error
	switch c.Provider {
	case "openai":
		if c.BaseURL != "" {
			emb, err = NewOpenAICompatibleEmbedder(c.APIKeyEnv, c.Model, c.BaseURL)
		} else {
			emb, err = NewOpenAIEmbedder(c.APIKeyEnv, c.Model)
		}
	case "jina":
		emb, err = NewJinaEmbedder(c.APIKeyEnv, c.Model)
	case "ollama":
		emb, err = NewOllamaEmbedder(c.Model, c.BaseURL)
	case "local":
		return NewHashingEmbedder(c.Dimension, analyzer.NewTokenizer(true)), nil
	default:
		return nil, domain.NewConfigError("embedding.provider", fmt.Sprintf("unsupported provider %q", c.Provider))
	}
	if err != nil {
		return nil, err
	}
	return emb.WithDimension(c.Dimension).WithBatchSize(c.BatchSize), nil
}
