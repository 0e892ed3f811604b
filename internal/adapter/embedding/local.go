package embedding

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/4ngelGtz/chatbot-zen/internal/port"
)

// HashingEmbedder is an offline embedder: stemmed, stopword-filtered tokens
// are feature-hashed into a fixed number of signed buckets and L2-normalized.
type HashingEmbedder struct {
	dimension int
	tokenizer port.Tokenizer
}

func NewHashingEmbedder(dimension int, tokenizer port.Tokenizer) *HashingEmbedder {
	if dimension <= 0 {
		dimension = 512
	}
	return &HashingEmbedder{dimension: dimension, tokenizer: tokenizer}
}

func (e *HashingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.embedOne(text)
	}
	return out, nil
}

func (e *HashingEmbedder) embedOne(text string) []float32 {
	vec := make([]float32, e.dimension)
	for _, tok := range e.tokenizer.Tokenize(text) {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()
		idx := int(sum % uint64(e.dimension))
		if sum>>63 == 1 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}

	var n float64
	for _, v := range vec {
		n += float64(v) * float64(v)
	}
	if n > 0 {
		inv := float32(1 / math.Sqrt(n))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}

func (e *HashingEmbedder) Dimension() int {
	return e.dimension
}

func (e *HashingEmbedder) ModelName() string {
	return "local-hash"
}
