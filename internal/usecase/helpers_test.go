package usecase

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/4ngelGtz/chatbot-zen/internal/adapter/retry"
	"github.com/4ngelGtz/chatbot-zen/internal/domain"
	"github.com/4ngelGtz/chatbot-zen/internal/port"
)

var fastPolicy = retry.Policy{
	MaxAttempts: 3,
	InitialWait: time.Millisecond,
	MaxWait:     5 * time.Millisecond,
	Multiplier:  2,
}

// scriptedProvider replays a fixed sequence of outcomes, repeating the last.
type scriptedProvider struct {
	name, lang string
	script     []outcome

	mu         sync.Mutex
	calls      int
	identities []string
}

type outcome struct {
	text string
	err  error
}

func (p *scriptedProvider) Name() string     { return p.name }
func (p *scriptedProvider) Language() string { return p.lang }

func (p *scriptedProvider) TryFetch(_ context.Context, _ domain.VideoRef, id port.Identity) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	o := p.script[min(p.calls, len(p.script)-1)]
	p.calls++
	p.identities = append(p.identities, id.Name)
	return o.text, o.err
}

// rejectingProvider reports one video as missing and delegates the rest.
type rejectingProvider struct {
	reject string
	inner  port.TranscriptProvider
}

func (p *rejectingProvider) Name() string     { return p.inner.Name() }
func (p *rejectingProvider) Language() string { return p.inner.Language() }

func (p *rejectingProvider) TryFetch(ctx context.Context, ref domain.VideoRef, id port.Identity) (string, error) {
	if ref.ID == p.reject {
		return "", domain.ErrNotFound
	}
	return p.inner.TryFetch(ctx, ref, id)
}

type rotator struct {
	names []string
	n     atomic.Int64
}

func (r *rotator) Next() port.Identity {
	i := r.n.Add(1) - 1
	return port.Identity{Name: r.names[int(i)%len(r.names)]}
}

// memLedger is an in-memory port.AttemptLedger.
type memLedger struct {
	mu   sync.Mutex
	rows []domain.Attempt
}

func (l *memLedger) Record(_ context.Context, a domain.Attempt) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = append(l.rows, a)
	return nil
}

func (l *memLedger) Exhausted(context.Context) (map[string]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]string)
	for _, a := range l.rows {
		switch a.Outcome {
		case domain.OutcomeExhausted:
			out[a.VideoID] = a.Reason
		case domain.OutcomeOK:
			delete(out, a.VideoID)
		}
	}
	return out, nil
}

func (l *memLedger) outcomes(videoID string) []domain.AttemptOutcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.AttemptOutcome
	for _, a := range l.rows {
		if a.VideoID == videoID {
			out = append(out, a.Outcome)
		}
	}
	return out
}

// vocabEmbedder counts vocabulary words; plural "s" is folded.
type vocabEmbedder struct {
	model string
	vocab []string
	fail  func(text string) error

	mu       sync.Mutex
	embedded []string
	calls    int
}

func newVocabEmbedder(vocab ...string) *vocabEmbedder {
	return &vocabEmbedder{model: "vocab-test", vocab: vocab}
}

func (e *vocabEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if e.fail != nil {
			if err := e.fail(text); err != nil {
				return nil, err
			}
		}
		vec := make([]float32, len(e.vocab))
		for _, w := range strings.Fields(strings.ToLower(text)) {
			w = strings.Trim(w, ".,?!")
			for j, v := range e.vocab {
				if w == v || w == v+"s" {
					vec[j]++
				}
			}
		}
		out[i] = vec
	}

	e.mu.Lock()
	e.embedded = append(e.embedded, texts...)
	e.mu.Unlock()
	return out, nil
}

func (e *vocabEmbedder) Dimension() int    { return len(e.vocab) }
func (e *vocabEmbedder) ModelName() string { return e.model }

func (e *vocabEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type fakeGenerator struct {
	answer  string
	err     error
	prompts []string
}

func (g *fakeGenerator) Complete(_ context.Context, _, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.answer, g.err
}

func (g *fakeGenerator) ModelName() string { return "fake-llm" }

// wordTokenizer counts one token per whitespace-separated word.
type wordTokenizer struct{}

func (wordTokenizer) Tokenize(text string) []string { return strings.Fields(text) }
func (wordTokenizer) CountTokens(text string) int   { return len(strings.Fields(text)) }

func chunkOf(id, videoID, text string) domain.Chunk {
	return domain.Chunk{ID: id, VideoID: videoID, Text: text, EndOffset: len(text)}
}

// stallingProvider never answers; it returns once the caller gives up.
type stallingProvider struct{}

func (stallingProvider) Name() string     { return "native:en" }
func (stallingProvider) Language() string { return "en" }

func (stallingProvider) TryFetch(ctx context.Context, _ domain.VideoRef, _ port.Identity) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}
