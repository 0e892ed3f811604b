package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/4ngelGtz/chatbot-zen/internal/domain"
)

var retrieved = []domain.RetrievalResult{
	{ChunkID: "c1", VideoID: "v1", Text: "one two three", StartOffset: 0, EndOffset: 13},
	{ChunkID: "c2", VideoID: "v2", Text: "four five", StartOffset: 10, EndOffset: 19},
	{ChunkID: "c3", VideoID: "v1", Text: "six", StartOffset: 40, EndOffset: 43},
}

func TestAnswer_NoContext(t *testing.T) {
	gen := &fakeGenerator{answer: "should not be called"}
	resp, err := NewAnswerUseCase(gen, wordTokenizer{}, 100).Answer(context.Background(), "why?", nil)
	require.NoError(t, err)

	assert.Equal(t, NoContextAnswer, resp.Answer)
	assert.Equal(t, "none", resp.Provider)
	assert.NotNil(t, resp.Sources)
	assert.Empty(t, resp.Sources)
	assert.Empty(t, gen.prompts)
}

func TestAnswer_GeneratesFromPassages(t *testing.T) {
	gen := &fakeGenerator{answer: "Sit and breathe."}
	resp, err := NewAnswerUseCase(gen, wordTokenizer{}, 100).Answer(context.Background(), "how to sit?", retrieved)
	require.NoError(t, err)

	assert.Equal(t, "Sit and breathe.", resp.Answer)
	assert.Equal(t, "fake-llm", resp.Provider)
	assert.Equal(t, 3, resp.TopK)
	assert.Equal(t, []domain.Source{
		{VideoID: "v1", URL: "https://www.youtube.com/watch?v=v1", StartOffset: 0, EndOffset: 13},
		{VideoID: "v2", URL: "https://www.youtube.com/watch?v=v2", StartOffset: 10, EndOffset: 19},
	}, resp.Sources)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "[1] (video v1)\none two three")
	assert.Contains(t, gen.prompts[0], "[3] (video v1)\nsix")
	assert.Contains(t, gen.prompts[0], "Question: how to sit?")
}

func TestAnswer_GenerationErrorKeepsResults(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("upstream 503")}
	resp, err := NewAnswerUseCase(gen, wordTokenizer{}, 100).Answer(context.Background(), "q", retrieved)
	require.Error(t, err)

	var ge *domain.GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, retrieved, ge.Results)
	assert.ErrorIs(t, err, domain.ErrGeneration)
	assert.Contains(t, err.Error(), "upstream 503")
	assert.Len(t, resp.Sources, 2)
	assert.Empty(t, resp.Answer)
}

func TestAnswer_ContextBudget(t *testing.T) {
	gen := &fakeGenerator{answer: "ok"}

	_, err := NewAnswerUseCase(gen, wordTokenizer{}, 4).Answer(context.Background(), "q", retrieved)
	require.NoError(t, err)
	assert.Contains(t, gen.prompts[0], "[1] (video v1)\none two three")
	assert.Contains(t, gen.prompts[0], "[2] (video v2)\nfour")
	assert.NotContains(t, gen.prompts[0], "five")
	assert.NotContains(t, gen.prompts[0], "six")

	// A best passage longer than the budget is cut, not dropped.
	_, err = NewAnswerUseCase(gen, wordTokenizer{}, 1).Answer(context.Background(), "q", retrieved)
	require.NoError(t, err)
	assert.Contains(t, gen.prompts[1], "[1] (video v1)\none")
	assert.NotContains(t, gen.prompts[1], "two")
	assert.NotContains(t, gen.prompts[1], "[2]")
}

func TestFitBudget_UsesWholeBudget(t *testing.T) {
	u := NewAnswerUseCase(nil, wordTokenizer{}, 5)
	passages := u.fitBudget(retrieved)
	require.Len(t, passages, 2)
	assert.Equal(t, "one two three", passages[0].Text)
	assert.Equal(t, "four five", passages[1].Text)

	u = NewAnswerUseCase(nil, wordTokenizer{}, 0)
	assert.Len(t, u.fitBudget(retrieved), 3, "zero budget means unlimited")
}

func TestAnswer_ExtractiveWithoutGenerator(t *testing.T) {
	resp, err := NewAnswerUseCase(nil, wordTokenizer{}, 100).Answer(context.Background(), "q", retrieved)
	require.NoError(t, err)

	assert.Equal(t, "extractive", resp.Provider)
	assert.Contains(t, resp.Answer, "[1] one two three (video v1)")
	assert.Contains(t, resp.Answer, "[2] four five (video v2)")
	assert.Len(t, resp.Sources, 2)
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short", excerpt("short", 10))

	long := excerpt("alpha beta gamma delta epsilon", 12)
	assert.True(t, strings.HasPrefix(long, "alpha"))
	assert.True(t, strings.HasSuffix(long, "..."))
	assert.NotContains(t, long, "epsilon")
}

type stubRetriever struct {
	results []domain.RetrievalResult
	err     error
	gotK    int
}

func (s *stubRetriever) Retrieve(_ context.Context, _ string, k int) ([]domain.RetrievalResult, error) {
	s.gotK = k
	return s.results, s.err
}

func TestAsk(t *testing.T) {
	r := &stubRetriever{results: retrieved[:2]}
	ask := NewAskUseCase(r, NewAnswerUseCase(&fakeGenerator{answer: "yes"}, wordTokenizer{}, 100))

	resp, err := ask.Ask(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, r.gotK)
	assert.Equal(t, 5, resp.TopK)
	assert.Equal(t, "yes", resp.Answer)
	assert.Len(t, resp.Sources, 2)

	r.err = domain.NewConfigError("top_k", "must be positive")
	resp, err = ask.Ask(context.Background(), "q", 0)
	assert.ErrorIs(t, err, domain.ErrConfig)
	assert.NotNil(t, resp.Sources)
}

func TestAnswer_PromptMatchesBudget(t *testing.T) {
	u := NewAnswerUseCase(nil, wordTokenizer{}, 4)
	prompt, err := u.Prompt("why?", retrieved)
	require.NoError(t, err)
	assert.Contains(t, prompt, "[1] (video v1)\none two three")
	assert.Contains(t, prompt, "[2] (video v2)\nfour")
	assert.NotContains(t, prompt, "four five")
	assert.Contains(t, prompt, "Question: why?")
	assert.NotEmpty(t, SystemPrompt())
}
