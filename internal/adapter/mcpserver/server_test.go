package mcpserver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/4ngelGtz/chatbot-zen/internal/domain"
)

type mockAsker struct {
	resp domain.AnswerResponse
	err  error
	gotK int
}

func (m *mockAsker) Ask(_ context.Context, _ string, k int) (domain.AnswerResponse, error) {
	m.gotK = k
	resp := m.resp
	resp.TopK = k
	return resp, m.err
}

type mockRetriever struct {
	results []domain.RetrievalResult
	err     error
}

func (m *mockRetriever) Retrieve(context.Context, string, int) ([]domain.RetrievalResult, error) {
	return m.results, m.err
}

var sources = []domain.Source{{VideoID: "v1", URL: domain.WatchURL("v1")}}

func TestNewServer_RequiresAsker(t *testing.T) {
	_, err := NewServer(nil, nil, 5, "test")
	assert.ErrorIs(t, err, ErrMissingAsker)
}

func TestServer_handleAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("returns answer and sources", func(t *testing.T) {
		asker := &mockAsker{resp: domain.AnswerResponse{Answer: "Sit.", Sources: sources, Provider: "m"}}
		s, err := NewServer(asker, nil, 5, "test")
		require.NoError(t, err)

		_, out, err := s.handleAsk(ctx, nil, AskInput{Question: "how?", TopK: 3})
		require.NoError(t, err)
		assert.Equal(t, "Sit.", out.Answer)
		assert.Equal(t, sources, out.Sources)
		assert.Equal(t, 3, out.TopK)
		assert.Empty(t, out.Error)
	})

	t.Run("default top_k", func(t *testing.T) {
		asker := &mockAsker{}
		s, err := NewServer(asker, nil, 5, "test")
		require.NoError(t, err)

		_, _, err = s.handleAsk(ctx, nil, AskInput{Question: "how?"})
		require.NoError(t, err)
		assert.Equal(t, 5, asker.gotK)
	})

	t.Run("generation failure keeps sources", func(t *testing.T) {
		asker := &mockAsker{
			resp: domain.AnswerResponse{Sources: sources},
			err:  &domain.GenerationError{Err: errors.New("upstream down")},
		}
		s, err := NewServer(asker, nil, 5, "test")
		require.NoError(t, err)

		_, out, err := s.handleAsk(ctx, nil, AskInput{Question: "how?"})
		require.NoError(t, err)
		assert.Equal(t, sources, out.Sources)
		assert.Contains(t, out.Error, "upstream down")
	})

	t.Run("other errors fail the call", func(t *testing.T) {
		s, err := NewServer(&mockAsker{err: domain.ErrIndexNotFound}, nil, 5, "test")
		require.NoError(t, err)

		_, _, err = s.handleAsk(ctx, nil, AskInput{Question: "how?"})
		assert.ErrorIs(t, err, domain.ErrIndexNotFound)

		_, _, err = s.handleAsk(ctx, nil, AskInput{})
		assert.Error(t, err)
	})
}

func TestServer_handleSearch(t *testing.T) {
	r := &mockRetriever{results: []domain.RetrievalResult{
		{ChunkID: "c1", VideoID: "v1", Score: 0.9, Text: "breathe in"},
		{ChunkID: "c2", VideoID: "v2", Score: 0.5, Text: "breathe out"},
	}}
	s, err := NewServer(&mockAsker{}, r, 5, "test")
	require.NoError(t, err)

	_, out, err := s.handleSearch(context.Background(), nil, SearchInput{Query: "breath"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, "https://www.youtube.com/watch?v=v1", out.Results[0].URL)
	assert.Equal(t, "breathe out", out.Results[1].Text)

	r.err = errors.New("search failed")
	_, _, err = s.handleSearch(context.Background(), nil, SearchInput{Query: "breath"})
	assert.Error(t, err)
}
