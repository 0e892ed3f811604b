package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/4ngelGtz/chatbot-zen/internal/adapter/store"
	"github.com/4ngelGtz/chatbot-zen/internal/domain"
)

type stubAsker struct {
	resp  domain.AnswerResponse
	err   error
	gotQ  string
	gotK  int
	calls int
}

func (s *stubAsker) Ask(_ context.Context, query string, k int) (domain.AnswerResponse, error) {
	s.calls++
	s.gotQ, s.gotK = query, k
	resp := s.resp
	resp.TopK = k
	return resp, s.err
}

type stubIndex struct{}

func (stubIndex) Meta() domain.IndexMeta {
	return domain.IndexMeta{Model: "m", Dimension: 3, Metric: domain.MetricCosine, Count: 42}
}
func (stubIndex) Generation() uint64 { return 7 }

var sources = []domain.Source{{VideoID: "v1", URL: domain.WatchURL("v1"), EndOffset: 10}}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, NewServer(&stubAsker{}, nil, 5, 0), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAsk_OK(t *testing.T) {
	asker := &stubAsker{resp: domain.AnswerResponse{Answer: "Breathe.", Sources: sources, Provider: "fake"}}
	s := NewServer(asker, stubIndex{}, 5, time.Second)

	rec := do(t, s, http.MethodPost, "/ask", `{"query":"how do I sit?","top_k":3}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.AnswerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Breathe.", resp.Answer)
	assert.Equal(t, 3, resp.TopK)
	assert.Equal(t, sources, resp.Sources)
	assert.Equal(t, "how do I sit?", asker.gotQ)
}

func TestAsk_DefaultTopK(t *testing.T) {
	asker := &stubAsker{}
	do(t, NewServer(asker, nil, 5, 0), http.MethodPost, "/ask", `{"query":"q"}`)
	assert.Equal(t, 5, asker.gotK)
}

func TestAsk_GenerationFailureKeepsSources(t *testing.T) {
	asker := &stubAsker{
		resp: domain.AnswerResponse{Sources: sources},
		err:  &domain.GenerationError{Err: context.DeadlineExceeded},
	}
	rec := do(t, NewServer(asker, nil, 5, 0), http.MethodPost, "/ask", `{"query":"q","top_k":2}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, sources, body.Sources)
	assert.Equal(t, 2, body.TopK)
	assert.Contains(t, body.Error, "generation")
}

func TestAsk_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"config", domain.NewConfigError("top_k", "must be positive"), http.StatusBadRequest},
		{"mismatch", &domain.ModelMismatchError{IndexModel: "a", QueryModel: "b"}, http.StatusInternalServerError},
		{"no index", domain.ErrIndexNotFound, http.StatusServiceUnavailable},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, NewServer(&stubAsker{err: tt.err}, nil, 5, 0), http.MethodPost, "/ask", `{"query":"q"}`)
			assert.Equal(t, tt.want, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
			assert.Empty(t, body.Sources)
		})
	}
}

func TestAsk_BadBody(t *testing.T) {
	asker := &stubAsker{}
	s := NewServer(asker, nil, 5, 0)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/ask", `{"query":`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/ask", `{"question":"q"}`).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, s, http.MethodGet, "/ask", "").Code)
	assert.Zero(t, asker.calls)
}

func TestStatsAndMetrics(t *testing.T) {
	s := NewServer(&stubAsker{}, stubIndex{}, 5, 0)

	rec := do(t, s, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 42, stats.Count)
	assert.Equal(t, uint64(7), stats.Generation)

	rec = do(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ask_requests ")

	rec = do(t, NewServer(&stubAsker{}, nil, 5, 0), http.MethodGet, "/stats", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStats_PendingIndex(t *testing.T) {
	holder := store.NewPendingHolder(filepath.Join(t.TempDir(), "vectors.db"))
	s := NewServer(&stubAsker{err: domain.ErrIndexNotFound}, holder, 5, 0)

	rec := do(t, s, http.MethodGet, "/stats", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), domain.ErrIndexNotFound.Error())

	rec = do(t, s, http.MethodPost, "/ask", `{"query":"q"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/health", "").Code)
}
