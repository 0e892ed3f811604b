// Package httpapi serves the question-answering API over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/4ngelGtz/chatbot-zen/internal/domain"
	"github.com/4ngelGtz/chatbot-zen/internal/metrics"
	"github.com/4ngelGtz/chatbot-zen/internal/port"
)

const maxBodyBytes = 1 << 20

// IndexInfo reports what the server is answering from.
type IndexInfo interface {
	Meta() domain.IndexMeta

	// Generation is zero while no index has been published.
	Generation() uint64
}

// Server exposes /health, /ask, /stats and /metrics.
type Server struct {
	asker    port.Asker
	index    IndexInfo
	defaultK int
	timeout  time.Duration
}

// NewServer creates the API. index may be nil; timeout bounds each /ask call.
func NewServer(asker port.Asker, index IndexInfo, defaultK int, timeout time.Duration) *Server {
	return &Server{asker: asker, index: index, defaultK: defaultK, timeout: timeout}
}

// AskRequest is the body of POST /ask. A missing top_k uses the server default.
type AskRequest struct {
	Query string `json:"query"`
	TopK  *int   `json:"top_k,omitempty"`
}

// ErrorResponse is returned for failed requests. Sources are kept when
// retrieval succeeded but generation did not.
type ErrorResponse struct {
	Error   string          `json:"error"`
	Sources []domain.Source `json:"sources,omitempty"`
	TopK    int             `json:"top_k,omitempty"`
}

// StatsResponse describes the loaded index.
type StatsResponse struct {
	Model      string    `json:"model"`
	Dimension  int       `json:"dimension"`
	Metric     string    `json:"metric"`
	Count      int       `json:"count"`
	BuiltAt    time.Time `json:"built_at"`
	Generation uint64    `json:"generation"`
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /ask", s.handleAsk)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	return mux
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	slog.Info("query api listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	if s.index == nil || s.index.Generation() == 0 {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: domain.ErrIndexNotFound.Error()})
		return
	}
	m := s.index.Meta()
	writeJSON(w, http.StatusOK, StatsResponse{
		Model:      m.Model,
		Dimension:  m.Dimension,
		Metric:     m.Metric,
		Count:      m.Count,
		BuiltAt:    m.BuiltAt,
		Generation: s.index.Generation(),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, metrics.Format()) //nolint:errcheck
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	metrics.IncrAskRequest()

	var req AskRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		metrics.IncrAskError()
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	k := s.defaultK
	if req.TopK != nil {
		k = *req.TopK
	}

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp, err := s.asker.Ask(ctx, req.Query, k)
	if err != nil {
		metrics.IncrAskError()
		status := statusOf(err)
		slog.Warn("ask failed", slog.Int("status", status), slog.Any("error", err))
		body := ErrorResponse{Error: err.Error()}
		var ge *domain.GenerationError
		if errors.As(err, &ge) {
			body.Sources = resp.Sources
			body.TopK = resp.TopK
		}
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// statusOf maps the error taxonomy onto HTTP status codes.
func statusOf(err error) int {
	var ge *domain.GenerationError
	switch {
	case errors.As(err, &ge):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrConfig):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrIndexNotFound):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response failed", slog.Any("error", err))
	}
}
