// Package mcpserver exposes transcript search and answers as MCP tools.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anatolykoptev/go-mcpserver"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/4ngelGtz/chatbot-zen/internal/domain"
	"github.com/4ngelGtz/chatbot-zen/internal/metrics"
	"github.com/4ngelGtz/chatbot-zen/internal/port"
)

const name = "chatbot-zen"

// ErrMissingAsker is returned when no answer service is provided.
var ErrMissingAsker = errors.New("mcpserver: asker is required")

// Server registers the transcript tools on an MCP server.
type Server struct {
	asker     port.Asker
	retriever port.Retriever
	defaultK  int
	version   string
	server    *mcp.Server
}

// NewServer creates the MCP server. retriever may be nil, in which case only
// ask_transcripts is registered.
func NewServer(asker port.Asker, retriever port.Retriever, defaultK int, version string) (*Server, error) {
	if asker == nil {
		return nil, ErrMissingAsker
	}
	s := &Server{
		asker:     asker,
		retriever: retriever,
		defaultK:  defaultK,
		version:   version,
		server:    mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
	}
	s.registerTools()
	return s, nil
}

// Run serves over stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Serve serves streamable HTTP on port, with /metrics alongside.
func (s *Server) Serve(port string) error {
	return mcpserver.Run(s.server, mcpserver.Config{
		Name:         name,
		Version:      s.version,
		Port:         port,
		WriteTimeout: 300 * time.Second,
		Metrics:      metrics.Format,
	})
}

// AskInput is the input schema for ask_transcripts.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the talk transcripts"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"number of passages to retrieve (default from config)"`
}

// AskOutput mirrors the HTTP /ask response. Error is set when generation
// failed; sources are still reported then.
type AskOutput struct {
	Answer   string          `json:"answer"`
	Sources  []domain.Source `json:"sources"`
	Provider string          `json:"provider"`
	TopK     int             `json:"top_k"`
	Error    string          `json:"error,omitempty"`
}

// SearchInput is the input schema for search_transcripts.
type SearchInput struct {
	Query string `json:"query" jsonschema:"text to search the transcripts for"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"maximum number of passages (default from config)"`
}

// SearchOutput lists retrieved passages.
type SearchOutput struct {
	Results []PassageOutput `json:"results"`
	Count   int             `json:"count"`
}

// PassageOutput is one retrieved transcript passage.
type PassageOutput struct {
	VideoID string  `json:"video_id"`
	URL     string  `json:"url"`
	Score   float64 `json:"score"`
	Text    string  `json:"text"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask_transcripts",
		Description: "Answer a question using only passages retrieved from the indexed talk transcripts. Returns the answer, the cited videos with URLs, and the generator used.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, s.handleAsk)

	if s.retriever != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "search_transcripts",
			Description: "Find the transcript passages most similar to a query, ordered by similarity.",
			Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
		}, s.handleSearch)
	}
}

func (s *Server) topK(k int) int {
	if k <= 0 {
		return s.defaultK
	}
	return k
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	if input.Question == "" {
		return nil, AskOutput{}, fmt.Errorf("question is required")
	}
	metrics.IncrAskRequest()

	resp, err := s.asker.Ask(ctx, input.Question, s.topK(input.TopK))
	out := AskOutput{
		Answer:   resp.Answer,
		Sources:  resp.Sources,
		Provider: resp.Provider,
		TopK:     resp.TopK,
	}
	if err != nil {
		metrics.IncrAskError()
		var ge *domain.GenerationError
		if !errors.As(err, &ge) {
			return nil, AskOutput{}, err
		}
		out.Error = err.Error()
	}
	return nil, out, nil
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if input.Query == "" {
		return nil, SearchOutput{}, fmt.Errorf("query is required")
	}
	results, err := s.retriever.Retrieve(ctx, input.Query, s.topK(input.TopK))
	if err != nil {
		return nil, SearchOutput{}, err
	}

	out := SearchOutput{Results: make([]PassageOutput, len(results)), Count: len(results)}
	for i, r := range results {
		out.Results[i] = PassageOutput{
			VideoID: r.VideoID,
			URL:     domain.WatchURL(r.VideoID),
			Score:   r.Score,
			Text:    r.Text,
		}
	}
	return nil, out, nil
}
