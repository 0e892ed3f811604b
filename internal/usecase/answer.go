package usecase

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/anatolykoptev/go-kit/strutil"

	"github.com/4ngelGtz/chatbot-zen/internal/domain"
	"github.com/4ngelGtz/chatbot-zen/internal/port"
)

//go:embed templates/*.txt
var promptTemplates embed.FS

var (
	systemPrompt   = mustRead("templates/system_prompt.txt")
	answerTemplate = template.Must(template.ParseFS(promptTemplates, "templates/answer_prompt.txt"))
)

func mustRead(name string) string {
	data, err := promptTemplates.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return strings.TrimSpace(string(data))
}

// NoContextAnswer is returned when retrieval found nothing to ground an answer on.
const NoContextAnswer = "I couldn't find anything in the transcripts that answers this question."

const (
	providerNone       = "none"
	providerExtractive = "extractive"
)

// PromptPassage is one numbered excerpt in the answer prompt.
type PromptPassage struct {
	N       int
	VideoID string
	Text    string
}

// PromptData holds data for the answer prompt template.
type PromptData struct {
	Query    string
	Passages []PromptPassage
}

// AnswerUseCase turns retrieved passages into a grounded answer.
type AnswerUseCase struct {
	generator port.Generator
	tokenizer port.Tokenizer
	budget    int
}

// NewAnswerUseCase creates a new answer use case. With a nil generator the
// answer is assembled extractively from the top passages.
func NewAnswerUseCase(generator port.Generator, tokenizer port.Tokenizer, contextTokens int) *AnswerUseCase {
	return &AnswerUseCase{generator: generator, tokenizer: tokenizer, budget: contextTokens}
}

// Answer generates a response from results, which must be in retrieval order.
// When generation fails the returned response still carries the sources and
// the error is a *domain.GenerationError holding results.
func (u *AnswerUseCase) Answer(ctx context.Context, query string, results []domain.RetrievalResult) (domain.AnswerResponse, error) {
	resp := domain.AnswerResponse{
		Sources: Sources(results),
		TopK:    len(results),
	}
	if len(results) == 0 {
		resp.Answer = NoContextAnswer
		resp.Provider = providerNone
		return resp, nil
	}

	passages := u.fitBudget(results)

	if u.generator == nil {
		resp.Answer = extractive(passages)
		resp.Provider = providerExtractive
		return resp, nil
	}

	prompt, err := RenderPrompt(query, passages)
	if err != nil {
		return resp, err
	}

	resp.Provider = u.generator.ModelName()
	answer, err := u.generator.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return resp, &domain.GenerationError{Err: err, Results: results}
	}
	resp.Answer = answer
	return resp, nil
}

// Prompt renders the prompt Answer would send to the generator for results.
func (u *AnswerUseCase) Prompt(query string, results []domain.RetrievalResult) (string, error) {
	return RenderPrompt(query, u.fitBudget(results))
}

// SystemPrompt returns the fixed instruction sent ahead of every prompt.
func SystemPrompt() string { return systemPrompt }

// fitBudget keeps passages in order while they fit the context token budget.
// The passage that would overflow is cut at a word boundary to the remaining
// budget and nothing after it is kept.
func (u *AnswerUseCase) fitBudget(results []domain.RetrievalResult) []PromptPassage {
	var out []PromptPassage
	used := 0
	for i, r := range results {
		text := r.Text
		n := u.tokenizer.CountTokens(text)
		overflow := u.budget > 0 && used+n > u.budget
		if overflow {
			text = u.cutToTokens(text, n, u.budget-used)
			if text == "" {
				break
			}
		}
		used += n
		out = append(out, PromptPassage{N: i + 1, VideoID: r.VideoID, Text: text})
		if overflow {
			break
		}
	}
	return out
}

// cutToTokens shortens text, which counts n tokens, to at most remaining tokens.
func (u *AnswerUseCase) cutToTokens(text string, n, remaining int) string {
	if remaining <= 0 || n <= 0 {
		return ""
	}
	limit := utf8.RuneCountInString(text) * remaining / n
	for limit > 0 {
		cut := strings.TrimSpace(strutil.TruncateAtWord(text, limit))
		if cut != "" && u.tokenizer.CountTokens(cut) <= remaining {
			return cut
		}
		limit = min(limit-1, utf8.RuneCountInString(cut)-1)
	}
	return ""
}

// RenderPrompt renders the answer prompt template.
func RenderPrompt(query string, passages []PromptPassage) (string, error) {
	var buf bytes.Buffer
	if err := answerTemplate.Execute(&buf, PromptData{Query: query, Passages: passages}); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}

// Sources lists each video once, in first-appearance order, citing the
// offsets of its best-ranked passage.
func Sources(results []domain.RetrievalResult) []domain.Source {
	sources := []domain.Source{}
	seen := make(map[string]bool)
	for _, r := range results {
		if seen[r.VideoID] {
			continue
		}
		seen[r.VideoID] = true
		sources = append(sources, domain.Source{
			VideoID:     r.VideoID,
			URL:         domain.WatchURL(r.VideoID),
			StartOffset: r.StartOffset,
			EndOffset:   r.EndOffset,
		})
	}
	return sources
}

func extractive(passages []PromptPassage) string {
	var sb strings.Builder
	sb.WriteString("Relevant excerpts from the transcripts:\n")
	for _, p := range passages {
		fmt.Fprintf(&sb, "\n[%d] %s (video %s)", p.N, excerpt(p.Text, 400), p.VideoID)
	}
	return sb.String()
}

// excerpt cuts text at a word boundary near max runes.
func excerpt(text string, max int) string {
	cut := strutil.TruncateAtWord(text, max)
	if len(cut) < len(text) && !strings.HasSuffix(cut, "...") {
		cut += "..."
	}
	return cut
}

// AskUseCase retrieves passages and answers from them.
type AskUseCase struct {
	retriever port.Retriever
	answerer  *AnswerUseCase
}

// NewAskUseCase creates a new ask use case.
func NewAskUseCase(retriever port.Retriever, answerer *AnswerUseCase) *AskUseCase {
	return &AskUseCase{retriever: retriever, answerer: answerer}
}

func (u *AskUseCase) Ask(ctx context.Context, query string, k int) (domain.AnswerResponse, error) {
	results, err := u.retriever.Retrieve(ctx, query, k)
	if err != nil {
		return domain.AnswerResponse{TopK: k, Sources: []domain.Source{}}, err
	}
	resp, err := u.answerer.Answer(ctx, query, results)
	resp.TopK = k
	return resp, err
}
