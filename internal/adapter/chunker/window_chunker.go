package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/4ngelGtz/chatbot-zen/internal/adapter/analyzer"
	"github.com/4ngelGtz/chatbot-zen/internal/adapter/subtitle"
	"github.com/4ngelGtz/chatbot-zen/internal/domain"
)

// WindowChunker splits a transcript into fixed-size overlapping windows of words.
type WindowChunker struct {
	window    int
	overlap   int
	minTokens int
}

func NewWindowChunker(window, overlap, minTokens int) (*WindowChunker, error) {
	switch {
	case window <= 0:
		return nil, domain.NewConfigError("chunk.window_tokens", "must be positive")
	case overlap < 0:
		return nil, domain.NewConfigError("chunk.overlap_tokens", "must not be negative")
	case overlap >= window:
		return nil, domain.NewConfigError("chunk.overlap_tokens",
			fmt.Sprintf("overlap %d must be smaller than window %d", overlap, window))
	}
	if minTokens < 0 {
		minTokens = 0
	}
	return &WindowChunker{window: window, overlap: overlap, minTokens: minTokens}, nil
}

// Normalize converts stored transcript text (SRT or plain) into the text that
// chunk offsets refer to.
func Normalize(text string) string {
	return analyzer.NormalizeTranscript(subtitle.PlainText(text))
}

// Chunk normalizes text and cuts it into windows. Offsets are byte offsets into
// the normalized text.
func (c *WindowChunker) Chunk(videoID, text string) ([]domain.Chunk, error) {
	norm := Normalize(text)
	words := wordSpans(norm)
	if len(words) == 0 {
		return nil, nil
	}

	type window struct{ first, last int } // word indexes, inclusive
	var windows []window

	step := c.window - c.overlap
	for start := 0; start < len(words); start += step {
		end := start + c.window
		if end > len(words) {
			end = len(words)
		}
		windows = append(windows, window{first: start, last: end - 1})
		if end == len(words) {
			break
		}
	}

	// A short tail is folded into the previous window.
	if n := len(windows); n > 1 {
		tail := windows[n-1]
		if tail.last-tail.first+1 < c.minTokens {
			windows[n-2].last = tail.last
			windows = windows[:n-1]
		}
	}

	chunks := make([]domain.Chunk, 0, len(windows))
	for _, w := range windows {
		start := words[w.first].start
		end := words[w.last].end
		chunks = append(chunks, domain.Chunk{
			ID:          generateChunkID(videoID, start, end),
			VideoID:     videoID,
			Text:        norm[start:end],
			StartOffset: start,
			EndOffset:   end,
		})
	}
	return chunks, nil
}

type span struct{ start, end int }

func wordSpans(s string) []span {
	var spans []span
	start := -1
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if unicode.IsSpace(r) {
			if start >= 0 {
				spans = append(spans, span{start, i})
				start = -1
			}
		} else if start < 0 {
			start = i
		}
		i += size
	}
	if start >= 0 {
		spans = append(spans, span{start, len(s)})
	}
	return spans
}

func generateChunkID(videoID string, start, end int) string {
	data := fmt.Sprintf("%s:%d-%d", videoID, start, end)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}
