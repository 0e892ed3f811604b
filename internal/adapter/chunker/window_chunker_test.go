package chunker

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/4ngelGtz/chatbot-zen/internal/domain"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

func TestWindowChunkerBasic(t *testing.T) {
	c, err := NewWindowChunker(4, 1, 0)
	if err != nil {
		t.Fatal(err)
	}

	chunks, err := c.Chunk("vid1", words(10))
	if err != nil {
		t.Fatal(err)
	}

	// windows start at 0, 3, 6 -> [0..3] [3..6] [6..9]
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	want := []string{"w0 w1 w2 w3", "w3 w4 w5 w6", "w6 w7 w8 w9"}
	for i, chunk := range chunks {
		if chunk.Text != want[i] {
			t.Errorf("chunk %d: expected %q, got %q", i, want[i], chunk.Text)
		}
		if chunk.VideoID != "vid1" {
			t.Errorf("expected VideoID 'vid1', got '%s'", chunk.VideoID)
		}
		if chunk.ID == "" {
			t.Error("chunk has empty ID")
		}
		if chunk.EndOffset <= chunk.StartOffset {
			t.Errorf("EndOffset (%d) <= StartOffset (%d)", chunk.EndOffset, chunk.StartOffset)
		}
	}
}

func TestWindowChunkerOffsetsMatchText(t *testing.T) {
	c, _ := NewWindowChunker(5, 2, 0)
	text := "1\n00:00:00,000 --> 00:00:02,000\n[Music] welcome back <i>everyone</i>\n\n" +
		"2\n00:00:02,000 --> 00:00:05,000\ntoday we sit with the breath and notice it\n"

	chunks, err := c.Chunk("vid", text)
	if err != nil {
		t.Fatal(err)
	}
	norm := Normalize(text)
	if strings.Contains(norm, "Music") || strings.Contains(norm, "-->") {
		t.Fatalf("normalized text still has markup: %q", norm)
	}
	for _, chunk := range chunks {
		if norm[chunk.StartOffset:chunk.EndOffset] != chunk.Text {
			t.Errorf("offsets [%d,%d) do not address %q", chunk.StartOffset, chunk.EndOffset, chunk.Text)
		}
	}
}

func TestWindowChunkerDeterministicIDs(t *testing.T) {
	c, _ := NewWindowChunker(8, 3, 2)
	text := words(40)

	first, _ := c.Chunk("abc", text)
	second, _ := c.Chunk("abc", text)
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("chunk %d: id %s != %s", i, first[i].ID, second[i].ID)
		}
	}

	other, _ := c.Chunk("xyz", text)
	if other[0].ID == first[0].ID {
		t.Error("different videos must not share chunk ids")
	}
}

func TestWindowChunkerShortTailMerged(t *testing.T) {
	c, _ := NewWindowChunker(4, 0, 2)

	// windows [0..3] [4..7] [8] -> tail of 1 word merges into previous
	chunks, err := c.Chunk("v", words(9))
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[1].Text != "w4 w5 w6 w7 w8" {
		t.Errorf("tail not merged: %q", chunks[1].Text)
	}
}

func TestWindowChunkerTailKeptWhenLongEnough(t *testing.T) {
	c, _ := NewWindowChunker(4, 0, 2)

	chunks, _ := c.Chunk("v", words(10))
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[2].Text != "w8 w9" {
		t.Errorf("unexpected tail %q", chunks[2].Text)
	}
}

func TestWindowChunkerSingleShortText(t *testing.T) {
	c, _ := NewWindowChunker(10, 2, 5)

	chunks, _ := c.Chunk("v", "just three words")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "just three words" {
		t.Errorf("unexpected text %q", chunks[0].Text)
	}
}

func TestWindowChunkerEmpty(t *testing.T) {
	c, _ := NewWindowChunker(10, 2, 0)

	chunks, err := c.Chunk("v", "  [Music]  ")
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
}

func TestNewWindowChunkerRejectsBadOverlap(t *testing.T) {
	cases := []struct{ window, overlap int }{
		{10, 10},
		{10, 11},
		{0, 0},
		{10, -1},
	}
	for _, tc := range cases {
		_, err := NewWindowChunker(tc.window, tc.overlap, 0)
		if !errors.Is(err, domain.ErrConfig) {
			t.Errorf("window=%d overlap=%d: expected ConfigError, got %v", tc.window, tc.overlap, err)
		}
	}
}
