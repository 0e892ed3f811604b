package usecase

import (
	"fmt"
	"log/slog"

	"github.com/4ngelGtz/chatbot-zen/internal/adapter/fs"
	"github.com/4ngelGtz/chatbot-zen/internal/domain"
	"github.com/4ngelGtz/chatbot-zen/internal/port"
)

// CorpusResult reports a chunking pass over the manifest.
type CorpusResult struct {
	Chunks []domain.Chunk
	Videos int
	Errors []string
}

// CorpusUseCase turns committed transcripts into retrieval chunks.
type CorpusUseCase struct {
	store   port.TranscriptStore
	chunker port.Chunker
}

// NewCorpusUseCase creates a new corpus use case.
func NewCorpusUseCase(store port.TranscriptStore, chunker port.Chunker) *CorpusUseCase {
	return &CorpusUseCase{store: store, chunker: chunker}
}

// Build chunks every ok manifest entry in manifest order. Unreadable
// transcripts are reported and skipped.
func (u *CorpusUseCase) Build(entries []domain.IndexEntry) (*CorpusResult, error) {
	result := &CorpusResult{}
	seen := make(map[string]bool)
	done := make(map[string]bool)

	for _, e := range entries {
		if e.Status != domain.StatusOK || done[e.VideoID] {
			continue
		}
		done[e.VideoID] = true

		text, err := u.store.Read(e.StoragePath)
		if err != nil {
			slog.Warn("skipping unreadable transcript", slog.String("id", e.VideoID), slog.Any("error", err))
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", e.VideoID, err))
			continue
		}

		chunks, err := u.chunker.Chunk(e.VideoID, text)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", e.VideoID, err)
		}
		for _, c := range chunks {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			result.Chunks = append(result.Chunks, c)
		}
		result.Videos++
	}

	return result, nil
}

// WriteCorpus atomically writes chunks as JSONL.
func WriteCorpus(path string, chunks []domain.Chunk) error {
	return fs.WriteJSONL(path, chunks)
}

func ReadCorpus(path string) ([]domain.Chunk, error) {
	return fs.ReadJSONL[domain.Chunk](path)
}
