package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/4ngelGtz/chatbot-zen/internal/adapter/fs"
	"github.com/4ngelGtz/chatbot-zen/internal/domain"
	"github.com/4ngelGtz/chatbot-zen/internal/port"
)

// DefaultLanguagePreference orders languages when one video has several transcripts.
var DefaultLanguagePreference = []string{"en-US", "en"}

// ManifestBuilder derives the transcript manifest from the content store and
// the fetch ledger. It makes no network calls and never writes transcripts.
type ManifestBuilder struct {
	store     port.TranscriptStore
	ledger    port.AttemptLedger
	languages []string
	minBytes  int
}

// NewManifestBuilder creates a manifest builder. ledger may be nil, in which
// case every missing video is reported as skipped.
func NewManifestBuilder(store port.TranscriptStore, ledger port.AttemptLedger, languages []string, minBytes int) *ManifestBuilder {
	if len(languages) == 0 {
		languages = DefaultLanguagePreference
	}
	return &ManifestBuilder{store: store, ledger: ledger, languages: languages, minBytes: minBytes}
}

// Build returns one entry per video: enumerated refs first in their order,
// then videos found only in the store, sorted by ID.
func (b *ManifestBuilder) Build(ctx context.Context, refs []domain.VideoRef) ([]domain.IndexEntry, error) {
	stored, err := b.store.List()
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	best := b.pickTranscripts(stored)

	exhausted := map[string]string{}
	if b.ledger != nil {
		if exhausted, err = b.ledger.Exhausted(ctx); err != nil {
			return nil, fmt.Errorf("read ledger: %w", err)
		}
	}

	entries := make([]domain.IndexEntry, 0, len(refs)+len(best))
	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if seen[ref.ID] {
			continue
		}
		seen[ref.ID] = true

		if t, ok := best[ref.ID]; ok {
			entries = append(entries, okEntry(t))
			continue
		}
		if reason, failed := exhausted[ref.ID]; failed {
			entries = append(entries, domain.IndexEntry{VideoID: ref.ID, Status: domain.StatusFailed, Reason: reason})
			continue
		}
		entries = append(entries, domain.IndexEntry{VideoID: ref.ID, Status: domain.StatusSkipped})
	}

	var extra []string
	for id := range best {
		if !seen[id] {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	for _, id := range extra {
		entries = append(entries, okEntry(best[id]))
	}

	return entries, nil
}

// pickTranscripts keeps one usable transcript per video by language preference,
// falling back to the lexically smallest language.
func (b *ManifestBuilder) pickTranscripts(stored []domain.StoredTranscript) map[string]domain.StoredTranscript {
	rank := func(lang string) int {
		for i, l := range b.languages {
			if l == lang {
				return i
			}
		}
		return len(b.languages)
	}

	best := make(map[string]domain.StoredTranscript)
	for _, t := range stored {
		if t.Size < int64(b.minBytes) {
			continue
		}
		cur, ok := best[t.VideoID]
		if !ok {
			best[t.VideoID] = t
			continue
		}
		r, cr := rank(t.Language), rank(cur.Language)
		if r < cr || (r == cr && t.Language < cur.Language) {
			best[t.VideoID] = t
		}
	}
	return best
}

func okEntry(t domain.StoredTranscript) domain.IndexEntry {
	return domain.IndexEntry{
		VideoID:     t.VideoID,
		StoragePath: t.Path,
		Language:    t.Language,
		Status:      domain.StatusOK,
	}
}

// WriteManifest atomically writes entries as JSONL.
func WriteManifest(path string, entries []domain.IndexEntry) error {
	return fs.WriteJSONL(path, entries)
}

// ReadManifest loads a manifest; a missing file is an empty manifest.
func ReadManifest(path string) ([]domain.IndexEntry, error) {
	entries, err := fs.ReadJSONL[domain.IndexEntry](path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return entries, err
}

// ManifestCounts tallies entries by status.
func ManifestCounts(entries []domain.IndexEntry) (ok, failed, skipped int) {
	for _, e := range entries {
		switch e.Status {
		case domain.StatusOK:
			ok++
		case domain.StatusFailed:
			failed++
		default:
			skipped++
		}
	}
	return ok, failed, skipped
}
