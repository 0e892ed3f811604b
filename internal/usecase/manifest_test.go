package usecase

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/4ngelGtz/chatbot-zen/internal/adapter/chunker"
	"github.com/4ngelGtz/chatbot-zen/internal/adapter/fs"
	"github.com/4ngelGtz/chatbot-zen/internal/domain"
)

func seedStore(t *testing.T) *fs.TranscriptStore {
	t.Helper()
	store := fs.NewTranscriptStore(t.TempDir())
	for _, w := range []struct{ id, lang, text string }{
		{"a", "en", longSRT},
		{"a", "en-US", longSRT},
		{"z", "en", longSRT},
		{"d", "de", longSRT},
		{"short", "en", "tiny"},
	} {
		require.NoError(t, fs.WriteFileAtomic(store.Path(w.id, w.lang), []byte(w.text)))
	}
	return store
}

func TestManifest_Build(t *testing.T) {
	store := seedStore(t)
	ledger := &memLedger{}
	require.NoError(t, ledger.Record(context.Background(), domain.Attempt{
		VideoID: "b", Outcome: domain.OutcomeExhausted, Reason: "no captions",
	}))

	b := NewManifestBuilder(store, ledger, nil, 100)
	refs := []domain.VideoRef{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "a"}}
	entries, err := b.Build(context.Background(), refs)
	require.NoError(t, err)

	require.Len(t, entries, 5)
	assert.Equal(t, domain.IndexEntry{
		VideoID: "a", Language: "en-US", StoragePath: store.Path("a", "en-US"), Status: domain.StatusOK,
	}, entries[0])
	assert.Equal(t, domain.IndexEntry{VideoID: "b", Status: domain.StatusFailed, Reason: "no captions"}, entries[1])
	assert.Equal(t, domain.IndexEntry{VideoID: "c", Status: domain.StatusSkipped}, entries[2])

	// Store-only videos follow in ID order; the short transcript never appears.
	assert.Equal(t, "d", entries[3].VideoID)
	assert.Equal(t, "de", entries[3].Language)
	assert.Equal(t, "z", entries[4].VideoID)

	ok, failed, skipped := ManifestCounts(entries)
	assert.Equal(t, [3]int{3, 1, 1}, [3]int{ok, failed, skipped})
}

func TestManifest_LanguagePreference(t *testing.T) {
	store := seedStore(t)
	b := NewManifestBuilder(store, nil, []string{"en"}, 100)

	entries, err := b.Build(context.Background(), []domain.VideoRef{{ID: "a"}})
	require.NoError(t, err)
	assert.Equal(t, "en", entries[0].Language)
}

func TestManifest_WithoutLedgerMissingIsSkipped(t *testing.T) {
	b := NewManifestBuilder(fs.NewTranscriptStore(t.TempDir()), nil, nil, 100)

	entries, err := b.Build(context.Background(), []domain.VideoRef{{ID: "x"}})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.StatusSkipped, entries[0].Status)
}

func TestManifest_DeterministicOutput(t *testing.T) {
	store := seedStore(t)
	b := NewManifestBuilder(store, nil, nil, 100)
	refs := []domain.VideoRef{{ID: "c"}, {ID: "a"}}
	dir := t.TempDir()

	var files [][]byte
	for _, name := range []string{"one.jsonl", "two.jsonl"} {
		entries, err := b.Build(context.Background(), refs)
		require.NoError(t, err)
		path := filepath.Join(dir, name)
		require.NoError(t, WriteManifest(path, entries))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		files = append(files, data)
	}
	assert.Equal(t, files[0], files[1])

	back, err := ReadManifest(filepath.Join(dir, "one.jsonl"))
	require.NoError(t, err)
	assert.Len(t, back, 4)
}

func TestReadManifest_Missing(t *testing.T) {
	entries, err := ReadManifest(filepath.Join(t.TempDir(), "nope.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCorpus_BuildSkipsUnreadable(t *testing.T) {
	store := seedStore(t)
	ch, err := chunker.NewWindowChunker(4, 1, 1)
	require.NoError(t, err)

	entries := []domain.IndexEntry{
		{VideoID: "a", StoragePath: store.Path("a", "en"), Status: domain.StatusOK},
		{VideoID: "gone", StoragePath: store.Path("gone", "en"), Status: domain.StatusOK},
		{VideoID: "b", Status: domain.StatusFailed},
		{VideoID: "a", StoragePath: store.Path("a", "en"), Status: domain.StatusOK},
	}
	result, err := NewCorpusUseCase(store, ch).Build(entries)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Videos)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "gone")
	require.NotEmpty(t, result.Chunks)

	ids := make(map[string]bool)
	for _, c := range result.Chunks {
		assert.Equal(t, "a", c.VideoID)
		assert.False(t, ids[c.ID], "duplicate chunk %s", c.ID)
		ids[c.ID] = true
	}

	path := filepath.Join(t.TempDir(), "corpus.jsonl")
	require.NoError(t, WriteCorpus(path, result.Chunks))
	back, err := ReadCorpus(path)
	require.NoError(t, err)
	assert.Equal(t, result.Chunks, back)
}
