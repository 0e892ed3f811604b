package usecase

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/4ngelGtz/chatbot-zen/internal/adapter/fs"
	"github.com/4ngelGtz/chatbot-zen/internal/domain"
	"github.com/4ngelGtz/chatbot-zen/internal/port"
)

var longSRT = "1\n00:00:00,000 --> 00:00:02,000\n" + strings.Repeat("sit with the breath ", 10) + "\n"

func notFound() outcome    { return outcome{err: domain.ErrNotFound} }
func rateLimited() outcome { return outcome{err: &domain.RateLimitError{Provider: "test"}} }
func served(text string) outcome {
	return outcome{text: text}
}

func newFetch(t *testing.T, ledger *memLedger, providers ...port.TranscriptProvider) (*FetchUseCase, *fs.TranscriptStore) {
	t.Helper()
	store := fs.NewTranscriptStore(t.TempDir())
	var l port.AttemptLedger
	if ledger != nil {
		l = ledger
	}
	u := NewFetchUseCase(providers, &rotator{names: []string{"chrome", "safari"}}, store, l,
		FetchOptions{Policy: fastPolicy, MinBytes: 100})
	return u, store
}

func TestFetch_FallsBackAndRetriesRateLimits(t *testing.T) {
	ledger := &memLedger{}
	enUS := &scriptedProvider{name: "native:en-US", lang: "en-US", script: []outcome{notFound()}}
	en := &scriptedProvider{name: "native:en", lang: "en", script: []outcome{rateLimited(), rateLimited(), served(longSRT)}}
	u, store := newFetch(t, ledger, enUS, en)

	rec, err := u.Fetch(context.Background(), domain.VideoRef{ID: "vid1"})
	require.NoError(t, err)

	assert.Equal(t, "en", rec.Language)
	assert.Equal(t, "native:en", rec.Provider)
	assert.Equal(t, store.Path("vid1", "en"), rec.StoragePath)
	assert.Equal(t, 1, enUS.calls, "not found is never retried")
	assert.Equal(t, 3, en.calls)
	assert.Equal(t, []string{"safari", "chrome", "safari"}, en.identities, "identity rotates between attempts")

	data, err := os.ReadFile(rec.StoragePath)
	require.NoError(t, err)
	assert.Equal(t, longSRT, string(data))

	assert.Equal(t, []domain.AttemptOutcome{
		domain.OutcomeNotFound, domain.OutcomeRateLimited, domain.OutcomeRateLimited, domain.OutcomeOK,
	}, ledger.outcomes("vid1"))
}

func TestFetch_ExhaustionIsFetchFailure(t *testing.T) {
	ledger := &memLedger{}
	a := &scriptedProvider{name: "native:en-US", lang: "en-US", script: []outcome{notFound()}}
	b := &scriptedProvider{name: "translated:en", lang: "en", script: []outcome{rateLimited()}}
	u, store := newFetch(t, ledger, a, b)

	_, err := u.Fetch(context.Background(), domain.VideoRef{ID: "gone"})
	require.Error(t, err)

	var ff *domain.FetchFailure
	require.True(t, errors.As(err, &ff))
	assert.Equal(t, "gone", ff.VideoID)
	assert.Equal(t, 1+fastPolicy.MaxAttempts, ff.Attempts)
	assert.Contains(t, ff.Reason, "translated:en")
	assert.ErrorIs(t, err, domain.ErrProviderExhausted)
	assert.False(t, store.Has("gone"))

	exhausted, _ := ledger.Exhausted(context.Background())
	assert.Contains(t, exhausted, "gone")
}

func TestFetch_ShortTranscriptCountsAsNotFound(t *testing.T) {
	a := &scriptedProvider{name: "native:en-US", lang: "en-US", script: []outcome{served("tiny")}}
	b := &scriptedProvider{name: "native:en", lang: "en", script: []outcome{served(longSRT)}}
	u, _ := newFetch(t, &memLedger{}, a, b)

	rec, err := u.Fetch(context.Background(), domain.VideoRef{ID: "v"})
	require.NoError(t, err)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, "en", rec.Language)
}

func TestFetch_UnknownErrorMovesOnWithoutRetry(t *testing.T) {
	a := &scriptedProvider{name: "native:en-US", lang: "en-US", script: []outcome{{err: errors.New("parse failure")}}}
	b := &scriptedProvider{name: "native:en", lang: "en", script: []outcome{served(longSRT)}}
	ledger := &memLedger{}
	u, _ := newFetch(t, ledger, a, b)

	_, err := u.Fetch(context.Background(), domain.VideoRef{ID: "v"})
	require.NoError(t, err)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, domain.OutcomeError, ledger.outcomes("v")[0])
}

func TestFetch_TransientRetriedOnSameProvider(t *testing.T) {
	a := &scriptedProvider{name: "native:en-US", lang: "en-US", script: []outcome{
		{err: domain.ErrTransientNetwork}, served(longSRT),
	}}
	u, _ := newFetch(t, nil, a)

	rec, err := u.Fetch(context.Background(), domain.VideoRef{ID: "v"})
	require.NoError(t, err)
	assert.Equal(t, 2, a.calls)
	assert.Equal(t, "en-US", rec.Language)
}

func TestFetch_RefetchReplacesOtherLanguage(t *testing.T) {
	a := &scriptedProvider{name: "native:en-US", lang: "en-US", script: []outcome{served(longSRT)}}
	u, store := newFetch(t, nil, a)
	_, err := store.Replace("v", "en", longSRT)
	require.NoError(t, err)

	_, err = u.Fetch(context.Background(), domain.VideoRef{ID: "v"})
	require.NoError(t, err)

	list, err := store.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "en-US", list[0].Language)
}

func TestFetch_CancelledContext(t *testing.T) {
	a := &scriptedProvider{name: "native:en-US", lang: "en-US", script: []outcome{rateLimited()}}
	u, _ := newFetch(t, nil, a)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := u.Fetch(ctx, domain.VideoRef{ID: "v"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIngest_IsolatesFailuresAndSkipsExisting(t *testing.T) {
	good := &scriptedProvider{name: "native:en", lang: "en", script: []outcome{served(longSRT)}}
	u, store := newFetch(t, &memLedger{}, &rejectingProvider{reject: "bad", inner: good})
	_, err := store.Replace("have", "en", longSRT)
	require.NoError(t, err)

	var mu sync.Mutex
	var seen []string
	ingest := NewIngestUseCase(u, store, IngestOptions{
		Workers:      2,
		SkipExisting: true,
		OnVideo: func(ref domain.VideoRef, _ domain.EntryStatus, _ error) {
			mu.Lock()
			seen = append(seen, ref.ID)
			mu.Unlock()
		},
	})

	refs := []domain.VideoRef{{ID: "a"}, {ID: "bad"}, {ID: "have"}, {ID: "a"}, {ID: "c"}}
	summary, err := ingest.Run(context.Background(), refs)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.OK)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 4, summary.Total())
	assert.NotEmpty(t, summary.RunID)
	require.Len(t, summary.Errors, 1)
	assert.True(t, strings.HasPrefix(summary.Errors[0], "bad:"))
	assert.Len(t, seen, 4)
	assert.True(t, store.Has("c"))
	assert.False(t, store.Has("bad"))
}

func TestIngest_Cancelled(t *testing.T) {
	good := &scriptedProvider{name: "native:en", lang: "en", script: []outcome{served(longSRT)}}
	u, store := newFetch(t, nil, good)
	ingest := NewIngestUseCase(u, store, IngestOptions{Workers: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ingest.Run(ctx, []domain.VideoRef{{ID: "a"}, {ID: "b"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIngest_ExhaustedVideoIsFailedInManifest(t *testing.T) {
	ledger := &memLedger{}
	good := &scriptedProvider{name: "native:en", lang: "en", script: []outcome{served(longSRT)}}
	u, store := newFetch(t, ledger, &rejectingProvider{reject: "gone", inner: good})

	var mu sync.Mutex
	errs := make(map[string]error)
	ingest := NewIngestUseCase(u, store, IngestOptions{
		Workers: 2,
		OnVideo: func(ref domain.VideoRef, _ domain.EntryStatus, err error) {
			mu.Lock()
			errs[ref.ID] = err
			mu.Unlock()
		},
	})

	refs := []domain.VideoRef{{ID: "a"}, {ID: "gone"}}
	summary, err := ingest.Run(context.Background(), refs)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.OK)
	assert.Equal(t, 1, summary.Failed)
	assert.ErrorIs(t, errs["gone"], domain.ErrProviderExhausted)

	entries, err := NewManifestBuilder(store, ledger, nil, 100).Build(context.Background(), refs)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.StatusOK, entries[0].Status)
	assert.Equal(t, "gone", entries[1].VideoID)
	assert.Equal(t, domain.StatusFailed, entries[1].Status)
	assert.Contains(t, entries[1].Reason, "native:en")
}

func TestIngest_TimedOutVideoIsFailedInManifest(t *testing.T) {
	ledger := &memLedger{}
	u, store := newFetch(t, ledger, stallingProvider{})
	ingest := NewIngestUseCase(u, store, IngestOptions{Workers: 1, Timeout: 20 * time.Millisecond})

	refs := []domain.VideoRef{{ID: "slow"}}
	summary, err := ingest.Run(context.Background(), refs)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)

	entries, err := NewManifestBuilder(store, ledger, nil, 100).Build(context.Background(), refs)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.StatusFailed, entries[0].Status, "manifest agrees with the batch summary")
	assert.Contains(t, entries[0].Reason, "timed out")
}
