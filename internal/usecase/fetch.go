package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/4ngelGtz/chatbot-zen/internal/adapter/retry"
	"github.com/4ngelGtz/chatbot-zen/internal/domain"
	"github.com/4ngelGtz/chatbot-zen/internal/metrics"
	"github.com/4ngelGtz/chatbot-zen/internal/port"
)

// FetchOptions tunes the transcript fetcher.
type FetchOptions struct {
	Policy        retry.Policy
	MinBytes      int
	RatePerSecond float64 // 0 disables pacing
}

// FetchUseCase obtains one transcript by walking the provider chain.
type FetchUseCase struct {
	providers  []port.TranscriptProvider
	identities port.IdentityRotator
	store      port.TranscriptStore
	ledger     port.AttemptLedger
	limiter    *rate.Limiter
	policy     retry.Policy
	minBytes   int
}

// NewFetchUseCase creates a new fetch use case. ledger may be nil.
func NewFetchUseCase(
	providers []port.TranscriptProvider,
	identities port.IdentityRotator,
	store port.TranscriptStore,
	ledger port.AttemptLedger,
	opts FetchOptions,
) *FetchUseCase {
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	return &FetchUseCase{
		providers:  providers,
		identities: identities,
		store:      store,
		ledger:     ledger,
		limiter:    rate.NewLimiter(limit, 1),
		policy:     opts.Policy,
		minBytes:   opts.MinBytes,
	}
}

// Fetch retrieves and stores the transcript for ref.
func (u *FetchUseCase) Fetch(ctx context.Context, ref domain.VideoRef) (domain.TranscriptRecord, error) {
	return u.FetchRun(ctx, "", ref)
}

// FetchRun is Fetch with the ledger rows stamped with runID.
func (u *FetchUseCase) FetchRun(ctx context.Context, runID string, ref domain.VideoRef) (domain.TranscriptRecord, error) {
	if len(u.providers) == 0 {
		return domain.TranscriptRecord{}, &domain.FetchFailure{VideoID: ref.ID, Reason: "no transcript providers configured"}
	}

	attempts := 0
	lastReason := ""
	for _, p := range u.providers {
		text, calls, err := retry.Do(ctx, u.policy, func(attempt int) (string, error) {
			if err := u.limiter.Wait(ctx); err != nil {
				return "", fmt.Errorf("rate limiter: %w", err)
			}
			id := u.identities.Next()
			metrics.IncrFetchAttempt()
			text, err := p.TryFetch(ctx, ref, id)
			if err == nil && len(text) < u.minBytes {
				err = fmt.Errorf("%w: transcript has %d bytes", domain.ErrNotFound, len(text))
			}
			if ctx.Err() == nil {
				u.record(ctx, runID, ref.ID, p, outcomeOf(err), err)
			}
			if errors.Is(err, domain.ErrRateLimited) {
				metrics.IncrRateLimited()
			}
			if err != nil && domain.Retryable(err) {
				slog.Debug("transcript attempt failed",
					slog.String("id", ref.ID), slog.String("provider", p.Name()),
					slog.String("identity", id.Name), slog.Int("attempt", attempt+1), slog.Any("error", err))
			}
			return text, err
		})
		attempts += calls

		if err == nil {
			path, werr := u.store.Replace(ref.ID, p.Language(), text)
			if werr != nil {
				return domain.TranscriptRecord{}, fmt.Errorf("store transcript %s: %w", ref.ID, werr)
			}
			metrics.IncrFetchOK()
			return domain.TranscriptRecord{
				VideoID:     ref.ID,
				Language:    p.Language(),
				Text:        text,
				StoragePath: path,
				Provider:    p.Name(),
				FetchedAt:   time.Now().UTC(),
			}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.TranscriptRecord{}, ctxErr
		}

		lastReason = fmt.Sprintf("%s: %v", p.Name(), err)
		if !errors.Is(err, domain.ErrNotFound) {
			slog.Warn("transcript provider failed, trying next",
				slog.String("id", ref.ID), slog.String("provider", p.Name()), slog.Any("error", err))
		}
	}

	metrics.IncrFetchFailed()
	failure := &domain.FetchFailure{VideoID: ref.ID, Reason: lastReason, Attempts: attempts}
	u.recordAttempt(ctx, domain.Attempt{
		RunID:   runID,
		VideoID: ref.ID,
		Outcome: domain.OutcomeExhausted,
		Reason:  lastReason,
	})
	return domain.TranscriptRecord{}, failure
}

func (u *FetchUseCase) record(ctx context.Context, runID, videoID string, p port.TranscriptProvider, outcome domain.AttemptOutcome, err error) {
	a := domain.Attempt{
		RunID:    runID,
		VideoID:  videoID,
		Provider: p.Name(),
		Language: p.Language(),
		Outcome:  outcome,
	}
	if err != nil {
		a.Reason = err.Error()
	}
	u.recordAttempt(ctx, a)
}

// recordAttempt logs ledger failures; the ledger never fails a fetch.
func (u *FetchUseCase) recordAttempt(ctx context.Context, a domain.Attempt) {
	if u.ledger == nil {
		return
	}
	if err := u.ledger.Record(ctx, a); err != nil {
		slog.Warn("ledger write failed", slog.String("id", a.VideoID), slog.Any("error", err))
	}
}

func outcomeOf(err error) domain.AttemptOutcome {
	switch {
	case err == nil:
		return domain.OutcomeOK
	case errors.Is(err, domain.ErrRateLimited):
		return domain.OutcomeRateLimited
	case errors.Is(err, domain.ErrNotFound):
		return domain.OutcomeNotFound
	case errors.Is(err, domain.ErrTransientNetwork):
		return domain.OutcomeTransient
	default:
		return domain.OutcomeError
	}
}
