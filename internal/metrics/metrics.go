// Package metrics keeps process-wide operational counters.
package metrics

import (
	"fmt"
	"strings"
	"sync/atomic"
)

var counters struct {
	FetchAttempts atomic.Int64
	FetchOK       atomic.Int64
	FetchFailed   atomic.Int64
	RateLimited   atomic.Int64
	EmbedCalls    atomic.Int64
	EmbedErrors   atomic.Int64
	Queries       atomic.Int64
	CacheHits     atomic.Int64
	CacheMisses   atomic.Int64
	LLMCalls      atomic.Int64
	LLMErrors     atomic.Int64
	IndexReloads  atomic.Int64
	AskRequests   atomic.Int64
	AskErrors     atomic.Int64
}

var keys = []string{
	"fetch_attempts", "fetch_ok", "fetch_failed", "rate_limited",
	"embed_calls", "embed_errors",
	"queries", "cache_hits", "cache_misses",
	"llm_calls", "llm_errors",
	"index_reloads",
	"ask_requests", "ask_errors",
}

// Snapshot returns the current value of every counter.
func Snapshot() map[string]int64 {
	return map[string]int64{
		"fetch_attempts": counters.FetchAttempts.Load(),
		"fetch_ok":       counters.FetchOK.Load(),
		"fetch_failed":   counters.FetchFailed.Load(),
		"rate_limited":   counters.RateLimited.Load(),
		"embed_calls":    counters.EmbedCalls.Load(),
		"embed_errors":   counters.EmbedErrors.Load(),
		"queries":        counters.Queries.Load(),
		"cache_hits":     counters.CacheHits.Load(),
		"cache_misses":   counters.CacheMisses.Load(),
		"llm_calls":      counters.LLMCalls.Load(),
		"llm_errors":     counters.LLMErrors.Load(),
		"index_reloads":  counters.IndexReloads.Load(),
		"ask_requests":   counters.AskRequests.Load(),
		"ask_errors":     counters.AskErrors.Load(),
	}
}

// Format renders counters as "name value" lines for the HTTP endpoint.
func Format() string {
	m := Snapshot()
	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

func IncrFetchAttempt() { counters.FetchAttempts.Add(1) }
func IncrFetchOK()      { counters.FetchOK.Add(1) }
func IncrFetchFailed()  { counters.FetchFailed.Add(1) }
func IncrRateLimited()  { counters.RateLimited.Add(1) }
func IncrEmbedCall()    { counters.EmbedCalls.Add(1) }
func IncrEmbedError()   { counters.EmbedErrors.Add(1) }
func IncrQuery()        { counters.Queries.Add(1) }
func IncrCacheHit()     { counters.CacheHits.Add(1) }
func IncrCacheMiss()    { counters.CacheMisses.Add(1) }
func IncrLLMCall()      { counters.LLMCalls.Add(1) }
func IncrLLMError()     { counters.LLMErrors.Add(1) }
func IncrIndexReload()  { counters.IndexReloads.Add(1) }
func IncrAskRequest()   { counters.AskRequests.Add(1) }
func IncrAskError()     { counters.AskErrors.Add(1) }
