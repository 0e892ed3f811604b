package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"

	"github.com/4ngelGtz/chatbot-zen/internal/adapter/subtitle"
	"github.com/4ngelGtz/chatbot-zen/internal/domain"
	"github.com/4ngelGtz/chatbot-zen/internal/port"
)

const (
	defaultBaseURL = "https://www.youtube.com"

	// playerResponseMarker marks the start of the player response JSON in watch page HTML.
	playerResponseMarker = "ytInitialPlayerResponse = "
)

type captionTrack struct {
	BaseURL        string `json:"baseUrl"`
	LanguageCode   string `json:"languageCode"`
	Kind           string `json:"kind"` // "asr" = auto-generated
	IsTranslatable bool   `json:"isTranslatable"`
}

func (t captionTrack) manual() bool { return t.Kind != "asr" }

type playerResponse struct {
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
}

type trackEntry struct {
	tracks  []captionTrack
	fetched time.Time
}

// YouTube scrapes caption track listings from watch pages and downloads
// timedtext captions. Track listings are cached briefly so the provider
// chain for one video costs a single page load.
type YouTube struct {
	fetcher Fetcher
	baseURL string
	ttl     time.Duration

	mu    sync.Mutex
	cache map[string]trackEntry
}

type Option func(*YouTube)

// WithBaseURL points the client at another host (used by tests).
func WithBaseURL(u string) Option {
	return func(y *YouTube) { y.baseURL = strings.TrimRight(u, "/") }
}

// WithTrackTTL sets how long a watch page's track listing is reused.
func WithTrackTTL(d time.Duration) Option {
	return func(y *YouTube) { y.ttl = d }
}

func NewYouTube(f Fetcher, opts ...Option) *YouTube {
	y := &YouTube{
		fetcher: f,
		baseURL: defaultBaseURL,
		ttl:     2 * time.Minute,
		cache:   make(map[string]trackEntry),
	}
	for _, o := range opts {
		o(y)
	}
	return y
}

func (y *YouTube) headers(id port.Identity) map[string]string {
	h := stealth.ChromeHeaders()
	h["accept"] = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	h["accept-language"] = "en-US,en;q=0.9"
	if id.UserAgent != "" {
		h["user-agent"] = id.UserAgent
	}
	if id.Cookie != "" {
		h["cookie"] = id.Cookie
	}
	return h
}

// tracks returns the caption tracks listed on the video's watch page.
func (y *YouTube) tracks(ctx context.Context, videoID string, id port.Identity) ([]captionTrack, error) {
	if tracks, ok := y.cached(videoID); ok {
		return tracks, nil
	}

	watchURL := y.baseURL + "/watch?v=" + url.QueryEscape(videoID)
	body, status, err := y.fetcher.Get(ctx, watchURL, y.headers(id))
	if err := classify(ctx, "watch page", status, err); err != nil {
		return nil, err
	}
	if isBotWall(body) {
		return nil, &domain.RateLimitError{Provider: "youtube"}
	}

	idx := bytes.Index(body, []byte(playerResponseMarker))
	if idx < 0 {
		return nil, errors.New("ytInitialPlayerResponse not found in watch page")
	}
	raw := extractJSON(body[idx+len(playerResponseMarker):])
	if raw == nil {
		return nil, errors.New("failed to extract ytInitialPlayerResponse JSON")
	}

	var pr playerResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	if ps := pr.PlayabilityStatus; ps != nil {
		switch {
		case ps.Status == "LOGIN_REQUIRED" && strings.Contains(strings.ToLower(ps.Reason), "bot"):
			return nil, &domain.RateLimitError{Provider: "youtube"}
		case ps.Status == "ERROR" || ps.Status == "UNPLAYABLE":
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, ps.Reason)
		}
	}

	var tracks []captionTrack
	if pr.Captions != nil {
		for _, t := range pr.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks {
			if !needsPoToken(t.BaseURL) {
				tracks = append(tracks, t)
			}
		}
	}

	y.mu.Lock()
	y.cache[videoID] = trackEntry{tracks: tracks, fetched: time.Now()}
	y.mu.Unlock()

	return tracks, nil
}

// cached returns a fresh track listing and evicts every expired one.
func (y *YouTube) cached(videoID string) ([]captionTrack, bool) {
	y.mu.Lock()
	defer y.mu.Unlock()
	for id, e := range y.cache {
		if time.Since(e.fetched) >= y.ttl {
			delete(y.cache, id)
		}
	}
	e, ok := y.cache[videoID]
	return e.tracks, ok
}

// timedText downloads a caption track and renders it as SRT.
func (y *YouTube) timedText(ctx context.Context, trackURL string, id port.Identity) (string, error) {
	if strings.HasPrefix(trackURL, "/") {
		trackURL = y.baseURL + trackURL
	}
	body, status, err := y.fetcher.Get(ctx, trackURL, y.headers(id))
	if err := classify(ctx, "timedtext", status, err); err != nil {
		return "", err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return "", fmt.Errorf("%w: empty caption track", domain.ErrNotFound)
	}

	cues, err := subtitle.ParseTimedText(body)
	if err != nil {
		return "", err
	}
	if len(cues) == 0 {
		return "", fmt.Errorf("%w: caption track has no cues", domain.ErrNotFound)
	}
	return subtitle.FormatSRT(cues), nil
}

// classify maps transport outcomes onto the fetch error taxonomy.
func classify(ctx context.Context, what string, status int, err error) error {
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s: %v", domain.ErrTransientNetwork, what, err)
	}
	switch {
	case status == 200:
		return nil
	case status == 429:
		return &domain.RateLimitError{Provider: "youtube"}
	case status == 404 || status == 410:
		return fmt.Errorf("%w: %s status %d", domain.ErrNotFound, what, status)
	case status >= 500:
		return fmt.Errorf("%w: %s status %d", domain.ErrTransientNetwork, what, status)
	default:
		return fmt.Errorf("%s status %d", what, status)
	}
}

func isBotWall(body []byte) bool {
	return bytes.Contains(body, []byte("www.google.com/sorry")) ||
		bytes.Contains(body, []byte("unusual traffic from your computer network"))
}

// needsPoToken reports whether a caption track URL requires a PoToken (browser-only).
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// extractJSON returns the balanced JSON object at the start of b.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	escaped := false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}
