package enumerator

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	stealth "github.com/anatolykoptev/go-stealth"

	"github.com/4ngelGtz/chatbot-zen/internal/adapter/provider"
	"github.com/4ngelGtz/chatbot-zen/internal/domain"
)

var (
	videoIDRE = regexp.MustCompile(`"videoId":"([A-Za-z0-9_-]{11})"`)
	shortsRE  = regexp.MustCompile(`/shorts/([A-Za-z0-9_-]{11})`)
)

// Channel lists the videos on a channel's uploads tab by scraping the
// ytInitialData embedded in the page. Only the first page of uploads is
// visible this way; longer catalogues go through a curated video list.
type Channel struct {
	fetcher       provider.Fetcher
	maxVideos     int
	excludeShorts bool
}

func NewChannel(f provider.Fetcher, maxVideos int, excludeShorts bool) *Channel {
	return &Channel{fetcher: f, maxVideos: maxVideos, excludeShorts: excludeShorts}
}

func (c *Channel) Enumerate(ctx context.Context, sourceURL string) ([]domain.VideoRef, error) {
	if strings.TrimSpace(sourceURL) == "" {
		return nil, domain.NewConfigError("source.channel_url", "channel URL is empty")
	}
	pageURL := videosTab(sourceURL)

	headers := stealth.ChromeHeaders()
	headers["accept-language"] = "en-US,en;q=0.9"
	body, status, err := c.fetcher.Get(ctx, pageURL, headers)
	if err != nil {
		return nil, fmt.Errorf("%w: channel page: %v", domain.ErrTransientNetwork, err)
	}
	if status != 200 {
		return nil, fmt.Errorf("channel page %s: status %d", pageURL, status)
	}
	return c.parse(body), nil
}

// parse extracts video IDs in page order.
func (c *Channel) parse(body []byte) []domain.VideoRef {
	shorts := make(map[string]bool)
	for _, m := range shortsRE.FindAllSubmatch(body, -1) {
		shorts[string(m[1])] = true
	}

	var refs []domain.VideoRef
	for _, m := range videoIDRE.FindAllSubmatch(body, -1) {
		id := string(m[1])
		if c.excludeShorts && shorts[id] {
			continue
		}
		refs = append(refs, domain.VideoRef{ID: id, SourceURL: domain.WatchURL(id)})
	}
	refs = Dedup(refs)

	if c.maxVideos > 0 && len(refs) > c.maxVideos {
		refs = refs[:c.maxVideos]
	}
	return refs
}

// videosTab points a channel URL at its uploads listing.
func videosTab(u string) string {
	u = strings.TrimRight(strings.TrimSpace(u), "/")
	for _, tab := range []string{"/videos", "/streams", "/shorts"} {
		if strings.HasSuffix(u, tab) {
			return u
		}
	}
	if strings.Contains(u, "/playlist?") {
		return u
	}
	return u + "/videos"
}

// Dedup drops repeated IDs, keeping the first occurrence.
func Dedup(refs []domain.VideoRef) []domain.VideoRef {
	seen := make(map[string]bool, len(refs))
	out := make([]domain.VideoRef, 0, len(refs))
	for _, r := range refs {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	return out
}
