package provider

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	stealth "github.com/anatolykoptev/go-stealth"

	"github.com/4ngelGtz/chatbot-zen/internal/port"
)

var profileAgents = map[string]string{
	"chrome":  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"edge":    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36 Edg/131.0.0.0",
	"safari":  "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.1 Safari/605.1.15",
	"firefox": "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
}

// IdentityPool rotates client identities round-robin. It is safe for
// concurrent use.
type IdentityPool struct {
	ids  []port.Identity
	next atomic.Uint64
}

// NewIdentityPool builds one identity per profile name. Profiles may carry a
// browser profile suffix ("chrome:Default"); unknown names get a random agent.
// The cookie header, if any, is shared by all identities.
func NewIdentityPool(profiles []string, cookie string) *IdentityPool {
	p := &IdentityPool{}
	seen := make(map[string]bool)
	for _, name := range profiles {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		browser, _, _ := strings.Cut(strings.ToLower(name), ":")
		ua, ok := profileAgents[browser]
		if !ok {
			ua = stealth.RandomUserAgent()
		}
		p.ids = append(p.ids, port.Identity{Name: name, UserAgent: ua, Cookie: cookie})
	}
	if len(p.ids) == 0 {
		p.ids = []port.Identity{{Name: "default", UserAgent: stealth.RandomUserAgent(), Cookie: cookie}}
	}
	return p
}

func (p *IdentityPool) Next() port.Identity {
	n := p.next.Add(1) - 1
	return p.ids[n%uint64(len(p.ids))]
}

func (p *IdentityPool) Len() int {
	return len(p.ids)
}

// LoadCookieHeader reads a Netscape cookies.txt and returns a Cookie header
// value with the youtube.com and google.com cookies.
func LoadCookieHeader(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open cookies: %w", err)
	}
	defer f.Close()

	var pairs []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		line = strings.TrimPrefix(line, "#HttpOnly_")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 7 {
			continue
		}
		domain := strings.TrimPrefix(fields[0], ".")
		if !strings.HasSuffix(domain, "youtube.com") && !strings.HasSuffix(domain, "google.com") {
			continue
		}
		pairs = append(pairs, fields[5]+"="+fields[6])
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("read cookies: %w", err)
	}
	return strings.Join(pairs, "; "), nil
}
