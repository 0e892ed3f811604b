package analyzer

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// StripMarkup removes tags from a caption fragment and decodes entities.
// Caption payloads are often escaped twice (&amp;#39;), so decoding repeats
// until the text is stable.
func StripMarkup(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var sb strings.Builder
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.TextToken {
			sb.Write(z.Text())
		}
	}

	out := sb.String()
	for i := 0; i < 2 && strings.Contains(out, "&"); i++ {
		dec := html.UnescapeString(out)
		if dec == out {
			break
		}
		out = dec
	}
	return collapseSpace(out)
}

var (
	bracketRe = regexp.MustCompile(`\[[^\]]*\]`)
	spaceRe   = regexp.MustCompile(`\s+`)
)

// NormalizeTranscript prepares transcript text for chunking: markup and
// bracketed annotations such as [Music] are removed and whitespace collapsed.
func NormalizeTranscript(s string) string {
	if strings.ContainsAny(s, "<&") {
		s = StripMarkup(s)
	}
	s = bracketRe.ReplaceAllString(s, " ")
	return collapseSpace(s)
}

func collapseSpace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}
