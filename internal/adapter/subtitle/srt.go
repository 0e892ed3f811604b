package subtitle

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Cue is one timed caption line.
type Cue struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// FormatSRT renders cues as SubRip text, numbering from 1.
func FormatSRT(cues []Cue) string {
	var sb strings.Builder
	n := 0
	for _, c := range cues {
		text := strings.TrimSpace(c.Text)
		if text == "" {
			continue
		}
		n++
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n\n", n, formatTimestamp(c.Start), formatTimestamp(c.End), text)
	}
	return sb.String()
}

func formatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	h := ms / 3_600_000
	m := (ms / 60_000) % 60
	s := (ms / 1000) % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}

var timingRe = regexp.MustCompile(`^(\d{1,2}):(\d{2}):(\d{2})[,.](\d{3})\s*-->\s*(\d{1,2}):(\d{2}):(\d{2})[,.](\d{3})`)

// ParseSRT reads SubRip text. Malformed blocks are skipped.
func ParseSRT(text string) []Cue {
	var cues []Cue
	var cur *Cue
	var lines []string

	flush := func() {
		if cur != nil {
			cur.Text = strings.Join(lines, " ")
			if strings.TrimSpace(cur.Text) != "" {
				cues = append(cues, *cur)
			}
		}
		cur = nil
		lines = lines[:0]
	}

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff"))
		if line == "" {
			flush()
			continue
		}
		if m := timingRe.FindStringSubmatch(line); m != nil {
			flush()
			cur = &Cue{Start: parseParts(m[1:5]), End: parseParts(m[5:9])}
			continue
		}
		if cur == nil {
			// cue counter or stray text before a timing line
			continue
		}
		lines = append(lines, line)
	}
	flush()
	return cues
}

func parseParts(p []string) time.Duration {
	var h, m, s, ms int
	fmt.Sscanf(p[0], "%d", &h)
	fmt.Sscanf(p[1], "%d", &m)
	fmt.Sscanf(p[2], "%d", &s)
	fmt.Sscanf(p[3], "%d", &ms)
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second + time.Duration(ms)*time.Millisecond
}

// PlainText joins the cue texts of an SRT document with single spaces.
// Input without any timing lines is returned unchanged.
func PlainText(srt string) string {
	cues := ParseSRT(srt)
	if len(cues) == 0 {
		return srt
	}
	parts := make([]string, len(cues))
	for i, c := range cues {
		parts[i] = c.Text
	}
	return strings.Join(parts, " ")
}
