package subtitle

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/4ngelGtz/chatbot-zen/internal/adapter/analyzer"
)

// YouTube serves captions either as the legacy <transcript><text start dur>
// format (seconds) or srv3 <timedtext><body><p t d> (milliseconds).
type timedText struct {
	Lines []ttLine `xml:"text"`
	Body  struct {
		Paras []ttPara `xml:"p"`
	} `xml:"body"`
}

type ttLine struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Text  string `xml:",innerxml"`
}

type ttPara struct {
	T    string `xml:"t,attr"`
	D    string `xml:"d,attr"`
	Text string `xml:",innerxml"`
}

// ParseTimedText converts a timedtext XML payload into cues.
func ParseTimedText(data []byte) ([]Cue, error) {
	var tt timedText
	if err := xml.Unmarshal(data, &tt); err != nil {
		return nil, fmt.Errorf("parse timedtext XML: %w", err)
	}

	var cues []Cue
	for _, l := range tt.Lines {
		start := seconds(l.Start)
		cues = appendCue(cues, start, start+seconds(l.Dur), l.Text)
	}
	for _, p := range tt.Body.Paras {
		start := millis(p.T)
		cues = appendCue(cues, start, start+millis(p.D), p.Text)
	}
	return cues, nil
}

func appendCue(cues []Cue, start, end time.Duration, raw string) []Cue {
	text := analyzer.StripMarkup(raw)
	if text == "" {
		return cues
	}
	return append(cues, Cue{Start: start, End: end, Text: text})
}

func seconds(s string) time.Duration {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}

func millis(s string) time.Duration {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return time.Duration(n) * time.Millisecond
}
