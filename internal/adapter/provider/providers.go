package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/4ngelGtz/chatbot-zen/internal/domain"
	"github.com/4ngelGtz/chatbot-zen/internal/port"
)

// Native returns captions published in one language, manual tracks before
// auto-generated ones. With prefix set, regional variants (en-GB for en)
// are accepted after exact matches.
type Native struct {
	yt     *YouTube
	lang   string
	prefix bool
}

func NewNative(yt *YouTube, lang string, prefix bool) *Native {
	return &Native{yt: yt, lang: lang, prefix: prefix}
}

func (p *Native) Name() string     { return "native:" + p.lang }
func (p *Native) Language() string { return p.lang }

func (p *Native) TryFetch(ctx context.Context, ref domain.VideoRef, id port.Identity) (string, error) {
	tracks, err := p.yt.tracks(ctx, ref.ID, id)
	if err != nil {
		return "", err
	}

	match := func(t captionTrack) bool { return t.LanguageCode == p.lang }
	t, ok := pickTrack(tracks, match)
	if !ok && p.prefix {
		t, ok = pickTrack(tracks, func(t captionTrack) bool {
			return strings.HasPrefix(t.LanguageCode, p.lang+"-")
		})
	}
	if !ok {
		return "", fmt.Errorf("%w: no %s captions for %s", domain.ErrNotFound, p.lang, ref.ID)
	}
	return p.yt.timedText(ctx, t.BaseURL, id)
}

// Translated machine-translates any translatable track into the target language.
type Translated struct {
	yt     *YouTube
	target string
}

func NewTranslated(yt *YouTube, target string) *Translated {
	return &Translated{yt: yt, target: target}
}

func (p *Translated) Name() string     { return "translated:" + p.target }
func (p *Translated) Language() string { return p.target }

func (p *Translated) TryFetch(ctx context.Context, ref domain.VideoRef, id port.Identity) (string, error) {
	tracks, err := p.yt.tracks(ctx, ref.ID, id)
	if err != nil {
		return "", err
	}
	t, ok := pickTrack(tracks, func(t captionTrack) bool { return t.IsTranslatable })
	if !ok {
		return "", fmt.Errorf("%w: no translatable captions for %s", domain.ErrNotFound, ref.ID)
	}
	return p.yt.timedText(ctx, t.BaseURL+"&tlang="+p.target, id)
}

// pickTrack returns the first manual track matching, else the first auto-generated one.
func pickTrack(tracks []captionTrack, match func(captionTrack) bool) (captionTrack, bool) {
	for _, t := range tracks {
		if match(t) && t.manual() {
			return t, true
		}
	}
	for _, t := range tracks {
		if match(t) {
			return t, true
		}
	}
	return captionTrack{}, false
}

// Chain builds the provider fallback order: preferred language, fallback
// language (regional variants allowed), then translation.
func Chain(yt *YouTube, preferred, fallback, translateTo string) []port.TranscriptProvider {
	var chain []port.TranscriptProvider
	if preferred != "" {
		chain = append(chain, NewNative(yt, preferred, false))
	}
	if fallback != "" && fallback != preferred {
		chain = append(chain, NewNative(yt, fallback, true))
	}
	if translateTo != "" {
		chain = append(chain, NewTranslated(yt, translateTo))
	}
	return chain
}
