package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/schollz/progressbar/v3"

	"github.com/4ngelGtz/chatbot-zen/config"
	"github.com/4ngelGtz/chatbot-zen/internal/adapter/fs"
	"github.com/4ngelGtz/chatbot-zen/internal/adapter/ledger"
	"github.com/4ngelGtz/chatbot-zen/internal/adapter/llm"
	"github.com/4ngelGtz/chatbot-zen/internal/adapter/provider"
	"github.com/4ngelGtz/chatbot-zen/internal/adapter/retry"
	"github.com/4ngelGtz/chatbot-zen/internal/port"
	"github.com/4ngelGtz/chatbot-zen/internal/usecase"
)

// newGenerator returns nil when no API key is configured; answers then fall
// back to extractive mode.
func newGenerator(c *config.Config) (port.Generator, error) {
	g := c.Generation
	if g.Provider == "none" {
		return nil, nil
	}
	key := env.Str(g.APIKeyEnv, "")
	if key == "" {
		slog.Warn("no generation API key, answers will be extractive", slog.String("env", g.APIKeyEnv))
		return nil, nil
	}
	return llm.NewClient(llm.Options{
		BaseURL:      g.BaseURL,
		APIKey:       key,
		FallbackKeys: env.List(g.APIKeyEnv+"_FALLBACKS", ""),
		Model:        g.Model,
		MaxTokens:    g.MaxTokens,
		Temperature:  g.Temperature,
		Timeout:      g.Timeout,
	})
}

// newFetcher prefers the fingerprinted client and falls back to net/http.
func newFetcher(c *config.Config) provider.Fetcher {
	f, err := provider.NewStealthFetcher(env.Str(c.Fetch.ProxyAPIKeyEnv, ""))
	if err != nil {
		slog.Warn("stealth client unavailable, using net/http", slog.Any("error", err))
		return &provider.HTTPFetcher{}
	}
	return f
}

func newIdentities(c *config.Config) (*provider.IdentityPool, error) {
	var cookie string
	if c.Fetch.CookiesFile != "" {
		var err error
		cookie, err = provider.LoadCookieHeader(c.Fetch.CookiesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load cookies: %w", err)
		}
	}
	return provider.NewIdentityPool(c.Fetch.Identities, cookie), nil
}

func fetchPolicy(c *config.Config) retry.Policy {
	p := retry.DefaultPolicy
	p.MaxAttempts = c.Fetch.MaxAttempts
	p.InitialWait = c.Fetch.BackoffBase
	p.MaxWait = c.Fetch.BackoffCap
	return p
}

// pipeline holds the on-disk stores shared by the ingestion commands.
type pipeline struct {
	cfg    *config.Config
	root   string
	store  *fs.TranscriptStore
	ledger *ledger.Ledger
}

func openPipeline() (*pipeline, error) {
	c, root := GetConfig(), GetRootDir()
	if err := c.EnsureDataDir(root); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	l, err := ledger.Open(c.LedgerPath(root))
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	return &pipeline{cfg: c, root: root, store: fs.NewTranscriptStore(c.TranscriptDir(root)), ledger: l}, nil
}

func (p *pipeline) Close() error {
	return p.ledger.Close()
}

func (p *pipeline) languages() []string {
	return []string{p.cfg.Fetch.PreferredLanguage, p.cfg.Fetch.FallbackLanguage, p.cfg.Fetch.TranslateTo}
}

func (p *pipeline) manifestBuilder() *usecase.ManifestBuilder {
	return usecase.NewManifestBuilder(p.store, p.ledger, p.languages(), p.cfg.Fetch.MinTranscriptBytes)
}

// newBar creates a progress bar in the style used by every long-running command.
func newBar(total int, label string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]"+label+"[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)
}

// describeETA updates the bar label with an estimate from the rate so far.
func describeETA(bar *progressbar.ProgressBar, label string, start time.Time, done, total int) {
	if done == 0 {
		return
	}
	rate := float64(done) / time.Since(start).Seconds()
	if rate <= 0 {
		return
	}
	eta := time.Duration(float64(total-done)/rate) * time.Second
	bar.Describe(fmt.Sprintf("[cyan]%s[reset] ETA: %s", label, formatDuration(eta)))
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
