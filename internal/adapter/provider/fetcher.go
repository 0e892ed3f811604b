package provider

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/proxypool"
)

const maxBodyBytes = 8 << 20

// Fetcher performs a GET and returns the body with its status code.
type Fetcher interface {
	Get(ctx context.Context, url string, headers map[string]string) ([]byte, int, error)
}

// StealthFetcher sends requests through a browser-fingerprinted client so
// caption endpoints see a real Chrome TLS handshake.
type StealthFetcher struct {
	do func(method, url string, headers map[string]string) ([]byte, int, error)
}

// NewStealthFetcher creates the client. proxyAPIKey, when set, routes
// requests through a rotating Webshare proxy pool.
func NewStealthFetcher(proxyAPIKey string) (*StealthFetcher, error) {
	opts := []stealth.ClientOption{stealth.WithTimeout(30)}
	if proxyAPIKey != "" {
		pool, err := proxypool.NewWebshare(proxyAPIKey)
		if err != nil {
			slog.Warn("proxy pool init failed, running without proxy", slog.Any("error", err))
		} else {
			opts = append(opts, stealth.WithProxyPool(pool))
			slog.Info("proxy pool initialized", slog.Int("proxies", pool.Len()))
		}
	}

	bc, err := stealth.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("stealth client: %w", err)
	}
	return &StealthFetcher{
		do: func(method, url string, headers map[string]string) ([]byte, int, error) {
			data, _, status, err := bc.Do(method, url, headers, nil)
			return data, status, err
		},
	}, nil
}

type fetchResult struct {
	data   []byte
	status int
	err    error
}

func (f *StealthFetcher) Get(ctx context.Context, url string, headers map[string]string) ([]byte, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	done := make(chan fetchResult, 1)
	go func() {
		data, status, err := f.do(http.MethodGet, url, headers)
		done <- fetchResult{data, status, err}
	}()
	select {
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	case r := <-done:
		return r.data, r.status, r.err
	}
}

// HTTPFetcher is the plain net/http fallback, used when the stealth client
// cannot be constructed and in tests.
type HTTPFetcher struct {
	Client *http.Client
}

func (f *HTTPFetcher) Get(ctx context.Context, url string, headers map[string]string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}
