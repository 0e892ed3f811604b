package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/4ngelGtz/chatbot-zen/internal/adapter/httpapi"
	"github.com/4ngelGtz/chatbot-zen/internal/adapter/store"
)

var serveAddr string

// watchDebounce collapses the writes of one index publish into a single reload.
const watchDebounce = 500 * time.Millisecond

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP query API",
	Long: `Serve the query API over the published vector index:

  GET  /health    liveness
  POST /ask       {"query": "...", "top_k": 5} -> answer with sources
  GET  /stats     loaded index metadata
  GET  /metrics   counters in text form

The index is reloaded on SIGHUP and, when server.watch is set, whenever
'zen index' publishes a new one. Queries in flight keep the old snapshot.
Without an index the server still starts; /ask and /stats answer 503 until
one is published.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default is server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

	if err := cfg.EnsureDataDir(GetRootDir()); err != nil {
		return err
	}
	qs, err := newQueryStack(true)
	if err != nil {
		return err
	}

	go reloadOnHangup(ctx, qs.holder)
	if cfg.Server.Watch {
		if _, err := qs.holder.Watch(ctx, watchDebounce); err != nil {
			slog.Warn("index watch disabled", slog.Any("error", err))
		}
	}

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	srv := httpapi.NewServer(qs.asker, qs.holder, cfg.Retrieve.TopK, cfg.Generation.Timeout+30*time.Second)
	return srv.Run(ctx, addr)
}

func reloadOnHangup(ctx context.Context, h *store.Holder) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := h.Reload(); err != nil {
				slog.Warn("index reload failed, keeping current snapshot", slog.Any("error", err))
				continue
			}
			slog.Info("vector index reloaded", slog.Uint64("generation", h.Generation()), slog.Int("count", h.Len()))
		}
	}
}
