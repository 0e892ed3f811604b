package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/4ngelGtz/chatbot-zen/internal/adapter/mcpserver"
)

var mcpHTTP bool

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose the transcripts as MCP tools",
	Long: `Run an MCP server with the ask_transcripts and search_transcripts tools.
Serves stdio by default; --http serves streamable HTTP on server.mcp_addr.

Examples:
  zen mcp            # stdio, for local agent clients
  zen mcp --http     # HTTP with /metrics`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().BoolVar(&mcpHTTP, "http", false, "serve HTTP instead of stdio")
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	qs, err := openQueryStack()
	if err != nil {
		return err
	}
	srv, err := mcpserver.NewServer(qs.asker, qs.retriever, cfg.Retrieve.TopK, Version)
	if err != nil {
		return err
	}

	if mcpHTTP {
		if cfg.Server.Watch {
			if _, err := qs.holder.Watch(cmd.Context(), watchDebounce); err != nil {
				return err
			}
		}
		return srv.Serve(strings.TrimPrefix(cfg.Server.MCPAddr, ":"))
	}
	return srv.Run(cmd.Context())
}
