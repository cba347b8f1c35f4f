package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/mcp"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server exposing the search_articles tool.

By default, the server communicates over stdio using JSON-RPC and can be
used with Claude Desktop and other MCP-compatible AI assistants.

Use --port to start an HTTP server instead, which serves:
  /mcp      streamable MCP endpoint
  /metrics  Prometheus metrics
  /healthz  readiness of the loaded index

Examples:
  # Stdio mode (default, for Claude Desktop)
  sercha-rag mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  sercha-rag mcp serve --port 8080

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "sercha-rag": {
        "command": "/path/to/sercha-rag",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	addIndexFlags(mcpServeCmd)
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	// Stdio clients get a load error up front. Over HTTP the index loads in
	// the background and /healthz reports progress.
	ctx := cmd.Context()
	search, closeSearch, err := newSearch(settings)
	if err != nil {
		return err
	}
	defer closeSearch()

	server, err := mcp.NewServer(&mcp.Ports{Search: search, Index: search})
	if err != nil {
		return err
	}

	if port > 0 {
		loadCtx, cancelLoad := context.WithCancel(ctx)
		loaded := make(chan struct{})
		go func() {
			defer close(loaded)
			if err := search.Load(loadCtx); err != nil {
				logger.Error("Index unavailable, queries will fail with not_ready: %v", err)
			}
		}()
		// Runs before closeSearch, so the index is never released mid-load.
		defer func() {
			cancelLoad()
			<-loaded
		}()
		addr := fmt.Sprintf(":%d", port)
		cmd.PrintErrf("MCP server listening on http://localhost%s/mcp\n", addr)
		return server.RunHTTP(ctx, addr)
	}

	if err := search.Load(ctx); err != nil {
		return fmt.Errorf("loading index: %w", err)
	}
	return server.Run(ctx)
}
