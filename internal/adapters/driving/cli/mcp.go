package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/newsdesk/internal/adapters/driving/mcp"
)

var mcpHTTPAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

Tools: search, index_document and ask. Resources: the indexed documents.

By default, the server communicates over stdio using JSON-RPC and can be
used with Claude Desktop and other MCP-compatible AI assistants.

Use --http to serve the streamable HTTP transport instead, which enables:
  - Testing with MCP Inspector web UI
  - Remote access via HTTP

Examples:
  # Stdio mode (default, for Claude Desktop)
  newsdesk mcp --preload ~/newsroom

  # HTTP mode (for MCP Inspector, remote access)
  newsdesk mcp --http :8090

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "newsdesk": {
        "command": "/path/to/newsdesk",
        "args": ["mcp", "--preload", "/path/to/documents"]
      }
    }
  }`,
	Args:        cobra.NoArgs,
	Annotations: engineAnnotation,
	RunE:        runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "HTTP listen address (empty = use stdio)")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Index: indexService,
		Tasks: taskService,
	})
	if err != nil {
		return err
	}

	if mcpHTTPAddr != "" {
		// stdout stays free in stdio mode; only the HTTP mode announces itself.
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://%s\n", mcpHTTPAddr)
		return server.RunHTTP(cmd.Context(), mcpHTTPAddr)
	}

	return server.Run(cmd.Context())
}
