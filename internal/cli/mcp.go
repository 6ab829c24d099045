package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"roteiro/internal/adapter/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve retrieval over MCP",
	Long: `Start a Model Context Protocol server exposing a "retrieve" tool and
corpus resources, so an assistant can ground its answers in the thesis.

By default the server talks JSON-RPC over stdio. Use --port to serve the
streamable HTTP transport instead. With --watch the corpus is rebuilt and
swapped in whenever the knowledge base changes; queries in flight finish
against the corpus they started with.

Examples:
  roteiro mcp serve
  roteiro mcp serve --watch
  roteiro mcp serve --port 8080`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpServeCmd.Flags().Bool("watch", false, "rebuild the corpus when the knowledge base changes")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}
	watch, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return fmt.Errorf("getting watch flag: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	tokenizer := newTokenizer(cfg)
	embedder, err := newEmbedder(ctx, cfg, tokenizer)
	if err != nil {
		return err
	}

	live, err := openLiveCorpus(ctx, cfg, GetRootDir(), tokenizer, embedder, false)
	if err != nil {
		return err
	}
	defer live.Close()

	retriever, _, err := newRetriever(cfg, live.holder, tokenizer, embedder)
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Retriever: retriever,
		Store:     live.store,
	})
	if err != nil {
		return err
	}

	if watch {
		go func() {
			if err := live.watch(ctx); err != nil {
				logger.Error().Err(err).Msg("watcher stopped")
			}
		}()
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		logger.Info().Str("addr", addr).Msg("MCP server listening")
		return server.RunHTTP(ctx, addr)
	}

	return server.Run(ctx)
}
