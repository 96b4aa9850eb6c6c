package cmd

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/brannigan-labs/kbretrieve/dispatch"
	"github.com/brannigan-labs/kbretrieve/internal/klog"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the six knowledge_* tools over MCP stdio",
		Long: `Serve wires the tool dispatcher (spec §4.8) into
github.com/modelcontextprotocol/go-sdk and runs its stdio transport. The
outer protocol transport itself (stdio framing, JSON-RPC envelope) is an
explicit Non-goal of the spec (§1): this command's own work ends at tool
registration.`,
		RunE: runServe,
	}
}

func runServe(c *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger := klog.Global
	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	searcher, _, err := buildSearcher(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	registry := dispatch.NewRegistry()
	bridge := newMCPBridge(registry, searcher)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "kbretrieve",
		Version: version,
	}, nil)
	bridge.register(server)

	logger.Info("kbretrieve: serving MCP tools over stdio", "tools", len(registry.Names()))
	err = server.Run(ctx, &mcp.StdioTransport{})
	if err != nil && err != context.Canceled {
		logger.Error("kbretrieve: server stopped with error", "error", err.Error())
		return err
	}
	logger.Info("kbretrieve: server stopped gracefully")
	return nil
}
