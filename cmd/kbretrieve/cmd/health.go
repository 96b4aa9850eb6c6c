package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brannigan-labs/kbretrieve/internal/klog"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Print vector store backend health (status, latency, primary/fallback)",
		RunE:  runHealth,
	}
}

func runHealth(c *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	searcher, _, err := buildSearcher(ctx, cfg, klog.Global)
	if err != nil {
		return err
	}
	status, err := searcher.Health(ctx)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
