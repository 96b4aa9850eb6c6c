package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brannigan-labs/kbretrieve/internal/klog"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print collection inventory: chunk/document counts by type and normative status",
		RunE:  runStats,
	}
}

func runStats(c *cobra.Command, _ []string) error {
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
	stats, err := searcher.Stats(ctx)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
