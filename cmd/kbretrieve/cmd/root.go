package cmd

import (
	"github.com/spf13/cobra"

	"github.com/brannigan-labs/kbretrieve/config"
	"github.com/brannigan-labs/kbretrieve/internal/klog"
)

// version is overridden at build time via -ldflags "-X ...cmd.version=...".
var version = "dev"

var (
	configFlag string
	verbose    bool
)

// NewRootCmd builds the kbretrieve root command, grounded on
// RedClaus-cortex/core/cmd/cortex/main.go's cobra root (PersistentFlags for
// --config/--verbose, subcommands for each operating mode) and
// Aman-CERP-amanmcp/cmd/amanmcp's cmd/ package layout.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "kbretrieve",
		Short: "Semantic retrieval server over structured technical documents",
		Long: `kbretrieve ingests engineering standards, handbooks, and specifications into
a content-addressed chunk store and answers semantic queries over them via a
small, fixed set of MCP tool calls (knowledge_search, knowledge_keyword_search,
knowledge_lookup, knowledge_requirements, knowledge_stats, knowledge_health).

Ingest a document:   kbretrieve ingest path/to/standard.pdf
Serve the tool API:   kbretrieve serve`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				klog.SetGlobalLevel(klog.LevelDebug)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configFlag, "config", "", "config file path (default ~/.kbretrieve/config.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	root.AddCommand(newServeCmd())
	root.AddCommand(newIngestCmd())
	root.AddCommand(newHealthCmd())
	root.AddCommand(newStatsCmd())

	return root
}

// loadConfig honors an explicit --config flag, falling back to
// config.Load's own KBRETRIEVE_CONFIG/~/.kbretrieve/config.yaml search order.
func loadConfig() (*config.Config, error) {
	if configFlag != "" {
		return config.LoadFromPath(configFlag)
	}
	return config.Load()
}
