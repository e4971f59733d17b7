package cli

import (
	"context"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/netweave/netweave/pkg/buildinfo"
	"github.com/netweave/netweave/pkg/topology"
)

// Execute runs the netweave CLI and returns an error if any command fails.
// This is the main entry point for the CLI application.
//
// The function sets up the root command with all subcommands, configures
// logging based on the --verbose flag, and executes the command tree.
//
// Logging:
//   - Default: info level (logs to stderr)
//   - With --verbose (-v): debug level
//
// The logger is attached to the context and accessible to all commands via
// loggerFromContext.
func Execute(ctx context.Context) error {
	var verbose bool

	root := &cobra.Command{
		Use:          "netweave",
		Short:        "netweave models networked compute topologies as property graphs",
		Long:         `netweave builds, validates, diffs, and renders property-graph topology models of networked compute resources, and drives their realization through a slice orchestrator.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newValidateCmd())
	root.AddCommand(newDiffCmd())
	root.AddCommand(newRenderCmd())
	root.AddCommand(newSliceCmd())
	root.AddCommand(newServeCmd())

	return root.ExecuteContext(ctx)
}

// rulesOpts reads the optional --rules flag into topology options.
// An empty path yields no options, leaving the compiled-in defaults.
func rulesOpts(path string) ([]topology.Option, error) {
	if path == "" {
		return nil, nil
	}
	cfg, err := topology.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return []topology.Option{topology.WithConfig(cfg)}, nil
}
