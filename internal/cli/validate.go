package cli

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/netweave/netweave/pkg/errors"
	"github.com/netweave/netweave/pkg/topology"
)

// newValidateCmd creates the validate command.
func newValidateCmd() *cobra.Command {
	var (
		rulesPath string
		kindFlag  string
	)

	cmd := &cobra.Command{
		Use:   "validate <topology-file>",
		Short: "Check a topology file against structural and domain rules",
		Long: `Validate decodes a GraphML topology file, rebuilds the property graph,
and checks every structural invariant (referential integrity, unique GUIDs,
ownership forest) and domain rule (ownership class hierarchy, trunk mode,
link endpoint bounds).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			path := args[0]

			opts, err := rulesOpts(rulesPath)
			if err != nil {
				printError("invalid rules file: %s", errors.UserMessage(err))
				return err
			}

			p := newProgress(logger)
			name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			t, err := topology.LoadFile(name, parseKind(kindFlag), path, opts...)
			if err != nil {
				printError("%s", errors.UserMessage(err))
				return err
			}
			p.done("Validated topology")

			printSuccess("%s is a valid %s topology", path, t.Kind())
			printKeyValue("graph", t.GraphID())
			printStats(len(t.Nodes()), len(t.Links()), len(t.Interfaces()))
			return nil
		},
	}

	cmd.Flags().StringVar(&rulesPath, "rules", "", "TOML file overriding link bounds and component templates")
	cmd.Flags().StringVar(&kindFlag, "kind", "experiment", "topology kind: experiment or substrate")
	return cmd
}

func parseKind(s string) topology.Kind {
	if strings.EqualFold(s, "substrate") {
		return topology.Substrate
	}
	return topology.Experiment
}
