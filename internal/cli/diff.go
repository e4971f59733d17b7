package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/netweave/netweave/pkg/errors"
	"github.com/netweave/netweave/pkg/merge"
	"github.com/netweave/netweave/pkg/propgraph"
)

// newDiffCmd creates the diff command.
func newDiffCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "diff <old-file> <new-file>",
		Short: "Compute the edit script between two revisions of a graph",
		Long: `Diff imports two GraphML files and partitions their entities by GUID into
insertions, deletions, and attribute updates. Entities whose type changed
between revisions are reported as conflicts; a conflicted script cannot be
applied without an explicit delete and re-insert.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			p := newProgress(logger)
			old, err := propgraph.ImportFile(args[0])
			if err != nil {
				printError("import %s: %s", args[0], errors.UserMessage(err))
				return err
			}
			revised, err := propgraph.ImportFile(args[1])
			if err != nil {
				printError("import %s: %s", args[1], errors.UserMessage(err))
				return err
			}
			plan := merge.Diff(old, revised)
			p.done("Computed edit script")

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(plan)
			}

			if plan.Empty() {
				printSuccess("revisions are identical")
				return nil
			}

			inserts, deletes, updates := plan.Counts()
			printInfo("%d insertions, %d deletions, %d updates", inserts, deletes, updates)
			for _, op := range plan.Ops {
				printDetail("%s %s", op.Kind, op.GUID)
			}
			for _, c := range plan.Conflicts {
				printWarning("conflict %s: %s", c.GUID, c.Reason)
			}
			if len(plan.Conflicts) > 0 {
				return fmt.Errorf("%d conflicts", len(plan.Conflicts))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the edit script as JSON")
	return cmd
}
