package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/netweave/netweave/pkg/errors"
	"github.com/netweave/netweave/pkg/render"
	"github.com/netweave/netweave/pkg/topology"
)

// newRenderCmd creates the render command.
func newRenderCmd() *cobra.Command {
	var (
		output    string
		format    string
		detailed  bool
		rulesPath string
	)

	cmd := &cobra.Command{
		Use:   "render <topology-file>",
		Short: "Generate a DOT or SVG diagram from a topology file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			path := args[0]

			opts, err := rulesOpts(rulesPath)
			if err != nil {
				return err
			}
			name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			t, err := topology.LoadFile(name, topology.Experiment, path, opts...)
			if err != nil {
				printError("%s", errors.UserMessage(err))
				return err
			}

			p := newProgress(logger)
			dot := render.ToDOT(t, render.Options{Detailed: detailed})

			var data []byte
			switch format {
			case "dot":
				data = []byte(dot)
			case "svg":
				data, err = render.RenderSVG(dot)
				if err != nil {
					printError("render: %v", err)
					return err
				}
			default:
				printError("unknown format %q (want dot or svg)", format)
				return errors.New(errors.ErrCodeInvalidInput, "unknown format %q", format)
			}
			p.done("Rendered diagram")

			if output == "" {
				output = name + "." + format
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return err
			}
			printSuccess("rendered %s", path)
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <name>.<format>)")
	cmd.Flags().StringVarP(&format, "format", "f", "svg", "output format: dot or svg")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include models and interface modes in labels")
	cmd.Flags().StringVar(&rulesPath, "rules", "", "TOML file overriding link bounds and component templates")
	return cmd
}
