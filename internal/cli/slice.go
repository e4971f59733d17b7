package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/netweave/netweave/pkg/cache"
	"github.com/netweave/netweave/pkg/credentials"
	"github.com/netweave/netweave/pkg/errors"
	"github.com/netweave/netweave/pkg/orchestrator"
)

// appName is the application name used for directories and display.
const appName = "netweave"

// sliceFlags are the connection flags shared by all slice subcommands.
type sliceFlags struct {
	orchestratorURL string
	project         string
	noCache         bool
}

// newSliceCmd creates the slice command group.
func newSliceCmd() *cobra.Command {
	flags := &sliceFlags{}

	cmd := &cobra.Command{
		Use:   "slice",
		Short: "Create, modify, query, renew, and delete orchestrator slices",
		Long: `Slice commands submit serialized topologies to the orchestrator and track
their realization. Authentication uses a bearer token stored per project;
run "slice login" once to store it.`,
	}

	cmd.PersistentFlags().StringVar(&flags.orchestratorURL, "orchestrator", "http://localhost:8700", "orchestrator base URL")
	cmd.PersistentFlags().StringVarP(&flags.project, "project", "p", "default", "project the slice belongs to")
	cmd.PersistentFlags().BoolVar(&flags.noCache, "no-cache", false, "disable the query response cache")

	cmd.AddCommand(newSliceLoginCmd(flags))
	cmd.AddCommand(newSliceCreateCmd(flags))
	cmd.AddCommand(newSliceModifyCmd(flags))
	cmd.AddCommand(newSliceStatusCmd(flags))
	cmd.AddCommand(newSliceQueryCmd(flags))
	cmd.AddCommand(newSliceDeleteCmd(flags))
	cmd.AddCommand(newSliceRenewCmd(flags))
	return cmd
}

func newSliceLoginCmd(flags *sliceFlags) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "login <bearer-token>",
		Short: "Store a bearer token for the project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := credentials.NewFileStore("")
			if err != nil {
				return err
			}
			defer store.Close()

			tok := credentials.New(flags.project, orchestrator.TokenScope, args[0], ttl)
			if err := store.Set(cmd.Context(), tok); err != nil {
				return err
			}
			printSuccess("stored token for project %s", flags.project)
			printDetail("tokens live in %s", store.Path())
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", credentials.DefaultTTL, "token lifetime (0 for no local expiry)")
	return cmd
}

func newSliceCreateCmd(flags *sliceFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <slice-name> <topology-file>",
		Short: "Submit a topology as a new slice",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return submitSlice(cmd.Context(), flags, args[0], args[1], false)
		},
	}
	return cmd
}

func newSliceModifyCmd(flags *sliceFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "modify <slice-name> <topology-file>",
		Short: "Replace a slice's topology with a revised file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return submitSlice(cmd.Context(), flags, args[0], args[1], true)
		},
	}
	return cmd
}

func submitSlice(ctx context.Context, flags *sliceFlags, sliceName, path string, modify bool) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	client, cleanup, err := newOrchestratorClient(ctx, flags)
	if err != nil {
		return err
	}
	defer cleanup()

	verb := "Creating"
	if modify {
		verb = "Modifying"
	}
	spin := newSpinner(ctx, fmt.Sprintf("%s slice %s", verb, sliceName))
	spin.Start()

	var status orchestrator.Status
	if modify {
		status, err = client.Modify(ctx, sliceName, string(payload))
	} else {
		status, err = client.Create(ctx, sliceName, string(payload))
	}
	if err != nil {
		spin.StopWithError(errors.UserMessage(err))
		return err
	}
	spin.StopWithSuccess(fmt.Sprintf("slice %s: %s", sliceName, status))

	if status == orchestrator.StatusWaiting {
		printNextStep("watch realization", fmt.Sprintf("netweave slice status %s --watch", sliceName))
	}
	return nil
}

func newSliceStatusCmd(flags *sliceFlags) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "status <slice-name>",
		Short: "Report a slice's realization state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := newOrchestratorClient(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer cleanup()

			if watch {
				return watchSlice(cmd.Context(), client, args[0])
			}

			status, err := client.Status(cmd.Context(), args[0])
			if err != nil {
				printError("%s", errors.UserMessage(err))
				return err
			}
			printKeyValue("slice", args[0])
			printKeyValue("status", string(status))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "poll until the slice settles")
	return cmd
}

func newSliceQueryCmd(flags *sliceFlags) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "query <slice-name>",
		Short: "Fetch the realized slice topology",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := newOrchestratorClient(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer cleanup()

			status, payload, err := client.Query(cmd.Context(), args[0])
			if err != nil {
				printError("%s", errors.UserMessage(err))
				return err
			}
			if status != orchestrator.StatusOK {
				printWarning("slice %s is %s", args[0], status)
				return fmt.Errorf("slice not ready: %s", status)
			}
			if output == "" {
				fmt.Fprintln(cmd.OutOrStdout(), payload)
				return nil
			}
			if err := os.WriteFile(output, []byte(payload), 0644); err != nil {
				return err
			}
			printSuccess("queried slice %s", args[0])
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the realized topology to a file")
	return cmd
}

func newSliceDeleteCmd(flags *sliceFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <slice-name>",
		Short: "Tear down a slice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := newOrchestratorClient(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer cleanup()

			status, err := client.Delete(cmd.Context(), args[0])
			if err != nil {
				printError("%s", errors.UserMessage(err))
				return err
			}
			printSuccess("slice %s: %s", args[0], status)
			return nil
		},
	}
	return cmd
}

func newSliceRenewCmd(flags *sliceFlags) *cobra.Command {
	var lease time.Duration

	cmd := &cobra.Command{
		Use:   "renew <slice-name>",
		Short: "Extend a slice's lease",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := newOrchestratorClient(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer cleanup()

			until := time.Now().Add(lease)
			status, err := client.Renew(cmd.Context(), args[0], until)
			if err != nil {
				printError("%s", errors.UserMessage(err))
				return err
			}
			printSuccess("slice %s renewed until %s: %s", args[0], until.Format(time.RFC3339), status)
			return nil
		},
	}

	cmd.Flags().DurationVar(&lease, "lease", 24*time.Hour, "lease extension from now")
	return cmd
}

// newOrchestratorClient builds a client from the shared flags. The
// returned cleanup closes the token store and cache.
func newOrchestratorClient(ctx context.Context, flags *sliceFlags) (*orchestrator.Client, func(), error) {
	tokens, err := credentials.NewFileStore("")
	if err != nil {
		return nil, nil, err
	}

	cc := newQueryCache(flags.noCache)
	client, err := orchestrator.NewClient(flags.orchestratorURL, flags.project, tokens,
		orchestrator.WithCache(cc))
	if err != nil {
		tokens.Close()
		cc.Close()
		return nil, nil, err
	}
	cleanup := func() {
		tokens.Close()
		cc.Close()
	}
	return client, cleanup, nil
}

func newQueryCache(noCache bool) cache.Cache {
	if noCache {
		return cache.NewNullCache()
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache()
	}
	c, err := cache.NewFileCache(dir)
	if err != nil {
		return cache.NewNullCache()
	}
	return c
}

// cacheDir returns the cache directory using XDG standard (~/.cache/netweave/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
