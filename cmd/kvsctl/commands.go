package main

import (
	"fmt"
	"time"

	"github.com/kvaesitso/kvs/internal/client"
	"github.com/kvaesitso/kvs/internal/profile"
	"github.com/spf13/cobra"
)

var (
	profileName string
	socketPath  string
	jsonOut     bool
	callTimeout time.Duration

	// daemon is connected in PersistentPreRunE.
	daemon *client.Client

	rootCmd = &cobra.Command{
		Use:               "kvsctl",
		Short:             "Query and manage a running kvsd",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: connect,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if daemon != nil {
				_ = daemon.Close()
			}
		},
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show daemon state, catalog counts and data freshness",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
	healthCmd = &cobra.Command{
		Use:   "health",
		Short: "Exit non-zero unless the daemon is serving searches",
		Args:  cobra.NoArgs,
		RunE:  runHealth,
	}

	searchCmd = &cobra.Command{
		Use:   "search [query]",
		Short: "Run a search and print the final results",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSearch,
	}

	hoursCmd = &cobra.Command{
		Use:   "hours <expression>",
		Short: "Parse an opening_hours expression and evaluate it",
		Args:  cobra.ExactArgs(1),
		RunE:  runHours,
	}

	labelCmd = &cobra.Command{
		Use:   "label",
		Short: "Manage custom result labels",
	}
	labelSetCmd = &cobra.Command{
		Use:   "set <key> <label>",
		Short: "Set a custom label for a result key",
		Args:  cobra.ExactArgs(2),
		RunE:  runLabelSet,
	}
	labelClearCmd = &cobra.Command{
		Use:   "clear <key>",
		Short: "Remove a custom label",
		Args:  cobra.ExactArgs(1),
		RunE:  runLabelClear,
	}
	labelListCmd = &cobra.Command{
		Use:   "list",
		Short: "List custom labels",
		Args:  cobra.NoArgs,
		RunE:  runLabelList,
	}

	importCmd = &cobra.Command{
		Use:   "import",
		Short: "Re-import the profile catalog file",
		Args:  cobra.NoArgs,
		RunE:  runImport,
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&profileName, "profile", "", "profile name (overrides config default)")
	pf.StringVar(&socketPath, "socket", "", "daemon socket (default: the profile's socket)")
	pf.BoolVar(&jsonOut, "json", false, "output in JSON format")
	pf.DurationVar(&callTimeout, "call-timeout", 10*time.Second, "deadline for unary calls")

	registerSearchFlags(searchCmd)
	hoursCmd.Flags().String("at", "", "evaluate at this RFC 3339 time instead of now")

	labelCmd.AddCommand(labelSetCmd, labelClearCmd, labelListCmd)
	rootCmd.AddCommand(statusCmd, healthCmd, searchCmd, hoursCmd, labelCmd, importCmd)
}

func connect(cmd *cobra.Command, args []string) error {
	path := socketPath
	if path == "" {
		name, err := profile.Resolve(profileName)
		if err != nil {
			return err
		}
		profileName = name
		path = profile.SocketPath(name)
	}
	c, err := client.New(path)
	if err != nil {
		return fmt.Errorf("cannot connect to daemon for profile %q: %w", profileName, err)
	}
	daemon = c
	return nil
}
