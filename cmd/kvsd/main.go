package main

import (
	"fmt"
	"os"

	"github.com/kvaesitso/kvs/internal/daemon"
	"github.com/kvaesitso/kvs/internal/profile"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func main() {
	var profileFlag, configFlag string

	rootCmd := &cobra.Command{
		Use:           "kvsd",
		Short:         "Launcher search daemon",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := profile.Resolve(profileFlag)
			if err != nil {
				return err
			}
			app := fx.New(
				daemon.Module(daemon.Params{Profile: name, ConfigPath: configFlag}),
				fx.NopLogger,
			)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
	rootCmd.Flags().StringVar(&profileFlag, "profile", "", "profile name (overrides config default)")
	rootCmd.Flags().StringVar(&configFlag, "config", "", "config file (default ~/.kvs/config.toml)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
