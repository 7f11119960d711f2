package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/kvaesitso/kvs/internal/client"
	"github.com/kvaesitso/kvs/internal/profile"
	"github.com/kvaesitso/kvs/internal/tui"
	"github.com/spf13/cobra"
)

func main() {
	var profileFlag string
	var noStart bool

	rootCmd := &cobra.Command{
		Use:           "kvstui",
		Short:         "Search from the terminal",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := profile.Resolve(profileFlag)
			if err != nil {
				return err
			}
			socketPath := profile.SocketPath(name)

			// Probe daemon health; auto-start if needed.
			if !probeDaemon(socketPath) {
				if noStart {
					return fmt.Errorf("daemon not running for profile %q", name)
				}
				fmt.Fprintf(os.Stderr, "daemon not running for profile %q, starting...\n", name)
				if err := startDaemon(name); err != nil {
					return fmt.Errorf("start daemon: %w", err)
				}
				if !waitForDaemon(socketPath, 10*time.Second) {
					return fmt.Errorf("daemon did not become ready")
				}
			}

			c, err := client.New(socketPath)
			if err != nil {
				return fmt.Errorf("connect to daemon: %w", err)
			}
			defer func() { _ = c.Close() }()

			return tui.NewApp(c).Run()
		},
	}
	rootCmd.Flags().StringVar(&profileFlag, "profile", "", "profile name (overrides config default)")
	rootCmd.Flags().BoolVar(&noStart, "no-start", false, "fail instead of starting kvsd")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// probeDaemon reports whether a daemon answers health checks as serving.
func probeDaemon(socketPath string) bool {
	if _, err := os.Stat(socketPath); err != nil {
		return false
	}
	c, err := client.New(socketPath)
	if err != nil {
		return false
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ok, err := c.Healthy(ctx)
	return err == nil && ok
}

// startDaemon runs kvsd from next to this binary, or from PATH.
func startDaemon(name string) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}
	kvsd := filepath.Join(filepath.Dir(executable), "kvsd")
	if _, err := os.Stat(kvsd); err != nil {
		kvsd = "kvsd"
	}

	cmd := exec.Command(kvsd, "--profile", name)
	// Inherit stderr so daemon startup errors are visible.
	cmd.Stderr = os.Stderr
	return cmd.Start()
}

func waitForDaemon(socketPath string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if probeDaemon(socketPath) {
			return true
		}
		time.Sleep(300 * time.Millisecond)
	}
	return false
}
