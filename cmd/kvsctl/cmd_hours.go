package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func runHours(cmd *cobra.Command, args []string) error {
	var at time.Time
	if s, _ := cmd.Flags().GetString("at"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("parse --at: %w", err)
		}
		at = t
	}

	ctx, cancel := callContext()
	defer cancel()

	resp, err := daemon.OpeningHours(ctx, args[0], at)
	if err != nil {
		return err
	}
	if jsonOut {
		return outputJSON(resp)
	}
	if resp.Schedule == nil {
		fmt.Println("No opening hours.")
		return nil
	}
	fmt.Println(resp.Normalized)
	if resp.OpenNow {
		fmt.Println("Open")
	} else {
		fmt.Println("Closed")
	}
	return nil
}
