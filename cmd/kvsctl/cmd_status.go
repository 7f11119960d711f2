package main

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/spf13/cobra"
)

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := callContext()
	defer cancel()

	resp, err := daemon.Status(ctx)
	if err != nil {
		return err
	}
	if jsonOut {
		return outputJSON(resp)
	}
	fmt.Printf("Profile: %s\n", resp.Profile)
	fmt.Printf("State:   %s (since %s)\n", resp.State, resp.Since.Local().Format(time.DateTime))
	fmt.Printf("Uptime:  %s\n", (time.Duration(resp.UptimeMS) * time.Millisecond).Round(time.Second))
	fmt.Printf("PID:     %d\n", resp.PID)
	fmt.Printf("Network: %v\n", resp.Network)
	if resp.CatalogHash != "" {
		fmt.Printf("Catalog: %.12s imported %s\n", resp.CatalogHash, resp.CatalogImported)
	}
	if resp.RatesFetched != "" {
		fmt.Printf("Rates:   fetched %s\n", resp.RatesFetched)
	}
	for _, k := range slices.Sorted(maps.Keys(resp.Counts)) {
		fmt.Printf("  %-13s %d\n", k, resp.Counts[k])
	}
	return nil
}

func runHealth(cmd *cobra.Command, args []string) error {
	ctx, cancel := callContext()
	defer cancel()

	ok, err := daemon.Healthy(ctx)
	if err != nil {
		return err
	}
	if jsonOut {
		if err := outputJSON(map[string]bool{"serving": ok}); err != nil {
			return err
		}
	} else if ok {
		fmt.Println("SERVING")
	}
	if !ok {
		return errNotServing{profile: profileName}
	}
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx, cancel := callContext()
	defer cancel()

	resp, err := daemon.ImportCatalog(ctx)
	if err != nil {
		return err
	}
	if jsonOut {
		return outputJSON(resp)
	}
	switch {
	case resp.Missing:
		fmt.Println("No catalog file.")
	case resp.Unchanged:
		fmt.Println("Catalog unchanged.")
	default:
		fmt.Printf("Imported %.12s in %dms\n", resp.Hash, resp.DurationMS)
		for _, k := range slices.Sorted(maps.Keys(resp.Counts)) {
			fmt.Printf("  %-13s %d\n", k, resp.Counts[k])
		}
	}
	return nil
}
