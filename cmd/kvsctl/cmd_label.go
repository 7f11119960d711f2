package main

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"
)

func runLabelSet(cmd *cobra.Command, args []string) error {
	ctx, cancel := callContext()
	defer cancel()
	return daemon.SetLabel(ctx, args[0], args[1])
}

func runLabelClear(cmd *cobra.Command, args []string) error {
	ctx, cancel := callContext()
	defer cancel()
	return daemon.SetLabel(ctx, args[0], "")
}

func runLabelList(cmd *cobra.Command, args []string) error {
	ctx, cancel := callContext()
	defer cancel()

	labels, err := daemon.Labels(ctx)
	if err != nil {
		return err
	}
	if jsonOut {
		return outputJSON(labels)
	}
	for _, k := range slices.Sorted(maps.Keys(labels)) {
		fmt.Printf("%s\t%s\n", k, labels[k])
	}
	return nil
}
