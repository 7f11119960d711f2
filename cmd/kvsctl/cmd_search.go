package main

import (
	"context"
	"fmt"
	"time"

	"github.com/kvaesitso/kvs/internal/api"
	"github.com/kvaesitso/kvs/internal/search"
	"github.com/spf13/cobra"
)

var (
	searchTimeout time.Duration
	searchOnly    []string
	searchOffline bool
	searchWatch   bool
)

func registerSearchFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.DurationVar(&searchTimeout, "timeout", 2*time.Second, "how long to collect results")
	f.StringSliceVar(&searchOnly, "only", nil, "search only these categories (apps,shortcuts,contacts,events,files,articles,places,websites,tools,custom)")
	f.BoolVar(&searchOffline, "offline", false, "do not let providers use the network")
	f.BoolVar(&searchWatch, "watch", false, "print every update until interrupted")
}

func searchFilters() (search.Filters, error) {
	f := search.DefaultFilters()
	if len(searchOnly) > 0 {
		var err error
		if f, err = search.ParseFilters(searchOnly); err != nil {
			return f, err
		}
	}
	if searchOffline {
		f.AllowNetwork = false
	}
	return f, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	var query string
	if len(args) == 1 {
		query = args[0]
	}
	filters, err := searchFilters()
	if err != nil {
		return err
	}
	req := api.SearchRequest{Query: query, Filters: &filters}

	if searchWatch {
		return watchSearch(cmd.Context(), req)
	}

	req.TimeoutMS = searchTimeout.Milliseconds()
	ctx, cancel := context.WithTimeout(context.Background(), searchTimeout+callTimeout)
	defer cancel()
	u, err := daemon.Collect(ctx, req)
	if err != nil {
		return err
	}
	if jsonOut {
		return outputJSON(u.Snapshot)
	}
	printRows(u.Snapshot.Rows())
	return nil
}

func watchSearch(ctx context.Context, req api.SearchRequest) error {
	stream, err := daemon.Search(ctx, req)
	if err != nil {
		return err
	}
	for {
		u, err := stream.Recv()
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}
		if jsonOut {
			if err := outputJSON(u); err != nil {
				return err
			}
			continue
		}
		fmt.Printf("--- update %d\n", u.Seq)
		printRows(u.Snapshot.Rows())
	}
}

func printRows(rows []search.Row) {
	var last search.Category
	for _, r := range rows {
		if r.Category != last {
			fmt.Printf("%s:\n", r.Category)
			last = r.Category
		}
		if r.Detail != "" {
			fmt.Printf("  %s  (%s)\n", r.Label, r.Detail)
		} else {
			fmt.Printf("  %s\n", r.Label)
		}
	}
}
