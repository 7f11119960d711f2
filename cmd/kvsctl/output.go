package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func callContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), callTimeout)
}

// errNotServing is returned by health so the exit status reflects it.
type errNotServing struct{ profile string }

func (e errNotServing) Error() string {
	return fmt.Sprintf("daemon for profile %q is not serving", e.profile)
}
