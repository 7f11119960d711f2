package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/kvaesitso/kvs/internal/search"
)

func TestSearchFilters(t *testing.T) {
	tests := []struct {
		name    string
		only    []string
		offline bool
		want    search.Filters
		wantErr bool
	}{
		{name: "default", want: search.DefaultFilters()},
		{
			name:    "offline",
			offline: true,
			want: func() search.Filters {
				f := search.DefaultFilters()
				f.AllowNetwork = false
				return f
			}(),
		},
		{
			name: "only",
			only: []string{"apps", " Tools"},
			want: search.Filters{Apps: true, Tools: true, AllowNetwork: true},
		},
		{name: "unknown", only: []string{"music"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searchOnly, searchOffline = tt.only, tt.offline
			t.Cleanup(func() { searchOnly, searchOffline = nil, false })

			got, err := searchFilters()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("filters mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
