package search

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseFilters(t *testing.T) {
	tests := []struct {
		names   []string
		want    Filters
		wantErr bool
	}{
		{names: nil, want: Filters{AllowNetwork: true}},
		{names: []string{"apps", " Places", "calendar"}, want: Filters{Apps: true, Places: true, Events: true, AllowNetwork: true}},
		{names: []string{"tools", ""}, want: Filters{Tools: true, AllowNetwork: true}},
		{names: []string{"music"}, wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseFilters(tt.names)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseFilters(%v) succeeded, want error", tt.names)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseFilters(%v): %v", tt.names, err)
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("ParseFilters(%v) mismatch (-want +got):\n%s", tt.names, diff)
		}
	}
}

func TestFiltersEnabled(t *testing.T) {
	f := Filters{Tools: true}
	for _, c := range AllCategories {
		want := c == Calculators || c == UnitConverters || c == Actions
		if got := f.Enabled(c); got != want {
			t.Errorf("Enabled(%s) = %v, want %v", c, got, want)
		}
	}
}
