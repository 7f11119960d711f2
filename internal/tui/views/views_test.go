package views

import (
	"testing"

	"github.com/kvaesitso/kvs/internal/search"
	"github.com/kvaesitso/kvs/internal/tui/ui"
)

func TestLayoutGroupsByCategory(t *testing.T) {
	rows := []search.Row{
		{Category: search.Apps, Key: "a1", Label: "Firefox"},
		{Category: search.Apps, Key: "a2", Label: "Files"},
		{Category: search.Actions, Key: "x1", Label: "Search Web"},
	}
	lines := layout(rows)

	var got []string
	for _, l := range lines {
		if l.row == nil {
			got = append(got, "#"+string(l.header))
		} else {
			got = append(got, l.row.Key)
		}
	}
	want := []string{"#apps", "a1", "a2", "#actions", "x1"}
	if len(got) != len(want) {
		t.Fatalf("lines = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCellText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Firefox", "Firefox"},
		{"two\nlines\there", "two lines here"},
		{"  padded  ", "padded"},
		{"bell\x07", "bell"},
		{"\U0001F44D\U0001F3FB ok", "\U0001F44D ok"},
		{"\U0001F468\u200D\U0001F469", "\U0001F468\U0001F469"},
	}
	for _, tt := range tests {
		if got := cellText(tt.in); got != tt.want {
			t.Errorf("cellText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSearchViewKeepsSelectionByKey(t *testing.T) {
	sv := NewSearchView(ui.DefaultTheme())
	sv.Update([]search.Row{
		{Category: search.Apps, Key: "a1", Label: "Firefox"},
		{Category: search.Apps, Key: "a2", Label: "Files"},
	})
	if r, ok := sv.Selected(); !ok || r.Key != "a1" {
		t.Fatalf("initial selection = %+v, %v", r, ok)
	}
	sv.Results().Select(2, 0)

	sv.Update([]search.Row{
		{Category: search.Apps, Key: "a0", Label: "Atlas"},
		{Category: search.Apps, Key: "a1", Label: "Firefox"},
		{Category: search.Apps, Key: "a2", Label: "Files"},
	})
	if r, ok := sv.Selected(); !ok || r.Key != "a2" {
		t.Errorf("selection = %+v, want a2 kept", r)
	}

	sv.Update(nil)
	if _, ok := sv.Selected(); ok {
		t.Error("selection survived an empty update")
	}
}
