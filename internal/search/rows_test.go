package search

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRowsFollowDisplayOrder(t *testing.T) {
	s := Snapshot{
		Custom:  []CustomItem{{ID: "vpn", Label: "Office VPN", Tags: []string{"work", "net"}}},
		Actions: []SearchAction{{Kind: ActionWebSearch, Label: "Search Web", Target: "https://example.com/?q=x"}},
		Apps: []Application{
			{Package: "org.mozilla.firefox", Activity: "App", Label: "Firefox"},
			{Package: "com.slack", Activity: "Main", Label: "Slack", Profile: ProfileWork},
		},
		Calculators: []Calculator{{Expression: "0x10", Formatted: "16", Alternates: []string{"0b10000"}}},
	}
	want := []Row{
		{Apps, "app://org.mozilla.firefox/App", "Firefox", "org.mozilla.firefox"},
		{Apps, "app://com.slack/Main@work", "Slack", "com.slack (work)"},
		{Actions, "action://web_search/https://example.com/?q=x", "Search Web", "https://example.com/?q=x"},
		{Calculators, "calculator://0x10", "0x10", "16 (0b10000)"},
		{Custom, "custom://vpn", "Office VPN", "work, net"},
	}
	if diff := cmp.Diff(want, s.Rows()); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestRowsEmpty(t *testing.T) {
	var s Snapshot
	if rows := s.Rows(); rows != nil {
		t.Errorf("rows = %v, want nil", rows)
	}
}
