package actions

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/kvaesitso/kvs/internal/search"
)

var refTime = time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC)

func TestClassify(t *testing.T) {
	tests := []struct {
		query    string
		typ      TextType
		at       time.Time
		timespan time.Duration
	}{
		{"jane@example.com", Email, time.Time{}, 0},
		{"+49 30 1234567", PhoneNumber, time.Time{}, 0},
		{"555-0100", PhoneNumber, time.Time{}, 0},
		{"example.com", URL, time.Time{}, 0},
		{"https://go.dev/doc", URL, time.Time{}, 0},
		{"2026-04-01", Date, time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC), 0},
		{"24.12.2026", Date, time.Date(2026, time.December, 24, 0, 0, 0, 0, time.UTC), 0},
		{"2026-04-01 18:30", DateTime, time.Date(2026, time.April, 1, 18, 30, 0, 0, time.UTC), 0},
		{"7:15", Time, time.Date(2026, time.March, 2, 7, 15, 0, 0, time.UTC), 0},
		{"6:45 PM", Time, time.Date(2026, time.March, 2, 18, 45, 0, 0, time.UTC), 0},
		{"5 min", Timespan, time.Time{}, 5 * time.Minute},
		{"90s", Timespan, time.Time{}, 90 * time.Second},
		{"2 hours", Timespan, time.Time{}, 2 * time.Hour},
		{"0 min", Text, time.Time{}, 0},
		{"pizza near me", Text, time.Time{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c := Classify(tt.query, refTime)
			if c.Type != tt.typ || !c.At.Equal(tt.at) || c.Timespan != tt.timespan {
				t.Errorf("Classify(%q) = %v at=%v span=%v; want %v at=%v span=%v",
					tt.query, c.Type, c.At, c.Timespan, tt.typ, tt.at, tt.timespan)
			}
		})
	}
}

func newTestBuilder() *Builder {
	b := NewBuilder([]WebSearch{
		{Name: "DuckDuckGo", URLTemplate: "https://duckduckgo.com/?q=${1}"},
		{Name: "Wikipedia", URLTemplate: "https://en.wikipedia.org/w/index.php?search=${1}"},
	})
	b.now = func() time.Time { return refTime }
	return b
}

func TestBuildPhone(t *testing.T) {
	got := newTestBuilder().Build("+49 30 1234567")
	want := []search.SearchAction{
		{Kind: search.ActionCall, Label: "Call +49 30 1234567", Target: "tel:+49301234567"},
		{Kind: search.ActionMessage, Label: "Message +49 30 1234567", Target: "sms:+49301234567"},
		{Kind: search.ActionContact, Label: "Add to contacts", Target: "tel:+49301234567"},
		{Kind: search.ActionWebSearch, Label: "Search DuckDuckGo", Target: "https://duckduckgo.com/?q=%2B49+30+1234567"},
		{Kind: search.ActionWebSearch, Label: "Search Wikipedia", Target: "https://en.wikipedia.org/w/index.php?search=%2B49+30+1234567"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("actions mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildKinds(t *testing.T) {
	tests := []struct {
		query  string
		kind   string
		target string
	}{
		{"jane@example.com", search.ActionEmail, "mailto:jane@example.com"},
		{"example.com", search.ActionOpenURL, "https://example.com"},
		{"http://example.com/x", search.ActionOpenURL, "http://example.com/x"},
		{"7:15", search.ActionAlarm, "07:15"},
		{"5 min", search.ActionTimer, "5m0s"},
		{"2026-04-01", search.ActionEvent, "2026-04-01"},
		{"2026-04-01 18:30", search.ActionEvent, "2026-04-01T18:30:00Z"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := newTestBuilder().Build(tt.query)
			if len(got) == 0 || got[0].Kind != tt.kind || got[0].Target != tt.target {
				t.Errorf("Build(%q) = %+v, want first %s -> %s", tt.query, got, tt.kind, tt.target)
			}
		})
	}
}

func TestBuildPlainTextOnlyWebSearch(t *testing.T) {
	got := newTestBuilder().Build("golang generics")
	if len(got) != 2 {
		t.Fatalf("got %+v", got)
	}
	for _, a := range got {
		if a.Kind != search.ActionWebSearch {
			t.Errorf("unexpected action %+v", a)
		}
	}
	if got[0].Target != "https://duckduckgo.com/?q=golang+generics" {
		t.Errorf("target = %s", got[0].Target)
	}
}

func TestBuildBlank(t *testing.T) {
	got := newTestBuilder().Build("   ")
	if got == nil || len(got) != 0 {
		t.Errorf("got %#v, want empty", got)
	}
}
