package keys

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/google/go-cmp/cmp"
)

func TestHandleEventPrefersView(t *testing.T) {
	r := NewRegistry()
	var got []string
	r.AddGlobal(&Action{Key: tcell.KeyRune, Rune: 'q', Hint: "q", Description: "quit", Handler: func() { got = append(got, "global-q") }})
	r.AddGlobal(&Action{Key: tcell.KeyCtrlN, Handler: func() { got = append(got, "ctrl-n") }})
	r.AddView("results", &Action{Key: tcell.KeyRune, Rune: 'q', Handler: func() { got = append(got, "view-q") }})

	r.HandleEvent("results", tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone))
	r.HandleEvent("query", tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone))
	r.HandleEvent("query", tcell.NewEventKey(tcell.KeyCtrlN, 0, tcell.ModCtrl))
	if r.HandleEvent("query", tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone)) {
		t.Error("unbound key handled")
	}

	if diff := cmp.Diff([]string{"view-q", "global-q", "ctrl-n"}, got); diff != "" {
		t.Errorf("handlers mismatch (-want +got):\n%s", diff)
	}
}

func TestHintsOrder(t *testing.T) {
	r := NewRegistry()
	r.AddGlobal(&Action{Key: tcell.KeyRune, Rune: '?', Hint: "?", Description: "help", Handler: func() {}})
	r.AddGlobal(&Action{Key: tcell.KeyCtrlR, Handler: func() {}})
	r.AddView("results", &Action{Key: tcell.KeyRune, Rune: 'l', Hint: "l", Description: "rename", Handler: func() {}})
	r.AddView("results", &Action{Key: tcell.KeyRune, Rune: 'u', Hint: "u", Description: "reset", Handler: func() {}})

	want := []Hint{{"l", "rename"}, {"u", "reset"}, {"?", "help"}}
	if diff := cmp.Diff(want, r.Hints("results")); diff != "" {
		t.Errorf("hints mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Hint{{"?", "help"}}, r.Hints("query")); diff != "" {
		t.Errorf("query hints mismatch (-want +got):\n%s", diff)
	}
}
