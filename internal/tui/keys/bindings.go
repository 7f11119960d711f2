// Package keys maps key events to TUI actions.
package keys

import "github.com/gdamore/tcell/v2"

// Action represents a keybinding action.
type Action struct {
	Key         tcell.Key
	Rune        rune
	Hint        string // key shown in the menu, empty hides the action
	Description string
	Handler     func()
}

// Matches returns true if the event matches this action.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

// Registry holds keybindings by scope, in registration order.
type Registry struct {
	global []*Action
	views  map[string][]*Action
}

// NewRegistry creates a new keybinding registry.
func NewRegistry() *Registry {
	return &Registry{views: make(map[string][]*Action)}
}

// AddGlobal registers a binding active in every view.
func (r *Registry) AddGlobal(action *Action) {
	r.global = append(r.global, action)
}

// AddView registers a view-specific binding.
func (r *Registry) AddView(view string, action *Action) {
	r.views[view] = append(r.views[view], action)
}

// Hint is a key and its description.
type Hint struct {
	Key         string
	Description string
}

// Hints returns the visible bindings for view, view bindings first.
func (r *Registry) Hints(view string) []Hint {
	var hints []Hint
	for _, list := range [][]*Action{r.views[view], r.global} {
		for _, a := range list {
			if a.Hint != "" {
				hints = append(hints, Hint{Key: a.Hint, Description: a.Description})
			}
		}
	}
	return hints
}

// HandleEvent runs the first binding in view, then global, that matches ev.
// It reports whether one matched.
func (r *Registry) HandleEvent(view string, ev *tcell.EventKey) bool {
	for _, list := range [][]*Action{r.views[view], r.global} {
		for _, a := range list {
			if a.Matches(ev) {
				a.Handler()
				return true
			}
		}
	}
	return false
}
