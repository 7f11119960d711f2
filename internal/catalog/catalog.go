// Package catalog loads the searchable items of a profile from a TOML file
// into the store.
package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// Catalog is the content of catalog.toml.
type Catalog struct {
	Apps      []App             `toml:"apps" validate:"dive"`
	Shortcuts []Shortcut        `toml:"shortcuts" validate:"dive"`
	Contacts  []Contact         `toml:"contacts" validate:"dive"`
	Events    []Event           `toml:"events" validate:"dive"`
	Custom    []CustomItem      `toml:"custom" validate:"dive"`
	Labels    map[string]string `toml:"labels"`
}

// App is an installed application.
type App struct {
	Package  string `toml:"package" validate:"required"`
	Activity string `toml:"activity" validate:"required"`
	Label    string `toml:"label" validate:"required"`
	Profile  string `toml:"profile" validate:"omitempty,oneof=personal work private"`
}

// Shortcut is an app shortcut.
type Shortcut struct {
	Package string `toml:"package" validate:"required"`
	ID      string `toml:"id" validate:"required"`
	Label   string `toml:"label" validate:"required"`
}

// Contact is an address book entry.
type Contact struct {
	ID     int64    `toml:"id" validate:"gt=0"`
	Name   string   `toml:"name" validate:"required"`
	Phones []string `toml:"phones" validate:"dive,required"`
	Emails []string `toml:"emails" validate:"dive,email"`
}

// Event is a calendar entry.
type Event struct {
	ID       int64     `toml:"id" validate:"gt=0"`
	Title    string    `toml:"title" validate:"required"`
	Start    time.Time `toml:"start" validate:"required"`
	End      time.Time `toml:"end"`
	AllDay   bool      `toml:"all_day"`
	Location string    `toml:"location"`
	Calendar string    `toml:"calendar"`
}

// CustomItem is a user defined entry.
type CustomItem struct {
	ID     string   `toml:"id" validate:"required"`
	Label  string   `toml:"label" validate:"required"`
	Target string   `toml:"target"`
	Tags   []string `toml:"tags"`
}

var validate = validator.New()

// Decode parses and validates a catalog document.
func Decode(data []byte) (*Catalog, error) {
	var c Catalog
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("decode catalog: unknown keys %s", strings.Join(keys, ", "))
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks field constraints and key uniqueness.
func (c *Catalog) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid catalog: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid catalog: %w", err)
	}
	for _, e := range c.Events {
		if !e.End.IsZero() && e.End.Before(e.Start) {
			return fmt.Errorf("invalid catalog: event %d ends before it starts", e.ID)
		}
	}
	seen := map[string]bool{}
	for _, it := range c.Custom {
		if seen[it.ID] {
			return fmt.Errorf("invalid catalog: duplicate custom item %q", it.ID)
		}
		seen[it.ID] = true
	}
	return nil
}
