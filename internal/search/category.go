package search

import (
	"fmt"
	"strings"
)

// Category identifies one independently searchable result type.
type Category string

const (
	Apps           Category = "apps"
	Shortcuts      Category = "shortcuts"
	Contacts       Category = "contacts"
	Calendar       Category = "calendar"
	Files          Category = "files"
	Articles       Category = "articles"
	Locations      Category = "locations"
	Websites       Category = "websites"
	Actions        Category = "actions"
	Calculators    Category = "calculators"
	UnitConverters Category = "unit_converters"
	Custom         Category = "custom"
)

// AllCategories lists every category in display order.
var AllCategories = []Category{
	Apps, Shortcuts, Contacts, Calendar, Files, Articles,
	Locations, Websites, Actions, Calculators, UnitConverters, Custom,
}

// Filters selects the categories searched by one invocation and whether
// providers may use the network. Search actions are not filterable.
type Filters struct {
	Apps         bool `json:"apps" toml:"apps"`
	Shortcuts    bool `json:"shortcuts" toml:"shortcuts"`
	Contacts     bool `json:"contacts" toml:"contacts"`
	Events       bool `json:"events" toml:"events"`
	Files        bool `json:"files" toml:"files"`
	Articles     bool `json:"articles" toml:"articles"`
	Places       bool `json:"places" toml:"places"`
	Websites     bool `json:"websites" toml:"websites"`
	Tools        bool `json:"tools" toml:"tools"`
	Custom       bool `json:"custom" toml:"custom"`
	AllowNetwork bool `json:"allow_network" toml:"allow_network"`
}

// DefaultFilters enables every category and allows network access.
func DefaultFilters() Filters {
	return Filters{
		Apps: true, Shortcuts: true, Contacts: true, Events: true,
		Files: true, Articles: true, Places: true, Websites: true,
		Tools: true, Custom: true, AllowNetwork: true,
	}
}

// Enabled reports whether category c is searched under these filters.
func (f Filters) Enabled(c Category) bool {
	switch c {
	case Apps:
		return f.Apps
	case Shortcuts:
		return f.Shortcuts
	case Contacts:
		return f.Contacts
	case Calendar:
		return f.Events
	case Files:
		return f.Files
	case Articles:
		return f.Articles
	case Locations:
		return f.Places
	case Websites:
		return f.Websites
	case Calculators, UnitConverters:
		return f.Tools
	case Custom:
		return f.Custom
	case Actions:
		return true
	}
	return false
}

// ParseFilters enables only the named filter switches (apps, shortcuts,
// contacts, events, files, articles, places, websites, tools, custom).
// Network access stays allowed.
func ParseFilters(names []string) (Filters, error) {
	f := Filters{AllowNetwork: true}
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "apps":
			f.Apps = true
		case "shortcuts":
			f.Shortcuts = true
		case "contacts":
			f.Contacts = true
		case "events", "calendar":
			f.Events = true
		case "files":
			f.Files = true
		case "articles":
			f.Articles = true
		case "places", "locations":
			f.Places = true
		case "websites":
			f.Websites = true
		case "tools":
			f.Tools = true
		case "custom":
			f.Custom = true
		case "":
		default:
			return Filters{}, fmt.Errorf("unknown category %q", name)
		}
	}
	return f, nil
}
