package search

// Snapshot is the combined result of one search. A nil field means the
// category has not produced results (or is not searched); a non-nil, possibly
// empty field holds the category's latest complete result list. Fields are
// replaced as a whole on every update.
type Snapshot struct {
	Apps           []Application   `json:"apps"`
	Shortcuts      []AppShortcut   `json:"shortcuts"`
	Contacts       []Contact       `json:"contacts"`
	Calendar       []CalendarEvent `json:"calendar"`
	Files          []File          `json:"files"`
	Articles       []Article       `json:"articles"`
	Locations      []Location      `json:"locations"`
	Websites       []Website       `json:"websites"`
	Actions        []SearchAction  `json:"actions"`
	Calculators    []Calculator    `json:"calculators"`
	UnitConverters []UnitConverter `json:"unit_converters"`
	Custom         []CustomItem    `json:"custom"`
}

// Loaded reports whether category c has delivered results.
func (s *Snapshot) Loaded(c Category) bool {
	switch c {
	case Apps:
		return s.Apps != nil
	case Shortcuts:
		return s.Shortcuts != nil
	case Contacts:
		return s.Contacts != nil
	case Calendar:
		return s.Calendar != nil
	case Files:
		return s.Files != nil
	case Articles:
		return s.Articles != nil
	case Locations:
		return s.Locations != nil
	case Websites:
		return s.Websites != nil
	case Actions:
		return s.Actions != nil
	case Calculators:
		return s.Calculators != nil
	case UnitConverters:
		return s.UnitConverters != nil
	case Custom:
		return s.Custom != nil
	}
	return false
}

// Count returns the number of results across all categories.
func (s *Snapshot) Count() int {
	return len(s.Apps) + len(s.Shortcuts) + len(s.Contacts) + len(s.Calendar) +
		len(s.Files) + len(s.Articles) + len(s.Locations) + len(s.Websites) +
		len(s.Actions) + len(s.Calculators) + len(s.UnitConverters) + len(s.Custom)
}

// Masked returns a copy with the categories disabled by f cleared.
func (s Snapshot) Masked(f Filters) Snapshot {
	if !f.Apps {
		s.Apps = nil
	}
	if !f.Shortcuts {
		s.Shortcuts = nil
	}
	if !f.Contacts {
		s.Contacts = nil
	}
	if !f.Events {
		s.Calendar = nil
	}
	if !f.Files {
		s.Files = nil
	}
	if !f.Articles {
		s.Articles = nil
	}
	if !f.Places {
		s.Locations = nil
	}
	if !f.Websites {
		s.Websites = nil
	}
	if !f.Tools {
		s.Calculators = nil
		s.UnitConverters = nil
	}
	if !f.Custom {
		s.Custom = nil
	}
	return s
}
