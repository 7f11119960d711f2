package store

// App is an installed application.
type App struct {
	Package  string
	Activity string
	Label    string
	Profile  string // personal, work, private
}

// Shortcut is an app shortcut. AppLabel is resolved from apps on read.
type Shortcut struct {
	Package    string
	ShortcutID string
	Label      string
	AppLabel   string
}

// Contact is an address book entry.
type Contact struct {
	ID     int64
	Name   string
	Phones []string
	Emails []string
}

// Event is a calendar entry. Times are unix milliseconds.
type Event struct {
	ID       int64
	Title    string
	StartsAt int64
	EndsAt   int64
	AllDay   bool
	Location string
	Calendar string
}

// CustomItem is a user defined searchable entry.
type CustomItem struct {
	ID     string
	Label  string
	Target string
	Tags   []string
}

// Label is a user defined label for a result key.
type Label struct {
	Key   string
	Label string
}
