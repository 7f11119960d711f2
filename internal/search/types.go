package search

import (
	"strconv"
	"time"

	"github.com/kvaesitso/kvs/internal/openinghours"
)

// Profile values for Application.Profile.
const (
	ProfilePersonal = "personal"
	ProfileWork     = "work"
	ProfilePrivate  = "private"
)

// Application is a launchable app.
type Application struct {
	Package  string `json:"package"`
	Activity string `json:"activity"`
	Label    string `json:"label"`
	Profile  string `json:"profile"`
}

func (a Application) Key() string {
	key := "app://" + a.Package + "/" + a.Activity
	if a.Profile != "" && a.Profile != ProfilePersonal {
		key += "@" + a.Profile
	}
	return key
}

func (a Application) Relabel(label string) Application { a.Label = label; return a }

// AppShortcut is a pinned or dynamic app shortcut.
type AppShortcut struct {
	Package    string `json:"package"`
	ShortcutID string `json:"shortcut_id"`
	Label      string `json:"label"`
	AppLabel   string `json:"app_label"`
}

func (s AppShortcut) Key() string { return "shortcut://" + s.Package + "/" + s.ShortcutID }

func (s AppShortcut) Relabel(label string) AppShortcut { s.Label = label; return s }

// Contact is an address book entry.
type Contact struct {
	ID     int64    `json:"id"`
	Label  string   `json:"label"`
	Phones []string `json:"phones,omitempty"`
	Emails []string `json:"emails,omitempty"`
}

func (c Contact) Key() string { return "contact://" + strconv.FormatInt(c.ID, 10) }

func (c Contact) Relabel(label string) Contact { c.Label = label; return c }

// CalendarEvent is a single calendar entry.
type CalendarEvent struct {
	ID       int64     `json:"id"`
	Label    string    `json:"label"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	AllDay   bool      `json:"all_day"`
	Location string    `json:"location,omitempty"`
	Calendar string    `json:"calendar,omitempty"`
}

func (e CalendarEvent) Key() string { return "calendar://" + strconv.FormatInt(e.ID, 10) }

func (e CalendarEvent) Relabel(label string) CalendarEvent { e.Label = label; return e }

// File is a local file or directory.
type File struct {
	Path      string    `json:"path"`
	Label     string    `json:"label"`
	MimeType  string    `json:"mime_type,omitempty"`
	Size      int64     `json:"size"`
	ModTime   time.Time `json:"mod_time"`
	Directory bool      `json:"directory"`
}

func (f File) Key() string { return "file://" + f.Path }

func (f File) Relabel(label string) File { f.Label = label; return f }

// Article is an encyclopedia page summary.
type Article struct {
	Source   string `json:"source"`
	PageID   int64  `json:"page_id"`
	Label    string `json:"label"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
	ImageURL string `json:"image_url,omitempty"`
}

func (a Article) Key() string { return a.Source + "://" + strconv.FormatInt(a.PageID, 10) }

func (a Article) Relabel(label string) Article { a.Label = label; return a }

// Location is a point of interest.
type Location struct {
	Source       string                 `json:"source"`
	ID           int64                  `json:"id"`
	Label        string                 `json:"label"`
	Category     string                 `json:"category,omitempty"`
	Latitude     float64                `json:"latitude"`
	Longitude    float64                `json:"longitude"`
	Street       string                 `json:"street,omitempty"`
	HouseNumber  string                 `json:"house_number,omitempty"`
	OpeningHours string                 `json:"opening_hours,omitempty"`
	Schedule     *openinghours.Schedule `json:"schedule,omitempty"`
	Website      string                 `json:"website,omitempty"`
	Phone        string                 `json:"phone,omitempty"`
	Distance     float64                `json:"distance_m"`
}

func (l Location) Key() string { return l.Source + "://" + strconv.FormatInt(l.ID, 10) }

func (l Location) Relabel(label string) Location { l.Label = label; return l }

// Website is a web page preview.
type Website struct {
	URL         string `json:"url"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	FaviconURL  string `json:"favicon_url,omitempty"`
	Color       string `json:"color,omitempty"`
}

func (w Website) Key() string { return w.URL }

func (w Website) Relabel(label string) Website { w.Label = label; return w }

// Action kinds.
const (
	ActionCall      = "call"
	ActionMessage   = "message"
	ActionContact   = "create_contact"
	ActionEmail     = "email"
	ActionOpenURL   = "open_url"
	ActionWebSearch = "web_search"
	ActionAlarm     = "alarm"
	ActionTimer     = "timer"
	ActionEvent     = "create_event"
)

// SearchAction is something the launcher can do with the query text.
type SearchAction struct {
	Kind   string `json:"kind"`
	Label  string `json:"label"`
	Target string `json:"target"`
}

func (a SearchAction) Key() string { return "action://" + a.Kind + "/" + a.Target }

// Calculator is the result of evaluating the query as an expression.
type Calculator struct {
	Expression string   `json:"expression"`
	Value      float64  `json:"value"`
	Formatted  string   `json:"formatted"`
	Alternates []string `json:"alternates,omitempty"`
}

func (c Calculator) Key() string { return "calculator://" + c.Expression }

// Quantity is a value in a unit.
type Quantity struct {
	Value     float64 `json:"value"`
	Unit      string  `json:"unit"`
	Formatted string  `json:"formatted"`
}

// UnitConverter is the query converted into related units.
type UnitConverter struct {
	Dimension string     `json:"dimension"`
	Input     Quantity   `json:"input"`
	Values    []Quantity `json:"values"`
}

func (u UnitConverter) Key() string { return "unitconverter://" + u.Dimension + "/" + u.Input.Unit }

// CustomItem is a user defined entry with free-form tags.
type CustomItem struct {
	ID     string   `json:"id"`
	Label  string   `json:"label"`
	Target string   `json:"target"`
	Tags   []string `json:"tags,omitempty"`
}

func (c CustomItem) Key() string { return "custom://" + c.ID }

func (c CustomItem) Relabel(label string) CustomItem { c.Label = label; return c }
