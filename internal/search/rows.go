package search

import (
	"fmt"
	"strings"
)

// Row is one result flattened for display.
type Row struct {
	Category Category
	Key      string
	Label    string
	Detail   string
}

// Rows flattens the snapshot in display order.
func (s *Snapshot) Rows() []Row {
	var rows []Row
	add := func(c Category, key, label, detail string) {
		rows = append(rows, Row{Category: c, Key: key, Label: label, Detail: detail})
	}
	for _, a := range s.Apps {
		detail := a.Package
		if a.Profile != "" && a.Profile != ProfilePersonal {
			detail += " (" + a.Profile + ")"
		}
		add(Apps, a.Key(), a.Label, detail)
	}
	for _, sc := range s.Shortcuts {
		add(Shortcuts, sc.Key(), sc.Label, sc.AppLabel)
	}
	for _, c := range s.Contacts {
		add(Contacts, c.Key(), c.Label, strings.Join(append(append([]string{}, c.Phones...), c.Emails...), ", "))
	}
	for _, e := range s.Calendar {
		layout := "Mon 2 Jan 15:04"
		if e.AllDay {
			layout = "Mon 2 Jan"
		}
		add(Calendar, e.Key(), e.Label, e.Start.Local().Format(layout))
	}
	for _, f := range s.Files {
		add(Files, f.Key(), f.Label, f.Path)
	}
	for _, a := range s.Articles {
		add(Articles, a.Key(), a.Label, a.Summary)
	}
	for _, l := range s.Locations {
		detail := fmt.Sprintf("%.0f m", l.Distance)
		if l.Category != "" {
			detail = l.Category + ", " + detail
		}
		add(Locations, l.Key(), l.Label, detail)
	}
	for _, w := range s.Websites {
		add(Websites, w.Key(), w.Label, w.URL)
	}
	for _, a := range s.Actions {
		add(Actions, a.Key(), a.Label, a.Target)
	}
	for _, c := range s.Calculators {
		detail := c.Formatted
		if len(c.Alternates) > 0 {
			detail += " (" + strings.Join(c.Alternates, ", ") + ")"
		}
		add(Calculators, c.Key(), c.Expression, detail)
	}
	for _, u := range s.UnitConverters {
		values := make([]string, 0, len(u.Values))
		for _, v := range u.Values {
			values = append(values, v.Formatted)
		}
		add(UnitConverters, u.Key(), u.Input.Formatted, strings.Join(values, ", "))
	}
	for _, c := range s.Custom {
		add(Custom, c.Key(), c.Label, strings.Join(c.Tags, ", "))
	}
	return rows
}
