// Package actions offers things the launcher can do with the raw query
// text, such as dialling a number or searching the web for it.
package actions

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/kvaesitso/kvs/internal/search"
)

// WebSearch is a web search engine. ${1} in URLTemplate is replaced with the
// escaped query.
type WebSearch struct {
	Name        string
	URLTemplate string
}

// Builder produces search actions for queries.
type Builder struct {
	engines []WebSearch
	now     func() time.Time
}

// NewBuilder creates a Builder offering the given web searches.
func NewBuilder(engines []WebSearch) *Builder {
	return &Builder{engines: engines, now: time.Now}
}

// Build returns the actions for query. A blank query has none.
func (b *Builder) Build(query string) []search.SearchAction {
	if strings.TrimSpace(query) == "" {
		return []search.SearchAction{}
	}
	c := Classify(query, b.now())
	out := []search.SearchAction{}
	add := func(kind, label, target string) {
		out = append(out, search.SearchAction{Kind: kind, Label: label, Target: target})
	}

	switch c.Type {
	case PhoneNumber:
		number := strings.Map(func(r rune) rune {
			if r == '+' || r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, c.Text)
		add(search.ActionCall, "Call "+c.Text, "tel:"+number)
		add(search.ActionMessage, "Message "+c.Text, "sms:"+number)
		add(search.ActionContact, "Add to contacts", "tel:"+number)
	case Email:
		add(search.ActionEmail, "Write to "+c.Text, "mailto:"+c.Text)
		add(search.ActionContact, "Add to contacts", "mailto:"+c.Text)
	case URL:
		target := c.Text
		if lower := strings.ToLower(target); !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
			target = "https://" + target
		}
		add(search.ActionOpenURL, "Open "+c.Text, target)
	case Time:
		add(search.ActionAlarm, "Set alarm for "+c.At.Format("15:04"), c.At.Format("15:04"))
	case Timespan:
		add(search.ActionTimer, "Start timer for "+c.Timespan.String(), c.Timespan.String())
	case DateTime:
		add(search.ActionEvent, "Create event on "+c.At.Format("Mon 2 Jan 2006 15:04"), c.At.Format(time.RFC3339))
	case Date:
		add(search.ActionEvent, "Create event on "+c.At.Format("Mon 2 Jan 2006"), c.At.Format(time.DateOnly))
	}

	for _, e := range b.engines {
		add(search.ActionWebSearch, "Search "+e.Name, strings.ReplaceAll(e.URLTemplate, "${1}", url.QueryEscape(c.Text)))
	}
	return out
}

// Search implements search.Repository.
func (b *Builder) Search(ctx context.Context, query string, _ bool, emit func([]search.SearchAction)) error {
	emit(b.Build(query))
	return nil
}
