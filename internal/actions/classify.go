package actions

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TextType is what a query looks like.
type TextType int

const (
	Text TextType = iota
	Email
	URL
	PhoneNumber
	DateTime
	Date
	Time
	Timespan
)

func (t TextType) String() string {
	switch t {
	case Email:
		return "email"
	case URL:
		return "url"
	case PhoneNumber:
		return "phone"
	case DateTime:
		return "datetime"
	case Date:
		return "date"
	case Time:
		return "time"
	case Timespan:
		return "timespan"
	}
	return "text"
}

// Classification is the result of Classify. Only the fields matching Type
// are set.
type Classification struct {
	Type     TextType
	Text     string
	At       time.Time
	Timespan time.Duration
}

var (
	emailRegexp    = regexp.MustCompile(`^\S+@\S+$`)
	phoneRegexp    = regexp.MustCompile(`^\+?[0-9- /.]{4,18}$`)
	urlRegexp      = regexp.MustCompile(`^(?:https?://)?(?:www\.)?[-a-zA-Z0-9@:%._+~#=]{2,256}\.[a-z]{2,6}\b[-a-zA-Z0-9@:%_+.~#?&/=]*$`)
	timespanRegexp = regexp.MustCompile(`^([0-9]+)\s*([a-z]+)$`)
)

var timespanUnits = map[string]time.Duration{
	"s": time.Second, "sec": time.Second, "secs": time.Second, "second": time.Second, "seconds": time.Second,
	"m": time.Minute, "min": time.Minute, "mins": time.Minute, "minute": time.Minute, "minutes": time.Minute,
	"h": time.Hour, "hr": time.Hour, "hrs": time.Hour, "hour": time.Hour, "hours": time.Hour,
	"d": 24 * time.Hour, "day": 24 * time.Hour, "days": 24 * time.Hour,
}

var (
	dateTimeLayouts = []string{"2006-01-02 15:04", "2006-01-02T15:04", "02.01.2006 15:04", "1/2/2006 15:04"}
	dateLayouts     = []string{"2006-01-02", "02.01.2006", "1/2/2006"}
	timeLayouts     = []string{"15:04", "3:04pm", "3:04 pm", "3pm", "3 pm"}
)

// Classify decides what kind of text query is. Dates and times are
// interpreted in now's location.
func Classify(query string, now time.Time) Classification {
	q := strings.TrimSpace(query)
	c := Classification{Type: Text, Text: q}
	if emailRegexp.MatchString(q) {
		c.Type = Email
		return c
	}

	// Numeric dates would otherwise pass as phone numbers.
	loc := now.Location()
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, q, loc); err == nil {
			c.Type, c.At = DateTime, t
			return c
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, q, loc); err == nil {
			c.Type, c.At = Date, t
			return c
		}
	}

	switch {
	case phoneRegexp.MatchString(q):
		c.Type = PhoneNumber
		return c
	case urlRegexp.MatchString(q):
		c.Type = URL
		return c
	}

	lower := strings.ToLower(q)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, lower, loc); err == nil {
			c.Type = Time
			c.At = time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, loc)
			return c
		}
	}
	if m := timespanRegexp.FindStringSubmatch(lower); m != nil {
		if unit, ok := timespanUnits[m[2]]; ok {
			if n, err := strconv.ParseInt(m[1], 10, 32); err == nil && n > 0 {
				c.Type, c.Timespan = Timespan, time.Duration(n)*unit
				return c
			}
		}
	}
	return c
}
