// Package openinghours parses a subset of the OpenStreetMap opening_hours
// syntax into a weekly schedule evaluated at a reference date.
package openinghours

import (
	"slices"
	"strings"
	"time"
)

// HolidayCalendar resolves public holidays for PH selectors.
type HolidayCalendar interface {
	IsHoliday(date time.Time) bool
}

// HolidayFunc adapts a function to HolidayCalendar.
type HolidayFunc func(date time.Time) bool

// IsHoliday implements HolidayCalendar.
func (f HolidayFunc) IsHoliday(date time.Time) bool { return f(date) }

// Option configures evaluation.
type Option func(*evaluator)

// WithHolidays resolves PH selectors against cal. Without it, PH matches no day.
func WithHolidays(cal HolidayCalendar) Option {
	return func(e *evaluator) { e.holidays = cal }
}

// Parse evaluates expr against the current time.
func Parse(expr string, opts ...Option) *Schedule {
	return ParseAt(expr, time.Now(), opts...)
}

// ParseAt evaluates expr for the week containing at. It returns nil when expr
// holds no rules, an always-open schedule for exactly "24/7", and otherwise the net effect
// of all rules applied left to right. Unconditional rules add hours to the
// days they name; rules qualified by month, week, date, nth weekday or holiday
// replace the hours of their days; off rules clear them. Rules that cannot be
// understood are skipped.
func ParseAt(expr string, at time.Time, opts ...Option) *Schedule {
	expr = strings.TrimSpace(expr)
	if expr == "24/7" {
		return AlwaysOpen()
	}
	expr = commentRegexp.ReplaceAllString(expr, " ")
	// Fallback rules ("||") are treated as ordinary rules.
	expr = strings.ReplaceAll(expr, "||", ";")

	var rules []*rule
	for _, clause := range strings.Split(expr, ";") {
		if tokens := tokenize(clause); len(tokens) > 0 {
			rules = append(rules, parseRule(tokens)...)
		}
	}
	if len(rules) == 0 {
		return nil
	}

	e := &evaluator{at: at}
	for _, opt := range opts {
		opt(e)
	}
	for _, r := range rules {
		e.apply(r)
	}
	return e.schedule()
}

type evaluator struct {
	at       time.Time
	holidays HolidayCalendar
	days     [7][]span
}

func (e *evaluator) apply(r *rule) {
	if r.unsupported {
		return
	}
	if r.months != 0 && !r.months.has(e.at.Month()) {
		return
	}
	if len(r.weeks) > 0 && !e.inWeeks(r.weeks) {
		return
	}

	days := e.selectDays(r)
	if days == 0 {
		return
	}

	times := r.times
	if len(times) == 0 {
		times = []span{{duration: 24 * time.Hour}}
	}
	for _, d := range weekOrder {
		if !days.has(d) {
			continue
		}
		switch {
		case r.off:
			e.days[d] = nil
		case r.additional || !r.qualified():
			e.days[d] = appendUnique(e.days[d], times)
		default:
			e.days[d] = append([]span(nil), times...)
		}
	}
}

// selectDays returns the weekdays a rule touches in the reference week.
func (e *evaluator) selectDays(r *rule) daySet {
	if !r.hasDaySelector() {
		return allDays
	}
	days := r.weekdays
	for d, ranges := range r.nth {
		if !r.plainWeekdays.has(d) && !inNth(e.dateOf(d), ranges) {
			days &^= 1 << d
		}
	}
	if r.holidays && e.holidays != nil {
		for _, d := range weekOrder {
			if e.holidays.IsHoliday(e.dateOf(d)) {
				days.add(d)
			}
		}
	}
	if len(r.dates) > 0 {
		var inRange daySet
		for _, d := range weekOrder {
			date := e.dateOf(d)
			for _, dr := range r.dates {
				if dr.contains(date) {
					inRange.add(d)
				}
			}
		}
		if days == 0 && !r.holidays && !r.schoolHolidays {
			days = allDays
		}
		days &= inRange
	}
	return days
}

// dateOf returns the date of weekday d in the ISO week containing the
// reference time.
func (e *evaluator) dateOf(d time.Weekday) time.Time {
	y, m, day := e.at.Date()
	midnight := time.Date(y, m, day, 0, 0, 0, 0, e.at.Location())
	return midnight.AddDate(0, 0, isoIndex(d)-isoIndex(e.at.Weekday()))
}

func (e *evaluator) inWeeks(weeks []weekRange) bool {
	_, week := e.at.ISOWeek()
	for _, w := range weeks {
		if w.contains(week) {
			return true
		}
	}
	return false
}

// inNth reports whether date's day of month lies in one of the occurrence
// windows: occurrence n covers days 7(n-1)+1 .. 7n, and -n counts the same
// windows back from the last day of the month.
func inNth(date time.Time, ranges []nthRange) bool {
	dom := date.Day()
	last := daysIn(date.Month(), date.Year())
	for _, r := range ranges {
		for n := r.from; n <= r.to; n++ {
			var lo, hi int
			if n > 0 {
				lo, hi = 7*(n-1)+1, 7*n
			} else {
				lo, hi = last+7*n+1, last+7*(n+1)
			}
			if dom >= lo && dom <= hi {
				return true
			}
		}
	}
	return false
}

func (e *evaluator) schedule() *Schedule {
	s := &Schedule{Hours: []Interval{}}
	for _, d := range weekOrder {
		for _, sp := range e.days[d] {
			s.Hours = append(s.Hours, Interval{Day: d, Start: sp.start, Duration: sp.duration})
		}
	}
	return s
}

func appendUnique(dst, src []span) []span {
	for _, s := range src {
		if !slices.Contains(dst, s) {
			dst = append(dst, s)
		}
	}
	return dst
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
