package openinghours

import (
	"fmt"
	"strings"
	"time"
)

// Interval is a single weekly opening period. Start is the offset from
// midnight of Day; Duration may run past midnight into the next day.
type Interval struct {
	Day      time.Weekday  `json:"day"`
	Start    time.Duration `json:"start"`
	Duration time.Duration `json:"duration"`
}

// End returns the offset from midnight of Day at which the interval closes.
// Values above 24h close on a following day.
func (i Interval) End() time.Duration {
	return i.Start + i.Duration
}

// Schedule is a parsed weekly opening schedule.
type Schedule struct {
	TwentyFourSeven bool       `json:"twenty_four_seven"`
	Hours           []Interval `json:"hours"`
}

// AlwaysOpen returns the schedule for the literal "24/7" expression.
func AlwaysOpen() *Schedule {
	return &Schedule{TwentyFourSeven: true}
}

// IsOpen reports whether the schedule is open at t, in t's location.
func (s *Schedule) IsOpen(t time.Time) bool {
	if s == nil {
		return false
	}
	if s.TwentyFourSeven {
		return true
	}
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	for _, iv := range s.Hours {
		back := (int(t.Weekday()) - int(iv.Day) + 7) % 7
		// An overnight interval that started a week ago can still be open.
		for _, days := range []int{back, back + 7} {
			start := midnight.AddDate(0, 0, -days).Add(iv.Start)
			if !t.Before(start) && t.Before(start.Add(iv.Duration)) {
				return true
			}
		}
	}
	return false
}

// ForDay returns the intervals starting on day, in schedule order.
func (s *Schedule) ForDay(day time.Weekday) []Interval {
	if s == nil {
		return nil
	}
	var out []Interval
	for _, iv := range s.Hours {
		if iv.Day == day {
			out = append(out, iv)
		}
	}
	return out
}

// String renders the schedule back in opening_hours notation, one rule per
// open day.
func (s *Schedule) String() string {
	if s == nil {
		return ""
	}
	if s.TwentyFourSeven {
		return "24/7"
	}
	var rules []string
	for _, day := range weekOrder {
		ivs := s.ForDay(day)
		if len(ivs) == 0 {
			continue
		}
		spans := make([]string, 0, len(ivs))
		for _, iv := range ivs {
			spans = append(spans, formatClock(iv.Start)+"-"+formatEnd(iv.End()))
		}
		rules = append(rules, dayNames[day]+" "+strings.Join(spans, ","))
	}
	if len(rules) == 0 {
		return "closed"
	}
	return strings.Join(rules, "; ")
}

func formatClock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d/time.Hour), int(d%time.Hour/time.Minute))
}

func formatEnd(end time.Duration) string {
	if end == 24*time.Hour {
		return "24:00"
	}
	return formatClock(end % (24 * time.Hour))
}

// weekOrder is the ISO week order used for output.
var weekOrder = [7]time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

var dayNames = map[time.Weekday]string{
	time.Monday:    "Mo",
	time.Tuesday:   "Tu",
	time.Wednesday: "We",
	time.Thursday:  "Th",
	time.Friday:    "Fr",
	time.Saturday:  "Sa",
	time.Sunday:    "Su",
}

// isoIndex maps a weekday to its position in weekOrder.
func isoIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}
