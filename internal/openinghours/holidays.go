package openinghours

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Dates is a HolidayCalendar holding fixed calendar dates.
type Dates map[string]struct{}

// ParseDates builds a calendar from YYYY-MM-DD strings.
func ParseDates(dates []string) (Dates, error) {
	d := make(Dates, len(dates))
	for _, s := range dates {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return nil, fmt.Errorf("parse holiday %q: %w", s, err)
		}
		d[t.Format(dateLayout)] = struct{}{}
	}
	return d, nil
}

// IsHoliday implements HolidayCalendar.
func (d Dates) IsHoliday(date time.Time) bool {
	_, ok := d[date.Format(dateLayout)]
	return ok
}
