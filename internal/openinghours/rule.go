package openinghours

import (
	"strconv"
	"strings"
	"time"
)

// daySet is a bitmask indexed by time.Weekday.
type daySet uint8

const allDays daySet = 1<<7 - 1

func (s daySet) has(d time.Weekday) bool { return s&(1<<d) != 0 }

func (s *daySet) add(d time.Weekday) { *s |= 1 << d }

// addRange adds from..to in ISO week order, wrapping past Sunday.
func (s *daySet) addRange(from, to time.Weekday) {
	i, j := isoIndex(from), isoIndex(to)
	for {
		s.add(weekOrder[i])
		if i == j {
			return
		}
		i = (i + 1) % 7
	}
}

// monthSet is a bitmask indexed by time.Month.
type monthSet uint16

func (s monthSet) has(m time.Month) bool { return s&(1<<m) != 0 }

func (s *monthSet) addRange(from, to time.Month) {
	for m := from; ; m = m%12 + 1 {
		*s |= 1 << m
		if m == to {
			return
		}
	}
}

type phase int

const (
	phaseSelectors phase = iota
	phaseTimes
	phaseModifier
)

// rule is one parsed clause. A zero selector field means "not constrained".
type rule struct {
	weekdays daySet
	// nth restricts a weekday to some of its occurrences in the month.
	// Weekdays also named without brackets stay unrestricted.
	nth            map[time.Weekday][]nthRange
	plainWeekdays  daySet
	holidays       bool
	schoolHolidays bool // needs a regional calendar, never matches
	months         monthSet
	dates          []dateRange
	weeks          []weekRange
	times          []span
	off            bool
	// additional rules follow a comma and add to earlier hours instead of
	// replacing them.
	additional  bool
	unsupported bool
}

func (r *rule) hasDaySelector() bool {
	return r.weekdays != 0 || r.holidays || r.schoolHolidays || len(r.dates) > 0
}

// qualified reports whether the rule only holds on some dates.
func (r *rule) qualified() bool {
	return r.months != 0 || len(r.nth) > 0 || len(r.weeks) > 0 || len(r.dates) > 0 || r.holidays
}

// parseRule turns the tokens of one ';'-separated clause into a primary rule
// followed by any comma-joined additional rules.
func parseRule(tokens []string) []*rule {
	var (
		rules []*rule
		cur   = &rule{}
		ph    = phaseSelectors
		empty = true
	)
	next := func(i int) string {
		if i+1 < len(tokens) {
			return tokens[i+1]
		}
		return ""
	}

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		lower := strings.ToLower(tok)

		if tok == "," {
			if ph == phaseSelectors {
				continue
			}
			if _, ok := parseTimeRange(next(i)); ok && ph == phaseTimes {
				continue
			}
			if !empty {
				rules = append(rules, cur)
			}
			cur, ph, empty = &rule{additional: true}, phaseSelectors, true
			continue
		}

		// A selector after times without a comma starts a new clause as well,
		// e.g. "Mo 08:00-12:00 We 10:00-12:00".
		if ph != phaseSelectors && isSelector(lower) {
			rules = append(rules, cur)
			cur, ph, empty = &rule{additional: true}, phaseSelectors, true
		}
		empty = false

		switch {
		case lower == "24/7":
			cur.times = append(cur.times, span{duration: 24 * time.Hour})
			ph = phaseTimes
		case lower == "off" || lower == "closed":
			cur.off = true
			ph = phaseModifier
		case lower == "open":
			ph = phaseModifier
		case lower == "ph":
			cur.holidays = true
		case lower == "sh":
			cur.schoolHolidays = true
		case lower == "week":
			consumed := 0
			for j := i + 1; j < len(tokens); j++ {
				if tokens[j] == "," {
					continue
				}
				w, ok := parseWeekRange(tokens[j])
				if !ok {
					break
				}
				cur.weeks = append(cur.weeks, w)
				consumed = j - i
			}
			if consumed == 0 {
				cur.unsupported = true
			}
			i += consumed
		case weekdayRegexp.MatchString(tok):
			if !cur.addWeekday(tok) {
				cur.unsupported = true
			}
		case monthRegexp.MatchString(tok):
			if days, ok := parseDays(next(i)); ok {
				m := monthAbbrev[lower[:3]]
				if strings.Contains(lower, "-") {
					cur.unsupported = true
				}
				cur.dates = append(cur.dates, dateRange{month: m, from: days[0], to: days[1]})
				i++
				continue
			}
			mm := monthRegexp.FindStringSubmatch(lower)
			to := mm[1]
			if mm[2] != "" {
				to = mm[2]
			}
			cur.months.addRange(monthAbbrev[mm[1]], monthAbbrev[to])
		default:
			if s, ok := parseTimeRange(tok); ok {
				cur.times = append(cur.times, s)
				ph = phaseTimes
				continue
			}
			cur.unsupported = true
			if strings.Contains(tok, ":") || strings.Contains(lower, "sun") || strings.Contains(lower, "dawn") || strings.Contains(lower, "dusk") {
				ph = phaseTimes
			}
		}
	}
	if !empty {
		rules = append(rules, cur)
	}
	return rules
}

func (r *rule) addWeekday(tok string) bool {
	m := weekdayRegexp.FindStringSubmatch(tok)
	from := weekdayAbbrev[strings.ToLower(m[1])]
	to := from
	if m[2] != "" {
		to = weekdayAbbrev[strings.ToLower(m[2])]
	}
	if m[3] != "" {
		if m[2] != "" {
			return false
		}
		nth, ok := parseNth(m[3])
		if !ok {
			return false
		}
		if r.nth == nil {
			r.nth = make(map[time.Weekday][]nthRange)
		}
		r.nth[from] = append(r.nth[from], nth...)
	} else {
		r.plainWeekdays.addRange(from, to)
	}
	r.weekdays.addRange(from, to)
	return true
}

func isSelector(lower string) bool {
	return lower == "ph" || lower == "sh" || lower == "week" ||
		weekdayRegexp.MatchString(lower) || monthRegexp.MatchString(lower)
}

// parseDays parses a day-of-month token following a month, "25" or "24-26".
func parseDays(tok string) ([2]int, bool) {
	m := dayRangeRegexp.FindStringSubmatch(tok)
	if m == nil {
		return [2]int{}, false
	}
	from, _ := strconv.Atoi(m[1])
	to := from
	if m[2] != "" {
		to, _ = strconv.Atoi(m[2])
	}
	if from < 1 || to > 31 || from > to {
		return [2]int{}, false
	}
	return [2]int{from, to}, true
}
