package openinghours

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	commentRegexp   = regexp.MustCompile(`"[^"]*"`)
	timeRangeRegexp = regexp.MustCompile(`^(\d{1,2}):(\d{2})-(\d{1,2}):(\d{2})$`)
	weekdayRegexp   = regexp.MustCompile(`^(?i)(mo|tu|we|th|fr|sa|su)(?:-(mo|tu|we|th|fr|sa|su))?(?:\[([-0-9,]+)\])?$`)
	monthRegexp     = regexp.MustCompile(`^(?i)(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)(?:-(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec))?$`)
	dayRangeRegexp  = regexp.MustCompile(`^(\d{1,2})(?:-(\d{1,2}))?$`)
	weekRangeRegexp = regexp.MustCompile(`^(\d{1,2})(?:-(\d{1,2}))?(?:/(\d{1,2}))?$`)
)

var weekdayAbbrev = map[string]time.Weekday{
	"mo": time.Monday,
	"tu": time.Tuesday,
	"we": time.Wednesday,
	"th": time.Thursday,
	"fr": time.Friday,
	"sa": time.Saturday,
	"su": time.Sunday,
}

var monthAbbrev = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// tokenize splits one rule into words. Commas outside brackets become their
// own tokens so the parser can tell list separators from rule separators.
func tokenize(rule string) []string {
	var (
		tokens []string
		cur    strings.Builder
		depth  int
	)
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range rule {
		switch {
		case r == '[':
			depth++
			cur.WriteRune(r)
		case r == ']':
			if depth > 0 {
				depth--
			}
			cur.WriteRune(r)
		case r == ',' && depth == 0:
			flush()
			tokens = append(tokens, ",")
		case r == ':' && depth == 0 && cur.Len() > 0 && !isDigit(lastRune(cur.String())):
			// "Mo-Fr: 08:00-12:00" uses a colon after the selector.
			flush()
		case r == ' ' || r == '\t' || r == '\n':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func lastRune(s string) rune {
	if s == "" {
		return 0
	}
	return rune(s[len(s)-1])
}

// span is a start offset and a duration, both relative to a day.
type span struct {
	start    time.Duration
	duration time.Duration
}

// parseTimeRange parses "HH:MM-HH:MM". The end may be up to 48:00 for
// extended hours; an end at or before the start wraps past midnight. Ranges
// longer than a day are rejected.
func parseTimeRange(tok string) (span, bool) {
	m := timeRangeRegexp.FindStringSubmatch(tok)
	if m == nil {
		return span{}, false
	}
	sh, _ := strconv.Atoi(m[1])
	sm, _ := strconv.Atoi(m[2])
	eh, _ := strconv.Atoi(m[3])
	em, _ := strconv.Atoi(m[4])
	if sh > 23 || sm > 59 || em > 59 || eh > 48 {
		return span{}, false
	}
	start := time.Duration(sh)*time.Hour + time.Duration(sm)*time.Minute
	end := time.Duration(eh)*time.Hour + time.Duration(em)*time.Minute
	d := end - start
	if d <= 0 {
		d += 24 * time.Hour
	}
	if d > 24*time.Hour {
		return span{}, false
	}
	return span{start: start, duration: d}, true
}

// nthRange is an inclusive range of weekday occurrences within a month.
// Negative values count from the end of the month.
type nthRange struct {
	from, to int
}

func parseNth(list string) ([]nthRange, bool) {
	var out []nthRange
	for _, part := range strings.Split(list, ",") {
		if part == "" {
			return nil, false
		}
		var from, to string
		if strings.HasPrefix(part, "-") {
			from, to = part, part
		} else if a, b, ok := strings.Cut(part, "-"); ok {
			from, to = a, b
		} else {
			from, to = part, part
		}
		f, err1 := strconv.Atoi(from)
		t, err2 := strconv.Atoi(to)
		if err1 != nil || err2 != nil || f == 0 || t == 0 || f < -5 || t > 5 || (f > 0) != (t > 0) {
			return nil, false
		}
		if f > t {
			f, t = t, f
		}
		out = append(out, nthRange{from: f, to: t})
	}
	return out, len(out) > 0
}

// weekSet selects ISO week numbers.
type weekRange struct {
	from, to, step int
}

func parseWeekRange(tok string) (weekRange, bool) {
	m := weekRangeRegexp.FindStringSubmatch(tok)
	if m == nil {
		return weekRange{}, false
	}
	from, _ := strconv.Atoi(m[1])
	to := from
	if m[2] != "" {
		to, _ = strconv.Atoi(m[2])
	}
	step := 1
	if m[3] != "" {
		step, _ = strconv.Atoi(m[3])
	}
	if from < 1 || to > 53 || from > to || step < 1 {
		return weekRange{}, false
	}
	return weekRange{from: from, to: to, step: step}, true
}

func (w weekRange) contains(week int) bool {
	return week >= w.from && week <= w.to && (week-w.from)%w.step == 0
}

// dateRange is an inclusive range of days within one month.
type dateRange struct {
	month    time.Month
	from, to int
}

func (d dateRange) contains(t time.Time) bool {
	return t.Month() == d.month && t.Day() >= d.from && t.Day() <= d.to
}
