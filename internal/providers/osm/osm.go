// Package osm finds nearby places through an Overpass API endpoint.
package osm

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kvaesitso/kvs/internal/openinghours"
	"github.com/kvaesitso/kvs/internal/remote"
	"github.com/kvaesitso/kvs/internal/search"
)

const (
	minQueryLen = 2
	maxResults  = 7
	// duplicateRadius is the distance below which two places with the same
	// name and category are considered one.
	duplicateRadius = 100.0
	earthRadius     = 6371008.8
)

// categoryTags are checked in order for a place's category.
var categoryTags = []string{"amenity", "shop", "sport", "tourism", "leisure"}

// Options configures a Repository.
type Options struct {
	OverpassURL  string
	Latitude     float64
	Longitude    float64
	RadiusMeters int
	Holidays     openinghours.HolidayCalendar
}

// Repository searches places around a fixed position.
type Repository struct {
	fetcher *remote.Fetcher
	opts    Options
	now     func() time.Time
}

// New creates a Repository.
func New(f *remote.Fetcher, opts Options) *Repository {
	if opts.RadiusMeters <= 0 {
		opts.RadiusMeters = 1500
	}
	return &Repository{fetcher: f, opts: opts, now: time.Now}
}

type overpassResponse struct {
	Elements []element `json:"elements"`
}

type element struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    *float64          `json:"lat"`
	Lon    *float64          `json:"lon"`
	Center *latLon           `json:"center"`
	Tags   map[string]string `json:"tags"`
}

type latLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Search implements search.Repository. It needs network access and a query
// of at least two characters; otherwise it yields an empty list.
func (r *Repository) Search(ctx context.Context, query string, allowNetwork bool, emit func([]search.Location)) error {
	query = strings.TrimSpace(query)
	if !allowNetwork || !r.fetcher.Enabled() || utf8.RuneCountInString(query) < minQueryLen {
		emit(nil)
		return nil
	}

	var resp overpassResponse
	if err := r.fetcher.GetJSON(ctx, r.queryURL(query), &resp); err != nil {
		return fmt.Errorf("search places: %w", err)
	}
	emit(r.locations(resp.Elements))
	return nil
}

// locations maps elements, drops those outside the radius, merges
// duplicates and keeps the nearest few.
func (r *Repository) locations(elements []element) []search.Location {
	now := r.now()
	var opts []openinghours.Option
	if r.opts.Holidays != nil {
		opts = append(opts, openinghours.WithHolidays(r.opts.Holidays))
	}

	var all []search.Location
	for _, el := range elements {
		loc, ok := toLocation(el)
		if !ok {
			continue
		}
		loc.Distance = distance(r.opts.Latitude, r.opts.Longitude, loc.Latitude, loc.Longitude)
		if loc.Distance >= float64(r.opts.RadiusMeters) {
			continue
		}
		if loc.OpeningHours != "" {
			loc.Schedule = openinghours.ParseAt(loc.OpeningHours, now, opts...)
		}
		all = append(all, loc)
	}

	out := dedupe(all)
	slices.SortStableFunc(out, func(a, b search.Location) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return 0
	})
	if len(out) > maxResults {
		out = out[:maxResults]
	}
	if out == nil {
		out = []search.Location{}
	}
	return out
}

func toLocation(el element) (search.Location, bool) {
	if el.Tags == nil {
		return search.Location{}, false
	}
	label := firstTag(el.Tags, "name", "brand")
	if label == "" {
		return search.Location{}, false
	}
	var lat, lon float64
	switch {
	case el.Lat != nil && el.Lon != nil:
		lat, lon = *el.Lat, *el.Lon
	case el.Center != nil:
		lat, lon = el.Center.Lat, el.Center.Lon
	default:
		return search.Location{}, false
	}
	return search.Location{
		Source:       "osm",
		ID:           el.ID,
		Label:        label,
		Category:     category(el.Tags),
		Latitude:     lat,
		Longitude:    lon,
		Street:       el.Tags["addr:street"],
		HouseNumber:  el.Tags["addr:housenumber"],
		OpeningHours: el.Tags["opening_hours"],
		Website:      firstTag(el.Tags, "website", "contact:website"),
		Phone:        firstTag(el.Tags, "phone", "contact:phone"),
	}, true
}

func firstTag(tags map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(tags[k]); v != "" {
			return v
		}
	}
	return ""
}

// category returns the first value of the first category tag present, e.g.
// "cafe" for amenity=cafe;restaurant. Places without one are "other".
func category(tags map[string]string) string {
	for _, k := range categoryTags {
		for _, v := range strings.FieldsFunc(tags[k], func(r rune) bool {
			return r == ' ' || r == ',' || r == '.' || r == ';'
		}) {
			return strings.ToLower(v)
		}
	}
	return "other"
}

// dedupe keeps the first of each group of places that share a lowercase
// name, dropping later ones of the same category within duplicateRadius of it.
func dedupe(locs []search.Location) []search.Location {
	firsts := map[string]search.Location{}
	var out []search.Location
	for _, l := range locs {
		key := strings.ToLower(l.Label)
		first, seen := firsts[key]
		if !seen {
			firsts[key] = l
			out = append(out, l)
			continue
		}
		if l.Category == first.Category &&
			distance(first.Latitude, first.Longitude, l.Latitude, l.Longitude) <= duplicateRadius {
			continue
		}
		out = append(out, l)
	}
	return out
}

// distance returns the great-circle distance in meters.
func distance(lat1, lon1, lat2, lon2 float64) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadius * math.Asin(math.Min(1, math.Sqrt(a)))
}

func (r *Repository) queryURL(q string) string {
	pattern := overpassString(regexpQuote(q))
	around := fmt.Sprintf("(around:%d,%f,%f)", r.opts.RadiusMeters, r.opts.Latitude, r.opts.Longitude)
	data := fmt.Sprintf(`[out:json][timeout:10];(nwr["name"~"%s",i]%s;nwr["brand"~"%s",i]%s;);out center tags;`,
		pattern, around, pattern, around)
	return r.opts.OverpassURL + "?data=" + url.QueryEscape(data)
}

// regexpQuote escapes the POSIX extended regular expression metacharacters.
func regexpQuote(s string) string {
	var b strings.Builder
	for _, c := range s {
		if strings.ContainsRune(`\.^$*+?()[]{}|`, c) {
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// overpassString escapes s for a double-quoted Overpass QL literal.
func overpassString(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
