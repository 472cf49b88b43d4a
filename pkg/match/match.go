// Package match holds the per-record predicates of an event search: schedule
// overlap and city containment.
package match

import (
	"strings"
	"time"

	"github.com/dobromatch/dobromatch/pkg/daterange"
)

const dateLayout = "2006-01-02"

// Span is a time interval. End is expected not to precede Start.
type Span struct {
	Start time.Time
	End   time.Time
}

// SpanOf converts a resolved search interval.
func SpanOf(iv daterange.Interval) Span {
	return Span{Start: iv.Start, End: iv.End}
}

// Overlaps reports whether a and b share a non-empty stretch of time.
// Intervals that only touch at an endpoint do not overlap.
func Overlaps(a, b Span) bool {
	return a.End.After(b.Start) && b.End.After(a.Start)
}

// EventSpan builds the interval of an event held on date (YYYY-MM-DD) from
// start to end (HH:MM). A missing or malformed start means 00:00, a missing
// or malformed end 23:59. ok is false when date does not parse.
func EventSpan(date, start, end string, loc *time.Location) (span Span, ok bool) {
	if loc == nil {
		loc = time.Local
	}
	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return Span{}, false
	}
	sh, sm, ok := daterange.ParseClock(start)
	if !ok {
		sh, sm = 0, 0
	}
	eh, em, ok := daterange.ParseClock(end)
	if !ok {
		eh, em = 23, 59
	}
	y, m, d := day.Date()
	return Span{
		Start: time.Date(y, m, d, sh, sm, 0, 0, loc),
		End:   time.Date(y, m, d, eh, em, 0, 0, loc),
	}, true
}

// City reports whether userCity occurs, case-insensitively, in any of the
// candidate fields. An empty userCity matches everything. Substring
// collisions (a city name inside an unrelated description) are accepted.
func City(userCity string, fields ...string) bool {
	needle := strings.ToLower(strings.TrimSpace(userCity))
	if needle == "" {
		return true
	}
	for _, f := range fields {
		if f == "" {
			continue
		}
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}
