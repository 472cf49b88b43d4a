package daterange

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Granularity is the precision of a resolved date token.
type Granularity string

const (
	Day   Granularity = "day"
	Month Granularity = "month"
	Year  Granularity = "year"
)

const (
	// DefaultWindowMinutes is the half-width of a day search around its centre time.
	DefaultWindowMinutes = 180

	wildcard = "XX"
)

var (
	tokenPattern = regexp.MustCompile(`^(\d{4})-(\d{2}|XX)-(\d{2}|XX)$`)

	defaultCentreHour   = 12
	defaultCentreMinute = 0
)

// Interval is a closed search interval in wall-clock time.
type Interval struct {
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
	Granularity Granularity `json:"granularity"`
}

// Parser turns a free-form phrase ("завтра", "15 июня") into a calendar date.
// Only the year, month and day of the returned time are used.
type Parser interface {
	ParseDate(phrase string, now time.Time) (time.Time, error)
}

// Resolver converts date/time tokens into search intervals.
type Resolver struct {
	// Location is the wall-clock zone of resolved intervals. Nil means time.Local.
	Location *time.Location
	// Parser handles tokens that are not in the YYYY-MM-DD wildcard grammar.
	// Nil disables the fallback.
	Parser Parser
	// Now is used as the reference time for relative phrases. Nil means time.Now.
	Now func() time.Time
}

// New returns a Resolver for the given zone and fallback parser.
func New(loc *time.Location, p Parser) *Resolver {
	return &Resolver{Location: loc, Parser: p}
}

// Resolve parses dateToken (YYYY-MM-DD, YYYY-MM-XX, YYYY-XX-XX or a phrase)
// and an optional HH:MM timeToken into an interval. Day intervals span
// windowMinutes on each side of the centre time (12:00 when timeToken is
// absent or malformed). The second return value is false when the token
// cannot be resolved; Resolve never fails any other way.
func (r *Resolver) Resolve(dateToken, timeToken string, windowMinutes int) (Interval, bool) {
	dateToken = strings.TrimSpace(dateToken)
	if dateToken == "" {
		return Interval{}, false
	}
	if windowMinutes < 0 {
		windowMinutes = 0
	}
	loc := r.location()

	m := tokenPattern.FindStringSubmatch(dateToken)
	if m == nil {
		return r.resolvePhrase(dateToken, timeToken, windowMinutes)
	}

	year, _ := strconv.Atoi(m[1])
	monthToken, dayToken := m[2], m[3]

	switch {
	case monthToken == wildcard && dayToken == wildcard:
		return YearInterval(year, loc), true
	case monthToken == wildcard:
		// YYYY-XX-DD has no meaning in the token grammar.
		return Interval{}, false
	case dayToken == wildcard:
		month, _ := strconv.Atoi(monthToken)
		if month < 1 || month > 12 {
			return Interval{}, false
		}
		return MonthInterval(year, time.Month(month), loc), true
	}

	month, _ := strconv.Atoi(monthToken)
	day, _ := strconv.Atoi(dayToken)
	date, ok := calendarDate(year, month, day, loc)
	if !ok {
		return Interval{}, false
	}
	return DayInterval(date, timeToken, windowMinutes), true
}

func (r *Resolver) resolvePhrase(phrase, timeToken string, windowMinutes int) (iv Interval, ok bool) {
	if r.Parser == nil {
		return Interval{}, false
	}

	// Third-party phrase parsers are not trusted to stay panic free on
	// arbitrary user input.
	defer func() {
		if rec := recover(); rec != nil {
			iv, ok = Interval{}, false
		}
	}()

	t, err := r.Parser.ParseDate(phrase, r.now())
	if err != nil || t.IsZero() {
		return Interval{}, false
	}
	y, m, d := t.Date()
	date := time.Date(y, m, d, 0, 0, 0, 0, r.location())
	return DayInterval(date, timeToken, windowMinutes), true
}

func (r *Resolver) location() *time.Location {
	if r == nil || r.Location == nil {
		return time.Local
	}
	return r.Location
}

func (r *Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().In(r.location())
}

// DayInterval centres a window on date at timeToken (or 12:00).
func DayInterval(date time.Time, timeToken string, windowMinutes int) Interval {
	hour, minute, ok := ParseClock(timeToken)
	if !ok {
		hour, minute = defaultCentreHour, defaultCentreMinute
	}
	y, m, d := date.Date()
	centre := time.Date(y, m, d, hour, minute, 0, 0, date.Location())
	window := time.Duration(windowMinutes) * time.Minute
	return Interval{
		Start:       centre.Add(-window),
		End:         centre.Add(window),
		Granularity: Day,
	}
}

// MonthInterval spans the first day 00:00 to the last calendar day 23:59.
func MonthInterval(year int, month time.Month, loc *time.Location) Interval {
	// Day 0 of the next month normalizes to the last day of this one.
	last := time.Date(year, month+1, 0, 23, 59, 0, 0, loc)
	return Interval{
		Start:       time.Date(year, month, 1, 0, 0, 0, 0, loc),
		End:         last,
		Granularity: Month,
	}
}

// YearInterval spans Jan 1 00:00 to Dec 31 23:59.
func YearInterval(year int, loc *time.Location) Interval {
	return Interval{
		Start:       time.Date(year, time.January, 1, 0, 0, 0, 0, loc),
		End:         time.Date(year, time.December, 31, 23, 59, 0, 0, loc),
		Granularity: Year,
	}
}

// ParseClock parses a strict 24-hour HH:MM token.
func ParseClock(s string) (hour, minute int, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, false
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, false
	}
	return t.Hour(), t.Minute(), true
}

func calendarDate(year, month, day int, loc *time.Location) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	// time.Date normalizes overflow (Feb 30 -> Mar 2); reject it.
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}
