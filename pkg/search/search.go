// Package search matches volunteering events against a date, time and
// city request and renders the result.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dobromatch/dobromatch/pkg/daterange"
	"github.com/dobromatch/dobromatch/pkg/events"
	"github.com/dobromatch/dobromatch/pkg/judge"
	"github.com/dobromatch/dobromatch/pkg/match"
)

// ErrDatasetUnavailable wraps any failure to load the event dataset.
var ErrDatasetUnavailable = errors.New("event dataset unavailable")

const (
	MsgUnresolved = "Не удалось распознать дату. Уточните день/месяц/год, пожалуйста."
	MsgNoResults  = "К сожалению, таких мероприятий нет. Может поищем что-нибудь другое?"
	MsgFound      = "Вот что нашёл:\n"

	NoAddress   = "Адрес не указан"
	NoOrganizer = "Организатор не указан"
	NoTitle     = "Без названия"
)

// Query is one search request. MaxResults 0 means no cap.
type Query struct {
	City          string `json:"city,omitempty"`
	Date          string `json:"date"`
	Time          string `json:"time_start,omitempty"`
	WindowMinutes int    `json:"window_minutes"`
	MaxResults    int    `json:"max_results,omitempty"`
	Text          string `json:"text,omitempty"`
}

// Logger is the subset of a leveled logger the engine uses.
type Logger interface {
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}

// Engine runs searches. It holds no per-request state and is safe for
// concurrent use.
type Engine struct {
	Resolver *daterange.Resolver
	// Filter is the optional relevance pass, used when Query.Text is set.
	Filter *judge.Filter
	Log    Logger
}

func (e *Engine) logger() Logger {
	if e.Log == nil {
		return nopLogger{}
	}
	return e.Log
}

func (e *Engine) location() *time.Location {
	if e.Resolver != nil && e.Resolver.Location != nil {
		return e.Resolver.Location
	}
	return time.Local
}

func (e *Engine) resolve(q Query) (daterange.Interval, bool) {
	r := e.Resolver
	if r == nil {
		r = daterange.New(time.Local, nil)
	}
	return r.Resolve(q.Date, q.Time, q.WindowMinutes)
}

// Search matches q against records.
func (e *Engine) Search(ctx context.Context, q Query, records []events.Record) Result {
	iv, ok := e.resolve(q)
	if !ok {
		e.logger().Debugf("[search] date %q not resolved", q.Date)
		return Result{Status: Unresolved, Items: []Item{}}
	}
	return e.run(ctx, q, iv, records)
}

// SearchSource resolves q and loads the dataset from src. A load failure
// is the only error returned; it wraps ErrDatasetUnavailable. When src is
// an events.RangeSource only the days covered by the interval are loaded.
func (e *Engine) SearchSource(ctx context.Context, q Query, src events.Source) (Result, error) {
	iv, ok := e.resolve(q)
	if !ok {
		e.logger().Debugf("[search] date %q not resolved", q.Date)
		return Result{Status: Unresolved, Items: []Item{}}, nil
	}

	var (
		records []events.Record
		err     error
	)
	if rs, isRange := src.(events.RangeSource); isRange {
		records, err = rs.LoadRange(ctx, iv.Start.Format("2006-01-02"), iv.End.Format("2006-01-02"))
	} else {
		records, err = src.Load(ctx)
	}
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrDatasetUnavailable, err)
	}
	return e.run(ctx, q, iv, records), nil
}

func (e *Engine) run(ctx context.Context, q Query, iv daterange.Interval, records []events.Record) Result {
	loc := e.location()
	window := match.SpanOf(iv)

	items := make([]Item, 0)
	for _, rec := range records {
		if !rec.Searchable() {
			continue
		}
		span, ok := match.EventSpan(rec.Schedule.Date, rec.Schedule.TimeStart, rec.Schedule.TimeEnd, loc)
		if !ok {
			e.logger().Debugf("[search] skipping %q: bad date %q", rec.Title, rec.Schedule.Date)
			continue
		}
		if !match.Overlaps(window, span) {
			continue
		}
		description := rec.Description
		if description == "" {
			description = rec.Title
		}
		if !match.City(q.City, rec.Location.City, rec.Location.AddressFull, rec.Title, description) {
			continue
		}
		items = append(items, newItem(rec, span))
	}

	if q.Text != "" && len(items) > 0 && e.Filter != nil {
		before := len(items)
		items = judge.Apply(ctx, e.Filter, q.Text, items, CandidateText)
		e.logger().Debugf("[search] relevance pass kept %d of %d", len(items), before)
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Content < items[j].Content })

	if q.MaxResults > 0 && len(items) > q.MaxResults {
		items = items[:q.MaxResults]
	}

	if len(items) == 0 {
		return Result{Status: NoResults, Interval: &iv, Items: items}
	}
	return Result{Status: Found, Interval: &iv, Items: items}
}

func newItem(rec events.Record, span match.Span) Item {
	title := rec.Title
	if title == "" {
		title = NoTitle
	}
	address := rec.Location.AddressFull
	if address == "" {
		address = NoAddress
	}
	organizer := rec.Organizer.Name
	if organizer == "" {
		organizer = NoOrganizer
	}
	content := span.Start.Format("02.01.2006 15:04") + "-" + span.End.Format("15:04") +
		" • " + address + " • " + organizer

	return Item{
		Title:   strings.ToValidUTF8(title, "�"),
		URL:     strings.ToValidUTF8(rec.URL, "�"),
		Content: strings.ToValidUTF8(content, "�"),
	}
}

// CandidateText is the text shown to the relevance judge for an item.
func CandidateText(it Item) string {
	s := it.Title + " — " + it.Content
	if it.URL != "" {
		s += "\n" + it.URL
	}
	return s
}
