package events

import "context"

// Record is a single volunteering event as stored in a dataset.
// Absent fields are empty strings.
type Record struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Schedule    Schedule  `json:"schedule"`
	Location    Location  `json:"location"`
	Organizer   Organizer `json:"organizer"`
	Contact     Contact   `json:"contact"`
	Description string    `json:"description"`
}

// Schedule holds the event date (YYYY-MM-DD) and HH:MM start/end times.
type Schedule struct {
	Date        string `json:"date"`
	TimeStart   string `json:"time_start"`
	TimeEnd     string `json:"time_end"`
	DatetimeRaw string `json:"datetime_raw,omitempty"`
}

type Location struct {
	City        string `json:"city"`
	AddressFull string `json:"address_full"`
	Region      string `json:"region,omitempty"`
}

type Organizer struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

type Contact struct {
	Name     string `json:"name,omitempty"`
	Position string `json:"position,omitempty"`
	Phone    string `json:"phone,omitempty"`
	VK       string `json:"vk,omitempty"`
}

// Searchable reports whether the record carries a date at all.
func (r Record) Searchable() bool {
	return r.Schedule.Date != ""
}

// Source yields a whole dataset. Implementations must return a slice the
// caller may read but not modify.
type Source interface {
	Load(ctx context.Context) ([]Record, error)
}

// RangeSource is a Source that can restrict loading to events dated
// between from and to (YYYY-MM-DD, inclusive).
type RangeSource interface {
	Source
	LoadRange(ctx context.Context, from, to string) ([]Record, error)
}
