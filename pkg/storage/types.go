package storage

import "time"

const (
	ChangeAdded   = "added"
	ChangeUpdated = "updated"
	ChangeRemoved = "removed"
)

// Change captures a single change event for auditing or printing.
type Change struct {
	OccurredAt time.Time `json:"occurred_at"`

	Source   string `json:"source"`
	Identity string `json:"identity"`

	// Event info at the time of the change
	Title string `json:"title"`
	Date  string `json:"date"`

	ChangeType string `json:"change_type"` // added | updated | removed
}

// Count is one row of a grouped count.
type Count struct {
	Key    string `json:"key"`
	Events int    `json:"events"`
}

// Stats summarizes the catalogue.
type Stats struct {
	Total    int     `json:"total"`
	BySource []Count `json:"by_source"`
	ByCity   []Count `json:"by_city"`
}
