package search

import (
	"strings"

	"github.com/dobromatch/dobromatch/pkg/daterange"
)

// Status is the outcome of a search.
type Status string

const (
	Found      Status = "found"
	NoResults  Status = "no_results"
	Unresolved Status = "unresolved"
)

// Item is one matching event.
type Item struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Result is the structured outcome of a search; Text renders it for chat.
type Result struct {
	Status   Status              `json:"status"`
	Interval *daterange.Interval `json:"interval,omitempty"`
	Items    []Item              `json:"items"`
	Message  string              `json:"message,omitempty"`
}

// Text renders the result as a markdown block.
func (r Result) Text() string {
	switch r.Status {
	case Unresolved:
		return MsgUnresolved
	case NoResults:
		return MsgNoResults
	}
	if len(r.Items) == 0 {
		return MsgNoResults
	}

	lines := make([]string, 0, len(r.Items))
	for _, it := range r.Items {
		line := "• **" + it.Title + "** — " + it.Content
		if it.URL != "" {
			line += "\n  " + it.URL
		}
		lines = append(lines, line)
	}
	return MsgFound + strings.Join(lines, "\n")
}

// WithMessage returns r with Message set to its rendered text, for JSON
// consumers that want both shapes.
func (r Result) WithMessage() Result {
	r.Message = r.Text()
	return r
}
