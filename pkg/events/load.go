package events

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrInvalidDataset is returned when a dataset is not a JSON array or
// object of event objects.
var ErrInvalidDataset = errors.New("invalid event dataset")

// Parse decodes a dataset. The document is either an array of event
// objects or an object whose values are event objects; order follows the
// document. Non-object elements are ignored.
func Parse(data []byte) ([]Record, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidDataset)
	}

	root := gjson.ParseBytes(data)
	if !root.IsArray() && !root.IsObject() {
		return nil, fmt.Errorf("%w: expected an array or object, got %s", ErrInvalidDataset, root.Type)
	}

	out := make([]Record, 0)
	root.ForEach(func(_, value gjson.Result) bool {
		if value.IsObject() {
			out = append(out, recordFrom(value))
		}
		return true
	})
	return out, nil
}

func recordFrom(v gjson.Result) Record {
	return Record{
		Title: field(v, "title"),
		URL:   field(v, "url"),
		Schedule: Schedule{
			Date:        field(v, "schedule.date"),
			TimeStart:   field(v, "schedule.time_start"),
			TimeEnd:     field(v, "schedule.time_end"),
			DatetimeRaw: field(v, "schedule.datetime_raw"),
		},
		Location: Location{
			City:        field(v, "location.city"),
			AddressFull: field(v, "location.address_full"),
			Region:      field(v, "location.region"),
		},
		Organizer: Organizer{
			Name: field(v, "organizer.name"),
			URL:  field(v, "organizer.url"),
		},
		Contact: Contact{
			Name:     field(v, "contact.name"),
			Position: field(v, "contact.position"),
			Phone:    field(v, "contact.phone"),
			VK:       field(v, "contact.vk"),
		},
		Description: field(v, "description"),
	}
}

// field returns the trimmed string at path; null, missing and nested
// objects all read as "".
func field(v gjson.Result, path string) string {
	r := v.Get(path)
	switch r.Type {
	case gjson.String, gjson.Number:
		return strings.TrimSpace(r.String())
	default:
		return ""
	}
}

// FileSource reads a JSON dataset from disk on every Load.
type FileSource struct {
	Path string
}

// Load implements Source.
func (f FileSource) Load(_ context.Context) ([]Record, error) {
	if f.Path == "" {
		return nil, errors.New("dataset path is empty")
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	records, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	return records, nil
}
