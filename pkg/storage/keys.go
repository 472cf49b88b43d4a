package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/dobromatch/dobromatch/pkg/events"
)

// EventIdentity is the key of an event within its source: the normalized
// URL, or title and date when the event has no URL.
func EventIdentity(r events.Record) string {
	if u := NormalizeEventURL(r.URL); u != "" {
		return u
	}
	title := strings.ToLower(strings.Join(strings.Fields(r.Title), " "))
	if title == "" {
		return ""
	}
	return title + "|" + r.Schedule.Date
}

func contentHash(r events.Record) string {
	data, _ := json.Marshal(r)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
