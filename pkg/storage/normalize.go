package storage

import (
	"net/url"
	"strings"

	"github.com/dobromatch/dobromatch/pkg/events"
)

// NormalizeEventURL applies simple canonicalization rules suitable for identity.
func NormalizeEventURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	if !strings.Contains(s, "://") && strings.Contains(s, ".") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimRight(s, "/"))
	}
	u.Host = strings.ToLower(u.Host)
	if u.Scheme == "http" && u.Port() == "80" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" && u.Port() == "443" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}
	// dobro.ru serves the same event over http and https.
	if u.Scheme == "http" {
		u.Scheme = "https"
	}
	if strings.HasSuffix(u.Path, "/") && len(u.Path) > 1 {
		u.Path = strings.TrimRight(u.Path, "/")
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// Clean trims every field of r and reduces its description to plain text.
func Clean(r events.Record) events.Record {
	t := strings.TrimSpace
	r.Title = t(r.Title)
	r.URL = t(r.URL)
	r.Schedule = events.Schedule{
		Date:        t(r.Schedule.Date),
		TimeStart:   t(r.Schedule.TimeStart),
		TimeEnd:     t(r.Schedule.TimeEnd),
		DatetimeRaw: t(r.Schedule.DatetimeRaw),
	}
	r.Location = events.Location{
		City:        t(r.Location.City),
		AddressFull: t(r.Location.AddressFull),
		Region:      t(r.Location.Region),
	}
	r.Organizer = events.Organizer{Name: t(r.Organizer.Name), URL: t(r.Organizer.URL)}
	r.Contact = events.Contact{
		Name:     t(r.Contact.Name),
		Position: t(r.Contact.Position),
		Phone:    t(r.Contact.Phone),
		VK:       t(r.Contact.VK),
	}
	r.Description = PlainText(r.Description)
	return r
}
