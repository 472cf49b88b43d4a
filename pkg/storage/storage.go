package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dobromatch/dobromatch/pkg/events"
	"github.com/dobromatch/dobromatch/pkg/match"
)

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS events (
  id                INTEGER PRIMARY KEY,
  source            TEXT NOT NULL,
  identity          TEXT NOT NULL,
  source_domain     TEXT NOT NULL DEFAULT '',
  title             TEXT NOT NULL DEFAULT '',
  url               TEXT NOT NULL DEFAULT '',
  date              TEXT NOT NULL DEFAULT '',
  time_start        TEXT NOT NULL DEFAULT '',
  time_end          TEXT NOT NULL DEFAULT '',
  datetime_raw      TEXT NOT NULL DEFAULT '',
  city              TEXT NOT NULL DEFAULT '',
  address_full      TEXT NOT NULL DEFAULT '',
  region            TEXT NOT NULL DEFAULT '',
  organizer_name    TEXT NOT NULL DEFAULT '',
  organizer_url     TEXT NOT NULL DEFAULT '',
  contact_name      TEXT NOT NULL DEFAULT '',
  contact_position  TEXT NOT NULL DEFAULT '',
  contact_phone     TEXT NOT NULL DEFAULT '',
  contact_vk        TEXT NOT NULL DEFAULT '',
  description       TEXT NOT NULL DEFAULT '',
  content_hash      TEXT NOT NULL,
  run_id            INTEGER NOT NULL DEFAULT 0,
  first_seen_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  last_seen_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(source, identity)
);
CREATE INDEX IF NOT EXISTS idx_events_date ON events(date);
CREATE INDEX IF NOT EXISTS idx_events_source ON events(source);
CREATE TABLE IF NOT EXISTS event_changes (
  id                INTEGER PRIMARY KEY,
  occurred_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  source            TEXT NOT NULL,
  identity          TEXT NOT NULL,
  title             TEXT NOT NULL DEFAULT '',
  date              TEXT NOT NULL DEFAULT '',
  change_type       TEXT NOT NULL CHECK (change_type IN ('added','updated','removed'))
);
CREATE INDEX IF NOT EXISTS idx_changes_time ON event_changes(occurred_at);
CREATE INDEX IF NOT EXISTS idx_changes_source ON event_changes(source, occurred_at);
    `); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

const eventColumns = "title, url, date, time_start, time_end, datetime_raw, city, address_full, region, organizer_name, organizer_url, contact_name, contact_position, contact_phone, contact_vk, description"

func eventArgs(r events.Record) []interface{} {
	return []interface{}{
		r.Title, r.URL, r.Schedule.Date, r.Schedule.TimeStart, r.Schedule.TimeEnd, r.Schedule.DatetimeRaw,
		r.Location.City, r.Location.AddressFull, r.Location.Region,
		r.Organizer.Name, r.Organizer.URL,
		r.Contact.Name, r.Contact.Position, r.Contact.Phone, r.Contact.VK,
		r.Description,
	}
}

// UpsertEvents imports records as the full current content of source.
// Events missing from records are removed. The returned changes are also
// written to event_changes.
func (d *DB) UpsertEvents(ctx context.Context, source string, records []events.Record) (changes []Change, err error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, errors.New("invalid event source")
	}

	now := time.Now().UTC()
	runID := time.Now().UnixNano()

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx, "SELECT identity, content_hash FROM events WHERE source = ?", source)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]string)
	for rows.Next() {
		var identity, hash string
		if err = rows.Scan(&identity, &hash); err != nil {
			rows.Close()
			return nil, err
		}
		existing[identity] = hash
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(records))
	for _, raw := range records {
		r := Clean(raw)
		identity := EventIdentity(r)
		if identity == "" {
			continue
		}
		// First occurrence wins within one import.
		if _, dup := seen[identity]; dup {
			continue
		}
		seen[identity] = struct{}{}

		hash := contentHash(r)
		oldHash, existed := existing[identity]

		changeType := ""
		switch {
		case !existed:
			args := append([]interface{}{source, identity, SourceDomain(r.URL)}, eventArgs(r)...)
			args = append(args, hash, runID)
			_, err = tx.ExecContext(ctx, `INSERT INTO events(source, identity, source_domain, `+eventColumns+`, content_hash, run_id, first_seen_at, last_seen_at) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,CURRENT_TIMESTAMP,CURRENT_TIMESTAMP)`, args...)
			changeType = ChangeAdded
		case oldHash != hash:
			args := append(eventArgs(r), SourceDomain(r.URL), hash, runID, source, identity)
			_, err = tx.ExecContext(ctx, `UPDATE events SET title = ?, url = ?, date = ?, time_start = ?, time_end = ?, datetime_raw = ?, city = ?, address_full = ?, region = ?, organizer_name = ?, organizer_url = ?, contact_name = ?, contact_position = ?, contact_phone = ?, contact_vk = ?, description = ?, source_domain = ?, content_hash = ?, run_id = ?, last_seen_at = CURRENT_TIMESTAMP WHERE source = ? AND identity = ?`, args...)
			changeType = ChangeUpdated
		default:
			_, err = tx.ExecContext(ctx, `UPDATE events SET run_id = ?, last_seen_at = CURRENT_TIMESTAMP WHERE source = ? AND identity = ?`, runID, source, identity)
		}
		if err != nil {
			return nil, err
		}
		if changeType == "" {
			continue
		}
		if err = logChange(ctx, tx, source, identity, r.Title, r.Schedule.Date, changeType); err != nil {
			return nil, err
		}
		changes = append(changes, Change{OccurredAt: now, Source: source, Identity: identity, Title: r.Title, Date: r.Schedule.Date, ChangeType: changeType})
	}

	// Sweep: find and delete events not touched in this run, log removals
	staleRows, err := tx.QueryContext(ctx, "SELECT identity, title, date FROM events WHERE source = ? AND run_id != ?", source, runID)
	if err != nil {
		return nil, err
	}
	var removed []Change
	for staleRows.Next() {
		c := Change{OccurredAt: now, Source: source, ChangeType: ChangeRemoved}
		if err = staleRows.Scan(&c.Identity, &c.Title, &c.Date); err != nil {
			staleRows.Close()
			return nil, err
		}
		removed = append(removed, c)
	}
	if err = staleRows.Close(); err != nil {
		return nil, err
	}

	if len(removed) > 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM events WHERE source = ? AND run_id != ?`, source, runID)
		if err != nil {
			return nil, err
		}
		for _, c := range removed {
			if err = logChange(ctx, tx, source, c.Identity, c.Title, c.Date, ChangeRemoved); err != nil {
				return nil, err
			}
		}
		changes = append(changes, removed...)
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return changes, nil
}

func logChange(ctx context.Context, tx *sql.Tx, source, identity, title, date, changeType string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO event_changes(occurred_at, source, identity, title, date, change_type) VALUES(CURRENT_TIMESTAMP, ?, ?, ?, ?, ?)`, source, identity, title, date, changeType)
	return err
}

// ListOptions controls selection when listing events. From and To are
// inclusive YYYY-MM-DD bounds on the event date.
type ListOptions struct {
	Source string
	City   string
	From   string
	To     string
}

// ListEvents returns stored events ordered by date, start time and title.
// Events without a date are returned only when no date bound is set.
func (d *DB) ListEvents(ctx context.Context, opts ListOptions) ([]events.Record, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	if opts.Source != "" {
		where += " AND source = ?"
		args = append(args, opts.Source)
	}
	if opts.From != "" {
		where += " AND date >= ?"
		args = append(args, opts.From)
	}
	if opts.To != "" {
		where += " AND date <= ?"
		args = append(args, opts.To)
	}

	q := "SELECT " + eventColumns + " FROM events " + where + " ORDER BY date, time_start, title"
	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []events.Record{}
	for rows.Next() {
		var r events.Record
		if err := rows.Scan(
			&r.Title, &r.URL, &r.Schedule.Date, &r.Schedule.TimeStart, &r.Schedule.TimeEnd, &r.Schedule.DatetimeRaw,
			&r.Location.City, &r.Location.AddressFull, &r.Location.Region,
			&r.Organizer.Name, &r.Organizer.URL,
			&r.Contact.Name, &r.Contact.Position, &r.Contact.Phone, &r.Contact.VK,
			&r.Description,
		); err != nil {
			return nil, err
		}
		// SQLite LOWER is ASCII-only, so the city filter runs here.
		if opts.City != "" && !match.City(opts.City, r.Location.City, r.Location.AddressFull) {
			continue
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Load implements events.Source over the whole catalogue.
func (d *DB) Load(ctx context.Context) ([]events.Record, error) {
	return d.ListEvents(ctx, ListOptions{})
}

// LoadRange implements events.RangeSource.
func (d *DB) LoadRange(ctx context.Context, from, to string) ([]events.Record, error) {
	return d.ListEvents(ctx, ListOptions{From: from, To: to})
}

// ListRecentChanges returns the most recent N changes across all sources.
func (d *DB) ListRecentChanges(ctx context.Context, limit int) ([]Change, error) {
	if limit <= 0 {
		limit = 50
	}
	q := "SELECT occurred_at, source, identity, title, date, change_type FROM event_changes ORDER BY occurred_at DESC, id DESC LIMIT ?"
	rows, err := d.sql.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	changes := []Change{}
	for rows.Next() {
		var c Change
		var occurredAtStr string
		if err := rows.Scan(&occurredAtStr, &c.Source, &c.Identity, &c.Title, &c.Date, &c.ChangeType); err != nil {
			return nil, err
		}
		c.OccurredAt = parseTimestamp(occurredAtStr)
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return changes, nil
}

// parseTimestamp reads SQLite CURRENT_TIMESTAMP values, falling back to RFC3339.
func parseTimestamp(s string) time.Time {
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

// GetStats counts events per source domain and per city.
func (d *DB) GetStats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := d.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&st.Total); err != nil {
		return Stats{}, err
	}

	var err error
	st.BySource, err = d.countBy(ctx, "source_domain")
	if err != nil {
		return Stats{}, err
	}
	st.ByCity, err = d.countBy(ctx, "city")
	if err != nil {
		return Stats{}, err
	}
	return st, nil
}

// countBy groups events by column, which must be a trusted column name.
func (d *DB) countBy(ctx context.Context, column string) ([]Count, error) {
	query := `
		SELECT
			` + column + `,
			COUNT(*)
		FROM
			events
		GROUP BY
			` + column + `
		ORDER BY
			COUNT(*) DESC, ` + column + `;
	`
	rows, err := d.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Count{}
	for rows.Next() {
		var c Count
		if err := rows.Scan(&c.Key, &c.Events); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CountEvents returns the number of events currently stored for source.
func (d *DB) CountEvents(ctx context.Context, source string) (int, error) {
	var n int
	err := d.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM events WHERE source = ?", strings.TrimSpace(source)).Scan(&n)
	return n, err
}
