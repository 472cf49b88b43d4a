package daterange

import (
	"errors"
	"testing"
	"time"
)

type stubParser struct {
	t     time.Time
	err   error
	panic bool
	calls int
}

func (s *stubParser) ParseDate(string, time.Time) (time.Time, error) {
	s.calls++
	if s.panic {
		panic("boom")
	}
	return s.t, s.err
}

func at(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func TestResolveDay(t *testing.T) {
	r := New(time.UTC, nil)

	tests := []struct {
		name      string
		date      string
		clock     string
		window    int
		wantStart time.Time
		wantEnd   time.Time
	}{
		{"explicit time", "2025-06-15", "11:00", 180, at(2025, 6, 15, 8, 0), at(2025, 6, 15, 14, 0)},
		{"default noon", "2025-06-15", "", 60, at(2025, 6, 15, 11, 0), at(2025, 6, 15, 13, 0)},
		{"malformed time falls back to noon", "2025-06-15", "25:99", 30, at(2025, 6, 15, 11, 30), at(2025, 6, 15, 12, 30)},
		{"garbage time falls back to noon", "2025-06-15", "вечером", 0, at(2025, 6, 15, 12, 0), at(2025, 6, 15, 12, 0)},
		{"window crosses midnight", "2025-06-15", "23:30", 60, at(2025, 6, 15, 22, 30), at(2025, 6, 16, 0, 30)},
		{"negative window is zero", "2025-06-15", "10:00", -15, at(2025, 6, 15, 10, 0), at(2025, 6, 15, 10, 0)},
		{"surrounding spaces", "  2025-06-15 ", " 09:15 ", 15, at(2025, 6, 15, 9, 0), at(2025, 6, 15, 9, 30)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			iv, ok := r.Resolve(tc.date, tc.clock, tc.window)
			if !ok {
				t.Fatalf("expected %q to resolve", tc.date)
			}
			if iv.Granularity != Day {
				t.Fatalf("granularity: want %q, got %q", Day, iv.Granularity)
			}
			if !iv.Start.Equal(tc.wantStart) || !iv.End.Equal(tc.wantEnd) {
				t.Fatalf("interval:\nwant: %v - %v\ngot:  %v - %v", tc.wantStart, tc.wantEnd, iv.Start, iv.End)
			}
			if iv.End.Before(iv.Start) {
				t.Fatalf("end %v before start %v", iv.End, iv.Start)
			}
		})
	}
}

func TestResolveMonthLastDay(t *testing.T) {
	r := New(time.UTC, nil)

	tests := []struct {
		date    string
		lastDay int
	}{
		{"2024-02-XX", 29},
		{"2025-02-XX", 28},
		{"1900-02-XX", 28},
		{"2000-02-XX", 29},
		{"2025-04-XX", 30},
		{"2025-06-XX", 30},
		{"2025-07-XX", 31},
		{"2025-12-XX", 31},
	}

	for _, tc := range tests {
		t.Run(tc.date, func(t *testing.T) {
			iv, ok := r.Resolve(tc.date, "18:00", 180)
			if !ok {
				t.Fatalf("expected %q to resolve", tc.date)
			}
			if iv.Granularity != Month {
				t.Fatalf("granularity: want %q, got %q", Month, iv.Granularity)
			}
			if iv.Start.Day() != 1 || iv.Start.Hour() != 0 || iv.Start.Minute() != 0 {
				t.Fatalf("start should be the 1st at 00:00, got %v", iv.Start)
			}
			if iv.End.Day() != tc.lastDay || iv.End.Hour() != 23 || iv.End.Minute() != 59 {
				t.Fatalf("end: want day %d 23:59, got %v", tc.lastDay, iv.End)
			}
			if iv.End.Month() != iv.Start.Month() {
				t.Fatalf("end %v left the month of %v", iv.End, iv.Start)
			}
		})
	}
}

func TestResolveYear(t *testing.T) {
	r := New(time.UTC, nil)

	iv, ok := r.Resolve("2026-XX-XX", "", 180)
	if !ok {
		t.Fatal("expected year token to resolve")
	}
	if iv.Granularity != Year {
		t.Fatalf("granularity: want %q, got %q", Year, iv.Granularity)
	}
	if !iv.Start.Equal(at(2026, 1, 1, 0, 0)) || !iv.End.Equal(at(2026, 12, 31, 23, 59)) {
		t.Fatalf("unexpected year interval %v - %v", iv.Start, iv.End)
	}
}

func TestResolveRejects(t *testing.T) {
	p := &stubParser{err: errors.New("no date")}
	r := New(time.UTC, p)

	for _, token := range []string{
		"2025-02-30",
		"2025-13-01",
		"2025-00-10",
		"2025-13-XX",
		"2025-XX-15",
		"2025-06-00",
	} {
		if _, ok := r.Resolve(token, "", 180); ok {
			t.Errorf("expected %q to be unresolved", token)
		}
	}
	if p.calls != 0 {
		t.Fatalf("structural tokens must not reach the phrase parser, got %d calls", p.calls)
	}
}

func TestResolveEmptySkipsParser(t *testing.T) {
	p := &stubParser{t: at(2025, 6, 15, 0, 0)}
	r := New(time.UTC, p)

	for _, token := range []string{"", "   "} {
		if _, ok := r.Resolve(token, "10:00", 60); ok {
			t.Fatalf("expected %q to be unresolved", token)
		}
	}
	if p.calls != 0 {
		t.Fatalf("empty token must not reach the parser, got %d calls", p.calls)
	}
}

func TestResolvePhrase(t *testing.T) {
	t.Run("parsed phrase becomes a day window", func(t *testing.T) {
		p := &stubParser{t: time.Date(2025, 6, 20, 17, 45, 0, 0, time.FixedZone("X", 3*3600))}
		r := New(time.UTC, p)

		iv, ok := r.Resolve("20 июня", "15:00", 60)
		if !ok {
			t.Fatal("expected phrase to resolve")
		}
		if iv.Granularity != Day {
			t.Fatalf("granularity: want day, got %q", iv.Granularity)
		}
		if !iv.Start.Equal(at(2025, 6, 20, 14, 0)) || !iv.End.Equal(at(2025, 6, 20, 16, 0)) {
			t.Fatalf("unexpected interval %v - %v", iv.Start, iv.End)
		}
	})

	t.Run("parser error", func(t *testing.T) {
		r := New(time.UTC, &stubParser{err: errors.New("nope")})
		if _, ok := r.Resolve("not-a-date-at-all-xyz", "", 180); ok {
			t.Fatal("expected unresolved")
		}
	})

	t.Run("zero time", func(t *testing.T) {
		r := New(time.UTC, &stubParser{})
		if _, ok := r.Resolve("когда-нибудь", "", 180); ok {
			t.Fatal("expected unresolved")
		}
	})

	t.Run("parser panic", func(t *testing.T) {
		r := New(time.UTC, &stubParser{panic: true})
		if _, ok := r.Resolve("???", "", 180); ok {
			t.Fatal("expected unresolved")
		}
	})

	t.Run("no parser", func(t *testing.T) {
		r := New(time.UTC, nil)
		if _, ok := r.Resolve("завтра", "", 180); ok {
			t.Fatal("expected unresolved")
		}
	})
}

func TestResolveUsesLocation(t *testing.T) {
	msk := time.FixedZone("MSK", 3*3600)
	r := New(msk, nil)

	iv, ok := r.Resolve("2025-06-15", "12:00", 0)
	if !ok {
		t.Fatal("expected resolve")
	}
	if iv.Start.Location() != msk {
		t.Fatalf("expected interval in %v, got %v", msk, iv.Start.Location())
	}
	if iv.Start.UTC().Hour() != 9 {
		t.Fatalf("expected 09:00 UTC, got %v", iv.Start.UTC())
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in     string
		h, m   int
		wantOK bool
	}{
		{"00:00", 0, 0, true},
		{"23:59", 23, 59, true},
		{"9:05", 9, 5, true},
		{"24:00", 0, 0, false},
		{"12:60", 0, 0, false},
		{"12", 0, 0, false},
		{"12:00:00", 0, 0, false},
		{"", 0, 0, false},
	}
	for _, tc := range tests {
		h, m, ok := ParseClock(tc.in)
		if ok != tc.wantOK || (ok && (h != tc.h || m != tc.m)) {
			t.Errorf("ParseClock(%q) = %d, %d, %v; want %d, %d, %v", tc.in, h, m, ok, tc.h, tc.m, tc.wantOK)
		}
	}
}

func TestNaturalParserRussian(t *testing.T) {
	p := NewNaturalParser()
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

	got, err := p.ParseDate("15 июня 2025", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if y, m, d := got.Date(); y != 2025 || m != time.June || d != 15 {
		t.Fatalf("want 2025-06-15, got %v", got)
	}
}

func TestResolveRussianPhrases(t *testing.T) {
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	r := New(time.UTC, NewNaturalParser())
	r.Now = func() time.Time { return now }

	tests := []struct {
		phrase string
		want   time.Time
		wantOK bool
	}{
		{"завтра", at(2025, 1, 11, 9, 0), true},
		{"15 июня", at(2025, 6, 15, 9, 0), true},
		{"абракадабра", time.Time{}, false},
		{"not-a-date-at-all-xyz", time.Time{}, false},
	}
	for _, tc := range tests {
		iv, ok := r.Resolve(tc.phrase, "", DefaultWindowMinutes)
		if ok != tc.wantOK {
			t.Fatalf("Resolve(%q) ok = %v, want %v", tc.phrase, ok, tc.wantOK)
		}
		if ok && !iv.Start.Equal(tc.want) {
			t.Fatalf("Resolve(%q) start = %v, want %v", tc.phrase, iv.Start, tc.want)
		}
	}
}
