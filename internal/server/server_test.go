package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dobromatch/dobromatch/pkg/daterange"
	"github.com/dobromatch/dobromatch/pkg/events"
	"github.com/dobromatch/dobromatch/pkg/extract"
	"github.com/dobromatch/dobromatch/pkg/llm"
	"github.com/dobromatch/dobromatch/pkg/search"
	"github.com/dobromatch/dobromatch/pkg/storage"
)

type staticSource []events.Record

func (s staticSource) Load(context.Context) ([]events.Record, error) { return s, nil }

type brokenSource struct{}

func (brokenSource) Load(context.Context) ([]events.Record, error) {
	return nil, errors.New("no such file")
}

type fixedStats storage.Stats

func (f fixedStats) GetStats(context.Context) (storage.Stats, error) { return storage.Stats(f), nil }

type replyCompleter string

func (r replyCompleter) Complete(context.Context, llm.Request) (string, error) { return string(r), nil }

var dataset = staticSource{{
	Title:     "Субботник",
	URL:       "https://dobro.ru/event/1",
	Schedule:  events.Schedule{Date: "2025-06-15", TimeStart: "10:00", TimeEnd: "12:00"},
	Location:  events.Location{City: "Москва", AddressFull: "ул. Тверская, 1"},
	Organizer: events.Organizer{Name: "Добро"},
}}

func newTestServer(src events.Source) *Server {
	return &Server{
		Engine:        &search.Engine{Resolver: daterange.New(time.UTC, nil)},
		Source:        src,
		DefaultWindow: 180,
		DefaultMax:    5,
	}
}

func TestHandleSearch(t *testing.T) {
	ts := httptest.NewServer(newTestServer(dataset).Handler())
	defer ts.Close()

	tests := []struct {
		name       string
		query      string
		wantCode   int
		wantStatus search.Status
		wantItems  int
	}{
		{"found", "date=2025-06-15&time=11:00&city=%D0%9C%D0%BE%D1%81%D0%BA%D0%B2%D0%B0", http.StatusOK, search.Found, 1},
		{"other city", "date=2025-06-15&city=Kazan", http.StatusOK, search.NoResults, 0},
		{"unresolved", "date=someday", http.StatusOK, search.Unresolved, 0},
		{"narrow window", "date=2025-06-15&time=16:00&window=30", http.StatusOK, search.NoResults, 0},
		{"bad window", "date=2025-06-15&window=abc", http.StatusBadRequest, "", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Get(ts.URL + "/api/search?" + tc.query)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tc.wantCode {
				t.Fatalf("want HTTP %d, got %d", tc.wantCode, resp.StatusCode)
			}
			if tc.wantCode != http.StatusOK {
				return
			}
			var res search.Result
			if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if res.Status != tc.wantStatus || len(res.Items) != tc.wantItems {
				t.Fatalf("want %s with %d items, got %s with %d", tc.wantStatus, tc.wantItems, res.Status, len(res.Items))
			}
			if res.Message != res.Text() {
				t.Fatalf("message %q does not match rendered text", res.Message)
			}
		})
	}
}

func TestHandleSearchText(t *testing.T) {
	ts := httptest.NewServer(newTestServer(dataset).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/search?date=2025-06-15&format=text")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	want := "Вот что нашёл:\n• **Субботник** — 15.06.2025 10:00-12:00 • ул. Тверская, 1 • Добро\n  https://dobro.ru/event/1"
	if string(body) != want {
		t.Fatalf("want:\n%s\ngot:\n%s", want, body)
	}
}

func TestDatasetUnavailable(t *testing.T) {
	ts := httptest.NewServer(newTestServer(brokenSource{}).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/search?date=2025-06-15")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("want 503, got %d", resp.StatusCode)
	}
}

func TestHandleAsk(t *testing.T) {
	s := newTestServer(dataset)
	s.Extractor = &extract.Extractor{LLM: replyCompleter(`{"city":"Москва","date":"2025-06-15","time_start":"11:00"}`)}
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/ask", "application/json", strings.NewReader(`{"text":"субботник в Москве 15 июня"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	var out AskResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Fields.City != "Москва" || out.Status != search.Found || len(out.Items) != 1 {
		t.Fatalf("unexpected response %+v", out)
	}

	resp, err = http.Post(ts.URL+"/api/ask", "application/json", strings.NewReader(`{"text":"  "}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("want 400 for empty text, got %d", resp.StatusCode)
	}
}

func TestHandleAskDisabled(t *testing.T) {
	ts := httptest.NewServer(newTestServer(dataset).Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/ask", "application/json", strings.NewReader(`{"text":"x"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotImplemented {
		t.Fatalf("want 501, got %d", resp.StatusCode)
	}
}

func TestBasicAuth(t *testing.T) {
	s := newTestServer(dataset)
	s.Username, s.Password = "admin", "secret"
	s.Stats = fixedStats{Total: 1, BySource: []storage.Count{{Key: "dobro.ru", Events: 1}}}
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	get := func(path string, auth bool) int {
		req, _ := http.NewRequest(http.MethodGet, ts.URL+path, nil)
		if auth {
			req.SetBasicAuth("admin", "secret")
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if code := get("/api/stats", false); code != http.StatusUnauthorized {
		t.Fatalf("want 401 without credentials, got %d", code)
	}
	if code := get("/api/stats", true); code != http.StatusOK {
		t.Fatalf("want 200 with credentials, got %d", code)
	}
	if code := get("/api/search?date=2025-06-15", false); code != http.StatusUnauthorized {
		t.Fatalf("want 401 on search without credentials, got %d", code)
	}
	if code := get("/health", false); code != http.StatusOK {
		t.Fatalf("health must stay public, got %d", code)
	}
}

func TestHealthReportsCache(t *testing.T) {
	cache := events.NewCache(dataset)
	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(newTestServer(cache).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body struct {
		Status string `json:"status"`
		Events int    `json:"events"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" || body.Events != 1 {
		t.Fatalf("unexpected health %+v", body)
	}
}
