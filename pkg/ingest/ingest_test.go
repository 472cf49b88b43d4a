package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"sort"
	"sync"
	"testing"

	"github.com/dobromatch/dobromatch/pkg/events"
	"github.com/dobromatch/dobromatch/pkg/storage"
)

type staticSource []events.Record

func (s staticSource) Load(context.Context) ([]events.Record, error) { return s, nil }

type failingSource struct{}

func (failingSource) Load(context.Context) ([]events.Record, error) {
	return nil, errors.New("boom")
}

func openTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "events.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func records(prefix string, n int) staticSource {
	out := make(staticSource, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, events.Record{
			Title:    fmt.Sprintf("%s %d", prefix, i),
			URL:      fmt.Sprintf("https://dobro.ru/event/%s-%d", prefix, i),
			Schedule: events.Schedule{Date: "2025-06-15"},
		})
	}
	return out
}

func TestRunImportsEveryDataset(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	var mu sync.Mutex
	done := map[string]int{}
	res := Run(ctx, Config{
		Datasets: []Dataset{
			{Name: "moscow", Source: records("moscow", 3)},
			{Name: "kazan", Source: records("kazan", 2)},
			{Name: "broken", Source: failingSource{}},
		},
		DB:          db,
		Concurrency: 2,
		OnDatasetDone: func(name string, loaded int, _ []storage.Change) {
			mu.Lock()
			done[name] = loaded
			mu.Unlock()
		},
	})

	sort.Strings(res.Imported)
	if want := []string{"kazan", "moscow"}; !reflect.DeepEqual(res.Imported, want) {
		t.Fatalf("want imported %v, got %v", want, res.Imported)
	}
	if len(res.Changes) != 5 {
		t.Fatalf("want 5 changes, got %d", len(res.Changes))
	}
	if len(res.Errors) != 1 {
		t.Fatalf("want one error, got %v", res.Errors)
	}
	if want := map[string]int{"moscow": 3, "kazan": 2}; !reflect.DeepEqual(done, want) {
		t.Fatalf("want callbacks %v, got %v", want, done)
	}

	all, err := db.Load(ctx)
	if err != nil || len(all) != 5 {
		t.Fatalf("want 5 stored events, got %d, %v", len(all), err)
	}
}

func TestRunRefusesWipe(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	if res := Run(ctx, Config{Datasets: []Dataset{{Name: "moscow", Source: records("moscow", WipeGuard+1)}}, DB: db}); len(res.Errors) != 0 {
		t.Fatalf("seed import: %v", res.Errors)
	}

	res := Run(ctx, Config{Datasets: []Dataset{{Name: "moscow", Source: staticSource{}}}, DB: db})
	if len(res.Errors) != 1 || !errors.Is(res.Errors[0], ErrAbortingWipe) {
		t.Fatalf("want ErrAbortingWipe, got %v", res.Errors)
	}
	if n, _ := db.CountEvents(ctx, "moscow"); n != WipeGuard+1 {
		t.Fatalf("events must survive, got %d", n)
	}
}

func TestRunEmptyDatasetSmallSource(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	Run(ctx, Config{Datasets: []Dataset{{Name: "kazan", Source: records("kazan", 2)}}, DB: db})
	res := Run(ctx, Config{Datasets: []Dataset{{Name: "kazan", Source: staticSource{}}}, DB: db})
	if len(res.Errors) != 0 || len(res.Changes) != 2 {
		t.Fatalf("want two removals, got %v, %v", res.Changes, res.Errors)
	}
	for _, c := range res.Changes {
		if c.ChangeType != storage.ChangeRemoved {
			t.Fatalf("want removed, got %s", c.ChangeType)
		}
	}
}

func TestRunNoDatasets(t *testing.T) {
	res := Run(context.Background(), Config{})
	if len(res.Imported) != 0 || len(res.Errors) != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
}
