// Package ingest imports several event datasets into the catalogue.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dobromatch/dobromatch/pkg/events"
	"github.com/dobromatch/dobromatch/pkg/storage"
)

// DefaultConcurrency is used when Config.Concurrency is not positive.
const DefaultConcurrency = 4

// WipeGuard is the number of stored events above which an empty dataset is
// refused instead of being imported.
const WipeGuard = 10

// ErrAbortingWipe is returned for a source whose dataset came back empty
// while the catalogue still holds more than WipeGuard of its events.
var ErrAbortingWipe = errors.New("empty dataset would remove all events")

// Logger abstracts logging so callers can use logrus or any other logger
// that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Debugf(string, ...interface{}) {}

// Catalogue is the part of *storage.DB an import needs.
type Catalogue interface {
	CountEvents(ctx context.Context, source string) (int, error)
	UpsertEvents(ctx context.Context, source string, records []events.Record) ([]storage.Change, error)
}

// Dataset names an event source. Name becomes the catalogue source.
type Dataset struct {
	Name   string
	Source events.Source
}

type Config struct {
	Datasets    []Dataset
	DB          Catalogue
	Concurrency int    // defaults to DefaultConcurrency if <= 0
	Log         Logger // optional; nil = no logging

	// OnDatasetDone is called from worker goroutines after a dataset has
	// been stored. Nil = no callback.
	OnDatasetDone func(name string, loaded int, changes []storage.Change)
}

// Result holds the outcome of an import.
type Result struct {
	Imported []string
	Changes  []storage.Change
	Errors   []error // one per failed dataset
}

// Run loads the datasets concurrently and stores each one as the full
// content of its source. A failing dataset does not stop the others.
// Writes to the catalogue are serialised.
func Run(ctx context.Context, cfg Config) *Result {
	log := cfg.Log
	if log == nil {
		log = nopLogger{}
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	result := &Result{}
	if len(cfg.Datasets) == 0 {
		return result
	}

	ch := make(chan Dataset, len(cfg.Datasets))

	var (
		mu      sync.Mutex // guards result
		writeMu sync.Mutex
		wg      sync.WaitGroup
	)
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ds := range ch {
				loaded, changes, err := importOne(ctx, cfg.DB, &writeMu, ds, log)
				mu.Lock()
				if err != nil {
					result.Errors = append(result.Errors, fmt.Errorf("%s: %w", ds.Name, err))
				} else {
					result.Imported = append(result.Imported, ds.Name)
					result.Changes = append(result.Changes, changes...)
				}
				mu.Unlock()
				if err == nil && cfg.OnDatasetDone != nil {
					cfg.OnDatasetDone(ds.Name, loaded, changes)
				}
			}
		}()
	}

	for _, ds := range cfg.Datasets {
		ch <- ds
	}
	close(ch)
	wg.Wait()

	return result
}

func importOne(ctx context.Context, db Catalogue, writeMu *sync.Mutex, ds Dataset, log Logger) (int, []storage.Change, error) {
	records, err := ds.Source.Load(ctx)
	if err != nil {
		log.Warnf("Failed to load dataset %s: %v", ds.Name, err)
		return 0, nil, err
	}

	writeMu.Lock()
	defer writeMu.Unlock()

	if len(records) == 0 {
		stored, err := db.CountEvents(ctx, ds.Name)
		if err != nil {
			log.Warnf("Could not count events for %s: %v", ds.Name, err)
		}
		if stored > WipeGuard {
			log.Warnf("Dataset %s is empty, but the catalogue holds %d of its events. Skipping.", ds.Name, stored)
			return 0, nil, ErrAbortingWipe
		}
	}

	changes, err := db.UpsertEvents(ctx, ds.Name, records)
	if err != nil {
		log.Warnf("Database error for dataset %s: %v", ds.Name, err)
		return 0, nil, err
	}
	log.Debugf("Stored %d events for %s (%d changes)", len(records), ds.Name, len(changes))
	return len(records), changes, nil
}
