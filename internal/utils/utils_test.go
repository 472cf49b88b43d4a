package utils

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestSetLogLevel(t *testing.T) {
	tests := map[string]logrus.Level{
		"debug":   logrus.DebugLevel,
		"INFO":    logrus.InfoLevel,
		"warn":    logrus.WarnLevel,
		"warning": logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
	}
	for in, want := range tests {
		SetLogLevel(in)
		if got := Log.GetLevel(); got != want {
			t.Fatalf("SetLogLevel(%q): want %v, got %v", in, want, got)
		}
	}
	SetLogLevel("info")
}

func TestReadPrompt(t *testing.T) {
	if got, err := ReadPrompt(""); got != "" || err != nil {
		t.Fatalf("empty path: %q, %v", got, err)
	}

	path := filepath.Join(t.TempDir(), "prompt.txt")
	if err := os.WriteFile(path, []byte("\nТы судья.\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ReadPrompt(path)
	if err != nil || got != "Ты судья." {
		t.Fatalf("want trimmed prompt, got %q, %v", got, err)
	}

	if _, err := ReadPrompt(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestDBLock(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "catalogue.sqlite")
	l, err := NewDBLock(dbPath)
	if err != nil {
		t.Fatalf("NewDBLock: %v", err)
	}
	if err := l.Lock(context.Background()); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if _, err := os.Stat(dbPath + ".lock"); err != nil {
		t.Fatalf("expected a lock file: %v", err)
	}
	if l.Path() != dbPath+".lock" {
		t.Fatalf("want lock path %s, got %s", dbPath+".lock", l.Path())
	}
	if err := l.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
}

func TestDBLockModes(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "catalogue.sqlite")
	newLock := func() *DBLock {
		l, err := NewDBLock(dbPath)
		if err != nil {
			t.Fatalf("NewDBLock: %v", err)
		}
		return l
	}
	short := func() (context.Context, context.CancelFunc) {
		return context.WithTimeout(context.Background(), 100*time.Millisecond)
	}

	writer, readerA, readerB := newLock(), newLock(), newLock()

	if err := writer.Lock(context.Background()); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	ctx, cancel := short()
	err := readerA.RLock(ctx)
	cancel()
	if err == nil {
		t.Fatal("a shared lock must wait for the exclusive holder")
	}
	writer.Unlock()

	if err := readerA.RLock(context.Background()); err != nil {
		t.Fatalf("RLock: %v", err)
	}
	if err := readerB.RLock(context.Background()); err != nil {
		t.Fatalf("shared locks must coexist: %v", err)
	}
	ctx, cancel = short()
	err = writer.Lock(ctx)
	cancel()
	if err == nil {
		t.Fatal("an exclusive lock must wait for shared holders")
	}
	readerA.Unlock()
	readerB.Unlock()

	if err := writer.Lock(context.Background()); err != nil {
		t.Fatalf("Lock after readers left: %v", err)
	}
	writer.Unlock()
}
