package logging

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRotatingJSONLStore_Rotation(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/log.jsonl"
	store, err := NewRotatingJSONLStore(path, 1, 2, 1)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()
	big := strings.Repeat("x", 64*1024)
	rec := LogRecord{Timestamp: time.Now(), Kind: KindCycle, Error: big}
	for i := 0; i < 20; i++ {
		if err := store.Append(context.Background(), rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	backups, _ := filepath.Glob(dir + "/log-*.jsonl")
	if len(backups) == 0 {
		t.Fatalf("expected rotated files")
	}
	out, err := store.Query(context.Background(), LogQuery{Kind: KindCycle})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) < 2 {
		t.Fatalf("expected records from active and rotated files, got %d", len(out))
	}
}

func TestRotatingJSONLStore_Query(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/log.jsonl"
	store, err := NewRotatingJSONLStore(path, 1, 2, 1)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()
	now := time.Now()
	_ = store.Append(context.Background(), LogRecord{Timestamp: now, Kind: KindCycle, CycleID: "a"})
	_ = store.Append(context.Background(), LogRecord{Timestamp: now, Kind: KindCommand, CycleID: "a"})
	out, err := store.Query(context.Background(), LogQuery{Kind: KindCommand})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 command record, got %d", len(out))
	}
}
