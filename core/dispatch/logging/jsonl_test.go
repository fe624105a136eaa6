package logging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestJSONLStore_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cycles.jsonl")
	store, err := NewJSONLStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Append(context.Background(), LogRecord{Timestamp: time.Now(), Kind: KindCycle, CycleID: "a"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, _ = f.WriteString("not json\n")
	_ = f.Close()
	if err := store.Append(context.Background(), LogRecord{Timestamp: time.Now(), Kind: KindCycle, CycleID: "b"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	out, err := store.Query(context.Background(), LogQuery{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 2 || out[1].CycleID != "b" {
		t.Fatalf("unexpected records %+v", out)
	}
}
