package logging

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestJSONLStore_AppendQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	store, err := NewJSONLStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	recs := []LogRecord{
		{Timestamp: base, Operation: "place", TaskID: "t1", MachineID: "m1", Outcome: "success"},
		{Timestamp: base.Add(time.Hour), Operation: "shunt", TaskID: "t2", MachineID: "m1", Outcome: "conflict", ConflictingID: "t1"},
		{Timestamp: base.Add(2 * time.Hour), Operation: "place", TaskID: "t3", MachineID: "m2", Outcome: "failure", FailureReason: "no room"},
	}
	for _, r := range recs {
		if err := store.Append(context.Background(), r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	out, err := store.Query(context.Background(), LogQuery{MachineID: "m1"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 records for m1, got %d", len(out))
	}
	out, err = store.Query(context.Background(), LogQuery{Start: base.Add(90 * time.Minute)})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 1 || out[0].TaskID != "t3" {
		t.Fatalf("time filter mismatch: %+v", out)
	}
}

func TestRotatingJSONLStore_Query(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	store, err := NewRotatingJSONLStore(path, 1, 2, 1)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()
	if err := store.Append(context.Background(), LogRecord{Timestamp: time.Now(), Operation: "place"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	out, err := store.Query(context.Background(), LogQuery{Operation: "place"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) == 0 {
		t.Fatalf("expected records")
	}
}

func TestLogQueryMatches(t *testing.T) {
	rec := LogRecord{Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), Operation: "place", TaskID: "t1", MachineID: "m1"}
	if !(LogQuery{}).Matches(rec) {
		t.Fatalf("empty query must match everything")
	}
	if (LogQuery{Operation: "shunt"}).Matches(rec) {
		t.Fatalf("operation filter failed")
	}
	if (LogQuery{End: rec.Timestamp.Add(-time.Minute)}).Matches(rec) {
		t.Fatalf("end filter failed")
	}
}
