package logging

import (
	"context"
	"testing"
	"time"

	"github.com/Santonastaso/scheduler-demo-sub000/core/model"
)

func TestSQLiteStore_PersistQuery(t *testing.T) {
	store, err := NewSQLiteStore("file:test.db?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	rec := LogRecord{
		Timestamp: time.Now(),
		Operation: "place",
		TaskID:    "t1",
		MachineID: "m1",
		Outcome:   "success",
		Segments:  []model.Segment{model.NewSegment(start, start.Add(2*time.Hour))},
	}
	if err := store.Append(context.Background(), rec); err != nil {
		t.Fatalf("append: %v", err)
	}
	other := rec
	other.TaskID = "t2"
	other.Operation = "shunt"
	if err := store.Append(context.Background(), other); err != nil {
		t.Fatalf("append: %v", err)
	}

	out, err := store.Query(context.Background(), LogQuery{TaskID: "t1"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 record, got %d", len(out))
	}
	if out[0].Operation != "place" || len(out[0].Segments) != 1 {
		t.Fatalf("record round-trip mismatch: %+v", out[0])
	}

	out, err = store.Query(context.Background(), LogQuery{Operation: "shunt", MachineID: "m1"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 1 || out[0].TaskID != "t2" {
		t.Fatalf("expected the shunt record, got %+v", out)
	}
}
