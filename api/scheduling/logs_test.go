package scheduling

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Santonastaso/scheduler-demo-sub000/core/scheduling/logging"
)

type memLogStore struct{ recs []logging.LogRecord }

func (m *memLogStore) Append(ctx context.Context, r logging.LogRecord) error {
	m.recs = append(m.recs, r)
	return nil
}

func (m *memLogStore) Query(ctx context.Context, q logging.LogQuery) ([]logging.LogRecord, error) {
	var res []logging.LogRecord
	for _, r := range m.recs {
		if q.Matches(r) {
			res = append(res, r)
		}
	}
	return res, nil
}

func (m *memLogStore) Close() error { return nil }

func TestLogHandler_AuthAndFilters(t *testing.T) {
	store := &memLogStore{}
	if err := store.Append(context.Background(), logging.LogRecord{
		Timestamp: time.Now(),
		Operation: "place",
		TaskID:    "t1",
		MachineID: "m1",
		Outcome:   "success",
	}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Append(context.Background(), logging.LogRecord{
		Timestamp: time.Now(),
		Operation: "shunt",
		TaskID:    "t2",
		MachineID: "m1",
		Outcome:   "conflict",
	}); err != nil {
		t.Fatalf("append: %v", err)
	}
	h := NewLogHandler(store, "tok")

	req := httptest.NewRequest("GET", "/api/scheduling/logs?task_id=t1", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out []logging.LogRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != 1 || out[0].TaskID != "t1" {
		t.Fatalf("expected 1 record for t1, got %+v", out)
	}

	req = httptest.NewRequest("GET", "/api/scheduling/logs?operation=shunt", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != 1 || out[0].Operation != "shunt" {
		t.Fatalf("expected 1 shunt record, got %+v", out)
	}

	// unauthorized
	req = httptest.NewRequest("GET", "/api/scheduling/logs", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}
}
