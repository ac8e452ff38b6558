package scheduling

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Santonastaso/scheduler-demo-sub000/core/availability"
	"github.com/Santonastaso/scheduler-demo-sub000/core/model"
	core "github.com/Santonastaso/scheduler-demo-sub000/core/scheduling"
	"github.com/Santonastaso/scheduler-demo-sub000/core/store"
	"github.com/Santonastaso/scheduler-demo-sub000/infra/logger"
	"github.com/Santonastaso/scheduler-demo-sub000/internal/lockmap"
)

var day = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestHandler(t *testing.T) (*Handler, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	locks := lockmap.New()
	avail := availability.NewService(st, locks, time.Second, nil, nil, logger.NopLogger{})
	eng, err := core.NewEngine(core.Config{}, st, avail, locks, nil, nil, logger.NopLogger{})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	resolver, err := core.NewConflictResolver(eng, logger.NopLogger{})
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	if err := st.SaveMachine(context.Background(), model.Machine{
		ID: "m1", WorkCenter: "milling", Department: "prod", Status: model.MachineActive,
	}); err != nil {
		t.Fatalf("save machine: %v", err)
	}
	if err := st.SaveTask(context.Background(), model.Task{
		ID: "t1", WorkCenter: "milling", Department: "prod",
		RequestedDurationHours: 2, TimeRemainingHours: 2,
		Quantity: 10, Status: model.StatusNotScheduled,
	}); err != nil {
		t.Fatalf("save task: %v", err)
	}
	return NewHandler(eng, resolver, avail, st, logger.NopLogger{}), st
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestPlaceEndpoint(t *testing.T) {
	h, st := newTestHandler(t)
	rr := postJSON(t, h, "/api/scheduling/place", placeRequest{
		TaskID: "t1", MachineID: "m1", Start: day.Add(9 * time.Hour), DurationHours: 2,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	var res core.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if res.Outcome != core.OutcomeSuccess {
		t.Fatalf("outcome %s", res.Outcome)
	}
	got, err := st.GetTask(context.Background(), "t1")
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Status != model.StatusScheduled {
		t.Fatalf("status %s", got.Status)
	}
}

func TestPlaceEndpointConflictIs200(t *testing.T) {
	h, st := newTestHandler(t)
	if err := st.SaveTask(context.Background(), model.Task{
		ID: "t2", WorkCenter: "milling", Department: "prod",
		RequestedDurationHours: 2, TimeRemainingHours: 2,
		Quantity: 10, Status: model.StatusNotScheduled,
	}); err != nil {
		t.Fatalf("save task: %v", err)
	}
	rr := postJSON(t, h, "/api/scheduling/place", placeRequest{
		TaskID: "t1", MachineID: "m1", Start: day.Add(9 * time.Hour), DurationHours: 2,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	rr = postJSON(t, h, "/api/scheduling/place", placeRequest{
		TaskID: "t2", MachineID: "m1", Start: day.Add(10 * time.Hour), DurationHours: 2,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("conflict should be 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var res core.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if res.Outcome != core.OutcomeConflict {
		t.Fatalf("outcome %s", res.Outcome)
	}
	if res.Conflict == nil || res.Conflict.ConflictingTaskID != "t1" {
		t.Fatalf("conflict payload %+v", res.Conflict)
	}
}

func TestPlaceEndpointValidationIs400(t *testing.T) {
	h, _ := newTestHandler(t)
	rr := postJSON(t, h, "/api/scheduling/place", placeRequest{
		TaskID: "t1", MachineID: "m1", Start: day.Add(9 * time.Hour), DurationHours: -1,
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}

func TestPlaceEndpointUnknownTaskIs404(t *testing.T) {
	h, _ := newTestHandler(t)
	rr := postJSON(t, h, "/api/scheduling/place", placeRequest{
		TaskID: "nope", MachineID: "m1", Start: day.Add(9 * time.Hour), DurationHours: 1,
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rr.Code)
	}
}

func TestShuntEndpoint(t *testing.T) {
	h, st := newTestHandler(t)
	for id, hours := range map[string]float64{"a": 2, "b": 1.5} {
		if err := st.SaveTask(context.Background(), model.Task{
			ID: id, WorkCenter: "milling", Department: "prod",
			RequestedDurationHours: hours, TimeRemainingHours: hours,
			Quantity: 10, Status: model.StatusNotScheduled,
		}); err != nil {
			t.Fatalf("save task: %v", err)
		}
	}
	rr := postJSON(t, h, "/api/scheduling/place", placeRequest{
		TaskID: "a", MachineID: "m1", Start: day.Add(10 * time.Hour), DurationHours: 2,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("place a: %d", rr.Code)
	}
	rr = postJSON(t, h, "/api/scheduling/shunt", map[string]any{
		"task_id": "b", "machine_id": "m1",
		"start": day.Add(11 * time.Hour), "duration_hours": 1.5,
		"direction": "right",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("shunt: %d %s", rr.Code, rr.Body.String())
	}
	var res core.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if res.Outcome != core.OutcomeSuccess {
		t.Fatalf("outcome %s: %+v", res.Outcome, res)
	}
	got, err := st.GetTask(context.Background(), "b")
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if !got.ScheduledStart().Equal(day.Add(12 * time.Hour)) {
		t.Fatalf("b starts at %v", got.ScheduledStart())
	}
}

func TestShuntEndpointBadDirection(t *testing.T) {
	h, _ := newTestHandler(t)
	rr := postJSON(t, h, "/api/scheduling/shunt", map[string]any{
		"task_id": "t1", "machine_id": "m1",
		"start": day.Add(9 * time.Hour), "duration_hours": 1,
		"direction": "sideways",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}

func TestChangeDurationEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)
	rr := postJSON(t, h, "/api/scheduling/place", placeRequest{
		TaskID: "t1", MachineID: "m1", Start: day.Add(9 * time.Hour), DurationHours: 2,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("place: %d", rr.Code)
	}
	rr = postJSON(t, h, "/api/scheduling/change-duration", map[string]any{
		"task_id": "t1", "duration_hours": 1.0,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("change duration: %d %s", rr.Code, rr.Body.String())
	}
	var res core.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if res.Outcome != core.OutcomeSuccess {
		t.Fatalf("outcome %s", res.Outcome)
	}
}

func TestUnscheduleEndpoint(t *testing.T) {
	h, st := newTestHandler(t)
	rr := postJSON(t, h, "/api/scheduling/place", placeRequest{
		TaskID: "t1", MachineID: "m1", Start: day.Add(9 * time.Hour), DurationHours: 2,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("place: %d", rr.Code)
	}
	rr = postJSON(t, h, "/api/scheduling/unschedule", map[string]string{"task_id": "t1"})
	if rr.Code != http.StatusOK {
		t.Fatalf("unschedule: %d %s", rr.Code, rr.Body.String())
	}
	got, err := st.GetTask(context.Background(), "t1")
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Status != model.StatusNotScheduled || len(got.Segments) != 0 {
		t.Fatalf("task still scheduled: %+v", got)
	}
}

func TestAvailabilityEndpoints(t *testing.T) {
	h, _ := newTestHandler(t)
	rr := postJSON(t, h, "/api/scheduling/availability/toggle", map[string]any{
		"machine_id": "m1", "date": day, "hour": 14,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("toggle: %d %s", rr.Code, rr.Body.String())
	}
	var res availability.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if res.Outcome != availability.OutcomeUpdated || len(res.Hours) != 1 || res.Hours[0] != 14 {
		t.Fatalf("toggle result %+v", res)
	}
	rr = postJSON(t, h, "/api/scheduling/availability/range", map[string]any{
		"machine_id": "m1", "date": day, "from_hour": 8, "to_hour": 10, "unavailable": true,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("range: %d %s", rr.Code, rr.Body.String())
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(res.Hours) != 4 { // hours 8-10 plus the toggled hour 14
		t.Fatalf("range result %+v", res)
	}
}

func TestListTasksEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)
	rr := postJSON(t, h, "/api/scheduling/place", placeRequest{
		TaskID: "t1", MachineID: "m1", Start: day.Add(9 * time.Hour), DurationHours: 2,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("place: %d", rr.Code)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/scheduling/tasks?machine_id=m1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d", rec.Code)
	}
	var tasks []model.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &tasks); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "t1" {
		t.Fatalf("tasks %+v", tasks)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/scheduling/tasks", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without machine_id, got %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler(t)
	for _, path := range []string{
		"/api/scheduling/place",
		"/api/scheduling/shunt",
		"/api/scheduling/availability/toggle",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s: expected 405 got %d", path, rr.Code)
		}
	}
}
