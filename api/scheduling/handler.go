// Package scheduling exposes the scheduling engine over HTTP. Every
// operation returns the discriminated result payload as JSON; conflicts and
// failures are 200 responses, only invalid requests and infrastructure
// problems map to error status codes.
package scheduling

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Santonastaso/scheduler-demo-sub000/core/availability"
	"github.com/Santonastaso/scheduler-demo-sub000/core/scheduling"
	"github.com/Santonastaso/scheduler-demo-sub000/core/store"
	"github.com/Santonastaso/scheduler-demo-sub000/infra/logger"
)

// Handler bundles the scheduling operations behind a single http.Handler.
type Handler struct {
	engine   *scheduling.Engine
	resolver *scheduling.ConflictResolver
	avail    *availability.Service
	store    store.Store
	log      logger.Logger
	mux      *http.ServeMux
}

// NewHandler wires the engine, resolver and availability service into an
// HTTP handler rooted at /api/scheduling/.
func NewHandler(engine *scheduling.Engine, resolver *scheduling.ConflictResolver, avail *availability.Service, st store.Store, log logger.Logger) *Handler {
	h := &Handler{engine: engine, resolver: resolver, avail: avail, store: st, log: log, mux: http.NewServeMux()}
	h.mux.HandleFunc("/api/scheduling/place", h.place)
	h.mux.HandleFunc("/api/scheduling/place-ending-at", h.placeEndingAt)
	h.mux.HandleFunc("/api/scheduling/change-duration", h.changeDuration)
	h.mux.HandleFunc("/api/scheduling/shunt", h.shunt)
	h.mux.HandleFunc("/api/scheduling/unschedule", h.unschedule)
	h.mux.HandleFunc("/api/scheduling/availability/toggle", h.toggleHour)
	h.mux.HandleFunc("/api/scheduling/availability/range", h.setRange)
	h.mux.HandleFunc("/api/scheduling/tasks", h.listTasks)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) { h.mux.ServeHTTP(w, r) }

type placeRequest struct {
	TaskID        string    `json:"task_id"`
	MachineID     string    `json:"machine_id"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	DurationHours float64   `json:"duration_hours"`
}

func (h *Handler) place(w http.ResponseWriter, r *http.Request) {
	var req placeRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.engine.Place(r.Context(), req.TaskID, req.Start, req.DurationHours, req.MachineID, nil)
	h.respond(w, res, err)
}

func (h *Handler) placeEndingAt(w http.ResponseWriter, r *http.Request) {
	var req placeRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.engine.PlaceEndingAt(r.Context(), req.TaskID, req.End, req.DurationHours, req.MachineID, nil)
	h.respond(w, res, err)
}

func (h *Handler) changeDuration(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TaskID        string  `json:"task_id"`
		DurationHours float64 `json:"duration_hours"`
	}
	if !decode(w, r, &req) {
		return
	}
	res, err := h.engine.ChangeDuration(r.Context(), req.TaskID, req.DurationHours)
	h.respond(w, res, err)
}

func (h *Handler) shunt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TaskID        string    `json:"task_id"`
		MachineID     string    `json:"machine_id"`
		Start         time.Time `json:"start"`
		DurationHours float64   `json:"duration_hours"`
		Direction     string    `json:"direction"`
	}
	if !decode(w, r, &req) {
		return
	}
	res, err := h.resolver.Shunt(r.Context(), scheduling.ShuntRequest{
		TaskID:        req.TaskID,
		MachineID:     req.MachineID,
		Start:         req.Start,
		DurationHours: req.DurationHours,
		Direction:     scheduling.Direction(req.Direction),
	})
	h.respond(w, res, err)
}

func (h *Handler) unschedule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TaskID string `json:"task_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := h.engine.Unschedule(r.Context(), req.TaskID); err != nil {
		h.error(w, err)
		return
	}
	writeJSON(w, map[string]string{"outcome": "success", "task_id": req.TaskID})
}

func (h *Handler) toggleHour(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MachineID string    `json:"machine_id"`
		Date      time.Time `json:"date"`
		Hour      int       `json:"hour"`
	}
	if !decode(w, r, &req) {
		return
	}
	res, err := h.avail.ToggleHour(r.Context(), req.MachineID, req.Date, req.Hour)
	if err != nil {
		h.error(w, err)
		return
	}
	writeJSON(w, res)
}

func (h *Handler) setRange(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MachineID   string    `json:"machine_id"`
		Date        time.Time `json:"date"`
		FromHour    int       `json:"from_hour"`
		ToHour      int       `json:"to_hour"`
		Unavailable bool      `json:"unavailable"`
	}
	if !decode(w, r, &req) {
		return
	}
	res, err := h.avail.SetRange(r.Context(), req.MachineID, req.Date, req.FromHour, req.ToHour, req.Unavailable)
	if err != nil {
		h.error(w, err)
		return
	}
	writeJSON(w, res)
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	machineID := r.URL.Query().Get("machine_id")
	if machineID == "" {
		http.Error(w, "machine_id is required", http.StatusBadRequest)
		return
	}
	tasks, err := h.store.ListTasksByMachine(r.Context(), machineID)
	if err != nil {
		h.error(w, err)
		return
	}
	writeJSON(w, tasks)
}

func (h *Handler) respond(w http.ResponseWriter, res scheduling.Result, err error) {
	if err != nil {
		h.error(w, err)
		return
	}
	writeJSON(w, res)
}

func (h *Handler) error(w http.ResponseWriter, err error) {
	switch {
	case scheduling.IsValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case scheduling.IsConcurrency(err):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		h.log.Errorf("scheduling api: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
