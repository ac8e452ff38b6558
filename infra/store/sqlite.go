// Package store provides the persistent implementation of the core store
// interfaces. Segments are a first-class child table of tasks, never
// serialized into an unrelated task attribute.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Santonastaso/scheduler-demo-sub000/core/model"
	corestore "github.com/Santonastaso/scheduler-demo-sub000/core/store"
)

// SQLiteStore persists tasks, machines and availability in a SQLite
// database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `
    CREATE TABLE IF NOT EXISTS tasks (
        id TEXT PRIMARY KEY,
        machine_id TEXT,
        work_center TEXT,
        department TEXT,
        requested_hours REAL,
        remaining_hours REAL,
        quantity INTEGER,
        quantity_completed INTEGER,
        status TEXT
    );
    CREATE TABLE IF NOT EXISTS task_segments (
        task_id TEXT NOT NULL,
        position INTEGER NOT NULL,
        start_ts INTEGER NOT NULL,
        end_ts INTEGER NOT NULL,
        PRIMARY KEY(task_id, position)
    );
    CREATE TABLE IF NOT EXISTS machines (
        id TEXT PRIMARY KEY,
        work_center TEXT,
        department TEXT,
        status TEXT
    );
    CREATE TABLE IF NOT EXISTS availability (
        machine_id TEXT NOT NULL,
        day TEXT NOT NULL,
        hours TEXT NOT NULL,
        PRIMARY KEY(machine_id, day)
    );
    CREATE INDEX IF NOT EXISTS idx_tasks_machine ON tasks(machine_id);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// GetTask returns the task with its segments, or store.ErrNotFound.
func (s *SQLiteStore) GetTask(ctx context.Context, id string) (model.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, machine_id, work_center, department,
        requested_hours, remaining_hours, quantity, quantity_completed, status
        FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, corestore.ErrNotFound
	}
	if err != nil {
		return model.Task{}, err
	}
	if t.Segments, err = s.loadSegments(ctx, t.ID); err != nil {
		return model.Task{}, err
	}
	return t, nil
}

// ListTasksByMachine returns every task assigned to the machine, ordered by
// scheduled start with unscheduled tasks last.
func (s *SQLiteStore) ListTasksByMachine(ctx context.Context, machineID string) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT t.id, t.machine_id, t.work_center, t.department,
        t.requested_hours, t.remaining_hours, t.quantity, t.quantity_completed, t.status
        FROM tasks t
        LEFT JOIN task_segments s ON s.task_id = t.id AND s.position = 0
        WHERE t.machine_id = ?
        ORDER BY s.start_ts IS NULL, s.start_ts, t.id`, machineID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Segments, err = s.loadSegments(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SaveTask upserts the task and replaces its segment rows atomically.
func (s *SQLiteStore) SaveTask(ctx context.Context, t model.Task) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO tasks
        (id, machine_id, work_center, department, requested_hours, remaining_hours, quantity, quantity_completed, status)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            machine_id = excluded.machine_id,
            work_center = excluded.work_center,
            department = excluded.department,
            requested_hours = excluded.requested_hours,
            remaining_hours = excluded.remaining_hours,
            quantity = excluded.quantity,
            quantity_completed = excluded.quantity_completed,
            status = excluded.status`,
		t.ID, t.MachineID, t.WorkCenter, t.Department,
		t.RequestedDurationHours, t.TimeRemainingHours, t.Quantity, t.QuantityCompleted, string(t.Status)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM task_segments WHERE task_id = ?`, t.ID); err != nil {
		return err
	}
	for i, seg := range t.Segments {
		if _, err := tx.ExecContext(ctx, `INSERT INTO task_segments (task_id, position, start_ts, end_ts)
            VALUES (?, ?, ?, ?)`, t.ID, i, seg.Start.UTC().Unix(), seg.End.UTC().Unix()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetMachine returns the machine or store.ErrNotFound.
func (s *SQLiteStore) GetMachine(ctx context.Context, id string) (model.Machine, error) {
	var m model.Machine
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT id, work_center, department, status FROM machines WHERE id = ?`, id).
		Scan(&m.ID, &m.WorkCenter, &m.Department, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Machine{}, corestore.ErrNotFound
	}
	if err != nil {
		return model.Machine{}, err
	}
	m.Status = model.MachineStatus(status)
	return m, nil
}

// ListMachines returns all machines ordered by id.
func (s *SQLiteStore) ListMachines(ctx context.Context) ([]model.Machine, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, work_center, department, status FROM machines ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Machine
	for rows.Next() {
		var m model.Machine
		var status string
		if err := rows.Scan(&m.ID, &m.WorkCenter, &m.Department, &status); err != nil {
			return nil, err
		}
		m.Status = model.MachineStatus(status)
		out = append(out, m)
	}
	return out, rows.Err()
}

// SaveMachine upserts the machine.
func (s *SQLiteStore) SaveMachine(ctx context.Context, m model.Machine) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO machines (id, work_center, department, status)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            work_center = excluded.work_center,
            department = excluded.department,
            status = excluded.status`,
		m.ID, m.WorkCenter, m.Department, string(m.Status))
	return err
}

// GetAvailability returns the record for the machine and day. A missing
// record comes back with no hours rather than an error.
func (s *SQLiteStore) GetAvailability(ctx context.Context, machineID string, date time.Time) (model.AvailabilityRecord, error) {
	date = model.Day(date)
	rec := model.AvailabilityRecord{MachineID: machineID, Date: date}
	var hours string
	err := s.db.QueryRowContext(ctx, `SELECT hours FROM availability WHERE machine_id = ? AND day = ?`,
		machineID, date.Format(model.DateKey)).Scan(&hours)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, nil
	}
	if err != nil {
		return model.AvailabilityRecord{}, err
	}
	rec.Hours, err = parseHours(hours)
	return rec, err
}

// ListAvailability returns the machine's records with a date in [from, to).
func (s *SQLiteStore) ListAvailability(ctx context.Context, machineID string, from, to time.Time) ([]model.AvailabilityRecord, error) {
	from, to = model.Day(from), model.Day(to)
	rows, err := s.db.QueryContext(ctx, `SELECT day, hours FROM availability
        WHERE machine_id = ? AND day >= ? AND day < ? ORDER BY day`,
		machineID, from.Format(model.DateKey), to.Format(model.DateKey))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.AvailabilityRecord
	for rows.Next() {
		var day, hours string
		if err := rows.Scan(&day, &hours); err != nil {
			return nil, err
		}
		d, err := time.ParseInLocation(model.DateKey, day, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("bad availability day %q: %w", day, err)
		}
		hs, err := parseHours(hours)
		if err != nil {
			return nil, err
		}
		if len(hs) == 0 {
			continue
		}
		out = append(out, model.AvailabilityRecord{MachineID: machineID, Date: d, Hours: hs})
	}
	return out, rows.Err()
}

// SaveAvailability replaces the hour set for the machine and day.
func (s *SQLiteStore) SaveAvailability(ctx context.Context, machineID string, date time.Time, hours []int) error {
	date = model.Day(date)
	if len(hours) == 0 {
		_, err := s.db.ExecContext(ctx, `DELETE FROM availability WHERE machine_id = ? AND day = ?`,
			machineID, date.Format(model.DateKey))
		return err
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO availability (machine_id, day, hours)
        VALUES (?, ?, ?)
        ON CONFLICT(machine_id, day) DO UPDATE SET hours = excluded.hours`,
		machineID, date.Format(model.DateKey), formatHours(hours))
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) loadSegments(ctx context.Context, taskID string) ([]model.Segment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT start_ts, end_ts FROM task_segments
        WHERE task_id = ? ORDER BY position`, taskID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var segs []model.Segment
	for rows.Next() {
		var start, end int64
		if err := rows.Scan(&start, &end); err != nil {
			return nil, err
		}
		segs = append(segs, model.NewSegment(time.Unix(start, 0).UTC(), time.Unix(end, 0).UTC()))
	}
	return segs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (model.Task, error) {
	var t model.Task
	var status string
	err := row.Scan(&t.ID, &t.MachineID, &t.WorkCenter, &t.Department,
		&t.RequestedDurationHours, &t.TimeRemainingHours, &t.Quantity, &t.QuantityCompleted, &status)
	if err != nil {
		return model.Task{}, err
	}
	t.Status = model.TaskStatus(status)
	return t, nil
}

func formatHours(hours []int) string {
	parts := make([]string, len(hours))
	for i, h := range hours {
		parts[i] = fmt.Sprintf("%d", h)
	}
	return strings.Join(parts, ",")
}

func parseHours(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	hours := make([]int, 0, len(parts))
	for _, p := range parts {
		var h int
		if _, err := fmt.Sscanf(p, "%d", &h); err != nil {
			return nil, fmt.Errorf("bad hour %q: %w", p, err)
		}
		hours = append(hours, h)
	}
	return hours, nil
}
