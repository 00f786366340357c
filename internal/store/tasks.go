package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// Task is a single-turn user task.
type Task struct {
	ID              int64      `json:"id"`
	UserID          string     `json:"user_id"`
	Title           string     `json:"title"`
	Priority        string     `json:"priority"`
	DueDate         string     `json:"due_date,omitempty"`
	Status          string     `json:"status"`
	ReminderPeriods []string   `json:"reminder_periods,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// CreateTask inserts a new active task for a user.
func (db *DB) CreateTask(ctx context.Context, userID, title, priority, dueDate string) (*Task, error) {
	if priority == "" {
		priority = "medium"
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO tasks (user_id, title, priority, due_date) VALUES (?, ?, ?, ?)`,
		userID, title, priority, nullIfEmpty(dueDate),
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return db.GetTask(ctx, id)
}

// GetTask fetches a task by numeric id.
func (db *DB) GetTask(ctx context.Context, id int64) (*Task, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, user_id, title, priority, COALESCE(due_date,''), status, COALESCE(reminder_periods,''),
		        created_at, updated_at, completed_at
		 FROM tasks WHERE id = ?`, id)
	return scanTask(row)
}

// ListTasks returns a user's tasks filtered by status ("" = all non-completed).
func (db *DB) ListTasks(ctx context.Context, userID, status string) ([]Task, error) {
	query := `SELECT id, user_id, title, priority, COALESCE(due_date,''), status, COALESCE(reminder_periods,''),
	                  created_at, updated_at, completed_at
	           FROM tasks WHERE user_id = ?`
	args := []any{userID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	} else {
		query += " AND status = 'active'"
	}
	query += " ORDER BY created_at ASC"
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t, err := scanTaskRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// UpdateTaskPriority sets the priority of a task.
func (db *DB) UpdateTaskPriority(ctx context.Context, id int64, priority string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE tasks SET priority = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, priority, id)
	return err
}

// UpdateTaskDueDate sets the due date of a task.
func (db *DB) UpdateTaskDueDate(ctx context.Context, id int64, dueDate string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE tasks SET due_date = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, dueDate, id)
	return err
}

// UpdateTaskTitle renames a task.
func (db *DB) UpdateTaskTitle(ctx context.Context, id int64, title string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, title, id)
	return err
}

// CompleteTask marks a task completed.
func (db *DB) CompleteTask(ctx context.Context, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE tasks SET status = 'completed', updated_at = CURRENT_TIMESTAMP, completed_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	return err
}

// DeleteTask removes a task outright.
func (db *DB) DeleteTask(ctx context.Context, id int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	return err
}

// SetTaskReminderPeriods persists the HH:MM reminder times chosen in the task-reminder follow-up flow.
func (db *DB) SetTaskReminderPeriods(ctx context.Context, id int64, periods []string) error {
	raw, err := json.Marshal(periods)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`UPDATE tasks SET reminder_periods = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, string(raw), id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*Task, error) {
	var t Task
	var reminderRaw string
	var completedAt sql.NullTime
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Priority, &t.DueDate, &t.Status, &reminderRaw,
		&t.CreatedAt, &t.UpdatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	if reminderRaw != "" {
		json.Unmarshal([]byte(reminderRaw), &t.ReminderPeriods)
	}
	return &t, nil
}

func scanTaskRows(rows *sql.Rows) (*Task, error) {
	return scanTask(rows)
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
