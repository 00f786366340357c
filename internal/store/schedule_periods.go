package store

import (
	"context"
	"database/sql"
)

// SchedulePeriod is a named time window within one of the three schedule categories
// a user can edit ("tasks", "check-ins", "messages").
type SchedulePeriod struct {
	ID        int64
	UserID    string
	Name      string
	Category  string
	StartTime string
	EndTime   string
	Active    bool
}

// ListSchedulePeriods returns all periods for a user, ordered by category then name.
func (db *DB) ListSchedulePeriods(ctx context.Context, userID string) ([]SchedulePeriod, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, user_id, name, category, COALESCE(start_time,''), COALESCE(end_time,''), active
		 FROM schedule_periods WHERE user_id = ? ORDER BY category, name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SchedulePeriod
	for rows.Next() {
		var p SchedulePeriod
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Category, &p.StartTime, &p.EndTime, &p.Active); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpsertSchedulePeriodCategory sets (and creates if absent) the category a named period belongs to.
// This backs "edit schedule period <name> <tasks|check-ins|messages>".
func (db *DB) UpsertSchedulePeriodCategory(ctx context.Context, userID, name, category string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO schedule_periods (user_id, name, category) VALUES (?, ?, ?)
		 ON CONFLICT(user_id, name) DO UPDATE SET category = excluded.category, updated_at = CURRENT_TIMESTAMP`,
		userID, name, category)
	return err
}

// GetSchedulePeriod fetches one named period for a user, or nil if it doesn't exist.
func (db *DB) GetSchedulePeriod(ctx context.Context, userID, name string) (*SchedulePeriod, error) {
	var p SchedulePeriod
	err := db.QueryRowContext(ctx,
		`SELECT id, user_id, name, category, COALESCE(start_time,''), COALESCE(end_time,''), active
		 FROM schedule_periods WHERE user_id = ? AND name = ?`, userID, name,
	).Scan(&p.ID, &p.UserID, &p.Name, &p.Category, &p.StartTime, &p.EndTime, &p.Active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
