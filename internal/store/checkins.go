package store

import (
	"context"
	"encoding/json"
	"time"
)

// CheckinResponse is one completed (or partially completed) check-in submission.
type CheckinResponse struct {
	ID             int64          `json:"id"`
	UserID         string         `json:"user_id"`
	Payload        map[string]any `json:"payload"`
	QuestionsAsked []string       `json:"questions_asked"`
	CreatedAt      time.Time      `json:"created_at"`
}

// SaveCheckinResponse persists a finalized check-in payload for analytics and recency weighting.
func (db *DB) SaveCheckinResponse(ctx context.Context, userID string, payload map[string]any, questionsAsked []string) error {
	payloadRaw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	askedRaw, err := json.Marshal(questionsAsked)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO checkin_responses (user_id, payload, questions_asked) VALUES (?, ?, ?)`,
		userID, string(payloadRaw), string(askedRaw))
	return err
}

// RecentCheckins returns the most recent n check-in responses for a user, newest first.
func (db *DB) RecentCheckins(ctx context.Context, userID string, n int) ([]CheckinResponse, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, user_id, payload, questions_asked, created_at
		 FROM checkin_responses WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CheckinResponse
	for rows.Next() {
		var c CheckinResponse
		var payloadRaw, askedRaw string
		if err := rows.Scan(&c.ID, &c.UserID, &payloadRaw, &askedRaw, &c.CreatedAt); err != nil {
			return nil, err
		}
		json.Unmarshal([]byte(payloadRaw), &c.Payload)
		json.Unmarshal([]byte(askedRaw), &c.QuestionsAsked)
		out = append(out, c)
	}
	return out, rows.Err()
}
