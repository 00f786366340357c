package store

import (
	"context"
	"database/sql"
)

// ChannelIdentity maps a provider-side user id to an internal user id.
type ChannelIdentity struct {
	ID          int64
	ChannelKind string
	ExternalID  string
	UserID      string
	Welcomed    bool
}

// ResolveChannelIdentity looks up the internal user id for a (channel_kind, external_id) pair.
// Returns nil, nil if no mapping exists yet.
func (db *DB) ResolveChannelIdentity(ctx context.Context, channelKind, externalID string) (*ChannelIdentity, error) {
	var ci ChannelIdentity
	err := db.QueryRowContext(ctx,
		`SELECT id, channel_kind, external_id, user_id, welcomed FROM channel_identities WHERE channel_kind = ? AND external_id = ?`,
		channelKind, externalID,
	).Scan(&ci.ID, &ci.ChannelKind, &ci.ExternalID, &ci.UserID, &ci.Welcomed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ci, nil
}

// ExternalIDFor looks up the provider-side id for an internal user on a given channel kind.
// Returns "", nil if the user has no linked identity on that channel.
func (db *DB) ExternalIDFor(ctx context.Context, channelKind, userID string) (string, error) {
	var externalID string
	err := db.QueryRowContext(ctx,
		`SELECT external_id FROM channel_identities WHERE channel_kind = ? AND user_id = ?`,
		channelKind, userID,
	).Scan(&externalID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return externalID, err
}

// LinkChannelIdentity creates (or repoints, if the external id changed for this user) a mapping.
func (db *DB) LinkChannelIdentity(ctx context.Context, channelKind, externalID, userID string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO channel_identities (channel_kind, external_id, user_id, welcomed) VALUES (?, ?, ?, 0)
		 ON CONFLICT(channel_kind, external_id) DO UPDATE SET user_id = excluded.user_id`,
		channelKind, externalID, userID,
	)
	return err
}

// MarkWelcomed sets the welcomed flag exactly once; repeat calls are harmless no-ops.
func (db *DB) MarkWelcomed(ctx context.Context, channelKind, externalID string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE channel_identities SET welcomed = 1 WHERE channel_kind = ? AND external_id = ?`,
		channelKind, externalID)
	return err
}
