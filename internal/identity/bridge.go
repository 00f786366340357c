// Package identity implements the welcome/identity bridge (C7): mapping a channel-provider
// user id to an internal user id, and sending the one-time welcome message for new users.
package identity

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/google/uuid"
	"github.com/hattiebot/hattiebot/internal/store"
)

// Bridge resolves (channel_kind, external_id) pairs to internal user ids, caching resolved
// mappings so a hot conversation thread doesn't hit the database on every inbound message.
type Bridge struct {
	DB    *store.DB
	cache *lru.Cache[string, string]
}

// New builds a Bridge with a bounded LRU cache of resolved identities.
func New(db *store.DB) *Bridge {
	cache, _ := lru.New[string, string](512)
	return &Bridge{DB: db, cache: cache}
}

func cacheKey(channelKind, externalID string) string {
	return channelKind + ":" + externalID
}

// Resolve returns the internal user id for a channel identity, if already linked.
func (b *Bridge) Resolve(ctx context.Context, channelKind, externalID string) (userID string, found bool, err error) {
	key := cacheKey(channelKind, externalID)
	if uid, ok := b.cache.Get(key); ok {
		return uid, true, nil
	}
	ci, err := b.DB.ResolveChannelIdentity(ctx, channelKind, externalID)
	if err != nil {
		return "", false, err
	}
	if ci == nil {
		return "", false, nil
	}
	b.cache.Add(key, ci.UserID)
	return ci.UserID, true, nil
}

// Welcomed reports whether this channel identity has already received its one-time welcome.
func (b *Bridge) Welcomed(ctx context.Context, channelKind, externalID string) (bool, error) {
	ci, err := b.DB.ResolveChannelIdentity(ctx, channelKind, externalID)
	if err != nil || ci == nil {
		return false, err
	}
	return ci.Welcomed, nil
}

// welcomeTemplates are keyed on (isDM, explicitStart); spec §4.7 asks for the message to vary
// on whether the channel is a DM vs a server message and whether this is an explicit /start.
var welcomeTemplates = map[[2]bool]string{
	{true, true}:   "Hi! I'm Hattie, your personal assistant. I'm all set up here in your DMs — say \"help\" any time to see what I can do.",
	{true, false}:  "Hi, I'm Hattie! Looks like this is our first message — I've gone ahead and linked your account. Say \"help\" to see what I can do.",
	{false, true}:  "Hi! I'm Hattie. I've sent you a DM so we can keep check-ins and tasks private — if you don't see it, make sure DMs are open for this server.",
	{false, false}: "Hi, I'm Hattie! I've linked your account and sent you a DM — say \"help\" any time to see what I can do.",
}

func welcomeMessage(isDM, explicitStart bool) string {
	return welcomeTemplates[[2]bool{isDM, explicitStart}]
}

// WelcomeAndLink creates a fresh internal user, links the channel identity, and sends the
// one-time welcome message: DM first, falling back to the channel the message arrived on if
// the DM fails (e.g. the user has DMs blocked). The welcomed flag is set exactly once
// regardless of which path actually delivered the message.
func (b *Bridge) WelcomeAndLink(ctx context.Context, channelKind, externalID string, isDM, explicitStart bool, sendDM, sendChannel func(string) error) (userID string, err error) {
	userID = uuid.NewString()
	if _, err := b.DB.GetOrCreateUser(ctx, userID, "", channelKind); err != nil {
		return "", fmt.Errorf("identity: creating user: %w", err)
	}
	if err := b.DB.LinkChannelIdentity(ctx, channelKind, externalID, userID); err != nil {
		return "", fmt.Errorf("identity: linking channel identity: %w", err)
	}

	msg := welcomeMessage(isDM, explicitStart)
	if sendDM != nil {
		if dmErr := sendDM(msg); dmErr != nil && sendChannel != nil {
			sendChannel(msg)
		}
	} else if sendChannel != nil {
		sendChannel(msg)
	}

	b.DB.MarkWelcomed(ctx, channelKind, externalID)
	b.cache.Add(cacheKey(channelKind, externalID), userID)
	return userID, nil
}

// Relink updates the stored external id for a user whose provider-side id changed (e.g. a
// Discord account migration), keeping the same internal user id.
func (b *Bridge) Relink(ctx context.Context, channelKind, oldExternalID, newExternalID, userID string) error {
	if err := b.DB.LinkChannelIdentity(ctx, channelKind, newExternalID, userID); err != nil {
		return err
	}
	b.cache.Remove(cacheKey(channelKind, oldExternalID))
	b.cache.Add(cacheKey(channelKind, newExternalID), userID)
	return nil
}
