package identity

import (
	"context"
	"testing"

	"github.com/hattiebot/hattiebot/internal/store"
)

func TestWelcomeAndLinkSetsFlagOnce(t *testing.T) {
	ctx := context.Background()
	db, err := store.Open(ctx, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	b := New(db)
	var dmSent, channelSent int
	dm := func(string) error { dmSent++; return nil }
	ch := func(string) error { channelSent++; return nil }

	uid, err := b.WelcomeAndLink(ctx, "discord", "ext-1", true, false, dm, ch)
	if err != nil {
		t.Fatal(err)
	}
	if uid == "" {
		t.Fatal("expected non-empty internal user id")
	}
	if dmSent != 1 || channelSent != 0 {
		t.Fatalf("dmSent=%d channelSent=%d, want 1,0", dmSent, channelSent)
	}

	welcomed, err := b.Welcomed(ctx, "discord", "ext-1")
	if err != nil || !welcomed {
		t.Fatalf("welcomed=%v err=%v, want true", welcomed, err)
	}

	resolved, found, err := b.Resolve(ctx, "discord", "ext-1")
	if err != nil || !found || resolved != uid {
		t.Fatalf("resolve mismatch: resolved=%q found=%v err=%v", resolved, found, err)
	}
}

func TestWelcomeAndLinkFallsBackToChannelOnDMFailure(t *testing.T) {
	ctx := context.Background()
	db, _ := store.Open(ctx, ":memory:")
	defer db.Close()

	b := New(db)
	var channelSent int
	dm := func(string) error { return &dmBlockedError{} }
	ch := func(string) error { channelSent++; return nil }

	if _, err := b.WelcomeAndLink(ctx, "discord", "ext-2", false, true, dm, ch); err != nil {
		t.Fatal(err)
	}
	if channelSent != 1 {
		t.Fatalf("channelSent = %d, want 1", channelSent)
	}
}

type dmBlockedError struct{}

func (e *dmBlockedError) Error() string { return "dms blocked" }
