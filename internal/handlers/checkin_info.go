package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/hattiebot/hattiebot/internal/commands"
	"github.com/hattiebot/hattiebot/internal/reply"
	"github.com/hattiebot/hattiebot/internal/store"
)

// CheckinInfoHandler answers single-turn questions about check-in history, distinct from the
// CHECKIN flow itself (which lives in internal/flow).
type CheckinInfoHandler struct {
	DB *store.DB
}

func NewCheckinInfoHandler(db *store.DB) *CheckinInfoHandler { return &CheckinInfoHandler{DB: db} }

var checkinInfoIntents = map[string]bool{"checkin_history": true, "checkin_status": true}

func (h *CheckinInfoHandler) CanHandle(intent string) bool { return checkinInfoIntents[intent] }

func (h *CheckinInfoHandler) Handle(ctx context.Context, userID string, parsed commands.ParsedCommand) reply.InteractionResponse {
	switch parsed.Intent {
	case "checkin_history":
		return h.history(ctx, userID)
	case "checkin_status":
		return h.status(ctx, userID)
	}
	return reply.Done("I don't know how to handle that check-in request.")
}

func (h *CheckinInfoHandler) history(ctx context.Context, userID string) reply.InteractionResponse {
	checkins, err := h.DB.RecentCheckins(ctx, userID, 5)
	if err != nil {
		return reply.Done("I couldn't load your check-in history right now.")
	}
	if len(checkins) == 0 {
		return reply.Done("You don't have any check-ins on record yet.")
	}
	var b strings.Builder
	b.WriteString("Your recent check-ins:\n")
	for _, c := range checkins {
		fmt.Fprintf(&b, "%s — %d questions answered\n", humanize.Time(c.CreatedAt), len(c.QuestionsAsked))
	}
	return reply.Done(strings.TrimRight(b.String(), "\n"))
}

func (h *CheckinInfoHandler) status(ctx context.Context, userID string) reply.InteractionResponse {
	checkins, err := h.DB.RecentCheckins(ctx, userID, 1)
	if err != nil || len(checkins) == 0 {
		return reply.Done("You haven't completed a check-in yet.")
	}
	return reply.Done(fmt.Sprintf("Your last check-in was %s.", humanize.Time(checkins[0].CreatedAt)))
}

func (h *CheckinInfoHandler) Help() string { return "checkin history, checkin status" }
func (h *CheckinInfoHandler) Examples() []string {
	return []string{"checkin history", "checkin status"}
}
