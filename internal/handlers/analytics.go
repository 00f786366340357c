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

// AnalyticsHandler computes check-in and task analytics on demand; there is no separate
// analytics store, it derives everything from CheckinResponse history and task counts.
type AnalyticsHandler struct {
	DB *store.DB
}

func NewAnalyticsHandler(db *store.DB) *AnalyticsHandler { return &AnalyticsHandler{DB: db} }

var analyticsIntents = map[string]bool{"show_analytics": true, "analytics_detail": true}

func (h *AnalyticsHandler) CanHandle(intent string) bool { return analyticsIntents[intent] }

func (h *AnalyticsHandler) Handle(ctx context.Context, userID string, parsed commands.ParsedCommand) reply.InteractionResponse {
	checkins, err := h.DB.RecentCheckins(ctx, userID, 30)
	if err != nil {
		return reply.Done("I couldn't load your analytics right now.")
	}
	if len(checkins) == 0 {
		return reply.Done("No check-in history yet, so there's nothing to analyze.")
	}

	var moodSum, moodN float64
	for _, c := range checkins {
		if v, ok := c.Payload["mood"].(float64); ok {
			moodSum += v
			moodN++
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Based on your last %d check-ins:\n", len(checkins))
	if moodN > 0 {
		fmt.Fprintf(&b, "Average mood: %.1f/5\n", moodSum/moodN)
	}
	fmt.Fprintf(&b, "Most recent check-in: %s\n", humanize.Time(checkins[0].CreatedAt))

	active, _ := h.DB.ListTasks(ctx, userID, "active")
	fmt.Fprintf(&b, "Active tasks: %d", len(active))

	return reply.Done(strings.TrimRight(b.String(), "\n")).WithRichData(reply.RichPayload{
		Title: "Analytics", Type: "analytics",
	})
}

func (h *AnalyticsHandler) Help() string {
	return "Analytics commands: show analytics, analytics <period>."
}

func (h *AnalyticsHandler) Examples() []string {
	return []string{"show analytics", "analytics this week"}
}
