package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/hattiebot/hattiebot/internal/commands"
	"github.com/hattiebot/hattiebot/internal/reply"
	"github.com/hattiebot/hattiebot/internal/store"
)

// ScheduleHandler manages named schedule periods across the three categories a user can edit:
// tasks, check-ins, and messages.
type ScheduleHandler struct {
	DB *store.DB
}

func NewScheduleHandler(db *store.DB) *ScheduleHandler { return &ScheduleHandler{DB: db} }

var scheduleIntents = map[string]bool{
	"show_schedule": true, "schedule_status": true, "edit_schedule_period": true,
}

func (h *ScheduleHandler) CanHandle(intent string) bool { return scheduleIntents[intent] }

func (h *ScheduleHandler) Handle(ctx context.Context, userID string, parsed commands.ParsedCommand) reply.InteractionResponse {
	switch parsed.Intent {
	case "show_schedule":
		return h.show(ctx, userID)
	case "schedule_status":
		return h.status(ctx, userID)
	case "edit_schedule_period":
		return h.edit(ctx, userID, parsed)
	}
	return reply.Done("I don't know how to handle that schedule request.")
}

func (h *ScheduleHandler) show(ctx context.Context, userID string) reply.InteractionResponse {
	periods, err := h.DB.ListSchedulePeriods(ctx, userID)
	if err != nil {
		return reply.Done("I couldn't load your schedule right now.")
	}
	if len(periods) == 0 {
		return reply.Done("You haven't set up any schedule periods yet.")
	}
	var b strings.Builder
	b.WriteString("Your schedule:\n")
	for _, p := range periods {
		fmt.Fprintf(&b, "%s (%s)\n", p.Name, p.Category)
	}
	return reply.Done(strings.TrimRight(b.String(), "\n")).WithRichData(reply.RichPayload{Title: "Schedule", Type: "schedule"})
}

func (h *ScheduleHandler) status(ctx context.Context, userID string) reply.InteractionResponse {
	periods, err := h.DB.ListSchedulePeriods(ctx, userID)
	if err != nil {
		return reply.Done("I couldn't load schedule status right now.")
	}
	active := 0
	for _, p := range periods {
		if p.Active {
			active++
		}
	}
	return reply.Done(fmt.Sprintf("%d of %d schedule periods are active.", active, len(periods)))
}

func (h *ScheduleHandler) edit(ctx context.Context, userID string, parsed commands.ParsedCommand) reply.InteractionResponse {
	name, _ := parsed.Entities["period_name"].(string)
	category, _ := parsed.Entities["category"].(string)
	if name == "" || category == "" {
		return reply.Done(`Tell me a period and a category, like "edit schedule period morning tasks".`)
	}
	if err := h.DB.UpsertSchedulePeriodCategory(ctx, userID, name, category); err != nil {
		return reply.Done("I couldn't update that schedule period.")
	}
	return reply.Done(fmt.Sprintf("Set %s to the %s category.", name, category))
}

func (h *ScheduleHandler) Help() string {
	return "Schedule commands: show schedule, schedule status, edit schedule period <name> <tasks|check-ins|messages>."
}

func (h *ScheduleHandler) Examples() []string {
	return []string{"show schedule", "edit schedule period morning tasks"}
}
