package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/hattiebot/hattiebot/internal/commands"
	"github.com/hattiebot/hattiebot/internal/reply"
	"github.com/hattiebot/hattiebot/internal/store"
)

// ProfileHandler surfaces the per-user preference facts (stored via the teacher's existing
// key/value facts table) as "profile" show/update/stats intents.
type ProfileHandler struct {
	DB *store.DB
}

func NewProfileHandler(db *store.DB) *ProfileHandler { return &ProfileHandler{DB: db} }

var profileIntents = map[string]bool{"show_profile": true, "update_profile": true, "profile_stats": true}

func (h *ProfileHandler) CanHandle(intent string) bool { return profileIntents[intent] }

func (h *ProfileHandler) Handle(ctx context.Context, userID string, parsed commands.ParsedCommand) reply.InteractionResponse {
	switch parsed.Intent {
	case "show_profile":
		return h.show(ctx, userID)
	case "update_profile":
		return h.update(ctx, userID, parsed)
	case "profile_stats":
		return h.stats(ctx, userID)
	}
	return reply.Done("I don't know how to handle that profile request.")
}

func (h *ProfileHandler) show(ctx context.Context, userID string) reply.InteractionResponse {
	facts, err := h.DB.SearchFacts(ctx, userID, "")
	if err != nil {
		return reply.Done("I couldn't load your profile right now.")
	}
	if len(facts) == 0 {
		return reply.Done("Your profile is empty. Tell me about yourself with \"update profile <field>: <value>\".")
	}
	var b strings.Builder
	b.WriteString("Your profile:\n")
	for _, f := range facts {
		fmt.Fprintf(&b, "%s: %s\n", f.Key, f.Value)
	}
	return reply.Done(strings.TrimRight(b.String(), "\n")).WithRichData(reply.RichPayload{Title: "Profile", Type: "profile"})
}

func (h *ProfileHandler) update(ctx context.Context, userID string, parsed commands.ParsedCommand) reply.InteractionResponse {
	fieldText, _ := parsed.Entities["field_text"].(string)
	key, value, ok := splitFieldValue(fieldText)
	if !ok {
		return reply.Done(`Tell me what to update, like "update profile timezone: America/New_York".`)
	}
	if err := h.DB.SetFact(ctx, userID, key, value, "profile"); err != nil {
		return reply.Done("I couldn't save that to your profile.")
	}
	return reply.Done(fmt.Sprintf("Updated %s.", key))
}

func splitFieldValue(s string) (key, value string, ok bool) {
	for _, sep := range []string{":", "="} {
		if idx := strings.Index(s, sep); idx > 0 {
			return strings.TrimSpace(s[:idx]), strings.TrimSpace(s[idx+1:]), true
		}
	}
	parts := strings.SplitN(s, " to ", 2)
	if len(parts) == 2 {
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
	}
	return "", "", false
}

func (h *ProfileHandler) stats(ctx context.Context, userID string) reply.InteractionResponse {
	facts, err := h.DB.SearchFacts(ctx, userID, "")
	if err != nil {
		return reply.Done("I couldn't load profile stats right now.")
	}
	return reply.Done(fmt.Sprintf("You have %d profile fields set.", len(facts)))
}

func (h *ProfileHandler) Help() string {
	return "Profile commands: show profile, update profile <field>: <value>, profile stats."
}

func (h *ProfileHandler) Examples() []string {
	return []string{"show profile", "update profile timezone: America/New_York"}
}
