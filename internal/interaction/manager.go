// Package interaction implements the top-level interaction manager (C4): the slash/bang
// command map, flow check, structured-command dispatch, AI fallback, and response
// augmentation/enhancement.
package interaction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hattiebot/hattiebot/internal/commands"
	"github.com/hattiebot/hattiebot/internal/core"
	"github.com/hattiebot/hattiebot/internal/flow"
	"github.com/hattiebot/hattiebot/internal/handlers"
	"github.com/hattiebot/hattiebot/internal/reply"
)

// Config bundles the manager's tunable knobs.
type Config struct {
	MinCommandConfidence float64
	AIFallbackEnabled    bool
	AIEnhanceEnabled     bool
	AIMaxResponseLength  int
}

// reportStyleIntents never get AI-enhanced; they're structured reports, not conversation.
var reportStyleIntents = map[string]bool{
	"help": true, "list_tasks": true, "show_profile": true, "show_schedule": true,
	"show_analytics": true, "analytics_detail": true, "status": true,
	"schedule_status": true, "checkin_status": true, "checkin_history": true,
	"task_stats": true, "profile_stats": true, "examples": true,
}

var commandFlowStarter = map[string]string{
	"checkin": "start_checkin",
	"restart": "restart_checkin",
	"clear":   "clear_stuck_flows",
}

// Manager is the interaction manager (C4).
type Manager struct {
	Dispatcher *handlers.Dispatcher
	Parser     *commands.Parser
	Flow       *flow.Manager
	AI         core.LLMClient
	Cfg        Config
	UserContext func(ctx context.Context, userID string) commands.UserContext
}

// New builds a Manager. AI may be nil, in which case fallback/enhancement are skipped
// regardless of Cfg.
func New(dispatcher *handlers.Dispatcher, parser *commands.Parser, fm *flow.Manager, ai core.LLMClient, cfg Config) *Manager {
	return &Manager{Dispatcher: dispatcher, Parser: parser, Flow: fm, AI: ai, Cfg: cfg}
}

// Handle is the single entry point: classify, route, and render one inbound turn.
// Any panic anywhere downstream is caught here and turned into the generic failure reply.
func (m *Manager) Handle(ctx context.Context, userID, message, channelKind string) (resp reply.InteractionResponse) {
	defer func() {
		if r := recover(); r != nil {
			resp = reply.Done("I'm having trouble processing your request right now. Please try again in a moment.")
		}
	}()

	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return reply.Done("I didn't receive a message. How can I help you today?")
	}

	if strings.HasPrefix(trimmed, "/") || strings.HasPrefix(trimmed, "!") {
		if handled, ok := m.handlePrefixCommand(ctx, userID, trimmed, channelKind); ok {
			return handled
		}
		trimmed = strings.TrimLeft(trimmed, "/!")
	}

	if m.Flow != nil && m.Flow.HasActiveFlow(userID) {
		if !flow.ClearsFlow(trimmed) {
			return m.Flow.HandleInbound(ctx, userID, trimmed)
		}
		m.Flow.Store.Delete(userID)
	}

	lower := strings.ToLower(trimmed)

	if lower == "confirm delete" {
		return reply.Done("There's nothing pending to delete.")
	}
	if lower == "complete task" {
		return reply.Pending("Which task would you like to complete?")
	}

	pr := m.Parser.Parse(trimmed, userID)
	parsed := pr.Parsed
	parsed.OriginalMessage = trimmed

	if strings.HasPrefix(lower, "update task") && parsed.Intent == "unknown" {
		if entities := commands.ExtractUpdateTaskEntities(trimmed); len(entities) > 0 {
			parsed = commands.ParsedCommand{
				Intent: "update_task", Entities: entities, Confidence: 0.9, OriginalMessage: trimmed,
			}
		}
	} else if parsed.Intent == "update_task" {
		if _, ok := parsed.Entities["task_identifier"]; !ok {
			for k, v := range commands.ExtractUpdateTaskEntities(trimmed) {
				parsed.Entities[k] = v
			}
		}
	}

	var resp0 reply.InteractionResponse
	if parsed.Confidence >= m.Cfg.MinCommandConfidence {
		dispatched, ok := m.Dispatcher.Dispatch(ctx, userID, parsed)
		if !ok {
			dispatched = reply.Done("I'm not sure how to help with that yet. Try \"help\" to see what I can do.")
		}
		resp0 = dispatched
	} else if m.Cfg.AIFallbackEnabled && m.AI != nil {
		text, err := m.aiFallback(ctx, trimmed)
		if err == nil && text != "" {
			return reply.Done(text)
		}
		helpResp, _ := m.Dispatcher.Dispatch(ctx, userID, commands.ParsedCommand{Intent: "help"})
		resp0 = helpResp
	} else {
		helpResp, _ := m.Dispatcher.Dispatch(ctx, userID, commands.ParsedCommand{Intent: "help"})
		resp0 = helpResp
	}

	return m.finish(ctx, userID, trimmed, parsed, resp0)
}

// handlePrefixCommand services step 2 of the ordering: the slash/bang command map. ok=false
// means the prefixed token was not a known command and the caller should strip the prefix and
// continue to rule-based parsing with the remainder.
func (m *Manager) handlePrefixCommand(ctx context.Context, userID, trimmed, channelKind string) (reply.InteractionResponse, bool) {
	rest := strings.TrimLeft(trimmed, "/!")
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return reply.InteractionResponse{}, false
	}
	cmdName := strings.ToLower(fields[0])

	if cmdName == "cancel" {
		return m.Flow.Cancel(userID), true
	}

	cd := commands.LookupCommand(cmdName)
	if cd == nil {
		return reply.InteractionResponse{}, false
	}

	if cd.IsFlow {
		starterName, known := commandFlowStarter[cmdName]
		if !known {
			return reply.Done(fmt.Sprintf("Flow '%s' is not available yet.", cmdName)), true
		}
		starter, ok := m.Flow.Starters[starterName]
		if !ok {
			return reply.Done(fmt.Sprintf("Flow '%s' is not available yet.", cmdName)), true
		}
		resp, _ := starter(ctx, userID)
		return resp, true
	}

	return m.Handle(ctx, userID, cd.MappedMessage, channelKind), true
}

func (m *Manager) finish(ctx context.Context, userID, message string, parsed commands.ParsedCommand, resp reply.InteractionResponse) reply.InteractionResponse {
	if !resp.Completed {
		resp = m.augment(ctx, userID, parsed, resp)
	}
	if m.Cfg.AIEnhanceEnabled && m.AI != nil && !reportStyleIntents[parsed.Intent] {
		if enhanced, ok := m.enhance(ctx, resp.Message); ok {
			resp.Message = enhanced
		}
	}
	return resp
}

// augment attaches contextual suggestions for non-completed responses, skipping start_checkin
// and update_task prompts entirely (those already carry their own explicit next step).
func (m *Manager) augment(ctx context.Context, userID string, parsed commands.ParsedCommand, resp reply.InteractionResponse) reply.InteractionResponse {
	if parsed.Intent == "start_checkin" || parsed.Intent == "update_task" {
		return resp
	}
	lower := strings.ToLower(resp.Message)
	switch {
	case strings.Contains(lower, "multiple matching tasks"):
		return resp.WithSuggestions([]string{"list tasks", "cancel"})
	case strings.Contains(lower, "confirm delete"):
		return resp.WithSuggestions([]string{"confirm delete", "cancel"})
	}
	if m.UserContext == nil {
		return resp
	}
	uc := m.UserContext(ctx, userID)
	if sug := m.Parser.Suggestions(parsed.OriginalMessage, uc); len(sug) > 0 {
		return resp.WithSuggestions(sug)
	}
	return resp
}

func (m *Manager) aiFallback(ctx context.Context, message string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, 8*time.Second)
	defer cancel()
	return m.AI.ChatCompletion(cctx, []core.Message{
		{Role: "system", Content: "You are Hattie, a warm and concise personal-assistant chatbot. Reply briefly."},
		{Role: "user", Content: message},
	})
}

// enhance asks the AI chatbot to rewrite a response more warmly, rejecting anything too
// short, leaking internal markers, or over length (smart-truncated instead of dropped).
func (m *Manager) enhance(ctx context.Context, original string) (string, bool) {
	cctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	prompt := fmt.Sprintf("Rewrite this assistant reply to sound warmer, keep it brief and keep every fact:\n\n%s", original)
	text, err := m.AI.ChatCompletion(cctx, []core.Message{{Role: "user", Content: prompt}})
	if err != nil || text == "" {
		return "", false
	}
	if tooShort(text) || containsLeakageMarker(text) {
		return "", false
	}
	max := m.Cfg.AIMaxResponseLength
	if max <= 0 {
		max = 600
	}
	if len(text) > max {
		text = smartTruncate(text, max)
	}
	return text, true
}
