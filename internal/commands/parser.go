// Package commands implements the rule-based command parser (C2): it classifies an inbound
// utterance into an intent plus entities, with a confidence score, and proposes suggestions.
package commands

import (
	"regexp"
	"strconv"
	"strings"
)

// Method records how a ParsingResult was produced.
type Method string

const (
	MethodRuleBased          Method = "rule_based"
	MethodAICommand          Method = "ai_command"
	MethodAICommandClarified Method = "ai_command_clarified"
)

// ParsedCommand is the structured classification of one inbound utterance.
type ParsedCommand struct {
	Intent          string         `json:"intent"`
	Entities        map[string]any `json:"entities"`
	Confidence      float64        `json:"confidence"`
	OriginalMessage string         `json:"original_message"`
}

// ParsingResult wraps a ParsedCommand with the method that produced it.
type ParsingResult struct {
	Parsed     ParsedCommand
	Confidence float64
	Method     Method
}

var (
	reUpdatePriority = regexp.MustCompile(`(?i)^update task (\S+) priority (high|medium|low|urgent|critical)\b`)
	reUpdateDue      = regexp.MustCompile(`(?i)^update task (\S+) due(?: date)? (.+)$`)
	reUpdateTitleQ   = regexp.MustCompile(`(?i)^update task (\S+) title "([^"]+)"`)
	reRenameTask     = regexp.MustCompile(`(?i)^rename task (\S+) to (.+)$`)
	reCompleteTask   = regexp.MustCompile(`(?i)^complete\s+(?:task\s+)?(.+)$`)
	reDeleteTask     = regexp.MustCompile(`(?i)^delete\s+(?:task\s+)?(.+)$`)
	reCreateTask     = regexp.MustCompile(`(?i)^(?:create|add|new) task\s+(.+)$`)
	reEditSchedule   = regexp.MustCompile(`(?i)^edit schedule period (\S+) (tasks|check-ins|messages)\b`)
)

// Parser classifies free-text utterances into intents using a fixed keyword/regex table.
type Parser struct{}

// New builds a Parser. Stateless; regexes are compiled once at package init.
func New() *Parser {
	return &Parser{}
}

// Parse classifies message into a ParsingResult. userID is accepted for symmetry with the
// contract in the spec (future per-user disambiguation hooks) but is unused by the rule engine.
func (p *Parser) Parse(message, userID string) ParsingResult {
	text := strings.TrimSpace(message)
	lower := strings.ToLower(text)

	if m := reUpdatePriority.FindStringSubmatch(text); m != nil {
		return result("update_task", map[string]any{
			"task_identifier": m[1],
			"priority":        strings.ToLower(m[2]),
		}, 0.95)
	}
	if m := reUpdateDue.FindStringSubmatch(text); m != nil {
		return result("update_task", map[string]any{
			"task_identifier": m[1],
			"due_date":        strings.TrimSpace(m[2]),
		}, 0.9)
	}
	if m := reUpdateTitleQ.FindStringSubmatch(text); m != nil {
		return result("update_task", map[string]any{
			"task_identifier": m[1],
			"title":           m[2],
		}, 0.9)
	}
	if m := reRenameTask.FindStringSubmatch(text); m != nil {
		return result("update_task", map[string]any{
			"task_identifier": m[1],
			"title":           strings.TrimSpace(m[2]),
		}, 0.9)
	}
	if m := reEditSchedule.FindStringSubmatch(text); m != nil {
		return result("edit_schedule_period", map[string]any{
			"period_name": m[1],
			"category":    m[2],
		}, 0.9)
	}
	if m := reCreateTask.FindStringSubmatch(text); m != nil {
		return result("create_task", map[string]any{"title": strings.TrimSpace(m[1])}, 0.9)
	}
	if m := reCompleteTask.FindStringSubmatch(text); m != nil && (strings.HasPrefix(lower, "complete task") || strings.HasPrefix(lower, "complete ")) {
		return result("complete_task", map[string]any{"task_identifier": strings.TrimSpace(m[1])}, 0.85)
	}
	if m := reDeleteTask.FindStringSubmatch(text); m != nil && (strings.HasPrefix(lower, "delete task") || strings.HasPrefix(lower, "delete ")) {
		return result("delete_task", map[string]any{"task_identifier": strings.TrimSpace(m[1])}, 0.85)
	}

	switch {
	case lower == "show my tasks" || lower == "show tasks" || lower == "list tasks" || lower == "tasks":
		return result("list_tasks", map[string]any{}, 0.9)
	case lower == "task stats" || lower == "task statistics" || lower == "show task stats":
		return result("task_stats", map[string]any{}, 0.9)
	case lower == "start checkin" || lower == "start check-in" || lower == "checkin":
		return result("start_checkin", map[string]any{}, 0.95)
	case lower == "restart checkin" || lower == "restart check-in":
		return result("restart_checkin", map[string]any{}, 0.95)
	case lower == "checkin history" || lower == "check-in history":
		return result("checkin_history", map[string]any{}, 0.9)
	case lower == "checkin status" || lower == "check-in status":
		return result("checkin_status", map[string]any{}, 0.9)
	case lower == "show profile" || lower == "profile":
		return result("show_profile", map[string]any{}, 0.9)
	case strings.HasPrefix(lower, "update profile "):
		return result("update_profile", map[string]any{"field_text": strings.TrimSpace(text[len("update profile "):])}, 0.8)
	case lower == "profile stats" || lower == "show profile stats":
		return result("profile_stats", map[string]any{}, 0.9)
	case lower == "show schedule" || lower == "schedule":
		return result("show_schedule", map[string]any{}, 0.9)
	case lower == "schedule status":
		return result("schedule_status", map[string]any{}, 0.9)
	case lower == "show analytics" || lower == "analytics":
		return result("show_analytics", map[string]any{}, 0.9)
	case strings.HasPrefix(lower, "analytics "):
		return result("analytics_detail", map[string]any{"period": strings.TrimSpace(text[len("analytics "):])}, 0.8)
	case lower == "status":
		return result("status", map[string]any{}, 0.9)
	case lower == "help" || lower == "commands" || lower == "show commands":
		return result("help", map[string]any{}, 0.9)
	case lower == "examples" || lower == "show examples":
		return result("examples", map[string]any{}, 0.9)
	case lower == "show messages":
		return result("show_messages", map[string]any{}, 0.9)
	}

	// Keyword-only, lower-confidence fallbacks.
	switch {
	case strings.Contains(lower, "task"):
		return result("list_tasks", map[string]any{}, 0.6)
	case strings.Contains(lower, "check"):
		return result("start_checkin", map[string]any{}, 0.6)
	case strings.Contains(lower, "profile"):
		return result("show_profile", map[string]any{}, 0.6)
	case strings.Contains(lower, "schedule"):
		return result("show_schedule", map[string]any{}, 0.6)
	case strings.Contains(lower, "analytic"):
		return result("show_analytics", map[string]any{}, 0.6)
	case strings.Contains(lower, "help"):
		return result("help", map[string]any{}, 0.6)
	}

	return result("unknown", map[string]any{}, 0)
}

func result(intent string, entities map[string]any, confidence float64) ParsingResult {
	return ParsingResult{
		Parsed: ParsedCommand{
			Intent:     intent,
			Entities:   entities,
			Confidence: confidence,
		},
		Confidence: confidence,
		Method:     MethodRuleBased,
	}
}

// ExtractUpdateTaskEntities re-runs the entity regexes against original_message. Used by the
// interaction manager to fill gaps when an update_task intent arrives with missing entities.
func ExtractUpdateTaskEntities(message string) map[string]any {
	out := map[string]any{}
	if m := reUpdatePriority.FindStringSubmatch(message); m != nil {
		out["task_identifier"] = m[1]
		out["priority"] = strings.ToLower(m[2])
	}
	if m := reUpdateDue.FindStringSubmatch(message); m != nil {
		out["task_identifier"] = m[1]
		out["due_date"] = strings.TrimSpace(m[2])
	}
	if m := reUpdateTitleQ.FindStringSubmatch(message); m != nil {
		out["task_identifier"] = m[1]
		out["title"] = m[2]
	}
	if m := reRenameTask.FindStringSubmatch(message); m != nil {
		out["task_identifier"] = m[1]
		out["title"] = strings.TrimSpace(m[2])
	}
	return out
}

// LooksLikeTaskIdentifier reports whether s parses as a plain numeric task id.
func LooksLikeTaskIdentifier(s string) bool {
	_, err := strconv.Atoi(strings.TrimSpace(s))
	return err == nil
}
