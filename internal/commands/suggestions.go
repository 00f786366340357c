package commands

import "strings"

// UserContext carries the minimal per-user facts suggestions are scored against.
type UserContext struct {
	HasActiveTasks  bool
	CheckinsEnabled bool
	HasCategories   bool
}

// Suggestions returns up to 5 follow-up utterances relevant to message, scored by state.
func (p *Parser) Suggestions(message string, state UserContext) []string {
	lower := strings.ToLower(strings.TrimSpace(message))
	var out []string

	add := func(s string) {
		if len(out) >= 5 {
			return
		}
		for _, existing := range out {
			if existing == s {
				return
			}
		}
		out = append(out, s)
	}

	switch {
	case strings.Contains(lower, "task"):
		if state.HasActiveTasks {
			add("show my tasks")
			add("complete task")
		} else {
			add("create task")
		}
		add("task stats")
	case strings.Contains(lower, "check"):
		if state.CheckinsEnabled {
			add("start checkin")
			add("checkin history")
		} else {
			add("show profile")
		}
	case strings.Contains(lower, "profile"):
		add("show profile")
		add("update profile")
	case strings.Contains(lower, "schedule"):
		add("show schedule")
		if state.HasCategories {
			add("edit schedule period")
		}
	case strings.Contains(lower, "analytic"):
		add("show analytics")
	default:
		add("help")
		add("show my tasks")
	}

	return out
}
