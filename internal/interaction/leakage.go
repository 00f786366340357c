package interaction

import "strings"

// leakageMarkers flag AI output that has accidentally surfaced internal plumbing instead of a
// clean user-facing reply.
var leakageMarkers = []string{
	"System response:",
	"You are a chatbot",
	"You are an AI",
	"As an AI language model",
	"```",
	`{"role"`,
	`"content":`,
}

func containsLeakageMarker(text string) bool {
	for _, marker := range leakageMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

func tooShort(text string) bool {
	return len(strings.TrimSpace(text)) < 11
}

// smartTruncate cuts text to at most max characters, preferring to break at the last sentence
// boundary found at or past 60% of the budget; otherwise it hard-truncates and appends "...".
func smartTruncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	budget := text[:max]
	bestIdx := -1
	for _, sep := range []string{". ", "! ", "? "} {
		if idx := strings.LastIndex(budget, sep); idx > bestIdx {
			bestIdx = idx
		}
	}
	if bestIdx >= 0 && float64(bestIdx) >= 0.6*float64(max) {
		return strings.TrimSpace(budget[:bestIdx+1])
	}
	return strings.TrimSpace(budget) + "..."
}
