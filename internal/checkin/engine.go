package checkin

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// Engine answers questions from a Catalog and resolves user answers against it.
// Rand is injected rather than using the package-level global so tests can seed it.
type Engine struct {
	Catalog *Catalog
	Rand    *rand.Rand
}

// NewEngine builds an Engine bound to a catalog and a random source.
func NewEngine(catalog *Catalog, rnd *rand.Rand) *Engine {
	return &Engine{Catalog: catalog, Rand: rnd}
}

// Text returns the prompt text for a question key. Unknown keys return an empty string.
func (e *Engine) Text(qkey string) string {
	q := e.Catalog.Question(qkey)
	if q == nil {
		return ""
	}
	return q.Text
}

// Validate checks a raw answer against a question's type and bounds.
func (e *Engine) Validate(qkey, raw string) (ok bool, value any, errMsg string) {
	if strings.EqualFold(strings.TrimSpace(raw), "skip") {
		return true, SKIPPED, ""
	}

	q := e.Catalog.Question(qkey)
	if q == nil {
		return false, nil, "I don't recognize that question."
	}

	switch q.Type {
	case "scale_1_5":
		n, ok := parseNumeric(raw)
		if !ok {
			return false, nil, scaleErrorMessage(q)
		}
		rounded := int(n + 0.5)
		if n < 0 {
			rounded = int(n - 0.5)
		}
		if rounded < 1 || rounded > 5 {
			return false, nil, scaleErrorMessage(q)
		}
		return true, rounded, ""

	case "number":
		n, ok := parseNumeric(raw)
		if !ok {
			return false, nil, numberErrorMessage(q)
		}
		min, max := 0.0, 24.0
		if q.Validation.Min != nil {
			min = *q.Validation.Min
		}
		if q.Validation.Max != nil {
			max = *q.Validation.Max
		}
		if n < min || n > max {
			return false, nil, numberErrorMessage(q)
		}
		return true, n, ""

	case "yes_no":
		b, ok := parseYesNo(raw)
		if !ok {
			if q.Validation.ErrorMessage != "" {
				return false, nil, q.Validation.ErrorMessage
			}
			return false, nil, "Please answer yes or no."
		}
		return true, b, ""

	case "optional_text":
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			return true, "No reflection provided", ""
		}
		return true, trimmed, ""

	default:
		return false, nil, "This question has no recognized type."
	}
}

func scaleErrorMessage(q *Question) string {
	if q.Validation.ErrorMessage != "" {
		return q.Validation.ErrorMessage
	}
	return "Please answer with a number from 1 to 5 (or \"skip\")."
}

func numberErrorMessage(q *Question) string {
	if q.Validation.ErrorMessage != "" {
		return q.Validation.ErrorMessage
	}
	min, max := 0.0, 24.0
	if q.Validation.Min != nil {
		min = *q.Validation.Min
	}
	if q.Validation.Max != nil {
		max = *q.Validation.Max
	}
	return fmt.Sprintf("Please enter a number between %g and %g (or \"skip\").", min, max)
}

// valueKey renders a validated answer as the string key used to look up response phrases.
func valueKey(value any) string {
	switch v := value.(type) {
	case bool:
		if v {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(v)
	case float64:
		if v == float64(int(v)) {
			return strconv.Itoa(int(v))
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ResponseStatement picks uniformly at random from the phrases registered for (qkey, value).
// Returns ok=false when no phrases are registered for that pair.
func (e *Engine) ResponseStatement(qkey string, value any) (string, bool) {
	byValue, ok := e.Catalog.Responses[qkey]
	if !ok {
		return "", false
	}
	phrases, ok := byValue[valueKey(value)]
	if !ok || len(phrases) == 0 {
		return "", false
	}
	return phrases[e.Rand.Intn(len(phrases))], true
}

// TransitionPhrase picks uniformly at random from the catalog's transition phrases.
func (e *Engine) TransitionPhrase() string {
	if len(e.Catalog.TransitionPhrases) == 0 {
		return ""
	}
	return e.Catalog.TransitionPhrases[e.Rand.Intn(len(e.Catalog.TransitionPhrases))]
}

// BuildNext composes the prompt for qnext, prefixed with a response statement and transition
// phrase for the just-answered qprev/vprev when one is registered.
func (e *Engine) BuildNext(qnext, qprev string, vprev any) string {
	nextText := e.Text(qnext)
	if qprev == "" {
		return nextText
	}
	statement, ok := e.ResponseStatement(qprev, vprev)
	if !ok {
		return nextText
	}
	return fmt.Sprintf("%s\n\n%s %s", statement, e.TransitionPhrase(), nextText)
}
