package commands

import "testing"

func TestParseUpdateTaskPriorityCoercion(t *testing.T) {
	p := New()
	r := p.Parse("update task 1 priority high", "u1")
	if r.Parsed.Intent != "update_task" {
		t.Fatalf("intent = %q, want update_task", r.Parsed.Intent)
	}
	if r.Parsed.Entities["task_identifier"] != "1" || r.Parsed.Entities["priority"] != "high" {
		t.Fatalf("entities = %+v", r.Parsed.Entities)
	}
	if r.Confidence < 0.9 {
		t.Fatalf("confidence = %v, want >= 0.9", r.Confidence)
	}
}

func TestParseEditSchedulePeriod(t *testing.T) {
	p := New()
	r := p.Parse("edit schedule period morning tasks", "u1")
	if r.Parsed.Intent != "edit_schedule_period" {
		t.Fatalf("intent = %q", r.Parsed.Intent)
	}
	if r.Parsed.Entities["period_name"] != "morning" || r.Parsed.Entities["category"] != "tasks" {
		t.Fatalf("entities = %+v", r.Parsed.Entities)
	}
}

func TestParseUnknownHasZeroConfidence(t *testing.T) {
	p := New()
	r := p.Parse("xyzzy plugh", "u1")
	if r.Parsed.Intent != "unknown" || r.Confidence != 0 {
		t.Fatalf("got intent=%q confidence=%v", r.Parsed.Intent, r.Confidence)
	}
}

func TestSuggestionsCapAndRange(t *testing.T) {
	p := New()
	s := p.Suggestions("show my tasks", UserContext{HasActiveTasks: true})
	if len(s) == 0 || len(s) > 5 {
		t.Fatalf("suggestions length = %d, want 1..5", len(s))
	}
}
