package flow

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hattiebot/hattiebot/internal/checkin"
	"github.com/hattiebot/hattiebot/internal/store"
)

func newTestManager(t *testing.T) (*Manager, *store.DB) {
	t.Helper()
	dir := t.TempDir()
	qp := filepath.Join(dir, "questions.json")
	rp := filepath.Join(dir, "responses.json")
	os.WriteFile(qp, []byte(`[
		{"key":"mood","type":"scale_1_5","text":"Mood 1-5?","enabled_by_default":true,"category":"mood"},
		{"key":"energy","type":"scale_1_5","text":"Energy 1-5?","enabled_by_default":true,"category":"health"},
		{"key":"daily_reflection","type":"optional_text","text":"Anything else?","enabled_by_default":true,"category":"reflection"}
	]`), 0o644)
	os.WriteFile(rp, []byte(`{"responses":{},"transition_phrases":["Next,"]}`), 0o644)

	catalog, err := checkin.LoadCatalog(qp, rp)
	if err != nil {
		t.Fatal(err)
	}
	engine := checkin.NewEngine(catalog, rand.New(rand.NewSource(42)))
	st := NewStore(filepath.Join(dir, "conversation_states.json"))
	if err := st.Load(); err != nil {
		t.Fatal(err)
	}

	db, err := store.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	m := NewManager(st, catalog, engine, db, Config{InactivityTimeout: 30 * time.Minute})
	return m, db
}

func TestCheckinFullCycleWithSkip(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)
	userID := "u1"

	r1 := m.StartCheckin(ctx, userID, true, []string{"mood", "energy", "daily_reflection"})
	if r1.Completed {
		t.Fatalf("expected Completed=false after start")
	}

	r2 := m.HandleInbound(ctx, userID, "4")
	if r2.Completed {
		t.Fatalf("expected Completed=false after first answer")
	}

	r3 := m.HandleInbound(ctx, userID, "skip")
	if r3.Completed {
		t.Fatalf("expected Completed=false after second answer")
	}

	r4 := m.HandleInbound(ctx, userID, "Feeling okay today")
	if !r4.Completed {
		t.Fatalf("expected Completed=true after final answer")
	}
	if m.HasActiveFlow(userID) {
		t.Fatalf("expected flow state removed after completion")
	}
}

func TestCancelIdempotent(t *testing.T) {
	m, _ := newTestManager(t)
	r1 := m.Cancel("nobody")
	r2 := m.Cancel("nobody")
	if r1.Message != r2.Message {
		t.Fatalf("cancel not idempotent: %q vs %q", r1.Message, r2.Message)
	}
}

func TestUnrelatedOutboundExpiresCheckin(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)
	m.StartCheckin(ctx, "u1", true, []string{"mood", "energy"})
	if !m.HasActiveFlow("u1") {
		t.Fatalf("expected active flow before expiry")
	}
	m.ExpireCheckinFlowDueToUnrelatedOutbound("u1")
	if m.HasActiveFlow("u1") {
		t.Fatalf("expected flow removed after unrelated outbound expiry")
	}
}

func TestIdleExpiry(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)
	m.Config.InactivityTimeout = 1 * time.Millisecond
	m.StartCheckin(ctx, "u1", true, []string{"mood", "energy"})
	time.Sleep(5 * time.Millisecond)
	r := m.HandleInbound(ctx, "u1", "4")
	if !r.Completed {
		t.Fatalf("expected Completed=true on idle expiry")
	}
	if m.HasActiveFlow("u1") {
		t.Fatalf("expected flow removed on idle expiry")
	}
}

func TestStartCheckinAfterClearStuckFlows(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)
	m.StartCheckin(ctx, "u1", true, []string{"mood"})
	m.ClearStuckFlows("u1")
	r := m.StartCheckin(ctx, "u1", true, []string{"mood"})
	if r.Completed {
		t.Fatalf("expected a fresh first-question response")
	}
}

func TestTaskReminderFlowFullCycle(t *testing.T) {
	ctx := context.Background()
	m, db := newTestManager(t)
	task, err := db.CreateTask(ctx, "u1", "Water the plants", "medium", "")
	if err != nil {
		t.Fatal(err)
	}

	r := m.StartTaskReminderFlow("u1", task.ID, task.Title)
	if r.Completed {
		t.Fatalf("expected follow-up question, got Completed=true: %s", r.Message)
	}
	if !m.HasActiveFlow("u1") {
		t.Fatalf("expected TASK_REMINDER flow active")
	}

	r = m.HandleInbound(ctx, "u1", "yes")
	if r.Completed {
		t.Fatalf("expected times prompt, got Completed=true: %s", r.Message)
	}

	r = m.HandleInbound(ctx, "u1", "9am, 5:30pm")
	if !r.Completed {
		t.Fatalf("expected flow to complete after reminder times given")
	}
	if m.HasActiveFlow("u1") {
		t.Fatalf("expected flow cleared after completion")
	}

	got, err := db.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"09:00", "17:30"}
	if len(got.ReminderPeriods) != len(want) || got.ReminderPeriods[0] != want[0] || got.ReminderPeriods[1] != want[1] {
		t.Fatalf("reminder periods = %v, want %v", got.ReminderPeriods, want)
	}
}

func TestTaskReminderFlowDeclines(t *testing.T) {
	ctx := context.Background()
	m, db := newTestManager(t)
	task, _ := db.CreateTask(ctx, "u1", "Call the dentist", "medium", "")

	m.StartTaskReminderFlow("u1", task.ID, task.Title)
	r := m.HandleInbound(ctx, "u1", "no")
	if !r.Completed {
		t.Fatalf("expected Completed=true after declining reminders")
	}
	if m.HasActiveFlow("u1") {
		t.Fatalf("expected flow cleared after declining")
	}
}

func TestTaskReminderFlowSkippedWhenAnotherFlowActive(t *testing.T) {
	ctx := context.Background()
	m, db := newTestManager(t)
	m.StartCheckin(ctx, "u1", true, []string{"mood"})
	task, _ := db.CreateTask(ctx, "u1", "Pay rent", "high", "")

	r := m.StartTaskReminderFlow("u1", task.ID, task.Title)
	if !r.Completed {
		t.Fatalf("expected immediate completion when a flow is already active")
	}
}
