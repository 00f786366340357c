package handlers

import (
	"context"
	"strings"
	"testing"

	"github.com/hattiebot/hattiebot/internal/commands"
	"github.com/hattiebot/hattiebot/internal/store"
)

func newTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCompleteTaskExactTitle(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	db.GetOrCreateUser(ctx, "u1", "User", "test")
	db.CreateTask(ctx, "u1", "Brush your teeth", "medium", "")

	h := NewTaskHandler(db)
	resp := h.Handle(ctx, "u1", commands.ParsedCommand{
		Intent:   "complete_task",
		Entities: map[string]any{"task_identifier": "1"},
	})
	if !strings.Contains(strings.ToLower(resp.Message), "completed") {
		t.Fatalf("message = %q, want it to mention completion", resp.Message)
	}
	tasks, _ := db.ListTasks(ctx, "u1", "")
	if len(tasks) != 0 {
		t.Fatalf("expected task removed from active list, got %d", len(tasks))
	}
}

func TestCompleteTaskFuzzyTitle(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	db.GetOrCreateUser(ctx, "u1", "User", "test")
	db.CreateTask(ctx, "u1", "Pet Davey", "medium", "")

	h := NewTaskHandler(db)
	resp := h.Handle(ctx, "u1", commands.ParsedCommand{
		Intent:   "complete_task",
		Entities: map[string]any{"task_identifier": "per davey"},
	})
	if !strings.Contains(resp.Message, "Completed: Pet Davey") {
		t.Fatalf("message = %q, want it to contain 'Completed: Pet Davey'", resp.Message)
	}
}

func TestUpdateTaskPriority(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	db.GetOrCreateUser(ctx, "u1", "User", "test")
	db.CreateTask(ctx, "u1", "Write report", "medium", "")

	h := NewTaskHandler(db)
	h.Handle(ctx, "u1", commands.ParsedCommand{
		Intent:   "update_task",
		Entities: map[string]any{"task_identifier": "1", "priority": "high"},
	})
	task, err := db.GetTask(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if task.Priority != "high" {
		t.Fatalf("priority = %q, want high", task.Priority)
	}
}
