package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/hattiebot/hattiebot/internal/commands"
	"github.com/hattiebot/hattiebot/internal/flow"
	"github.com/hattiebot/hattiebot/internal/reply"
	"github.com/hattiebot/hattiebot/internal/store"
)

// TaskHandler implements the task CRUD and listing intents against store.DB.
type TaskHandler struct {
	DB *store.DB
	// Flow, if set, starts the one-question task-reminder follow-up (spec §4.5.4) right
	// after a task is created. Nil is fine: creation still completes, just without the
	// follow-up prompt.
	Flow *flow.Manager
}

func NewTaskHandler(db *store.DB) *TaskHandler { return &TaskHandler{DB: db} }

var taskIntents = map[string]bool{
	"create_task": true, "list_tasks": true, "complete_task": true,
	"delete_task": true, "update_task": true, "task_stats": true,
}

func (h *TaskHandler) CanHandle(intent string) bool { return taskIntents[intent] }

func (h *TaskHandler) Handle(ctx context.Context, userID string, parsed commands.ParsedCommand) reply.InteractionResponse {
	switch parsed.Intent {
	case "create_task":
		return h.create(ctx, userID, parsed)
	case "list_tasks":
		return h.list(ctx, userID)
	case "complete_task":
		return h.complete(ctx, userID, parsed)
	case "delete_task":
		return h.delete(ctx, userID, parsed)
	case "update_task":
		return h.update(ctx, userID, parsed)
	case "task_stats":
		return h.stats(ctx, userID)
	}
	return reply.Done("I don't know how to handle that task request.")
}

func (h *TaskHandler) create(ctx context.Context, userID string, parsed commands.ParsedCommand) reply.InteractionResponse {
	title, _ := parsed.Entities["title"].(string)
	title = strings.TrimSpace(title)
	if title == "" {
		return reply.Done("What would you like the task to be called?")
	}
	t, err := h.DB.CreateTask(ctx, userID, title, "medium", "")
	if err != nil {
		return reply.Done("I couldn't create that task right now.")
	}
	if h.Flow != nil {
		return h.Flow.StartTaskReminderFlow(userID, t.ID, t.Title)
	}
	return reply.Done(fmt.Sprintf("Created task #%d: %s", t.ID, t.Title))
}

func (h *TaskHandler) list(ctx context.Context, userID string) reply.InteractionResponse {
	tasks, err := h.DB.ListTasks(ctx, userID, "")
	if err != nil {
		return reply.Done("I couldn't load your tasks right now.")
	}
	if len(tasks) == 0 {
		return reply.Done("You have no active tasks.")
	}
	var b strings.Builder
	b.WriteString("Your active tasks:\n")
	for _, t := range tasks {
		fmt.Fprintf(&b, "#%d [%s] %s\n", t.ID, t.Priority, t.Title)
	}
	return reply.Done(strings.TrimRight(b.String(), "\n")).WithRichData(reply.RichPayload{
		Title: "Tasks", Type: "task",
	})
}

func (h *TaskHandler) complete(ctx context.Context, userID string, parsed commands.ParsedCommand) reply.InteractionResponse {
	identifier, _ := parsed.Entities["task_identifier"].(string)
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return reply.Done("Which task? Give me a task number or title.")
	}
	t, err := resolveTask(ctx, h.DB, userID, identifier)
	if err != nil || t == nil {
		return reply.Done(fmt.Sprintf("I couldn't find a task matching %q.", identifier))
	}
	if err := h.DB.CompleteTask(ctx, t.ID); err != nil {
		return reply.Done("I couldn't mark that task completed.")
	}
	return reply.Done(fmt.Sprintf("Completed: %s", t.Title))
}

func (h *TaskHandler) delete(ctx context.Context, userID string, parsed commands.ParsedCommand) reply.InteractionResponse {
	identifier, _ := parsed.Entities["task_identifier"].(string)
	t, err := resolveTask(ctx, h.DB, userID, identifier)
	if err != nil || t == nil {
		return reply.Done(fmt.Sprintf("I couldn't find a task matching %q.", identifier))
	}
	if err := h.DB.DeleteTask(ctx, t.ID); err != nil {
		return reply.Done("I couldn't delete that task.")
	}
	return reply.Done(fmt.Sprintf("Deleted: %s", t.Title))
}

func (h *TaskHandler) update(ctx context.Context, userID string, parsed commands.ParsedCommand) reply.InteractionResponse {
	identifier, _ := parsed.Entities["task_identifier"].(string)
	t, err := resolveTask(ctx, h.DB, userID, identifier)
	if err != nil || t == nil {
		return reply.Done(fmt.Sprintf("I couldn't find a task matching %q.", identifier))
	}
	var updates []string
	if priority, ok := parsed.Entities["priority"].(string); ok && priority != "" {
		if err := h.DB.UpdateTaskPriority(ctx, t.ID, priority); err == nil {
			updates = append(updates, "priority to "+priority)
		}
	}
	if due, ok := parsed.Entities["due_date"].(string); ok && due != "" {
		if err := h.DB.UpdateTaskDueDate(ctx, t.ID, due); err == nil {
			updates = append(updates, "due date to "+due)
		}
	}
	if title, ok := parsed.Entities["title"].(string); ok && title != "" {
		if err := h.DB.UpdateTaskTitle(ctx, t.ID, title); err == nil {
			updates = append(updates, "title to "+title)
		}
	}
	if len(updates) == 0 {
		return reply.Done("I didn't find anything to update on that task.")
	}
	return reply.Done(fmt.Sprintf("Updated task #%d: %s", t.ID, strings.Join(updates, ", ")))
}

func (h *TaskHandler) stats(ctx context.Context, userID string) reply.InteractionResponse {
	active, err := h.DB.ListTasks(ctx, userID, "active")
	if err != nil {
		return reply.Done("I couldn't load task stats right now.")
	}
	completed, _ := h.DB.ListTasks(ctx, userID, "completed")
	return reply.Done(fmt.Sprintf("You have %d active and %d completed tasks.", len(active), len(completed))).
		WithRichData(reply.RichPayload{Title: "Task stats", Type: "task"})
}

// resolveTask resolves a task_identifier entity: a numeric id is looked up directly, anything
// else is fuzzy-matched against the user's active task titles (e.g. "per davey" -> "Pet Davey").
func resolveTask(ctx context.Context, db *store.DB, userID, identifier string) (*store.Task, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, nil
	}
	if id, err := strconv.ParseInt(identifier, 10, 64); err == nil {
		t, err := db.GetTask(ctx, id)
		if err != nil || t == nil || t.UserID != userID {
			return nil, nil
		}
		return t, nil
	}

	tasks, err := db.ListTasks(ctx, userID, "active")
	if err != nil {
		return nil, err
	}
	var best *store.Task
	bestScore := -1.0
	for i := range tasks {
		score := titleSimilarity(identifier, tasks[i].Title)
		if score > bestScore {
			bestScore = score
			best = &tasks[i]
		}
	}
	if best == nil || bestScore < 0.35 {
		return nil, nil
	}
	return best, nil
}

// titleSimilarity scores how closely a (possibly mistyped) identifier matches a task title,
// normalized to [0,1] via Levenshtein distance over the longer of the two strings.
func titleSimilarity(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == b {
		return 1
	}
	dist := levenshtein(a, b)
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 0
	}
	return 1 - float64(dist)/float64(longest)
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	prev := make([]int, lb+1)
	cur := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		cur[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := cur[j-1] + 1
			sub := prev[j-1] + cost
			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			cur[j] = m
		}
		prev, cur = cur, prev
	}
	return prev[lb]
}

func (h *TaskHandler) Help() string {
	return "Task commands: create task <title>, show my tasks, complete task <id|title>, delete task <id|title>, update task <id> priority <level>."
}

func (h *TaskHandler) Examples() []string {
	return []string{"create task Buy groceries", "complete task 1", "update task 1 priority high"}
}
