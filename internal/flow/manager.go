package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/hattiebot/hattiebot/internal/checkin"
	"github.com/hattiebot/hattiebot/internal/reply"
	"github.com/hattiebot/hattiebot/internal/store"
)

// StarterFunc is the cyclic-import-avoiding handoff used by "start_<name>_flow" commands:
// it calls back into the interaction manager without flow importing it directly.
type StarterFunc func(ctx context.Context, userID string) (reply.InteractionResponse, error)

// inFlowCommandWhitelist may be sent during an active CHECKIN without leaving the flow.
var inFlowCommandWhitelist = map[string]bool{
	"help": true, "clear": true, "tasks": true, "profile": true,
	"status": true, "analytics": true, "schedule": true, "messages": true,
}

// flowClearingKeywords, seen at the start of an inbound message while a flow is active,
// cause the interaction manager to clear the flow and fall through to ordinary parsing.
var flowClearingKeywords = []string{
	"update task", "complete task", "delete task", "show tasks", "list tasks",
	"create task", "add task", "new task", "/cancel", "cancel",
}

// Config bundles the tunable knobs for the flow manager.
type Config struct {
	InactivityTimeout time.Duration
}

// Manager is the conversation flow manager (C5).
type Manager struct {
	Store    *Store
	Catalog  *checkin.Catalog
	Engine   *checkin.Engine
	DB       *store.DB
	Config   Config
	Starters map[string]StarterFunc
	Rand     *rand.Rand

	locks userLocks
}

// NewManager builds a Manager. Call Store.Load before first use.
func NewManager(st *Store, catalog *checkin.Catalog, engine *checkin.Engine, db *store.DB, cfg Config) *Manager {
	return &Manager{
		Store:    st,
		Catalog:  catalog,
		Engine:   engine,
		DB:       db,
		Config:   cfg,
		Starters: make(map[string]StarterFunc),
		Rand:     engine.Rand,
	}
}

// RegisterStarter adds a flow-name -> factory entry to the starter registry.
func (m *Manager) RegisterStarter(name string, fn StarterFunc) {
	m.Starters[name] = fn
}

// HasActiveFlow reports whether userID currently has a persisted flow.
func (m *Manager) HasActiveFlow(userID string) bool {
	return m.Store.Get(userID) != nil
}

// ClearsFlow reports whether message begins with one of the explicit command keywords that,
// while a flow is active, clear the flow and fall through to ordinary parsing.
func ClearsFlow(message string) bool {
	lower := strings.ToLower(strings.TrimSpace(message))
	for _, kw := range flowClearingKeywords {
		if strings.HasPrefix(lower, kw) {
			return true
		}
	}
	return false
}

// HandleInbound processes message for a user with an active flow. Callers must have already
// checked HasActiveFlow and ClearsFlow; this only ever services a live flow.
func (m *Manager) HandleInbound(ctx context.Context, userID, message string) reply.InteractionResponse {
	unlock := m.locks.lock(userID)
	defer unlock()

	st := m.Store.Get(userID)
	if st == nil {
		return reply.Done("Nothing to cancel, you don't have an active flow.")
	}

	if time.Since(st.LastActivity) > m.Config.InactivityTimeout {
		m.Store.Delete(userID)
		return reply.Done("Your check-in expired due to inactivity. Feel free to start a new one with /checkin.")
	}

	trimmed := strings.TrimSpace(message)
	lower := strings.ToLower(trimmed)

	if lower == "/cancel" || lower == "cancel" {
		m.Store.Delete(userID)
		return reply.Done("Check-in canceled.")
	}

	if strings.HasPrefix(trimmed, "/") || strings.HasPrefix(trimmed, "!") {
		cmdName := strings.TrimLeft(trimmed, "/!")
		cmdName = strings.Fields(cmdName)[0]
		if !inFlowCommandWhitelist[strings.ToLower(cmdName)] {
			return reply.Pending("Unknown command while checking in. Say \"cancel\" to stop, or continue answering.")
		}
		return reply.Pending(fmt.Sprintf("(You're mid check-in — %s isn't available right now. Finish or cancel first.)", cmdName))
	}

	switch st.Flow {
	case FlowCheckin:
		return m.handleCheckinAnswer(ctx, userID, st, trimmed)
	case FlowTaskReminder:
		return m.handleTaskReminderAnswer(ctx, userID, st, trimmed)
	default:
		// Unknown flow kind recorded on disk; drop it defensively rather than get stuck.
		m.Store.Delete(userID)
		return reply.Done("I lost track of that flow, let's start fresh.")
	}
}

func (m *Manager) handleCheckinAnswer(ctx context.Context, userID string, st *State, answer string) reply.InteractionResponse {
	if st.CurrentQuestionIndex >= len(st.QuestionOrder) {
		m.Store.Delete(userID)
		return reply.Done("That check-in already finished.")
	}
	qkey := st.QuestionOrder[st.CurrentQuestionIndex]
	ok, value, errMsg := m.Engine.Validate(qkey, answer)
	if !ok {
		return reply.Pending(errMsg)
	}

	st.Data[qkey] = value
	st.CurrentQuestionIndex++
	st.LastActivity = time.Now()

	if st.CurrentQuestionIndex >= len(st.QuestionOrder) {
		m.DB.SaveCheckinResponse(ctx, userID, st.Data, st.QuestionOrder)
		completion := buildCompletionMessage(st.Data)
		m.Store.Delete(userID)
		return reply.Done(completion)
	}

	m.Store.Set(userID, st)
	nextKey := st.QuestionOrder[st.CurrentQuestionIndex]
	return reply.Pending(m.Engine.BuildNext(nextKey, qkey, value))
}

// StartTaskReminderFlow begins the one-question-deep TASK_REMINDER follow-up right after a
// task is created (spec §4.5.4). It asks whether the user wants reminders for the new task;
// if an unrelated flow is already active for the user, the new task still gets created by the
// caller, but no follow-up question is asked (one flow per user at a time).
func (m *Manager) StartTaskReminderFlow(userID string, taskID int64, taskTitle string) reply.InteractionResponse {
	unlock := m.locks.lock(userID)
	defer unlock()

	if m.Store.Get(userID) != nil {
		return reply.Done(fmt.Sprintf("Created task #%d: %s", taskID, taskTitle))
	}

	st := &State{
		Flow:     FlowTaskReminder,
		SubState: TaskReminderAskWant,
		Data: map[string]any{
			"task_id":    float64(taskID),
			"task_title": taskTitle,
		},
		LastActivity: time.Now(),
	}
	m.Store.Set(userID, st)
	return reply.Pending(fmt.Sprintf("Created task #%d: %s\n\nWant reminders for this one? (yes/no)", taskID, taskTitle))
}

func (m *Manager) handleTaskReminderAnswer(ctx context.Context, userID string, st *State, answer string) reply.InteractionResponse {
	taskID := int64(st.Data["task_id"].(float64))
	taskTitle, _ := st.Data["task_title"].(string)

	switch st.SubState {
	case TaskReminderAskWant:
		want, ok := checkin.ParseYesNo(answer)
		if !ok {
			return reply.Pending("Sorry, just a yes or no: want reminders for this task?")
		}
		if !want {
			m.Store.Delete(userID)
			return reply.Done("No reminders then. You can always add them later with \"update task " + fmt.Sprint(taskID) + "\".")
		}
		st.SubState = TaskReminderAskTimes
		st.LastActivity = time.Now()
		m.Store.Set(userID, st)
		return reply.Pending("What times? (e.g. \"9am, 5pm\")")

	case TaskReminderAskTimes:
		periods, ok := parseReminderTimes(answer)
		if !ok || len(periods) == 0 {
			return reply.Pending("I couldn't parse any times there. Try something like \"9am, 5pm\", or say \"cancel\".")
		}
		if err := m.DB.SetTaskReminderPeriods(ctx, taskID, periods); err != nil {
			m.Store.Delete(userID)
			return reply.Done("I couldn't save those reminder times, sorry.")
		}
		m.Store.Delete(userID)
		return reply.Done(fmt.Sprintf("Got it — I'll remind you about %q at %s.", taskTitle, strings.Join(periods, ", ")))

	default:
		m.Store.Delete(userID)
		return reply.Done("I lost track of that, let's start fresh.")
	}
}

// parseReminderTimes splits a free-text answer like "9am, 5:30pm and noon" into normalized
// "HH:MM" 24-hour strings. Unparseable tokens are dropped; ok is false only if none parsed.
func parseReminderTimes(raw string) ([]string, bool) {
	raw = strings.ReplaceAll(raw, " and ", ",")
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if t, ok := parseClockTime(strings.TrimSpace(p)); ok {
			out = append(out, t)
		}
	}
	return out, len(out) > 0
}

func parseClockTime(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "noon":
		return "12:00", true
	case "midnight":
		return "00:00", true
	}
	meridiem := ""
	if strings.HasSuffix(s, "am") || strings.HasSuffix(s, "pm") {
		meridiem = s[len(s)-2:]
		s = strings.TrimSpace(s[:len(s)-2])
	}
	hour, minute := 0, 0
	if strings.Contains(s, ":") {
		segs := strings.SplitN(s, ":", 2)
		h, err1 := strconv.Atoi(segs[0])
		mn, err2 := strconv.Atoi(segs[1])
		if err1 != nil || err2 != nil {
			return "", false
		}
		hour, minute = h, mn
	} else {
		h, err := strconv.Atoi(s)
		if err != nil {
			return "", false
		}
		hour = h
	}
	if meridiem == "pm" && hour < 12 {
		hour += 12
	}
	if meridiem == "am" && hour == 12 {
		hour = 0
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), true
}

// StartCheckin begins a CHECKIN flow if the user has check-ins enabled and none is already
// running.
func (m *Manager) StartCheckin(ctx context.Context, userID string, checkinsEnabled bool, enabledQuestions []string) reply.InteractionResponse {
	unlock := m.locks.lock(userID)
	defer unlock()

	if !checkinsEnabled {
		m.Store.Delete(userID)
		return reply.Done("Check-ins are not enabled for your account. You can turn them on from your profile.")
	}
	if st := m.Store.Get(userID); st != nil && st.Flow == FlowCheckin {
		return reply.Pending("You already have a check-in in progress. Answer the current question, or say \"cancel\" to stop.")
	}

	history, _ := m.DB.RecentCheckins(ctx, userID, 5)
	order := selectQuestionOrder(m.Catalog, enabledQuestions, history, m.Rand)
	if len(order) == 0 {
		return reply.Done("You don't have any check-in questions enabled right now.")
	}

	st := &State{
		Flow:                 FlowCheckin,
		SubState:             CheckinStart,
		Data:                 map[string]any{},
		QuestionOrder:        order,
		CurrentQuestionIndex: 0,
		LastActivity:         time.Now(),
	}
	m.Store.Set(userID, st)

	first := order[0]
	intro := "Let's do a quick check-in!"
	return reply.Pending(fmt.Sprintf("%s\n\n%s", intro, m.Engine.Text(first)))
}

// RestartCheckin clears any existing flow for the user and starts a fresh check-in.
func (m *Manager) RestartCheckin(ctx context.Context, userID string, checkinsEnabled bool, enabledQuestions []string) reply.InteractionResponse {
	m.Store.Delete(userID)
	return m.StartCheckin(ctx, userID, checkinsEnabled, enabledQuestions)
}

// ClearStuckFlows drops whatever flow state the user has, regardless of kind.
func (m *Manager) ClearStuckFlows(userID string) reply.InteractionResponse {
	unlock := m.locks.lock(userID)
	defer unlock()
	if m.Store.Get(userID) == nil {
		return reply.Done("You don't have any stuck flows.")
	}
	m.Store.Delete(userID)
	return reply.Done("Cleared your active flow.")
}

// Cancel is the "/cancel" handler invoked directly by the interaction manager (not via the
// flow-active short-circuit). Idempotent: repeated calls with no active flow return the same
// "nothing to cancel" message.
func (m *Manager) Cancel(userID string) reply.InteractionResponse {
	unlock := m.locks.lock(userID)
	defer unlock()
	if m.Store.Get(userID) == nil {
		return reply.Done("Nothing to cancel, you don't have an active flow.")
	}
	m.Store.Delete(userID)
	return reply.Done("Canceled.")
}

// ExpireCheckinFlowDueToUnrelatedOutbound silently drops an active CHECKIN flow when the
// channel adapter is about to send an unrelated outbound message (e.g. a task reminder).
// No reply is produced; this is a no-op if no such flow exists.
func (m *Manager) ExpireCheckinFlowDueToUnrelatedOutbound(userID string) {
	unlock := m.locks.lock(userID)
	defer unlock()
	if st := m.Store.Get(userID); st != nil && st.Flow == FlowCheckin {
		m.Store.Delete(userID)
	}
}

// CheckinsEnabled reports whether the user has check-ins turned on, via the "checkins_enabled"
// profile fact. Defaults to enabled when the fact has never been set.
func (m *Manager) CheckinsEnabled(ctx context.Context, userID string) bool {
	f, err := m.DB.GetFact(ctx, userID, "checkins_enabled")
	if err != nil || f == nil {
		return true
	}
	return f.Value != "false"
}

// EnabledQuestions returns the user's enabled check-in question keys, from the
// "checkin_questions_enabled" profile fact, falling back to the catalog defaults.
func (m *Manager) EnabledQuestions(ctx context.Context, userID string) []string {
	f, err := m.DB.GetFact(ctx, userID, "checkin_questions_enabled")
	if err != nil || f == nil {
		return m.Catalog.EnabledKeys()
	}
	var keys []string
	if err := json.Unmarshal([]byte(f.Value), &keys); err != nil || len(keys) == 0 {
		return m.Catalog.EnabledKeys()
	}
	return keys
}

// StartCheckinForUser is the "start_checkin" flow starter: it looks up the user's check-in
// settings and begins the flow. Matches StarterFunc's signature for registry wiring.
func (m *Manager) StartCheckinForUser(ctx context.Context, userID string) (reply.InteractionResponse, error) {
	return m.StartCheckin(ctx, userID, m.CheckinsEnabled(ctx, userID), m.EnabledQuestions(ctx, userID)), nil
}

// RestartCheckinForUser is the "restart_checkin" flow starter.
func (m *Manager) RestartCheckinForUser(ctx context.Context, userID string) (reply.InteractionResponse, error) {
	return m.RestartCheckin(ctx, userID, m.CheckinsEnabled(ctx, userID), m.EnabledQuestions(ctx, userID)), nil
}

// ClearStuckFlowsForUser is the "clear_stuck_flows" flow starter.
func (m *Manager) ClearStuckFlowsForUser(ctx context.Context, userID string) (reply.InteractionResponse, error) {
	return m.ClearStuckFlows(userID), nil
}

func buildCompletionMessage(data map[string]any) string {
	msg := "Check-in complete! Thanks for sharing."
	mood, hasMood := data["mood"].(int)
	energy, hasEnergy := data["energy"].(int)
	hours, hasSleep := data["slept_hours"].(float64)

	var notes []string
	if hasMood && mood <= 2 {
		notes = append(notes, "Sorry today was a rough one, take it easy on yourself.")
	}
	if hasEnergy && energy <= 2 {
		notes = append(notes, "Low energy noted, maybe an early night tonight.")
	}
	if hasSleep && hours < 6 {
		notes = append(notes, "That's not a lot of sleep, try to catch up if you can.")
	}
	if len(notes) == 0 {
		return msg
	}
	return msg + "\n\n" + strings.Join(notes, " ")
}
