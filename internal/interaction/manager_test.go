package interaction

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hattiebot/hattiebot/internal/checkin"
	"github.com/hattiebot/hattiebot/internal/commands"
	"github.com/hattiebot/hattiebot/internal/core"
	"github.com/hattiebot/hattiebot/internal/flow"
	"github.com/hattiebot/hattiebot/internal/handlers"
	"github.com/hattiebot/hattiebot/internal/reply"
	"github.com/hattiebot/hattiebot/internal/store"
)

type stubAI struct {
	reply string
	err   error
	calls int
}

func (s *stubAI) ChatCompletion(ctx context.Context, messages []core.Message) (string, error) {
	s.calls++
	return s.reply, s.err
}

func (s *stubAI) ChatCompletionWithTools(ctx context.Context, messages []core.Message, tools []core.ToolDefinition) (string, []core.ToolCall, error) {
	return "", nil, errors.New("not implemented")
}

func (s *stubAI) Embed(ctx context.Context, text string) ([]float32, error) { return nil, nil }

func newTestManager(t *testing.T, ai core.LLMClient) (*Manager, *store.DB) {
	t.Helper()
	ctx := context.Background()
	db, err := store.Open(ctx, ":memory:")
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	qpath := filepath.Join(dir, "questions.json")
	rpath := filepath.Join(dir, "responses.json")
	os.WriteFile(qpath, []byte(`[
		{"key":"mood","type":"scale_1_5","text":"How's your mood?","enabled_by_default":true,"category":"mood"}
	]`), 0o644)
	os.WriteFile(rpath, []byte(`{"responses":{},"transition_phrases":["Got it."]}`), 0o644)

	catalog, err := checkin.LoadCatalog(qpath, rpath)
	if err != nil {
		t.Fatal(err)
	}
	engine := checkin.NewEngine(catalog, rand.New(rand.NewSource(1)))
	fstore := flow.NewStore(filepath.Join(dir, "conversation_states.json"))
	fm := flow.NewManager(fstore, catalog, engine, db, flow.Config{InactivityTimeout: 1e9 * 3600})
	fm.RegisterStarter("start_checkin", fm.StartCheckinForUser)
	fm.RegisterStarter("restart_checkin", fm.RestartCheckinForUser)
	fm.RegisterStarter("clear_stuck_flows", fm.ClearStuckFlowsForUser)

	parser := commands.New()
	taskHandler := handlers.NewTaskHandler(db)
	helpHandler := handlers.NewHelpHandler(taskHandler)
	dispatcher := handlers.NewDispatcher(taskHandler, helpHandler)

	cfg := Config{MinCommandConfidence: 0.3, AIFallbackEnabled: ai != nil, AIEnhanceEnabled: false, AIMaxResponseLength: 600}
	m := New(dispatcher, parser, fm, ai, cfg)
	return m, db
}

func TestHandleEmptyMessage(t *testing.T) {
	m, _ := newTestManager(t, nil)
	resp := m.Handle(context.Background(), "u1", "   ", "discord")
	if !strings.Contains(resp.Message, "didn't receive") {
		t.Fatalf("got %q", resp.Message)
	}
}

func TestHandleSlashHelpCommand(t *testing.T) {
	m, _ := newTestManager(t, nil)
	resp := m.Handle(context.Background(), "u1", "/help", "discord")
	if !strings.Contains(resp.Message, "Here's what I can do") {
		t.Fatalf("got %q", resp.Message)
	}
}

func TestHandleSlashCancelWithNoFlow(t *testing.T) {
	m, _ := newTestManager(t, nil)
	resp := m.Handle(context.Background(), "u1", "/cancel", "discord")
	if !strings.Contains(resp.Message, "Nothing to cancel") {
		t.Fatalf("got %q", resp.Message)
	}
}

func TestHandleUnknownSlashCommandFallsThroughToParsing(t *testing.T) {
	m, _ := newTestManager(t, nil)
	resp := m.Handle(context.Background(), "u1", "/bogus create task buy milk", "discord")
	if !strings.Contains(strings.ToLower(resp.Message), "task") {
		t.Fatalf("expected fallthrough to a task intent, got %q", resp.Message)
	}
}

func TestHandleActiveFlowShortCircuitsToFlowManager(t *testing.T) {
	m, _ := newTestManager(t, nil)
	ctx := context.Background()

	started := m.Handle(ctx, "u1", "/checkin", "discord")
	if started.Completed {
		t.Fatalf("expected pending response starting checkin, got %+v", started)
	}

	answered := m.Handle(ctx, "u1", "4", "discord")
	if !answered.Completed {
		t.Fatalf("expected check-in to complete after its one question, got %+v", answered)
	}
}

func TestHandleActiveFlowClearedByTaskKeyword(t *testing.T) {
	m, _ := newTestManager(t, nil)
	ctx := context.Background()

	m.Handle(ctx, "u1", "/checkin", "discord")
	resp := m.Handle(ctx, "u1", "create task buy milk", "discord")
	if strings.Contains(strings.ToLower(resp.Message), "mood") {
		t.Fatalf("expected flow to be cleared, got %+v", resp)
	}
	if m.Flow.HasActiveFlow("u1") {
		t.Fatal("expected flow to be cleared by task keyword")
	}
}

func TestHandleLowConfidenceFallsBackToAI(t *testing.T) {
	ai := &stubAI{reply: "Here's a thoughtful, sufficiently long reply from the AI."}
	m, _ := newTestManager(t, ai)
	resp := m.Handle(context.Background(), "u1", "tell me something interesting please", "discord")
	if ai.calls != 1 {
		t.Fatalf("expected one AI call, got %d", ai.calls)
	}
	if resp.Message != ai.reply {
		t.Fatalf("got %q, want AI reply verbatim", resp.Message)
	}
}

func TestHandleLowConfidenceAIErrorFallsBackToHelp(t *testing.T) {
	ai := &stubAI{err: errors.New("boom")}
	m, _ := newTestManager(t, ai)
	resp := m.Handle(context.Background(), "u1", "tell me something interesting please", "discord")
	if !strings.Contains(resp.Message, "Here's what I can do") {
		t.Fatalf("got %q", resp.Message)
	}
}

func TestEnhanceRejectsLeakyAndTooShortReplies(t *testing.T) {
	m, _ := newTestManager(t, &stubAI{})
	m.Cfg.AIEnhanceEnabled = true

	m.AI = &stubAI{reply: "hi"}
	if _, ok := m.enhance(context.Background(), "original message here"); ok {
		t.Fatal("expected too-short reply to be rejected")
	}

	m.AI = &stubAI{reply: "System response: here is the internal payload leaking out"}
	if _, ok := m.enhance(context.Background(), "original message here"); ok {
		t.Fatal("expected leaky reply to be rejected")
	}
}

func TestEnhanceTruncatesOverLengthReplies(t *testing.T) {
	long := strings.Repeat("This is a filler sentence. ", 50)
	m, _ := newTestManager(t, &stubAI{reply: long})
	m.Cfg.AIEnhanceEnabled = true
	m.Cfg.AIMaxResponseLength = 100

	text, ok := m.enhance(context.Background(), "original")
	if !ok {
		t.Fatal("expected enhancement to succeed")
	}
	if len(text) > 100 {
		t.Fatalf("expected truncated text <= 100 chars, got %d", len(text))
	}
}

func TestHandleRecoversFromPanic(t *testing.T) {
	m, _ := newTestManager(t, nil)
	m.Dispatcher = handlers.NewDispatcher(panickingHandler{})
	resp := m.Handle(context.Background(), "u1", "create task buy milk", "discord")
	if !strings.Contains(resp.Message, "trouble processing") {
		t.Fatalf("got %q", resp.Message)
	}
}

type panickingHandler struct{}

func (panickingHandler) CanHandle(intent string) bool { return true }
func (panickingHandler) Handle(ctx context.Context, userID string, parsed commands.ParsedCommand) reply.InteractionResponse {
	panic("boom")
}
func (panickingHandler) Help() string       { return "" }
func (panickingHandler) Examples() []string { return nil }
