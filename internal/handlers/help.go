package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/hattiebot/hattiebot/internal/commands"
	"github.com/hattiebot/hattiebot/internal/reply"
)

// HelpHandler answers help/examples/status and the not-yet-store-backed "show messages" intent.
type HelpHandler struct {
	Handlers []Handler
}

func NewHelpHandler(hs ...Handler) *HelpHandler { return &HelpHandler{Handlers: hs} }

var helpIntents = map[string]bool{"help": true, "examples": true, "status": true, "show_messages": true}

func (h *HelpHandler) CanHandle(intent string) bool { return helpIntents[intent] }

func (h *HelpHandler) Handle(ctx context.Context, userID string, parsed commands.ParsedCommand) reply.InteractionResponse {
	switch parsed.Intent {
	case "help":
		return h.help()
	case "examples":
		return h.examples()
	case "status":
		return reply.Done("I'm up and listening.")
	case "show_messages":
		return reply.Done("Message history isn't available from here yet.")
	}
	return reply.Done("I don't know how to handle that.")
}

func (h *HelpHandler) help() reply.InteractionResponse {
	var b strings.Builder
	b.WriteString("Here's what I can do:\n")
	for _, cmd := range commands.CommandTable {
		fmt.Fprintf(&b, "/%s - %s\n", cmd.Name, cmd.Description)
	}
	return reply.Done(strings.TrimRight(b.String(), "\n"))
}

func (h *HelpHandler) examples() reply.InteractionResponse {
	var all []string
	for _, sub := range h.Handlers {
		all = append(all, sub.Examples()...)
	}
	if len(all) == 0 {
		return reply.Done("I don't have any examples handy right now.")
	}
	return reply.Done("Try things like:\n" + strings.Join(all, "\n"))
}

func (h *HelpHandler) Help() string { return "help, examples, status" }

func (h *HelpHandler) Examples() []string { return []string{"help", "examples"} }
