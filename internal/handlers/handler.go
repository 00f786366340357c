// Package handlers implements the single-turn intent handlers (C3): tasks, profile,
// schedule, analytics, and help. Handlers are pure with respect to the channel — they read
// and write the external task/profile/schedule stores but never touch channel-adapter state,
// and they surface domain errors as ordinary InteractionResponse messages, never as errors.
package handlers

import (
	"context"

	"github.com/hattiebot/hattiebot/internal/commands"
	"github.com/hattiebot/hattiebot/internal/reply"
)

// Handler is implemented by each per-domain intent handler.
type Handler interface {
	CanHandle(intent string) bool
	Handle(ctx context.Context, userID string, parsed commands.ParsedCommand) reply.InteractionResponse
	Help() string
	Examples() []string
}

// Dispatcher holds the ordered set of handlers and routes by intent.
type Dispatcher struct {
	handlers []Handler
}

// NewDispatcher builds a Dispatcher over the given handlers, tried in order.
func NewDispatcher(hs ...Handler) *Dispatcher {
	return &Dispatcher{handlers: hs}
}

// Dispatch finds the first handler that claims intent and calls it. Returns ok=false if no
// handler claims the intent.
func (d *Dispatcher) Dispatch(ctx context.Context, userID string, parsed commands.ParsedCommand) (reply.InteractionResponse, bool) {
	for _, h := range d.handlers {
		if h.CanHandle(parsed.Intent) {
			return h.Handle(ctx, userID, parsed), true
		}
	}
	return reply.InteractionResponse{}, false
}
