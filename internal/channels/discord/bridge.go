package discord

import (
	"context"
	"time"

	"github.com/hattiebot/hattiebot/internal/reply"
)

// commandKind tags the command-queue union described in spec §4.6.1.
type commandKind int

const (
	cmdSend commandKind = iota
	cmdStop
)

// command is one entry on the core->worker command queue. result is buffered 1 so the worker
// never blocks handing back the send outcome, and the caller's wait is just a receive with a
// timeout; queue draining itself is what preserves the submission-order guarantee, so a
// separate result-queue type isn't needed on top of per-command result channels.
type command struct {
	kind      commandKind
	recipient string
	resp      reply.InteractionResponse
	result    chan bool
}

// bridge is the bounded FIFO command queue connecting the core to the single-threaded provider
// worker; results come back on each command's own result channel.
type bridge struct {
	commands chan command
}

func newBridge(capacity int) *bridge {
	if capacity <= 0 {
		capacity = 64
	}
	return &bridge{commands: make(chan command, capacity)}
}

// enqueueSend submits a send and blocks the caller (not the worker) until the worker reports a
// result or timeout elapses; on timeout the enqueue is not rolled back, matching the spec.
func (b *bridge) enqueueSend(ctx context.Context, recipient string, resp reply.InteractionResponse, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cmd := command{kind: cmdSend, recipient: recipient, resp: resp, result: make(chan bool, 1)}
	select {
	case b.commands <- cmd:
	case <-ctx.Done():
		return false
	case <-time.After(timeout):
		return false
	}
	select {
	case ok := <-cmd.result:
		return ok
	case <-time.After(timeout):
		return false
	}
}

// enqueueStop submits the terminal Stop command; the worker drains it, finishes its current
// tick, and exits its loop.
func (b *bridge) enqueueStop() {
	select {
	case b.commands <- command{kind: cmdStop}:
	default:
	}
}

// drain pulls every command currently queued without blocking, used by the worker's per-tick
// cooperative drain (spec: "drains all pending commands (non-blocking), then yields to the
// provider for a short interval").
func (b *bridge) drain() []command {
	var out []command
	for {
		select {
		case c := <-b.commands:
			out = append(out, c)
			if c.kind == cmdStop {
				return out
			}
		default:
			return out
		}
	}
}
