package discord

import (
	"context"
	"testing"
	"time"

	"github.com/hattiebot/hattiebot/internal/reply"
)

func TestBridgeDrainPreservesSubmissionOrder(t *testing.T) {
	b := newBridge(8)
	go func() {
		b.commands <- command{kind: cmdSend, recipient: "a"}
		b.commands <- command{kind: cmdSend, recipient: "b"}
		b.commands <- command{kind: cmdSend, recipient: "c"}
	}()
	time.Sleep(10 * time.Millisecond)
	drained := b.drain()
	if len(drained) != 3 {
		t.Fatalf("got %d commands, want 3", len(drained))
	}
	for i, want := range []string{"a", "b", "c"} {
		if drained[i].recipient != want {
			t.Fatalf("position %d: got %q, want %q", i, drained[i].recipient, want)
		}
	}
}

func TestBridgeDrainStopsAtCmdStop(t *testing.T) {
	b := newBridge(8)
	b.commands <- command{kind: cmdSend, recipient: "a"}
	b.commands <- command{kind: cmdStop}
	b.commands <- command{kind: cmdSend, recipient: "never drained this tick"}
	drained := b.drain()
	if len(drained) != 2 {
		t.Fatalf("got %d commands, want 2 (stop short-circuits)", len(drained))
	}
	if drained[1].kind != cmdStop {
		t.Fatal("expected second entry to be the stop command")
	}
}

func TestEnqueueSendWaitsForResult(t *testing.T) {
	b := newBridge(8)
	go func() {
		cmd := <-b.commands
		cmd.result <- true
	}()
	ok := b.enqueueSend(context.Background(), "chan-1", reply.Done("hi"), time.Second)
	if !ok {
		t.Fatal("expected enqueueSend to observe the worker's true result")
	}
}

func TestEnqueueSendTimesOutWithoutAWorker(t *testing.T) {
	b := newBridge(8)
	ok := b.enqueueSend(context.Background(), "chan-1", reply.Done("hi"), 20*time.Millisecond)
	if ok {
		t.Fatal("expected timeout to report failure")
	}
}
