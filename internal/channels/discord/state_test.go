package discord

import (
	"testing"
	"time"
)

func TestTransitionLogsOnceAndStampsTime(t *testing.T) {
	s := NewStatus()
	if s.State() != StateUninitialized {
		t.Fatalf("got %v, want UNINITIALIZED", s.State())
	}
	s.Transition(StateInitializing)
	if s.State() != StateInitializing {
		t.Fatalf("got %v, want INITIALIZING", s.State())
	}
	before := s.lastReconnectTime
	time.Sleep(time.Millisecond)
	s.Transition(StateInitializing) // no-op, same state
	if !s.lastReconnectTime.After(before) {
		t.Fatal("expected last_reconnect_time to be stamped even on a same-state transition")
	}
}

func TestMarkReadySetsConnectedAndFlag(t *testing.T) {
	s := NewStatus()
	s.MarkReady()
	if s.State() != StateConnected {
		t.Fatalf("got %v, want CONNECTED", s.State())
	}
	_, _, onReady := s.Flags()
	if !onReady {
		t.Fatal("expected onReadyFired to be true")
	}
}

func TestShouldAttemptReconnectionGates(t *testing.T) {
	s := NewStatus()
	if !s.ShouldAttemptReconnection(10, time.Minute, true) {
		t.Fatal("fresh status with 0 attempts should allow reconnection")
	}
	s.RecordReconnectAttempt()
	if s.ShouldAttemptReconnection(10, time.Minute, true) {
		t.Fatal("expected cooldown to block an immediate second attempt")
	}
	if s.ShouldAttemptReconnection(1, 0, true) {
		t.Fatal("expected attempts >= max to block reconnection")
	}
	if s.ShouldAttemptReconnection(10, 0, false) {
		t.Fatal("expected a failing fresh health check to block reconnection")
	}
}

func TestRecordHealthCheckMarksHighLatency(t *testing.T) {
	s := NewStatus()
	s.RecordHealthCheck(true, 1500*time.Millisecond)
	ok, _, highLatency := s.CachedHealth()
	if !ok || !highLatency {
		t.Fatalf("ok=%v highLatency=%v, want true,true", ok, highLatency)
	}
	if s.State() != StateConnected {
		t.Fatalf("got %v, want CONNECTED even with high latency", s.State())
	}
}
