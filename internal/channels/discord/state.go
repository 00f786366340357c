package discord

import (
	"log"
	"sync"
	"time"
)

// ConnectionState is the adapter's connection lifecycle state.
type ConnectionState string

const (
	StateUninitialized   ConnectionState = "UNINITIALIZED"
	StateInitializing    ConnectionState = "INITIALIZING"
	StateConnected       ConnectionState = "CONNECTED"
	StateDisconnected    ConnectionState = "DISCONNECTED"
	StateDNSFailure      ConnectionState = "DNS_FAILURE"
	StateNetworkFailure  ConnectionState = "NETWORK_FAILURE"
	StateAuthFailure     ConnectionState = "AUTH_FAILURE"
	StateRateLimited     ConnectionState = "RATE_LIMITED"
	StateGatewayError    ConnectionState = "GATEWAY_ERROR"
	StateUnknownError    ConnectionState = "UNKNOWN_ERROR"
	StateStopped         ConnectionState = "STOPPED"
)

// ErrorInfo is a structured diagnostic for the latest DNS/network/gateway failure.
type ErrorInfo struct {
	Kind      string    `json:"kind"` // "dns", "network", "gateway", "auth"
	Detail    string    `json:"detail"`
	Server    string    `json:"server,omitempty"` // resolver or endpoint that produced/resolved the failure
	Recorded  time.Time `json:"recorded"`
}

// Status tracks the connection state machine's fields from the spec's data model: the current
// state, reconnect bookkeeping, health-check cache, and the three one-shot readiness flags.
type Status struct {
	mu sync.Mutex

	state             ConnectionState
	reconnectAttempts int
	lastReconnectTime time.Time
	lastHealthCheck   time.Time
	lastHealthOK      bool
	highLatency       bool
	errorInfo         ErrorInfo

	eventsRegistered  bool
	commandsRegistered bool
	onReadyFired      bool
}

// NewStatus builds a Status in the initial UNINITIALIZED state.
func NewStatus() *Status {
	return &Status{state: StateUninitialized}
}

// Transition moves to next, logging exactly once when the state actually changes, and always
// stamping last_reconnect_time per the spec's transition table.
func (s *Status) Transition(next ConnectionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.state
	s.lastReconnectTime = time.Now()
	if prev == next {
		return
	}
	s.state = next
	log.Printf("discord: connection state %s -> %s", prev, next)
}

// State returns the current connection state.
func (s *Status) State() ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RecordError stores the latest structured diagnostic and, for DNS/network/gateway/auth
// failures, also transitions the state.
func (s *Status) RecordError(kind ConnectionState, info ErrorInfo) {
	s.mu.Lock()
	info.Recorded = time.Now()
	s.errorInfo = info
	s.mu.Unlock()
	s.Transition(kind)
}

// LastError returns the most recently recorded diagnostic.
func (s *Status) LastError() ErrorInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errorInfo
}

// MarkReady records the provider's ready event: sets CONNECTED and the one-shot flag.
func (s *Status) MarkReady() {
	s.mu.Lock()
	s.onReadyFired = true
	s.mu.Unlock()
	s.Transition(StateConnected)
}

func (s *Status) SetEventsRegistered(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventsRegistered = v
}

func (s *Status) SetCommandsRegistered(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commandsRegistered = v
}

func (s *Status) Flags() (eventsRegistered, commandsRegistered, onReadyFired bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eventsRegistered, s.commandsRegistered, s.onReadyFired
}

// RecordHealthCheck caches a health-check result along with whether latency exceeded 1s
// (CONNECTED stays CONNECTED but with high_latency noted in diagnostics, per the spec table).
func (s *Status) RecordHealthCheck(ok bool, latency time.Duration) {
	s.mu.Lock()
	s.lastHealthCheck = time.Now()
	s.lastHealthOK = ok
	s.highLatency = latency > time.Second
	s.mu.Unlock()
	if ok {
		s.Transition(StateConnected)
	}
}

// CachedHealth returns the last recorded health result and when it was taken.
func (s *Status) CachedHealth() (ok bool, at time.Time, highLatency bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastHealthOK, s.lastHealthCheck, s.highLatency
}

// RecordReconnectAttempt bumps the attempt counter and stamps the time.
func (s *Status) RecordReconnectAttempt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnectAttempts++
	s.lastReconnectTime = time.Now()
}

// ShouldAttemptReconnection implements should_attempt_reconnection(): attempts remain under the
// cap, the cooldown since the last attempt has elapsed, and a fresh health check (passed in by
// the caller, since it may require I/O) currently passes.
func (s *Status) ShouldAttemptReconnection(maxAttempts int, cooldown time.Duration, freshHealthOK bool) bool {
	s.mu.Lock()
	attempts := s.reconnectAttempts
	last := s.lastReconnectTime
	s.mu.Unlock()
	if attempts >= maxAttempts {
		return false
	}
	if time.Since(last) < cooldown {
		return false
	}
	return freshHealthOK
}
