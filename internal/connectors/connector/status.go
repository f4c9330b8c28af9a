package connector

import (
	"strings"
	"sync"
	"time"
)

type State string

const (
	StateDisconnected   State = "disconnected"
	StateAuthenticating State = "authenticating"
	StateConnected      State = "connected"
	StateError          State = "error"
)

// Status is the observable lifecycle state of one connector. Message is set
// only for StateError.
type Status struct {
	State     State     `json:"state"`
	Message   string    `json:"message,omitempty"`
	Retryable bool      `json:"retryable,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
}

// StatusMachine records lifecycle transitions. It is advisory: no transition
// is rejected based on the previous state, so a retry may re-enter
// StateAuthenticating from StateError or StateConnected.
type StatusMachine struct {
	now      func() time.Time
	onChange func(prev, next Status)

	mu      sync.RWMutex
	current Status
}

func NewStatusMachine(now func() time.Time, onChange func(prev, next Status)) *StatusMachine {
	if now == nil {
		now = time.Now
	}
	return &StatusMachine{
		now:      now,
		onChange: onChange,
		current:  Status{State: StateDisconnected, ChangedAt: now()},
	}
}

// Set records state. For StateError an empty message is replaced with a
// generic one; for every other state the message is dropped.
func (m *StatusMachine) Set(state State, message string) {
	next := Status{State: state}
	if state == StateError {
		next.Message = strings.TrimSpace(message)
		if next.Message == "" {
			next.Message = "unknown error"
		}
		next.Retryable = true
	}
	m.record(next)
}

// Fail records StateError carrying err's message.
func (m *StatusMachine) Fail(err error) {
	msg := "unknown error"
	if err != nil {
		if s := strings.TrimSpace(err.Error()); s != "" {
			msg = s
		}
	}
	m.record(Status{State: StateError, Message: msg, Retryable: IsRetryable(err)})
}

func (m *StatusMachine) Current() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

func (m *StatusMachine) record(next Status) {
	next.ChangedAt = m.now()

	m.mu.Lock()
	prev := m.current
	m.current = next
	m.mu.Unlock()

	if m.onChange != nil {
		m.onChange(prev, next)
	}
}
