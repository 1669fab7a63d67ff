package session

import (
	"sync"

	"postharvest/pkg/logger"
)

// State is the session's standing with the source. It is never persisted;
// every run derives it again from the page.
type State int

const (
	Unauthenticated State = iota
	CheckpointPending
	Ready
	Degraded
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case CheckpointPending:
		return "checkpoint-pending"
	case Ready:
		return "ready"
	case Degraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Tracker holds the current state and logs every transition
type Tracker struct {
	mu     sync.RWMutex
	state  State
	logger logger.Logger
	// OnChange, if set, is called after every transition
	OnChange func(from, to State, reason string)
}

// NewTracker creates a tracker in the Unauthenticated state
func NewTracker(log logger.Logger) *Tracker {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Tracker{state: Unauthenticated, logger: log}
}

// State returns the current state
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Set moves to state to. Setting the current state again is a no-op.
func (t *Tracker) Set(to State, reason string) {
	t.mu.Lock()
	from := t.state
	if from == to {
		t.mu.Unlock()
		return
	}
	t.state = to
	t.mu.Unlock()

	logger.LogStateTransition(t.logger, from.String(), to.String(), reason)
	if t.OnChange != nil {
		t.OnChange(from, to, reason)
	}
}
