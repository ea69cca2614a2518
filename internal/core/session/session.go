// Package session tracks interactive filing sessions between the preview
// being shown and the report being filed, cancelled, or timing out.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mudlet/bugbot/internal/core/pipeline"
)

// State is the lifecycle state of a filing session.
type State string

const (
	// StatePreviewReady means the preview is displayed and awaiting a decision.
	StatePreviewReady State = "preview_ready"
	// StateFiled means the report was filed on the tracker.
	StateFiled State = "filed"
	// StateCancelled means the user dismissed the preview.
	StateCancelled State = "cancelled"
	// StateTimedOut means the preview expired without a decision.
	StateTimedOut State = "timed_out"
)

// DefaultTimeout is how long a preview stays actionable.
const DefaultTimeout = 13 * time.Minute

// Decision is the outcome of a file request against a session.
type Decision int

const (
	// DecisionProceed means the report should be filed now.
	DecisionProceed Decision = iota
	// DecisionNeedsConfirm means a likely duplicate was found and the user
	// must press again to confirm.
	DecisionNeedsConfirm
	// DecisionRejected means the session is no longer actionable.
	DecisionRejected
)

// Session is one pending filing interaction. All methods are safe for
// concurrent use.
type Session struct {
	// ID uniquely identifies the session across interaction callbacks.
	ID string
	// UserID is the user who started the session. Only they may act on it.
	UserID string
	// ChannelID is where the preview was posted.
	ChannelID string
	// Preview is the assembled report preview.
	Preview *pipeline.Preview

	mu        sync.Mutex
	state     State
	confirmed bool
	deadline  time.Time
}

// New creates a session in the preview-ready state.
func New(userID, channelID string, preview *pipeline.Preview, timeout time.Duration) *Session {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		ChannelID: channelID,
		Preview:   preview,
		state:     StatePreviewReady,
		deadline:  time.Now().Add(timeout),
	}
}

// State returns the current state, transitioning to timed out if the
// deadline has passed.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()
	return s.state
}

// RequestFile handles a press of the file button. When the preview flags a
// likely duplicate the first press asks for confirmation and only the second
// press proceeds.
func (s *Session) RequestFile() Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()

	if s.state != StatePreviewReady {
		return DecisionRejected
	}
	if s.Preview != nil && s.Preview.RequiresConfirmation && !s.confirmed {
		s.confirmed = true
		return DecisionNeedsConfirm
	}
	s.state = StateFiled
	return DecisionProceed
}

// Cancel dismisses the session. Cancelling an already finished session is a
// no-op.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()
	if s.state == StatePreviewReady {
		s.state = StateCancelled
	}
}

// Expired reports whether the session deadline has passed.
func (s *Session) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Now().After(s.deadline)
}

func (s *Session) expireLocked() {
	if s.state == StatePreviewReady && time.Now().After(s.deadline) {
		s.state = StateTimedOut
	}
}
