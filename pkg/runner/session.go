// Package runner orchestrates a browser-driven test run: it threads the
// decision oracle's conversation, executes the proposed actions, and keeps
// the verification agent and observers informed.
package runner

import (
	"strings"
	"sync"

	"github.com/entrhq/proctor/pkg/types"
)

// Session is the mutable state of one run, shared between the orchestration
// loop and external control surfaces like the socket server.
type Session struct {
	mu                 sync.Mutex
	status             types.RunStatus
	previousResponseID string
	lastCallID         string
	tabFollowed        bool
}

// NewSession creates a running session.
func NewSession() *Session {
	return &Session{status: types.StatusRunning}
}

// Status returns the session's current run status.
func (s *Session) Status() types.RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SetStatus updates the run status.
func (s *Session) SetStatus(status types.RunStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// Override applies an external verdict. Only pass and fail are accepted,
// case-insensitively; anything else is ignored and reported false.
func (s *Session) Override(status string) bool {
	switch strings.ToLower(status) {
	case "pass":
		s.SetStatus(types.StatusPass)
		return true
	case "fail":
		s.SetStatus(types.StatusFail)
		return true
	}
	return false
}

// SetPreviousResponseID records the latest conversation handle so a user
// message can resume mid-conversation.
func (s *Session) SetPreviousResponseID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previousResponseID = id
}

// SetLastCallID records the call id of the action round in flight.
func (s *Session) SetLastCallID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCallID = id
}

// LastRound returns the most recent conversation handle and call id.
func (s *Session) LastRound() (responseID, callID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.previousResponseID, s.lastCallID
}

// FollowTabOnce reports whether the loop may switch to a newly opened tab.
// The first call returns true; every later call returns false, so a run
// follows at most one tab.
func (s *Session) FollowTabOnce() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tabFollowed {
		return false
	}
	s.tabFollowed = true
	return true
}
