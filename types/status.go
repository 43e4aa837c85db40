// Package types contains shared types used across the conductor test engine
package types

// Status represents the possible states of a fixture, test, setup or teardown
type Status string

// Status enum values
const (
	StatusNotRun     Status = "not_run"
	StatusInProgress Status = "in_progress"
	StatusPass       Status = "pass"
	StatusFail       Status = "fail"
)

// String implements the Stringer interface for Status
func (s Status) String() string {
	return string(s)
}

// State is the per-entry lifecycle state machine. Transitions follow
// NotRun -> InProgress -> {Pass, Fail}; Pass and Fail are terminal and
// further transitions are ignored for the remainder of the run. The zero
// value is a valid NotRun state.
type State struct {
	current Status
}

// Status returns the current state.
func (s *State) Status() Status {
	if s.current == "" {
		return StatusNotRun
	}
	return s.current
}

// Begin moves the state to InProgress. Valid only from NotRun.
func (s *State) Begin() {
	if s.Status() == StatusNotRun {
		s.current = StatusInProgress
	}
}

// Pass marks the state as passed unless it is already terminal.
func (s *State) Pass() {
	if !s.Terminal() {
		s.current = StatusPass
	}
}

// Fail marks the state as failed unless it is already terminal.
func (s *State) Fail() {
	if !s.Terminal() {
		s.current = StatusFail
	}
}

// Terminal returns true once the state has reached Pass or Fail.
func (s *State) Terminal() bool {
	return s.current == StatusPass || s.current == StatusFail
}

// Passed returns true if the state is Pass.
func (s *State) Passed() bool {
	return s.current == StatusPass
}

// Failed returns true if the state is Fail.
func (s *State) Failed() bool {
	return s.current == StatusFail
}
