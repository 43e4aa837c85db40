package types

import (
	"context"
	"fmt"
	"time"
)

// FixtureInstance is the executable object a fixture constructor produces.
// One instance is created per test; instances are never shared across tests.
type FixtureInstance = any

// StepFunc is the body of a setup, test or teardown step.
type StepFunc func(ctx context.Context, fixture FixtureInstance) error

// Step describes one executable step declared on a fixture. A suspending
// step does not complete immediately; the invoker starts it as a sub-task
// and waits for it to signal completion.
type Step struct {
	Name       string
	Suspending bool
	Fn         StepFunc
}

// FixtureDescriptor describes a fixture to the engine: its constructor,
// its tests, and its setup and teardown steps.
//
// Setups holds declaration order, derived-most first — the order a
// reflective scan of a type hierarchy would produce. SetupRunOrder
// reverses it so base steps execute before derived ones. Teardowns
// execute in declaration order, no reversal.
type FixtureDescriptor struct {
	Name      string
	New       func() (FixtureInstance, error)
	Setups    []Step
	Teardowns []Step
	Tests     []Step
}

// SetupRunOrder returns the setup steps in execution order.
func (d FixtureDescriptor) SetupRunOrder() []Step {
	out := make([]Step, len(d.Setups))
	for i, s := range d.Setups {
		out[len(d.Setups)-1-i] = s
	}
	return out
}

// Validate checks the descriptor is well formed. A descriptor that fails
// validation cannot produce an instance to run steps against, so the
// driver treats it as fatal for the whole run.
func (d FixtureDescriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("fixture descriptor has no name")
	}
	if d.New == nil {
		return fmt.Errorf("fixture %s has no constructor", d.Name)
	}
	for _, group := range [][]Step{d.Setups, d.Teardowns, d.Tests} {
		for _, s := range group {
			if s.Name == "" {
				return fmt.Errorf("fixture %s declares a step with no name", d.Name)
			}
			if s.Fn == nil {
				return fmt.Errorf("fixture %s: step %s has no function", d.Name, s.Name)
			}
		}
	}
	return nil
}

// LogRecord is one diagnostic log line captured while a test was running.
type LogRecord struct {
	Time    time.Time
	Level   string
	Message string
}

// TestEntry is the run-scoped record for one declared test. Entries are
// created fresh for every run and mutated only by the driver; the log
// router appends to Logs while the test is current.
type TestEntry struct {
	Step     Step
	Selected bool

	State         State
	SetupState    State
	TeardownState State

	Logs []LogRecord
}

// Name returns the test's declared name.
func (t *TestEntry) Name() string {
	return t.Step.Name
}

// FixtureEntry is the run-scoped record for one fixture and its tests.
type FixtureEntry struct {
	Descriptor FixtureDescriptor
	Tests      []*TestEntry
	Selected   bool
	State      State
	Logs       []LogRecord
}

// Name returns the fixture's declared name.
func (f *FixtureEntry) Name() string {
	return f.Descriptor.Name
}
