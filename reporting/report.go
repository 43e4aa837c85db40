// Package reporting accumulates structured failure reports for a test run
// and renders the end-of-run summary.
package reporting

import (
	"fmt"
	"strings"

	"github.com/acarl005/stripansi"
)

// FailureKind tags the step category a failure belongs to.
type FailureKind string

// FailureKind enum values
const (
	KindSetup    FailureKind = "setup"
	KindTest     FailureKind = "test"
	KindTeardown FailureKind = "teardown"
)

// Failure is an immutable record of one failed step. It is appended to
// the aggregator's matching list when recorded and never mutated
// afterward.
type Failure struct {
	Kind    FailureKind
	Fixture string
	Step    string // setup or teardown step name; empty for test failures
	Test    string
	Message string
}

// Format renders the failure as one summary line. Index is 1-based.
func (f Failure) Format(index int) string {
	switch f.Kind {
	case KindSetup:
		return fmt.Sprintf("%d. Fixture: [%s] Setup: [%s] on Test: [%s] Error: %s",
			index, f.Fixture, f.Step, f.Test, f.Message)
	case KindTeardown:
		return fmt.Sprintf("%d. Fixture: [%s] Teardown: [%s] on Test: [%s] Error: %s",
			index, f.Fixture, f.Step, f.Test, f.Message)
	default:
		return fmt.Sprintf("%d. Fixture: [%s] Test: [%s] Error: %s",
			index, f.Fixture, f.Test, f.Message)
	}
}

// Aggregator accumulates failure reports and run counters for a single
// run. It is mutated only by the driver goroutine; there is no concurrent
// writer, so no locking is needed.
type Aggregator struct {
	total     int
	completed int

	failedSetups    []Failure
	failedTests     []Failure
	failedTeardowns []Failure
}

// NewAggregator creates an aggregator for a run of total declared tests.
func NewAggregator(total int) *Aggregator {
	return &Aggregator{total: total}
}

// TestCompleted increments the completed counter. The driver calls this
// exactly once per processed test, regardless of outcome.
func (a *Aggregator) TestCompleted() {
	a.completed++
}

// RecordFailedSetup records a setup step failure.
func (a *Aggregator) RecordFailedSetup(fixture, step, test string, err error) {
	a.failedSetups = append(a.failedSetups, Failure{
		Kind:    KindSetup,
		Fixture: fixture,
		Step:    step,
		Test:    test,
		Message: cleanMessage(err),
	})
}

// RecordFailedTest records a test failure. This covers direct test-step
// failures as well as the synthetic reports for setup-failed tests and
// for passes invalidated by a later teardown failure.
func (a *Aggregator) RecordFailedTest(fixture, test string, err error) {
	a.failedTests = append(a.failedTests, Failure{
		Kind:    KindTest,
		Fixture: fixture,
		Test:    test,
		Message: cleanMessage(err),
	})
}

// RecordFailedTeardown records a teardown step failure.
func (a *Aggregator) RecordFailedTeardown(fixture, step, test string, err error) {
	a.failedTeardowns = append(a.failedTeardowns, Failure{
		Kind:    KindTeardown,
		Fixture: fixture,
		Step:    step,
		Test:    test,
		Message: cleanMessage(err),
	})
}

// Total returns the declared test count the run was created with.
func (a *Aggregator) Total() int { return a.total }

// Completed returns the number of processed tests.
func (a *Aggregator) Completed() int { return a.completed }

// FailedSetupCount returns the number of recorded setup failures.
func (a *Aggregator) FailedSetupCount() int { return len(a.failedSetups) }

// FailedTestCount returns the number of recorded test failures.
func (a *Aggregator) FailedTestCount() int { return len(a.failedTests) }

// FailedTeardownCount returns the number of recorded teardown failures.
func (a *Aggregator) FailedTeardownCount() int { return len(a.failedTeardowns) }

// FailedSetups returns a copy of the setup failure list, in record order.
func (a *Aggregator) FailedSetups() []Failure {
	return append([]Failure(nil), a.failedSetups...)
}

// FailedTests returns a copy of the test failure list, in record order.
func (a *Aggregator) FailedTests() []Failure {
	return append([]Failure(nil), a.failedTests...)
}

// FailedTeardowns returns a copy of the teardown failure list, in record
// order.
func (a *Aggregator) FailedTeardowns() []Failure {
	return append([]Failure(nil), a.failedTeardowns...)
}

// HasFailures returns true if any failure of any kind was recorded.
func (a *Aggregator) HasFailures() bool {
	return len(a.failedSetups) > 0 || len(a.failedTests) > 0 || len(a.failedTeardowns) > 0
}

// Summarize produces the run's textual summary: a single all-pass line
// when nothing failed, otherwise a totals line followed by one 1-indexed
// block per non-empty failure category.
func (a *Aggregator) Summarize() string {
	if !a.HasFailures() {
		return fmt.Sprintf("All %d Tests Passed", a.total)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d Tests Run; %d Setup Failures; %d Test Failures; %d Teardown Failures",
		a.total, len(a.failedSetups), len(a.failedTests), len(a.failedTeardowns))

	writeBlock := func(title string, failures []Failure) {
		if len(failures) == 0 {
			return
		}
		b.WriteString("\n" + title + ":")
		for i, f := range failures {
			b.WriteString("\n" + f.Format(i+1))
		}
	}
	writeBlock("Failed Setups", a.failedSetups)
	writeBlock("Failed Tests", a.failedTests)
	writeBlock("Failed Teardowns", a.failedTeardowns)

	return b.String()
}

// cleanMessage strips ANSI escapes from the error text so colored output
// from step code does not corrupt the summary.
func cleanMessage(err error) string {
	if err == nil {
		return ""
	}
	return stripansi.Strip(err.Error())
}
