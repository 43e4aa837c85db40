package runner

import (
	"fmt"
	"strings"
	"time"

	"github.com/fixturelab/conductor/reporting"
	"github.com/fixturelab/conductor/types"
	"github.com/fixturelab/conductor/ui"
)

// Result captures the full outcome of one RunAll invocation.
type Result struct {
	RunID    string
	Fixtures []*types.FixtureEntry
	Reports  *reporting.Aggregator
	Status   types.Status
	Duration time.Duration
	Summary  string
}

// FixtureStats summarizes one fixture's tests for display.
type FixtureStats struct {
	Total  int
	Passed int
	Failed int
}

// Stats tallies the per-test outcomes of a fixture entry.
func Stats(fx *types.FixtureEntry) FixtureStats {
	var s FixtureStats
	for _, test := range fx.Tests {
		s.Total++
		switch {
		case test.State.Passed():
			s.Passed++
		case test.State.Failed():
			s.Failed++
		}
	}
	return s
}

// formatDuration formats the duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// String returns a formatted string representation of the run results
func (r *Result) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Suite Run Results (%s):\n", formatDuration(r.Duration)))
	b.WriteString(fmt.Sprintf("Run ID: %s, Status: %s\n", r.RunID, r.Status))

	for _, fx := range r.Fixtures {
		stats := Stats(fx)
		b.WriteString(fmt.Sprintf("\nFixture: %s\n", fx.Name()))
		b.WriteString(fmt.Sprintf("%sStatus: %s\n", ui.TreeBranch, fx.State.Status()))
		b.WriteString(fmt.Sprintf("%sTests: %d passed, %d failed\n", ui.TreeBranch, stats.Passed, stats.Failed))
		for i, test := range fx.Tests {
			b.WriteString(fmt.Sprintf("%sTest: %s [status=%s, setup=%s, teardown=%s]\n",
				ui.Connector(i, len(fx.Tests)), test.Name(), test.State.Status(), test.SetupState.Status(), test.TeardownState.Status()))
			for _, rec := range test.Logs {
				b.WriteString(fmt.Sprintf("%s    %s %s\n", ui.ChildIndent(i, len(fx.Tests)), rec.Level, rec.Message))
			}
		}
	}

	if r.Summary != "" {
		b.WriteString("\n")
		b.WriteString(r.Summary)
		b.WriteString("\n")
	}
	return b.String()
}
