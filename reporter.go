package conductor

import (
	"github.com/ethereum/go-ethereum/log"

	"github.com/fixturelab/conductor/runner"
)

// SummaryReporter is responsible for reporting the aggregated run summary.
type SummaryReporter interface {
	ReportSummary(result *runner.Result)
}

// ConsoleSummaryReporter implements the SummaryReporter interface.
type ConsoleSummaryReporter struct {
	logger log.Logger
}

// NewConsoleSummaryReporter creates a new ConsoleSummaryReporter.
func NewConsoleSummaryReporter(logger log.Logger) *ConsoleSummaryReporter {
	return &ConsoleSummaryReporter{logger: logger}
}

// ReportSummary logs the aggregated summary and each failure line.
func (r *ConsoleSummaryReporter) ReportSummary(result *runner.Result) {
	if !result.Reports.HasFailures() {
		r.logger.Info(result.Summary, "run_id", result.RunID)
		return
	}

	r.logger.Warn("Suite run finished with failures",
		"run_id", result.RunID,
		"completed", result.Reports.Completed(),
		"setup_failures", result.Reports.FailedSetupCount(),
		"test_failures", result.Reports.FailedTestCount(),
		"teardown_failures", result.Reports.FailedTeardownCount())

	for i, f := range result.Reports.FailedSetups() {
		r.logger.Warn(f.Format(i + 1))
	}
	for i, f := range result.Reports.FailedTests() {
		r.logger.Warn(f.Format(i + 1))
	}
	for i, f := range result.Reports.FailedTeardowns() {
		r.logger.Warn(f.Format(i + 1))
	}
}
