package conductor

import (
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/fixturelab/conductor/reporting"
	"github.com/fixturelab/conductor/runner"
	"github.com/fixturelab/conductor/types"
)

// ResultFormatter is responsible for formatting and displaying run results.
type ResultFormatter interface {
	FormatResults(result *runner.Result) error
}

// ConsoleResultFormatter implements the ResultFormatter interface.
type ConsoleResultFormatter struct {
	logger log.Logger
	out    io.Writer
}

// NewConsoleResultFormatter creates a new ConsoleResultFormatter.
func NewConsoleResultFormatter(logger log.Logger) *ConsoleResultFormatter {
	return &ConsoleResultFormatter{
		logger: logger,
		out:    os.Stdout,
	}
}

// FormatResults formats and displays the run results.
func (f *ConsoleResultFormatter) FormatResults(result *runner.Result) error {
	f.logger.Info("Printing results...")
	t := table.NewWriter()
	t.SetOutputMirror(f.out)
	t.SetTitle(fmt.Sprintf("Suite Run Results (%s)", fmt.Sprintf("%.1fs", result.Duration.Seconds())))

	// Configure columns
	t.AppendHeader(table.Row{
		"Type", "ID", "Tests", "Passed", "Failed", "Setup", "Teardown", "Status", "Error",
	})

	// Set column configurations for better readability
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Type", AutoMerge: true},
		{Name: "ID", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Tests", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Error", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	failures := indexFailures(result.Reports)

	var totalTests, totalPassed, totalFailed int

	for _, fx := range result.Fixtures {
		stats := runner.Stats(fx)
		totalTests += stats.Total
		totalPassed += stats.Passed
		totalFailed += stats.Failed

		// Fixture row - show test counts but no "1" in Tests column
		t.AppendRow(table.Row{
			"Fixture",
			fx.Name(),
			"-",
			stats.Passed,
			stats.Failed,
			"",
			"",
			getResultString(fx.State.Status()),
			"",
		})

		for i, test := range fx.Tests {
			prefix := "├─"
			if i == len(fx.Tests)-1 {
				prefix = "└─"
			}

			t.AppendRow(table.Row{
				"Test",
				fmt.Sprintf("%s %s", prefix, test.Name()),
				"1",
				boolToInt(test.State.Passed()),
				boolToInt(test.State.Failed()),
				getResultString(test.SetupState.Status()),
				getResultString(test.TeardownState.Status()),
				getResultString(test.State.Status()),
				failures[failureKey(fx.Name(), test.Name())],
			})
		}

		t.AppendSeparator()
	}

	// Update the table style setting based on result status
	if result.Status == types.StatusPass {
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	} else {
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	// Add summary footer
	t.AppendFooter(table.Row{
		"TOTAL",
		"",
		totalTests,
		totalPassed,
		totalFailed,
		"",
		"",
		getResultString(result.Status),
		"",
	})

	t.Render()

	fmt.Fprintln(f.out, result.String())

	return nil
}

// indexFailures maps fixture/test pairs to their first reported failure
// message so the table can show one error per test row.
func indexFailures(reports *reporting.Aggregator) map[string]string {
	idx := make(map[string]string)
	add := func(failures []reporting.Failure) {
		for _, f := range failures {
			key := failureKey(f.Fixture, f.Test)
			if _, ok := idx[key]; !ok {
				idx[key] = f.Message
			}
		}
	}
	add(reports.FailedSetups())
	add(reports.FailedTests())
	add(reports.FailedTeardowns())
	return idx
}

func failureKey(fixture, test string) string {
	return fixture + "/" + test
}
