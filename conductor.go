package conductor

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"

	"github.com/fixturelab/conductor/exitcodes"
	"github.com/fixturelab/conductor/logging"
	"github.com/fixturelab/conductor/registry"
	"github.com/fixturelab/conductor/runner"
	"github.com/fixturelab/conductor/types"
)

// conductor implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &conductor{}

// conductor is the suite execution service. It owns the registry, the
// driver and the supporting components, and drives runs either once or
// periodically per the configured interval.
type conductor struct {
	ctx       context.Context
	config    *Config
	version   string
	registry  *registry.Registry
	driver    *runner.Driver
	scheduler Scheduler
	executor  SuiteExecutor
	formatter ResultFormatter
	reporter  SummaryReporter
	result    *runner.Result

	shutdownCallback func(error) // Callback to signal application shutdown
}

func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*conductor, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	config.Log.Debug("Creating conductor with config",
		"selectionFile", config.SelectionFile,
		"runInterval", config.RunInterval,
		"runOnce", config.RunOnce,
		"forceAll", config.ForceAll)

	reg, err := registry.NewRegistry(registry.Config{
		Log:           config.Log,
		SelectionFile: config.SelectionFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	for _, d := range config.Fixtures {
		if err := reg.Register(d); err != nil {
			return nil, fmt.Errorf("failed to register fixture %q: %w", d.Name, err)
		}
	}

	driver, err := runner.NewDriver(runner.Config{
		Registry: reg,
		Log:      config.Log,
		ForceAll: config.ForceAll,
		Router:   logging.NewRouter(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create suite driver: %w", err)
	}
	config.Log.Info("conductor.New: created registry and suite driver")

	return &conductor{
		ctx:              ctx,
		config:           config,
		version:          version,
		registry:         reg,
		driver:           driver,
		scheduler:        NewDefaultScheduler(config.RunInterval, config.RunOnce, config.Log),
		executor:         NewDefaultSuiteExecutor(driver, config.Log),
		formatter:        NewConsoleResultFormatter(config.Log),
		reporter:         NewConsoleSummaryReporter(config.Log),
		shutdownCallback: shutdownCallback,
	}, nil
}

// Start runs the suite, once or periodically at the configured interval.
// Start implements the cliapp.Lifecycle interface.
func (c *conductor) Start(ctx context.Context) error {
	// Set up panic recovery to ensure we exit with code 2 for runtime errors
	defer func() {
		if r := recover(); r != nil {
			c.config.Log.Error("Runtime error occurred", "error", r)
			os.Exit(exitcodes.RuntimeErr)
		}
	}()

	c.ctx = ctx

	if c.config.RunOnce {
		c.config.Log.Info("Starting conductor in run-once mode")
	} else {
		c.config.Log.Info("Starting conductor in continuous mode", "interval", c.config.RunInterval)
	}

	c.scheduler.RegisterCallback(func() error {
		return c.runSuite(ctx)
	})

	if err := c.scheduler.Start(ctx); err != nil {
		// Anything surfaced here is a runtime error, not a test failure
		c.config.Log.Error("Runtime error running suite", "error", err)
		return cli.Exit(err.Error(), exitcodes.RuntimeErr)
	}

	// If in run-once mode, trigger shutdown and return
	if c.config.RunOnce {
		c.config.Log.Info("Suite completed, exiting (run-once mode)")

		if c.result != nil && c.result.Status == types.StatusFail {
			c.config.Log.Warn("Run-once suite completed with failures, returning exit code 1")
			return NewTestFailureError(c.result.Summary)
		}

		// Only need to call this when we're in run-once mode and all tests passed
		go func() {
			c.shutdownCallback(nil)
		}()
		return nil
	}

	c.config.Log.Debug("conductor started successfully")
	return nil
}

// runSuite runs the whole suite once and processes the results.
func (c *conductor) runSuite(ctx context.Context) error {
	var progress *runner.ProgressReporter
	if c.config.ShowProgress {
		progress = runner.NewProgressReporter(c.driver, c.config.Log, c.config.ProgressInterval, c.registry.TestCount())
		progress.Start()
	}

	result, err := c.executor.RunSuite(ctx)
	if progress != nil {
		progress.Stop()
	}
	if err != nil {
		// This is a runtime error (not a test failure)
		c.config.Log.Error("Runtime error running suite", "error", err)
		return NewRuntimeError(err)
	}
	c.result = result

	if err := c.formatter.FormatResults(result); err != nil {
		c.config.Log.Error("Error formatting results", "error", err)
	}
	c.reporter.ReportSummary(result)

	c.config.Log.Info("Suite run completed", "run_id", result.RunID, "status", result.Status)
	return nil
}

// Stop stops the conductor service.
// Stop implements the cliapp.Lifecycle interface.
func (c *conductor) Stop(ctx context.Context) error {
	c.config.Log.Info("Stopping conductor")

	if c.scheduler.Stopped() {
		c.config.Log.Debug("Service already stopped, nothing to do")
		return nil
	}

	if err := c.scheduler.Stop(); err != nil {
		return err
	}

	c.config.Log.Info("conductor stopped successfully")
	return nil
}

// Stopped returns true if the conductor service is stopped.
// Stopped implements the cliapp.Lifecycle interface.
func (c *conductor) Stopped() bool {
	return c.scheduler.Stopped()
}

// Result returns the most recent run result, or nil before the first run
// completes.
func (c *conductor) Result() *runner.Result {
	return c.result
}

// WaitForShutdown blocks until all goroutines have terminated.
// This is useful in tests to ensure complete cleanup before moving to the next test.
func (c *conductor) WaitForShutdown(ctx context.Context) error {
	return c.scheduler.WaitForShutdown(ctx)
}
