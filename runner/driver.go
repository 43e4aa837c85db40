package runner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/fixturelab/conductor/logging"
	"github.com/fixturelab/conductor/metrics"
	"github.com/fixturelab/conductor/registry"
	"github.com/fixturelab/conductor/reporting"
	"github.com/fixturelab/conductor/types"
)

// Synthetic failure reasons recorded when a test never ran or had its
// pass invalidated.
var (
	errSetupFailed         = errors.New("setup failed")
	errTeardownInvalidated = errors.New("teardown failed after test passed")
)

// Driver is the top-level sequential scheduler. It owns all entry
// mutation during a run; fixtures and tests execute strictly one at a
// time in descriptor order. The driver is not reentrant: callers must
// not overlap RunAll invocations.
type Driver struct {
	registry *registry.Registry
	invoker  *Invoker
	router   *logging.Router
	log      log.Logger
	forceAll bool
	tracer   trace.Tracer

	runID string

	completed   atomic.Int64
	failedTests atomic.Int64
}

// Config holds configuration for creating a new driver
type Config struct {
	Registry *registry.Registry
	Log      log.Logger
	// ForceAll runs every fixture and test, ignoring selection flags.
	// Used for non-interactive batch execution.
	ForceAll bool
	Router   *logging.Router
}

// NewDriver creates a new suite driver instance
func NewDriver(cfg Config) (*Driver, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.Router == nil {
		cfg.Router = logging.NewRouter()
	}

	cfg.Log.Debug("NewDriver()", "forceAll", cfg.ForceAll, "fixtures", len(cfg.Registry.Fixtures()))

	return &Driver{
		registry: cfg.Registry,
		invoker:  NewInvoker(cfg.Log),
		router:   cfg.Router,
		log:      cfg.Log,
		forceAll: cfg.ForceAll,
		tracer:   otel.Tracer("suite driver"),
	}, nil
}

// Completed returns the number of tests processed so far in the current
// run. Safe to read while a run is in progress.
func (d *Driver) Completed() int64 {
	return d.completed.Load()
}

// FailedTests returns the number of test failures recorded so far in the
// current run. Safe to read while a run is in progress.
func (d *Driver) FailedTests() int64 {
	return d.failedTests.Load()
}

// RunAll executes every selected fixture and test in descriptor order
// and returns the aggregated result. Returning is the all-tests-finished
// signal. Step failures are captured in the result; the returned error
// is reserved for fatal conditions such as a fixture constructor
// failure, where no instance exists to run steps against.
func (d *Driver) RunAll(ctx context.Context) (*Result, error) {
	d.runID = uuid.New().String()
	defer func() { d.runID = "" }()

	d.completed.Store(0)
	d.failedTests.Store(0)

	start := time.Now()
	d.log.Debug("Running all tests", "run_id", d.runID, "force_all", d.forceAll)

	entries := d.registry.Entries()
	reports := reporting.NewAggregator(d.registry.TestCount())

	d.router.Install()
	defer d.router.Remove()

	result := &Result{
		RunID:    d.runID,
		Fixtures: entries,
		Reports:  reports,
	}

	for _, fx := range entries {
		if !fx.Selected && !d.forceAll {
			d.log.Debug("Skipping deselected fixture", "fixture", fx.Name())
			continue
		}
		if err := d.runFixture(ctx, fx, reports); err != nil {
			return nil, err
		}
	}

	result.Duration = time.Since(start)
	result.Status = determineRunStatus(entries)
	result.Summary = reports.Summarize()

	passed := reports.Completed() - reports.FailedTestCount()
	if passed < 0 {
		passed = 0
	}
	metrics.RecordRun(d.runID, result.Status, reports.Total(), passed,
		reports.FailedTestCount(), reports.FailedSetupCount(), reports.FailedTeardownCount(),
		result.Duration)

	d.log.Info("All tests finished",
		"run_id", d.runID,
		"status", result.Status,
		"completed", reports.Completed(),
		"failed", reports.FailedTestCount())
	return result, nil
}

// runFixture processes one fixture: every selected test in order, then
// the fixture's own state, derived from what its tests did.
func (d *Driver) runFixture(ctx context.Context, fx *types.FixtureEntry, reports *reporting.Aggregator) error {
	ctx, span := d.tracer.Start(ctx, fmt.Sprintf("fixture %s", fx.Name()))
	defer span.End()

	d.log.Info("Running fixture", "fixture", fx.Name())
	fx.State.Begin()
	d.router.SetCurrent(fx, nil)
	defer d.router.SetCurrent(nil, nil)

	for _, test := range fx.Tests {
		if !test.Selected && !d.forceAll {
			d.log.Debug("Skipping deselected test", "fixture", fx.Name(), "test", test.Name())
			continue
		}
		if err := d.runTest(ctx, fx, test, reports); err != nil {
			return err
		}
	}

	if fixtureFailed(fx) {
		fx.State.Fail()
	} else {
		fx.State.Pass()
	}
	d.log.Info("Fixture finished", "fixture", fx.Name(), "status", fx.State.Status())
	return nil
}

// runTest applies the setup/test/teardown protocol to a single test.
// Teardown steps always run, even when setup or the test step failed. A
// teardown failure after a passing test retroactively fails the test.
func (d *Driver) runTest(ctx context.Context, fx *types.FixtureEntry, test *types.TestEntry, reports *reporting.Aggregator) error {
	ctx, span := d.tracer.Start(ctx, fmt.Sprintf("test %s", test.Name()))
	defer span.End()

	d.log.Info("Running test", "fixture", fx.Name(), "test", test.Name())
	test.State.Begin()
	d.router.SetCurrent(fx, test)
	defer d.router.SetCurrent(fx, nil)

	// One fresh instance per test. A constructor failure leaves nothing
	// to run steps against and is fatal for the whole run.
	instance, err := fx.Descriptor.New()
	if err != nil {
		return fmt.Errorf("constructing fixture %s: %w", fx.Name(), err)
	}

	// Setup steps, base before derived. The first failure stops further
	// setup steps for this test.
	setups := fx.Descriptor.SetupRunOrder()
	if len(setups) == 0 {
		test.SetupState.Pass()
	} else {
		test.SetupState.Begin()
		for _, step := range setups {
			if err := d.invoker.Invoke(ctx, step, instance); err != nil {
				d.log.Error("Setup failed",
					"fixture", fx.Name(), "setup", step.Name, "test", test.Name(), "error", err)
				reports.RecordFailedSetup(fx.Name(), step.Name, test.Name(), err)
				test.SetupState.Fail()
				break
			}
		}
		test.SetupState.Pass() // no-op if a step already failed it
	}

	testPassed := false
	if test.SetupState.Passed() {
		if err := d.invoker.Invoke(ctx, test.Step, instance); err != nil {
			d.log.Error("Test failed", "fixture", fx.Name(), "test", test.Name(), "error", err)
			d.recordFailedTest(reports, fx, test, err)
			test.State.Fail()
		} else {
			// Final state assignment is deferred until teardown has run.
			testPassed = true
		}
	} else {
		// The test step never runs when setup failed, but the test is
		// still reported as failed with a synthetic reason.
		d.recordFailedTest(reports, fx, test, errSetupFailed)
		test.State.Fail()
	}

	// Teardown steps run unconditionally, in declaration order.
	teardowns := fx.Descriptor.Teardowns
	if len(teardowns) == 0 {
		test.TeardownState.Pass()
	} else {
		test.TeardownState.Begin()
		for _, step := range teardowns {
			if err := d.invoker.Invoke(ctx, step, instance); err != nil {
				d.log.Error("Teardown failed",
					"fixture", fx.Name(), "teardown", step.Name, "test", test.Name(), "error", err)
				reports.RecordFailedTeardown(fx.Name(), step.Name, test.Name(), err)
				test.TeardownState.Fail()
				if testPassed {
					// The pass is invalidated retroactively. A test that had
					// already failed is not reported a second time.
					d.recordFailedTest(reports, fx, test, errTeardownInvalidated)
					test.State.Fail()
					testPassed = false
				}
			}
		}
		test.TeardownState.Pass() // no-op if a step already failed it
	}

	if !test.State.Failed() {
		test.State.Pass()
	}

	reports.TestCompleted()
	d.completed.Add(1)
	metrics.RecordTest(d.runID, fx.Name(), test.Name(), test.State.Status())
	d.log.Info("Test finished", "fixture", fx.Name(), "test", test.Name(), "status", test.State.Status())
	return nil
}

func (d *Driver) recordFailedTest(reports *reporting.Aggregator, fx *types.FixtureEntry, test *types.TestEntry, err error) {
	reports.RecordFailedTest(fx.Name(), test.Name(), err)
	d.failedTests.Add(1)
}

// fixtureFailed reports whether any of the fixture's tests, setups or
// teardowns failed.
func fixtureFailed(fx *types.FixtureEntry) bool {
	for _, test := range fx.Tests {
		if test.State.Failed() || test.SetupState.Failed() || test.TeardownState.Failed() {
			return true
		}
	}
	return false
}

// determineRunStatus derives the overall run status from fixture states.
func determineRunStatus(entries []*types.FixtureEntry) types.Status {
	for _, fx := range entries {
		if fx.State.Failed() {
			return types.StatusFail
		}
	}
	return types.StatusPass
}
