package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixturelab/conductor/registry"
	"github.com/fixturelab/conductor/types"
)

// stepRecorder tracks the order in which steps run across a test.
type stepRecorder struct {
	calls []string
}

func (r *stepRecorder) step(name string, err error) types.Step {
	return types.Step{Name: name, Fn: func(ctx context.Context, fixture types.FixtureInstance) error {
		r.calls = append(r.calls, name)
		return err
	}}
}

func newTestRegistry(t *testing.T, descriptors ...types.FixtureDescriptor) *registry.Registry {
	t.Helper()
	reg, err := registry.NewRegistry(registry.Config{})
	require.NoError(t, err)
	for _, d := range descriptors {
		require.NoError(t, reg.Register(d))
	}
	return reg
}

func newTestDriver(t *testing.T, reg *registry.Registry) *Driver {
	t.Helper()
	driver, err := NewDriver(Config{Registry: reg, ForceAll: true})
	require.NoError(t, err)
	return driver
}

func simpleFixture(name string, rec *stepRecorder) types.FixtureDescriptor {
	return types.FixtureDescriptor{
		Name: name,
		New:  func() (types.FixtureInstance, error) { return struct{}{}, nil },
		Setups: []types.Step{
			rec.step("setup-derived", nil),
			rec.step("setup-base", nil),
		},
		Teardowns: []types.Step{
			rec.step("teardown-1", nil),
			rec.step("teardown-2", nil),
		},
		Tests: []types.Step{
			rec.step("test-a", nil),
		},
	}
}

func TestRunAllAllPassing(t *testing.T) {
	rec := &stepRecorder{}
	reg := newTestRegistry(t, simpleFixture("fx", rec))
	driver := newTestDriver(t, reg)

	result, err := driver.RunAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.StatusPass, result.Status)
	assert.Equal(t, "All 1 Tests Passed", result.Summary)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, int64(1), driver.Completed())
	assert.Equal(t, int64(0), driver.FailedTests())

	fx := result.Fixtures[0]
	assert.Equal(t, types.StatusPass, fx.State.Status())
	test := fx.Tests[0]
	assert.Equal(t, types.StatusPass, test.State.Status())
	assert.Equal(t, types.StatusPass, test.SetupState.Status())
	assert.Equal(t, types.StatusPass, test.TeardownState.Status())
}

func TestRunAllExecutionOrder(t *testing.T) {
	// Setups run base before derived (reverse declaration order), then
	// the test step, then teardowns in declaration order.
	rec := &stepRecorder{}
	reg := newTestRegistry(t, simpleFixture("fx", rec))
	driver := newTestDriver(t, reg)

	_, err := driver.RunAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"setup-base", "setup-derived", "test-a", "teardown-1", "teardown-2"}, rec.calls)
}

func TestRunAllSetupFailureSkipsTest(t *testing.T) {
	rec := &stepRecorder{}
	reg := newTestRegistry(t, types.FixtureDescriptor{
		Name: "fx",
		New:  func() (types.FixtureInstance, error) { return struct{}{}, nil },
		Setups: []types.Step{
			rec.step("setup-derived", nil),
			rec.step("setup-base", errors.New("cannot connect")),
		},
		Teardowns: []types.Step{rec.step("teardown", nil)},
		Tests:     []types.Step{rec.step("test-a", nil)},
	})
	driver := newTestDriver(t, reg)

	result, err := driver.RunAll(context.Background())
	require.NoError(t, err)

	// The failing base setup runs first and stops setup there. The test
	// step never runs but teardown still does.
	assert.Equal(t, []string{"setup-base", "teardown"}, rec.calls)

	assert.Equal(t, types.StatusFail, result.Status)
	require.Equal(t, 1, result.Reports.FailedSetupCount())
	require.Equal(t, 1, result.Reports.FailedTestCount())
	assert.Equal(t, "setup failed", result.Reports.FailedTests()[0].Message)
	assert.Equal(t, "cannot connect", result.Reports.FailedSetups()[0].Message)

	test := result.Fixtures[0].Tests[0]
	assert.Equal(t, types.StatusFail, test.State.Status())
	assert.Equal(t, types.StatusFail, test.SetupState.Status())
	assert.Equal(t, types.StatusPass, test.TeardownState.Status())
	assert.Equal(t, int64(1), driver.Completed())
}

func TestRunAllTestFailure(t *testing.T) {
	rec := &stepRecorder{}
	reg := newTestRegistry(t, types.FixtureDescriptor{
		Name:      "fx",
		New:       func() (types.FixtureInstance, error) { return struct{}{}, nil },
		Teardowns: []types.Step{rec.step("teardown", nil)},
		Tests:     []types.Step{rec.step("test-a", errors.New("assertion failed"))},
	})
	driver := newTestDriver(t, reg)

	result, err := driver.RunAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.StatusFail, result.Status)
	require.Equal(t, 1, result.Reports.FailedTestCount())
	assert.Equal(t, "assertion failed", result.Reports.FailedTests()[0].Message)
	assert.Equal(t, []string{"test-a", "teardown"}, rec.calls)
	assert.Equal(t, int64(1), driver.FailedTests())
}

func TestRunAllTeardownFailureAfterPass(t *testing.T) {
	// A teardown failure invalidates a pass: the test is retroactively
	// failed and reported with a synthetic reason.
	rec := &stepRecorder{}
	reg := newTestRegistry(t, types.FixtureDescriptor{
		Name: "fx",
		New:  func() (types.FixtureInstance, error) { return struct{}{}, nil },
		Teardowns: []types.Step{
			rec.step("teardown-bad", errors.New("leaked resource")),
			rec.step("teardown-ok", nil),
		},
		Tests: []types.Step{rec.step("test-a", nil)},
	})
	driver := newTestDriver(t, reg)

	result, err := driver.RunAll(context.Background())
	require.NoError(t, err)

	// All teardowns still run after the first one fails.
	assert.Equal(t, []string{"test-a", "teardown-bad", "teardown-ok"}, rec.calls)

	require.Equal(t, 1, result.Reports.FailedTeardownCount())
	require.Equal(t, 1, result.Reports.FailedTestCount())
	assert.Equal(t, "teardown failed after test passed", result.Reports.FailedTests()[0].Message)

	test := result.Fixtures[0].Tests[0]
	assert.Equal(t, types.StatusFail, test.State.Status())
	assert.Equal(t, types.StatusFail, test.TeardownState.Status())
	assert.Equal(t, types.StatusFail, result.Fixtures[0].State.Status())
}

func TestRunAllTeardownFailureAfterFailureNoDuplicate(t *testing.T) {
	// When the test already failed, a failing teardown is recorded as a
	// teardown failure only, not a second test failure.
	rec := &stepRecorder{}
	reg := newTestRegistry(t, types.FixtureDescriptor{
		Name:      "fx",
		New:       func() (types.FixtureInstance, error) { return struct{}{}, nil },
		Teardowns: []types.Step{rec.step("teardown-bad", errors.New("leaked resource"))},
		Tests:     []types.Step{rec.step("test-a", errors.New("assertion failed"))},
	})
	driver := newTestDriver(t, reg)

	result, err := driver.RunAll(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, result.Reports.FailedTeardownCount())
	require.Equal(t, 1, result.Reports.FailedTestCount())
	assert.Equal(t, "assertion failed", result.Reports.FailedTests()[0].Message)
}

func TestRunAllConstructorFailureIsFatal(t *testing.T) {
	reg := newTestRegistry(t, types.FixtureDescriptor{
		Name:  "fx",
		New:   func() (types.FixtureInstance, error) { return nil, errors.New("no database") },
		Tests: []types.Step{{Name: "test-a", Fn: func(ctx context.Context, fixture types.FixtureInstance) error { return nil }}},
	})
	driver := newTestDriver(t, reg)

	result, err := driver.RunAll(context.Background())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "no database")
}

func TestRunAllFreshInstancePerTest(t *testing.T) {
	constructed := 0
	reg := newTestRegistry(t, types.FixtureDescriptor{
		Name: "fx",
		New: func() (types.FixtureInstance, error) {
			constructed++
			return &constructed, nil
		},
		Tests: []types.Step{
			{Name: "test-a", Fn: func(ctx context.Context, fixture types.FixtureInstance) error { return nil }},
			{Name: "test-b", Fn: func(ctx context.Context, fixture types.FixtureInstance) error { return nil }},
		},
	})
	driver := newTestDriver(t, reg)

	_, err := driver.RunAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, constructed)
}

func TestRunAllSuspendingTest(t *testing.T) {
	reg := newTestRegistry(t, types.FixtureDescriptor{
		Name: "fx",
		New:  func() (types.FixtureInstance, error) { return struct{}{}, nil },
		Tests: []types.Step{
			{Name: "async-ok", Suspending: true, Fn: func(ctx context.Context, fixture types.FixtureInstance) error { return nil }},
			{Name: "async-bad", Suspending: true, Fn: func(ctx context.Context, fixture types.FixtureInstance) error {
				return errors.New("async failed")
			}},
		},
	})
	driver := newTestDriver(t, reg)

	result, err := driver.RunAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.StatusPass, result.Fixtures[0].Tests[0].State.Status())
	assert.Equal(t, types.StatusFail, result.Fixtures[0].Tests[1].State.Status())
	assert.Equal(t, "async failed", result.Reports.FailedTests()[0].Message)
}

func TestRunAllPanicInTestStep(t *testing.T) {
	reg := newTestRegistry(t, types.FixtureDescriptor{
		Name: "fx",
		New:  func() (types.FixtureInstance, error) { return struct{}{}, nil },
		Tests: []types.Step{
			{Name: "panics", Fn: func(ctx context.Context, fixture types.FixtureInstance) error { panic("unexpected") }},
		},
	})
	driver := newTestDriver(t, reg)

	result, err := driver.RunAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.StatusFail, result.Status)
	assert.Contains(t, result.Reports.FailedTests()[0].Message, "unexpected")
}

func TestRunAllMultipleFixturesSummary(t *testing.T) {
	rec := &stepRecorder{}
	reg := newTestRegistry(t,
		simpleFixture("fx-one", rec),
		types.FixtureDescriptor{
			Name:  "fx-two",
			New:   func() (types.FixtureInstance, error) { return struct{}{}, nil },
			Tests: []types.Step{rec.step("test-bad", errors.New("broken"))},
		},
	)
	driver := newTestDriver(t, reg)

	result, err := driver.RunAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.StatusPass, result.Fixtures[0].State.Status())
	assert.Equal(t, types.StatusFail, result.Fixtures[1].State.Status())
	assert.Equal(t, types.StatusFail, result.Status)
	assert.Contains(t, result.Summary, "2 Tests Run")
	assert.Contains(t, result.Summary, "1 Test Failures")
	assert.Contains(t, result.Summary, "Fixture: [fx-two] Test: [test-bad] Error: broken")
	assert.Equal(t, int64(2), driver.Completed())
}

func TestRunAllCompletedCountedOncePerTest(t *testing.T) {
	// A test that fails setup, the test step and teardown is still only
	// one completed test.
	reg := newTestRegistry(t, types.FixtureDescriptor{
		Name: "fx",
		New:  func() (types.FixtureInstance, error) { return struct{}{}, nil },
		Setups: []types.Step{
			{Name: "setup", Fn: func(ctx context.Context, fixture types.FixtureInstance) error { return errors.New("setup broke") }},
		},
		Teardowns: []types.Step{
			{Name: "teardown", Fn: func(ctx context.Context, fixture types.FixtureInstance) error { return errors.New("teardown broke") }},
		},
		Tests: []types.Step{
			{Name: "test-a", Fn: func(ctx context.Context, fixture types.FixtureInstance) error { return nil }},
		},
	})
	driver := newTestDriver(t, reg)

	result, err := driver.RunAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Reports.Completed())
	assert.Equal(t, int64(1), driver.Completed())
	// Test already failed via setup, so the teardown failure adds no
	// second test report.
	assert.Equal(t, 1, result.Reports.FailedTestCount())
}

func TestRunAllHonorsSelection(t *testing.T) {
	selection := filepath.Join(t.TempDir(), "selection.yaml")
	require.NoError(t, os.WriteFile(selection, []byte(`
fixtures:
  - name: fx-skip
    selected: false
`), 0o644))

	reg, err := registry.NewRegistry(registry.Config{SelectionFile: selection})
	require.NoError(t, err)

	ranSkip := false
	ranKeep := false
	require.NoError(t, reg.Register(types.FixtureDescriptor{
		Name: "fx-skip",
		New:  func() (types.FixtureInstance, error) { return struct{}{}, nil },
		Tests: []types.Step{
			{Name: "test-a", Fn: func(ctx context.Context, fixture types.FixtureInstance) error { ranSkip = true; return nil }},
		},
	}))
	require.NoError(t, reg.Register(types.FixtureDescriptor{
		Name: "fx-keep",
		New:  func() (types.FixtureInstance, error) { return struct{}{}, nil },
		Tests: []types.Step{
			{Name: "test-b", Fn: func(ctx context.Context, fixture types.FixtureInstance) error { ranKeep = true; return nil }},
		},
	}))

	driver, err := NewDriver(Config{Registry: reg})
	require.NoError(t, err)

	result, err := driver.RunAll(context.Background())
	require.NoError(t, err)

	assert.False(t, ranSkip)
	assert.True(t, ranKeep)
	assert.Equal(t, types.StatusNotRun, result.Fixtures[0].State.Status())
	assert.Equal(t, types.StatusPass, result.Fixtures[1].State.Status())
}

func TestRunAllForcedModeIgnoresSelection(t *testing.T) {
	selection := filepath.Join(t.TempDir(), "selection.yaml")
	require.NoError(t, os.WriteFile(selection, []byte(`
fixtures:
  - name: fx-skip
    selected: false
`), 0o644))

	reg, err := registry.NewRegistry(registry.Config{SelectionFile: selection})
	require.NoError(t, err)

	ran := false
	require.NoError(t, reg.Register(types.FixtureDescriptor{
		Name: "fx-skip",
		New:  func() (types.FixtureInstance, error) { return struct{}{}, nil },
		Tests: []types.Step{
			{Name: "test-a", Fn: func(ctx context.Context, fixture types.FixtureInstance) error { ran = true; return nil }},
		},
	}))

	driver, err := NewDriver(Config{Registry: reg, ForceAll: true})
	require.NoError(t, err)

	result, err := driver.RunAll(context.Background())
	require.NoError(t, err)

	assert.True(t, ran)
	assert.Equal(t, types.StatusPass, result.Fixtures[0].State.Status())
}

func TestRunAllFreshRunIDPerInvocation(t *testing.T) {
	rec := &stepRecorder{}
	reg := newTestRegistry(t, simpleFixture("fx", rec))
	driver := newTestDriver(t, reg)

	first, err := driver.RunAll(context.Background())
	require.NoError(t, err)
	second, err := driver.RunAll(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	// Entries are rebuilt per run, so the second run starts clean.
	assert.Equal(t, types.StatusPass, second.Status)
	assert.Equal(t, int64(1), driver.Completed())
}

func TestResultString(t *testing.T) {
	rec := &stepRecorder{}
	reg := newTestRegistry(t, simpleFixture("fx", rec))
	driver := newTestDriver(t, reg)

	result, err := driver.RunAll(context.Background())
	require.NoError(t, err)

	out := result.String()
	assert.Contains(t, out, "Suite Run Results")
	assert.Contains(t, out, fmt.Sprintf("Run ID: %s", result.RunID))
	assert.Contains(t, out, "Fixture: fx")
	assert.Contains(t, out, "Test: test-a [status=pass, setup=pass, teardown=pass]")
	assert.Contains(t, out, "All 1 Tests Passed")
}
