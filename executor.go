package conductor

import (
	"context"

	"github.com/ethereum/go-ethereum/log"

	"github.com/fixturelab/conductor/runner"
)

// SuiteExecutor is responsible for running the suite.
type SuiteExecutor interface {
	RunSuite(ctx context.Context) (*runner.Result, error)
}

// DefaultSuiteExecutor implements the SuiteExecutor interface.
type DefaultSuiteExecutor struct {
	driver *runner.Driver
	logger log.Logger
}

// NewDefaultSuiteExecutor creates a new DefaultSuiteExecutor.
func NewDefaultSuiteExecutor(driver *runner.Driver, logger log.Logger) *DefaultSuiteExecutor {
	return &DefaultSuiteExecutor{
		driver: driver,
		logger: logger,
	}
}

// RunSuite runs all fixtures and tests and returns the results.
func (e *DefaultSuiteExecutor) RunSuite(ctx context.Context) (*runner.Result, error) {
	e.logger.Info("Running suite...")
	result, err := e.driver.RunAll(ctx)
	if err != nil {
		e.logger.Error("Error running suite", "error", err)
		return nil, err
	}
	e.logger.Info("Suite run completed", "run_id", result.RunID, "status", result.Status)
	return result, nil
}
