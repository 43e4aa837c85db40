package runner

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/fixturelab/conductor/types"
)

// Invoker executes one step against a fixture instance and surfaces any
// failure as a single error value. Failures never propagate past the
// invoker: a panic raised by step code is recovered and returned as the
// step's error.
type Invoker struct {
	log log.Logger
}

// NewInvoker creates a new step invoker.
func NewInvoker(logger log.Logger) *Invoker {
	if logger == nil {
		logger = log.New()
	}
	return &Invoker{log: logger}
}

// Invoke runs a single setup, test or teardown step. Synchronous steps
// are called directly; suspending steps are started as a sub-task the
// invoker waits on before returning.
func (inv *Invoker) Invoke(ctx context.Context, step types.Step, fixture types.FixtureInstance) error {
	if step.Fn == nil {
		return fmt.Errorf("step %q has no function", step.Name)
	}

	if step.Suspending {
		inv.log.Debug("Starting suspending step", "step", step.Name)
		task := StartTask(func() error {
			return step.Fn(ctx, fixture)
		})
		return task.Wait()
	}

	return invokeDirect(ctx, step, fixture)
}

// invokeDirect calls a synchronous step, converting a panic into the
// step's error.
func invokeDirect(ctx context.Context, step types.Step, fixture types.FixtureInstance) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("runtime error: %v", r)
		}
	}()
	return step.Fn(ctx, fixture)
}
