// Package selfcheck implements a small built-in suite that exercises the
// engine end to end. It is meant to be used as an example of how to
// declare fixtures for the conductor service.
package selfcheck

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/fixturelab/conductor/types"
)

// counterFixture is the instance type backing the selfcheck fixtures.
// Every test gets a fresh one, so state never leaks between tests.
type counterFixture struct {
	ready atomic.Bool
	hits  int
}

// Fixtures returns the selfcheck fixture descriptors, ready to be passed
// to conductor.Config.
func Fixtures() []types.FixtureDescriptor {
	return []types.FixtureDescriptor{
		counterDescriptor(),
		timingDescriptor(),
	}
}

func counterDescriptor() types.FixtureDescriptor {
	return types.FixtureDescriptor{
		Name: "selfcheck-counter",
		New: func() (types.FixtureInstance, error) {
			return &counterFixture{}, nil
		},
		// Declaration order is derived-first; the engine runs prepare
		// before warm-up.
		Setups: []types.Step{
			{Name: "warm-up", Fn: warmUp},
			{Name: "prepare", Fn: prepare},
		},
		Teardowns: []types.Step{
			{Name: "drain", Fn: drain},
		},
		Tests: []types.Step{
			{Name: "increments", Fn: increments},
			{Name: "starts-ready", Fn: startsReady},
		},
	}
}

func prepare(ctx context.Context, fixture types.FixtureInstance) error {
	f := fixture.(*counterFixture)
	f.ready.Store(true)
	log.Info("selfcheck fixture prepared")
	return nil
}

func warmUp(ctx context.Context, fixture types.FixtureInstance) error {
	f := fixture.(*counterFixture)
	if !f.ready.Load() {
		return fmt.Errorf("warm-up ran before prepare")
	}
	f.hits++
	return nil
}

func drain(ctx context.Context, fixture types.FixtureInstance) error {
	f := fixture.(*counterFixture)
	f.ready.Store(false)
	log.Info("selfcheck fixture drained", "hits", f.hits)
	return nil
}

func increments(ctx context.Context, fixture types.FixtureInstance) error {
	f := fixture.(*counterFixture)
	before := f.hits
	f.hits++
	if f.hits != before+1 {
		return fmt.Errorf("expected %d hits, got %d", before+1, f.hits)
	}
	return nil
}

func startsReady(ctx context.Context, fixture types.FixtureInstance) error {
	f := fixture.(*counterFixture)
	// A fresh instance went through setup, so hits is exactly 1 here.
	if f.hits != 1 {
		return fmt.Errorf("expected a fresh fixture, got %d hits", f.hits)
	}
	if !f.ready.Load() {
		return fmt.Errorf("fixture not ready")
	}
	return nil
}

func timingDescriptor() types.FixtureDescriptor {
	return types.FixtureDescriptor{
		Name: "selfcheck-timing",
		New: func() (types.FixtureInstance, error) {
			return &counterFixture{}, nil
		},
		Tests: []types.Step{
			{Name: "sleeps-off-thread", Suspending: true, Fn: sleepsOffThread},
		},
	}
}

func sleepsOffThread(ctx context.Context, fixture types.FixtureInstance) error {
	start := time.Now()
	select {
	case <-time.After(10 * time.Millisecond):
	case <-ctx.Done():
		return ctx.Err()
	}
	log.Info("selfcheck timing test slept", "elapsed", time.Since(start))
	return nil
}
