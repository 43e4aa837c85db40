// Package logging routes diagnostic log output to the currently running
// test while a run is active.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/fixturelab/conductor/types"
)

// Router is a process-global log hook. While installed it appends every
// emitted record, regardless of severity, to the current test's and
// current fixture's log lists, then forwards it to the handler that was
// active before installation.
//
// Install and Remove are called only by the driver, once per run. The
// engine is not reentrant: only one run is ever active at a time, so a
// single current-test pointer is sufficient. The mutex exists because a
// suspending step logs from its sub-task goroutine while the driver
// waits on it.
type Router struct {
	state *routerState
	inner slog.Handler
}

type routerState struct {
	mu      sync.Mutex
	fixture *types.FixtureEntry
	test    *types.TestEntry
	prev    log.Logger
}

// NewRouter creates an uninstalled router.
func NewRouter() *Router {
	return &Router{state: &routerState{}}
}

// Install swaps the router in as the process log handler, keeping the
// previous handler as the forwarding target.
func (r *Router) Install() {
	prev := log.Root()
	r.state.mu.Lock()
	r.state.prev = prev
	r.state.mu.Unlock()

	r.inner = prev.Handler()
	log.SetDefault(log.NewLogger(r))
}

// Remove restores the log handler that was active before Install and
// clears the current pointers.
func (r *Router) Remove() {
	r.state.mu.Lock()
	prev := r.state.prev
	r.state.prev = nil
	r.state.fixture = nil
	r.state.test = nil
	r.state.mu.Unlock()

	if prev != nil {
		log.SetDefault(prev)
	}
}

// SetCurrent points the router at the entries captured records attach
// to. A nil test detaches test routing while keeping the fixture
// current; nil for both detaches routing entirely.
func (r *Router) SetCurrent(fixture *types.FixtureEntry, test *types.TestEntry) {
	r.state.mu.Lock()
	r.state.fixture = fixture
	r.state.test = test
	r.state.mu.Unlock()
}

// Enabled implements slog.Handler. The router captures every severity;
// the forwarding target applies its own level filter in Handle.
func (r *Router) Enabled(ctx context.Context, lvl slog.Level) bool {
	return true
}

// Handle implements slog.Handler.
func (r *Router) Handle(ctx context.Context, rec slog.Record) error {
	entry := types.LogRecord{
		Time:    rec.Time,
		Level:   log.LevelString(rec.Level),
		Message: formatMessage(rec),
	}

	r.state.mu.Lock()
	if r.state.test != nil {
		r.state.test.Logs = append(r.state.test.Logs, entry)
	}
	if r.state.fixture != nil {
		r.state.fixture.Logs = append(r.state.fixture.Logs, entry)
	}
	r.state.mu.Unlock()

	if r.inner != nil && r.inner.Enabled(ctx, rec.Level) {
		return r.inner.Handle(ctx, rec)
	}
	return nil
}

// WithAttrs implements slog.Handler. The derived handler shares the
// router's capture state.
func (r *Router) WithAttrs(attrs []slog.Attr) slog.Handler {
	inner := r.inner
	if inner != nil {
		inner = inner.WithAttrs(attrs)
	}
	return &Router{state: r.state, inner: inner}
}

// WithGroup implements slog.Handler.
func (r *Router) WithGroup(name string) slog.Handler {
	inner := r.inner
	if inner != nil {
		inner = inner.WithGroup(name)
	}
	return &Router{state: r.state, inner: inner}
}

func formatMessage(rec slog.Record) string {
	var b strings.Builder
	b.WriteString(rec.Message)
	rec.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
		return true
	})
	return b.String()
}
