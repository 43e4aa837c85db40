// Package runner contains the suite driver: the sequential scheduler
// that walks fixtures and tests in descriptor order, executes setup,
// test and teardown steps through a single invoker, and applies the
// failure-propagation rules between them.
package runner
