package runner

import "fmt"

// Task is a cooperative sub-task: a suspending step started under the
// driver's single-threaded scheduler. The driver yields on Wait until
// the task signals completion; a failure raised inside the task is
// captured into its result rather than terminating the scheduler.
type Task struct {
	done chan struct{}
	err  error
}

// StartTask runs fn as a sub-task and returns immediately.
func StartTask(fn func() error) *Task {
	t := &Task{done: make(chan struct{})}
	go func() {
		defer close(t.done)
		defer func() {
			if r := recover(); r != nil {
				t.err = fmt.Errorf("runtime error: %v", r)
			}
		}()
		t.err = fn()
	}()
	return t
}

// Wait blocks until the task completes and returns its captured error.
// There is no cancellation: a task that never completes stalls the run.
func (t *Task) Wait() error {
	<-t.done
	return t.err
}

// Done returns a channel that is closed when the task completes.
func (t *Task) Done() <-chan struct{} {
	return t.done
}
