package ingest

import "context"

// Task is a handle on one background processing run.
type Task struct {
	SessionID string
	Run       int

	done chan struct{}
	err  error
}

func newTask(sessionID string, run int) *Task {
	return &Task{SessionID: sessionID, Run: run, done: make(chan struct{})}
}

func (t *Task) finish(err error) {
	t.err = err
	close(t.done)
}

// Done is closed when the run has finished, successfully or not.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the run finishes or ctx is done. Cancelling ctx does not
// stop the run.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err is nil while the run is in flight.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}
