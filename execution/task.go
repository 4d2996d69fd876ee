package execution

import (
	"context"
	"crypto/rand"
	"sync"

	"github.com/oklog/ulid/v2"
)

// FetchTask is the handle of a single in-flight fetch running on the worker pool.
// Cancelling it is idempotent and has no effect once the fetch has finished.
type FetchTask struct {
	ID     string
	Source string

	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	finished  bool
	cancelled bool
	err       error
}

func newFetchTask(source string, cancel context.CancelFunc) *FetchTask {
	return &FetchTask{
		ID:     ulid.MustNew(ulid.Now(), rand.Reader).String(),
		Source: source,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Cancel stops the fetch. It returns true only if this call cancelled a still running task.
func (t *FetchTask) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.finished || t.cancelled {
		return false
	}
	t.cancelled = true
	t.cancel()
	return true
}

func (t *FetchTask) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.cancelled
}

// Done is closed once the worker has wound down.
func (t *FetchTask) Done() <-chan struct{} {
	return t.done
}

// Err returns the error the task finished with. Only valid after Done is closed.
func (t *FetchTask) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.err
}

func (t *FetchTask) finish(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.finished = true
	t.err = err
	// Releases the context resources, it's not a cancellation anymore.
	t.cancel()
	close(t.done)
}
