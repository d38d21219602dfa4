package besteffort

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// Task is a side effect whose failure must never reach the caller that scheduled it.
type Task func(ctx context.Context) error

// Options configures a Dispatcher.
type Options struct {
	Logger      *logrus.Logger
	Concurrency int
	Timeout     time.Duration
}

const (
	defaultConcurrency = 16
	defaultTimeout     = 5 * time.Second
)

// Dispatcher runs best-effort tasks in short-lived goroutines. Errors and panics are logged
// and discarded, and tasks are dropped rather than queued once Concurrency are in flight.
type Dispatcher struct {
	logger  *logrus.Logger
	slots   chan struct{}
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// New constructs a Dispatcher with the provided options.
func New(opts Options) *Dispatcher {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Dispatcher{
		logger:  opts.Logger,
		slots:   make(chan struct{}, concurrency),
		timeout: timeout,
	}
}

// Go schedules the task without blocking. The task receives a context detached from ctx's
// cancellation but carrying its values, bounded by the dispatcher timeout. It reports whether
// the task was accepted.
func (d *Dispatcher) Go(ctx context.Context, name string, fields logrus.Fields, task Task) bool {
	if task == nil {
		return false
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.log(name, fields).Warn("best-effort task dropped: dispatcher closed")
		return false
	}

	select {
	case d.slots <- struct{}{}:
	default:
		d.log(name, fields).Warn("best-effort task dropped: concurrency limit reached")
		return false
	}

	d.wg.Add(1)
	go d.run(context.WithoutCancel(ctx), name, fields, task)
	return true
}

func (d *Dispatcher) run(parent context.Context, name string, fields logrus.Fields, task Task) {
	defer d.wg.Done()
	defer func() { <-d.slots }()
	defer func() {
		if rec := recover(); rec != nil {
			d.log(name, fields).WithField("error", fmt.Sprintf("panic: %v", rec)).Error("best-effort task panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(parent, d.timeout)
	defer cancel()

	if err := task(ctx); err != nil {
		d.log(name, fields).WithField("error", err.Error()).Warn("best-effort task failed")
	}
}

// Wait blocks until every accepted task has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close stops accepting tasks and waits for in-flight ones until ctx expires.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "waiting for best-effort tasks")
	}
}

func (d *Dispatcher) log(name string, fields logrus.Fields) *logrus.Entry {
	logger := d.logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	entry := logger.WithField("task", name)
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	return entry
}
