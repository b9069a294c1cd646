package analyzer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrBusy is returned by Submit while a job is still running.
var ErrBusy = errors.New("a request is already in progress")

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("dispatcher closed")

// Job is one details or predict run.
type Job func(ctx context.Context) Outcome

// Dispatcher runs jobs one at a time on a worker goroutine and hands the
// outcomes back over Results. The owner of the session applies them.
type Dispatcher struct {
	ctx     context.Context
	stop    context.CancelFunc
	jobs    chan Job
	results chan Outcome
	busy    atomic.Bool

	mu        sync.Mutex
	cancelJob context.CancelFunc
	closed    bool
	wg        sync.WaitGroup
}

func NewDispatcher(ctx context.Context) *Dispatcher {
	ctx, stop := context.WithCancel(ctx)
	d := &Dispatcher{
		ctx:     ctx,
		stop:    stop,
		jobs:    make(chan Job, 1),
		results: make(chan Outcome, 1),
	}
	d.wg.Add(1)
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()
	defer close(d.results)

	for job := range d.jobs {
		jobCtx, cancel := context.WithCancel(d.ctx)
		d.mu.Lock()
		d.cancelJob = cancel
		d.mu.Unlock()

		out := job(jobCtx)

		d.mu.Lock()
		d.cancelJob = nil
		d.mu.Unlock()
		cancel()

		d.busy.Store(false)
		d.results <- out
	}
}

// Submit queues job unless another one is in flight.
func (d *Dispatcher) Submit(job Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if !d.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	d.jobs <- job
	return nil
}

// Busy reports whether a job is queued or running.
func (d *Dispatcher) Busy() bool {
	return d.busy.Load()
}

// Results delivers one Outcome per accepted job. It is closed after Close.
func (d *Dispatcher) Results() <-chan Outcome {
	return d.results
}

// Cancel cancels the running job, if any.
func (d *Dispatcher) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancelJob != nil {
		d.cancelJob()
	}
}

// Close stops accepting jobs, cancels the running one and waits for the
// worker to exit. Undelivered outcomes are dropped.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	d.stop()
	go func() {
		for range d.results {
		}
	}()
	d.wg.Wait()
}

// Run submits job and waits for its outcome.
func (d *Dispatcher) Run(ctx context.Context, job Job) (Outcome, error) {
	if err := d.Submit(job); err != nil {
		return Outcome{}, err
	}
	select {
	case out, ok := <-d.results:
		if !ok {
			return Outcome{}, ErrClosed
		}
		return out, nil
	case <-ctx.Done():
		d.Cancel()
		out, ok := <-d.results
		if !ok {
			return Outcome{}, ErrClosed
		}
		return out, ctx.Err()
	}
}
