// Package worker provides the single background goroutine that serializes
// outbound work for a content app or a casting session.
package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/pion/logging"
)

// Errors returned by Queue.
var (
	// ErrClosed is returned when work is submitted to a closed queue.
	ErrClosed = errors.New("worker: closed")
)

// Job is a unit of work executed on the queue goroutine.
type Job func()

// Config configures a Queue.
type Config struct {
	// Name is used as the logger scope suffix. Defaults to "worker".
	Name string

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Queue runs jobs one at a time, in submission order, on a single goroutine.
// Enqueue never blocks: pending jobs are held in an unbounded FIFO.
type Queue struct {
	mu      sync.Mutex
	pending []Job
	closed  bool

	wake chan struct{}
	wg   sync.WaitGroup
	log  logging.LeveledLogger
}

// New creates a queue and starts its goroutine.
func New(config Config) *Queue {
	q := &Queue{
		wake: make(chan struct{}, 1),
	}

	if config.LoggerFactory != nil {
		name := config.Name
		if name == "" {
			name = "worker"
		}
		q.log = config.LoggerFactory.NewLogger(name)
	}

	q.wg.Add(1)
	go q.loop()

	return q
}

// Enqueue appends job to the queue. It returns ErrClosed after Close.
func (q *Queue) Enqueue(job Job) error {
	if job == nil {
		return nil
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.pending = append(q.pending, job)
	q.mu.Unlock()

	q.signal()
	return nil
}

// Len returns the number of jobs waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Flush waits until every job enqueued before the call has run.
func (q *Queue) Flush(ctx context.Context) error {
	done := make(chan struct{})
	if err := q.Enqueue(func() { close(done) }); err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs, runs the jobs already queued and waits for the
// goroutine to exit. It must not be called from inside a job.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.closed = true
	q.mu.Unlock()

	q.signal()
	q.wg.Wait()

	if q.log != nil {
		q.log.Debug("worker stopped")
	}
	return nil
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) loop() {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		for len(q.pending) == 0 {
			if q.closed {
				q.mu.Unlock()
				return
			}
			q.mu.Unlock()
			<-q.wake
			q.mu.Lock()
		}
		job := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.mu.Unlock()

		q.run(job)
	}
}

// run executes job, containing any panic so later jobs still run.
func (q *Queue) run(job Job) {
	defer func() {
		if r := recover(); r != nil {
			if q.log != nil {
				q.log.Errorf("job panicked: %v", r)
			}
		}
	}()
	job()
}
