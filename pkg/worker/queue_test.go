package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pion/logging"
)

func TestQueue_RunsInOrder(t *testing.T) {
	q := New(Config{})
	defer q.Close()

	var mu sync.Mutex
	var got []int
	for i := 0; i < 100; i++ {
		i := i
		if err := q.Enqueue(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := q.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 100 {
		t.Fatalf("ran %d jobs, want 100", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("job %d ran at position %d", v, i)
		}
	}
}

func TestQueue_SingleGoroutine(t *testing.T) {
	q := New(Config{})
	defer q.Close()

	var mu sync.Mutex
	running := 0
	maxRunning := 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Enqueue(func() {
				mu.Lock()
				running++
				if running > maxRunning {
					maxRunning = running
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				running--
				mu.Unlock()
			})
		}()
	}
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	q.Flush(ctx)

	if maxRunning != 1 {
		t.Errorf("max concurrent jobs = %d, want 1", maxRunning)
	}
}

func TestQueue_CloseDrainsPending(t *testing.T) {
	q := New(Config{LoggerFactory: logging.NewDefaultLoggerFactory()})

	block := make(chan struct{})
	q.Enqueue(func() { <-block })

	ran := 0
	for i := 0; i < 5; i++ {
		q.Enqueue(func() { ran++ })
	}

	close(block)
	if err := q.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if ran != 5 {
		t.Errorf("ran = %d after Close, want 5", ran)
	}

	if err := q.Enqueue(func() {}); !errors.Is(err, ErrClosed) {
		t.Errorf("Enqueue() after Close error = %v, want ErrClosed", err)
	}
	if err := q.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close() error = %v, want ErrClosed", err)
	}
}

func TestQueue_PanicDoesNotStopWorker(t *testing.T) {
	q := New(Config{})
	defer q.Close()

	q.Enqueue(func() { panic("boom") })

	done := make(chan struct{})
	q.Enqueue(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job after panic did not run")
	}
}

func TestQueue_EnqueueDoesNotBlock(t *testing.T) {
	q := New(Config{})
	defer q.Close()

	block := make(chan struct{})
	q.Enqueue(func() { <-block })

	start := time.Now()
	for i := 0; i < 10000; i++ {
		q.Enqueue(func() {})
	}
	if time.Since(start) > time.Second {
		t.Error("Enqueue blocked behind a running job")
	}
	if q.Len() == 0 {
		t.Error("Len() = 0 while the worker is blocked")
	}
	close(block)
}
