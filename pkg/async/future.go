// Package async provides the result and callback types used for every
// asynchronous operation in the casting and content-app packages.
//
// A Future completes exactly once, with either a value or an error. Long
// lived streams of values (subscriptions) use a Callback instead.
package async

import (
	"context"
	"errors"
	"sync"
)

// ErrPending is returned by Result when the future has not completed yet.
var ErrPending = errors.New("async: result pending")

// Future is the eventual result of a single asynchronous operation.
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

// New returns an incomplete future.
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved returns a future already completed with v.
func Resolved[T any](v T) *Future[T] {
	f := New[T]()
	f.Complete(v, nil)
	return f
}

// Failed returns a future already completed with err.
func Failed[T any](err error) *Future[T] {
	f := New[T]()
	var zero T
	f.Complete(zero, err)
	return f
}

// Complete sets the result of the future. Only the first call has an
// effect; it reports whether this call completed the future.
func (f *Future[T]) Complete(v T, err error) bool {
	completed := false
	f.once.Do(func() {
		f.val = v
		f.err = err
		completed = true
		close(f.done)
	})
	return completed
}

// Resolve completes the future with v.
func (f *Future[T]) Resolve(v T) bool {
	return f.Complete(v, nil)
}

// Reject completes the future with err.
func (f *Future[T]) Reject(err error) bool {
	var zero T
	return f.Complete(zero, err)
}

// Done returns a channel that is closed once the future completes.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Result returns the outcome without blocking. It returns ErrPending if the
// future has not completed.
func (f *Future[T]) Result() (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	default:
		var zero T
		return zero, ErrPending
	}
}

// Await blocks until the future completes or ctx is done.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then calls fn with the outcome once the future completes. fn runs on its
// own goroutine, also when the future is already complete.
func (f *Future[T]) Then(fn func(T, error)) {
	go func() {
		<-f.done
		fn(f.val, f.err)
	}()
}

// Map returns a future completed with fn applied to the value of f.
// Errors from f are passed through without calling fn.
func Map[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	out := New[U]()
	f.Then(func(v T, err error) {
		if err != nil {
			out.Reject(err)
			return
		}
		out.Complete(fn(v))
	})
	return out
}
