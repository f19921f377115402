package async

// Callback receives a stream of values and errors, for example the reports
// of an attribute subscription. Methods may be called from any goroutine,
// but never concurrently for the same stream. The producer may hold a lock
// for the stream while a method runs, so a method must not block on the
// producer's own teardown.
type Callback[T any] interface {
	OnUpdate(value T)
	OnError(err error)
}

// CallbackFuncs adapts a pair of functions to the Callback interface.
// Either function may be nil.
type CallbackFuncs[T any] struct {
	Update func(value T)
	Error  func(err error)
}

// OnUpdate calls c.Update if set.
func (c CallbackFuncs[T]) OnUpdate(value T) {
	if c.Update != nil {
		c.Update(value)
	}
}

// OnError calls c.Error if set.
func (c CallbackFuncs[T]) OnError(err error) {
	if c.Error != nil {
		c.Error(err)
	}
}

// MapCallback adapts a Callback[U] to a Callback[T] by converting each value
// with fn. A conversion error is delivered through OnError.
func MapCallback[T, U any](cb Callback[U], fn func(T) (U, error)) Callback[T] {
	return CallbackFuncs[T]{
		Update: func(v T) {
			u, err := fn(v)
			if err != nil {
				cb.OnError(err)
				return
			}
			cb.OnUpdate(u)
		},
		Error: cb.OnError,
	}
}

var _ Callback[int] = CallbackFuncs[int]{}
