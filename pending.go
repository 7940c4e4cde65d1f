package requestum

import "context"

// Pending is an in-flight dispatch result. The ExecuteAsync and
// PublishAsync entry points return one immediately; async handlers
// return one from HandleAsync.
//
// A Pending completes exactly once. Waiting on a completed Pending
// returns the stored outcome without blocking.
type Pending[R any] struct {
	done chan struct{}
	res  R
	err  error
}

func newPending[R any]() *Pending[R] {
	return &Pending[R]{done: make(chan struct{})}
}

func (p *Pending[R]) complete(res R, err error) {
	p.res = res
	p.err = err
	close(p.done)
}

// Go runs fn on a new goroutine and returns its Pending outcome. It is
// the usual way to implement AsyncHandler.
func Go[R any](fn func() (R, error)) *Pending[R] {
	p := newPending[R]()
	go func() {
		p.complete(fn())
	}()
	return p
}

// Resolved returns an already-completed Pending. Use it to satisfy the
// async capability from a result that is available immediately.
func Resolved[R any](res R, err error) *Pending[R] {
	p := newPending[R]()
	p.complete(res, err)
	return p
}

// Done returns a channel that is closed once the outcome is available.
func (p *Pending[R]) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the outcome is available or ctx is done. A completed
// outcome wins over a done context. Cancelling ctx abandons the wait
// only; it does not cancel the underlying call, whose own context
// governs that.
func (p *Pending[R]) Wait(ctx context.Context) (R, error) {
	select {
	case <-p.done:
		return p.res, p.err
	default:
	}
	select {
	case <-p.done:
		return p.res, p.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// Result blocks until the outcome is available and returns it.
func (p *Pending[R]) Result() (R, error) {
	<-p.done
	return p.res, p.err
}
