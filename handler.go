package requestum

import "context"

// Handler processes a command or query and returns a typed response.
//
// The type parameters are: T for the request, R for the response. T must
// embed Returns[R] to be registrable.
//
// Example:
//
//	type FindUserHandler struct {
//	    db *sql.DB
//	}
//
//	func (h *FindUserHandler) Handle(ctx context.Context, q FindUser) (User, error) {
//	    return loadUser(ctx, h.db, q.ID)
//	}
type Handler[T, R any] interface {
	Handle(ctx context.Context, req T) (R, error)
}

// HandlerFunc is a function adapter for Handler. Use for simple handlers
// that don't need a struct:
//
//	requestum.RegisterFunc(m, func(ctx context.Context, q FindUser) (User, error) {
//	    return loadUser(ctx, db, q.ID)
//	})
type HandlerFunc[T, R any] func(ctx context.Context, req T) (R, error)

// Handle implements the Handler interface.
func (f HandlerFunc[T, R]) Handle(ctx context.Context, req T) (R, error) {
	return f(ctx, req)
}

// Proc (procedure) processes a command without returning a result.
// Use this for fire-and-forget commands that embed Void.
//
// Example:
//
//	type DeactivateUserProc struct {
//	    db *sql.DB
//	}
//
//	func (p *DeactivateUserProc) Run(ctx context.Context, cmd DeactivateUser) error {
//	    _, err := p.db.ExecContext(ctx, "UPDATE users SET active = false WHERE id = $1", cmd.ID)
//	    return err
//	}
type Proc[T any] interface {
	Run(ctx context.Context, req T) error
}

// ProcFunc is a function adapter for Proc.
type ProcFunc[T any] func(ctx context.Context, req T) error

// Run implements the Proc interface.
func (f ProcFunc[T]) Run(ctx context.Context, req T) error {
	return f(ctx, req)
}

// AsyncHandler is the asynchronous handler capability. Implement it when
// the handler manages its own concurrency, for example by multiplexing
// work onto an internal pool:
//
//	func (h *BatchLookup) HandleAsync(ctx context.Context, q Lookup) *requestum.Pending[Result] {
//	    return requestum.Go(func() (Result, error) { return h.pool.Submit(ctx, q) })
//	}
//
// The pipeline awaits the returned Pending, so async handlers compose
// with middleware and policies exactly like synchronous ones.
type AsyncHandler[T, R any] interface {
	HandleAsync(ctx context.Context, req T) *Pending[R]
}

// Receiver consumes an event. Any number of receivers may be subscribed
// for one event type; a failing receiver does not stop the others.
type Receiver[E any] interface {
	Receive(ctx context.Context, event E) error
}

// ReceiverFunc is a function adapter for Receiver.
type ReceiverFunc[E any] func(ctx context.Context, event E) error

// Receive implements the Receiver interface.
func (f ReceiverFunc[E]) Receive(ctx context.Context, event E) error {
	return f(ctx, event)
}

// AsyncReceiver is the asynchronous receiver capability. Fan-out awaits
// the returned Pending before moving to the next receiver.
type AsyncReceiver[E any] interface {
	ReceiveAsync(ctx context.Context, event E) *Pending[Unit]
}

// Invoker is the uniform callable every pipeline layer presents to the
// layer outside it, whether the layer is a handler, a policy decorator,
// or middleware.
type Invoker[T, R any] func(ctx context.Context, req T) (R, error)

// Middleware wraps the next pipeline layer. It runs logic before and
// after next, and may short-circuit by not calling next at all.
//
// Middleware registered with Use is generic over all requests and
// operates on Middleware[any, any]; middleware registered with UseFor is
// typed to one request/response pair.
type Middleware[T, R any] interface {
	Invoke(ctx context.Context, req T, next Invoker[T, R]) (R, error)
}

// MiddlewareFunc is a function adapter for Middleware.
type MiddlewareFunc[T, R any] func(ctx context.Context, req T, next Invoker[T, R]) (R, error)

// Invoke implements the Middleware interface.
func (f MiddlewareFunc[T, R]) Invoke(ctx context.Context, req T, next Invoker[T, R]) (R, error) {
	return f(ctx, req, next)
}

var (
	_ Handler[struct{}, int] = (HandlerFunc[struct{}, int])(nil)
	_ Proc[struct{}]         = (ProcFunc[struct{}])(nil)
	_ Receiver[struct{}]     = (ReceiverFunc[struct{}])(nil)
	_ Middleware[any, any]   = (MiddlewareFunc[any, any])(nil)
)
