// Package requestum provides in-process request dispatch: commands and
// queries routed to exactly one handler, events fanned out to any number
// of receivers, with tag-based routing, a middleware pipeline, and
// per-handler retry and timeout policies.
//
// The package keeps transport, persistence, and process topology out of
// scope. It is the seam between the code that wants something done and
// the code that does it, letting callers depend on request types
// instead of handler implementations.
//
// # Quick Start
//
// Define a request type by embedding Returns with its response type:
//
//	type FindUser struct {
//	    requestum.Returns[User]
//	    ID string
//	}
//
// Define a handler and register it:
//
//	type FindUserHandler struct {
//	    db *sql.DB
//	}
//
//	func (h *FindUserHandler) Handle(ctx context.Context, q FindUser) (User, error) {
//	    return loadUser(ctx, h.db, q.ID)
//	}
//
//	m := requestum.New()
//	requestum.Must(requestum.Register(m, &FindUserHandler{db: db}))
//
// Dispatch with both type parameters explicit:
//
//	user, err := requestum.Execute[FindUser, User](ctx, m, FindUser{ID: id})
//
// Commands without a result embed Void and register through
// RegisterProc; events are plain structs delivered with Publish:
//
//	type DeactivateUser struct {
//	    requestum.Void
//	    ID string
//	}
//
//	type UserDeactivated struct {
//	    ID string
//	}
//
//	requestum.RegisterProc(m, &DeactivateUserProc{db: db})
//	requestum.Subscribe(m, &AuditTrail{db: db})
//
//	_, err := requestum.Execute[DeactivateUser, requestum.Unit](ctx, m, DeactivateUser{ID: id})
//	err = requestum.Publish(ctx, m, UserDeactivated{ID: id})
//
// # Request Taxonomy
//
// Three cardinalities, fixed at definition time:
//
//   - Commands and queries embed Returns[R] (or Void) and resolve to
//     exactly one handler. Dispatch returns the handler's typed result.
//   - Events embed nothing and fan out to zero or more receivers,
//     sequentially, collecting every failure.
//
// A type is enrolled as one or the other at first registration; the
// registry rejects a type registered as both.
//
// # Tags
//
// Tags select among competing registrations without inventing new
// request types. A request carries tags by implementing Tagged; a
// mediator adds global tags ahead of them (WithGlobalTags). Handlers
// register under at most one tag; the first effective tag with a
// registration wins, falling back to the untagged handler:
//
//	requestum.Register(m, &FindUserHandler{db: db})                            // fallback
//	requestum.Register(m, &FindUserCache{redis: rdb}, requestum.ForTag("cached"))
//
// Event receivers under matching tags are unioned with the untagged
// set, each receiver running once. Middleware may carry several tags
// and joins the pipeline when any of them matches.
//
// # Middleware
//
// Middleware wraps dispatch in selection order (first installed runs
// outermost) and can short-circuit by not calling next:
//
//	requestum.Use(m, middleware.Recover())
//	requestum.Use(m, middleware.Logging(nil))
//	requestum.UseFor(m, auditQueries)                       // one request type
//	requestum.Use(m, onlyForBilling, requestum.ForTag("billing"))
//
// Middleware applies to commands and queries only; event fan-out
// invokes receivers directly.
//
// # Policies
//
// Retry and timeout attach to handler implementation types, not request
// types, either at registration or later through the store:
//
//	requestum.Register(m, &SyncLedger{client: client},
//	    requestum.WithRetry(3),
//	    requestum.WithTimeout(2*time.Second),
//	)
//	m.Policies().SetRetry(reflect.TypeOf(&SyncLedger{}), 5)
//
// Retry wraps timeout, so every attempt gets a fresh window. Exhausted
// attempts surface an AggregateError with every cause in order; a fired
// timer surfaces a TimeoutError; the caller's own cancellation is
// always propagated unchanged. WithBackoff installs a
// cenkalti/backoff strategy between attempts.
//
// # Asynchronous Dispatch
//
// Execute and Publish block the calling goroutine for the life of the
// pipeline. ExecuteAsync and PublishAsync run the same pipeline on a
// new goroutine and hand back a Pending immediately:
//
//	p := requestum.ExecuteAsync[FindUser, User](ctx, m, FindUser{ID: id})
//	user, err := p.Wait(ctx)
//
// Handlers can be asynchronous too (AsyncHandler, AsyncReceiver); the
// pipeline awaits them, so middleware and policies apply unchanged.
//
// # Hooks
//
// Hooks observe dispatch without joining the pipeline:
//
//	m := requestum.New(
//	    requestum.WithOnDispatch(func(ctx context.Context, info requestum.Info) context.Context {
//	        return logx.WithCtx(ctx, slog.String("request", info.RequestType.String()))
//	    }),
//	    requestum.WithOnFailure(func(ctx context.Context, info requestum.Info, err error, d time.Duration) {
//	        metrics.Incr("dispatch.failure", "request:"+info.RequestType.String())
//	    }),
//	)
//
// Multiple hooks of the same kind run in order; OnDispatch chains the
// context through each.
//
// # Envelope Ingestion
//
// Hosts consuming raw JSON (queue bodies, webhook payloads) route them
// into typed dispatch through an Ingestor: formats recognize envelope
// shapes by discriminator, extract a routing key, tags, and payload,
// and bindings decode the payload into a request or event type:
//
//	in := requestum.NewIngestor(m)
//	in.AddFormat(requestum.JSONFormat("bus", requestum.HasFields("detail-type", "detail"),
//	    "detail-type", requestum.WithPayloadPath("detail")))
//	requestum.BindRequest[ReserveStock, Reservation](in, "stock/reserve")
//	requestum.BindEvent[OrderShipped](in, "order/shipped")
//
//	err := in.Process(ctx, rawMessageBytes)
//
// Matching uses cheap field probes before parsing, with adaptive
// ordering (the last matched format is tried first on subsequent
// messages).
//
// # Thread Safety
//
// A Mediator is safe for concurrent dispatch. Registration is intended
// for startup; registering while dispatches run is safe, but whether a
// concurrent dispatch sees the new registration is unspecified. An
// Ingestor must be fully configured before its first Process call.
package requestum
