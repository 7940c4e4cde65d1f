package requestum

// Unit is the response type of requests that produce no result.
type Unit struct{}

// Returns is an embeddable marker that fixes a request type's response
// type at definition time. Commands and queries embed it:
//
//	type FindUser struct {
//	    requestum.Returns[User]
//	    ID string
//	}
//
// Commands without a result embed Void instead. Events embed nothing.
type Returns[R any] struct{}

func (Returns[R]) requestumResult() (r R) { return }

// Request is the constraint satisfied by any type embedding Returns[R].
// It ties a request type to its response type so that mismatched pairs
// fail at compile time:
//
//	requestum.Execute[FindUser, User](ctx, m, q)   // ok
//	requestum.Execute[FindUser, int](ctx, m, q)    // does not compile
type Request[R any] interface {
	requestumResult() R
}

// Void marks commands that produce no result.
type Void = Returns[Unit]

// Tagged is implemented by request types that carry routing tags.
// Tags select among competing registrations: the effective tag sequence
// for a dispatch is the mediator's global tags followed by the request's
// own tags, in order. Tags compare by exact string equality; an empty
// string is not a tag.
type Tagged interface {
	Tags() []string
}

// Kind distinguishes the two dispatch cardinalities.
type Kind uint8

const (
	// KindRequest covers commands and queries: exactly one handler.
	KindRequest Kind = iota + 1
	// KindEvent covers events: zero or more receivers.
	KindEvent
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindEvent:
		return "event"
	default:
		return "unknown"
	}
}
