package requestum

import (
	"fmt"
	"reflect"
	"time"
)

// UnresolvedError reports that dispatch found no registration after tag
// resolution and the untagged fallback. For events it is returned only
// when the mediator requires at least one receiver.
type UnresolvedError struct {
	Kind        Kind
	RequestType reflect.Type
	Tags        []string
}

func (e *UnresolvedError) Error() string {
	noun := "handler"
	if e.Kind == KindEvent {
		noun = "receivers"
	}
	if len(e.Tags) == 0 {
		return fmt.Sprintf("requestum: no %s registered for %s", noun, e.RequestType)
	}
	return fmt.Sprintf("requestum: no %s registered for %s (tags %v)", noun, e.RequestType, e.Tags)
}

// AggregateError carries every failure collected by the retry decorator
// (all attempts failed) or by event fan-out (one or more receivers
// failed). Causes are in attempt or invocation order; none is dropped.
type AggregateError struct {
	Causes []error
}

func (e *AggregateError) Error() string {
	switch len(e.Causes) {
	case 0:
		return "requestum: aggregate failure"
	case 1:
		return fmt.Sprintf("requestum: 1 failure: %v", e.Causes[0])
	default:
		return fmt.Sprintf("requestum: %d failures, first: %v", len(e.Causes), e.Causes[0])
	}
}

// Unwrap exposes the causes to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error {
	return e.Causes
}

// TimeoutError reports that a handler's timeout policy expired. It is
// produced only when the local timer fired; caller cancellation is
// propagated unchanged instead.
type TimeoutError struct {
	Handler reflect.Type
	Limit   time.Duration

	err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("requestum: %s timed out after %s", e.Handler, e.Limit)
}

// Unwrap returns the underlying context error, so
// errors.Is(err, context.DeadlineExceeded) holds for timeouts.
func (e *TimeoutError) Unwrap() error {
	return e.err
}

// PanicError is a recovered panic: captured per receiver during event
// fan-out, and by middleware.Recover when installed on the pipeline.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("requestum: panic: %v", e.Value)
}
