package requestum

import (
	"context"
	"reflect"
	"runtime/debug"
	"time"
)

// Publish delivers an event to every matching receiver, sequentially and
// in registration order. The fan-out set is the union of the untagged
// receivers and the receivers under each effective tag, with duplicates
// removed. Every receiver runs even when an earlier one fails; the
// failures come back joined in an AggregateError.
//
// With no matching receivers, Publish returns an UnresolvedError unless
// the mediator was built with WithRequireReceivers(false).
//
// Example:
//
//	if err := requestum.Publish(ctx, m, UserCreated{ID: id, Email: email}); err != nil {
//	    slog.ErrorContext(ctx, "fan-out incomplete", "error", err)
//	}
func Publish[E any](ctx context.Context, m *Mediator, event E) error {
	return m.publish(ctx, reflect.TypeOf((*E)(nil)).Elem(), event, nil)
}

// PublishAsync runs the fan-out on a new goroutine and returns the
// in-flight outcome immediately.
func PublishAsync[E any](ctx context.Context, m *Mediator, event E) *Pending[Unit] {
	return Go(func() (Unit, error) {
		return Unit{}, Publish(ctx, m, event)
	})
}

func (m *Mediator) publish(ctx context.Context, t reflect.Type, event any, extraTags []string) error {
	tags := effectiveTags(m.globalTags, event, extraTags)
	regs := resolveReceivers(m.registry, t, tags)
	if len(regs) == 0 {
		if !m.requireReceivers {
			return nil
		}
		m.hooks.fireUnresolved(ctx, Info{Kind: KindEvent, RequestType: t})
		return &UnresolvedError{Kind: KindEvent, RequestType: t, Tags: tags}
	}
	var causes []error
	for _, reg := range regs {
		info := Info{Kind: KindEvent, RequestType: t, Handler: reg.handler, Tag: reg.tag}
		rctx := m.hooks.fireDispatch(ctx, info)
		start := time.Now()
		if err := deliver(rctx, reg, event); err != nil {
			m.hooks.fireFailure(rctx, info, err, time.Since(start))
			causes = append(causes, err)
			continue
		}
		m.hooks.fireSuccess(rctx, info, time.Since(start))
	}
	if len(causes) > 0 {
		return &AggregateError{Causes: causes}
	}
	return nil
}

// deliver invokes one receiver, converting a panic into a PanicError so
// the remaining receivers still run.
func deliver(ctx context.Context, reg *registration, event any) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()
	_, err = reg.invoke(ctx, event)
	return err
}
