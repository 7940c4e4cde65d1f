package requestum

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
)

type chainReq struct {
	Returns[string]
	names []string
}

func (q chainReq) Tags() []string { return q.names }

type otherReq struct {
	Returns[int]
}

type pipelineEvent struct{}

// traceMW records its position around the rest of the chain.
func traceMW(log *[]string, name string) Middleware[any, any] {
	return MiddlewareFunc[any, any](func(ctx context.Context, req any, next Invoker[any, any]) (any, error) {
		*log = append(*log, name+"-before")
		res, err := next(ctx, req)
		*log = append(*log, name+"-after")
		return res, err
	})
}

func TestMiddlewareOrder(t *testing.T) {
	m := New()
	var log []string
	Must(Use(m, traceMW(&log, "m1")))
	Must(Use(m, traceMW(&log, "m2")))
	Must(Use(m, traceMW(&log, "m3"), ForTag("traced")))
	Must(RegisterFunc(m, func(ctx context.Context, q chainReq) (string, error) {
		log = append(log, "handler")
		return "done", nil
	}))

	got, err := Execute[chainReq, string](context.Background(), m, chainReq{names: []string{"traced"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "done" {
		t.Errorf("result = %q, want %q", got, "done")
	}

	want := []string{"m1-before", "m2-before", "m3-before", "handler", "m3-after", "m2-after", "m1-after"}
	if !slices.Equal(log, want) {
		t.Errorf("order = %v, want %v", log, want)
	}
}

func TestUniversalAndTypedMiddlewareInterleave(t *testing.T) {
	m := New()
	var log []string
	Must(Use(m, traceMW(&log, "u1")))
	Must(UseFor[chainReq, string](m, MiddlewareFunc[chainReq, string](func(ctx context.Context, q chainReq, next Invoker[chainReq, string]) (string, error) {
		log = append(log, "typed-before")
		res, err := next(ctx, q)
		log = append(log, "typed-after")
		return res, err
	})))
	Must(Use(m, traceMW(&log, "u2")))
	Must(RegisterFunc(m, func(ctx context.Context, q chainReq) (string, error) {
		log = append(log, "handler")
		return "ok", nil
	}))

	_, err := Execute[chainReq, string](context.Background(), m, chainReq{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"u1-before", "typed-before", "u2-before", "handler", "u2-after", "typed-after", "u1-after"}
	if !slices.Equal(log, want) {
		t.Errorf("order = %v, want %v", log, want)
	}
}

func TestTypedMiddlewareScopedToItsType(t *testing.T) {
	m := New()
	otherRan := false
	Must(UseFor[otherReq, int](m, MiddlewareFunc[otherReq, int](func(ctx context.Context, q otherReq, next Invoker[otherReq, int]) (int, error) {
		otherRan = true
		return next(ctx, q)
	})))
	Must(RegisterFunc(m, func(ctx context.Context, q chainReq) (string, error) {
		return "ok", nil
	}))

	if _, err := Execute[chainReq, string](context.Background(), m, chainReq{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if otherRan {
		t.Error("middleware for otherReq ran on a chainReq dispatch")
	}
}

func TestMiddlewareShortCircuit(t *testing.T) {
	m := New()
	handlerRan := false
	Must(Use(m, MiddlewareFunc[any, any](func(ctx context.Context, req any, next Invoker[any, any]) (any, error) {
		return "cached", nil
	})))
	Must(RegisterFunc(m, func(ctx context.Context, q chainReq) (string, error) {
		handlerRan = true
		return "live", nil
	}))

	got, err := Execute[chainReq, string](context.Background(), m, chainReq{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "cached" {
		t.Errorf("result = %q, want %q", got, "cached")
	}
	if handlerRan {
		t.Error("handler ran despite the short circuit")
	}
}

func TestMiddlewareWrapsHandlerError(t *testing.T) {
	m := New()
	base := errors.New("boom")
	Must(Use(m, MiddlewareFunc[any, any](func(ctx context.Context, req any, next Invoker[any, any]) (any, error) {
		res, err := next(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		return res, nil
	})))
	Must(RegisterFunc(m, func(ctx context.Context, q chainReq) (string, error) {
		return "", base
	}))

	_, err := Execute[chainReq, string](context.Background(), m, chainReq{})
	if !errors.Is(err, base) {
		t.Errorf("error = %v, want wrapped %v", err, base)
	}
}

func TestPoliciesSitInsideMiddleware(t *testing.T) {
	m := New()
	mwCalls := 0
	handlerCalls := 0
	Must(Use(m, MiddlewareFunc[any, any](func(ctx context.Context, req any, next Invoker[any, any]) (any, error) {
		mwCalls++
		return next(ctx, req)
	})))
	Must(RegisterFunc(m, func(ctx context.Context, q chainReq) (string, error) {
		handlerCalls++
		return "", errors.New("flaky")
	}, WithRetry(3)))

	_, err := Execute[chainReq, string](context.Background(), m, chainReq{})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if mwCalls != 1 {
		t.Errorf("middleware ran %d times, want 1", mwCalls)
	}
	if handlerCalls != 3 {
		t.Errorf("handler ran %d times, want 3", handlerCalls)
	}
}

func TestEventsBypassMiddleware(t *testing.T) {
	m := New()
	mwCalls := 0
	Must(Use(m, MiddlewareFunc[any, any](func(ctx context.Context, req any, next Invoker[any, any]) (any, error) {
		mwCalls++
		return next(ctx, req)
	})))
	received := false
	Must(SubscribeFunc(m, func(ctx context.Context, e pipelineEvent) error {
		received = true
		return nil
	}))

	if err := Publish(context.Background(), m, pipelineEvent{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !received {
		t.Error("receiver did not run")
	}
	if mwCalls != 0 {
		t.Errorf("middleware ran %d times on an event, want 0", mwCalls)
	}
}

func TestTaggedMiddlewareNeedsItsTag(t *testing.T) {
	m := New()
	calls := 0
	Must(Use(m, MiddlewareFunc[any, any](func(ctx context.Context, req any, next Invoker[any, any]) (any, error) {
		calls++
		return next(ctx, req)
	}), ForTag("metered")))
	Must(RegisterFunc(m, func(ctx context.Context, q chainReq) (string, error) {
		return "ok", nil
	}))

	if _, err := Execute[chainReq, string](context.Background(), m, chainReq{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 0 {
		t.Errorf("tagged middleware ran %d times without its tag, want 0", calls)
	}

	if _, err := Execute[chainReq, string](context.Background(), m, chainReq{names: []string{"metered"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("tagged middleware ran %d times with its tag, want 1", calls)
	}
}

func TestMultiTagMiddlewareRunsPerMatchingBucket(t *testing.T) {
	m := New()
	calls := 0
	Must(Use(m, MiddlewareFunc[any, any](func(ctx context.Context, req any, next Invoker[any, any]) (any, error) {
		calls++
		return next(ctx, req)
	}), ForTag("a"), ForTag("b")))
	Must(RegisterFunc(m, func(ctx context.Context, q chainReq) (string, error) {
		return "ok", nil
	}))

	if _, err := Execute[chainReq, string](context.Background(), m, chainReq{names: []string{"a", "b"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("middleware ran %d times with both tags, want 2", calls)
	}

	if _, err := Execute[chainReq, string](context.Background(), m, chainReq{names: []string{"a"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("middleware ran %d times in total, want 3", calls)
	}
}

func TestUse(t *testing.T) {
	t.Run("rejects nil middleware", func(t *testing.T) {
		m := New()
		if err := Use(m, nil); err == nil {
			t.Error("expected error, got nil")
		}
	})

	t.Run("rejects policy options", func(t *testing.T) {
		m := New()
		err := Use(m, traceMW(new([]string), "x"), WithRetry(2))
		if err == nil {
			t.Error("expected error, got nil")
		}
	})

	t.Run("accepts several tags", func(t *testing.T) {
		m := New()
		if err := Use(m, traceMW(new([]string), "x"), ForTag("a"), ForTag("b")); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
