package requestum

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"
)

// Format recognizes one envelope shape and extracts routing information
// from it.
//
// Formats are registered with Ingestor.AddFormat and matched using their
// Discriminator before Parse is called, so detection stays cheap when
// several shapes share a consumer. The View handed to Parse is the one
// the discriminator matched against; use it for field extraction instead
// of re-parsing raw.
type Format interface {
	// Name returns the format identifier for hooks and errors.
	Name() string

	// Discriminator returns a predicate for cheap envelope detection.
	Discriminator() Discriminator

	// Parse extracts the envelope from a message this format claimed.
	Parse(v View, raw []byte) (Envelope, error)
}

// FormatFunc creates a Format from a name, discriminator, and parse
// function. Use for shapes that need custom extraction, a Replier, or
// a non-JSON inspector:
//
//	in.AddFormat(requestum.FormatFunc(
//	    "task",
//	    requestum.HasFields("taskToken", "input"),
//	    func(v requestum.View, raw []byte) (requestum.Envelope, error) {
//	        token, _ := v.GetString("taskToken")
//	        body, _ := v.GetBytes("input")
//	        return requestum.Envelope{
//	            Key:     "task/run",
//	            Payload: body,
//	            Replier: &taskReplier{token: token},
//	        }, nil
//	    },
//	))
func FormatFunc(name string, disc Discriminator, parse func(View, []byte) (Envelope, error)) Format {
	return &formatFunc{name: name, disc: disc, parse: parse}
}

type formatFunc struct {
	name  string
	disc  Discriminator
	parse func(View, []byte) (Envelope, error)
}

func (f *formatFunc) Name() string                               { return f.name }
func (f *formatFunc) Discriminator() Discriminator               { return f.disc }
func (f *formatFunc) Parse(v View, raw []byte) (Envelope, error) { return f.parse(v, raw) }

// JSONFormat builds a Format from field paths: the key field names the
// binding, the optional tags field carries per-message dispatch tags,
// and the optional payload field scopes what gets decoded (the whole
// message when unset).
//
// Example:
//
//	in.AddFormat(requestum.JSONFormat(
//	    "bus",
//	    requestum.HasFields("detail-type", "detail"),
//	    "detail-type",
//	    requestum.WithPayloadPath("detail"),
//	    requestum.WithTagsPath("detail.tags"),
//	))
func JSONFormat(name string, disc Discriminator, keyPath string, opts ...FormatOption) Format {
	f := &jsonFormat{name: name, disc: disc, keyPath: keyPath}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FormatOption configures a JSONFormat.
type FormatOption func(*jsonFormat)

// WithTagsPath names the field holding the envelope's dispatch tags, a
// JSON array of strings. A missing or malformed field means no tags.
func WithTagsPath(path string) FormatOption {
	return func(f *jsonFormat) {
		f.tagsPath = path
	}
}

// WithPayloadPath names the field holding the payload to decode. Unset,
// the whole message is the payload.
func WithPayloadPath(path string) FormatOption {
	return func(f *jsonFormat) {
		f.payloadPath = path
	}
}

type jsonFormat struct {
	name        string
	disc        Discriminator
	keyPath     string
	tagsPath    string
	payloadPath string
}

func (f *jsonFormat) Name() string                 { return f.name }
func (f *jsonFormat) Discriminator() Discriminator { return f.disc }

func (f *jsonFormat) Parse(v View, raw []byte) (Envelope, error) {
	key, ok := v.GetString(f.keyPath)
	if !ok {
		return Envelope{}, fmt.Errorf("requestum: format %s: no key at %q", f.name, f.keyPath)
	}
	env := Envelope{Key: key}
	if f.tagsPath != "" {
		if tags, ok := v.GetStrings(f.tagsPath); ok {
			env.Tags = tags
		}
	}
	if f.payloadPath == "" {
		env.Payload = json.RawMessage(raw)
		return env, nil
	}
	body, ok := v.GetBytes(f.payloadPath)
	if !ok {
		return Envelope{}, fmt.Errorf("requestum: format %s: no payload at %q", f.name, f.payloadPath)
	}
	env.Payload = json.RawMessage(body)
	return env, nil
}

// Envelope is the result of format parsing.
type Envelope struct {
	// Format is the name of the format that claimed the message. Process
	// stamps it; Parse implementations may leave it empty.
	Format string

	// Key is the routing key, matched against keys passed to BindRequest
	// and BindEvent.
	Key string

	// Tags are per-message dispatch tags, appended to the effective tag
	// sequence after the request's own tags.
	Tags []string

	// Payload is the raw JSON decoded into the bound type.
	Payload json.RawMessage

	// Replier sends responses back to the originator. Nil for
	// fire-and-forget shapes.
	//
	// When Replier is set and the key is bound to a request, a
	// successful dispatch marshals the result and calls Reply; a failed
	// one calls Fail. A bound event replies {} on success.
	Replier Replier
}

// Replier sends responses back to the message originator. Implement it
// in formats for request-response transports.
type Replier interface {
	// Reply sends a successful response with the given JSON payload.
	Reply(ctx context.Context, result json.RawMessage) error

	// Fail sends a failure response with the given error.
	Fail(ctx context.Context, err error) error
}

// DecodeError wraps a payload decode failure so hooks can identify it.
type DecodeError struct {
	Format string
	Key    string
	err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("requestum: decode payload for key %q (format %s): %v", e.Key, e.Format, e.err)
}

func (e *DecodeError) Unwrap() error { return e.err }

// Ingestor routes raw envelope bytes into typed dispatch.
//
// Usage:
//  1. Create an ingestor over a mediator with NewIngestor
//  2. Add formats with AddFormat (or AddGroup for custom inspectors)
//  3. Bind routing keys with BindRequest and BindEvent
//  4. Feed raw messages to Process
//
// Ingestor is safe for concurrent Process calls after configuration. Do
// not call AddFormat, AddGroup, or the Bind functions after the first
// Process.
type Ingestor struct {
	m                *Mediator
	defaultInspector Inspector
	defaultFormats   []Format
	groups           []formatGroup
	bindings         map[string]binding
	onUnmatched      []OnUnmatchedFunc
	onParseError     []OnParseErrorFunc
	onUnbound        []OnUnboundFunc
	onDecodeError    []OnDecodeErrorFunc

	// Adaptive ordering: try the last matched format first.
	lastMatch atomic.Value // stores string
}

// binding dispatches one parsed envelope through the mediator.
type binding func(ctx context.Context, env Envelope) error

// formatGroup holds formats that share an inspector.
type formatGroup struct {
	inspector Inspector
	formats   []Format
}

// OnUnmatchedFunc observes a message no format claimed. Returning nil
// skips the message; returning an error fails Process with it.
type OnUnmatchedFunc func(ctx context.Context, raw []byte) error

// OnParseErrorFunc observes a format whose Parse failed. Returning nil
// skips the message; returning an error fails Process with it.
type OnParseErrorFunc func(ctx context.Context, format string, err error) error

// OnUnboundFunc observes a parsed envelope whose key has no binding.
// Returning nil skips the message; returning an error fails Process.
type OnUnboundFunc func(ctx context.Context, format, key string) error

// OnDecodeErrorFunc observes a payload that did not decode into the
// bound type. Returning nil skips the message; returning an error fails
// Process.
type OnDecodeErrorFunc func(ctx context.Context, format, key string, err error) error

// IngestOption configures an Ingestor.
type IngestOption func(*Ingestor)

// WithInspector sets the inspector for formats added with AddFormat.
// The default is JSONInspector.
func WithInspector(i Inspector) IngestOption {
	return func(in *Ingestor) {
		in.defaultInspector = i
	}
}

// WithOnUnmatched adds a hook for messages no format claims. With at
// least one hook installed, an unmatched message is an error only if a
// hook says so; with none, it is always an error.
//
// Example:
//
//	requestum.WithOnUnmatched(func(ctx context.Context, raw []byte) error {
//	    slog.WarnContext(ctx, "dropping unrecognized message", "size", len(raw))
//	    return nil
//	})
func WithOnUnmatched(fn OnUnmatchedFunc) IngestOption {
	return func(in *Ingestor) {
		in.onUnmatched = append(in.onUnmatched, fn)
	}
}

// WithOnParseError adds a hook for envelopes that fail to parse. Same
// skip-or-fail contract as WithOnUnmatched.
func WithOnParseError(fn OnParseErrorFunc) IngestOption {
	return func(in *Ingestor) {
		in.onParseError = append(in.onParseError, fn)
	}
}

// WithOnUnbound adds a hook for keys with no binding. Same skip-or-fail
// contract as WithOnUnmatched.
func WithOnUnbound(fn OnUnboundFunc) IngestOption {
	return func(in *Ingestor) {
		in.onUnbound = append(in.onUnbound, fn)
	}
}

// WithOnDecodeError adds a hook for payloads that fail to decode. Same
// skip-or-fail contract as WithOnUnmatched.
func WithOnDecodeError(fn OnDecodeErrorFunc) IngestOption {
	return func(in *Ingestor) {
		in.onDecodeError = append(in.onDecodeError, fn)
	}
}

// NewIngestor creates an Ingestor dispatching into m.
func NewIngestor(m *Mediator, opts ...IngestOption) *Ingestor {
	in := &Ingestor{
		m:                m,
		defaultInspector: JSONInspector(),
		bindings:         make(map[string]binding),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// AddFormat registers a format under the default inspector. Formats are
// probed in registration order.
func (in *Ingestor) AddFormat(f Format) {
	in.defaultFormats = append(in.defaultFormats, f)
}

// AddGroup registers formats sharing a custom inspector. Groups are
// probed after the default group, in registration order.
func (in *Ingestor) AddGroup(inspector Inspector, formats ...Format) {
	in.groups = append(in.groups, formatGroup{inspector: inspector, formats: formats})
}

// BindRequest routes envelopes with the given key to the handler for T:
// decode the payload into T, dispatch with the envelope tags appended,
// and send the result through the Replier when the envelope carries one.
//
// Example:
//
//	requestum.BindRequest[ReserveStock, Reservation](in, "stock/reserve")
func BindRequest[T Request[R], R any](in *Ingestor, key string) error {
	if _, dup := in.bindings[key]; dup {
		return fmt.Errorf("requestum: key %q already bound", key)
	}
	t := reflect.TypeOf((*T)(nil)).Elem()
	in.bindings[key] = func(ctx context.Context, env Envelope) error {
		var req T
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			return &DecodeError{Format: env.Format, Key: env.Key, err: err}
		}
		res, err := in.m.dispatch(ctx, t, req, env.Tags)
		if env.Replier == nil {
			return err
		}
		if err != nil {
			if ferr := env.Replier.Fail(ctx, err); ferr != nil {
				return errors.Join(err, ferr)
			}
			return err
		}
		body, err := json.Marshal(res)
		if err != nil {
			return err
		}
		return env.Replier.Reply(ctx, body)
	}
	return nil
}

// BindEvent routes envelopes with the given key to event fan-out for E.
//
// Example:
//
//	requestum.BindEvent[OrderShipped](in, "order/shipped")
func BindEvent[E any](in *Ingestor, key string) error {
	if _, dup := in.bindings[key]; dup {
		return fmt.Errorf("requestum: key %q already bound", key)
	}
	t := reflect.TypeOf((*E)(nil)).Elem()
	in.bindings[key] = func(ctx context.Context, env Envelope) error {
		var event E
		if err := json.Unmarshal(env.Payload, &event); err != nil {
			return &DecodeError{Format: env.Format, Key: env.Key, err: err}
		}
		err := in.m.publish(ctx, t, event, env.Tags)
		if env.Replier == nil {
			return err
		}
		if err != nil {
			if ferr := env.Replier.Fail(ctx, err); ferr != nil {
				return errors.Join(err, ferr)
			}
			return err
		}
		return env.Replier.Reply(ctx, json.RawMessage(`{}`))
	}
	return nil
}

// Process routes one raw message: match a format by discriminator,
// parse the envelope, look up the binding by key, decode, dispatch.
//
// Example:
//
//	// In a queue consumer
//	func (c *Consumer) HandleMessage(ctx context.Context, body []byte) error {
//	    return c.ingestor.Process(ctx, body)
//	}
func (in *Ingestor) Process(ctx context.Context, raw []byte) error {
	f, view := in.match(raw)
	if f == nil {
		return in.handleUnmatched(ctx, raw)
	}
	env, err := f.Parse(view, raw)
	if err != nil {
		return in.handleParseError(ctx, f.Name(), err)
	}
	env.Format = f.Name()

	b, bound := in.bindings[env.Key]
	if !bound {
		return in.handleUnbound(ctx, env.Format, env.Key)
	}

	err = b(ctx, env)
	var derr *DecodeError
	if errors.As(err, &derr) {
		return in.handleDecodeError(ctx, derr)
	}
	return err
}

// viewCache caches parsed views per inspector so matching several
// formats against one message parses it at most once per inspector.
type viewCache struct {
	raw   []byte
	views map[Inspector]viewResult
}

type viewResult struct {
	view View
	ok   bool
}

func newViewCache(raw []byte) *viewCache {
	return &viewCache{
		raw:   raw,
		views: make(map[Inspector]viewResult),
	}
}

func (c *viewCache) get(insp Inspector) (View, bool) {
	if result, ok := c.views[insp]; ok {
		return result.view, result.ok
	}
	view, err := insp.Inspect(c.raw)
	if err != nil {
		c.views[insp] = viewResult{ok: false}
		return nil, false
	}
	c.views[insp] = viewResult{view: view, ok: true}
	return view, true
}

// match finds a format whose discriminator claims the raw message,
// trying the last matched format first.
func (in *Ingestor) match(raw []byte) (Format, View) {
	cache := newViewCache(raw)

	if v := in.lastMatch.Load(); v != nil {
		if name, ok := v.(string); ok && name != "" {
			if f, view := in.tryFormat(cache, name); f != nil {
				return f, view
			}
		}
	}

	f, view := in.matchAll(cache)
	if f != nil {
		in.lastMatch.Store(f.Name())
	}
	return f, view
}

// tryFormat attempts to match one format by name.
func (in *Ingestor) tryFormat(cache *viewCache, name string) (Format, View) {
	if len(in.defaultFormats) > 0 {
		if view, ok := cache.get(in.defaultInspector); ok {
			for _, f := range in.defaultFormats {
				if f.Name() == name && f.Discriminator().Match(view) {
					return f, view
				}
			}
		}
	}
	for _, g := range in.groups {
		view, ok := cache.get(g.inspector)
		if !ok {
			continue
		}
		for _, f := range g.formats {
			if f.Name() == name && f.Discriminator().Match(view) {
				return f, view
			}
		}
	}
	return nil, nil
}

// matchAll probes every group in order.
func (in *Ingestor) matchAll(cache *viewCache) (Format, View) {
	if len(in.defaultFormats) > 0 {
		if view, ok := cache.get(in.defaultInspector); ok {
			for _, f := range in.defaultFormats {
				if f.Discriminator().Match(view) {
					return f, view
				}
			}
		}
	}
	for _, g := range in.groups {
		view, ok := cache.get(g.inspector)
		if !ok {
			continue
		}
		for _, f := range g.formats {
			if f.Discriminator().Match(view) {
				return f, view
			}
		}
	}
	return nil, nil
}

func (in *Ingestor) handleUnmatched(ctx context.Context, raw []byte) error {
	for _, fn := range in.onUnmatched {
		if err := fn(ctx, raw); err != nil {
			return err
		}
	}
	if len(in.onUnmatched) > 0 {
		return nil
	}
	return fmt.Errorf("requestum: no format matched message")
}

func (in *Ingestor) handleParseError(ctx context.Context, format string, parseErr error) error {
	for _, fn := range in.onParseError {
		if err := fn(ctx, format, parseErr); err != nil {
			return err
		}
	}
	if len(in.onParseError) > 0 {
		return nil
	}
	return fmt.Errorf("requestum: parse envelope (format %s): %w", format, parseErr)
}

func (in *Ingestor) handleUnbound(ctx context.Context, format, key string) error {
	for _, fn := range in.onUnbound {
		if err := fn(ctx, format, key); err != nil {
			return err
		}
	}
	if len(in.onUnbound) > 0 {
		return nil
	}
	return fmt.Errorf("requestum: no binding for key %q (format %s)", key, format)
}

func (in *Ingestor) handleDecodeError(ctx context.Context, derr *DecodeError) error {
	for _, fn := range in.onDecodeError {
		if err := fn(ctx, derr.Format, derr.Key, derr.err); err != nil {
			return err
		}
	}
	if len(in.onDecodeError) > 0 {
		return nil
	}
	return derr
}
