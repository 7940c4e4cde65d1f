package requestum

import "reflect"

// effectiveTags builds the tag sequence for one dispatch: global tags,
// then the request's own tags, then per-call extras (envelope tags from
// the ingestion bridge). Order is preserved and duplicates are allowed.
func effectiveTags(global []string, req any, extra []string) []string {
	var own []string
	if tg, ok := req.(Tagged); ok {
		own = tg.Tags()
	}
	if len(global) == 0 && len(extra) == 0 {
		return own
	}
	out := make([]string, 0, len(global)+len(own)+len(extra))
	out = append(out, global...)
	out = append(out, own...)
	out = append(out, extra...)
	return out
}

// resolveSingle picks the handler for a command or query: the first
// effective tag with a registration wins, then the untagged fallback.
// Empty strings in the sequence are not tags and are skipped.
func resolveSingle(r *Registry, t reflect.Type, tags []string) (*registration, bool) {
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if reg, ok := r.single(t, tag); ok {
			return reg, true
		}
	}
	return r.single(t, "")
}

// resolveReceivers collects the fan-out set for an event: the untagged
// bucket, then every effective tag's bucket, deduplicated by receiver
// identity with the first occurrence keeping its position.
func resolveReceivers(r *Registry, t reflect.Type, tags []string) []*registration {
	var out []*registration
	seen := make(map[any]struct{})
	add := func(regs []*registration) {
		for _, reg := range regs {
			if _, dup := seen[reg.ident]; dup {
				continue
			}
			seen[reg.ident] = struct{}{}
			out = append(out, reg)
		}
	}
	add(r.receivers(t, ""))
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		add(r.receivers(t, tag))
	}
	return out
}

// resolveMiddleware orders the middleware for one dispatch: the untagged
// bucket first, then each effective tag's bucket in tag order. Selection
// order is wrapping order; the first entry ends up outermost.
func resolveMiddleware(r *Registry, t reflect.Type, tags []string) []*registration {
	out := r.middlewareBucket(t, "")
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		out = append(out, r.middlewareBucket(t, tag)...)
	}
	return out
}
