package middleware

import (
	"context"
	"reflect"

	"github.com/go-playground/validator/v10"

	"github.com/PogovorovDaniil/Requestum"
)

// Validatable is implemented by requests that validate themselves.
// It is checked after struct-tag rules. Implement it with a value
// receiver so the check sees requests passed by value.
type Validatable interface {
	Validate() error
}

// Validate returns middleware that checks each request before its
// handler runs: go-playground struct-tag rules first, then the
// Validatable capability when implemented. A failure stops the pipeline
// with the validation error and the handler never sees the request.
//
// Example:
//
//	type ReserveStock struct {
//	    requestum.Returns[Reservation]
//	    SKU   string `validate:"required"`
//	    Count int    `validate:"gt=0"`
//	}
//
//	requestum.Use(m, middleware.Validate())
func Validate() requestum.Middleware[any, any] {
	v := validator.New(validator.WithRequiredStructEnabled())
	return requestum.MiddlewareFunc[any, any](func(ctx context.Context, req any, next requestum.Invoker[any, any]) (any, error) {
		if isStructLike(req) {
			if err := v.StructCtx(ctx, req); err != nil {
				return nil, err
			}
		}
		if val, ok := req.(Validatable); ok {
			if err := val.Validate(); err != nil {
				return nil, err
			}
		}
		return next(ctx, req)
	})
}

func isStructLike(req any) bool {
	t := reflect.TypeOf(req)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t != nil && t.Kind() == reflect.Struct
}
