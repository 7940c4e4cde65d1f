// Package middleware provides ready-made pipeline middleware for
// requestum: validation, logging, correlation, throttling, and panic
// recovery.
//
// Every component returns a requestum.Middleware[any, any], so each can
// be installed for all requests with Use, or scoped by tag:
//
//	requestum.Use(m, middleware.Recover())
//	requestum.Use(m, middleware.Logging(nil))
//	requestum.Use(m, middleware.Throttle(lim), requestum.ForTag("external"))
package middleware
