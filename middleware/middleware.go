// Package middleware wraps call submission the way handlers are wrapped on a
// server: each Middleware sees the call before the engine does and may
// reject it, adjust it or observe its completion.
package middleware

import "async-rpc/client"

// SubmitFunc hands a prepared call onward.
type SubmitFunc func(c *client.Call) error

// Submit implements client.Submitter.
func (f SubmitFunc) Submit(c *client.Call) error { return f(c) }

// Middleware decorates a SubmitFunc.
type Middleware func(next SubmitFunc) SubmitFunc

// Chain composes middlewares so the first listed runs first:
// Chain(A, B, C)(s) → A(B(C(s))).
func Chain(middlewares ...Middleware) Middleware {
	return func(next SubmitFunc) SubmitFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// Wrap returns a Submitter that runs middlewares in front of s.
func Wrap(s client.Submitter, middlewares ...Middleware) client.Submitter {
	return Chain(middlewares...)(s.Submit)
}
