package middleware

import (
	"errors"

	"async-rpc/client"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when a submission exceeds the configured rate.
var ErrRateLimited = errors.New("middleware: rate limit exceeded")

// RateLimit admits at most r calls per second with bursts of burst, using a
// token bucket. Rejected calls never reach the engine.
func RateLimit(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next SubmitFunc) SubmitFunc {
		return func(c *client.Call) error {
			if !limiter.Allow() {
				return ErrRateLimited
			}
			return next(c)
		}
	}
}
