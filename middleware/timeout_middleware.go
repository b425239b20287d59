package middleware

import (
	"time"

	"async-rpc/client"
)

// DefaultTimeout gives calls submitted without a timeout a deadline of d.
func DefaultTimeout(d time.Duration) Middleware {
	return func(next SubmitFunc) SubmitFunc {
		return func(c *client.Call) error {
			if c.Timeout() == 0 {
				c.SetTimeout(d)
			}
			return next(c)
		}
	}
}
