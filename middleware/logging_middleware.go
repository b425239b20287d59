package middleware

import (
	"async-rpc/client"

	"go.uber.org/zap"
)

// Logging logs every call's outcome once it completes.
func Logging(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("call")
	return func(next SubmitFunc) SubmitFunc {
		return func(c *client.Call) error {
			c.WrapCallback(func(cb client.Callback) client.Callback {
				return func(r client.Result) {
					fields := []zap.Field{
						zap.String("method", r.Method),
						zap.Int32("seq", r.SeqID),
						zap.Duration("elapsed", r.Elapsed),
					}
					if r.Err != nil {
						fields = append(fields, zap.Stringer("class", client.Classify(r.Err)), zap.Error(r.Err))
						logger.Warn("call failed", fields...)
					} else {
						logger.Debug("call completed", fields...)
					}
					if cb != nil {
						cb(r)
					}
				}
			})
			if err := next(c); err != nil {
				logger.Warn("submit rejected", zap.String("method", c.Method()), zap.Int32("seq", c.SeqID()), zap.Error(err))
				return err
			}
			return nil
		}
	}
}
