package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// RequestLogger writes one structured line per request. Responses with a
// status at or above errorFrom are logged at error level.
func RequestLogger(log logrus.FieldLogger, errorFrom int) echo.MiddlewareFunc {
	if errorFrom <= 0 {
		errorFrom = http.StatusInternalServerError
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			status := c.Response().Status
			fields := logrus.Fields{
				"method":     req.Method,
				"route":      c.Path(),
				"path":       req.URL.Path,
				"status":     status,
				"latency_ms": time.Since(start).Milliseconds(),
				"ip":         c.RealIP(),
			}
			if id, ok := CustomerID(c); ok {
				fields["customer_id"] = id
			}
			if sc := trace.SpanContextFromContext(req.Context()); sc.HasTraceID() {
				fields["trace_id"] = sc.TraceID().String()
			}
			entry := log.WithFields(fields)
			switch {
			case status >= errorFrom:
				if err != nil {
					entry = entry.WithError(err)
				}
				entry.Error("request failed")
			default:
				entry.Info("request")
			}
			return nil
		}
	}
}
