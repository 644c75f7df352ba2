package httpapi

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/i474232898/weather-forecast-api/internal/metrics"
)

// RequestLogger logs every request with its latency and request id, sets
// X-Process-Time and warns when a request takes longer than slow.
func RequestLogger(logger *zap.Logger, slow time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		elapsed := time.Since(start)

		c.Set("X-Process-Time", fmt.Sprintf("%.4f", elapsed.Seconds()))

		status := responseStatus(c, err)

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", elapsed),
			zap.String("request_id", requestID(c)),
		}

		switch {
		case elapsed > slow:
			logger.Warn("slow request", fields...)
		case status >= fiber.StatusInternalServerError:
			logger.Error("request failed", append(fields, zap.Error(err))...)
		default:
			logger.Info("request", fields...)
		}
		return err
	}
}

// Metrics records request counts and latency per route.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := responseStatus(c, err)

		// Route pattern, not the raw path, to bound label cardinality.
		path := c.Route().Path
		metrics.ObserveHTTPRequest(c.Method(), path, strconv.Itoa(status), time.Since(start).Seconds())
		return err
	}
}

// responseStatus is the status the client will see once the error handler has run.
func responseStatus(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var e *fiber.Error
	if errors.As(err, &e) {
		return e.Code
	}
	return fiber.StatusInternalServerError
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}
