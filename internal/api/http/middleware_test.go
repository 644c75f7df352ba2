package httpapi

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/i474232898/weather-forecast-api/internal/metrics"
)

func TestMetrics_RecordsStatusSeenByClient(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).SendString(err.Error())
		},
	})
	app.Use(Metrics())
	app.Use(recover.New())
	app.Get("/mw-test/plain-error", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})
	app.Get("/mw-test/panic", func(c *fiber.Ctx) error {
		panic("boom")
	})
	app.Get("/mw-test/teapot", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})
	app.Get("/mw-test/ok", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	tests := []struct {
		path   string
		status int
	}{
		{"/mw-test/plain-error", http.StatusInternalServerError},
		{"/mw-test/panic", http.StatusInternalServerError},
		{"/mw-test/teapot", http.StatusTeapot},
		{"/mw-test/ok", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.NoError(t, err)
			require.Equal(t, tt.status, resp.StatusCode)

			label := func(status int) float64 {
				return testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues(http.MethodGet, tt.path, strconv.Itoa(status)))
			}
			assert.Equal(t, float64(1), label(tt.status))
			if tt.status != http.StatusOK {
				assert.Equal(t, float64(0), label(http.StatusOK))
			}
		})
	}
}

func TestRequestLogger_StatusForPlainError(t *testing.T) {
	app := fiber.New()
	app.Use(RequestLogger(zap.NewNop(), time.Second))
	app.Get("/fail", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/fail", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Process-Time"))
}
