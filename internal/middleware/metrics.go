package middleware

import (
	"time"

	"findonlu-backend/internal/pkg/metrics"
	"findonlu-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Metrics observes request count and latency. The route pattern is used as the path
// label so listing ids do not blow up cardinality.
func Metrics(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			status = response.StatusFor(err)
		}
		path := c.Route().Path
		if path == "" || (path == "/" && c.Path() != "/") {
			path = "unmatched"
		}
		m.ObserveHTTPRequest(c.Method(), path, status, time.Since(start))
		return err
	}
}
