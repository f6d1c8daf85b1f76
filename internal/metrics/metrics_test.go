package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"storefront/internal/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	app := fiber.New()
	app.Use(metrics.Middleware())
	app.Get("/items/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/metrics", metrics.Handler())

	before := testutil.ToFloat64(metrics.RequestTotal.WithLabelValues("GET", "/items/:id", "204"))

	resp, err := app.Test(httptest.NewRequest("GET", "/items/42", nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	after := testutil.ToFloat64(metrics.RequestTotal.WithLabelValues("GET", "/items/:id", "204"))
	assert.Equal(t, before+1, after)

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	assert.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.Contains(string(body), "storefront_http_requests_total"))
}

func TestRecordCache(t *testing.T) {
	hits := testutil.ToFloat64(metrics.CacheHits.WithLabelValues("test"))
	misses := testutil.ToFloat64(metrics.CacheMisses.WithLabelValues("test"))

	metrics.RecordCache("test", true)
	metrics.RecordCache("test", false)
	metrics.RecordCache("test", false)

	assert.Equal(t, hits+1, testutil.ToFloat64(metrics.CacheHits.WithLabelValues("test")))
	assert.Equal(t, misses+2, testutil.ToFloat64(metrics.CacheMisses.WithLabelValues("test")))
}

func TestMiddleware_LabelsSurviveBufferReuse(t *testing.T) {
	app := fiber.New()
	app.Use(metrics.Middleware())
	app.Get("/cart", func(c *fiber.Ctx) error { return c.SendString("cart") })
	app.Post("/cart", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) })
	app.Delete("/orders/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	app.Get("/metrics", metrics.Handler())

	requests := []struct{ method, path string }{
		{"GET", "/cart"},
		{"POST", "/cart"},
		{"DELETE", "/orders/7"},
		{"GET", "/missing"},
		{"OPTIONS", "/cart"},
	}
	for i := 0; i < 50; i++ {
		r := requests[i%len(requests)]
		resp, err := app.Test(httptest.NewRequest(r.method, r.path, nil), -1)
		assert.NoError(t, err)
		resp.Body.Close()
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `method="DELETE",path="/orders/:id",status="204"`)
	assert.NotContains(t, string(body), `method="GETT"`)
}
