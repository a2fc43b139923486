package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestTracingMiddleware_ContinuesIncomingTrace(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	app := fiber.New()
	app.Use(TracingMiddleware())
	var local string
	app.Get("/quotes/:id", func(c *fiber.Ctx) error {
		local, _ = c.Locals("traceID").(string)
		return c.SendStatus(fiber.StatusNoContent)
	})

	const traceID = "4bf92f3577b34da6a3ce929d0e0e4736"
	req := httptest.NewRequest(http.MethodGet, "/quotes/abc", nil)
	req.Header.Set("traceparent", "00-"+traceID+"-00f067aa0ba902b7-01")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, traceID, resp.Header.Get("X-Trace-ID"))
	assert.Equal(t, traceID, local)
}

func TestRequestHeaderCarrier(t *testing.T) {
	app := fiber.New()
	var keys []string
	var got string
	app.Get("/", func(c *fiber.Ctx) error {
		carrier := requestHeaderCarrier{&c.Request().Header}
		got = carrier.Get("X-Custom")
		carrier.Set("X-Added", "1")
		keys = carrier.Keys()
		return nil
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Custom", "value")
	resp, err := app.Test(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "value", got)
	assert.Contains(t, keys, "X-Custom")
	assert.Contains(t, keys, "X-Added")
}
