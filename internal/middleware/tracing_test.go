package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quantu99/Test-Beincom-BE/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	prev := observability.Tracer
	observability.Tracer = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)).Tracer("test")
	t.Cleanup(func() { observability.Tracer = prev })
	return rec
}

func tracedApp() *fiber.App {
	app := fiber.New()
	app.Use(TracingMiddleware())
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	app.Get("/posts/:id", ok)
	app.Post("/posts/drafts/:id/publish", ok)
	app.Get("/comments/posts/:postId", ok)
	app.Get("/comments/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusInternalServerError) })
	app.Get("/search", ok)
	return app
}

func TestTracingMiddleware(t *testing.T) {
	tests := []struct {
		method   string
		target   string
		wantName string
		want     []attribute.KeyValue
		wantErr  bool
	}{
		{http.MethodGet, "/posts/p-1", "GET /posts/:id", []attribute.KeyValue{attribute.String("post.id", "p-1")}, false},
		{http.MethodPost, "/posts/drafts/d-1/publish", "POST /posts/drafts/:id/publish", []attribute.KeyValue{attribute.String("draft.id", "d-1")}, false},
		{http.MethodGet, "/comments/posts/p-2", "GET /comments/posts/:postId", []attribute.KeyValue{attribute.String("post.id", "p-2")}, false},
		{http.MethodGet, "/comments/c-1", "GET /comments/:id", []attribute.KeyValue{attribute.String("comment.id", "c-1"), attribute.Int("http.status_code", 500)}, true},
		{http.MethodGet, "/search?q=%20go%20&type=POST", "GET /search", []attribute.KeyValue{
			attribute.String("search.type", "post"),
			attribute.Int("search.query_length", 2),
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			rec := recordSpans(t)
			resp, err := tracedApp().Test(httptest.NewRequest(tt.method, tt.target, nil))
			require.NoError(t, err)
			_ = resp.Body.Close()
			assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))

			ended := rec.Ended()
			require.Len(t, ended, 1)
			span := ended[0]
			assert.Equal(t, tt.wantName, span.Name())
			assert.Equal(t, trace.SpanKindServer, span.SpanKind())
			for _, kv := range tt.want {
				assert.Contains(t, span.Attributes(), kv)
			}
			if tt.wantErr {
				assert.Equal(t, codes.Error, span.Status().Code)
			} else {
				assert.Equal(t, codes.Unset, span.Status().Code)
			}
		})
	}
}
