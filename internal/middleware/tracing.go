package middleware

import (
	"fmt"
	"strings"

	"github.com/quantu99/Test-Beincom-BE/internal/observability"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// routeParamAttrs maps route params to span attributes per route prefix.
// The bare :id param means a different resource under each prefix.
var routeParamAttrs = []struct {
	prefix string
	param  string
	attr   string
}{
	{"/posts/drafts/", "id", "draft.id"},
	{"/posts/", "id", "post.id"},
	{"/comments/posts/", "postId", "post.id"},
	{"/comments/user/", "userId", "author.id"},
	{"/comments/", "id", "comment.id"},
	{"/users/", "id", "author.id"},
}

// TracingMiddleware opens a server span per request. The span is renamed to
// the matched route template once routing is done, and the blog resource ids
// in the path are recorded as attributes.
func TracingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), propagation.HeaderCarrier(c.GetReqHeaders()))

		ctx, span := observability.Tracer.Start(ctx, "HTTP "+c.Method(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Method()),
				attribute.String("http.target", c.OriginalURL()),
				attribute.String("http.client_ip", c.IP()),
				attribute.String("http.user_agent", c.Get(fiber.HeaderUserAgent)),
			),
		)
		defer span.End()

		traceID := span.SpanContext().TraceID().String()
		c.Locals("traceID", traceID)
		c.Locals("spanID", span.SpanContext().SpanID().String())
		c.Set("X-Trace-ID", traceID)
		if requestID := c.Locals("requestid"); requestID != nil {
			span.SetAttributes(attribute.String("request.id", fmt.Sprintf("%v", requestID)))
		}

		c.SetUserContext(ctx)
		err := c.Next()

		route := c.Route().Path
		span.SetName(c.Method() + " " + route)
		span.SetAttributes(attribute.String("http.route", route))
		span.SetAttributes(blogAttributes(route, c.Params, c.Query)...)

		status := c.Response().StatusCode()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if uid := c.Locals("userID"); uid != nil {
			span.SetAttributes(attribute.String("user.id", fmt.Sprintf("%v", uid)))
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else if status >= fiber.StatusInternalServerError {
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
		}
		return err
	}
}

// blogAttributes derives resource attributes from a matched route template.
func blogAttributes(route string, params func(string, ...string) string, query func(string, ...string) string) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	for _, m := range routeParamAttrs {
		if !strings.HasPrefix(route, m.prefix) || !strings.Contains(route, ":"+m.param) {
			continue
		}
		if v := params(m.param); v != "" {
			attrs = append(attrs, attribute.String(m.attr, v))
		}
		break
	}
	if strings.HasPrefix(route, "/search") {
		searchType := query("type")
		if searchType == "" {
			searchType = "all"
		}
		attrs = append(attrs,
			attribute.String("search.type", strings.ToLower(searchType)),
			attribute.Int("search.query_length", len(strings.TrimSpace(query("q")))),
		)
	}
	return attrs
}
