package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/zfogg/huddle/internal/util"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware returns the otelgin middleware followed by a handler that
// adds Huddle attributes to the request span. Use with router.Use(TracingMiddleware(name)...).
func TracingMiddleware(serviceName string) gin.HandlersChain {
	return gin.HandlersChain{otelgin.Middleware(serviceName), enrichSpan}
}

// enrichSpan runs inside the otelgin span, so attributes set after c.Next
// land before the span ends.
func enrichSpan(c *gin.Context) {
	c.Next()

	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		return
	}

	if userID := c.GetString(util.ContextUserIDKey); userID != "" {
		span.SetAttributes(attribute.String("user.id", userID))
	}
	if sort := c.Query("sort"); sort != "" {
		span.SetAttributes(attribute.String("feed.sort", sort))
	}
	if requestID := c.GetString(RequestIDKey); requestID != "" {
		span.SetAttributes(attribute.String("request.id", requestID))
	}

	for _, ginErr := range c.Errors {
		if ginErr.Err != nil {
			span.RecordError(ginErr.Err, trace.WithStackTrace(true))
			span.SetStatus(codes.Error, ginErr.Error())
		}
	}
}
