package inspector

import (
	"fmt"
	"math"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/vyrodovalexey/avaroute/internal/observability"
)

const (
	// RequestIDHeader is the header name for request ID.
	RequestIDHeader = "X-Request-ID"
	// requestIDKey is the gin context key for request ID.
	requestIDKey = "requestID"
	// spanKey is the gin context key for the request span.
	spanKey = "otel-span"
	// unmatchedRoute labels requests that reached no registered endpoint.
	unmatchedRoute = "unmatched"
)

// requestID assigns a request ID, reusing the incoming header when set.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(observability.ContextWithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// getRequestID returns the request ID from the gin context.
func getRequestID(c *gin.Context) string {
	if id, exists := c.Get(requestIDKey); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

// recovery turns panics into 500 responses.
func recovery(logger observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.WithContext(c.Request.Context()).Error("panic recovered",
					observability.Any("error", err),
					observability.String("method", c.Request.Method),
					observability.String("path", c.Request.URL.Path),
					observability.String("stack", string(debug.Stack())),
				)

				if span := getSpan(c); span != nil {
					observability.RecordError(span, fmt.Errorf("panic: %v", err))
				}

				c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{
					Error:   "Internal Server Error",
					Message: "An unexpected error occurred",
				})
			}
		}()

		c.Next()
	}
}

// tracing starts a server span per request.
func tracing(tracer *observability.Tracer) gin.HandlerFunc {
	propagator := otel.GetTextMapPropagator()

	return func(c *gin.Context) {
		ctx := propagator.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		ctx, span := tracer.StartSpan(ctx, c.Request.Method+" "+c.Request.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.target", c.Request.URL.Path),
				attribute.String("request.id", getRequestID(c)),
			),
		)
		defer span.End()

		c.Set(spanKey, span)
		c.Request = c.Request.WithContext(observability.ContextWithSpan(ctx, span))

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if route := c.FullPath(); route != "" {
			span.SetName(c.Request.Method + " " + route)
		}
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

// getSpan returns the request span from the gin context.
func getSpan(c *gin.Context) trace.Span {
	if span, exists := c.Get(spanKey); exists {
		if s, ok := span.(trace.Span); ok {
			return s
		}
	}
	return nil
}

// accessLog logs and measures every request.
func accessLog(logger observability.Logger, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}

		if metrics != nil {
			metrics.RecordRequest(c.Request.Method, route, status, latency)
		}

		fields := []observability.Field{
			observability.String("method", c.Request.Method),
			observability.String("path", c.Request.URL.Path),
			observability.String("query", c.Request.URL.RawQuery),
			observability.Int("status", status),
			observability.Duration("latency", latency),
			observability.String("clientIP", c.ClientIP()),
			observability.Int("bodySize", c.Writer.Size()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, observability.String("errors", c.Errors.String()))
		}

		log := logger.WithContext(c.Request.Context())
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("request completed", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("request completed", fields...)
		default:
			log.Debug("request completed", fields...)
		}
	}
}

// rateLimit rejects requests beyond the limiter's rate with 429. Paths in
// skip are never limited.
func rateLimit(limiter *rate.Limiter, metrics *observability.Metrics, skip ...string) gin.HandlerFunc {
	skipPaths := make(map[string]bool, len(skip))
	for _, path := range skip {
		skipPaths[path] = true
	}

	return func(c *gin.Context) {
		if skipPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		if !limiter.Allow() {
			if metrics != nil {
				metrics.RecordRateLimitHit()
			}
			retryAfter := retryAfterSeconds(limiter.Limit())
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{
				Error:   "Too Many Requests",
				Message: "Rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}

// retryAfterSeconds is the whole-second wait until the next token.
func retryAfterSeconds(limit rate.Limit) int {
	if limit <= 0 {
		return 1
	}
	return max(1, int(math.Ceil(1/float64(limit))))
}
