package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/heshammera/orderly-shop-sub002/internal/platform/requestctx"
)

const tracerName = "github.com/heshammera/orderly-shop-sub002/internal/platform/observability"

// Middleware wires request-scoped logging and tracing around each request.
type Middleware struct {
	logger *zap.Logger
	tracer trace.Tracer
}

// NewMiddleware builds the HTTP middleware stack helper.
func NewMiddleware(logger *zap.Logger) *Middleware {
	if logger == nil {
		logger = requestctx.NoopLogger()
	}
	return &Middleware{
		logger: logger,
		tracer: otel.Tracer(tracerName),
	}
}

// Handler instruments the wrapped handler with a span, a request-scoped
// logger, and an access log entry emitted on completion.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()

		if info, ok := ExtractTrace(r); ok {
			ctx = requestctx.WithTrace(ctx, info)
		}

		method := SanitizeMethod(r.Method)
		ctx, span := m.tracer.Start(ctx, method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", method),
				attribute.String("http.target", r.URL.Path),
			),
		)
		defer span.End()

		requestLogger := m.logger
		if traceID := requestctx.TraceID(ctx); traceID != "" {
			requestLogger = requestLogger.With(zap.String("trace_id", traceID))
		}
		ctx = requestctx.WithLogger(ctx, requestLogger)

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		route := r.URL.Path
		if rctx := chi.RouteContext(ctx); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		route = SanitizeRoute(route)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		span.SetAttributes(
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
		)
		if status >= http.StatusInternalServerError {
			span.SetStatus(otelcodes.Error, http.StatusText(status))
		}

		requestLogger.Info("http.request",
			zap.String("method", method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
