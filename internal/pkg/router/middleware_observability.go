package router

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/otpgate/otpgate/internal/pkg/config"
	"github.com/otpgate/otpgate/internal/pkg/instrument"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const maxLoggedBody = 32 << 10

// statusRecorder captures the response status and any handler error so the
// middleware can log and measure the outcome.
type statusRecorder struct {
	http.ResponseWriter
	status int
	err    error
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// SetError records the handler error for logging.
func (sr *statusRecorder) SetError(err error) {
	sr.err = err
}

// Flush implements http.Flusher when the underlying writer supports it.
func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack implements http.Hijacker when the underlying writer supports it.
func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

// middlewareObservability traces each request, records request metrics, and
// logs the request and response with sensitive fields masked.
func middlewareObservability(cfg config.Config, ins instrument.Instrumentation) Middleware {
	tracer := ins.Tracer("http.server")
	meter := ins.Meter("http.server")

	counter, _ := meter.Int64Counter("http.server.requests",
		metric.WithDescription("Number of HTTP requests handled"))
	histogram, _ := meter.Float64Histogram("http.server.duration",
		metric.WithDescription("Duration of HTTP requests"),
		metric.WithUnit("ms"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			maskKeys := cfg.GetArray("instrument.log_mask_fields")
			route := matchedRoutePath(r)

			ctx, span := tracer.Start(r.Context(), r.Method+" "+route,
				trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()

			body := readRequestBody(r)
			slog.InfoContext(ctx, "http request",
				"method", r.Method,
				"route", route,
				"uri", r.RequestURI,
				"ip", r.RemoteAddr,
				"headers", maskHeaders(r.Header, maskKeys),
				"body", parseAndMaskBody(body, maskKeys),
			)

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))
			elapsed := time.Since(start)

			attrs := metric.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
				attribute.Int("http.status_code", rec.status),
			)
			counter.Add(ctx, 1, attrs)
			histogram.Record(ctx, float64(elapsed.Nanoseconds())/1e6, attrs)

			args := []any{
				"method", r.Method,
				"route", route,
				"status", rec.status,
				"elapsed_ms", elapsed.Milliseconds(),
			}
			if rec.err != nil {
				args = append(args, "error", rec.err)
			}
			slog.InfoContext(ctx, "http response", args...)
		})
	}
}

func readRequestBody(r *http.Request) []byte {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxLoggedBody))
	if err != nil {
		return nil
	}

	rest, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), bytes.NewReader(rest)))

	return body
}

func parseAndMaskBody(body []byte, maskKeys []string) any {
	if len(body) == 0 {
		return nil
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "<non-json body>"
	}

	return maskData(parsed, maskKeys)
}

func maskData(data map[string]any, maskKeys []string) map[string]any {
	masked := make(map[string]any, len(data))
	for k, v := range data {
		if isMaskedKey(k, maskKeys) {
			masked[k] = "******"
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			masked[k] = maskData(nested, maskKeys)
			continue
		}
		masked[k] = v
	}
	return masked
}

func maskHeaders(h http.Header, maskKeys []string) map[string]string {
	masked := make(map[string]string, len(h))
	for k, vals := range h {
		if strings.EqualFold(k, "Authorization") || strings.EqualFold(k, "Cookie") || isMaskedKey(k, maskKeys) {
			masked[k] = "******"
			continue
		}
		masked[k] = strings.Join(vals, ", ")
	}
	return masked
}

func isMaskedKey(key string, maskKeys []string) bool {
	for _, mk := range maskKeys {
		if strings.EqualFold(key, mk) {
			return true
		}
	}
	return false
}
