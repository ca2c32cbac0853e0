package httpapi

import (
	"context"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rawcontext/engram-sub001/internal/apierr"
	"github.com/rawcontext/engram-sub001/internal/telemetry"
)

type requestIDKey struct{}

const requestIDHeader = "X-Request-ID"

// RequestID reads X-Request-ID off the incoming request, or mints one, and
// carries it on both the request context and the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the id RequestID attached to ctx, or "" if absent.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Recovery recovers a panic anywhere downstream, logs it with the request
// id and a stack trace, and responds with a generic 500 rather than
// crashing the process.
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("httpapi: panic recovered",
						zap.Any("recover", rec),
						zap.String("requestID", GetRequestID(r.Context())),
						zap.ByteString("stack", debug.Stack()),
					)
					if w.Header().Get("Content-Type") == "" {
						writeError(w, apierr.Wrap(apierr.CodeInternal, "internal server error", nil))
					}
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Timeout bounds request handling to d; on expiry it writes the §5/§7
// TIMEOUT shape and abandons the in-flight handler goroutine (which keeps
// running to completion against the derived, already-cancelled context).
func Timeout(d time.Duration, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			done := make(chan struct{})
			go func() {
				defer func() {
					if rec := recover(); rec != nil {
						logger.Error("httpapi: panic in timeout goroutine",
							zap.Any("recover", rec),
							zap.String("requestID", GetRequestID(r.Context())))
					}
				}()
				next.ServeHTTP(w, r.WithContext(ctx))
				close(done)
			}()

			select {
			case <-done:
			case <-ctx.Done():
				logger.Warn("httpapi: request timed out",
					zap.String("requestID", GetRequestID(r.Context())),
					zap.String("path", r.URL.Path))
				if w.Header().Get("Content-Type") == "" {
					writeAppError(w, apierr.Timeout())
				}
			}
		})
	}
}

// Logging emits one structured line per completed request and, when
// metrics is non-nil, records it into the request-count/duration
// collectors (§4.9 expansion).
func Logging(logger *zap.Logger, metrics *telemetry.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			duration := time.Since(start)
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", sw.status),
				zap.Duration("duration", duration),
				zap.String("requestID", GetRequestID(r.Context())),
			)
			if metrics != nil {
				metrics.ObserveHTTP(r.Method, r.URL.Path, strconv.Itoa(sw.status), duration)
			}
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
