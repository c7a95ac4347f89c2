package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/trace"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/liftcoach/internal/contexthelpers"
	"github.com/myrjola/liftcoach/internal/errors"
	"github.com/myrjola/liftcoach/internal/logging"
)

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode    int
	headerWritten bool
}

func newStatusResponseWriter(w http.ResponseWriter) *statusResponseWriter {
	return &statusResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
		headerWritten:  false,
	}
}

func (mw *statusResponseWriter) WriteHeader(statusCode int) {
	mw.ResponseWriter.WriteHeader(statusCode)

	if !mw.headerWritten {
		mw.statusCode = statusCode
		mw.headerWritten = true
	}
}

func (mw *statusResponseWriter) Write(b []byte) (int, error) {
	mw.headerWritten = true
	written, err := mw.ResponseWriter.Write(b)
	if err != nil {
		return written, fmt.Errorf("write response: %w", err)
	}
	return written, nil
}

func (mw *statusResponseWriter) Unwrap() http.ResponseWriter {
	return mw.ResponseWriter
}

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains; preload")
		next.ServeHTTP(w, r)
	})
}

func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		next.ServeHTTP(w, r)
	})
}

// logAndTraceRequest adds request attributes to the logging context, records request metrics, and logs the
// outcome.
func (app *application) logAndTraceRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			proto  = r.Proto
			method = r.Method
			uri    = r.URL.RequestURI()
		)

		ctx := r.Context()
		traceID := uuid.NewString()
		ctx = logging.WithAttrs(
			ctx,
			slog.String("trace_id", traceID),
			slog.String("proto", proto),
			slog.String("method", method),
			slog.String("uri", uri),
		)
		r = contexthelpers.SetTraceID(r.WithContext(ctx), traceID)
		w.Header().Set("X-Trace-ID", traceID)

		start := time.Now()
		app.logger.LogAttrs(ctx, slog.LevelDebug, "received request")
		app.metrics.GaugeInFlight.Inc()
		defer app.metrics.GaugeInFlight.Dec()

		sw := newStatusResponseWriter(w)

		if !trace.IsEnabled() {
			next.ServeHTTP(sw, r)
		} else {
			taskName := fmt.Sprintf("HTTP %s %s", r.Method, r.URL.Path)
			traceCtx, task := trace.NewTask(ctx, taskName)
			trace.Log(traceCtx, "trace_id", traceID)
			defer task.End()
			next.ServeHTTP(sw, r.WithContext(traceCtx))
		}

		duration := time.Since(start)
		pattern := r.Pattern
		if pattern == "" {
			pattern = "unmatched"
		}
		app.metrics.CounterRequests.WithLabelValues(method, strconv.Itoa(sw.statusCode)).Inc()
		app.metrics.HistRequestDuration.WithLabelValues(pattern).Observe(duration.Seconds())

		level := slog.LevelInfo
		if sw.statusCode >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		app.logger.LogAttrs(r.Context(), level, "request completed",
			slog.Int("status_code", sw.statusCode), slog.Duration("duration", duration))
	})
}

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if excp := recover(); excp != nil {
				app.metrics.CounterPanics.Inc()
				app.serverError(w, r, errors.DecoratePanic(excp))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// authenticate identifies the user from the header set by the gateway in front of the service.
func (app *application) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.Atoi(r.Header.Get(contexthelpers.UserIDHeader))
		if err != nil || userID <= 0 {
			app.writeError(w, r, http.StatusUnauthorized, "missing or invalid "+contexthelpers.UserIDHeader+" header")
			return
		}
		r = contexthelpers.AuthenticateContext(r, userID)
		r = r.WithContext(logging.WithAttrs(r.Context(), slog.Int("user_id", userID)))
		next.ServeHTTP(w, r)
	})
}

const timeoutBody = `{"error":"request timed out"}`

// timeout cancels the request context after d and responds with 503. Deadlines longer than the server write
// timeout extend the write deadline of the connection. A trace is captured when the flight recorder is enabled.
func (app *application) timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		captureOnTimeout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			if app.recorder != nil && errors.Is(r.Context().Err(), context.DeadlineExceeded) {
				app.recorder.Capture(r.Context(), r.Pattern)
			}
		})
		handler := http.TimeoutHandler(captureOnTimeout, d, timeoutBody)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if d >= defaultTimeout {
				rc := http.NewResponseController(w)
				err := rc.SetWriteDeadline(time.Now().Add(d + time.Second))
				if err != nil && !errors.Is(err, http.ErrNotSupported) {
					app.serverError(w, r, err)
					return
				}
			}
			w.Header().Set("Content-Type", "application/json")
			handler.ServeHTTP(w, r)
		})
	}
}
