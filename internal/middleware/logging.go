package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"aerodetect/internal/logger"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// LoggingMiddleware logs every API request with its status and duration.
// Static assets and log viewer requests are passed through silently.
func LoggingMiddleware(logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/static/") ||
				strings.HasPrefix(r.URL.Path, "/output/") ||
				strings.HasPrefix(r.URL.Path, "/logs/") ||
				r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)

			duration := time.Since(start).Round(time.Millisecond)
			if recorder.status >= http.StatusInternalServerError {
				logger.Error("%s %s -> %d (%s)", r.Method, r.URL.Path, recorder.status, duration)
			} else if recorder.status >= http.StatusBadRequest {
				logger.Warning("%s %s -> %d (%s)", r.Method, r.URL.Path, recorder.status, duration)
			} else {
				logger.Info("%s %s -> %d (%s)", r.Method, r.URL.Path, recorder.status, duration)
			}
		})
	}
}
