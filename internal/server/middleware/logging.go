package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int
}

func (w *loggingResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *loggingResponseWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.written += n
	return n, err
}

// WithLogging logs one line per request once the handler has finished
func WithLogging(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(lw, r)

		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", lw.statusCode,
			"content_type", r.Header.Get("Content-Type"),
			"user_agent", r.UserAgent(),
			"request_bytes", r.ContentLength,
			"response_bytes", lw.written,
			"duration", time.Since(start),
			"remote_addr", r.RemoteAddr,
		)
	})
}
