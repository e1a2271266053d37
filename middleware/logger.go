package middleware

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// ResponseRecorder wraps a ResponseWriter to capture the status code and
// body size for request logging.
type ResponseRecorder struct {
	http.ResponseWriter
	StatusCode int
	BodySize   int
}

// NewResponseRecorder creates a recorder defaulting to 200 OK.
func NewResponseRecorder(w http.ResponseWriter) *ResponseRecorder {
	return &ResponseRecorder{ResponseWriter: w, StatusCode: http.StatusOK}
}

func (rec *ResponseRecorder) WriteHeader(statusCode int) {
	rec.StatusCode = statusCode
	rec.ResponseWriter.WriteHeader(statusCode)
}

func (rec *ResponseRecorder) Write(b []byte) (int, error) {
	n, err := rec.ResponseWriter.Write(b)
	rec.BodySize += n
	return n, err
}

// getStatusColor returns the ANSI color for a status code class.
func getStatusColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "\033[32m" // green
	case statusCode >= 300 && statusCode < 400:
		return "\033[36m" // cyan
	case statusCode >= 400 && statusCode < 500:
		return "\033[33m" // yellow
	case statusCode >= 500:
		return "\033[31m" // red
	default:
		return "\033[0m"
	}
}

// LoggingMiddleware logs one structured line per completed request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := NewResponseRecorder(w)

		next.ServeHTTP(rec, r)

		log.WithFields(log.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.StatusCode,
			"bytes":       rec.BodySize,
			"duration_ms": time.Since(start).Milliseconds(),
			"remote":      r.RemoteAddr,
		}).Infof("%s%d\033[0m %s %s", getStatusColor(rec.StatusCode), rec.StatusCode, r.Method, r.URL.Path)
	})
}
