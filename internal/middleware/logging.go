package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// statusRecorder captures the response status code for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Logging returns middleware that logs every request: method, path, status,
// authenticated user, and duration.
func Logging() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			duration := time.Since(start).Milliseconds()
			userID := GetUserID(r.Context()) // empty if pre-auth
			if rec.status >= 500 {
				slog.Error("Request failed",
					"method", r.Method,
					"path", r.URL.Path,
					"status", rec.status,
					"user_id", userID,
					"duration_ms", duration,
				)
			} else if rec.status >= 400 {
				slog.Warn("Request error",
					"method", r.Method,
					"path", r.URL.Path,
					"status", rec.status,
					"user_id", userID,
					"duration_ms", duration,
				)
			} else {
				slog.Info("Request ok",
					"method", r.Method,
					"path", r.URL.Path,
					"status", rec.status,
					"user_id", userID,
					"duration_ms", duration,
				)
			}
		})
	}
}
