package middleware

import (
	"net/http"

	"github.com/parchmentlabs/recall/internal/api"
)

// MaxBodyBytes caps request body size. Uploads with a declared length over
// the limit are rejected with 413 up front; chunked bodies are capped by a
// MaxBytesReader so handler reads fail once the limit is crossed.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > limit {
				api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
