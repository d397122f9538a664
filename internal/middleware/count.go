package middleware

import (
	"net/http"
	"sync/atomic"
)

// Count increments counter once per request before calling next.
func Count(counter *atomic.Uint64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			counter.Add(1)
			next.ServeHTTP(w, r)
		})
	}
}
