package middleware

import (
	"net/http"
	"time"
)

const timeoutBody = `{"error":"request timeout"}`

// Timeout gives each request a deadline. A handler still running when it
// passes is abandoned and the client gets a 503 JSON error; handler output
// is buffered until it returns.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		bounded := http.TimeoutHandler(next, timeout, timeoutBody)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Handlers overwrite this; the timeout body relies on it.
			w.Header().Set("Content-Type", "application/json")
			bounded.ServeHTTP(w, r)
		})
	}
}
