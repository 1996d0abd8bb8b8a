package shield

import (
	"net/http"
	"strings"
)

// MaxJSONBody limits the body of JSON requests to maxBytes. Reads past the
// limit fail, and the decoder surfaces that as a 400. Other content types
// pass through untouched.
func MaxJSONBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
