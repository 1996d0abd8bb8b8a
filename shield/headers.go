package shield

import "net/http"

// Header is one response header set by SecurityHeaders.
type Header struct {
	Name, Value string
}

// APIHeaders is the header set for JSON responses. Nothing the API serves
// is meant to be rendered, so the CSP denies everything.
func APIHeaders() []Header {
	return []Header{
		{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
		{"X-Frame-Options", "DENY"},
		{"X-Content-Type-Options", "nosniff"},
		{"Referrer-Policy", "no-referrer"},
		{"Permissions-Policy", "camera=(), microphone=(), geolocation=()"},
	}
}

// SecurityHeaders sets headers on every response. Entries with an empty
// value are skipped.
func SecurityHeaders(headers []Header) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, h := range headers {
				if h.Value != "" {
					w.Header().Set(h.Name, h.Value)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HeadToGet lets HEAD reach routes registered with Get. net/http drops the
// body of HEAD responses.
func HeadToGet(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			r.Method = http.MethodGet
		}
		next.ServeHTTP(w, r)
	})
}
