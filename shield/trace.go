package shield

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/pierce/idgen"
	"github.com/hazyhaar/pierce/kit"
)

// RequestID assigns every request an ID, reusing a well-formed incoming
// X-Request-ID. The ID goes into the context (kit.RequestIDKey), the
// response header and a per-request logger stored under LoggerKey.
func RequestID(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := idgen.Parse(r.Header.Get("X-Request-ID"))
			if err != nil {
				id = idgen.New()
			}
			w.Header().Set("X-Request-ID", id)

			ctx := kit.WithTransport(kit.WithRequestID(r.Context(), id), "http")
			reqLogger := logger.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)
			ctx = context.WithValue(ctx, LoggerKey, reqLogger)
			reqLogger.Debug("shield: request", "remote_addr", r.RemoteAddr)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
