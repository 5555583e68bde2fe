package api

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/netweather/weathermap/internal/wmerrors"
)

// AuthMiddleware validates the Bearer token in the Authorization header
// against the configured set of static tokens. An empty tokens list
// disables auth entirely, for local/dev deployments with no operator
// token configured.
func AuthMiddleware(tokens []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(tokens) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) || !slices.Contains(tokens, auth[len(prefix):]) {
				WriteError(w, r, &wmerrors.HTTPError{
					Kind:    wmerrors.KindUnauthorized,
					Code:    http.StatusUnauthorized,
					Message: "missing or invalid Authorization header",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestBodyLimitMiddleware caps the request body at maxBytes, so a
// malformed or hostile timeline request body can't exhaust memory in
// DecodeBody before validation runs.
func RequestBodyLimitMiddleware(maxBytes int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		next.ServeHTTP(w, r)
	})
}

// RequestLogMiddleware logs one structured line per request: method,
// path, status, duration, and chi's request ID.
func RequestLogMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Infow("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
