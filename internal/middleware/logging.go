// internal/middleware/logging.go
//
// Request logging.
//
// RequestLogger stores a request-scoped *zap.SugaredLogger in the context,
// tagged with chi's request ID, so handlers and form actions log through
// logger.FromContext and every line of one request shares an ID.  After the
// handler returns it writes one access line.

package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/AdeptTravel/formstate/internal/logger"
)

// RequestLogger must run after chi's RequestID middleware.
func RequestLogger(base *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := base.With("req", chimw.GetReqID(r.Context()))
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context(), log)))

			log.Infow("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"dur", time.Since(start),
			)
		})
	}
}
