package logger

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// HTTPLogger logs one line per request and stores a request-scoped logger
// (annotated with the chi request id) in the request context.
func HTTPLogger(l Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx := r.Context()
			if reqID := middleware.GetReqID(ctx); reqID != "" {
				ctx = l.With(ctx, "request_id", reqID)
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			l.Infof(ctx, "%s %s -> %d (%d bytes) in %s",
				r.Method,
				r.URL.Path,
				status,
				ww.BytesWritten(),
				time.Since(start),
			)
		})
	}
}
