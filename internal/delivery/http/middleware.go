package http

import (
	"net/http"

	"github.com/vogiaan1904/ticketbottle-reservation/internal/auth"
	"github.com/vogiaan1904/ticketbottle-reservation/pkg/logger"
	"github.com/vogiaan1904/ticketbottle-reservation/pkg/response"
)

// Authenticate resolves the bearer token to a holder id and stores it in the
// request context.
func Authenticate(v auth.Verifier, l logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			holderID, err := v.Verify(auth.BearerToken(r.Header.Get("Authorization")))
			if err != nil {
				l.Warnf(ctx, "delivery.http.Authenticate: %v", err)
				response.Error(w, errUnauthorized)
				return
			}

			ctx = auth.WithHolder(ctx, holderID)
			ctx = l.With(ctx, "holder_id", holderID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
