package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/auth"
	"github.com/vogiaan1904/ticketbottle-reservation/pkg/logger"
)

func NewRouter(h *HTTPHandler, v auth.Verifier, l logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.HTTPLogger(l))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HealthCheck)

	r.Route("/v1", func(r chi.Router) {
		r.Use(Authenticate(v, l))

		r.Post("/tiers", h.CreateTier)
		r.Get("/tiers/{tierId}/availability", h.GetAvailability)
		r.Get("/tiers/{tierId}/waitlist/me", h.GetWaitlistStatus)

		r.Post("/holds", h.CreateTicketHold)
		r.Delete("/holds/{holdId}", h.CancelTicketHold)
		r.Post("/holds/{holdId}/finalize", h.FinalizeTicketHold)

		r.Post("/orders/{orderId}/refund", h.RefundOrder)

		r.Post("/discount-codes", h.CreateDiscountCode)
		r.Post("/discount-codes/validate", h.ValidateDiscountCode)
		r.Post("/discount-codes/{codeId}/holds", h.CreateDiscountHold)
		r.Get("/discount-codes/{codeId}/holds/active", h.CheckDiscountHold)

		r.Delete("/discount-holds/{holdId}", h.CancelDiscountHold)
		r.Post("/discount-holds/{holdId}/link", h.LinkDiscountHold)

		r.Post("/waitlist", h.JoinWaitlist)

		r.Post("/admin/sweep", h.SweepExpired)
	})

	return r
}
