package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/auth"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/service"
	"github.com/vogiaan1904/ticketbottle-reservation/pkg/logger"
	"github.com/vogiaan1904/ticketbottle-reservation/pkg/response"
)

type HTTPHandler struct {
	engine    service.Engine
	l         logger.Logger
	validator *validator.Validate
}

func NewHTTPHandler(engine service.Engine, l logger.Logger) *HTTPHandler {
	return &HTTPHandler{
		engine:    engine,
		l:         l,
		validator: validator.New(),
	}
}

type linkDiscountHoldRequest struct {
	TicketHoldID string `json:"ticket_hold_id" validate:"required"`
}

type waitlistStatusResponse struct {
	TierID  string `json:"tier_id"`
	Waiting bool   `json:"waiting"`
}

type sweepResponse struct {
	Expired int `json:"expired"`
}

// HealthCheck handles health check requests
func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "reservation-service",
		"sweeper": h.engine.SweeperStatus(),
	})
}

func (h *HTTPHandler) CreateTier(w http.ResponseWriter, r *http.Request) {
	var req service.CreateTierInput
	if !h.decode(w, r, &req) {
		return
	}

	t, err := h.engine.CreateTier(r.Context(), req)
	if err != nil {
		h.respondError(w, r, "CreateTier", err)
		return
	}

	response.JSON(w, http.StatusCreated, t)
}

func (h *HTTPHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	out, err := h.engine.GetAvailability(r.Context(), chi.URLParam(r, "tierId"))
	if err != nil {
		h.respondError(w, r, "GetAvailability", err)
		return
	}

	response.JSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) CreateTicketHold(w http.ResponseWriter, r *http.Request) {
	var req service.CreateTicketHoldInput
	if !h.decode(w, r, &req) {
		return
	}
	req.HolderID = holderID(r)

	hold, err := h.engine.CreateTicketHold(r.Context(), req)
	if err != nil {
		h.respondError(w, r, "CreateTicketHold", err)
		return
	}

	response.JSON(w, http.StatusCreated, hold)
}

func (h *HTTPHandler) CancelTicketHold(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.CancelTicketHold(r.Context(), chi.URLParam(r, "holdId"), holderID(r)); err != nil {
		h.respondError(w, r, "CancelTicketHold", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) FinalizeTicketHold(w http.ResponseWriter, r *http.Request) {
	order, err := h.engine.FinalizeTicketHold(r.Context(), chi.URLParam(r, "holdId"), holderID(r))
	if err != nil {
		h.respondError(w, r, "FinalizeTicketHold", err)
		return
	}

	response.JSON(w, http.StatusOK, order)
}

func (h *HTTPHandler) RefundOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.engine.RefundOrder(r.Context(), chi.URLParam(r, "orderId"), holderID(r))
	if err != nil {
		h.respondError(w, r, "RefundOrder", err)
		return
	}

	response.JSON(w, http.StatusOK, order)
}

func (h *HTTPHandler) CreateDiscountCode(w http.ResponseWriter, r *http.Request) {
	var req service.CreateDiscountCodeInput
	if !h.decode(w, r, &req) {
		return
	}

	code, err := h.engine.CreateDiscountCode(r.Context(), req)
	if err != nil {
		h.respondError(w, r, "CreateDiscountCode", err)
		return
	}

	response.JSON(w, http.StatusCreated, code)
}

func (h *HTTPHandler) ValidateDiscountCode(w http.ResponseWriter, r *http.Request) {
	var req service.ValidateDiscountCodeInput
	if !h.decode(w, r, &req) {
		return
	}
	req.HolderID = holderID(r)

	out, err := h.engine.ValidateDiscountCode(r.Context(), req)
	if err != nil {
		h.respondError(w, r, "ValidateDiscountCode", err)
		return
	}

	response.JSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) CreateDiscountHold(w http.ResponseWriter, r *http.Request) {
	dh, err := h.engine.CreateDiscountHold(r.Context(), chi.URLParam(r, "codeId"), holderID(r))
	if err != nil {
		h.respondError(w, r, "CreateDiscountHold", err)
		return
	}

	response.JSON(w, http.StatusCreated, dh)
}

func (h *HTTPHandler) CheckDiscountHold(w http.ResponseWriter, r *http.Request) {
	dh, err := h.engine.CheckDiscountHold(r.Context(), chi.URLParam(r, "codeId"), holderID(r))
	if err != nil {
		h.respondError(w, r, "CheckDiscountHold", err)
		return
	}

	response.JSON(w, http.StatusOK, dh)
}

func (h *HTTPHandler) CancelDiscountHold(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.CancelDiscountHold(r.Context(), chi.URLParam(r, "holdId"), holderID(r)); err != nil {
		h.respondError(w, r, "CancelDiscountHold", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) LinkDiscountHold(w http.ResponseWriter, r *http.Request) {
	var req linkDiscountHoldRequest
	if !h.decode(w, r, &req) {
		return
	}

	dh, err := h.engine.LinkDiscountHold(r.Context(), chi.URLParam(r, "holdId"), req.TicketHoldID, holderID(r))
	if err != nil {
		h.respondError(w, r, "LinkDiscountHold", err)
		return
	}

	response.JSON(w, http.StatusOK, dh)
}

func (h *HTTPHandler) JoinWaitlist(w http.ResponseWriter, r *http.Request) {
	var req service.JoinWaitlistInput
	if !h.decode(w, r, &req) {
		return
	}
	req.HolderID = holderID(r)

	entry, err := h.engine.JoinWaitlist(r.Context(), req)
	if err != nil {
		h.respondError(w, r, "JoinWaitlist", err)
		return
	}

	response.JSON(w, http.StatusCreated, entry)
}

func (h *HTTPHandler) GetWaitlistStatus(w http.ResponseWriter, r *http.Request) {
	tierID := chi.URLParam(r, "tierId")
	waiting, err := h.engine.IsWaiting(r.Context(), tierID, holderID(r))
	if err != nil {
		h.respondError(w, r, "GetWaitlistStatus", err)
		return
	}

	response.JSON(w, http.StatusOK, waitlistStatusResponse{TierID: tierID, Waiting: waiting})
}

func (h *HTTPHandler) SweepExpired(w http.ResponseWriter, r *http.Request) {
	n, err := h.engine.SweepExpired(r.Context())
	if err != nil {
		h.respondError(w, r, "SweepExpired", err)
		return
	}

	response.JSON(w, http.StatusOK, sweepResponse{Expired: n})
}

// Helper functions

func holderID(r *http.Request) string {
	id, _ := auth.HolderFromContext(r.Context())
	return id
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.l.Debugf(r.Context(), "delivery.http.decode: %v", err)
		response.Error(w, errInvalidBody)
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		h.l.Debugf(r.Context(), "delivery.http.validate: %v", err)
		response.ValidationError(w, validationDetails(err))
		return false
	}

	return true
}

func validationDetails(err error) map[string]string {
	out := map[string]string{}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		out["body"] = err.Error()
		return out
	}
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

func (h *HTTPHandler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	mapped, ok := mapHTTPError(err)
	if !ok {
		h.l.Errorf(r.Context(), "delivery.http.HTTPHandler.%s: %v", op, err)
	} else {
		h.l.Debugf(r.Context(), "delivery.http.HTTPHandler.%s: %v", op, err)
	}
	response.Error(w, mapped)
}
