package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vogiaan1904/ticketbottle-reservation/config"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/auth"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/clock"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/repository/memory"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/service"
	"github.com/vogiaan1904/ticketbottle-reservation/pkg/logger"
)

type testServer struct {
	h   http.Handler
	v   auth.Verifier
	clk *clock.Manual
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	l := logger.InitializeTestZapLogger()
	clk := clock.NewManual(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	cfg := config.ReservationConfig{
		TicketHoldTTL:   15 * time.Minute,
		DiscountHoldTTL: 10 * time.Minute,
		NotifyTTL:       30 * time.Minute,
		SweepInterval:   time.Minute,
		SweepBatchSize:  10,
		SweepLockTTL:    time.Minute,
	}
	c := service.NewComponents(memory.New(), service.NewLogNotifier(l), nil, clk, cfg, l)
	v := auth.NewJWTVerifier(config.JWTConfig{Secret: "test", Expiry: time.Hour}, clk)

	return &testServer{
		h:   NewRouter(NewHTTPHandler(service.NewEngine(c), l), v, l),
		v:   v,
		clk: clk,
	}
}

type envelope struct {
	ErrorCode int               `json:"error_code"`
	Message   string            `json:"message"`
	Data      json.RawMessage   `json:"data"`
	Errors    map[string]string `json:"errors"`
}

func (s *testServer) do(t *testing.T, method, path, holder string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if holder != "" {
		token, err := s.v.Issue(holder)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func (s *testServer) createTier(t *testing.T, capacity int) string {
	t.Helper()
	rec, env := s.do(t, http.MethodPost, "/v1/tiers", "admin", map[string]any{
		"event_id": "evt-1", "name": "GA", "capacity": capacity, "price": 5000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	return decodeData[map[string]any](t, env)["id"].(string)
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	data := decodeData[map[string]any](t, env)
	assert.Equal(t, "healthy", data["status"])
	assert.Contains(t, data, "sweeper")
}

func TestUnauthorized(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodPost, "/v1/holds", "", map[string]any{"tier_id": "x", "quantity": 1})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 40101, env.ErrorCode)
}

func TestHoldLifecycle(t *testing.T) {
	s := newTestServer(t)
	tierID := s.createTier(t, 10)

	rec, env := s.do(t, http.MethodPost, "/v1/holds", "alice", map[string]any{"tier_id": tierID, "quantity": 6})
	require.Equal(t, http.StatusCreated, rec.Code)
	hold := decodeData[map[string]any](t, env)
	holdID := hold["id"].(string)
	assert.Equal(t, "alice", hold["holder_id"])

	rec, env = s.do(t, http.MethodPost, "/v1/holds", "bob", map[string]any{"tier_id": tierID, "quantity": 6})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 40901, env.ErrorCode)

	rec, env = s.do(t, http.MethodGet, "/v1/tiers/"+tierID+"/availability", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	avail := decodeData[service.AvailabilityOutput](t, env)
	assert.Equal(t, 4, avail.Available)
	assert.Equal(t, 6, avail.Reserved)

	rec, _ = s.do(t, http.MethodDelete, "/v1/holds/"+holdID, "bob", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = s.do(t, http.MethodPost, "/v1/holds/"+holdID+"/finalize", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	order := decodeData[map[string]any](t, env)
	assert.Equal(t, "CONFIRMED", order["status"])
	assert.EqualValues(t, 30000, order["amount"])

	rec, env = s.do(t, http.MethodPost, "/v1/holds/"+holdID+"/finalize", "alice", nil)
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Equal(t, 41001, env.ErrorCode)

	rec, env = s.do(t, http.MethodPost, "/v1/orders/"+order["id"].(string)+"/refund", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CANCELLED", decodeData[map[string]any](t, env)["status"])

	_, env = s.do(t, http.MethodGet, "/v1/tiers/"+tierID+"/availability", "bob", nil)
	assert.Equal(t, 10, decodeData[service.AvailabilityOutput](t, env).Available)
}

func TestRefundOrderByAnotherHolder(t *testing.T) {
	s := newTestServer(t)
	tierID := s.createTier(t, 5)

	_, env := s.do(t, http.MethodPost, "/v1/holds", "alice", map[string]any{"tier_id": tierID, "quantity": 2})
	holdID := decodeData[map[string]any](t, env)["id"].(string)
	rec, env := s.do(t, http.MethodPost, "/v1/holds/"+holdID+"/finalize", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	orderID := decodeData[map[string]any](t, env)["id"].(string)

	rec, env = s.do(t, http.MethodPost, "/v1/orders/"+orderID+"/refund", "mallory", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 40302, env.ErrorCode)

	_, env = s.do(t, http.MethodGet, "/v1/tiers/"+tierID+"/availability", "alice", nil)
	assert.Equal(t, 2, decodeData[service.AvailabilityOutput](t, env).ConfirmedSold)

	rec, env = s.do(t, http.MethodPost, "/v1/orders/"+orderID+"/refund", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CANCELLED", decodeData[map[string]any](t, env)["status"])
}

func TestCreateHoldValidation(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodPost, "/v1/holds", "alice", map[string]any{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "required", env.Errors["TierID"])

	req := httptest.NewRequest(http.MethodPost, "/v1/holds", bytes.NewBufferString("{"))
	token, _ := s.v.Issue("alice")
	req.Header.Set("Authorization", "Bearer "+token)
	raw := httptest.NewRecorder()
	s.h.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)

	rec, env = s.do(t, http.MethodPost, "/v1/holds", "alice", map[string]any{"tier_id": "missing", "quantity": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 40401, env.ErrorCode)
}

func TestExpiredHoldFinalize(t *testing.T) {
	s := newTestServer(t)
	tierID := s.createTier(t, 5)

	_, env := s.do(t, http.MethodPost, "/v1/holds", "alice", map[string]any{"tier_id": tierID, "quantity": 2})
	holdID := decodeData[map[string]any](t, env)["id"].(string)

	s.clk.Advance(16 * time.Minute)

	rec, env := s.do(t, http.MethodPost, "/v1/holds/"+holdID+"/finalize", "alice", nil)
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Equal(t, 41001, env.ErrorCode)

	rec, env = s.do(t, http.MethodPost, "/v1/admin/sweep", "ops", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeData[sweepResponse](t, env).Expired)
}

func TestDiscountFlow(t *testing.T) {
	s := newTestServer(t)
	tierID := s.createTier(t, 5)

	rec, env := s.do(t, http.MethodPost, "/v1/discount-codes", "admin", map[string]any{
		"event_id": "evt-1", "code": "SAVE10", "kind": "PERCENTAGE", "value": 10, "max_uses": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	codeID := decodeData[map[string]any](t, env)["id"].(string)

	rec, env = s.do(t, http.MethodPost, "/v1/discount-codes/"+codeID+"/holds", "alice", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	dhID := decodeData[map[string]any](t, env)["id"].(string)

	// A second request supersedes the first hold.
	rec, env = s.do(t, http.MethodPost, "/v1/discount-codes/"+codeID+"/holds", "alice", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	next := decodeData[map[string]any](t, env)["id"].(string)
	assert.NotEqual(t, dhID, next)
	dhID = next

	rec, env = s.do(t, http.MethodPost, "/v1/discount-codes/"+codeID+"/holds", "bob", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 40902, env.ErrorCode)

	rec, _ = s.do(t, http.MethodGet, "/v1/discount-codes/"+codeID+"/holds/active", "alice", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	_, env = s.do(t, http.MethodPost, "/v1/holds", "alice", map[string]any{"tier_id": tierID, "quantity": 1})
	holdID := decodeData[map[string]any](t, env)["id"].(string)

	rec, _ = s.do(t, http.MethodPost, "/v1/discount-holds/"+dhID+"/link", "alice", map[string]any{"ticket_hold_id": holdID})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = s.do(t, http.MethodPost, "/v1/discount-holds/"+dhID+"/link", "alice", map[string]any{"ticket_hold_id": holdID})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 40903, env.ErrorCode)

	rec, env = s.do(t, http.MethodPost, "/v1/holds/"+holdID+"/finalize", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 4500, decodeData[map[string]any](t, env)["amount"])
}

func TestValidateDiscountCode(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodPost, "/v1/discount-codes", "admin", map[string]any{
		"event_id": "evt-1", "code": "SAVE10", "kind": "PERCENTAGE", "value": 10, "max_uses": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	codeID := decodeData[map[string]any](t, env)["id"].(string)

	rec, env = s.do(t, http.MethodPost, "/v1/discount-codes/validate", "alice", map[string]any{"event_id": "evt-1", "code": "SAVE10"})
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeData[service.DiscountCodeValidation](t, env)
	assert.Equal(t, codeID, out.CodeID)
	assert.EqualValues(t, "PERCENTAGE", out.Kind)
	assert.Equal(t, int64(10), out.Value)

	rec, env = s.do(t, http.MethodPost, "/v1/discount-codes/validate", "alice", map[string]any{"event_id": "evt-1", "code": "NOPE"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 40404, env.ErrorCode)

	rec, env = s.do(t, http.MethodPost, "/v1/discount-codes/validate", "alice", map[string]any{"event_id": "evt-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "required", env.Errors["Code"])

	rec, _ = s.do(t, http.MethodPost, "/v1/discount-codes/"+out.CodeID+"/holds", "alice", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env = s.do(t, http.MethodPost, "/v1/discount-codes/validate", "bob", map[string]any{"event_id": "evt-1", "code": "SAVE10"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 40902, env.ErrorCode)
}

func TestJoinWaitlist(t *testing.T) {
	s := newTestServer(t)
	tierID := s.createTier(t, 1)

	rec, env := s.do(t, http.MethodPost, "/v1/waitlist", "alice", map[string]any{"tier_id": tierID, "quantity": 1})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 40905, env.ErrorCode)

	rec, _ = s.do(t, http.MethodPost, "/v1/holds", "bob", map[string]any{"tier_id": tierID, "quantity": 1})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env = s.do(t, http.MethodPost, "/v1/waitlist", "alice", map[string]any{"tier_id": tierID, "quantity": 1})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "WAITING", decodeData[map[string]any](t, env)["status"])

	rec, env = s.do(t, http.MethodGet, "/v1/tiers/"+tierID+"/waitlist/me", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, waitlistStatusResponse{TierID: tierID, Waiting: true}, decodeData[waitlistStatusResponse](t, env))

	rec, env = s.do(t, http.MethodGet, "/v1/tiers/"+tierID+"/waitlist/me", "carol", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeData[waitlistStatusResponse](t, env).Waiting)
}
