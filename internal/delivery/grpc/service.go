package grpc

import (
	"context"
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/auth"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/service"
	"github.com/vogiaan1904/ticketbottle-reservation/pkg/logger"
	resp "github.com/vogiaan1904/ticketbottle-reservation/pkg/response"
	"github.com/vogiaan1904/ticketbottle-reservation/pkg/util"
	"google.golang.org/protobuf/types/known/structpb"
)

type grpcService struct {
	svc       service.Engine
	l         logger.Logger
	validator *validator.Validate
}

func NewGrpcService(svc service.Engine, l logger.Logger) ReservationServer {
	return &grpcService{
		svc:       svc,
		l:         l,
		validator: validator.New(),
	}
}

type tierRequest struct {
	TierID string `json:"tier_id" validate:"required"`
}

type holdRequest struct {
	HoldID string `json:"hold_id" validate:"required"`
}

type orderRequest struct {
	OrderID string `json:"order_id" validate:"required"`
}

type codeRequest struct {
	CodeID string `json:"code_id" validate:"required"`
}

type linkRequest struct {
	DiscountHoldID string `json:"discount_hold_id" validate:"required"`
	TicketHoldID   string `json:"ticket_hold_id" validate:"required"`
}

func (s *grpcService) CreateTier(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in service.CreateTierInput
	if err := s.decode(req, &in); err != nil {
		return nil, err
	}

	t, err := s.svc.CreateTier(ctx, in)
	if err != nil {
		return nil, s.fail(ctx, "CreateTier", err)
	}
	return encode(t)
}

func (s *grpcService) GetAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in tierRequest
	if err := s.decode(req, &in); err != nil {
		return nil, err
	}

	out, err := s.svc.GetAvailability(ctx, in.TierID)
	if err != nil {
		return nil, s.fail(ctx, "GetAvailability", err)
	}

	st, err := encode(out)
	if err != nil {
		return nil, err
	}
	st.Fields["at"] = structpb.NewStringValue(util.TimeToISO8601Str(out.At))
	return st, nil
}

func (s *grpcService) CreateTicketHold(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in service.CreateTicketHoldInput
	if err := s.decode(req, &in); err != nil {
		return nil, err
	}
	in.HolderID = holderID(ctx)

	h, err := s.svc.CreateTicketHold(ctx, in)
	if err != nil {
		return nil, s.fail(ctx, "CreateTicketHold", err)
	}
	return encode(h)
}

func (s *grpcService) CancelTicketHold(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in holdRequest
	if err := s.decode(req, &in); err != nil {
		return nil, err
	}

	if err := s.svc.CancelTicketHold(ctx, in.HoldID, holderID(ctx)); err != nil {
		return nil, s.fail(ctx, "CancelTicketHold", err)
	}
	return encode(map[string]any{
		"hold_id": in.HoldID,
		"message": "Hold cancelled successfully",
	})
}

func (s *grpcService) FinalizeTicketHold(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in holdRequest
	if err := s.decode(req, &in); err != nil {
		return nil, err
	}

	o, err := s.svc.FinalizeTicketHold(ctx, in.HoldID, holderID(ctx))
	if err != nil {
		return nil, s.fail(ctx, "FinalizeTicketHold", err)
	}
	return encode(o)
}

func (s *grpcService) RefundOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in orderRequest
	if err := s.decode(req, &in); err != nil {
		return nil, err
	}

	o, err := s.svc.RefundOrder(ctx, in.OrderID, holderID(ctx))
	if err != nil {
		return nil, s.fail(ctx, "RefundOrder", err)
	}
	return encode(o)
}

func (s *grpcService) CreateDiscountCode(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in service.CreateDiscountCodeInput
	if err := s.decode(req, &in); err != nil {
		return nil, err
	}

	c, err := s.svc.CreateDiscountCode(ctx, in)
	if err != nil {
		return nil, s.fail(ctx, "CreateDiscountCode", err)
	}
	return encode(c)
}

func (s *grpcService) ValidateDiscountCode(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in service.ValidateDiscountCodeInput
	if err := s.decode(req, &in); err != nil {
		return nil, err
	}
	in.HolderID = holderID(ctx)

	out, err := s.svc.ValidateDiscountCode(ctx, in)
	if err != nil {
		return nil, s.fail(ctx, "ValidateDiscountCode", err)
	}
	return encode(out)
}

func (s *grpcService) CreateDiscountHold(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in codeRequest
	if err := s.decode(req, &in); err != nil {
		return nil, err
	}

	dh, err := s.svc.CreateDiscountHold(ctx, in.CodeID, holderID(ctx))
	if err != nil {
		return nil, s.fail(ctx, "CreateDiscountHold", err)
	}
	return encode(dh)
}

func (s *grpcService) LinkDiscountHold(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in linkRequest
	if err := s.decode(req, &in); err != nil {
		return nil, err
	}

	dh, err := s.svc.LinkDiscountHold(ctx, in.DiscountHoldID, in.TicketHoldID, holderID(ctx))
	if err != nil {
		return nil, s.fail(ctx, "LinkDiscountHold", err)
	}
	return encode(dh)
}

func (s *grpcService) CancelDiscountHold(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in holdRequest
	if err := s.decode(req, &in); err != nil {
		return nil, err
	}

	if err := s.svc.CancelDiscountHold(ctx, in.HoldID, holderID(ctx)); err != nil {
		return nil, s.fail(ctx, "CancelDiscountHold", err)
	}
	return encode(map[string]any{
		"hold_id": in.HoldID,
		"message": "Discount hold cancelled successfully",
	})
}

func (s *grpcService) CheckDiscountHold(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in codeRequest
	if err := s.decode(req, &in); err != nil {
		return nil, err
	}

	dh, err := s.svc.CheckDiscountHold(ctx, in.CodeID, holderID(ctx))
	if err != nil {
		return nil, s.fail(ctx, "CheckDiscountHold", err)
	}
	return encode(dh)
}

func (s *grpcService) JoinWaitlist(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in service.JoinWaitlistInput
	if err := s.decode(req, &in); err != nil {
		return nil, err
	}
	in.HolderID = holderID(ctx)

	e, err := s.svc.JoinWaitlist(ctx, in)
	if err != nil {
		return nil, s.fail(ctx, "JoinWaitlist", err)
	}
	return encode(e)
}

func (s *grpcService) CheckWaitlist(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in tierRequest
	if err := s.decode(req, &in); err != nil {
		return nil, err
	}

	waiting, err := s.svc.IsWaiting(ctx, in.TierID, holderID(ctx))
	if err != nil {
		return nil, s.fail(ctx, "CheckWaitlist", err)
	}
	return encode(map[string]any{
		"tier_id": in.TierID,
		"waiting": waiting,
	})
}

func (s *grpcService) SweepExpired(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	n, err := s.svc.SweepExpired(ctx)
	if err != nil {
		return nil, s.fail(ctx, "SweepExpired", err)
	}
	return encode(map[string]any{"expired": n})
}

func holderID(ctx context.Context) string {
	id, _ := auth.HolderFromContext(ctx)
	return id
}

func (s *grpcService) fail(ctx context.Context, op string, err error) error {
	s.l.Errorf(ctx, "delivery.grpc.grpcService.%s: %v", op, err)
	return resp.ParseGRPCError(mapGRPCError(err))
}

// decode copies a Struct into dst through its JSON form, then validates it.
func (s *grpcService) decode(req *structpb.Struct, dst any) error {
	b, err := json.Marshal(req.AsMap())
	if err != nil {
		return resp.ParseGRPCError(errInvalidRequest)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return resp.ParseGRPCError(errInvalidRequest)
	}
	if err := s.validator.Struct(dst); err != nil {
		return resp.ParseGRPCError(errInvalidRequest)
	}
	return nil
}

func encode(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	m := map[string]any{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}
