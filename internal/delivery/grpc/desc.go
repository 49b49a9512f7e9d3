package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "reservation.v1.ReservationService"

// ReservationServer is the server side of ReservationService. Every method
// takes and returns a google.protobuf.Struct.
type ReservationServer interface {
	CreateTier(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAvailability(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateTicketHold(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CancelTicketHold(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FinalizeTicketHold(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RefundOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateDiscountCode(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ValidateDiscountCode(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateDiscountHold(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LinkDiscountHold(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CancelDiscountHold(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckDiscountHold(context.Context, *structpb.Struct) (*structpb.Struct, error)
	JoinWaitlist(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckWaitlist(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SweepExpired(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(ReservationServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func methodDesc(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ReservationServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(name),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ReservationServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

var ReservationServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReservationServer)(nil),
	Methods: []grpc.MethodDesc{
		methodDesc("CreateTier", ReservationServer.CreateTier),
		methodDesc("GetAvailability", ReservationServer.GetAvailability),
		methodDesc("CreateTicketHold", ReservationServer.CreateTicketHold),
		methodDesc("CancelTicketHold", ReservationServer.CancelTicketHold),
		methodDesc("FinalizeTicketHold", ReservationServer.FinalizeTicketHold),
		methodDesc("RefundOrder", ReservationServer.RefundOrder),
		methodDesc("CreateDiscountCode", ReservationServer.CreateDiscountCode),
		methodDesc("ValidateDiscountCode", ReservationServer.ValidateDiscountCode),
		methodDesc("CreateDiscountHold", ReservationServer.CreateDiscountHold),
		methodDesc("LinkDiscountHold", ReservationServer.LinkDiscountHold),
		methodDesc("CancelDiscountHold", ReservationServer.CancelDiscountHold),
		methodDesc("CheckDiscountHold", ReservationServer.CheckDiscountHold),
		methodDesc("JoinWaitlist", ReservationServer.JoinWaitlist),
		methodDesc("CheckWaitlist", ReservationServer.CheckWaitlist),
		methodDesc("SweepExpired", ReservationServer.SweepExpired),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "reservation/v1/reservation.proto",
}

func RegisterReservationServer(s grpc.ServiceRegistrar, srv ReservationServer) {
	s.RegisterService(&ReservationServiceDesc, srv)
}
