package grpc

import (
	"context"
	"log"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

type cleanupFunc func()

const reservationService = "/reservation.v1.ReservationService/"

// ReservationClient calls ReservationService with Struct payloads.
type ReservationClient interface {
	Call(ctx context.Context, method, token string, req map[string]any) (map[string]any, error)
}

type reservationClient struct {
	conn *grpc.ClientConn
}

func NewReservationClient(addr string, opts ...grpc.DialOption) (ReservationClient, cleanupFunc, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		log.Println("gRpc Reservation client connection failed.", err)
		return nil, nil, err
	}

	log.Println("gRpc Reservation client connection established.")
	return &reservationClient{conn: conn}, func() { conn.Close() }, nil
}

func (c *reservationClient) Call(ctx context.Context, method, token string, req map[string]any) (map[string]any, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	if token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
	}

	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, reservationService+method, in, out); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}
