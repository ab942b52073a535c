// Package docstore describes the folio.docstore.v1.DocumentStore gRPC service.
// Messages are google.protobuf.Struct values, so no generated code is needed.
package docstore

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName            = "folio.docstore.v1.DocumentStore"
	InsertMethod           = "/" + ServiceName + "/Insert"
	SubscribeOrderedMethod = "/" + ServiceName + "/SubscribeOrdered"
)

// Server is implemented by the store side.
type Server interface {
	Insert(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	// SubscribeOrdered streams one snapshot message per change until the client leaves.
	SubscribeOrdered(req *structpb.Struct, stream grpc.ServerStream) error
}

func Register(s grpc.ServiceRegistrar, srv Server) {
	s.RegisterService(&ServiceDesc, srv)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Insert", Handler: insertHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "SubscribeOrdered", Handler: subscribeOrderedHandler, ServerStreams: true},
	},
}

// SubscribeOrderedStream is the client side description of the stream.
var SubscribeOrderedStream = &ServiceDesc.Streams[0]

func insertHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).Insert(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: InsertMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Server).Insert(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func subscribeOrderedHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(Server).SubscribeOrdered(in, stream)
}
