// service.go - hand-written gRPC stubs for the engine service, shaped like
// protoc-gen-go-grpc output so the transport layer can use them directly.
package walletv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	EngineService_Submit_FullMethodName    = "/wallet.v1.EngineService/Submit"
	EngineService_Responses_FullMethodName = "/wallet.v1.EngineService/Responses"
)

// EngineServiceClient is the client API for the engine service.
type EngineServiceClient interface {
	// Submit enqueues one engine request.
	Submit(ctx context.Context, in *SubmitRequest, opts ...grpc.CallOption) (*SubmitResponse, error)
	// Responses streams engine responses in production order.
	Responses(ctx context.Context, in *StreamRequest, opts ...grpc.CallOption) (EngineService_ResponsesClient, error)
}

type engineServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewEngineServiceClient creates a client for the engine service.
func NewEngineServiceClient(cc grpc.ClientConnInterface) EngineServiceClient {
	return &engineServiceClient{cc}
}

func (c *engineServiceClient) Submit(ctx context.Context, in *SubmitRequest, opts ...grpc.CallOption) (*SubmitResponse, error) {
	out := new(SubmitResponse)
	err := c.cc.Invoke(ctx, EngineService_Submit_FullMethodName, in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *engineServiceClient) Responses(ctx context.Context, in *StreamRequest, opts ...grpc.CallOption) (EngineService_ResponsesClient, error) {
	stream, err := c.cc.NewStream(ctx, &EngineService_ServiceDesc.Streams[0], EngineService_Responses_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	x := &engineServiceResponsesClient{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// EngineService_ResponsesClient is the client side of the response stream.
type EngineService_ResponsesClient interface {
	Recv() (*EngineResponse, error)
	grpc.ClientStream
}

type engineServiceResponsesClient struct {
	grpc.ClientStream
}

func (x *engineServiceResponsesClient) Recv() (*EngineResponse, error) {
	m := new(EngineResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// EngineServiceServer is the server API for the engine service.
type EngineServiceServer interface {
	Submit(context.Context, *SubmitRequest) (*SubmitResponse, error)
	Responses(*StreamRequest, EngineService_ResponsesServer) error
}

// UnimplementedEngineServiceServer must be embedded for forward
// compatibility.
type UnimplementedEngineServiceServer struct{}

func (UnimplementedEngineServiceServer) Submit(context.Context, *SubmitRequest) (*SubmitResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Submit not implemented")
}

func (UnimplementedEngineServiceServer) Responses(*StreamRequest, EngineService_ResponsesServer) error {
	return status.Errorf(codes.Unimplemented, "method Responses not implemented")
}

// EngineService_ResponsesServer is the server side of the response stream.
type EngineService_ResponsesServer interface {
	Send(*EngineResponse) error
	grpc.ServerStream
}

type engineServiceResponsesServer struct {
	grpc.ServerStream
}

func (x *engineServiceResponsesServer) Send(m *EngineResponse) error {
	return x.ServerStream.SendMsg(m)
}

// RegisterEngineServiceServer registers the service implementation.
func RegisterEngineServiceServer(s grpc.ServiceRegistrar, srv EngineServiceServer) {
	s.RegisterService(&EngineService_ServiceDesc, srv)
}

func _EngineService_Submit_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SubmitRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EngineServiceServer).Submit(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: EngineService_Submit_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(EngineServiceServer).Submit(ctx, req.(*SubmitRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _EngineService_Responses_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(StreamRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(EngineServiceServer).Responses(m, &engineServiceResponsesServer{ServerStream: stream})
}

// EngineService_ServiceDesc is the grpc.ServiceDesc for the engine service.
var EngineService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "wallet.v1.EngineService",
	HandlerType: (*EngineServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Submit",
			Handler:    _EngineService_Submit_Handler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Responses",
			Handler:       _EngineService_Responses_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "wallet/v1/engine.proto",
}
