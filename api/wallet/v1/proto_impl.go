// proto_impl.go - minimal proto.Message implementations so the hand-written
// wire types can travel through gRPC with the JSON codec.
package walletv1

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// ================================================================================
//                          SubmitRequest proto.Message
// ================================================================================

var _ proto.Message = (*SubmitRequest)(nil)

func (*SubmitRequest) ProtoMessage() {}

func (x *SubmitRequest) Reset() {
	*x = SubmitRequest{}
}

func (x *SubmitRequest) String() string {
	return fmt.Sprintf("SubmitRequest{RequestId:%d, Kind:%d}", x.RequestId, x.Kind)
}

func (*SubmitRequest) ProtoReflect() protoreflect.Message {
	return nil // minimal implementation
}

// ================================================================================
//                          SubmitResponse proto.Message
// ================================================================================

var _ proto.Message = (*SubmitResponse)(nil)

func (*SubmitResponse) ProtoMessage() {}

func (x *SubmitResponse) Reset() {
	*x = SubmitResponse{}
}

func (x *SubmitResponse) String() string {
	return fmt.Sprintf("SubmitResponse{Accepted:%v}", x.Accepted)
}

func (*SubmitResponse) ProtoReflect() protoreflect.Message {
	return nil
}

// ================================================================================
//                          StreamRequest proto.Message
// ================================================================================

var _ proto.Message = (*StreamRequest)(nil)

func (*StreamRequest) ProtoMessage() {}

func (x *StreamRequest) Reset() {
	*x = StreamRequest{}
}

func (x *StreamRequest) String() string {
	return "StreamRequest"
}

func (*StreamRequest) ProtoReflect() protoreflect.Message {
	return nil
}

// ================================================================================
//                          EngineResponse proto.Message
// ================================================================================

var _ proto.Message = (*EngineResponse)(nil)

func (*EngineResponse) ProtoMessage() {}

func (x *EngineResponse) Reset() {
	*x = EngineResponse{}
}

func (x *EngineResponse) String() string {
	return fmt.Sprintf("EngineResponse{Kind:%d, RequestId:%d, QueryId:%d}", x.Kind, x.RequestId, x.QueryId)
}

func (*EngineResponse) ProtoReflect() protoreflect.Message {
	return nil
}
