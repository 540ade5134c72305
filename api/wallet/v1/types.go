// Package walletv1 defines the wire types for the remote engine service.
// The types are hand-written Go structs carried over gRPC with the JSON
// codec registered by the transport package.
package walletv1

// SubmitRequest carries one engine request tagged with the client's
// request id.
type SubmitRequest struct {
	RequestId uint64 `json:"request_id"`
	Kind      int32  `json:"kind"`
	Payload   []byte `json:"payload,omitempty"`
}

// SubmitResponse acknowledges a submitted request.
type SubmitResponse struct {
	Accepted bool `json:"accepted"`
}

// StreamRequest opens the response stream.
type StreamRequest struct{}

// EngineResponse carries one engine response: a correlated reply
// (request_id set) or a push notification (query_id set).
type EngineResponse struct {
	Kind      int32  `json:"kind"`
	RequestId uint64 `json:"request_id,omitempty"`
	QueryId   uint64 `json:"query_id,omitempty"`
	Payload   []byte `json:"payload,omitempty"`
}
