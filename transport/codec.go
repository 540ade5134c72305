// Package transport carries the engine protocol over gRPC: a RemoteEngine
// client that satisfies engine.Engine and an EngineServer that exposes any
// local engine.
package transport

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

func init() {
	// Register the JSON codec so the hand-written wire types can travel
	// through gRPC without generated marshalers.
	encoding.RegisterCodec(JSONCodec{})
}

// JSONCodec serializes gRPC messages as JSON. Registered under the "proto"
// name so it replaces the default codec for this process.
type JSONCodec struct{}

// Name returns the name of the codec.
func (JSONCodec) Name() string {
	return "proto"
}

// Marshal serializes the message to JSON.
func (JSONCodec) Marshal(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json marshal error: %w", err)
	}
	return data, nil
}

// Unmarshal deserializes the message from JSON.
func (JSONCodec) Unmarshal(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("json unmarshal error: %w", err)
	}
	return nil
}
