package transport

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ahwlsqja/walletbridge/engine"
	"github.com/ahwlsqja/walletbridge/wallet"
)

func TestRemoteEngineRoundTrip(t *testing.T) {
	local := engine.NewLocalEngine()
	server := NewEngineServer("127.0.0.1:0", local)
	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	defer server.Stop()

	remote, err := NewRemoteEngine(server.Addr())
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer remote.Stop()
	if err := remote.Start(); err != nil {
		t.Fatalf("Failed to open stream: %v", err)
	}

	send := func(id uint64, kind engine.RequestKind, payload any) {
		t.Helper()
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("Failed to marshal payload: %v", err)
		}
		if err := remote.Send(id, &engine.Request{Kind: kind, Payload: data}); err != nil {
			t.Fatalf("Failed to send %s: %v", kind, err)
		}
	}
	recv := func() *engine.Response {
		t.Helper()
		resp := remote.Receive(5 * time.Second)
		if resp == nil {
			t.Fatal("No response")
		}
		return resp
	}

	// Init
	send(1, engine.RequestInit, &wallet.InitRequest{KeystoreDir: t.TempDir()})
	resp := recv()
	if resp.Kind != engine.ResponseOK || resp.RequestID != 1 {
		t.Fatalf("Unexpected init response: %s id=%d", resp.Kind, resp.RequestID)
	}

	// Create a key across the wire
	send(2, engine.RequestCreateKey, &wallet.CreateKeyRequest{LocalPassword: "pw"})
	resp = recv()
	if resp.Kind != engine.ResponseKey || resp.RequestID != 2 {
		t.Fatalf("Unexpected create response: %s id=%d", resp.Kind, resp.RequestID)
	}
	var key wallet.Key
	if err := json.Unmarshal(resp.Payload, &key); err != nil {
		t.Fatalf("Failed to decode key: %v", err)
	}
	if key.PublicKey == "" {
		t.Error("Public key is empty")
	}

	// Push notifications travel the same stream
	qid := local.PushNetworkQuery([]byte("ping"))
	resp = recv()
	if !resp.IsPush() {
		t.Fatalf("Expected push, got %s", resp.Kind)
	}
	if resp.QueryID != qid {
		t.Errorf("Expected query id %d, got %d", qid, resp.QueryID)
	}
}
