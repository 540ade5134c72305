package engine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ahwlsqja/walletbridge/wallet"
)

func roundTrip(t *testing.T, e *LocalEngine, id uint64, kind RequestKind, payload any) *Response {
	t.Helper()

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Failed to marshal payload: %v", err)
	}
	if err := e.Send(id, &Request{Kind: kind, Payload: data}); err != nil {
		t.Fatalf("Failed to send %s: %v", kind, err)
	}

	resp := e.Receive(time.Second)
	if resp == nil {
		t.Fatalf("No response to %s", kind)
	}
	if resp.RequestID != id {
		t.Fatalf("Expected request id %d, got %d", id, resp.RequestID)
	}
	return resp
}

func decodeError(t *testing.T, resp *Response) *wallet.EngineError {
	t.Helper()
	if resp.Kind != ResponseError {
		t.Fatalf("Expected ERROR response, got %s", resp.Kind)
	}
	var engErr wallet.EngineError
	if err := json.Unmarshal(resp.Payload, &engErr); err != nil {
		t.Fatalf("Failed to decode error payload: %v", err)
	}
	return &engErr
}

func initEngine(t *testing.T) *LocalEngine {
	t.Helper()
	e := NewLocalEngine()
	resp := roundTrip(t, e, 1, RequestInit, &wallet.InitRequest{KeystoreDir: t.TempDir()})
	if resp.Kind != ResponseOK {
		t.Fatalf("Init failed: %s", resp.Kind)
	}
	return e
}

func TestLocalEngineInitGate(t *testing.T) {
	e := NewLocalEngine()

	resp := roundTrip(t, e, 1, RequestCreateKey, &wallet.CreateKeyRequest{})
	engErr := decodeError(t, resp)
	if engErr.Message != "engine is not initialized" {
		t.Errorf("Expected init gate error, got %q", engErr.Message)
	}
	if engErr.Code != 401 {
		t.Errorf("Expected code 401, got %d", engErr.Code)
	}

	// Init without a keystore directory is rejected
	resp = roundTrip(t, e, 2, RequestInit, &wallet.InitRequest{})
	if decodeError(t, resp).Message != "keystore directory is required" {
		t.Errorf("Expected keystore error, got %q", decodeError(t, resp).Message)
	}
}

func TestLocalEngineKeys(t *testing.T) {
	e := initEngine(t)

	var key wallet.Key
	t.Run("Create", func(t *testing.T) {
		resp := roundTrip(t, e, 10, RequestCreateKey, &wallet.CreateKeyRequest{
			LocalPassword:    "local",
			MnemonicPassword: "mnemonic",
		})
		if resp.Kind != ResponseKey {
			t.Fatalf("Expected KEY response, got %s", resp.Kind)
		}
		if err := json.Unmarshal(resp.Payload, &key); err != nil {
			t.Fatalf("Failed to decode key: %v", err)
		}
		if key.PublicKey == "" {
			t.Error("Public key is empty")
		}
		if len(key.Secret) != 16 {
			t.Errorf("Expected 16-byte secret, got %d bytes", len(key.Secret))
		}
	})

	var words []string
	t.Run("Export", func(t *testing.T) {
		resp := roundTrip(t, e, 11, RequestExportKey, &wallet.ExportKeyRequest{
			PublicKey:     key.PublicKey,
			LocalPassword: "wrong",
		})
		if decodeError(t, resp).Message != "invalid local password" {
			t.Errorf("Expected password error, got %q", decodeError(t, resp).Message)
		}

		resp = roundTrip(t, e, 12, RequestExportKey, &wallet.ExportKeyRequest{
			PublicKey:     key.PublicKey,
			LocalPassword: "local",
		})
		if resp.Kind != ResponseExportedKey {
			t.Fatalf("Expected EXPORTED-KEY response, got %s", resp.Kind)
		}
		var exported wallet.ExportedKey
		if err := json.Unmarshal(resp.Payload, &exported); err != nil {
			t.Fatalf("Failed to decode exported key: %v", err)
		}
		if len(exported.WordList) != 24 {
			t.Errorf("Expected 24 words, got %d", len(exported.WordList))
		}
		words = exported.WordList
	})

	t.Run("ImportRestoresKey", func(t *testing.T) {
		resp := roundTrip(t, e, 13, RequestImportKey, &wallet.ImportKeyRequest{
			LocalPassword:    "other",
			MnemonicPassword: "mnemonic",
			WordList:         words,
		})
		if resp.Kind != ResponseKey {
			t.Fatalf("Expected KEY response, got %s", resp.Kind)
		}
		var restored wallet.Key
		if err := json.Unmarshal(resp.Payload, &restored); err != nil {
			t.Fatalf("Failed to decode key: %v", err)
		}
		if restored.PublicKey != key.PublicKey {
			t.Errorf("Import produced a different key: %s vs %s", restored.PublicKey, key.PublicKey)
		}
	})

	t.Run("Address", func(t *testing.T) {
		resp := roundTrip(t, e, 14, RequestAccountAddress, &wallet.AccountAddressRequest{PublicKey: key.PublicKey})
		if resp.Kind != ResponseAccountAddress {
			t.Fatalf("Expected ACCOUNT-ADDRESS response, got %s", resp.Kind)
		}
		var addr wallet.AccountAddress
		if err := json.Unmarshal(resp.Payload, &addr); err != nil {
			t.Fatalf("Failed to decode address: %v", err)
		}
		if len(addr.Value) != 50 || addr.Value[:2] != "EQ" {
			t.Errorf("Unexpected address format: %q", addr.Value)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		resp := roundTrip(t, e, 15, RequestDeleteKey, &wallet.DeleteKeyRequest{PublicKey: key.PublicKey})
		if resp.Kind != ResponseOK {
			t.Fatalf("Expected OK response, got %s", resp.Kind)
		}

		resp = roundTrip(t, e, 16, RequestExportKey, &wallet.ExportKeyRequest{
			PublicKey:     key.PublicKey,
			LocalPassword: "local",
		})
		if decodeError(t, resp).Message != "key not found" {
			t.Errorf("Expected not-found error, got %q", decodeError(t, resp).Message)
		}
	})
}

func TestLocalEngineTransfers(t *testing.T) {
	e := initEngine(t)

	const src = "EQsource"
	const dst = "EQdestination"
	e.Credit(src, 1_000_000_000)

	t.Run("State", func(t *testing.T) {
		resp := roundTrip(t, e, 20, RequestAccountState, &wallet.AccountStateRequest{Address: src})
		if resp.Kind != ResponseAccountState {
			t.Fatalf("Expected ACCOUNT-STATE response, got %s", resp.Kind)
		}
		var state wallet.AccountState
		if err := json.Unmarshal(resp.Payload, &state); err != nil {
			t.Fatalf("Failed to decode state: %v", err)
		}
		if state.Balance != 1_000_000_000 {
			t.Errorf("Expected balance 1000000000, got %d", state.Balance)
		}
	})

	t.Run("NotEnoughFunds", func(t *testing.T) {
		resp := roundTrip(t, e, 21, RequestSendGrams, &wallet.SendGramsRequest{
			Source:      src,
			Destination: dst,
			Amount:      2_000_000_000,
		})
		if decodeError(t, resp).Message != "not enough funds" {
			t.Errorf("Expected funds error, got %q", decodeError(t, resp).Message)
		}
	})

	t.Run("Send", func(t *testing.T) {
		resp := roundTrip(t, e, 22, RequestSendGrams, &wallet.SendGramsRequest{
			Source:      src,
			Destination: dst,
			Amount:      300_000_000,
			Message:     "rent",
		})
		if resp.Kind != ResponseSendResult {
			t.Fatalf("Expected SEND-RESULT response, got %s", resp.Kind)
		}
		var result wallet.SendResult
		if err := json.Unmarshal(resp.Payload, &result); err != nil {
			t.Fatalf("Failed to decode send result: %v", err)
		}
		if len(result.BodyHash) == 0 {
			t.Error("Body hash is empty")
		}

		// Source pays amount plus fee; destination receives the amount
		resp = roundTrip(t, e, 23, RequestAccountState, &wallet.AccountStateRequest{Address: src})
		var state wallet.AccountState
		if err := json.Unmarshal(resp.Payload, &state); err != nil {
			t.Fatalf("Failed to decode state: %v", err)
		}
		if want := int64(1_000_000_000 - 300_000_000 - transferFee); state.Balance != want {
			t.Errorf("Expected source balance %d, got %d", want, state.Balance)
		}

		resp = roundTrip(t, e, 24, RequestAccountState, &wallet.AccountStateRequest{Address: dst})
		if err := json.Unmarshal(resp.Payload, &state); err != nil {
			t.Fatalf("Failed to decode state: %v", err)
		}
		if state.Balance != 300_000_000 {
			t.Errorf("Expected destination balance 300000000, got %d", state.Balance)
		}
		if state.LastTransactionID.IsZero() {
			t.Error("Last transaction id is zero after a transfer")
		}
	})

	t.Run("Transactions", func(t *testing.T) {
		// Second transfer so the listing has two entries, newest first
		roundTrip(t, e, 25, RequestSendGrams, &wallet.SendGramsRequest{
			Source:      src,
			Destination: dst,
			Amount:      100_000_000,
		})

		resp := roundTrip(t, e, 26, RequestTransactions, &wallet.TransactionsRequest{Address: src})
		if resp.Kind != ResponseTransactions {
			t.Fatalf("Expected TRANSACTIONS response, got %s", resp.Kind)
		}
		var list wallet.TransactionList
		if err := json.Unmarshal(resp.Payload, &list); err != nil {
			t.Fatalf("Failed to decode list: %v", err)
		}
		if len(list.Transactions) != 2 {
			t.Fatalf("Expected 2 transactions, got %d", len(list.Transactions))
		}
		if list.Transactions[0].ID.LT <= list.Transactions[1].ID.LT {
			t.Error("Transactions are not newest first")
		}
		if list.Transactions[0].Value != 100_000_000 {
			t.Errorf("Expected newest value 100000000, got %d", list.Transactions[0].Value)
		}

		// Page from the older transaction id
		resp = roundTrip(t, e, 27, RequestTransactions, &wallet.TransactionsRequest{
			Address: src,
			FromID:  list.Transactions[1].ID,
		})
		if err := json.Unmarshal(resp.Payload, &list); err != nil {
			t.Fatalf("Failed to decode list: %v", err)
		}
		if len(list.Transactions) != 1 {
			t.Fatalf("Expected 1 transaction on the second page, got %d", len(list.Transactions))
		}
		if list.Transactions[0].Value != 300_000_000 {
			t.Errorf("Expected paged value 300000000, got %d", list.Transactions[0].Value)
		}
	})
}

func TestLocalEngineNetworkQueries(t *testing.T) {
	e := initEngine(t)

	qid := e.PushNetworkQuery([]byte("lookup"))
	push := e.Receive(time.Second)
	if push == nil {
		t.Fatal("No push notification")
	}
	if !push.IsPush() {
		t.Fatalf("Expected push, got %s with request id %d", push.Kind, push.RequestID)
	}
	if push.QueryID != qid {
		t.Errorf("Expected query id %d, got %d", qid, push.QueryID)
	}
	var query wallet.NetworkQuery
	if err := json.Unmarshal(push.Payload, &query); err != nil {
		t.Fatalf("Failed to decode query: %v", err)
	}
	if string(query.Bytes) != "lookup" {
		t.Errorf("Expected payload %q, got %q", "lookup", query.Bytes)
	}

	t.Run("Result", func(t *testing.T) {
		resp := roundTrip(t, e, 30, RequestNetworkQueryResult, &wallet.QueryResultRequest{
			QueryID: qid,
			Bytes:   []byte("answer"),
		})
		if resp.Kind != ResponseOK {
			t.Fatalf("Expected OK response, got %s", resp.Kind)
		}
		result, engErr, ok := e.QueryReply(qid)
		if !ok {
			t.Fatal("No reply recorded")
		}
		if engErr != nil {
			t.Fatalf("Unexpected error reply: %v", engErr)
		}
		if string(result) != "answer" {
			t.Errorf("Expected result %q, got %q", "answer", result)
		}
	})

	t.Run("Error", func(t *testing.T) {
		qid2 := e.PushNetworkQuery([]byte("lookup2"))
		e.Receive(time.Second)

		resp := roundTrip(t, e, 31, RequestNetworkQueryError, &wallet.QueryErrorRequest{
			QueryID: qid2,
			Code:    500,
			Message: "liteserver unreachable",
		})
		if resp.Kind != ResponseOK {
			t.Fatalf("Expected OK response, got %s", resp.Kind)
		}
		_, engErr, ok := e.QueryReply(qid2)
		if !ok {
			t.Fatal("No reply recorded")
		}
		if engErr == nil || engErr.Message != "liteserver unreachable" {
			t.Errorf("Unexpected error reply: %v", engErr)
		}
	})
}

func TestLocalEngineReceiveTimeout(t *testing.T) {
	e := NewLocalEngine()
	start := time.Now()
	if resp := e.Receive(20 * time.Millisecond); resp != nil {
		t.Fatalf("Expected nil, got %s", resp.Kind)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("Receive returned before the timeout")
	}
}
