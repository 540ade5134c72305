// Package engine defines the wallet engine collaborator: a poll-based node
// client that accepts opaque typed requests and produces responses on an
// internal queue. The bridge never interprets engine state itself; it only
// correlates requests with responses.
package engine

import (
	"encoding/json"
	"time"
)

// RequestKind identifies the operation carried by a Request.
type RequestKind int

const (
	// RequestInit configures the engine and points it at the keystore.
	RequestInit RequestKind = iota + 1
	// RequestCreateKey creates a new key protected by a local password.
	RequestCreateKey
	// RequestDeleteKey removes a key from the engine keystore.
	RequestDeleteKey
	// RequestExportKey exports a key as its mnemonic word list.
	RequestExportKey
	// RequestImportKey restores a key from a mnemonic word list.
	RequestImportKey
	// RequestAccountAddress derives the wallet address for a public key.
	RequestAccountAddress
	// RequestAccountState fetches the state of an account.
	RequestAccountState
	// RequestSendGrams submits a transfer.
	RequestSendGrams
	// RequestTransactions lists transactions for an account.
	RequestTransactions
	// RequestNetworkQueryResult carries the successful result of a proxied
	// network query back into the engine.
	RequestNetworkQueryResult
	// RequestNetworkQueryError carries the failure of a proxied network
	// query back into the engine.
	RequestNetworkQueryError
)

// String returns the string representation of RequestKind.
func (k RequestKind) String() string {
	switch k {
	case RequestInit:
		return "INIT"
	case RequestCreateKey:
		return "CREATE-KEY"
	case RequestDeleteKey:
		return "DELETE-KEY"
	case RequestExportKey:
		return "EXPORT-KEY"
	case RequestImportKey:
		return "IMPORT-KEY"
	case RequestAccountAddress:
		return "ACCOUNT-ADDRESS"
	case RequestAccountState:
		return "ACCOUNT-STATE"
	case RequestSendGrams:
		return "SEND-GRAMS"
	case RequestTransactions:
		return "TRANSACTIONS"
	case RequestNetworkQueryResult:
		return "NETWORK-QUERY-RESULT"
	case RequestNetworkQueryError:
		return "NETWORK-QUERY-ERROR"
	default:
		return "UNKNOWN"
	}
}

// ResponseKind identifies the payload carried by a Response.
type ResponseKind int

const (
	// ResponseError is an engine-reported failure for a request.
	ResponseError ResponseKind = iota + 1
	// ResponseOK acknowledges a request that produces no value.
	ResponseOK
	// ResponseKey carries a created or imported key.
	ResponseKey
	// ResponseAccountAddress carries a derived wallet address.
	ResponseAccountAddress
	// ResponseAccountState carries the state of an account.
	ResponseAccountState
	// ResponseExportedKey carries a mnemonic word list.
	ResponseExportedKey
	// ResponseTransactions carries a transaction listing.
	ResponseTransactions
	// ResponseSendResult acknowledges a submitted transfer.
	ResponseSendResult
	// ResponseNetworkQuery is a push notification: the engine asks the
	// application to proxy a network query out of process. It carries no
	// request id; its QueryID lives in the engine's own namespace.
	ResponseNetworkQuery
)

// String returns the string representation of ResponseKind.
func (k ResponseKind) String() string {
	switch k {
	case ResponseError:
		return "ERROR"
	case ResponseOK:
		return "OK"
	case ResponseKey:
		return "KEY"
	case ResponseAccountAddress:
		return "ACCOUNT-ADDRESS"
	case ResponseAccountState:
		return "ACCOUNT-STATE"
	case ResponseExportedKey:
		return "EXPORTED-KEY"
	case ResponseTransactions:
		return "TRANSACTIONS"
	case ResponseSendResult:
		return "SEND-RESULT"
	case ResponseNetworkQuery:
		return "NETWORK-QUERY"
	default:
		return "UNKNOWN"
	}
}

// Request is an opaque typed message sent into the engine.
type Request struct {
	Kind    RequestKind     `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response is an opaque typed message produced by the engine. A correlated
// reply carries the originating request id; a push notification carries a
// zero request id and, for network queries, its own query id.
type Response struct {
	Kind      ResponseKind    `json:"kind"`
	RequestID uint64          `json:"request_id,omitempty"`
	QueryID   uint64          `json:"query_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// IsPush reports whether the response is an unsolicited push notification.
func (r *Response) IsPush() bool {
	return r.Kind == ResponseNetworkQuery
}

// Engine is the interface to the wallet engine.
//
// Send enqueues a request tagged with the caller's request id and returns
// immediately. Receive blocks for at most timeout waiting for the next
// response and returns nil when none arrived in time. Responses are produced
// strictly in the order the engine finished them.
type Engine interface {
	Send(requestID uint64, req *Request) error
	Receive(timeout time.Duration) *Response
}
