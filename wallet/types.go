// Package wallet defines the domain payloads exchanged with the wallet
// engine: keys, addresses, account state and transactions, plus the request
// payload shapes for each engine operation.
package wallet

import (
	"fmt"
	"unicode/utf8"

	"github.com/cometbft/cometbft/libs/bytes"
)

// EngineError is an error payload reported by the engine for a request.
type EngineError struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
}

// Error returns the engine's message verbatim.
func (e *EngineError) Error() string {
	return e.Message
}

// Key is a key pair held by the engine keystore. Secret is the encrypted
// secret blob the engine hands back; it is opaque to the bridge.
type Key struct {
	PublicKey string         `json:"public_key"`
	Secret    bytes.HexBytes `json:"secret"`
}

// ExportedKey is the mnemonic word list backing a key.
type ExportedKey struct {
	WordList []string `json:"word_list"`
}

// AccountAddress is a wallet address derived from a public key.
type AccountAddress struct {
	Value string `json:"value"`
}

// TransactionID identifies a transaction by logical time and hash.
type TransactionID struct {
	LT   uint64         `json:"lt"`
	Hash bytes.HexBytes `json:"hash,omitempty"`
}

// IsZero reports whether the id is unset.
func (id TransactionID) IsZero() bool {
	return id.LT == 0 && len(id.Hash) == 0
}

// AccountState is the engine's view of an account.
type AccountState struct {
	Balance           int64         `json:"balance"`
	LastTransactionID TransactionID `json:"last_transaction_id"`
	SyncUtime         int64         `json:"sync_utime"`
}

// Transaction is a single transfer recorded against an account.
type Transaction struct {
	ID          TransactionID `json:"id"`
	Utime       int64         `json:"utime"`
	Source      string        `json:"source"`
	Destination string        `json:"destination"`
	Value       int64         `json:"value"`
	Fee         int64         `json:"fee"`
	Message     string        `json:"message,omitempty"`
}

// TransactionList is a page of transactions, newest first.
type TransactionList struct {
	Transactions []Transaction `json:"transactions"`
	PreviousID   TransactionID `json:"previous_id"`
}

// SendResult acknowledges a submitted transfer.
type SendResult struct {
	BodyHash bytes.HexBytes `json:"body_hash"`
}

// NetworkQuery is the payload of a network-query push notification.
type NetworkQuery struct {
	Bytes []byte `json:"bytes"`
}

// Request payload shapes, one per engine operation.

// InitRequest configures the engine.
type InitRequest struct {
	Config      string `json:"config"`
	KeystoreDir string `json:"keystore_dir"`
}

// CreateKeyRequest creates a new key.
type CreateKeyRequest struct {
	LocalPassword    string `json:"local_password"`
	MnemonicPassword string `json:"mnemonic_password"`
}

// DeleteKeyRequest removes a key.
type DeleteKeyRequest struct {
	PublicKey string `json:"public_key"`
}

// ExportKeyRequest exports a key's word list.
type ExportKeyRequest struct {
	PublicKey     string `json:"public_key"`
	LocalPassword string `json:"local_password"`
}

// ImportKeyRequest restores a key from a word list.
type ImportKeyRequest struct {
	LocalPassword    string   `json:"local_password"`
	MnemonicPassword string   `json:"mnemonic_password"`
	WordList         []string `json:"word_list"`
}

// AccountAddressRequest derives a wallet address.
type AccountAddressRequest struct {
	PublicKey string `json:"public_key"`
}

// AccountStateRequest fetches account state.
type AccountStateRequest struct {
	Address string `json:"address"`
}

// SendGramsRequest submits a transfer.
type SendGramsRequest struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Amount      int64  `json:"amount"`
	Message     string `json:"message,omitempty"`
}

// TransactionsRequest lists transactions starting from a known id.
type TransactionsRequest struct {
	Address string        `json:"address"`
	FromID  TransactionID `json:"from_id"`
}

// QueryResultRequest carries a proxied network query result back to the
// engine, tagged with the query id from the originating push.
type QueryResultRequest struct {
	QueryID uint64 `json:"query_id"`
	Bytes   []byte `json:"bytes"`
}

// QueryErrorRequest reports a proxied network query failure to the engine.
type QueryErrorRequest struct {
	QueryID uint64 `json:"query_id"`
	Code    int32  `json:"code"`
	Message string `json:"message"`
}

// Text validation errors
type walletError string

func (e walletError) Error() string {
	return string(e)
}

// ErrInvalidText reports caller-supplied text that cannot be represented in
// the engine's wire encoding.
const ErrInvalidText = walletError("text is not valid UTF-8")

// ValidText verifies that every value can be represented in the engine's
// wire encoding. It fails before any engine interaction takes place.
func ValidText(values ...string) error {
	for _, v := range values {
		if !utf8.ValidString(v) {
			return fmt.Errorf("%w: %q", ErrInvalidText, v)
		}
	}
	return nil
}

// ValidWordList verifies every word of a mnemonic word list.
func ValidWordList(words []string) error {
	for _, w := range words {
		if !utf8.ValidString(w) {
			return fmt.Errorf("%w: %q", ErrInvalidText, w)
		}
	}
	return nil
}
