package engine

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/cometbft/cometbft/libs/bytes"
	cmtrand "github.com/cometbft/cometbft/libs/rand"
	"github.com/google/uuid"

	"github.com/ahwlsqja/walletbridge/wallet"
)

// transferFee is the flat fee charged by the local engine per transfer.
const transferFee = 10_000_000

// mnemonicWords is the word pool the local engine draws mnemonics from.
var mnemonicWords = []string{
	"abandon", "able", "absorb", "abstract", "access", "acid", "across", "act",
	"adapt", "add", "adjust", "admit", "advance", "age", "agent", "agree",
	"ahead", "air", "alarm", "album", "alert", "alien", "all", "alley",
	"alpha", "alter", "amount", "anchor", "angle", "animal", "answer", "any",
	"apart", "apple", "arch", "arena", "argue", "armor", "array", "arrow",
	"artist", "aspect", "asset", "atom", "attend", "audit", "aunt", "auto",
	"avoid", "awake", "axis", "badge", "balance", "bamboo", "banner", "basic",
	"battle", "beach", "bean", "become", "begin", "believe", "bench", "best",
}

// localKey is a key held by the local engine keystore.
type localKey struct {
	priv             ed25519.PrivKey
	secret           bytes.HexBytes
	words            []string
	localPassword    string
	mnemonicPassword string
}

// localAccount is an account tracked by the local engine.
type localAccount struct {
	balance int64
	lastID  wallet.TransactionID
	txs     []wallet.Transaction // newest first
}

// LocalEngine is a complete in-process wallet engine. It backs the gRPC
// engine server, the CLI's standalone mode and the test suites; real
// deployments replace it with a remote node client behind the same
// interface.
type LocalEngine struct {
	mu sync.Mutex

	// Response queue drained by Receive, strictly FIFO.
	out chan *Response

	initialized bool
	keystoreDir string

	// Keys by public key, accounts by address.
	keys     map[string]*localKey
	accounts map[string]*localAccount

	// Logical time for transaction ids.
	lt uint64

	// Query id namespace for push notifications.
	nextQueryID atomic.Uint64

	// Replies to proxied network queries, by query id.
	queryResults map[uint64][]byte
	queryErrors  map[uint64]*wallet.EngineError

	logger *log.Logger
}

// NewLocalEngine creates a local engine with an empty keystore.
func NewLocalEngine() *LocalEngine {
	return &LocalEngine{
		out:          make(chan *Response, 256),
		keys:         make(map[string]*localKey),
		accounts:     make(map[string]*localAccount),
		queryResults: make(map[uint64][]byte),
		queryErrors:  make(map[uint64]*wallet.EngineError),
		logger:       log.Default(),
	}
}

var _ Engine = (*LocalEngine)(nil)

// Send enqueues a request. The request is processed synchronously and its
// response queued for Receive; Send itself never reports operation failures.
func (e *LocalEngine) Send(requestID uint64, req *Request) error {
	if req == nil {
		return fmt.Errorf("nil request")
	}

	e.mu.Lock()
	resp := e.handle(requestID, req)
	e.mu.Unlock()

	if resp != nil {
		e.push(resp)
	}
	return nil
}

// Receive blocks for at most timeout waiting for the next response.
func (e *LocalEngine) Receive(timeout time.Duration) *Response {
	select {
	case resp := <-e.out:
		return resp
	case <-time.After(timeout):
		return nil
	}
}

// PushNetworkQuery enqueues a network-query push notification and returns
// the query id the engine expects the reply to be tagged with.
func (e *LocalEngine) PushNetworkQuery(payload []byte) uint64 {
	qid := e.nextQueryID.Add(1)
	data, _ := json.Marshal(&wallet.NetworkQuery{Bytes: payload})
	e.push(&Response{Kind: ResponseNetworkQuery, QueryID: qid, Payload: data})
	return qid
}

// QueryReply returns the proxied reply recorded for a query id, if any.
func (e *LocalEngine) QueryReply(queryID uint64) ([]byte, *wallet.EngineError, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if result, ok := e.queryResults[queryID]; ok {
		return result, nil, true
	}
	if engErr, ok := e.queryErrors[queryID]; ok {
		return nil, engErr, true
	}
	return nil, nil, false
}

// Credit adds funds to an account, creating it if needed.
func (e *LocalEngine) Credit(address string, amount int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.account(address).balance += amount
}

// KeystoreDir returns the directory the engine was initialized with.
func (e *LocalEngine) KeystoreDir() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.keystoreDir
}

// push queues a response, dropping it if the queue is full.
func (e *LocalEngine) push(resp *Response) {
	select {
	case e.out <- resp:
	default:
		e.logger.Printf("[LocalEngine] Response queue full, dropping %s", resp.Kind)
	}
}

// handle executes one request. Caller holds e.mu.
func (e *LocalEngine) handle(id uint64, req *Request) *Response {
	if !e.initialized && req.Kind != RequestInit {
		return errResponse(id, 401, "engine is not initialized")
	}

	switch req.Kind {
	case RequestInit:
		return e.handleInit(id, req.Payload)
	case RequestCreateKey:
		return e.handleCreateKey(id, req.Payload)
	case RequestDeleteKey:
		return e.handleDeleteKey(id, req.Payload)
	case RequestExportKey:
		return e.handleExportKey(id, req.Payload)
	case RequestImportKey:
		return e.handleImportKey(id, req.Payload)
	case RequestAccountAddress:
		return e.handleAccountAddress(id, req.Payload)
	case RequestAccountState:
		return e.handleAccountState(id, req.Payload)
	case RequestSendGrams:
		return e.handleSendGrams(id, req.Payload)
	case RequestTransactions:
		return e.handleTransactions(id, req.Payload)
	case RequestNetworkQueryResult:
		return e.handleQueryResult(id, req.Payload)
	case RequestNetworkQueryError:
		return e.handleQueryError(id, req.Payload)
	default:
		return errResponse(id, 400, fmt.Sprintf("unknown request kind %d", req.Kind))
	}
}

func (e *LocalEngine) handleInit(id uint64, payload json.RawMessage) *Response {
	var req wallet.InitRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return errResponse(id, 400, "malformed init request")
	}
	if req.KeystoreDir == "" {
		return errResponse(id, 400, "keystore directory is required")
	}
	e.initialized = true
	e.keystoreDir = req.KeystoreDir
	return okResponse(id)
}

func (e *LocalEngine) handleCreateKey(id uint64, payload json.RawMessage) *Response {
	var req wallet.CreateKeyRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return errResponse(id, 400, "malformed create key request")
	}

	words := make([]string, 24)
	for i := range words {
		words[i] = mnemonicWords[cmtrand.Intn(len(mnemonicWords))]
	}

	key := e.storeKey(words, req.LocalPassword, req.MnemonicPassword)
	return jsonResponse(id, ResponseKey, key)
}

func (e *LocalEngine) handleDeleteKey(id uint64, payload json.RawMessage) *Response {
	var req wallet.DeleteKeyRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return errResponse(id, 400, "malformed delete key request")
	}
	if _, ok := e.keys[req.PublicKey]; !ok {
		return errResponse(id, 404, "key not found")
	}
	delete(e.keys, req.PublicKey)
	return okResponse(id)
}

func (e *LocalEngine) handleExportKey(id uint64, payload json.RawMessage) *Response {
	var req wallet.ExportKeyRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return errResponse(id, 400, "malformed export key request")
	}
	key, ok := e.keys[req.PublicKey]
	if !ok {
		return errResponse(id, 404, "key not found")
	}
	if key.localPassword != req.LocalPassword {
		return errResponse(id, 403, "invalid local password")
	}
	return jsonResponse(id, ResponseExportedKey, &wallet.ExportedKey{WordList: key.words})
}

func (e *LocalEngine) handleImportKey(id uint64, payload json.RawMessage) *Response {
	var req wallet.ImportKeyRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return errResponse(id, 400, "malformed import key request")
	}
	if len(req.WordList) == 0 {
		return errResponse(id, 400, "empty word list")
	}
	key := e.storeKey(req.WordList, req.LocalPassword, req.MnemonicPassword)
	return jsonResponse(id, ResponseKey, key)
}

func (e *LocalEngine) handleAccountAddress(id uint64, payload json.RawMessage) *Response {
	var req wallet.AccountAddressRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return errResponse(id, 400, "malformed account address request")
	}
	key, ok := e.keys[req.PublicKey]
	if !ok {
		return errResponse(id, 404, "key not found")
	}
	addr := deriveAddress(key.priv.PubKey().Bytes())
	return jsonResponse(id, ResponseAccountAddress, &wallet.AccountAddress{Value: addr})
}

func (e *LocalEngine) handleAccountState(id uint64, payload json.RawMessage) *Response {
	var req wallet.AccountStateRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return errResponse(id, 400, "malformed account state request")
	}
	if req.Address == "" {
		return errResponse(id, 400, "address is required")
	}

	state := &wallet.AccountState{SyncUtime: time.Now().Unix()}
	if acc, ok := e.accounts[req.Address]; ok {
		state.Balance = acc.balance
		state.LastTransactionID = acc.lastID
	}
	return jsonResponse(id, ResponseAccountState, state)
}

func (e *LocalEngine) handleSendGrams(id uint64, payload json.RawMessage) *Response {
	var req wallet.SendGramsRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return errResponse(id, 400, "malformed send grams request")
	}
	if req.Amount <= 0 {
		return errResponse(id, 400, "amount must be positive")
	}

	src, ok := e.accounts[req.Source]
	if !ok {
		return errResponse(id, 404, "account not found")
	}
	if src.balance < req.Amount+transferFee {
		return errResponse(id, 402, "not enough funds")
	}

	dst := e.account(req.Destination)
	src.balance -= req.Amount + transferFee
	dst.balance += req.Amount

	e.lt++
	u := uuid.New()
	txID := wallet.TransactionID{LT: e.lt, Hash: u[:]}
	tx := wallet.Transaction{
		ID:          txID,
		Utime:       time.Now().Unix(),
		Source:      req.Source,
		Destination: req.Destination,
		Value:       req.Amount,
		Fee:         transferFee,
		Message:     req.Message,
	}
	src.record(tx)
	dst.record(tx)

	return jsonResponse(id, ResponseSendResult, &wallet.SendResult{BodyHash: txID.Hash})
}

func (e *LocalEngine) handleTransactions(id uint64, payload json.RawMessage) *Response {
	var req wallet.TransactionsRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return errResponse(id, 400, "malformed transactions request")
	}

	list := &wallet.TransactionList{}
	if acc, ok := e.accounts[req.Address]; ok {
		for _, tx := range acc.txs {
			if !req.FromID.IsZero() && tx.ID.LT > req.FromID.LT {
				continue
			}
			list.Transactions = append(list.Transactions, tx)
		}
		if n := len(list.Transactions); n > 0 {
			list.PreviousID = list.Transactions[n-1].ID
		}
	}
	return jsonResponse(id, ResponseTransactions, list)
}

func (e *LocalEngine) handleQueryResult(id uint64, payload json.RawMessage) *Response {
	var req wallet.QueryResultRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return errResponse(id, 400, "malformed query result")
	}
	e.queryResults[req.QueryID] = req.Bytes
	return okResponse(id)
}

func (e *LocalEngine) handleQueryError(id uint64, payload json.RawMessage) *Response {
	var req wallet.QueryErrorRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return errResponse(id, 400, "malformed query error")
	}
	e.queryErrors[req.QueryID] = &wallet.EngineError{Code: req.Code, Message: req.Message}
	return okResponse(id)
}

// storeKey derives a key pair from a word list and registers it. Derivation
// is deterministic so export followed by import restores the same key.
// Caller holds e.mu.
func (e *LocalEngine) storeKey(words []string, localPassword, mnemonicPassword string) *wallet.Key {
	seed := strings.Join(words, " ") + "|" + mnemonicPassword
	priv := ed25519.GenPrivKeyFromSecret([]byte(seed))
	publicKey := bytes.HexBytes(priv.PubKey().Bytes()).String()

	e.keys[publicKey] = &localKey{
		priv:             priv,
		secret:           cmtrand.Bytes(16),
		words:            words,
		localPassword:    localPassword,
		mnemonicPassword: mnemonicPassword,
	}
	return &wallet.Key{PublicKey: publicKey, Secret: e.keys[publicKey].secret}
}

// account returns the account for an address, creating it if needed.
// Caller holds e.mu.
func (e *LocalEngine) account(address string) *localAccount {
	acc, ok := e.accounts[address]
	if !ok {
		acc = &localAccount{}
		e.accounts[address] = acc
	}
	return acc
}

// record prepends a transaction, keeping the list newest first.
func (a *localAccount) record(tx wallet.Transaction) {
	a.txs = append([]wallet.Transaction{tx}, a.txs...)
	a.lastID = tx.ID
}

// deriveAddress derives the wallet address for a public key.
func deriveAddress(pubKey []byte) string {
	sum := sha256.Sum256(pubKey)
	return "EQ" + bytes.HexBytes(sum[:24]).String()
}

func okResponse(id uint64) *Response {
	return &Response{Kind: ResponseOK, RequestID: id}
}

func errResponse(id uint64, code int32, msg string) *Response {
	data, _ := json.Marshal(&wallet.EngineError{Code: code, Message: msg})
	return &Response{Kind: ResponseError, RequestID: id, Payload: data}
}

func jsonResponse(id uint64, kind ResponseKind, v any) *Response {
	data, err := json.Marshal(v)
	if err != nil {
		return errResponse(id, 500, fmt.Sprintf("encode %s response: %v", kind, err))
	}
	return &Response{Kind: kind, RequestID: id, Payload: data}
}
