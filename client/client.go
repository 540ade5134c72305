// Package client implements the asynchronous bridge over a poll-based
// wallet engine: request-id correlation, a dedicated receive loop, push
// proxying and an initialization status stream.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/ahwlsqja/walletbridge/engine"
	"github.com/ahwlsqja/walletbridge/metrics"
	"github.com/ahwlsqja/walletbridge/wallet"
)

// Config holds configuration for a bridge client.
type Config struct {
	// WalletConfig is the opaque configuration blob handed to the engine
	// at initialization.
	WalletConfig string

	// KeystoreDir is the directory the engine keeps its keys in.
	KeystoreDir string

	// PollInterval bounds each blocking wait of the receive loop.
	PollInterval time.Duration
}

// DefaultConfig returns a default configuration.
func DefaultConfig(keystoreDir string) *Config {
	return &Config{
		KeystoreDir:  keystoreDir,
		PollInterval: time.Second,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.KeystoreDir == "" {
		return ErrEmptyKeystoreDir
	}
	if c.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}
	return nil
}

// Custom errors
type configError string

func (e configError) Error() string {
	return string(e)
}

const (
	ErrEmptyKeystoreDir    = configError("keystore directory is required")
	ErrInvalidPollInterval = configError("poll interval must be positive")
)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector. Nil disables metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithQueryHandler sets the external handler for network-query pushes.
// Without a handler, pushes are logged and dropped.
func WithQueryHandler(h QueryHandler) Option {
	return func(c *Client) {
		c.queryHandler = h
	}
}

// Client is the asynchronous bridge over a wallet engine.
//
// Every operation allocates a fresh request id, registers a completion
// handler and returns a Call immediately; the single receive loop routes
// each engine response back to the handler that issued the matching
// request. Operations are available regardless of initialization status;
// callers that need a ready engine should observe SubscribeStatus first.
//
// A response kind the call site was not built for is a protocol-version
// mismatch between client and engine and panics rather than surfacing as a
// recoverable error.
type Client struct {
	config *Config
	eng    engine.Engine

	// Monotonic request id allocator; ids are never reused.
	nextID atomic.Uint64

	pending      *pendingTable
	status       *statusFeed
	proxy        *pushProxy
	queryHandler QueryHandler

	metrics *metrics.Metrics
	logger  *log.Logger

	// Receive loop lifetime
	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
}

// New creates a client, starts its receive loop and sends the engine
// initialization request. The returned client is usable immediately;
// readiness is observable through Status and SubscribeStatus.
func New(eng engine.Engine, config *Config, opts ...Option) (*Client, error) {
	if eng == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		config:  config,
		eng:     eng,
		pending: newPendingTable(),
		status:  newStatusFeed(),
		logger:  log.Default(),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.proxy = &pushProxy{client: c, handler: c.queryHandler}

	go c.receiveLoop()
	c.sendInit()

	return c, nil
}

// Close stops the receive loop. Proxy replies and late completions after
// Close are dropped silently. Already-pending calls never complete.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.cancel()
	return nil
}

// Status returns the latest initialization status.
func (c *Client) Status() Status {
	return c.status.load()
}

// SubscribeStatus returns a channel that immediately replays the latest
// initialization status and then delivers future transitions.
func (c *Client) SubscribeStatus() <-chan Status {
	return c.status.subscribe()
}

// Pending returns the number of requests awaiting an engine reply.
func (c *Client) Pending() int {
	return c.pending.size()
}

// CreateKey creates a new key protected by a local password.
func (c *Client) CreateKey(localPassword, mnemonicPassword string) *Call[*wallet.Key] {
	if err := wallet.ValidText(localPassword, mnemonicPassword); err != nil {
		return failedCall[*wallet.Key](err)
	}
	return call(c, engine.RequestCreateKey,
		&wallet.CreateKeyRequest{LocalPassword: localPassword, MnemonicPassword: mnemonicPassword},
		engine.ResponseKey, decodeJSON[wallet.Key])
}

// DeleteKey removes a key from the engine keystore.
func (c *Client) DeleteKey(publicKey string) *Call[struct{}] {
	if err := wallet.ValidText(publicKey); err != nil {
		return failedCall[struct{}](err)
	}
	return call(c, engine.RequestDeleteKey,
		&wallet.DeleteKeyRequest{PublicKey: publicKey},
		engine.ResponseOK, decodeNothing)
}

// ExportKey exports a key as its mnemonic word list.
func (c *Client) ExportKey(publicKey, localPassword string) *Call[*wallet.ExportedKey] {
	if err := wallet.ValidText(publicKey, localPassword); err != nil {
		return failedCall[*wallet.ExportedKey](err)
	}
	return call(c, engine.RequestExportKey,
		&wallet.ExportKeyRequest{PublicKey: publicKey, LocalPassword: localPassword},
		engine.ResponseExportedKey, decodeJSON[wallet.ExportedKey])
}

// ImportKey restores a key from a mnemonic word list.
func (c *Client) ImportKey(localPassword, mnemonicPassword string, wordList []string) *Call[*wallet.Key] {
	if err := wallet.ValidText(localPassword, mnemonicPassword); err != nil {
		return failedCall[*wallet.Key](err)
	}
	if err := wallet.ValidWordList(wordList); err != nil {
		return failedCall[*wallet.Key](err)
	}
	return call(c, engine.RequestImportKey,
		&wallet.ImportKeyRequest{LocalPassword: localPassword, MnemonicPassword: mnemonicPassword, WordList: wordList},
		engine.ResponseKey, decodeJSON[wallet.Key])
}

// AccountAddress derives the wallet address for a public key.
func (c *Client) AccountAddress(publicKey string) *Call[*wallet.AccountAddress] {
	if err := wallet.ValidText(publicKey); err != nil {
		return failedCall[*wallet.AccountAddress](err)
	}
	return call(c, engine.RequestAccountAddress,
		&wallet.AccountAddressRequest{PublicKey: publicKey},
		engine.ResponseAccountAddress, decodeJSON[wallet.AccountAddress])
}

// AccountState fetches the state of an account.
func (c *Client) AccountState(address string) *Call[*wallet.AccountState] {
	if err := wallet.ValidText(address); err != nil {
		return failedCall[*wallet.AccountState](err)
	}
	return call(c, engine.RequestAccountState,
		&wallet.AccountStateRequest{Address: address},
		engine.ResponseAccountState, decodeJSON[wallet.AccountState])
}

// SendGrams submits a transfer.
func (c *Client) SendGrams(source, destination string, amount int64, message string) *Call[*wallet.SendResult] {
	if err := wallet.ValidText(source, destination, message); err != nil {
		return failedCall[*wallet.SendResult](err)
	}
	return call(c, engine.RequestSendGrams,
		&wallet.SendGramsRequest{Source: source, Destination: destination, Amount: amount, Message: message},
		engine.ResponseSendResult, decodeJSON[wallet.SendResult])
}

// Transactions lists transactions for an account, newest first, starting
// from a known transaction id (zero id lists from the top).
func (c *Client) Transactions(address string, from wallet.TransactionID) *Call[*wallet.TransactionList] {
	if err := wallet.ValidText(address); err != nil {
		return failedCall[*wallet.TransactionList](err)
	}
	return call(c, engine.RequestTransactions,
		&wallet.TransactionsRequest{Address: address, FromID: from},
		engine.ResponseTransactions, decodeJSON[wallet.TransactionList])
}

// sendInit sends the engine initialization request and wires its completion
// into the status feed.
func (c *Client) sendInit() {
	payload, err := json.Marshal(&wallet.InitRequest{
		Config:      c.config.WalletConfig,
		KeystoreDir: c.config.KeystoreDir,
	})
	if err != nil {
		c.status.set(Status{State: StatusError, Err: err.Error()})
		return
	}

	id := c.nextID.Add(1)
	c.pending.register(id, func(resp *engine.Response) {
		switch resp.Kind {
		case engine.ResponseOK:
			c.status.set(Status{State: StatusReady})
		case engine.ResponseError:
			msg := "wallet engine initialization failed"
			var engErr wallet.EngineError
			if err := json.Unmarshal(resp.Payload, &engErr); err == nil && engErr.Message != "" {
				msg = engErr.Message
			}
			c.status.set(Status{State: StatusError, Err: msg})
		default:
			protocolFault(resp.Kind, engine.RequestInit)
		}
	})

	if err := c.send(id, &engine.Request{Kind: engine.RequestInit, Payload: payload}); err != nil {
		if h := c.pending.takeAndRemove(id); h != nil {
			c.status.set(Status{State: StatusError, Err: err.Error()})
		}
	}
}

// sendQueryReply sends a proxied network query outcome back into the
// engine. Dropped silently once the client is closed.
func (c *Client) sendQueryReply(queryID uint64, result []byte, replyErr error) {
	if c.closed.Load() {
		if c.metrics != nil {
			c.metrics.IncDroppedQueryReplies()
		}
		return
	}

	var req *engine.Request
	if replyErr == nil {
		payload, _ := json.Marshal(&wallet.QueryResultRequest{QueryID: queryID, Bytes: result})
		req = &engine.Request{Kind: engine.RequestNetworkQueryResult, Payload: payload}
	} else {
		payload, _ := json.Marshal(&wallet.QueryErrorRequest{QueryID: queryID, Code: 500, Message: replyErr.Error()})
		req = &engine.Request{Kind: engine.RequestNetworkQueryError, Payload: payload}
	}

	id := c.nextID.Add(1)
	// Fire-and-forget: the engine acknowledges the reply, but nobody is
	// waiting on it. Register a discarding handler so the ack stays
	// routable.
	c.pending.register(id, func(*engine.Response) {})
	if err := c.send(id, req); err != nil {
		c.pending.takeAndRemove(id)
		c.logger.Printf("[Client] Failed to send query reply %d: %v", queryID, err)
	}
}

// send hands a request to the engine and records it.
func (c *Client) send(id uint64, req *engine.Request) error {
	if err := c.eng.Send(id, req); err != nil {
		return fmt.Errorf("send %s request: %w", req.Kind, err)
	}
	if c.metrics != nil {
		c.metrics.RequestSent(id, req.Kind.String())
	}
	return nil
}

// receiveLoop is the single worker that drains the engine's output queue
// for the lifetime of the client. Each iteration blocks for at most the
// configured poll interval; responses are routed synchronously on this
// goroutine, in the order the engine produced them.
func (c *Client) receiveLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		resp := c.eng.Receive(c.config.PollInterval)
		if resp == nil {
			continue
		}
		c.route(resp)
	}
}

// route classifies one response: push notifications go to the proxy,
// correlated replies to their pending handler, and anything unroutable is
// silently dropped since it cannot be attributed to any caller.
func (c *Client) route(resp *engine.Response) {
	if resp.IsPush() {
		if c.metrics != nil {
			c.metrics.IncPushNotifications()
		}
		c.proxy.handle(resp)
		return
	}

	h := c.pending.takeAndRemove(resp.RequestID)
	if h == nil {
		c.logger.Printf("[Client] Dropping %s reply for unknown request %d", resp.Kind, resp.RequestID)
		if c.metrics != nil {
			c.metrics.IncUnroutableReplies()
		}
		return
	}
	if c.metrics != nil {
		c.metrics.ReplyRouted(resp.RequestID, resp.Kind.String())
	}
	h(resp)
}

// call issues a typed request: encode the payload, allocate a request id,
// register the completion handler and send. The handler adapts the raw
// response into the operation's result when the receive loop routes it.
func call[T any](c *Client, kind engine.RequestKind, payload any, expect engine.ResponseKind, decode func(json.RawMessage) (T, error)) *Call[T] {
	out := newCall[T]()

	data, err := json.Marshal(payload)
	if err != nil {
		out.fail(fmt.Errorf("encode %s request: %w", kind, err))
		return out
	}

	id := c.nextID.Add(1)
	c.pending.register(id, func(resp *engine.Response) {
		switch resp.Kind {
		case engine.ResponseError:
			out.fail(decodeEngineError(resp.Payload))
		case expect:
			v, err := decode(resp.Payload)
			if err != nil {
				out.fail(fmt.Errorf("decode %s response: %w", resp.Kind, err))
				return
			}
			out.complete(v)
		default:
			protocolFault(resp.Kind, kind)
		}
	})

	if err := c.send(id, &engine.Request{Kind: kind, Payload: data}); err != nil {
		if h := c.pending.takeAndRemove(id); h != nil {
			out.fail(err)
		}
	}
	return out
}

// protocolFault escalates a response kind the call site was not built for.
// The engine's message set must match compiled call sites; a mismatch is a
// version-skew bug, not a runtime-recoverable condition.
func protocolFault(got engine.ResponseKind, sent engine.RequestKind) {
	panic(fmt.Sprintf("walletbridge: engine replied %s to a %s request; client and engine disagree on the protocol", got, sent))
}

// decodeEngineError surfaces an engine error payload verbatim.
func decodeEngineError(payload json.RawMessage) error {
	var engErr wallet.EngineError
	if err := json.Unmarshal(payload, &engErr); err != nil || engErr.Message == "" {
		return &wallet.EngineError{Code: 500, Message: "engine reported an undecodable error"}
	}
	return &engErr
}

// decodeJSON decodes a success payload into the operation's result type.
func decodeJSON[T any](payload json.RawMessage) (*T, error) {
	v := new(T)
	if err := json.Unmarshal(payload, v); err != nil {
		return nil, err
	}
	return v, nil
}

// decodeNothing accepts a bare acknowledgement.
func decodeNothing(json.RawMessage) (struct{}, error) {
	return struct{}{}, nil
}
