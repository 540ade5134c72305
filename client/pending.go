package client

import (
	"sync"

	"github.com/ahwlsqja/walletbridge/engine"
)

// handlerFunc consumes the raw engine response for one request.
type handlerFunc func(*engine.Response)

// pendingTable maps in-flight request ids to their completion handlers.
// The lock covers map mutation only; handlers are never invoked while it is
// held, so a handler is free to issue new requests.
type pendingTable struct {
	mu       sync.Mutex
	handlers map[uint64]handlerFunc
}

func newPendingTable() *pendingTable {
	return &pendingTable{
		handlers: make(map[uint64]handlerFunc),
	}
}

// register stores a handler under a fresh id. Ids are allocated from a
// monotonic counter and never reused, so a collision means a caller bug.
func (t *pendingTable) register(id uint64, h handlerFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[id] = h
}

// takeAndRemove atomically removes and returns the handler for an id, or nil
// if no request with that id is pending.
func (t *pendingTable) takeAndRemove(id uint64) handlerFunc {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.handlers[id]
	if !ok {
		return nil
	}
	delete(t.handlers, id)
	return h
}

// size returns the number of in-flight requests.
func (t *pendingTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.handlers)
}
