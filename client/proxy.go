package client

import (
	"encoding/json"
	"sync"

	"github.com/ahwlsqja/walletbridge/engine"
	"github.com/ahwlsqja/walletbridge/wallet"
)

// QueryReply delivers the outcome of a proxied network query back to the
// engine. Exactly one of result or err should eventually be supplied, at
// most once; later invocations are ignored. A reply that never comes is
// tolerated: the query simply never completes on the engine side.
type QueryReply func(result []byte, err error)

// QueryHandler receives network-query push notifications. It is invoked on
// the receive loop goroutine and must not block; long work belongs on the
// handler's own goroutine, with reply called whenever the result is in.
type QueryHandler func(payload []byte, reply QueryReply)

// pushProxy converts engine push notifications into external handler calls
// and owns the reply path back into the engine.
type pushProxy struct {
	client  *Client
	handler QueryHandler
}

// handle dispatches one network-query push. This path never touches the
// pending request table.
func (p *pushProxy) handle(resp *engine.Response) {
	var query wallet.NetworkQuery
	if err := json.Unmarshal(resp.Payload, &query); err != nil {
		p.client.logger.Printf("[Client] Malformed network query %d: %v", resp.QueryID, err)
		return
	}

	if p.handler == nil {
		p.client.logger.Printf("[Client] No query handler configured, dropping network query %d", resp.QueryID)
		return
	}

	queryID := resp.QueryID
	var once sync.Once
	reply := func(result []byte, err error) {
		once.Do(func() {
			p.client.sendQueryReply(queryID, result, err)
		})
	}
	p.handler(query.Bytes, reply)
}
