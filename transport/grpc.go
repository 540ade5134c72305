package transport

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	walletv1 "github.com/ahwlsqja/walletbridge/api/wallet/v1"
	"github.com/ahwlsqja/walletbridge/engine"
)

const (
	dialTimeout    = 10 * time.Second
	submitTimeout  = 5 * time.Second
	maxMessageSize = 64 * 1024 * 1024 // 64MB
)

// ================================================================================
//                                  RemoteEngine
// ================================================================================

// RemoteEngine is an engine.Engine backed by a remote engine process. Send
// is a unary submit; Receive drains a server-side response stream through a
// bounded local buffer.
type RemoteEngine struct {
	addr   string
	conn   *grpc.ClientConn
	client walletv1.EngineServiceClient
	logger *log.Logger

	buf chan *engine.Response

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ engine.Engine = (*RemoteEngine)(nil)

// NewRemoteEngine connects to a remote engine at the given address.
func NewRemoteEngine(addr string) (*RemoteEngine, error) {
	dialCtx, dialCancel := context.WithTimeout(context.Background(), dialTimeout)
	defer dialCancel()

	conn, err := grpc.DialContext(dialCtx, addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(maxMessageSize),
			grpc.MaxCallSendMsgSize(maxMessageSize),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to engine at %s: %w", addr, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &RemoteEngine{
		addr:   addr,
		conn:   conn,
		client: walletv1.NewEngineServiceClient(conn),
		logger: log.Default(),
		buf:    make(chan *engine.Response, 256),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Start opens the response stream and begins filling the local buffer.
func (r *RemoteEngine) Start() error {
	stream, err := r.client.Responses(r.ctx, &walletv1.StreamRequest{})
	if err != nil {
		return fmt.Errorf("failed to open response stream: %w", err)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			msg, err := stream.Recv()
			if err != nil {
				if r.ctx.Err() == nil {
					r.logger.Printf("[RemoteEngine] Response stream closed: %v", err)
				}
				return
			}
			select {
			case r.buf <- protoToResponse(msg):
			default:
				r.logger.Printf("[RemoteEngine] Buffer full, dropping %s response", engine.ResponseKind(msg.Kind))
			}
		}
	}()

	r.logger.Printf("[RemoteEngine] Connected to %s", r.addr)
	return nil
}

// Stop tears down the stream and the connection.
func (r *RemoteEngine) Stop() error {
	r.cancel()
	r.wg.Wait()
	return r.conn.Close()
}

// Send submits one request to the remote engine.
func (r *RemoteEngine) Send(requestID uint64, req *engine.Request) error {
	ctx, cancel := context.WithTimeout(r.ctx, submitTimeout)
	defer cancel()

	resp, err := r.client.Submit(ctx, &walletv1.SubmitRequest{
		RequestId: requestID,
		Kind:      int32(req.Kind),
		Payload:   req.Payload,
	})
	if err != nil {
		return fmt.Errorf("failed to submit %s request: %w", req.Kind, err)
	}
	if !resp.Accepted {
		return fmt.Errorf("%s request rejected by engine", req.Kind)
	}
	return nil
}

// Receive returns the next buffered response, waiting at most timeout.
func (r *RemoteEngine) Receive(timeout time.Duration) *engine.Response {
	select {
	case resp := <-r.buf:
		return resp
	case <-time.After(timeout):
		return nil
	}
}

// ================================================================================
//                                  EngineServer
// ================================================================================

// EngineServer exposes a local engine over gRPC so bridge clients can run
// in another process.
type EngineServer struct {
	walletv1.UnimplementedEngineServiceServer

	addr   string
	eng    engine.Engine
	logger *log.Logger

	server   *grpc.Server
	listener net.Listener
}

// NewEngineServer creates a server for the given engine.
func NewEngineServer(addr string, eng engine.Engine) *EngineServer {
	return &EngineServer{
		addr:   addr,
		eng:    eng,
		logger: log.Default(),
	}
}

// Start begins listening and serving in the background.
func (s *EngineServer) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = listener

	s.server = grpc.NewServer(
		grpc.MaxRecvMsgSize(maxMessageSize),
		grpc.MaxSendMsgSize(maxMessageSize),
	)
	walletv1.RegisterEngineServiceServer(s.server, s)

	go func() {
		s.logger.Printf("[EngineServer] Listening on %s", listener.Addr())
		if err := s.server.Serve(listener); err != nil {
			s.logger.Printf("[EngineServer] Serve stopped: %v", err)
		}
	}()

	return nil
}

// Stop gracefully stops the server.
func (s *EngineServer) Stop() {
	if s.server != nil {
		s.server.GracefulStop()
	}
}

// Addr returns the bound listen address.
func (s *EngineServer) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Submit forwards one request into the engine.
func (s *EngineServer) Submit(ctx context.Context, req *walletv1.SubmitRequest) (*walletv1.SubmitResponse, error) {
	err := s.eng.Send(req.RequestId, &engine.Request{
		Kind:    engine.RequestKind(req.Kind),
		Payload: req.Payload,
	})
	if err != nil {
		s.logger.Printf("[EngineServer] Submit %s failed: %v", engine.RequestKind(req.Kind), err)
		return nil, err
	}
	return &walletv1.SubmitResponse{Accepted: true}, nil
}

// Responses drains the engine's output queue into the stream. The engine's
// queue is single-consumer, so only one bridge client may hold the stream
// at a time.
func (s *EngineServer) Responses(_ *walletv1.StreamRequest, stream walletv1.EngineService_ResponsesServer) error {
	for {
		select {
		case <-stream.Context().Done():
			return stream.Context().Err()
		default:
		}

		resp := s.eng.Receive(time.Second)
		if resp == nil {
			continue
		}
		if err := stream.Send(responseToProto(resp)); err != nil {
			return err
		}
	}
}

// ================================================================================
//                                  Conversions
// ================================================================================

func responseToProto(resp *engine.Response) *walletv1.EngineResponse {
	return &walletv1.EngineResponse{
		Kind:      int32(resp.Kind),
		RequestId: resp.RequestID,
		QueryId:   resp.QueryID,
		Payload:   resp.Payload,
	}
}

func protoToResponse(msg *walletv1.EngineResponse) *engine.Response {
	return &engine.Response{
		Kind:      engine.ResponseKind(msg.Kind),
		RequestID: msg.RequestId,
		QueryID:   msg.QueryId,
		Payload:   msg.Payload,
	}
}
