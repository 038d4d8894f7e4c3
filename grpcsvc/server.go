package grpcsvc

import (
	"fmt"
	"net"

	bapigrpc "github.com/blockberries/bapi/grpc"
	"github.com/blockberries/blockberry/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/blockberries/hostberry/app"
)

// Server hosts the IBC query services on their own gRPC listener,
// separate from the consensus-facing application port. Queries run against
// committed revisions only, so serving them concurrently never blocks the
// consensus lane.
type Server struct {
	logger *logging.Logger
	gs     *grpc.Server
}

// Options configures the query server.
type Options struct {
	// Revision is the chain's IBC revision number, echoed in proof heights.
	Revision uint64

	// MaxRecvMsgSize bounds inbound message size in bytes. 0 keeps the
	// gRPC default.
	MaxRecvMsgSize int

	Logger *logging.Logger
}

// NewServer wires the three query services over the aggregator.
// Server reflection is always registered.
func NewServer(application *app.App, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	serverOpts := []grpc.ServerOption{
		grpc.ForceServerCodec(bapigrpc.CramberryCodec{}),
	}
	if opts.MaxRecvMsgSize > 0 {
		serverOpts = append(serverOpts, grpc.MaxRecvMsgSize(opts.MaxRecvMsgSize))
	}
	gs := grpc.NewServer(serverOpts...)

	b := newBackend(application, opts.Revision)
	client := &clientService{backend: b}
	connection := &connectionService{backend: b}
	channel := &channelService{backend: b}

	gs.RegisterService(clientServiceDesc(client), client)
	gs.RegisterService(connectionServiceDesc(connection), connection)
	gs.RegisterService(channelServiceDesc(channel), channel)
	reflection.Register(gs)

	return &Server{
		logger: logger.WithComponent("grpc"),
		gs:     gs,
	}
}

// Serve blocks serving the listener until Stop.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("query gRPC server listening", "addr", lis.Addr().String())
	return s.gs.Serve(lis)
}

// ListenAndServe binds addr and serves.
func (s *Server) ListenAndServe(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding %s: %w", addr, err)
	}
	return s.Serve(lis)
}

// Stop gracefully stops the server.
func (s *Server) Stop() {
	s.gs.GracefulStop()
}
