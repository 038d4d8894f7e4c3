package grpcsvc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/blockberries/hostberry/modules/ibc"
)

const connectionServiceName = "ibc.core.connection.v1.Query"

// ConnectionQueryServer answers ICS-03 connection queries.
type ConnectionQueryServer interface {
	Connection(context.Context, *QueryConnectionRequest) (*QueryConnectionResponse, error)
	Connections(context.Context, *QueryConnectionsRequest) (*QueryConnectionsResponse, error)
	ClientConnections(context.Context, *QueryClientConnectionsRequest) (*QueryClientConnectionsResponse, error)
	ConnectionClientState(context.Context, *QueryConnectionClientStateRequest) (*QueryConnectionClientStateResponse, error)
	ConnectionConsensusState(context.Context, *QueryConnectionConsensusStateRequest) (*QueryConnectionConsensusStateResponse, error)
	ConnectionParams(context.Context, *QueryConnectionParamsRequest) (*QueryConnectionParamsResponse, error)
}

type connectionService struct {
	backend
}

var _ ConnectionQueryServer = (*connectionService)(nil)

func (s *connectionService) Connection(ctx context.Context, req *QueryConnectionRequest) (*QueryConnectionResponse, error) {
	ibcCtx, resolved, err := s.contextAt(ctx, req.Height)
	if err != nil {
		return nil, err
	}
	conn, err := ibcCtx.Connection(req.ConnectionID)
	if err != nil {
		return nil, notFound("connection %s not found", req.ConnectionID)
	}
	resp := &QueryConnectionResponse{Connection: conn}
	if req.Prove {
		proof, proofHeight, err := s.prove(resolved, ibc.ConnectionPath(req.ConnectionID))
		if err != nil {
			return nil, err
		}
		resp.Proof, resp.ProofHeight = proof, proofHeight
	}
	return resp, nil
}

func (s *connectionService) Connections(ctx context.Context, req *QueryConnectionsRequest) (*QueryConnectionsResponse, error) {
	ibcCtx, _, err := s.contextAt(ctx, req.Height)
	if err != nil {
		return nil, err
	}
	resp := &QueryConnectionsResponse{}
	for _, id := range ibcCtx.ConnectionIDs() {
		conn, err := ibcCtx.Connection(id)
		if err != nil {
			continue
		}
		resp.Connections = append(resp.Connections, IdentifiedConnection{ConnectionID: id, Connection: conn})
	}
	return resp, nil
}

func (s *connectionService) ClientConnections(ctx context.Context, req *QueryClientConnectionsRequest) (*QueryClientConnectionsResponse, error) {
	ibcCtx, _, err := s.contextAt(ctx, req.Height)
	if err != nil {
		return nil, err
	}
	return &QueryClientConnectionsResponse{
		ConnectionPaths: ibcCtx.ClientConnectionIDs(req.ClientID),
	}, nil
}

func (s *connectionService) ConnectionClientState(ctx context.Context, req *QueryConnectionClientStateRequest) (*QueryConnectionClientStateResponse, error) {
	ibcCtx, _, err := s.contextAt(ctx, req.Height)
	if err != nil {
		return nil, err
	}
	conn, err := ibcCtx.Connection(req.ConnectionID)
	if err != nil {
		return nil, notFound("connection %s not found", req.ConnectionID)
	}
	cs, err := ibcCtx.ClientState(conn.ClientID)
	if err != nil {
		return nil, notFound("client %s not found", conn.ClientID)
	}
	return &QueryConnectionClientStateResponse{
		IdentifiedClientState: IdentifiedClientState{ClientID: conn.ClientID, ClientState: cs},
	}, nil
}

func (s *connectionService) ConnectionConsensusState(ctx context.Context, req *QueryConnectionConsensusStateRequest) (*QueryConnectionConsensusStateResponse, error) {
	ibcCtx, _, err := s.contextAt(ctx, req.Height)
	if err != nil {
		return nil, err
	}
	conn, err := ibcCtx.Connection(req.ConnectionID)
	if err != nil {
		return nil, notFound("connection %s not found", req.ConnectionID)
	}
	cons, ok, err := ibcCtx.ConsensusState(conn.ClientID, req.ConsensusHeight)
	if err != nil || !ok {
		return nil, notFound("client %s has no consensus state at %s", conn.ClientID, req.ConsensusHeight)
	}
	return &QueryConnectionConsensusStateResponse{
		ConsensusState: cons,
		ClientID:       conn.ClientID,
	}, nil
}

func (s *connectionService) ConnectionParams(context.Context, *QueryConnectionParamsRequest) (*QueryConnectionParamsResponse, error) {
	return &QueryConnectionParamsResponse{
		Params: ConnectionParams{MaxExpectedTimePerBlock: uint64(30e9)},
	}, nil
}

func connectionServiceDesc(s *connectionService) *grpc.ServiceDesc {
	return &grpc.ServiceDesc{
		ServiceName: connectionServiceName,
		HandlerType: (*ConnectionQueryServer)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "Connection", Handler: unaryHandler(s.Connection)},
			{MethodName: "Connections", Handler: unaryHandler(s.Connections)},
			{MethodName: "ClientConnections", Handler: unaryHandler(s.ClientConnections)},
			{MethodName: "ConnectionClientState", Handler: unaryHandler(s.ConnectionClientState)},
			{MethodName: "ConnectionConsensusState", Handler: unaryHandler(s.ConnectionConsensusState)},
			{MethodName: "ConnectionParams", Handler: unaryHandler(s.ConnectionParams)},
		},
		Metadata: "ibc/core/connection/v1/query.cram",
	}
}
