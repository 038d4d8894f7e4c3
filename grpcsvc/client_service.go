package grpcsvc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/blockberries/hostberry/modules/ibc"
)

const clientServiceName = "ibc.core.client.v1.Query"

// ClientQueryServer answers ICS-02 client queries.
type ClientQueryServer interface {
	ClientState(context.Context, *QueryClientStateRequest) (*QueryClientStateResponse, error)
	ClientStates(context.Context, *QueryClientStatesRequest) (*QueryClientStatesResponse, error)
	ConsensusState(context.Context, *QueryConsensusStateRequest) (*QueryConsensusStateResponse, error)
	ConsensusStates(context.Context, *QueryConsensusStatesRequest) (*QueryConsensusStatesResponse, error)
	ConsensusStateHeights(context.Context, *QueryConsensusStateHeightsRequest) (*QueryConsensusStateHeightsResponse, error)
	ClientParams(context.Context, *QueryClientParamsRequest) (*QueryClientParamsResponse, error)
	UpgradedClientState(context.Context, *QueryUpgradedClientStateRequest) (*QueryUpgradedClientStateResponse, error)
	UpgradedConsensusState(context.Context, *QueryUpgradedConsensusStateRequest) (*QueryUpgradedConsensusStateResponse, error)
}

type clientService struct {
	backend
}

var _ ClientQueryServer = (*clientService)(nil)

func (s *clientService) ClientState(ctx context.Context, req *QueryClientStateRequest) (*QueryClientStateResponse, error) {
	ibcCtx, resolved, err := s.contextAt(ctx, req.Height)
	if err != nil {
		return nil, err
	}
	cs, err := ibcCtx.ClientState(req.ClientID)
	if err != nil {
		return nil, notFound("client %s not found", req.ClientID)
	}
	resp := &QueryClientStateResponse{ClientState: cs}
	if req.Prove {
		proof, proofHeight, err := s.prove(resolved, ibc.ClientStatePath(req.ClientID))
		if err != nil {
			return nil, err
		}
		resp.Proof, resp.ProofHeight = proof, proofHeight
	}
	return resp, nil
}

func (s *clientService) ClientStates(ctx context.Context, req *QueryClientStatesRequest) (*QueryClientStatesResponse, error) {
	ibcCtx, _, err := s.contextAt(ctx, req.Height)
	if err != nil {
		return nil, err
	}
	resp := &QueryClientStatesResponse{}
	for _, id := range ibcCtx.ClientIDs() {
		cs, err := ibcCtx.ClientState(id)
		if err != nil {
			continue
		}
		resp.ClientStates = append(resp.ClientStates, IdentifiedClientState{ClientID: id, ClientState: cs})
	}
	return resp, nil
}

func (s *clientService) ConsensusState(ctx context.Context, req *QueryConsensusStateRequest) (*QueryConsensusStateResponse, error) {
	ibcCtx, resolved, err := s.contextAt(ctx, req.Height)
	if err != nil {
		return nil, err
	}
	height := req.ConsensusHeight
	if req.LatestHeight {
		cs, err := ibcCtx.ClientState(req.ClientID)
		if err != nil {
			return nil, notFound("client %s not found", req.ClientID)
		}
		height = cs.LatestHeight
	}
	cons, ok, err := ibcCtx.ConsensusState(req.ClientID, height)
	if err != nil || !ok {
		return nil, notFound("client %s has no consensus state at %s", req.ClientID, height)
	}
	resp := &QueryConsensusStateResponse{ConsensusState: cons}
	if req.Prove {
		proof, proofHeight, err := s.prove(resolved, ibc.ConsensusStatePath(req.ClientID, height))
		if err != nil {
			return nil, err
		}
		resp.Proof, resp.ProofHeight = proof, proofHeight
	}
	return resp, nil
}

func (s *clientService) ConsensusStates(ctx context.Context, req *QueryConsensusStatesRequest) (*QueryConsensusStatesResponse, error) {
	ibcCtx, _, err := s.contextAt(ctx, req.Height)
	if err != nil {
		return nil, err
	}
	resp := &QueryConsensusStatesResponse{}
	for _, height := range ibcCtx.ConsensusHeights(req.ClientID) {
		cons, ok, err := ibcCtx.ConsensusState(req.ClientID, height)
		if err != nil || !ok {
			continue
		}
		resp.ConsensusStates = append(resp.ConsensusStates, ConsensusStateWithHeight{
			Height:         height,
			ConsensusState: cons,
		})
	}
	return resp, nil
}

func (s *clientService) ConsensusStateHeights(ctx context.Context, req *QueryConsensusStateHeightsRequest) (*QueryConsensusStateHeightsResponse, error) {
	ibcCtx, _, err := s.contextAt(ctx, req.Height)
	if err != nil {
		return nil, err
	}
	return &QueryConsensusStateHeightsResponse{
		ConsensusStateHeights: ibcCtx.ConsensusHeights(req.ClientID),
	}, nil
}

func (s *clientService) ClientParams(context.Context, *QueryClientParamsRequest) (*QueryClientParamsResponse, error) {
	return &QueryClientParamsResponse{
		Params: ClientParams{AllowedClients: []string{ibc.ClientTypeTendermint}},
	}, nil
}

func (s *clientService) UpgradedClientState(ctx context.Context, req *QueryUpgradedClientStateRequest) (*QueryUpgradedClientStateResponse, error) {
	ibcCtx, _, err := s.contextAt(ctx, 0)
	if err != nil {
		return nil, err
	}
	cs, ok := ibcCtx.UpgradedClient(req.UpgradeHeight)
	if !ok {
		return nil, notFound("no upgraded client state at height %d", req.UpgradeHeight)
	}
	return &QueryUpgradedClientStateResponse{UpgradedClientState: cs}, nil
}

func (s *clientService) UpgradedConsensusState(ctx context.Context, req *QueryUpgradedConsensusStateRequest) (*QueryUpgradedConsensusStateResponse, error) {
	ibcCtx, _, err := s.contextAt(ctx, 0)
	if err != nil {
		return nil, err
	}
	cons, ok := ibcCtx.UpgradedConsensus(req.UpgradeHeight)
	if !ok {
		return nil, notFound("no upgraded consensus state at height %d", req.UpgradeHeight)
	}
	return &QueryUpgradedConsensusStateResponse{UpgradedConsensusState: cons}, nil
}

// --- service descriptor ---

func unaryHandler[Req any, Resp any](method func(context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	return func(_ any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
		req := new(Req)
		if err := dec(req); err != nil {
			return nil, err
		}
		return method(ctx, req)
	}
}

func clientServiceDesc(s *clientService) *grpc.ServiceDesc {
	return &grpc.ServiceDesc{
		ServiceName: clientServiceName,
		HandlerType: (*ClientQueryServer)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "ClientState", Handler: unaryHandler(s.ClientState)},
			{MethodName: "ClientStates", Handler: unaryHandler(s.ClientStates)},
			{MethodName: "ConsensusState", Handler: unaryHandler(s.ConsensusState)},
			{MethodName: "ConsensusStates", Handler: unaryHandler(s.ConsensusStates)},
			{MethodName: "ConsensusStateHeights", Handler: unaryHandler(s.ConsensusStateHeights)},
			{MethodName: "ClientParams", Handler: unaryHandler(s.ClientParams)},
			{MethodName: "UpgradedClientState", Handler: unaryHandler(s.UpgradedClientState)},
			{MethodName: "UpgradedConsensusState", Handler: unaryHandler(s.UpgradedConsensusState)},
		},
		Metadata: "ibc/core/client/v1/query.cram",
	}
}
