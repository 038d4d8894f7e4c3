package grpcsvc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/blockberries/hostberry/modules/ibc"
)

const channelServiceName = "ibc.core.channel.v1.Query"

// ChannelQueryServer answers ICS-04 channel and packet queries.
type ChannelQueryServer interface {
	Channel(context.Context, *QueryChannelRequest) (*QueryChannelResponse, error)
	Channels(context.Context, *QueryChannelsRequest) (*QueryChannelsResponse, error)
	ConnectionChannels(context.Context, *QueryConnectionChannelsRequest) (*QueryConnectionChannelsResponse, error)
	ChannelClientState(context.Context, *QueryChannelClientStateRequest) (*QueryChannelClientStateResponse, error)
	PacketCommitment(context.Context, *QueryPacketCommitmentRequest) (*QueryPacketCommitmentResponse, error)
	PacketCommitments(context.Context, *QueryPacketCommitmentsRequest) (*QueryPacketCommitmentsResponse, error)
	PacketReceipt(context.Context, *QueryPacketReceiptRequest) (*QueryPacketReceiptResponse, error)
	PacketAcknowledgement(context.Context, *QueryPacketAcknowledgementRequest) (*QueryPacketAcknowledgementResponse, error)
	PacketAcknowledgements(context.Context, *QueryPacketAcknowledgementsRequest) (*QueryPacketAcknowledgementsResponse, error)
	UnreceivedPackets(context.Context, *QueryUnreceivedPacketsRequest) (*QueryUnreceivedPacketsResponse, error)
	UnreceivedAcks(context.Context, *QueryUnreceivedAcksRequest) (*QueryUnreceivedAcksResponse, error)
	NextSequenceReceive(context.Context, *QueryNextSequenceReceiveRequest) (*QueryNextSequenceReceiveResponse, error)
	NextSequenceSend(context.Context, *QueryNextSequenceSendRequest) (*QueryNextSequenceSendResponse, error)
}

type channelService struct {
	backend
}

var _ ChannelQueryServer = (*channelService)(nil)

func (s *channelService) Channel(ctx context.Context, req *QueryChannelRequest) (*QueryChannelResponse, error) {
	ibcCtx, resolved, err := s.contextAt(ctx, req.Height)
	if err != nil {
		return nil, err
	}
	ch, err := ibcCtx.Channel(req.PortID, req.ChannelID)
	if err != nil {
		return nil, notFound("channel %s/%s not found", req.PortID, req.ChannelID)
	}
	resp := &QueryChannelResponse{Channel: ch}
	if req.Prove {
		proof, proofHeight, err := s.prove(resolved, ibc.ChannelPath(req.PortID, req.ChannelID))
		if err != nil {
			return nil, err
		}
		resp.Proof, resp.ProofHeight = proof, proofHeight
	}
	return resp, nil
}

func (s *channelService) Channels(ctx context.Context, req *QueryChannelsRequest) (*QueryChannelsResponse, error) {
	ibcCtx, _, err := s.contextAt(ctx, req.Height)
	if err != nil {
		return nil, err
	}
	resp := &QueryChannelsResponse{}
	for _, key := range ibcCtx.ChannelKeys() {
		ch, err := ibcCtx.Channel(key.PortID, key.ChannelID)
		if err != nil {
			continue
		}
		resp.Channels = append(resp.Channels, IdentifiedChannel{
			PortID:    key.PortID,
			ChannelID: key.ChannelID,
			Channel:   ch,
		})
	}
	return resp, nil
}

func (s *channelService) ConnectionChannels(ctx context.Context, req *QueryConnectionChannelsRequest) (*QueryConnectionChannelsResponse, error) {
	ibcCtx, _, err := s.contextAt(ctx, req.Height)
	if err != nil {
		return nil, err
	}
	resp := &QueryConnectionChannelsResponse{}
	for _, key := range ibcCtx.ChannelKeys() {
		ch, err := ibcCtx.Channel(key.PortID, key.ChannelID)
		if err != nil {
			continue
		}
		for _, hop := range ch.ConnectionHops {
			if hop == req.ConnectionID {
				resp.Channels = append(resp.Channels, IdentifiedChannel{
					PortID:    key.PortID,
					ChannelID: key.ChannelID,
					Channel:   ch,
				})
				break
			}
		}
	}
	return resp, nil
}

func (s *channelService) ChannelClientState(ctx context.Context, req *QueryChannelClientStateRequest) (*QueryChannelClientStateResponse, error) {
	ibcCtx, _, err := s.contextAt(ctx, req.Height)
	if err != nil {
		return nil, err
	}
	ch, err := ibcCtx.Channel(req.PortID, req.ChannelID)
	if err != nil {
		return nil, notFound("channel %s/%s not found", req.PortID, req.ChannelID)
	}
	if len(ch.ConnectionHops) == 0 {
		return nil, notFound("channel %s/%s has no connection hops", req.PortID, req.ChannelID)
	}
	conn, err := ibcCtx.Connection(ch.ConnectionHops[0])
	if err != nil {
		return nil, notFound("connection %s not found", ch.ConnectionHops[0])
	}
	cs, err := ibcCtx.ClientState(conn.ClientID)
	if err != nil {
		return nil, notFound("client %s not found", conn.ClientID)
	}
	return &QueryChannelClientStateResponse{
		IdentifiedClientState: IdentifiedClientState{ClientID: conn.ClientID, ClientState: cs},
	}, nil
}

func (s *channelService) PacketCommitment(ctx context.Context, req *QueryPacketCommitmentRequest) (*QueryPacketCommitmentResponse, error) {
	ibcCtx, resolved, err := s.contextAt(ctx, req.Height)
	if err != nil {
		return nil, err
	}
	if req.Sequence == 0 {
		return nil, invalidArgument("packet sequence must be non-zero")
	}
	commitment, ok := ibcCtx.PacketCommitment(req.PortID, req.ChannelID, req.Sequence)
	if !ok {
		return nil, notFound("no commitment for %s/%s sequence %d", req.PortID, req.ChannelID, req.Sequence)
	}
	resp := &QueryPacketCommitmentResponse{Commitment: commitment}
	if req.Prove {
		proof, proofHeight, err := s.prove(resolved, ibc.PacketCommitmentPath(req.PortID, req.ChannelID, req.Sequence))
		if err != nil {
			return nil, err
		}
		resp.Proof, resp.ProofHeight = proof, proofHeight
	}
	return resp, nil
}

func (s *channelService) PacketCommitments(ctx context.Context, req *QueryPacketCommitmentsRequest) (*QueryPacketCommitmentsResponse, error) {
	ibcCtx, resolved, err := s.contextAt(ctx, req.Height)
	if err != nil {
		return nil, err
	}
	resp := &QueryPacketCommitmentsResponse{Height: resolved}
	for _, entry := range ibcCtx.PacketCommitments(req.PortID, req.ChannelID) {
		resp.Commitments = append(resp.Commitments, PacketState{
			PortID:    req.PortID,
			ChannelID: req.ChannelID,
			Sequence:  entry.Sequence,
			Data:      entry.Value,
		})
	}
	return resp, nil
}

func (s *channelService) PacketReceipt(ctx context.Context, req *QueryPacketReceiptRequest) (*QueryPacketReceiptResponse, error) {
	ibcCtx, resolved, err := s.contextAt(ctx, req.Height)
	if err != nil {
		return nil, err
	}
	resp := &QueryPacketReceiptResponse{
		Received: ibcCtx.HasReceipt(req.PortID, req.ChannelID, req.Sequence),
	}
	if req.Prove {
		// Existence or absence, whichever holds, is provable.
		proof, proofHeight, err := s.prove(resolved, ibc.PacketReceiptPath(req.PortID, req.ChannelID, req.Sequence))
		if err != nil {
			return nil, err
		}
		resp.Proof, resp.ProofHeight = proof, proofHeight
	}
	return resp, nil
}

func (s *channelService) PacketAcknowledgement(ctx context.Context, req *QueryPacketAcknowledgementRequest) (*QueryPacketAcknowledgementResponse, error) {
	ibcCtx, resolved, err := s.contextAt(ctx, req.Height)
	if err != nil {
		return nil, err
	}
	ack, ok := ibcCtx.PacketAck(req.PortID, req.ChannelID, req.Sequence)
	if !ok {
		return nil, notFound("no acknowledgement for %s/%s sequence %d", req.PortID, req.ChannelID, req.Sequence)
	}
	resp := &QueryPacketAcknowledgementResponse{Acknowledgement: ack}
	if req.Prove {
		proof, proofHeight, err := s.prove(resolved, ibc.PacketAckPath(req.PortID, req.ChannelID, req.Sequence))
		if err != nil {
			return nil, err
		}
		resp.Proof, resp.ProofHeight = proof, proofHeight
	}
	return resp, nil
}

func (s *channelService) PacketAcknowledgements(ctx context.Context, req *QueryPacketAcknowledgementsRequest) (*QueryPacketAcknowledgementsResponse, error) {
	ibcCtx, resolved, err := s.contextAt(ctx, req.Height)
	if err != nil {
		return nil, err
	}
	resp := &QueryPacketAcknowledgementsResponse{Height: resolved}
	for _, entry := range ibcCtx.PacketAcks(req.PortID, req.ChannelID) {
		resp.Acknowledgements = append(resp.Acknowledgements, PacketState{
			PortID:    req.PortID,
			ChannelID: req.ChannelID,
			Sequence:  entry.Sequence,
			Data:      entry.Value,
		})
	}
	return resp, nil
}

// UnreceivedPackets returns, of the given commitment sequences on the
// counterparty, those not yet received here.
func (s *channelService) UnreceivedPackets(ctx context.Context, req *QueryUnreceivedPacketsRequest) (*QueryUnreceivedPacketsResponse, error) {
	ibcCtx, resolved, err := s.contextAt(ctx, 0)
	if err != nil {
		return nil, err
	}
	ch, err := ibcCtx.Channel(req.PortID, req.ChannelID)
	if err != nil {
		return nil, notFound("channel %s/%s not found", req.PortID, req.ChannelID)
	}
	resp := &QueryUnreceivedPacketsResponse{Height: resolved}
	switch ch.Ordering {
	case ibc.OrderOrdered:
		nextRecv, ok := ibcCtx.NextSequenceRecv(req.PortID, req.ChannelID)
		if !ok {
			return nil, notFound("channel %s/%s has no recv sequence", req.PortID, req.ChannelID)
		}
		for _, seq := range req.PacketCommitmentSequences {
			if seq >= nextRecv {
				resp.Sequences = append(resp.Sequences, seq)
			}
		}
	default:
		for _, seq := range req.PacketCommitmentSequences {
			if !ibcCtx.HasReceipt(req.PortID, req.ChannelID, seq) {
				resp.Sequences = append(resp.Sequences, seq)
			}
		}
	}
	return resp, nil
}

// UnreceivedAcks returns, of the given acknowledgement sequences on the
// counterparty, those whose commitments are still outstanding here.
func (s *channelService) UnreceivedAcks(ctx context.Context, req *QueryUnreceivedAcksRequest) (*QueryUnreceivedAcksResponse, error) {
	ibcCtx, resolved, err := s.contextAt(ctx, 0)
	if err != nil {
		return nil, err
	}
	resp := &QueryUnreceivedAcksResponse{Height: resolved}
	for _, seq := range req.PacketAckSequences {
		if _, ok := ibcCtx.PacketCommitment(req.PortID, req.ChannelID, seq); ok {
			resp.Sequences = append(resp.Sequences, seq)
		}
	}
	return resp, nil
}

func (s *channelService) NextSequenceReceive(ctx context.Context, req *QueryNextSequenceReceiveRequest) (*QueryNextSequenceReceiveResponse, error) {
	ibcCtx, resolved, err := s.contextAt(ctx, req.Height)
	if err != nil {
		return nil, err
	}
	seq, ok := ibcCtx.NextSequenceRecv(req.PortID, req.ChannelID)
	if !ok {
		return nil, notFound("channel %s/%s has no recv sequence", req.PortID, req.ChannelID)
	}
	resp := &QueryNextSequenceReceiveResponse{NextSequenceReceive: seq}
	if req.Prove {
		proof, proofHeight, err := s.prove(resolved, ibc.NextSequenceRecvPath(req.PortID, req.ChannelID))
		if err != nil {
			return nil, err
		}
		resp.Proof, resp.ProofHeight = proof, proofHeight
	}
	return resp, nil
}

func (s *channelService) NextSequenceSend(ctx context.Context, req *QueryNextSequenceSendRequest) (*QueryNextSequenceSendResponse, error) {
	ibcCtx, resolved, err := s.contextAt(ctx, req.Height)
	if err != nil {
		return nil, err
	}
	seq, ok := ibcCtx.NextSequenceSend(req.PortID, req.ChannelID)
	if !ok {
		return nil, notFound("channel %s/%s has no send sequence", req.PortID, req.ChannelID)
	}
	resp := &QueryNextSequenceSendResponse{NextSequenceSend: seq}
	if req.Prove {
		proof, proofHeight, err := s.prove(resolved, ibc.NextSequenceSendPath(req.PortID, req.ChannelID))
		if err != nil {
			return nil, err
		}
		resp.Proof, resp.ProofHeight = proof, proofHeight
	}
	return resp, nil
}

func channelServiceDesc(s *channelService) *grpc.ServiceDesc {
	return &grpc.ServiceDesc{
		ServiceName: channelServiceName,
		HandlerType: (*ChannelQueryServer)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "Channel", Handler: unaryHandler(s.Channel)},
			{MethodName: "Channels", Handler: unaryHandler(s.Channels)},
			{MethodName: "ConnectionChannels", Handler: unaryHandler(s.ConnectionChannels)},
			{MethodName: "ChannelClientState", Handler: unaryHandler(s.ChannelClientState)},
			{MethodName: "PacketCommitment", Handler: unaryHandler(s.PacketCommitment)},
			{MethodName: "PacketCommitments", Handler: unaryHandler(s.PacketCommitments)},
			{MethodName: "PacketReceipt", Handler: unaryHandler(s.PacketReceipt)},
			{MethodName: "PacketAcknowledgement", Handler: unaryHandler(s.PacketAcknowledgement)},
			{MethodName: "PacketAcknowledgements", Handler: unaryHandler(s.PacketAcknowledgements)},
			{MethodName: "UnreceivedPackets", Handler: unaryHandler(s.UnreceivedPackets)},
			{MethodName: "UnreceivedAcks", Handler: unaryHandler(s.UnreceivedAcks)},
			{MethodName: "NextSequenceReceive", Handler: unaryHandler(s.NextSequenceReceive)},
			{MethodName: "NextSequenceSend", Handler: unaryHandler(s.NextSequenceSend)},
		},
		Metadata: "ibc/core/channel/v1/query.cram",
	}
}
