package app

import (
	"context"
	"fmt"

	"github.com/blockberries/bapi"
	bapitypes "github.com/blockberries/bapi/types"
	"github.com/blockberries/blockberry/abi"

	"github.com/blockberries/hostberry/types"
)

// Lifecycle adapts the aggregator to the redesigned consensus boundary
// (bapi.Lifecycle): ExecuteBlock folds begin-block, per-transaction
// delivery and end-block into one call whose outcome carries the staged
// app-hash, and Commit persists it. The older per-call boundary is the
// aggregator's native surface; both variants share the same core contract.
type Lifecycle struct {
	app *App
}

var _ bapi.Lifecycle = (*Lifecycle)(nil)

// NewLifecycle wraps the aggregator.
func NewLifecycle(app *App) *Lifecycle {
	return &Lifecycle{app: app}
}

// App returns the underlying aggregator.
func (l *Lifecycle) App() *App { return l.app }

// Handshake initializes from genesis on a fresh chain, or reports the
// application's committed state for divergence detection on restart.
func (l *Lifecycle) Handshake(_ context.Context, req bapitypes.HandshakeRequest) (bapitypes.HandshakeResponse, error) {
	if req.LastCommitted == nil {
		if req.Genesis == nil {
			return bapitypes.HandshakeResponse{}, fmt.Errorf("genesis handshake carries no genesis document")
		}
		genesis := &abi.Genesis{
			ChainID:       req.Genesis.ChainID,
			GenesisTime:   req.Genesis.GenesisTime.ToTime(),
			AppState:      req.Genesis.AppState,
			InitialHeight: req.Genesis.InitialHeight,
		}
		if err := l.app.InitChain(genesis); err != nil {
			return bapitypes.HandshakeResponse{}, err
		}
		hash, err := l.app.GenesisAppHash()
		if err != nil {
			return bapitypes.HandshakeResponse{}, err
		}
		appHash := toAppHash(hash)
		return bapitypes.HandshakeResponse{AppHash: &appHash}, nil
	}

	info := l.app.Info()
	appHash := toAppHash(info.AppHash)
	return bapitypes.HandshakeResponse{
		LastBlock: &bapitypes.BlockID{Height: info.Height},
		AppHash:   &appHash,
	}, nil
}

// CheckTx gate-checks a transaction for the mempool.
func (l *Lifecycle) CheckTx(ctx context.Context, tx bapitypes.Tx, _ bapitypes.MempoolContext) (bapitypes.GateVerdict, error) {
	result := l.app.CheckTx(ctx, &abi.Transaction{Data: tx})
	verdict := bapitypes.GateVerdict{
		Code:   uint32(result.Code),
		Sender: string(result.Sender),
	}
	if result.Error != nil {
		verdict.Info = result.Error.Error()
	}
	return verdict, nil
}

// ExecuteBlock deterministically executes a finalized block without
// persisting: begin-block hooks, every transaction in order, end-block,
// then the staged app-hash. A storage fault aborts the block with a
// HaltError.
func (l *Lifecycle) ExecuteBlock(ctx context.Context, block bapitypes.FinalizedBlock) (outcome bapitypes.BlockOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			if fatal, ok := r.(*types.FatalError); ok {
				err = bapi.NewHaltError(block.Height, fatal.Reason)
				return
			}
			panic(r)
		}
	}()

	header := &abi.BlockHeader{
		Height:          block.Height,
		Time:            block.Time.ToTime(),
		PrevHash:        block.LastBlockHash[:],
		ProposerAddress: block.Proposer[:],
	}
	if err := l.app.BeginBlock(ctx, header); err != nil {
		return bapitypes.BlockOutcome{}, err
	}

	outcomes := make([]bapitypes.TxOutcome, len(block.Txs))
	for i, tx := range block.Txs {
		result := l.app.ExecuteTx(ctx, &abi.Transaction{Data: tx})
		outcomes[i] = bapitypes.TxOutcome{
			Index:  uint32(i),
			Code:   uint32(result.Code),
			Events: toBapiEvents(result.Events),
		}
		if result.Error != nil {
			outcomes[i].Info = result.Error.Error()
		}
	}
	l.app.metrics.ObserveBlockTxs(len(block.Txs))

	endResult := l.app.EndBlock(ctx)

	hash, err := l.app.StagedAppHash()
	if err != nil {
		return bapitypes.BlockOutcome{}, bapi.NewHaltError(block.Height, err.Error())
	}

	return bapitypes.BlockOutcome{
		TxOutcomes:  outcomes,
		BlockEvents: toBapiEvents(endResult.Events),
		AppHash:     toAppHash(hash),
	}, nil
}

// Commit persists the last executed block's state.
func (l *Lifecycle) Commit(ctx context.Context) (result bapitypes.CommitResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			if fatal, ok := r.(*types.FatalError); ok {
				err = bapi.NewHaltError(l.app.Info().Height, fatal.Reason)
				return
			}
			panic(r)
		}
	}()
	commit := l.app.Commit(ctx)
	return bapitypes.CommitResult{RetainHeight: commit.RetainHeight}, nil
}

// Query reads application state at a committed revision.
func (l *Lifecycle) Query(ctx context.Context, req bapitypes.StateQuery) (bapitypes.StateQueryResult, error) {
	height := uint64(0)
	if req.Height != nil {
		height = *req.Height
	}
	resp := l.app.Query(ctx, &abi.QueryRequest{
		Path:   string(req.Path),
		Data:   req.Data,
		Height: height,
		Prove:  req.Prove,
	})
	result := bapitypes.StateQueryResult{
		Code:   uint32(resp.Code),
		Key:    resp.Key,
		Value:  resp.Value,
		Height: resp.Height,
	}
	if resp.Error != nil {
		result.Info = resp.Error.Error()
	}
	if resp.Proof != nil {
		proof := &bapitypes.MerkleProof{}
		for _, op := range resp.Proof.Ops {
			proof.Ops = append(proof.Ops, bapitypes.ProofOp{
				Type: op.Type,
				Key:  op.Key,
				Data: op.Data,
			})
		}
		result.Proof = proof
	}
	return result, nil
}

func toAppHash(hash []byte) bapitypes.AppHash {
	var out bapitypes.AppHash
	copy(out[:], hash)
	return out
}

func toBapiEvents(events []abi.Event) []bapitypes.Event {
	if len(events) == 0 {
		return nil
	}
	out := make([]bapitypes.Event, len(events))
	for i, ev := range events {
		attrs := make([]bapitypes.EventAttribute, len(ev.Attributes))
		for j, a := range ev.Attributes {
			attrs[j] = bapitypes.EventAttribute{
				Key:   a.Key,
				Value: string(a.Value),
				Index: a.Index,
			}
		}
		out[i] = bapitypes.Event{Kind: ev.Type, Attributes: attrs}
	}
	return out
}
