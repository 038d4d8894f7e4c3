// Package app hosts the application aggregator: it orders the modules,
// drives the ABCI-shaped lifecycle over the staged state, and computes the
// app-hash returned to consensus.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/blockberries/blockberry/abi"
	"github.com/blockberries/blockberry/logging"

	"github.com/blockberries/hostberry/metrics"
	"github.com/blockberries/hostberry/modules"
	"github.com/blockberries/hostberry/store"
	"github.com/blockberries/hostberry/types"
)

// Version is the application version reported over Info.
const Version = "0.1.0"

// Option configures the App.
type Option func(*App)

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(a *App) { a.logger = logger.WithComponent("app") }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m metrics.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithRetainVersions bounds the number of historical revisions kept.
// 0 keeps everything.
func WithRetainVersions(retain uint64) Option {
	return func(a *App) { a.retain = retain }
}

// App implements the application boundary contract over a router of modules
// and the composite staged state. Consensus drives it strictly serially;
// queries run concurrently against committed revisions.
type App struct {
	logger  *logging.Logger
	metrics metrics.Metrics

	state  *store.State
	router *modules.Router
	retain uint64

	mu          sync.RWMutex
	chainID     string
	initialized bool
	blockEvents []abi.Event
	header      *abi.BlockHeader
	lastTime    time.Time
}

var _ abi.Application = (*App)(nil)

// New builds the aggregator over the given state and router.
func New(state *store.State, router *modules.Router, opts ...Option) *App {
	a := &App{
		logger:  logging.NewNopLogger().WithComponent("app"),
		metrics: metrics.NewNopMetrics(),
		state:   state,
		router:  router,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// State exposes the composite state (for query services and tests).
func (a *App) State() *store.State { return a.state }

// Router exposes the module router.
func (a *App) Router() *modules.Router { return a.router }

// ChainID returns the chain identifier learned at genesis.
func (a *App) ChainID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.chainID
}

// Info reports the application's identity and last committed state.
func (a *App) Info() abi.ApplicationInfo {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return abi.ApplicationInfo{
		Name:          "hostberry",
		Version:       Version,
		AppHash:       a.state.AppHash(),
		Height:        a.state.Version(),
		LastBlockTime: a.lastTime,
	}
}

// InitChain seeds every module from the genesis document. The genesis
// app-state is a JSON object keyed by module name; a document that is
// itself a bank account map is handed to the bank module whole.
func (a *App) InitChain(genesis *abi.Genesis) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.initialized {
		return nil
	}
	a.chainID = genesis.ChainID

	var doc map[string]json.RawMessage
	if len(genesis.AppState) > 0 {
		if err := json.Unmarshal(genesis.AppState, &doc); err != nil {
			return fmt.Errorf("parsing genesis app state: %w", err)
		}
	}

	scope := a.state.Deliver()
	for _, m := range a.router.Modules() {
		appState := doc[string(m.Name())]
		if appState == nil && m.Name() == "bank" && !hasModuleKeys(doc, a.router) {
			// The whole document is the account map.
			appState = genesis.AppState
		}
		if err := m.Init(scope, appState); err != nil {
			return fmt.Errorf("initializing module %s: %w", m.Name(), err)
		}
	}
	if err := a.state.ApplyTx(); err != nil {
		return fmt.Errorf("staging genesis writes: %w", err)
	}

	a.initialized = true
	a.logger.Info("chain initialized", "chain_id", a.chainID, "modules", len(a.router.Modules()))
	return nil
}

// hasModuleKeys reports whether the genesis document is keyed by module
// names (as opposed to being a bare bank account map).
func hasModuleKeys(doc map[string]json.RawMessage, router *modules.Router) bool {
	for key := range doc {
		if _, ok := router.ByName(store.Identifier(key)); ok {
			return true
		}
	}
	return false
}

// GenesisAppHash computes the app-hash of the staged genesis state, before
// any block has been committed.
func (a *App) GenesisAppHash() ([]byte, error) {
	return a.state.StagedAppHash()
}

// CheckTx gate-checks a transaction against the check scope. Check-scope
// writes are never visible outside it.
func (a *App) CheckTx(_ context.Context, rawTx *abi.Transaction) *abi.TxCheckResult {
	tx, err := types.DecodeTx(rawTx.Data)
	if err != nil {
		a.metrics.IncTxsChecked("malformed")
		return &abi.TxCheckResult{Code: types.CodeOf(err), Error: err}
	}

	scope := a.state.Check()
	for _, msg := range tx.Messages {
		m, ok := a.router.Route(msg.TypeURL)
		if !ok {
			err := types.ErrUnroutable(msg.TypeURL)
			a.metrics.IncTxsChecked("unroutable")
			return &abi.TxCheckResult{Code: types.CodeOf(err), Error: err}
		}
		if err := m.Check(scope, msg); err != nil {
			a.metrics.IncTxsChecked("rejected")
			return &abi.TxCheckResult{Code: types.CodeOf(err), Error: err}
		}
	}
	a.metrics.IncTxsChecked("accepted")
	return &abi.TxCheckResult{
		Code:   abi.CodeOK,
		Sender: []byte(tx.Signer),
		Nonce:  tx.Nonce,
	}
}

// BeginBlock starts a block: it refreshes the block context and runs every
// module's begin-block hook in router order. Hook writes are staged as
// block-level state.
func (a *App) BeginBlock(_ context.Context, header *abi.BlockHeader) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.header = header
	a.blockEvents = nil

	scope := a.state.Deliver()
	for _, m := range a.router.Modules() {
		a.blockEvents = append(a.blockEvents, m.BeginBlock(scope, header)...)
	}
	if err := a.state.ApplyTx(); err != nil {
		return fmt.Errorf("staging begin-block writes: %w", err)
	}
	return nil
}

// ExecuteTx delivers one transaction. All of its messages must succeed for
// its writes to be staged; any failure discards them and marks the
// transaction failed. Storage faults abort the block by panicking; the
// boundary adapters translate that into the transport's halt signal.
func (a *App) ExecuteTx(_ context.Context, rawTx *abi.Transaction) *abi.TxExecResult {
	tx, err := types.DecodeTx(rawTx.Data)
	if err != nil {
		a.metrics.IncTxsFailed("malformed")
		return &abi.TxExecResult{Code: types.CodeOf(err), Error: err}
	}

	scope := a.state.Deliver()
	var events []abi.Event
	for _, msg := range tx.Messages {
		m, ok := a.router.Route(msg.TypeURL)
		if !ok {
			a.state.ResetTx()
			err := types.ErrUnroutable(msg.TypeURL)
			a.metrics.IncTxsFailed("unroutable")
			return &abi.TxExecResult{Code: types.CodeOf(err), Error: err}
		}
		msgEvents, err := m.Deliver(scope, msg, tx.Signer)
		if err != nil {
			if types.IsFatal(err) {
				panic(err)
			}
			a.state.ResetTx()
			a.metrics.IncTxsFailed("handler")
			a.logger.Debug("tx failed", "type_url", msg.TypeURL, "err", err)
			return &abi.TxExecResult{Code: types.CodeOf(err), Error: err}
		}
		events = append(events, msgEvents...)
	}
	if err := a.state.ApplyTx(); err != nil {
		panic(types.ErrStorageCorruption("staging tx writes: %v", err))
	}

	a.metrics.IncTxsDelivered()
	return &abi.TxExecResult{Code: abi.CodeOK, Events: events}
}

// EndBlock finishes the block's execution phase. Validator-set updates are
// echoed from consensus only; hostberry generates none of its own.
func (a *App) EndBlock(context.Context) *abi.EndBlockResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	events := a.blockEvents
	a.blockEvents = nil
	return &abi.EndBlockResult{Events: events}
}

// StagedAppHash computes the app-hash the pending commit will produce.
func (a *App) StagedAppHash() ([]byte, error) {
	return a.state.StagedAppHash()
}

// Commit folds the block's staged writes into a new revision and returns
// its app-hash.
func (a *App) Commit(context.Context) *abi.CommitResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	appHash, version, err := a.state.Commit()
	if err != nil {
		panic(types.ErrStorageCorruption("commit: %v", err))
	}
	if a.retain > 0 {
		if err := a.state.Prune(a.retain); err != nil {
			a.logger.Warn("pruning failed", "err", err)
		}
	}
	if a.header != nil {
		a.lastTime = a.header.Time
	}

	a.metrics.SetCommittedHeight(version)
	a.metrics.ObserveCommitLatency(time.Since(start))
	a.logger.Info("committed", "height", version, "app_hash", fmt.Sprintf("%X", appHash))

	retainHeight := uint64(0)
	if a.retain > 0 && version > a.retain {
		retainHeight = version - a.retain
	}
	return &abi.CommitResult{AppHash: appHash, RetainHeight: retainHeight}
}

// Query serves a read-only request against a committed revision.
//
// Path scheme:
//
//	/store/{module}/key  - raw sub-store read, key in Data
//	/{module}/...        - module-namespace query
//
// prove=true requires a provable sub-store key and attaches ICS-23 proof
// ops anchored at the revision's app-hash.
func (a *App) Query(ctx context.Context, req *abi.QueryRequest) *abi.QueryResponse {
	if err := ctx.Err(); err != nil {
		return &abi.QueryResponse{Code: abi.CodeTimeout, Error: err}
	}

	height := store.Height(req.Height)
	scope, err := a.state.QueryAt(height)
	if err != nil {
		return &abi.QueryResponse{Code: abi.CodeNotFound, Error: err}
	}
	resolved := req.Height
	if resolved == 0 {
		resolved = a.state.Version()
	}

	segments := strings.Split(strings.TrimPrefix(req.Path, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return &abi.QueryResponse{Code: abi.CodeInvalidTx, Error: fmt.Errorf("empty query path")}
	}

	var (
		value    []byte
		provable store.Path
	)
	switch {
	case segments[0] == "store" && len(segments) == 3 && segments[2] == "key":
		a.metrics.IncQueries("store")
		module, ok := a.router.ByName(store.Identifier(segments[1]))
		if !ok {
			return &abi.QueryResponse{Code: abi.CodeNotFound, Error: fmt.Errorf("unknown module %q", segments[1])}
		}
		rel := store.Path(req.Data)
		provable = store.Path(module.Name()).Join(rel.String())
		v, ok2 := scope.Provable().Get(provable)
		if !ok2 && !req.Prove {
			return &abi.QueryResponse{Code: abi.CodeNotFound, Error: fmt.Errorf("no value at %s", provable), Height: resolved}
		}
		value = v

	default:
		a.metrics.IncQueries(segments[0])
		module, ok := a.router.ByName(store.Identifier(segments[0]))
		if !ok {
			return &abi.QueryResponse{Code: abi.CodeNotFound, Error: fmt.Errorf("no module for query path %q", req.Path)}
		}
		rel := store.NewPath(segments[1:]...)
		v, err := module.Query(scope, rel, req.Data)
		if err != nil {
			return &abi.QueryResponse{Code: types.CodeOf(err), Error: err, Height: resolved}
		}
		value = v
		// Module-namespace paths that are direct store keys (the IBC
		// ICS-24 layout) remain provable.
		if module.Name() == "ibc" {
			provable = store.Path(module.Name()).Join(rel.String())
		}
	}

	resp := &abi.QueryResponse{
		Code:   abi.CodeOK,
		Key:    req.Data,
		Value:  value,
		Height: resolved,
	}

	if req.Prove {
		if provable == "" {
			return &abi.QueryResponse{Code: abi.CodeInvalidTx, Error: fmt.Errorf("path %q is not provable", req.Path), Height: resolved}
		}
		proof, err := a.state.Prove(store.Height(resolved), provable)
		if err != nil {
			return &abi.QueryResponse{Code: abi.CodeUnknownError, Error: err, Height: resolved}
		}
		data, err := proof.Marshal()
		if err != nil {
			return &abi.QueryResponse{Code: abi.CodeUnknownError, Error: err, Height: resolved}
		}
		resp.Proof = &abi.Proof{Ops: []abi.ProofOp{{
			Type: "ics23:iavl",
			Key:  provable.Bytes(),
			Data: data,
		}}}
		resp.Value = proof.Value
		if !proof.Exists {
			resp.Code = abi.CodeNotFound
		}
	}
	return resp
}
