package ibc

import (
	"fmt"

	"github.com/blockberries/hostberry/types"
)

// createClient allocates the next client identifier and stores the initial
// client and consensus states.
func (ctx *Context) createClient(msg MsgCreateClient) (string, error) {
	if msg.ClientState.TrustingPeriod.Nanos <= 0 {
		return "", types.ErrInvalidMessage("trusting period must be positive")
	}
	if msg.ClientState.LatestHeight.RevisionHeight == 0 {
		return "", types.ErrInvalidMessage("initial height must be non-zero")
	}
	if msg.ClientState.IsFrozen() {
		return "", types.ErrInvalidMessage("cannot create a frozen client")
	}

	seq, err := ctx.nextCounter(nextClientSeqPath())
	if err != nil {
		return "", err
	}
	clientID := fmt.Sprintf("%s-%d", ClientTypeTendermint, seq)

	if err := ctx.SetClientState(clientID, msg.ClientState); err != nil {
		return "", err
	}
	if err := ctx.SetConsensusState(clientID, msg.ClientState.LatestHeight, msg.ConsensusState); err != nil {
		return "", err
	}

	ctx.emit(clientEvent(EventCreateClient, clientID, msg.ClientState.LatestHeight))
	return clientID, nil
}

// updateClient verifies a submitted header against the client's trusted
// state and, on success, records the new consensus state and advances the
// client's latest height.
func (ctx *Context) updateClient(msg MsgUpdateClient) error {
	cs, err := ctx.ClientState(msg.ClientID)
	if err != nil {
		return err
	}
	if status := ctx.statusOf(msg.ClientID, cs); status != StatusActive {
		return types.ErrInvalidClient("client %s is %s", msg.ClientID, status)
	}

	trustedHeight := msg.Header.TrustedHeight
	if trustedHeight.IsZero() {
		trustedHeight = cs.LatestHeight
	}
	trusted, ok, err := ctx.ConsensusState(msg.ClientID, trustedHeight)
	if err != nil {
		return err
	}
	if !ok {
		return types.ErrInvalidClient("client %s has no consensus state at trusted height %s", msg.ClientID, trustedHeight)
	}
	if err := cs.verifyHeader(trusted, msg.Header, ctx.hostTime); err != nil {
		return err
	}

	// Re-submitting a known header is a no-op success; a conflicting one
	// at a known height is misbehaviour and freezes the client.
	if existing, ok, err := ctx.ConsensusState(msg.ClientID, msg.Header.Height); err != nil {
		return err
	} else if ok {
		if consensusEqual(existing, msg.Header.ConsensusState()) {
			return nil
		}
		frozen := msg.Header.Height
		cs.FrozenHeight = &frozen
		return ctx.SetClientState(msg.ClientID, cs)
	}

	if err := ctx.SetConsensusState(msg.ClientID, msg.Header.Height, msg.Header.ConsensusState()); err != nil {
		return err
	}
	if msg.Header.Height.GT(cs.LatestHeight) {
		cs.LatestHeight = msg.Header.Height
		if err := ctx.SetClientState(msg.ClientID, cs); err != nil {
			return err
		}
	}

	ctx.emit(clientEvent(EventUpdateClient, msg.ClientID, msg.Header.Height))
	return nil
}

// upgradeClient replaces a client's state after a counterparty chain
// upgrade, witnessed by membership proofs of the upgraded client and
// consensus states under the counterparty's upgrade paths.
func (ctx *Context) upgradeClient(msg MsgUpgradeClient) error {
	cs, err := ctx.ClientState(msg.ClientID)
	if err != nil {
		return err
	}
	if status := ctx.statusOf(msg.ClientID, cs); status != StatusActive {
		return types.ErrInvalidClient("client %s is %s", msg.ClientID, status)
	}
	if !msg.ClientState.LatestHeight.GT(cs.LatestHeight) {
		return types.ErrInvalidMessage("upgraded height %s must be greater than current %s",
			msg.ClientState.LatestHeight, cs.LatestHeight)
	}

	upgradeHeight := cs.LatestHeight.RevisionHeight
	expectedClient, err := encode(msg.ClientState)
	if err != nil {
		return err
	}
	if err := ctx.verifyMembership(msg.ClientID, cs.LatestHeight, DefaultMerklePrefix(),
		UpgradedClientPath(upgradeHeight), expectedClient, msg.ProofUpgradeClient); err != nil {
		return err
	}
	expectedCons, err := encode(msg.ConsensusState)
	if err != nil {
		return err
	}
	if err := ctx.verifyMembership(msg.ClientID, cs.LatestHeight, DefaultMerklePrefix(),
		UpgradedConsensusPath(upgradeHeight), expectedCons, msg.ProofUpgradeConsensus); err != nil {
		return err
	}

	if err := ctx.SetClientState(msg.ClientID, msg.ClientState); err != nil {
		return err
	}
	if err := ctx.SetConsensusState(msg.ClientID, msg.ClientState.LatestHeight, msg.ConsensusState); err != nil {
		return err
	}

	ctx.emit(clientEvent(EventUpgradeClient, msg.ClientID, msg.ClientState.LatestHeight))
	return nil
}

// recoverClient replaces an expired or frozen subject client's state with an
// active substitute's, keeping the subject's identifier. The authorization
// model is permissive: any signer may submit a recovery.
func (ctx *Context) recoverClient(msg MsgRecoverClient) error {
	subject, err := ctx.ClientState(msg.SubjectClientID)
	if err != nil {
		return err
	}
	substitute, err := ctx.ClientState(msg.SubstituteClientID)
	if err != nil {
		return err
	}

	subjectStatus := ctx.statusOf(msg.SubjectClientID, subject)
	if subjectStatus != StatusExpired && subjectStatus != StatusFrozen {
		return types.ErrUnexpectedState("subject client %s is %s, recovery requires Expired or Frozen",
			msg.SubjectClientID, subjectStatus)
	}
	if status := ctx.statusOf(msg.SubstituteClientID, substitute); status != StatusActive {
		return types.ErrInvalidClient("substitute client %s is %s", msg.SubstituteClientID, status)
	}
	if !substitute.LatestHeight.GT(subject.LatestHeight) {
		return types.ErrUnexpectedState("substitute height %s must be greater than subject height %s",
			substitute.LatestHeight, subject.LatestHeight)
	}
	if !subject.MatchesForRecovery(substitute) {
		return types.ErrUnexpectedState("subject and substitute client parameters do not match")
	}

	cons, ok, err := ctx.ConsensusState(msg.SubstituteClientID, substitute.LatestHeight)
	if err != nil {
		return err
	}
	if !ok {
		return types.ErrStorageCorruption("substitute client %s has no consensus state at its latest height %s",
			msg.SubstituteClientID, substitute.LatestHeight)
	}

	recovered := substitute
	recovered.FrozenHeight = nil
	if err := ctx.SetClientState(msg.SubjectClientID, recovered); err != nil {
		return err
	}
	if err := ctx.SetConsensusState(msg.SubjectClientID, substitute.LatestHeight, cons); err != nil {
		return err
	}

	ctx.emit(clientEvent(EventRecoverClient, msg.SubjectClientID, substitute.LatestHeight))
	return nil
}
