package ibc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	bapitypes "github.com/blockberries/bapi/types"
)

func TestCreateAndUpdateClient(t *testing.T) {
	h := newHost(t)
	cp := newCounterparty(t)

	// Counterparty commits up to height 10.
	for i := 0; i < 10; i++ {
		cp.setRaw("marker", []byte{byte(i)})
		cp.commit()
	}
	root10, height10 := cp.commit()
	require.Equal(t, uint64(11), height10)

	clientID := h.createClient(root10, 10, time.Hour)
	require.Equal(t, "07-tendermint-0", clientID)

	cs, err := h.ctx().ClientState(clientID)
	require.NoError(t, err)
	require.Equal(t, NewHeight(1, 10), cs.LatestHeight)

	h.updateClient(clientID, []byte("root-at-20"), 20, NewHeight(1, 10))

	cs, err = h.ctx().ClientState(clientID)
	require.NoError(t, err)
	require.Equal(t, NewHeight(1, 20), cs.LatestHeight)

	// Consensus states exist at both heights.
	_, ok, err := h.ctx().ConsensusState(clientID, NewHeight(1, 10))
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = h.ctx().ConsensusState(clientID, NewHeight(1, 20))
	require.NoError(t, err)
	require.True(t, ok)

	heights := h.ctx().ConsensusHeights(clientID)
	require.Equal(t, []Height{NewHeight(1, 10), NewHeight(1, 20)}, heights)
}

func TestUpdateClient_DuplicateHeaderIsNoop(t *testing.T) {
	h := newHost(t)
	clientID := h.createClient([]byte("root-1"), 1, time.Hour)
	h.updateClient(clientID, []byte("root-2"), 2, NewHeight(1, 1))
	// Same header again: accepted, nothing changes.
	h.updateClient(clientID, []byte("root-2"), 2, NewHeight(1, 1))

	cs, err := h.ctx().ClientState(clientID)
	require.NoError(t, err)
	require.Equal(t, NewHeight(1, 2), cs.LatestHeight)
	require.False(t, cs.IsFrozen())
}

func TestUpdateClient_ConflictingHeaderFreezes(t *testing.T) {
	h := newHost(t)
	clientID := h.createClient([]byte("root-1"), 1, time.Hour)
	h.updateClient(clientID, []byte("root-2"), 2, NewHeight(1, 1))

	// A different root at a known height is misbehaviour.
	h.mustDeliver(MsgUpdateClientURL, MsgUpdateClient{
		ClientID: clientID,
		Header: Header{
			Height:        NewHeight(1, 2),
			Timestamp:     bapitypes.TimeToTimestamp(baseTime.Add(2 * time.Second)),
			AppHash:       []byte("conflicting-root"),
			TrustedHeight: NewHeight(1, 1),
		},
	})

	status, err := h.ctx().ClientStatus(clientID)
	require.NoError(t, err)
	require.Equal(t, StatusFrozen, status)

	// A frozen client refuses further updates.
	_, err = h.deliver(MsgUpdateClientURL, MsgUpdateClient{
		ClientID: clientID,
		Header: Header{
			Height:        NewHeight(1, 3),
			Timestamp:     bapitypes.TimeToTimestamp(baseTime.Add(3 * time.Second)),
			AppHash:       []byte("root-3"),
			TrustedHeight: NewHeight(1, 2),
		},
	})
	require.Error(t, err)
}

func TestClientStatus_Expiry(t *testing.T) {
	h := newHost(t)
	clientID := h.createClient([]byte("root"), 1, 10*time.Second)

	status, err := h.ctx().ClientStatus(clientID)
	require.NoError(t, err)
	require.Equal(t, StatusActive, status)

	// 15 seconds of block time later the trusting period has lapsed.
	h.beginBlock(baseTime.Add(15 * time.Second))
	status, err = h.ctx().ClientStatus(clientID)
	require.NoError(t, err)
	require.Equal(t, StatusExpired, status)
}

func TestRecoverClient(t *testing.T) {
	h := newHost(t)

	// Subject expires: trusting period 10s, block time advances 15s.
	subject := h.createClient([]byte("subject-root"), 1, 10*time.Second)

	// Substitute stays active at height 1-30 thanks to a long trusting
	// period, and agrees on every non-adjustable parameter.
	substitute := h.createClient([]byte("substitute-root"), 30, time.Hour)

	h.commit()
	h.beginBlock(baseTime.Add(15 * time.Second))

	status, err := h.ctx().ClientStatus(subject)
	require.NoError(t, err)
	require.Equal(t, StatusExpired, status)

	h.mustDeliver(MsgRecoverClientURL, MsgRecoverClient{
		SubjectClientID:    subject,
		SubstituteClientID: substitute,
	})

	cs, err := h.ctx().ClientState(subject)
	require.NoError(t, err)
	require.Equal(t, NewHeight(1, 30), cs.LatestHeight)

	status, err = h.ctx().ClientStatus(subject)
	require.NoError(t, err)
	require.Equal(t, StatusActive, status)

	// The substitute's consensus state was copied to the subject.
	cons, ok, err := h.ctx().ConsensusState(subject, NewHeight(1, 30))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("substitute-root"), cons.Root)
}

func TestRecoverClient_RequiresExpiredOrFrozenSubject(t *testing.T) {
	h := newHost(t)
	subject := h.createClient([]byte("subject-root"), 1, time.Hour)
	substitute := h.createClient([]byte("substitute-root"), 30, time.Hour)

	_, err := h.deliver(MsgRecoverClientURL, MsgRecoverClient{
		SubjectClientID:    subject,
		SubstituteClientID: substitute,
	})
	require.Error(t, err)
}

func TestRecoverClient_RequiresMatchingParameters(t *testing.T) {
	h := newHost(t)
	subject := h.createClient([]byte("subject-root"), 1, 10*time.Second)

	// Substitute for a different chain: not a valid replacement.
	mismatched := defaultClientState(NewHeight(1, 30), time.Hour)
	mismatched.ChainID = "other-chain"
	events := h.mustDeliver(MsgCreateClientURL, MsgCreateClient{
		ClientState: mismatched,
		ConsensusState: ConsensusState{
			Timestamp: bapitypes.TimeToTimestamp(h.now),
			Root:      []byte("other-root"),
		},
	})
	substitute := eventAttr(h.t, events, EventCreateClient, "client_id")

	h.beginBlock(baseTime.Add(15 * time.Second))

	_, err := h.deliver(MsgRecoverClientURL, MsgRecoverClient{
		SubjectClientID:    subject,
		SubstituteClientID: substitute,
	})
	require.Error(t, err)
}

func TestClientStatusIsComputedNotStored(t *testing.T) {
	h := newHost(t)
	clientID := h.createClient([]byte("root"), 1, 10*time.Second)

	// Nothing under the client's prefix changes as it expires.
	keysBefore := h.ctx().kv.GetKeys("clients")
	h.beginBlock(baseTime.Add(15 * time.Second))
	keysAfter := h.ctx().kv.GetKeys("clients")
	require.Equal(t, keysBefore, keysAfter)

	status, err := h.ctx().ClientStatus(clientID)
	require.NoError(t, err)
	require.Equal(t, StatusExpired, status)
}
