package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIavlStore_PendingVsCommitted(t *testing.T) {
	s := NewMemoryIavlStore(100)
	defer s.Close()

	path := Path("a")
	value1 := []byte{1, 2, 3}
	value2 := []byte{4, 5, 6}

	require.NoError(t, s.Set(path, value1))

	// Pending writes are visible only through the pending height.
	got, ok := s.Get(PendingHeight, path)
	require.True(t, ok)
	require.Equal(t, value1, got)
	_, ok = s.Get(Latest, path)
	require.False(t, ok)
	_, ok = s.Get(Height(1), path)
	require.False(t, ok)

	require.NoError(t, s.Apply())
	version, err := s.Commit()
	require.NoError(t, err)
	require.Equal(t, uint64(1), version)

	got, ok = s.Get(Latest, path)
	require.True(t, ok)
	require.Equal(t, value1, got)
	got, ok = s.Get(Height(1), path)
	require.True(t, ok)
	require.Equal(t, value1, got)
	_, ok = s.Get(Height(2), path)
	require.False(t, ok)

	// Overwrite in the next block; the old revision stays readable.
	require.NoError(t, s.Set(path, value2))
	require.NoError(t, s.Apply())
	_, err = s.Commit()
	require.NoError(t, err)

	got, _ = s.Get(Height(1), path)
	require.Equal(t, value1, got)
	got, _ = s.Get(Height(2), path)
	require.Equal(t, value2, got)
	require.Equal(t, uint64(2), s.Version())
}

func TestIavlStore_ResetDiscardsPending(t *testing.T) {
	s := NewMemoryIavlStore(100)
	defer s.Close()

	require.NoError(t, s.Set("keep", []byte("v1")))
	require.NoError(t, s.Apply())

	require.NoError(t, s.Set("drop", []byte("v2")))
	require.NoError(t, s.Delete("keep"))
	s.Reset()

	got, ok := s.Get(PendingHeight, "keep")
	require.True(t, ok)
	require.Equal(t, []byte("v1"), got)
	_, ok = s.Get(PendingHeight, "drop")
	require.False(t, ok)
}

func TestIavlStore_DeleteAcrossCommit(t *testing.T) {
	s := NewMemoryIavlStore(100)
	defer s.Close()

	require.NoError(t, s.Set("x", []byte("1")))
	require.NoError(t, s.Apply())
	_, err := s.Commit()
	require.NoError(t, err)

	require.NoError(t, s.Delete("x"))
	require.NoError(t, s.Apply())
	_, err = s.Commit()
	require.NoError(t, err)

	_, ok := s.Get(Latest, "x")
	require.False(t, ok)
	got, ok := s.Get(Height(1), "x")
	require.True(t, ok)
	require.Equal(t, []byte("1"), got)
}

func TestIavlStore_GetKeys(t *testing.T) {
	s := NewMemoryIavlStore(100)
	defer s.Close()

	require.NoError(t, s.Set("bank/balances/alice", []byte("1")))
	require.NoError(t, s.Set("bank/balances/bob", []byte("2")))
	require.NoError(t, s.Set("ibc/clients/a", []byte("3")))
	require.NoError(t, s.Apply())
	_, err := s.Commit()
	require.NoError(t, err)

	keys := s.GetKeys(Latest, "bank")
	require.Equal(t, []Path{"bank/balances/alice", "bank/balances/bob"}, keys)

	// Pending writes merge into the listing.
	require.NoError(t, s.Set("bank/balances/carol", []byte("4")))
	require.NoError(t, s.Delete("bank/balances/alice"))
	keys = s.GetKeys(PendingHeight, "bank")
	require.Equal(t, []Path{"bank/balances/bob", "bank/balances/carol"}, keys)
}

func TestIavlStore_ProofRoundTrip(t *testing.T) {
	s := NewMemoryIavlStore(100)
	defer s.Close()

	require.NoError(t, s.Set("ibc/clients/07-tendermint-0/clientState", []byte("client")))
	require.NoError(t, s.Set("bank/balances/alice", []byte("100")))
	require.NoError(t, s.Apply())
	_, err := s.Commit()
	require.NoError(t, err)

	root := s.RootHash()

	// Existence proof verifies against the root, and only against it.
	proof, err := s.GetProof(Latest, "bank/balances/alice")
	require.NoError(t, err)
	require.True(t, proof.Exists)
	require.Equal(t, []byte("100"), proof.Value)
	require.True(t, proof.Verify(root))
	require.False(t, proof.Verify(make([]byte, 32)))

	// Non-existence proof for an absent key.
	absent, err := s.GetProof(Latest, "bank/balances/nobody")
	require.NoError(t, err)
	require.False(t, absent.Exists)
	require.True(t, absent.Verify(root))
}

func TestIavlStore_HistoricalProof(t *testing.T) {
	s := NewMemoryIavlStore(100)
	defer s.Close()

	require.NoError(t, s.Set("k", []byte("v1")))
	require.NoError(t, s.Apply())
	_, err := s.Commit()
	require.NoError(t, err)
	root1 := s.RootHash()

	require.NoError(t, s.Set("k", []byte("v2")))
	require.NoError(t, s.Apply())
	_, err = s.Commit()
	require.NoError(t, err)

	proof, err := s.GetProof(Height(1), "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), proof.Value)
	require.True(t, proof.Verify(root1))
	require.False(t, proof.Verify(s.RootHash()))
}

func TestIavlStore_DeterministicRoot(t *testing.T) {
	build := func(order []int) []byte {
		s := NewMemoryIavlStore(100)
		defer s.Close()
		for _, i := range order {
			require.NoError(t, s.Set(Path(fmt.Sprintf("key/%02d", i)), []byte{byte(i)}))
		}
		require.NoError(t, s.Apply())
		_, err := s.Commit()
		require.NoError(t, err)
		return s.RootHash()
	}

	// The staged write-set replays in path order, so insertion order is
	// irrelevant to the root.
	a := build([]int{1, 2, 3, 4, 5})
	b := build([]int{5, 3, 1, 4, 2})
	require.Equal(t, a, b)
}

func TestIavlStore_StagedRootMatchesCommit(t *testing.T) {
	s := NewMemoryIavlStore(100)
	defer s.Close()

	require.NoError(t, s.Set("a", []byte("1")))
	require.NoError(t, s.Set("b", []byte("2")))
	require.NoError(t, s.Apply())

	staged, err := s.StagedRootHash()
	require.NoError(t, err)
	_, err = s.Commit()
	require.NoError(t, err)
	require.Equal(t, staged, s.RootHash())
}

func TestIavlStore_Prune(t *testing.T) {
	s := NewMemoryIavlStore(100)
	defer s.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Set("k", []byte{byte(i)}))
		require.NoError(t, s.Apply())
		_, err := s.Commit()
		require.NoError(t, err)
	}
	require.NoError(t, s.Prune(2))

	_, ok := s.Get(Height(1), "k")
	require.False(t, ok)
	got, ok := s.Get(Height(5), "k")
	require.True(t, ok)
	require.Equal(t, []byte{4}, got)
}
