package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func commitState(t *testing.T, s *State) []byte {
	t.Helper()
	hash, _, err := s.Commit()
	require.NoError(t, err)
	return hash
}

func TestState_CheckScopeIsolation(t *testing.T) {
	s := NewMemoryState(100)
	defer s.Close()

	// Writes through the check scope never reach deliver or committed
	// state, and never move the app-hash.
	check := s.Check()
	require.NoError(t, check.Provable().Set("bank/balances/alice", []byte("99")))
	require.NoError(t, check.Mem().Set("ibc/nextClientSequence", []byte{9}))

	got, ok := check.Provable().Get("bank/balances/alice")
	require.True(t, ok)
	require.Equal(t, []byte("99"), got)

	deliver := s.Deliver()
	_, ok = deliver.Provable().Get("bank/balances/alice")
	require.False(t, ok)

	hash := commitState(t, s)

	empty := NewMemoryState(100)
	defer empty.Close()
	require.Equal(t, commitState(t, empty), hash)

	// The overlay is discarded at the block boundary.
	_, ok = s.Check().Provable().Get("bank/balances/alice")
	require.False(t, ok)
}

func TestState_TxStaging(t *testing.T) {
	s := NewMemoryState(100)
	defer s.Close()

	deliver := s.Deliver()
	require.NoError(t, deliver.Provable().Set("a", []byte("1")))
	require.NoError(t, s.ApplyTx())

	// A failing transaction's writes are dropped back to the staged set.
	require.NoError(t, deliver.Provable().Set("a", []byte("2")))
	require.NoError(t, deliver.Provable().Set("b", []byte("2")))
	s.ResetTx()

	hash, version, err := s.Commit()
	require.NoError(t, err)
	require.Equal(t, uint64(1), version)
	require.NotEmpty(t, hash)

	scope, err := s.QueryAt(Latest)
	require.NoError(t, err)
	got, ok := scope.Provable().Get("a")
	require.True(t, ok)
	require.Equal(t, []byte("1"), got)
	_, ok = scope.Provable().Get("b")
	require.False(t, ok)
}

func TestState_QueryAtRevision(t *testing.T) {
	s := NewMemoryState(100)
	defer s.Close()

	deliver := s.Deliver()
	require.NoError(t, deliver.Provable().Set("k", []byte("v1")))
	require.NoError(t, s.ApplyTx())
	commitState(t, s)

	require.NoError(t, deliver.Provable().Set("k", []byte("v2")))
	require.NoError(t, s.ApplyTx())
	commitState(t, s)

	old, err := s.QueryAt(Height(1))
	require.NoError(t, err)
	got, _ := old.Provable().Get("k")
	require.Equal(t, []byte("v1"), got)

	_, err = s.QueryAt(Height(5))
	require.Error(t, err)

	// Query scopes refuse writes.
	scope, err := s.QueryAt(Latest)
	require.NoError(t, err)
	require.ErrorIs(t, scope.Provable().Set("k", []byte("x")), ErrReadOnly)
}

func TestState_StagedAppHashMatchesCommit(t *testing.T) {
	s := NewMemoryState(100)
	defer s.Close()

	deliver := s.Deliver()
	require.NoError(t, deliver.Provable().Set("x", []byte("1")))
	require.NoError(t, deliver.Mem().Set("not-hashed", []byte("1")))
	require.NoError(t, s.ApplyTx())

	staged, err := s.StagedAppHash()
	require.NoError(t, err)
	require.Equal(t, staged, commitState(t, s))
}

func TestState_MemExcludedFromAppHash(t *testing.T) {
	a := NewMemoryState(100)
	defer a.Close()
	b := NewMemoryState(100)
	defer b.Close()

	require.NoError(t, a.Deliver().Mem().Set("ibc/nextClientSequence", []byte{42}))
	require.NoError(t, a.ApplyTx())

	require.Equal(t, commitState(t, b), commitState(t, a))
}

func TestPrefixKV(t *testing.T) {
	s := NewMemoryState(100)
	defer s.Close()

	kv := NewPrefixKV("bank", s.Deliver().Provable())
	require.NoError(t, kv.Set("balances/alice", []byte("10")))

	// Visible fully-qualified on the raw scope.
	raw, ok := s.Deliver().Provable().Get("bank/balances/alice")
	require.True(t, ok)
	require.Equal(t, []byte("10"), raw)

	// Prefixes don't observe each other.
	other := NewPrefixKV("ibc", s.Deliver().Provable())
	_, ok = other.Get("balances/alice")
	require.False(t, ok)

	keys := kv.GetKeys("balances")
	require.Equal(t, []Path{"balances/alice"}, keys)
}

func TestTypedStores(t *testing.T) {
	s := NewMemoryState(100)
	defer s.Close()
	kv := s.Deliver().Provable()

	seqs := NewTyped[uint64](kv, U64Codec{})
	require.NoError(t, seqs.Set("seq", 7))
	got, ok, err := seqs.Get("seq")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(7), got)

	type record struct {
		Name  string `cramberry:"1" json:"name"`
		Count uint64 `cramberry:"2" json:"count"`
	}
	crams := NewCram[record](kv)
	require.NoError(t, crams.Set("r", record{Name: "x", Count: 3}))
	rec, ok, err := crams.Get("r")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, record{Name: "x", Count: 3}, rec)

	jsons := NewJSON[record](kv)
	require.NoError(t, jsons.Set("j", record{Name: "y", Count: 4}))
	rec, ok, err = jsons.Get("j")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, record{Name: "y", Count: 4}, rec)

	_, ok, err = crams.Get("missing")
	require.NoError(t, err)
	require.False(t, ok)
}
