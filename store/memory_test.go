package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemStore_Versioning(t *testing.T) {
	s := NewMemStore()
	defer s.Close()

	require.NoError(t, s.Set("counter", []byte{0}))
	require.NoError(t, s.Apply())
	version, err := s.Commit()
	require.NoError(t, err)
	require.Equal(t, uint64(1), version)

	require.NoError(t, s.Set("counter", []byte{1}))
	require.NoError(t, s.Apply())
	_, err = s.Commit()
	require.NoError(t, err)

	got, ok := s.Get(Height(1), "counter")
	require.True(t, ok)
	require.Equal(t, []byte{0}, got)
	got, ok = s.Get(Latest, "counter")
	require.True(t, ok)
	require.Equal(t, []byte{1}, got)
}

func TestMemStore_ResetIsolation(t *testing.T) {
	s := NewMemStore()
	defer s.Close()

	require.NoError(t, s.Set("a", []byte("staged")))
	require.NoError(t, s.Apply())
	require.NoError(t, s.Set("a", []byte("dirty")))
	require.NoError(t, s.Set("b", []byte("dirty")))
	s.Reset()

	got, ok := s.Get(PendingHeight, "a")
	require.True(t, ok)
	require.Equal(t, []byte("staged"), got)
	_, ok = s.Get(PendingHeight, "b")
	require.False(t, ok)
}

func TestMemStore_DeleteAndKeys(t *testing.T) {
	s := NewMemStore()
	defer s.Close()

	require.NoError(t, s.Set("ibc/nextClientSequence", []byte{1}))
	require.NoError(t, s.Set("ibc/nextChannelSequence", []byte{2}))
	require.NoError(t, s.Apply())
	_, err := s.Commit()
	require.NoError(t, err)

	require.NoError(t, s.Delete("ibc/nextChannelSequence"))
	require.NoError(t, s.Apply())
	_, err = s.Commit()
	require.NoError(t, err)

	keys := s.GetKeys(Latest, "ibc")
	require.Equal(t, []Path{"ibc/nextClientSequence"}, keys)
	keys = s.GetKeys(Height(1), "ibc")
	require.Len(t, keys, 2)
}

func TestMemStore_Prune(t *testing.T) {
	s := NewMemStore()
	defer s.Close()

	for i := 0; i < 4; i++ {
		require.NoError(t, s.Set("k", []byte{byte(i)}))
		require.NoError(t, s.Apply())
		_, err := s.Commit()
		require.NoError(t, err)
	}
	require.NoError(t, s.Prune(1))

	_, ok := s.Get(Height(2), "k")
	require.False(t, ok)
	got, ok := s.Get(Height(4), "k")
	require.True(t, ok)
	require.Equal(t, []byte{3}, got)
}
