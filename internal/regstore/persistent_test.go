package regstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambrsb/shmbus/internal/regtypes"
)

func openTestStore(t *testing.T) *Persistent {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.db")
	store, err := OpenPersistent(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPersistentRegisterIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	it := mustItem(t, "owner-a", "channel-a")

	require.NoError(t, s.Register(it))
	require.NoError(t, s.Register(it))

	got, err := s.Lookup(regtypes.Filter("owner-a"))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestPersistentUnregisterAbsentIsNoop(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.Unregister(mustItem(t, "ghost", "nowhere")))

	got, err := s.Lookup(regtypes.Filter(""))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPersistentLookupIsSubstringMatch(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Register(mustItem(t, "logger-a", "ch1")))
	require.NoError(t, s.Register(mustItem(t, "other", "ch2")))
	require.NoError(t, s.Register(mustItem(t, "logger-b", "ch3")))

	got, err := s.Lookup(regtypes.Filter("logger"))
	require.NoError(t, err)
	assert.Len(t, got, 2)

	owners := []string{got[0].Owner(), got[1].Owner()}
	assert.Contains(t, owners, "logger-a")
	assert.Contains(t, owners, "logger-b")
}

func TestPersistentRegisterUnregisterRoundTrip(t *testing.T) {
	s := openTestStore(t)
	it := mustItem(t, "transient", "chX")

	require.NoError(t, s.Register(it))
	got, err := s.Lookup(regtypes.Filter("transient"))
	require.NoError(t, err)
	assert.Len(t, got, 1)

	require.NoError(t, s.Unregister(it))
	got, err = s.Lookup(regtypes.Filter("transient"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPersistentAddCallbackInvokesImmediatelyWithCurrentMatch(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Register(mustItem(t, "logger-a", "ch1")))

	var got []regtypes.RegItem
	calls := 0
	s.AddCallback(regtypes.Filter("logger"), func(items []regtypes.RegItem) {
		calls++
		got = items
	})

	assert.Equal(t, 1, calls)
	require.Len(t, got, 1)
	assert.Equal(t, "logger-a", got[0].Owner())
}

func TestPersistentCallbackFiresOnRegisterAndUnregister(t *testing.T) {
	s := openTestStore(t)

	var calls []int
	s.AddCallback(regtypes.Filter("logger"), func(items []regtypes.RegItem) {
		calls = append(calls, len(items))
	})

	it := mustItem(t, "logger-a", "ch1")
	require.NoError(t, s.Register(it))
	require.NoError(t, s.Unregister(it))

	require.Len(t, calls, 3)
	assert.Equal(t, []int{0, 1, 0}, calls)
}

func TestPersistentRemoveCallbackStopsFurtherInvocations(t *testing.T) {
	s := openTestStore(t)

	calls := 0
	cb := func(items []regtypes.RegItem) { calls++ }

	s.AddCallback(regtypes.Filter("x"), cb)
	assert.Equal(t, 1, calls)

	s.RemoveCallback(regtypes.Filter("x"), cb)
	require.NoError(t, s.Register(mustItem(t, "xavier", "ch1")))

	assert.Equal(t, 1, calls)
}

func TestPersistentLookupFailsOpenWhenCacheUnset(t *testing.T) {
	s := openTestStore(t)
	require.Nil(t, s.cache)

	require.NoError(t, s.Register(mustItem(t, "owner", "ch1")))
	got, err := s.Lookup(regtypes.Filter("owner"))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
