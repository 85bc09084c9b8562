package device

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "identity.db"))
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.Get(KeyDeviceID)
	assert.False(t, ok)

	require.NoError(t, store.Set(KeyDeviceID, "abc-123"))
	v, ok := store.Get(KeyDeviceID)
	require.True(t, ok)
	assert.Equal(t, "abc-123", v)

	// Upsert replaces in place.
	require.NoError(t, store.Set(KeyDeviceID, "def-456"))
	v, _ = store.Get(KeyDeviceID)
	assert.Equal(t, "def-456", v)
}

func TestSQLiteStoreInChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	chain := NewChain(NewMemoryStore(), store)
	id := DeviceID(chain)
	require.NotEqual(t, Sentinel, id)

	// The sqlite tier alone can restore the value for a fresh chain.
	restored := DeviceID(NewChain(store))
	assert.Equal(t, id, restored)
}
