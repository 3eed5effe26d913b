package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"bountychain/storage"
)

func TestEnsureStateVersionStampsEmptyStore(t *testing.T) {
	db := storage.NewMemDB()
	require.NoError(t, EnsureStateVersion(db, false))

	version, ok, err := NewManager(db).StateVersion()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, StateVersion, version)

	// A second start finds the stamp.
	require.NoError(t, EnsureStateVersion(db, false))
}

func TestEnsureStateVersionRejectsUnstampedState(t *testing.T) {
	db := storage.NewMemDB()
	mgr := NewManager(db)
	require.NoError(t, mgr.MarkGenesisApplied())
	require.NoError(t, mgr.Commit())

	err := EnsureStateVersion(db, false)
	require.ErrorIs(t, err, ErrStateVersionMismatch)
	require.NoError(t, EnsureStateVersion(db, true))
}

func TestEnsureStateVersionRejectsFutureVersion(t *testing.T) {
	db := storage.NewMemDB()
	mgr := NewManager(db)
	require.NoError(t, mgr.SetStateVersion(StateVersion+1))
	require.NoError(t, mgr.Commit())

	require.ErrorIs(t, EnsureStateVersion(db, false), ErrStateVersionMismatch)
	require.Error(t, EnsureStateVersion(nil, false))
}
