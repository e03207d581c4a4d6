package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eidetica/eidetica/backend/memory"
)

func TestInstance_CreateUserAndDatabase(t *testing.T) {
	inst, err := New(memory.New())
	require.NoError(t, err)

	user, pubkey, err := inst.CreateUser("alice", "hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, pubkey)

	db, err := inst.CreateDatabase("notes", user, "hunter2", "default")
	require.NoError(t, err)
	assert.False(t, db.RootID().IsEmpty())

	found, err := inst.FindDatabase("notes")
	require.NoError(t, err)
	assert.Equal(t, db.RootID(), found.RootID())
}

func TestInstance_EnableSyncIsIdempotentlyRejected(t *testing.T) {
	inst, err := New(memory.New())
	require.NoError(t, err)

	_, err = inst.Sync()
	assert.ErrorIs(t, err, ErrSyncNotEnabled)

	engine, err := inst.EnableSync()
	require.NoError(t, err)
	assert.NotNil(t, engine)

	_, err = inst.EnableSync()
	assert.ErrorIs(t, err, ErrSyncAlreadyEnabled)

	again, err := inst.Sync()
	require.NoError(t, err)
	assert.Same(t, engine, again)
}

func TestInstance_CloseInvalidatesHandles(t *testing.T) {
	inst, err := New(memory.New())
	require.NoError(t, err)
	assert.True(t, inst.Alive())
	inst.Close()
	assert.False(t, inst.Alive())
}
