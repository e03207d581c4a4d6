package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eidetica/eidetica/crdt"
	"github.com/eidetica/eidetica/store"
)

func TestDocStore_SetGetWithinTransaction(t *testing.T) {
	db := newTestDB(t)
	tx := db.newTx(t)

	ds := store.NewDocStore(tx, "profile")
	require.NoError(t, ds.Set("name", crdt.Text("ada")))

	v, err := ds.Get("name")
	require.NoError(t, err)
	text, ok := v.AsText()
	require.True(t, ok)
	assert.Equal(t, "ada", text)
}

func TestDocStore_PersistsAcrossCommit(t *testing.T) {
	db := newTestDB(t)

	tx1 := db.newTx(t)
	ds1 := store.NewDocStore(tx1, "profile")
	require.NoError(t, ds1.Set("name", crdt.Text("ada")))
	_, err := tx1.Commit()
	require.NoError(t, err)

	tx2 := db.newTx(t)
	ds2 := store.NewDocStore(tx2, "profile")
	v, err := ds2.Get("name")
	require.NoError(t, err)
	text, _ := v.AsText()
	assert.Equal(t, "ada", text)
}

func TestDocStore_DeleteIsTombstoned(t *testing.T) {
	db := newTestDB(t)

	tx1 := db.newTx(t)
	ds1 := store.NewDocStore(tx1, "profile")
	require.NoError(t, ds1.Set("name", crdt.Text("ada")))
	_, err := tx1.Commit()
	require.NoError(t, err)

	tx2 := db.newTx(t)
	ds2 := store.NewDocStore(tx2, "profile")
	require.NoError(t, ds2.Delete("name"))
	_, err = ds2.Get("name")
	assert.True(t, store.IsNotFound(err))
	_, err = tx2.Commit()
	require.NoError(t, err)

	tx3 := db.newTx(t)
	ds3 := store.NewDocStore(tx3, "profile")
	_, err = ds3.Get("name")
	assert.True(t, store.IsNotFound(err))
}

func TestDocStore_Path(t *testing.T) {
	db := newTestDB(t)
	tx := db.newTx(t)
	ds := store.NewDocStore(tx, "profile")

	require.NoError(t, ds.SetPath(crdt.Text("Lovelace"), "name", "last"))
	v, err := ds.GetPath("name", "last")
	require.NoError(t, err)
	text, _ := v.AsText()
	assert.Equal(t, "Lovelace", text)

	require.NoError(t, ds.DeletePath("name", "last"))
	_, err = ds.GetPath("name", "last")
	assert.True(t, store.IsNotFound(err))
}

func TestDocStore_Keys(t *testing.T) {
	db := newTestDB(t)
	tx := db.newTx(t)
	ds := store.NewDocStore(tx, "profile")

	require.NoError(t, ds.Set("a", crdt.Int(1)))
	require.NoError(t, ds.Set("b", crdt.Int(2)))
	require.NoError(t, ds.Delete("a"))

	keys, err := ds.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, keys)
}
