package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eidetica/eidetica/store"
)

func TestYDoc_ApplyUpdateAndMaterialize(t *testing.T) {
	db := newTestDB(t)
	tx := db.newTx(t)

	y := store.NewYDoc(tx, "doc")
	require.NoError(t, y.ApplyUpdate([]byte("update-1")))
	require.NoError(t, y.ApplyUpdate([]byte("update-2")))

	mat, err := y.Materialized()
	require.NoError(t, err)
	assert.ElementsMatch(t, [][]byte{[]byte("update-1"), []byte("update-2")}, mat.Updates())
}

func TestYDoc_PersistsAcrossCommit(t *testing.T) {
	db := newTestDB(t)

	tx1 := db.newTx(t)
	y1 := store.NewYDoc(tx1, "doc")
	require.NoError(t, y1.ApplyUpdate([]byte("update-1")))
	_, err := tx1.Commit()
	require.NoError(t, err)

	tx2 := db.newTx(t)
	y2 := store.NewYDoc(tx2, "doc")
	require.NoError(t, y2.ApplyUpdate([]byte("update-2")))

	mat, err := y2.Materialized()
	require.NoError(t, err)
	assert.ElementsMatch(t, [][]byte{[]byte("update-1"), []byte("update-2")}, mat.Updates())
}
