package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eidetica/eidetica/store"
)

type person struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

func TestTable_InsertGet(t *testing.T) {
	db := newTestDB(t)
	tx := db.newTx(t)

	tbl := store.NewTable[person](tx, "people")
	id, err := tbl.Insert(person{Name: "ada", Age: 36})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := tbl.Get(id)
	require.NoError(t, err)
	assert.Equal(t, person{Name: "ada", Age: 36}, got)
}

func TestTable_SetOverwrites(t *testing.T) {
	db := newTestDB(t)
	tx := db.newTx(t)

	tbl := store.NewTable[person](tx, "people")
	id, err := tbl.Insert(person{Name: "ada", Age: 36})
	require.NoError(t, err)

	require.NoError(t, tbl.Set(id, person{Name: "ada", Age: 37}))
	got, err := tbl.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 37, got.Age)
}

func TestTable_DeleteRemovesFromSearch(t *testing.T) {
	db := newTestDB(t)
	tx := db.newTx(t)

	tbl := store.NewTable[person](tx, "people")
	id1, err := tbl.Insert(person{Name: "ada", Age: 36})
	require.NoError(t, err)
	_, err = tbl.Insert(person{Name: "grace", Age: 85})
	require.NoError(t, err)

	require.NoError(t, tbl.Delete(id1))

	results, err := tbl.Search(func(p person) bool { return true })
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "grace", results[0].Value.Name)
}

func TestTable_SearchAcrossCommit(t *testing.T) {
	db := newTestDB(t)

	tx1 := db.newTx(t)
	tbl1 := store.NewTable[person](tx1, "people")
	_, err := tbl1.Insert(person{Name: "ada", Age: 36})
	require.NoError(t, err)
	_, err = tbl1.Insert(person{Name: "grace", Age: 85})
	require.NoError(t, err)
	_, err = tx1.Commit()
	require.NoError(t, err)

	tx2 := db.newTx(t)
	tbl2 := store.NewTable[person](tx2, "people")
	adults, err := tbl2.Search(func(p person) bool { return p.Age >= 80 })
	require.NoError(t, err)
	require.Len(t, adults, 1)
	assert.Equal(t, "grace", adults[0].Value.Name)
}
