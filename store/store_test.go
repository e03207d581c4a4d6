package store_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eidetica/eidetica/auth"
	"github.com/eidetica/eidetica/backend/memory"
	"github.com/eidetica/eidetica/crdt"
	"github.com/eidetica/eidetica/entry"
	"github.com/eidetica/eidetica/id"
	"github.com/eidetica/eidetica/transaction"
)

// testDB bundles the plumbing every store test needs: a memory backend with
// one active admin key installed in _settings, so ordinary transactions
// authorize without extra setup.
type testDB struct {
	backend  *memory.Backend
	resolver *auth.Resolver
	mat      *transaction.Materializer
	root     id.ID
}

func newTestDB(t *testing.T) *testDB {
	t.Helper()
	b := memory.New()
	resolver := auth.NewResolver(nil)
	mat := transaction.NewMaterializer(b)

	pub, priv, err := auth.GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, b.StorePrivateKey("admin", priv))

	rootTx := transaction.NewRoot(b, resolver, mat)
	rootTx.SetSigningKey("admin")

	rootStore, err := rootTx.Delta(entry.RootStore)
	require.NoError(t, err)
	rootStore.Set("created_by", crdt.Text("test"))

	settings, err := rootTx.Delta(entry.SettingsStore)
	require.NoError(t, err)
	key, err := auth.ActiveAuthKey(auth.FormatPublicKey(pub), auth.Admin(0))
	require.NoError(t, err)
	auth.PutAuthKey(settings, "admin", key)

	root, err := rootTx.Commit()
	require.NoError(t, err)

	return &testDB{backend: b, resolver: resolver, mat: mat, root: root}
}

func (d *testDB) newTx(t *testing.T) *transaction.Transaction {
	t.Helper()
	tips, err := d.backend.GetTips(d.root)
	require.NoError(t, err)
	tx, err := transaction.New(d.backend, d.resolver, d.mat, d.root, tips)
	require.NoError(t, err)
	tx.SetSigningKey("admin")
	return tx
}
