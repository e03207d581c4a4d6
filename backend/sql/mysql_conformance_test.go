package sqlbackend

import (
	"database/sql"
	"os"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"

	"github.com/eidetica/eidetica/entry"
)

// TestMySQL_Conformance exercises the same put/get round trip as the SQLite
// and Postgres suites against a real MySQL server, verifying dialect.go's
// "MySQL and SQLite both use bare ? placeholders" assumption. Unlike the
// Postgres test this doesn't spin up a container (no MySQL testcontainers
// module is wired elsewhere in this module), so it's opt-in via
// EIDETICA_MYSQL_DSN and skipped otherwise.
func TestMySQL_Conformance(t *testing.T) {
	dsn := os.Getenv("EIDETICA_MYSQL_DSN")
	if dsn == "" {
		t.Skip("set EIDETICA_MYSQL_DSN to run the MySQL conformance test")
	}

	db, err := sql.Open("mysql", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	b, err := New(db, DialectMySQL)
	require.NoError(t, err)

	root, err := entry.RootBuilder().SetStoreData(entry.RootStore, `{}`).Build()
	require.NoError(t, err)
	require.NoError(t, b.PutVerified(root))

	got, err := b.Get(root.ID())
	require.NoError(t, err)
	require.Equal(t, root.ID(), got.ID())
}
