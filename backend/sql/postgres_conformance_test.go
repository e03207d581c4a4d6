package sqlbackend

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/eidetica/eidetica/entry"
)

// TestPostgres_Conformance exercises the same put/tip/merge-base contract as
// sql_test.go's SQLite suite, but against a disposable Postgres container,
// so the placeholder rebinding in dialect.go is verified against the one
// dialect that actually needs it. Skipped unless Docker is reachable; run it
// explicitly with `go test -run TestPostgres_Conformance ./backend/sql/...`.
func TestPostgres_Conformance(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed test in -short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("eidetica"),
		postgres.WithUsername("eidetica"),
		postgres.WithPassword("eidetica"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	b, err := New(db, DialectPostgres)
	require.NoError(t, err)

	root, err := entry.RootBuilder().SetStoreData(entry.RootStore, `{}`).Build()
	require.NoError(t, err)
	require.NoError(t, b.PutVerified(root))

	got, err := b.Get(root.ID())
	require.NoError(t, err)
	require.Equal(t, root.ID(), got.ID())

	child, err := entry.NewBuilder(root.ID()).AddParents(root.ID()).SetStoreData("data", `{"a":1}`).Build()
	require.NoError(t, err)
	require.NoError(t, b.PutVerified(child))

	tips, err := b.GetTips(root.ID())
	require.NoError(t, err)
	require.ElementsMatch(t, []string{string(child.ID())}, tips.Strings())

	base, err := b.FindMergeBase(root.ID(), "", tips)
	require.NoError(t, err)
	require.Equal(t, child.ID(), base)
}
