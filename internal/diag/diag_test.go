package diag

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eidetica/eidetica/backend/memory"
	"github.com/eidetica/eidetica/entry"
)

func TestRootCmd_Roots(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "db.json")

	b := memory.New()
	root, err := entry.RootBuilder().SetStoreData(entry.RootStore, `{}`).Build()
	require.NoError(t, err)
	require.NoError(t, b.PutVerified(root))
	require.NoError(t, b.Save(path))

	var buf bytes.Buffer
	cmd := RootCmd(&buf)
	cmd.SetArgs([]string{"roots", path})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, buf.String(), string(root.ID()))
}

func TestRootCmd_Dag(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "db.json")

	b := memory.New()
	root, err := entry.RootBuilder().SetStoreData(entry.RootStore, `{}`).Build()
	require.NoError(t, err)
	require.NoError(t, b.PutVerified(root))

	child, err := entry.NewBuilder(root.ID()).AddParents(root.ID()).SetStoreData("data", `{"a":1}`).Build()
	require.NoError(t, err)
	require.NoError(t, b.PutVerified(child))
	require.NoError(t, b.Save(path))

	var buf bytes.Buffer
	cmd := RootCmd(&buf)
	cmd.SetArgs([]string{"dag", path, string(root.ID())})
	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.Contains(t, out, string(root.ID()))
	assert.Contains(t, out, string(child.ID()))
}
