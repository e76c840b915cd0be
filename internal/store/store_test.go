package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_AppliesPragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typekit.db")

	s1, err := Open(path)
	require.NoError(t, err)
	_, err = s1.WriteCatalog(context.Background(), testCatalog(), 1)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	records, err := s2.ReadCatalogs(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1, "reopening must not drop data")
}

func TestOpen_BadPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "x.db"))
	assert.Error(t, err)
}

func TestClose_Twice(t *testing.T) {
	s := createTestStore(t)
	assert.NoError(t, s.Close())
	var zero Store
	assert.NoError(t, zero.Close())
}

func TestLastSeq(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	seq, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	hash, err := s.WriteCatalog(ctx, testCatalog(), 4)
	require.NoError(t, err)

	seq, err = s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), seq)

	require.NoError(t, s.WriteInstance(ctx, InstanceRecord{
		ID: "i1", CatalogHash: hash, TypeName: "Path", Seq: 5,
		HookRuns: hookRuns(6),
	}))

	seq, err = s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), seq)
}
