package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/JonMunkholm/attrmatrix/internal/store"
	"github.com/JonMunkholm/attrmatrix/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryStore(t *testing.T) store.Store {
	t.Helper()
	s, err := Open(context.Background(), MemoryPath, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, newMemoryStore)
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newMemoryStore(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestOpen_FilePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "matrix.db")

	s, err := Open(ctx, path, 0)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.InTx(ctx, func(tx store.Tx) error {
		_, err := tx.InsertCriterion(ctx, "Hot")
		return err
	}))
	require.NoError(t, s.Close())

	reopened, err := Open(ctx, path, 0)
	require.NoError(t, err)
	defer reopened.Close()
	require.NoError(t, reopened.Ping(ctx))
	require.NoError(t, reopened.InTx(ctx, func(tx store.Tx) error {
		c, err := tx.CriterionByName(ctx, "Hot")
		require.NoError(t, err)
		assert.Equal(t, int64(1), c.ID)
		return nil
	}))
}

func TestForeignKeysEnforced(t *testing.T) {
	s := newMemoryStore(t)
	ctx := context.Background()
	err := s.InTx(ctx, func(tx store.Tx) error {
		_, err := tx.UpsertAttribute(ctx, 41, 42, 1)
		return err
	})
	assert.Error(t, err)
}
