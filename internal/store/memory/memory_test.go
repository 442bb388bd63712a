package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/JonMunkholm/attrmatrix/internal/store"
	"github.com/JonMunkholm/attrmatrix/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(*testing.T) store.Store { return New() })
}

func TestInjectFault(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("boom")
	s.InjectFault("FillCriterion", boom)

	err := s.InTx(ctx, func(tx store.Tx) error {
		c, err := tx.InsertCriterion(ctx, "c")
		if err != nil {
			return err
		}
		_, err = tx.FillCriterion(ctx, c.ID)
		return err
	})
	require.ErrorIs(t, err, boom)

	s.InjectFault("FillCriterion", nil)
	require.NoError(t, s.InTx(ctx, func(tx store.Tx) error {
		list, err := tx.ListCriteria(ctx)
		assert.Empty(t, list)
		return err
	}))
}

func TestInTx_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := New().InTx(ctx, func(store.Tx) error { called = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestCellCount(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.InTx(ctx, func(tx store.Tx) error {
		f, _ := tx.InsertFormula(ctx, store.Formula{Name: "r"})
		c, _ := tx.InsertCriterion(ctx, "c")
		_, err := tx.UpsertAttribute(ctx, f.ID, c.ID, 3)
		return err
	}))
	assert.Equal(t, 1, s.CellCount())
}
