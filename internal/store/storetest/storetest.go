// Package storetest holds a behavioural suite every store.Store backend must
// pass. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/JonMunkholm/attrmatrix/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, migrated, empty store.
type Factory func(t *testing.T) store.Store

var errAbort = errors.New("abort")

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("criteria lifecycle", func(t *testing.T) { testCriteria(t, newStore(t)) })
	t.Run("formula lifecycle", func(t *testing.T) { testFormulas(t, newStore(t)) })
	t.Run("attributes", func(t *testing.T) { testAttributes(t, newStore(t)) })
	t.Run("axis settings", func(t *testing.T) { testAxisSettings(t, newStore(t)) })
	t.Run("rollback", func(t *testing.T) { testRollback(t, newStore(t)) })
}

func inTx(t *testing.T, s store.Store, fn func(store.Tx) error) {
	t.Helper()
	require.NoError(t, s.InTx(context.Background(), fn))
}

func testCriteria(t *testing.T, s store.Store) {
	ctx := context.Background()
	inTx(t, s, func(tx store.Tx) error {
		a, err := tx.InsertCriterion(ctx, "Hot")
		require.NoError(t, err)
		b, err := tx.InsertCriterion(ctx, "Cold")
		require.NoError(t, err)
		assert.Less(t, a.ID, b.ID)

		_, err = tx.InsertCriterion(ctx, "Hot")
		assert.ErrorIs(t, err, store.ErrUnique)
		return nil
	})

	inTx(t, s, func(tx store.Tx) error {
		got, err := tx.ListCriteria(ctx)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Hot", got[0].Name)
		assert.Equal(t, "Cold", got[1].Name)

		byName, err := tx.CriterionByName(ctx, "Cold")
		require.NoError(t, err)
		byID, err := tx.CriterionByID(ctx, byName.ID)
		require.NoError(t, err)
		assert.Equal(t, byName, byID)

		_, err = tx.CriterionByName(ctx, "Missing")
		assert.ErrorIs(t, err, store.ErrNoRows)

		require.NoError(t, tx.DeleteCriterion(ctx, byName.ID))
		assert.ErrorIs(t, tx.DeleteCriterion(ctx, byName.ID), store.ErrNoRows)
		return nil
	})
}

func testFormulas(t *testing.T, s store.Store) {
	ctx := context.Background()
	inTx(t, s, func(tx store.Tx) error {
		f, err := tx.InsertFormula(ctx, store.Formula{Name: "测试", Spell: "CeShi"})
		require.NoError(t, err)
		assert.Equal(t, "", f.Annotation)
		assert.Equal(t, "CeShi", f.Spell)

		g, err := tx.InsertFormula(ctx, store.Formula{Name: "Other"})
		require.NoError(t, err)

		f.Name = "Renamed"
		f.Annotation = "note"
		require.NoError(t, tx.UpdateFormula(ctx, f))

		got, err := tx.FormulaByName(ctx, "Renamed")
		require.NoError(t, err)
		assert.Equal(t, f, got)

		// Renaming onto another row's name collides; keeping one's own does not.
		g.Name = "Renamed"
		assert.ErrorIs(t, tx.UpdateFormula(ctx, g), store.ErrUnique)
		require.NoError(t, tx.UpdateFormula(ctx, f))

		assert.ErrorIs(t, tx.UpdateFormula(ctx, store.Formula{ID: 9999, Name: "x"}), store.ErrNoRows)
		return nil
	})

	inTx(t, s, func(tx store.Tx) error {
		list, err := tx.ListFormulas(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "Renamed", list[0].Name)

		require.NoError(t, tx.DeleteFormula(ctx, list[1].ID))
		_, err = tx.FormulaByID(ctx, list[1].ID)
		assert.ErrorIs(t, err, store.ErrNoRows)
		return nil
	})
}

func testAttributes(t *testing.T, s store.Store) {
	ctx := context.Background()
	inTx(t, s, func(tx store.Tx) error {
		f1, err := tx.InsertFormula(ctx, store.Formula{Name: "r1"})
		require.NoError(t, err)
		f2, err := tx.InsertFormula(ctx, store.Formula{Name: "r2"})
		require.NoError(t, err)
		c1, err := tx.InsertCriterion(ctx, "c1")
		require.NoError(t, err)

		n, err := tx.FillCriterion(ctx, c1.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = tx.FillCriterion(ctx, c1.ID)
		require.NoError(t, err)
		assert.Zero(t, n, "fill is idempotent")

		c2, err := tx.InsertCriterion(ctx, "c2")
		require.NoError(t, err)
		created, err := tx.UpsertAttribute(ctx, f1.ID, c2.ID, 5)
		require.NoError(t, err)
		assert.True(t, created)

		created, err = tx.UpsertAttribute(ctx, f1.ID, c2.ID, 7)
		require.NoError(t, err)
		assert.False(t, created)

		n, err = tx.FillFormula(ctx, f2.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		cell, err := tx.GetAttribute(ctx, f1.ID, c2.ID)
		require.NoError(t, err)
		assert.Equal(t, 7, cell.Value)

		all, err := tx.ListAttributes(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 4)

		n, err = tx.DeleteAttributesByCriterion(ctx, c2.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = tx.DeleteAttributesByFormula(ctx, f1.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, err = tx.GetAttribute(ctx, f1.ID, c1.ID)
		assert.ErrorIs(t, err, store.ErrNoRows)
		return nil
	})
}

func testAxisSettings(t *testing.T, s store.Store) {
	ctx := context.Background()
	inTx(t, s, func(tx store.Tx) error {
		a, err := tx.InsertAxisSetting(ctx, store.AxisSetting{Name: "Temp", XNegativeID: 1, XPositiveID: 2, YNegativeID: 3, YPositiveID: 4})
		require.NoError(t, err)
		assert.NotZero(t, a.ID)

		_, err = tx.InsertAxisSetting(ctx, store.AxisSetting{Name: "Temp"})
		assert.ErrorIs(t, err, store.ErrUnique)

		b, err := tx.InsertAxisSetting(ctx, store.AxisSetting{Name: "Taste"})
		require.NoError(t, err)

		b.Name = "Temp"
		assert.ErrorIs(t, tx.UpdateAxisSetting(ctx, b), store.ErrUnique)

		a.XNegativeID = 9
		require.NoError(t, tx.UpdateAxisSetting(ctx, a))
		got, err := tx.AxisSettingByName(ctx, "Temp")
		require.NoError(t, err)
		assert.Equal(t, int64(9), got.XNegativeID)

		require.NoError(t, tx.DeleteAxisSetting(ctx, a.ID))
		_, err = tx.AxisSettingByID(ctx, a.ID)
		assert.ErrorIs(t, err, store.ErrNoRows)

		list, err := tx.ListAxisSettings(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)
		return nil
	})
}

func testRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	err := s.InTx(ctx, func(tx store.Tx) error {
		if _, err := tx.InsertCriterion(ctx, "ghost"); err != nil {
			return err
		}
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	inTx(t, s, func(tx store.Tx) error {
		_, err := tx.CriterionByName(ctx, "ghost")
		assert.ErrorIs(t, err, store.ErrNoRows)
		return nil
	})
}
