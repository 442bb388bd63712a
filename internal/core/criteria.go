package core

import (
	"context"
	"errors"
	"strings"

	"github.com/JonMunkholm/attrmatrix/internal/store"
)

// AddColumn creates a criterion and a zero cell for it in every existing row.
func (s *Service) AddColumn(ctx context.Context, name string) (Criterion, error) {
	const op = "add column"
	name = strings.TrimSpace(name)
	if name == "" {
		return Criterion{}, invalid(op, CodeRequired, "Criteria name required")
	}

	var (
		created store.Criterion
		filled  int64
	)
	err := s.run(ctx, op, func(tx store.Tx) error {
		if _, err := tx.CriterionByName(ctx, name); err == nil {
			return duplicate(op, "Criteria already exists")
		} else if !errors.Is(err, store.ErrNoRows) {
			return err
		}

		var err error
		if created, err = tx.InsertCriterion(ctx, name); err != nil {
			return err
		}
		filled, err = tx.FillCriterion(ctx, created.ID)
		return err
	})
	if err != nil {
		return Criterion{}, err
	}

	s.LogAudit(ctx, AuditLogParams{Action: ActionColumnAdd, ColumnName: name, RowsAffected: filled})
	return criterionFrom(created), nil
}

// DeleteColumn removes a criterion and every cell in it.
func (s *Service) DeleteColumn(ctx context.Context, name string) error {
	const op = "delete column"
	name = strings.TrimSpace(name)

	var removed int64
	err := s.run(ctx, op, func(tx store.Tx) error {
		c, err := tx.CriterionByName(ctx, name)
		if err != nil {
			return lookup(op, "Column not found", err)
		}
		if removed, err = tx.DeleteAttributesByCriterion(ctx, c.ID); err != nil {
			return err
		}
		return tx.DeleteCriterion(ctx, c.ID)
	})
	if err != nil {
		return err
	}

	s.LogAudit(ctx, AuditLogParams{Action: ActionColumnDelete, ColumnName: name, RowsAffected: removed})
	return nil
}

// ListColumns returns every criterion in creation order.
func (s *Service) ListColumns(ctx context.Context) ([]Criterion, error) {
	var out []Criterion
	err := s.run(ctx, "list columns", func(tx store.Tx) error {
		cols, err := tx.ListCriteria(ctx)
		if err != nil {
			return err
		}
		out = make([]Criterion, len(cols))
		for i, c := range cols {
			out[i] = criterionFrom(c)
		}
		return nil
	})
	return out, err
}
