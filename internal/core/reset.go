package core

import (
	"context"
	"time"

	"github.com/JonMunkholm/attrmatrix/internal/store"
)

// ResetTimeout is the maximum duration of a Reset.
const ResetTimeout = 30 * time.Second

// ResetResult counts what a Reset removed.
type ResetResult struct {
	AxisSettings int   `json:"axis_settings"`
	Formulas     int   `json:"formulas"`
	Criteria     int   `json:"criteria"`
	Cells        int64 `json:"cells"`
}

type resetFn func(ctx context.Context, tx store.Tx, res *ResetResult) error

// Reset empties the matrix: every axis setting, formula, criterion and cell.
// It is destructive and runs as one transaction.
func (s *Service) Reset(ctx context.Context) (ResetResult, error) {
	ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()

	var res ResetResult
	err := s.run(ctx, "reset", func(tx store.Tx) error {
		res = ResetResult{}
		return runResets(ctx, tx, &res, []resetFn{
			resetAxisSettings,
			resetFormulas,
			resetCriteria,
		})
	})
	if err != nil {
		return ResetResult{}, err
	}

	s.LogAudit(ctx, AuditLogParams{
		Action:       ActionReset,
		RowsAffected: int64(res.Formulas),
	})
	return res, nil
}

func runResets(ctx context.Context, tx store.Tx, res *ResetResult, resets []resetFn) error {
	for _, reset := range resets {
		if err := reset(ctx, tx, res); err != nil {
			return err
		}
	}
	return nil
}

func resetAxisSettings(ctx context.Context, tx store.Tx, res *ResetResult) error {
	settings, err := tx.ListAxisSettings(ctx)
	if err != nil {
		return err
	}
	for _, a := range settings {
		if err := tx.DeleteAxisSetting(ctx, a.ID); err != nil {
			return err
		}
	}
	res.AxisSettings = len(settings)
	return nil
}

// resetFormulas removes cells together with their rows, so criteria are
// free of references afterwards.
func resetFormulas(ctx context.Context, tx store.Tx, res *ResetResult) error {
	formulas, err := tx.ListFormulas(ctx)
	if err != nil {
		return err
	}
	for _, f := range formulas {
		n, err := tx.DeleteAttributesByFormula(ctx, f.ID)
		if err != nil {
			return err
		}
		res.Cells += n
		if err := tx.DeleteFormula(ctx, f.ID); err != nil {
			return err
		}
	}
	res.Formulas = len(formulas)
	return nil
}

func resetCriteria(ctx context.Context, tx store.Tx, res *ResetResult) error {
	criteria, err := tx.ListCriteria(ctx)
	if err != nil {
		return err
	}
	for _, c := range criteria {
		n, err := tx.DeleteAttributesByCriterion(ctx, c.ID)
		if err != nil {
			return err
		}
		res.Cells += n
		if err := tx.DeleteCriterion(ctx, c.ID); err != nil {
			return err
		}
	}
	res.Criteria = len(criteria)
	return nil
}
