package core

import (
	"context"
	"errors"
	"strings"

	"github.com/JonMunkholm/attrmatrix/internal/store"
)

// AddRow creates a formula with its derived spell and a zero cell for it in
// every existing column.
func (s *Service) AddRow(ctx context.Context, name string) (Row, error) {
	const op = "add row"
	name = strings.TrimSpace(name)
	if name == "" {
		return Row{}, invalid(op, CodeRequired, "Formula name required")
	}

	// Pure; computed outside the transaction.
	spelled := s.deriveSpell(ctx, name)

	var (
		created store.Formula
		filled  int64
	)
	err := s.run(ctx, op, func(tx store.Tx) error {
		var err error
		created, filled, err = s.createRow(ctx, tx, op, name, "", spelled)
		return err
	})
	if err != nil {
		return Row{}, err
	}

	s.LogAudit(ctx, AuditLogParams{Action: ActionRowAdd, RowKey: name, RowsAffected: filled})
	return rowFrom(created), nil
}

// createRow inserts a formula and fills its cells. It fails with
// DuplicateName when the name is taken.
func (s *Service) createRow(ctx context.Context, tx store.Tx, op, name, annotation, spelled string) (store.Formula, int64, error) {
	if _, err := tx.FormulaByName(ctx, name); err == nil {
		return store.Formula{}, 0, duplicate(op, "Formula already exists")
	} else if !errors.Is(err, store.ErrNoRows) {
		return store.Formula{}, 0, err
	}

	f, err := tx.InsertFormula(ctx, store.Formula{Name: name, Annotation: annotation, Spell: spelled})
	if err != nil {
		return store.Formula{}, 0, err
	}
	filled, err := tx.FillFormula(ctx, f.ID)
	if err != nil {
		return store.Formula{}, 0, err
	}
	return f, filled, nil
}

// RenameRow renames a formula and recomputes its spell. The row keeps its id,
// so its cells are untouched.
func (s *Service) RenameRow(ctx context.Context, oldName, newName string) (Row, error) {
	const op = "rename row"
	oldName = strings.TrimSpace(oldName)
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return Row{}, invalid(op, CodeRequired, "New name required")
	}

	spelled := s.deriveSpell(ctx, newName)

	var renamed store.Formula
	err := s.run(ctx, op, func(tx store.Tx) error {
		f, err := tx.FormulaByName(ctx, oldName)
		if err != nil {
			return lookup(op, "Row not found", err)
		}
		if newName != f.Name {
			if other, err := tx.FormulaByName(ctx, newName); err == nil && other.ID != f.ID {
				return duplicate(op, "Formula already exists")
			} else if err != nil && !errors.Is(err, store.ErrNoRows) {
				return err
			}
		}

		f.Name = newName
		f.Spell = spelled
		renamed = f
		return tx.UpdateFormula(ctx, f)
	})
	if err != nil {
		return Row{}, err
	}

	s.LogAudit(ctx, AuditLogParams{Action: ActionRowRename, RowKey: newName, OldValue: oldName, NewValue: newName})
	return rowFrom(renamed), nil
}

// UpdateAnnotation overwrites the annotation of a formula. An empty
// annotation clears it.
func (s *Service) UpdateAnnotation(ctx context.Context, name, annotation string) error {
	const op = "update annotation"
	name = strings.TrimSpace(name)

	var old string
	err := s.run(ctx, op, func(tx store.Tx) error {
		f, err := tx.FormulaByName(ctx, name)
		if err != nil {
			return lookup(op, "Row not found", err)
		}
		old = f.Annotation
		f.Annotation = annotation
		return tx.UpdateFormula(ctx, f)
	})
	if err != nil {
		return err
	}

	s.LogAudit(ctx, AuditLogParams{Action: ActionAnnotationEdit, RowKey: name, OldValue: old, NewValue: annotation})
	return nil
}

// DeleteRow removes a formula and every cell in it.
func (s *Service) DeleteRow(ctx context.Context, name string) error {
	const op = "delete row"
	name = strings.TrimSpace(name)

	var removed int64
	err := s.run(ctx, op, func(tx store.Tx) error {
		f, err := tx.FormulaByName(ctx, name)
		if err != nil {
			return lookup(op, "Row not found", err)
		}
		if removed, err = tx.DeleteAttributesByFormula(ctx, f.ID); err != nil {
			return err
		}
		return tx.DeleteFormula(ctx, f.ID)
	})
	if err != nil {
		return err
	}

	s.LogAudit(ctx, AuditLogParams{Action: ActionRowDelete, RowKey: name, RowsAffected: removed})
	return nil
}

// ListRows returns every formula in creation order with its stored cells
// keyed by column name. Unlike RenderTable it does not densify.
func (s *Service) ListRows(ctx context.Context) ([]Row, error) {
	var out []Row
	err := s.run(ctx, "list rows", func(tx store.Tx) error {
		cols, formulas, cells, err := loadMatrix(ctx, tx)
		if err != nil {
			return err
		}

		names := make(map[int64]string, len(cols))
		for _, c := range cols {
			names[c.ID] = c.Name
		}
		byRow := make(map[int64]map[string]int, len(formulas))
		for _, a := range cells {
			col, ok := names[a.CriteriaID]
			if !ok {
				continue
			}
			if byRow[a.FormulaID] == nil {
				byRow[a.FormulaID] = make(map[string]int)
			}
			byRow[a.FormulaID][col] = a.Value
		}

		out = make([]Row, len(formulas))
		for i, f := range formulas {
			out[i] = rowFrom(f)
			out[i].Attributes = byRow[f.ID]
			if out[i].Attributes == nil {
				out[i].Attributes = map[string]int{}
			}
		}
		return nil
	})
	return out, err
}

// loadMatrix reads all three tables in one go.
func loadMatrix(ctx context.Context, tx store.Tx) ([]store.Criterion, []store.Formula, []store.Attribute, error) {
	cols, err := tx.ListCriteria(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	formulas, err := tx.ListFormulas(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	cells, err := tx.ListAttributes(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return cols, formulas, cells, nil
}
