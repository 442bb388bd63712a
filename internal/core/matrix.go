package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/JonMunkholm/attrmatrix/internal/store"
)

// NormalizeValue converts a decoded cell value into an integer. Absent values
// (nil or an empty string) become 0. Integral JSON numbers and numeric strings
// are accepted; anything else is InvalidInput.
func NormalizeValue(raw any) (int, error) {
	const op = "normalize value"
	bad := func() (int, error) {
		return 0, invalid(op, CodeInvalidNumber, fmt.Sprintf("Invalid number: %v", raw))
	}

	switch v := raw.(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || v > math.MaxInt32 || v < math.MinInt32 {
			return bad()
		}
		return int(v), nil
	case json.Number:
		return NormalizeValue(v.String())
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return 0, nil
		}
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return bad()
		}
		return int(n), nil
	default:
		return bad()
	}
}

// GetCell returns the value at (rowID, columnID), or 0 when no cell is
// stored. It fails with NotFound when either id does not resolve.
func (s *Service) GetCell(ctx context.Context, rowID, columnID int64) (int, error) {
	const op = "get cell"
	var value int
	err := s.run(ctx, op, func(tx store.Tx) error {
		if _, err := tx.FormulaByID(ctx, rowID); err != nil {
			return lookup(op, "Formula not found", err)
		}
		if _, err := tx.CriterionByID(ctx, columnID); err != nil {
			return lookup(op, "Column not found", err)
		}
		var err error
		value, err = cellValue(ctx, tx, rowID, columnID)
		return err
	})
	return value, err
}

// LookupCell is GetCell addressed by row and column names.
func (s *Service) LookupCell(ctx context.Context, rowName, columnName string) (int, error) {
	const op = "lookup cell"
	var value int
	err := s.run(ctx, op, func(tx store.Tx) error {
		f, c, err := resolveCell(ctx, tx, op, rowName, columnName)
		if err != nil {
			return err
		}
		value, err = cellValue(ctx, tx, f.ID, c.ID)
		return err
	})
	return value, err
}

func cellValue(ctx context.Context, tx store.Tx, rowID, columnID int64) (int, error) {
	a, err := tx.GetAttribute(ctx, rowID, columnID)
	if errors.Is(err, store.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return a.Value, nil
}

// resolveCell looks up the row and column by their trimmed names.
func resolveCell(ctx context.Context, tx store.Tx, op, rowName, columnName string) (store.Formula, store.Criterion, error) {
	f, err := tx.FormulaByName(ctx, strings.TrimSpace(rowName))
	if err != nil {
		return store.Formula{}, store.Criterion{}, lookup(op, "Formula or column not found", err)
	}
	c, err := tx.CriterionByName(ctx, strings.TrimSpace(columnName))
	if err != nil {
		return store.Formula{}, store.Criterion{}, lookup(op, "Formula or column not found", err)
	}
	return f, c, nil
}

// SetCell writes value at the named row and column, creating the cell when
// it is missing. A nil value is written as 0. It reports whether a cell was
// created.
func (s *Service) SetCell(ctx context.Context, rowName, columnName string, value *int) (bool, error) {
	const op = "set cell"
	rowName, columnName = strings.TrimSpace(rowName), strings.TrimSpace(columnName)
	v := 0
	if value != nil {
		v = *value
	}

	var (
		created bool
		old     string
	)
	err := s.run(ctx, op, func(tx store.Tx) error {
		f, c, err := resolveCell(ctx, tx, op, rowName, columnName)
		if err != nil {
			return err
		}
		if prev, err := tx.GetAttribute(ctx, f.ID, c.ID); err == nil {
			old = strconv.Itoa(prev.Value)
		}
		created, err = tx.UpsertAttribute(ctx, f.ID, c.ID, v)
		return err
	})
	if err != nil {
		return false, err
	}

	s.LogAudit(ctx, AuditLogParams{
		Action:     ActionCellEdit,
		RowKey:     rowName,
		ColumnName: columnName,
		OldValue:   old,
		NewValue:   strconv.Itoa(v),
	})
	return created, nil
}

// RenderTable returns the dense view of the matrix: columns and rows in
// creation order, each row carrying a value for every column. Missing cells
// read as 0.
func (s *Service) RenderTable(ctx context.Context) (Table, error) {
	var table Table
	err := s.run(ctx, "render table", func(tx store.Tx) error {
		cols, formulas, cells, err := loadMatrix(ctx, tx)
		if err != nil {
			return err
		}
		table = densify(cols, formulas, cells)
		return nil
	})
	return table, err
}

func densify(cols []store.Criterion, formulas []store.Formula, cells []store.Attribute) Table {
	type key struct{ row, col int64 }
	values := make(map[key]int, len(cells))
	for _, a := range cells {
		values[key{a.FormulaID, a.CriteriaID}] = a.Value
	}

	table := Table{
		Columns: make([]string, len(cols)),
		Rows:    make([]Row, len(formulas)),
	}
	for i, c := range cols {
		table.Columns[i] = c.Name
	}
	for i, f := range formulas {
		row := rowFrom(f)
		row.Attributes = make(map[string]int, len(cols))
		for _, c := range cols {
			row.Attributes[c.Name] = values[key{f.ID, c.ID}]
		}
		table.Rows[i] = row
	}
	return table
}
