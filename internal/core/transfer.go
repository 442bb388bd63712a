package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/JonMunkholm/attrmatrix/internal/logging"
	"github.com/JonMunkholm/attrmatrix/internal/store"
	"github.com/google/uuid"
)

// timestampLayout renders export timestamps as ISO-8601 UTC with milliseconds.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Snapshot returns the dense matrix in transport form.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	table, err := s.RenderTable(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{
		Columns: table.Columns,
		Rows:    make([]SnapshotRow, len(table.Rows)),
	}
	for i, r := range table.Rows {
		snap.Rows[i] = SnapshotRow{Name: r.Name, Annotation: r.Annotation, Attributes: r.Attributes}
	}
	return snap, nil
}

// Export returns the snapshot wrapped with a timestamp and ExportVersion.
func (s *Service) Export(ctx context.Context) (ExportDocument, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return ExportDocument{}, err
	}
	return ExportDocument{
		Data:      snap,
		Timestamp: s.now().UTC().Format(timestampLayout),
		Version:   ExportVersion,
	}, nil
}

// Validate checks the structure of a snapshot before anything is written.
func (snap Snapshot) Validate() error {
	const op = "import"
	if snap.Columns == nil || snap.Rows == nil {
		return invalid(op, CodeInvalidFormat, "Invalid data format")
	}
	for _, c := range snap.Columns {
		if strings.TrimSpace(c) == "" {
			return invalid(op, CodeInvalidFormat, "Invalid data format: empty column name")
		}
	}
	for _, r := range snap.Rows {
		if strings.TrimSpace(r.Name) == "" {
			return invalid(op, CodeInvalidFormat, "Invalid data format: empty row name")
		}
		// Cells are 32-bit, as for SetCell.
		for col, v := range r.Attributes {
			if v > math.MaxInt32 || v < math.MinInt32 {
				return invalid(op, CodeInvalidNumber,
					fmt.Sprintf("Invalid number: %d (row %q, column %q)", v, r.Name, col))
			}
		}
	}
	return nil
}

// Import merges snap into the matrix in a single transaction:
//
//  1. columns missing from the matrix are created (with their zero cells),
//  2. rows are created, or have their annotation replaced when snap carries
//     a non-empty one,
//  3. every (column, value) pair of a row is written, skipping columns that
//     do not exist.
//
// Any failure rolls the whole import back.
func (s *Service) Import(ctx context.Context, snap Snapshot) (ImportResult, error) {
	const op = "import"
	if err := snap.Validate(); err != nil {
		s.recorder.ObserveOperation(op, err)
		return ImportResult{}, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		err = internal(op, err)
		s.recorder.ObserveOperation(op, err)
		return ImportResult{}, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.importTimeout)
	defer cancel()

	// Spells are pure, so derive them before the transaction opens.
	spells := make(map[string]string, len(snap.Rows))
	for _, r := range snap.Rows {
		name := strings.TrimSpace(r.Name)
		if _, ok := spells[name]; !ok {
			spells[name] = s.deriveSpell(ctx, name)
		}
	}

	result := ImportResult{BatchID: uuid.NewString()}
	log := logging.FromContext(ctx).With("batch_id", result.BatchID)
	log.Info("import started", "columns", len(snap.Columns), "rows", len(snap.Rows))

	err := s.run(ctx, op, func(tx store.Tx) error {
		result = ImportResult{BatchID: result.BatchID}
		return s.reconcile(ctx, tx, snap, spells, &result)
	})
	if err != nil {
		log.Warn("import rolled back", "error", err)
		return ImportResult{}, err
	}

	s.recorder.ObserveImportRows(len(snap.Rows))
	log.Info("import finished",
		"columns_created", result.ColumnsCreated,
		"rows_created", result.RowsCreated,
		"rows_updated", result.RowsUpdated,
		"cells_written", result.CellsWritten,
	)
	s.LogAudit(ctx, AuditLogParams{
		Action:       ActionImport,
		RowsAffected: int64(result.RowsCreated + result.RowsUpdated),
		BatchID:      result.BatchID,
	})
	return result, nil
}

func (s *Service) reconcile(ctx context.Context, tx store.Tx, snap Snapshot, spells map[string]string, result *ImportResult) error {
	const op = "import"

	cols, err := tx.ListCriteria(ctx)
	if err != nil {
		return err
	}
	index := columnIndex(cols)

	// Columns first, so that every row created below is filled for them too.
	for _, raw := range snap.Columns {
		name := strings.TrimSpace(raw)
		if _, ok := index[name]; ok {
			continue
		}
		c, err := tx.InsertCriterion(ctx, name)
		if err != nil {
			return err
		}
		if _, err := tx.FillCriterion(ctx, c.ID); err != nil {
			return err
		}
		index[name] = c.ID
		result.ColumnsCreated++
	}

	for _, r := range snap.Rows {
		name := strings.TrimSpace(r.Name)
		f, err := tx.FormulaByName(ctx, name)
		switch {
		case errors.Is(err, store.ErrNoRows):
			if f, _, err = s.createRow(ctx, tx, op, name, r.Annotation, spells[name]); err != nil {
				return err
			}
			result.RowsCreated++
		case err != nil:
			return err
		default:
			if r.Annotation != "" && r.Annotation != f.Annotation {
				f.Annotation = r.Annotation
				if err := tx.UpdateFormula(ctx, f); err != nil {
					return err
				}
			}
			result.RowsUpdated++
		}

		// Sorted for a deterministic write order. Keys are trimmed like the
		// column names above.
		names := make([]string, 0, len(r.Attributes))
		for col := range r.Attributes {
			names = append(names, col)
		}
		sort.Strings(names)
		for _, col := range names {
			cid, ok := index[strings.TrimSpace(col)]
			if !ok {
				continue
			}
			if _, err := tx.UpsertAttribute(ctx, f.ID, cid, r.Attributes[col]); err != nil {
				return err
			}
			result.CellsWritten++
		}
	}
	return nil
}
