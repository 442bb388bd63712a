// Package sqlite implements store.Store on an embedded SQLite database using
// the pure Go modernc driver. It serves single-node deployments and tests
// that want real SQL without a server.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JonMunkholm/attrmatrix/internal/schema"
	"github.com/JonMunkholm/attrmatrix/internal/store"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var _ store.Store = (*Store)(nil)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Store is a database/sql handle on one SQLite file.
type Store struct {
	db               *sql.DB
	statementTimeout time.Duration
}

// Open opens (creating if needed) the database at path. statementTimeout
// bounds every statement; zero disables the bound.
func Open(ctx context.Context, path string, statementTimeout time.Duration) (*Store, error) {
	if path == "" {
		path = "attrmatrix.db"
	}
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: SQLite serialises writers anyway, and an in-memory
	// database exists only on the connection that created it.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	return &Store{db: db, statementTimeout: statementTimeout}, nil
}

// InTx runs fn in a database/sql transaction.
func (s *Store) InTx(ctx context.Context, fn func(store.Tx) error) error {
	return s.inTx(ctx, func(t *tx) error { return fn(t) })
}

func (s *Store) inTx(ctx context.Context, fn func(*tx) error) (retErr error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = sqlTx.Rollback()
		}
	}()

	if err := fn(&tx{tx: sqlTx, timeout: s.statementTimeout}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Migrate applies the schema DDL in one transaction.
func (s *Store) Migrate(ctx context.Context) error {
	return s.inTx(ctx, func(t *tx) error {
		for _, stmt := range schema.Statements(schema.SQLite) {
			if _, err := t.exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
		}
		return nil
	})
}

// Ping checks the database handle.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func isUnique(err error) bool {
	var se *msqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

type tx struct {
	tx      *sql.Tx
	timeout time.Duration
}

// bound derives the per-statement context.
func (t *tx) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, t.timeout)
}

// translate maps driver errors onto the store's error set. A statement whose
// own bound expired, while the caller's context is still live, is a timeout.
func translate(ctx, stmtCtx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNoRows
	}
	if ctx.Err() == nil && errors.Is(stmtCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", store.ErrTimeout, err)
	}
	if isUnique(err) {
		return fmt.Errorf("%w: %v", store.ErrUnique, err)
	}
	return err
}

func (t *tx) exec(ctx context.Context, query string, args ...any) (int64, error) {
	sctx, cancel := t.bound(ctx)
	defer cancel()
	res, err := t.tx.ExecContext(sctx, query, args...)
	if err != nil {
		return 0, translate(ctx, sctx, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (t *tx) execOne(ctx context.Context, query string, args ...any) error {
	n, err := t.exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNoRows
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func list[T any](ctx context.Context, t *tx, scan func(scanner) (T, error), query string, args ...any) ([]T, error) {
	sctx, cancel := t.bound(ctx)
	defer cancel()
	rows, err := t.tx.QueryContext(sctx, query, args...)
	if err != nil {
		return nil, translate(ctx, sctx, err)
	}
	defer func() { _ = rows.Close() }()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, translate(ctx, sctx, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(ctx, sctx, err)
	}
	return out, nil
}

func one[T any](ctx context.Context, t *tx, scan func(scanner) (T, error), query string, args ...any) (T, error) {
	sctx, cancel := t.bound(ctx)
	defer cancel()
	v, err := scan(t.tx.QueryRowContext(sctx, query, args...))
	if err != nil {
		var zero T
		return zero, translate(ctx, sctx, err)
	}
	return v, nil
}

func scanCriterion(s scanner) (store.Criterion, error) {
	var c store.Criterion
	err := s.Scan(&c.ID, &c.Name)
	return c, err
}

func scanFormula(s scanner) (store.Formula, error) {
	var f store.Formula
	err := s.Scan(&f.ID, &f.Name, &f.Annotation, &f.Spell)
	return f, err
}

func scanAttribute(s scanner) (store.Attribute, error) {
	var a store.Attribute
	err := s.Scan(&a.ID, &a.FormulaID, &a.CriteriaID, &a.Value)
	return a, err
}

func scanAxis(s scanner) (store.AxisSetting, error) {
	var a store.AxisSetting
	err := s.Scan(&a.ID, &a.Name, &a.XNegativeID, &a.XPositiveID, &a.YNegativeID, &a.YPositiveID)
	return a, err
}

const (
	qCriteria  = `SELECT "id", "name" FROM "criteria"`
	qFormula   = `SELECT "id", "name", COALESCE("annotation", ''), "spell" FROM "formula"`
	qAttribute = `SELECT "id", "formula_id", "criteria_id", "value" FROM "attribute"`
	qAxis      = `SELECT "id", "name", "xNegative_criteria_id", "xPositive_criteria_id", "yNegative_criteria_id", "yPositive_criteria_id" FROM "axis_setting"`
)

func (t *tx) ListCriteria(ctx context.Context) ([]store.Criterion, error) {
	return list(ctx, t, scanCriterion, qCriteria+` ORDER BY "id"`)
}

func (t *tx) CriterionByName(ctx context.Context, name string) (store.Criterion, error) {
	return one(ctx, t, scanCriterion, qCriteria+` WHERE "name" = ?`, name)
}

func (t *tx) CriterionByID(ctx context.Context, id int64) (store.Criterion, error) {
	return one(ctx, t, scanCriterion, qCriteria+` WHERE "id" = ?`, id)
}

func (t *tx) InsertCriterion(ctx context.Context, name string) (store.Criterion, error) {
	return one(ctx, t, scanCriterion, `INSERT INTO "criteria" ("name") VALUES (?) RETURNING "id", "name"`, name)
}

func (t *tx) DeleteCriterion(ctx context.Context, id int64) error {
	return t.execOne(ctx, `DELETE FROM "criteria" WHERE "id" = ?`, id)
}

func (t *tx) ListFormulas(ctx context.Context) ([]store.Formula, error) {
	return list(ctx, t, scanFormula, qFormula+` ORDER BY "id"`)
}

func (t *tx) FormulaByName(ctx context.Context, name string) (store.Formula, error) {
	return one(ctx, t, scanFormula, qFormula+` WHERE "name" = ?`, name)
}

func (t *tx) FormulaByID(ctx context.Context, id int64) (store.Formula, error) {
	return one(ctx, t, scanFormula, qFormula+` WHERE "id" = ?`, id)
}

func (t *tx) InsertFormula(ctx context.Context, f store.Formula) (store.Formula, error) {
	return one(ctx, t, scanFormula,
		`INSERT INTO "formula" ("name", "annotation", "spell") VALUES (?, ?, ?)
		 RETURNING "id", "name", COALESCE("annotation", ''), "spell"`,
		f.Name, f.Annotation, f.Spell)
}

func (t *tx) UpdateFormula(ctx context.Context, f store.Formula) error {
	return t.execOne(ctx,
		`UPDATE "formula" SET "name" = ?, "annotation" = ?, "spell" = ? WHERE "id" = ?`,
		f.Name, f.Annotation, f.Spell, f.ID)
}

func (t *tx) DeleteFormula(ctx context.Context, id int64) error {
	return t.execOne(ctx, `DELETE FROM "formula" WHERE "id" = ?`, id)
}

func (t *tx) ListAttributes(ctx context.Context) ([]store.Attribute, error) {
	return list(ctx, t, scanAttribute, qAttribute+` ORDER BY "id"`)
}

func (t *tx) GetAttribute(ctx context.Context, formulaID, criteriaID int64) (store.Attribute, error) {
	return one(ctx, t, scanAttribute, qAttribute+` WHERE "formula_id" = ? AND "criteria_id" = ?`, formulaID, criteriaID)
}

func (t *tx) UpsertAttribute(ctx context.Context, formulaID, criteriaID int64, value int) (bool, error) {
	n, err := t.exec(ctx,
		`UPDATE "attribute" SET "value" = ? WHERE "formula_id" = ? AND "criteria_id" = ?`,
		value, formulaID, criteriaID)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if _, err := t.exec(ctx,
		`INSERT INTO "attribute" ("formula_id", "criteria_id", "value") VALUES (?, ?, ?)`,
		formulaID, criteriaID, value); err != nil {
		return false, err
	}
	return true, nil
}

func (t *tx) FillCriterion(ctx context.Context, criteriaID int64) (int64, error) {
	return t.exec(ctx,
		`INSERT OR IGNORE INTO "attribute" ("formula_id", "criteria_id", "value")
		 SELECT f."id", ?, 0 FROM "formula" f ORDER BY f."id"`,
		criteriaID)
}

func (t *tx) FillFormula(ctx context.Context, formulaID int64) (int64, error) {
	return t.exec(ctx,
		`INSERT OR IGNORE INTO "attribute" ("formula_id", "criteria_id", "value")
		 SELECT ?, c."id", 0 FROM "criteria" c ORDER BY c."id"`,
		formulaID)
}

func (t *tx) DeleteAttributesByFormula(ctx context.Context, formulaID int64) (int64, error) {
	return t.exec(ctx, `DELETE FROM "attribute" WHERE "formula_id" = ?`, formulaID)
}

func (t *tx) DeleteAttributesByCriterion(ctx context.Context, criteriaID int64) (int64, error) {
	return t.exec(ctx, `DELETE FROM "attribute" WHERE "criteria_id" = ?`, criteriaID)
}

func (t *tx) ListAxisSettings(ctx context.Context) ([]store.AxisSetting, error) {
	return list(ctx, t, scanAxis, qAxis+` ORDER BY "id"`)
}

func (t *tx) AxisSettingByID(ctx context.Context, id int64) (store.AxisSetting, error) {
	return one(ctx, t, scanAxis, qAxis+` WHERE "id" = ?`, id)
}

func (t *tx) AxisSettingByName(ctx context.Context, name string) (store.AxisSetting, error) {
	return one(ctx, t, scanAxis, qAxis+` WHERE "name" = ?`, name)
}

func (t *tx) InsertAxisSetting(ctx context.Context, a store.AxisSetting) (store.AxisSetting, error) {
	return one(ctx, t, scanAxis,
		`INSERT INTO "axis_setting" ("name", "xNegative_criteria_id", "xPositive_criteria_id", "yNegative_criteria_id", "yPositive_criteria_id")
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING "id", "name", "xNegative_criteria_id", "xPositive_criteria_id", "yNegative_criteria_id", "yPositive_criteria_id"`,
		a.Name, a.XNegativeID, a.XPositiveID, a.YNegativeID, a.YPositiveID)
}

func (t *tx) UpdateAxisSetting(ctx context.Context, a store.AxisSetting) error {
	return t.execOne(ctx,
		`UPDATE "axis_setting" SET "name" = ?, "xNegative_criteria_id" = ?, "xPositive_criteria_id" = ?,
		 "yNegative_criteria_id" = ?, "yPositive_criteria_id" = ? WHERE "id" = ?`,
		a.Name, a.XNegativeID, a.XPositiveID, a.YNegativeID, a.YPositiveID, a.ID)
}

func (t *tx) DeleteAxisSetting(ctx context.Context, id int64) error {
	return t.execOne(ctx, `DELETE FROM "axis_setting" WHERE "id" = ?`, id)
}
