// Package postgres implements store.Store on PostgreSQL using pgxpool.
//
// Every InTx call is one pgx transaction at read committed isolation. The
// per-statement execution ceiling is applied as the session statement_timeout
// of every pooled connection, and a statement that exceeds it surfaces as
// store.ErrTimeout.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/JonMunkholm/attrmatrix/internal/config"
	"github.com/JonMunkholm/attrmatrix/internal/schema"
	"github.com/JonMunkholm/attrmatrix/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ store.Store = (*Store)(nil)

// PostgreSQL error codes translated into store errors.
const (
	codeUniqueViolation = "23505"
	codeQueryCanceled   = "57014"
)

// Store is a pgxpool-backed store.
type Store struct {
	pool *pgxpool.Pool
}

// Open parses the connection string, applies pool settings from cfg, connects
// and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	if cfg.StatementTimeout > 0 {
		poolConfig.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return New(pool), nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// InTx runs fn in a read committed transaction.
func (s *Store) InTx(ctx context.Context, fn func(store.Tx) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ptx pgx.Tx) error {
		return fn(&tx{tx: ptx})
	})
}

// Migrate applies the schema DDL in one transaction.
func (s *Store) Migrate(ctx context.Context) error {
	return pgx.BeginFunc(ctx, s.pool, func(ptx pgx.Tx) error {
		for _, stmt := range schema.Statements(schema.Postgres) {
			if _, err := ptx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply schema: %w", translate(err))
			}
		}
		slog.Debug("postgres schema applied", "statements", len(schema.Statements(schema.Postgres)))
		return nil
	})
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases all pooled connections.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// translate maps pgx errors onto the store's error set.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNoRows
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", store.ErrUnique, pgErr.ConstraintName)
		case codeQueryCanceled:
			return fmt.Errorf("%w: %s", store.ErrTimeout, pgErr.Message)
		}
	}
	return err
}

var (
	qCriteria  = `SELECT "id", "name" FROM "criteria"`
	qFormula   = `SELECT "id", "name", COALESCE("annotation", ''), "spell" FROM "formula"`
	qAttribute = `SELECT "id", "formula_id", "criteria_id", "value" FROM "attribute"`
	qAxis      = `SELECT "id", "name", "xNegative_criteria_id", "xPositive_criteria_id", "yNegative_criteria_id", "yPositive_criteria_id" FROM "axis_setting"`
)

type tx struct {
	tx pgx.Tx
}

func (t *tx) exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, translate(err)
	}
	return tag.RowsAffected(), nil
}

// execOne runs a statement that must touch exactly one row.
func (t *tx) execOne(ctx context.Context, sql string, args ...any) error {
	n, err := t.exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNoRows
	}
	return nil
}

func scanCriterion(row pgx.CollectableRow) (store.Criterion, error) {
	var c store.Criterion
	err := row.Scan(&c.ID, &c.Name)
	return c, err
}

func scanFormula(row pgx.CollectableRow) (store.Formula, error) {
	var f store.Formula
	err := row.Scan(&f.ID, &f.Name, &f.Annotation, &f.Spell)
	return f, err
}

func scanAttribute(row pgx.CollectableRow) (store.Attribute, error) {
	var a store.Attribute
	err := row.Scan(&a.ID, &a.FormulaID, &a.CriteriaID, &a.Value)
	return a, err
}

func scanAxis(row pgx.CollectableRow) (store.AxisSetting, error) {
	var a store.AxisSetting
	err := row.Scan(&a.ID, &a.Name, &a.XNegativeID, &a.XPositiveID, &a.YNegativeID, &a.YPositiveID)
	return a, err
}

func list[T any](ctx context.Context, t *tx, scan pgx.RowToFunc[T], sql string, args ...any) ([]T, error) {
	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, translate(err)
	}
	out, err := pgx.CollectRows(rows, scan)
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func one[T any](ctx context.Context, t *tx, scan pgx.RowToFunc[T], sql string, args ...any) (T, error) {
	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		var zero T
		return zero, translate(err)
	}
	v, err := pgx.CollectExactlyOneRow(rows, scan)
	return v, translate(err)
}

func (t *tx) ListCriteria(ctx context.Context) ([]store.Criterion, error) {
	return list(ctx, t, scanCriterion, qCriteria+` ORDER BY "id"`)
}

func (t *tx) CriterionByName(ctx context.Context, name string) (store.Criterion, error) {
	return one(ctx, t, scanCriterion, qCriteria+` WHERE "name" = $1`, name)
}

func (t *tx) CriterionByID(ctx context.Context, id int64) (store.Criterion, error) {
	return one(ctx, t, scanCriterion, qCriteria+` WHERE "id" = $1`, id)
}

func (t *tx) InsertCriterion(ctx context.Context, name string) (store.Criterion, error) {
	return one(ctx, t, scanCriterion, `INSERT INTO "criteria" ("name") VALUES ($1) RETURNING "id", "name"`, name)
}

func (t *tx) DeleteCriterion(ctx context.Context, id int64) error {
	return t.execOne(ctx, `DELETE FROM "criteria" WHERE "id" = $1`, id)
}

func (t *tx) ListFormulas(ctx context.Context) ([]store.Formula, error) {
	return list(ctx, t, scanFormula, qFormula+` ORDER BY "id"`)
}

func (t *tx) FormulaByName(ctx context.Context, name string) (store.Formula, error) {
	return one(ctx, t, scanFormula, qFormula+` WHERE "name" = $1`, name)
}

func (t *tx) FormulaByID(ctx context.Context, id int64) (store.Formula, error) {
	return one(ctx, t, scanFormula, qFormula+` WHERE "id" = $1`, id)
}

func (t *tx) InsertFormula(ctx context.Context, f store.Formula) (store.Formula, error) {
	return one(ctx, t, scanFormula,
		`INSERT INTO "formula" ("name", "annotation", "spell") VALUES ($1, $2, $3)
		 RETURNING "id", "name", COALESCE("annotation", ''), "spell"`,
		f.Name, f.Annotation, f.Spell)
}

func (t *tx) UpdateFormula(ctx context.Context, f store.Formula) error {
	return t.execOne(ctx,
		`UPDATE "formula" SET "name" = $2, "annotation" = $3, "spell" = $4 WHERE "id" = $1`,
		f.ID, f.Name, f.Annotation, f.Spell)
}

func (t *tx) DeleteFormula(ctx context.Context, id int64) error {
	return t.execOne(ctx, `DELETE FROM "formula" WHERE "id" = $1`, id)
}

func (t *tx) ListAttributes(ctx context.Context) ([]store.Attribute, error) {
	return list(ctx, t, scanAttribute, qAttribute+` ORDER BY "id"`)
}

func (t *tx) GetAttribute(ctx context.Context, formulaID, criteriaID int64) (store.Attribute, error) {
	return one(ctx, t, scanAttribute, qAttribute+` WHERE "formula_id" = $1 AND "criteria_id" = $2`, formulaID, criteriaID)
}

func (t *tx) UpsertAttribute(ctx context.Context, formulaID, criteriaID int64, value int) (bool, error) {
	// xmax = 0 only for freshly inserted tuples.
	var inserted bool
	err := t.tx.QueryRow(ctx,
		`INSERT INTO "attribute" ("formula_id", "criteria_id", "value") VALUES ($1, $2, $3)
		 ON CONFLICT ("formula_id", "criteria_id") DO UPDATE SET "value" = EXCLUDED."value"
		 RETURNING (xmax = 0)`,
		formulaID, criteriaID, value).Scan(&inserted)
	if err != nil {
		return false, translate(err)
	}
	return inserted, nil
}

func (t *tx) FillCriterion(ctx context.Context, criteriaID int64) (int64, error) {
	return t.exec(ctx,
		`INSERT INTO "attribute" ("formula_id", "criteria_id", "value")
		 SELECT f."id", $1, 0 FROM "formula" f ORDER BY f."id"
		 ON CONFLICT ("formula_id", "criteria_id") DO NOTHING`,
		criteriaID)
}

func (t *tx) FillFormula(ctx context.Context, formulaID int64) (int64, error) {
	return t.exec(ctx,
		`INSERT INTO "attribute" ("formula_id", "criteria_id", "value")
		 SELECT $1, c."id", 0 FROM "criteria" c ORDER BY c."id"
		 ON CONFLICT ("formula_id", "criteria_id") DO NOTHING`,
		formulaID)
}

func (t *tx) DeleteAttributesByFormula(ctx context.Context, formulaID int64) (int64, error) {
	return t.exec(ctx, `DELETE FROM "attribute" WHERE "formula_id" = $1`, formulaID)
}

func (t *tx) DeleteAttributesByCriterion(ctx context.Context, criteriaID int64) (int64, error) {
	return t.exec(ctx, `DELETE FROM "attribute" WHERE "criteria_id" = $1`, criteriaID)
}

func (t *tx) ListAxisSettings(ctx context.Context) ([]store.AxisSetting, error) {
	return list(ctx, t, scanAxis, qAxis+` ORDER BY "id"`)
}

func (t *tx) AxisSettingByID(ctx context.Context, id int64) (store.AxisSetting, error) {
	return one(ctx, t, scanAxis, qAxis+` WHERE "id" = $1`, id)
}

func (t *tx) AxisSettingByName(ctx context.Context, name string) (store.AxisSetting, error) {
	return one(ctx, t, scanAxis, qAxis+` WHERE "name" = $1`, name)
}

func (t *tx) InsertAxisSetting(ctx context.Context, a store.AxisSetting) (store.AxisSetting, error) {
	return one(ctx, t, scanAxis,
		`INSERT INTO "axis_setting" ("name", "xNegative_criteria_id", "xPositive_criteria_id", "yNegative_criteria_id", "yPositive_criteria_id")
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING "id", "name", "xNegative_criteria_id", "xPositive_criteria_id", "yNegative_criteria_id", "yPositive_criteria_id"`,
		a.Name, a.XNegativeID, a.XPositiveID, a.YNegativeID, a.YPositiveID)
}

func (t *tx) UpdateAxisSetting(ctx context.Context, a store.AxisSetting) error {
	return t.execOne(ctx,
		`UPDATE "axis_setting" SET "name" = $2, "xNegative_criteria_id" = $3, "xPositive_criteria_id" = $4,
		 "yNegative_criteria_id" = $5, "yPositive_criteria_id" = $6 WHERE "id" = $1`,
		a.ID, a.Name, a.XNegativeID, a.XPositiveID, a.YNegativeID, a.YPositiveID)
}

func (t *tx) DeleteAxisSetting(ctx context.Context, id int64) error {
	return t.execOne(ctx, `DELETE FROM "axis_setting" WHERE "id" = $1`, id)
}
