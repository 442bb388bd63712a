// Package store defines the persistence contract of the attribute matrix.
//
// A Store hands out transactions; every core operation runs inside exactly
// one [Store.InTx] call, so cascades (a row or column together with its
// cells) and the import reconciliation pass commit or roll back as a unit.
// Backends live in subpackages: postgres (pgx), sqlite (modernc) and memory.
package store

import (
	"context"
	"errors"
)

// Backend-neutral failures. Implementations translate driver errors into these
// so the core can classify them without importing any driver.
var (
	// ErrNoRows is returned when a lookup matches nothing.
	ErrNoRows = errors.New("store: no rows")

	// ErrUnique is returned when a write violates a uniqueness constraint.
	ErrUnique = errors.New("store: unique constraint violated")

	// ErrTimeout is returned when a statement exceeds its execution ceiling.
	ErrTimeout = errors.New("store: statement timeout")
)

// Criterion is a persisted column definition.
type Criterion struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Formula is a persisted row definition.
type Formula struct {
	ID         int64
	Name       string
	Annotation string
	Spell      string
}

// Attribute is a persisted cell.
type Attribute struct {
	ID         int64
	FormulaID  int64
	CriteriaID int64
	Value      int
}

// AxisSetting is a persisted binding of four criteria ids to the axis ends.
type AxisSetting struct {
	ID          int64
	Name        string
	XNegativeID int64
	XPositiveID int64
	YNegativeID int64
	YPositiveID int64
}

// Store is a transactional handle on the matrix tables.
type Store interface {
	// InTx runs fn inside one transaction. The transaction commits when fn
	// returns nil and rolls back otherwise; fn's error is returned unchanged.
	InTx(ctx context.Context, fn func(Tx) error) error

	// Migrate applies the schema. It is safe to call on an up-to-date database.
	Migrate(ctx context.Context) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// Tx exposes typed per-table primitives. List methods return rows in
// ascending id order, which is creation order.
type Tx interface {
	ListCriteria(ctx context.Context) ([]Criterion, error)
	CriterionByName(ctx context.Context, name string) (Criterion, error)
	CriterionByID(ctx context.Context, id int64) (Criterion, error)
	InsertCriterion(ctx context.Context, name string) (Criterion, error)
	DeleteCriterion(ctx context.Context, id int64) error

	ListFormulas(ctx context.Context) ([]Formula, error)
	FormulaByName(ctx context.Context, name string) (Formula, error)
	FormulaByID(ctx context.Context, id int64) (Formula, error)
	InsertFormula(ctx context.Context, f Formula) (Formula, error)
	// UpdateFormula overwrites name, annotation and spell of the row with f.ID.
	UpdateFormula(ctx context.Context, f Formula) error
	DeleteFormula(ctx context.Context, id int64) error

	ListAttributes(ctx context.Context) ([]Attribute, error)
	GetAttribute(ctx context.Context, formulaID, criteriaID int64) (Attribute, error)
	// UpsertAttribute creates the cell or overwrites its value. It reports
	// whether a new cell was created.
	UpsertAttribute(ctx context.Context, formulaID, criteriaID int64, value int) (bool, error)
	// FillCriterion creates a zero cell for every formula lacking one for the
	// criterion and returns how many were created.
	FillCriterion(ctx context.Context, criteriaID int64) (int64, error)
	// FillFormula creates a zero cell for every criterion lacking one for the
	// formula and returns how many were created.
	FillFormula(ctx context.Context, formulaID int64) (int64, error)
	DeleteAttributesByFormula(ctx context.Context, formulaID int64) (int64, error)
	DeleteAttributesByCriterion(ctx context.Context, criteriaID int64) (int64, error)

	ListAxisSettings(ctx context.Context) ([]AxisSetting, error)
	AxisSettingByID(ctx context.Context, id int64) (AxisSetting, error)
	AxisSettingByName(ctx context.Context, name string) (AxisSetting, error)
	InsertAxisSetting(ctx context.Context, a AxisSetting) (AxisSetting, error)
	UpdateAxisSetting(ctx context.Context, a AxisSetting) error
	DeleteAxisSetting(ctx context.Context, id int64) error
}
