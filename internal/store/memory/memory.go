// Package memory is an in-process store.Store.
//
// Transactions run serially against a private copy of the state which
// replaces the committed state only when the callback succeeds, so a failed
// transaction leaves nothing behind. It backs the tests and the "memory"
// database driver.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JonMunkholm/attrmatrix/internal/store"
)

var _ store.Store = (*Store)(nil)

type state struct {
	criteria   []store.Criterion
	formulas   []store.Formula
	attributes []store.Attribute
	axis       []store.AxisSetting

	nextCriterion int64
	nextFormula   int64
	nextAttribute int64
	nextAxis      int64
}

func (s *state) clone() *state {
	c := *s
	c.criteria = append([]store.Criterion(nil), s.criteria...)
	c.formulas = append([]store.Formula(nil), s.formulas...)
	c.attributes = append([]store.Attribute(nil), s.attributes...)
	c.axis = append([]store.AxisSetting(nil), s.axis...)
	return &c
}

// Store keeps the matrix in memory.
type Store struct {
	mu     sync.Mutex
	state  *state
	faults map[string]error
}

// New returns an empty store.
func New() *Store {
	return &Store{state: &state{}, faults: make(map[string]error)}
}

// InjectFault makes the named Tx method (e.g. "UpsertAttribute") fail with err
// until cleared with a nil err. Used to exercise rollback paths.
func (s *Store) InjectFault(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, method)
		return
	}
	s.faults[method] = err
}

// InTx runs fn against a copy of the state and commits it on success.
func (s *Store) InTx(ctx context.Context, fn func(store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(&tx{st: work, faults: s.faults}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = work
	return nil
}

// Migrate is a no-op; the in-memory layout is always current.
func (s *Store) Migrate(context.Context) error { return nil }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// CellCount returns the number of stored cells, for assertions in tests.
func (s *Store) CellCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.attributes)
}

type tx struct {
	st     *state
	faults map[string]error
}

func (t *tx) fault(method string) error {
	if err, ok := t.faults[method]; ok {
		return fmt.Errorf("memory %s: %w", method, err)
	}
	return nil
}

func (t *tx) ListCriteria(context.Context) ([]store.Criterion, error) {
	if err := t.fault("ListCriteria"); err != nil {
		return nil, err
	}
	return append([]store.Criterion(nil), t.st.criteria...), nil
}

func (t *tx) CriterionByName(_ context.Context, name string) (store.Criterion, error) {
	for _, c := range t.st.criteria {
		if c.Name == name {
			return c, nil
		}
	}
	return store.Criterion{}, store.ErrNoRows
}

func (t *tx) CriterionByID(_ context.Context, id int64) (store.Criterion, error) {
	for _, c := range t.st.criteria {
		if c.ID == id {
			return c, nil
		}
	}
	return store.Criterion{}, store.ErrNoRows
}

func (t *tx) InsertCriterion(ctx context.Context, name string) (store.Criterion, error) {
	if err := t.fault("InsertCriterion"); err != nil {
		return store.Criterion{}, err
	}
	if _, err := t.CriterionByName(ctx, name); err == nil {
		return store.Criterion{}, store.ErrUnique
	}
	t.st.nextCriterion++
	c := store.Criterion{ID: t.st.nextCriterion, Name: name}
	t.st.criteria = append(t.st.criteria, c)
	return c, nil
}

func (t *tx) DeleteCriterion(_ context.Context, id int64) error {
	if err := t.fault("DeleteCriterion"); err != nil {
		return err
	}
	for i, c := range t.st.criteria {
		if c.ID == id {
			t.st.criteria = append(t.st.criteria[:i:i], t.st.criteria[i+1:]...)
			return nil
		}
	}
	return store.ErrNoRows
}

func (t *tx) ListFormulas(context.Context) ([]store.Formula, error) {
	if err := t.fault("ListFormulas"); err != nil {
		return nil, err
	}
	return append([]store.Formula(nil), t.st.formulas...), nil
}

func (t *tx) FormulaByName(_ context.Context, name string) (store.Formula, error) {
	for _, f := range t.st.formulas {
		if f.Name == name {
			return f, nil
		}
	}
	return store.Formula{}, store.ErrNoRows
}

func (t *tx) FormulaByID(_ context.Context, id int64) (store.Formula, error) {
	for _, f := range t.st.formulas {
		if f.ID == id {
			return f, nil
		}
	}
	return store.Formula{}, store.ErrNoRows
}

func (t *tx) InsertFormula(ctx context.Context, f store.Formula) (store.Formula, error) {
	if err := t.fault("InsertFormula"); err != nil {
		return store.Formula{}, err
	}
	if _, err := t.FormulaByName(ctx, f.Name); err == nil {
		return store.Formula{}, store.ErrUnique
	}
	t.st.nextFormula++
	f.ID = t.st.nextFormula
	t.st.formulas = append(t.st.formulas, f)
	return f, nil
}

func (t *tx) UpdateFormula(_ context.Context, f store.Formula) error {
	if err := t.fault("UpdateFormula"); err != nil {
		return err
	}
	idx := -1
	for i, existing := range t.st.formulas {
		if existing.ID == f.ID {
			idx = i
		} else if existing.Name == f.Name {
			return store.ErrUnique
		}
	}
	if idx < 0 {
		return store.ErrNoRows
	}
	t.st.formulas[idx] = f
	return nil
}

func (t *tx) DeleteFormula(_ context.Context, id int64) error {
	if err := t.fault("DeleteFormula"); err != nil {
		return err
	}
	for i, f := range t.st.formulas {
		if f.ID == id {
			t.st.formulas = append(t.st.formulas[:i:i], t.st.formulas[i+1:]...)
			return nil
		}
	}
	return store.ErrNoRows
}

func (t *tx) ListAttributes(context.Context) ([]store.Attribute, error) {
	if err := t.fault("ListAttributes"); err != nil {
		return nil, err
	}
	return append([]store.Attribute(nil), t.st.attributes...), nil
}

func (t *tx) GetAttribute(_ context.Context, formulaID, criteriaID int64) (store.Attribute, error) {
	for _, a := range t.st.attributes {
		if a.FormulaID == formulaID && a.CriteriaID == criteriaID {
			return a, nil
		}
	}
	return store.Attribute{}, store.ErrNoRows
}

func (t *tx) UpsertAttribute(_ context.Context, formulaID, criteriaID int64, value int) (bool, error) {
	if err := t.fault("UpsertAttribute"); err != nil {
		return false, err
	}
	for i, a := range t.st.attributes {
		if a.FormulaID == formulaID && a.CriteriaID == criteriaID {
			t.st.attributes[i].Value = value
			return false, nil
		}
	}
	t.insertAttribute(formulaID, criteriaID, value)
	return true, nil
}

func (t *tx) insertAttribute(formulaID, criteriaID int64, value int) {
	t.st.nextAttribute++
	t.st.attributes = append(t.st.attributes, store.Attribute{
		ID:         t.st.nextAttribute,
		FormulaID:  formulaID,
		CriteriaID: criteriaID,
		Value:      value,
	})
}

func (t *tx) hasAttribute(formulaID, criteriaID int64) bool {
	for _, a := range t.st.attributes {
		if a.FormulaID == formulaID && a.CriteriaID == criteriaID {
			return true
		}
	}
	return false
}

func (t *tx) FillCriterion(_ context.Context, criteriaID int64) (int64, error) {
	if err := t.fault("FillCriterion"); err != nil {
		return 0, err
	}
	var n int64
	for _, f := range t.st.formulas {
		if !t.hasAttribute(f.ID, criteriaID) {
			t.insertAttribute(f.ID, criteriaID, 0)
			n++
		}
	}
	return n, nil
}

func (t *tx) FillFormula(_ context.Context, formulaID int64) (int64, error) {
	if err := t.fault("FillFormula"); err != nil {
		return 0, err
	}
	var n int64
	for _, c := range t.st.criteria {
		if !t.hasAttribute(formulaID, c.ID) {
			t.insertAttribute(formulaID, c.ID, 0)
			n++
		}
	}
	return n, nil
}

func (t *tx) deleteAttributesWhere(keep func(store.Attribute) bool) int64 {
	kept := t.st.attributes[:0:0]
	var removed int64
	for _, a := range t.st.attributes {
		if keep(a) {
			kept = append(kept, a)
		} else {
			removed++
		}
	}
	t.st.attributes = kept
	return removed
}

func (t *tx) DeleteAttributesByFormula(_ context.Context, formulaID int64) (int64, error) {
	if err := t.fault("DeleteAttributesByFormula"); err != nil {
		return 0, err
	}
	return t.deleteAttributesWhere(func(a store.Attribute) bool { return a.FormulaID != formulaID }), nil
}

func (t *tx) DeleteAttributesByCriterion(_ context.Context, criteriaID int64) (int64, error) {
	if err := t.fault("DeleteAttributesByCriterion"); err != nil {
		return 0, err
	}
	return t.deleteAttributesWhere(func(a store.Attribute) bool { return a.CriteriaID != criteriaID }), nil
}

func (t *tx) ListAxisSettings(context.Context) ([]store.AxisSetting, error) {
	if err := t.fault("ListAxisSettings"); err != nil {
		return nil, err
	}
	return append([]store.AxisSetting(nil), t.st.axis...), nil
}

func (t *tx) AxisSettingByID(_ context.Context, id int64) (store.AxisSetting, error) {
	for _, a := range t.st.axis {
		if a.ID == id {
			return a, nil
		}
	}
	return store.AxisSetting{}, store.ErrNoRows
}

func (t *tx) AxisSettingByName(_ context.Context, name string) (store.AxisSetting, error) {
	for _, a := range t.st.axis {
		if a.Name == name {
			return a, nil
		}
	}
	return store.AxisSetting{}, store.ErrNoRows
}

func (t *tx) InsertAxisSetting(ctx context.Context, a store.AxisSetting) (store.AxisSetting, error) {
	if err := t.fault("InsertAxisSetting"); err != nil {
		return store.AxisSetting{}, err
	}
	if _, err := t.AxisSettingByName(ctx, a.Name); err == nil {
		return store.AxisSetting{}, store.ErrUnique
	}
	t.st.nextAxis++
	a.ID = t.st.nextAxis
	t.st.axis = append(t.st.axis, a)
	return a, nil
}

func (t *tx) UpdateAxisSetting(_ context.Context, a store.AxisSetting) error {
	if err := t.fault("UpdateAxisSetting"); err != nil {
		return err
	}
	idx := -1
	for i, existing := range t.st.axis {
		if existing.ID == a.ID {
			idx = i
		} else if existing.Name == a.Name {
			return store.ErrUnique
		}
	}
	if idx < 0 {
		return store.ErrNoRows
	}
	t.st.axis[idx] = a
	return nil
}

func (t *tx) DeleteAxisSetting(_ context.Context, id int64) error {
	if err := t.fault("DeleteAxisSetting"); err != nil {
		return err
	}
	for i, a := range t.st.axis {
		if a.ID == id {
			t.st.axis = append(t.st.axis[:i:i], t.st.axis[i+1:]...)
			return nil
		}
	}
	return store.ErrNoRows
}
