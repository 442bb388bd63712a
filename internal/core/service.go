package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/attrmatrix/internal/config"
	"github.com/JonMunkholm/attrmatrix/internal/logging"
	"github.com/JonMunkholm/attrmatrix/internal/spell"
	"github.com/JonMunkholm/attrmatrix/internal/store"
)

// DefaultImportTimeout bounds a single import when no timeout is configured.
const DefaultImportTimeout = 2 * time.Minute

// Recorder receives operation outcomes. internal/metrics provides the
// Prometheus implementation.
type Recorder interface {
	// ObserveOperation counts one finished operation; err is nil on success.
	ObserveOperation(op string, err error)
	// ObserveImportRows records the number of rows in an imported snapshot.
	ObserveImportRows(n int)
	// SpellFailed counts one spell derivation that degraded to empty.
	SpellFailed()
}

type nopRecorder struct{}

func (nopRecorder) ObserveOperation(string, error) {}
func (nopRecorder) ObserveImportRows(int)          {}
func (nopRecorder) SpellFailed()                   {}

// Service provides the business logic of the attribute matrix. It holds no
// table state of its own; every call runs against the store it was built on,
// so independent instances can coexist (e.g. in parallel tests).
type Service struct {
	store         store.Store
	limiter       *ImportLimiter
	importTimeout time.Duration
	recorder      Recorder
	derive        func(string) (string, error)
	now           func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithSpell replaces the spell derivation function.
func WithSpell(derive func(string) (string, error)) Option {
	return func(s *Service) {
		if derive != nil {
			s.derive = derive
		}
	}
}

// WithClock replaces the clock used for export timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a Service on st.
func NewService(st store.Store, cfg config.ImportConfig, opts ...Option) *Service {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultImportTimeout
	}
	s := &Service{
		store:         st,
		limiter:       NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime),
		importTimeout: timeout,
		recorder:      nopRecorder{},
		derive:        spell.Derive,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping reports whether the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ImportStatus returns the import limiter state.
func (s *Service) ImportStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until running imports finish or ctx is done.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// run executes fn as the single transaction of operation op, classifies its
// error and records the outcome. Internal failures are logged here with their
// technical detail, which MapError later hides from clients.
func (s *Service) run(ctx context.Context, op string, fn func(store.Tx) error) error {
	err := classify(op, s.store.InTx(ctx, fn))
	s.recorder.ObserveOperation(op, err)
	if err != nil && errors.Is(err, ErrInternal) {
		logging.FromContext(ctx).Error("operation failed", "op", op, "error", err)
	}
	return err
}

// deriveSpell computes the spell of name. It never fails: errors and panics
// in the transliteration engine degrade to an empty spell.
func (s *Service) deriveSpell(ctx context.Context, name string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			s.spellFailed(ctx, name, fmt.Errorf("panic: %v", r))
			result = ""
		}
	}()

	v, err := s.derive(name)
	if err != nil {
		s.spellFailed(ctx, name, err)
		return ""
	}
	return v
}

func (s *Service) spellFailed(ctx context.Context, name string, err error) {
	s.recorder.SpellFailed()
	logging.FromContext(ctx).Warn("spell derivation failed", "name", name, "error", err)
}

// columnIndex maps column names to ids.
func columnIndex(cols []store.Criterion) map[string]int64 {
	idx := make(map[string]int64, len(cols))
	for _, c := range cols {
		idx[c.Name] = c.ID
	}
	return idx
}

// lookup converts store.ErrNoRows from a by-name lookup into a NotFound
// error carrying msg; other errors pass through for classify.
func lookup(op, msg string, err error) error {
	if errors.Is(err, store.ErrNoRows) {
		return notFound(op, msg)
	}
	return err
}
