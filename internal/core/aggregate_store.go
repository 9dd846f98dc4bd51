package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"uksledger/pkg/domain"
)

// ErrNotLoaded is returned by Apply before a successful Load or Save.
var ErrNotLoaded = errors.New("aggregate not loaded")

// Reducer derives a candidate aggregate from the committed one.
type Reducer func(domain.Aggregate) (domain.Aggregate, error)

// AggregateStore holds the committed aggregate in memory and is the only path
// through which it reaches the backing DocumentStore.
type AggregateStore struct {
	mu      sync.RWMutex
	state   domain.Aggregate
	loaded  bool
	backend domain.DocumentStore
	engine  *domain.RulesEngine
	log     zerolog.Logger
}

// NewAggregateStore wraps backend. A nil engine disables rule evaluation.
func NewAggregateStore(backend domain.DocumentStore, engine *domain.RulesEngine, log zerolog.Logger) *AggregateStore {
	return &AggregateStore{
		state:   domain.DefaultAggregate(),
		backend: backend,
		engine:  engine,
		log:     log,
	}
}

// Driver reports the backend driver.
func (s *AggregateStore) Driver() domain.StorageDriver {
	return s.backend.Driver()
}

// Load reads the persisted document into memory. An absent or shape-invalid
// document falls back to the default aggregate. Any other backend failure is
// returned and leaves the in-memory aggregate as it was, so a transient outage
// never causes the default to be saved over the real document.
func (s *AggregateStore) Load(ctx context.Context) (domain.Aggregate, error) {
	agg, err := s.backend.Load(ctx)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNoDocument):
		s.log.Info().Str("driver", string(s.backend.Driver())).Msg("no document, using default aggregate")
		agg = domain.DefaultAggregate()
	case domain.IsFormat(err):
		s.log.Warn().Str("driver", string(s.backend.Driver())).Err(err).Msg("corrupt document, using default aggregate")
		agg = domain.DefaultAggregate()
	default:
		return domain.Aggregate{}, fmt.Errorf("load aggregate: %w", err)
	}
	s.mu.Lock()
	s.state = agg.Clone()
	s.loaded = true
	s.mu.Unlock()
	return agg.Clone(), nil
}

// Snapshot returns a deep copy of the committed aggregate.
func (s *AggregateStore) Snapshot() domain.Aggregate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Save persists agg wholesale without rule evaluation and makes it current.
func (s *AggregateStore) Save(ctx context.Context, agg domain.Aggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked(ctx, agg)
}

// Reset replaces the aggregate with the built-in default.
func (s *AggregateStore) Reset(ctx context.Context) error {
	return s.Save(ctx, domain.DefaultAggregate())
}

// Apply runs reducer against a copy of the committed aggregate, evaluates the
// rules over the candidate, persists it and swaps it in. Any failure leaves the
// committed and persisted aggregate untouched.
func (s *AggregateStore) Apply(ctx context.Context, op string, reducer Reducer) (domain.Aggregate, domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return domain.Aggregate{}, domain.Result{}, err
	}
	if !s.loaded {
		return domain.Aggregate{}, domain.Result{}, ErrNotLoaded
	}
	candidate, err := reducer(s.state.Clone())
	if err != nil {
		return domain.Aggregate{}, domain.Result{}, err
	}

	var result domain.Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, candidate, domain.Diff(s.state, candidate))
		if err != nil {
			return domain.Aggregate{}, domain.Result{}, fmt.Errorf("evaluate rules: %w", err)
		}
		result = res
		if res.HasBlocking() {
			verr := RuleViolationError{Result: res}
			s.log.Warn().Str("op", op).Msg(verr.Error())
			return domain.Aggregate{}, res, &domain.ValidationError{Message: verr.Error(), Err: verr}
		}
	}

	if err := s.commitLocked(ctx, candidate); err != nil {
		return domain.Aggregate{}, result, err
	}
	for _, w := range result.Warnings() {
		s.log.Warn().Str("op", op).Str("rule", w.Rule).Str("entity_id", w.EntityID.String()).Msg(w.Message)
	}
	return candidate.Clone(), result, nil
}

func (s *AggregateStore) commitLocked(ctx context.Context, agg domain.Aggregate) error {
	if err := s.backend.Save(ctx, agg); err != nil {
		return fmt.Errorf("save aggregate: %w", err)
	}
	s.state = agg.Clone()
	s.loaded = true
	return nil
}

// RuleViolationError is returned inside a ValidationError when a blocking rule fires.
type RuleViolationError = domain.RuleViolationError
