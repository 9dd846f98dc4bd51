package core

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"uksledger/internal/blob"
	"uksledger/internal/permit"
	"uksledger/pkg/domain"
)

// Clock supplies the current time. Tests inject a fixed clock.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// Service exposes the ledger operations over one AggregateStore.
type Service struct {
	store      *AggregateStore
	engine     *domain.RulesEngine
	policy     StockPolicy
	log        zerolog.Logger
	metrics    MetricsRecorder
	clock      Clock
	ids        domain.IDGenerator
	blobs      blob.Store
	letterhead permit.Letterhead
	validate   *validator.Validate

	previewMu sync.Mutex
	previews  map[domain.ID]pendingPreview
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithMetricsRecorder installs a recorder for operation outcomes.
func WithMetricsRecorder(rec MetricsRecorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithIDGenerator overrides record id assignment.
func WithIDGenerator(g domain.IDGenerator) Option {
	return func(s *Service) {
		if g != nil {
			s.ids = g
		}
	}
}

// WithStockPolicy selects the built-in rules for the given policy.
// It is ignored when WithRulesEngine is also supplied.
func WithStockPolicy(p StockPolicy) Option {
	return func(s *Service) { s.policy = p }
}

// WithRulesEngine replaces the built-in rules engine.
func WithRulesEngine(engine *domain.RulesEngine) Option {
	return func(s *Service) { s.engine = engine }
}

// WithBlobStore enables backup archiving and export publishing.
func WithBlobStore(store blob.Store) Option {
	return func(s *Service) { s.blobs = store }
}

// WithLetterhead sets the school and unit printed on permits.
func WithLetterhead(lh permit.Letterhead) Option {
	return func(s *Service) { s.letterhead = lh }
}

// NewService builds a service over backend and loads the persisted aggregate.
// It fails when the backend cannot be read; a missing or corrupt document is
// replaced by the default aggregate instead.
func NewService(ctx context.Context, backend domain.DocumentStore, opts ...Option) (*Service, error) {
	svc := &Service{
		policy:     StockReject,
		log:        zerolog.Nop(),
		metrics:    noopMetrics{},
		clock:      ClockFunc(time.Now),
		ids:        domain.UUIDGenerator{},
		letterhead: permit.DefaultLetterhead,
		validate:   newValidator(),
		previews:   make(map[domain.ID]pendingPreview),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.engine == nil {
		svc.engine = NewDefaultRulesEngine(svc.policy)
	}
	svc.store = NewAggregateStore(backend, svc.engine, svc.log)
	agg, err := svc.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	svc.observeStock(agg)
	svc.log.Info().
		Str("driver", string(backend.Driver())).
		Strs("rules", svc.engine.Rules()).
		Int("students", len(agg.Students)).
		Int("medicines", len(agg.Medicines)).
		Int("visits", len(agg.Visits)).
		Msg("ledger loaded")
	return svc, nil
}

// Store returns the underlying aggregate store.
func (s *Service) Store() *AggregateStore {
	return s.store
}

// Snapshot returns a copy of the committed aggregate.
func (s *Service) Snapshot() domain.Aggregate {
	return s.store.Snapshot()
}

// Now returns the service clock time.
func (s *Service) Now() time.Time {
	return s.clock.Now()
}

// run times fn and reports the outcome to the metrics recorder.
func (s *Service) run(ctx context.Context, op string, fn func() error) error {
	start := time.Now()
	err := fn()
	s.metrics.Observe(ctx, op, err == nil, time.Since(start))
	if err != nil {
		s.log.Debug().Str("op", op).Err(err).Msg("operation failed")
	}
	return err
}

// apply commits reducer through the store and refreshes stock gauges.
func (s *Service) apply(ctx context.Context, op string, reducer Reducer) (domain.Aggregate, error) {
	agg, _, err := s.store.Apply(ctx, op, reducer)
	if err != nil {
		return domain.Aggregate{}, err
	}
	s.observeStock(agg)
	return agg, nil
}

func (s *Service) observeStock(agg domain.Aggregate) {
	if obs, ok := s.metrics.(StockObserver); ok {
		obs.ObserveStock(agg.ListMedicines())
	}
}
