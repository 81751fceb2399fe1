package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"hydrocore/internal/infra/persistence/memory"
	"hydrocore/internal/network"
	"hydrocore/pkg/domain"
)

// ChangeListener receives the changes of every committed transaction.
type ChangeListener func(ctx context.Context, events []domain.ChangeEvent)

// Service exposes transactional network editing over a persistent store.
type Service struct {
	store     PersistentStore
	engine    *RulesEngine
	assembler *network.Assembler

	clock   Clock
	logger  Logger
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer

	mu        sync.RWMutex
	plugins   map[string]PluginMetadata
	listeners map[int]ChangeListener
	nextID    int
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...ServiceOption) *Service {
	o := defaultServiceOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	selectNowFunc(store, o.clock)
	return &Service{
		store:     store,
		engine:    extractRulesEngine(store),
		assembler: network.NewAssembler(),
		clock:     o.clock,
		logger:    o.logger,
		audit:     o.audit,
		metrics:   o.metrics,
		tracer:    o.tracer,
		plugins:   make(map[string]PluginMetadata),
		listeners: make(map[int]ChangeListener),
	}
}

// NewInMemoryService creates a service over an in-memory store. A nil engine
// selects the built-in rule set.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(memory.NewStore(engine), opts...)
}

func extractRulesEngine(store PersistentStore) *RulesEngine {
	if store == nil {
		return nil
	}
	return store.RulesEngine()
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// Subscribe registers a listener for committed changes. The returned
// function removes it.
func (s *Service) Subscribe(listener ChangeListener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// run executes fn in a store transaction wrapped in tracing, metrics, audit
// and logging. fn returns the ID of the primary entity it touched.
func (s *Service) run(ctx context.Context, op string, fn func(tx Transaction) (string, error)) (Result, error) {
	ctx, span := s.tracer.Start(ctx, op)
	start := s.clock.Now()
	var (
		entityID string
		changes  []Change
	)
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		id, err := fn(tx)
		if err != nil {
			return err
		}
		entityID = id
		changes = tx.Changes()
		return nil
	})
	duration := s.clock.Now().Sub(start)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)
	if err != nil {
		s.recordAuditError(ctx, op, entityID, err, duration)
		var violation domain.RuleViolationError
		if errors.As(err, &violation) {
			s.logger.Warn("operation blocked by rules", "operation", op, "errors", violation.Result.Count(domain.SeverityError))
		} else {
			s.logger.Error("operation failed", "operation", op, "error", err)
		}
		if errors.Is(err, domain.ErrNotPersisted) {
			// the in-memory model moved on; subscribers must follow it
			s.notify(ctx, changes)
		}
		return res, err
	}
	s.recordAuditSuccess(ctx, op, entityID, duration)
	s.logger.Debug("operation committed", "operation", op, "entity_id", entityID, "changes", len(changes), "warnings", res.Count(domain.SeverityWarning))
	s.notify(ctx, changes)
	return res, nil
}

func (s *Service) notify(ctx context.Context, changes []Change) {
	if len(changes) == 0 {
		return
	}
	s.mu.RLock()
	listeners := make([]ChangeListener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.RUnlock()
	if len(listeners) == 0 {
		return
	}
	at := s.clock.Now()
	events := make([]domain.ChangeEvent, 0, len(changes))
	for _, change := range changes {
		event, err := domain.NewChangeEvent(change, at)
		if err != nil {
			s.logger.Warn("skip change event", "entity", change.Entity, "error", err)
			continue
		}
		events = append(events, event)
	}
	for _, l := range listeners {
		l(ctx, events)
	}
}

func mutate[T any](s *Service, ctx context.Context, op string, fn func(Transaction) (T, error), id func(T) string) (T, Result, error) {
	var out T
	res, err := s.run(ctx, op, func(tx Transaction) (string, error) {
		v, err := fn(tx)
		if err != nil {
			return "", err
		}
		out = v
		return id(v), nil
	})
	if err != nil && !errors.Is(err, domain.ErrNotPersisted) {
		var zero T
		return zero, res, err
	}
	return out, res, err
}

func remove(s *Service, ctx context.Context, op, id string, fn func(Transaction, string) error) (Result, error) {
	return s.run(ctx, op, func(tx Transaction) (string, error) {
		return id, fn(tx, id)
	})
}

// Transact runs a multi-step edit as one audited operation. Importers use it
// to load a complete model atomically.
func (s *Service) Transact(ctx context.Context, op string, fn func(tx Transaction) error) (Result, error) {
	if op == "" {
		return Result{}, fmt.Errorf("operation name required")
	}
	return s.run(ctx, op, func(tx Transaction) (string, error) {
		return "", fn(tx)
	})
}

// View runs fn against a read-only snapshot of the committed model.
func (s *Service) View(ctx context.Context, fn func(TransactionView) error) error {
	return s.store.View(ctx, fn)
}

// Settings returns the committed simulation settings.
func (s *Service) Settings() domain.Settings {
	return s.store.Settings()
}

// StructureFields returns the read-only parameter names of a structure.
func (s *Service) StructureFields(id string) ([]string, error) {
	st, ok := s.store.GetStructure(id)
	if !ok {
		return nil, fmt.Errorf("structure %q: %w", id, domain.ErrNotFound)
	}
	return domain.ReadOnlyFields(st), nil
}
