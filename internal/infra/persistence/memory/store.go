// Package memory provides the in-memory transactional store that the durable
// stores build upon. It is also used directly for tests and one-shot CLI runs.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"hydrocore/pkg/domain"
)

var _ domain.PersistentStore = (*Store)(nil)

// Store provides an in-memory transactional store for the network model.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *domain.RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *domain.RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source used to stamp records.
func (s *Store) SetClock(now func() time.Time) {
	if now == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = now
}

func (s *Store) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

// RulesEngine exposes the configured engine so plugins can register rules.
func (s *Store) RulesEngine() *domain.RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []domain.Change
	now     time.Time
}

// RunInTransaction executes fn within a transactional copy of the store
// state. The copy is committed only when fn succeeds and no rule reports an
// error-severity violation.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{store: s, state: s.state.clone(), now: s.nowFn()}
	if err := fn(tx); err != nil {
		return domain.Result{}, err
	}

	var result domain.Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, newTransactionView(&tx.state), tx.changes)
		if err != nil {
			return domain.Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}
	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(domain.TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(newTransactionView(&snapshot))
}

func (s *Store) committed() domain.TransactionView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := s.state.clone()
	return newTransactionView(&snapshot)
}

// ListNodes returns all committed nodes.
func (s *Store) ListNodes() []domain.Node { return s.committed().ListNodes() }

// ListBranches returns all committed branches.
func (s *Store) ListBranches() []domain.Branch { return s.committed().ListBranches() }

// ListStructures returns all committed structures.
func (s *Store) ListStructures() []domain.Structure { return s.committed().ListStructures() }

// ListComposites returns all committed composite structures.
func (s *Store) ListComposites() []domain.CompositeStructure { return s.committed().ListComposites() }

// GetStructure retrieves a committed structure by ID.
func (s *Store) GetStructure(id string) (domain.Structure, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return find(&s.state, structureKind, id)
}

// GetBranch retrieves a committed branch by ID.
func (s *Store) GetBranch(id string) (domain.Branch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return find(&s.state, branchKind, id)
}

// Settings returns the committed model settings.
func (s *Store) Settings() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneSettings(s.state.settings)
}

func (tx *transaction) recordChange(change domain.Change) {
	tx.changes = append(tx.changes, change)
}

// Changes returns the change log recorded so far in this transaction.
func (tx *transaction) Changes() []domain.Change {
	return append([]domain.Change(nil), tx.changes...)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() domain.TransactionView {
	return newTransactionView(&tx.state)
}

func create[T any](tx *transaction, k kind[T], v T) (T, error) {
	var zero T
	b := k.base(&v)
	if b.ID == "" {
		b.ID = tx.store.newID()
	}
	items := k.items(&tx.state)
	if _, exists := items[b.ID]; exists {
		return zero, fmt.Errorf("%s %q already exists", k.label, b.ID)
	}
	b.CreatedAt = tx.now
	b.UpdatedAt = tx.now
	items[b.ID] = k.clone(v)
	tx.recordChange(domain.Change{Entity: k.entity, Action: domain.ActionCreate, After: k.clone(v)})
	return k.clone(v), nil
}

// update applies mutator to a copy of the record; check may normalise the
// result or reject it before it is stored.
func update[T any](tx *transaction, k kind[T], id string, mutator func(*T) error, check func(before T, current *T) error) (T, error) {
	var zero T
	stored, ok := k.items(&tx.state)[id]
	if !ok {
		return zero, fmt.Errorf("%s %q: %w", k.label, id, domain.ErrNotFound)
	}
	before := k.clone(stored)
	current := k.clone(stored)
	if err := mutator(&current); err != nil {
		return zero, err
	}
	b := k.base(&current)
	b.ID = id
	b.CreatedAt = k.base(&before).CreatedAt
	b.UpdatedAt = tx.now
	if check != nil {
		if err := check(before, &current); err != nil {
			return zero, err
		}
	}
	k.items(&tx.state)[id] = k.clone(current)
	tx.recordChange(domain.Change{Entity: k.entity, Action: domain.ActionUpdate, Before: before, After: k.clone(current)})
	return k.clone(current), nil
}

func remove[T any](tx *transaction, k kind[T], id string) (T, error) {
	var zero T
	items := k.items(&tx.state)
	current, ok := items[id]
	if !ok {
		return zero, fmt.Errorf("%s %q: %w", k.label, id, domain.ErrNotFound)
	}
	delete(items, id)
	tx.recordChange(domain.Change{Entity: k.entity, Action: domain.ActionDelete, Before: k.clone(current)})
	return current, nil
}

func (tx *transaction) requireNode(owner, id string) error {
	if _, ok := tx.state.nodes[id]; !ok {
		return fmt.Errorf("%s references node %q: %w", owner, id, domain.ErrNotFound)
	}
	return nil
}

func (tx *transaction) requireBranch(owner, id string) error {
	if _, ok := tx.state.branches[id]; !ok {
		return fmt.Errorf("%s references branch %q: %w", owner, id, domain.ErrNotFound)
	}
	return nil
}

func (tx *transaction) requireDefinition(owner string, id *string) error {
	if id == nil {
		return nil
	}
	if _, ok := tx.state.definitions[*id]; !ok {
		return fmt.Errorf("%s references cross-section definition %q: %w", owner, *id, domain.ErrNotFound)
	}
	return nil
}
