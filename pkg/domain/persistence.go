package domain

import (
	"context"
	"errors"
)

// ErrNotFound is wrapped by stores when a referenced record does not exist.
var ErrNotFound = errors.New("not found")

// ErrReferenced is wrapped by stores when a delete would orphan other records.
var ErrReferenced = errors.New("still referenced")

// ErrNotPersisted is wrapped by durable stores when a transaction committed
// in memory but its write to the backing database failed. The store retries
// the affected data on its next successful write.
var ErrNotPersisted = errors.New("committed but not persisted")

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	// Changes returns the mutations recorded so far, in order.
	Changes() []Change
	CreateNode(Node) (Node, error)
	UpdateNode(id string, mutator func(*Node) error) (Node, error)
	DeleteNode(id string) error
	CreateBranch(Branch) (Branch, error)
	UpdateBranch(id string, mutator func(*Branch) error) (Branch, error)
	DeleteBranch(id string) error
	CreateCrossSectionDefinition(CrossSectionDefinition) (CrossSectionDefinition, error)
	UpdateCrossSectionDefinition(id string, mutator func(*CrossSectionDefinition) error) (CrossSectionDefinition, error)
	DeleteCrossSectionDefinition(id string) error
	CreateCrossSection(CrossSection) (CrossSection, error)
	UpdateCrossSection(id string, mutator func(*CrossSection) error) (CrossSection, error)
	DeleteCrossSection(id string) error
	CreateComposite(CompositeStructure) (CompositeStructure, error)
	UpdateComposite(id string, mutator func(*CompositeStructure) error) (CompositeStructure, error)
	DeleteComposite(id string) error
	CreateStructure(Structure) (Structure, error)
	UpdateStructure(id string, mutator func(*Structure) error) (Structure, error)
	DeleteStructure(id string) error
	CreateManhole(Manhole) (Manhole, error)
	UpdateManhole(id string, mutator func(*Manhole) error) (Manhole, error)
	DeleteManhole(id string) error
	CreateBoundary(BoundaryCondition) (BoundaryCondition, error)
	UpdateBoundary(id string, mutator func(*BoundaryCondition) error) (BoundaryCondition, error)
	DeleteBoundary(id string) error
	CreateLateral(LateralSource) (LateralSource, error)
	UpdateLateral(id string, mutator func(*LateralSource) error) (LateralSource, error)
	DeleteLateral(id string) error
	CreateBreach(LeveeBreach) (LeveeBreach, error)
	UpdateBreach(id string, mutator func(*LeveeBreach) error) (LeveeBreach, error)
	DeleteBreach(id string) error
	UpdateSettings(mutator func(*Settings) error) (Settings, error)
}

// TransactionView provides read-only access to snapshot data for rules.
type TransactionView = RuleView

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	RulesEngine() *RulesEngine
	ListNodes() []Node
	ListBranches() []Branch
	ListStructures() []Structure
	ListComposites() []CompositeStructure
	GetStructure(id string) (Structure, bool)
	GetBranch(id string) (Branch, bool)
	Settings() Settings
}
