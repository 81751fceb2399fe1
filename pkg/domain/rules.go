package domain

import "context"

// RuleView provides read-only access to domain entities for rule evaluation.
type RuleView interface {
	ListNodes() []Node
	ListBranches() []Branch
	ListCrossSectionDefinitions() []CrossSectionDefinition
	ListCrossSections() []CrossSection
	ListComposites() []CompositeStructure
	ListStructures() []Structure
	ListManholes() []Manhole
	ListBoundaries() []BoundaryCondition
	ListLaterals() []LateralSource
	ListBreaches() []LeveeBreach
	FindNode(id string) (Node, bool)
	FindBranch(id string) (Branch, bool)
	FindCrossSectionDefinition(id string) (CrossSectionDefinition, bool)
	FindComposite(id string) (CompositeStructure, bool)
	FindStructure(id string) (Structure, bool)
	FindManhole(id string) (Manhole, bool)
	Settings() Settings
}

// Rule defines an evaluation executed within a transaction boundary.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Rules returns the registered rules in registration order.
func (e *RulesEngine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		res, err := rule.Evaluate(ctx, view, changes)
		if err != nil {
			return Result{}, err
		}
		combined.Merge(res)
	}
	return combined, nil
}
