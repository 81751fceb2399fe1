// Package core hosts the hydrocore service: transactional network editing on
// top of a persistent store, the built-in validation rules, plugin
// installation and the observability hooks wrapped around every operation.
package core

import "hydrocore/pkg/domain"

type (
	Rule            = domain.Rule
	RuleView        = domain.RuleView
	RulesEngine     = domain.RulesEngine
	Result          = domain.Result
	Violation       = domain.Violation
	Change          = domain.Change
	Transaction     = domain.Transaction
	TransactionView = domain.TransactionView
	PersistentStore = domain.PersistentStore
	Severity        = domain.Severity
	EntityType      = domain.EntityType
	Settings        = domain.Settings
	BoundaryKind    = domain.BoundaryKind
)

// Severities and entity types re-exported for plugins, which depend on this
// package rather than on pkg/domain.
const (
	SeverityError   = domain.SeverityError
	SeverityWarning = domain.SeverityWarning
	SeverityInfo    = domain.SeverityInfo

	EntityBoundary = domain.EntityBoundary
	EntitySettings = domain.EntitySettings
	EntityNode     = domain.EntityNode
)

// NewRulesEngine constructs an empty engine.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}
