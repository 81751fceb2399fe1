package core

import (
	"fmt"
	"time"

	"hydrocore/pkg/domain"
)

// Report categories of the built-in rules. "/" nests a category.
const (
	CategoryNetwork       = "Network"
	CategoryStructures    = "Network/Structures"
	CategoryCrossSections = "Cross sections"
	CategoryBoundaries    = "Boundary conditions"
	CategorySewer         = "Sewer"
	CategoryBreaches      = "Levee breaches"
)

// NewDefaultRulesEngine builds a rules engine with the built-in rule set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewNetworkTopologyRule())
	engine.Register(NewCompositeStructureRule())
	engine.Register(NewWeirOverlapRule())
	engine.Register(NewStructureParametersRule())
	engine.Register(NewCrossSectionRule())
	engine.Register(NewBoundaryConditionRule())
	engine.Register(NewSewerRule())
	engine.Register(NewLeveeBreachRule())
	return engine
}

// issues collects violations for one rule and category.
type issues struct {
	rule     string
	category string
	res      domain.Result
}

func newIssues(rule, category string) *issues {
	return &issues{rule: rule, category: category}
}

func (b *issues) add(severity domain.Severity, entity domain.EntityType, id, format string, args ...any) {
	b.res.Add(domain.Violation{
		Rule:     b.rule,
		Category: b.category,
		Severity: severity,
		Message:  fmt.Sprintf(format, args...),
		Entity:   entity,
		EntityID: id,
	})
}

func (b *issues) errorf(entity domain.EntityType, id, format string, args ...any) {
	b.add(domain.SeverityError, entity, id, format, args...)
}

func (b *issues) warnf(entity domain.EntityType, id, format string, args ...any) {
	b.add(domain.SeverityWarning, entity, id, format, args...)
}

func (b *issues) result() domain.Result {
	return b.res
}

func increasingArgs(table []domain.TablePoint) bool {
	for i := 1; i < len(table); i++ {
		if table[i].Arg <= table[i-1].Arg {
			return false
		}
	}
	return true
}

func increasingTimes(series []domain.TimeValue) bool {
	for i := 1; i < len(series); i++ {
		if !series[i].Time.After(series[i-1].Time) {
			return false
		}
	}
	return true
}

func increasingOffsets(steps []domain.BreachStep) bool {
	var last time.Duration = -1
	for _, s := range steps {
		if s.Offset <= last {
			return false
		}
		last = s.Offset
	}
	return true
}

func onBranch(b domain.Branch, chainage float64) bool {
	return chainage >= 0 && chainage <= b.EffectiveLength()
}

// nodeDegrees counts the branches connected to each node.
func nodeDegrees(view RuleView) map[string]int {
	degree := make(map[string]int)
	for _, b := range view.ListBranches() {
		degree[b.SourceNodeID]++
		degree[b.TargetNodeID]++
	}
	return degree
}
