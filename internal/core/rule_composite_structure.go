package core

import (
	"context"

	"hydrocore/pkg/domain"
)

// NewCompositeStructureRule requires every composite to hold at least one
// structure located at the composite's chainage on its branch.
func NewCompositeStructureRule() domain.Rule {
	return compositeStructureRule{}
}

type compositeStructureRule struct{}

func (compositeStructureRule) Name() string { return "composite_structure" }

func (r compositeStructureRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	out := newIssues(r.Name(), CategoryStructures)
	for _, c := range view.ListComposites() {
		if len(c.StructureIDs) == 0 {
			out.errorf(domain.EntityCompositeStructure, c.ID, "composite structure %s contains no structures", c.Name)
		}
		if b, ok := view.FindBranch(c.BranchID); !ok {
			out.errorf(domain.EntityCompositeStructure, c.ID, "composite structure %s references missing branch %s", c.Name, c.BranchID)
		} else if !onBranch(b, c.Chainage) {
			out.errorf(domain.EntityCompositeStructure, c.ID, "composite structure %s at chainage %g lies outside branch %s (length %g)", c.Name, c.Chainage, b.Name, b.EffectiveLength())
		}
		for _, id := range c.StructureIDs {
			s, ok := view.FindStructure(id)
			if !ok {
				out.errorf(domain.EntityCompositeStructure, c.ID, "composite structure %s lists missing structure %s", c.Name, id)
				continue
			}
			if s.BranchID != c.BranchID || s.Chainage != c.Chainage {
				out.errorf(domain.EntityStructure, s.ID, "structure %s is not located at its composite %s", s.Name, c.Name)
			}
		}
	}
	for _, s := range view.ListStructures() {
		if s.CompositeID != "" {
			continue
		}
		out.warnf(domain.EntityStructure, s.ID, "structure %s is not part of a composite structure", s.Name)
		if b, ok := view.FindBranch(s.BranchID); ok && !onBranch(b, s.Chainage) {
			out.errorf(domain.EntityStructure, s.ID, "structure %s at chainage %g lies outside branch %s", s.Name, s.Chainage, b.Name)
		}
	}
	return out.result(), nil
}
