package core

import (
	"context"

	"hydrocore/pkg/crosssection"
	"hydrocore/pkg/domain"
)

// NewCrossSectionRule checks profile definitions and their placements.
func NewCrossSectionRule() domain.Rule {
	return crossSectionRule{}
}

type crossSectionRule struct{}

func (crossSectionRule) Name() string { return "cross_section" }

func (r crossSectionRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	out := newIssues(r.Name(), CategoryCrossSections)
	for _, d := range view.ListCrossSectionDefinitions() {
		checkDefinition(out, d)
	}
	placed := make(map[string]int)
	for _, x := range view.ListCrossSections() {
		placed[x.BranchID]++
		if _, ok := view.FindCrossSectionDefinition(x.DefinitionID); !ok {
			out.errorf(domain.EntityCrossSection, x.ID, "cross section %s references missing definition %s", x.Name, x.DefinitionID)
		}
		b, ok := view.FindBranch(x.BranchID)
		if !ok {
			out.errorf(domain.EntityCrossSection, x.ID, "cross section %s references missing branch %s", x.Name, x.BranchID)
			continue
		}
		if !onBranch(b, x.Chainage) {
			out.errorf(domain.EntityCrossSection, x.ID, "cross section %s at chainage %g lies outside branch %s (length %g)", x.Name, x.Chainage, b.Name, b.EffectiveLength())
		}
	}
	for _, b := range view.ListBranches() {
		switch {
		case b.Kind == domain.BranchChannel && placed[b.ID] == 0:
			out.warnf(domain.EntityBranch, b.ID, "channel %s has no cross sections", b.Name)
		case b.Kind != domain.BranchChannel && b.CrossSectionDefinitionID == nil:
			out.warnf(domain.EntityBranch, b.ID, "%s %s has no profile definition", b.Kind, b.Name)
		}
	}
	return out.result(), nil
}

func checkDefinition(out *issues, d domain.CrossSectionDefinition) {
	switch d.Kind {
	case domain.CrossSectionZW:
		if len(d.ZW) == 0 {
			out.errorf(domain.EntityCrossSectionDefinition, d.ID, "definition %s has an empty level/width table", d.Name)
		}
		for i, row := range d.ZW {
			if i > 0 && row.Level <= d.ZW[i-1].Level {
				out.errorf(domain.EntityCrossSectionDefinition, d.ID, "definition %s levels must increase (row %d)", d.Name, i+1)
				break
			}
		}
		for i, row := range d.ZW {
			if row.FlowWidth < 0 || row.TotalWidth < row.FlowWidth {
				out.errorf(domain.EntityCrossSectionDefinition, d.ID, "definition %s row %d: flow width must be non-negative and at most the total width", d.Name, i+1)
				break
			}
		}
	case domain.CrossSectionYZ:
		if _, err := crosssection.FromYZ(d.YZ); err != nil {
			out.errorf(domain.EntityCrossSectionDefinition, d.ID, "definition %s: %v", d.Name, err)
		}
	case domain.CrossSectionStandard:
		if d.Shape == nil {
			out.errorf(domain.EntityCrossSectionDefinition, d.ID, "definition %s has no standard shape", d.Name)
		} else if _, err := crosssection.Tabulate(*d.Shape); err != nil {
			out.errorf(domain.EntityCrossSectionDefinition, d.ID, "definition %s: %v", d.Name, err)
		}
	default:
		out.errorf(domain.EntityCrossSectionDefinition, d.ID, "definition %s has unknown kind %q", d.Name, d.Kind)
	}
	if d.FrictionValue < 0 {
		out.errorf(domain.EntityCrossSectionDefinition, d.ID, "definition %s has negative friction", d.Name)
	}
}
