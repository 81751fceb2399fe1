package core

import (
	"context"

	"hydrocore/pkg/domain"
)

// NewSewerRule checks manhole compartments and the pipes attached to them.
func NewSewerRule() domain.Rule {
	return sewerRule{}
}

type sewerRule struct{}

func (sewerRule) Name() string { return "sewer" }

func (r sewerRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	out := newIssues(r.Name(), CategorySewer)
	byNode := make(map[string]domain.Manhole)
	for _, m := range view.ListManholes() {
		byNode[m.NodeID] = m
		if len(m.Compartments) == 0 {
			out.errorf(domain.EntityManhole, m.ID, "manhole %s has no compartments", m.Name)
		}
		seen := make(map[string]bool, len(m.Compartments))
		for _, c := range m.Compartments {
			if seen[c.Name] {
				out.errorf(domain.EntityManhole, m.ID, "manhole %s has duplicate compartment %s", m.Name, c.Name)
			}
			seen[c.Name] = true
			if c.BottomLevel > c.SurfaceLevel {
				out.errorf(domain.EntityManhole, m.ID, "compartment %s of manhole %s has bottom level %g above surface level %g", c.Name, m.Name, c.BottomLevel, c.SurfaceLevel)
			}
			if c.Width <= 0 || (c.Shape == domain.CompartmentSquare && c.Length <= 0) {
				out.errorf(domain.EntityManhole, m.ID, "compartment %s of manhole %s needs positive plan dimensions", c.Name, m.Name)
			}
		}
	}
	for _, b := range view.ListBranches() {
		if b.Kind == domain.BranchChannel {
			continue
		}
		checkPipeEnd(out, byNode, b, b.SourceNodeID, b.SourceCompartment, b.LevelSource)
		checkPipeEnd(out, byNode, b, b.TargetNodeID, b.TargetCompartment, b.LevelTarget)
	}
	return out.result(), nil
}

func checkPipeEnd(out *issues, byNode map[string]domain.Manhole, b domain.Branch, nodeID, compartment string, level float64) {
	if compartment == "" {
		return
	}
	m, ok := byNode[nodeID]
	if !ok {
		out.errorf(domain.EntityBranch, b.ID, "%s %s connects to compartment %s but node %s has no manhole", b.Kind, b.Name, compartment, nodeID)
		return
	}
	c, ok := m.Compartment(compartment)
	if !ok {
		out.errorf(domain.EntityBranch, b.ID, "%s %s connects to missing compartment %s of manhole %s", b.Kind, b.Name, compartment, m.Name)
		return
	}
	if level < c.BottomLevel {
		out.warnf(domain.EntityBranch, b.ID, "%s %s invert level %g lies below the bottom of compartment %s (%g)", b.Kind, b.Name, level, c.Name, c.BottomLevel)
	}
}
