package core

import (
	"context"

	"hydrocore/pkg/domain"
)

// NewBoundaryConditionRule checks boundary conditions and lateral sources:
// boundaries sit on end nodes, one per node, and carry data matching their
// kind.
func NewBoundaryConditionRule() domain.Rule {
	return boundaryConditionRule{}
}

type boundaryConditionRule struct{}

func (boundaryConditionRule) Name() string { return "boundary_condition" }

func (r boundaryConditionRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	out := newIssues(r.Name(), CategoryBoundaries)
	degree := nodeDegrees(view)
	perNode := make(map[string]int)
	for _, bc := range view.ListBoundaries() {
		perNode[bc.NodeID]++
		node, ok := view.FindNode(bc.NodeID)
		if !ok {
			out.errorf(domain.EntityBoundary, bc.ID, "boundary condition %s references missing node %s", bc.Name, bc.NodeID)
			continue
		}
		switch d := degree[bc.NodeID]; {
		case d == 0:
			out.warnf(domain.EntityBoundary, bc.ID, "boundary condition %s is on unconnected node %s", bc.Name, node.Name)
		case d > 1 && bc.Kind != domain.BoundaryNone:
			out.errorf(domain.EntityBoundary, bc.ID, "boundary condition %s is on node %s with %d branches; boundaries require an end node", bc.Name, node.Name, d)
		}
		if perNode[bc.NodeID] == 2 {
			out.errorf(domain.EntityBoundary, bc.ID, "node %s has more than one boundary condition", node.Name)
		}
		checkForcing(out, domain.EntityBoundary, bc.ID, "boundary condition "+bc.Name, string(bc.Kind), bc.TimeSeries, bc.Table)
	}
	for _, l := range view.ListLaterals() {
		b, ok := view.FindBranch(l.BranchID)
		if !ok {
			out.errorf(domain.EntityLateralSource, l.ID, "lateral source %s references missing branch %s", l.Name, l.BranchID)
			continue
		}
		if !onBranch(b, l.Chainage) || !onBranch(b, l.Chainage+l.Length) {
			out.errorf(domain.EntityLateralSource, l.ID, "lateral source %s extends outside branch %s", l.Name, b.Name)
		}
		checkForcing(out, domain.EntityLateralSource, l.ID, "lateral source "+l.Name, string(l.Kind), l.TimeSeries, l.Table)
	}
	return out.result(), nil
}

// checkForcing validates the data of a time series (kind suffix _t) or Q(h)
// table forcing.
func checkForcing(out *issues, entity domain.EntityType, id, subject, kind string, series []domain.TimeValue, table []domain.TablePoint) {
	switch kind {
	case "h_t", "q_t":
		if len(series) == 0 {
			out.warnf(entity, id, "%s has an empty time series", subject)
		} else if !increasingTimes(series) {
			out.errorf(entity, id, "%s time series must be strictly increasing in time", subject)
		}
	case "q_h":
		if len(table) == 0 {
			out.warnf(entity, id, "%s has an empty Q(h) table", subject)
		} else if !increasingArgs(table) {
			out.errorf(entity, id, "%s Q(h) table must have strictly increasing arguments", subject)
		}
	}
}
