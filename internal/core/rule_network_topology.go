package core

import (
	"context"

	"hydrocore/pkg/domain"
)

// NewNetworkTopologyRule checks that branches join two distinct existing
// nodes with a positive length and reports unconnected nodes.
func NewNetworkTopologyRule() domain.Rule {
	return networkTopologyRule{}
}

type networkTopologyRule struct{}

func (networkTopologyRule) Name() string { return "network_topology" }

func (r networkTopologyRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	out := newIssues(r.Name(), CategoryNetwork)
	for _, b := range view.ListBranches() {
		if _, ok := view.FindNode(b.SourceNodeID); !ok {
			out.errorf(domain.EntityBranch, b.ID, "branch %s references missing source node %s", b.Name, b.SourceNodeID)
		}
		if _, ok := view.FindNode(b.TargetNodeID); !ok {
			out.errorf(domain.EntityBranch, b.ID, "branch %s references missing target node %s", b.Name, b.TargetNodeID)
		}
		if b.SourceNodeID == b.TargetNodeID {
			out.errorf(domain.EntityBranch, b.ID, "branch %s starts and ends at the same node", b.Name)
		}
		if b.EffectiveLength() <= 0 {
			out.errorf(domain.EntityBranch, b.ID, "branch %s has non-positive length %g", b.Name, b.EffectiveLength())
		}
	}
	degree := nodeDegrees(view)
	for _, n := range view.ListNodes() {
		if degree[n.ID] == 0 {
			out.warnf(domain.EntityNode, n.ID, "node %s is not connected to any branch", n.Name)
		}
	}
	return out.result(), nil
}
