package core

import (
	"context"
	"sort"

	"hydrocore/pkg/domain"
)

// NewWeirOverlapRule rejects weirs in different composites on one branch
// whose crests overlap along the branch.
func NewWeirOverlapRule() domain.Rule {
	return weirOverlapRule{}
}

type weirOverlapRule struct{}

func (weirOverlapRule) Name() string { return "weir_overlap" }

type weirSpan struct {
	s      domain.Structure
	lo, hi float64
}

func (r weirOverlapRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	out := newIssues(r.Name(), CategoryStructures)
	byBranch := make(map[string][]weirSpan)
	for _, s := range view.ListStructures() {
		if s.Weir == nil {
			continue
		}
		lo, hi := s.Weir.Footprint(s.Chainage)
		byBranch[s.BranchID] = append(byBranch[s.BranchID], weirSpan{s: s, lo: lo, hi: hi})
	}
	branches := make([]string, 0, len(byBranch))
	for id := range byBranch {
		branches = append(branches, id)
	}
	sort.Strings(branches)
	for _, id := range branches {
		spans := byBranch[id]
		sort.SliceStable(spans, func(i, j int) bool { return spans[i].lo < spans[j].lo })
		for i := range spans {
			for j := i + 1; j < len(spans); j++ {
				a, b := spans[i], spans[j]
				if b.lo >= a.hi {
					break
				}
				if a.s.CompositeID != "" && a.s.CompositeID == b.s.CompositeID {
					continue
				}
				out.errorf(domain.EntityStructure, b.s.ID, "weir %s overlaps weir %s on branch %s ([%g, %g] and [%g, %g])",
					b.s.Name, a.s.Name, id, b.lo, b.hi, a.lo, a.hi)
			}
		}
	}
	return out.result(), nil
}
