package network

import (
	"errors"
	"fmt"
	"math"

	"hydrocore/pkg/domain"
)

// SplitResult reports the records created by SplitBranch.
type SplitResult struct {
	Node       domain.Node
	Upstream   domain.Branch
	Downstream domain.Branch
}

// ErrSpansSplit is returned when a distributed lateral covers the split
// chainage and so belongs to neither part.
var ErrSpansSplit = errors.New("lateral spans split point")

// SplitBranch inserts a node at chainage and moves everything beyond it onto
// a new downstream branch with re-based chainages. Features exactly at the
// split stay upstream. Nothing is changed when a distributed lateral spans
// the split.
func (a *Assembler) SplitBranch(tx domain.Transaction, branchID string, chainage float64) (SplitResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	branch, err := branchOf(tx, branchID)
	if err != nil {
		return SplitResult{}, err
	}
	length := branch.EffectiveLength()
	if chainage <= 0 || chainage >= length {
		return SplitResult{}, fmt.Errorf("%w: split at %g must lie strictly inside branch %q", ErrOutsideBranch, chainage, branch.Name)
	}
	view := tx.Snapshot()
	for _, l := range view.ListLaterals() {
		if l.BranchID == branchID && l.Chainage < chainage && l.Chainage+l.Length > chainage {
			return SplitResult{}, fmt.Errorf("%w: lateral %q covers [%g, %g] on branch %q, split at %g",
				ErrSpansSplit, l.Name, l.Chainage, l.Chainage+l.Length, branch.Name, chainage)
		}
	}
	fraction := chainage / length

	up, upOK := view.FindNode(branch.SourceNodeID)
	down, downOK := view.FindNode(branch.TargetNodeID)
	if !upOK || !downOK {
		return SplitResult{}, fmt.Errorf("branch %q has missing end nodes: %w", branch.Name, domain.ErrNotFound)
	}
	var point domain.Point
	var head, tail []domain.Point
	if len(branch.Geometry) >= 2 {
		point, head, tail = splitPolyline(branch.Geometry, fraction*branch.GeometryLength())
	} else {
		point = domain.Point{X: up.X + fraction*(down.X-up.X), Y: up.Y + fraction*(down.Y-up.Y)}
	}

	node, err := tx.CreateNode(domain.Node{
		Name: UniqueName(names(view.ListNodes(), func(n domain.Node) string { return n.Name }), "Node"),
		X:    point.X,
		Y:    point.Y,
	})
	if err != nil {
		return SplitResult{}, fmt.Errorf("create split node: %w", err)
	}

	midLevel := branch.LevelSource + fraction*(branch.LevelTarget-branch.LevelSource)
	downstream := domain.CloneBranch(branch)
	downstream.ID = ""
	downstream.Name = UniqueName(names(view.ListBranches(), func(b domain.Branch) string { return b.Name }), branch.Name+"_")
	downstream.SourceNodeID = node.ID
	downstream.SourceCompartment = ""
	downstream.LevelSource = midLevel
	downstream.Geometry = tail
	downstream.Length = length - chainage
	downstream, err = tx.CreateBranch(downstream)
	if err != nil {
		return SplitResult{}, fmt.Errorf("create downstream branch: %w", err)
	}

	upstream, err := tx.UpdateBranch(branchID, func(b *domain.Branch) error {
		b.TargetNodeID = node.ID
		b.TargetCompartment = ""
		b.LevelTarget = midLevel
		b.Geometry = head
		b.Length = chainage
		return nil
	})
	if err != nil {
		return SplitResult{}, err
	}

	if err := moveFeatures(tx, view, branchID, downstream.ID, chainage); err != nil {
		return SplitResult{}, err
	}
	return SplitResult{Node: node, Upstream: upstream, Downstream: downstream}, nil
}

func moveFeatures(tx domain.Transaction, view domain.TransactionView, from, to string, offset float64) error {
	for _, c := range view.ListComposites() {
		if c.BranchID != from || c.Chainage <= offset {
			continue
		}
		if _, err := tx.UpdateComposite(c.ID, func(c *domain.CompositeStructure) error {
			c.BranchID = to
			c.Chainage -= offset
			return nil
		}); err != nil {
			return fmt.Errorf("move composite %q: %w", c.Name, err)
		}
	}
	for _, s := range view.ListStructures() {
		if s.CompositeID != "" || s.BranchID != from || s.Chainage <= offset {
			continue
		}
		if _, err := tx.UpdateStructure(s.ID, func(s *domain.Structure) error {
			s.BranchID = to
			s.Chainage -= offset
			return nil
		}); err != nil {
			return fmt.Errorf("move structure %q: %w", s.Name, err)
		}
	}
	for _, x := range view.ListCrossSections() {
		if x.BranchID != from || x.Chainage <= offset {
			continue
		}
		if _, err := tx.UpdateCrossSection(x.ID, func(x *domain.CrossSection) error {
			x.BranchID = to
			x.Chainage -= offset
			return nil
		}); err != nil {
			return fmt.Errorf("move cross section %q: %w", x.Name, err)
		}
	}
	for _, l := range view.ListLaterals() {
		if l.BranchID != from || l.Chainage <= offset {
			continue
		}
		if _, err := tx.UpdateLateral(l.ID, func(l *domain.LateralSource) error {
			l.BranchID = to
			l.Chainage -= offset
			return nil
		}); err != nil {
			return fmt.Errorf("move lateral %q: %w", l.Name, err)
		}
	}
	return nil
}

// splitPolyline cuts a polyline at distance d from its start. The cut point
// ends the head and starts the tail.
func splitPolyline(geom []domain.Point, d float64) (domain.Point, []domain.Point, []domain.Point) {
	walked := 0.0
	for i := 1; i < len(geom); i++ {
		seg := math.Hypot(geom[i].X-geom[i-1].X, geom[i].Y-geom[i-1].Y)
		if walked+seg >= d && seg > 0 {
			f := (d - walked) / seg
			p := domain.Point{X: geom[i-1].X + f*(geom[i].X-geom[i-1].X), Y: geom[i-1].Y + f*(geom[i].Y-geom[i-1].Y)}
			head := append(append([]domain.Point(nil), geom[:i]...), p)
			tail := append([]domain.Point{p}, geom[i:]...)
			return p, head, tail
		}
		walked += seg
	}
	last := geom[len(geom)-1]
	return last, append([]domain.Point(nil), geom...), []domain.Point{last, last}
}
