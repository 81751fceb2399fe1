package network

import (
	"fmt"
	"math"

	"hydrocore/pkg/domain"
)

// CompartmentRef addresses one compartment of a manhole.
type CompartmentRef struct {
	ManholeID   string
	Compartment string
}

// ConnectCompartments creates a sewer branch of the given kind (pipe when
// empty) between two manhole compartments. Invert levels default to the
// compartment bottom levels.
func (a *Assembler) ConnectCompartments(tx domain.Transaction, from, to CompartmentRef, kind domain.BranchKind) (domain.Branch, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	view := tx.Snapshot()
	src, srcComp, err := resolveCompartment(view, from)
	if err != nil {
		return domain.Branch{}, err
	}
	dst, dstComp, err := resolveCompartment(view, to)
	if err != nil {
		return domain.Branch{}, err
	}
	if src.ID == dst.ID && srcComp.Name == dstComp.Name {
		return domain.Branch{}, fmt.Errorf("cannot connect compartment %q of manhole %q to itself", srcComp.Name, src.Name)
	}
	if kind == "" {
		kind = domain.BranchPipe
	}
	prefix := "Pipe"
	if kind == domain.BranchSewerConnection {
		prefix = "SewerConnection"
	}
	return tx.CreateBranch(domain.Branch{
		Name:              UniqueName(names(view.ListBranches(), func(b domain.Branch) string { return b.Name }), prefix),
		Kind:              kind,
		SourceNodeID:      src.NodeID,
		TargetNodeID:      dst.NodeID,
		Length:            math.Hypot(dst.X-src.X, dst.Y-src.Y),
		Geometry:          []domain.Point{{X: src.X, Y: src.Y}, {X: dst.X, Y: dst.Y}},
		SourceCompartment: srcComp.Name,
		TargetCompartment: dstComp.Name,
		LevelSource:       srcComp.BottomLevel,
		LevelTarget:       dstComp.BottomLevel,
	})
}

func resolveCompartment(view domain.TransactionView, ref CompartmentRef) (domain.Manhole, domain.Compartment, error) {
	m, ok := view.FindManhole(ref.ManholeID)
	if !ok {
		return domain.Manhole{}, domain.Compartment{}, fmt.Errorf("manhole %q: %w", ref.ManholeID, domain.ErrNotFound)
	}
	c, ok := m.Compartment(ref.Compartment)
	if !ok {
		return domain.Manhole{}, domain.Compartment{}, fmt.Errorf("compartment %q in manhole %q: %w", ref.Compartment, m.Name, domain.ErrNotFound)
	}
	return m, c, nil
}
