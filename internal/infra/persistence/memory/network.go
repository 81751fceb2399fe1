package memory

import (
	"fmt"

	"hydrocore/pkg/domain"
)

// CreateNode stores a new node.
func (tx *transaction) CreateNode(n domain.Node) (domain.Node, error) {
	return create(tx, nodeKind, n)
}

// UpdateNode mutates an existing node.
func (tx *transaction) UpdateNode(id string, mutator func(*domain.Node) error) (domain.Node, error) {
	return update(tx, nodeKind, id, mutator, nil)
}

// DeleteNode removes a node that no branch, manhole or boundary uses.
func (tx *transaction) DeleteNode(id string) error {
	for _, b := range tx.state.branches {
		if b.SourceNodeID == id || b.TargetNodeID == id {
			return fmt.Errorf("node %q used by branch %q: %w", id, b.ID, domain.ErrReferenced)
		}
	}
	for _, m := range tx.state.manholes {
		if m.NodeID == id {
			return fmt.Errorf("node %q used by manhole %q: %w", id, m.ID, domain.ErrReferenced)
		}
	}
	for _, bc := range tx.state.boundaries {
		if bc.NodeID == id {
			return fmt.Errorf("node %q used by boundary condition %q: %w", id, bc.ID, domain.ErrReferenced)
		}
	}
	_, err := remove(tx, nodeKind, id)
	return err
}

func (tx *transaction) checkBranch(b domain.Branch) error {
	owner := fmt.Sprintf("branch %q", b.Name)
	if err := tx.requireNode(owner, b.SourceNodeID); err != nil {
		return err
	}
	if err := tx.requireNode(owner, b.TargetNodeID); err != nil {
		return err
	}
	return tx.requireDefinition(owner, b.CrossSectionDefinitionID)
}

// CreateBranch stores a new branch between existing nodes.
func (tx *transaction) CreateBranch(b domain.Branch) (domain.Branch, error) {
	if err := tx.checkBranch(b); err != nil {
		return domain.Branch{}, err
	}
	return create(tx, branchKind, b)
}

// UpdateBranch mutates an existing branch.
func (tx *transaction) UpdateBranch(id string, mutator func(*domain.Branch) error) (domain.Branch, error) {
	return update(tx, branchKind, id, mutator, func(_ domain.Branch, b *domain.Branch) error {
		return tx.checkBranch(*b)
	})
}

// DeleteBranch removes a branch together with the features located on it.
// Levee breaches that referenced the branch are detached.
func (tx *transaction) DeleteBranch(id string) error {
	if _, ok := tx.state.branches[id]; !ok {
		return fmt.Errorf("branch %q: %w", id, domain.ErrNotFound)
	}
	for _, cid := range idsWhere(tx.state.composites, func(c domain.CompositeStructure) bool { return c.BranchID == id }) {
		if err := tx.DeleteComposite(cid); err != nil {
			return err
		}
	}
	for _, sid := range idsWhere(tx.state.structures, func(s domain.Structure) bool { return s.BranchID == id }) {
		if _, err := remove(tx, structureKind, sid); err != nil {
			return err
		}
	}
	for _, xid := range idsWhere(tx.state.crossSections, func(c domain.CrossSection) bool { return c.BranchID == id }) {
		if _, err := remove(tx, crossSectionKind, xid); err != nil {
			return err
		}
	}
	for _, lid := range idsWhere(tx.state.laterals, func(l domain.LateralSource) bool { return l.BranchID == id }) {
		if _, err := remove(tx, lateralKind, lid); err != nil {
			return err
		}
	}
	for _, bid := range idsWhere(tx.state.breaches, func(b domain.LeveeBreach) bool { return b.BranchID != nil && *b.BranchID == id }) {
		if _, err := update(tx, breachKind, bid, func(b *domain.LeveeBreach) error { b.BranchID = nil; return nil }, nil); err != nil {
			return err
		}
	}
	_, err := remove(tx, branchKind, id)
	return err
}

// CreateCrossSectionDefinition stores a reusable profile.
func (tx *transaction) CreateCrossSectionDefinition(d domain.CrossSectionDefinition) (domain.CrossSectionDefinition, error) {
	return create(tx, definitionKind, d)
}

// UpdateCrossSectionDefinition mutates a profile.
func (tx *transaction) UpdateCrossSectionDefinition(id string, mutator func(*domain.CrossSectionDefinition) error) (domain.CrossSectionDefinition, error) {
	return update(tx, definitionKind, id, mutator, nil)
}

// DeleteCrossSectionDefinition removes a profile nothing refers to.
func (tx *transaction) DeleteCrossSectionDefinition(id string) error {
	for _, c := range tx.state.crossSections {
		if c.DefinitionID == id {
			return fmt.Errorf("definition %q used by cross section %q: %w", id, c.ID, domain.ErrReferenced)
		}
	}
	for _, b := range tx.state.branches {
		if b.CrossSectionDefinitionID != nil && *b.CrossSectionDefinitionID == id {
			return fmt.Errorf("definition %q used by branch %q: %w", id, b.ID, domain.ErrReferenced)
		}
	}
	for _, s := range tx.state.structures {
		if (s.Bridge != nil && s.Bridge.CrossSectionDefinitionID != nil && *s.Bridge.CrossSectionDefinitionID == id) ||
			(s.Culvert != nil && s.Culvert.TabulatedDefinitionID != nil && *s.Culvert.TabulatedDefinitionID == id) {
			return fmt.Errorf("definition %q used by structure %q: %w", id, s.ID, domain.ErrReferenced)
		}
	}
	_, err := remove(tx, definitionKind, id)
	return err
}

func (tx *transaction) checkCrossSection(c domain.CrossSection) error {
	owner := fmt.Sprintf("cross section %q", c.Name)
	if err := tx.requireBranch(owner, c.BranchID); err != nil {
		return err
	}
	return tx.requireDefinition(owner, &c.DefinitionID)
}

// CreateCrossSection places a definition on a branch.
func (tx *transaction) CreateCrossSection(c domain.CrossSection) (domain.CrossSection, error) {
	if err := tx.checkCrossSection(c); err != nil {
		return domain.CrossSection{}, err
	}
	return create(tx, crossSectionKind, c)
}

// UpdateCrossSection mutates a placement.
func (tx *transaction) UpdateCrossSection(id string, mutator func(*domain.CrossSection) error) (domain.CrossSection, error) {
	return update(tx, crossSectionKind, id, mutator, func(_ domain.CrossSection, c *domain.CrossSection) error {
		return tx.checkCrossSection(*c)
	})
}

// DeleteCrossSection removes a placement.
func (tx *transaction) DeleteCrossSection(id string) error {
	_, err := remove(tx, crossSectionKind, id)
	return err
}

// CreateManhole stores a manhole on an existing node.
func (tx *transaction) CreateManhole(m domain.Manhole) (domain.Manhole, error) {
	if err := tx.requireNode(fmt.Sprintf("manhole %q", m.Name), m.NodeID); err != nil {
		return domain.Manhole{}, err
	}
	return create(tx, manholeKind, m)
}

// UpdateManhole mutates a manhole.
func (tx *transaction) UpdateManhole(id string, mutator func(*domain.Manhole) error) (domain.Manhole, error) {
	return update(tx, manholeKind, id, mutator, func(_ domain.Manhole, m *domain.Manhole) error {
		return tx.requireNode(fmt.Sprintf("manhole %q", m.Name), m.NodeID)
	})
}

// DeleteManhole removes a manhole.
func (tx *transaction) DeleteManhole(id string) error {
	_, err := remove(tx, manholeKind, id)
	return err
}

// CreateBoundary attaches a boundary condition to a node.
func (tx *transaction) CreateBoundary(b domain.BoundaryCondition) (domain.BoundaryCondition, error) {
	if err := tx.requireNode(fmt.Sprintf("boundary condition %q", b.Name), b.NodeID); err != nil {
		return domain.BoundaryCondition{}, err
	}
	return create(tx, boundaryKind, b)
}

// UpdateBoundary mutates a boundary condition.
func (tx *transaction) UpdateBoundary(id string, mutator func(*domain.BoundaryCondition) error) (domain.BoundaryCondition, error) {
	return update(tx, boundaryKind, id, mutator, func(_ domain.BoundaryCondition, b *domain.BoundaryCondition) error {
		return tx.requireNode(fmt.Sprintf("boundary condition %q", b.Name), b.NodeID)
	})
}

// DeleteBoundary removes a boundary condition.
func (tx *transaction) DeleteBoundary(id string) error {
	_, err := remove(tx, boundaryKind, id)
	return err
}

// CreateLateral stores a lateral source on a branch.
func (tx *transaction) CreateLateral(l domain.LateralSource) (domain.LateralSource, error) {
	if err := tx.requireBranch(fmt.Sprintf("lateral source %q", l.Name), l.BranchID); err != nil {
		return domain.LateralSource{}, err
	}
	return create(tx, lateralKind, l)
}

// UpdateLateral mutates a lateral source.
func (tx *transaction) UpdateLateral(id string, mutator func(*domain.LateralSource) error) (domain.LateralSource, error) {
	return update(tx, lateralKind, id, mutator, func(_ domain.LateralSource, l *domain.LateralSource) error {
		return tx.requireBranch(fmt.Sprintf("lateral source %q", l.Name), l.BranchID)
	})
}

// DeleteLateral removes a lateral source.
func (tx *transaction) DeleteLateral(id string) error {
	_, err := remove(tx, lateralKind, id)
	return err
}

func (tx *transaction) checkBreach(b domain.LeveeBreach) error {
	if b.BranchID == nil {
		return nil
	}
	return tx.requireBranch(fmt.Sprintf("levee breach %q", b.Name), *b.BranchID)
}

// CreateBreach stores a levee breach.
func (tx *transaction) CreateBreach(b domain.LeveeBreach) (domain.LeveeBreach, error) {
	if err := tx.checkBreach(b); err != nil {
		return domain.LeveeBreach{}, err
	}
	return create(tx, breachKind, b)
}

// UpdateBreach mutates a levee breach.
func (tx *transaction) UpdateBreach(id string, mutator func(*domain.LeveeBreach) error) (domain.LeveeBreach, error) {
	return update(tx, breachKind, id, mutator, func(_ domain.LeveeBreach, b *domain.LeveeBreach) error {
		return tx.checkBreach(*b)
	})
}

// DeleteBreach removes a levee breach.
func (tx *transaction) DeleteBreach(id string) error {
	_, err := remove(tx, breachKind, id)
	return err
}

// UpdateSettings mutates the single settings record.
func (tx *transaction) UpdateSettings(mutator func(*domain.Settings) error) (domain.Settings, error) {
	before := domain.CloneSettings(tx.state.settings)
	current := domain.CloneSettings(tx.state.settings)
	if err := mutator(&current); err != nil {
		return domain.Settings{}, err
	}
	current.ID = domain.SettingsID
	if before.CreatedAt.IsZero() {
		current.CreatedAt = tx.now
	} else {
		current.CreatedAt = before.CreatedAt
	}
	current.UpdatedAt = tx.now
	tx.state.settings = domain.CloneSettings(current)
	tx.recordChange(domain.Change{Entity: domain.EntitySettings, Action: domain.ActionUpdate, Before: before, After: domain.CloneSettings(current)})
	return current, nil
}
