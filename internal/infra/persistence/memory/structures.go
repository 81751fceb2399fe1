package memory

import (
	"errors"
	"fmt"

	"hydrocore/pkg/domain"
)

// CreateComposite stores an empty composite on an existing branch. Members
// join by being created with the composite's ID.
func (tx *transaction) CreateComposite(c domain.CompositeStructure) (domain.CompositeStructure, error) {
	if len(c.StructureIDs) > 0 {
		return domain.CompositeStructure{}, errors.New("composite structures are created empty; create member structures with CompositeID set")
	}
	if err := tx.requireBranch(fmt.Sprintf("composite %q", c.Name), c.BranchID); err != nil {
		return domain.CompositeStructure{}, err
	}
	return create(tx, compositeKind, c)
}

// UpdateComposite mutates a composite and moves its members along with it.
// Membership itself is owned by the member structures and cannot be edited here.
func (tx *transaction) UpdateComposite(id string, mutator func(*domain.CompositeStructure) error) (domain.CompositeStructure, error) {
	updated, err := update(tx, compositeKind, id, mutator, func(before domain.CompositeStructure, c *domain.CompositeStructure) error {
		c.StructureIDs = before.StructureIDs
		return tx.requireBranch(fmt.Sprintf("composite %q", c.Name), c.BranchID)
	})
	if err != nil {
		return domain.CompositeStructure{}, err
	}
	for _, sid := range updated.StructureIDs {
		child, ok := tx.state.structures[sid]
		if !ok || (child.Chainage == updated.Chainage && child.BranchID == updated.BranchID) {
			continue
		}
		if _, err := update(tx, structureKind, sid, func(s *domain.Structure) error {
			updated.SetChainage(updated.Chainage, []*domain.Structure{s})
			return nil
		}, nil); err != nil {
			return domain.CompositeStructure{}, err
		}
	}
	return updated, nil
}

// DeleteComposite removes a composite and its member structures.
func (tx *transaction) DeleteComposite(id string) error {
	c, ok := tx.state.composites[id]
	if !ok {
		return fmt.Errorf("composite structure %q: %w", id, domain.ErrNotFound)
	}
	for _, sid := range c.StructureIDs {
		if _, err := remove(tx, structureKind, sid); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}
	_, err := remove(tx, compositeKind, id)
	return err
}

// placeStructure validates the payload and, for composite members, copies
// the composite location onto the structure.
func (tx *transaction) placeStructure(s *domain.Structure) error {
	if err := s.CheckPayload(); err != nil {
		return err
	}
	owner := fmt.Sprintf("structure %q", s.Name)
	if s.CompositeID != "" {
		c, ok := tx.state.composites[s.CompositeID]
		if !ok {
			return fmt.Errorf("%s references composite %q: %w", owner, s.CompositeID, domain.ErrNotFound)
		}
		c.SetChainage(c.Chainage, []*domain.Structure{s})
	}
	if err := tx.requireBranch(owner, s.BranchID); err != nil {
		return err
	}
	if s.Bridge != nil {
		if err := tx.requireDefinition(owner, s.Bridge.CrossSectionDefinitionID); err != nil {
			return err
		}
	}
	if s.Culvert != nil {
		return tx.requireDefinition(owner, s.Culvert.TabulatedDefinitionID)
	}
	return nil
}

// CreateStructure stores a structure, joining its composite when CompositeID is set.
func (tx *transaction) CreateStructure(s domain.Structure) (domain.Structure, error) {
	if err := tx.placeStructure(&s); err != nil {
		return domain.Structure{}, err
	}
	created, err := create(tx, structureKind, s)
	if err != nil {
		return domain.Structure{}, err
	}
	if created.CompositeID != "" {
		if _, err := update(tx, compositeKind, created.CompositeID, func(c *domain.CompositeStructure) error {
			c.StructureIDs = append(c.StructureIDs, created.ID)
			return nil
		}, nil); err != nil {
			return domain.Structure{}, err
		}
	}
	return created, nil
}

// UpdateStructure mutates a structure. Composite membership is fixed and a
// member's location always follows its composite.
func (tx *transaction) UpdateStructure(id string, mutator func(*domain.Structure) error) (domain.Structure, error) {
	return update(tx, structureKind, id, mutator, func(before domain.Structure, s *domain.Structure) error {
		if s.CompositeID != before.CompositeID {
			return fmt.Errorf("structure %q cannot change composite from %q to %q", id, before.CompositeID, s.CompositeID)
		}
		return tx.placeStructure(s)
	})
}

// DeleteStructure removes a structure and its composite membership. An
// emptied composite is left for the caller to remove or refill.
func (tx *transaction) DeleteStructure(id string) error {
	removed, err := remove(tx, structureKind, id)
	if err != nil {
		return err
	}
	if removed.CompositeID == "" {
		return nil
	}
	if _, ok := tx.state.composites[removed.CompositeID]; !ok {
		return nil
	}
	_, err = update(tx, compositeKind, removed.CompositeID, func(c *domain.CompositeStructure) error {
		c.StructureIDs = removeString(c.StructureIDs, id)
		return nil
	}, nil)
	return err
}
