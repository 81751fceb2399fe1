package core

import (
	"context"

	"hydrocore/internal/network"
	"hydrocore/pkg/domain"
)

func structureID(s domain.Structure) string { return s.ID }

// AddStructure places a structure on a branch, joining the composite at that
// chainage or creating one.
func (s *Service) AddStructure(ctx context.Context, branchID string, chainage float64, st domain.Structure) (domain.Structure, Result, error) {
	return mutate(s, ctx, "add_structure", func(tx Transaction) (domain.Structure, error) {
		return s.assembler.AddStructure(tx, branchID, chainage, st)
	}, structureID)
}

// UpdateStructure mutates a structure's parameters. Its location follows its composite.
func (s *Service) UpdateStructure(ctx context.Context, id string, mutator func(*domain.Structure) error) (domain.Structure, Result, error) {
	return mutate(s, ctx, "update_structure", func(tx Transaction) (domain.Structure, error) {
		return tx.UpdateStructure(id, mutator)
	}, structureID)
}

// MoveStructure relocates a structure to another branch position.
func (s *Service) MoveStructure(ctx context.Context, id, branchID string, chainage float64) (domain.Structure, Result, error) {
	return mutate(s, ctx, "move_structure", func(tx Transaction) (domain.Structure, error) {
		return s.assembler.MoveStructure(tx, id, branchID, chainage)
	}, structureID)
}

// RemoveStructure deletes a structure and its composite once empty.
func (s *Service) RemoveStructure(ctx context.Context, id string) (Result, error) {
	return remove(s, ctx, "remove_structure", id, s.assembler.RemoveStructure)
}

// MoveComposite sets a composite's chainage; its structures follow.
func (s *Service) MoveComposite(ctx context.Context, id string, chainage float64) (domain.CompositeStructure, Result, error) {
	return mutate(s, ctx, "move_composite", func(tx Transaction) (domain.CompositeStructure, error) {
		return s.assembler.MoveComposite(tx, id, chainage)
	}, func(c domain.CompositeStructure) string { return c.ID })
}

// DeleteComposite removes a composite together with its structures.
func (s *Service) DeleteComposite(ctx context.Context, id string) (Result, error) {
	return remove(s, ctx, "delete_composite", id, func(tx Transaction, id string) error { return tx.DeleteComposite(id) })
}

// SplitBranch inserts a node at chainage and moves downstream features to a new branch.
func (s *Service) SplitBranch(ctx context.Context, branchID string, chainage float64) (network.SplitResult, Result, error) {
	return mutate(s, ctx, "split_branch", func(tx Transaction) (network.SplitResult, error) {
		return s.assembler.SplitBranch(tx, branchID, chainage)
	}, func(r network.SplitResult) string { return r.Downstream.ID })
}

// ConnectCompartments creates a sewer branch between two manhole compartments.
func (s *Service) ConnectCompartments(ctx context.Context, from, to network.CompartmentRef, kind domain.BranchKind) (domain.Branch, Result, error) {
	return mutate(s, ctx, "connect_compartments", func(tx Transaction) (domain.Branch, error) {
		return s.assembler.ConnectCompartments(tx, from, to, kind)
	}, func(b domain.Branch) string { return b.ID })
}
