package core

import (
	"context"

	"hydrocore/pkg/domain"
)

// CreateNode persists a new node.
func (s *Service) CreateNode(ctx context.Context, v domain.Node) (domain.Node, Result, error) {
	return mutate(s, ctx, "create_node", func(tx Transaction) (domain.Node, error) { return tx.CreateNode(v) }, func(v domain.Node) string { return v.ID })
}

// UpdateNode mutates a node.
func (s *Service) UpdateNode(ctx context.Context, id string, mutator func(*domain.Node) error) (domain.Node, Result, error) {
	return mutate(s, ctx, "update_node", func(tx Transaction) (domain.Node, error) { return tx.UpdateNode(id, mutator) }, func(v domain.Node) string { return v.ID })
}

// DeleteNode removes a node that nothing references.
func (s *Service) DeleteNode(ctx context.Context, id string) (Result, error) {
	return remove(s, ctx, "delete_node", id, func(tx Transaction, id string) error { return tx.DeleteNode(id) })
}

// CreateBranch persists a new branch between two existing nodes.
func (s *Service) CreateBranch(ctx context.Context, v domain.Branch) (domain.Branch, Result, error) {
	return mutate(s, ctx, "create_branch", func(tx Transaction) (domain.Branch, error) { return tx.CreateBranch(v) }, func(v domain.Branch) string { return v.ID })
}

// UpdateBranch mutates a branch.
func (s *Service) UpdateBranch(ctx context.Context, id string, mutator func(*domain.Branch) error) (domain.Branch, Result, error) {
	return mutate(s, ctx, "update_branch", func(tx Transaction) (domain.Branch, error) { return tx.UpdateBranch(id, mutator) }, func(v domain.Branch) string { return v.ID })
}

// DeleteBranch removes a branch and the features located on it.
func (s *Service) DeleteBranch(ctx context.Context, id string) (Result, error) {
	return remove(s, ctx, "delete_branch", id, func(tx Transaction, id string) error { return tx.DeleteBranch(id) })
}

// CreateCrossSectionDefinition persists a reusable profile.
func (s *Service) CreateCrossSectionDefinition(ctx context.Context, v domain.CrossSectionDefinition) (domain.CrossSectionDefinition, Result, error) {
	return mutate(s, ctx, "create_cross_section_definition", func(tx Transaction) (domain.CrossSectionDefinition, error) { return tx.CreateCrossSectionDefinition(v) }, func(v domain.CrossSectionDefinition) string { return v.ID })
}

// UpdateCrossSectionDefinition mutates a profile definition.
func (s *Service) UpdateCrossSectionDefinition(ctx context.Context, id string, mutator func(*domain.CrossSectionDefinition) error) (domain.CrossSectionDefinition, Result, error) {
	return mutate(s, ctx, "update_cross_section_definition", func(tx Transaction) (domain.CrossSectionDefinition, error) { return tx.UpdateCrossSectionDefinition(id, mutator) }, func(v domain.CrossSectionDefinition) string { return v.ID })
}

// DeleteCrossSectionDefinition removes an unreferenced profile definition.
func (s *Service) DeleteCrossSectionDefinition(ctx context.Context, id string) (Result, error) {
	return remove(s, ctx, "delete_cross_section_definition", id, func(tx Transaction, id string) error { return tx.DeleteCrossSectionDefinition(id) })
}

// CreateCrossSection places a profile definition on a branch.
func (s *Service) CreateCrossSection(ctx context.Context, v domain.CrossSection) (domain.CrossSection, Result, error) {
	return mutate(s, ctx, "create_cross_section", func(tx Transaction) (domain.CrossSection, error) { return tx.CreateCrossSection(v) }, func(v domain.CrossSection) string { return v.ID })
}

// UpdateCrossSection mutates a cross-section placement.
func (s *Service) UpdateCrossSection(ctx context.Context, id string, mutator func(*domain.CrossSection) error) (domain.CrossSection, Result, error) {
	return mutate(s, ctx, "update_cross_section", func(tx Transaction) (domain.CrossSection, error) { return tx.UpdateCrossSection(id, mutator) }, func(v domain.CrossSection) string { return v.ID })
}

// DeleteCrossSection removes a cross-section placement.
func (s *Service) DeleteCrossSection(ctx context.Context, id string) (Result, error) {
	return remove(s, ctx, "delete_cross_section", id, func(tx Transaction, id string) error { return tx.DeleteCrossSection(id) })
}

// CreateManhole persists a manhole and its compartments.
func (s *Service) CreateManhole(ctx context.Context, v domain.Manhole) (domain.Manhole, Result, error) {
	return mutate(s, ctx, "create_manhole", func(tx Transaction) (domain.Manhole, error) { return tx.CreateManhole(v) }, func(v domain.Manhole) string { return v.ID })
}

// UpdateManhole mutates a manhole.
func (s *Service) UpdateManhole(ctx context.Context, id string, mutator func(*domain.Manhole) error) (domain.Manhole, Result, error) {
	return mutate(s, ctx, "update_manhole", func(tx Transaction) (domain.Manhole, error) { return tx.UpdateManhole(id, mutator) }, func(v domain.Manhole) string { return v.ID })
}

// DeleteManhole removes a manhole.
func (s *Service) DeleteManhole(ctx context.Context, id string) (Result, error) {
	return remove(s, ctx, "delete_manhole", id, func(tx Transaction, id string) error { return tx.DeleteManhole(id) })
}

// CreateBoundary attaches a boundary condition to a node.
func (s *Service) CreateBoundary(ctx context.Context, v domain.BoundaryCondition) (domain.BoundaryCondition, Result, error) {
	return mutate(s, ctx, "create_boundary", func(tx Transaction) (domain.BoundaryCondition, error) { return tx.CreateBoundary(v) }, func(v domain.BoundaryCondition) string { return v.ID })
}

// UpdateBoundary mutates a boundary condition.
func (s *Service) UpdateBoundary(ctx context.Context, id string, mutator func(*domain.BoundaryCondition) error) (domain.BoundaryCondition, Result, error) {
	return mutate(s, ctx, "update_boundary", func(tx Transaction) (domain.BoundaryCondition, error) { return tx.UpdateBoundary(id, mutator) }, func(v domain.BoundaryCondition) string { return v.ID })
}

// DeleteBoundary removes a boundary condition.
func (s *Service) DeleteBoundary(ctx context.Context, id string) (Result, error) {
	return remove(s, ctx, "delete_boundary", id, func(tx Transaction, id string) error { return tx.DeleteBoundary(id) })
}

// CreateLateral persists a lateral source.
func (s *Service) CreateLateral(ctx context.Context, v domain.LateralSource) (domain.LateralSource, Result, error) {
	return mutate(s, ctx, "create_lateral", func(tx Transaction) (domain.LateralSource, error) { return tx.CreateLateral(v) }, func(v domain.LateralSource) string { return v.ID })
}

// UpdateLateral mutates a lateral source.
func (s *Service) UpdateLateral(ctx context.Context, id string, mutator func(*domain.LateralSource) error) (domain.LateralSource, Result, error) {
	return mutate(s, ctx, "update_lateral", func(tx Transaction) (domain.LateralSource, error) { return tx.UpdateLateral(id, mutator) }, func(v domain.LateralSource) string { return v.ID })
}

// DeleteLateral removes a lateral source.
func (s *Service) DeleteLateral(ctx context.Context, id string) (Result, error) {
	return remove(s, ctx, "delete_lateral", id, func(tx Transaction, id string) error { return tx.DeleteLateral(id) })
}

// CreateBreach persists a levee breach.
func (s *Service) CreateBreach(ctx context.Context, v domain.LeveeBreach) (domain.LeveeBreach, Result, error) {
	return mutate(s, ctx, "create_breach", func(tx Transaction) (domain.LeveeBreach, error) { return tx.CreateBreach(v) }, func(v domain.LeveeBreach) string { return v.ID })
}

// UpdateBreach mutates a levee breach.
func (s *Service) UpdateBreach(ctx context.Context, id string, mutator func(*domain.LeveeBreach) error) (domain.LeveeBreach, Result, error) {
	return mutate(s, ctx, "update_breach", func(tx Transaction) (domain.LeveeBreach, error) { return tx.UpdateBreach(id, mutator) }, func(v domain.LeveeBreach) string { return v.ID })
}

// DeleteBreach removes a levee breach.
func (s *Service) DeleteBreach(ctx context.Context, id string) (Result, error) {
	return remove(s, ctx, "delete_breach", id, func(tx Transaction, id string) error { return tx.DeleteBreach(id) })
}

// UpdateSettings mutates the single settings record.
func (s *Service) UpdateSettings(ctx context.Context, mutator func(*domain.Settings) error) (domain.Settings, Result, error) {
	return mutate(s, ctx, "update_settings", func(tx Transaction) (domain.Settings, error) { return tx.UpdateSettings(mutator) }, func(v domain.Settings) string { return v.ID })
}
