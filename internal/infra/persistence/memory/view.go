package memory

import "hydrocore/pkg/domain"

type transactionView struct {
	state *memoryState
}

var _ domain.RuleView = transactionView{}

func newTransactionView(state *memoryState) domain.TransactionView {
	return transactionView{state: state}
}

func (v transactionView) ListNodes() []domain.Node       { return list(v.state, nodeKind) }
func (v transactionView) ListBranches() []domain.Branch  { return list(v.state, branchKind) }
func (v transactionView) ListManholes() []domain.Manhole { return list(v.state, manholeKind) }

func (v transactionView) ListCrossSectionDefinitions() []domain.CrossSectionDefinition {
	return list(v.state, definitionKind)
}

func (v transactionView) ListCrossSections() []domain.CrossSection {
	return list(v.state, crossSectionKind)
}

func (v transactionView) ListComposites() []domain.CompositeStructure {
	return list(v.state, compositeKind)
}

func (v transactionView) ListStructures() []domain.Structure {
	return list(v.state, structureKind)
}

func (v transactionView) ListBoundaries() []domain.BoundaryCondition {
	return list(v.state, boundaryKind)
}

func (v transactionView) ListLaterals() []domain.LateralSource {
	return list(v.state, lateralKind)
}

func (v transactionView) ListBreaches() []domain.LeveeBreach {
	return list(v.state, breachKind)
}

func (v transactionView) FindNode(id string) (domain.Node, bool) {
	return find(v.state, nodeKind, id)
}

func (v transactionView) FindBranch(id string) (domain.Branch, bool) {
	return find(v.state, branchKind, id)
}

func (v transactionView) FindCrossSectionDefinition(id string) (domain.CrossSectionDefinition, bool) {
	return find(v.state, definitionKind, id)
}

func (v transactionView) FindComposite(id string) (domain.CompositeStructure, bool) {
	return find(v.state, compositeKind, id)
}

func (v transactionView) FindStructure(id string) (domain.Structure, bool) {
	return find(v.state, structureKind, id)
}

func (v transactionView) FindManhole(id string) (domain.Manhole, bool) {
	return find(v.state, manholeKind, id)
}

func (v transactionView) Settings() domain.Settings {
	return domain.CloneSettings(v.state.settings)
}
