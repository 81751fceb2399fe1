package core

import (
	"context"

	"hydrocore/pkg/crosssection"
	"hydrocore/pkg/domain"
)

// NewStructureParametersRule checks the hydraulic parameters of each
// structure kind.
func NewStructureParametersRule() domain.Rule {
	return structureParametersRule{}
}

type structureParametersRule struct{}

func (structureParametersRule) Name() string { return "structure_parameters" }

func (r structureParametersRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	out := newIssues(r.Name(), CategoryStructures)
	for _, s := range view.ListStructures() {
		if err := s.CheckPayload(); err != nil {
			out.errorf(domain.EntityStructure, s.ID, "%v", err)
			continue
		}
		switch {
		case s.Bridge != nil:
			checkBridge(out, view, s)
		case s.Culvert != nil:
			checkCulvert(out, view, s)
		case s.Weir != nil:
			checkWeir(out, s)
		case s.Pump != nil:
			checkPump(out, s)
		case s.Gate != nil:
			checkGate(out, s)
		}
	}
	return out.result(), nil
}

func checkBridge(out *issues, view domain.RuleView, s domain.Structure) {
	b := s.Bridge
	switch b.Shape {
	case domain.BridgeRectangle:
		if b.Width <= 0 || b.Height <= 0 {
			out.errorf(domain.EntityStructure, s.ID, "bridge %s needs a positive width and height", s.Name)
		}
	case domain.BridgeTabulated, domain.BridgeYZ:
		if b.CrossSectionDefinitionID == nil {
			out.errorf(domain.EntityStructure, s.ID, "bridge %s with %s profile needs a cross-section definition", s.Name, b.Shape)
		} else if _, ok := view.FindCrossSectionDefinition(*b.CrossSectionDefinitionID); !ok {
			out.errorf(domain.EntityStructure, s.ID, "bridge %s references missing cross-section definition %s", s.Name, *b.CrossSectionDefinitionID)
		}
	default:
		out.errorf(domain.EntityStructure, s.ID, "bridge %s has unknown shape %q", s.Name, b.Shape)
	}
	if b.Length < 0 {
		out.errorf(domain.EntityStructure, s.ID, "bridge %s has negative length", s.Name)
	}
	if b.Friction < 0 {
		out.errorf(domain.EntityStructure, s.ID, "bridge %s has negative friction", s.Name)
	}
}

func checkCulvert(out *issues, view domain.RuleView, s domain.Structure) {
	c := s.Culvert
	if c.GeometryType == domain.CulvertTabulated {
		if c.TabulatedDefinitionID == nil {
			out.errorf(domain.EntityStructure, s.ID, "culvert %s with tabulated geometry needs a cross-section definition", s.Name)
		} else if _, ok := view.FindCrossSectionDefinition(*c.TabulatedDefinitionID); !ok {
			out.errorf(domain.EntityStructure, s.ID, "culvert %s references missing cross-section definition %s", s.Name, *c.TabulatedDefinitionID)
		}
	} else if _, err := crosssection.ForCulvert(*c); err != nil {
		out.errorf(domain.EntityStructure, s.ID, "culvert %s: %v", s.Name, err)
	}
	if c.Length <= 0 {
		out.errorf(domain.EntityStructure, s.ID, "culvert %s needs a positive length", s.Name)
	}
	if c.IsGated && c.GateInitialOpening < 0 {
		out.errorf(domain.EntityStructure, s.ID, "culvert %s has a negative gate opening", s.Name)
	}
	if c.IsSiphon() && c.SiphonOffLevel > c.SiphonOnLevel {
		out.errorf(domain.EntityStructure, s.ID, "siphon %s switches off above its switch-on level", s.Name)
	}
	if c.Friction < 0 {
		out.errorf(domain.EntityStructure, s.ID, "culvert %s has negative friction", s.Name)
	}
}

func checkWeir(out *issues, s domain.Structure) {
	w := s.Weir
	if w.Formula == nil {
		out.errorf(domain.EntityStructure, s.ID, "weir %s has no discharge formula", s.Name)
		return
	}
	if _, general := w.Formula.(domain.GeneralStructureFormula); !general && w.CrestWidth <= 0 {
		out.errorf(domain.EntityStructure, s.ID, "weir %s needs a positive crest width", s.Name)
	}
	if w.CrestLength < 0 {
		out.errorf(domain.EntityStructure, s.ID, "weir %s has a negative crest length", s.Name)
	}
	for _, problem := range w.Formula.Problems() {
		out.errorf(domain.EntityStructure, s.ID, "weir %s (%s formula): %s", s.Name, w.Formula.Kind(), problem)
	}
}

func checkPump(out *issues, s domain.Structure) {
	p := s.Pump
	if p.Capacity < 0 {
		out.errorf(domain.EntityStructure, s.ID, "pump %s has negative capacity", s.Name)
	}
	switch p.ControlDirection {
	case domain.PumpSuctionSide, domain.PumpDeliverySide, domain.PumpBothSides:
	default:
		out.errorf(domain.EntityStructure, s.ID, "pump %s has unknown control direction %q", s.Name, p.ControlDirection)
	}
	if p.UsesSuction() && p.StartSuction <= p.StopSuction {
		out.errorf(domain.EntityStructure, s.ID, "pump %s suction start level %g must lie above stop level %g", s.Name, p.StartSuction, p.StopSuction)
	}
	if p.UsesDelivery() && p.StartDelivery >= p.StopDelivery {
		out.errorf(domain.EntityStructure, s.ID, "pump %s delivery start level %g must lie below stop level %g", s.Name, p.StartDelivery, p.StopDelivery)
	}
	if !increasingArgs(p.ReductionTable) {
		out.errorf(domain.EntityStructure, s.ID, "pump %s reduction table must have increasing head differences", s.Name)
	}
}

func checkGate(out *issues, s domain.Structure) {
	g := s.Gate
	if g.LowerEdgeLevel < g.SillLevel {
		out.errorf(domain.EntityStructure, s.ID, "gate %s lower edge %g lies below its sill %g", s.Name, g.LowerEdgeLevel, g.SillLevel)
	}
	if g.DoorHeight <= 0 {
		out.errorf(domain.EntityStructure, s.ID, "gate %s needs a positive door height", s.Name)
	}
	if g.SillWidth > 0 && g.OpeningWidth > g.SillWidth {
		out.warnf(domain.EntityStructure, s.ID, "gate %s opening width exceeds its sill width", s.Name)
	}
}
