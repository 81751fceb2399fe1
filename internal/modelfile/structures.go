package modelfile

import (
	"fmt"

	"hydrocore/pkg/domain"
)

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func flowDirection(v string) domain.FlowDirection {
	if v == "" {
		return domain.FlowBoth
	}
	return domain.FlowDirection(v)
}

func (a *applier) definitionRef(name *string) (*string, error) {
	if name == nil {
		return nil, nil
	}
	id, err := lookup("definition", a.definitions, *name)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// place resolves the branch and, for composite members, the composite,
// creating it on first use.
func (a *applier) place(st *domain.Structure, branch string, chainage float64, composite string) error {
	branchID, err := lookup("branch", a.branches, branch)
	if err != nil {
		return err
	}
	st.BranchID, st.Chainage = branchID, chainage
	if composite == "" {
		return nil
	}
	if id, ok := a.composites[composite]; ok {
		st.CompositeID = id
		return nil
	}
	created, err := a.tx.CreateComposite(domain.CompositeStructure{Name: composite, BranchID: branchID, Chainage: chainage})
	if err != nil {
		return fmt.Errorf("composite %q: %w", composite, err)
	}
	a.composites[composite] = created.ID
	st.CompositeID = created.ID
	return nil
}

func (a *applier) structures(body modelBody) func() error {
	return func() error {
		var builders []func() (domain.Structure, error)
		for _, w := range body.Weirs {
			builders = append(builders, a.weir(w))
		}
		for _, c := range body.Culverts {
			builders = append(builders, a.culvert(c))
		}
		for _, b := range body.Bridges {
			builders = append(builders, a.bridge(b))
		}
		for _, p := range body.Pumps {
			builders = append(builders, a.pump(p))
		}
		for _, g := range body.Gates {
			builders = append(builders, a.gate(g))
		}
		for _, build := range builders {
			st, err := build()
			if err != nil {
				return err
			}
			if _, err := a.tx.CreateStructure(st); err != nil {
				return fmt.Errorf("structure %q: %w", st.Name, err)
			}
		}
		return nil
	}
}

func (a *applier) weir(w *weirBlock) func() (domain.Structure, error) {
	return func() (domain.Structure, error) {
		weir := domain.NewWeir()
		weir.CrestLevel = w.CrestLevel
		weir.CrestWidth = w.CrestWidth
		weir.CrestLength = w.CrestLength
		weir.OffsetY = w.OffsetY
		weir.FlowDirection = flowDirection(w.FlowDirection)
		if w.CrestShape != "" {
			weir.CrestShape = domain.CrestShape(w.CrestShape)
		}
		switch w.Formula {
		case "", string(domain.FormulaSimple):
			weir.Formula = domain.SimpleWeirFormula{
				DischargeCoefficient: orDefault(w.DischargeCoefficient, 1),
				LateralContraction:   orDefault(w.LateralContraction, 1),
			}
		case string(domain.FormulaGated):
			weir.Formula = domain.GatedWeirFormula{
				GateOpening:            w.GateOpening,
				ContractionCoefficient: orDefault(w.ContractionCoefficient, 0.63),
				LateralContraction:     orDefault(w.LateralContraction, 1),
			}
		default:
			return domain.Structure{}, fmt.Errorf("weir %q: unsupported formula %q", w.Name, w.Formula)
		}
		st := domain.Structure{Name: w.Name, Kind: domain.StructureWeir, Weir: weir}
		if err := a.place(&st, w.Branch, w.Chainage, w.Composite); err != nil {
			return st, fmt.Errorf("weir %q: %w", w.Name, err)
		}
		return st, nil
	}
}

func (a *applier) culvert(c *culvertBlock) func() (domain.Structure, error) {
	return func() (domain.Structure, error) {
		def, err := a.definitionRef(c.Definition)
		if err != nil {
			return domain.Structure{}, fmt.Errorf("culvert %q: %w", c.Name, err)
		}
		subType := domain.CulvertSubType(c.SubType)
		if subType == "" {
			subType = domain.CulvertPlain
		}
		st := domain.Structure{Name: c.Name, Kind: domain.StructureCulvert, Culvert: &domain.Culvert{
			SubType:               subType,
			GeometryType:          domain.ShapeType(c.Shape),
			Width:                 c.Width,
			Height:                c.Height,
			Diameter:              c.Diameter,
			TabulatedDefinitionID: def,
			InletLevel:            c.InletLevel,
			OutletLevel:           c.OutletLevel,
			Length:                c.Length,
			InletLossCoefficient:  orDefault(c.InletLoss, 0.5),
			OutletLossCoefficient: orDefault(c.OutletLoss, 1),
			FrictionType:          domain.FrictionType(c.FrictionType),
			Friction:              c.Friction,
			FlowDirection:         flowDirection(c.FlowDirection),
		}}
		if err := a.place(&st, c.Branch, c.Chainage, c.Composite); err != nil {
			return st, fmt.Errorf("culvert %q: %w", c.Name, err)
		}
		return st, nil
	}
}

func (a *applier) bridge(b *bridgeBlock) func() (domain.Structure, error) {
	return func() (domain.Structure, error) {
		def, err := a.definitionRef(b.Definition)
		if err != nil {
			return domain.Structure{}, fmt.Errorf("bridge %q: %w", b.Name, err)
		}
		shape := domain.BridgeShape(b.Shape)
		if shape == "" {
			shape = domain.BridgeRectangle
		}
		st := domain.Structure{Name: b.Name, Kind: domain.StructureBridge, Bridge: &domain.Bridge{
			Shape:                    shape,
			Width:                    b.Width,
			Height:                   b.Height,
			Shift:                    b.Shift,
			Length:                   b.Length,
			InletLossCoefficient:     orDefault(b.InletLoss, 0.5),
			OutletLossCoefficient:    orDefault(b.OutletLoss, 1),
			FrictionType:             domain.FrictionType(b.FrictionType),
			Friction:                 b.Friction,
			CrossSectionDefinitionID: def,
			FlowDirection:            flowDirection(b.FlowDirection),
		}}
		if err := a.place(&st, b.Branch, b.Chainage, b.Composite); err != nil {
			return st, fmt.Errorf("bridge %q: %w", b.Name, err)
		}
		return st, nil
	}
}

func (a *applier) pump(p *pumpBlock) func() (domain.Structure, error) {
	return func() (domain.Structure, error) {
		control := domain.PumpControlDirection(p.Control)
		if control == "" {
			control = domain.PumpSuctionSide
		}
		reduction, err := table("reduction", p.Reduction)
		if err != nil {
			return domain.Structure{}, fmt.Errorf("pump %q: %w", p.Name, err)
		}
		st := domain.Structure{Name: p.Name, Kind: domain.StructurePump, Pump: &domain.Pump{
			Capacity:            p.Capacity,
			ControlDirection:    control,
			DirectionIsPositive: p.Positive == nil || *p.Positive,
			StartSuction:        p.StartSuction,
			StopSuction:         p.StopSuction,
			StartDelivery:       p.StartDelivery,
			StopDelivery:        p.StopDelivery,
			ReductionTable:      reduction,
		}}
		if err := a.place(&st, p.Branch, p.Chainage, p.Composite); err != nil {
			return st, fmt.Errorf("pump %q: %w", p.Name, err)
		}
		return st, nil
	}
}

func (a *applier) gate(g *gateBlock) func() (domain.Structure, error) {
	return func() (domain.Structure, error) {
		direction := domain.GateOpeningDirection(g.Direction)
		if direction == "" {
			direction = domain.GateSymmetric
		}
		st := domain.Structure{Name: g.Name, Kind: domain.StructureGate, Gate: &domain.Gate{
			SillLevel:        g.SillLevel,
			SillWidth:        g.SillWidth,
			LowerEdgeLevel:   g.LowerEdgeLevel,
			OpeningWidth:     g.OpeningWidth,
			DoorHeight:       g.DoorHeight,
			OpeningDirection: direction,
		}}
		if err := a.place(&st, g.Branch, g.Chainage, g.Composite); err != nil {
			return st, fmt.Errorf("gate %q: %w", g.Name, err)
		}
		return st, nil
	}
}
