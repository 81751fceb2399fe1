package flow1d

import (
	"fmt"
	"sort"
	"strings"

	"hydrocore/internal/solver/ini"
	"hydrocore/pkg/domain"
)

// Engine structure type names.
const (
	typeWeir     = "weir"
	typeRiver    = "riverWeir"
	typeAdvanced = "advancedWeir"
	typeOrifice  = "orifice"
	typeGeneral  = "generalStructure"
	typeCulvert  = "culvert"
	typeBridge   = "bridge"
	typePump     = "pump"
	typeGate     = "gate"
	typeCompound = "compound"
)

var culvertSubTypes = map[domain.CulvertSubType]string{
	domain.CulvertPlain:          "culvert",
	domain.CulvertSiphon:         "siphon",
	domain.CulvertInvertedSiphon: "invertedSiphon",
}

var controlSides = map[domain.PumpControlDirection]string{
	domain.PumpSuctionSide:  "suctionSide",
	domain.PumpDeliverySide: "deliverySide",
	domain.PumpBothSides:    "both",
}

func (e *exporter) structures() (*ini.Document, error) {
	doc := &ini.Document{}
	header(doc, "structure", "3.00")
	structures := e.view.ListStructures()
	sort.SliceStable(structures, func(i, j int) bool {
		a, b := structures[i], structures[j]
		if a.BranchID != b.BranchID {
			return e.branchLabel(a.BranchID) < e.branchLabel(b.BranchID)
		}
		if a.Chainage != b.Chainage {
			return a.Chainage < b.Chainage
		}
		return label(a.Name, a.ID) < label(b.Name, b.ID)
	})
	members := make(map[string][]string)
	for _, st := range structures {
		s := doc.AddSection("Structure").
			Add("id", label(st.Name, st.ID)).
			Add("name", st.Name).
			Add("branchId", e.branchLabel(st.BranchID)).
			AddFloat("chainage", st.Chainage)
		if err := e.writeStructure(s, st); err != nil {
			return nil, fmt.Errorf("structure %s: %w", label(st.Name, st.ID), err)
		}
		if st.CompositeID != "" {
			members[st.CompositeID] = append(members[st.CompositeID], label(st.Name, st.ID))
		}
	}
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return e.compositeLabel(ids[i]) < e.compositeLabel(ids[j]) })
	for _, id := range ids {
		if len(members[id]) < 2 {
			continue
		}
		doc.AddSection("Structure").
			Add("id", e.compositeLabel(id)).
			Add("type", typeCompound).
			AddInt("numStructures", len(members[id])).
			Add("structureIds", strings.Join(members[id], ";"))
	}
	return doc, nil
}

func (e *exporter) compositeLabel(id string) string {
	return label(e.composites[id].Name, id)
}

func (e *exporter) definitionLabel(id *string) (string, error) {
	if id == nil || *id == "" {
		return "", fmt.Errorf("missing cross-section definition")
	}
	def, ok := e.view.FindCrossSectionDefinition(*id)
	if !ok {
		return "", fmt.Errorf("%w: definition %s", domain.ErrNotFound, *id)
	}
	return label(def.Name, def.ID), nil
}

func (e *exporter) writeStructure(s *ini.Section, st domain.Structure) error {
	if err := st.CheckPayload(); err != nil {
		return err
	}
	switch st.Kind {
	case domain.StructureWeir:
		writeWeir(s, *st.Weir)
	case domain.StructureCulvert:
		return e.writeCulvert(s, st)
	case domain.StructureBridge:
		return e.writeBridge(s, st)
	case domain.StructurePump:
		writePump(s, *st.Pump)
	case domain.StructureGate:
		g := st.Gate
		s.Add("type", typeGate).
			AddFloat("crestLevel", g.SillLevel).
			AddFloat("crestWidth", g.SillWidth).
			AddFloat("gateLowerEdgeLevel", g.LowerEdgeLevel).
			AddFloat("gateHeight", g.DoorHeight).
			AddFloat("gateOpeningWidth", g.OpeningWidth).
			Add("gateOpeningHorizontalDirection", string(g.OpeningDirection))
	default:
		return fmt.Errorf("unknown structure kind %q", st.Kind)
	}
	return nil
}

func flowDir(d domain.FlowDirection) string {
	if d == "" {
		return string(domain.FlowBoth)
	}
	return string(d)
}

func writeWeir(s *ini.Section, w domain.Weir) {
	switch f := w.Formula.(type) {
	case domain.RiverWeirFormula:
		s.Add("type", typeRiver).AddFloat("crestLevel", w.CrestLevel).AddFloat("crestWidth", w.CrestWidth).
			AddFloat("posCwCoef", f.CorrectionCoefficientPos).AddFloat("posSlimLimit", f.SubmergeLimitPos).
			AddFloat("negCwCoef", f.CorrectionCoefficientNeg).AddFloat("negSlimLimit", f.SubmergeLimitNeg)
		writeTable(s, "posSf", "posRed", f.ReductionPos)
		writeTable(s, "negSf", "negRed", f.ReductionNeg)
	case domain.PierWeirFormula:
		s.Add("type", typeAdvanced).AddFloat("crestLevel", w.CrestLevel).AddFloat("crestWidth", w.CrestWidth).
			AddInt("npiers", f.NumberOfPiers).
			AddFloat("posHeight", f.UpstreamFacePos).AddFloat("negHeight", f.UpstreamFaceNeg).
			AddFloat("posDesignHead", f.DesignHeadPos).AddFloat("negDesignHead", f.DesignHeadNeg).
			AddFloat("posPierContractCoef", f.PierContractionPos).AddFloat("negPierContractCoef", f.PierContractionNeg).
			AddFloat("posAbutContrCoef", f.AbutmentContractionPos).AddFloat("negAbutContrCoef", f.AbutmentContractionNeg)
	case domain.GatedWeirFormula:
		s.Add("type", typeOrifice).AddFloat("crestLevel", w.CrestLevel).AddFloat("crestWidth", w.CrestWidth).
			AddFloat("gateLowerEdgeLevel", w.CrestLevel+f.GateOpening).
			AddFloat("corrCoeff", f.ContractionCoefficient).AddFloat("latContrCoeff", f.LateralContraction).
			AddBool("useLimitFlowPos", f.UseMaxFlowPos).AddFloat("limitFlowPos", f.MaxFlowPos).
			AddBool("useLimitFlowNeg", f.UseMaxFlowNeg).AddFloat("limitFlowNeg", f.MaxFlowNeg)
	case domain.GeneralStructureFormula:
		s.Add("type", typeGeneral).
			AddFloat("upstream2Width", f.Upstream2Width).AddFloat("upstream1Width", f.Upstream1Width).
			AddFloat("crestWidth", f.CrestWidth).
			AddFloat("downstream1Width", f.Downstream1Width).AddFloat("downstream2Width", f.Downstream2Width).
			AddFloat("upstream2Level", f.Upstream2Level).AddFloat("upstream1Level", f.Upstream1Level).
			AddFloat("crestLevel", f.CrestLevel).
			AddFloat("downstream1Level", f.Downstream1Level).AddFloat("downstream2Level", f.Downstream2Level).
			AddBool("useGate", f.UseGate).AddFloat("gateOpening", f.GateOpening).
			AddFloat("extraResistance", f.ExtraResistance)
	default:
		coeff, contraction := 1.0, 1.0
		if simple, ok := w.Formula.(domain.SimpleWeirFormula); ok {
			coeff, contraction = simple.DischargeCoefficient, simple.LateralContraction
		}
		s.Add("type", typeWeir).AddFloat("crestLevel", w.CrestLevel).AddFloat("crestWidth", w.CrestWidth).
			AddFloat("corrCoeff", coeff).AddFloat("latContrCoeff", contraction)
	}
	s.AddFloat("crestLength", w.CrestLength).AddFloat("offsetY", w.OffsetY)
	if w.CrestShape != "" {
		s.Add("crestShape", string(w.CrestShape))
	}
	if _, general := w.Formula.(domain.GeneralStructureFormula); !general {
		s.Add("allowedFlowDir", flowDir(w.FlowDirection))
	}
}

func writeTable(s *ini.Section, argKey, valueKey string, table []domain.TablePoint) {
	if len(table) == 0 {
		return
	}
	args, values := make([]float64, len(table)), make([]float64, len(table))
	for i, p := range table {
		args[i], values[i] = p.Arg, p.Value
	}
	s.AddInt(argKey+"Count", len(table)).AddFloats(argKey, args).AddFloats(valueKey, values)
}

func (e *exporter) writeCulvert(s *ini.Section, st domain.Structure) error {
	c := st.Culvert
	var defID string
	if shape, ok := c.Shape(); ok {
		defID = label(st.Name, st.ID) + "_profile"
		e.generated[defID] = generatedProfile{shape: shape, source: "culvert " + label(st.Name, st.ID)}
	} else {
		id, err := e.definitionLabel(c.TabulatedDefinitionID)
		if err != nil {
			return err
		}
		defID = id
	}
	s.Add("type", typeCulvert).
		Add("subType", culvertSubTypes[c.SubType]).
		Add("allowedFlowDir", flowDir(c.FlowDirection)).
		AddFloat("leftLevel", c.InletLevel).
		AddFloat("rightLevel", c.OutletLevel).
		Add("csDefId", defID).
		AddFloat("length", c.Length).
		AddFloat("inletLossCoeff", c.InletLossCoefficient).
		AddFloat("outletLossCoeff", c.OutletLossCoefficient).
		AddBool("valveOnOff", c.IsGated).
		AddFloat("valveOpeningHeight", c.GateInitialOpening).
		Add("bedFrictionType", frictionName(c.FrictionType)).
		AddFloat("bedFriction", c.Friction)
	if c.IsSiphon() {
		s.AddFloat("bendLossCoeff", c.BendLossCoefficient).
			AddFloat("turnOnLevel", c.SiphonOnLevel).
			AddFloat("turnOffLevel", c.SiphonOffLevel)
	}
	return nil
}

func (e *exporter) writeBridge(s *ini.Section, st domain.Structure) error {
	b := st.Bridge
	var defID string
	if b.Shape == domain.BridgeRectangle || b.Shape == "" {
		defID = label(st.Name, st.ID) + "_profile"
		e.generated[defID] = generatedProfile{
			shape:  domain.StandardShape{Type: domain.ShapeRectangle, Width: b.Width, Height: b.Height},
			source: "bridge " + label(st.Name, st.ID),
		}
	} else {
		id, err := e.definitionLabel(b.CrossSectionDefinitionID)
		if err != nil {
			return err
		}
		defID = id
	}
	s.Add("type", typeBridge).
		Add("allowedFlowDir", flowDir(b.FlowDirection)).
		Add("csDefId", defID).
		AddFloat("shift", b.Shift).
		AddFloat("length", b.Length).
		AddFloat("inletLossCoeff", b.InletLossCoefficient).
		AddFloat("outletLossCoeff", b.OutletLossCoefficient).
		Add("frictionType", frictionName(b.FrictionType)).
		AddFloat("friction", b.Friction)
	return nil
}

func writePump(s *ini.Section, p domain.Pump) {
	orientation := "negative"
	if p.DirectionIsPositive {
		orientation = "positive"
	}
	s.Add("type", typePump).
		Add("orientation", orientation).
		Add("controlSide", controlSides[p.ControlDirection]).
		AddInt("numStages", 1).
		AddFloat("capacity", p.Capacity)
	if p.UsesSuction() {
		s.AddFloat("startLevelSuctionSide", p.StartSuction).AddFloat("stopLevelSuctionSide", p.StopSuction)
	}
	if p.UsesDelivery() {
		s.AddFloat("startLevelDeliverySide", p.StartDelivery).AddFloat("stopLevelDeliverySide", p.StopDelivery)
	}
	if len(p.ReductionTable) > 0 {
		heads, factors := make([]float64, len(p.ReductionTable)), make([]float64, len(p.ReductionTable))
		for i, r := range p.ReductionTable {
			heads[i], factors[i] = r.Arg, r.Value
		}
		s.AddInt("numReductionLevels", len(heads)).AddFloats("head", heads).AddFloats("reductionFactor", factors)
	}
}
