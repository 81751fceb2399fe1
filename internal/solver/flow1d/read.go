package flow1d

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"hydrocore/internal/solver/ini"
	"hydrocore/pkg/domain"
)

// ErrUnknownStructureType is wrapped for structure types the reader does not map.
var ErrUnknownStructureType = errors.New("unknown structure type")

// ReadStructures parses a structures file. BranchID holds the file's branch
// label and CompositeID the compound id; both must be resolved by the caller
// against a model. Profile references of culverts and bridges are not
// resolved: tabulated culverts and non-rectangular bridges keep the csDefId
// as their definition reference.
func ReadStructures(r io.Reader) ([]domain.Structure, error) {
	doc, err := ini.Parse(r)
	if err != nil {
		return nil, err
	}
	var out []domain.Structure
	index := make(map[string]int)
	var compounds []*ini.Section
	for _, s := range doc.Find("Structure") {
		typ := s.Value("type")
		if strings.EqualFold(typ, typeCompound) {
			compounds = append(compounds, s)
			continue
		}
		st, err := readStructure(s, typ)
		if err != nil {
			return nil, fmt.Errorf("structure %s: %w", s.Value("id"), err)
		}
		index[s.Value("id")] = len(out)
		out = append(out, st)
	}
	for _, c := range compounds {
		for _, id := range strings.Split(c.Value("structureIds"), ";") {
			i, ok := index[strings.TrimSpace(id)]
			if !ok {
				return nil, fmt.Errorf("compound %s: %w: structure %s", c.Value("id"), domain.ErrNotFound, id)
			}
			out[i].CompositeID = c.Value("id")
		}
	}
	return out, nil
}

// fields collects parse errors so each reader can stay linear.
type fields struct {
	s   *ini.Section
	err error
}

func (f *fields) float(key string) float64 {
	v, err := f.s.FloatOr(key, 0)
	if err != nil && f.err == nil {
		f.err = err
	}
	return v
}

func (f *fields) int(key string) int {
	if _, ok := f.s.Get(key); !ok {
		return 0
	}
	v, err := f.s.Int(key)
	if err != nil && f.err == nil {
		f.err = err
	}
	return v
}

func (f *fields) table(argKey, valueKey string) []domain.TablePoint {
	args, err := f.s.Floats(argKey)
	if err != nil && f.err == nil {
		f.err = err
	}
	values, err := f.s.Floats(valueKey)
	if err != nil && f.err == nil {
		f.err = err
	}
	if len(args) != len(values) && f.err == nil {
		f.err = fmt.Errorf("%s and %s differ in length", argKey, valueKey)
	}
	if len(args) == 0 || len(args) != len(values) {
		return nil
	}
	out := make([]domain.TablePoint, len(args))
	for i := range args {
		out[i] = domain.TablePoint{Arg: args[i], Value: values[i]}
	}
	return out
}

func readStructure(s *ini.Section, typ string) (domain.Structure, error) {
	f := &fields{s: s}
	name := s.Value("name")
	if name == "" {
		name = s.Value("id")
	}
	st := domain.Structure{Name: name, BranchID: s.Value("branchId"), Chainage: f.float("chainage")}
	dir := domain.FlowDirection(s.Value("allowedFlowDir"))
	weir := func(formula domain.WeirFormula) {
		st.Kind = domain.StructureWeir
		st.Weir = &domain.Weir{
			CrestLevel:    f.float("crestLevel"),
			CrestWidth:    f.float("crestWidth"),
			CrestLength:   f.float("crestLength"),
			CrestShape:    domain.CrestShape(s.Value("crestShape")),
			OffsetY:       f.float("offsetY"),
			FlowDirection: dir,
			Formula:       formula,
		}
	}
	switch typ {
	case typeWeir:
		weir(domain.SimpleWeirFormula{DischargeCoefficient: f.float("corrCoeff"), LateralContraction: f.float("latContrCoeff")})
	case typeRiver:
		weir(domain.RiverWeirFormula{
			CorrectionCoefficientPos: f.float("posCwCoef"),
			CorrectionCoefficientNeg: f.float("negCwCoef"),
			SubmergeLimitPos:         f.float("posSlimLimit"),
			SubmergeLimitNeg:         f.float("negSlimLimit"),
			ReductionPos:             f.table("posSf", "posRed"),
			ReductionNeg:             f.table("negSf", "negRed"),
		})
	case typeAdvanced:
		weir(domain.PierWeirFormula{
			NumberOfPiers:          f.int("npiers"),
			UpstreamFacePos:        f.float("posHeight"),
			UpstreamFaceNeg:        f.float("negHeight"),
			DesignHeadPos:          f.float("posDesignHead"),
			DesignHeadNeg:          f.float("negDesignHead"),
			PierContractionPos:     f.float("posPierContractCoef"),
			PierContractionNeg:     f.float("negPierContractCoef"),
			AbutmentContractionPos: f.float("posAbutContrCoef"),
			AbutmentContractionNeg: f.float("negAbutContrCoef"),
		})
	case typeOrifice:
		weir(domain.GatedWeirFormula{
			GateOpening:            f.float("gateLowerEdgeLevel") - f.float("crestLevel"),
			ContractionCoefficient: f.float("corrCoeff"),
			LateralContraction:     f.float("latContrCoeff"),
			UseMaxFlowPos:          s.Bool("useLimitFlowPos"),
			MaxFlowPos:             f.float("limitFlowPos"),
			UseMaxFlowNeg:          s.Bool("useLimitFlowNeg"),
			MaxFlowNeg:             f.float("limitFlowNeg"),
		})
	case typeGeneral:
		g := domain.GeneralStructureFormula{
			Upstream2Width:   f.float("upstream2Width"),
			Upstream1Width:   f.float("upstream1Width"),
			CrestWidth:       f.float("crestWidth"),
			Downstream1Width: f.float("downstream1Width"),
			Downstream2Width: f.float("downstream2Width"),
			Upstream2Level:   f.float("upstream2Level"),
			Upstream1Level:   f.float("upstream1Level"),
			CrestLevel:       f.float("crestLevel"),
			Downstream1Level: f.float("downstream1Level"),
			Downstream2Level: f.float("downstream2Level"),
			UseGate:          s.Bool("useGate"),
			GateOpening:      f.float("gateOpening"),
			ExtraResistance:  f.float("extraResistance"),
		}
		weir(g)
	case typeCulvert:
		st.Kind = domain.StructureCulvert
		st.Culvert = readCulvert(s, f, dir)
	case typeBridge:
		st.Kind = domain.StructureBridge
		def := s.Value("csDefId")
		st.Bridge = &domain.Bridge{
			Shape:                    domain.BridgeTabulated,
			CrossSectionDefinitionID: &def,
			Shift:                    f.float("shift"),
			Length:                   f.float("length"),
			InletLossCoefficient:     f.float("inletLossCoeff"),
			OutletLossCoefficient:    f.float("outletLossCoeff"),
			FrictionType:             frictionType(s.Value("frictionType")),
			Friction:                 f.float("friction"),
			FlowDirection:            dir,
		}
	case typePump:
		st.Kind = domain.StructurePump
		st.Pump = &domain.Pump{
			Capacity:            f.float("capacity"),
			ControlDirection:    reverse(controlSides, s.Value("controlSide")),
			DirectionIsPositive: strings.EqualFold(s.Value("orientation"), "positive"),
			StartSuction:        f.float("startLevelSuctionSide"),
			StopSuction:         f.float("stopLevelSuctionSide"),
			StartDelivery:       f.float("startLevelDeliverySide"),
			StopDelivery:        f.float("stopLevelDeliverySide"),
			ReductionTable:      f.table("head", "reductionFactor"),
		}
	case typeGate:
		st.Kind = domain.StructureGate
		st.Gate = &domain.Gate{
			SillLevel:        f.float("crestLevel"),
			SillWidth:        f.float("crestWidth"),
			LowerEdgeLevel:   f.float("gateLowerEdgeLevel"),
			DoorHeight:       f.float("gateHeight"),
			OpeningWidth:     f.float("gateOpeningWidth"),
			OpeningDirection: domain.GateOpeningDirection(s.Value("gateOpeningHorizontalDirection")),
		}
	default:
		return domain.Structure{}, fmt.Errorf("%w %q", ErrUnknownStructureType, typ)
	}
	return st, f.err
}

func readCulvert(s *ini.Section, f *fields, dir domain.FlowDirection) *domain.Culvert {
	def := s.Value("csDefId")
	return &domain.Culvert{
		SubType:               reverse(culvertSubTypes, s.Value("subType")),
		GeometryType:          domain.CulvertTabulated,
		TabulatedDefinitionID: &def,
		InletLevel:            f.float("leftLevel"),
		OutletLevel:           f.float("rightLevel"),
		Length:                f.float("length"),
		InletLossCoefficient:  f.float("inletLossCoeff"),
		OutletLossCoefficient: f.float("outletLossCoeff"),
		BendLossCoefficient:   f.float("bendLossCoeff"),
		IsGated:               s.Bool("valveOnOff"),
		GateInitialOpening:    f.float("valveOpeningHeight"),
		SiphonOnLevel:         f.float("turnOnLevel"),
		SiphonOffLevel:        f.float("turnOffLevel"),
		FrictionType:          frictionType(s.Value("bedFrictionType")),
		Friction:              f.float("bedFriction"),
		FlowDirection:         dir,
	}
}

func frictionType(name string) domain.FrictionType {
	return reverse(frictionNames, name)
}

func reverse[K ~string](m map[K]string, value string) K {
	for k, v := range m {
		if strings.EqualFold(v, value) {
			return k
		}
	}
	var zero K
	return zero
}
