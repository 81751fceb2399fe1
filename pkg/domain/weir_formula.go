package domain

import (
	"encoding/json"
	"fmt"
)

// WeirFormulaKind identifies a weir discharge formulation.
type WeirFormulaKind string

// Supported weir formulas.
const (
	FormulaSimple  WeirFormulaKind = "simple"
	FormulaRiver   WeirFormulaKind = "river"
	FormulaPier    WeirFormulaKind = "pier"
	FormulaGated   WeirFormulaKind = "gated"
	FormulaGeneral WeirFormulaKind = "general_structure"
)

// WeirFormula is the pluggable discharge relation of a weir.
type WeirFormula interface {
	Kind() WeirFormulaKind
	// IsGated reports whether the formula models a gate above the crest.
	IsGated() bool
	// HasFlowDirection reports whether the weir's flow direction setting applies.
	HasFlowDirection() bool
	// Problems lists parameter inconsistencies.
	Problems() []string
	cloneFormula() WeirFormula
}

// SimpleWeirFormula is the standard free/submerged weir relation.
type SimpleWeirFormula struct {
	DischargeCoefficient float64 `json:"discharge_coefficient"`
	LateralContraction   float64 `json:"lateral_contraction"`
}

func (SimpleWeirFormula) Kind() WeirFormulaKind  { return FormulaSimple }
func (SimpleWeirFormula) IsGated() bool          { return false }
func (SimpleWeirFormula) HasFlowDirection() bool { return true }

func (f SimpleWeirFormula) Problems() []string {
	var out []string
	if f.DischargeCoefficient <= 0 {
		out = append(out, "discharge coefficient must be positive")
	}
	if f.LateralContraction <= 0 || f.LateralContraction > 1 {
		out = append(out, "lateral contraction must be in (0, 1]")
	}
	return out
}

func (f SimpleWeirFormula) cloneFormula() WeirFormula { return f }

// RiverWeirFormula applies separate correction and submergence settings per direction.
type RiverWeirFormula struct {
	CorrectionCoefficientPos float64      `json:"correction_coefficient_pos"`
	CorrectionCoefficientNeg float64      `json:"correction_coefficient_neg"`
	SubmergeLimitPos         float64      `json:"submerge_limit_pos"`
	SubmergeLimitNeg         float64      `json:"submerge_limit_neg"`
	ReductionPos             []TablePoint `json:"reduction_pos,omitempty"`
	ReductionNeg             []TablePoint `json:"reduction_neg,omitempty"`
}

func (RiverWeirFormula) Kind() WeirFormulaKind  { return FormulaRiver }
func (RiverWeirFormula) IsGated() bool          { return false }
func (RiverWeirFormula) HasFlowDirection() bool { return true }

func (f RiverWeirFormula) Problems() []string {
	var out []string
	for _, lim := range []struct {
		name  string
		value float64
	}{{"positive submerge limit", f.SubmergeLimitPos}, {"negative submerge limit", f.SubmergeLimitNeg}} {
		if lim.value <= 0 || lim.value > 1 {
			out = append(out, fmt.Sprintf("%s must be in (0, 1]", lim.name))
		}
	}
	if !increasingArgs(f.ReductionPos) || !increasingArgs(f.ReductionNeg) {
		out = append(out, "submergence reduction tables must have increasing arguments")
	}
	return out
}

func (f RiverWeirFormula) cloneFormula() WeirFormula {
	f.ReductionPos = append([]TablePoint(nil), f.ReductionPos...)
	f.ReductionNeg = append([]TablePoint(nil), f.ReductionNeg...)
	return f
}

// PierWeirFormula accounts for pier and abutment contraction.
type PierWeirFormula struct {
	NumberOfPiers          int     `json:"number_of_piers"`
	UpstreamFacePos        float64 `json:"upstream_face_pos"`
	UpstreamFaceNeg        float64 `json:"upstream_face_neg"`
	DesignHeadPos          float64 `json:"design_head_pos"`
	DesignHeadNeg          float64 `json:"design_head_neg"`
	PierContractionPos     float64 `json:"pier_contraction_pos"`
	PierContractionNeg     float64 `json:"pier_contraction_neg"`
	AbutmentContractionPos float64 `json:"abutment_contraction_pos"`
	AbutmentContractionNeg float64 `json:"abutment_contraction_neg"`
}

func (PierWeirFormula) Kind() WeirFormulaKind  { return FormulaPier }
func (PierWeirFormula) IsGated() bool          { return false }
func (PierWeirFormula) HasFlowDirection() bool { return true }

func (f PierWeirFormula) Problems() []string {
	var out []string
	if f.NumberOfPiers < 0 {
		out = append(out, "number of piers cannot be negative")
	}
	if f.DesignHeadPos <= 0 || f.DesignHeadNeg <= 0 {
		out = append(out, "design heads must be positive")
	}
	return out
}

func (f PierWeirFormula) cloneFormula() WeirFormula { return f }

// GatedWeirFormula is an orifice: a weir with a gate lowered above the crest.
type GatedWeirFormula struct {
	GateOpening            float64 `json:"gate_opening"`
	ContractionCoefficient float64 `json:"contraction_coefficient"`
	LateralContraction     float64 `json:"lateral_contraction"`
	UseMaxFlowPos          bool    `json:"use_max_flow_pos"`
	MaxFlowPos             float64 `json:"max_flow_pos"`
	UseMaxFlowNeg          bool    `json:"use_max_flow_neg"`
	MaxFlowNeg             float64 `json:"max_flow_neg"`
}

func (GatedWeirFormula) Kind() WeirFormulaKind  { return FormulaGated }
func (GatedWeirFormula) IsGated() bool          { return true }
func (GatedWeirFormula) HasFlowDirection() bool { return true }

func (f GatedWeirFormula) Problems() []string {
	var out []string
	if f.GateOpening < 0 {
		out = append(out, "gate opening cannot be negative")
	}
	if f.ContractionCoefficient <= 0 {
		out = append(out, "contraction coefficient must be positive")
	}
	if f.UseMaxFlowPos && f.MaxFlowPos < 0 {
		out = append(out, "maximum positive flow cannot be negative")
	}
	if f.UseMaxFlowNeg && f.MaxFlowNeg < 0 {
		out = append(out, "maximum negative flow cannot be negative")
	}
	return out
}

func (f GatedWeirFormula) cloneFormula() WeirFormula { return f }

// GeneralStructureFormula describes the upstream/crest/downstream geometry of
// a general structure, optionally with a gate.
type GeneralStructureFormula struct {
	Upstream2Width   float64 `json:"upstream2_width"`
	Upstream1Width   float64 `json:"upstream1_width"`
	CrestWidth       float64 `json:"crest_width"`
	Downstream1Width float64 `json:"downstream1_width"`
	Downstream2Width float64 `json:"downstream2_width"`
	Upstream2Level   float64 `json:"upstream2_level"`
	Upstream1Level   float64 `json:"upstream1_level"`
	CrestLevel       float64 `json:"crest_level"`
	Downstream1Level float64 `json:"downstream1_level"`
	Downstream2Level float64 `json:"downstream2_level"`
	GateOpening      float64 `json:"gate_opening"`
	UseGate          bool    `json:"use_gate"`
	ExtraResistance  float64 `json:"extra_resistance"`
}

func (GeneralStructureFormula) Kind() WeirFormulaKind  { return FormulaGeneral }
func (f GeneralStructureFormula) IsGated() bool        { return f.UseGate }
func (GeneralStructureFormula) HasFlowDirection() bool { return false }

func (f GeneralStructureFormula) Problems() []string {
	var out []string
	widths := []float64{f.Upstream2Width, f.Upstream1Width, f.CrestWidth, f.Downstream1Width, f.Downstream2Width}
	for _, w := range widths {
		if w <= 0 {
			out = append(out, "general structure widths must be positive")
			break
		}
	}
	if f.CrestLevel < f.Upstream1Level || f.CrestLevel < f.Downstream1Level {
		out = append(out, "crest level lies below the adjacent bed levels")
	}
	if f.UseGate && f.GateOpening < 0 {
		out = append(out, "gate opening cannot be negative")
	}
	return out
}

func (f GeneralStructureFormula) cloneFormula() WeirFormula { return f }

// CloneFormula returns an independent copy of f (nil-safe).
func CloneFormula(f WeirFormula) WeirFormula {
	if f == nil {
		return nil
	}
	return f.cloneFormula()
}

func increasingArgs(table []TablePoint) bool {
	for i := 1; i < len(table); i++ {
		if table[i].Arg <= table[i-1].Arg {
			return false
		}
	}
	return true
}

type weirAlias Weir

type formulaEnvelope struct {
	Kind   WeirFormulaKind `json:"kind"`
	Params json.RawMessage `json:"params"`
}

// MarshalJSON encodes the weir with its formula as a tagged union.
func (w Weir) MarshalJSON() ([]byte, error) {
	type payload struct {
		weirAlias
		Formula *formulaEnvelope `json:"formula,omitempty"`
	}
	out := payload{weirAlias: weirAlias(w)}
	if w.Formula != nil {
		raw, err := json.Marshal(w.Formula)
		if err != nil {
			return nil, fmt.Errorf("encode %s formula: %w", w.Formula.Kind(), err)
		}
		out.Formula = &formulaEnvelope{Kind: w.Formula.Kind(), Params: raw}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the weir and resolves its tagged formula.
func (w *Weir) UnmarshalJSON(data []byte) error {
	type payload struct {
		weirAlias
		Formula *formulaEnvelope `json:"formula,omitempty"`
	}
	var aux payload
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*w = Weir(aux.weirAlias)
	if aux.Formula == nil {
		return nil
	}
	formula, err := DecodeWeirFormula(aux.Formula.Kind, aux.Formula.Params)
	if err != nil {
		return err
	}
	w.Formula = formula
	return nil
}

// DecodeWeirFormula builds a formula of the given kind from its JSON parameters.
func DecodeWeirFormula(kind WeirFormulaKind, params json.RawMessage) (WeirFormula, error) {
	var target WeirFormula
	var err error
	decode := func(v any) error {
		if len(params) == 0 {
			return nil
		}
		return json.Unmarshal(params, v)
	}
	switch kind {
	case FormulaSimple:
		var f SimpleWeirFormula
		err = decode(&f)
		target = f
	case FormulaRiver:
		var f RiverWeirFormula
		err = decode(&f)
		target = f
	case FormulaPier:
		var f PierWeirFormula
		err = decode(&f)
		target = f
	case FormulaGated:
		var f GatedWeirFormula
		err = decode(&f)
		target = f
	case FormulaGeneral:
		var f GeneralStructureFormula
		err = decode(&f)
		target = f
	default:
		return nil, fmt.Errorf("unknown weir formula %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s formula: %w", kind, err)
	}
	return target, nil
}
