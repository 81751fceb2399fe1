package domain

import (
	"fmt"
	"math"
)

// StructureKind enumerates the hydraulic structure types.
type StructureKind string

// Supported structure kinds.
const (
	StructureBridge  StructureKind = "bridge"
	StructureCulvert StructureKind = "culvert"
	StructureWeir    StructureKind = "weir"
	StructurePump    StructureKind = "pump"
	StructureGate    StructureKind = "gate"
)

// FlowDirection restricts the direction in which a structure passes flow.
type FlowDirection string

// Flow directions relative to the branch orientation.
const (
	FlowBoth     FlowDirection = "both"
	FlowPositive FlowDirection = "positive"
	FlowNegative FlowDirection = "negative"
	FlowNone     FlowDirection = "none"
)

// Structure is a hydraulic control object placed on a branch. Exactly one
// of the kind payloads is set and it must match Kind.
type Structure struct {
	Base
	Name        string        `json:"name"`
	Kind        StructureKind `json:"kind"`
	BranchID    string        `json:"branch_id"`
	Chainage    float64       `json:"chainage"`
	CompositeID string        `json:"composite_id"`

	Bridge  *Bridge  `json:"bridge,omitempty"`
	Culvert *Culvert `json:"culvert,omitempty"`
	Weir    *Weir    `json:"weir,omitempty"`
	Pump    *Pump    `json:"pump,omitempty"`
	Gate    *Gate    `json:"gate,omitempty"`
}

// CheckPayload reports an error when the kind payload is missing or when
// more than one payload is populated.
func (s Structure) CheckPayload() error {
	set := 0
	var actual StructureKind
	if s.Bridge != nil {
		set++
		actual = StructureBridge
	}
	if s.Culvert != nil {
		set++
		actual = StructureCulvert
	}
	if s.Weir != nil {
		set++
		actual = StructureWeir
	}
	if s.Pump != nil {
		set++
		actual = StructurePump
	}
	if s.Gate != nil {
		set++
		actual = StructureGate
	}
	switch {
	case set == 0:
		return fmt.Errorf("structure %q has no %s parameters", s.Name, s.Kind)
	case set > 1:
		return fmt.Errorf("structure %q has %d parameter sets, expected one", s.Name, set)
	case actual != s.Kind:
		return fmt.Errorf("structure %q is a %s but carries %s parameters", s.Name, s.Kind, actual)
	}
	return nil
}

// WithDefaultPayload fills the parameters of s.Kind with their defaults when
// no payload is set. Structures that already carry one are returned as is.
func (s Structure) WithDefaultPayload() Structure {
	if s.Bridge != nil || s.Culvert != nil || s.Weir != nil || s.Pump != nil || s.Gate != nil {
		return s
	}
	switch s.Kind {
	case StructureBridge:
		s.Bridge = NewBridge()
	case StructureCulvert:
		s.Culvert = NewCulvert()
	case StructureWeir:
		s.Weir = NewWeir()
	case StructurePump:
		s.Pump = NewPump()
	case StructureGate:
		s.Gate = NewGate()
	}
	return s
}

// BridgeShape enumerates bridge opening representations.
type BridgeShape string

// Bridge opening shapes.
const (
	BridgeRectangle BridgeShape = "rectangle"
	BridgeTabulated BridgeShape = "tabulated"
	BridgeYZ        BridgeShape = "yz"
)

// Bridge describes a bridge opening.
type Bridge struct {
	Shape                    BridgeShape   `json:"shape"`
	Width                    float64       `json:"width"`
	Height                   float64       `json:"height"`
	Shift                    float64       `json:"shift"`
	Length                   float64       `json:"length"`
	InletLossCoefficient     float64       `json:"inlet_loss"`
	OutletLossCoefficient    float64       `json:"outlet_loss"`
	FrictionType             FrictionType  `json:"friction_type"`
	Friction                 float64       `json:"friction"`
	CrossSectionDefinitionID *string       `json:"cross_section_definition_id,omitempty"`
	FlowDirection            FlowDirection `json:"flow_direction"`
}

// NewBridge returns a 1 m by 1 m rectangular opening passing flow both ways.
func NewBridge() *Bridge {
	return &Bridge{
		Shape:                 BridgeRectangle,
		Width:                 1,
		Height:                1,
		Length:                1,
		InletLossCoefficient:  0.5,
		OutletLossCoefficient: 1,
		FrictionType:          FrictionChezy,
		Friction:              45,
		FlowDirection:         FlowBoth,
	}
}

// CulvertSubType distinguishes plain culverts from siphons.
type CulvertSubType string

// Culvert subtypes.
const (
	CulvertPlain          CulvertSubType = "culvert"
	CulvertSiphon         CulvertSubType = "siphon"
	CulvertInvertedSiphon CulvertSubType = "inverted_siphon"
)

// Culvert describes a closed conduit structure. The shape parameters that
// apply depend on GeometryType; see ReadOnlyFields.
type Culvert struct {
	SubType               CulvertSubType `json:"sub_type"`
	GeometryType          ShapeType      `json:"geometry_type"`
	Width                 float64        `json:"width,omitempty"`
	Height                float64        `json:"height,omitempty"`
	Diameter              float64        `json:"diameter,omitempty"`
	ArcHeight             float64        `json:"arc_height,omitempty"`
	BottomWidth           float64        `json:"bottom_width,omitempty"`
	Slope                 float64        `json:"slope,omitempty"`
	TabulatedDefinitionID *string        `json:"tabulated_definition_id,omitempty"`
	InletLevel            float64        `json:"inlet_level"`
	OutletLevel           float64        `json:"outlet_level"`
	Length                float64        `json:"length"`
	InletLossCoefficient  float64        `json:"inlet_loss"`
	OutletLossCoefficient float64        `json:"outlet_loss"`
	BendLossCoefficient   float64        `json:"bend_loss,omitempty"`
	IsGated               bool           `json:"is_gated"`
	GateInitialOpening    float64        `json:"gate_initial_opening,omitempty"`
	SiphonOnLevel         float64        `json:"siphon_on_level,omitempty"`
	SiphonOffLevel        float64        `json:"siphon_off_level,omitempty"`
	FrictionType          FrictionType   `json:"friction_type"`
	Friction              float64        `json:"friction"`
	FlowDirection         FlowDirection  `json:"flow_direction"`
}

// NewCulvert returns a plain round culvert of 1 m diameter and 1 m length.
func NewCulvert() *Culvert {
	return &Culvert{
		SubType:               CulvertPlain,
		GeometryType:          ShapeRound,
		Diameter:              1,
		Length:                1,
		InletLossCoefficient:  0.5,
		OutletLossCoefficient: 1,
		FrictionType:          FrictionChezy,
		Friction:              45,
		FlowDirection:         FlowBoth,
	}
}

// IsSiphon reports whether the culvert behaves as a (inverted) siphon.
func (c Culvert) IsSiphon() bool {
	return c.SubType == CulvertSiphon || c.SubType == CulvertInvertedSiphon
}

// Shape returns the standard shape equivalent of the culvert geometry. It
// returns false for tabulated culverts, whose profile is a definition reference.
func (c Culvert) Shape() (StandardShape, bool) {
	if c.GeometryType == "" || c.GeometryType == CulvertTabulated {
		return StandardShape{}, false
	}
	return StandardShape{
		Type:        c.GeometryType,
		Width:       c.Width,
		Height:      c.Height,
		Diameter:    c.Diameter,
		ArcHeight:   c.ArcHeight,
		BottomWidth: c.BottomWidth,
		Slope:       c.Slope,
		Closed:      true,
	}, true
}

// CulvertTabulated marks a culvert whose profile comes from a cross-section definition.
const CulvertTabulated ShapeType = "tabulated"

// CrestShape enumerates weir crest shapes.
type CrestShape string

// Weir crest shapes.
const (
	CrestBroad      CrestShape = "broad"
	CrestSharp      CrestShape = "sharp"
	CrestRound      CrestShape = "round"
	CrestTriangular CrestShape = "triangular"
)

// Weir describes a fixed or movable crest. Formula selects the discharge
// relation used by the engine.
type Weir struct {
	CrestLevel    float64       `json:"crest_level"`
	CrestWidth    float64       `json:"crest_width"`
	CrestLength   float64       `json:"crest_length"`
	CrestShape    CrestShape    `json:"crest_shape"`
	FlowDirection FlowDirection `json:"flow_direction"`
	OffsetY       float64       `json:"offset_y"`
	Formula       WeirFormula   `json:"-"`
}

// NewWeir returns a broad crested weir of 5 m width using the simple formula
// with unit discharge coefficient and lateral contraction.
func NewWeir() *Weir {
	return &Weir{
		CrestWidth:    5,
		CrestShape:    CrestBroad,
		FlowDirection: FlowBoth,
		Formula:       SimpleWeirFormula{DischargeCoefficient: 1, LateralContraction: 1},
	}
}

// Footprint returns the interval along the branch covered by the crest.
func (w Weir) Footprint(chainage float64) (float64, float64) {
	half := math.Max(w.CrestLength, 0) / 2
	return chainage - half, chainage + half
}

// PumpControlDirection selects which water level(s) switch the pump.
type PumpControlDirection string

// Pump control directions.
const (
	PumpSuctionSide  PumpControlDirection = "suction_side"
	PumpDeliverySide PumpControlDirection = "delivery_side"
	PumpBothSides    PumpControlDirection = "both_sides"
)

// Pump describes a pumping station. Start/stop levels are switch levels on
// the suction and delivery sides.
type Pump struct {
	Capacity            float64              `json:"capacity"`
	ControlDirection    PumpControlDirection `json:"control_direction"`
	DirectionIsPositive bool                 `json:"direction_is_positive"`
	StartSuction        float64              `json:"start_suction"`
	StopSuction         float64              `json:"stop_suction"`
	StartDelivery       float64              `json:"start_delivery"`
	StopDelivery        float64              `json:"stop_delivery"`
	ReductionTable      []TablePoint         `json:"reduction_table,omitempty"`
}

// NewPump returns a suction side controlled pump pumping in the branch
// direction.
func NewPump() *Pump {
	return &Pump{
		Capacity:            1,
		ControlDirection:    PumpSuctionSide,
		DirectionIsPositive: true,
		StartSuction:        1,
		StopSuction:         0,
		StartDelivery:       0,
		StopDelivery:        1,
	}
}

// UsesSuction reports whether suction-side levels control the pump.
func (p Pump) UsesSuction() bool {
	return p.ControlDirection == PumpSuctionSide || p.ControlDirection == PumpBothSides
}

// UsesDelivery reports whether delivery-side levels control the pump.
func (p Pump) UsesDelivery() bool {
	return p.ControlDirection == PumpDeliverySide || p.ControlDirection == PumpBothSides
}

// GateOpeningDirection enumerates horizontal gate door movement.
type GateOpeningDirection string

// Horizontal gate opening directions.
const (
	GateSymmetric GateOpeningDirection = "symmetric"
	GateFromLeft  GateOpeningDirection = "from_left"
	GateFromRight GateOpeningDirection = "from_right"
)

// Gate describes a vertical/horizontal sluice gate.
type Gate struct {
	SillLevel        float64              `json:"sill_level"`
	SillWidth        float64              `json:"sill_width"`
	LowerEdgeLevel   float64              `json:"lower_edge_level"`
	OpeningWidth     float64              `json:"opening_width"`
	DoorHeight       float64              `json:"door_height"`
	OpeningDirection GateOpeningDirection `json:"opening_direction"`
}

// NewGate returns a symmetric gate with a 1 m door resting on its sill.
func NewGate() *Gate {
	return &Gate{
		SillWidth:        1,
		OpeningWidth:     1,
		DoorHeight:       1,
		OpeningDirection: GateSymmetric,
	}
}

func distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}
