// Package domain defines the persistent hydraulic network entities, value
// types, and rule evaluation primitives used by hydrocore.
package domain

import (
	"time"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityNode identifies a network node (connection or boundary node).
	EntityNode EntityType = "node"
	// EntityBranch identifies a channel, pipe or sewer connection.
	EntityBranch EntityType = "branch"
	// EntityCrossSectionDefinition identifies a reusable cross-section profile.
	EntityCrossSectionDefinition EntityType = "cross_section_definition"
	// EntityCrossSection identifies a profile placed on a branch.
	EntityCrossSection EntityType = "cross_section"
	// EntityCompositeStructure identifies a container of structures at one location.
	EntityCompositeStructure EntityType = "composite_structure"
	// EntityStructure identifies a bridge, culvert, weir, pump or gate.
	EntityStructure EntityType = "structure"
	// EntityManhole identifies a sewer manhole.
	EntityManhole       EntityType = "manhole"
	EntityBoundary      EntityType = "boundary_condition"
	EntityLateralSource EntityType = "lateral_source"
	EntityLeveeBreach   EntityType = "levee_breach"
	EntitySettings      EntityType = "settings"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Point is a planar coordinate in model units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a connection point between branches. Nodes with exactly one
// connected branch are boundary nodes.
type Node struct {
	Base
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// BranchKind distinguishes open channels from closed conduits.
type BranchKind string

// Branch kinds.
const (
	BranchChannel         BranchKind = "channel"
	BranchPipe            BranchKind = "pipe"
	BranchSewerConnection BranchKind = "sewer_connection"
)

// Branch connects two nodes. Pipes and sewer connections may additionally
// reference manhole compartments at either end.
type Branch struct {
	Base
	Name           string     `json:"name"`
	Kind           BranchKind `json:"kind"`
	SourceNodeID   string     `json:"source_node_id"`
	TargetNodeID   string     `json:"target_node_id"`
	Length         float64    `json:"length"`
	IsLengthCustom bool       `json:"is_length_custom"`
	Geometry       []Point    `json:"geometry,omitempty"`
	OrderNumber    int        `json:"order_number"`

	SourceCompartment        string  `json:"source_compartment,omitempty"`
	TargetCompartment        string  `json:"target_compartment,omitempty"`
	LevelSource              float64 `json:"level_source,omitempty"`
	LevelTarget              float64 `json:"level_target,omitempty"`
	CrossSectionDefinitionID *string `json:"cross_section_definition_id,omitempty"`
}

// GeometryLength returns the polyline length of the branch geometry.
func (b Branch) GeometryLength() float64 {
	var total float64
	for i := 1; i < len(b.Geometry); i++ {
		total += distance(b.Geometry[i-1], b.Geometry[i])
	}
	return total
}

// EffectiveLength returns the custom length when set, otherwise the
// geometric length, falling back to the stored length for geometry-less branches.
func (b Branch) EffectiveLength() float64 {
	if b.IsLengthCustom || len(b.Geometry) < 2 {
		return b.Length
	}
	return b.GeometryLength()
}

// CrossSectionKind enumerates the profile representations.
type CrossSectionKind string

// Cross-section definition kinds.
const (
	CrossSectionZW       CrossSectionKind = "zw"
	CrossSectionYZ       CrossSectionKind = "yz"
	CrossSectionStandard CrossSectionKind = "standard"
)

// ZWRow is a level/width pair in a tabulated profile.
type ZWRow struct {
	Level      float64 `json:"level"`
	FlowWidth  float64 `json:"flow_width"`
	TotalWidth float64 `json:"total_width"`
}

// YZPoint is a lateral offset/bed level pair in a YZ profile.
type YZPoint struct {
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ShapeType enumerates standard closed and open profile shapes.
type ShapeType string

// Standard shapes shared by cross sections, culverts and bridges.
const (
	ShapeRectangle   ShapeType = "rectangle"
	ShapeRound       ShapeType = "round"
	ShapeEgg         ShapeType = "egg"
	ShapeInvertedEgg ShapeType = "inverted_egg"
	ShapeElliptical  ShapeType = "elliptical"
	ShapeArch        ShapeType = "arch"
	ShapeTrapezium   ShapeType = "trapezium"
	ShapeCunette     ShapeType = "cunette"
)

// StandardShape holds the parameters of a parameterised profile. Which
// parameters apply depends on Type.
type StandardShape struct {
	Type        ShapeType `json:"type"`
	Width       float64   `json:"width,omitempty"`
	Height      float64   `json:"height,omitempty"`
	Diameter    float64   `json:"diameter,omitempty"`
	ArcHeight   float64   `json:"arc_height,omitempty"`
	BottomWidth float64   `json:"bottom_width,omitempty"`
	Slope       float64   `json:"slope,omitempty"`
	Closed      bool      `json:"closed,omitempty"`
}

// FrictionType enumerates roughness formulations.
type FrictionType string

// Supported friction formulations.
const (
	FrictionChezy          FrictionType = "chezy"
	FrictionManning        FrictionType = "manning"
	FrictionStricklerKn    FrictionType = "strickler_kn"
	FrictionStricklerKs    FrictionType = "strickler_ks"
	FrictionWhiteColebrook FrictionType = "white_colebrook"
)

// CrossSectionDefinition is a reusable profile.
type CrossSectionDefinition struct {
	Base
	Name          string           `json:"name"`
	Kind          CrossSectionKind `json:"kind"`
	ZW            []ZWRow          `json:"zw,omitempty"`
	YZ            []YZPoint        `json:"yz,omitempty"`
	Shape         *StandardShape   `json:"shape,omitempty"`
	Thalweg       float64          `json:"thalweg"`
	FrictionType  FrictionType     `json:"friction_type,omitempty"`
	FrictionValue float64          `json:"friction_value,omitempty"`
}

// CrossSection places a definition on a branch.
type CrossSection struct {
	Base
	Name         string  `json:"name"`
	BranchID     string  `json:"branch_id"`
	Chainage     float64 `json:"chainage"`
	DefinitionID string  `json:"definition_id"`
	Shift        float64 `json:"shift"`
}

// CompositeStructure groups the structures located at one branch chainage.
// The composite owns the chainage; member structures mirror it.
type CompositeStructure struct {
	Base
	Name         string   `json:"name"`
	BranchID     string   `json:"branch_id"`
	Chainage     float64  `json:"chainage"`
	StructureIDs []string `json:"structure_ids"`
}

// SetChainage assigns the composite chainage and propagates it to children.
func (c *CompositeStructure) SetChainage(chainage float64, children []*Structure) {
	c.Chainage = chainage
	for _, child := range children {
		if child == nil {
			continue
		}
		child.Chainage = chainage
		child.BranchID = c.BranchID
	}
}

// CompartmentShape enumerates manhole compartment plan shapes.
type CompartmentShape string

// Compartment shapes.
const (
	CompartmentSquare CompartmentShape = "square"
	CompartmentRound  CompartmentShape = "round"
)

// StorageType defines how water above the surface level is treated.
type StorageType string

// Compartment storage types.
const (
	StorageReservoir StorageType = "reservoir"
	StorageClosed    StorageType = "closed"
	StorageLoss      StorageType = "loss"
)

// Compartment is a chamber within a manhole.
type Compartment struct {
	Name          string           `json:"name"`
	Shape         CompartmentShape `json:"shape"`
	Width         float64          `json:"width"`
	Length        float64          `json:"length"`
	BottomLevel   float64          `json:"bottom_level"`
	SurfaceLevel  float64          `json:"surface_level"`
	FloodableArea float64          `json:"floodable_area"`
	StorageType   StorageType      `json:"storage_type"`
}

// Manhole is a sewer network node owning one or more compartments.
type Manhole struct {
	Base
	Name         string        `json:"name"`
	NodeID       string        `json:"node_id"`
	X            float64       `json:"x"`
	Y            float64       `json:"y"`
	Compartments []Compartment `json:"compartments"`
}

// Compartment returns the named compartment.
func (m Manhole) Compartment(name string) (Compartment, bool) {
	for _, c := range m.Compartments {
		if c.Name == name {
			return c, true
		}
	}
	return Compartment{}, false
}

// BoundaryKind enumerates boundary condition data types.
type BoundaryKind string

// Boundary kinds. Suffix _t denotes a time series; q_h is a discharge-level table.
const (
	BoundaryNone BoundaryKind = "none"
	BoundaryH    BoundaryKind = "h"
	BoundaryHT   BoundaryKind = "h_t"
	BoundaryQ    BoundaryKind = "q"
	BoundaryQT   BoundaryKind = "q_t"
	BoundaryQH   BoundaryKind = "q_h"
)

// Interpolation enumerates time series interpolation.
type Interpolation string

// Interpolation types.
const (
	InterpolationLinear Interpolation = "linear"
	InterpolationBlock  Interpolation = "block"
)

// Extrapolation enumerates time series extrapolation beyond the last point.
type Extrapolation string

// Extrapolation types.
const (
	ExtrapolationNone     Extrapolation = "none"
	ExtrapolationConstant Extrapolation = "constant"
	ExtrapolationPeriodic Extrapolation = "periodic"
)

// TimeValue is a single time series sample.
type TimeValue struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// TablePoint is an argument/value pair, used for Q(h) tables and pump reduction tables.
type TablePoint struct {
	Arg   float64 `json:"arg"`
	Value float64 `json:"value"`
}

// BoundaryCondition attaches flow (and optionally water quality) forcing to a node.
type BoundaryCondition struct {
	Base
	Name           string             `json:"name"`
	NodeID         string             `json:"node_id"`
	Kind           BoundaryKind       `json:"kind"`
	Value          float64            `json:"value"`
	TimeSeries     []TimeValue        `json:"time_series,omitempty"`
	Table          []TablePoint       `json:"table,omitempty"`
	Interpolation  Interpolation      `json:"interpolation,omitempty"`
	Extrapolation  Extrapolation      `json:"extrapolation,omitempty"`
	Concentrations map[string]float64 `json:"concentrations,omitempty"`
}

// LateralKind enumerates lateral source data types.
type LateralKind string

// Lateral source kinds.
const (
	LateralQ  LateralKind = "q"
	LateralQT LateralKind = "q_t"
	LateralQH LateralKind = "q_h"
)

// LateralSource injects discharge along a branch.
type LateralSource struct {
	Base
	Name       string       `json:"name"`
	BranchID   string       `json:"branch_id"`
	Chainage   float64      `json:"chainage"`
	Length     float64      `json:"length"`
	Kind       LateralKind  `json:"kind"`
	Value      float64      `json:"value"`
	TimeSeries []TimeValue  `json:"time_series,omitempty"`
	Table      []TablePoint `json:"table,omitempty"`
}

// BreachGrowthFormula enumerates levee breach growth models.
type BreachGrowthFormula string

// Breach growth formulas.
const (
	BreachVerheijVdKnaap2002 BreachGrowthFormula = "verheij_vdknaap_2002"
	BreachUserDefined        BreachGrowthFormula = "user_defined"
)

// BreachStep is a row of a user-defined breach growth table.
type BreachStep struct {
	Offset     time.Duration `json:"offset"`
	Width      float64       `json:"width"`
	CrestLevel float64       `json:"crest_level"`
}

// LeveeBreach describes a dike breach location and its growth.
type LeveeBreach struct {
	Base
	Name                 string              `json:"name"`
	BranchID             *string             `json:"branch_id,omitempty"`
	X                    float64             `json:"x"`
	Y                    float64             `json:"y"`
	Formula              BreachGrowthFormula `json:"formula"`
	StartTime            time.Time           `json:"start_time"`
	PeriodToReachZmin    time.Duration       `json:"period_to_reach_zmin"`
	InitialCrestLevel    float64             `json:"initial_crest_level"`
	MinimumCrestLevel    float64             `json:"minimum_crest_level"`
	InitialBreachWidth   float64             `json:"initial_breach_width"`
	Factor1              float64             `json:"f1"`
	Factor2              float64             `json:"f2"`
	CriticalFlowVelocity float64             `json:"critical_flow_velocity"`
	UserDefined          []BreachStep        `json:"user_defined,omitempty"`
}

// WaveCoupling configures online coupling between the flow and wave engines.
type WaveCoupling struct {
	Enabled          bool          `json:"enabled"`
	CouplingInterval time.Duration `json:"coupling_interval"`
	WaveTimeStep     time.Duration `json:"wave_time_step"`
	WaveToFlow       bool          `json:"wave_to_flow"`
	FlowToWave       bool          `json:"flow_to_wave"`
}

// WaterQuality configures the water-quality engine.
type WaterQuality struct {
	Enabled        bool               `json:"enabled"`
	Substances     []string           `json:"substances,omitempty"`
	Processes      []string           `json:"processes,omitempty"`
	Parameters     map[string]float64 `json:"parameters,omitempty"`
	InitialValues  map[string]float64 `json:"initial_values,omitempty"`
	OutputTimeStep time.Duration      `json:"output_time_step"`
	OutputNodeIDs  []string           `json:"output_node_ids,omitempty"`
}

// SettingsID is the fixed identifier of the single settings record.
const SettingsID = "settings"

// Settings holds model-wide simulation settings.
type Settings struct {
	Base
	Start        time.Time     `json:"start"`
	Stop         time.Time     `json:"stop"`
	TimeStep     time.Duration `json:"time_step"`
	Wave         WaveCoupling  `json:"wave"`
	WaterQuality WaterQuality  `json:"water_quality"`
}

// Duration returns the simulation period.
func (s Settings) Duration() time.Duration {
	return s.Stop.Sub(s.Start)
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in the change log.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)
