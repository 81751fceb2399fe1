package modelfile

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// hclFile splits variable declarations from the model body so variables can
// be resolved before the body is evaluated.
type hclFile struct {
	Variables []*variableBlock `hcl:"variable,block"`
	Remain    hcl.Body         `hcl:",remain"`
}

type variableBlock struct {
	Name        string    `hcl:"name,label"`
	Default     cty.Value `hcl:"default,optional"`
	Description string    `hcl:"description,optional"`
}

type modelBody struct {
	Settings      *settingsBlock       `hcl:"settings,block"`
	Nodes         []*nodeBlock         `hcl:"node,block"`
	Branches      []*branchBlock       `hcl:"branch,block"`
	Definitions   []*definitionBlock   `hcl:"definition,block"`
	CrossSections []*crossSectionBlock `hcl:"cross_section,block"`
	Weirs         []*weirBlock         `hcl:"weir,block"`
	Culverts      []*culvertBlock      `hcl:"culvert,block"`
	Bridges       []*bridgeBlock       `hcl:"bridge,block"`
	Pumps         []*pumpBlock         `hcl:"pump,block"`
	Gates         []*gateBlock         `hcl:"gate,block"`
	Boundaries    []*boundaryBlock     `hcl:"boundary,block"`
	Laterals      []*lateralBlock      `hcl:"lateral,block"`
}

type settingsBlock struct {
	Start        string             `hcl:"start"`
	Stop         string             `hcl:"stop"`
	TimeStep     string             `hcl:"time_step"`
	WaterQuality *waterQualityBlock `hcl:"water_quality,block"`
	Wave         *waveBlock         `hcl:"wave,block"`
}

type waterQualityBlock struct {
	Enabled        bool               `hcl:"enabled,optional"`
	Substances     []string           `hcl:"substances,optional"`
	Processes      []string           `hcl:"processes,optional"`
	Parameters     map[string]float64 `hcl:"parameters,optional"`
	InitialValues  map[string]float64 `hcl:"initial_values,optional"`
	OutputTimeStep string             `hcl:"output_time_step,optional"`
	OutputNodes    []string           `hcl:"output_nodes,optional"`
}

type waveBlock struct {
	Enabled          bool   `hcl:"enabled,optional"`
	CouplingInterval string `hcl:"coupling_interval,optional"`
	WaveTimeStep     string `hcl:"wave_time_step,optional"`
	WaveToFlow       bool   `hcl:"wave_to_flow,optional"`
	FlowToWave       bool   `hcl:"flow_to_wave,optional"`
}

type nodeBlock struct {
	Name string  `hcl:"name,label"`
	X    float64 `hcl:"x,optional"`
	Y    float64 `hcl:"y,optional"`
}

type branchBlock struct {
	Name       string      `hcl:"name,label"`
	Kind       string      `hcl:"kind,optional"`
	From       string      `hcl:"from"`
	To         string      `hcl:"to"`
	Length     *float64    `hcl:"length,optional"`
	Order      int         `hcl:"order,optional"`
	Geometry   [][]float64 `hcl:"geometry,optional"`
	Definition *string     `hcl:"definition,optional"`
}

type definitionBlock struct {
	Name          string      `hcl:"name,label"`
	Kind          string      `hcl:"kind"`
	ZW            [][]float64 `hcl:"zw,optional"`
	YZ            [][]float64 `hcl:"yz,optional"`
	Shape         *shapeBlock `hcl:"shape,block"`
	Thalweg       float64     `hcl:"thalweg,optional"`
	FrictionType  string      `hcl:"friction_type,optional"`
	FrictionValue float64     `hcl:"friction_value,optional"`
}

type shapeBlock struct {
	Type        string  `hcl:"type"`
	Width       float64 `hcl:"width,optional"`
	Height      float64 `hcl:"height,optional"`
	Diameter    float64 `hcl:"diameter,optional"`
	ArcHeight   float64 `hcl:"arc_height,optional"`
	BottomWidth float64 `hcl:"bottom_width,optional"`
	Slope       float64 `hcl:"slope,optional"`
	Closed      bool    `hcl:"closed,optional"`
}

type crossSectionBlock struct {
	Name       string  `hcl:"name,label"`
	Branch     string  `hcl:"branch"`
	Chainage   float64 `hcl:"chainage"`
	Definition string  `hcl:"definition"`
	Shift      float64 `hcl:"shift,optional"`
}

type weirBlock struct {
	Name                   string   `hcl:"name,label"`
	Branch                 string   `hcl:"branch"`
	Chainage               float64  `hcl:"chainage"`
	Composite              string   `hcl:"composite,optional"`
	CrestLevel             float64  `hcl:"crest_level"`
	CrestWidth             float64  `hcl:"crest_width"`
	CrestLength            float64  `hcl:"crest_length,optional"`
	CrestShape             string   `hcl:"crest_shape,optional"`
	OffsetY                float64  `hcl:"offset_y,optional"`
	FlowDirection          string   `hcl:"flow_direction,optional"`
	Formula                string   `hcl:"formula,optional"`
	DischargeCoefficient   *float64 `hcl:"discharge_coefficient,optional"`
	LateralContraction     *float64 `hcl:"lateral_contraction,optional"`
	GateOpening            float64  `hcl:"gate_opening,optional"`
	ContractionCoefficient *float64 `hcl:"contraction_coefficient,optional"`
}

type culvertBlock struct {
	Name          string   `hcl:"name,label"`
	Branch        string   `hcl:"branch"`
	Chainage      float64  `hcl:"chainage"`
	Composite     string   `hcl:"composite,optional"`
	SubType       string   `hcl:"sub_type,optional"`
	Shape         string   `hcl:"shape"`
	Width         float64  `hcl:"width,optional"`
	Height        float64  `hcl:"height,optional"`
	Diameter      float64  `hcl:"diameter,optional"`
	Definition    *string  `hcl:"definition,optional"`
	InletLevel    float64  `hcl:"inlet_level"`
	OutletLevel   float64  `hcl:"outlet_level"`
	Length        float64  `hcl:"length"`
	InletLoss     *float64 `hcl:"inlet_loss,optional"`
	OutletLoss    *float64 `hcl:"outlet_loss,optional"`
	FrictionType  string   `hcl:"friction_type,optional"`
	Friction      float64  `hcl:"friction,optional"`
	FlowDirection string   `hcl:"flow_direction,optional"`
}

type bridgeBlock struct {
	Name          string   `hcl:"name,label"`
	Branch        string   `hcl:"branch"`
	Chainage      float64  `hcl:"chainage"`
	Composite     string   `hcl:"composite,optional"`
	Shape         string   `hcl:"shape,optional"`
	Width         float64  `hcl:"width,optional"`
	Height        float64  `hcl:"height,optional"`
	Definition    *string  `hcl:"definition,optional"`
	Shift         float64  `hcl:"shift,optional"`
	Length        float64  `hcl:"length"`
	InletLoss     *float64 `hcl:"inlet_loss,optional"`
	OutletLoss    *float64 `hcl:"outlet_loss,optional"`
	FrictionType  string   `hcl:"friction_type,optional"`
	Friction      float64  `hcl:"friction,optional"`
	FlowDirection string   `hcl:"flow_direction,optional"`
}

type pumpBlock struct {
	Name          string      `hcl:"name,label"`
	Branch        string      `hcl:"branch"`
	Chainage      float64     `hcl:"chainage"`
	Composite     string      `hcl:"composite,optional"`
	Capacity      float64     `hcl:"capacity"`
	Control       string      `hcl:"control,optional"`
	Positive      *bool       `hcl:"positive,optional"`
	StartSuction  float64     `hcl:"start_suction,optional"`
	StopSuction   float64     `hcl:"stop_suction,optional"`
	StartDelivery float64     `hcl:"start_delivery,optional"`
	StopDelivery  float64     `hcl:"stop_delivery,optional"`
	Reduction     [][]float64 `hcl:"reduction,optional"`
}

type gateBlock struct {
	Name           string  `hcl:"name,label"`
	Branch         string  `hcl:"branch"`
	Chainage       float64 `hcl:"chainage"`
	Composite      string  `hcl:"composite,optional"`
	SillLevel      float64 `hcl:"sill_level"`
	SillWidth      float64 `hcl:"sill_width"`
	LowerEdgeLevel float64 `hcl:"lower_edge_level"`
	OpeningWidth   float64 `hcl:"opening_width,optional"`
	DoorHeight     float64 `hcl:"door_height,optional"`
	Direction      string  `hcl:"direction,optional"`
}

// Series rows are [minutes since start, value]; table rows are [argument, value].
type boundaryBlock struct {
	Name           string             `hcl:"name,label"`
	Node           string             `hcl:"node"`
	Kind           string             `hcl:"kind"`
	Value          float64            `hcl:"value,optional"`
	Series         [][]float64        `hcl:"series,optional"`
	Table          [][]float64        `hcl:"table,optional"`
	Interpolation  string             `hcl:"interpolation,optional"`
	Extrapolation  string             `hcl:"extrapolation,optional"`
	Concentrations map[string]float64 `hcl:"concentrations,optional"`
}

type lateralBlock struct {
	Name     string      `hcl:"name,label"`
	Branch   string      `hcl:"branch"`
	Chainage float64     `hcl:"chainage"`
	Length   float64     `hcl:"length,optional"`
	Kind     string      `hcl:"kind"`
	Value    float64     `hcl:"value,optional"`
	Series   [][]float64 `hcl:"series,optional"`
	Table    [][]float64 `hcl:"table,optional"`
}
