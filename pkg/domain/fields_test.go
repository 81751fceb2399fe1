package domain

import (
	"reflect"
	"testing"
)

func TestReadOnlyFields(t *testing.T) {
	cases := []struct {
		name string
		s    Structure
		want []string
	}{
		{
			name: "rectangular bridge",
			s:    Structure{Kind: StructureBridge, Bridge: &Bridge{Shape: BridgeRectangle}},
			want: []string{"cross_section_definition_id"},
		},
		{
			name: "tabulated bridge",
			s:    Structure{Kind: StructureBridge, Bridge: &Bridge{Shape: BridgeTabulated}},
			want: []string{"height", "width"},
		},
		{
			name: "round culvert",
			s:    Structure{Kind: StructureCulvert, Culvert: &Culvert{SubType: CulvertPlain, GeometryType: ShapeRound}},
			want: []string{"arc_height", "bend_loss", "bottom_width", "gate_initial_opening", "height", "siphon_off_level", "siphon_on_level", "slope", "tabulated_definition_id", "width"},
		},
		{
			name: "gated siphon",
			s:    Structure{Kind: StructureCulvert, Culvert: &Culvert{SubType: CulvertSiphon, GeometryType: ShapeRectangle, IsGated: true}},
			want: []string{"arc_height", "bottom_width", "diameter", "slope", "tabulated_definition_id"},
		},
		{
			name: "general structure",
			s:    Structure{Kind: StructureWeir, Weir: &Weir{Formula: GeneralStructureFormula{}}},
			want: []string{"crest_level", "crest_width", "flow_direction"},
		},
		{
			name: "simple weir in composite",
			s:    Structure{Kind: StructureWeir, CompositeID: "c1", Weir: &Weir{Formula: SimpleWeirFormula{}}},
			want: []string{"branch_id", "chainage"},
		},
		{
			name: "suction pump",
			s:    Structure{Kind: StructurePump, Pump: &Pump{ControlDirection: PumpSuctionSide}},
			want: []string{"start_delivery", "stop_delivery"},
		},
		{
			name: "two-sided pump",
			s:    Structure{Kind: StructurePump, Pump: &Pump{ControlDirection: PumpBothSides}},
			want: nil,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ReadOnlyFields(tc.s)
			if len(got) == 0 && len(tc.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsReadOnly(t *testing.T) {
	s := Structure{Kind: StructureCulvert, Culvert: &Culvert{GeometryType: ShapeTrapezium}}
	if IsReadOnly(s, "slope") {
		t.Fatalf("trapezium slope must be editable")
	}
	if !IsReadOnly(s, "diameter") {
		t.Fatalf("trapezium diameter must be read-only")
	}
}

func TestCheckPayload(t *testing.T) {
	if err := (Structure{Kind: StructurePump, Pump: &Pump{}}).CheckPayload(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (Structure{Kind: StructurePump}).CheckPayload(); err == nil {
		t.Fatalf("expected missing payload error")
	}
	if err := (Structure{Kind: StructurePump, Weir: &Weir{}}).CheckPayload(); err == nil {
		t.Fatalf("expected kind mismatch error")
	}
	if err := (Structure{Kind: StructurePump, Pump: &Pump{}, Gate: &Gate{}}).CheckPayload(); err == nil {
		t.Fatalf("expected multiple payload error")
	}
}
