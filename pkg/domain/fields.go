package domain

import "sort"

// ReadOnlyFields returns the JSON names of the structure parameters that are
// not editable given the structure's current configuration. Editors use it
// to grey out inputs; exporters skip these fields.
func ReadOnlyFields(s Structure) []string {
	var fields []string
	switch {
	case s.Bridge != nil:
		fields = bridgeReadOnly(*s.Bridge)
	case s.Culvert != nil:
		fields = culvertReadOnly(*s.Culvert)
	case s.Weir != nil:
		fields = weirReadOnly(*s.Weir)
	case s.Pump != nil:
		fields = pumpReadOnly(*s.Pump)
	}
	if s.CompositeID != "" {
		// location is owned by the composite
		fields = append(fields, "branch_id", "chainage")
	}
	sort.Strings(fields)
	return fields
}

// IsReadOnly reports whether field is read-only for s.
func IsReadOnly(s Structure, field string) bool {
	for _, f := range ReadOnlyFields(s) {
		if f == field {
			return true
		}
	}
	return false
}

func bridgeReadOnly(b Bridge) []string {
	switch b.Shape {
	case BridgeTabulated, BridgeYZ:
		return []string{"width", "height"}
	default:
		return []string{"cross_section_definition_id"}
	}
}

var culvertShapeFields = map[ShapeType][]string{
	ShapeRectangle:   {"width", "height"},
	ShapeRound:       {"diameter"},
	ShapeEgg:         {"width"},
	ShapeInvertedEgg: {"width"},
	ShapeElliptical:  {"width", "height"},
	ShapeArch:        {"width", "height", "arc_height"},
	ShapeCunette:     {"width"},
	ShapeTrapezium:   {"bottom_width", "slope", "height"},
	CulvertTabulated: {"tabulated_definition_id"},
}

var allCulvertShapeFields = []string{"width", "height", "diameter", "arc_height", "bottom_width", "slope", "tabulated_definition_id"}

func culvertReadOnly(c Culvert) []string {
	editable := make(map[string]bool)
	for _, f := range culvertShapeFields[c.GeometryType] {
		editable[f] = true
	}
	var out []string
	for _, f := range allCulvertShapeFields {
		if !editable[f] {
			out = append(out, f)
		}
	}
	if !c.IsGated {
		out = append(out, "gate_initial_opening")
	}
	if !c.IsSiphon() {
		out = append(out, "bend_loss", "siphon_on_level", "siphon_off_level")
	}
	return out
}

func weirReadOnly(w Weir) []string {
	var out []string
	if w.Formula != nil && !w.Formula.HasFlowDirection() {
		out = append(out, "flow_direction")
	}
	if _, ok := w.Formula.(GeneralStructureFormula); ok {
		// the general structure carries its own crest geometry
		out = append(out, "crest_width", "crest_level")
	}
	return out
}

func pumpReadOnly(p Pump) []string {
	var out []string
	if !p.UsesSuction() {
		out = append(out, "start_suction", "stop_suction")
	}
	if !p.UsesDelivery() {
		out = append(out, "start_delivery", "stop_delivery")
	}
	return out
}
