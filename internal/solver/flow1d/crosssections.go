package flow1d

import (
	"fmt"
	"sort"

	"hydrocore/internal/solver/ini"
	"hydrocore/pkg/crosssection"
	"hydrocore/pkg/domain"
)

var frictionNames = map[domain.FrictionType]string{
	domain.FrictionChezy:          "Chezy",
	domain.FrictionManning:        "Manning",
	domain.FrictionStricklerKn:    "StricklerNikuradse",
	domain.FrictionStricklerKs:    "Strickler",
	domain.FrictionWhiteColebrook: "WhiteColebrook",
}

func frictionName(t domain.FrictionType) string {
	if name, ok := frictionNames[t]; ok {
		return name
	}
	return frictionNames[domain.FrictionChezy]
}

func (e *exporter) crossSectionDefinitions() (*ini.Document, error) {
	doc := &ini.Document{}
	header(doc, "crossDef", "3.00")
	defs := e.view.ListCrossSectionDefinitions()
	sort.SliceStable(defs, func(i, j int) bool { return label(defs[i].Name, defs[i].ID) < label(defs[j].Name, defs[j].ID) })
	for _, d := range defs {
		s := doc.AddSection("Definition").Add("id", label(d.Name, d.ID))
		if err := writeProfile(s, d); err != nil {
			return nil, fmt.Errorf("definition %s: %w", label(d.Name, d.ID), err)
		}
		value := d.FrictionValue
		if value == 0 {
			value = defaultFrictionValue
		}
		s.Add("frictionType", frictionName(d.FrictionType)).AddFloat("frictionValue", value)
	}
	ids := make([]string, 0, len(e.generated))
	for id := range e.generated {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		g := e.generated[id]
		s := addDefinition(doc, id, "generated for "+g.source)
		if err := writeShape(s, g.shape); err != nil {
			return nil, fmt.Errorf("%s: %w", g.source, err)
		}
	}
	return doc, nil
}

func addDefinition(doc *ini.Document, id, comment string) *ini.Section {
	return doc.AddSection("Definition").AddComment("id", id, comment)
}

func writeProfile(s *ini.Section, d domain.CrossSectionDefinition) error {
	switch d.Kind {
	case domain.CrossSectionZW:
		writeZW(s, d.ZW)
	case domain.CrossSectionYZ:
		ys, zs := make([]float64, len(d.YZ)), make([]float64, len(d.YZ))
		for i, p := range d.YZ {
			ys[i], zs[i] = p.Y, p.Z
		}
		s.Add("type", "yz").AddInt("yzCount", len(d.YZ)).AddFloats("yCoordinates", ys).AddFloats("zCoordinates", zs)
	case domain.CrossSectionStandard:
		if d.Shape == nil {
			return fmt.Errorf("standard definition without shape")
		}
		if err := writeShape(s, *d.Shape); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown definition kind %q", d.Kind)
	}
	s.AddFloat("thalweg", d.Thalweg)
	return nil
}

func writeZW(s *ini.Section, rows []domain.ZWRow) {
	levels, flow, total := make([]float64, len(rows)), make([]float64, len(rows)), make([]float64, len(rows))
	for i, r := range rows {
		levels[i], flow[i], total[i] = r.Level, r.FlowWidth, r.TotalWidth
	}
	s.Add("type", "zw").AddInt("numLevels", len(rows)).
		AddFloats("levels", levels).AddFloats("flowWidths", flow).AddFloats("totalWidths", total)
}

// writeShape emits the engine's native rectangle and circle types; other
// standard shapes are tabulated.
func writeShape(s *ini.Section, shape domain.StandardShape) error {
	switch shape.Type {
	case domain.ShapeRectangle:
		s.Add("type", "rectangle").AddFloat("width", shape.Width).AddFloat("height", shape.Height).AddBool("closed", shape.Closed)
		return nil
	case domain.ShapeRound:
		s.Add("type", "circle").AddFloat("diameter", shape.Diameter)
		return nil
	}
	rows, err := crosssection.Tabulate(shape)
	if err != nil {
		return err
	}
	writeZW(s, rows)
	s.Add("template", string(shape.Type)).AddBool("closed", shape.Closed)
	return nil
}
