package flow1d

import (
	"fmt"
	"sort"

	"hydrocore/internal/solver/ini"
	"hydrocore/pkg/domain"
)

// Forcing quantities in the boundary file.
const (
	quantityWaterLevel = "waterlevelbnd"
	quantityDischarge  = "dischargebnd"
	quantityLateral    = "lateral_discharge"
	quantityQHLevel    = "qhbnd waterlevel"
	quantityQHFlow     = "qhbnd discharge"
)

// boundaries writes one forcing block per flow boundary and per lateral
// source that needs more than a constant.
func (e *exporter) boundaries() (*ini.Document, error) {
	doc := &ini.Document{}
	header(doc, "boundConds", "1.01")
	bcs := e.view.ListBoundaries()
	sort.SliceStable(bcs, func(i, j int) bool { return e.nodeLabel(bcs[i].NodeID) < e.nodeLabel(bcs[j].NodeID) })
	for _, bc := range bcs {
		if bc.Kind == domain.BoundaryNone || bc.Kind == "" {
			continue
		}
		if _, ok := e.nodes[bc.NodeID]; !ok {
			return nil, fmt.Errorf("boundary %s: %w: node %s", label(bc.Name, bc.ID), domain.ErrNotFound, bc.NodeID)
		}
		s := doc.AddSection("forcing").Add("name", e.nodeLabel(bc.NodeID))
		switch bc.Kind {
		case domain.BoundaryH:
			constant(s, quantityWaterLevel, "m", bc.Value)
		case domain.BoundaryQ:
			constant(s, quantityDischarge, "m3/s", bc.Value)
		case domain.BoundaryHT:
			e.series(s, quantityWaterLevel, "m", bc.Interpolation, bc.Extrapolation, bc.TimeSeries)
		case domain.BoundaryQT:
			e.series(s, quantityDischarge, "m3/s", bc.Interpolation, bc.Extrapolation, bc.TimeSeries)
		case domain.BoundaryQH:
			qhTable(s, quantityQHLevel, quantityQHFlow, bc.Table)
		default:
			return nil, fmt.Errorf("boundary %s: unknown kind %q", label(bc.Name, bc.ID), bc.Kind)
		}
	}
	for _, l := range e.sortedLaterals() {
		s := func() *ini.Section { return doc.AddSection("forcing").Add("name", label(l.Name, l.ID)) }
		switch l.Kind {
		case domain.LateralQT:
			e.series(s(), quantityLateral, "m3/s", "", "", l.TimeSeries)
		case domain.LateralQH:
			qhTable(s(), quantityQHLevel, quantityLateral, l.Table)
		}
	}
	return doc, nil
}

func constant(s *ini.Section, quantity, unit string, value float64) {
	s.Add("function", "constant").
		Add("quantity", quantity).
		Add("unit", unit).
		AddRow(value)
}

func (e *exporter) series(s *ini.Section, quantity, unit string, interp domain.Interpolation, extrap domain.Extrapolation, series []domain.TimeValue) {
	if interp == "" {
		interp = domain.InterpolationLinear
	}
	s.Add("function", "timeseries").
		Add("timeInterpolation", string(interp))
	if extrap == domain.ExtrapolationPeriodic {
		s.AddBool("periodic", true)
	}
	s.Add("quantity", "time").
		Add("unit", minutesSince(e.settings.Start)).
		Add("quantity", quantity).
		Add("unit", unit)
	for _, p := range series {
		s.AddRow(p.Time.Sub(e.settings.Start).Minutes(), p.Value)
	}
}

func qhTable(s *ini.Section, levelQuantity, flowQuantity string, table []domain.TablePoint) {
	s.Add("function", "qhtable").
		Add("quantity", levelQuantity).
		Add("unit", "m").
		Add("quantity", flowQuantity).
		Add("unit", "m3/s")
	for _, p := range table {
		s.AddRow(p.Arg, p.Value)
	}
}

func (e *exporter) sortedLaterals() []domain.LateralSource {
	laterals := e.view.ListLaterals()
	sort.SliceStable(laterals, func(i, j int) bool {
		return label(laterals[i].Name, laterals[i].ID) < label(laterals[j].Name, laterals[j].ID)
	})
	return laterals
}

// laterals writes the lateral source locations. Constant discharges are
// inlined; everything else points at the boundary file.
func (e *exporter) laterals() (*ini.Document, error) {
	doc := &ini.Document{}
	header(doc, "lateralDischarge", "2.00")
	for _, l := range e.sortedLaterals() {
		if _, ok := e.branches[l.BranchID]; !ok {
			return nil, fmt.Errorf("lateral %s: %w: branch %s", label(l.Name, l.ID), domain.ErrNotFound, l.BranchID)
		}
		s := doc.AddSection("Lateral").
			Add("id", label(l.Name, l.ID)).
			Add("name", l.Name).
			Add("branchId", e.branchLabel(l.BranchID)).
			AddFloat("chainage", l.Chainage)
		if l.Length > 0 {
			s.AddFloat("length", l.Length)
		}
		if l.Kind == domain.LateralQ || l.Kind == "" {
			s.AddFloat("discharge", l.Value)
		} else {
			s.Add("discharge", BoundaryFile)
		}
	}
	return doc, nil
}
