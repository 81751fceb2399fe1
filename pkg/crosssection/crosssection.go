// Package crosssection converts profile descriptions into level/width
// tables and integrates them.
package crosssection

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"hydrocore/pkg/domain"
)

// ErrUnsupportedShape is returned for geometry combinations that cannot be
// tabulated.
var ErrUnsupportedShape = errors.New("unsupported cross-section shape")

// ErrInvalidShape is returned when shape dimensions are missing or negative.
var ErrInvalidShape = errors.New("invalid cross-section dimensions")

// segments is the number of level intervals used for curved shapes.
const segments = 20

// closedSlot is the height of the zero-width row that closes a conduit.
const closedSlot = 0.001

// Tabulate converts a standard shape into ZW rows ordered by level, with the
// invert at level zero.
func Tabulate(shape domain.StandardShape) ([]domain.ZWRow, error) {
	var rows []domain.ZWRow
	switch shape.Type {
	case domain.ShapeRectangle:
		if err := positive(shape.Type, shape.Width, shape.Height); err != nil {
			return nil, err
		}
		rows = []domain.ZWRow{row(0, shape.Width), row(shape.Height, shape.Width)}
		if shape.Closed {
			rows = append(rows, row(shape.Height+closedSlot, 0))
		}
	case domain.ShapeTrapezium:
		if err := positive(shape.Type, shape.Height); err != nil {
			return nil, err
		}
		if shape.BottomWidth < 0 || shape.Slope < 0 {
			return nil, fmt.Errorf("%w: %s needs non-negative bottom width and slope", ErrInvalidShape, shape.Type)
		}
		if shape.Closed {
			return nil, fmt.Errorf("%w: closed %s", ErrUnsupportedShape, shape.Type)
		}
		rows = []domain.ZWRow{row(0, shape.BottomWidth), row(shape.Height, shape.BottomWidth+2*shape.Slope*shape.Height)}
	case domain.ShapeRound:
		if err := positive(shape.Type, shape.Diameter); err != nil {
			return nil, err
		}
		r := shape.Diameter / 2
		rows = sample(shape.Diameter, func(z float64) float64 { return chord(r, z-r) })
	case domain.ShapeElliptical:
		if err := positive(shape.Type, shape.Width, shape.Height); err != nil {
			return nil, err
		}
		a, b := shape.Width/2, shape.Height/2
		rows = sample(shape.Height, func(z float64) float64 {
			t := (z - b) / b
			return 2 * a * math.Sqrt(math.Max(0, 1-t*t))
		})
	case domain.ShapeEgg, domain.ShapeInvertedEgg:
		if err := positive(shape.Type, shape.Width); err != nil {
			return nil, err
		}
		h := 1.5 * shape.Width
		width := eggWidth(shape.Width)
		if shape.Type == domain.ShapeInvertedEgg {
			rows = sample(h, func(z float64) float64 { return width(h - z) })
		} else {
			rows = sample(h, width)
		}
	case domain.ShapeArch:
		if err := positive(shape.Type, shape.Width, shape.Height, shape.ArcHeight); err != nil {
			return nil, err
		}
		if shape.ArcHeight > shape.Height {
			return nil, fmt.Errorf("%w: arc height exceeds height", ErrInvalidShape)
		}
		half := shape.Width / 2
		radius := (shape.ArcHeight*shape.ArcHeight + half*half) / (2 * shape.ArcHeight)
		centre := shape.Height - radius
		springing := shape.Height - shape.ArcHeight
		rows = []domain.ZWRow{row(0, shape.Width)}
		if springing > 0 {
			rows = append(rows, row(springing, shape.Width))
		}
		for i := 1; i <= segments; i++ {
			z := springing + shape.ArcHeight*float64(i)/segments
			rows = append(rows, row(z, chord(radius, z-centre)))
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedShape, shape.Type)
	}
	return rows, nil
}

// ForCulvert tabulates the opening of a culvert with a standard geometry.
// Tabulated culverts reference a definition and cannot be resolved here.
func ForCulvert(c domain.Culvert) ([]domain.ZWRow, error) {
	shape, ok := c.Shape()
	if !ok {
		return nil, fmt.Errorf("%w: culvert geometry %q", ErrUnsupportedShape, c.GeometryType)
	}
	return Tabulate(shape)
}

// FromYZ converts a YZ profile into ZW rows, one per distinct bed level.
func FromYZ(points []domain.YZPoint) ([]domain.ZWRow, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: yz profile needs at least two points", ErrInvalidShape)
	}
	levels := make([]float64, 0, len(points))
	seen := make(map[float64]bool, len(points))
	for _, p := range points {
		if !seen[p.Z] {
			seen[p.Z] = true
			levels = append(levels, p.Z)
		}
	}
	sort.Float64s(levels)
	if len(levels) < 2 {
		return nil, fmt.Errorf("%w: yz profile is flat", ErrInvalidShape)
	}
	rows := make([]domain.ZWRow, 0, len(levels))
	for _, z := range levels {
		rows = append(rows, row(z, wetWidth(points, z)))
	}
	return rows, nil
}

// wetWidth sums the horizontal extent of profile segments below level z.
func wetWidth(points []domain.YZPoint, z float64) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		a, b := points[i-1], points[i]
		dy := math.Abs(b.Y - a.Y)
		switch {
		case a.Z <= z && b.Z <= z:
			total += dy
		case a.Z > z && b.Z > z:
		default:
			lo, hi := a.Z, b.Z
			if lo > hi {
				lo, hi = hi, lo
			}
			total += dy * (z - lo) / (hi - lo)
		}
	}
	return total
}

// WettedWidth interpolates the flow width at level. Below the lowest row the
// width is zero; above the highest the top width is kept.
func WettedWidth(rows []domain.ZWRow, level float64) float64 {
	if len(rows) == 0 || level < rows[0].Level {
		return 0
	}
	for i := 1; i < len(rows); i++ {
		if level <= rows[i].Level {
			return interpolate(rows[i-1], rows[i], level)
		}
	}
	return rows[len(rows)-1].FlowWidth
}

// FlowArea integrates the flow width from the lowest row up to level.
func FlowArea(rows []domain.ZWRow, level float64) float64 {
	if len(rows) == 0 || level <= rows[0].Level {
		return 0
	}
	var area float64
	for i := 1; i < len(rows); i++ {
		lo, hi := rows[i-1], rows[i]
		if level <= hi.Level {
			w := interpolate(lo, hi, level)
			return area + (lo.FlowWidth+w)/2*(level-lo.Level)
		}
		area += (lo.FlowWidth + hi.FlowWidth) / 2 * (hi.Level - lo.Level)
	}
	top := rows[len(rows)-1]
	return area + top.FlowWidth*(level-top.Level)
}

func interpolate(lo, hi domain.ZWRow, level float64) float64 {
	if hi.Level == lo.Level {
		return hi.FlowWidth
	}
	f := (level - lo.Level) / (hi.Level - lo.Level)
	return lo.FlowWidth + f*(hi.FlowWidth-lo.FlowWidth)
}

func row(level, width float64) domain.ZWRow {
	return domain.ZWRow{Level: level, FlowWidth: width, TotalWidth: width}
}

func sample(height float64, width func(z float64) float64) []domain.ZWRow {
	rows := make([]domain.ZWRow, 0, segments+1)
	for i := 0; i <= segments; i++ {
		z := height * float64(i) / segments
		rows = append(rows, row(z, width(z)))
	}
	return rows
}

// chord returns the width of a circle of radius r at offset d from its centre.
func chord(r, d float64) float64 {
	return 2 * math.Sqrt(math.Max(0, r*r-d*d))
}

// eggWidth models an egg of width w and height 1.5w: a small invert circle of
// radius w/4, a crown semicircle of radius w/2, and straight flanks between.
func eggWidth(w float64) func(z float64) float64 {
	small, large := w/4, w/2
	crownCentre := 1.5*w - large
	return func(z float64) float64 {
		switch {
		case z <= small:
			return chord(small, z-small)
		case z >= crownCentre:
			return chord(large, z-crownCentre)
		default:
			f := (z - small) / (crownCentre - small)
			return 2*small + f*(w-2*small)
		}
	}
}

func positive(shape domain.ShapeType, values ...float64) error {
	for _, v := range values {
		if !(v > 0) {
			return fmt.Errorf("%w: %s needs positive dimensions", ErrInvalidShape, shape)
		}
	}
	return nil
}
