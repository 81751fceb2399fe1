package crosssection

import (
	"errors"
	"math"
	"testing"

	"hydrocore/pkg/domain"
)

const tol = 1e-9

func near(a, b, eps float64) bool { return math.Abs(a-b) <= eps }

func TestTabulateRectangle(t *testing.T) {
	rows, err := Tabulate(domain.StandardShape{Type: domain.ShapeRectangle, Width: 3, Height: 2})
	if err != nil {
		t.Fatalf("tabulate: %v", err)
	}
	if len(rows) != 2 || rows[1].Level != 2 || rows[1].FlowWidth != 3 {
		t.Fatalf("unexpected rows %+v", rows)
	}
	if got := FlowArea(rows, 1); !near(got, 3, tol) {
		t.Fatalf("expected area 3, got %v", got)
	}
	closed, err := Tabulate(domain.StandardShape{Type: domain.ShapeRectangle, Width: 3, Height: 2, Closed: true})
	if err != nil {
		t.Fatalf("tabulate closed: %v", err)
	}
	if last := closed[len(closed)-1]; last.FlowWidth != 0 || last.Level <= 2 {
		t.Fatalf("closed rectangle must end with a zero-width row, got %+v", last)
	}
}

func TestTabulateRoundArea(t *testing.T) {
	rows, err := Tabulate(domain.StandardShape{Type: domain.ShapeRound, Diameter: 2})
	if err != nil {
		t.Fatalf("tabulate: %v", err)
	}
	if len(rows) != segments+1 {
		t.Fatalf("expected %d rows, got %d", segments+1, len(rows))
	}
	if !near(WettedWidth(rows, 1), 2, tol) {
		t.Fatalf("expected full width at centre, got %v", WettedWidth(rows, 1))
	}
	// trapezoidal integration of a circle underestimates slightly
	if got := FlowArea(rows, 2); got > math.Pi || got < 0.97*math.Pi {
		t.Fatalf("unexpected full area %v", got)
	}
}

func TestTabulateShapesAreMonotonic(t *testing.T) {
	shapes := []domain.StandardShape{
		{Type: domain.ShapeEgg, Width: 1},
		{Type: domain.ShapeInvertedEgg, Width: 1},
		{Type: domain.ShapeElliptical, Width: 2, Height: 1},
		{Type: domain.ShapeArch, Width: 2, Height: 2, ArcHeight: 0.5},
		{Type: domain.ShapeTrapezium, BottomWidth: 2, Slope: 1.5, Height: 2},
	}
	for _, shape := range shapes {
		t.Run(string(shape.Type), func(t *testing.T) {
			rows, err := Tabulate(shape)
			if err != nil {
				t.Fatalf("tabulate: %v", err)
			}
			for i := 1; i < len(rows); i++ {
				if rows[i].Level <= rows[i-1].Level {
					t.Fatalf("levels not increasing at %d: %+v", i, rows)
				}
				if rows[i].FlowWidth < 0 {
					t.Fatalf("negative width at %d", i)
				}
			}
		})
	}
}

func TestTabulateEggOrientation(t *testing.T) {
	egg, _ := Tabulate(domain.StandardShape{Type: domain.ShapeEgg, Width: 1})
	inv, _ := Tabulate(domain.StandardShape{Type: domain.ShapeInvertedEgg, Width: 1})
	low := 0.2
	if WettedWidth(egg, low) >= WettedWidth(inv, low) {
		t.Fatalf("egg must be narrower than inverted egg near the invert")
	}
	if !near(FlowArea(egg, 1.5), FlowArea(inv, 1.5), 1e-6) {
		t.Fatalf("mirrored shapes must hold the same area")
	}
}

func TestTabulateErrors(t *testing.T) {
	if _, err := Tabulate(domain.StandardShape{Type: domain.ShapeCunette, Width: 1}); !errors.Is(err, ErrUnsupportedShape) {
		t.Fatalf("expected unsupported shape, got %v", err)
	}
	if _, err := Tabulate(domain.StandardShape{Type: domain.ShapeTrapezium, BottomWidth: 1, Slope: 1, Height: 1, Closed: true}); !errors.Is(err, ErrUnsupportedShape) {
		t.Fatalf("expected unsupported closed trapezium, got %v", err)
	}
	if _, err := Tabulate(domain.StandardShape{Type: domain.ShapeRound}); !errors.Is(err, ErrInvalidShape) {
		t.Fatalf("expected invalid shape, got %v", err)
	}
	if _, err := Tabulate(domain.StandardShape{Type: domain.ShapeArch, Width: 1, Height: 1, ArcHeight: 2}); !errors.Is(err, ErrInvalidShape) {
		t.Fatalf("expected invalid arch, got %v", err)
	}
}

func TestForCulvert(t *testing.T) {
	rows, err := ForCulvert(domain.Culvert{GeometryType: domain.ShapeRectangle, Width: 2, Height: 1})
	if err != nil {
		t.Fatalf("culvert: %v", err)
	}
	if rows[len(rows)-1].FlowWidth != 0 {
		t.Fatalf("culverts are closed conduits")
	}
	if _, err := ForCulvert(domain.Culvert{GeometryType: domain.CulvertTabulated}); !errors.Is(err, ErrUnsupportedShape) {
		t.Fatalf("expected unsupported tabulated culvert, got %v", err)
	}
}

func TestFromYZ(t *testing.T) {
	// V-shaped channel: bed at 0 in the middle, banks at 2.
	points := []domain.YZPoint{{Y: 0, Z: 2}, {Y: 2, Z: 0}, {Y: 4, Z: 2}}
	rows, err := FromYZ(points)
	if err != nil {
		t.Fatalf("from yz: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected two distinct levels, got %+v", rows)
	}
	if rows[0].FlowWidth != 0 || rows[1].FlowWidth != 4 {
		t.Fatalf("unexpected widths %+v", rows)
	}
	if got := WettedWidth(rows, 1); !near(got, 2, tol) {
		t.Fatalf("expected width 2 at half depth, got %v", got)
	}
	if got := FlowArea(rows, 2); !near(got, 4, tol) {
		t.Fatalf("expected triangle area 4, got %v", got)
	}
	if _, err := FromYZ(points[:1]); !errors.Is(err, ErrInvalidShape) {
		t.Fatalf("expected invalid profile, got %v", err)
	}
}

func TestFlowAreaOutsideTable(t *testing.T) {
	rows := []domain.ZWRow{{Level: 0, FlowWidth: 2}, {Level: 1, FlowWidth: 2}}
	if FlowArea(rows, -1) != 0 || WettedWidth(rows, -1) != 0 {
		t.Fatalf("expected zero below the invert")
	}
	if got := FlowArea(rows, 3); !near(got, 6, tol) {
		t.Fatalf("expected extrapolated area 6, got %v", got)
	}
	if FlowArea(nil, 1) != 0 {
		t.Fatalf("empty table must have no area")
	}
}
