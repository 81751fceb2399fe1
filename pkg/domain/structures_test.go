package domain

import "testing"

func TestWithDefaultPayload(t *testing.T) {
	for _, kind := range []StructureKind{StructureBridge, StructureCulvert, StructureWeir, StructurePump, StructureGate} {
		s := Structure{Name: "s", Kind: kind}.WithDefaultPayload()
		if err := s.CheckPayload(); err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
	}

	w := Structure{Kind: StructureWeir}.WithDefaultPayload().Weir
	f, ok := w.Formula.(SimpleWeirFormula)
	if !ok || f.DischargeCoefficient != 1 || f.LateralContraction != 1 {
		t.Fatalf("weir formula = %#v", w.Formula)
	}
	if w.FlowDirection != FlowBoth || w.CrestWidth <= 0 {
		t.Fatalf("weir = %+v", w)
	}
	if p := NewPump(); !p.DirectionIsPositive || p.StartSuction <= p.StopSuction {
		t.Fatalf("pump = %+v", p)
	}
	if NewCulvert().FlowDirection != FlowBoth || NewBridge().FlowDirection != FlowBoth {
		t.Fatalf("culvert and bridge must pass flow both ways")
	}

	// an explicit payload is kept even when it does not match the kind
	g := &Gate{DoorHeight: 2}
	s := Structure{Kind: StructureWeir, Gate: g}.WithDefaultPayload()
	if s.Weir != nil || s.Gate != g {
		t.Fatalf("payload replaced: %+v", s)
	}
}
