package delwaq

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

const sampleHyd = `file-created-by  'hydrocore'
; comment
conversion-ref-time  '20240301000000'
conversion-start-time  '20240301000000'
conversion-stop-time  '20240302000000'
conversion-timestep  '00000000010000'
number-hydrodynamic-layers  1
number-water-quality-segments-per-layer  12
volumes-file  'model.vol'
hydrodynamic-layers
   1.0
end-hydrodynamic-layers
`

func TestParseHyd(t *testing.T) {
	h, err := ParseHyd(strings.NewReader(sampleHyd))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v, _ := h.Get(KeyCreatedBy); v != "hydrocore" {
		t.Fatalf("created by = %q", v)
	}
	ref, err := h.Time(KeyReferenceTime)
	if err != nil || !ref.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("reference = %v, %v", ref, err)
	}
	step, err := h.TimeStep()
	if err != nil || step != time.Hour {
		t.Fatalf("step = %v, %v", step, err)
	}
	if n, err := h.Int(KeySegmentsPerLayer); err != nil || n != 12 {
		t.Fatalf("segments = %d, %v", n, err)
	}
	layers, ok := h.Block("hydrodynamic-layers")
	if !ok || len(layers) != 1 || layers[0] != "1.0" {
		t.Fatalf("layers = %v", layers)
	}
}

func TestHydRoundTrip(t *testing.T) {
	h := &Hyd{}
	h.Set(KeyCreatedBy, "hydrocore")
	h.SetTime(KeyReferenceTime, time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC))
	h.Set(KeyTimeStep, FormatStep(90*time.Minute))
	h.Set(KeyLayers, "1")
	h.SetBlock("sink-sources", []string{"0"})
	h.Set(KeyLayers, "2")

	var buf bytes.Buffer
	if err := WriteHyd(&buf, h); err != nil {
		t.Fatalf("write: %v", err)
	}
	back, err := ParseHyd(&buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(back.Entries) != 4 {
		t.Fatalf("expected 4 entries, got %+v", back.Entries)
	}
	if v, _ := back.Get(KeyLayers); v != "2" {
		t.Fatalf("layers = %q", v)
	}
	if step, err := back.TimeStep(); err != nil || step != 90*time.Minute {
		t.Fatalf("step = %v, %v", step, err)
	}
	if ref, _ := back.Time(KeyReferenceTime); ref.Hour() != 6 {
		t.Fatalf("reference = %v", ref)
	}
	if lines, ok := back.Block("sink-sources"); !ok || lines[0] != "0" {
		t.Fatalf("block = %v", lines)
	}
}

func TestParseHydErrors(t *testing.T) {
	if _, err := ParseHyd(strings.NewReader("hydrodynamic-layers\n 1.0\n")); !errors.Is(err, errUnterminated) {
		t.Fatalf("expected unterminated block, got %v", err)
	}
	if _, err := ParseHyd(strings.NewReader("end-layers\n")); err == nil {
		t.Fatalf("expected stray end error")
	}
}

func TestParseStep(t *testing.T) {
	tests := map[string]struct {
		in   string
		want time.Duration
		err  bool
	}{
		"one day":     {in: "00000001000000", want: 24 * time.Hour},
		"mixed":       {in: "00000000013015", want: time.Hour + 30*time.Minute + 15*time.Second},
		"months":      {in: "00000100000000", err: true},
		"short":       {in: "0100", err: true},
		"not numeric": {in: "0000000001xx00", err: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseStep(tc.in)
			if tc.err {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Fatalf("got %v, %v; want %v", got, err, tc.want)
			}
			if FormatStep(got) != tc.in {
				t.Fatalf("format %v = %s, want %s", got, FormatStep(got), tc.in)
			}
		})
	}
}
