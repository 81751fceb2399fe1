package ini

import (
	"strings"
	"testing"
)

const forcing = `# boundary data
[General]
fileVersion = 1.01
fileType    = boundConds

[forcing]
name              = Node1   # upstream
function          = timeseries
timeInterpolation = linear
quantity          = time
unit              = minutes since 2026-01-01 00:00:00
quantity          = dischargebnd
unit              = m3/s
0    1.5
60   2.5

[Forcing]
name     = Node4
function = constant
quantity = waterlevelbnd
unit     = m
0.8
`

func TestParseRepeatedKeysAndData(t *testing.T) {
	doc, err := Parse(strings.NewReader(forcing))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	sections := doc.Find("forcing")
	if len(sections) != 2 {
		t.Fatalf("expected two forcing sections, got %d", len(sections))
	}
	first := sections[0]
	if got := first.All("quantity"); len(got) != 2 || got[1] != "dischargebnd" {
		t.Fatalf("unexpected quantities %v", got)
	}
	if first.Properties[0].Comment != "upstream" || first.Value("name") != "Node1" {
		t.Fatalf("inline comment not split: %+v", first.Properties[0])
	}
	if len(first.Data) != 2 || first.Data[1][1] != "2.5" {
		t.Fatalf("unexpected data rows %v", first.Data)
	}
	general, ok := doc.First("general")
	if !ok {
		t.Fatalf("missing General")
	}
	if v, err := general.Float("fileVersion"); err != nil || v != 1.01 {
		t.Fatalf("fileVersion = %v, %v", v, err)
	}
}

func TestRoundTrip(t *testing.T) {
	doc := &Document{}
	doc.AddSection("General").Add("fileVersion", "3.00").Add("fileType", "network")
	doc.AddSection("Branch").
		Add("id", "river").
		AddInt("order", -1).
		AddBool("isCustomLength", true).
		AddFloats("xCoordinates", []float64{0, 50, 100.25}).
		AddComment("length", "100", "metres")
	doc.AddSection("forcing").Add("name", "n").AddRow(0, 1.5).AddRow(60, 1e-7)

	text := doc.String()
	if !strings.Contains(text, "fileVersion = 3.00\nfileType    = network\n") {
		t.Fatalf("keys not aligned:\n%s", text)
	}
	back, err := Parse(strings.NewReader(text))
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	branch, _ := back.First("Branch")
	xs, err := branch.Floats("xCoordinates")
	if err != nil || len(xs) != 3 || xs[2] != 100.25 {
		t.Fatalf("floats: %v %v", xs, err)
	}
	if n, _ := branch.Int("order"); n != -1 || !branch.Bool("isCustomLength") {
		t.Fatalf("int/bool round trip failed")
	}
	if branch.Properties[4].Comment != "metres" {
		t.Fatalf("comment lost: %+v", branch.Properties[4])
	}
	f, _ := back.First("forcing")
	if f.Data[1][1] != "1e-07" {
		t.Fatalf("unexpected data %v", f.Data)
	}
}

func TestSetAndDefaults(t *testing.T) {
	s := &Section{Name: "Weir"}
	s.Add("crestLevel", "1")
	s.Set("CRESTLEVEL", "2")
	s.Set("crestWidth", "5")
	if s.Value("crestlevel") != "2" || len(s.Properties) != 2 {
		t.Fatalf("unexpected properties %+v", s.Properties)
	}
	if v, err := s.FloatOr("corrCoeff", 1); err != nil || v != 1 {
		t.Fatalf("FloatOr default: %v %v", v, err)
	}
	if _, err := s.Float("missing"); err == nil {
		t.Fatalf("expected missing key error")
	}
	s.Add("bad", "x")
	if _, err := s.Float("bad"); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := s.Int("bad"); err == nil {
		t.Fatalf("expected int parse error")
	}
	if xs, err := s.Floats("absent"); err != nil || xs != nil {
		t.Fatalf("absent list should be nil")
	}
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"outside section":     "key = value\n",
		"unterminated":        "[General\n",
		"property after data": "[forcing]\nname = a\n1 2\nunit = m\n",
	}
	for name, src := range cases {
		if _, err := Parse(strings.NewReader(src)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
