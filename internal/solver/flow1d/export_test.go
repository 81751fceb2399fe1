package flow1d

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"hydrocore/internal/infra/persistence/memory"
	"hydrocore/internal/solver/ini"
	"hydrocore/pkg/domain"
)

var start = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// buildModel creates a single channel with a composite of two weirs, a
// culvert, a pump and forcing at both ends.
func buildModel(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.UpdateSettings(func(s *domain.Settings) error {
			s.Start, s.Stop, s.TimeStep = start, start.Add(24*time.Hour), time.Minute
			return nil
		}); err != nil {
			return err
		}
		up, err := tx.CreateNode(domain.Node{Name: "up"})
		if err != nil {
			return err
		}
		down, err := tx.CreateNode(domain.Node{Name: "down", X: 100})
		if err != nil {
			return err
		}
		river, err := tx.CreateBranch(domain.Branch{Name: "river", Kind: domain.BranchChannel, SourceNodeID: up.ID, TargetNodeID: down.ID, Length: 100})
		if err != nil {
			return err
		}
		def, err := tx.CreateCrossSectionDefinition(domain.CrossSectionDefinition{
			Name: "trapezoid",
			Kind: domain.CrossSectionZW,
			ZW:   []domain.ZWRow{{Level: 0, FlowWidth: 2, TotalWidth: 2}, {Level: 2, FlowWidth: 6, TotalWidth: 8}},
		})
		if err != nil {
			return err
		}
		if _, err := tx.CreateCrossSection(domain.CrossSection{Name: "cs50", BranchID: river.ID, Chainage: 50, DefinitionID: def.ID}); err != nil {
			return err
		}
		composite, err := tx.CreateComposite(domain.CompositeStructure{Name: "sluice", BranchID: river.ID, Chainage: 20})
		if err != nil {
			return err
		}
		structures := []domain.Structure{
			{Name: "w1", Kind: domain.StructureWeir, BranchID: river.ID, CompositeID: composite.ID, Weir: &domain.Weir{
				CrestLevel: 1, CrestWidth: 5, CrestLength: 2.5, CrestShape: domain.CrestSharp, OffsetY: 0.4, FlowDirection: domain.FlowPositive,
				Formula: domain.SimpleWeirFormula{DischargeCoefficient: 1.1, LateralContraction: 0.9},
			}},
			{Name: "w2", Kind: domain.StructureWeir, BranchID: river.ID, CompositeID: composite.ID, Weir: &domain.Weir{
				CrestLevel: 0.5, CrestWidth: 3,
				Formula: domain.GatedWeirFormula{GateOpening: 0.75, ContractionCoefficient: 0.63, LateralContraction: 1},
			}},
			{Name: "c3", Kind: domain.StructureCulvert, BranchID: river.ID, Chainage: 70, Culvert: &domain.Culvert{
				SubType: domain.CulvertPlain, GeometryType: domain.ShapeRectangle, Width: 2, Height: 1.5,
				InletLevel: 0.2, OutletLevel: 0.1, Length: 10, FrictionType: domain.FrictionManning, Friction: 0.013,
			}},
			{Name: "p1", Kind: domain.StructurePump, BranchID: river.ID, Chainage: 80, Pump: &domain.Pump{
				Capacity: 2.5, ControlDirection: domain.PumpSuctionSide, DirectionIsPositive: true,
				StartSuction: 1.2, StopSuction: 0.8,
			}},
		}
		for _, s := range structures {
			if _, err := tx.CreateStructure(s); err != nil {
				return err
			}
		}
		if _, err := tx.CreateBoundary(domain.BoundaryCondition{Name: "tide", NodeID: up.ID, Kind: domain.BoundaryHT, TimeSeries: []domain.TimeValue{
			{Time: start, Value: 1.5},
			{Time: start.Add(time.Hour), Value: 2},
		}}); err != nil {
			return err
		}
		if _, err := tx.CreateBoundary(domain.BoundaryCondition{Name: "outflow", NodeID: down.ID, Kind: domain.BoundaryQ, Value: 3}); err != nil {
			return err
		}
		if _, err := tx.CreateLateral(domain.LateralSource{Name: "ditch", BranchID: river.ID, Chainage: 30, Kind: domain.LateralQ, Value: 0.2}); err != nil {
			return err
		}
		_, err = tx.CreateLateral(domain.LateralSource{Name: "outfall", BranchID: river.ID, Chainage: 40, Kind: domain.LateralQT, TimeSeries: []domain.TimeValue{
			{Time: start.Add(30 * time.Minute), Value: 0.5},
		}})
		return err
	})
	if err != nil {
		t.Fatalf("build model: %v", err)
	}
	return store
}

func exportModel(t *testing.T) string {
	t.Helper()
	store := buildModel(t)
	dir := filepath.Join(t.TempDir(), "deck")
	var written []string
	err := store.View(context.Background(), func(view domain.TransactionView) error {
		var err error
		written, err = Export(context.Background(), view, dir)
		return err
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	want := []string{NetworkFile, CrsLocFile, StructuresFile, CrsDefFile, BoundaryFile, LateralFile, ModelFile}
	if !reflect.DeepEqual(written, want) {
		t.Fatalf("written %v, want %v", written, want)
	}
	return dir
}

func parseFile(t *testing.T, dir, name string) *ini.Document {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("open %s: %v", name, err)
	}
	defer f.Close()
	doc, err := ini.Parse(f)
	if err != nil {
		t.Fatalf("parse %s: %v", name, err)
	}
	return doc
}

func sectionByID(t *testing.T, doc *ini.Document, section, key, id string) *ini.Section {
	t.Helper()
	for _, s := range doc.Find(section) {
		if s.Value(key) == id {
			return s
		}
	}
	t.Fatalf("no [%s] with %s = %s", section, key, id)
	return nil
}

func TestExportNetwork(t *testing.T) {
	dir := exportModel(t)
	doc := parseFile(t, dir, NetworkFile)
	if got := len(doc.Find("Node")); got != 2 {
		t.Fatalf("expected 2 nodes, got %d", got)
	}
	branch := sectionByID(t, doc, "Branch", "id", "river")
	if branch.Value("fromNode") != "up" || branch.Value("toNode") != "down" {
		t.Fatalf("unexpected branch ends: %s -> %s", branch.Value("fromNode"), branch.Value("toNode"))
	}
	if length, err := branch.Float("length"); err != nil || length != 100 {
		t.Fatalf("length = %v, %v", length, err)
	}

	loc := sectionByID(t, parseFile(t, dir, CrsLocFile), "CrossSection", "id", "cs50")
	if loc.Value("definitionId") != "trapezoid" || loc.Value("branchId") != "river" {
		t.Fatalf("unexpected location %+v", loc)
	}

	model := parseFile(t, dir, ModelFile)
	timing, ok := model.First("Time")
	if !ok {
		t.Fatalf("model file has no [Time]")
	}
	if timing.Value("startTime") != "2024-03-01 00:00:00" {
		t.Fatalf("startTime = %q", timing.Value("startTime"))
	}
	if step, _ := timing.Float("timeStep"); step != 60 {
		t.Fatalf("timeStep = %v", step)
	}
}

func TestExportDefinitionsIncludeGeneratedProfiles(t *testing.T) {
	doc := parseFile(t, exportModel(t), CrsDefFile)
	zw := sectionByID(t, doc, "Definition", "id", "trapezoid")
	if zw.Value("type") != "zw" || zw.Value("frictionValue") != "45" {
		t.Fatalf("unexpected zw definition: type %q friction %q", zw.Value("type"), zw.Value("frictionValue"))
	}
	culvert := sectionByID(t, doc, "Definition", "id", "c3_profile")
	if culvert.Value("type") != "rectangle" || !culvert.Bool("closed") {
		t.Fatalf("culvert profile should be a closed rectangle")
	}
	if w, _ := culvert.Float("width"); w != 2 {
		t.Fatalf("culvert width = %v", w)
	}
}

func TestExportStructuresRoundTrip(t *testing.T) {
	dir := exportModel(t)
	doc := parseFile(t, dir, StructuresFile)
	compound := sectionByID(t, doc, "Structure", "type", typeCompound)
	if compound.Value("id") != "sluice" || compound.Value("structureIds") != "w1;w2" {
		t.Fatalf("unexpected compound %q: %q", compound.Value("id"), compound.Value("structureIds"))
	}

	f, err := os.Open(filepath.Join(dir, StructuresFile))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	structures, err := ReadStructures(f)
	if err != nil {
		t.Fatalf("read structures: %v", err)
	}
	byName := make(map[string]domain.Structure)
	for _, s := range structures {
		byName[s.Name] = s
	}
	if len(byName) != 4 {
		t.Fatalf("expected 4 structures, got %d", len(byName))
	}

	w1 := byName["w1"]
	if w1.CompositeID != "sluice" || w1.Chainage != 20 || w1.Weir.FlowDirection != domain.FlowPositive {
		t.Fatalf("unexpected w1 %+v", w1)
	}
	if w1.Weir.CrestLength != 2.5 || w1.Weir.CrestShape != domain.CrestSharp || w1.Weir.OffsetY != 0.4 {
		t.Fatalf("crest geometry lost: %+v", w1.Weir)
	}
	if byName["w2"].Weir.CrestShape != "" || byName["w2"].Weir.CrestLength != 0 {
		t.Fatalf("unexpected w2 crest %+v", byName["w2"].Weir)
	}
	if f, ok := w1.Weir.Formula.(domain.SimpleWeirFormula); !ok || f.DischargeCoefficient != 1.1 {
		t.Fatalf("unexpected w1 formula %#v", w1.Weir.Formula)
	}
	gated, ok := byName["w2"].Weir.Formula.(domain.GatedWeirFormula)
	if !ok || gated.GateOpening != 0.75 || gated.ContractionCoefficient != 0.63 {
		t.Fatalf("unexpected w2 formula %#v", byName["w2"].Weir.Formula)
	}

	culvert := byName["c3"].Culvert
	if culvert == nil || *culvert.TabulatedDefinitionID != "c3_profile" || culvert.FrictionType != domain.FrictionManning {
		t.Fatalf("unexpected culvert %+v", culvert)
	}
	pump := byName["p1"].Pump
	if pump == nil || pump.ControlDirection != domain.PumpSuctionSide || !pump.DirectionIsPositive || pump.StartSuction != 1.2 {
		t.Fatalf("unexpected pump %+v", pump)
	}
}

func TestExportForcing(t *testing.T) {
	dir := exportModel(t)
	doc := parseFile(t, dir, BoundaryFile)
	tide := sectionByID(t, doc, "forcing", "name", "up")
	if tide.Value("function") != "timeseries" {
		t.Fatalf("function = %q", tide.Value("function"))
	}
	if got := tide.All("quantity"); !reflect.DeepEqual(got, []string{"time", quantityWaterLevel}) {
		t.Fatalf("quantities = %v", got)
	}
	if unit := tide.All("unit")[0]; unit != "minutes since 2024-03-01 00:00:00" {
		t.Fatalf("time unit = %q", unit)
	}
	if want := [][]string{{"0", "1.5"}, {"60", "2"}}; !reflect.DeepEqual(tide.Data, want) {
		t.Fatalf("rows = %v, want %v", tide.Data, want)
	}
	outflow := sectionByID(t, doc, "forcing", "name", "down")
	if outflow.Value("function") != "constant" || !reflect.DeepEqual(outflow.Data, [][]string{{"3"}}) {
		t.Fatalf("unexpected constant forcing %q %v", outflow.Value("function"), outflow.Data)
	}
	series := sectionByID(t, doc, "forcing", "name", "outfall")
	if !reflect.DeepEqual(series.Data, [][]string{{"30", "0.5"}}) {
		t.Fatalf("lateral rows = %v", series.Data)
	}

	laterals := parseFile(t, dir, LateralFile)
	if got := sectionByID(t, laterals, "Lateral", "id", "ditch").Value("discharge"); got != "0.2" {
		t.Fatalf("constant lateral discharge = %q", got)
	}
	if got := sectionByID(t, laterals, "Lateral", "id", "outfall").Value("discharge"); got != BoundaryFile {
		t.Fatalf("series lateral discharge = %q", got)
	}
}

func TestReadStructuresErrors(t *testing.T) {
	tests := map[string]struct {
		input string
		want  error
	}{
		"unknown type": {
			input: "[Structure]\nid = s1\ntype = siphonGate\n",
			want:  ErrUnknownStructureType,
		},
		"missing compound member": {
			input: "[Structure]\nid = s1\ntype = pump\ncapacity = 1\n\n[Structure]\nid = c\ntype = compound\nstructureIds = s1;s2\n",
			want:  domain.ErrNotFound,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadStructures(strings.NewReader(tc.input))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestReadStructuresBadNumber(t *testing.T) {
	_, err := ReadStructures(strings.NewReader("[Structure]\nid = w\ntype = weir\ncrestLevel = high\n"))
	if err == nil || !strings.Contains(err.Error(), "crestLevel") {
		t.Fatalf("expected crestLevel parse error, got %v", err)
	}
}
