// Package flow1d writes the input deck of the 1D flow engine from a model
// snapshot and reads structure files back.
package flow1d

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"hydrocore/internal/ctxlog"
	"hydrocore/internal/solver/ini"
	"hydrocore/pkg/domain"
)

// Deck file names.
const (
	ModelFile      = "flow1d.md1d"
	NetworkFile    = "network.ini"
	CrsDefFile     = "crsdef.ini"
	CrsLocFile     = "crsloc.ini"
	StructuresFile = "structures.ini"
	BoundaryFile   = "boundaryconditions.bc"
	LateralFile    = "laterals.ini"
)

// Branch type codes understood by the engine.
const (
	branchTypeChannel    = 0
	branchTypeSewer      = 1
	branchTypePipe       = 2
	timeUnitLayout       = "2006-01-02 15:04:05"
	defaultFrictionValue = 45
)

// Export writes the deck for view into dir and returns the written file
// names in write order.
func Export(ctx context.Context, view domain.RuleView, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create deck dir: %w", err)
	}
	e := newExporter(view)
	docs := []struct {
		name  string
		build func() (*ini.Document, error)
	}{
		{NetworkFile, e.network},
		{CrsLocFile, e.crossSectionLocations},
		{StructuresFile, e.structures},
		// definitions last: culverts and bridges register generated profiles
		{CrsDefFile, e.crossSectionDefinitions},
		{BoundaryFile, e.boundaries},
		{LateralFile, e.laterals},
		{ModelFile, e.model},
	}
	written := make([]string, 0, len(docs))
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		doc, err := d.build()
		if err != nil {
			return written, fmt.Errorf("%s: %w", d.name, err)
		}
		if err := writeDoc(filepath.Join(dir, d.name), doc); err != nil {
			return written, err
		}
		written = append(written, d.name)
	}
	ctxlog.FromContext(ctx).Debug("flow deck exported", "dir", dir, "files", len(written),
		"branches", len(e.branches), "structures", len(view.ListStructures()))
	return written, nil
}

func writeDoc(path string, doc *ini.Document) error {
	f, err := os.Create(path) //nolint:gosec // deck directory chosen by the caller
	if err != nil {
		return err
	}
	if _, err := doc.WriteTo(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

type exporter struct {
	view       domain.RuleView
	settings   domain.Settings
	nodes      map[string]domain.Node
	branches   map[string]domain.Branch
	composites map[string]domain.CompositeStructure
	// generated holds profiles derived from structure geometry, keyed by id.
	generated map[string]generatedProfile
}

type generatedProfile struct {
	shape  domain.StandardShape
	source string
}

func newExporter(view domain.RuleView) *exporter {
	e := &exporter{
		view:       view,
		settings:   view.Settings(),
		nodes:      make(map[string]domain.Node),
		branches:   make(map[string]domain.Branch),
		composites: make(map[string]domain.CompositeStructure),
		generated:  make(map[string]generatedProfile),
	}
	for _, n := range view.ListNodes() {
		e.nodes[n.ID] = n
	}
	for _, b := range view.ListBranches() {
		e.branches[b.ID] = b
	}
	for _, c := range view.ListComposites() {
		e.composites[c.ID] = c
	}
	return e
}

func label(name, id string) string {
	if name != "" {
		return name
	}
	return id
}

func header(doc *ini.Document, fileType, version string) {
	doc.AddSection("General").Add("fileVersion", version).Add("fileType", fileType)
}

func (e *exporter) nodeLabel(id string) string { return label(e.nodes[id].Name, id) }

func (e *exporter) branchLabel(id string) string {
	if b, ok := e.branches[id]; ok {
		return label(b.Name, id)
	}
	return id
}

func (e *exporter) network() (*ini.Document, error) {
	doc := &ini.Document{}
	header(doc, "network", "3.00")
	nodes := e.view.ListNodes()
	sort.SliceStable(nodes, func(i, j int) bool { return label(nodes[i].Name, nodes[i].ID) < label(nodes[j].Name, nodes[j].ID) })
	for _, n := range nodes {
		doc.AddSection("Node").Add("id", label(n.Name, n.ID)).Add("name", n.Name).AddFloat("x", n.X).AddFloat("y", n.Y)
	}
	branches := e.view.ListBranches()
	sort.SliceStable(branches, func(i, j int) bool { return label(branches[i].Name, branches[i].ID) < label(branches[j].Name, branches[j].ID) })
	for _, b := range branches {
		s := doc.AddSection("Branch").
			Add("id", label(b.Name, b.ID)).
			Add("name", b.Name).
			Add("fromNode", e.nodeLabel(b.SourceNodeID)).
			Add("toNode", e.nodeLabel(b.TargetNodeID)).
			AddInt("branchType", branchType(b.Kind)).
			AddInt("order", b.OrderNumber).
			AddFloat("length", b.EffectiveLength()).
			AddBool("isLengthCustom", b.IsLengthCustom)
		if len(b.Geometry) >= 2 {
			xs, ys := make([]float64, len(b.Geometry)), make([]float64, len(b.Geometry))
			for i, p := range b.Geometry {
				xs[i], ys[i] = p.X, p.Y
			}
			s.AddInt("geometryPoints", len(b.Geometry)).AddFloats("xCoordinates", xs).AddFloats("yCoordinates", ys)
		}
		if b.Kind != domain.BranchChannel {
			s.Add("sourceCompartmentName", b.SourceCompartment).
				Add("targetCompartmentName", b.TargetCompartment).
				AddFloat("sourceLevel", b.LevelSource).
				AddFloat("targetLevel", b.LevelTarget)
		}
	}
	return doc, nil
}

func branchType(kind domain.BranchKind) int {
	switch kind {
	case domain.BranchPipe:
		return branchTypePipe
	case domain.BranchSewerConnection:
		return branchTypeSewer
	default:
		return branchTypeChannel
	}
}

func (e *exporter) crossSectionLocations() (*ini.Document, error) {
	doc := &ini.Document{}
	header(doc, "crossLoc", "1.01")
	defs := make(map[string]domain.CrossSectionDefinition)
	for _, d := range e.view.ListCrossSectionDefinitions() {
		defs[d.ID] = d
	}
	locs := e.view.ListCrossSections()
	sort.SliceStable(locs, func(i, j int) bool {
		if locs[i].BranchID != locs[j].BranchID {
			return e.branchLabel(locs[i].BranchID) < e.branchLabel(locs[j].BranchID)
		}
		return locs[i].Chainage < locs[j].Chainage
	})
	for _, cs := range locs {
		def, ok := defs[cs.DefinitionID]
		if !ok {
			return nil, fmt.Errorf("cross section %s: %w: definition %s", cs.ID, domain.ErrNotFound, cs.DefinitionID)
		}
		doc.AddSection("CrossSection").
			Add("id", label(cs.Name, cs.ID)).
			Add("branchId", e.branchLabel(cs.BranchID)).
			AddFloat("chainage", cs.Chainage).
			AddFloat("shift", cs.Shift).
			Add("definitionId", label(def.Name, def.ID))
	}
	return doc, nil
}

func (e *exporter) model() (*ini.Document, error) {
	doc := &ini.Document{}
	header(doc, "modelDef", "1.00")
	doc.AddSection("Files").
		Add("networkFile", NetworkFile).
		Add("crossDefFile", CrsDefFile).
		Add("crossLocFile", CrsLocFile).
		Add("structureFile", StructuresFile).
		Add("boundaryConditionFile", BoundaryFile).
		Add("lateralDischargeFile", LateralFile)
	s := e.settings
	doc.AddSection("Time").
		Add("startTime", s.Start.UTC().Format(timeUnitLayout)).
		Add("stopTime", s.Stop.UTC().Format(timeUnitLayout)).
		AddFloat("timeStep", s.TimeStep.Seconds())
	return doc, nil
}

// minutesSince renders the .bc time unit for the simulation reference time.
func minutesSince(ref time.Time) string {
	return "minutes since " + ref.UTC().Format(timeUnitLayout)
}
