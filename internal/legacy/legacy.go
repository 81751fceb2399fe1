// Package legacy migrates models kept in the old SQLite model database into
// the current store. The old schema has one table per entity kind:
//
//	nodes(id, name, x, y)
//	branches(id, name, kind, from_node, to_node, length)
//	cross_sections(id, branch_id, chainage, profile, width, height, bed_level)
//	structures(id, name, type, branch_id, chainage, level, width, capacity)
//	boundaries(id, node_id, type, value)
//
// Rows the importer cannot map are skipped and reported as warnings.
package legacy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sort"

	"hydrocore/internal/ctxlog"
	"hydrocore/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Report summarises an import.
type Report struct {
	Imported map[domain.EntityType]int
	Warnings []string
}

func (r *Report) count(entity domain.EntityType) {
	if r.Imported == nil {
		r.Imported = make(map[domain.EntityType]int)
	}
	r.Imported[entity]++
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Transactor runs fn as one atomic, validated operation.
type Transactor interface {
	Transact(ctx context.Context, op string, fn func(tx domain.Transaction) error) (domain.Result, error)
}

// ImportFile opens the legacy database at path and imports it
// through svc in one transaction.
func ImportFile(ctx context.Context, path string, svc Transactor) (Report, domain.Result, error) {
	if _, err := os.Stat(path); err != nil {
		return Report{}, domain.Result{}, fmt.Errorf("legacy database: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return Report{}, domain.Result{}, fmt.Errorf("open legacy database: %w", err)
	}
	defer func() { _ = db.Close() }()
	var report Report
	res, err := svc.Transact(ctx, "import legacy database", func(tx domain.Transaction) error {
		report, err = Import(ctx, db, tx)
		return err
	})
	return report, res, err
}

// Import copies the legacy tables from db into tx. Missing tables are
// treated as empty.
func Import(ctx context.Context, db *sql.DB, tx domain.Transaction) (Report, error) {
	im := &importer{
		db:       db,
		tx:       tx,
		nodes:    make(map[string]string),
		branches: make(map[string]string),
	}
	steps := []struct {
		table string
		fn    func(context.Context) error
	}{
		{"nodes", im.importNodes},
		{"branches", im.importBranches},
		{"cross_sections", im.importCrossSections},
		{"structures", im.importStructures},
		{"boundaries", im.importBoundaries},
	}
	for _, step := range steps {
		present, err := im.hasTable(ctx, step.table)
		if err != nil {
			return im.report, err
		}
		if !present {
			im.report.warnf("table %s is missing", step.table)
			continue
		}
		if err := step.fn(ctx); err != nil {
			return im.report, fmt.Errorf("import %s: %w", step.table, err)
		}
	}
	sort.Strings(im.report.Warnings)
	ctxlog.FromContext(ctx).Info("legacy model imported", "nodes", im.report.Imported[domain.EntityNode],
		"branches", im.report.Imported[domain.EntityBranch], "structures", im.report.Imported[domain.EntityStructure],
		"warnings", len(im.report.Warnings))
	return im.report, nil
}

type importer struct {
	db       *sql.DB
	tx       domain.Transaction
	report   Report
	nodes    map[string]string
	branches map[string]string
}

func (im *importer) hasTable(ctx context.Context, name string) (bool, error) {
	var found string
	err := im.db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("inspect schema: %w", err)
	}
	return true, nil
}

// each runs query and calls fn for every row; fn receives a scan function.
func (im *importer) each(ctx context.Context, query string, fn func(scan func(...any) error) error) error {
	rows, err := im.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		if err := fn(rows.Scan); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (im *importer) importNodes(ctx context.Context) error {
	return im.each(ctx, `SELECT id, COALESCE(name, ''), COALESCE(x, 0), COALESCE(y, 0) FROM nodes ORDER BY id`, func(scan func(...any) error) error {
		var id, name string
		var x, y float64
		if err := scan(&id, &name, &x, &y); err != nil {
			return err
		}
		if name == "" {
			name = id
		}
		created, err := im.tx.CreateNode(domain.Node{Name: name, X: x, Y: y})
		if err != nil {
			return fmt.Errorf("node %s: %w", id, err)
		}
		im.nodes[id] = created.ID
		im.report.count(domain.EntityNode)
		return nil
	})
}

var branchKinds = map[string]domain.BranchKind{
	"":        domain.BranchChannel,
	"channel": domain.BranchChannel,
	"pipe":    domain.BranchPipe,
	"sewer":   domain.BranchSewerConnection,
}

func (im *importer) importBranches(ctx context.Context) error {
	const query = `SELECT id, COALESCE(name, ''), COALESCE(kind, ''), from_node, to_node, COALESCE(length, 0) FROM branches ORDER BY id`
	return im.each(ctx, query, func(scan func(...any) error) error {
		var id, name, kind, from, to string
		var length float64
		if err := scan(&id, &name, &kind, &from, &to, &length); err != nil {
			return err
		}
		if name == "" {
			name = id
		}
		k, ok := branchKinds[kind]
		if !ok {
			im.report.warnf("branch %s: unknown kind %q, imported as channel", id, kind)
			k = domain.BranchChannel
		}
		src, okSrc := im.nodes[from]
		dst, okDst := im.nodes[to]
		if !okSrc || !okDst {
			im.report.warnf("branch %s: skipped, references missing node", id)
			return nil
		}
		created, err := im.tx.CreateBranch(domain.Branch{Name: name, Kind: k, SourceNodeID: src, TargetNodeID: dst, Length: length, IsLengthCustom: length > 0})
		if err != nil {
			return fmt.Errorf("branch %s: %w", id, err)
		}
		im.branches[id] = created.ID
		im.report.count(domain.EntityBranch)
		return nil
	})
}

func (im *importer) importCrossSections(ctx context.Context) error {
	const query = `SELECT id, branch_id, chainage, COALESCE(profile, ''), COALESCE(width, 0), COALESCE(height, 0), COALESCE(bed_level, 0) FROM cross_sections ORDER BY id`
	return im.each(ctx, query, func(scan func(...any) error) error {
		var id, branch, profile string
		var chainage, width, height, bed float64
		if err := scan(&id, &branch, &chainage, &profile, &width, &height, &bed); err != nil {
			return err
		}
		branchID, ok := im.branches[branch]
		if !ok {
			im.report.warnf("cross section %s: skipped, references missing branch %s", id, branch)
			return nil
		}
		var shape domain.StandardShape
		switch profile {
		case "rectangle", "":
			shape = domain.StandardShape{Type: domain.ShapeRectangle, Width: width, Height: height}
		case "circle":
			shape = domain.StandardShape{Type: domain.ShapeRound, Diameter: width, Closed: true}
		default:
			im.report.warnf("cross section %s: unsupported profile %q skipped", id, profile)
			return nil
		}
		def, err := im.tx.CreateCrossSectionDefinition(domain.CrossSectionDefinition{
			Name: id + "_profile", Kind: domain.CrossSectionStandard, Shape: &shape, Thalweg: width / 2,
		})
		if err != nil {
			return fmt.Errorf("cross section %s: %w", id, err)
		}
		if _, err := im.tx.CreateCrossSection(domain.CrossSection{Name: id, BranchID: branchID, Chainage: chainage, DefinitionID: def.ID, Shift: bed}); err != nil {
			return fmt.Errorf("cross section %s: %w", id, err)
		}
		im.report.count(domain.EntityCrossSection)
		return nil
	})
}

func (im *importer) importStructures(ctx context.Context) error {
	const query = `SELECT id, COALESCE(name, ''), COALESCE(type, ''), branch_id, chainage, COALESCE(level, 0), COALESCE(width, 0), COALESCE(capacity, 0) FROM structures ORDER BY id`
	return im.each(ctx, query, func(scan func(...any) error) error {
		var id, name, typ, branch string
		var chainage, level, width, capacity float64
		if err := scan(&id, &name, &typ, &branch, &chainage, &level, &width, &capacity); err != nil {
			return err
		}
		if name == "" {
			name = id
		}
		st := domain.Structure{Name: name, Chainage: chainage}
		switch typ {
		case "weir":
			st.Kind = domain.StructureWeir
			st.Weir = domain.NewWeir()
			st.Weir.CrestLevel = level
			if width > 0 {
				st.Weir.CrestWidth = width
			}
		case "pump":
			st.Kind = domain.StructurePump
			st.Pump = domain.NewPump()
			st.Pump.Capacity = capacity
			if level != 0 {
				st.Pump.StartSuction, st.Pump.StopSuction = level, level-1
			}
		case "gate":
			st.Kind = domain.StructureGate
			st.Gate = domain.NewGate()
			st.Gate.SillLevel, st.Gate.LowerEdgeLevel = level, level
			if width > 0 {
				st.Gate.SillWidth, st.Gate.OpeningWidth = width, width
			}
		default:
			im.report.warnf("structure %s: unknown type %q skipped", id, typ)
			return nil
		}
		branchID, ok := im.branches[branch]
		if !ok {
			im.report.warnf("structure %s: skipped, references missing branch %s", id, branch)
			return nil
		}
		st.BranchID = branchID
		if _, err := im.tx.CreateStructure(st); err != nil {
			return fmt.Errorf("structure %s: %w", id, err)
		}
		im.report.count(domain.EntityStructure)
		return nil
	})
}

var boundaryKinds = map[string]domain.BoundaryKind{
	"h": domain.BoundaryH,
	"q": domain.BoundaryQ,
}

func (im *importer) importBoundaries(ctx context.Context) error {
	return im.each(ctx, `SELECT id, node_id, COALESCE(type, ''), COALESCE(value, 0) FROM boundaries ORDER BY id`, func(scan func(...any) error) error {
		var id, node, typ string
		var value float64
		if err := scan(&id, &node, &typ, &value); err != nil {
			return err
		}
		kind, ok := boundaryKinds[typ]
		if !ok {
			im.report.warnf("boundary %s: unknown type %q skipped", id, typ)
			return nil
		}
		nodeID, ok := im.nodes[node]
		if !ok {
			im.report.warnf("boundary %s: skipped, references missing node %s", id, node)
			return nil
		}
		if _, err := im.tx.CreateBoundary(domain.BoundaryCondition{Name: id, NodeID: nodeID, Kind: kind, Value: value}); err != nil {
			return fmt.Errorf("boundary %s: %w", id, err)
		}
		im.report.count(domain.EntityBoundary)
		return nil
	})
}
