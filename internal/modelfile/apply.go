package modelfile

import (
	"context"
	"fmt"
	"time"

	"hydrocore/pkg/domain"
)

// Transactor runs fn as one atomic, validated operation. *core.Service
// satisfies it.
type Transactor interface {
	Transact(ctx context.Context, op string, fn func(tx domain.Transaction) error) (domain.Result, error)
}

// Import applies m through svc as a single "import model" operation.
func Import(ctx context.Context, svc Transactor, m *Model) (domain.Result, error) {
	return svc.Transact(ctx, "import model", func(tx domain.Transaction) error {
		return Apply(tx, m)
	})
}

// Apply creates every entity of m in tx. Entities reference each other by
// block name; composites are created for every distinct composite name
// used by the structures, at the location of their first member.
func Apply(tx domain.Transaction, m *Model) error {
	a := &applier{
		tx:          tx,
		nodes:       make(map[string]string),
		branches:    make(map[string]string),
		definitions: make(map[string]string),
		composites:  make(map[string]string),
	}
	steps := []func() error{a.settings(m.body.Settings), a.network(m.body), a.structures(m.body), a.forcing(m.body)}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

type applier struct {
	tx          domain.Transaction
	start       time.Time
	nodes       map[string]string
	branches    map[string]string
	definitions map[string]string
	composites  map[string]string
}

func lookup(kind string, ids map[string]string, name string) (string, error) {
	id, ok := ids[name]
	if !ok {
		return "", fmt.Errorf("unknown %s %q: %w", kind, name, domain.ErrNotFound)
	}
	return id, nil
}

func parseDuration(field, v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("settings %s: %w", field, err)
	}
	return d, nil
}

func (a *applier) settings(b *settingsBlock) func() error {
	return func() error {
		if b == nil {
			a.start = a.tx.Snapshot().Settings().Start
			return nil
		}
		start, err := time.Parse(time.RFC3339, b.Start)
		if err != nil {
			return fmt.Errorf("settings start: %w", err)
		}
		stop, err := time.Parse(time.RFC3339, b.Stop)
		if err != nil {
			return fmt.Errorf("settings stop: %w", err)
		}
		step, err := parseDuration("time_step", b.TimeStep)
		if err != nil {
			return err
		}
		a.start = start
		var wave domain.WaveCoupling
		if w := b.Wave; w != nil {
			wave = domain.WaveCoupling{Enabled: w.Enabled, WaveToFlow: w.WaveToFlow, FlowToWave: w.FlowToWave}
			if wave.CouplingInterval, err = parseDuration("coupling_interval", w.CouplingInterval); err != nil {
				return err
			}
			if wave.WaveTimeStep, err = parseDuration("wave_time_step", w.WaveTimeStep); err != nil {
				return err
			}
		}
		var wq domain.WaterQuality
		if q := b.WaterQuality; q != nil {
			wq = domain.WaterQuality{
				Enabled:       q.Enabled,
				Substances:    q.Substances,
				Processes:     q.Processes,
				Parameters:    q.Parameters,
				InitialValues: q.InitialValues,
			}
			if wq.OutputTimeStep, err = parseDuration("output_time_step", q.OutputTimeStep); err != nil {
				return err
			}
		}
		_, err = a.tx.UpdateSettings(func(s *domain.Settings) error {
			s.Start, s.Stop, s.TimeStep = start, stop, step
			s.Wave = wave
			s.WaterQuality = wq
			return nil
		})
		return err
	}
}

// outputNodes runs after the network exists so node names resolve.
func (a *applier) outputNodes(b *settingsBlock) error {
	if b == nil || b.WaterQuality == nil || len(b.WaterQuality.OutputNodes) == 0 {
		return nil
	}
	ids := make([]string, 0, len(b.WaterQuality.OutputNodes))
	for _, name := range b.WaterQuality.OutputNodes {
		id, err := lookup("output node", a.nodes, name)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	_, err := a.tx.UpdateSettings(func(s *domain.Settings) error {
		s.WaterQuality.OutputNodeIDs = ids
		return nil
	})
	return err
}

func (a *applier) network(body modelBody) func() error {
	return func() error {
		for _, n := range body.Nodes {
			created, err := a.tx.CreateNode(domain.Node{Name: n.Name, X: n.X, Y: n.Y})
			if err != nil {
				return fmt.Errorf("node %q: %w", n.Name, err)
			}
			a.nodes[n.Name] = created.ID
		}
		for _, d := range body.Definitions {
			def, err := definition(d)
			if err != nil {
				return err
			}
			created, err := a.tx.CreateCrossSectionDefinition(def)
			if err != nil {
				return fmt.Errorf("definition %q: %w", d.Name, err)
			}
			a.definitions[d.Name] = created.ID
		}
		for _, b := range body.Branches {
			if err := a.branch(b); err != nil {
				return fmt.Errorf("branch %q: %w", b.Name, err)
			}
		}
		for _, c := range body.CrossSections {
			branchID, err := lookup("branch", a.branches, c.Branch)
			if err != nil {
				return fmt.Errorf("cross section %q: %w", c.Name, err)
			}
			defID, err := lookup("definition", a.definitions, c.Definition)
			if err != nil {
				return fmt.Errorf("cross section %q: %w", c.Name, err)
			}
			if _, err := a.tx.CreateCrossSection(domain.CrossSection{Name: c.Name, BranchID: branchID, Chainage: c.Chainage, DefinitionID: defID, Shift: c.Shift}); err != nil {
				return fmt.Errorf("cross section %q: %w", c.Name, err)
			}
		}
		return a.outputNodes(body.Settings)
	}
}

func (a *applier) branch(b *branchBlock) error {
	from, err := lookup("node", a.nodes, b.From)
	if err != nil {
		return err
	}
	to, err := lookup("node", a.nodes, b.To)
	if err != nil {
		return err
	}
	kind := domain.BranchKind(b.Kind)
	if kind == "" {
		kind = domain.BranchChannel
	}
	branch := domain.Branch{Name: b.Name, Kind: kind, SourceNodeID: from, TargetNodeID: to, OrderNumber: b.Order}
	for i, p := range b.Geometry {
		if len(p) != 2 {
			return fmt.Errorf("geometry point %d must be [x, y]", i+1)
		}
		branch.Geometry = append(branch.Geometry, domain.Point{X: p[0], Y: p[1]})
	}
	if b.Length != nil {
		branch.Length, branch.IsLengthCustom = *b.Length, true
	} else {
		branch.Length = branch.GeometryLength()
	}
	if b.Definition != nil {
		id, err := lookup("definition", a.definitions, *b.Definition)
		if err != nil {
			return err
		}
		branch.CrossSectionDefinitionID = &id
	}
	created, err := a.tx.CreateBranch(branch)
	if err != nil {
		return err
	}
	a.branches[b.Name] = created.ID
	return nil
}

func definition(d *definitionBlock) (domain.CrossSectionDefinition, error) {
	def := domain.CrossSectionDefinition{
		Name:          d.Name,
		Kind:          domain.CrossSectionKind(d.Kind),
		Thalweg:       d.Thalweg,
		FrictionType:  domain.FrictionType(d.FrictionType),
		FrictionValue: d.FrictionValue,
	}
	for i, row := range d.ZW {
		if len(row) != 3 {
			return def, fmt.Errorf("definition %q: zw row %d must be [level, flow_width, total_width]", d.Name, i+1)
		}
		def.ZW = append(def.ZW, domain.ZWRow{Level: row[0], FlowWidth: row[1], TotalWidth: row[2]})
	}
	for i, p := range d.YZ {
		if len(p) != 2 {
			return def, fmt.Errorf("definition %q: yz point %d must be [y, z]", d.Name, i+1)
		}
		def.YZ = append(def.YZ, domain.YZPoint{Y: p[0], Z: p[1]})
	}
	if s := d.Shape; s != nil {
		def.Shape = &domain.StandardShape{
			Type:        domain.ShapeType(s.Type),
			Width:       s.Width,
			Height:      s.Height,
			Diameter:    s.Diameter,
			ArcHeight:   s.ArcHeight,
			BottomWidth: s.BottomWidth,
			Slope:       s.Slope,
			Closed:      s.Closed,
		}
	}
	return def, nil
}

func table(field string, rows [][]float64) ([]domain.TablePoint, error) {
	var out []domain.TablePoint
	for i, r := range rows {
		if len(r) != 2 {
			return nil, fmt.Errorf("%s row %d must have two values", field, i+1)
		}
		out = append(out, domain.TablePoint{Arg: r[0], Value: r[1]})
	}
	return out, nil
}

func (a *applier) series(rows [][]float64) ([]domain.TimeValue, error) {
	var out []domain.TimeValue
	for i, r := range rows {
		if len(r) != 2 {
			return nil, fmt.Errorf("series row %d must be [minutes, value]", i+1)
		}
		out = append(out, domain.TimeValue{Time: a.start.Add(time.Duration(r[0] * float64(time.Minute))), Value: r[1]})
	}
	return out, nil
}

func (a *applier) forcing(body modelBody) func() error {
	return func() error {
		for _, b := range body.Boundaries {
			nodeID, err := lookup("node", a.nodes, b.Node)
			if err != nil {
				return fmt.Errorf("boundary %q: %w", b.Name, err)
			}
			bc := domain.BoundaryCondition{
				Name:           b.Name,
				NodeID:         nodeID,
				Kind:           domain.BoundaryKind(b.Kind),
				Value:          b.Value,
				Interpolation:  domain.Interpolation(b.Interpolation),
				Extrapolation:  domain.Extrapolation(b.Extrapolation),
				Concentrations: b.Concentrations,
			}
			if bc.TimeSeries, err = a.series(b.Series); err != nil {
				return fmt.Errorf("boundary %q: %w", b.Name, err)
			}
			if bc.Table, err = table("table", b.Table); err != nil {
				return fmt.Errorf("boundary %q: %w", b.Name, err)
			}
			if _, err := a.tx.CreateBoundary(bc); err != nil {
				return fmt.Errorf("boundary %q: %w", b.Name, err)
			}
		}
		for _, l := range body.Laterals {
			branchID, err := lookup("branch", a.branches, l.Branch)
			if err != nil {
				return fmt.Errorf("lateral %q: %w", l.Name, err)
			}
			lat := domain.LateralSource{Name: l.Name, BranchID: branchID, Chainage: l.Chainage, Length: l.Length, Kind: domain.LateralKind(l.Kind), Value: l.Value}
			if lat.TimeSeries, err = a.series(l.Series); err != nil {
				return fmt.Errorf("lateral %q: %w", l.Name, err)
			}
			if lat.Table, err = table("table", l.Table); err != nil {
				return fmt.Errorf("lateral %q: %w", l.Name, err)
			}
			if _, err := a.tx.CreateLateral(lat); err != nil {
				return fmt.Errorf("lateral %q: %w", l.Name, err)
			}
		}
		return nil
	}
}
