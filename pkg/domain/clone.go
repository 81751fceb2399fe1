package domain

// Clone helpers return value-identical copies that share no mutable slices,
// maps or pointers with their source.

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	if in == nil {
		return nil
	}
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// CloneNode copies a node.
func CloneNode(n Node) Node { return n }

// CloneBranch copies a branch including its geometry.
func CloneBranch(b Branch) Branch {
	cp := b
	cp.Geometry = cloneSlice(b.Geometry)
	cp.CrossSectionDefinitionID = clonePtr(b.CrossSectionDefinitionID)
	return cp
}

// CloneCrossSectionDefinition copies a definition including its tables.
func CloneCrossSectionDefinition(d CrossSectionDefinition) CrossSectionDefinition {
	cp := d
	cp.ZW = cloneSlice(d.ZW)
	cp.YZ = cloneSlice(d.YZ)
	cp.Shape = clonePtr(d.Shape)
	return cp
}

// CloneCrossSection copies a cross-section placement.
func CloneCrossSection(c CrossSection) CrossSection { return c }

// CloneComposite copies a composite structure.
func CloneComposite(c CompositeStructure) CompositeStructure {
	cp := c
	cp.StructureIDs = cloneSlice(c.StructureIDs)
	return cp
}

// CloneStructure copies a structure and its kind payload.
func CloneStructure(s Structure) Structure {
	cp := s
	if s.Bridge != nil {
		b := *s.Bridge
		b.CrossSectionDefinitionID = clonePtr(s.Bridge.CrossSectionDefinitionID)
		cp.Bridge = &b
	}
	if s.Culvert != nil {
		c := *s.Culvert
		c.TabulatedDefinitionID = clonePtr(s.Culvert.TabulatedDefinitionID)
		cp.Culvert = &c
	}
	if s.Weir != nil {
		w := *s.Weir
		w.Formula = CloneFormula(s.Weir.Formula)
		cp.Weir = &w
	}
	if s.Pump != nil {
		p := *s.Pump
		p.ReductionTable = cloneSlice(s.Pump.ReductionTable)
		cp.Pump = &p
	}
	cp.Gate = clonePtr(s.Gate)
	return cp
}

// CloneManhole copies a manhole and its compartments.
func CloneManhole(m Manhole) Manhole {
	cp := m
	cp.Compartments = cloneSlice(m.Compartments)
	return cp
}

// CloneBoundary copies a boundary condition and its data.
func CloneBoundary(b BoundaryCondition) BoundaryCondition {
	cp := b
	cp.TimeSeries = cloneSlice(b.TimeSeries)
	cp.Table = cloneSlice(b.Table)
	cp.Concentrations = cloneMap(b.Concentrations)
	return cp
}

// CloneLateral copies a lateral source.
func CloneLateral(l LateralSource) LateralSource {
	cp := l
	cp.TimeSeries = cloneSlice(l.TimeSeries)
	cp.Table = cloneSlice(l.Table)
	return cp
}

// CloneBreach copies a levee breach.
func CloneBreach(b LeveeBreach) LeveeBreach {
	cp := b
	cp.BranchID = clonePtr(b.BranchID)
	cp.UserDefined = cloneSlice(b.UserDefined)
	return cp
}

// CloneSettings copies the settings record.
func CloneSettings(s Settings) Settings {
	cp := s
	cp.WaterQuality.Substances = cloneSlice(s.WaterQuality.Substances)
	cp.WaterQuality.Processes = cloneSlice(s.WaterQuality.Processes)
	cp.WaterQuality.Parameters = cloneMap(s.WaterQuality.Parameters)
	cp.WaterQuality.InitialValues = cloneMap(s.WaterQuality.InitialValues)
	cp.WaterQuality.OutputNodeIDs = cloneSlice(s.WaterQuality.OutputNodeIDs)
	return cp
}

// CopyFrom overwrites the receiver's hydraulic parameters with those of
// src while keeping its identity, name and location.
func (s *Structure) CopyFrom(src Structure) {
	keep := s.Base
	name, branch, chainage, composite := s.Name, s.BranchID, s.Chainage, s.CompositeID
	*s = CloneStructure(src)
	s.Base = keep
	s.Name, s.BranchID, s.Chainage, s.CompositeID = name, branch, chainage, composite
}
