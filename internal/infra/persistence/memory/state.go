package memory

import (
	"encoding/json"
	"fmt"
	"sort"

	"hydrocore/pkg/domain"
)

type memoryState struct {
	nodes         map[string]domain.Node
	branches      map[string]domain.Branch
	definitions   map[string]domain.CrossSectionDefinition
	crossSections map[string]domain.CrossSection
	composites    map[string]domain.CompositeStructure
	structures    map[string]domain.Structure
	manholes      map[string]domain.Manhole
	boundaries    map[string]domain.BoundaryCondition
	laterals      map[string]domain.LateralSource
	breaches      map[string]domain.LeveeBreach
	settings      domain.Settings
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Nodes                   map[string]domain.Node                   `json:"nodes"`
	Branches                map[string]domain.Branch                 `json:"branches"`
	CrossSectionDefinitions map[string]domain.CrossSectionDefinition `json:"cross_section_definitions"`
	CrossSections           map[string]domain.CrossSection           `json:"cross_sections"`
	Composites              map[string]domain.CompositeStructure     `json:"composites"`
	Structures              map[string]domain.Structure              `json:"structures"`
	Manholes                map[string]domain.Manhole                `json:"manholes"`
	Boundaries              map[string]domain.BoundaryCondition      `json:"boundaries"`
	Laterals                map[string]domain.LateralSource          `json:"laterals"`
	Breaches                map[string]domain.LeveeBreach            `json:"breaches"`
	Settings                domain.Settings                          `json:"settings"`
}

// Buckets names the snapshot sections written by durable stores, one row each.
var Buckets = []string{
	"nodes",
	"branches",
	"cross_section_definitions",
	"cross_sections",
	"composites",
	"structures",
	"manholes",
	"boundaries",
	"laterals",
	"breaches",
	"settings",
}

var entityBuckets = map[domain.EntityType]string{
	domain.EntityNode:                   "nodes",
	domain.EntityBranch:                 "branches",
	domain.EntityCrossSectionDefinition: "cross_section_definitions",
	domain.EntityCrossSection:           "cross_sections",
	domain.EntityCompositeStructure:     "composites",
	domain.EntityStructure:              "structures",
	domain.EntityManhole:                "manholes",
	domain.EntityBoundary:               "boundaries",
	domain.EntityLateralSource:          "laterals",
	domain.EntityLeveeBreach:            "breaches",
	domain.EntitySettings:               "settings",
}

// BucketsFor returns the buckets touched by changes, in Buckets order.
func BucketsFor(changes []domain.Change) []string {
	dirty := make(DirtyBuckets, len(changes))
	dirty.Mark(changes)
	return dirty.List()
}

// DirtyBuckets is the set of buckets a durable store still has to write.
// Stores keep it across failed writes and clear it only after a commit.
type DirtyBuckets map[string]bool

// Mark adds the buckets touched by changes.
func (d DirtyBuckets) Mark(changes []domain.Change) {
	for _, c := range changes {
		if b, ok := entityBuckets[c.Entity]; ok {
			d[b] = true
		}
	}
}

// List returns the set in Buckets order.
func (d DirtyBuckets) List() []string {
	out := make([]string, 0, len(d))
	for _, b := range Buckets {
		if d[b] {
			out = append(out, b)
		}
	}
	return out
}

// Section returns a pointer to the named snapshot section, suitable for
// json.Marshal and json.Unmarshal.
func (s *Snapshot) Section(bucket string) (any, bool) {
	switch bucket {
	case "nodes":
		return &s.Nodes, true
	case "branches":
		return &s.Branches, true
	case "cross_section_definitions":
		return &s.CrossSectionDefinitions, true
	case "cross_sections":
		return &s.CrossSections, true
	case "composites":
		return &s.Composites, true
	case "structures":
		return &s.Structures, true
	case "manholes":
		return &s.Manholes, true
	case "boundaries":
		return &s.Boundaries, true
	case "laterals":
		return &s.Laterals, true
	case "breaches":
		return &s.Breaches, true
	case "settings":
		return &s.Settings, true
	}
	return nil, false
}

// MarshalBucket encodes one snapshot section as JSON.
func (s *Snapshot) MarshalBucket(bucket string) ([]byte, error) {
	section, ok := s.Section(bucket)
	if !ok {
		return nil, fmt.Errorf("unknown bucket %q", bucket)
	}
	return json.Marshal(section)
}

// UnmarshalBucket decodes a JSON payload into one snapshot section. Unknown
// buckets are ignored so newer databases still load.
func (s *Snapshot) UnmarshalBucket(bucket string, payload []byte) error {
	section, ok := s.Section(bucket)
	if !ok || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, section); err != nil {
		return fmt.Errorf("decode %s: %w", bucket, err)
	}
	return nil
}

func newMemoryState() memoryState {
	return memoryState{
		nodes:         make(map[string]domain.Node),
		branches:      make(map[string]domain.Branch),
		definitions:   make(map[string]domain.CrossSectionDefinition),
		crossSections: make(map[string]domain.CrossSection),
		composites:    make(map[string]domain.CompositeStructure),
		structures:    make(map[string]domain.Structure),
		manholes:      make(map[string]domain.Manhole),
		boundaries:    make(map[string]domain.BoundaryCondition),
		laterals:      make(map[string]domain.LateralSource),
		breaches:      make(map[string]domain.LeveeBreach),
		settings:      domain.Settings{Base: domain.Base{ID: domain.SettingsID}},
	}
}

func cloneInto[T any](dst, src map[string]T, clone func(T) T) {
	for k, v := range src {
		dst[k] = clone(v)
	}
}

func (s memoryState) clone() memoryState {
	out := newMemoryState()
	cloneInto(out.nodes, s.nodes, domain.CloneNode)
	cloneInto(out.branches, s.branches, domain.CloneBranch)
	cloneInto(out.definitions, s.definitions, domain.CloneCrossSectionDefinition)
	cloneInto(out.crossSections, s.crossSections, domain.CloneCrossSection)
	cloneInto(out.composites, s.composites, domain.CloneComposite)
	cloneInto(out.structures, s.structures, domain.CloneStructure)
	cloneInto(out.manholes, s.manholes, domain.CloneManhole)
	cloneInto(out.boundaries, s.boundaries, domain.CloneBoundary)
	cloneInto(out.laterals, s.laterals, domain.CloneLateral)
	cloneInto(out.breaches, s.breaches, domain.CloneBreach)
	out.settings = domain.CloneSettings(s.settings)
	return out
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	c := state.clone()
	return Snapshot{
		Nodes:                   c.nodes,
		Branches:                c.branches,
		CrossSectionDefinitions: c.definitions,
		CrossSections:           c.crossSections,
		Composites:              c.composites,
		Structures:              c.structures,
		Manholes:                c.manholes,
		Boundaries:              c.boundaries,
		Laterals:                c.laterals,
		Breaches:                c.breaches,
		Settings:                c.settings,
	}
}

// memoryStateFromSnapshot tolerates missing sections so snapshots written by
// older versions still load.
func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	cloneInto(state.nodes, s.Nodes, domain.CloneNode)
	cloneInto(state.branches, s.Branches, domain.CloneBranch)
	cloneInto(state.definitions, s.CrossSectionDefinitions, domain.CloneCrossSectionDefinition)
	cloneInto(state.crossSections, s.CrossSections, domain.CloneCrossSection)
	cloneInto(state.composites, s.Composites, domain.CloneComposite)
	cloneInto(state.structures, s.Structures, domain.CloneStructure)
	cloneInto(state.manholes, s.Manholes, domain.CloneManhole)
	cloneInto(state.boundaries, s.Boundaries, domain.CloneBoundary)
	cloneInto(state.laterals, s.Laterals, domain.CloneLateral)
	cloneInto(state.breaches, s.Breaches, domain.CloneBreach)
	state.settings = domain.CloneSettings(s.Settings)
	state.settings.ID = domain.SettingsID
	return state
}

// kind describes how the generic helpers reach one entity table.
type kind[T any] struct {
	entity domain.EntityType
	label  string
	clone  func(T) T
	base   func(*T) *domain.Base
	name   func(T) string
	items  func(*memoryState) map[string]T
}

var (
	nodeKind = kind[domain.Node]{
		entity: domain.EntityNode, label: "node", clone: domain.CloneNode,
		base:  func(v *domain.Node) *domain.Base { return &v.Base },
		name:  func(v domain.Node) string { return v.Name },
		items: func(s *memoryState) map[string]domain.Node { return s.nodes },
	}
	branchKind = kind[domain.Branch]{
		entity: domain.EntityBranch, label: "branch", clone: domain.CloneBranch,
		base:  func(v *domain.Branch) *domain.Base { return &v.Base },
		name:  func(v domain.Branch) string { return v.Name },
		items: func(s *memoryState) map[string]domain.Branch { return s.branches },
	}
	definitionKind = kind[domain.CrossSectionDefinition]{
		entity: domain.EntityCrossSectionDefinition, label: "cross-section definition", clone: domain.CloneCrossSectionDefinition,
		base:  func(v *domain.CrossSectionDefinition) *domain.Base { return &v.Base },
		name:  func(v domain.CrossSectionDefinition) string { return v.Name },
		items: func(s *memoryState) map[string]domain.CrossSectionDefinition { return s.definitions },
	}
	crossSectionKind = kind[domain.CrossSection]{
		entity: domain.EntityCrossSection, label: "cross section", clone: domain.CloneCrossSection,
		base:  func(v *domain.CrossSection) *domain.Base { return &v.Base },
		name:  func(v domain.CrossSection) string { return v.Name },
		items: func(s *memoryState) map[string]domain.CrossSection { return s.crossSections },
	}
	compositeKind = kind[domain.CompositeStructure]{
		entity: domain.EntityCompositeStructure, label: "composite structure", clone: domain.CloneComposite,
		base:  func(v *domain.CompositeStructure) *domain.Base { return &v.Base },
		name:  func(v domain.CompositeStructure) string { return v.Name },
		items: func(s *memoryState) map[string]domain.CompositeStructure { return s.composites },
	}
	structureKind = kind[domain.Structure]{
		entity: domain.EntityStructure, label: "structure", clone: domain.CloneStructure,
		base:  func(v *domain.Structure) *domain.Base { return &v.Base },
		name:  func(v domain.Structure) string { return v.Name },
		items: func(s *memoryState) map[string]domain.Structure { return s.structures },
	}
	manholeKind = kind[domain.Manhole]{
		entity: domain.EntityManhole, label: "manhole", clone: domain.CloneManhole,
		base:  func(v *domain.Manhole) *domain.Base { return &v.Base },
		name:  func(v domain.Manhole) string { return v.Name },
		items: func(s *memoryState) map[string]domain.Manhole { return s.manholes },
	}
	boundaryKind = kind[domain.BoundaryCondition]{
		entity: domain.EntityBoundary, label: "boundary condition", clone: domain.CloneBoundary,
		base:  func(v *domain.BoundaryCondition) *domain.Base { return &v.Base },
		name:  func(v domain.BoundaryCondition) string { return v.Name },
		items: func(s *memoryState) map[string]domain.BoundaryCondition { return s.boundaries },
	}
	lateralKind = kind[domain.LateralSource]{
		entity: domain.EntityLateralSource, label: "lateral source", clone: domain.CloneLateral,
		base:  func(v *domain.LateralSource) *domain.Base { return &v.Base },
		name:  func(v domain.LateralSource) string { return v.Name },
		items: func(s *memoryState) map[string]domain.LateralSource { return s.laterals },
	}
	breachKind = kind[domain.LeveeBreach]{
		entity: domain.EntityLeveeBreach, label: "levee breach", clone: domain.CloneBreach,
		base:  func(v *domain.LeveeBreach) *domain.Base { return &v.Base },
		name:  func(v domain.LeveeBreach) string { return v.Name },
		items: func(s *memoryState) map[string]domain.LeveeBreach { return s.breaches },
	}
)

func find[T any](state *memoryState, k kind[T], id string) (T, bool) {
	v, ok := k.items(state)[id]
	if !ok {
		var zero T
		return zero, false
	}
	return k.clone(v), true
}

// list returns clones ordered by name, then ID, so exports are stable.
func list[T any](state *memoryState, k kind[T]) []T {
	items := k.items(state)
	out := make([]T, 0, len(items))
	for _, v := range items {
		out = append(out, k.clone(v))
	}
	sort.Slice(out, func(i, j int) bool {
		ni, nj := k.name(out[i]), k.name(out[j])
		if ni != nj {
			return ni < nj
		}
		return k.base(&out[i]).ID < k.base(&out[j]).ID
	})
	return out
}

// idsWhere returns the sorted IDs of records matching pred.
func idsWhere[T any](items map[string]T, pred func(T) bool) []string {
	var ids []string
	for id, v := range items {
		if pred(v) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func removeString(values []string, target string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v != target {
			out = append(out, v)
		}
	}
	return out
}
