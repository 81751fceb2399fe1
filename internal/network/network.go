// Package network implements the editing operations that keep a hydraulic
// network consistent: placing structures in composites, moving and removing
// them, splitting branches and connecting sewer compartments. All operations
// run inside a store transaction.
package network

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"hydrocore/pkg/domain"
)

// DefaultTolerance is the chainage distance within which a new structure
// joins an existing composite.
const DefaultTolerance = 1e-3

// ErrOutsideBranch is returned when a chainage does not lie on the branch.
var ErrOutsideBranch = errors.New("chainage outside branch")

// Assembler performs network edits. Edits issued through one Assembler are
// serialised.
type Assembler struct {
	mu        sync.Mutex
	Tolerance float64
}

// NewAssembler returns an Assembler using DefaultTolerance.
func NewAssembler() *Assembler {
	return &Assembler{Tolerance: DefaultTolerance}
}

func (a *Assembler) tolerance() float64 {
	if a.Tolerance > 0 {
		return a.Tolerance
	}
	return DefaultTolerance
}

// UniqueName returns prefix followed by the smallest positive integer that
// does not produce a name in existing.
func UniqueName(existing []string, prefix string) string {
	taken := make(map[int]bool, len(existing))
	for _, name := range existing {
		rest, ok := strings.CutPrefix(name, prefix)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(rest); err == nil {
			taken[n] = true
		}
	}
	for n := 1; ; n++ {
		if !taken[n] {
			return prefix + strconv.Itoa(n)
		}
	}
}

func structurePrefix(kind domain.StructureKind) string {
	switch kind {
	case domain.StructureBridge:
		return "Bridge"
	case domain.StructureCulvert:
		return "Culvert"
	case domain.StructureWeir:
		return "Weir"
	case domain.StructurePump:
		return "Pump"
	case domain.StructureGate:
		return "Gate"
	}
	return "Structure"
}

func names[T any](items []T, name func(T) string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = name(item)
	}
	return out
}

func branchOf(tx domain.Transaction, id string) (domain.Branch, error) {
	b, ok := tx.Snapshot().FindBranch(id)
	if !ok {
		return domain.Branch{}, fmt.Errorf("branch %q: %w", id, domain.ErrNotFound)
	}
	return b, nil
}

func checkChainage(b domain.Branch, chainage float64) error {
	if chainage < 0 || chainage > b.EffectiveLength() || math.IsNaN(chainage) {
		return fmt.Errorf("%w: %g not in [0, %g] on branch %q", ErrOutsideBranch, chainage, b.EffectiveLength(), b.Name)
	}
	return nil
}

// AddStructure places s on the branch at chainage. The structure joins the
// composite found within tolerance of that chainage, or a new composite is
// created. Empty names are replaced by a unique default such as "Weir1" and
// a missing payload by the defaults of s.Kind.
func (a *Assembler) AddStructure(tx domain.Transaction, branchID string, chainage float64, s domain.Structure) (domain.Structure, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addStructure(tx, branchID, chainage, s)
}

func (a *Assembler) addStructure(tx domain.Transaction, branchID string, chainage float64, s domain.Structure) (domain.Structure, error) {
	branch, err := branchOf(tx, branchID)
	if err != nil {
		return domain.Structure{}, err
	}
	if err := checkChainage(branch, chainage); err != nil {
		return domain.Structure{}, err
	}
	s = s.WithDefaultPayload()
	view := tx.Snapshot()
	var composite domain.CompositeStructure
	found := false
	for _, c := range view.ListComposites() {
		if c.BranchID == branchID && math.Abs(c.Chainage-chainage) <= a.tolerance() {
			composite, found = c, true
			break
		}
	}
	if !found {
		composite, err = tx.CreateComposite(domain.CompositeStructure{
			Name:     UniqueName(names(view.ListComposites(), func(c domain.CompositeStructure) string { return c.Name }), "CompositeStructure"),
			BranchID: branchID,
			Chainage: chainage,
		})
		if err != nil {
			return domain.Structure{}, fmt.Errorf("create composite: %w", err)
		}
	}
	if s.Name == "" {
		s.Name = UniqueName(names(view.ListStructures(), func(s domain.Structure) string { return s.Name }), structurePrefix(s.Kind))
	}
	s.CompositeID = composite.ID
	s.BranchID = composite.BranchID
	s.Chainage = composite.Chainage
	return tx.CreateStructure(s)
}

// RemoveStructure deletes a structure and its composite when that becomes empty.
func (a *Assembler) RemoveStructure(tx domain.Transaction, structureID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.removeStructure(tx, structureID)
}

func (a *Assembler) removeStructure(tx domain.Transaction, structureID string) error {
	s, ok := tx.Snapshot().FindStructure(structureID)
	if !ok {
		return fmt.Errorf("structure %q: %w", structureID, domain.ErrNotFound)
	}
	if err := tx.DeleteStructure(structureID); err != nil {
		return err
	}
	if s.CompositeID == "" {
		return nil
	}
	c, ok := tx.Snapshot().FindComposite(s.CompositeID)
	if ok && len(c.StructureIDs) == 0 {
		return tx.DeleteComposite(c.ID)
	}
	return nil
}

// MoveStructure relocates a structure, keeping its ID and parameters. It
// joins or creates a composite at the destination.
func (a *Assembler) MoveStructure(tx domain.Transaction, structureID, branchID string, chainage float64) (domain.Structure, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := tx.Snapshot().FindStructure(structureID)
	if !ok {
		return domain.Structure{}, fmt.Errorf("structure %q: %w", structureID, domain.ErrNotFound)
	}
	if err := a.removeStructure(tx, structureID); err != nil {
		return domain.Structure{}, err
	}
	return a.addStructure(tx, branchID, chainage, s)
}

// MoveComposite sets the composite chainage; member structures follow.
func (a *Assembler) MoveComposite(tx domain.Transaction, compositeID string, chainage float64) (domain.CompositeStructure, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := tx.Snapshot().FindComposite(compositeID)
	if !ok {
		return domain.CompositeStructure{}, fmt.Errorf("composite structure %q: %w", compositeID, domain.ErrNotFound)
	}
	branch, err := branchOf(tx, c.BranchID)
	if err != nil {
		return domain.CompositeStructure{}, err
	}
	if err := checkChainage(branch, chainage); err != nil {
		return domain.CompositeStructure{}, err
	}
	return tx.UpdateComposite(compositeID, func(c *domain.CompositeStructure) error {
		c.Chainage = chainage
		return nil
	})
}
