package core

import (
	"context"
	"strings"
	"testing"

	"hydrocore/internal/infra/persistence/memory"
	"hydrocore/pkg/domain"
)

// model holds the IDs created by seedChannel.
type model struct {
	up, down domain.Node
	river    domain.Branch
	profile  domain.CrossSectionDefinition
}

// seedChannel builds a 100 m channel with one valid cross section.
func seedChannel(t *testing.T, tx Transaction) model {
	t.Helper()
	var m model
	var err error
	if m.up, err = tx.CreateNode(domain.Node{Name: "up"}); err != nil {
		t.Fatalf("create node: %v", err)
	}
	if m.down, err = tx.CreateNode(domain.Node{Name: "down", X: 100}); err != nil {
		t.Fatalf("create node: %v", err)
	}
	if m.river, err = tx.CreateBranch(domain.Branch{
		Name: "river", Kind: domain.BranchChannel,
		SourceNodeID: m.up.ID, TargetNodeID: m.down.ID,
		Geometry: []domain.Point{{X: 0}, {X: 100}},
	}); err != nil {
		t.Fatalf("create branch: %v", err)
	}
	if m.profile, err = tx.CreateCrossSectionDefinition(domain.CrossSectionDefinition{
		Name: "trapezium", Kind: domain.CrossSectionZW,
		ZW: []domain.ZWRow{{Level: 0, FlowWidth: 5, TotalWidth: 5}, {Level: 2, FlowWidth: 9, TotalWidth: 12}},
	}); err != nil {
		t.Fatalf("create definition: %v", err)
	}
	if _, err = tx.CreateCrossSection(domain.CrossSection{Name: "cs1", BranchID: m.river.ID, Chainage: 50, DefinitionID: m.profile.ID}); err != nil {
		t.Fatalf("create cross section: %v", err)
	}
	return m
}

// buildStore runs fn against a rule-free store so invalid states can be
// committed for rule tests.
func buildStore(t *testing.T, fn func(tx Transaction)) *memory.Store {
	t.Helper()
	store := memory.NewStore(nil)
	if _, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		fn(tx)
		return nil
	}); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return store
}

func evaluateRule(t *testing.T, store *memory.Store, rule Rule) Result {
	t.Helper()
	var res Result
	if err := store.View(context.Background(), func(v TransactionView) error {
		var err error
		res, err = rule.Evaluate(context.Background(), v, nil)
		return err
	}); err != nil {
		t.Fatalf("evaluate %s: %v", rule.Name(), err)
	}
	return res
}

// findViolation returns the first violation with the given severity whose
// message contains fragment.
func findViolation(res Result, severity domain.Severity, fragment string) (Violation, bool) {
	for _, v := range res.Violations {
		if v.Severity == severity && strings.Contains(v.Message, fragment) {
			return v, true
		}
	}
	return Violation{}, false
}

func requireViolation(t *testing.T, res Result, severity domain.Severity, fragment string) Violation {
	t.Helper()
	v, ok := findViolation(res, severity, fragment)
	if !ok {
		t.Fatalf("expected %s containing %q, got %+v", severity, fragment, res.Violations)
	}
	return v
}

func simpleWeir(crestLength float64) domain.Structure {
	return domain.Structure{
		Kind: domain.StructureWeir,
		Weir: &domain.Weir{
			CrestLevel: 1, CrestWidth: 4, CrestLength: crestLength,
			Formula: domain.SimpleWeirFormula{DischargeCoefficient: 1, LateralContraction: 1},
		},
	}
}

func strPtr(s string) *string { return &s }
