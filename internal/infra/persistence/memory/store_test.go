package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"hydrocore/pkg/domain"
)

// seedNetwork creates two nodes joined by a 100 m channel.
func seedNetwork(t *testing.T, store *Store) (domain.Node, domain.Node, domain.Branch) {
	t.Helper()
	var up, down domain.Node
	var branch domain.Branch
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		if up, err = tx.CreateNode(domain.Node{Name: "up"}); err != nil {
			return err
		}
		if down, err = tx.CreateNode(domain.Node{Name: "down", X: 100}); err != nil {
			return err
		}
		branch, err = tx.CreateBranch(domain.Branch{Name: "river", Kind: domain.BranchChannel, SourceNodeID: up.ID, TargetNodeID: down.ID, Length: 100})
		return err
	})
	if err != nil {
		t.Fatalf("seed network: %v", err)
	}
	return up, down, branch
}

func TestStoreRunInTransactionAndSnapshots(t *testing.T) {
	store := NewStore(nil)
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	store.SetClock(func() time.Time { return fixed })
	_, _, branch := seedNetwork(t, store)

	if len(store.ListNodes()) != 2 || len(store.ListBranches()) != 1 {
		t.Fatalf("expected committed network")
	}
	got, ok := store.GetBranch(branch.ID)
	if !ok || !got.CreatedAt.Equal(fixed) {
		t.Fatalf("expected stamped branch, got %+v", got)
	}

	snapshot := store.ExportState()
	store.ImportState(Snapshot{})
	if len(store.ListNodes()) != 0 {
		t.Fatalf("expected cleared state")
	}
	if store.Settings().ID != domain.SettingsID {
		t.Fatalf("settings id must survive an empty import")
	}
	store.ImportState(snapshot)
	if len(store.ListNodes()) != 2 {
		t.Fatalf("expected restored state")
	}
}

func TestStoreFailedTransactionDiscardsChanges(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateNode(domain.Node{Name: "ghost"}); err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(store.ListNodes()) != 0 {
		t.Fatalf("rolled back node leaked into committed state")
	}
}

func TestStoreRuleViolation(t *testing.T) {
	store := NewStore(domain.NewRulesEngine())
	store.RulesEngine().Register(blockingRule{})
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.CreateNode(domain.Node{Name: "blocked"})
		return e
	})
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected rule violation error, got %v", err)
	}
	if len(store.ListNodes()) != 0 {
		t.Fatalf("blocked transaction committed")
	}
}

type blockingRule struct{}

func (blockingRule) Name() string { return "block" }

func (blockingRule) Evaluate(context.Context, domain.RuleView, []domain.Change) (domain.Result, error) {
	return domain.Result{Violations: []domain.Violation{{Rule: "block", Severity: domain.SeverityError, Message: "no"}}}, nil
}

func TestBranchRequiresNodes(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateBranch(domain.Branch{Name: "dangling", SourceNodeID: "a", TargetNodeID: "b"})
		return err
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteNodeInUse(t *testing.T) {
	store := NewStore(nil)
	up, _, _ := seedNetwork(t, store)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.DeleteNode(up.ID)
	})
	if !errors.Is(err, domain.ErrReferenced) {
		t.Fatalf("expected referenced error, got %v", err)
	}
}

func TestCompositeMembershipAndPropagation(t *testing.T) {
	store := NewStore(nil)
	_, _, branch := seedNetwork(t, store)
	ctx := context.Background()
	var composite domain.CompositeStructure
	var weir domain.Structure
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		composite, err = tx.CreateComposite(domain.CompositeStructure{Name: "cs1", BranchID: branch.ID, Chainage: 40})
		if err != nil {
			return err
		}
		weir, err = tx.CreateStructure(domain.Structure{
			Name: "Weir1", Kind: domain.StructureWeir, CompositeID: composite.ID,
			BranchID: "ignored", Chainage: 3,
			Weir: &domain.Weir{CrestWidth: 5, Formula: domain.SimpleWeirFormula{DischargeCoefficient: 1, LateralContraction: 1}},
		})
		return err
	})
	if err != nil {
		t.Fatalf("create composite: %v", err)
	}
	if weir.Chainage != 40 || weir.BranchID != branch.ID {
		t.Fatalf("member must inherit composite location, got %+v", weir)
	}
	stored := store.ListComposites()[0]
	if len(stored.StructureIDs) != 1 || stored.StructureIDs[0] != weir.ID {
		t.Fatalf("composite membership not recorded: %+v", stored)
	}

	var changes []domain.Change
	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.UpdateComposite(composite.ID, func(c *domain.CompositeStructure) error {
			c.Chainage = 75
			c.StructureIDs = nil
			return nil
		}); err != nil {
			return err
		}
		changes = tx.Changes()
		return nil
	})
	if err != nil {
		t.Fatalf("move composite: %v", err)
	}
	moved, _ := store.GetStructure(weir.ID)
	if moved.Chainage != 75 {
		t.Fatalf("chainage not propagated, got %v", moved.Chainage)
	}
	if len(store.ListComposites()[0].StructureIDs) != 1 {
		t.Fatalf("membership must not be editable through the composite")
	}
	if len(changes) != 2 || changes[1].Entity != domain.EntityStructure {
		t.Fatalf("expected composite and member changes, got %+v", changes)
	}

	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.UpdateStructure(weir.ID, func(s *domain.Structure) error {
			s.Chainage = 10
			return nil
		})
		return err
	})
	if err != nil {
		t.Fatalf("update member: %v", err)
	}
	if s, _ := store.GetStructure(weir.ID); s.Chainage != 75 {
		t.Fatalf("member chainage is owned by the composite, got %v", s.Chainage)
	}
}

func TestCreateCompositeMustBeEmpty(t *testing.T) {
	store := NewStore(nil)
	_, _, branch := seedNetwork(t, store)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateComposite(domain.CompositeStructure{BranchID: branch.ID, StructureIDs: []string{"x"}})
		return err
	})
	if err == nil {
		t.Fatalf("expected error for pre-populated composite")
	}
}

func TestDeleteStructureLeavesCompositeMembershipClean(t *testing.T) {
	store := NewStore(nil)
	_, _, branch := seedNetwork(t, store)
	var compositeID, pumpID string
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		c, err := tx.CreateComposite(domain.CompositeStructure{BranchID: branch.ID, Chainage: 10})
		if err != nil {
			return err
		}
		compositeID = c.ID
		p, err := tx.CreateStructure(domain.Structure{Kind: domain.StructurePump, CompositeID: c.ID, Pump: &domain.Pump{Capacity: 1}})
		pumpID = p.ID
		return err
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.DeleteStructure(pumpID)
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	for _, c := range store.ListComposites() {
		if c.ID == compositeID && len(c.StructureIDs) != 0 {
			t.Fatalf("deleted structure still listed: %+v", c.StructureIDs)
		}
	}
}

func TestDeleteBranchCascades(t *testing.T) {
	store := NewStore(nil)
	_, _, branch := seedNetwork(t, store)
	ctx := context.Background()
	var breachID string
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		def, err := tx.CreateCrossSectionDefinition(domain.CrossSectionDefinition{Name: "rect", Kind: domain.CrossSectionStandard})
		if err != nil {
			return err
		}
		if _, err := tx.CreateCrossSection(domain.CrossSection{BranchID: branch.ID, DefinitionID: def.ID, Chainage: 5}); err != nil {
			return err
		}
		c, err := tx.CreateComposite(domain.CompositeStructure{BranchID: branch.ID, Chainage: 10})
		if err != nil {
			return err
		}
		if _, err := tx.CreateStructure(domain.Structure{Kind: domain.StructureGate, CompositeID: c.ID, Gate: &domain.Gate{}}); err != nil {
			return err
		}
		if _, err := tx.CreateLateral(domain.LateralSource{BranchID: branch.ID, Chainage: 50}); err != nil {
			return err
		}
		id := branch.ID
		b, err := tx.CreateBreach(domain.LeveeBreach{BranchID: &id})
		breachID = b.ID
		return err
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeleteBranch(branch.ID)
	})
	if err != nil {
		t.Fatalf("delete branch: %v", err)
	}
	err = store.View(ctx, func(v domain.TransactionView) error {
		if len(v.ListCrossSections()) != 0 || len(v.ListComposites()) != 0 || len(v.ListStructures()) != 0 || len(v.ListLaterals()) != 0 {
			t.Fatalf("branch features not removed")
		}
		if len(v.ListCrossSectionDefinitions()) != 1 {
			t.Fatalf("definitions are shared and must survive")
		}
		breaches := v.ListBreaches()
		if len(breaches) != 1 || breaches[0].ID != breachID || breaches[0].BranchID != nil {
			t.Fatalf("breach must be detached, got %+v", breaches)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestDeleteDefinitionInUse(t *testing.T) {
	store := NewStore(nil)
	_, _, branch := seedNetwork(t, store)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		def, err := tx.CreateCrossSectionDefinition(domain.CrossSectionDefinition{Name: "tab"})
		if err != nil {
			return err
		}
		id := def.ID
		if _, err := tx.CreateStructure(domain.Structure{Kind: domain.StructureBridge, BranchID: branch.ID, Bridge: &domain.Bridge{Shape: domain.BridgeTabulated, CrossSectionDefinitionID: &id}}); err != nil {
			return err
		}
		return tx.DeleteCrossSectionDefinition(def.ID)
	})
	if !errors.Is(err, domain.ErrReferenced) {
		t.Fatalf("expected referenced error, got %v", err)
	}
}

func TestStructurePayloadChecked(t *testing.T) {
	store := NewStore(nil)
	_, _, branch := seedNetwork(t, store)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateStructure(domain.Structure{Kind: domain.StructureWeir, BranchID: branch.ID, Pump: &domain.Pump{}})
		return err
	})
	if err == nil {
		t.Fatalf("expected payload mismatch error")
	}
}

func TestUpdateSettings(t *testing.T) {
	store := NewStore(nil)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.UpdateSettings(func(s *domain.Settings) error {
			s.ID = "other"
			s.Start = start
			s.Stop = start.Add(48 * time.Hour)
			s.WaterQuality.Substances = []string{"salt"}
			return nil
		})
		return err
	})
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}
	settings := store.Settings()
	if settings.ID != domain.SettingsID || settings.Duration() != 48*time.Hour {
		t.Fatalf("unexpected settings %+v", settings)
	}
	settings.WaterQuality.Substances[0] = "mutated"
	if store.Settings().WaterQuality.Substances[0] != "salt" {
		t.Fatalf("settings leaked internal slice")
	}
}

func TestUpdateMissingAndMutatorErrors(t *testing.T) {
	store := NewStore(nil)
	up, _, _ := seedNetwork(t, store)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.UpdateNode("missing", func(*domain.Node) error { return nil }); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
		if _, err := tx.UpdateNode(up.ID, func(*domain.Node) error { return fmt.Errorf("boom") }); err == nil {
			t.Fatalf("expected mutator error")
		}
		n, err := tx.UpdateNode(up.ID, func(n *domain.Node) error { n.ID = "hijack"; n.Name = "renamed"; return nil })
		if err != nil {
			return err
		}
		if n.ID != up.ID {
			t.Fatalf("update must keep the record id")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
}

func TestListsAreSortedByName(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		for _, name := range []string{"c", "a", "b"} {
			if _, err := tx.CreateNode(domain.Node{Name: name}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	nodes := store.ListNodes()
	if nodes[0].Name != "a" || nodes[2].Name != "c" {
		t.Fatalf("unexpected order %+v", nodes)
	}
}
