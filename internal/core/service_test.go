package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"hydrocore/internal/infra/persistence/memory"
	"hydrocore/internal/network"
	"hydrocore/pkg/domain"
)

func TestServiceNetworkEditing(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService(nil)
	var m model
	if _, err := svc.Transact(ctx, "seed", func(tx Transaction) error {
		m = seedChannel(t, tx)
		return nil
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	weir, res, err := svc.AddStructure(ctx, m.river.ID, 20, simpleWeir(2))
	if err != nil {
		t.Fatalf("add structure: %v", err)
	}
	if weir.Name != "Weir1" || weir.CompositeID == "" {
		t.Fatalf("unexpected weir %+v", weir)
	}
	if res.HasBlocking() {
		t.Fatalf("unexpected blocking result %+v", res)
	}

	if _, _, err := svc.MoveComposite(ctx, weir.CompositeID, 30); err != nil {
		t.Fatalf("move composite: %v", err)
	}
	stored, _ := svc.Store().GetStructure(weir.ID)
	if stored.Chainage != 30 {
		t.Fatalf("expected chainage 30, got %g", stored.Chainage)
	}

	split, _, err := svc.SplitBranch(ctx, m.river.ID, 60)
	if err != nil {
		t.Fatalf("split branch: %v", err)
	}
	if split.Downstream.ID == "" || split.Node.ID == "" {
		t.Fatalf("unexpected split result %+v", split)
	}

	if _, err := svc.RemoveStructure(ctx, weir.ID); err != nil {
		t.Fatalf("remove structure: %v", err)
	}
	if got := len(svc.Store().ListComposites()); got != 0 {
		t.Fatalf("expected composite removal, got %d", got)
	}
}

func TestServiceBlocksOnRuleViolation(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService(nil)
	n, _, err := svc.CreateNode(ctx, domain.Node{Name: "n"})
	if err != nil {
		t.Fatalf("create node: %v", err)
	}
	loop, res, err := svc.CreateBranch(ctx, domain.Branch{Name: "loop", Kind: domain.BranchChannel, SourceNodeID: n.ID, TargetNodeID: n.ID, Length: 10})
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	if loop.ID != "" {
		t.Fatalf("blocked create must not return an uncommitted ID, got %+v", loop)
	}
	if !res.HasBlocking() {
		t.Fatalf("expected blocking result to be returned")
	}
	if got := len(svc.Store().ListBranches()); got != 0 {
		t.Fatalf("blocked branch must not be committed, got %d", got)
	}
}

func TestServiceWarningsDoNotBlock(t *testing.T) {
	svc := NewInMemoryService(nil)
	_, res, err := svc.CreateNode(context.Background(), domain.Node{Name: "lonely"})
	if err != nil {
		t.Fatalf("create node: %v", err)
	}
	requireViolation(t, res, domain.SeverityWarning, "not connected")
}

func TestServiceChangeListeners(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService(NewRulesEngine())
	var received [][]domain.ChangeEvent
	unsubscribe := svc.Subscribe(func(_ context.Context, events []domain.ChangeEvent) {
		received = append(received, events)
	})

	node, _, err := svc.CreateNode(ctx, domain.Node{Name: "a"})
	if err != nil {
		t.Fatalf("create node: %v", err)
	}
	if len(received) != 1 || len(received[0]) != 1 {
		t.Fatalf("expected one batch with one event, got %+v", received)
	}
	event := received[0][0]
	if event.Entity != domain.EntityNode || event.Action != domain.ActionCreate || event.EntityID != node.ID {
		t.Fatalf("unexpected event %+v", event)
	}

	if _, err := svc.DeleteNode(ctx, "missing"); err == nil {
		t.Fatalf("expected delete of missing node to fail")
	}
	if len(received) != 1 {
		t.Fatalf("failed operations must not notify, got %d batches", len(received))
	}

	unsubscribe()
	if _, _, err := svc.CreateNode(ctx, domain.Node{Name: "b"}); err != nil {
		t.Fatalf("create node: %v", err)
	}
	if len(received) != 1 {
		t.Fatalf("unsubscribed listener was called")
	}
}

// unpersistedStore commits in memory and then reports a failed durable write.
type unpersistedStore struct{ *memory.Store }

func (s unpersistedStore) RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	return res, fmt.Errorf("%w: disk full", domain.ErrNotPersisted)
}

func TestServiceNotifiesWhenCommitNotPersisted(t *testing.T) {
	ctx := context.Background()
	svc := NewService(unpersistedStore{memory.NewStore(NewRulesEngine())})
	var received []domain.ChangeEvent
	svc.Subscribe(func(_ context.Context, events []domain.ChangeEvent) {
		received = append(received, events...)
	})
	node, _, err := svc.CreateNode(ctx, domain.Node{Name: "a"})
	if !errors.Is(err, domain.ErrNotPersisted) {
		t.Fatalf("expected ErrNotPersisted, got %v", err)
	}
	if node.ID == "" || len(svc.Store().ListNodes()) != 1 {
		t.Fatalf("in-memory commit must stand, got %+v", node)
	}
	if len(received) != 1 || received[0].EntityID != node.ID {
		t.Fatalf("listeners must see the in-memory change, got %+v", received)
	}
}

func TestServiceClockStampsRecords(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewInMemoryService(NewRulesEngine(), WithClock(ClockFunc(func() time.Time { return fixed })))
	node, _, err := svc.CreateNode(context.Background(), domain.Node{Name: "a"})
	if err != nil {
		t.Fatalf("create node: %v", err)
	}
	if !node.CreatedAt.Equal(fixed) || !node.UpdatedAt.Equal(fixed) {
		t.Fatalf("expected timestamps from service clock, got %v / %v", node.CreatedAt, node.UpdatedAt)
	}
}

func TestServiceConnectCompartmentsAndFields(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService(NewRulesEngine())
	var m1, m2 domain.Manhole
	if _, err := svc.Transact(ctx, "seed_sewer", func(tx Transaction) error {
		n1, err := tx.CreateNode(domain.Node{Name: "n1"})
		if err != nil {
			return err
		}
		n2, err := tx.CreateNode(domain.Node{Name: "n2", X: 10})
		if err != nil {
			return err
		}
		compartment := domain.Compartment{Name: "c", Shape: domain.CompartmentRound, Width: 1, BottomLevel: -3, SurfaceLevel: 0}
		if m1, err = tx.CreateManhole(domain.Manhole{Name: "m1", NodeID: n1.ID, Compartments: []domain.Compartment{compartment}}); err != nil {
			return err
		}
		m2, err = tx.CreateManhole(domain.Manhole{Name: "m2", NodeID: n2.ID, X: 10, Compartments: []domain.Compartment{compartment}})
		return err
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	pipe, _, err := svc.ConnectCompartments(ctx, network.CompartmentRef{ManholeID: m1.ID, Compartment: "c"}, network.CompartmentRef{ManholeID: m2.ID, Compartment: "c"}, "")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if pipe.Length != 10 || pipe.Kind != domain.BranchPipe {
		t.Fatalf("unexpected pipe %+v", pipe)
	}

	pump, _, err := svc.AddStructure(ctx, pipe.ID, 5, domain.Structure{
		Kind: domain.StructurePump,
		Pump: &domain.Pump{Capacity: 1, ControlDirection: domain.PumpSuctionSide, StartSuction: -1, StopSuction: -2},
	})
	if err != nil {
		t.Fatalf("add pump: %v", err)
	}
	fields, err := svc.StructureFields(pump.ID)
	if err != nil {
		t.Fatalf("fields: %v", err)
	}
	want := []string{"branch_id", "chainage", "start_delivery", "stop_delivery"}
	if len(fields) != len(want) {
		t.Fatalf("expected %v, got %v", want, fields)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, fields)
		}
	}
	if _, err := svc.StructureFields("missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestServiceValidateBuildsReport(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService(nil)
	if _, err := svc.Transact(ctx, "seed", func(tx Transaction) error {
		seedChannel(t, tx)
		_, err := tx.CreateNode(domain.Node{Name: "orphan"})
		return err
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	report, err := svc.Validate(ctx)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if report.Category != ReportTitle {
		t.Fatalf("unexpected root %q", report.Category)
	}
	if report.ErrorCount() != 0 || report.WarningCount() != 1 {
		t.Fatalf("expected exactly one warning, got %d errors %d warnings", report.ErrorCount(), report.WarningCount())
	}
	if len(report.SubReports) != 1 || report.SubReports[0].Category != CategoryNetwork {
		t.Fatalf("unexpected sub reports %+v", report.SubReports)
	}
}

func TestTransactRequiresOperationName(t *testing.T) {
	svc := NewInMemoryService(nil)
	if _, err := svc.Transact(context.Background(), "", func(Transaction) error { return nil }); err == nil {
		t.Fatalf("expected error for empty operation name")
	}
}
