package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"hydrocore/internal/infra/persistence/postgres/testutil"
	"hydrocore/pkg/domain"
)

func openStub(t *testing.T) *testutil.StubConn {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)
	return conn
}

func TestNewStoreCreatesSchemaAndLoadsModel(t *testing.T) {
	conn := openStub(t)
	nodes, _ := json.Marshal(map[string]domain.Node{"n1": {Base: domain.Base{ID: "n1"}, Name: "outlet"}})
	conn.Tables["model_buckets"] = []testutil.Row{
		{"name": "nodes", "payload": nodes},
		{"name": "retired_bucket", "payload": []byte(`{}`)},
	}
	conn.Tables["model_revisions"] = []testutil.Row{{"revision": int64(4)}, {"revision": int64(7)}}

	store, err := NewStore(context.Background(), "", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if got := store.ListNodes(); len(got) != 1 || got[0].Name != "outlet" {
		t.Fatalf("expected node loaded, got %+v", got)
	}
	if store.Revision() != 7 {
		t.Fatalf("expected revision 7, got %d", store.Revision())
	}
	var ddl int
	for _, stmt := range conn.Execs {
		if strings.HasPrefix(stmt, "CREATE TABLE IF NOT EXISTS") {
			ddl++
		}
	}
	if ddl != 2 {
		t.Fatalf("expected two DDL statements, got execs: %v", conn.Execs)
	}
}

func TestRunInTransactionWritesTouchedBuckets(t *testing.T) {
	conn := openStub(t)
	store, err := NewStore(context.Background(), "ignored", nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	ctx := context.Background()
	for _, name := range []string{"junction", "outlet"} {
		if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			_, err := tx.CreateNode(domain.Node{Name: name})
			return err
		}); err != nil {
			t.Fatalf("transaction: %v", err)
		}
	}
	buckets := conn.Tables["model_buckets"]
	if len(buckets) != 1 || buckets[0]["name"] != "nodes" || buckets[0]["revision"] != int64(2) {
		t.Fatalf("expected the nodes bucket at revision 2, got %v", buckets)
	}
	var persisted map[string]domain.Node
	if err := json.Unmarshal(buckets[0]["payload"].([]byte), &persisted); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(persisted) != 2 {
		t.Fatalf("expected two persisted nodes, got %+v", persisted)
	}
	revisions := conn.Tables["model_revisions"]
	if len(revisions) != 2 || revisions[1]["buckets"] != "{nodes}" {
		t.Fatalf("unexpected journal %v", revisions)
	}
}

func TestPersistFailuresSurface(t *testing.T) {
	conn := openStub(t)
	store, err := NewStore(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	conn.FailCommit = true
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateNode(domain.Node{Name: "n"})
		return err
	})
	if err == nil || !strings.Contains(err.Error(), "commit revision 1") {
		t.Fatalf("expected commit failure, got %v", err)
	}
	if store.Revision() != 0 {
		t.Fatalf("revision must not advance on failure")
	}
}

func TestNewStoreOpenAndPingErrors(t *testing.T) {
	boom := errors.New("boom")
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return nil, boom })
	if _, err := NewStore(context.Background(), "", nil); !errors.Is(err, boom) {
		t.Fatalf("expected open error, got %v", err)
	}
	restore()

	conn := openStub(t)
	conn.FailPing = true
	if _, err := NewStore(context.Background(), "", nil); err == nil || !strings.Contains(err.Error(), "ping") {
		t.Fatalf("expected ping error, got %v", err)
	}
}

func TestFailedMirrorIsRetriedWithNextCommit(t *testing.T) {
	conn := openStub(t)
	store, err := NewStore(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	ctx := context.Background()
	conn.FailTables = map[string]bool{"model_buckets": true}
	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateNode(domain.Node{Name: "kept"})
		return err
	})
	if !errors.Is(err, domain.ErrNotPersisted) {
		t.Fatalf("expected ErrNotPersisted, got %v", err)
	}

	conn.FailTables = nil
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.UpdateSettings(func(s *domain.Settings) error { return nil })
		return err
	}); err != nil {
		t.Fatalf("settings: %v", err)
	}
	names := map[any]bool{}
	for _, row := range conn.Tables["model_buckets"] {
		names[row["name"]] = true
	}
	if !names["nodes"] || !names["settings"] {
		t.Fatalf("expected nodes and settings buckets, got %v", conn.Tables["model_buckets"])
	}
	if store.Revision() != 1 {
		t.Fatalf("expected revision 1, got %d", store.Revision())
	}
}
