// Package graph mirrors the network topology into Neo4j so that it can be
// explored with Cypher: nodes become (:Node) vertices, branches become
// [:BRANCH] relationships and structures hang off their branch's source node.
// Every vertex carries a model property so several models share a database.
package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"hydrocore/internal/ctxlog"
	"hydrocore/pkg/domain"
)

// CypherRunner executes one statement.
type CypherRunner interface {
	Run(ctx context.Context, cypher string, params map[string]any) error
}

// Session is a unit of work against the graph database.
type Session interface {
	ExecuteWrite(ctx context.Context, work func(tx CypherRunner) error) error
	Close(ctx context.Context) error
}

// SessionOpener hands out sessions.
type SessionOpener interface {
	OpenSession(ctx context.Context) Session
}

// Viewer gives read access to a consistent model snapshot.
type Viewer interface {
	View(ctx context.Context, fn func(domain.TransactionView) error) error
}

// Statement is a parameterised Cypher statement.
type Statement struct {
	Cypher string
	Params map[string]any
}

const (
	clearModel = `MATCH (n {model: $model}) DETACH DELETE n`
	mergeNodes = `UNWIND $rows AS row
MERGE (n:Node {model: $model, id: row.id})
SET n.name = row.name, n.x = row.x, n.y = row.y, n.boundary = row.boundary`
	mergeBranches = `UNWIND $rows AS row
MATCH (a:Node {model: $model, id: row.from}), (b:Node {model: $model, id: row.to})
MERGE (a)-[r:BRANCH {id: row.id}]->(b)
SET r.name = row.name, r.kind = row.kind, r.length = row.length`
	mergeStructures = `UNWIND $rows AS row
MATCH (a:Node {model: $model, id: row.from})
MERGE (s:Structure {model: $model, id: row.id})
SET s.name = row.name, s.kind = row.kind, s.branch = row.branch, s.chainage = row.chainage
MERGE (a)-[:HAS_STRUCTURE {branch: row.branch}]->(s)`
)

// Statements translates a snapshot into the statements that replace the
// model's subgraph.
func Statements(model string, view domain.TransactionView) []Statement {
	boundaries := make(map[string]string)
	for _, bc := range view.ListBoundaries() {
		boundaries[bc.NodeID] = string(bc.Kind)
	}
	nodes := make([]map[string]any, 0)
	for _, n := range view.ListNodes() {
		nodes = append(nodes, map[string]any{
			"id": n.ID, "name": n.Name, "x": n.X, "y": n.Y, "boundary": boundaries[n.ID],
		})
	}
	branches := make([]map[string]any, 0)
	sources := make(map[string]string)
	for _, b := range view.ListBranches() {
		sources[b.ID] = b.SourceNodeID
		branches = append(branches, map[string]any{
			"id": b.ID, "name": b.Name, "kind": string(b.Kind),
			"from": b.SourceNodeID, "to": b.TargetNodeID, "length": b.Length,
		})
	}
	structures := make([]map[string]any, 0)
	for _, s := range view.ListStructures() {
		from, ok := sources[s.BranchID]
		if !ok {
			continue
		}
		structures = append(structures, map[string]any{
			"id": s.ID, "name": s.Name, "kind": string(s.Kind),
			"branch": s.BranchID, "chainage": s.Chainage, "from": from,
		})
	}
	base := func(rows []map[string]any) map[string]any {
		return map[string]any{"model": model, "rows": rows}
	}
	return []Statement{
		{Cypher: clearModel, Params: map[string]any{"model": model}},
		{Cypher: mergeNodes, Params: base(nodes)},
		{Cypher: mergeBranches, Params: base(branches)},
		{Cypher: mergeStructures, Params: base(structures)},
	}
}

// Syncer writes model snapshots to the graph database.
type Syncer struct {
	opener SessionOpener
	model  string
}

// NewSyncer returns a syncer for the named model.
func NewSyncer(opener SessionOpener, model string) (*Syncer, error) {
	if opener == nil {
		return nil, errors.New("graph: session opener is required")
	}
	if model == "" {
		return nil, errors.New("graph: model name is required")
	}
	return &Syncer{opener: opener, model: model}, nil
}

// Sync replaces the model's subgraph with the contents of view in a single
// write transaction.
func (s *Syncer) Sync(ctx context.Context, view domain.TransactionView) error {
	stmts := Statements(s.model, view)
	sess := s.opener.OpenSession(ctx)
	defer func() { _ = sess.Close(ctx) }()
	err := sess.ExecuteWrite(ctx, func(tx CypherRunner) error {
		for _, st := range stmts {
			if err := tx.Run(ctx, st.Cypher, st.Params); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("graph: sync %s: %w", s.model, err)
	}
	return nil
}

// OnCommit returns a change listener that re-syncs the whole model from
// viewer after every committed transaction.
func (s *Syncer) OnCommit(viewer Viewer) func(context.Context, []domain.ChangeEvent) {
	return func(ctx context.Context, events []domain.ChangeEvent) {
		if len(events) == 0 {
			return
		}
		err := viewer.View(ctx, func(view domain.TransactionView) error {
			return s.Sync(ctx, view)
		})
		if err != nil {
			ctxlog.FromContext(ctx).Warn("graph sync failed", "model", s.model, "error", err)
		}
	}
}

// Connect opens a Neo4j driver with basic auth and verifies connectivity.
func Connect(ctx context.Context, uri, user, password string) (neo4j.DriverWithContext, error) {
	auth := neo4j.NoAuth()
	if user != "" {
		auth = neo4j.BasicAuth(user, password, "")
	}
	driver, err := neo4j.NewDriverWithContext(uri, auth)
	if err != nil {
		return nil, fmt.Errorf("graph: open %s: %w", uri, err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("graph: verify %s: %w", uri, err)
	}
	return driver, nil
}

// DriverOpener opens sessions on a Neo4j driver.
type DriverOpener struct {
	Driver   neo4j.DriverWithContext
	Database string
}

// OpenSession implements SessionOpener.
func (o DriverOpener) OpenSession(ctx context.Context) Session {
	return driverSession{sess: o.Driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: o.Database})}
}

type driverSession struct {
	sess neo4j.SessionWithContext
}

func (d driverSession) ExecuteWrite(ctx context.Context, work func(tx CypherRunner) error) error {
	_, err := d.sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, work(managedRunner{tx: tx})
	})
	return err
}

func (d driverSession) Close(ctx context.Context) error {
	return d.sess.Close(ctx)
}

type managedRunner struct {
	tx neo4j.ManagedTransaction
}

func (m managedRunner) Run(ctx context.Context, cypher string, params map[string]any) error {
	res, err := m.tx.Run(ctx, cypher, params)
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}
