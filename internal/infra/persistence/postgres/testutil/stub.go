// Package testutil provides a database/sql driver double for the postgres
// store. It understands just enough SQL to keep rows per table: CREATE is
// recorded, INSERT appends (replacing on the first column when the statement
// has ON CONFLICT), SELECT returns every row of the named table.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
)

// Row is one stored record keyed by lower-case column name.
type Row map[string]any

// StubConn is the shared connection behind a stub sql.DB.
type StubConn struct {
	Execs  []string
	Tables map[string][]Row

	FailPing   bool
	FailBegin  bool
	FailCommit bool
	// FailTables makes any statement touching the named table fail.
	FailTables map[string]bool
	// RowsErr is reported by every result set after its last row.
	RowsErr error
}

var stubSeq atomic.Int64

// NewStubDB registers a fresh driver instance and opens a sql.DB on it.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Tables: make(map[string][]Row)}
	name := fmt.Sprintf("hydrocore-stub-%d", stubSeq.Add(1))
	sql.Register(name, stubDriver{conn: conn})
	db, err := sql.Open(name, "")
	if err != nil {
		panic(err)
	}
	db.SetMaxOpenConns(1)
	return db, conn
}

type stubDriver struct{ conn *StubConn }

func (d stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

// Prepare implements driver.Conn; the stub only serves ExecContext/QueryContext.
func (c *StubConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("stub: prepared statements unsupported")
}

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// BeginTx implements driver.ConnBeginTx.
func (c *StubConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	if c.FailBegin {
		return nil, errors.New("stub: begin failed")
	}
	return stubTx{conn: c}, nil
}

// Ping implements driver.Pinger.
func (c *StubConn) Ping(context.Context) error {
	if c.FailPing {
		return errors.New("stub: ping failed")
	}
	return nil
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.Execs = append(c.Execs, query)
	verb, table := classify(query)
	if c.FailTables[table] {
		return nil, fmt.Errorf("stub: %s %s failed", verb, table)
	}
	if verb != "insert" {
		return driver.RowsAffected(0), nil
	}
	cols := insertColumns(query)
	if len(cols) != len(args) {
		return nil, fmt.Errorf("stub: %d columns but %d args for %s", len(cols), len(args), table)
	}
	row := make(Row, len(cols))
	for i, col := range cols {
		row[col] = args[i].Value
	}
	if strings.Contains(strings.ToUpper(query), "ON CONFLICT") {
		key := cols[0]
		kept := c.Tables[table][:0]
		for _, existing := range c.Tables[table] {
			if existing[key] != row[key] {
				kept = append(kept, existing)
			}
		}
		c.Tables[table] = kept
	}
	c.Tables[table] = append(c.Tables[table], row)
	return driver.RowsAffected(1), nil
}

// QueryContext implements driver.QueryerContext.
func (c *StubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	verb, table := classify(query)
	if verb != "select" {
		return nil, fmt.Errorf("stub: cannot query %q", query)
	}
	if c.FailTables[table] {
		return nil, fmt.Errorf("stub: select %s failed", table)
	}
	cols := selectColumns(query)
	rows := &stubRows{cols: cols, err: c.RowsErr}
	for _, r := range c.Tables[table] {
		vals := make([]driver.Value, len(cols))
		for i, col := range cols {
			vals[i] = r[col]
		}
		rows.values = append(rows.values, vals)
	}
	return rows, nil
}

// classify returns the lower-case verb and target table of a statement.
func classify(query string) (verb, table string) {
	fields := strings.Fields(strings.ToLower(query))
	if len(fields) == 0 {
		return "", ""
	}
	verb = fields[0]
	marker := map[string]string{"insert": "into", "select": "from", "create": "exists"}[verb]
	for i, f := range fields {
		if f == marker && i+1 < len(fields) {
			table = fields[i+1]
			break
		}
	}
	if j := strings.IndexByte(table, '('); j >= 0 {
		table = table[:j]
	}
	return verb, table
}

func insertColumns(query string) []string {
	open := strings.IndexByte(query, '(')
	closing := strings.IndexByte(query, ')')
	if open < 0 || closing < open {
		return nil
	}
	return splitColumns(query[open+1 : closing])
}

func selectColumns(query string) []string {
	lower := strings.ToLower(query)
	from := strings.Index(lower, " from ")
	if from < 0 {
		return nil
	}
	return splitColumns(query[len("select "):from])
}

func splitColumns(list string) []string {
	var cols []string
	for _, part := range strings.Split(list, ",") {
		if col := strings.ToLower(strings.TrimSpace(part)); col != "" {
			cols = append(cols, col)
		}
	}
	return cols
}

type stubTx struct{ conn *StubConn }

func (t stubTx) Commit() error {
	if t.conn.FailCommit {
		return errors.New("stub: commit failed")
	}
	return nil
}

func (stubTx) Rollback() error { return nil }

type stubRows struct {
	cols   []string
	values [][]driver.Value
	next   int
	err    error
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.next >= len(r.values) {
		if r.err != nil {
			return r.err
		}
		return io.EOF
	}
	copy(dest, r.values[r.next])
	r.next++
	return nil
}
