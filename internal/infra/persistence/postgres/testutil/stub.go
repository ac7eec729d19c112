// Package testutil provides an in-memory database/sql driver that understands
// the handful of statements the postgres snapshot store issues.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"maps"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	insertRe = regexp.MustCompile(`(?is)^\s*insert\s+into\s+(\w+)\s*\(([^)]*)\)\s*values\s*\([^)]*\)\s*(on\s+conflict\s*\(\s*(\w+)\s*\))?`)
	deleteRe = regexp.MustCompile(`(?is)^\s*delete\s+from\s+(\w+)(?:\s+where\s+(\w+)\s*=\s*\$1)?\s*$`)
	selectRe = regexp.MustCompile(`(?is)^\s*select\s+(.+?)\s+from\s+(\w+)`)
	ddlRe    = regexp.MustCompile(`(?is)^\s*(create|alter)\s+`)
)

var stubSeq atomic.Int64

// StubConn records statements and keeps table rows in memory. Writes issued
// inside a transaction are staged and only become visible on Commit.
type StubConn struct {
	mu         sync.Mutex
	Execs      []string
	Tables     map[string][]map[string]any
	FailExec   bool
	FailBegin  bool
	RowsErr    error
	FailTables map[string]bool
	FailCommit bool

	staged map[string][]map[string]any
}

// NewStubDB registers a sql.DB backed by an in-memory stub connection.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Tables: make(map[string][]map[string]any)}
	name := fmt.Sprintf("stubpg%d", stubSeq.Add(1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	db.SetMaxOpenConns(1)
	return db, conn
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) {
	return d.conn, nil
}

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("stub: prepare not supported") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// Rows returns a copy of the committed rows stored in table.
func (c *StubConn) Rows(table string) []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneRows(c.Tables[table])
}

// Ping implements driver.Pinger.
func (c *StubConn) Ping(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailExec {
		return errors.New("ping fail")
	}
	return nil
}

// BeginTx implements driver.ConnBeginTx.
func (c *StubConn) BeginTx(_ context.Context, _ driver.TxOptions) (driver.Tx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailBegin {
		return nil, errors.New("begin fail")
	}
	if c.staged != nil {
		return nil, errors.New("stub: transaction already open")
	}
	c.staged = make(map[string][]map[string]any, len(c.Tables))
	for name, rows := range c.Tables {
		c.staged[name] = cloneRows(rows)
	}
	return &stubTx{conn: c}, nil
}

// view returns the tables statements currently operate on.
func (c *StubConn) view() map[string][]map[string]any {
	if c.staged != nil {
		return c.staged
	}
	if c.Tables == nil {
		c.Tables = make(map[string][]map[string]any)
	}
	return c.Tables
}

func (c *StubConn) failTable(table string) bool {
	return c.FailTables != nil && c.FailTables[table]
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, errors.New("exec fail")
	}
	tables := c.view()
	if m := insertRe.FindStringSubmatch(query); m != nil {
		table, cols := strings.ToLower(m[1]), splitColumns(m[2])
		if c.failTable(table) {
			return nil, fmt.Errorf("exec fail for %s", table)
		}
		if len(cols) != len(args) {
			return nil, fmt.Errorf("column/arg mismatch for %s", table)
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = args[i].Value
		}
		if conflict := strings.ToLower(m[4]); conflict != "" {
			tables[table] = removeWhere(tables[table], conflict, row[conflict])
		}
		tables[table] = append(tables[table], row)
		return driver.RowsAffected(1), nil
	}
	if m := deleteRe.FindStringSubmatch(query); m != nil {
		table, col := strings.ToLower(m[1]), strings.ToLower(m[2])
		if c.failTable(table) {
			return nil, fmt.Errorf("exec fail for %s", table)
		}
		before := len(tables[table])
		if col == "" {
			tables[table] = nil
			return driver.RowsAffected(before), nil
		}
		if len(args) == 0 {
			return nil, fmt.Errorf("missing args for delete %s", table)
		}
		tables[table] = removeWhere(tables[table], col, args[0].Value)
		return driver.RowsAffected(before - len(tables[table])), nil
	}
	if ddlRe.MatchString(query) {
		return driver.RowsAffected(0), nil
	}
	return nil, fmt.Errorf("stub: unsupported statement %q", query)
}

// QueryContext implements driver.QueryerContext.
func (c *StubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := selectRe.FindStringSubmatch(query)
	if m == nil {
		return nil, fmt.Errorf("stub: cannot parse select %q", query)
	}
	table, cols := strings.ToLower(m[2]), splitColumns(m[1])
	if c.failTable(table) {
		return nil, fmt.Errorf("query fail for %s", table)
	}
	tableRows := c.view()[table]
	values := make([][]driver.Value, 0, len(tableRows))
	for _, row := range tableRows {
		vals := make([]driver.Value, len(cols))
		for i, col := range cols {
			vals[i] = row[col]
		}
		values = append(values, vals)
	}
	return &stubRows{cols: cols, rows: values, err: c.RowsErr}, nil
}

type stubTx struct {
	conn *StubConn
}

// Commit publishes the staged tables. A failed commit discards them.
func (t *stubTx) Commit() error {
	t.conn.mu.Lock()
	defer t.conn.mu.Unlock()
	staged := t.conn.staged
	t.conn.staged = nil
	if t.conn.FailCommit {
		return errors.New("commit fail")
	}
	t.conn.Tables = staged
	return nil
}

func (t *stubTx) Rollback() error {
	t.conn.mu.Lock()
	defer t.conn.mu.Unlock()
	t.conn.staged = nil
	return nil
}

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
	err  error
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		if r.err != nil {
			return r.err
		}
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

func removeWhere(rows []map[string]any, col string, value any) []map[string]any {
	out := rows[:0:0]
	for _, row := range rows {
		if equalValue(row[col], value) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func equalValue(a, b any) bool {
	ab, aok := a.([]byte)
	bb, bok := b.([]byte)
	if aok && bok {
		return string(ab) == string(bb)
	}
	if aok || bok {
		return false
	}
	return a == b
}

func cloneRows(rows []map[string]any) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, maps.Clone(row))
	}
	return out
}

func splitColumns(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, strings.ToLower(strings.TrimSpace(part)))
	}
	return out
}
