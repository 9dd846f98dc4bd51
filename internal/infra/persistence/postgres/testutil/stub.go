// Package testutil provides a stub database/sql driver that understands the
// state table statements issued by the postgres document store.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// StubConn records statements and keeps committed bucket payloads in memory.
// Writes issued inside a transaction are staged and only become visible on commit.
type StubConn struct {
	mu         sync.Mutex
	Execs      []string
	State      map[string][]byte
	pending    map[string][]byte
	FailPing   bool
	FailExec   bool
	FailBegin  bool
	FailCommit bool
	FailBucket string
	FailQuery  bool
	RowsErr    error
}

// NewStubDB registers a sql.DB backed by an in-memory stub connection.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{State: make(map[string][]byte)}
	name := fmt.Sprintf("stubpg%d", time.Now().UnixNano())
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) {
	return d.conn, nil
}

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// Ping implements driver.Pinger.
func (c *StubConn) Ping(_ context.Context) error {
	if c.FailPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// BeginTx implements driver.ConnBeginTx.
func (c *StubConn) BeginTx(_ context.Context, _ driver.TxOptions) (driver.Tx, error) {
	if c.FailBegin {
		return nil, fmt.Errorf("begin fail")
	}
	c.mu.Lock()
	c.pending = make(map[string][]byte)
	c.mu.Unlock()
	return &stubTx{conn: c}, nil
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, fmt.Errorf("exec fail")
	}
	upper := strings.ToUpper(strings.TrimSpace(query))
	if !strings.HasPrefix(upper, "INSERT INTO STATE") {
		return driver.RowsAffected(0), nil
	}
	if len(args) != 2 {
		return nil, fmt.Errorf("expected bucket and payload args, got %d", len(args))
	}
	bucket, ok := args[0].Value.(string)
	if !ok {
		return nil, fmt.Errorf("bucket arg must be a string")
	}
	if bucket == c.FailBucket {
		return nil, fmt.Errorf("exec fail for %s", bucket)
	}
	payload, _ := args[1].Value.([]byte)
	target := c.State
	if c.pending != nil {
		target = c.pending
	}
	target[bucket] = append([]byte(nil), payload...)
	return driver.RowsAffected(1), nil
}

// QueryContext implements driver.QueryerContext.
func (c *StubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailQuery {
		return nil, fmt.Errorf("query fail")
	}
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(query)), "select bucket, payload from state") {
		return nil, fmt.Errorf("cannot parse select: %s", query)
	}
	buckets := make([]string, 0, len(c.State))
	for b := range c.State {
		buckets = append(buckets, b)
	}
	sort.Strings(buckets)
	values := make([][]driver.Value, 0, len(buckets))
	for _, b := range buckets {
		values = append(values, []driver.Value{b, append([]byte(nil), c.State[b]...)})
	}
	return &stubRows{cols: []string{"bucket", "payload"}, rows: values, err: c.RowsErr}, nil
}

// Seed writes bucket payloads directly to committed state.
func (c *StubConn) Seed(rows map[string][]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range rows {
		c.State[k] = append([]byte(nil), v...)
	}
}

type stubTx struct {
	conn *StubConn
}

func (t *stubTx) Commit() error {
	t.conn.mu.Lock()
	defer t.conn.mu.Unlock()
	pending := t.conn.pending
	t.conn.pending = nil
	if t.conn.FailCommit {
		return fmt.Errorf("commit fail")
	}
	for k, v := range pending {
		t.conn.State[k] = v
	}
	return nil
}

func (t *stubTx) Rollback() error {
	t.conn.mu.Lock()
	t.conn.pending = nil
	t.conn.mu.Unlock()
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
