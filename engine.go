// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package talon ties the Binder, the heuristic optimizer, and the
// rowexec executor to a concrete sql.Transaction into the single
// entrypoint callers (cmd/talon, tests) drive a statement through,
// grounded on the teacher's root package sqle's Engine.Query shape
// (engine.go): one call in, a schema and a pull iterator out, the
// transaction committed or rolled back by the iterator's Close.
package talon

import (
	"context"
	"io"

	"github.com/talondb/talon/sql"
	"github.com/talondb/talon/sql/ast"
	"github.com/talondb/talon/sql/binder"
	"github.com/talondb/talon/sql/hep"
	"github.com/talondb/talon/sql/rowexec"
	"github.com/talondb/talon/sql/stats"
	boltstore "github.com/talondb/talon/storage/bolt"
)

// Engine is talon's top-level handle on one database file (spec §4,
// §6). It is safe for sequential use by one goroutine at a time; bolt
// itself serializes writers, and this type adds no pooling of its own.
type Engine struct {
	store *boltstore.Store
}

// Open opens (creating if absent) the bolt file at path as a talon
// database.
func Open(path string) (*Engine, error) {
	store, err := boltstore.Open(path)
	if err != nil {
		return nil, err
	}
	return &Engine{store: store}, nil
}

// Close releases the underlying store. No in-flight transaction may
// be open.
func (e *Engine) Close() error { return e.store.Close() }

// Query binds, optimizes, and executes one already-parsed statement
// (spec §4.3 "AST input": producing stmt from SQL text is an external
// collaborator's job). The returned RowIter's Close commits the
// transaction on a nil error from the caller's last Next, or rolls
// back otherwise — callers that abandon an iterator early rather than
// draining it to io.EOF must call Close themselves to settle the
// transaction.
func (e *Engine) Query(ctx *sql.Context, stmt ast.Statement) (sql.SchemaRef, rowexec.RowIter, error) {
	txn, err := e.store.Begin(mutates(stmt))
	if err != nil {
		return nil, nil, err
	}
	ctx.SetStatsProviderIfAbsent(stats.NewEstimator(stats.NewTxnLoader(txn)))

	lp, err := binder.New(txn).Bind(stmt)
	if err != nil {
		txn.Rollback()
		return nil, nil, err
	}

	optimized, err := hep.Optimize(ctx, lp)
	if err != nil {
		txn.Rollback()
		return nil, nil, err
	}

	iter, err := rowexec.Build(ctx, optimized, txn)
	if err != nil {
		txn.Rollback()
		return nil, nil, err
	}

	return optimized.Schema, &txnIter{RowIter: iter, txn: txn}, nil
}

// NewContext is a thin convenience wrapper around sql.NewContext for
// callers that don't need to share one stdlib context.Context across
// several queries; Query itself wires up ANALYZE statistics per call,
// so no Engine-specific options are needed here.
func (e *Engine) NewContext(opts ...sql.ContextOption) *sql.Context {
	return sql.NewContext(context.Background(), opts...)
}

// txnIter commits or rolls back the query's transaction exactly once,
// on whichever of Next (upon io.EOF or error) or Close happens first —
// mirroring the teacher's iter.IterCloser wrapping used throughout
// rowexec's own RowIter implementations, generalized here to the
// whole-statement transaction boundary instead of one operator.
type txnIter struct {
	rowexec.RowIter
	txn    *boltstore.Transaction
	closed bool
}

func (t *txnIter) Next(ctx *sql.Context) (sql.Tuple, error) {
	tuple, err := t.RowIter.Next(ctx)
	if err != nil {
		t.settle(err)
	}
	return tuple, err
}

func (t *txnIter) Close(ctx *sql.Context) error {
	err := t.RowIter.Close(ctx)
	t.settle(err)
	return err
}

func (t *txnIter) settle(iterErr error) {
	if t.closed {
		return
	}
	t.closed = true
	if iterErr != nil && iterErr != io.EOF {
		t.txn.Rollback()
		return
	}
	t.txn.Commit()
}

// mutates reports whether stmt needs a writable transaction (spec
// §4.6: DDL and DML are WriteExecutor, everything else ReadExecutor).
func mutates(stmt ast.Statement) bool {
	switch stmt.(type) {
	case *ast.InsertStmt, *ast.UpdateStmt, *ast.DeleteStmt,
		*ast.CreateTableStmt, *ast.DropTableStmt, *ast.TruncateStmt,
		*ast.AlterTableStmt, *ast.AnalyzeStmt, *ast.CopyFromFileStmt:
		return true
	case *ast.ExplainStmt:
		return false
	default:
		return false
	}
}
