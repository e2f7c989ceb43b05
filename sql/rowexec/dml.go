package rowexec

import (
	"io"

	"github.com/talondb/talon/sql"
	"github.com/talondb/talon/sql/plan"
	"github.com/talondb/talon/sql/types"
)

// columnPositions maps every column id in schema to its slot, so a
// row's values can be looked up by id rather than position.
func columnPositions(schema sql.SchemaRef) map[sql.ColumnID]int {
	pos := make(map[sql.ColumnID]int, len(schema))
	for i, c := range schema {
		id, ok := c.ID()
		if ok {
			pos[id] = i
		}
	}
	return pos
}

// buildInsert implements Insert (spec §4.6): for every row produced by
// the child (typically Values), it maps VALUES-order columns onto the
// table's id space, fills missing columns from their declared default
// or null, rejects null in a non-nullable column, then maintains every
// unique index before appending the row under the primary key.
// Overwrite governs only the primary-key append; a secondary unique
// index violation always surfaces ErrDuplicateKey.
func buildInsert(ctx *sql.Context, p *plan.LogicalPlan, txn sql.Transaction) (RowIter, error) {
	child, err := buildChild(ctx, p, txn)
	if err != nil {
		return nil, err
	}
	params := p.Params.(plan.InsertParams)
	table := params.Table
	schema := table.Columns()
	pos := columnPositions(schema)

	pkPos, _, err := table.PrimaryKey()
	if err != nil {
		return nil, err
	}

	targetCols := params.Columns
	if len(targetCols) == 0 {
		targetCols = make([]sql.ColumnID, len(schema))
		for i, c := range schema {
			id, _ := c.ID()
			targetCols[i] = id
		}
	}

	builder := sql.NewTupleBuilder(schema)

	for {
		tuple, err := child.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		row := make(sql.Row, len(schema))
		for i, col := range schema {
			row[i] = defaultFor(col)
		}
		for i, colID := range targetCols {
			slot, ok := pos[colID]
			if !ok {
				continue
			}
			row[slot] = tuple.Values[i]
		}

		if err := appendRowWithIndexes(txn, table, builder, pos, pkPos, row, params.Overwrite); err != nil {
			return nil, err
		}
	}
	if err := child.Close(ctx); err != nil {
		return nil, err
	}
	return newSliceIter(nil), nil
}

// appendRowWithIndexes maintains every non-primary unique index for
// row, then appends it under the primary key — the common tail of
// Insert and CopyFromFile (spec §4.6 Insert contract step (a)/(b)).
func appendRowWithIndexes(txn sql.Transaction, table *sql.TableCatalog, builder sql.TupleBuilder, pos map[sql.ColumnID]int, pkPos int, row sql.Row, overwrite bool) error {
	tupleID := row[pkPos]
	fullTuple, err := builder.Build(&tupleID, row)
	if err != nil {
		return err
	}

	for _, idx := range table.Indexes {
		if idx.IsPrimary {
			continue
		}
		keyVals := make([]types.Value, len(idx.ColumnIDs))
		for j, cid := range idx.ColumnIDs {
			keyVals[j] = row[pos[cid]]
		}
		index := sql.Index{ID: idx.ID, ColumnValues: keyVals}
		if err := txn.AddIndex(table.Name, index, []types.Value{tupleID}, idx.IsUnique); err != nil {
			return err
		}
	}

	return txn.Append(table.Name, fullTuple, overwrite)
}

func defaultFor(col sql.ColumnRef) types.Value {
	if def := col.DefaultValue(); def != nil {
		return *def
	}
	return types.Null(col.Datatype())
}

// buildUpdate implements Update (spec §4.6): read-modify-write over
// the rows the child (Scan[+Filter]) selects. Unique index entries are
// dropped and rebuilt unconditionally around the value change, and the
// row is deleted and re-appended under its (possibly new) primary key.
func buildUpdate(ctx *sql.Context, p *plan.LogicalPlan, txn sql.Transaction) (RowIter, error) {
	child, err := buildChild(ctx, p, txn)
	if err != nil {
		return nil, err
	}
	params := p.Params.(plan.UpdateParams)
	table := params.Table
	schema := table.Columns()
	pos := columnPositions(schema)

	pkPos, _, err := table.PrimaryKey()
	if err != nil {
		return nil, err
	}
	builder := sql.NewTupleBuilder(schema)

	for {
		tuple, err := child.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		oldTupleID := tuple.Values[pkPos]
		newRow := make(sql.Row, len(schema))
		copy(newRow, tuple.Values)
		for colID, expr := range params.Assignments {
			slot, ok := pos[colID]
			if !ok {
				continue
			}
			v, err := expr.Eval(ctx, tuple)
			if err != nil {
				return nil, err
			}
			newRow[slot] = v
		}
		newTupleID := newRow[pkPos]
		newTuple, err := builder.Build(&newTupleID, newRow)
		if err != nil {
			return nil, err
		}

		for _, idx := range table.Indexes {
			if idx.IsPrimary {
				continue
			}
			oldKeyVals := make([]types.Value, len(idx.ColumnIDs))
			newKeyVals := make([]types.Value, len(idx.ColumnIDs))
			for j, cid := range idx.ColumnIDs {
				oldKeyVals[j] = tuple.Values[pos[cid]]
				newKeyVals[j] = newRow[pos[cid]]
			}
			if err := txn.DelIndex(table.Name, sql.Index{ID: idx.ID, ColumnValues: oldKeyVals}, oldTupleID); err != nil {
				return nil, err
			}
			if err := txn.AddIndex(table.Name, sql.Index{ID: idx.ID, ColumnValues: newKeyVals}, []types.Value{newTupleID}, idx.IsUnique); err != nil {
				return nil, err
			}
		}

		if err := txn.Delete(table.Name, oldTupleID); err != nil {
			return nil, err
		}
		if err := txn.Append(table.Name, newTuple, true); err != nil {
			return nil, err
		}
	}
	if err := child.Close(ctx); err != nil {
		return nil, err
	}
	return newSliceIter(nil), nil
}

// buildDelete implements Delete (spec §4.6): drops every unique index
// entry and the row itself for each tuple the child selects.
func buildDelete(ctx *sql.Context, p *plan.LogicalPlan, txn sql.Transaction) (RowIter, error) {
	child, err := buildChild(ctx, p, txn)
	if err != nil {
		return nil, err
	}
	params := p.Params.(plan.DeleteParams)
	table := params.Table
	pos := columnPositions(table.Columns())
	pkPos, _, err := table.PrimaryKey()
	if err != nil {
		return nil, err
	}

	for {
		tuple, err := child.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		tupleID := tuple.Values[pkPos]
		for _, idx := range table.Indexes {
			if idx.IsPrimary {
				continue
			}
			keyVals := make([]types.Value, len(idx.ColumnIDs))
			for j, cid := range idx.ColumnIDs {
				keyVals[j] = tuple.Values[pos[cid]]
			}
			if err := txn.DelIndex(table.Name, sql.Index{ID: idx.ID, ColumnValues: keyVals}, tupleID); err != nil {
				return nil, err
			}
		}
		if err := txn.Delete(table.Name, tupleID); err != nil {
			return nil, err
		}
	}
	if err := child.Close(ctx); err != nil {
		return nil, err
	}
	return newSliceIter(nil), nil
}
