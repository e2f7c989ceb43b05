package rowexec

import (
	"github.com/talondb/talon/sql"
	"github.com/talondb/talon/sql/plan"
)

// buildCreateTable implements CreateTable (spec §4.6): delegates to
// the transaction's catalog entry point; IfNotExists swallows an
// already-exists error.
func buildCreateTable(ctx *sql.Context, p *plan.LogicalPlan, txn sql.Transaction) (RowIter, error) {
	params := p.Params.(plan.CreateTableParams)
	_, err := txn.CreateTable(params.TableName, params.Columns)
	if err != nil {
		if params.IfNotExists && sql.ErrDuplicated.Is(err) {
			return newSliceIter(nil), nil
		}
		return nil, err
	}
	return newSliceIter(nil), nil
}

// buildDropTable implements DropTable (spec §4.6); IfExists swallows a
// not-found error.
func buildDropTable(ctx *sql.Context, p *plan.LogicalPlan, txn sql.Transaction) (RowIter, error) {
	params := p.Params.(plan.DropTableParams)
	if err := txn.DropTable(params.TableName); err != nil {
		if params.IfExists && sql.ErrInvalidTable.Is(err) {
			return newSliceIter(nil), nil
		}
		return nil, err
	}
	return newSliceIter(nil), nil
}

// buildTruncate implements Truncate (spec §4.6): drops and recreates
// the table with the same column list, discarding every row and
// index entry without touching the catalog shape.
func buildTruncate(ctx *sql.Context, p *plan.LogicalPlan, txn sql.Transaction) (RowIter, error) {
	params := p.Params.(plan.TruncateParams)
	catalog, ok := txn.Table(params.TableName)
	if !ok {
		return nil, sql.ErrInvalidTable.New(params.TableName)
	}
	columns := catalog.Columns()
	if err := txn.DropTable(params.TableName); err != nil {
		return nil, err
	}
	if _, err := txn.CreateTable(params.TableName, columns); err != nil {
		return nil, err
	}
	return newSliceIter(nil), nil
}

// buildAddColumn implements AddColumn (spec §4.6); IfNotExists
// swallows a duplicate-column error.
func buildAddColumn(ctx *sql.Context, p *plan.LogicalPlan, txn sql.Transaction) (RowIter, error) {
	params := p.Params.(plan.AddColumnParams)
	_, err := txn.AddColumn(params.TableName, params.Column, params.IfNotExists)
	if err != nil {
		if params.IfNotExists && sql.ErrDuplicated.Is(err) {
			return newSliceIter(nil), nil
		}
		return nil, err
	}
	return newSliceIter(nil), nil
}

// buildDropColumn implements DropColumn (spec §4.6); IfExists
// swallows a not-found error.
func buildDropColumn(ctx *sql.Context, p *plan.LogicalPlan, txn sql.Transaction) (RowIter, error) {
	params := p.Params.(plan.DropColumnParams)
	if err := txn.DropColumn(params.TableName, params.ColumnName, params.IfExists); err != nil {
		if params.IfExists && sql.ErrInvalidColumn.Is(err) {
			return newSliceIter(nil), nil
		}
		return nil, err
	}
	return newSliceIter(nil), nil
}
