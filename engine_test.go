package talon

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talondb/talon/sql"
	"github.com/talondb/talon/sql/ast"
)

func openTestEngine(t *testing.T) *Engine {
	t.Helper()
	path := filepath.Join(t.TempDir(), "talon.bolt")
	e, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func drain(t *testing.T, e *Engine, stmt ast.Statement) (sql.SchemaRef, []sql.Tuple) {
	t.Helper()
	ctx := sql.NewContext(context.Background())
	schema, iter, err := e.Query(ctx, stmt)
	require.NoError(t, err)
	var rows []sql.Tuple
	for {
		tuple, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		rows = append(rows, tuple)
	}
	require.NoError(t, iter.Close(ctx))
	return schema, rows
}

func usersTable() *ast.CreateTableStmt {
	return &ast.CreateTableStmt{
		Table: "users",
		Columns: []ast.ColumnDef{
			{Name: "id", Type: "INT", IsPrimary: true},
			{Name: "name", Type: "VARCHAR", MaxLen: 64, Nullable: true},
			{Name: "age", Type: "INT", Nullable: true},
		},
	}
}

func insertUser(id int64, name string, age int64) *ast.InsertStmt {
	return &ast.InsertStmt{
		Table: "users",
		Values: [][]ast.Expr{
			{&ast.IntLiteral{Value: id}, &ast.StringLiteral{Value: name}, &ast.IntLiteral{Value: age}},
		},
	}
}

func TestEngineCreateInsertSelect(t *testing.T) {
	e := openTestEngine(t)

	_, _ = drain(t, e, usersTable())
	_, _ = drain(t, e, insertUser(1, "ada", 30))
	_, _ = drain(t, e, insertUser(2, "bo", 40))
	_, _ = drain(t, e, insertUser(3, "cy", 40))

	schema, rows := drain(t, e, &ast.SelectStmt{
		SelectList: []ast.Expr{&ast.Star{}},
		From:       &ast.TableRef{Name: "users"},
	})
	assert.Equal(t, []string{"id", "name", "age"}, schema.Names())
	require.Len(t, rows, 3)
}

func TestEnginePredicatePushdownIntoPrimaryScan(t *testing.T) {
	e := openTestEngine(t)

	_, _ = drain(t, e, usersTable())
	_, _ = drain(t, e, insertUser(1, "ada", 30))
	_, _ = drain(t, e, insertUser(2, "bo", 40))
	_, _ = drain(t, e, insertUser(3, "cy", 40))

	_, rows := drain(t, e, &ast.SelectStmt{
		SelectList: []ast.Expr{&ast.Star{}},
		From:       &ast.TableRef{Name: "users"},
		Where: &ast.BinaryExpr{
			Op:    "=",
			Left:  &ast.Ident{Name: "id"},
			Right: &ast.IntLiteral{Value: 2},
		},
	})
	require.Len(t, rows, 1)
	name, ok := rows[0].Values[1].AsString()
	require.True(t, ok)
	assert.Equal(t, "bo", name)
}

func TestEngineGroupByCount(t *testing.T) {
	e := openTestEngine(t)

	_, _ = drain(t, e, usersTable())
	_, _ = drain(t, e, insertUser(1, "ada", 30))
	_, _ = drain(t, e, insertUser(2, "bo", 40))
	_, _ = drain(t, e, insertUser(3, "cy", 40))

	_, rows := drain(t, e, &ast.SelectStmt{
		SelectList: []ast.Expr{
			&ast.Ident{Name: "age"},
			&ast.FuncCall{Name: "COUNT", Args: []ast.Expr{&ast.Star{}}},
		},
		From:    &ast.TableRef{Name: "users"},
		GroupBy: []ast.Expr{&ast.Ident{Name: "age"}},
	})
	require.Len(t, rows, 2)

	counts := map[int64]int64{}
	for _, row := range rows {
		age, err := row.Values[0].AsInt64()
		require.NoError(t, err)
		count, err := row.Values[1].AsInt64()
		require.NoError(t, err)
		counts[age] = count
	}
	assert.Equal(t, int64(1), counts[30])
	assert.Equal(t, int64(2), counts[40])
}

func TestEngineUniqueConstraintViolation(t *testing.T) {
	e := openTestEngine(t)

	_, _ = drain(t, e, usersTable())
	_, _ = drain(t, e, insertUser(1, "ada", 30))

	ctx := sql.NewContext(context.Background())
	_, _, err := e.Query(ctx, insertUser(1, "dup", 99))
	require.Error(t, err)
}

func TestEngineAnalyzeRoundTrip(t *testing.T) {
	e := openTestEngine(t)

	_, _ = drain(t, e, usersTable())
	_, _ = drain(t, e, insertUser(1, "ada", 30))
	_, _ = drain(t, e, insertUser(2, "bo", 40))

	_, rows := drain(t, e, &ast.AnalyzeStmt{Table: "users"})
	assert.NotEmpty(t, rows)

	_, showRows := drain(t, e, &ast.ShowStmt{Kind: ast.ShowTables})
	require.Len(t, showRows, 1)
	name, _ := showRows[0].Values[0].AsString()
	assert.Equal(t, "users", name)
}

func TestEngineDropColumnPreservesSurvivingData(t *testing.T) {
	e := openTestEngine(t)

	_, _ = drain(t, e, usersTable())
	_, _ = drain(t, e, insertUser(1, "ada", 30))
	_, _ = drain(t, e, insertUser(2, "bo", 40))

	_, _ = drain(t, e, &ast.AlterTableStmt{
		Table:      "users",
		Kind:       ast.AlterDropColumn,
		ColumnName: "name",
	})

	_, rows := drain(t, e, &ast.SelectStmt{
		SelectList: []ast.Expr{&ast.Star{}},
		From:       &ast.TableRef{Name: "users"},
		Where: &ast.BinaryExpr{
			Op:    "=",
			Left:  &ast.Ident{Name: "age"},
			Right: &ast.IntLiteral{Value: 40},
		},
	})
	require.Len(t, rows, 1)
	age, err := rows[0].Values[1].AsInt64()
	require.NoError(t, err)
	assert.EqualValues(t, 40, age)
}
