// Package binder lowers a parsed ast.Statement into a sql/plan
// LogicalPlan, resolving table and column names against a catalog
// (spec §4.3). It performs no parsing of its own: the AST is handed to
// it fully formed.
package binder

import (
	"strings"

	"github.com/talondb/talon/sql"
	"github.com/talondb/talon/sql/ast"
	"github.com/talondb/talon/sql/expression"
	"github.com/talondb/talon/sql/plan"
	"github.com/talondb/talon/sql/types"
)

// Binder resolves identifiers against a Catalog while lowering AST
// statements to logical plans.
type Binder struct {
	catalog sql.Catalog
}

func New(catalog sql.Catalog) *Binder {
	return &Binder{catalog: catalog}
}

// Bind lowers one top-level statement (spec §4.3).
func (b *Binder) Bind(stmt ast.Statement) (*plan.LogicalPlan, error) {
	switch s := stmt.(type) {
	case *ast.SelectStmt:
		return b.bindSelect(s)
	case *ast.InsertStmt:
		return b.bindInsert(s)
	case *ast.UpdateStmt:
		return b.bindUpdate(s)
	case *ast.DeleteStmt:
		return b.bindDelete(s)
	case *ast.CreateTableStmt:
		return b.bindCreateTable(s)
	case *ast.DropTableStmt:
		return plan.NewDropTable(lower(s.Table), s.IfExists), nil
	case *ast.TruncateStmt:
		if _, ok := b.catalog.Table(lower(s.Table)); !ok {
			return nil, sql.ErrInvalidTable.New(s.Table)
		}
		return plan.NewTruncate(lower(s.Table)), nil
	case *ast.AlterTableStmt:
		return b.bindAlterTable(s)
	case *ast.AnalyzeStmt:
		return b.bindAnalyze(s)
	case *ast.ShowStmt:
		return b.bindShow(s)
	case *ast.ExplainStmt:
		target, err := b.Bind(s.Stmt)
		if err != nil {
			return nil, err
		}
		return plan.NewExplain(target), nil
	case *ast.CopyFromFileStmt:
		table, ok := b.catalog.Table(lower(s.Table))
		if !ok {
			return nil, sql.ErrInvalidTable.New(s.Table)
		}
		return plan.NewCopyFromFile(table, s.Path), nil
	default:
		return nil, sql.ErrUnsupportedStmt.New("unrecognized statement")
	}
}

func lower(s string) string { return strings.ToLower(s) }

// --- SELECT -----------------------------------------------------------

func (b *Binder) bindSelect(s *ast.SelectStmt) (*plan.LogicalPlan, error) {
	var input *plan.LogicalPlan
	var err error
	if s.From == nil {
		input = plan.NewDummy()
	} else {
		input, err = b.bindFrom(s.From)
		if err != nil {
			return nil, err
		}
	}
	scope := input.Schema

	if s.Where != nil {
		pred, err := b.bindExpr(s.Where, scope)
		if err != nil {
			return nil, err
		}
		input = plan.NewFilter(expression.Simplify(pred), input)
	}

	if len(s.GroupBy) > 0 || hasAggregate(s.SelectList) {
		groupExprs := make([]expression.ScalarExpression, len(s.GroupBy))
		for i, g := range s.GroupBy {
			groupExprs[i], err = b.bindExpr(g, scope)
			if err != nil {
				return nil, err
			}
		}
		var aggExprs []*expression.AggCall
		for _, item := range s.SelectList {
			e, err := b.bindExpr(item, scope)
			if err != nil {
				return nil, err
			}
			collectAggCalls(e, &aggExprs)
		}
		input = plan.NewAggregate(groupExprs, aggExprs, input)
		scope = input.Schema
		if s.Having != nil {
			havingPred, err := b.bindExpr(s.Having, scope)
			if err != nil {
				return nil, err
			}
			input = plan.NewFilter(expression.Simplify(havingPred), input)
		}
	} else {
		exprs := make([]expression.ScalarExpression, 0, len(s.SelectList))
		for _, item := range s.SelectList {
			if _, ok := item.(*ast.Star); ok {
				for _, col := range scope {
					exprs = append(exprs, expression.NewColumnRef(col))
				}
				continue
			}
			e, err := b.bindExpr(item, scope)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, e)
		}
		input = plan.NewProject(exprs, input)
		scope = input.Schema
	}

	if len(s.OrderBy) > 0 {
		keys := make([]plan.SortKey, len(s.OrderBy))
		for i, item := range s.OrderBy {
			e, err := b.bindExpr(item.Expr, scope)
			if err != nil {
				return nil, err
			}
			keys[i] = plan.SortKey{Expr: e, Descending: item.Descending, NullsFirst: item.NullsFirst}
		}
		input = plan.NewSort(keys, input)
	}

	if s.Limit != nil || s.Offset != nil {
		offset := int64(0)
		if s.Offset != nil {
			offset = *s.Offset
		}
		input = plan.NewLimit(offset, s.Limit, input)
	}

	return input, nil
}

func hasAggregate(exprs []ast.Expr) bool {
	for _, e := range exprs {
		if containsAggCall(e) {
			return true
		}
	}
	return false
}

func containsAggCall(e ast.Expr) bool {
	switch n := e.(type) {
	case *ast.FuncCall:
		return isAggName(n.Name)
	case *ast.AliasExpr:
		return containsAggCall(n.Expr)
	case *ast.BinaryExpr:
		return containsAggCall(n.Left) || containsAggCall(n.Right)
	case *ast.UnaryExpr:
		return containsAggCall(n.Expr)
	}
	return false
}

func isAggName(name string) bool {
	switch strings.ToUpper(name) {
	case "COUNT", "SUM", "AVG", "MIN", "MAX":
		return true
	}
	return false
}

func collectAggCalls(e expression.ScalarExpression, out *[]*expression.AggCall) {
	switch n := e.(type) {
	case *expression.AggCall:
		*out = append(*out, n)
	case *expression.Alias:
		collectAggCalls(n.Expr, out)
	case *expression.Binary:
		collectAggCalls(n.Left, out)
		collectAggCalls(n.Right, out)
	case *expression.Unary:
		collectAggCalls(n.Expr, out)
	}
}

// --- FROM / JOIN -----------------------------------------------------

func (b *Binder) bindFrom(item ast.FromItem) (*plan.LogicalPlan, error) {
	switch f := item.(type) {
	case *ast.TableRef:
		table, ok := b.catalog.Table(lower(f.Name))
		if !ok {
			return nil, sql.ErrInvalidTable.New(f.Name)
		}
		scan := plan.NewScan(table)
		if f.Alias != "" {
			// A copy, not a mutation: catalog columns are shared
			// immutable handles (spec §5), so aliasing must mint a
			// fresh identity rather than rewrite the original.
			aliasSchema := make(sql.SchemaRef, len(scan.Schema))
			for i, c := range scan.Schema {
				aliased := *c
				aliased.Summary.TableName = lower(f.Alias)
				aliasSchema[i] = &aliased
			}
			scan.Schema = aliasSchema
		}
		return scan, nil
	case *ast.JoinRef:
		left, err := b.bindFrom(f.Left)
		if err != nil {
			return nil, err
		}
		right, err := b.bindFrom(f.Right)
		if err != nil {
			return nil, err
		}
		joinType := plan.JoinType(f.Type)
		var on expression.ScalarExpression
		if f.On != nil {
			on, err = b.bindExpr(f.On, left.Schema.Concat(right.Schema))
			if err != nil {
				return nil, err
			}
		}
		return plan.NewJoin(joinType, on, left, right), nil
	default:
		return nil, sql.ErrUnsupportedStmt.New("unrecognized FROM item")
	}
}

// --- expression binding -----------------------------------------------

func (b *Binder) bindExpr(e ast.Expr, scope sql.SchemaRef) (expression.ScalarExpression, error) {
	switch n := e.(type) {
	case *ast.Ident:
		return b.resolveColumn(n, scope)
	case *ast.IntLiteral:
		return expression.NewConstant(types.NewInt64(n.Value)), nil
	case *ast.FloatLiteral:
		return expression.NewConstant(types.NewFloat64(n.Value)), nil
	case *ast.StringLiteral:
		return expression.NewConstant(types.NewVarcharValue(n.Value, -1)), nil
	case *ast.BoolLiteral:
		return expression.NewConstant(types.NewBool(n.Value)), nil
	case *ast.NullLiteral:
		return expression.NewConstant(types.Null(types.TInvalid)), nil
	case *ast.UnaryExpr:
		return b.bindUnary(n, scope)
	case *ast.BinaryExpr:
		return b.bindBinary(n, scope)
	case *ast.IsNullExpr:
		inner, err := b.bindExpr(n.Expr, scope)
		if err != nil {
			return nil, err
		}
		return expression.NewIsNull(inner, n.Negated), nil
	case *ast.InExpr:
		inner, err := b.bindExpr(n.Expr, scope)
		if err != nil {
			return nil, err
		}
		args := make([]expression.ScalarExpression, len(n.List))
		for i, a := range n.List {
			args[i], err = b.bindExpr(a, scope)
			if err != nil {
				return nil, err
			}
		}
		return expression.NewIn(inner, args, n.Negated), nil
	case *ast.BetweenExpr:
		inner, err := b.bindExpr(n.Expr, scope)
		if err != nil {
			return nil, err
		}
		lo, err := b.bindExpr(n.Lo, scope)
		if err != nil {
			return nil, err
		}
		hi, err := b.bindExpr(n.Hi, scope)
		if err != nil {
			return nil, err
		}
		return expression.NewBetween(inner, lo, hi, n.Negated), nil
	case *ast.CastExpr:
		inner, err := b.bindExpr(n.Expr, scope)
		if err != nil {
			return nil, err
		}
		to, err := parseType(n.ToType, n.Prec, n.Scale, n.MaxLen)
		if err != nil {
			return nil, err
		}
		return expression.NewTypeCast(inner, to), nil
	case *ast.FuncCall:
		return b.bindFuncCall(n, scope)
	case *ast.SubstringExpr:
		inner, err := b.bindExpr(n.Expr, scope)
		if err != nil {
			return nil, err
		}
		var from, forLen expression.ScalarExpression
		if n.From != nil {
			from, err = b.bindExpr(n.From, scope)
			if err != nil {
				return nil, err
			}
		}
		if n.For != nil {
			forLen, err = b.bindExpr(n.For, scope)
			if err != nil {
				return nil, err
			}
		}
		return expression.NewSubString(inner, from, forLen), nil
	case *ast.AliasExpr:
		inner, err := b.bindExpr(n.Expr, scope)
		if err != nil {
			return nil, err
		}
		return expression.NewAlias(inner, n.As), nil
	default:
		return nil, sql.ErrUnsupportedStmt.New("unrecognized expression")
	}
}

func (b *Binder) resolveColumn(id *ast.Ident, scope sql.SchemaRef) (expression.ScalarExpression, error) {
	if !sql.IsValidIdentifier(id.Name) {
		return nil, sql.ErrInvalidColumn.New(id.Name)
	}
	name := lower(id.Name)
	table := lower(id.Table)
	var match sql.ColumnRef
	count := 0
	for _, col := range scope {
		if col.Name() != name {
			continue
		}
		if table != "" {
			colTable, _ := col.TableName()
			if colTable != table {
				continue
			}
		}
		match = col
		count++
	}
	if count == 0 {
		return nil, sql.ErrInvalidColumn.New(id.Name)
	}
	if count > 1 {
		return nil, sql.ErrAmbiguousColumn.New(id.Name)
	}
	return expression.NewColumnRef(match), nil
}

func (b *Binder) bindUnary(n *ast.UnaryExpr, scope sql.SchemaRef) (expression.ScalarExpression, error) {
	inner, err := b.bindExpr(n.Expr, scope)
	if err != nil {
		return nil, err
	}
	switch strings.ToUpper(n.Op) {
	case "NOT":
		return expression.NewUnary(expression.UnaryNot, inner, types.TBoolean), nil
	case "-":
		return expression.NewUnary(expression.UnaryMinus, inner, inner.ReturnType()), nil
	default:
		return expression.NewUnary(expression.UnaryPlus, inner, inner.ReturnType()), nil
	}
}

var binaryOps = map[string]expression.BinaryOp{
	"AND": expression.And, "OR": expression.Or, "=": expression.Eq,
	"!=": expression.NotEq, "<>": expression.NotEq, "<": expression.Lt,
	"<=": expression.LtEq, ">": expression.Gt, ">=": expression.GtEq,
	"+": expression.Plus, "-": expression.Minus, "*": expression.Multiply,
	"/": expression.Divide, "%": expression.Modulo, "||": expression.StringConcat,
	"LIKE": expression.Like,
}

func (b *Binder) bindBinary(n *ast.BinaryExpr, scope sql.SchemaRef) (expression.ScalarExpression, error) {
	left, err := b.bindExpr(n.Left, scope)
	if err != nil {
		return nil, err
	}
	right, err := b.bindExpr(n.Right, scope)
	if err != nil {
		return nil, err
	}
	op, ok := binaryOps[strings.ToUpper(n.Op)]
	if !ok {
		return nil, sql.ErrUnsupportedStmt.New("unrecognized operator " + n.Op)
	}
	var ty types.LogicalType
	if op.IsComparison() || op == expression.And || op == expression.Or {
		ty = types.TBoolean
	} else {
		ty, ok = types.Coerce(left.ReturnType(), right.ReturnType())
		if !ok {
			ty = left.ReturnType()
		}
	}
	return expression.NewBinary(op, left, right, ty), nil
}

func (b *Binder) bindFuncCall(n *ast.FuncCall, scope sql.SchemaRef) (expression.ScalarExpression, error) {
	upper := strings.ToUpper(n.Name)
	var kind expression.AggKind
	switch upper {
	case "COUNT":
		kind = expression.AggCount
	case "SUM":
		kind = expression.AggSum
	case "AVG":
		kind = expression.AggAvg
	case "MIN":
		kind = expression.AggMin
	case "MAX":
		kind = expression.AggMax
	default:
		return nil, sql.ErrUnsupportedStmt.New("unrecognized function " + n.Name)
	}
	args := make([]expression.ScalarExpression, 0, len(n.Args))
	for _, a := range n.Args {
		if _, ok := a.(*ast.Star); ok {
			continue // COUNT(*) carries no argument expression
		}
		e, err := b.bindExpr(a, scope)
		if err != nil {
			return nil, err
		}
		args = append(args, e)
	}
	ty := types.TBigint
	if kind == expression.AggAvg {
		ty = types.TDouble
	}
	if (kind == expression.AggSum || kind == expression.AggMin || kind == expression.AggMax) && len(args) > 0 {
		ty = args[0].ReturnType()
	}
	return expression.NewAggCall(kind, args, ty, n.Distinct), nil
}

func parseType(name string, prec, scale, maxlen int) (types.LogicalType, error) {
	switch strings.ToUpper(name) {
	case "BOOL", "BOOLEAN":
		return types.TBoolean, nil
	case "TINYINT":
		return types.TTinyint, nil
	case "SMALLINT":
		return types.TSmallint, nil
	case "INT", "INTEGER":
		return types.TInteger, nil
	case "BIGINT":
		return types.TBigint, nil
	case "FLOAT":
		return types.TFloat, nil
	case "DOUBLE":
		return types.TDouble, nil
	case "DECIMAL", "NUMERIC":
		return types.NewDecimal(uint8(prec), uint8(scale)), nil
	case "VARCHAR", "CHAR", "TEXT":
		return types.NewVarchar(maxlen), nil
	case "DATE":
		return types.TDate, nil
	case "DATETIME", "TIMESTAMP":
		return types.TDateTime, nil
	default:
		return types.TInvalid, sql.ErrUnsupportedStmt.New("unrecognized type " + name)
	}
}
