// Package plan implements talon's logical plan IR (spec §3, §4.4): a
// recursive LogicalPlan node wrapping one Operator from a closed
// variant set, with an ordered list of child plans. The optimizer
// (sql/hep) rewrites this tree in place via a graph view; the executor
// (sql/rowexec) consumes it bottom-up.
package plan

import (
	"fmt"
	"strings"

	"github.com/talondb/talon/sql"
	"github.com/talondb/talon/sql/expression"
)

// PhysicalOption is the execution strategy the optimizer's
// implementation rules pin onto a logical operator (spec §4.4, §4.5).
type PhysicalOption uint8

const (
	PhysicalNone PhysicalOption = iota
	PhysicalSeqScan
	PhysicalIndexScan
	PhysicalHashJoin
	PhysicalHashAgg
	PhysicalSimpleAgg
	PhysicalSingleton // pinned for operators with exactly one execution strategy
)

func (p PhysicalOption) String() string {
	switch p {
	case PhysicalSeqScan:
		return "SeqScan"
	case PhysicalIndexScan:
		return "IndexScan"
	case PhysicalHashJoin:
		return "HashJoin"
	case PhysicalHashAgg:
		return "HashAgg"
	case PhysicalSimpleAgg:
		return "SimpleAgg"
	case PhysicalSingleton:
		return "Singleton"
	default:
		return "None"
	}
}

// Operator is the closed tag set every LogicalPlan node carries (spec
// §3).
type Operator uint8

const (
	OpDummy Operator = iota
	OpScan
	OpFilter
	OpProject
	OpSort
	OpLimit
	OpJoin
	OpAggregate
	OpUnion
	OpValues
	OpInsert
	OpUpdate
	OpDelete
	OpAnalyze
	OpCopyFromFile
	OpCreateTable
	OpDropTable
	OpTruncate
	OpAddColumn
	OpDropColumn
	OpShow
	OpExplain
)

func (op Operator) String() string {
	names := [...]string{
		"Dummy", "Scan", "Filter", "Project", "Sort", "Limit", "Join",
		"Aggregate", "Union", "Values", "Insert", "Update", "Delete",
		"Analyze", "CopyFromFile", "CreateTable", "DropTable",
		"Truncate", "AddColumn", "DropColumn", "Show", "Explain",
	}
	if int(op) < len(names) {
		return names[op]
	}
	return "Unknown"
}

// LogicalPlan is the recursive plan node (spec §3): an Operator tag,
// operator-local parameters (one of the Params* structs below), an
// ordered list of children, the node's output schema, and an optional
// PhysicalOption the optimizer has pinned.
type LogicalPlan struct {
	Op       Operator
	Params   OperatorParams
	Children []*LogicalPlan
	Schema   sql.SchemaRef
	Physical PhysicalOption
}

// OperatorParams is implemented by exactly one params struct per
// Operator value; it exists only to give each LogicalPlan a single
// typed params slot without an interface{} escape hatch.
type OperatorParams interface {
	operatorParams()
}

func newPlan(op Operator, params OperatorParams, schema sql.SchemaRef, children ...*LogicalPlan) *LogicalPlan {
	return &LogicalPlan{Op: op, Params: params, Children: children, Schema: schema}
}

// --- operator-local parameter structs -----------------------------------

type DummyParams struct{}

func (DummyParams) operatorParams() {}

func NewDummy() *LogicalPlan {
	return newPlan(OpDummy, DummyParams{}, sql.SchemaRef{})
}

// IndexInfo decorates Scan (spec §3): an index it may seek through,
// plus the disjoint/ordered ranges PushPredicateIntoScan may populate.
type IndexInfo struct {
	Index  sql.IndexMetaRef
	Ranges []expression.Scope // nil/empty means "unconstrained"
}

type ScanParams struct {
	Table     *sql.TableCatalog
	TableName string
	Indexes   []IndexInfo // one IndexInfo per catalog index; at most one gets Ranges populated per rule application
}

func (ScanParams) operatorParams() {}

func NewScan(table *sql.TableCatalog) *LogicalPlan {
	indexes := make([]IndexInfo, len(table.Indexes))
	for i, idx := range table.Indexes {
		indexes[i] = IndexInfo{Index: idx}
	}
	return newPlan(OpScan, ScanParams{Table: table, TableName: table.Name, Indexes: indexes}, table.SchemaRef())
}

type FilterParams struct {
	Predicate expression.ScalarExpression
}

func (FilterParams) operatorParams() {}

func NewFilter(predicate expression.ScalarExpression, child *LogicalPlan) *LogicalPlan {
	return newPlan(OpFilter, FilterParams{Predicate: predicate}, child.Schema, child)
}

type ProjectParams struct {
	Exprs []expression.ScalarExpression
}

func (ProjectParams) operatorParams() {}

func NewProject(exprs []expression.ScalarExpression, child *LogicalPlan) *LogicalPlan {
	schema := make(sql.SchemaRef, len(exprs))
	for i, e := range exprs {
		schema[i] = projectOutputColumn(e)
	}
	return newPlan(OpProject, ProjectParams{Exprs: exprs}, schema, child)
}

// projectOutputColumn derives the output column identity for one
// select-list expression: a true ColumnRef passes its column through
// unchanged; anything else (including Alias) gets a dummy column
// carrying the expression's name and type.
func projectOutputColumn(e expression.ScalarExpression) sql.ColumnRef {
	if cr, ok := e.(*expression.ColumnRef); ok {
		return cr.Column
	}
	name := e.String()
	if a, ok := e.(*expression.Alias); ok {
		name = a.AliasName
	}
	col := sql.NewDummyColumn(name)
	col.Desc.Datatype = e.ReturnType()
	return col
}

type SortKey struct {
	Expr       expression.ScalarExpression
	Descending bool
	NullsFirst bool
}

type SortParams struct {
	Keys []SortKey
}

func (SortParams) operatorParams() {}

func NewSort(keys []SortKey, child *LogicalPlan) *LogicalPlan {
	return newPlan(OpSort, SortParams{Keys: keys}, child.Schema, child)
}

type LimitParams struct {
	Offset int64
	Count  *int64 // nil means unbounded
}

func (LimitParams) operatorParams() {}

func NewLimit(offset int64, count *int64, child *LogicalPlan) *LogicalPlan {
	return newPlan(OpLimit, LimitParams{Offset: offset, Count: count}, child.Schema, child)
}

// JoinType mirrors ast.JoinType; redeclared here so sql/plan does not
// depend on sql/ast.
type JoinType uint8

const (
	InnerJoin JoinType = iota
	LeftJoin
	RightJoin
	FullJoin
	CrossJoin
)

func (t JoinType) String() string {
	switch t {
	case LeftJoin:
		return "LEFT"
	case RightJoin:
		return "RIGHT"
	case FullJoin:
		return "FULL"
	case CrossJoin:
		return "CROSS"
	default:
		return "INNER"
	}
}

type JoinParams struct {
	Type JoinType
	On   expression.ScalarExpression // nil for CrossJoin
}

func (JoinParams) operatorParams() {}

func NewJoin(joinType JoinType, on expression.ScalarExpression, left, right *LogicalPlan) *LogicalPlan {
	return newPlan(OpJoin, JoinParams{Type: joinType, On: on}, left.Schema.Concat(right.Schema), left, right)
}

type AggregateParams struct {
	GroupExprs []expression.ScalarExpression
	AggExprs   []*expression.AggCall
}

func (AggregateParams) operatorParams() {}

func NewAggregate(groupExprs []expression.ScalarExpression, aggExprs []*expression.AggCall, child *LogicalPlan) *LogicalPlan {
	schema := make(sql.SchemaRef, 0, len(groupExprs)+len(aggExprs))
	for _, e := range groupExprs {
		schema = append(schema, projectOutputColumn(e))
	}
	for _, a := range aggExprs {
		schema = append(schema, projectOutputColumn(a))
	}
	return newPlan(OpAggregate, AggregateParams{GroupExprs: groupExprs, AggExprs: aggExprs}, schema, child)
}

type UnionParams struct{}

func (UnionParams) operatorParams() {}

// NewUnion requires both children to share arity (spec §4.6); schema
// is taken from the left side. Column types are not compared, and the
// right side's schema is not stored on the node.
func NewUnion(left, right *LogicalPlan) (*LogicalPlan, error) {
	if len(left.Schema) != len(right.Schema) {
		return nil, sql.ErrTypeMismatch.New("UNION arity mismatch")
	}
	return newPlan(OpUnion, UnionParams{}, left.Schema, left, right), nil
}

type ValuesParams struct {
	Rows [][]expression.ScalarExpression
}

func (ValuesParams) operatorParams() {}

func NewValues(schema sql.SchemaRef, rows [][]expression.ScalarExpression) *LogicalPlan {
	return newPlan(OpValues, ValuesParams{Rows: rows}, schema)
}

// EmptyValues is the degenerate Values node SimplifyFilter produces
// for an always-false filter (spec §4.5).
func EmptyValues(schema sql.SchemaRef) *LogicalPlan {
	return NewValues(schema, nil)
}

type InsertParams struct {
	Table     *sql.TableCatalog
	Columns   []sql.ColumnID // target columns in VALUES order; empty means catalog order
	Overwrite bool
}

func (InsertParams) operatorParams() {}

func NewInsert(table *sql.TableCatalog, columns []sql.ColumnID, overwrite bool, child *LogicalPlan) *LogicalPlan {
	return newPlan(OpInsert, InsertParams{Table: table, Columns: columns, Overwrite: overwrite}, sql.SchemaRef{}, child)
}

type UpdateParams struct {
	Table       *sql.TableCatalog
	Assignments map[sql.ColumnID]expression.ScalarExpression
}

func (UpdateParams) operatorParams() {}

func NewUpdate(table *sql.TableCatalog, assignments map[sql.ColumnID]expression.ScalarExpression, child *LogicalPlan) *LogicalPlan {
	return newPlan(OpUpdate, UpdateParams{Table: table, Assignments: assignments}, sql.SchemaRef{}, child)
}

type DeleteParams struct {
	Table *sql.TableCatalog
}

func (DeleteParams) operatorParams() {}

func NewDelete(table *sql.TableCatalog, child *LogicalPlan) *LogicalPlan {
	return newPlan(OpDelete, DeleteParams{Table: table}, sql.SchemaRef{}, child)
}

type AnalyzeParams struct {
	Table   *sql.TableCatalog
	Columns []sql.ColumnRef
}

func (AnalyzeParams) operatorParams() {}

func NewAnalyze(table *sql.TableCatalog, columns []sql.ColumnRef, child *LogicalPlan) *LogicalPlan {
	schema := sql.SchemaRef{sql.NewDummyColumn("COLUMN_META_PATH")}
	return newPlan(OpAnalyze, AnalyzeParams{Table: table, Columns: columns}, schema, child)
}

type CopyFromFileParams struct {
	Table *sql.TableCatalog
	Path  string
}

func (CopyFromFileParams) operatorParams() {}

func NewCopyFromFile(table *sql.TableCatalog, path string) *LogicalPlan {
	return newPlan(OpCopyFromFile, CopyFromFileParams{Table: table, Path: path}, sql.SchemaRef{})
}

type CreateTableParams struct {
	TableName   string
	Columns     []sql.ColumnRef
	IfNotExists bool
}

func (CreateTableParams) operatorParams() {}

func NewCreateTable(name string, columns []sql.ColumnRef, ifNotExists bool) *LogicalPlan {
	return newPlan(OpCreateTable, CreateTableParams{TableName: name, Columns: columns, IfNotExists: ifNotExists}, sql.SchemaRef{})
}

type DropTableParams struct {
	TableName string
	IfExists  bool
}

func (DropTableParams) operatorParams() {}

func NewDropTable(name string, ifExists bool) *LogicalPlan {
	return newPlan(OpDropTable, DropTableParams{TableName: name, IfExists: ifExists}, sql.SchemaRef{})
}

type TruncateParams struct {
	TableName string
}

func (TruncateParams) operatorParams() {}

func NewTruncate(name string) *LogicalPlan {
	return newPlan(OpTruncate, TruncateParams{TableName: name}, sql.SchemaRef{})
}

type AddColumnParams struct {
	TableName   string
	Column      sql.ColumnRef
	IfNotExists bool
}

func (AddColumnParams) operatorParams() {}

func NewAddColumn(tableName string, column sql.ColumnRef, ifNotExists bool) *LogicalPlan {
	return newPlan(OpAddColumn, AddColumnParams{TableName: tableName, Column: column, IfNotExists: ifNotExists}, sql.SchemaRef{})
}

type DropColumnParams struct {
	TableName  string
	ColumnName string
	IfExists   bool
}

func (DropColumnParams) operatorParams() {}

func NewDropColumn(tableName, columnName string, ifExists bool) *LogicalPlan {
	return newPlan(OpDropColumn, DropColumnParams{TableName: tableName, ColumnName: columnName, IfExists: ifExists}, sql.SchemaRef{})
}

type ShowKind uint8

const (
	ShowTables ShowKind = iota
	ShowColumns
)

type ShowParams struct {
	Kind      ShowKind
	TableName string
}

func (ShowParams) operatorParams() {}

func NewShow(kind ShowKind, tableName string) *LogicalPlan {
	schema := sql.SchemaRef{sql.NewDummyColumn("name")}
	return newPlan(OpShow, ShowParams{Kind: kind, TableName: tableName}, schema)
}

type ExplainParams struct {
	Target *LogicalPlan
}

func (ExplainParams) operatorParams() {}

func NewExplain(target *LogicalPlan) *LogicalPlan {
	schema := sql.SchemaRef{sql.NewDummyColumn("plan")}
	return newPlan(OpExplain, ExplainParams{Target: target}, schema)
}

// --- referenced columns & display -----------------------------------

// ReferencedColumns returns the union of columns this node and its
// subtree reference (spec §4.4); onlyTrueRefs excludes synthetic
// alias columns.
func (p *LogicalPlan) ReferencedColumns(onlyTrueRefs bool) []sql.ColumnRef {
	var self []sql.ColumnRef
	switch params := p.Params.(type) {
	case FilterParams:
		self = params.Predicate.ReferencedColumns(onlyTrueRefs)
	case ProjectParams:
		for _, e := range params.Exprs {
			self = append(self, e.ReferencedColumns(onlyTrueRefs)...)
		}
	case SortParams:
		for _, k := range params.Keys {
			self = append(self, k.Expr.ReferencedColumns(onlyTrueRefs)...)
		}
	case JoinParams:
		if params.On != nil {
			self = params.On.ReferencedColumns(onlyTrueRefs)
		}
	case AggregateParams:
		for _, e := range params.GroupExprs {
			self = append(self, e.ReferencedColumns(onlyTrueRefs)...)
		}
		for _, a := range params.AggExprs {
			self = append(self, a.ReferencedColumns(onlyTrueRefs)...)
		}
	case UpdateParams:
		for _, e := range params.Assignments {
			self = append(self, e.ReferencedColumns(onlyTrueRefs)...)
		}
	}
	lists := [][]sql.ColumnRef{self}
	for _, c := range p.Children {
		lists = append(lists, c.ReferencedColumns(onlyTrueRefs))
	}
	return expression.UnionReferencedColumns(lists...)
}

// String renders a human-readable, indented display form (spec §4.4
// display form requirement).
func (p *LogicalPlan) String() string {
	var b strings.Builder
	p.display(&b, 0)
	return b.String()
}

func (p *LogicalPlan) display(b *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%s%s%s\n", indent, p.Op, p.displayParams())
	for _, c := range p.Children {
		c.display(b, depth+1)
	}
}

func (p *LogicalPlan) displayParams() string {
	switch params := p.Params.(type) {
	case ScanParams:
		return fmt.Sprintf(" table=%s", params.TableName)
	case FilterParams:
		return fmt.Sprintf(" predicate=%s", params.Predicate)
	case ProjectParams:
		parts := make([]string, len(params.Exprs))
		for i, e := range params.Exprs {
			parts[i] = e.String()
		}
		return fmt.Sprintf(" exprs=[%s]", strings.Join(parts, ", "))
	case LimitParams:
		if params.Count != nil {
			return fmt.Sprintf(" offset=%d count=%d", params.Offset, *params.Count)
		}
		return fmt.Sprintf(" offset=%d", params.Offset)
	case JoinParams:
		return fmt.Sprintf(" type=%s on=%v", params.Type, params.On)
	case CreateTableParams:
		return fmt.Sprintf(" table=%s", params.TableName)
	case DropTableParams:
		return fmt.Sprintf(" table=%s", params.TableName)
	case TruncateParams:
		return fmt.Sprintf(" table=%s", params.TableName)
	default:
		return ""
	}
}

// Clone makes a shallow copy of the node (new Params/Schema/Children
// slice headers, same underlying children pointers) — used by rules
// that need to replace a node without mutating the original in place.
func (p *LogicalPlan) Clone() *LogicalPlan {
	children := make([]*LogicalPlan, len(p.Children))
	copy(children, p.Children)
	return &LogicalPlan{Op: p.Op, Params: p.Params, Children: children, Schema: p.Schema, Physical: p.Physical}
}
