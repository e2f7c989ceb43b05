// Package expression implements talon's scalar expression IR (spec
// §4.1): Constant, ColumnRef, Alias, TypeCast, IsNull, Unary, Binary,
// AggCall, In, Between, SubString, plus the referenced-columns,
// constant-folding, and range-derivation helpers the optimizer and
// binder both depend on.
package expression

import (
	"fmt"
	"strings"

	"github.com/talondb/talon/sql"
	"github.com/talondb/talon/sql/types"
)

// ScalarExpression is the closed interface every expression IR node
// implements.
type ScalarExpression interface {
	fmt.Stringer

	ReturnType() types.LogicalType
	// ReferencedColumns returns the union of columns transitively
	// named by ColumnRef nodes. When onlyTrueRefs is false, synthetic
	// columns introduced by Alias are included too (spec §4.1).
	ReferencedColumns(onlyTrueRefs bool) []sql.ColumnRef
	// Eval evaluates the expression against a concrete row.
	Eval(ctx *sql.Context, tuple sql.Tuple) (types.Value, error)
}

// --- Constant ---------------------------------------------------------

type Constant struct{ Value types.Value }

func NewConstant(v types.Value) *Constant { return &Constant{Value: v} }

func (c *Constant) ReturnType() types.LogicalType { return c.Value.Type() }
func (c *Constant) ReferencedColumns(bool) []sql.ColumnRef { return nil }
func (c *Constant) Eval(*sql.Context, sql.Tuple) (types.Value, error) { return c.Value, nil }
func (c *Constant) String() string { return c.Value.String() }

// --- ColumnRef ----------------------------------------------------------

// ColumnRef names a catalog column by its shared pointer identity
// (spec §3: SchemaRef columns are shared immutable handles).
type ColumnRef struct {
	Column sql.ColumnRef
}

func NewColumnRef(col sql.ColumnRef) *ColumnRef { return &ColumnRef{Column: col} }

func (c *ColumnRef) ReturnType() types.LogicalType { return c.Column.Datatype() }
func (c *ColumnRef) ReferencedColumns(bool) []sql.ColumnRef { return []sql.ColumnRef{c.Column} }
func (c *ColumnRef) String() string { return c.Column.FullName() }

func (c *ColumnRef) Eval(_ *sql.Context, tuple sql.Tuple) (types.Value, error) {
	idx := tuple.SchemaRef.IndexOf(c.Column)
	if idx < 0 {
		return types.Value{}, sql.ErrInvalidColumn.New(c.Column.FullName())
	}
	return tuple.Values[idx], nil
}

// --- Alias ----------------------------------------------------------

// Alias renames the result of an expression; it also introduces a
// synthetic, dummy-backed column identity so that referenced_columns
// with onlyTrueRefs=false can describe it as an available column to
// downstream nodes (spec §4.1; original_source's ColumnCatalog::
// new_dummy is what backs that synthetic identity, see DESIGN.md).
type Alias struct {
	Expr      ScalarExpression
	AliasName string

	aliasCol sql.ColumnRef
}

func NewAlias(expr ScalarExpression, alias string) *Alias {
	return &Alias{Expr: expr, AliasName: alias}
}

func (a *Alias) ReturnType() types.LogicalType { return a.Expr.ReturnType() }

func (a *Alias) syntheticColumn() sql.ColumnRef {
	if a.aliasCol == nil {
		col := sql.NewDummyColumn(a.AliasName)
		col.Desc.Datatype = a.Expr.ReturnType()
		a.aliasCol = col
	}
	return a.aliasCol
}

func (a *Alias) ReferencedColumns(onlyTrueRefs bool) []sql.ColumnRef {
	inner := a.Expr.ReferencedColumns(onlyTrueRefs)
	if onlyTrueRefs {
		return inner
	}
	return append(append([]sql.ColumnRef{}, inner...), a.syntheticColumn())
}

func (a *Alias) Eval(ctx *sql.Context, tuple sql.Tuple) (types.Value, error) {
	return a.Expr.Eval(ctx, tuple)
}

func (a *Alias) String() string { return fmt.Sprintf("%s AS %s", a.Expr, a.AliasName) }

// --- TypeCast ---------------------------------------------------------

type TypeCast struct {
	Expr ScalarExpression
	To   types.LogicalType
}

func NewTypeCast(expr ScalarExpression, to types.LogicalType) *TypeCast {
	return &TypeCast{Expr: expr, To: to}
}

func (t *TypeCast) ReturnType() types.LogicalType { return t.To }
func (t *TypeCast) ReferencedColumns(onlyTrueRefs bool) []sql.ColumnRef {
	return t.Expr.ReferencedColumns(onlyTrueRefs)
}
func (t *TypeCast) String() string { return fmt.Sprintf("CAST(%s AS %s)", t.Expr, t.To) }

func (t *TypeCast) Eval(ctx *sql.Context, tuple sql.Tuple) (types.Value, error) {
	v, err := t.Expr.Eval(ctx, tuple)
	if err != nil {
		return types.Value{}, err
	}
	return v.CoerceTo(t.To)
}

// --- IsNull ---------------------------------------------------------

type IsNull struct {
	Expr     ScalarExpression
	Negated  bool
}

func NewIsNull(expr ScalarExpression, negated bool) *IsNull {
	return &IsNull{Expr: expr, Negated: negated}
}

func (n *IsNull) ReturnType() types.LogicalType { return types.TBoolean }
func (n *IsNull) ReferencedColumns(onlyTrueRefs bool) []sql.ColumnRef {
	return n.Expr.ReferencedColumns(onlyTrueRefs)
}
func (n *IsNull) String() string {
	if n.Negated {
		return fmt.Sprintf("%s IS NOT NULL", n.Expr)
	}
	return fmt.Sprintf("%s IS NULL", n.Expr)
}

func (n *IsNull) Eval(ctx *sql.Context, tuple sql.Tuple) (types.Value, error) {
	v, err := n.Expr.Eval(ctx, tuple)
	if err != nil {
		return types.Value{}, err
	}
	result := v.IsNull()
	if n.Negated {
		result = !result
	}
	return types.NewBool(result), nil
}

// --- Unary ---------------------------------------------------------

type UnaryOp uint8

const (
	UnaryNot UnaryOp = iota
	UnaryMinus
	UnaryPlus
)

func (op UnaryOp) String() string {
	switch op {
	case UnaryNot:
		return "NOT"
	case UnaryMinus:
		return "-"
	default:
		return "+"
	}
}

type Unary struct {
	Op   UnaryOp
	Expr ScalarExpression
	Ty   types.LogicalType
}

func NewUnary(op UnaryOp, expr ScalarExpression, ty types.LogicalType) *Unary {
	return &Unary{Op: op, Expr: expr, Ty: ty}
}

func (u *Unary) ReturnType() types.LogicalType { return u.Ty }
func (u *Unary) ReferencedColumns(onlyTrueRefs bool) []sql.ColumnRef {
	return u.Expr.ReferencedColumns(onlyTrueRefs)
}
func (u *Unary) String() string {
	if u.Op == UnaryNot {
		return fmt.Sprintf("NOT %s", u.Expr)
	}
	return fmt.Sprintf("%s%s", u.Op, u.Expr)
}

func (u *Unary) Eval(ctx *sql.Context, tuple sql.Tuple) (types.Value, error) {
	v, err := u.Expr.Eval(ctx, tuple)
	if err != nil {
		return types.Value{}, err
	}
	if v.IsNull() {
		return types.Null(u.Ty), nil
	}
	switch u.Op {
	case UnaryNot:
		b, _ := v.AsBool()
		return types.NewBool(!b), nil
	case UnaryMinus:
		f, err := v.AsFloat64()
		if err != nil {
			return types.Value{}, err
		}
		negated := types.NewFloat64(-f)
		return negated.CoerceTo(u.Ty)
	default:
		return v.CoerceTo(u.Ty)
	}
}

// --- Binary ---------------------------------------------------------

type BinaryOp uint8

const (
	And BinaryOp = iota
	Or
	Eq
	NotEq
	Lt
	LtEq
	Gt
	GtEq
	Plus
	Minus
	Multiply
	Divide
	Modulo
	StringConcat
	Like
)

var binaryOpNames = map[BinaryOp]string{
	And: "AND", Or: "OR", Eq: "=", NotEq: "!=", Lt: "<", LtEq: "<=",
	Gt: ">", GtEq: ">=", Plus: "+", Minus: "-", Multiply: "*",
	Divide: "/", Modulo: "%", StringConcat: "||", Like: "LIKE",
}

func (op BinaryOp) String() string { return binaryOpNames[op] }

// IsComparison reports whether op is one of the six comparison
// operators convert_binary understands.
func (op BinaryOp) IsComparison() bool {
	switch op {
	case Eq, NotEq, Lt, LtEq, Gt, GtEq:
		return true
	}
	return false
}

// Negate returns the operator whose result is the logical negation of
// this one, used by NOT-pushdown in Simplify and convert_binary.
func (op BinaryOp) Negate() (BinaryOp, bool) {
	switch op {
	case Eq:
		return NotEq, true
	case NotEq:
		return Eq, true
	case Lt:
		return GtEq, true
	case LtEq:
		return Gt, true
	case Gt:
		return LtEq, true
	case GtEq:
		return Lt, true
	case And:
		return Or, true
	case Or:
		return And, true
	}
	return op, false
}

type Binary struct {
	Op    BinaryOp
	Left  ScalarExpression
	Right ScalarExpression
	Ty    types.LogicalType
}

func NewBinary(op BinaryOp, left, right ScalarExpression, ty types.LogicalType) *Binary {
	return &Binary{Op: op, Left: left, Right: right, Ty: ty}
}

func (b *Binary) ReturnType() types.LogicalType { return b.Ty }
func (b *Binary) ReferencedColumns(onlyTrueRefs bool) []sql.ColumnRef {
	return append(b.Left.ReferencedColumns(onlyTrueRefs), b.Right.ReferencedColumns(onlyTrueRefs)...)
}
func (b *Binary) String() string { return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right) }

func (b *Binary) Eval(ctx *sql.Context, tuple sql.Tuple) (types.Value, error) {
	left, err := b.Left.Eval(ctx, tuple)
	if err != nil {
		return types.Value{}, err
	}
	// Three-valued logic: AND/OR short-circuit on a determining
	// operand even when the other operand is null (spec §4.1).
	if b.Op == And {
		if !left.IsNull() {
			lb, _ := left.AsBool()
			if !lb {
				return types.NewBool(false), nil
			}
		}
		right, err := b.Right.Eval(ctx, tuple)
		if err != nil {
			return types.Value{}, err
		}
		if !right.IsNull() {
			rb, _ := right.AsBool()
			if !rb {
				return types.NewBool(false), nil
			}
		}
		if left.IsNull() || right.IsNull() {
			return types.Null(types.TBoolean), nil
		}
		return types.NewBool(true), nil
	}
	if b.Op == Or {
		if !left.IsNull() {
			lb, _ := left.AsBool()
			if lb {
				return types.NewBool(true), nil
			}
		}
		right, err := b.Right.Eval(ctx, tuple)
		if err != nil {
			return types.Value{}, err
		}
		if !right.IsNull() {
			rb, _ := right.AsBool()
			if rb {
				return types.NewBool(true), nil
			}
		}
		if left.IsNull() || right.IsNull() {
			return types.Null(types.TBoolean), nil
		}
		return types.NewBool(false), nil
	}

	right, err := b.Right.Eval(ctx, tuple)
	if err != nil {
		return types.Value{}, err
	}
	// All remaining operators null-propagate.
	if left.IsNull() || right.IsNull() {
		return types.Null(b.Ty), nil
	}
	if b.Op.IsComparison() {
		cmp, err := left.Compare(right)
		if err != nil {
			return types.Value{}, sql.ErrTypeMismatch.New(err.Error())
		}
		var result bool
		switch b.Op {
		case Eq:
			result = cmp == 0
		case NotEq:
			result = cmp != 0
		case Lt:
			result = cmp < 0
		case LtEq:
			result = cmp <= 0
		case Gt:
			result = cmp > 0
		case GtEq:
			result = cmp >= 0
		}
		return types.NewBool(result), nil
	}
	if b.Op == StringConcat {
		ls, _ := left.AsString()
		rs, _ := right.AsString()
		return types.NewVarcharValue(ls+rs, -1), nil
	}
	if b.Op == Like {
		ls, _ := left.AsString()
		rs, _ := right.AsString()
		return types.NewBool(likeMatch(ls, rs)), nil
	}
	lf, err := left.AsFloat64()
	if err != nil {
		return types.Value{}, err
	}
	rf, err := right.AsFloat64()
	if err != nil {
		return types.Value{}, err
	}
	var result float64
	switch b.Op {
	case Plus:
		result = lf + rf
	case Minus:
		result = lf - rf
	case Multiply:
		result = lf * rf
	case Divide:
		if rf == 0 {
			return types.Null(b.Ty), nil
		}
		result = lf / rf
	case Modulo:
		if rf == 0 {
			return types.Null(b.Ty), nil
		}
		result = float64(int64(lf) % int64(rf))
	}
	return types.NewFloat64(result).CoerceTo(b.Ty)
}

// likeMatch implements SQL LIKE with % and _ wildcards via a simple
// recursive matcher — no regexp compilation needed for the two
// wildcard characters.
func likeMatch(s, pattern string) bool {
	return likeMatchRunes([]rune(s), []rune(pattern))
}

func likeMatchRunes(s, p []rune) bool {
	if len(p) == 0 {
		return len(s) == 0
	}
	switch p[0] {
	case '%':
		for i := 0; i <= len(s); i++ {
			if likeMatchRunes(s[i:], p[1:]) {
				return true
			}
		}
		return false
	case '_':
		if len(s) == 0 {
			return false
		}
		return likeMatchRunes(s[1:], p[1:])
	default:
		if len(s) == 0 || s[0] != p[0] {
			return false
		}
		return likeMatchRunes(s[1:], p[1:])
	}
}

// --- AggCall ---------------------------------------------------------

type AggKind uint8

const (
	AggCount AggKind = iota
	AggSum
	AggAvg
	AggMin
	AggMax
)

func (k AggKind) String() string {
	switch k {
	case AggCount:
		return "COUNT"
	case AggSum:
		return "SUM"
	case AggAvg:
		return "AVG"
	case AggMin:
		return "MIN"
	default:
		return "MAX"
	}
}

type AggCall struct {
	Kind     AggKind
	Args     []ScalarExpression
	Ty       types.LogicalType
	Distinct bool
}

func NewAggCall(kind AggKind, args []ScalarExpression, ty types.LogicalType, distinct bool) *AggCall {
	return &AggCall{Kind: kind, Args: args, Ty: ty, Distinct: distinct}
}

func (a *AggCall) ReturnType() types.LogicalType { return a.Ty }
func (a *AggCall) ReferencedColumns(onlyTrueRefs bool) []sql.ColumnRef {
	var out []sql.ColumnRef
	for _, arg := range a.Args {
		out = append(out, arg.ReferencedColumns(onlyTrueRefs)...)
	}
	return out
}
func (a *AggCall) String() string {
	args := make([]string, len(a.Args))
	for i, arg := range a.Args {
		args[i] = arg.String()
	}
	distinct := ""
	if a.Distinct {
		distinct = "DISTINCT "
	}
	return fmt.Sprintf("%s(%s%s)", a.Kind, distinct, strings.Join(args, ", "))
}

// Eval on an AggCall evaluates its single argument against the current
// row; accumulation across rows is the HashAgg executor's job (spec
// §4.6), not the expression's.
func (a *AggCall) Eval(ctx *sql.Context, tuple sql.Tuple) (types.Value, error) {
	if len(a.Args) == 0 {
		return types.NewInt64(1), nil
	}
	return a.Args[0].Eval(ctx, tuple)
}

// --- In ---------------------------------------------------------

type In struct {
	Expr    ScalarExpression
	Args    []ScalarExpression
	Negated bool
}

func NewIn(expr ScalarExpression, args []ScalarExpression, negated bool) *In {
	return &In{Expr: expr, Args: args, Negated: negated}
}

func (i *In) ReturnType() types.LogicalType { return types.TBoolean }
func (i *In) ReferencedColumns(onlyTrueRefs bool) []sql.ColumnRef {
	out := i.Expr.ReferencedColumns(onlyTrueRefs)
	for _, a := range i.Args {
		out = append(out, a.ReferencedColumns(onlyTrueRefs)...)
	}
	return out
}
func (i *In) String() string {
	args := make([]string, len(i.Args))
	for idx, a := range i.Args {
		args[idx] = a.String()
	}
	not := ""
	if i.Negated {
		not = "NOT "
	}
	return fmt.Sprintf("%s %sIN (%s)", i.Expr, not, strings.Join(args, ", "))
}

func (i *In) Eval(ctx *sql.Context, tuple sql.Tuple) (types.Value, error) {
	v, err := i.Expr.Eval(ctx, tuple)
	if err != nil {
		return types.Value{}, err
	}
	if v.IsNull() {
		return types.Null(types.TBoolean), nil
	}
	sawNull := false
	for _, arg := range i.Args {
		av, err := arg.Eval(ctx, tuple)
		if err != nil {
			return types.Value{}, err
		}
		if av.IsNull() {
			sawNull = true
			continue
		}
		if v.Equal(av) {
			return types.NewBool(!i.Negated), nil
		}
	}
	if sawNull {
		return types.Null(types.TBoolean), nil
	}
	return types.NewBool(i.Negated), nil
}

// --- Between ---------------------------------------------------------

type Between struct {
	Expr    ScalarExpression
	Lo      ScalarExpression
	Hi      ScalarExpression
	Negated bool
}

func NewBetween(expr, lo, hi ScalarExpression, negated bool) *Between {
	return &Between{Expr: expr, Lo: lo, Hi: hi, Negated: negated}
}

func (b *Between) ReturnType() types.LogicalType { return types.TBoolean }
func (b *Between) ReferencedColumns(onlyTrueRefs bool) []sql.ColumnRef {
	out := b.Expr.ReferencedColumns(onlyTrueRefs)
	out = append(out, b.Lo.ReferencedColumns(onlyTrueRefs)...)
	out = append(out, b.Hi.ReferencedColumns(onlyTrueRefs)...)
	return out
}
func (b *Between) String() string {
	not := ""
	if b.Negated {
		not = "NOT "
	}
	return fmt.Sprintf("%s %sBETWEEN %s AND %s", b.Expr, not, b.Lo, b.Hi)
}

func (b *Between) Eval(ctx *sql.Context, tuple sql.Tuple) (types.Value, error) {
	v, err := b.Expr.Eval(ctx, tuple)
	if err != nil {
		return types.Value{}, err
	}
	lo, err := b.Lo.Eval(ctx, tuple)
	if err != nil {
		return types.Value{}, err
	}
	hi, err := b.Hi.Eval(ctx, tuple)
	if err != nil {
		return types.Value{}, err
	}
	if v.IsNull() || lo.IsNull() || hi.IsNull() {
		return types.Null(types.TBoolean), nil
	}
	cmpLo, err := v.Compare(lo)
	if err != nil {
		return types.Value{}, err
	}
	cmpHi, err := v.Compare(hi)
	if err != nil {
		return types.Value{}, err
	}
	result := cmpLo >= 0 && cmpHi <= 0
	if b.Negated {
		result = !result
	}
	return types.NewBool(result), nil
}

// --- SubString ---------------------------------------------------------

type SubString struct {
	Expr ScalarExpression
	From ScalarExpression // optional
	For  ScalarExpression // optional
}

func NewSubString(expr, from, forLen ScalarExpression) *SubString {
	return &SubString{Expr: expr, From: from, For: forLen}
}

func (s *SubString) ReturnType() types.LogicalType { return types.NewVarchar(-1) }
func (s *SubString) ReferencedColumns(onlyTrueRefs bool) []sql.ColumnRef {
	out := s.Expr.ReferencedColumns(onlyTrueRefs)
	if s.From != nil {
		out = append(out, s.From.ReferencedColumns(onlyTrueRefs)...)
	}
	if s.For != nil {
		out = append(out, s.For.ReferencedColumns(onlyTrueRefs)...)
	}
	return out
}
func (s *SubString) String() string {
	return fmt.Sprintf("SUBSTRING(%s)", s.Expr)
}

func (s *SubString) Eval(ctx *sql.Context, tuple sql.Tuple) (types.Value, error) {
	v, err := s.Expr.Eval(ctx, tuple)
	if err != nil {
		return types.Value{}, err
	}
	if v.IsNull() {
		return types.Null(types.NewVarchar(-1)), nil
	}
	str, _ := v.AsString()
	runes := []rune(str)
	from := 1
	if s.From != nil {
		fv, err := s.From.Eval(ctx, tuple)
		if err != nil {
			return types.Value{}, err
		}
		if i, err := fv.AsInt64(); err == nil {
			from = int(i)
		}
	}
	length := len(runes) - from + 1
	if s.For != nil {
		fv, err := s.For.Eval(ctx, tuple)
		if err != nil {
			return types.Value{}, err
		}
		if i, err := fv.AsInt64(); err == nil {
			length = int(i)
		}
	}
	start := from - 1
	if start < 0 {
		start = 0
	}
	if start > len(runes) {
		start = len(runes)
	}
	end := start + length
	if end > len(runes) {
		end = len(runes)
	}
	if end < start {
		end = start
	}
	return types.NewVarcharValue(string(runes[start:end]), -1), nil
}

// UnionReferencedColumns merges referenced-column lists while
// preserving order and de-duplicating by pointer identity (columns
// are shared immutable handles, spec §5).
func UnionReferencedColumns(lists ...[]sql.ColumnRef) []sql.ColumnRef {
	seen := map[sql.ColumnRef]bool{}
	var out []sql.ColumnRef
	for _, l := range lists {
		for _, c := range l {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}
