package expression

import (
	"github.com/talondb/talon/sql"
	"github.com/talondb/talon/sql/types"
)

// ConvertBinary attempts to reduce a predicate into a ConstantBinary
// range over a single indexed column (tableName, columnID), for use by
// PushPredicateIntoScan. It mirrors original_source's
// pushdown_predicates.rs conversion: every branch that cannot prove a
// safe reduction returns a nil range, leaving the outer Filter as the
// correctness net — ConvertBinary never changes query results, only
// whether the scan can narrow its iteration.
func ConvertBinary(expr ScalarExpression, tableName string, columnID sql.ColumnID) (*ConstantBinary, error) {
	switch n := expr.(type) {
	case *Binary:
		return convertBinaryOp(n, tableName, columnID)
	case *Unary:
		if n.Op == UnaryNot {
			inner, err := ConvertBinary(n.Expr, tableName, columnID)
			if err != nil || inner == nil {
				return nil, err
			}
			return negateBinary(inner), nil
		}
		return nil, nil
	case *In:
		return convertIn(n, tableName, columnID)
	case *Between:
		return convertBetween(n, tableName, columnID)
	case *IsNull:
		// A simplified treatment (documented in DESIGN.md): NULL
		// comparisons are three-valued and don't map onto an ordered
		// range without a dedicated "is-null" bound kind, so IS [NOT]
		// NULL is never pushed into a scan range — the Filter operator
		// always re-checks it.
		return nil, nil
	case *TypeCast:
		return ConvertBinary(n.Expr, tableName, columnID)
	case *Alias:
		return ConvertBinary(n.Expr, tableName, columnID)
	default:
		return nil, nil
	}
}

func convertBinaryOp(n *Binary, tableName string, columnID sql.ColumnID) (*ConstantBinary, error) {
	switch n.Op {
	case And:
		left, err := ConvertBinary(n.Left, tableName, columnID)
		if err != nil {
			return nil, err
		}
		right, err := ConvertBinary(n.Right, tableName, columnID)
		if err != nil {
			return nil, err
		}
		parts := nonNilParts(left, right)
		if len(parts) == 0 {
			return nil, nil
		}
		if len(parts) == 1 {
			return &parts[0], nil
		}
		b := NewAndBinary(parts)
		if err := b.ScopeAggregation(); err != nil {
			return nil, err
		}
		return &b, nil
	case Or:
		left, err := ConvertBinary(n.Left, tableName, columnID)
		if err != nil {
			return nil, err
		}
		right, err := ConvertBinary(n.Right, tableName, columnID)
		if err != nil {
			return nil, err
		}
		// Or is only sound if BOTH sides reduce: an unreduced side
		// could admit rows the other side's range excludes.
		if left == nil || right == nil {
			return nil, nil
		}
		b := NewOrBinary([]ConstantBinary{*left, *right})
		return &b, nil
	}

	col, lit, colOnLeft, ok := splitColumnLiteral(n.Left, n.Right, tableName, columnID)
	if !ok {
		return convertLinearComparison(n, tableName, columnID)
	}
	_ = col
	op := n.Op
	if !colOnLeft {
		flipped, ok := flipComparison(op)
		if !ok {
			return nil, nil
		}
		op = flipped
	}

	c, ok := lit.(*Constant)
	if !ok {
		return nil, nil
	}
	v := c.Value
	if v.IsNull() {
		return nil, nil
	}

	switch op {
	case Eq:
		b := NewScopeBinary(IncludedBound(v), IncludedBound(v))
		return &b, nil
	case Lt:
		b := NewScopeBinary(UnboundedBound(), ExcludedBound(v))
		return &b, nil
	case LtEq:
		b := NewScopeBinary(UnboundedBound(), IncludedBound(v))
		return &b, nil
	case Gt:
		b := NewScopeBinary(ExcludedBound(v), UnboundedBound())
		return &b, nil
	case GtEq:
		b := NewScopeBinary(IncludedBound(v), UnboundedBound())
		return &b, nil
	default:
		// NotEq and the rest do not reduce to a single contiguous
		// range; left to the Filter.
		return nil, nil
	}
}

// flipComparison returns the operator for "x OP col" once rewritten as
// "col OP' x".
func flipComparison(op BinaryOp) (BinaryOp, bool) {
	switch op {
	case Eq, NotEq:
		return op, true
	case Lt:
		return Gt, true
	case LtEq:
		return GtEq, true
	case Gt:
		return Lt, true
	case GtEq:
		return LtEq, true
	default:
		return op, false
	}
}

// linearForm is coef*col + const, the result of linearizing a +/-/
// unary-minus/constant-multiply arithmetic expression that names the
// target column at most once.
type linearForm struct {
	coef   float64
	constV float64
}

// linearize reduces e to coef*col + const when e is built purely from
// Plus/Minus/unary-minus/constant-Multiply over the target column and
// numeric constants; this lets convert_binary see through algebraic
// rearrangements like "-(1 - c2)" (spec §8 scenario 4: "-(1 - c2) > 0"
// must reduce to "c2 > 1"). Any other shape (a second column, a
// division, a non-numeric operand) fails closed: ok=false leaves the
// predicate unconverted and the Filter operator re-checks it.
func linearize(e ScalarExpression, tableName string, columnID sql.ColumnID) (linearForm, bool) {
	switch n := e.(type) {
	case *ColumnRef:
		if isTargetColumn(n, tableName, columnID) {
			return linearForm{coef: 1}, true
		}
		return linearForm{}, false
	case *Constant:
		if n.Value.IsNull() || !n.Value.Type().IsNumeric() {
			return linearForm{}, false
		}
		f, err := n.Value.AsFloat64()
		if err != nil {
			return linearForm{}, false
		}
		return linearForm{constV: f}, true
	case *Unary:
		inner, ok := linearize(n.Expr, tableName, columnID)
		if !ok {
			return linearForm{}, false
		}
		switch n.Op {
		case UnaryMinus:
			return linearForm{coef: -inner.coef, constV: -inner.constV}, true
		case UnaryPlus:
			return inner, true
		default:
			return linearForm{}, false
		}
	case *Binary:
		left, lok := linearize(n.Left, tableName, columnID)
		right, rok := linearize(n.Right, tableName, columnID)
		if !lok || !rok {
			return linearForm{}, false
		}
		switch n.Op {
		case Plus:
			return linearForm{coef: left.coef + right.coef, constV: left.constV + right.constV}, true
		case Minus:
			return linearForm{coef: left.coef - right.coef, constV: left.constV - right.constV}, true
		case Multiply:
			if left.coef == 0 {
				return linearForm{coef: right.coef * left.constV, constV: right.constV * left.constV}, true
			}
			if right.coef == 0 {
				return linearForm{coef: left.coef * right.constV, constV: left.constV * right.constV}, true
			}
			return linearForm{}, false
		default:
			return linearForm{}, false
		}
	default:
		return linearForm{}, false
	}
}

// columnType walks e looking for the ColumnRef matching (tableName,
// columnID), returning its declared datatype so the isolated threshold
// can be cast back to it.
func columnType(e ScalarExpression, tableName string, columnID sql.ColumnID) (types.LogicalType, bool) {
	switch n := e.(type) {
	case *ColumnRef:
		if isTargetColumn(n, tableName, columnID) {
			return n.Column.Datatype(), true
		}
	case *Unary:
		return columnType(n.Expr, tableName, columnID)
	case *Binary:
		if t, ok := columnType(n.Left, tableName, columnID); ok {
			return t, true
		}
		return columnType(n.Right, tableName, columnID)
	}
	return types.LogicalType{}, false
}

// convertLinearComparison handles a comparison whose column-naming
// side isn't a bare ColumnRef but an arithmetic expression linear in
// the target column (spec §8 scenario 4). It isolates the column via
// linearize and casts the resulting threshold back to the column's
// declared type.
func convertLinearComparison(n *Binary, tableName string, columnID sql.ColumnID) (*ConstantBinary, error) {
	if !n.Op.IsComparison() || n.Op == NotEq {
		return nil, nil
	}
	left, lok := linearize(n.Left, tableName, columnID)
	right, rok := linearize(n.Right, tableName, columnID)
	if !lok || !rok {
		return nil, nil
	}
	coef := left.coef - right.coef
	if coef == 0 {
		return nil, nil // target column cancels out; nothing to push
	}
	threshold := (right.constV - left.constV) / coef
	op := n.Op
	if coef < 0 {
		flipped, ok := flipComparison(op)
		if !ok {
			return nil, nil
		}
		op = flipped
	}
	dt, ok := columnType(n.Left, tableName, columnID)
	if !ok {
		dt, ok = columnType(n.Right, tableName, columnID)
	}
	if !ok {
		return nil, nil
	}
	v, err := types.NewFloat64(threshold).CoerceTo(dt)
	if err != nil {
		return nil, nil
	}
	switch op {
	case Eq:
		b := NewScopeBinary(IncludedBound(v), IncludedBound(v))
		return &b, nil
	case Lt:
		b := NewScopeBinary(UnboundedBound(), ExcludedBound(v))
		return &b, nil
	case LtEq:
		b := NewScopeBinary(UnboundedBound(), IncludedBound(v))
		return &b, nil
	case Gt:
		b := NewScopeBinary(ExcludedBound(v), UnboundedBound())
		return &b, nil
	case GtEq:
		b := NewScopeBinary(IncludedBound(v), UnboundedBound())
		return &b, nil
	default:
		return nil, nil
	}
}

func nonNilParts(bs ...*ConstantBinary) []ConstantBinary {
	var out []ConstantBinary
	for _, b := range bs {
		if b != nil {
			out = append(out, *b)
		}
	}
	return out
}

// splitColumnLiteral recognizes a `col OP literal` or `literal OP col`
// shape where col references (tableName, columnID).
func splitColumnLiteral(left, right ScalarExpression, tableName string, columnID sql.ColumnID) (ScalarExpression, ScalarExpression, bool, bool) {
	if isTargetColumn(left, tableName, columnID) {
		return left, right, true, true
	}
	if isTargetColumn(right, tableName, columnID) {
		return right, left, false, true
	}
	return nil, nil, false, false
}

func isTargetColumn(e ScalarExpression, tableName string, columnID sql.ColumnID) bool {
	cr, ok := e.(*ColumnRef)
	if !ok {
		return false
	}
	id, ok := cr.Column.ID()
	if !ok {
		return false
	}
	tbl, _ := cr.Column.TableName()
	return id == columnID && tbl == tableName
}

// negateBinary applies De Morgan's laws plus bound complementing
// (flipBoundKind) to flip a ConstantBinary under NOT. A Scope under
// NOT becomes the two-sided complement, expressed as an Or of the two
// open half-lines (or a single half-line if one side is already
// unbounded).
func negateBinary(b *ConstantBinary) *ConstantBinary {
	switch {
	case b.Scope != nil:
		s := b.Scope
		var parts []ConstantBinary
		if s.Min.Kind != Unbounded {
			parts = append(parts, NewScopeBinary(UnboundedBound(), flipBoundKind(s.Min)))
		}
		if s.Max.Kind != Unbounded {
			parts = append(parts, NewScopeBinary(flipBoundKind(s.Max), UnboundedBound()))
		}
		if len(parts) == 0 {
			return nil // complement of (-inf, inf) is empty; not representable, defer to Filter
		}
		if len(parts) == 1 {
			return &parts[0]
		}
		out := NewOrBinary(parts)
		return &out
	case len(b.And) > 0:
		negated := make([]ConstantBinary, 0, len(b.And))
		for i := range b.And {
			n := negateBinary(&b.And[i])
			if n == nil {
				return nil
			}
			negated = append(negated, *n)
		}
		out := NewOrBinary(negated)
		return &out
	case len(b.Or) > 0:
		negated := make([]ConstantBinary, 0, len(b.Or))
		for i := range b.Or {
			n := negateBinary(&b.Or[i])
			if n == nil {
				return nil
			}
			negated = append(negated, *n)
		}
		out := NewAndBinary(negated)
		return &out
	}
	return nil
}

func flipBoundKind(b Bound) Bound {
	switch b.Kind {
	case Included:
		return Bound{Kind: Excluded, Value: b.Value}
	case Excluded:
		return Bound{Kind: Included, Value: b.Value}
	default:
		return b
	}
}

// convertIn lowers a non-negated IN into an Or-of-Eq range; a negated
// IN is left unconverted (a disjoint NOT-IN exclusion set is not worth
// the complexity for the scan path — spec's documented simplification).
func convertIn(n *In, tableName string, columnID sql.ColumnID) (*ConstantBinary, error) {
	if n.Negated {
		return nil, nil
	}
	if !isTargetColumn(n.Expr, tableName, columnID) {
		return nil, nil
	}
	var parts []ConstantBinary
	for _, arg := range n.Args {
		c, ok := arg.(*Constant)
		if !ok || c.Value.IsNull() {
			return nil, nil
		}
		parts = append(parts, NewScopeBinary(IncludedBound(c.Value), IncludedBound(c.Value)))
	}
	if len(parts) == 0 {
		return nil, nil
	}
	if len(parts) == 1 {
		return &parts[0], nil
	}
	b := NewOrBinary(parts)
	return &b, nil
}

// convertBetween lowers BETWEEN lo AND hi into a closed range, or (if
// negated) the two-sided complement.
func convertBetween(n *Between, tableName string, columnID sql.ColumnID) (*ConstantBinary, error) {
	if !isTargetColumn(n.Expr, tableName, columnID) {
		return nil, nil
	}
	loC, ok1 := n.Lo.(*Constant)
	hiC, ok2 := n.Hi.(*Constant)
	if !ok1 || !ok2 || loC.Value.IsNull() || hiC.Value.IsNull() {
		return nil, nil
	}
	b := NewScopeBinary(IncludedBound(loC.Value), IncludedBound(hiC.Value))
	if !n.Negated {
		return &b, nil
	}
	return negateBinary(&b), nil
}
