package expression

import (
	"sort"

	"github.com/talondb/talon/sql"
	"github.com/talondb/talon/sql/types"
)

// Simplify performs bottom-up constant folding, preserving SQL's
// three-valued logic for AND/OR/NOT and null-propagation for
// arithmetic (spec §4.1). It never evaluates a sub-tree that still
// references a column — those survive unchanged except for their
// already-simplified children.
func Simplify(e ScalarExpression) ScalarExpression {
	switch n := e.(type) {
	case *Unary:
		inner := Simplify(n.Expr)
		u := &Unary{Op: n.Op, Expr: inner, Ty: n.Ty}
		if isConstant(inner) {
			return foldConstant(u)
		}
		if n.Op == UnaryNot {
			if innerNot, ok := inner.(*Unary); ok && innerNot.Op == UnaryNot {
				return innerNot.Expr // NOT NOT x = x
			}
		}
		return u
	case *Binary:
		left := Simplify(n.Left)
		right := Simplify(n.Right)
		b := &Binary{Op: n.Op, Left: left, Right: right, Ty: n.Ty}
		if n.Op == And {
			if isConstantBool(left, false) || isConstantBool(right, false) {
				return NewConstant(types.NewBool(false))
			}
			if isConstantBool(left, true) {
				return right
			}
			if isConstantBool(right, true) {
				return left
			}
		}
		if n.Op == Or {
			if isConstantBool(left, true) || isConstantBool(right, true) {
				return NewConstant(types.NewBool(true))
			}
			if isConstantBool(left, false) {
				return right
			}
			if isConstantBool(right, false) {
				return left
			}
		}
		if isConstant(left) && isConstant(right) {
			return foldConstant(b)
		}
		return b
	case *IsNull:
		inner := Simplify(n.Expr)
		if isConstant(inner) {
			return foldConstant(&IsNull{Expr: inner, Negated: n.Negated})
		}
		return &IsNull{Expr: inner, Negated: n.Negated}
	case *TypeCast:
		inner := Simplify(n.Expr)
		if isConstant(inner) {
			return foldConstant(&TypeCast{Expr: inner, To: n.To})
		}
		return &TypeCast{Expr: inner, To: n.To}
	case *In:
		expr := Simplify(n.Expr)
		args := make([]ScalarExpression, len(n.Args))
		allConst := isConstant(expr)
		for i, a := range n.Args {
			args[i] = Simplify(a)
			allConst = allConst && isConstant(args[i])
		}
		in := &In{Expr: expr, Args: args, Negated: n.Negated}
		if allConst {
			return foldConstant(in)
		}
		return in
	case *Between:
		expr := Simplify(n.Expr)
		lo := Simplify(n.Lo)
		hi := Simplify(n.Hi)
		b := &Between{Expr: expr, Lo: lo, Hi: hi, Negated: n.Negated}
		if isConstant(expr) && isConstant(lo) && isConstant(hi) {
			return foldConstant(b)
		}
		return b
	case *Alias:
		return &Alias{Expr: Simplify(n.Expr), AliasName: n.AliasName}
	default:
		return e
	}
}

func isConstant(e ScalarExpression) bool {
	_, ok := e.(*Constant)
	return ok
}

func isConstantBool(e ScalarExpression, want bool) bool {
	c, ok := e.(*Constant)
	if !ok || c.Value.IsNull() {
		return false
	}
	b, ok := c.Value.AsBool()
	return ok && b == want
}

// foldConstant evaluates an expression whose children are all already
// Constant nodes, against the Dummy (zero-column) row.
func foldConstant(e ScalarExpression) ScalarExpression {
	v, err := e.Eval(nil, sql.Tuple{})
	if err != nil {
		return e
	}
	return NewConstant(v)
}

// --- ConstantBinary ---------------------------------------------------

// BoundKind mirrors Rust's std::collections::Bound.
type BoundKind uint8

const (
	Unbounded BoundKind = iota
	Included
	Excluded
)

type Bound struct {
	Kind  BoundKind
	Value types.Value
}

func UnboundedBound() Bound           { return Bound{Kind: Unbounded} }
func IncludedBound(v types.Value) Bound { return Bound{Kind: Included, Value: v} }
func ExcludedBound(v types.Value) Bound { return Bound{Kind: Excluded, Value: v} }

// Scope is a single closed/open/unbounded interval over one column's
// values.
type Scope struct {
	Min Bound
	Max Bound
}

// ScopeList is the disjoint, ordered range list Rearrange produces,
// adapted to sql.Bounds so an IndexScan can hand it to Transaction.Read
// without sql/expression needing to depend on the sql package's
// Transaction interface.
type ScopeList []Scope

func (s ScopeList) IsEmpty() bool { return len(s) == 0 }

// ConstantBinary is the range a predicate conjunction can be reduced
// to (spec §4.1 GLOSSARY): a Scope (single interval), an And (chain to
// be intersected by ScopeAggregation), or an Or (union to be
// flattened by Rearrange). Exactly one of the three is populated.
type ConstantBinary struct {
	Scope *Scope
	And   []ConstantBinary
	Or    []ConstantBinary
}

func (b ConstantBinary) IsEmpty() bool {
	return b.Scope == nil && len(b.And) == 0 && len(b.Or) == 0
}

func NewScopeBinary(min, max Bound) ConstantBinary {
	return ConstantBinary{Scope: &Scope{Min: min, Max: max}}
}

func NewAndBinary(parts []ConstantBinary) ConstantBinary { return ConstantBinary{And: parts} }
func NewOrBinary(parts []ConstantBinary) ConstantBinary  { return ConstantBinary{Or: parts} }

// ScopeAggregation reduces an AND-chain of ranges into at most one
// closed interval per column (spec §4.1). It is a no-op on a bare
// Scope or Or. If any conjunct does not itself reduce to a Scope (e.g.
// an OR inside the AND chain), the And is left as-is: Rearrange then
// collects the scopes of every conjunct, a list that can be wider than
// the AND itself, and the caller (PushPredicateIntoScan) keeps the
// outer Filter, which removes the extra rows.
func (b *ConstantBinary) ScopeAggregation() error {
	if len(b.And) == 0 {
		return nil
	}
	for i := range b.And {
		if err := b.And[i].ScopeAggregation(); err != nil {
			return err
		}
	}
	merged := b.And[0].Scope
	if merged == nil {
		return nil // unreducible; leave And as-is
	}
	result := *merged
	for _, part := range b.And[1:] {
		if part.Scope == nil {
			return nil
		}
		result = intersectScope(result, *part.Scope)
	}
	b.Scope = &result
	b.And = nil
	return nil
}

func intersectScope(a, b Scope) Scope {
	return Scope{Min: maxBound(a.Min, b.Min), Max: minBound(a.Max, b.Max)}
}

func maxBound(a, b Bound) Bound {
	if a.Kind == Unbounded {
		return b
	}
	if b.Kind == Unbounded {
		return a
	}
	cmp, _ := a.Value.Compare(b.Value)
	if cmp > 0 {
		return a
	}
	if cmp < 0 {
		return b
	}
	if a.Kind == Excluded || b.Kind == Excluded {
		return Bound{Kind: Excluded, Value: a.Value}
	}
	return a
}

func minBound(a, b Bound) Bound {
	if a.Kind == Unbounded {
		return b
	}
	if b.Kind == Unbounded {
		return a
	}
	cmp, _ := a.Value.Compare(b.Value)
	if cmp < 0 {
		return a
	}
	if cmp > 0 {
		return b
	}
	if a.Kind == Excluded || b.Kind == Excluded {
		return Bound{Kind: Excluded, Value: a.Value}
	}
	return a
}

// Rearrange splits a (possibly non-contiguous) union into an ordered,
// disjoint list of Scopes; it returns an empty list when the result is
// a tautology (spanning the whole domain), per spec §4.1.
func (b *ConstantBinary) Rearrange() ([]Scope, error) {
	if err := b.ScopeAggregation(); err != nil {
		return nil, err
	}
	var scopes []Scope
	collectScopes(*b, &scopes)
	if len(scopes) == 0 {
		return nil, nil
	}
	sort.Slice(scopes, func(i, j int) bool { return boundLess(scopes[i].Min, scopes[j].Min) })
	merged := []Scope{scopes[0]}
	for _, s := range scopes[1:] {
		last := &merged[len(merged)-1]
		if boundsOverlapOrAdjacent(last.Max, s.Min) {
			last.Max = maxUpperBound(last.Max, s.Max)
		} else {
			merged = append(merged, s)
		}
	}
	if len(merged) == 1 && merged[0].Min.Kind == Unbounded && merged[0].Max.Kind == Unbounded {
		return nil, nil // tautology
	}
	return merged, nil
}

func collectScopes(b ConstantBinary, out *[]Scope) {
	if b.Scope != nil {
		*out = append(*out, *b.Scope)
		return
	}
	for _, part := range b.And {
		collectScopes(part, out)
	}
	for _, part := range b.Or {
		collectScopes(part, out)
	}
}

func boundLess(a, b Bound) bool {
	if a.Kind == Unbounded {
		return b.Kind != Unbounded
	}
	if b.Kind == Unbounded {
		return false
	}
	cmp, _ := a.Value.Compare(b.Value)
	return cmp < 0
}

func boundsOverlapOrAdjacent(upper, lower Bound) bool {
	if upper.Kind == Unbounded || lower.Kind == Unbounded {
		return true
	}
	cmp, _ := upper.Value.Compare(lower.Value)
	if cmp > 0 {
		return true
	}
	if cmp == 0 {
		return upper.Kind == Included || lower.Kind == Included
	}
	return false
}

func maxUpperBound(a, b Bound) Bound {
	if a.Kind == Unbounded || b.Kind == Unbounded {
		return Bound{Kind: Unbounded}
	}
	cmp, _ := a.Value.Compare(b.Value)
	if cmp > 0 {
		return a
	}
	if cmp < 0 {
		return b
	}
	if a.Kind == Included || b.Kind == Included {
		return Bound{Kind: Included, Value: a.Value}
	}
	return a
}
