package hep

import "github.com/talondb/talon/sql/plan"

// PatternChildrenKind is the closed tag for PatternChildrenPredicate
// (spec §4.5): None (ignore children), Predicate (positional match
// against children), or MatchedRecursive (descend unconditionally).
type PatternChildrenKind uint8

const (
	ChildrenNone PatternChildrenKind = iota
	ChildrenPredicate
	ChildrenMatchedRecursive
)

// PatternChildrenPredicate carries ChildrenPredicate's payload when its
// Kind is ChildrenPredicate.
type PatternChildrenPredicate struct {
	Kind     PatternChildrenKind
	Patterns []Pattern
}

func NoChildren() PatternChildrenPredicate {
	return PatternChildrenPredicate{Kind: ChildrenNone}
}

func ChildPatterns(patterns ...Pattern) PatternChildrenPredicate {
	return PatternChildrenPredicate{Kind: ChildrenPredicate, Patterns: patterns}
}

func MatchedRecursive() PatternChildrenPredicate {
	return PatternChildrenPredicate{Kind: ChildrenMatchedRecursive}
}

// Pattern is a rule's match predicate: an operator-level test plus a
// children predicate (spec §4.5).
type Pattern struct {
	Predicate func(plan.Operator) bool
	Children  PatternChildrenPredicate
}

func Op(op plan.Operator) Pattern {
	return Pattern{Predicate: func(o plan.Operator) bool { return o == op }, Children: NoChildren()}
}

func OpAny(ops ...plan.Operator) Pattern {
	set := map[plan.Operator]bool{}
	for _, o := range ops {
		set[o] = true
	}
	return Pattern{Predicate: func(o plan.Operator) bool { return set[o] }, Children: NoChildren()}
}

// WithChildren returns a copy of p with its children predicate
// replaced.
func (p Pattern) WithChildren(c PatternChildrenPredicate) Pattern {
	p.Children = c
	return p
}

// Match reports whether id within g satisfies p: predicate holds at
// the node, and (if Children is Predicate) arity matches and each
// child recursively matches the corresponding sub-pattern (spec §4.5).
func Match(g *HepGraph, id HepNodeId, p Pattern) bool {
	if !p.Predicate(g.Operator(id)) {
		return false
	}
	switch p.Children.Kind {
	case ChildrenNone:
		return true
	case ChildrenMatchedRecursive:
		for _, c := range g.Children(id) {
			if !matchAny(g, c) {
				return false
			}
		}
		return true
	case ChildrenPredicate:
		kids := g.Children(id)
		if len(kids) != len(p.Children.Patterns) {
			return false
		}
		for i, child := range kids {
			if !Match(g, child, p.Children.Patterns[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func matchAny(g *HepGraph, id HepNodeId) bool {
	for _, c := range g.Children(id) {
		if !matchAny(g, c) {
			return false
		}
	}
	return true
}
