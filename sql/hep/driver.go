package hep

import "github.com/talondb/talon/sql"

// NormalizationRule rewrites the graph in a semantics-preserving way
// (spec §4.5): SimplifyFilter, CombineFilters, predicate pushdown, and
// the like.
type NormalizationRule interface {
	Pattern() Pattern
	Apply(ctx *sql.Context, g *HepGraph, id HepNodeId) (changed bool, err error)
}

// ImplementationRule pins a PhysicalOption on a matched logical node
// without otherwise restructuring the graph.
type ImplementationRule interface {
	Pattern() Pattern
	Apply(ctx *sql.Context, g *HepGraph, id HepNodeId) (changed bool, err error)
}

// StrategyKind is the closed set of batch traversal orders (spec
// §4.5).
type StrategyKind uint8

const (
	OnceTopDown StrategyKind = iota
	OnceBottomUp
	FixPointTopDown
)

// HepBatchStrategy selects how a Batch's rules are applied across the
// graph; MaxIters only applies to FixPointTopDown.
type HepBatchStrategy struct {
	Kind     StrategyKind
	MaxIters int
}

// Batch groups rules that run together under one strategy (spec §4.5:
// "within a batch, rules are tried in order").
type Batch struct {
	Rules    []NormalizationRule
	Strategy HepBatchStrategy
}

// RunBatches executes batches in order against g, mutating it in
// place.
func RunBatches(ctx *sql.Context, g *HepGraph, batches []Batch) error {
	for _, b := range batches {
		if err := runBatch(ctx, g, b); err != nil {
			return err
		}
	}
	return nil
}

func runBatch(ctx *sql.Context, g *HepGraph, b Batch) error {
	switch b.Strategy.Kind {
	case OnceTopDown:
		_, err := applyOncePass(ctx, g, b.Rules, true)
		return err
	case OnceBottomUp:
		_, err := applyOncePass(ctx, g, b.Rules, false)
		return err
	case FixPointTopDown:
		maxIters := b.Strategy.MaxIters
		if maxIters <= 0 {
			maxIters = 1
		}
		for i := 0; i < maxIters; i++ {
			changed, err := applyOncePass(ctx, g, b.Rules, true)
			if err != nil {
				return err
			}
			if !changed {
				break
			}
		}
		return nil
	default:
		return nil
	}
}

// applyOncePass visits every node currently in the graph exactly once
// (pre-order for topDown, post-order otherwise), trying each rule in
// order at each node; it returns whether any rule produced a
// structural change this pass, so FixPointTopDown knows when to stop.
func applyOncePass(ctx *sql.Context, g *HepGraph, rules []NormalizationRule, topDown bool) (bool, error) {
	order := visitOrder(g, g.root, topDown)
	anyChanged := false
	for _, id := range order {
		if _, ok := g.nodes[id]; !ok {
			continue // removed by an earlier rule application this pass
		}
		for _, rule := range rules {
			if !Match(g, id, rule.Pattern()) {
				continue
			}
			changed, err := rule.Apply(ctx, g, id)
			if err != nil {
				return anyChanged, err
			}
			if changed {
				anyChanged = true
			}
		}
	}
	return anyChanged, nil
}

func visitOrder(g *HepGraph, root HepNodeId, topDown bool) []HepNodeId {
	var pre, post []HepNodeId
	var walk func(HepNodeId)
	walk = func(id HepNodeId) {
		pre = append(pre, id)
		for _, c := range g.Children(id) {
			walk(c)
		}
		post = append(post, id)
	}
	walk(root)
	if topDown {
		return pre
	}
	return post
}
