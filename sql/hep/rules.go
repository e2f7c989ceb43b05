package hep

import (
	"github.com/talondb/talon/sql"
	"github.com/talondb/talon/sql/expression"
	"github.com/talondb/talon/sql/plan"
	"github.com/talondb/talon/sql/types"
)

// conjuncts splits e into its top-level AND operands.
func conjuncts(e expression.ScalarExpression) []expression.ScalarExpression {
	b, ok := e.(*expression.Binary)
	if !ok || b.Op != expression.And {
		return []expression.ScalarExpression{e}
	}
	return append(conjuncts(b.Left), conjuncts(b.Right)...)
}

// rebuildAnd rebuilds a single predicate from a conjunct list,
// preserving original AND-order (spec §4.5 tie-break rule).
func rebuildAnd(parts []expression.ScalarExpression) expression.ScalarExpression {
	if len(parts) == 0 {
		return nil
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out = expression.NewBinary(expression.And, out, p, out.ReturnType())
	}
	return out
}

func isConstantFalse(e expression.ScalarExpression) bool {
	c, ok := e.(*expression.Constant)
	if !ok || c.Value.IsNull() {
		return false
	}
	b, ok := c.Value.AsBool()
	return ok && !b
}

func isConstantTrue(e expression.ScalarExpression) bool {
	c, ok := e.(*expression.Constant)
	if !ok || c.Value.IsNull() {
		return false
	}
	b, ok := c.Value.AsBool()
	return ok && b
}

// --- SimplifyFilter -----------------------------------------------------

// SimplifyFilter constant-folds a Filter's predicate; an always-true
// predicate drops the Filter, an always-false predicate replaces the
// whole node with an empty Values (spec §4.5, §8).
type SimplifyFilter struct{}

func (SimplifyFilter) Pattern() Pattern { return Op(plan.OpFilter) }

func (SimplifyFilter) Apply(ctx *sql.Context, g *HepGraph, id HepNodeId) (bool, error) {
	node := g.OperatorMut(id)
	params := node.Params.(plan.FilterParams)
	simplified := expression.Simplify(params.Predicate)

	if isConstantFalse(simplified) {
		empty := plan.EmptyValues(node.Schema)
		g.ReplaceNode(id, empty)
		return true, nil
	}
	if isConstantTrue(simplified) {
		parent, ok := g.ParentOf(id)
		if ok {
			g.RemoveNode(parent, id, true)
		}
		return true, nil
	}
	if simplified != params.Predicate {
		node.Params = plan.FilterParams{Predicate: simplified}
		return true, nil
	}
	return false, nil
}

// --- CombineFilters -----------------------------------------------------

// CombineFilters merges a Filter whose sole child is another Filter
// into a single node with the AND of both predicates.
type CombineFilters struct{}

func (CombineFilters) Pattern() Pattern {
	return Op(plan.OpFilter).WithChildren(ChildPatterns(Op(plan.OpFilter)))
}

func (CombineFilters) Apply(ctx *sql.Context, g *HepGraph, id HepNodeId) (bool, error) {
	outer := g.OperatorMut(id)
	childID := g.Children(id)[0]
	inner := g.OperatorMut(childID)
	outerPred := outer.Params.(plan.FilterParams).Predicate
	innerPred := inner.Params.(plan.FilterParams).Predicate
	combined := expression.NewBinary(expression.And, outerPred, innerPred, types.TBoolean)
	outer.Params = plan.FilterParams{Predicate: combined}
	g.children[id] = g.children[childID]
	delete(g.nodes, childID)
	delete(g.children, childID)
	return true, nil
}

// --- PushPredicateThroughJoin --------------------------------------------

// PushPredicateThroughJoin implements spec §4.5's canonical example:
// match Filter(Join(L,R)); partition the filter's AND-conjuncts by
// which side's columns they reference; push what's safe below each
// child, keeping cross-referencing (and, for outer joins, nullable-side)
// conjuncts as the outer filter.
type PushPredicateThroughJoin struct{}

func (PushPredicateThroughJoin) Pattern() Pattern {
	return Op(plan.OpFilter).WithChildren(ChildPatterns(Op(plan.OpJoin)))
}

func (PushPredicateThroughJoin) Apply(ctx *sql.Context, g *HepGraph, id HepNodeId) (bool, error) {
	filterNode := g.OperatorMut(id)
	joinID := g.Children(id)[0]
	joinNode := g.OperatorMut(joinID)
	joinParams := joinNode.Params.(plan.JoinParams)
	joinChildren := g.Children(joinID)
	leftID, rightID := joinChildren[0], joinChildren[1]
	leftSchema := g.nodes[leftID].Schema
	rightSchema := g.nodes[rightID].Schema

	parts := conjuncts(filterNode.Params.(plan.FilterParams).Predicate)
	var toLeft, toRight, remaining []expression.ScalarExpression
	for _, p := range parts {
		refs := p.ReferencedColumns(true)
		inLeft, inRight := classify(refs, leftSchema, rightSchema)
		switch {
		case inLeft && !inRight:
			toLeft = append(toLeft, p)
		case inRight && !inLeft:
			toRight = append(toRight, p)
		default:
			remaining = append(remaining, p)
		}
	}

	switch joinParams.Type {
	case plan.LeftJoin:
		// Pushing into the nullable (right) side would change
		// semantics, so Fr joins the outer filter alongside Fc.
		remaining = append(append([]expression.ScalarExpression{}, toRight...), remaining...)
		toRight = nil
	case plan.RightJoin:
		remaining = append(append([]expression.ScalarExpression{}, toLeft...), remaining...)
		toLeft = nil
	case plan.FullJoin, plan.CrossJoin:
		remaining = append(append(append([]expression.ScalarExpression{}, toLeft...), toRight...), remaining...)
		toLeft, toRight = nil, nil
	}

	if len(toLeft) == 0 && len(toRight) == 0 {
		return false, nil
	}

	changed := false
	if len(toLeft) > 0 {
		newLeft := wrapFilter(g, leftID, rebuildAnd(toLeft))
		g.ReplaceChild(joinID, leftID, newLeft)
		changed = true
	}
	if len(toRight) > 0 {
		newRight := wrapFilter(g, rightID, rebuildAnd(toRight))
		g.ReplaceChild(joinID, rightID, newRight)
		changed = true
	}

	if len(remaining) == 0 {
		parent, ok := g.ParentOf(id)
		if ok {
			g.RemoveNode(parent, id, true)
		}
	} else {
		filterNode.Params = plan.FilterParams{Predicate: rebuildAnd(remaining)}
	}
	return changed, nil
}

// classify reports whether refs includes any column from left and/or
// right, by pointer identity.
func classify(refs []sql.ColumnRef, left, right sql.SchemaRef) (inLeft, inRight bool) {
	for _, r := range refs {
		if left.IndexOf(r) >= 0 {
			inLeft = true
		}
		if right.IndexOf(r) >= 0 {
			inRight = true
		}
	}
	return
}

// wrapFilter inserts a new Filter node as childID's sole parent within
// the graph, returning the new node's id.
func wrapFilter(g *HepGraph, childID HepNodeId, predicate expression.ScalarExpression) HepNodeId {
	node := &plan.LogicalPlan{Op: plan.OpFilter, Params: plan.FilterParams{Predicate: predicate}, Schema: g.nodes[childID].Schema}
	id := g.nextID
	g.nextID++
	g.nodes[id] = node
	g.children[id] = []HepNodeId{childID}
	return id
}

// --- PushPredicateIntoScan -----------------------------------------------

// PushPredicateIntoScan attempts convert_binary against each IndexInfo
// on a Scan beneath a Filter; the outer Filter is always retained
// (spec §4.5, §8: "never changes the result multiset").
type PushPredicateIntoScan struct{}

func (PushPredicateIntoScan) Pattern() Pattern {
	return Op(plan.OpFilter).WithChildren(ChildPatterns(Op(plan.OpScan)))
}

func (PushPredicateIntoScan) Apply(ctx *sql.Context, g *HepGraph, id HepNodeId) (bool, error) {
	filterNode := g.OperatorMut(id)
	scanID := g.Children(id)[0]
	scanNode := g.OperatorMut(scanID)
	scanParams := scanNode.Params.(plan.ScanParams)
	predicate := filterNode.Params.(plan.FilterParams).Predicate

	type candidate struct {
		idx    int
		scopes expression.ScopeList
		rows   int64 // estimated, only meaningful when provider != nil
	}
	var candidates []candidate
	provider := ctx.StatsProvider()

	for i := range scanParams.Indexes {
		idx := &scanParams.Indexes[i]
		if len(idx.Index.ColumnIDs) == 0 {
			continue
		}
		cb, err := expression.ConvertBinary(predicate, scanParams.TableName, idx.Index.ColumnIDs[0])
		if err != nil {
			return false, err
		}
		if cb == nil || cb.IsEmpty() {
			continue
		}
		scopes, err := cb.Rearrange()
		if err != nil {
			return false, err
		}
		if len(scopes) == 0 {
			continue
		}
		c := candidate{idx: i, scopes: scopes}
		if provider != nil {
			c.rows = estimateScopeRows(provider, scanParams.TableName, idx.Index.ColumnIDs[0], scopes)
		}
		candidates = append(candidates, c)
		if provider == nil {
			break // no statistics to compare by: first match wins (spec §4.5)
		}
	}
	if len(candidates) == 0 {
		return false, nil
	}

	best := candidates[0]
	if provider != nil {
		for _, c := range candidates[1:] {
			if c.rows < best.rows {
				best = c
			}
		}
	}
	scanParams.Indexes[best.idx].Ranges = best.scopes
	scanNode.Params = scanParams
	scanNode.Physical = plan.PhysicalIndexScan
	return true, nil
}

// estimateScopeRows sums a StatsProvider's row estimate across every
// disjoint scope a Rearrange produced, picking the cheapest of several
// matching indexes (spec §4.7: "the optimizer ... reloads them for
// index-selection rules"). Unavailable statistics degrade one scope at
// a time rather than failing the whole estimate.
func estimateScopeRows(provider sql.StatsProvider, table string, column sql.ColumnID, scopes expression.ScopeList) int64 {
	var total int64
	for _, s := range scopes {
		var lo, hi *types.Value
		if s.Min.Kind != expression.Unbounded {
			v := s.Min.Value
			lo = &v
		}
		if s.Max.Kind != expression.Unbounded {
			v := s.Max.Value
			hi = &v
		}
		rows, ok := provider.EstimateRange(table, column, lo, hi)
		if !ok {
			return total
		}
		total += rows
	}
	return total
}

// --- PushProjectThroughChild ---------------------------------------------

// PushProjectThroughChild pushes a Project below a Filter when the
// Project's expressions are all simple ColumnRefs (a pure narrowing)
// and every column the Filter references survives the projection; the
// Filter then runs over the narrowed rows.
type PushProjectThroughChild struct{}

func (PushProjectThroughChild) Pattern() Pattern {
	return Op(plan.OpProject).WithChildren(ChildPatterns(Op(plan.OpFilter)))
}

func (PushProjectThroughChild) Apply(ctx *sql.Context, g *HepGraph, id HepNodeId) (bool, error) {
	projNode := g.OperatorMut(id)
	projParams := projNode.Params.(plan.ProjectParams)
	for _, e := range projParams.Exprs {
		if _, ok := e.(*expression.ColumnRef); !ok {
			return false, nil // only pure column selections are safe to reorder here
		}
	}
	filterID := g.Children(id)[0]
	filterNode := g.nodes[filterID]
	filterParams := filterNode.Params.(plan.FilterParams)
	needed := filterParams.Predicate.ReferencedColumns(true)
	for _, c := range needed {
		if projNode.Schema.IndexOf(c) < 0 {
			return false, nil // the filter needs a column this projection would drop
		}
	}
	innerChildren := g.Children(filterID)
	if len(innerChildren) != 1 {
		return false, nil
	}
	innerID := innerChildren[0]

	newProj := &plan.LogicalPlan{Op: plan.OpProject, Params: projParams, Schema: projNode.Schema}
	newProjID := g.nextID
	g.nextID++
	g.nodes[newProjID] = newProj
	g.children[newProjID] = []HepNodeId{innerID}

	newFilter := &plan.LogicalPlan{Op: plan.OpFilter, Params: filterParams, Schema: projNode.Schema}
	g.ReplaceNode(id, newFilter)
	g.children[id] = []HepNodeId{newProjID}
	delete(g.nodes, filterID)
	delete(g.children, filterID)
	return true, nil
}

// --- ColumnPruning -----------------------------------------------------

// ColumnPruning drops Scan columns that are never referenced above it,
// producing a fresh SchemaRef (spec §4.5; "rewrites that change a
// node's output must build a fresh SchemaRef" per spec §3). It is
// conservative: it only prunes a Scan's schema, never removes a
// column a sibling Join side still needs (checked via the whole
// graph's referenced_columns from the graph's root).
type ColumnPruning struct{}

func (ColumnPruning) Pattern() Pattern { return Op(plan.OpScan) }

func (ColumnPruning) Apply(ctx *sql.Context, g *HepGraph, id HepNodeId) (bool, error) {
	root := g.ToPlan()
	needed := root.ReferencedColumns(false)
	neededSet := map[sql.ColumnRef]bool{}
	for _, c := range needed {
		neededSet[c] = true
	}
	node := g.OperatorMut(id)
	var pruned sql.SchemaRef
	for _, c := range node.Schema {
		if neededSet[c] || len(neededSet) == 0 {
			pruned = append(pruned, c)
		}
	}
	if len(pruned) == len(node.Schema) || len(pruned) == 0 {
		return false, nil
	}
	node.Schema = pruned
	return true, nil
}

// --- LimitPushDown -----------------------------------------------------

// LimitPushDown pushes a Limit below a Project (narrowing doesn't
// change row count or order) so the executor stops pulling sooner.
type LimitPushDown struct{}

func (LimitPushDown) Pattern() Pattern {
	return Op(plan.OpLimit).WithChildren(ChildPatterns(Op(plan.OpProject)))
}

func (LimitPushDown) Apply(ctx *sql.Context, g *HepGraph, id HepNodeId) (bool, error) {
	limitNode := g.OperatorMut(id)
	limitParams := limitNode.Params.(plan.LimitParams)
	projID := g.Children(id)[0]
	projChildren := g.Children(projID)
	if len(projChildren) != 1 {
		return false, nil
	}
	innerID := projChildren[0]
	projNode := g.nodes[projID]
	newLimit := &plan.LogicalPlan{Op: plan.OpLimit, Params: limitParams, Schema: g.nodes[innerID].Schema}
	// Swap the two nodes in place: the Project takes the Limit's slot
	// and the Limit moves to the Project's slot, above the inner child.
	g.ReplaceNode(id, projNode)
	g.ReplaceNode(projID, newLimit)
	return true, nil
}

// --- EliminateRedundantProject --------------------------------------------

// EliminateRedundantProject removes a Project whose expression list is
// exactly its child's schema, in order (a no-op projection).
type EliminateRedundantProject struct{}

func (EliminateRedundantProject) Pattern() Pattern { return Op(plan.OpProject) }

func (EliminateRedundantProject) Apply(ctx *sql.Context, g *HepGraph, id HepNodeId) (bool, error) {
	node := g.OperatorMut(id)
	params := node.Params.(plan.ProjectParams)
	children := g.Children(id)
	if len(children) != 1 {
		return false, nil
	}
	childSchema := g.nodes[children[0]].Schema
	if len(params.Exprs) != len(childSchema) {
		return false, nil
	}
	for i, e := range params.Exprs {
		cr, ok := e.(*expression.ColumnRef)
		if !ok || cr.Column != childSchema[i] {
			return false, nil
		}
	}
	parent, ok := g.ParentOf(id)
	if !ok {
		return false, nil // the graph root can't be removed this way
	}
	g.RemoveNode(parent, id, true)
	return true, nil
}
