// Package hep implements talon's heuristic (rule-based) plan optimizer
// (spec §4.5): a graph view of the logical plan with stable node ids,
// a pattern-matching protocol, and a batch driver that applies
// normalization and implementation rules until fixed point.
package hep

import "github.com/talondb/talon/sql/plan"

// HepNodeId stably identifies a node within one HepGraph instance.
type HepNodeId int

// HepGraph is the mutable graph view of a logical plan (spec §4.5
// Design Notes: "the graph holds (id -> operator, id -> [child_id])").
// Conversion plan<->graph is total and loss-free for the operator set.
type HepGraph struct {
	nodes    map[HepNodeId]*plan.LogicalPlan // operator + local params + schema + physical, Children always nil here
	children map[HepNodeId][]HepNodeId
	root     HepNodeId
	nextID   HepNodeId
}

// NewHepGraph builds a graph from a LogicalPlan tree.
func NewHepGraph(root *plan.LogicalPlan) *HepGraph {
	g := &HepGraph{
		nodes:    map[HepNodeId]*plan.LogicalPlan{},
		children: map[HepNodeId][]HepNodeId{},
	}
	g.root = g.insert(root)
	return g
}

func (g *HepGraph) insert(p *plan.LogicalPlan) HepNodeId {
	id := g.nextID
	g.nextID++
	detached := p.Clone()
	detached.Children = nil
	g.nodes[id] = detached
	childIDs := make([]HepNodeId, len(p.Children))
	for i, c := range p.Children {
		childIDs[i] = g.insert(c)
	}
	g.children[id] = childIDs
	return id
}

// Root returns the graph's designated root node id.
func (g *HepGraph) Root() HepNodeId { return g.root }

// Operator returns the operator tag at id.
func (g *HepGraph) Operator(id HepNodeId) plan.Operator { return g.nodes[id].Op }

// OperatorMut returns the mutable node data at id for a rule to edit
// in place (spec §4.5: "operator_mut(id)").
func (g *HepGraph) OperatorMut(id HepNodeId) *plan.LogicalPlan { return g.nodes[id] }

// Children returns the ordered child node ids of id.
func (g *HepGraph) Children(id HepNodeId) []HepNodeId { return g.children[id] }

// ChildCount reports the arity of id.
func (g *HepGraph) ChildCount(id HepNodeId) int { return len(g.children[id]) }

// ReplaceNode swaps the node data at id for a new detached LogicalPlan
// (its Children field is ignored; the graph's own child-id list for id
// is preserved) — spec §4.5 "replace_node(id, op)".
func (g *HepGraph) ReplaceNode(id HepNodeId, node *plan.LogicalPlan) {
	detached := node.Clone()
	detached.Children = nil
	g.nodes[id] = detached
}

// AddNode inserts a freshly-built node as a new child of parent,
// either appended or positioned immediately before beforeSibling, and
// returns its id (spec §4.5 "add_node(parent, before_sibling?, op)").
// childIDs are existing graph node ids to adopt as the new node's own
// children (used when a rule splits a node's children across two new
// parents, e.g. predicate pushdown).
func (g *HepGraph) AddNode(parent HepNodeId, beforeSibling *HepNodeId, node *plan.LogicalPlan, childIDs []HepNodeId) HepNodeId {
	id := g.nextID
	g.nextID++
	detached := node.Clone()
	detached.Children = nil
	g.nodes[id] = detached
	g.children[id] = childIDs

	siblings := g.children[parent]
	if beforeSibling == nil {
		g.children[parent] = append(siblings, id)
		return id
	}
	out := make([]HepNodeId, 0, len(siblings)+1)
	for _, s := range siblings {
		if s == *beforeSibling {
			out = append(out, id)
		}
		out = append(out, s)
	}
	g.children[parent] = out
	return id
}

// ReplaceChild swaps one of parent's direct children (by position) for
// a different existing node id — the common case of "insert a new
// node between parent and child".
func (g *HepGraph) ReplaceChild(parent HepNodeId, oldChild, newChild HepNodeId) {
	kids := g.children[parent]
	for i, k := range kids {
		if k == oldChild {
			kids[i] = newChild
			return
		}
	}
}

// RemoveNode excises id from the graph; if reconnectChildren is true,
// id's own children are spliced into its parent's child list in its
// place (spec §4.5 "remove_node(id, reconnect_children)").
func (g *HepGraph) RemoveNode(parent, id HepNodeId, reconnectChildren bool) {
	kids := g.children[parent]
	out := make([]HepNodeId, 0, len(kids))
	for _, k := range kids {
		if k != id {
			out = append(out, k)
			continue
		}
		if reconnectChildren {
			out = append(out, g.children[id]...)
		}
	}
	g.children[parent] = out
	delete(g.nodes, id)
	delete(g.children, id)
}

// ToPlan rebuilds a canonical LogicalPlan tree from the graph (spec
// §4.5: conversion is total and loss-free).
func (g *HepGraph) ToPlan() *plan.LogicalPlan {
	return g.toPlan(g.root)
}

func (g *HepGraph) toPlan(id HepNodeId) *plan.LogicalPlan {
	node := g.nodes[id].Clone()
	childIDs := g.children[id]
	node.Children = make([]*plan.LogicalPlan, len(childIDs))
	for i, c := range childIDs {
		node.Children[i] = g.toPlan(c)
	}
	return node
}

// AllNodes returns every node id currently reachable from the root, in
// pre-order.
func (g *HepGraph) AllNodes() []HepNodeId {
	var out []HepNodeId
	var walk func(HepNodeId)
	walk = func(id HepNodeId) {
		out = append(out, id)
		for _, c := range g.children[id] {
			walk(c)
		}
	}
	walk(g.root)
	return out
}

// ParentOf returns the parent of id (searching from root), or -1 and
// false if id is the root or unreachable.
func (g *HepGraph) ParentOf(id HepNodeId) (HepNodeId, bool) {
	for _, n := range g.AllNodes() {
		for _, c := range g.children[n] {
			if c == id {
				return n, true
			}
		}
	}
	return -1, false
}
