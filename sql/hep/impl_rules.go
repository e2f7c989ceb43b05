package hep

import (
	"github.com/talondb/talon/sql"
	"github.com/talondb/talon/sql/plan"
)

// singletonRule pins a fixed PhysicalOption on every node matching
// pattern, with no cost comparison (spec §4.5:
// "single_mapping(Rule, Pattern, PhysicalOption)").
type singletonRule struct {
	pattern Pattern
	option  plan.PhysicalOption
}

func singleMapping(pattern Pattern, option plan.PhysicalOption) ImplementationRule {
	return singletonRule{pattern: pattern, option: option}
}

func (r singletonRule) Pattern() Pattern { return r.pattern }

func (r singletonRule) Apply(ctx *sql.Context, g *HepGraph, id HepNodeId) (bool, error) {
	node := g.OperatorMut(id)
	if node.Physical == r.option {
		return false, nil
	}
	node.Physical = r.option
	return true, nil
}

// scanImplementation leaves a Scan's PhysicalOption alone if
// PushPredicateIntoScan already pinned IndexScan; otherwise it defaults
// to SeqScan (spec §4.5: "Scan -> SeqScan|IndexScan").
type scanImplementation struct{}

func (scanImplementation) Pattern() Pattern { return Op(plan.OpScan) }

func (scanImplementation) Apply(ctx *sql.Context, g *HepGraph, id HepNodeId) (bool, error) {
	node := g.OperatorMut(id)
	if node.Physical != plan.PhysicalNone {
		return false, nil
	}
	node.Physical = plan.PhysicalSeqScan
	return true, nil
}

// aggregateImplementation picks HashAgg when the Aggregate groups by
// at least one expression, else SimpleAgg (a single implicit group) —
// spec §4.5: "Aggregate -> HashAgg|SimpleAgg".
type aggregateImplementation struct{}

func (aggregateImplementation) Pattern() Pattern { return Op(plan.OpAggregate) }

func (aggregateImplementation) Apply(ctx *sql.Context, g *HepGraph, id HepNodeId) (bool, error) {
	node := g.OperatorMut(id)
	params := node.Params.(plan.AggregateParams)
	option := plan.PhysicalSimpleAgg
	if len(params.GroupExprs) > 0 {
		option = plan.PhysicalHashAgg
	}
	if node.Physical == option {
		return false, nil
	}
	node.Physical = option
	return true, nil
}

// DefaultImplementationRules is the full implementation-rule batch
// (spec §4.5): every logical operator ends the batch with a pinned
// PhysicalOption.
func DefaultImplementationRules() []NormalizationRule {
	rules := []ImplementationRule{
		scanImplementation{},
		singleMapping(Op(plan.OpJoin), plan.PhysicalHashJoin),
		aggregateImplementation{},
		singleMapping(Op(plan.OpInsert), plan.PhysicalSingleton),
		singleMapping(Op(plan.OpUpdate), plan.PhysicalSingleton),
		singleMapping(Op(plan.OpDelete), plan.PhysicalSingleton),
		singleMapping(Op(plan.OpAnalyze), plan.PhysicalSingleton),
		singleMapping(Op(plan.OpTruncate), plan.PhysicalSingleton),
		singleMapping(Op(plan.OpCopyFromFile), plan.PhysicalSingleton),
		singleMapping(Op(plan.OpLimit), plan.PhysicalSingleton),
	}
	out := make([]NormalizationRule, len(rules))
	for i, r := range rules {
		out[i] = implAsNormalization{r}
	}
	return out
}

// implAsNormalization adapts an ImplementationRule to the
// NormalizationRule interface (identical method shape) so both rule
// kinds can share one batch driver.
type implAsNormalization struct{ ImplementationRule }
