package hep

import (
	"github.com/talondb/talon/sql"
	"github.com/talondb/talon/sql/plan"
)

// DefaultBatches is the optimizer's standard batch sequence (spec
// §4.5): normalization rules run to a fixed point, then the
// implementation batch pins a PhysicalOption everywhere exactly once.
func DefaultBatches() []Batch {
	return []Batch{
		{
			Rules: []NormalizationRule{
				SimplifyFilter{},
				CombineFilters{},
				PushPredicateThroughJoin{},
				PushPredicateIntoScan{},
				PushProjectThroughChild{},
				ColumnPruning{},
				LimitPushDown{},
				EliminateRedundantProject{},
			},
			Strategy: HepBatchStrategy{Kind: FixPointTopDown, MaxIters: 8},
		},
		{
			Rules:    DefaultImplementationRules(),
			Strategy: HepBatchStrategy{Kind: OnceTopDown},
		},
	}
}

// Optimize converts root to a HepGraph, runs the default batch
// sequence, and converts back to a canonical LogicalPlan (spec §4.5:
// "conversion plan<->graph is total and loss-free").
func Optimize(ctx *sql.Context, root *plan.LogicalPlan) (*plan.LogicalPlan, error) {
	g := NewHepGraph(root)
	if err := RunBatches(ctx, g, DefaultBatches()); err != nil {
		return nil, err
	}
	return g.ToPlan(), nil
}
