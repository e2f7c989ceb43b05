package rowexec

import (
	"fmt"
	"io"

	"github.com/cespare/xxhash"
	"github.com/mitchellh/hashstructure"

	"github.com/talondb/talon/sql"
	"github.com/talondb/talon/sql/expression"
	"github.com/talondb/talon/sql/plan"
	"github.com/talondb/talon/sql/types"
)

// aggAccumulator folds one group's rows into a single aggregate
// result. Eval on the AggCall itself only reads the current row (spec
// §4.6); accumulation across rows is this executor's job.
type aggAccumulator struct {
	kind       expression.AggKind
	distinct   bool
	returnType types.LogicalType
	count      int64
	sum        float64
	min, max   types.Value
	seen       map[string]bool
}

func newAggAccumulator(call *expression.AggCall) *aggAccumulator {
	return &aggAccumulator{kind: call.Kind, distinct: call.Distinct, returnType: call.ReturnType()}
}

func (a *aggAccumulator) add(v types.Value) error {
	if v.IsNull() {
		return nil
	}
	if a.distinct {
		if a.seen == nil {
			a.seen = map[string]bool{}
		}
		key := v.String()
		if a.seen[key] {
			return nil
		}
		a.seen[key] = true
	}
	a.count++
	switch a.kind {
	case expression.AggSum, expression.AggAvg:
		f, err := v.AsFloat64()
		if err != nil {
			return err
		}
		a.sum += f
	case expression.AggMin:
		if a.min.IsNull() {
			a.min = v
			break
		}
		cmp, err := v.Compare(a.min)
		if err != nil {
			return err
		}
		if cmp < 0 {
			a.min = v
		}
	case expression.AggMax:
		if a.max.IsNull() {
			a.max = v
			break
		}
		cmp, err := v.Compare(a.max)
		if err != nil {
			return err
		}
		if cmp > 0 {
			a.max = v
		}
	}
	return nil
}

func (a *aggAccumulator) result() (types.Value, error) {
	switch a.kind {
	case expression.AggCount:
		return types.NewInt64(a.count), nil
	case expression.AggSum:
		if a.count == 0 {
			return types.Null(a.returnType), nil
		}
		return types.NewFloat64(a.sum).CoerceTo(a.returnType)
	case expression.AggAvg:
		if a.count == 0 {
			return types.Null(a.returnType), nil
		}
		return types.NewFloat64(a.sum / float64(a.count)).CoerceTo(a.returnType)
	case expression.AggMin:
		if a.count == 0 {
			return types.Null(a.returnType), nil
		}
		return a.min, nil
	default: // AggMax
		if a.count == 0 {
			return types.Null(a.returnType), nil
		}
		return a.max, nil
	}
}

type aggGroup struct {
	keyVals []types.Value
	accs    []*aggAccumulator
}

// keyElem wraps one group-by column's value for hashstructure hashing
// (spec §4.6: HashAgg): nulls hash identically to each other and
// distinctly from every non-null value, without requiring Value.Raw
// to handle the null case itself.
type keyElem struct {
	Null bool
	Val  interface{}
}

// groupBucketEntry resolves a hashstructure bucket collision: two
// distinct key tuples can share a bucket hash, so each bucket keeps
// every group that landed there, disambiguated first by a cheap
// xxhash digest of the printed key and, on a digest collision too, by
// a full Value.Equal walk — the same two-hash-family build/probe
// technique buildJoin's evalEquiKey uses for HashJoin.
type groupBucketEntry struct {
	digest uint64
	group  *aggGroup
}

func sameGroupKey(a, b []types.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// buildAggregate implements HashAgg/SimpleAgg (spec §4.6): groups
// input by the evaluated GROUP BY expressions (null is its own
// distinct group) and folds each AggCall per group; with no GROUP BY
// exprs and no input rows, a single empty-group row is still emitted
// (SQL aggregate-over-empty-set semantics).
func buildAggregate(ctx *sql.Context, p *plan.LogicalPlan, txn sql.Transaction) (RowIter, error) {
	child, err := buildChild(ctx, p, txn)
	if err != nil {
		return nil, err
	}
	params := p.Params.(plan.AggregateParams)

	buckets := map[uint64][]groupBucketEntry{}
	var order []*aggGroup

	newGroup := func(keyVals []types.Value) *aggGroup {
		g := &aggGroup{keyVals: keyVals, accs: make([]*aggAccumulator, len(params.AggExprs))}
		for i, call := range params.AggExprs {
			g.accs[i] = newAggAccumulator(call)
		}
		return g
	}

	for {
		tuple, err := child.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		keyVals := make([]types.Value, len(params.GroupExprs))
		raw := make([]keyElem, len(params.GroupExprs))
		printed := ""
		for i, e := range params.GroupExprs {
			v, err := e.Eval(ctx, tuple)
			if err != nil {
				return nil, err
			}
			keyVals[i] = v
			if v.IsNull() {
				raw[i] = keyElem{Null: true}
				printed += "\x01\x00"
			} else {
				raw[i] = keyElem{Val: v.Raw()}
				printed += fmt.Sprintf("%v\x00", v.Raw())
			}
		}
		bucketHash, err := hashstructure.Hash(raw, nil)
		if err != nil {
			return nil, err
		}
		digest := xxhash.Sum64([]byte(printed))

		var g *aggGroup
		for _, entry := range buckets[bucketHash] {
			if entry.digest == digest && sameGroupKey(entry.group.keyVals, keyVals) {
				g = entry.group
				break
			}
		}
		if g == nil {
			g = newGroup(keyVals)
			buckets[bucketHash] = append(buckets[bucketHash], groupBucketEntry{digest: digest, group: g})
			order = append(order, g)
		}
		for i, call := range params.AggExprs {
			v, err := call.Eval(ctx, tuple)
			if err != nil {
				return nil, err
			}
			if err := g.accs[i].add(v); err != nil {
				return nil, err
			}
		}
	}
	if err := child.Close(ctx); err != nil {
		return nil, err
	}

	if len(order) == 0 && len(params.GroupExprs) == 0 {
		order = append(order, newGroup(nil))
	}

	out := make([]sql.Tuple, 0, len(order))
	for _, g := range order {
		vals := make(sql.Row, 0, len(g.keyVals)+len(g.accs))
		vals = append(vals, g.keyVals...)
		for _, acc := range g.accs {
			v, err := acc.result()
			if err != nil {
				return nil, err
			}
			vals = append(vals, v)
		}
		out = append(out, sql.Tuple{SchemaRef: p.Schema, Values: vals})
	}
	return newSliceIter(out), nil
}
