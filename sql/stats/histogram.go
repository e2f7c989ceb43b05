// Package stats implements talon's ANALYZE statistics pipeline (spec
// §4.7, C9): an equi-depth histogram plus a count-distinct sketch per
// indexed column, built incrementally as Analyze streams a table's
// rows, then persisted and reloaded for the optimizer's index-
// selection rules. Grounded on original_source's
// optimizer::core::histogram::HistogramBuilder and column_meta::
// ColumnMeta, translated from a synchronous builder/sketch pair.
package stats

import (
	"sort"

	"github.com/talondb/talon/sql/types"
)

// Bucket is one equi-depth histogram bucket: an inclusive [Lo, Hi]
// range, its row count, and an approximate distinct-value count within
// the bucket (spec §4.7).
type Bucket struct {
	Lo             types.Value
	Hi             types.Value
	RowCount       int64
	DistinctCount  int64
}

// Histogram is the built statistic for one column: equi-depth buckets
// plus the count of input rows that were null.
type Histogram struct {
	Datatype   types.LogicalType
	Buckets    []Bucket
	NullCount  int64
	TotalCount int64 // non-null rows folded into Buckets
}

// HistogramBuilder accumulates values for one column across an
// Analyze scan; Build finalizes it into a Histogram plus the merged
// HyperLogLog sketch, sorting the reservoir once at build time
// (grounded on HistogramBuilder::new/append/build in original_source,
// which likewise defers sorting to build()).
type HistogramBuilder struct {
	datatype types.LogicalType
	values   []types.Value
	nullCnt  int64
	sketch   *Sketch
}

// NewHistogramBuilder initializes a builder for one column's declared
// datatype. The reservoir grows unbounded in this core (spec §5:
// "bounded only by process memory"); a production hardening would cap
// and reservoir-sample it, which is out of scope here.
func NewHistogramBuilder(datatype types.LogicalType) *HistogramBuilder {
	return &HistogramBuilder{datatype: datatype, sketch: NewSketch()}
}

// Append folds one value (null or not) into the builder (spec §4.7:
// "Accepts null ... and non-null values").
func (b *HistogramBuilder) Append(v types.Value) error {
	if v.IsNull() {
		b.nullCnt++
		return nil
	}
	b.values = append(b.values, v)
	b.sketch.Insert(v)
	return nil
}

// Build sorts the collected values and partitions them into at most
// numBuckets equi-depth buckets, returning the histogram and the
// count-distinct sketch (spec §4.7). Each bucket's DistinctCount is a
// cheap per-bucket approximation (count of value changes within the
// bucket's sorted slice), not an independent sketch per bucket — the
// sketch's own Estimate is the trustworthy table-level statistic.
func (b *HistogramBuilder) Build(numBuckets int) (*Histogram, *Sketch, error) {
	sorted := make([]types.Value, len(b.values))
	copy(sorted, b.values)
	sort.Slice(sorted, func(i, j int) bool {
		c, _ := sorted[i].Compare(sorted[j])
		return c < 0
	})

	h := &Histogram{
		Datatype:   b.datatype,
		NullCount:  b.nullCnt,
		TotalCount: int64(len(sorted)),
	}
	if len(sorted) == 0 || numBuckets <= 0 {
		return h, b.sketch, nil
	}

	n := len(sorted)
	if numBuckets > n {
		numBuckets = n
	}
	depth := n / numBuckets
	if depth == 0 {
		depth = 1
	}

	start := 0
	for start < n {
		end := start + depth
		if end > n || len(h.Buckets) == numBuckets-1 {
			end = n
		}
		slice := sorted[start:end]
		distinct := int64(1)
		for i := 1; i < len(slice); i++ {
			if !slice[i].Equal(slice[i-1]) {
				distinct++
			}
		}
		h.Buckets = append(h.Buckets, Bucket{
			Lo:            slice[0],
			Hi:            slice[len(slice)-1],
			RowCount:      int64(len(slice)),
			DistinctCount: distinct,
		})
		start = end
	}
	return h, b.sketch, nil
}

// RangeRowEstimate returns a rough row-count estimate for values
// falling within [lo, hi], summing every bucket whose range overlaps;
// used by the optimizer's index selection (PushPredicateIntoScan, via
// Estimator.EstimateRange).
// Overlap at a bucket's own boundary counts the full bucket — a
// deliberate over-estimate favoring the safer (more inclusive) side,
// consistent with this being a heuristic, not a cost-based, optimizer
// (spec §1 Non-goals).
func (h *Histogram) RangeRowEstimate(lo, hi *types.Value) int64 {
	var total int64
	for _, bucket := range h.Buckets {
		if lo != nil {
			if c, err := bucket.Hi.Compare(*lo); err == nil && c < 0 {
				continue
			}
		}
		if hi != nil {
			if c, err := bucket.Lo.Compare(*hi); err == nil && c > 0 {
				continue
			}
		}
		total += bucket.RowCount
	}
	return total
}
