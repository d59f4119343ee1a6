package services

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/dataset"
	"sales-dashboard/internal/models"
)

// DefaultAgeBucket is the histogram bucket width used when none is given.
const DefaultAgeBucket = 10

// groups holds per-key accumulators in first-encountered order.
type groups struct {
	order  []string
	sums   map[string]decimal.Decimal
	counts map[string]int
}

func groupBy(t *dataset.Table, column, metric string) groups {
	dataset.MustDimension(column)
	if metric != "" {
		dataset.MustMeasure(metric)
	}

	g := groups{
		sums:   make(map[string]decimal.Decimal),
		counts: make(map[string]int),
	}
	for i := 0; i < t.Len(); i++ {
		key := t.Dimension(i, column)
		if _, ok := g.counts[key]; !ok {
			g.order = append(g.order, key)
		}
		g.counts[key]++
		if metric != "" {
			g.sums[key] = g.sums[key].Add(t.Measure(i, metric))
		}
	}
	return g
}

// SumBy sums metric per distinct value of column, keys ascending.
func SumBy(t *dataset.Table, column, metric string) models.Series {
	g := groupBy(t, column, metric)
	keys := slices.Clone(g.order)
	slices.SortFunc(keys, compareKeys)

	out := make(models.Series, 0, len(keys))
	for _, k := range keys {
		out = append(out, models.Point{Label: k, Value: g.sums[k].InexactFloat64()})
	}
	return out
}

// MeanBy averages metric per distinct value of column, keys ascending.
func MeanBy(t *dataset.Table, column, metric string) models.Series {
	g := groupBy(t, column, metric)
	keys := slices.Clone(g.order)
	slices.SortFunc(keys, compareKeys)

	out := make(models.Series, 0, len(keys))
	for _, k := range keys {
		mean := g.sums[k].Div(decimal.NewFromInt(int64(g.counts[k])))
		out = append(out, models.Point{Label: k, Value: mean.InexactFloat64()})
	}
	return out
}

// TopN returns the n groups of column with the largest summed metric,
// largest first. Equal sums keep the order in which their keys first
// appear in t. n <= 0 returns every group.
func TopN(t *dataset.Table, column, metric string, n int) models.Series {
	g := groupBy(t, column, metric)
	keys := slices.Clone(g.order)
	slices.SortStableFunc(keys, func(a, b string) int {
		return g.sums[b].Cmp(g.sums[a])
	})
	if n > 0 && len(keys) > n {
		keys = keys[:n]
	}

	out := make(models.Series, 0, len(keys))
	for _, k := range keys {
		out = append(out, models.Point{Label: k, Value: g.sums[k].InexactFloat64()})
	}
	return out
}

// ValueCounts counts rows per distinct value of column, most frequent first,
// ties in first-encountered order.
func ValueCounts(t *dataset.Table, column string) models.Series {
	g := groupBy(t, column, "")
	keys := slices.Clone(g.order)
	slices.SortStableFunc(keys, func(a, b string) int {
		return cmp.Compare(g.counts[b], g.counts[a])
	})

	out := make(models.Series, 0, len(keys))
	for _, k := range keys {
		out = append(out, models.Point{Label: k, Value: float64(g.counts[k])})
	}
	return out
}

// CountDistinct counts the distinct values of column.
func CountDistinct(t *dataset.Table, column string) int {
	dataset.MustDimension(column)
	seen := make(map[string]struct{})
	for i := 0; i < t.Len(); i++ {
		seen[t.Dimension(i, column)] = struct{}{}
	}
	return len(seen)
}

// Sum totals metric over every row.
func Sum(t *dataset.Table, metric string) float64 {
	return sumDecimal(t, metric).InexactFloat64()
}

func sumDecimal(t *dataset.Table, metric string) decimal.Decimal {
	dataset.MustMeasure(metric)
	total := decimal.Zero
	for i := 0; i < t.Len(); i++ {
		total = total.Add(t.Measure(i, metric))
	}
	return total
}

// AgeHistogram counts rows per age bucket of the given width, labelled
// "lo-hi" and ordered by lower bound.
func AgeHistogram(t *dataset.Table, width int) models.Series {
	if width <= 0 {
		width = DefaultAgeBucket
	}

	counts := make(map[int]int)
	var lows []int
	for i := 0; i < t.Len(); i++ {
		lo := t.Row(i).Age / width * width
		if _, ok := counts[lo]; !ok {
			lows = append(lows, lo)
		}
		counts[lo]++
	}
	slices.Sort(lows)

	out := make(models.Series, 0, len(lows))
	for _, lo := range lows {
		out = append(out, models.Point{
			Label: fmt.Sprintf("%d-%d", lo, lo+width-1),
			Value: float64(counts[lo]),
		})
	}
	return out
}

// compareKeys orders numeric keys numerically and everything else as text.
func compareKeys(a, b string) int {
	x, errA := strconv.Atoi(a)
	y, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return cmp.Compare(x, y)
	}
	return cmp.Compare(a, b)
}
