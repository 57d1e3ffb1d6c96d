package genome

import "sort"

// IntervalTree provides O(log n + k) window queries using a sorted-slice
// approach. Genes are loaded once and never modified after build.
type IntervalTree struct {
	intervals []interval
	maxEnd    []int64 // maxEnd[i] = max(end) for intervals[:i+1]
}

type interval struct {
	start int64
	end   int64
	gene  *Gene
}

// BuildIntervalTree creates an interval tree over the regulatory windows of
// the given genes.
func BuildIntervalTree(genes []*Gene) *IntervalTree {
	if len(genes) == 0 {
		return &IntervalTree{}
	}

	intervals := make([]interval, len(genes))
	for i, g := range genes {
		start, end := g.Window()
		intervals[i] = interval{start: start, end: end, gene: g}
	}

	sort.SliceStable(intervals, func(i, j int) bool {
		return intervals[i].start < intervals[j].start
	})

	// Prefix-max array: windows are not sorted by end, so a scan walking
	// left from the search boundary may stop only once no earlier window
	// can still reach pos.
	maxEnd := make([]int64, len(intervals))
	maxEnd[0] = intervals[0].end
	for i := 1; i < len(intervals); i++ {
		maxEnd[i] = max(maxEnd[i-1], intervals[i].end)
	}

	return &IntervalTree{intervals: intervals, maxEnd: maxEnd}
}

// Len returns the number of windows in the tree.
func (t *IntervalTree) Len() int {
	return len(t.intervals)
}

// FindOverlaps returns all genes whose window strictly contains pos,
// i.e. windowStart < pos < windowEnd.
func (t *IntervalTree) FindOverlaps(pos int64) []*Gene {
	if len(t.intervals) == 0 {
		return nil
	}

	// hi is the first index with start >= pos; candidates are [0, hi).
	hi := sort.Search(len(t.intervals), func(i int) bool {
		return t.intervals[i].start >= pos
	})

	var result []*Gene
	for i := hi - 1; i >= 0; i-- {
		if t.maxEnd[i] <= pos {
			break
		}
		if g := t.intervals[i].gene; g.InWindow(pos) {
			result = append(result, g)
		}
	}

	return result
}
