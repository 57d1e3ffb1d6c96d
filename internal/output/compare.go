package output

import (
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	"github.com/inodb/vibe-enhancer/internal/module"
)

// Category classifies the comparison result for one (enhancer, TF) pair.
type Category string

const (
	CatMatch          Category = "match"
	CatTargetsGained  Category = "targets_gained"  // B is a strict superset of A
	CatTargetsLost    Category = "targets_lost"    // B is a strict subset of A
	CatTargetsChanged Category = "targets_changed" // neither contains the other
	CatOnlyA          Category = "only_a"
	CatOnlyB          Category = "only_b"
)

// Comparison is one (enhancer, TF) pair present in at least one report.
type Comparison struct {
	Enhancer string
	TF       string
	A, B     []string // sorted targets; nil when absent
	Category Category
}

// Compare pairs up the modules of two reports by (enhancer, TF). Results are
// sorted by enhancer then TF.
func Compare(a, b []module.Module) []Comparison {
	type key struct{ enhancer, tf string }
	byKey := make(map[key]*Comparison)
	get := func(m module.Module) *Comparison {
		k := key{m.Enhancer, m.TF}
		c, ok := byKey[k]
		if !ok {
			c = &Comparison{Enhancer: m.Enhancer, TF: m.TF}
			byKey[k] = c
		}
		return c
	}
	for _, m := range a {
		c := get(m)
		c.A = mergeTargets(c.A, m.Targets)
	}
	for _, m := range b {
		c := get(m)
		c.B = mergeTargets(c.B, m.Targets)
	}

	out := make([]Comparison, 0, len(byKey))
	for _, c := range byKey {
		c.Category = categorize(c.A, c.B)
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Enhancer != out[j].Enhancer {
			return out[i].Enhancer < out[j].Enhancer
		}
		return out[i].TF < out[j].TF
	})
	return out
}

// mergeTargets returns the sorted union of dst and src.
func mergeTargets(dst, src []string) []string {
	out := append(slices.Clone(dst), src...)
	slices.Sort(out)
	return slices.Compact(out)
}

func categorize(a, b []string) Category {
	switch {
	case a == nil:
		return CatOnlyB
	case b == nil:
		return CatOnlyA
	case slices.Equal(a, b):
		return CatMatch
	case containsAll(b, a):
		return CatTargetsGained
	case containsAll(a, b):
		return CatTargetsLost
	}
	return CatTargetsChanged
}

// containsAll reports whether sorted set contains every element of sorted sub.
func containsAll(set, sub []string) bool {
	for _, s := range sub {
		if _, found := slices.BinarySearch(set, s); !found {
			return false
		}
	}
	return true
}

// CompareWriter writes tab-delimited comparison output between two module
// reports, with category-based classification.
type CompareWriter struct {
	w       io.Writer
	counts  map[Category]int
	total   int
	showAll bool
}

// NewCompareWriter creates a new comparison output writer. Matching pairs are
// only written when showAll is set.
func NewCompareWriter(w io.Writer, showAll bool) *CompareWriter {
	return &CompareWriter{
		w:       w,
		counts:  make(map[Category]int),
		showAll: showAll,
	}
}

// WriteHeader writes the comparison output header.
func (c *CompareWriter) WriteHeader() error {
	_, err := fmt.Fprintln(c.w, "Enhancer\tRegulating TF\tA_targets\tB_targets\tCategory")
	return err
}

// WriteComparison records one comparison and writes it unless it is a match
// and showAll is off.
func (c *CompareWriter) WriteComparison(cmp Comparison) error {
	c.total++
	c.counts[cmp.Category]++

	if cmp.Category == CatMatch && !c.showAll {
		return nil
	}
	_, err := fmt.Fprintln(c.w, strings.Join([]string{
		cmp.Enhancer,
		cmp.TF,
		joinOrDash(cmp.A),
		joinOrDash(cmp.B),
		string(cmp.Category),
	}, "\t"))
	return err
}

// Flush is a no-op (kept for interface compatibility).
func (c *CompareWriter) Flush() error {
	return nil
}

// Total returns the number of (enhancer, TF) pairs compared.
func (c *CompareWriter) Total() int {
	return c.total
}

// Counts returns the category counts.
func (c *CompareWriter) Counts() map[Category]int {
	return c.counts
}

// WriteSummary writes category counts, largest first.
func (c *CompareWriter) WriteSummary(w io.Writer) {
	fmt.Fprintf(w, "\nComparison Summary (%d modules):\n", c.total)

	type catCount struct {
		cat   Category
		count int
	}
	var sorted []catCount
	for cat, count := range c.counts {
		sorted = append(sorted, catCount{cat, count})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].count != sorted[j].count {
			return sorted[i].count > sorted[j].count
		}
		return sorted[i].cat < sorted[j].cat
	})

	for _, cc := range sorted {
		fmt.Fprintf(w, "    %-20s%d\n", cc.cat, cc.count)
	}
}

func joinOrDash(genes []string) string {
	if len(genes) == 0 {
		return "-"
	}
	return strings.Join(genes, TargetSep)
}
