package genome

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// geneAt returns a gene whose window is [start-Flank, start+Flank].
func geneAt(name string, start int64) *Gene {
	return &Gene{Name: name, Chrom: "1", Start: start, Biotype: BiotypeProteinCoding}
}

func names(genes []*Gene) map[string]bool {
	out := map[string]bool{}
	for _, g := range genes {
		out[g.Name] = true
	}
	return out
}

func TestBuildIntervalTree_Empty(t *testing.T) {
	tree := BuildIntervalTree(nil)
	assert.Empty(t, tree.FindOverlaps(100))
	assert.Equal(t, 0, tree.Len())
}

func TestIntervalTree_StrictBoundaries(t *testing.T) {
	g := geneAt("GENE1", 2_000_000) // window (1_000_000, 3_000_000)
	tree := BuildIntervalTree([]*Gene{g})

	assert.Len(t, tree.FindOverlaps(2_000_000), 1)
	assert.Len(t, tree.FindOverlaps(1_000_001), 1, "just inside start")
	assert.Len(t, tree.FindOverlaps(2_999_999), 1, "just inside end")
	assert.Empty(t, tree.FindOverlaps(1_000_000), "window start excluded")
	assert.Empty(t, tree.FindOverlaps(3_000_000), "window end excluded")
	assert.Empty(t, tree.FindOverlaps(999_999))
	assert.Empty(t, tree.FindOverlaps(3_000_001))
}

func TestIntervalTree_Overlapping(t *testing.T) {
	genes := []*Gene{
		geneAt("A", 1_000_000), // (0, 2_000_000)
		geneAt("B", 1_500_000), // (500_000, 2_500_000)
		geneAt("C", 3_000_000), // (2_000_000, 4_000_000)
	}
	tree := BuildIntervalTree(genes)

	assert.Equal(t, map[string]bool{"A": true, "B": true}, names(tree.FindOverlaps(1_000_000)))
	assert.Equal(t, map[string]bool{"B": true}, names(tree.FindOverlaps(2_000_000)),
		"pos equal to A's end and C's start matches neither")
	assert.Equal(t, map[string]bool{"B": true, "C": true}, names(tree.FindOverlaps(2_100_000)))
	assert.Equal(t, map[string]bool{"C": true}, names(tree.FindOverlaps(3_900_000)))
}

func TestIntervalTree_LongEarlyInterval(t *testing.T) {
	// A wide interval sorted before a narrow one must still be found when
	// the narrow one ends before pos.
	tree := &IntervalTree{
		intervals: []interval{
			{start: 0, end: 1000, gene: &Gene{Name: "wide"}},
			{start: 10, end: 20, gene: &Gene{Name: "narrow"}},
		},
		maxEnd: []int64{1000, 1000},
	}

	assert.Equal(t, map[string]bool{"wide": true}, names(tree.FindOverlaps(500)))
}

func TestIntervalTree_MatchesLinearScan(t *testing.T) {
	genes := []*Gene{
		geneAt("A", 1_000_000),
		geneAt("B", 1_200_000),
		geneAt("C", 1_200_000),
		geneAt("D", 4_000_000),
		geneAt("E", 9_000_000),
		geneAt("F", 500_000),
	}
	tree := BuildIntervalTree(genes)

	for pos := int64(-1_000_000); pos <= 11_000_000; pos += 100_000 {
		linear := map[string]bool{}
		for _, g := range genes {
			if g.InWindow(pos) {
				linear[g.Name] = true
			}
		}
		assert.Equal(t, linear, names(tree.FindOverlaps(pos)), "pos=%d", pos)
	}
}
