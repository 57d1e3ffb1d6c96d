package genome

import "sort"

// ProximityIndex answers which genes have a regulatory window containing an
// enhancer's start coordinate. It is read-only after construction and safe
// for concurrent queries.
type ProximityIndex struct {
	trees map[string]*IntervalTree
	genes int
}

// NewProximityIndex groups gene windows by chromosome.
func NewProximityIndex(genes []*Gene) *ProximityIndex {
	byChrom := make(map[string][]*Gene)
	for _, g := range genes {
		byChrom[g.Chrom] = append(byChrom[g.Chrom], g)
	}

	trees := make(map[string]*IntervalTree, len(byChrom))
	for chrom, gs := range byChrom {
		trees[chrom] = BuildIntervalTree(gs)
	}

	return &ProximityIndex{trees: trees, genes: len(genes)}
}

// GeneCount returns the number of indexed genes.
func (p *ProximityIndex) GeneCount() int {
	return p.genes
}

// Chromosomes returns the indexed chromosomes in sorted order.
func (p *ProximityIndex) Chromosomes() []string {
	chroms := make([]string, 0, len(p.trees))
	for c := range p.trees {
		chroms = append(chroms, c)
	}
	sort.Strings(chroms)
	return chroms
}

// NearGenes returns the sorted, de-duplicated symbols of genes whose window
// strictly contains e.Start. Enhancers on unindexed chromosomes get nil.
func (p *ProximityIndex) NearGenes(e Enhancer) []string {
	tree, ok := p.trees[normalizeChrom(e.Chrom)]
	if !ok {
		return nil
	}

	hits := tree.FindOverlaps(e.Start)
	if len(hits) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(hits))
	names := make([]string, 0, len(hits))
	for _, g := range hits {
		if !seen[g.Name] {
			seen[g.Name] = true
			names = append(names, g.Name)
		}
	}
	sort.Strings(names)
	return names
}

// Map returns the candidate genes for each enhancer keyed by locus.
// Enhancers without any candidate are absent from the result.
func (p *ProximityIndex) Map(enhancers []Enhancer) map[string][]string {
	near := make(map[string][]string)
	for _, e := range enhancers {
		if genes := p.NearGenes(e); len(genes) > 0 {
			near[e.Locus] = genes
		}
	}
	return near
}
