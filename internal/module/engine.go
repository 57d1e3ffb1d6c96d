// Package module identifies enhancer -> TF -> target-gene regulatory modules
// from expression correlation and TFBS evidence.
package module

import (
	"slices"

	"go.uber.org/zap"

	"github.com/inodb/vibe-enhancer/internal/genome"
	"github.com/inodb/vibe-enhancer/internal/stats"
)

// ExpressionLookup returns the expression vector for an element.
type ExpressionLookup interface {
	Row(id string) ([]float64, bool)
}

// BindingLookup answers which TFs bind an element.
type BindingLookup interface {
	TFs(element string) []string
	Has(element, tf string) bool
}

// ProximityLookup returns candidate target genes near an enhancer.
type ProximityLookup interface {
	NearGenes(e genome.Enhancer) []string
}

// Module is one enhancer, one regulating TF and the genes it is inferred to
// regulate through that enhancer.
type Module struct {
	Enhancer string
	TF       string
	Targets  []string // sorted
}

// Result is the outcome of scanning a single enhancer.
type Result struct {
	Enhancer      string
	HasTFBS       bool
	HasExpression bool
	RegulatingTFs []string
	Modules       []Module
	Tests         int // correlation tests run
}

// Engine runs the module identification scan. All lookups are read-only, so
// one Engine may be shared by many goroutines.
type Engine struct {
	expr         ExpressionLookup
	enhancerTFBS BindingLookup
	geneTFBS     BindingLookup
	near         ProximityLookup
	gate         stats.Gate
	workers      int
	logger       *zap.Logger
}

// NewEngine creates an engine over the given inputs and significance gate.
func NewEngine(expr ExpressionLookup, enhancerTFBS, geneTFBS BindingLookup, near ProximityLookup, gate stats.Gate) *Engine {
	return &Engine{
		expr:         expr,
		enhancerTFBS: enhancerTFBS,
		geneTFBS:     geneTFBS,
		near:         near,
		gate:         gate,
		logger:       zap.NewNop(),
	}
}

// SetLogger sets the logger for debug and summary messages.
func (e *Engine) SetLogger(l *zap.Logger) {
	e.logger = l
}

// SetWorkers sets the number of scan workers; 0 means runtime.NumCPU().
func (e *Engine) SetWorkers(n int) {
	e.workers = n
}

// Identify scans one enhancer. It finds the TFs that bind the enhancer and
// whose expression passes the gate against it, then for each nearby gene
// accepts a TF -> gene edge when the gene does not carry that TF's binding site
// itself and both the enhancer-gene and TF-gene correlations pass the gate.
// Missing expression rows are treated as no evidence.
func (e *Engine) Identify(enh genome.Enhancer) Result {
	res := Result{Enhancer: enh.Locus}

	tfs := e.enhancerTFBS.TFs(enh.Locus)
	if len(tfs) == 0 {
		return res
	}
	res.HasTFBS = true

	enhExp, ok := e.expr.Row(enh.Locus)
	if !ok {
		e.logger.Debug("enhancer has no expression row", zap.String("enhancer", enh.Locus))
		return res
	}
	res.HasExpression = true

	tfExp := make(map[string][]float64, len(tfs))
	for _, tf := range tfs {
		v, ok := e.expr.Row(tf)
		if !ok {
			continue
		}
		rho, p := stats.Spearman(enhExp, v)
		res.Tests++
		if e.gate.Pass(rho, p) {
			res.RegulatingTFs = append(res.RegulatingTFs, tf)
			tfExp[tf] = v
		}
	}
	if len(res.RegulatingTFs) == 0 {
		return res
	}

	targets := make(map[string][]string, len(res.RegulatingTFs))
	for _, gene := range e.near.NearGenes(enh) {
		geneExp, ok := e.expr.Row(gene)
		if !ok {
			continue
		}

		// corr(enhancer, gene) does not depend on the TF; test it at most once.
		tested, enhGenePass := false, false
		for _, tf := range res.RegulatingTFs {
			if e.geneTFBS.Has(gene, tf) {
				continue
			}
			if !tested {
				rho, p := stats.Spearman(enhExp, geneExp)
				res.Tests++
				tested, enhGenePass = true, e.gate.Pass(rho, p)
			}
			if !enhGenePass {
				break
			}

			rho, p := stats.Spearman(tfExp[tf], geneExp)
			res.Tests++
			if e.gate.Pass(rho, p) {
				targets[tf] = append(targets[tf], gene)
			}
		}
	}

	for _, tf := range res.RegulatingTFs {
		if genes := targets[tf]; len(genes) > 0 {
			slices.Sort(genes)
			res.Modules = append(res.Modules, Module{Enhancer: enh.Locus, TF: tf, Targets: genes})
		}
	}

	return res
}
