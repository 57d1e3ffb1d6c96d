package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inodb/vibe-enhancer/internal/expression"
	"github.com/inodb/vibe-enhancer/internal/genome"
	"github.com/inodb/vibe-enhancer/internal/module"
	"github.com/inodb/vibe-enhancer/internal/output"
	"github.com/inodb/vibe-enhancer/internal/stats"
	"github.com/inodb/vibe-enhancer/internal/store"
	"github.com/inodb/vibe-enhancer/internal/tfbs"
)

// Config keys shared by flags, environment and the config file.
const (
	keyTFCutoff  = "tfbs.cutoff"
	keyCorr      = "correlation.cutoff"
	keyPValue    = "correlation.pvalue"
	keyWorkers   = "workers"
	keyDB        = "db"
	keyGeneCache = "gene_cache"
)

// flagAliases maps the legacy identifyModule long option names
// to their flag names.
var flagAliases = map[string]string{
	"eExpCsv":    "enhancer-exp",
	"gExpCsv":    "gene-exp",
	"eTFBS_file": "enhancer-tfbs",
	"gTFBS_file": "gene-tfbs",
	"eFile":      "enhancers",
	"gtfFile":    "gtf",
	"tfcutoff":   "tf-cutoff",
	"rcutoff":    "r-cutoff",
	"pcutoff":    "p-cutoff",
	"outFile":    "output",
}

func normalizeAliases(f *pflag.FlagSet, name string) pflag.NormalizedName {
	if canonical, ok := flagAliases[name]; ok {
		name = canonical
	}
	return pflag.NormalizedName(name)
}

type identifyOptions struct {
	enhancerExp  string
	geneExp      string
	enhancerTFBS string
	geneTFBS     string
	enhancers    string
	gtf          string
	output       string
	force        bool
	summary      bool
}

// inputs returns the input paths in a fixed order, paired with their flag names.
func (o *identifyOptions) inputs() [][2]string {
	return [][2]string{
		{"enhancer-exp", o.enhancerExp},
		{"gene-exp", o.geneExp},
		{"enhancer-tfbs", o.enhancerTFBS},
		{"gene-tfbs", o.geneTFBS},
		{"enhancers", o.enhancers},
		{"gtf", o.gtf},
	}
}

func newIdentifyCmd(a *app) *cobra.Command {
	opts := &identifyOptions{}

	cmd := &cobra.Command{
		Use:   "identify",
		Short: "Identify enhancer regulatory modules",
		Long: `Identify enhancer -> TF -> target gene modules.

A TF regulates an enhancer when it has a binding site on the enhancer above the
TFBS score cutoff and its expression correlates with the enhancer's. A gene
within 1 Mb of the enhancer is a target of that TF when the gene's own promoter
does not carry the TF's binding site and the gene's expression correlates with
both the enhancer and the TF. Correlations are Spearman; both |rho| and the
p-value cutoffs are strict.

Inputs may be plain, gzip or xz compressed. Parameters may also come from the
config file or VIBE_ENHANCER_* environment variables.`,
		Example: `  vibe-enhancer identify --enhancer-exp enh.csv --gene-exp genes.csv \
    --enhancer-tfbs enh_tfbs.tsv --gene-tfbs gene_tfbs.tsv \
    --enhancers enhancers.txt --gtf Homo_sapiens.GRCh38.gtf.gz \
    --tf-cutoff 400 --r-cutoff 0.5 --p-cutoff 0.05 -o modules.tsv`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, b := range []struct{ key, flag string }{
				{keyTFCutoff, "tf-cutoff"},
				{keyCorr, "r-cutoff"},
				{keyPValue, "p-cutoff"},
				{keyWorkers, "workers"},
				{keyDB, "db"},
				{keyGeneCache, "gene-cache"},
			} {
				if err := a.v.BindPFlag(b.key, cmd.Flags().Lookup(b.flag)); err != nil {
					return err
				}
			}
			return runIdentify(a, opts)
		},
	}

	f := cmd.Flags()
	f.SetNormalizeFunc(normalizeAliases)
	f.StringVar(&opts.enhancerExp, "enhancer-exp", "", "Enhancer expression matrix (CSV)")
	f.StringVar(&opts.geneExp, "gene-exp", "", "Gene expression matrix (CSV)")
	f.StringVar(&opts.enhancerTFBS, "enhancer-tfbs", "", "Enhancer TFBS table (TSV)")
	f.StringVar(&opts.geneTFBS, "gene-tfbs", "", "Gene TFBS table (TSV)")
	f.StringVar(&opts.enhancers, "enhancers", "", "Enhancers to analyze, one chrom:start-end per line")
	f.StringVar(&opts.gtf, "gtf", "", "Gene annotation GTF (Ensembl or GENCODE)")
	f.Int("tf-cutoff", 0, "TFBS score cutoff; scores must be strictly greater")
	f.Float64("r-cutoff", 0, "Correlation cutoff; |rho| must be strictly greater, in (0, 1]")
	f.Float64("p-cutoff", 0, "P-value cutoff; p must be strictly less, in (0, 1)")
	f.StringVarP(&opts.output, "output", "o", "", "Output file (default: stdout)")
	f.Int("workers", 0, "Scan workers (default: number of CPUs)")
	f.String("db", "", "DuckDB file caching results by input fingerprint and parameters")
	f.String("gene-cache", "", "Directory caching parsed GTF genes")
	f.BoolVar(&opts.force, "force", false, "Recompute even when --db holds a cached run")
	f.BoolVar(&opts.summary, "summary", false, "Print a run summary to stderr")

	return cmd
}

func runIdentify(a *app, opts *identifyOptions) (err error) {
	for _, in := range opts.inputs() {
		if in[1] == "" {
			return usageErrorf("--%s is required", in[0])
		}
	}
	for _, key := range []string{keyTFCutoff, keyCorr, keyPValue} {
		if !a.v.IsSet(key) {
			return usageErrorf("%s is required (flag, config or environment)", key)
		}
	}

	params := store.Params{
		TFCutoff: a.v.GetInt(keyTFCutoff),
		Corr:     a.v.GetFloat64(keyCorr),
		PValue:   a.v.GetFloat64(keyPValue),
	}
	gate := stats.Gate{Corr: params.Corr, PValue: params.PValue}
	if err := gate.Validate(); err != nil {
		return usageError{err}
	}

	logger := a.logger

	var (
		db  *store.Store
		key string
	)
	if path := a.v.GetString(keyDB); path != "" {
		var err error
		db, err = store.Open(path)
		if err != nil {
			return err
		}
		defer db.Close()

		fps := make([]store.FileFingerprint, 0, 6)
		for _, in := range opts.inputs() {
			fp, err := store.StatFile(in[1])
			if err != nil {
				return fmt.Errorf("fingerprint --%s: %w", in[0], err)
			}
			fps = append(fps, fp)
		}
		key = store.RunKey(fps, params)

		cached, err := db.HasRun(key)
		if err != nil {
			return err
		}
		if cached && !opts.force {
			mods, err := db.LoadRun(key)
			if err != nil {
				return err
			}
			logger.Info("reusing cached run", zap.String("run", key), zap.Int("modules", len(mods)))
			if opts.summary {
				logger.Warn("no module summary for a cached run; use --force to recompute", zap.String("run", key))
			}
			return writeReport(a, opts.output, mods)
		}
	}

	in, err := loadInputs(opts, params.TFCutoff, a.v.GetString(keyGeneCache), logger)
	if err != nil {
		return err
	}

	idx := genome.NewProximityIndex(in.genes)
	unexpressed := 0
	for _, e := range in.enhancers {
		if !in.matrix.Has(e.Locus) {
			unexpressed++
		}
	}
	logger.Info("built proximity index",
		zap.Int("genes", idx.GeneCount()),
		zap.Strings("chromosomes", idx.Chromosomes()),
		zap.Int("enhancers_near_genes", len(idx.Map(in.enhancers))),
		zap.Int("enhancers_without_expression", unexpressed))

	engine := module.NewEngine(in.matrix, in.enhancerTFBS, in.geneTFBS, idx, gate)
	engine.SetLogger(logger)
	engine.SetWorkers(a.v.GetInt(keyWorkers))

	out, closeOut, err := openOutput(a, opts.output)
	if err != nil {
		return err
	}
	defer closeOutput(closeOut, &err)

	tw := output.NewTabWriter(out)
	var writer module.ModuleWriter = tw
	var rec *recordingWriter
	if db != nil {
		rec = &recordingWriter{ModuleWriter: tw}
		writer = rec
	}

	if err := writer.WriteHeader(); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	st, err := engine.IdentifyAll(in.enhancers, writer)
	if err != nil {
		return fmt.Errorf("writing modules: %w", err)
	}

	if db != nil {
		if err := db.WriteRun(key, params, len(in.enhancers), rec.modules); err != nil {
			return fmt.Errorf("caching run: %w", err)
		}
		logger.Info("cached run", zap.String("run", key), zap.String("db", db.Path()))
	}

	if opts.summary {
		return output.WriteStats(a.stderr, st)
	}
	return nil
}

// inputs holds everything the engine reads.
type inputs struct {
	matrix       *expression.Matrix
	enhancerTFBS tfbs.Table
	geneTFBS     tfbs.Table
	enhancers    []genome.Enhancer
	genes        []*genome.Gene
}

// loadInputs parses all input files concurrently and merges the expression
// matrices.
func loadInputs(opts *identifyOptions, tfCutoff int, geneCache string, logger *zap.Logger) (*inputs, error) {
	var (
		in             inputs
		enhExp, genExp *expression.Matrix
		g              errgroup.Group
	)

	g.Go(func() (err error) {
		enhExp, err = expression.LoadCSV(opts.enhancerExp)
		return err
	})
	g.Go(func() (err error) {
		genExp, err = expression.LoadCSV(opts.geneExp)
		return err
	})
	g.Go(func() (err error) {
		in.enhancerTFBS, err = tfbs.Load(opts.enhancerTFBS, tfCutoff)
		return err
	})
	g.Go(func() (err error) {
		in.geneTFBS, err = tfbs.Load(opts.geneTFBS, tfCutoff)
		return err
	})
	g.Go(func() (err error) {
		in.enhancers, err = genome.LoadEnhancers(opts.enhancers)
		return err
	})
	g.Go(func() (err error) {
		in.genes, err = loadGenes(opts.gtf, geneCache, logger)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m, err := expression.Merge(enhExp, genExp)
	if err != nil {
		return nil, err
	}
	in.matrix = m

	logger.Info("loaded inputs",
		zap.Int("samples", len(m.Samples())),
		zap.Int("enhancer_rows", enhExp.Len()),
		zap.Int("gene_rows", genExp.Len()),
		zap.Int("enhancers_with_tfbs", in.enhancerTFBS.Len()),
		zap.Int("genes_with_tfbs", in.geneTFBS.Len()),
		zap.Int("enhancers", len(in.enhancers)),
		zap.Int("genes", len(in.genes)))

	return &in, nil
}

// loadGenes parses the GTF, going through the gene cache when cacheDir is set.
func loadGenes(path, cacheDir string, logger *zap.Logger) ([]*genome.Gene, error) {
	loader := genome.NewGTFLoader(path)
	if cacheDir == "" {
		return loadGTF(loader, logger)
	}

	fp, err := store.StatFile(path)
	if err != nil {
		return nil, fmt.Errorf("fingerprint --gtf: %w", err)
	}
	gc := store.NewGeneCache(cacheDir)
	if gc.Valid(fp) {
		genes, err := gc.Load()
		if err == nil {
			logger.Debug("loaded genes from cache", zap.String("dir", cacheDir), zap.Int("genes", len(genes)))
			return genes, nil
		}
		logger.Warn("gene cache unreadable, removing it and reparsing GTF", zap.Error(err))
		gc.Clear()
	}

	genes, err := loadGTF(loader, logger)
	if err != nil {
		return nil, err
	}
	if err := gc.Write(genes, fp); err != nil {
		logger.Warn("could not write gene cache", zap.Error(err))
	}
	return genes, nil
}

func loadGTF(loader *genome.GTFLoader, logger *zap.Logger) ([]*genome.Gene, error) {
	genes, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if loader.Unnamed > 0 {
		logger.Debug("skipped protein-coding genes without gene_name", zap.Int("count", loader.Unnamed))
	}
	return genes, nil
}

// recordingWriter keeps a copy of every module written through it.
type recordingWriter struct {
	module.ModuleWriter
	modules []module.Module
}

func (w *recordingWriter) Write(m module.Module) error {
	w.modules = append(w.modules, m)
	return w.ModuleWriter.Write(m)
}

// openOutput returns the report destination and its closer; an empty path
// means stdout.
func openOutput(a *app, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return a.stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}

// closeOutput runs closeOut and reports its error through errp unless an
// earlier error is already set.
func closeOutput(closeOut func() error, errp *error) {
	if err := closeOut(); err != nil && *errp == nil {
		*errp = fmt.Errorf("closing output: %w", err)
	}
}

// writeReport writes a complete report for already computed modules.
func writeReport(a *app, path string, mods []module.Module) (err error) {
	out, closeOut, err := openOutput(a, path)
	if err != nil {
		return err
	}
	defer closeOutput(closeOut, &err)

	tw := output.NewTabWriter(out)
	if err := tw.WriteHeader(); err != nil {
		return err
	}
	for _, m := range mods {
		if err := tw.Write(m); err != nil {
			return err
		}
	}
	return tw.Flush()
}
