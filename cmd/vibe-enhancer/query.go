package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-enhancer/internal/module"
	"github.com/inodb/vibe-enhancer/internal/store"
)

type queryOptions struct {
	db       string
	run      string
	tf       string
	gene     string
	enhancer string
	listRuns bool
	del      string
}

func newQueryCmd(a *app) *cobra.Command {
	opts := &queryOptions{}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query cached module results",
		Long: `Print modules cached by 'identify --db' in the report format.

Without a filter the whole run is printed. The most recent run is used unless
--run is given.`,
		Example: `  vibe-enhancer query --db runs.duckdb --runs
  vibe-enhancer query --db runs.duckdb --tf FOXA1
  vibe-enhancer query --db runs.duckdb --gene GATA3
  vibe-enhancer query --db runs.duckdb --enhancer chr1:1000-2000
  vibe-enhancer query --db runs.duckdb --delete <run-id>`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.v.BindPFlag(keyDB, cmd.Flags().Lookup("db")); err != nil {
				return err
			}
			opts.db = a.v.GetString(keyDB)
			return runQuery(a, opts)
		},
	}

	cmd.Flags().String("db", "", "DuckDB file written by identify --db")
	cmd.Flags().StringVar(&opts.run, "run", "", "Run ID (default: most recent)")
	cmd.Flags().StringVar(&opts.tf, "tf", "", "Only modules regulated by this TF")
	cmd.Flags().StringVar(&opts.gene, "gene", "", "Only modules targeting this gene")
	cmd.Flags().StringVar(&opts.enhancer, "enhancer", "", "Only modules of this enhancer locus")
	cmd.Flags().BoolVar(&opts.listRuns, "runs", false, "List cached runs")
	cmd.Flags().StringVar(&opts.del, "delete", "", "Remove a cached run")

	return cmd
}

func runQuery(a *app, opts *queryOptions) error {
	if opts.db == "" {
		return usageErrorf("--db is required")
	}
	filters := 0
	for _, f := range []string{opts.tf, opts.gene, opts.enhancer} {
		if f != "" {
			filters++
		}
	}
	if filters > 1 {
		return usageErrorf("--tf, --gene and --enhancer are mutually exclusive")
	}
	if opts.del != "" && (filters > 0 || opts.listRuns || opts.run != "") {
		return usageErrorf("--delete cannot be combined with other query options")
	}

	db, err := store.Open(opts.db)
	if err != nil {
		return err
	}
	defer db.Close()

	if opts.listRuns {
		return listRuns(a, db)
	}
	if opts.del != "" {
		return deleteRun(a, db, opts.del)
	}

	run := opts.run
	if run == "" {
		run, err = db.LatestRun()
		if errors.Is(err, store.ErrNoRuns) {
			return fmt.Errorf("%s: %w", opts.db, err)
		}
		if err != nil {
			return err
		}
	}

	var mods []module.Module
	switch {
	case opts.tf != "":
		mods, err = db.ModulesByTF(run, strings.ToUpper(opts.tf))
	case opts.gene != "":
		mods, err = db.ModulesByGene(run, opts.gene)
	case opts.enhancer != "":
		mods, err = db.ModulesByEnhancer(run, opts.enhancer)
	default:
		mods, err = db.LoadRun(run)
	}
	if err != nil {
		return err
	}

	a.logger.Debug("query complete", zap.String("run", run), zap.Int("modules", len(mods)))
	return writeReport(a, "", mods)
}

func deleteRun(a *app, db *store.Store, run string) error {
	ok, err := db.HasRun(run)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("run %s not found", run)
	}
	if err := db.DeleteRun(run); err != nil {
		return err
	}
	a.logger.Info("deleted cached run", zap.String("run", run))
	fmt.Fprintf(a.stdout, "Deleted run %s\n", run)
	return nil
}

func listRuns(a *app, db *store.Store) error {
	runs, err := db.Runs()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Run\tCreated\tTF cutoff\tR cutoff\tP cutoff\tEnhancers\tModules")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%g\t%g\t%d\t%d\n",
			r.ID, r.CreatedAt.UTC().Format(time.RFC3339),
			r.Params.TFCutoff, r.Params.Corr, r.Params.PValue,
			r.Enhancers, r.Modules)
	}
	return tw.Flush()
}
