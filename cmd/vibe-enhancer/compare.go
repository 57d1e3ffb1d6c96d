package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-enhancer/internal/output"
)

func newCompareCmd(a *app) *cobra.Command {
	var showAll bool

	cmd := &cobra.Command{
		Use:   "compare <a.tsv> <b.tsv>",
		Short: "Compare two module reports",
		Long: `Compare two module reports by (enhancer, TF) pair and classify each pair as
match, targets_gained, targets_lost, targets_changed, only_a or only_b.
Matching pairs are hidden unless --all is given. A summary goes to stderr.`,
		Example: `  vibe-enhancer compare strict.tsv relaxed.tsv`,
		Args:    usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(a, args[0], args[1], showAll)
		},
	}
	cmd.Flags().BoolVar(&showAll, "all", false, "Show matching pairs too")

	return cmd
}

func runCompare(a *app, pathA, pathB string, showAll bool) error {
	modsA, err := output.LoadReport(pathA)
	if err != nil {
		return err
	}
	modsB, err := output.LoadReport(pathB)
	if err != nil {
		return err
	}
	a.logger.Debug("loaded reports", zap.Int("a", len(modsA)), zap.Int("b", len(modsB)))

	cw := output.NewCompareWriter(a.stdout, showAll)
	if err := cw.WriteHeader(); err != nil {
		return err
	}
	for _, c := range output.Compare(modsA, modsB) {
		if err := cw.WriteComparison(c); err != nil {
			return err
		}
	}
	if err := cw.Flush(); err != nil {
		return err
	}

	cw.WriteSummary(a.stderr)
	return nil
}
