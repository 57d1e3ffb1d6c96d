package output

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/inodb/vibe-enhancer/internal/module"
)

// WriteStats writes an aligned run summary.
func WriteStats(w io.Writer, st module.Stats) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	pct := func(n int) string {
		if st.Enhancers == 0 {
			return "-"
		}
		return fmt.Sprintf("%.1f%%", float64(n)/float64(st.Enhancers)*100)
	}

	fmt.Fprintf(tw, "\nModule Summary:\n")
	fmt.Fprintf(tw, "  Enhancers scanned:\t%d\t\n", st.Enhancers)
	fmt.Fprintf(tw, "  With TFBS:\t%d\t%s\n", st.WithTFBS, pct(st.WithTFBS))
	fmt.Fprintf(tw, "  With expression:\t%d\t%s\n", st.WithExpression, pct(st.WithExpression))
	fmt.Fprintf(tw, "  With regulating TF:\t%d\t%s\n", st.WithRegulatingTF, pct(st.WithRegulatingTF))
	fmt.Fprintf(tw, "  With module:\t%d\t%s\n", st.WithModule, pct(st.WithModule))
	fmt.Fprintf(tw, "  Modules:\t%d\t\n", st.Modules)
	fmt.Fprintf(tw, "  Correlation tests:\t%d\t\n", st.Tests)

	return tw.Flush()
}
