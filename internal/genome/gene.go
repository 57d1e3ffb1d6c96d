// Package genome models enhancers and protein-coding genes and answers
// proximity queries between them.
package genome

// Flank is the distance on either side of a gene start that defines the
// gene's regulatory window.
const Flank int64 = 1_000_000

// BiotypeProteinCoding is the only gene biotype kept from annotations.
const BiotypeProteinCoding = "protein_coding"

// Gene represents a protein-coding gene from the annotation.
type Gene struct {
	ID      string // Gene identifier (e.g., ENSG00000129514)
	Name    string // Gene symbol (e.g., FOXA1)
	Chrom   string // Normalized chromosome (no "chr" prefix)
	Start   int64  // Annotation start (1-based)
	End     int64  // Annotation end (1-based, inclusive)
	Strand  int8   // +1 (forward) or -1 (reverse)
	Biotype string
}

// Window returns the regulatory window [Start-Flank, Start+Flank].
func (g *Gene) Window() (start, end int64) {
	return g.Start - Flank, g.Start + Flank
}

// InWindow reports whether pos lies strictly inside the gene's window.
// Positions equal to either window boundary are excluded.
func (g *Gene) InWindow(pos int64) bool {
	start, end := g.Window()
	return start < pos && pos < end
}
