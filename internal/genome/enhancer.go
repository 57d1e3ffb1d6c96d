package genome

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-enhancer/internal/textio"
)

// Enhancer is a non-coding genomic interval identified by its locus string.
type Enhancer struct {
	Locus string // chrom:start-end, as given in the input
	Chrom string // Normalized chromosome (no "chr" prefix)
	Start int64
	End   int64
}

// ParseLocus parses a "chrom:start-end" locus.
func ParseLocus(locus string) (Enhancer, error) {
	chrom, span, ok := strings.Cut(locus, ":")
	if !ok || chrom == "" {
		return Enhancer{}, fmt.Errorf("invalid locus %q: want chrom:start-end", locus)
	}
	startStr, endStr, ok := strings.Cut(span, "-")
	if !ok {
		return Enhancer{}, fmt.Errorf("invalid locus %q: want chrom:start-end", locus)
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil {
		return Enhancer{}, fmt.Errorf("invalid locus %q: bad start", locus)
	}
	end, err := strconv.ParseInt(endStr, 10, 64)
	if err != nil {
		return Enhancer{}, fmt.Errorf("invalid locus %q: bad end", locus)
	}
	if end < start {
		return Enhancer{}, fmt.Errorf("invalid locus %q: end before start", locus)
	}

	return Enhancer{
		Locus: locus,
		Chrom: normalizeChrom(chrom),
		Start: start,
		End:   end,
	}, nil
}

// LoadEnhancers reads the enhancers to analyze from path.
func LoadEnhancers(path string) ([]Enhancer, error) {
	r, err := textio.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return ReadEnhancers(r, path)
}

// ReadEnhancers reads one enhancer per line, either as a chrom:start-end locus
// or as a BED-style chrom<TAB>start<TAB>end record. Blank lines are skipped
// and repeated loci are kept once, in first-seen order.
func ReadEnhancers(reader io.Reader, path string) ([]Enhancer, error) {
	scanner := textio.NewScanner(reader)
	seen := make(map[string]bool)
	var enhancers []Enhancer

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		locus := line
		if fields := strings.Split(line, "\t"); len(fields) == 3 {
			locus = fmt.Sprintf("%s:%s-%s", fields[0], fields[1], fields[2])
		}

		e, err := ParseLocus(locus)
		if err != nil {
			return nil, textio.Errorf(path, lineNum, "%v", err)
		}
		if seen[e.Locus] {
			continue
		}
		seen[e.Locus] = true
		enhancers = append(enhancers, e)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}

	return enhancers, nil
}

// normalizeChrom removes a "chr" prefix so that Ensembl ("1") and UCSC-style
// ("chr1") chromosome names compare equal.
func normalizeChrom(chrom string) string {
	return strings.TrimPrefix(chrom, "chr")
}
