// Package expression loads per-element expression matrices and merges the
// enhancer and gene tables over their shared samples.
package expression

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/inodb/vibe-enhancer/internal/textio"
)

// ErrNoSharedSamples is returned when two tables have no sample in common.
var ErrNoSharedSamples = errors.New("no shared samples between expression tables")

// Matrix maps element identifiers (enhancer loci, gene symbols) to expression
// vectors aligned with Samples. It is not modified after construction.
type Matrix struct {
	samples []string
	ids     []string
	rows    map[string][]float64
}

// newMatrix creates an empty matrix over the given samples.
func newMatrix(samples []string) *Matrix {
	return &Matrix{
		samples: samples,
		rows:    make(map[string][]float64),
	}
}

// Samples returns the sample labels in column order.
func (m *Matrix) Samples() []string {
	return m.samples
}

// IDs returns row identifiers in insertion order.
func (m *Matrix) IDs() []string {
	return m.ids
}

// Len returns the number of rows.
func (m *Matrix) Len() int {
	return len(m.ids)
}

// Row returns the expression vector for id.
func (m *Matrix) Row(id string) ([]float64, bool) {
	v, ok := m.rows[id]
	return v, ok
}

// Has reports whether id has an expression row.
func (m *Matrix) Has(id string) bool {
	_, ok := m.rows[id]
	return ok
}

func (m *Matrix) add(id string, values []float64) error {
	if len(values) != len(m.samples) {
		return fmt.Errorf("row %q has %d values, want %d", id, len(values), len(m.samples))
	}
	if _, ok := m.rows[id]; ok {
		return fmt.Errorf("duplicate row %q", id)
	}
	m.ids = append(m.ids, id)
	m.rows[id] = values
	return nil
}

// LoadCSV reads a comma-delimited expression table from path.
func LoadCSV(path string) (*Matrix, error) {
	r, err := textio.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return ReadCSV(r, path)
}

// ReadCSV parses a comma-delimited expression table. The header holds a row
// label column followed by sample identifiers; every record holds an element
// identifier followed by one value per sample.
func ReadCSV(reader io.Reader, path string) (*Matrix, error) {
	cr := csv.NewReader(reader)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, textio.Errorf(path, 0, "empty expression table")
	}
	if err != nil {
		return nil, csvError(path, err)
	}
	if len(header) < 2 {
		return nil, textio.Errorf(path, 1, "header has no sample columns")
	}

	ncols := len(header)
	samples := make([]string, ncols-1)
	seen := make(map[string]bool, len(samples))
	for i, s := range header[1:] {
		s = strings.TrimSpace(s)
		if seen[s] {
			return nil, textio.Errorf(path, 1, "duplicate sample %q", s)
		}
		seen[s] = true
		samples[i] = s
	}

	m := newMatrix(samples)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, csvError(path, err)
		}
		line, _ := cr.FieldPos(0)

		if len(record) != ncols {
			return nil, textio.Errorf(path, line, "expected %d columns, got %d", ncols, len(record))
		}

		id := strings.TrimSpace(record[0])
		if id == "" {
			return nil, textio.Errorf(path, line, "empty row identifier")
		}

		values := make([]float64, len(samples))
		for i, field := range record[1:] {
			v, err := parseValue(field)
			if err != nil {
				return nil, textio.Errorf(path, line, "sample %s: %v", samples[i], err)
			}
			values[i] = v
		}

		if err := m.add(id, values); err != nil {
			return nil, textio.Errorf(path, line, "%v", err)
		}
	}

	return m, nil
}

// parseValue parses an expression value; missing values become NaN.
func parseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToUpper(s) {
	case "", "NA", "NAN":
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q", s)
	}
	return v, nil
}

func csvError(path string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return textio.Errorf(path, pe.Line, "%v", pe.Err)
	}
	return fmt.Errorf("read %s: %w", path, err)
}

// Merge combines an enhancer table and a gene table into one matrix over the
// samples present in both. Columns are matched by label; the result follows the
// enhancer table's sample order and lists enhancer rows before gene rows.
func Merge(enhancers, genes *Matrix) (*Matrix, error) {
	geneCol := make(map[string]int, len(genes.samples))
	for i, s := range genes.samples {
		geneCol[s] = i
	}

	var shared []string
	var enhIdx, geneIdx []int
	for i, s := range enhancers.samples {
		if j, ok := geneCol[s]; ok {
			shared = append(shared, s)
			enhIdx = append(enhIdx, i)
			geneIdx = append(geneIdx, j)
		}
	}
	if len(shared) == 0 {
		return nil, ErrNoSharedSamples
	}

	merged := newMatrix(shared)
	merged.ids = make([]string, 0, enhancers.Len()+genes.Len())

	for _, src := range []struct {
		m   *Matrix
		idx []int
	}{
		{enhancers, enhIdx},
		{genes, geneIdx},
	} {
		for _, id := range src.m.ids {
			row := src.m.rows[id]
			values := make([]float64, len(src.idx))
			for k, col := range src.idx {
				values[k] = row[col]
			}
			if err := merged.add(id, values); err != nil {
				return nil, fmt.Errorf("merge expression tables: %w", err)
			}
		}
	}

	return merged, nil
}
