package expression

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-enhancer/internal/textio"
)

func mustRead(t *testing.T, content string) *Matrix {
	t.Helper()
	m, err := ReadCSV(strings.NewReader(content), "test.csv")
	require.NoError(t, err)
	return m
}

func TestReadCSV(t *testing.T) {
	m := mustRead(t, `,S1,S2,S3
chr1:1000-2000,1.5,2,3
chr1:5000-5600,0,NA,
`)

	assert.Equal(t, []string{"S1", "S2", "S3"}, m.Samples())
	assert.Equal(t, []string{"chr1:1000-2000", "chr1:5000-5600"}, m.IDs())
	assert.Equal(t, 2, m.Len())

	row, ok := m.Row("chr1:1000-2000")
	require.True(t, ok)
	assert.Equal(t, []float64{1.5, 2, 3}, row)

	row, ok = m.Row("chr1:5000-5600")
	require.True(t, ok)
	assert.Equal(t, 0.0, row[0])
	assert.True(t, math.IsNaN(row[1]), "NA parses as NaN")
	assert.True(t, math.IsNaN(row[2]), "empty parses as NaN")

	assert.False(t, m.Has("GENE1"))
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		line    int
		message string
	}{
		{"empty", "", 0, "empty expression table"},
		{"no samples", "id\nA\n", 1, "no sample columns"},
		{"duplicate sample", "id,S1,S1\nA,1,2\n", 1, "duplicate sample"},
		{"short row", "id,S1,S2\nA,1\n", 2, "expected 3 columns, got 2"},
		{"non numeric", "id,S1,S2\nA,1,2\nB,x,2\n", 3, `invalid value "x"`},
		{"duplicate row", "id,S1\nA,1\nA,2\n", 3, `duplicate row "A"`},
		{"empty id", "id,S1\n,1\n", 2, "empty row identifier"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input), "exp.csv")
			require.Error(t, err)

			var pe *textio.ParseError
			require.True(t, errors.As(err, &pe), "want ParseError, got %T", err)
			assert.Equal(t, "exp.csv", pe.Path)
			assert.Equal(t, tt.line, pe.Line)
			assert.Contains(t, pe.Msg, tt.message)
		})
	}
}

func TestMerge_ReconcilesByLabel(t *testing.T) {
	enh := mustRead(t, `,S1,S2,S3,S4
chr1:1000-2000,1,2,3,4
`)
	// Gene columns are in a different order and S2 is missing.
	genes := mustRead(t, `,S4,S3,S1,S9
GENE1,40,30,10,99
FOXA1,0.4,0.3,0.1,0.9
`)

	m, err := Merge(enh, genes)
	require.NoError(t, err)

	assert.Equal(t, []string{"S1", "S3", "S4"}, m.Samples())
	assert.Equal(t, []string{"chr1:1000-2000", "GENE1", "FOXA1"}, m.IDs())

	row, _ := m.Row("chr1:1000-2000")
	assert.Equal(t, []float64{1, 3, 4}, row)
	row, _ = m.Row("GENE1")
	assert.Equal(t, []float64{10, 30, 40}, row)
	row, _ = m.Row("FOXA1")
	assert.Equal(t, []float64{0.1, 0.3, 0.4}, row)
}

func TestMerge_NoSharedSamples(t *testing.T) {
	enh := mustRead(t, ",A,B\ne,1,2\n")
	genes := mustRead(t, ",C,D\ng,1,2\n")

	_, err := Merge(enh, genes)
	assert.ErrorIs(t, err, ErrNoSharedSamples)
}

func TestMerge_OverlappingRowIDs(t *testing.T) {
	enh := mustRead(t, ",A\nX,1\n")
	genes := mustRead(t, ",A\nX,2\n")

	_, err := Merge(enh, genes)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate row "X"`)
}

func TestMerge_DoesNotAliasInputs(t *testing.T) {
	enh := mustRead(t, ",A,B\ne,1,2\n")
	genes := mustRead(t, ",A,B\ng,3,4\n")

	m, err := Merge(enh, genes)
	require.NoError(t, err)

	row, _ := m.Row("e")
	row[0] = 100
	orig, _ := enh.Row("e")
	assert.Equal(t, 1.0, orig[0])
}
