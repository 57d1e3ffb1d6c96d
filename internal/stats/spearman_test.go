package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRank(t *testing.T) {
	tests := []struct {
		input []float64
		want  []float64
	}{
		{[]float64{10, 30, 20}, []float64{1, 3, 2}},
		{[]float64{1, 2, 2, 3}, []float64{1, 2.5, 2.5, 4}},
		{[]float64{5, 5, 5}, []float64{2, 2, 2}},
		{[]float64{3, 1, 2, 1}, []float64{4, 1.5, 3, 1.5}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rank(tt.input), "rank(%v)", tt.input)
	}
}

func TestRank_DoesNotModifyInput(t *testing.T) {
	x := []float64{3, 1, 2}
	rank(x)
	assert.Equal(t, []float64{3, 1, 2}, x)
}

func TestSpearman_KnownValue(t *testing.T) {
	rho, p := Spearman([]float64{1, 2, 3, 4, 5}, []float64{5, 6, 7, 8, 7})
	assert.InDelta(t, 0.8207826816681233, rho, 1e-12)
	assert.InDelta(t, 0.0885870053135438, p, 1e-6)
}

func TestSpearman_Perfect(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6}

	rho, p := Spearman(x, []float64{2, 4, 8, 16, 32, 64})
	assert.InDelta(t, 1.0, rho, 1e-12)
	assert.Less(t, p, 1e-6)

	rho, p = Spearman(x, []float64{6, 5, 4, 3, 2, 1})
	assert.InDelta(t, -1.0, rho, 1e-12)
	assert.Less(t, p, 1e-6)
}

func TestSpearman_Degenerate(t *testing.T) {
	tests := []struct {
		name string
		x, y []float64
	}{
		{"length mismatch", []float64{1, 2, 3}, []float64{1, 2}},
		{"too few samples", []float64{1, 2}, []float64{2, 1}},
		{"empty", nil, nil},
		{"constant", []float64{1, 1, 1, 1}, []float64{1, 2, 3, 4}},
		{"nan", []float64{1, math.NaN(), 3, 4}, []float64{1, 2, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rho, p := Spearman(tt.x, tt.y)
			assert.True(t, math.IsNaN(rho))
			assert.True(t, math.IsNaN(p))
		})
	}
}

func TestGate_Pass(t *testing.T) {
	g := Gate{Corr: 0.5, PValue: 0.05}

	assert.True(t, g.Pass(0.8, 0.01))
	assert.True(t, g.Pass(-0.8, 0.01), "negative correlation passes on magnitude")
	assert.False(t, g.Pass(0.5, 0.01), "|r| equal to cutoff is rejected")
	assert.False(t, g.Pass(-0.5, 0.01))
	assert.False(t, g.Pass(0.8, 0.05), "p equal to cutoff is rejected")
	assert.False(t, g.Pass(0.4, 0.001))
	assert.False(t, g.Pass(math.NaN(), math.NaN()))
}

func TestGate_Validate(t *testing.T) {
	assert.NoError(t, Gate{Corr: 0.5, PValue: 0.05}.Validate())
	assert.NoError(t, Gate{Corr: 1, PValue: 0.5}.Validate())

	assert.Error(t, Gate{Corr: 0, PValue: 0.05}.Validate())
	assert.Error(t, Gate{Corr: 1.2, PValue: 0.05}.Validate())
	assert.Error(t, Gate{Corr: 0.5, PValue: 0}.Validate())
	assert.Error(t, Gate{Corr: 0.5, PValue: 1}.Validate())
	assert.Error(t, Gate{Corr: math.NaN(), PValue: 0.05}.Validate())
}
