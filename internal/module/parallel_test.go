package module

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/inodb/vibe-enhancer/internal/genome"
	"github.com/inodb/vibe-enhancer/internal/stats"
	"github.com/inodb/vibe-enhancer/internal/tfbs"
)

// noExpression has no rows, so every enhancer stops after the TFBS lookup.
type noExpression struct{}

func (noExpression) Row(string) ([]float64, bool) { return nil, false }

type noGenes struct{}

func (noGenes) NearGenes(genome.Enhancer) []string { return nil }

func emptyEngine() *Engine {
	return NewEngine(noExpression{}, tfbs.Table{}, tfbs.Table{}, noGenes{}, stats.Gate{Corr: 0.5, PValue: 0.05})
}

func makeItems(n int) <-chan WorkItem {
	ch := make(chan WorkItem, n)
	for i := range n {
		ch <- WorkItem{
			Seq:      i,
			Enhancer: genome.Enhancer{Locus: fmt.Sprintf("chr1:%d-%d", 100+i, 200+i), Chrom: "1", Start: int64(100 + i), End: int64(200 + i)},
		}
	}
	close(ch)
	return ch
}

// sliceWriter collects modules in memory.
type sliceWriter struct {
	header  bool
	modules []Module
	flushed bool
	failAt  int
}

func (w *sliceWriter) WriteHeader() error {
	w.header = true
	return nil
}

func (w *sliceWriter) Write(m Module) error {
	if w.failAt > 0 && len(w.modules)+1 == w.failAt {
		return errors.New("disk full")
	}
	w.modules = append(w.modules, m)
	return nil
}

func (w *sliceWriter) Flush() error {
	w.flushed = true
	return nil
}

func TestParallelIdentify_OrderPreservation(t *testing.T) {
	defer goleak.VerifyNone(t)

	results := emptyEngine().ParallelIdentify(makeItems(200), 8)

	var collected []int
	err := OrderedCollect(results, func(r WorkResult) error {
		collected = append(collected, r.Seq)
		assert.Equal(t, fmt.Sprintf("chr1:%d-%d", 100+r.Seq, 200+r.Seq), r.Result.Enhancer)
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, collected, 200)
	for i, seq := range collected {
		assert.Equal(t, i, seq, "result %d out of order", i)
	}
}

func TestParallelIdentify_SingleWorker(t *testing.T) {
	defer goleak.VerifyNone(t)

	results := emptyEngine().ParallelIdentify(makeItems(50), 1)

	var collected []int
	err := OrderedCollect(results, func(r WorkResult) error {
		collected = append(collected, r.Seq)
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, collected, 50)
	for i, seq := range collected {
		assert.Equal(t, i, seq)
	}
}

func TestParallelIdentify_EmptyInput(t *testing.T) {
	defer goleak.VerifyNone(t)

	ch := make(chan WorkItem)
	close(ch)
	results := emptyEngine().ParallelIdentify(ch, 4)

	count := 0
	err := OrderedCollect(results, func(r WorkResult) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestOrderedCollect_EarlyError(t *testing.T) {
	defer goleak.VerifyNone(t)

	results := emptyEngine().ParallelIdentify(makeItems(100), 4)

	count := 0
	err := OrderedCollect(results, func(r WorkResult) error {
		count++
		if count == 5 {
			return fmt.Errorf("stop at 5")
		}
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, 5, count)
}

func TestIdentifyAll_WorkerCountInvariant(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t)
	gate := stats.Gate{Corr: 0.5, PValue: 0.2}

	var want []Module
	var wantStats Stats
	for _, workers := range []int{1, 2, 8, 0} {
		e := f.engine(gate)
		e.SetWorkers(workers)

		w := &sliceWriter{}
		st, err := e.IdentifyAll(f.enhancers, w)
		require.NoError(t, err)
		assert.True(t, w.flushed)
		assert.False(t, w.header, "header is the caller's job")

		if want == nil {
			want, wantStats = w.modules, st
			continue
		}
		assert.Equal(t, want, w.modules, "workers=%d", workers)
		assert.Equal(t, wantStats, st, "workers=%d", workers)
	}

	assert.Equal(t, []Module{
		{Enhancer: "chr1:1000-2000", TF: "FOXA1", Targets: []string{"GENE1"}},
		{Enhancer: "chr2:1000-2000", TF: "TF2", Targets: []string{"GA", "GB", "GC"}},
	}, want)
	assert.Equal(t, 4, wantStats.Enhancers)
	assert.Equal(t, 3, wantStats.WithTFBS)
	assert.Equal(t, 2, wantStats.WithExpression)
	assert.Equal(t, 2, wantStats.WithRegulatingTF)
	assert.Equal(t, 2, wantStats.WithModule)
	assert.Equal(t, 2, wantStats.Modules)
}

func TestIdentifyAll_Idempotent(t *testing.T) {
	f := newFixture(t)
	e := f.engine(strict)

	first, second := &sliceWriter{}, &sliceWriter{}
	_, err := e.IdentifyAll(f.enhancers, first)
	require.NoError(t, err)
	_, err = e.IdentifyAll(f.enhancers, second)
	require.NoError(t, err)

	assert.Equal(t, first.modules, second.modules)
}

func TestIdentifyAll_WriteError(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t)
	e := f.engine(stats.Gate{Corr: 0.5, PValue: 0.2})
	e.SetWorkers(2)

	w := &sliceWriter{failAt: 2}
	_, err := e.IdentifyAll(f.enhancers, w)
	require.EqualError(t, err, "disk full")
	assert.Len(t, w.modules, 1)
	assert.False(t, w.flushed)
}

func TestIdentifyAll_Empty(t *testing.T) {
	w := &sliceWriter{}
	st, err := emptyEngine().IdentifyAll(nil, w)
	require.NoError(t, err)
	assert.Empty(t, w.modules)
	assert.Equal(t, Stats{}, st)
	assert.True(t, w.flushed)
}
