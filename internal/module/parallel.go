package module

import (
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/inodb/vibe-enhancer/internal/genome"
)

// WorkItem holds an enhancer queued for scanning.
type WorkItem struct {
	Seq      int
	Enhancer genome.Enhancer
}

// WorkResult holds the scan output for a single enhancer.
type WorkResult struct {
	Seq    int
	Result Result
}

// ModuleWriter defines the interface for writing modules.
type ModuleWriter interface {
	WriteHeader() error
	Write(m Module) error
	Flush() error
}

// Stats summarizes a full scan.
type Stats struct {
	Enhancers        int // enhancers scanned
	WithTFBS         int // enhancers with at least one qualifying TFBS
	WithExpression   int // of those, enhancers with an expression row
	WithRegulatingTF int // enhancers with at least one regulating TF
	WithModule       int // enhancers contributing at least one module
	Modules          int // (enhancer, TF) rows emitted
	Tests            int // correlation tests run
}

// Add accumulates a single enhancer's result.
func (s *Stats) Add(r Result) {
	s.Enhancers++
	if r.HasTFBS {
		s.WithTFBS++
	}
	if r.HasExpression {
		s.WithExpression++
	}
	if len(r.RegulatingTFs) > 0 {
		s.WithRegulatingTF++
	}
	if len(r.Modules) > 0 {
		s.WithModule++
	}
	s.Modules += len(r.Modules)
	s.Tests += r.Tests
}

// ParallelIdentify scans work items using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use OrderedCollect to consume results in sequence-number order.
// If workers is 0, runtime.NumCPU() is used.
func (e *Engine) ParallelIdentify(items <-chan WorkItem, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				results <- WorkResult{
					Seq:    item.Seq,
					Result: e.Identify(item.Enhancer),
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}

// IdentifyAll scans every enhancer and writes the resulting modules in input
// order, so output is identical regardless of the number of workers. The
// caller writes the header; IdentifyAll flushes the writer on success.
func (e *Engine) IdentifyAll(enhancers []genome.Enhancer, writer ModuleWriter) (Stats, error) {
	workers := e.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	items := make(chan WorkItem, 2*workers)
	go func() {
		defer close(items)
		for i, enh := range enhancers {
			items <- WorkItem{Seq: i, Enhancer: enh}
		}
	}()

	var st Stats
	results := e.ParallelIdentify(items, workers)
	if err := OrderedCollect(results, func(r WorkResult) error {
		st.Add(r.Result)
		for _, m := range r.Result.Modules {
			if err := writer.Write(m); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return st, err
	}

	e.logger.Info("module scan complete",
		zap.Int("enhancers", st.Enhancers),
		zap.Int("with_tfbs", st.WithTFBS),
		zap.Int("with_regulating_tf", st.WithRegulatingTF),
		zap.Int("with_module", st.WithModule),
		zap.Int("modules", st.Modules),
		zap.Int("tests", st.Tests))

	return st, writer.Flush()
}
