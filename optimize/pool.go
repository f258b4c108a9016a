package optimize

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"chanquant/backtest"
	"chanquant/series"
)

// DefaultWorkers is 40% of the CPUs, at least one.
func DefaultWorkers() int {
	w := int(float64(runtime.NumCPU()) * 0.40)
	if w < 1 {
		w = 1
	}
	return w
}

// evaluator runs simulations for one series and scorer, memoized through a
// shared cache.
type evaluator struct {
	series   series.Series
	scorer   backtest.Scorer
	lookback int
	cache    Cache
	workers  int
}

type job struct {
	idx    int
	params backtest.Params
}

type evalResult struct {
	idx     int
	metrics backtest.Metrics
}

// run simulates params over w. The simulator only ever sees bars inside w.
func (e *evaluator) run(p backtest.Params, w Window) backtest.Metrics {
	k := NewKey(p, e.lookback, w.Start, w.End)
	if m, ok := e.cache.Get(k); ok {
		return m
	}
	res := backtest.Run(e.series, e.scorer, p, backtest.Options{
		LookbackDays: e.lookback,
		Start:        w.Start,
		End:          w.End,
	})
	e.cache.Put(k, res.Metrics)
	return res.Metrics
}

// evalAll simulates every params over w on the worker pool. onResult is
// called from the calling goroutine as results arrive. The returned slice is
// indexed like params.
func (e *evaluator) evalAll(ctx context.Context, params []backtest.Params, w Window, onResult func(done, idx int, m backtest.Metrics)) ([]backtest.Metrics, error) {
	out := make([]backtest.Metrics, len(params))
	if len(params) == 0 {
		return out, nil
	}

	workers := e.workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(params) {
		workers = len(params)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan job)
	results := make(chan evalResult, workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case j, ok := <-jobs:
					if !ok {
						return
					}
					m := e.run(j.params, w)
					select {
					case <-ctx.Done():
						return
					case results <- evalResult{idx: j.idx, metrics: m}:
					}
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, p := range params {
			select {
			case <-ctx.Done():
				return
			case jobs <- job{idx: i, params: p}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	done := 0
	for r := range results {
		out[r.idx] = r.metrics
		done++
		if onResult != nil {
			onResult(done, r.idx, r.metrics)
		}
	}
	if err := ctx.Err(); err != nil && done < len(params) {
		return nil, fmt.Errorf("optimize: %w", err)
	}
	return out, nil
}
