package eventstudy

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"EventPull/internal/domain/models"
)

// InputFunc materializes the series one event needs. It is called once
// per event, possibly from several workers at a time.
type InputFunc func(ctx context.Context, spec models.EventSpec) (StudyInput, error)

// BatchOptions controls a multiple-event run.
type BatchOptions struct {
	// IgnoreErrors records per-event failures and keeps going. When
	// false the first failure aborts the whole batch.
	IgnoreErrors bool
	// Workers caps the number of concurrent single-event computations.
	// Zero means one worker per CPU.
	Workers int
}

// ComputeBatch runs one event study per spec and aggregates the
// survivors into cross-sectional statistics. Every spec must share the
// same event window so the per-offset tables align one-to-one.
func (e *Engine) ComputeBatch(ctx context.Context, specs []models.EventSpec, fetch InputFunc, opts BatchOptions) (*models.MultipleEventResult, error) {
	if len(specs) == 0 {
		return nil, newError(KindMalformedInput, "batch contains no events")
	}
	window := specs[0].Window
	for _, spec := range specs[1:] {
		if spec.Window != window {
			return nil, newError(KindMalformedInput,
				"event %s has window [%+d,%+d], batch requires [%+d,%+d]",
				spec.Label(), spec.Window.Start, spec.Window.End, window.Start, window.End)
		}
	}

	type slot struct {
		res *models.SingleEventResult
		err error
	}
	arena := make([]slot, len(specs))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(specs) {
		workers = len(specs)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res, err := e.computeOne(ctx, specs[i], fetch)
				arena[i] = slot{res: res, err: err}
				if err != nil && !opts.IgnoreErrors {
					cancel()
				}
			}
		}()
	}

feed:
	for i := range specs {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if !opts.IgnoreErrors {
		// The failing event's error must come back unchanged. Events
		// that were merely interrupted by the fail-fast cancel report
		// cancellation; skip those so they cannot mask the real cause.
		var interrupted error
		for i, s := range arena {
			if s.err == nil {
				continue
			}
			if isCancellation(s.err) {
				if interrupted == nil {
					interrupted = fmt.Errorf("event %s: %w", specs[i].Label(), s.err)
				}
				continue
			}
			return nil, fmt.Errorf("event %s: %w", specs[i].Label(), s.err)
		}
		if interrupted != nil {
			return nil, interrupted
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &models.MultipleEventResult{}
	for i, s := range arena {
		if s.err != nil {
			kind := string(KindOf(s.err))
			if kind == "" {
				kind = "Error"
			}
			out.Errors = append(out.Errors, models.EventError{
				Event: specs[i].Label(),
				Kind:  kind,
				Msg:   s.err.Error(),
			})
			continue
		}
		out.Results = append(out.Results, s.res)
	}
	if len(out.Results) == 0 {
		return out, nil
	}

	aggregate(out, window)
	out.SignTest = SignTestAt(out.Results, window.End, baselineShare(out.Results))
	out.RankTest = RankTestAt(out.Results, window.End)
	out.CARDist = distributionTable(out.Results)
	return out, nil
}

func (e *Engine) computeOne(ctx context.Context, spec models.EventSpec, fetch InputFunc) (*models.SingleEventResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	in, err := fetch(ctx, spec)
	if err != nil {
		if KindOf(err) != "" || isCancellation(err) {
			return nil, err
		}
		return nil, WrapError(KindInsufficientHistory, err, "series unavailable for %s", spec.Label())
	}
	return e.Compute(spec, in)
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// aggregate fills the cross-sectional AAR/CAAR tables from the
// surviving results.
func aggregate(out *models.MultipleEventResult, window models.EventWindow) {
	n := len(out.Results)
	size := window.Size()

	out.Offsets = make([]int, size)
	out.AAR = make([]float64, size)
	out.VarAAR = make([]float64, size)
	out.CAAR = make([]float64, size)
	out.VarCAAR = make([]float64, size)
	out.TStat = make([]float64, size)
	out.PValue = make([]float64, size)
	out.Significance = make([]string, size)

	for _, res := range out.Results {
		out.DF += res.Fit.DegreesOfFreedom
	}
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(out.DF)}

	cum, cumVar := 0.0, 0.0
	for t := 0; t < size; t++ {
		out.Offsets[t] = window.Start + t

		var sumAR, sumVar float64
		for _, res := range out.Results {
			sumAR += res.AR[t]
			sumVar += res.VarAR[t]
		}
		out.AAR[t] = sumAR / float64(n)
		out.VarAAR[t] = sumVar / float64(n) / float64(n)

		cum += out.AAR[t]
		cumVar += out.VarAAR[t]
		out.CAAR[t] = cum
		out.VarCAAR[t] = cumVar
		out.TStat[t], out.PValue[t] = tScore(out.CAAR[t], out.VarCAAR[t], dist)
		out.Significance[t] = significanceMarker(out.PValue[t])
	}
}

// baselineShare averages the estimation-window positive-residual share
// across events, the generalized sign test's expected proportion under
// the null. Falls back to one half when no fit kept residual signs.
func baselineShare(results []*models.SingleEventResult) float64 {
	var sum float64
	var n int
	for _, res := range results {
		if len(res.Fit.Residuals) == 0 {
			continue
		}
		sum += res.Fit.PositiveShare
		n++
	}
	if n == 0 {
		return 0.5
	}
	return sum / float64(n)
}

// SignTestAt runs the generalized sign test on the events' cumulative
// abnormal returns at the given relative offset, against the supplied
// baseline proportion of positives under the null.
func SignTestAt(results []*models.SingleEventResult, offset int, baseline float64) models.TestResult {
	out := models.TestResult{Name: "generalized sign test", Offset: offset, PValue: 1}
	idx := offsetIndex(results, offset)
	if idx < 0 {
		return out
	}

	n := float64(len(results))
	var positive float64
	for _, res := range results {
		if res.CAR[idx] > 0 {
			positive++
		}
	}

	denom := math.Sqrt(n * baseline * (1 - baseline))
	if denom == 0 {
		return out
	}
	out.Statistic = (positive - n*baseline) / denom
	out.PValue = normalPValue(out.Statistic)
	return out
}

// RankTestAt runs a Corrado-style rank test at the given relative
// offset. Each event's estimation residuals and event-window abnormal
// returns are pooled into one span and ranked; the statistic compares
// the cross-event mean rank deviation at the offset against its
// within-span variability. All events must share the same span length.
func RankTestAt(results []*models.SingleEventResult, offset int) models.TestResult {
	out := models.TestResult{Name: "rank test", Offset: offset, Statistic: math.NaN(), PValue: math.NaN()}
	idx := offsetIndex(results, offset)
	if idx < 0 || len(results) == 0 {
		return out
	}

	span := len(results[0].Fit.Residuals) + len(results[0].AR)
	for _, res := range results {
		if len(res.Fit.Residuals)+len(res.AR) != span || len(res.Fit.Residuals) == 0 {
			return out
		}
	}

	n := len(results)
	mid := float64(span+1) / 2

	// deviations[t] accumulates the cross-event mean of (rank - mid).
	deviations := make([]float64, span)
	for _, res := range results {
		series := make([]float64, 0, span)
		series = append(series, res.Fit.Residuals...)
		series = append(series, res.AR...)
		for t, rank := range rankSeries(series) {
			deviations[t] += (rank - mid) / float64(n)
		}
	}

	var s2 float64
	for _, d := range deviations {
		s2 += d * d
	}
	s2 /= float64(span)
	if s2 == 0 {
		out.Statistic, out.PValue = 0, 1
		return out
	}

	eventPos := len(results[0].Fit.Residuals) + idx
	out.Statistic = deviations[eventPos] / math.Sqrt(s2)
	out.PValue = normalPValue(out.Statistic)
	return out
}

// rankSeries assigns 1-based ranks, averaging over ties.
func rankSeries(x []float64) []float64 {
	order := make([]int, len(x))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return x[order[a]] < x[order[b]] })

	ranks := make([]float64, len(x))
	for i := 0; i < len(order); {
		j := i
		for j+1 < len(order) && x[order[j+1]] == x[order[i]] {
			j++
		}
		avg := float64(i+j+2) / 2
		for k := i; k <= j; k++ {
			ranks[order[k]] = avg
		}
		i = j + 1
	}
	return ranks
}

// distributionTable summarizes the cross-section of event CARs at every
// offset of the shared window.
func distributionTable(results []*models.SingleEventResult) []models.CARDistRow {
	if len(results) == 0 {
		return nil
	}
	offsets := results[0].Offsets
	rows := make([]models.CARDistRow, len(offsets))
	values := make([]float64, len(results))

	for t := range offsets {
		for i, res := range results {
			values[i] = res.CAR[t]
		}
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)

		rows[t] = models.CARDistRow{
			Offset:   offsets[t],
			Mean:     stat.Mean(sorted, nil),
			Variance: stat.Variance(sorted, nil),
			Kurtosis: stat.ExKurtosis(sorted, nil),
			Min:      floats.Min(sorted),
			Q25:      quantile(0.25, sorted),
			Median:   quantile(0.50, sorted),
			Q75:      quantile(0.75, sorted),
			Max:      floats.Max(sorted),
		}
	}
	return rows
}

// quantile interpolates linearly between order statistics (the R-7
// method, numpy's default). The median of three points is the middle
// point, not an empirical-CDF step value.
func quantile(p float64, sorted []float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	h := p * float64(n-1)
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// offsetIndex maps a relative offset to its array index, or -1 when it
// falls outside the shared window.
func offsetIndex(results []*models.SingleEventResult, offset int) int {
	if len(results) == 0 {
		return -1
	}
	offsets := results[0].Offsets
	if len(offsets) == 0 {
		return -1
	}
	idx := offset - offsets[0]
	if idx < 0 || idx >= len(offsets) {
		return -1
	}
	return idx
}
