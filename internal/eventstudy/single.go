package eventstudy

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"EventPull/internal/domain/models"
)

// StudyInput is the fully materialized data one event study needs. The
// engine never fetches; callers resolve the series up front.
type StudyInput struct {
	Security models.ReturnSeries
	Market   *models.ReturnSeries
	Factors  *models.FactorSeries
}

// Engine computes event studies. It is stateless apart from the window
// resolver and safe for concurrent use.
type Engine struct {
	resolver Resolver
}

// NewEngine builds an engine. maxDateShift is the calendar-day forward
// scan allowed when an event date falls on a non-trading day; zero
// disables it.
func NewEngine(maxDateShift int) *Engine {
	return &Engine{resolver: Resolver{MaxDateShift: maxDateShift}}
}

// Compute runs one event study: resolve windows, fit the expectation
// model on the estimation window, measure abnormal returns over the
// event window. Resolver and model failures surface unchanged.
func (e *Engine) Compute(spec models.EventSpec, in StudyInput) (*models.SingleEventResult, error) {
	if err := spec.Validate(); err != nil {
		return nil, WrapError(KindMalformedInput, err, "invalid event spec %s", spec.Label())
	}
	if err := in.Security.Validate(); err != nil {
		return nil, WrapError(KindMalformedInput, err, "invalid return series for %s", spec.Security)
	}

	w, err := e.resolver.Resolve(in.Security.Dates, spec)
	if err != nil {
		return nil, err
	}

	model, err := NewModel(spec.Model)
	if err != nil {
		return nil, err
	}

	est, err := buildData(spec, in, w.EstStart, w.EstEnd)
	if err != nil {
		return nil, err
	}
	evt, err := buildData(spec, in, w.EventStart, w.EventEnd)
	if err != nil {
		return nil, err
	}

	fit, err := model.Fit(est)
	if err != nil {
		return nil, err
	}
	predicted := model.Predict(fit, evt)

	size := w.EventSize()
	res := &models.SingleEventResult{
		Spec:         spec,
		Fit:          fit,
		Offsets:      make([]int, size),
		AR:           make([]float64, size),
		VarAR:        make([]float64, size),
		CAR:          make([]float64, size),
		VarCAR:       make([]float64, size),
		TStat:        make([]float64, size),
		PValue:       make([]float64, size),
		Significance: make([]string, size),
	}

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(fit.DegreesOfFreedom)}
	cum := 0.0
	for t := 0; t < size; t++ {
		res.Offsets[t] = spec.Window.Start + t
		res.AR[t] = evt.Security[t] - predicted[t]
		res.VarAR[t] = fit.ResidualVariance
		cum += res.AR[t]
		res.CAR[t] = cum
		res.VarCAR[t] = float64(t+1) * fit.ResidualVariance
		res.TStat[t], res.PValue[t] = tScore(res.CAR[t], res.VarCAR[t], dist)
		res.Significance[t] = significanceMarker(res.PValue[t])
	}

	res.Description = fmt.Sprintf("%s event study for %s around %s, window [%+d,%+d], estimation %d days (df=%d)",
		spec.Model, spec.Security, spec.EventDate.Format("2006-01-02"),
		spec.Window.Start, spec.Window.End, spec.EstimationSize, fit.DegreesOfFreedom)
	return res, nil
}

// buildData assembles the aligned regressor rows for [from, to) of the
// security's calendar. Benchmark and factor series are joined by
// calendar day; a hole in either is an InsufficientHistory failure.
func buildData(spec models.EventSpec, in StudyInput, from, to int) (ModelData, error) {
	dates := in.Security.Dates[from:to]
	d := ModelData{Security: in.Security.Returns[from:to]}

	switch spec.Model {
	case models.ModelConstantMean:
		return d, nil

	case models.ModelMarket:
		if in.Market == nil {
			return ModelData{}, newError(KindMalformedInput,
				"market model for %s requires a benchmark series", spec.Security)
		}
		byDay := make(map[int]float64, in.Market.Len())
		for i, dt := range in.Market.Dates {
			byDay[dateKey(dt)] = in.Market.Returns[i]
		}
		d.Market = make([]float64, len(dates))
		for i, dt := range dates {
			v, ok := byDay[dateKey(dt)]
			if !ok {
				return ModelData{}, newError(KindInsufficientHistory,
					"benchmark %s has no observation on %s", in.Market.Ticker, dt.Format("2006-01-02"))
			}
			d.Market[i] = v
		}
		return d, nil

	default:
		if in.Factors == nil {
			return ModelData{}, newError(KindMalformedInput,
				"%s model for %s requires a factor series", spec.Model, spec.Security)
		}
		rowByDay := make(map[int]int, in.Factors.Len())
		for i, dt := range in.Factors.Dates {
			rowByDay[dateKey(dt)] = i
		}
		rows := make([]int, len(dates))
		for i, dt := range dates {
			row, ok := rowByDay[dateKey(dt)]
			if !ok {
				return ModelData{}, newError(KindInsufficientHistory,
					"factor set %s has no observation on %s", in.Factors.Name, dt.Format("2006-01-02"))
			}
			rows[i] = row
		}

		for _, name := range FactorColumns(spec.Model) {
			col, err := in.Factors.Column(name)
			if err != nil {
				return ModelData{}, WrapError(KindMalformedInput, err, "factor column missing")
			}
			aligned := make([]float64, len(rows))
			for i, row := range rows {
				aligned[i] = col[row]
			}
			d.Factors = append(d.Factors, aligned)
		}
		rf, err := in.Factors.Column("RF")
		if err != nil {
			return ModelData{}, WrapError(KindMalformedInput, err, "factor column missing")
		}
		d.RiskFree = make([]float64, len(rows))
		for i, row := range rows {
			d.RiskFree[i] = rf[row]
		}
		return d, nil
	}
}

// tScore returns the t statistic for a cumulative abnormal return and
// its two-tailed p-value. Degenerate variance yields a null result
// instead of NaN.
func tScore(car, varCAR float64, dist distuv.StudentsT) (float64, float64) {
	if varCAR <= 0 {
		return 0, 1
	}
	t := car / math.Sqrt(varCAR)
	return t, 2 * dist.CDF(-math.Abs(t))
}

// normalPValue is the two-tailed p-value of z under a standard normal,
// used by the nonparametric tests.
func normalPValue(z float64) float64 {
	return 2 * distuv.UnitNormal.CDF(-math.Abs(z))
}

// significanceMarker maps a p-value to the conventional star tiers.
func significanceMarker(p float64) string {
	switch {
	case p <= 0.01:
		return "***"
	case p <= 0.05:
		return "**"
	case p <= 0.10:
		return "*"
	}
	return ""
}
