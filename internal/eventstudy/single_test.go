package eventstudy

import (
	"testing"
	"time"

	"EventPull/internal/domain/models"
)

func makeSeries(ticker string, start time.Time, returns []float64) models.ReturnSeries {
	return models.ReturnSeries{
		Ticker:  ticker,
		Dates:   tradingDays(start, len(returns)),
		Returns: returns,
	}
}

func TestComputeConstantMeanScenario(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	series := makeSeries("AAPL", start, []float64{0.01, 0.02, -0.01, 0.00, 0.01, 0.03, -0.02})

	spec := models.EventSpec{
		Security:       "AAPL",
		EventDate:      start.AddDate(0, 0, 5),
		Window:         models.EventWindow{Start: 0, End: 1},
		EstimationSize: 5,
		Model:          models.ModelConstantMean,
	}

	res, err := NewEngine(0).Compute(spec, StudyInput{Security: series})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	if len(res.AR) != 2 || len(res.CAR) != 2 || len(res.Offsets) != 2 {
		t.Fatalf("result length %d, want 2", len(res.AR))
	}
	if res.Offsets[0] != 0 || res.Offsets[1] != 1 {
		t.Fatalf("offsets %v, want [0 1]", res.Offsets)
	}

	const v = 0.00013
	approx(t, res.AR[0], 0.024, 1e-12, "AR[0]")
	approx(t, res.AR[1], -0.026, 1e-12, "AR[1]")
	approx(t, res.CAR[0], 0.024, 1e-12, "CAR[0]")
	approx(t, res.CAR[1], -0.002, 1e-12, "CAR[1]")
	approx(t, res.VarAR[0], v, 1e-12, "VarAR[0]")
	approx(t, res.VarAR[1], v, 1e-12, "VarAR[1]")
	approx(t, res.VarCAR[0], v, 1e-12, "VarCAR[0]")
	approx(t, res.VarCAR[1], 2*v, 1e-12, "VarCAR[1]")
}

func TestComputeCARIsCumulativeSum(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	returns := []float64{0.01, -0.005, 0.002, 0.015, -0.01, 0.007, 0.003, -0.02, 0.01, 0.005, -0.004, 0.012}
	series := makeSeries("MSFT", start, returns)

	spec := models.EventSpec{
		Security:       "MSFT",
		EventDate:      start.AddDate(0, 0, 8),
		Window:         models.EventWindow{Start: -2, End: 3},
		EstimationSize: 6,
		Model:          models.ModelConstantMean,
	}

	res, err := NewEngine(0).Compute(spec, StudyInput{Security: series})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	sum := 0.0
	for k := range res.AR {
		sum += res.AR[k]
		approx(t, res.CAR[k], sum, 1e-12, "CAR running sum")
		if k > 0 && res.VarCAR[k] < res.VarCAR[k-1] {
			t.Fatalf("VarCAR decreased at %d", k)
		}
		if res.CAR[k] > 0 && res.TStat[k] < 0 || res.CAR[k] < 0 && res.TStat[k] > 0 {
			t.Fatalf("t-stat sign disagrees with CAR at %d", k)
		}
		if res.PValue[k] < 0 || res.PValue[k] > 1 {
			t.Fatalf("p-value %v out of range", res.PValue[k])
		}
	}
}

func TestComputeMarketModelAlignsByDate(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	mkt := []float64{0.01, -0.02, 0.015, 0.005, -0.01, 0.02, 0.0, -0.005, 0.01, 0.002}
	sec := make([]float64, len(mkt))
	for i, v := range mkt {
		sec[i] = 0.001 + 0.5*v
	}
	// a shock on the event day
	sec[8] += 0.05

	spec := models.EventSpec{
		Security:       "TSLA",
		Market:         "SPY",
		EventDate:      start.AddDate(0, 0, 8),
		Window:         models.EventWindow{Start: 0, End: 1},
		EstimationSize: 8,
		Model:          models.ModelMarket,
	}

	market := makeSeries("SPY", start, mkt)
	res, err := NewEngine(0).Compute(spec, StudyInput{
		Security: makeSeries("TSLA", start, sec),
		Market:   &market,
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	approx(t, res.AR[0], 0.05, 1e-9, "AR on the shock day")
	approx(t, res.AR[1], 0, 1e-9, "AR on a quiet day")
}

func TestComputeMarketModelMissingBenchmarkDay(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	sec := makeSeries("TSLA", start, []float64{0.01, -0.02, 0.015, 0.005, -0.01, 0.02, 0.0, -0.005, 0.01, 0.002})

	// benchmark is missing the event day
	market := models.ReturnSeries{
		Ticker:  "SPY",
		Dates:   append(tradingDays(start, 8), start.AddDate(0, 0, 9)),
		Returns: []float64{0.01, -0.02, 0.015, 0.005, -0.01, 0.02, 0.0, -0.005, 0.002},
	}

	spec := models.EventSpec{
		Security:       "TSLA",
		Market:         "SPY",
		EventDate:      start.AddDate(0, 0, 8),
		Window:         models.EventWindow{Start: 0, End: 1},
		EstimationSize: 8,
		Model:          models.ModelMarket,
	}

	_, err := NewEngine(0).Compute(spec, StudyInput{Security: sec, Market: &market})
	if KindOf(err) != KindInsufficientHistory {
		t.Fatalf("expected InsufficientHistory for the benchmark hole, got %v", err)
	}
}

func TestSignificanceMarkerTiers(t *testing.T) {
	cases := []struct {
		p    float64
		want string
	}{
		{0.005, "***"},
		{0.01, "***"},
		{0.03, "**"},
		{0.05, "**"},
		{0.08, "*"},
		{0.10, "*"},
		{0.2, ""},
	}
	for _, c := range cases {
		if got := significanceMarker(c.p); got != c.want {
			t.Fatalf("marker(%v) = %q, want %q", c.p, got, c.want)
		}
	}
}
