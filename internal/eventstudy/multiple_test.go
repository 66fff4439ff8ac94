package eventstudy

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"EventPull/internal/domain/models"
)

func batchFixture() ([]models.EventSpec, InputFunc) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	returns := []float64{
		0.010, -0.005, 0.002, 0.015, -0.010, 0.007, 0.003, -0.020,
		0.010, 0.005, -0.004, 0.012, 0.008, -0.006, 0.001, 0.009,
		-0.003, 0.004, 0.011, -0.007,
	}
	series := makeSeries("AAPL", start, returns)

	specFor := func(day int) models.EventSpec {
		return models.EventSpec{
			Security:       "AAPL",
			EventDate:      start.AddDate(0, 0, day),
			Window:         models.EventWindow{Start: 0, End: 1},
			EstimationSize: 6,
			Model:          models.ModelConstantMean,
		}
	}
	specs := []models.EventSpec{specFor(8), specFor(10), specFor(12), specFor(14), specFor(16)}

	fetch := func(ctx context.Context, spec models.EventSpec) (StudyInput, error) {
		return StudyInput{Security: series}, nil
	}
	return specs, fetch
}

func TestComputeBatchIgnoreErrors(t *testing.T) {
	specs, fetch := batchFixture()
	specs[2].EventDate = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	res, err := NewEngine(0).ComputeBatch(context.Background(), specs, fetch, BatchOptions{IgnoreErrors: true, Workers: 3})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(res.Results) != 4 {
		t.Fatalf("survivors = %d, want 4", len(res.Results))
	}
	if len(res.Errors) != 1 {
		t.Fatalf("errors = %d, want 1", len(res.Errors))
	}
	if res.Errors[0].Kind != string(KindDateNotFound) {
		t.Fatalf("error kind %q, want DateNotFound", res.Errors[0].Kind)
	}
	if !strings.Contains(res.Errors[0].Event, "AAPL@2030-01-01") {
		t.Fatalf("error event %q does not identify the failed event", res.Errors[0].Event)
	}
	if !strings.Contains(res.ErrorReport(), "AAPL@2030-01-01") {
		t.Fatalf("error report missing the failed event:\n%s", res.ErrorReport())
	}
	if res.DF != 4*5 {
		t.Fatalf("summed df = %d, want 20", res.DF)
	}
}

func TestComputeBatchFailFast(t *testing.T) {
	specs, fetch := batchFixture()
	specs[2].EventDate = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := NewEngine(0).ComputeBatch(context.Background(), specs, fetch, BatchOptions{IgnoreErrors: false, Workers: 2})
	if KindOf(err) != KindDateNotFound {
		t.Fatalf("expected DateNotFound to surface, got %v", err)
	}
}

func TestComputeBatchFailFastPreservesCause(t *testing.T) {
	specs, fetch := batchFixture()
	specs = specs[:2]
	specs[1].EventDate = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	// The healthy event's fetch sits in flight until the failing event
	// triggers the fail-fast cancel. Its cancellation must not displace
	// the failing event's error.
	blockingFetch := func(ctx context.Context, spec models.EventSpec) (StudyInput, error) {
		if spec.EventDate.Year() != 2030 {
			<-ctx.Done()
			return StudyInput{}, ctx.Err()
		}
		return fetch(ctx, spec)
	}

	for run := 0; run < 5; run++ {
		_, err := NewEngine(0).ComputeBatch(context.Background(), specs, blockingFetch, BatchOptions{IgnoreErrors: false, Workers: 2})
		if KindOf(err) != KindDateNotFound {
			t.Fatalf("expected the failing event's DateNotFound, got %v", err)
		}
	}
}

func TestComputeBatchWindowMismatch(t *testing.T) {
	specs, fetch := batchFixture()
	specs[1].Window = models.EventWindow{Start: -1, End: 1}

	_, err := NewEngine(0).ComputeBatch(context.Background(), specs, fetch, BatchOptions{IgnoreErrors: true})
	if KindOf(err) != KindMalformedInput {
		t.Fatalf("expected MalformedInput for mismatched windows, got %v", err)
	}
}

func TestComputeBatchSingleSurvivorReducesToSingle(t *testing.T) {
	specs, fetch := batchFixture()
	one := specs[:1]

	batch, err := NewEngine(0).ComputeBatch(context.Background(), one, fetch, BatchOptions{})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	in, _ := fetch(context.Background(), one[0])
	single, err := NewEngine(0).Compute(one[0], in)
	if err != nil {
		t.Fatalf("single: %v", err)
	}

	for k := range single.AR {
		approx(t, batch.AAR[k], single.AR[k], 1e-12, "AAR vs AR")
		approx(t, batch.CAAR[k], single.CAR[k], 1e-12, "CAAR vs CAR")
		approx(t, batch.VarAAR[k], single.VarAR[k], 1e-12, "VarAAR vs VarAR")
		approx(t, batch.VarCAAR[k], single.VarCAR[k], 1e-12, "VarCAAR vs VarCAR")
	}
}

func TestComputeBatchAggregation(t *testing.T) {
	specs, fetch := batchFixture()

	res, err := NewEngine(0).ComputeBatch(context.Background(), specs, fetch, BatchOptions{Workers: 4})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}

	n := float64(len(res.Results))
	for k := range res.Offsets {
		var sumAR, sumVar float64
		for _, r := range res.Results {
			sumAR += r.AR[k]
			sumVar += r.VarAR[k]
		}
		approx(t, res.AAR[k], sumAR/n, 1e-12, "AAR")
		approx(t, res.VarAAR[k], sumVar/n/n, 1e-12, "VarAAR")
	}
	if len(res.CARDist) != len(res.Offsets) {
		t.Fatalf("distribution rows = %d, want %d", len(res.CARDist), len(res.Offsets))
	}
}

func signFixture(cars []float64) []*models.SingleEventResult {
	out := make([]*models.SingleEventResult, len(cars))
	for i, c := range cars {
		out[i] = &models.SingleEventResult{Offsets: []int{0, 1}, CAR: []float64{0, c}}
	}
	return out
}

func TestSignTestBalanced(t *testing.T) {
	res := SignTestAt(signFixture([]float64{0.01, -0.01, 0.02, -0.02}), 1, 0.5)
	if res.Statistic != 0 {
		t.Fatalf("balanced sign statistic = %v, want 0", res.Statistic)
	}
	approx(t, res.PValue, 1, 1e-12, "balanced sign p-value")
}

func TestSignTestSkewed(t *testing.T) {
	res := SignTestAt(signFixture([]float64{0.01, 0.02, 0.03, 0.04}), 1, 0.5)
	approx(t, res.Statistic, 2, 1e-12, "all-positive sign statistic with n=4")
	if res.PValue >= 0.05 {
		t.Fatalf("p-value %v, want < 0.05", res.PValue)
	}

	mild := SignTestAt(signFixture([]float64{0.01, 0.02, 0.03, -0.04}), 1, 0.5)
	if math.Abs(mild.Statistic) >= math.Abs(res.Statistic) {
		t.Fatalf("statistic should grow with the positive share: %v vs %v", mild.Statistic, res.Statistic)
	}
}

func TestRankTestDetectsShock(t *testing.T) {
	resid := []float64{0.004, -0.006, 0.001, -0.002, 0.003, -0.001}
	mk := func(ar float64) *models.SingleEventResult {
		return &models.SingleEventResult{
			Offsets: []int{0},
			AR:      []float64{ar},
			CAR:     []float64{ar},
			Fit:     models.ModelFit{Residuals: append([]float64(nil), resid...)},
		}
	}

	res := RankTestAt([]*models.SingleEventResult{mk(0.05), mk(0.04)}, 0)
	if math.IsNaN(res.Statistic) {
		t.Fatalf("rank statistic is NaN")
	}
	if res.Statistic <= 0 {
		t.Fatalf("rank statistic = %v, want > 0 for top-ranked event returns", res.Statistic)
	}
	if res.PValue < 0 || res.PValue > 1 {
		t.Fatalf("p-value %v out of range", res.PValue)
	}
}

func TestRankTestUnequalSpans(t *testing.T) {
	a := &models.SingleEventResult{Offsets: []int{0}, AR: []float64{0.01}, CAR: []float64{0.01},
		Fit: models.ModelFit{Residuals: []float64{0.001, -0.002, 0.003}}}
	b := &models.SingleEventResult{Offsets: []int{0}, AR: []float64{0.01}, CAR: []float64{0.01},
		Fit: models.ModelFit{Residuals: []float64{0.001, -0.002}}}

	res := RankTestAt([]*models.SingleEventResult{a, b}, 0)
	if !math.IsNaN(res.Statistic) {
		t.Fatalf("expected NaN statistic for unequal spans, got %v", res.Statistic)
	}
}

func TestDistributionTable(t *testing.T) {
	results := []*models.SingleEventResult{
		{Offsets: []int{0}, CAR: []float64{0.01}},
		{Offsets: []int{0}, CAR: []float64{0.02}},
		{Offsets: []int{0}, CAR: []float64{0.03}},
	}
	rows := distributionTable(results)
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	approx(t, rows[0].Mean, 0.02, 1e-12, "mean")
	approx(t, rows[0].Min, 0.01, 1e-12, "min")
	approx(t, rows[0].Max, 0.03, 1e-12, "max")
	approx(t, rows[0].Median, 0.02, 1e-12, "median")
	approx(t, rows[0].Q25, 0.015, 1e-12, "q25")
	approx(t, rows[0].Q75, 0.025, 1e-12, "q75")
	approx(t, rows[0].Variance, 0.0001, 1e-12, "variance")
}
