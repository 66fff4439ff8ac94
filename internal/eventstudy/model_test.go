package eventstudy

import (
	"math"
	"testing"

	"EventPull/internal/domain/models"
)

func approx(t *testing.T, got, want, eps float64, what string) {
	t.Helper()
	if math.Abs(got-want) > eps {
		t.Fatalf("%s = %v, want %v", what, got, want)
	}
}

func TestConstantMeanFit(t *testing.T) {
	est := ModelData{Security: []float64{0.01, 0.02, -0.01, 0.00, 0.01}}

	m, err := NewModel(models.ModelConstantMean)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	fit, err := m.Fit(est)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}

	approx(t, fit.Coefficients[0], 0.006, 1e-12, "mean")
	approx(t, fit.ResidualVariance, 0.00013, 1e-12, "variance")
	if fit.DegreesOfFreedom != 4 {
		t.Fatalf("df = %d, want 4", fit.DegreesOfFreedom)
	}
	if len(fit.Residuals) != 5 {
		t.Fatalf("residuals length %d, want 5", len(fit.Residuals))
	}

	pred := m.Predict(fit, ModelData{Security: []float64{0.03, -0.02}})
	approx(t, pred[0], 0.006, 1e-12, "prediction")
	approx(t, pred[1], 0.006, 1e-12, "prediction")
}

func TestConstantMeanInsufficientHistory(t *testing.T) {
	m, _ := NewModel(models.ModelConstantMean)
	if _, err := m.Fit(ModelData{Security: []float64{0.01}}); KindOf(err) != KindInsufficientHistory {
		t.Fatalf("expected InsufficientHistory, got %v", err)
	}
}

func TestMarketModelRecoversLine(t *testing.T) {
	mkt := []float64{0.01, -0.02, 0.015, 0.005, -0.01, 0.02, 0.0, -0.005}
	sec := make([]float64, len(mkt))
	for i, v := range mkt {
		sec[i] = 0.001 + 0.5*v
	}

	m, _ := NewModel(models.ModelMarket)
	fit, err := m.Fit(ModelData{Security: sec, Market: mkt})
	if err != nil {
		t.Fatalf("fit: %v", err)
	}

	approx(t, fit.Coefficients[0], 0.001, 1e-9, "alpha")
	approx(t, fit.Coefficients[1], 0.5, 1e-9, "beta")
	approx(t, fit.ResidualVariance, 0, 1e-12, "variance of an exact fit")
	if fit.DegreesOfFreedom != len(mkt)-2 {
		t.Fatalf("df = %d, want %d", fit.DegreesOfFreedom, len(mkt)-2)
	}

	pred := m.Predict(fit, ModelData{Security: []float64{0, 0}, Market: []float64{0.04, -0.04}})
	approx(t, pred[0], 0.021, 1e-9, "prediction up")
	approx(t, pred[1], -0.019, 1e-9, "prediction down")
}

func TestMarketModelSingularFit(t *testing.T) {
	// a constant benchmark is collinear with the intercept
	mkt := []float64{0.01, 0.01, 0.01, 0.01, 0.01}
	sec := []float64{0.02, -0.01, 0.0, 0.01, 0.005}

	m, _ := NewModel(models.ModelMarket)
	if _, err := m.Fit(ModelData{Security: sec, Market: mkt}); KindOf(err) != KindSingularFit {
		t.Fatalf("expected SingularFit, got %v", err)
	}
}

func TestFactorModelExcessReturns(t *testing.T) {
	f1 := []float64{0.01, -0.02, 0.015, 0.005, -0.01, 0.02, 0.0, -0.005, 0.012, -0.008}
	f2 := []float64{0.002, 0.001, -0.003, 0.004, 0.0, -0.002, 0.003, 0.001, -0.001, 0.002}
	f3 := []float64{-0.001, 0.002, 0.001, -0.002, 0.003, 0.0, -0.003, 0.002, 0.001, -0.001}
	rf := make([]float64, len(f1))
	sec := make([]float64, len(f1))
	for i := range sec {
		rf[i] = 0.0001
		sec[i] = rf[i] + 0.002 + 1.1*f1[i] + 0.4*f2[i] - 0.3*f3[i]
	}

	m, _ := NewModel(models.ModelThreeFactor)
	fit, err := m.Fit(ModelData{Security: sec, Factors: [][]float64{f1, f2, f3}, RiskFree: rf})
	if err != nil {
		t.Fatalf("fit: %v", err)
	}

	approx(t, fit.Coefficients[0], 0.002, 1e-9, "alpha")
	approx(t, fit.Coefficients[1], 1.1, 1e-9, "loading 1")
	approx(t, fit.Coefficients[2], 0.4, 1e-9, "loading 2")
	approx(t, fit.Coefficients[3], -0.3, 1e-9, "loading 3")
	if fit.DegreesOfFreedom != len(sec)-4 {
		t.Fatalf("df = %d, want %d", fit.DegreesOfFreedom, len(sec)-4)
	}

	pred := m.Predict(fit, ModelData{
		Security: []float64{0},
		Factors:  [][]float64{{0.01}, {0.002}, {-0.001}},
		RiskFree: []float64{0.0001},
	})
	want := 0.0001 + 0.002 + 1.1*0.01 + 0.4*0.002 - 0.3*-0.001
	approx(t, pred[0], want, 1e-9, "prediction")
}

func TestFactorModelInsufficientHistory(t *testing.T) {
	m, _ := NewModel(models.ModelFiveFactor)
	data := ModelData{
		Security: make([]float64, 6),
		Factors:  [][]float64{make([]float64, 6), make([]float64, 6), make([]float64, 6), make([]float64, 6), make([]float64, 6)},
		RiskFree: make([]float64, 6),
	}
	if _, err := m.Fit(data); KindOf(err) != KindInsufficientHistory {
		t.Fatalf("expected InsufficientHistory with 6 rows for 6 parameters, got %v", err)
	}
}

func TestNewModelUnknownKind(t *testing.T) {
	if _, err := NewModel(models.ModelKind("garch")); KindOf(err) != KindMalformedInput {
		t.Fatalf("expected MalformedInput, got %v", err)
	}
}
