package eventstudy

import (
	"gonum.org/v1/gonum/mat"

	"EventPull/internal/domain/models"
)

// ModelData carries the aligned regressor slices an expectation model
// needs. Security is always present; the remaining fields depend on the
// model kind. All slices share the same length and calendar.
type ModelData struct {
	Security []float64
	Market   []float64
	// Factors holds one column per factor, in model order.
	Factors  [][]float64
	RiskFree []float64
}

// ExpectationModel is the shared contract of the closed set of
// expectation models: fit on the estimation window, then predict the
// expected return per period of the event window.
type ExpectationModel interface {
	Kind() models.ModelKind
	Fit(est ModelData) (models.ModelFit, error)
	Predict(fit models.ModelFit, period ModelData) []float64
}

// NewModel returns the expectation model for kind. The set is closed;
// unknown kinds are a MalformedInput failure.
func NewModel(kind models.ModelKind) (ExpectationModel, error) {
	switch kind {
	case models.ModelConstantMean:
		return constantMean{}, nil
	case models.ModelMarket:
		return marketModel{}, nil
	case models.ModelThreeFactor:
		return factorModel{kind: models.ModelThreeFactor, nFactors: 3}, nil
	case models.ModelFiveFactor:
		return factorModel{kind: models.ModelFiveFactor, nFactors: 5}, nil
	}
	return nil, newError(KindMalformedInput, "unknown expectation model %q", kind)
}

// FactorColumns lists the factor file columns each factor model expects,
// in regression order. RF is handled separately.
func FactorColumns(kind models.ModelKind) []string {
	switch kind {
	case models.ModelThreeFactor:
		return []string{"Mkt-RF", "SMB", "HML"}
	case models.ModelFiveFactor:
		return []string{"Mkt-RF", "SMB", "HML", "RMW", "CMA"}
	}
	return nil
}

// constantMean models the expected return as the estimation-window
// sample mean.
type constantMean struct{}

func (constantMean) Kind() models.ModelKind { return models.ModelConstantMean }

func (constantMean) Fit(est ModelData) (models.ModelFit, error) {
	n := len(est.Security)
	df := n - 1
	if df <= 0 {
		return models.ModelFit{}, newError(KindInsufficientHistory,
			"constant mean needs at least 2 estimation observations, got %d", n)
	}

	var mean float64
	for _, r := range est.Security {
		mean += r
	}
	mean /= float64(n)

	residuals := make([]float64, n)
	var sse float64
	for i, r := range est.Security {
		residuals[i] = r - mean
		sse += residuals[i] * residuals[i]
	}

	return models.ModelFit{
		Kind:             models.ModelConstantMean,
		Coefficients:     []float64{mean},
		ResidualVariance: sse / float64(df),
		DegreesOfFreedom: df,
		Residuals:        residuals,
		PositiveShare:    positiveShare(residuals),
	}, nil
}

func (constantMean) Predict(fit models.ModelFit, period ModelData) []float64 {
	out := make([]float64, len(period.Security))
	for i := range out {
		out[i] = fit.Coefficients[0]
	}
	return out
}

// marketModel regresses the security return on one benchmark return
// with an intercept.
type marketModel struct{}

func (marketModel) Kind() models.ModelKind { return models.ModelMarket }

func (marketModel) Fit(est ModelData) (models.ModelFit, error) {
	n := len(est.Security)
	df := n - 2
	if df <= 0 {
		return models.ModelFit{}, newError(KindInsufficientHistory,
			"market model needs at least 3 estimation observations, got %d", n)
	}

	coef, residuals, sse, err := olsFit([][]float64{est.Market}, est.Security)
	if err != nil {
		return models.ModelFit{}, err
	}

	return models.ModelFit{
		Kind:             models.ModelMarket,
		Coefficients:     coef,
		ResidualVariance: sse / float64(df),
		DegreesOfFreedom: df,
		Residuals:        residuals,
		PositiveShare:    positiveShare(residuals),
	}, nil
}

func (marketModel) Predict(fit models.ModelFit, period ModelData) []float64 {
	out := make([]float64, len(period.Security))
	for i := range out {
		out[i] = fit.Coefficients[0] + fit.Coefficients[1]*period.Market[i]
	}
	return out
}

// factorModel regresses the security's excess return on k factor
// columns with an intercept. Predictions add the risk-free rate back so
// the result is an expected plain return.
type factorModel struct {
	kind     models.ModelKind
	nFactors int
}

func (m factorModel) Kind() models.ModelKind { return m.kind }

func (m factorModel) Fit(est ModelData) (models.ModelFit, error) {
	n := len(est.Security)
	df := n - m.nFactors - 1
	if df <= 0 {
		return models.ModelFit{}, newError(KindInsufficientHistory,
			"%d-factor model needs more than %d estimation observations, got %d", m.nFactors, m.nFactors+1, n)
	}

	excess := make([]float64, n)
	for i := range excess {
		excess[i] = est.Security[i] - est.RiskFree[i]
	}

	coef, residuals, sse, err := olsFit(est.Factors, excess)
	if err != nil {
		return models.ModelFit{}, err
	}

	return models.ModelFit{
		Kind:             m.kind,
		Coefficients:     coef,
		ResidualVariance: sse / float64(df),
		DegreesOfFreedom: df,
		Residuals:        residuals,
		PositiveShare:    positiveShare(residuals),
	}, nil
}

func (m factorModel) Predict(fit models.ModelFit, period ModelData) []float64 {
	out := make([]float64, len(period.Security))
	for i := range out {
		v := fit.Coefficients[0]
		for j, col := range period.Factors {
			v += fit.Coefficients[j+1] * col[i]
		}
		out[i] = v + period.RiskFree[i]
	}
	return out
}

// olsFit runs ordinary least squares of y on the given regressor
// columns plus an intercept. Returns the coefficients (intercept
// first), the in-sample residuals and their sum of squares. A
// rank-deficient design matrix fails with SingularFit.
func olsFit(columns [][]float64, y []float64) ([]float64, []float64, float64, error) {
	n := len(y)
	p := len(columns) + 1

	X := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, 1)
		for j, col := range columns {
			X.Set(i, j+1, col[i])
		}
	}

	var svd mat.SVD
	if !svd.Factorize(X, mat.SVDThin) {
		return nil, nil, 0, newError(KindSingularFit, "SVD factorization failed for %dx%d design matrix", n, p)
	}
	rank := svd.Rank(1e-12)
	if rank < p {
		return nil, nil, 0, newError(KindSingularFit,
			"design matrix rank %d < %d regressors (constant or collinear factors)", rank, p)
	}

	yMat := mat.NewDense(n, 1, append([]float64(nil), y...))
	var sol mat.Dense
	svd.SolveTo(&sol, yMat, rank)

	coef := make([]float64, p)
	for j := 0; j < p; j++ {
		coef[j] = sol.At(j, 0)
	}

	residuals := make([]float64, n)
	var sse float64
	for i := 0; i < n; i++ {
		fitted := coef[0]
		for j, col := range columns {
			fitted += coef[j+1] * col[i]
		}
		residuals[i] = y[i] - fitted
		sse += residuals[i] * residuals[i]
	}
	return coef, residuals, sse, nil
}

func positiveShare(residuals []float64) float64 {
	if len(residuals) == 0 {
		return 0
	}
	var pos int
	for _, r := range residuals {
		if r > 0 {
			pos++
		}
	}
	return float64(pos) / float64(len(residuals))
}
