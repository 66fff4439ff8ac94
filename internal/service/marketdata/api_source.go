package marketdata

import (
	"context"
	"fmt"
	"time"

	"EventPull/internal/domain/models"
	"EventPull/internal/domain/repository"
	xhttp "EventPull/pkg/http"
)

// APISource implements ReturnSource against a remote price API that
// serves daily return series as JSON.
type APISource struct {
	baseURL string
	apiKey  string
	client  *xhttp.Client
}

// NewAPISource creates an HTTP-backed return source.
func NewAPISource(baseURL, apiKey string, timeout time.Duration) repository.ReturnSource {
	opts := []xhttp.ClientOption{}
	if timeout > 0 {
		opts = append(opts, xhttp.WithTimeout(timeout))
	}
	return &APISource{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  xhttp.NewClient(opts...),
	}
}

type apiObservation struct {
	Date   string  `json:"date"`
	Return float64 `json:"return"`
}

type apiReturnsResponse struct {
	Ticker       string           `json:"ticker"`
	Observations []apiObservation `json:"observations"`
}

// GetReturns fetches the ticker's daily returns over [from, to].
func (s *APISource) GetReturns(ctx context.Context, ticker string, from, to time.Time) (models.ReturnSeries, error) {
	params := map[string][]string{"ticker": {ticker}}
	if !from.IsZero() {
		params["from"] = []string{from.Format("2006-01-02")}
	}
	if !to.IsZero() {
		params["to"] = []string{to.Format("2006-01-02")}
	}
	headers := map[string]string{}
	if s.apiKey != "" {
		headers["X-API-Key"] = s.apiKey
	}

	var resp apiReturnsResponse
	err := s.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         s.baseURL + "/v1/returns",
		Headers:     headers,
		QueryParams: params,
	}, &resp)
	if err != nil {
		return models.ReturnSeries{}, fmt.Errorf("fetch returns for %s: %w", ticker, err)
	}
	if len(resp.Observations) == 0 {
		return models.ReturnSeries{}, fmt.Errorf("no observations for %s", ticker)
	}

	out := models.ReturnSeries{
		Ticker:  ticker,
		Dates:   make([]time.Time, len(resp.Observations)),
		Returns: make([]float64, len(resp.Observations)),
	}
	for i, obs := range resp.Observations {
		d, err := time.Parse("2006-01-02", obs.Date)
		if err != nil {
			return models.ReturnSeries{}, fmt.Errorf("bad date %q for %s: %w", obs.Date, ticker, err)
		}
		out.Dates[i] = d
		out.Returns[i] = obs.Return
	}
	return out, nil
}

func (s *APISource) Close() error { return nil }
