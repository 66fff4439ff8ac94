package marketdata

import (
	"math"
	"time"
)

// PriceToReturns converts a price series into a return series. The
// first observation is consumed by the differencing and dropped.
func PriceToReturns(dates []time.Time, prices []float64, logReturns bool) ([]time.Time, []float64) {
	if len(prices) < 2 {
		return nil, nil
	}
	outDates := make([]time.Time, 0, len(prices)-1)
	outReturns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		var r float64
		if logReturns {
			r = math.Log(prices[i] / prices[i-1])
		} else {
			r = prices[i]/prices[i-1] - 1
		}
		outDates = append(outDates, dates[i])
		outReturns = append(outReturns, r)
	}
	return outDates, outReturns
}

// clipRange returns the [from, to] sub-range of a date-indexed series.
// Zero bounds are open.
func clipRange(dates []time.Time, from, to time.Time) (int, int) {
	lo, hi := 0, len(dates)
	if !from.IsZero() {
		for lo < hi && dates[lo].Before(from) {
			lo++
		}
	}
	if !to.IsZero() {
		for hi > lo && dates[hi-1].After(to) {
			hi--
		}
	}
	return lo, hi
}
