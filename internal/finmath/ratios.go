package finmath

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// SharpeRatio computes the annualized Sharpe ratio of a monthly value series.
// Monthly returns are derived from consecutive values, annualized as mean*12
// and stdev*sqrt(12), and compared against the annual risk-free rate
// (a fraction). Returns 0 for fewer than 2 points or a zero stdev.
func SharpeRatio(values []float64, annualRiskFree float64) float64 {
	returns := monthlyReturns(values)
	if len(returns) < 2 {
		return 0
	}

	mean := stat.Mean(returns, nil)
	stdev := stat.StdDev(returns, nil)
	if stdev == 0 || math.IsNaN(stdev) {
		return 0
	}

	annualMean := mean * 12
	annualStdev := stdev * math.Sqrt(12)
	return (annualMean - annualRiskFree) / annualStdev
}

// CalmarRatio divides an annualized return percentage by the maximum
// drawdown percentage. Returns 0 if the drawdown is 0.
func CalmarRatio(annualReturnPct, maxDrawdownPct float64) float64 {
	if maxDrawdownPct == 0 {
		return 0
	}
	return annualReturnPct / maxDrawdownPct
}

// monthlyReturns derives simple month-over-month returns from a value series.
// Months starting from a non-positive value contribute a 0 return.
func monthlyReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] <= 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, values[i]/values[i-1]-1)
	}
	return returns
}
