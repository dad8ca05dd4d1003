// Package finmath provides the stateless financial math used to score a
// simulated portfolio history. Every function is total: numeric edge cases
// (zero denominators, zero peaks, empty series) return an explicit fallback
// value instead of faulting, because a backtest must always produce a
// complete, displayable result.
package finmath

import "math"

// CAGR returns the compound annual growth rate between start and end over
// the given number of years, as a percentage.
// Returns 0 if start or years is not positive.
func CAGR(start, end, years float64) float64 {
	if start <= 0 || years <= 0 {
		return 0
	}
	return (math.Pow(end/start, 1/years) - 1) * 100
}

// RealValue discounts a nominal value by the annual inflation rate
// (a fraction, e.g. 0.02) over the given number of years.
func RealValue(nominal, annualInflation, years float64) float64 {
	return nominal / math.Pow(1+annualInflation, years)
}

// MonthlyRate converts an annual rate (a fraction) to its compounding
// monthly equivalent: (1+r)^(1/12) - 1.
func MonthlyRate(annual float64) float64 {
	return math.Pow(1+annual, 1.0/12) - 1
}
