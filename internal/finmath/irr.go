package finmath

import "math"

// Newton-Raphson iteration parameters for IRR.
const (
	irrInitialGuess  = 0.10 // 10%/yr
	irrMaxIterations = 50
	irrTolerance     = 1e-7  // on successive rate estimates
	irrDerivEpsilon  = 1e-10 // derivative magnitude guard
)

// CashFlow is one dated flow of the IRR schedule. Month is the offset from
// the start of the simulation in months; Amount is signed (outflows negative).
type CashFlow struct {
	Month  int
	Amount float64
}

// IRR solves for the annual discount rate that zeroes the net present value
// of the cash-flow schedule, via Newton-Raphson from a 10%/yr initial guess.
// The result is a fraction (0.10 = 10%/yr). Convergence is not guaranteed for
// pathological flow patterns; the best available estimate after the iteration
// budget is returned rather than an error.
func IRR(flows []CashFlow) float64 {
	if len(flows) == 0 {
		return 0
	}

	rate := irrInitialGuess
	for i := 0; i < irrMaxIterations; i++ {
		npv, deriv := npvAndDerivative(flows, rate)
		if math.Abs(deriv) < irrDerivEpsilon {
			break
		}
		next := rate - npv/deriv
		// The discount base 1+rate must stay positive or the powers of it
		// flip sign and the iteration diverges. Halve the distance toward
		// -1 instead of overshooting past it.
		if next <= -1 {
			next = (rate - 1) / 2
		}
		if math.Abs(next-rate) < irrTolerance {
			return next
		}
		rate = next
	}
	return rate
}

// npvAndDerivative evaluates NPV and dNPV/dr at an annual rate.
// Flows are discounted by (1+r)^(month/12).
func npvAndDerivative(flows []CashFlow, rate float64) (float64, float64) {
	npv := 0.0
	deriv := 0.0
	for _, f := range flows {
		t := float64(f.Month) / 12
		discount := math.Pow(1+rate, t)
		npv += f.Amount / discount
		deriv -= f.Amount * t / (discount * (1 + rate))
	}
	return npv, deriv
}
