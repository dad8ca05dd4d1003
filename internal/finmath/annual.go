package finmath

import "time"

// ValuePoint is one dated value of a history series.
type ValuePoint struct {
	Month time.Time
	Value float64
}

// YearReturn is the simple return of one calendar year, as a percentage.
type YearReturn struct {
	Year      int
	ReturnPct float64
}

// AnnualReturns computes per-calendar-year simple returns over a monthly
// series. Each year's starting point is the prior December close when
// available, otherwise the year's first recorded value. A year whose start
// value is 0 yields a 0% return. Input must be in chronological order;
// output is ordered by year.
func AnnualReturns(points []ValuePoint) []YearReturn {
	if len(points) == 0 {
		return nil
	}

	var out []YearReturn
	var start, last float64
	var prevYearClose float64
	havePrevClose := false
	year := points[0].Month.Year()
	start = points[0].Value
	last = points[0].Value

	flush := func(y int) {
		s := start
		if havePrevClose {
			s = prevYearClose
		}
		ret := 0.0
		if s != 0 {
			ret = (last - s) / s * 100
		}
		out = append(out, YearReturn{Year: y, ReturnPct: ret})
	}

	for _, p := range points[1:] {
		if p.Month.Year() != year {
			flush(year)
			prevYearClose = last
			havePrevClose = true
			year = p.Month.Year()
			start = p.Value
		}
		last = p.Value
	}
	flush(year)

	return out
}

// WorstYearReturn returns the minimum annual return of the series, as a
// percentage. Returns 0 for an empty series.
func WorstYearReturn(points []ValuePoint) float64 {
	returns := AnnualReturns(points)
	if len(returns) == 0 {
		return 0
	}
	worst := returns[0].ReturnPct
	for _, r := range returns[1:] {
		if r.ReturnPct < worst {
			worst = r.ReturnPct
		}
	}
	return worst
}
