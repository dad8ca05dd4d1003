package domain

import "time"

// PriceRow holds one calendar month of closing prices for the tracked pair.
// Month is the first day of the month, UTC. A price series is a chronologically
// ordered, monthly-spaced sequence of rows with no gaps.
type PriceRow struct {
	SeriesID       string    // price series identifier
	Month          time.Time // first of month, UTC
	BasePrice      float64   // base index fund close
	LeveragedPrice float64   // 2x leveraged fund close
}

// MonthKey normalizes a timestamp to the first day of its month in UTC.
func MonthKey(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
