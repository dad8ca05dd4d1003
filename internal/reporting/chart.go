package reporting

import (
	"errors"
	"fmt"

	"github.com/vicanso/go-charts/v2"

	"github.com/yutaofr/clec-strategy-backtest/internal/domain"
)

// Too many x labels make month ticks unreadable; let the renderer thin them.
const chartXSplit = 12

// EquityCurve is one named line on the equity chart.
type EquityCurve struct {
	Label  string
	Values []float64
}

// CurveFromHistory extracts the equity series of a run for charting.
func CurveFromHistory(label string, history []domain.PortfolioState) EquityCurve {
	values := make([]float64, len(history))
	for i := range history {
		values[i] = history[i].Equity
	}
	return EquityCurve{Label: label, Values: values}
}

// RenderEquityChart renders equity curves as a PNG line chart.
// All curves must have exactly one value per x label.
func RenderEquityChart(title string, xLabels []string, curves []EquityCurve) ([]byte, error) {
	if len(curves) == 0 {
		return nil, errors.New("reporting: no curves to render")
	}

	values := make([][]float64, 0, len(curves))
	names := make([]string, 0, len(curves))
	for _, c := range curves {
		if len(c.Values) != len(xLabels) {
			return nil, fmt.Errorf("reporting: curve %q has %d values, want %d", c.Label, len(c.Values), len(xLabels))
		}
		values = append(values, c.Values)
		names = append(names, c.Label)
	}

	painter, err := charts.LineRender(values,
		charts.TitleTextOptionFunc(title),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        xLabels,
			BoundaryGap: charts.FalseFlag(),
			SplitNumber: chartXSplit,
		}),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: names,
			Top:  charts.PositionTop,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(1000),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, fmt.Errorf("render equity chart: %w", err)
	}

	return painter.Bytes()
}

// MonthLabels formats history months as chart x labels.
func MonthLabels(history []domain.PortfolioState) []string {
	labels := make([]string, len(history))
	for i := range history {
		labels[i] = history[i].Month.Format("2006-01")
	}
	return labels
}
