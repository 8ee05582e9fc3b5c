package roundup

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/roundup/internal/models"
)

// RenderMonthlyChart renders a PNG bar chart of round-ups per month.
func RenderMonthlyChart(stats []models.MonthlyRoundUps) ([]byte, error) {
	bars := make([]chart.Value, 0, len(stats))
	top := 0.0
	for _, m := range stats {
		bars = append(bars, chart.Value{
			Label: m.Month,
			Value: m.RoundUps,
			Style: chart.Style{
				FillColor:   drawing.ColorFromHex("16a34a"),
				StrokeColor: drawing.ColorFromHex("15803d"),
				StrokeWidth: 1,
			},
		})
		if m.RoundUps > top {
			top = m.RoundUps
		}
	}
	if top <= 0 {
		return nil, models.NewValidationError("round_ups", "nothing to chart yet")
	}

	bc := chart.BarChart{
		Title:    "Round-ups per month",
		Width:    800,
		Height:   400,
		BarWidth: 40,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{
			Range:          &chart.ContinuousRange{Min: 0, Max: top * 1.1},
			ValueFormatter: func(v interface{}) string { return fmt.Sprintf("%.2f", v) },
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := bc.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}
