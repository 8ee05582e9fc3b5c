package allocation

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/roundup/internal/models"
)

var bucketColors = map[models.Bucket]drawing.Color{
	models.BucketStocks: drawing.ColorFromHex("2563eb"), // blue-600
	models.BucketBonds:  drawing.ColorFromHex("16a34a"), // green-600
	models.BucketETFs:   drawing.ColorFromHex("f59e0b"), // amber-500
}

// RenderAllocationChart renders a PNG pie chart of the non-zero buckets.
func RenderAllocationChart(title string, a models.Allocation) ([]byte, error) {
	var values []chart.Value
	for _, b := range models.Buckets {
		w := a.Get(b)
		if w <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s %.0f%%", b, w),
			Value: w,
			Style: chart.Style{FillColor: bucketColors[b]},
		})
	}
	if len(values) == 0 {
		return nil, models.NewValidationError("allocation", "has no weighted buckets to chart")
	}

	pie := chart.PieChart{
		Title:  title,
		Width:  512,
		Height: 512,
		Values: values,
	}

	var buf bytes.Buffer
	if err := pie.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}
