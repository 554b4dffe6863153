package report

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/aouyang1/go-demandcast"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// HTML renders an echarts page with the forecast and the fit of the model's window
type HTML struct {
	path       string
	dateLayout string
}

func NewHTML(path string) *HTML {
	return &HTML{path: path, dateLayout: time.DateOnly}
}

func (h *HTML) Emit(ctx context.Context, out *demandcast.Outcome) error {
	file, err := os.Create(h.path)
	if err != nil {
		return fmt.Errorf("unable to create %s, %w", h.path, err)
	}
	if err := h.Render(file, out); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Render writes the page to w
func (h *HTML) Render(w io.Writer, out *demandcast.Outcome) error {
	rows, err := Rows(out)
	if err != nil {
		return err
	}

	page := components.NewPage()
	page.PageTitle = "Demand Forecast"
	page.AddCharts(
		LineForecast(rows, h.dateLayout),
		LineTSeries(
			"Model Fit",
			[]string{"Observed", "Reconstruction"},
			windowTimes(out),
			[][]float64{out.Model.Window, out.Model.Reconstruction},
			h.dateLayout,
		),
	)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("unable to render page, %w", err)
	}
	return nil
}

// windowTimes stamps the model window ending at the last observed time
func windowTimes(out *demandcast.Outcome) []time.Time {
	n := len(out.Model.Window)
	t := make([]time.Time, n)
	for i := range t {
		t[i] = out.Model.LastTime.Add(-time.Duration(n-1-i) * out.Model.Interval)
	}
	return t
}

// lineValue maps NaN to an empty point so echarts leaves a gap
func lineValue(v float64) opts.LineData {
	if math.IsNaN(v) {
		return opts.LineData{Value: nil}
	}
	return opts.LineData{Value: v}
}

// LineTSeries generates an echart multi-line chart for some arbitrary time/value combination. The
// input y is a slice of series that must have the same length as the input time slice. NaN values
// are plotted as gaps.
func LineTSeries(title string, seriesName []string, t []time.Time, y [][]float64, layout string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
	)

	x := make([]string, len(t))
	for i, ct := range t {
		x[i] = ct.Format(layout)
	}
	line = line.SetXAxis(x)

	for i, series := range seriesName {
		if i >= len(y) {
			break
		}
		lineData := make([]opts.LineData, 0, len(t))
		for j := 0; j < len(t) && j < len(y[i]); j++ {
			lineData = append(lineData, lineValue(y[i][j]))
		}
		line = line.AddSeries(series, lineData)
	}
	return line
}

// LineForecast plots the forecast with its bounds alongside any observed values
func LineForecast(rows []Row, layout string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: "Forecast",
			},
		),
	)

	x := make([]string, 0, len(rows))
	lineDataActual := make([]opts.LineData, 0, len(rows))
	lineDataForecast := make([]opts.LineData, 0, len(rows))
	lineDataUpper := make([]opts.LineData, 0, len(rows))
	lineDataLower := make([]opts.LineData, 0, len(rows))

	for _, row := range rows {
		x = append(x, row.Time.Format(layout))
		actual := math.NaN()
		if row.Actual != nil {
			actual = *row.Actual
		}
		lineDataActual = append(lineDataActual, lineValue(actual))
		lineDataForecast = append(lineDataForecast, lineValue(row.Forecast))
		lineDataUpper = append(lineDataUpper, lineValue(row.Upper))
		lineDataLower = append(lineDataLower, lineValue(row.Lower))
	}

	line.SetXAxis(x).
		AddSeries("Actual", lineDataActual).
		AddSeries("Forecast", lineDataForecast).
		AddSeries("Upper", lineDataUpper).
		AddSeries("Lower", lineDataLower)
	return line
}
