package render

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/navgrid/internal/grid"
)

// WriteHTML renders the navigable cells of occ as an interactive scatter
// chart. Array row 0 is drawn at the top.
func WriteHTML(w io.Writer, occ *grid.Occupancy, title string) error {
	rows, cols := occ.Dims()
	data := make([]opts.ScatterData, 0, occ.Count())
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if occ.At(r, c) == grid.Navigable {
				data = append(data, opts.ScatterData{Value: []interface{}{c, rows - 1 - r}})
			}
		}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("%dx%d cells, %d navigable", cols, rows, len(data))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: cols, Name: "x (cells)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: rows, Name: "z (cells)", NameLocation: "middle", NameGap: 30}),
	)
	symbol := 900 / max(rows, cols)
	if symbol < 2 {
		symbol = 2
	}
	scatter.AddSeries("navigable", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: symbol}))

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("failed to render html: %w", err)
	}
	return nil
}
