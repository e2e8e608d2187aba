// Package render draws occupancy maps: a colour image for inspection, a ROS
// map_server pair for robotics tooling, and an interactive HTML view.
package render

import (
	"fmt"
	"image/color"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/navgrid/internal/fsutil"
	"github.com/banshee-data/navgrid/internal/grid"
)

var (
	// Viridis end points, the same ramp the monitor dashboards use.
	blockedColor   = color.RGBA{R: 0x44, G: 0x01, B: 0x54, A: 0xff}
	navigableColor = color.RGBA{R: 0xfd, G: 0xe7, B: 0x25, A: 0xff}
)

// twoTone is a palette.Palette with one colour per occupancy value.
type twoTone struct{}

func (twoTone) Colors() []color.Color { return []color.Color{blockedColor, navigableColor} }

// occupancyXYZ adapts an Occupancy to plotter.GridXYZ. Row 0 of the array is
// drawn at the top, as an image would be.
type occupancyXYZ struct {
	occ        *grid.Occupancy
	rows, cols int
}

func (g occupancyXYZ) Dims() (c, r int)   { return g.cols, g.rows }
func (g occupancyXYZ) X(c int) float64    { return float64(c) }
func (g occupancyXYZ) Y(r int) float64    { return float64(r) }
func (g occupancyXYZ) Z(c, r int) float64 { return float64(g.occ.At(g.rows-1-r, c)) }

// ImageOptions control SaveOccupancyImage.
type ImageOptions struct {
	Title string
	// Width of the image; height follows the array aspect ratio.
	Width vg.Length
}

// NewOccupancyPlot returns a heatmap plot of occ.
func NewOccupancyPlot(occ *grid.Occupancy, title string) (*plot.Plot, error) {
	rows, cols := occ.Dims()
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("cannot plot empty occupancy %dx%d", rows, cols)
	}

	hm := plotter.NewHeatMap(occupancyXYZ{occ: occ, rows: rows, cols: cols}, twoTone{})
	hm.Min = 0
	hm.Max = 1

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x (cells)"
	p.Y.Label.Text = "z (cells, flipped)"
	p.Add(hm)
	return p, nil
}

// SaveOccupancyImage renders occ to path. The format follows the extension
// (jpg, png, svg, pdf...). The file is overwritten if it exists.
func SaveOccupancyImage(fsys fsutil.FileSystem, occ *grid.Occupancy, path string, opts ImageOptions) error {
	p, err := NewOccupancyPlot(occ, opts.Title)
	if err != nil {
		return err
	}

	width := opts.Width
	if width <= 0 {
		width = 8 * vg.Inch
	}
	rows, cols := occ.Dims()
	height := width * vg.Length(float64(rows)/float64(cols))
	if height < 2*vg.Inch {
		height = 2 * vg.Inch
	}

	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if format == "" {
		return fmt.Errorf("image path %q has no extension", path)
	}
	wt, err := p.WriterTo(width, height, format)
	if err != nil {
		return fmt.Errorf("failed to render %s plot: %w", format, err)
	}

	if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image: %w", err)
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write image: %w", err)
	}
	return f.Close()
}
