package occmap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/navgrid/internal/grid"
	"github.com/banshee-data/navgrid/internal/semmap"
	"github.com/banshee-data/navgrid/internal/sim"
)

var (
	// ErrOutOfBounds is returned when a navigable sample converts to map
	// coordinates outside the full occupancy array.
	ErrOutOfBounds = errors.New("converted coordinate outside occupancy array")
	// ErrShapeMismatch is returned when the crop window cannot produce an
	// array of the semantic map's shape.
	ErrShapeMismatch = errors.New("occupancy crop does not match semantic map shape")
)

// CoordConverter maps a world (x, z) to (col, row) indices of the full array.
type CoordConverter func(x, z float64) (int, int)

// Params are the per-scene inputs of a build.
type Params struct {
	Scene string
	// Height is the y of every query. It must be the floor height the
	// semantic map was built at.
	Height          float64
	HeightTolerance float64
	// ProgressEveryRows logs progress after this many rows. Zero disables it.
	ProgressEveryRows int
}

// Stats summarizes a sampling pass.
type Stats struct {
	Queries   int
	Navigable int
	Elapsed   time.Duration
}

// Builder samples one scene.
type Builder struct {
	grid    *grid.WorldGrid
	meta    *semmap.Meta
	params  Params
	convert CoordConverter

	stats Stats
}

// Option configures a Builder.
type Option func(*Builder)

// WithConverter replaces the semantic map's non-cropped pose conversion.
func WithConverter(c CoordConverter) Option {
	return func(b *Builder) { b.convert = c }
}

// NewBuilder checks that the lattice and sample height agree with the
// semantic map and returns a Builder for it.
func NewBuilder(g *grid.WorldGrid, meta *semmap.Meta, p Params, opts ...Option) (*Builder, error) {
	if g == nil || meta == nil {
		return nil, fmt.Errorf("occmap: grid and semantic map are required")
	}
	if err := meta.WithFrame(g.CellSize, g.WorldSize); err != nil {
		return nil, err
	}
	recorded, err := meta.CheckHeight(p.Height, p.HeightTolerance)
	if err != nil {
		return nil, err
	}
	if !recorded {
		opsf("semantic map for scene %q records no build height; assuming %.5f matches", p.Scene, p.Height)
	}

	b := &Builder{grid: g, meta: meta, params: p}
	b.convert = func(x, z float64) (int, int) { return meta.PoseToCoords(x, z, false) }
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Stats returns the counters of the last Sample call.
func (b *Builder) Stats() Stats { return b.stats }

// Sample queries the simulator at every cell centre and returns the full,
// uncropped occupancy array. Queries are issued one at a time in row-major
// order; ctx is checked before every row.
func (b *Builder) Sample(ctx context.Context, s sim.Simulator) (*grid.Occupancy, error) {
	start := time.Now()
	rows, cols := b.grid.Dims()
	full := b.grid.NewOccupancy()
	b.stats = Stats{}

	diagf("sampling scene %q: %dx%d cells at height %.5f", b.params.Scene, rows, cols, b.params.Height)

	for gz := 0; gz < rows; gz++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("sampling interrupted at row %d: %w", gz, err)
		}
		for gx := 0; gx < cols; gx++ {
			x, z := b.grid.CellCenter(gz, gx)
			p := sim.Vec3{X: x, Y: b.params.Height, Z: z}

			ok, err := s.IsNavigable(ctx, p)
			b.stats.Queries++
			if err != nil {
				return nil, fmt.Errorf("cell (%d, %d): %w", gz, gx, err)
			}
			if !ok {
				continue
			}

			cx, cz := b.convert(x, z)
			if err := full.Set(cz, cx, grid.Navigable); err != nil {
				return nil, fmt.Errorf("%w: cell (%d, %d) at %s maps to (%d, %d)", ErrOutOfBounds, gz, gx, p, cz, cx)
			}
			b.stats.Navigable++
			tracef("cell (%d, %d) navigable -> (%d, %d)", gz, gx, cz, cx)
		}
		if n := b.params.ProgressEveryRows; n > 0 && (gz+1)%n == 0 {
			diagf("sampled %d/%d rows, %d navigable so far", gz+1, rows, b.stats.Navigable)
		}
	}

	b.stats.Elapsed = time.Since(start)
	diagf("sampling done: %d queries, %d navigable, took %s", b.stats.Queries, b.stats.Navigable, b.stats.Elapsed)
	return full, nil
}

// Align crops the full array to [min_z:max_z+1, min_x:max_x+1] of the
// semantic map. The result shares storage with full.
func Align(full *grid.Occupancy, meta *semmap.Meta) (*grid.Occupancy, error) {
	cropped, err := full.Crop(meta.MinZ(), meta.MinX(), meta.MaxZ(), meta.MaxX())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShapeMismatch, err)
	}
	rows, cols := cropped.Dims()
	if cols != meta.WH[0] || rows != meta.WH[1] {
		return nil, fmt.Errorf("%w: cropped %dx%d, semantic map wh %v", ErrShapeMismatch, cols, rows, meta.WH)
	}
	return cropped, nil
}

// Build samples, aligns and packages the scene.
func (b *Builder) Build(ctx context.Context, s sim.Simulator) (*Record, error) {
	full, err := b.Sample(ctx, s)
	if err != nil {
		return nil, err
	}
	cropped, err := Align(full, b.meta)
	if err != nil {
		return nil, err
	}
	if lost := b.stats.Navigable - cropped.Count(); lost > 0 {
		opsf("%d navigable cells fall outside the semantic map window and were cropped", lost)
	}
	return NewRecord(b.params.Scene, cropped, b.meta, b.params.Height), nil
}
