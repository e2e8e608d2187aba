package occmap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/navgrid/internal/grid"
	"github.com/banshee-data/navgrid/internal/semmap"
	"github.com/banshee-data/navgrid/internal/sim"
	"github.com/banshee-data/navgrid/internal/sim/simtest"
)

// makeSmallScene returns a 4x4 lattice (cell 1m, world [-2,2)) and a semantic
// map whose window covers columns 1..2 and all rows.
func makeSmallScene(t *testing.T) (*grid.WorldGrid, *semmap.Meta) {
	t.Helper()
	g, err := grid.NewWorldGrid(1, 2)
	require.NoError(t, err)
	meta := &semmap.Meta{
		Scene:       "small",
		CoordsRange: [4]int{1, 0, 2, 3},
		PoseRange:   [4]float64{-1, -2, 1, 2},
		WH:          [2]int{2, 4},
	}
	require.NoError(t, meta.Validate())
	return g, meta
}

func TestSample_NeverNavigable(t *testing.T) {
	t.Parallel()

	g, err := grid.NewWorldGrid(0.1, 10)
	require.NoError(t, err)
	meta := &semmap.Meta{CoordsRange: [4]int{0, 0, 199, 199}, PoseRange: [4]float64{-10, -10, 10, 10}, WH: [2]int{200, 200}}

	b, err := NewBuilder(g, meta, Params{Scene: "s"})
	require.NoError(t, err)

	fake := &simtest.Fake{Navigable: simtest.NeverNavigable}
	full, err := b.Sample(context.Background(), fake)
	require.NoError(t, err)

	rows, cols := full.Dims()
	assert.Equal(t, 200, rows)
	assert.Equal(t, 200, cols)
	assert.Zero(t, full.Count())
	assert.Equal(t, 200*200, fake.Queries)
	assert.Equal(t, Stats{Queries: 40000, Navigable: 0, Elapsed: b.Stats().Elapsed}, b.Stats())
}

func TestSample_AlwaysNavigableIdentity(t *testing.T) {
	t.Parallel()

	g, meta := makeSmallScene(t)
	b, err := NewBuilder(g, meta, Params{Scene: "small"})
	require.NoError(t, err)

	full, err := b.Sample(context.Background(), &simtest.Fake{Navigable: simtest.AlwaysNavigable})
	require.NoError(t, err)

	rows, cols := full.Dims()
	assert.Equal(t, rows*cols, full.Count())
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			assert.Equal(t, grid.Navigable, full.At(r, c), "cell (%d, %d)", r, c)
		}
	}
}

func TestSample_QueriesCellCentersAtHeight(t *testing.T) {
	t.Parallel()

	g, meta := makeSmallScene(t)
	b, err := NewBuilder(g, meta, Params{Scene: "small", Height: 0.16325})
	require.NoError(t, err)

	fake := &simtest.Fake{Record: true}
	_, err = b.Sample(context.Background(), fake)
	require.NoError(t, err)

	require.Len(t, fake.Points, 16)
	assert.Equal(t, sim.Vec3{X: -1.5, Y: 0.16325, Z: -1.5}, fake.Points[0])
	assert.Equal(t, sim.Vec3{X: -0.5, Y: 0.16325, Z: -1.5}, fake.Points[1])
	assert.Equal(t, sim.Vec3{X: -1.5, Y: 0.16325, Z: -0.5}, fake.Points[4])
	assert.Equal(t, sim.Vec3{X: 1.5, Y: 0.16325, Z: 1.5}, fake.Points[15])
}

func TestSample_Converter(t *testing.T) {
	t.Parallel()

	g, meta := makeSmallScene(t)
	// Mirror every hit onto column 0 of its row.
	mirror := func(x, z float64) (int, int) {
		_, cz := meta.PoseToCoords(x, z, false)
		return 0, cz
	}
	b, err := NewBuilder(g, meta, Params{Scene: "small"}, WithConverter(mirror))
	require.NoError(t, err)

	full, err := b.Sample(context.Background(), &simtest.Fake{Navigable: simtest.AlwaysNavigable})
	require.NoError(t, err)
	assert.Equal(t, 4, full.Count())
	assert.Equal(t, 16, b.Stats().Navigable)
}

func TestSample_OutOfBounds(t *testing.T) {
	t.Parallel()

	g, meta := makeSmallScene(t)
	b, err := NewBuilder(g, meta, Params{Scene: "small"}, WithConverter(func(x, z float64) (int, int) { return 4, 0 }))
	require.NoError(t, err)

	_, err = b.Sample(context.Background(), &simtest.Fake{Navigable: simtest.AlwaysNavigable})
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestSample_SimulatorError(t *testing.T) {
	t.Parallel()

	g, meta := makeSmallScene(t)
	b, err := NewBuilder(g, meta, Params{Scene: "small"})
	require.NoError(t, err)

	fake := &simtest.Fake{FailAfter: 5}
	_, err = b.Sample(context.Background(), fake)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cell (1, 0)")
	assert.Equal(t, 5, fake.Queries)
}

func TestSample_ContextCancelled(t *testing.T) {
	t.Parallel()

	g, meta := makeSmallScene(t)
	b, err := NewBuilder(g, meta, Params{Scene: "small"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := &simtest.Fake{}
	_, err = b.Sample(ctx, fake)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, fake.Queries)
}

func TestNewBuilder_Preconditions(t *testing.T) {
	t.Parallel()

	g, meta := makeSmallScene(t)
	h := 0.5
	meta.Height = &h

	_, err := NewBuilder(g, meta, Params{Height: 0.16, HeightTolerance: 0.01})
	assert.ErrorIs(t, err, semmap.ErrHeightMismatch)

	_, err = NewBuilder(g, meta, Params{Height: 0.505, HeightTolerance: 0.01})
	assert.NoError(t, err)

	_, meta2 := makeSmallScene(t)
	meta2.CellSize = 0.5
	_, err = NewBuilder(g, meta2, Params{})
	assert.ErrorIs(t, err, semmap.ErrFrameMismatch)

	_, err = NewBuilder(nil, meta2, Params{})
	assert.Error(t, err)
}

func TestAlign(t *testing.T) {
	t.Parallel()

	full := grid.NewOccupancy(10, 10)
	meta := &semmap.Meta{CoordsRange: [4]int{2, 3, 5, 7}, PoseRange: [4]float64{0, 0, 1, 1}, WH: [2]int{4, 5}}

	cropped, err := Align(full, meta)
	require.NoError(t, err)
	rows, cols := cropped.Dims()
	assert.Equal(t, 5, rows)
	assert.Equal(t, 4, cols)

	// Window past the array edge.
	meta.CoordsRange = [4]int{8, 3, 11, 7}
	_, err = Align(full, meta)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	// Window inside but wh disagrees.
	meta.CoordsRange = [4]int{2, 3, 5, 7}
	meta.WH = [2]int{5, 4}
	_, err = Align(full, meta)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestBuild(t *testing.T) {
	t.Parallel()

	g, meta := makeSmallScene(t)
	b, err := NewBuilder(g, meta, Params{Scene: "small", Height: 0.2})
	require.NoError(t, err)

	fake := &simtest.Fake{Navigable: func(p sim.Vec3) bool { return p.X > 0 }}
	rec, err := b.Build(context.Background(), fake)
	require.NoError(t, err)
	require.NoError(t, rec.Validate())

	assert.Equal(t, "small", rec.Scene)
	assert.NotEmpty(t, rec.RunID)
	assert.Equal(t, 4, rec.Rows)
	assert.Equal(t, 2, rec.Cols)
	assert.Equal(t, []uint8{0, 1, 0, 1, 0, 1, 0, 1}, rec.Occupancy)
	assert.Equal(t, 4, rec.NavigableCount)
	assert.Equal(t, 1, rec.MinX)
	assert.Equal(t, 2, rec.MaxX)
	assert.Equal(t, 0, rec.MinZ)
	assert.Equal(t, 3, rec.MaxZ)
	assert.Equal(t, -1.0, rec.MinXPose)
	assert.Equal(t, 1.0, rec.MaxXPose)
	assert.Equal(t, -2.0, rec.MinZPose)
	assert.Equal(t, 2.0, rec.MaxZPose)
	assert.Equal(t, 2, rec.W)
	assert.Equal(t, 4, rec.H)
	assert.Equal(t, 0.2, rec.Height)
	assert.Equal(t, 1.0, rec.CellSize)
	assert.Equal(t, 8, b.Stats().Navigable)
}
