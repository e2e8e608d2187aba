package semmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/navgrid/internal/fsutil"
)

func validMeta() *Meta {
	return &Meta{
		Scene:       "2t7WUuJeko7",
		CoordsRange: [4]int{2, 3, 5, 7},
		PoseRange:   [4]float64{-9.8, -9.7, -9.4, -9.2},
		WH:          [2]int{4, 5},
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	data := []byte(`{
  "scene": "2t7WUuJeko7",
  "coords_range": [2, 3, 5, 7],
  "pose_range": [-9.8, -9.7, -9.4, -9.2],
  "wh": [4, 5],
  "cell_size": 0.1,
  "height": 0.16325
}`)
	m, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, 2, m.MinX())
	assert.Equal(t, 3, m.MinZ())
	assert.Equal(t, 5, m.MaxX())
	assert.Equal(t, 7, m.MaxZ())
	assert.Equal(t, [2]int{4, 5}, m.WH)
	require.NotNil(t, m.Height)
	assert.Equal(t, 0.16325, *m.Height)

	rows, cols := m.CroppedDims()
	assert.Equal(t, 5, rows)
	assert.Equal(t, 4, cols)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(m *Meta)
	}{
		{"wh mismatch", func(m *Meta) { m.WH = [2]int{5, 4} }},
		{"empty window", func(m *Meta) { m.CoordsRange = [4]int{5, 3, 2, 7} }},
		{"negative min", func(m *Meta) { m.CoordsRange = [4]int{-1, 3, 2, 7}; m.WH = [2]int{4, 5} }},
		{"unordered pose", func(m *Meta) { m.PoseRange = [4]float64{1, 0, 0, 1} }},
		{"semantic rows", func(m *Meta) { m.SemanticMap = [][]int{{1, 2, 3, 4}} }},
		{"negative cell size", func(m *Meta) { m.CellSize = -0.1 }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := validMeta()
			tt.mutate(m)
			assert.ErrorIs(t, m.Validate(), ErrInvalidMeta)
		})
	}

	assert.NoError(t, validMeta().Validate())
}

func TestWithFrame(t *testing.T) {
	t.Parallel()

	m := validMeta()
	require.NoError(t, m.WithFrame(0.1, 10))
	assert.Equal(t, 0.1, m.CellSize)
	assert.Equal(t, 10.0, m.WorldSize)

	// Recorded values must agree with the configuration.
	m = validMeta()
	m.CellSize = 0.05
	assert.ErrorIs(t, m.WithFrame(0.1, 10), ErrFrameMismatch)

	m = validMeta()
	m.WorldSize = 20
	assert.ErrorIs(t, m.WithFrame(0.1, 10), ErrFrameMismatch)
}

func TestCheckHeight(t *testing.T) {
	t.Parallel()

	m := validMeta()
	recorded, err := m.CheckHeight(0.5, 0.01)
	assert.False(t, recorded)
	assert.NoError(t, err)

	h := 0.16325
	m.Height = &h
	recorded, err = m.CheckHeight(0.165, 0.01)
	assert.True(t, recorded)
	assert.NoError(t, err)

	_, err = m.CheckHeight(1.2, 0.01)
	assert.ErrorIs(t, err, ErrHeightMismatch)
}

func TestPoseToCoords(t *testing.T) {
	t.Parallel()

	m := validMeta()
	require.NoError(t, m.WithFrame(0.1, 10))

	// Cell centres of the world lattice map back onto their own index.
	for _, idx := range []int{0, 1, 57, 199} {
		x, z := m.CoordsToPose(idx, idx, false)
		cx, cz := m.PoseToCoords(x, z, false)
		assert.Equal(t, idx, cx)
		assert.Equal(t, idx, cz)
	}

	cx, cz := m.PoseToCoords(-10+0.05, -10+0.35, false)
	assert.Equal(t, 0, cx)
	assert.Equal(t, 3, cz)

	// Cropped coordinates are relative to pose_range.
	cx, cz = m.PoseToCoords(-9.75, -9.55, true)
	assert.Equal(t, 0, cx)
	assert.Equal(t, 1, cz)

	x, z := m.CoordsToPose(0, 1, true)
	assert.InDelta(t, -9.75, x, 1e-9)
	assert.InDelta(t, -9.55, z, 1e-9)
}

func TestReadWrite(t *testing.T) {
	t.Parallel()

	mfs := fsutil.NewMemoryFileSystem()
	path := Path("/maps", "2t7WUuJeko7")
	assert.Equal(t, "/maps/2t7WUuJeko7/BEV_semantic_map.json", path)

	want := validMeta()
	want.SemanticMap = make([][]int, 5)
	for i := range want.SemanticMap {
		want.SemanticMap[i] = []int{0, 1, 2, 3}
	}
	require.NoError(t, Write(mfs, path, want))

	got, err := Read(mfs, path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = Read(mfs, Path("/maps", "missing"))
	assert.Error(t, err)
}
