package render

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/navgrid/internal/fsutil"
	"github.com/banshee-data/navgrid/internal/grid"
)

func diagonal(t *testing.T, rows, cols int) *grid.Occupancy {
	t.Helper()
	occ := grid.NewOccupancy(rows, cols)
	for i := 0; i < rows && i < cols; i++ {
		require.NoError(t, occ.Set(i, i, grid.Navigable))
	}
	return occ
}

func TestSaveOccupancyImage_Formats(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"occ_map.jpg", "occ_map.png"} {
		name := name
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			fsys := fsutil.NewMemoryFileSystem()
			path := filepath.Join("out", "scene", name)

			err := SaveOccupancyImage(fsys, diagonal(t, 8, 12), path, ImageOptions{Title: "scene"})
			require.NoError(t, err)

			data, err := fsys.ReadFile(path)
			require.NoError(t, err)
			img, _, err := image.Decode(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Greater(t, img.Bounds().Dx(), img.Bounds().Dy())
		})
	}
}

func TestSaveOccupancyImage_Errors(t *testing.T) {
	t.Parallel()

	fsys := fsutil.NewMemoryFileSystem()
	err := SaveOccupancyImage(fsys, grid.NewOccupancy(0, 0), "occ.png", ImageOptions{})
	assert.Error(t, err)

	err = SaveOccupancyImage(fsys, diagonal(t, 2, 2), "occ", ImageOptions{})
	assert.Error(t, err)

	err = SaveOccupancyImage(fsys, diagonal(t, 2, 2), "occ.bogus", ImageOptions{})
	assert.Error(t, err)
}

func TestOccupancyXYZ_FlipsRows(t *testing.T) {
	t.Parallel()

	occ := grid.NewOccupancy(3, 2)
	require.NoError(t, occ.Set(0, 1, grid.Navigable))
	xyz := occupancyXYZ{occ: occ, rows: 3, cols: 2}

	c, r := xyz.Dims()
	assert.Equal(t, 2, c)
	assert.Equal(t, 3, r)
	assert.Equal(t, 1.0, xyz.Z(1, 2))
	assert.Equal(t, 0.0, xyz.Z(1, 0))
}

func TestROSMap_RoundTrip(t *testing.T) {
	t.Parallel()

	fsys := fsutil.NewMemoryFileSystem()
	occ := diagonal(t, 5, 7)
	require.NoError(t, occ.Set(0, 6, grid.Navigable))

	yamlPath, err := WriteROSMap(fsys, occ, 0.1, -1.5, -2.0, "maps", "occ_map")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("maps", "occ_map.yaml"), yamlPath)
	assert.True(t, fsys.Exists(filepath.Join("maps", "occ_map.png")))

	yml, err := fsys.ReadFile(yamlPath)
	require.NoError(t, err)
	assert.Contains(t, string(yml), "image: occ_map.png")
	assert.Contains(t, string(yml), "origin: [-1.5, -2, 0]")

	got, meta, err := ReadROSMap(fsys, yamlPath)
	require.NoError(t, err)
	assert.True(t, occ.Equal(got))
	assert.Equal(t, 0.1, meta.Resolution)
	assert.Equal(t, "trinary", meta.Mode)
}

func TestROSMap_ImageIsFlipped(t *testing.T) {
	t.Parallel()

	fsys := fsutil.NewMemoryFileSystem()
	occ := grid.NewOccupancy(2, 2)
	require.NoError(t, occ.Set(0, 0, grid.Navigable))

	_, err := WriteROSMap(fsys, occ, 1, 0, 0, ".", "m")
	require.NoError(t, err)

	data, err := fsys.ReadFile("m.png")
	require.NoError(t, err)
	img, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	gray, ok := img.(*image.Gray)
	require.True(t, ok)
	assert.Equal(t, rosFreePixel, gray.GrayAt(0, 1).Y)
	assert.Equal(t, rosOccupiedPixel, gray.GrayAt(0, 0).Y)
}

func TestReadROSMap_PGM(t *testing.T) {
	t.Parallel()

	fsys := fsutil.NewMemoryFileSystem()
	// 2x1 binary PGM: left pixel free, right pixel occupied.
	pgm := append([]byte("P5\n2 1\n255\n"), 254, 0)
	require.NoError(t, fsys.WriteFile("m.pgm", pgm, 0644))
	require.NoError(t, fsys.WriteFile("m.yaml", []byte("image: m.pgm\nresolution: 0.05\norigin: [0, 0, 0]\nnegate: 0\noccupied_thresh: 0.65\nfree_thresh: 0.196\n"), 0644))

	occ, _, err := ReadROSMap(fsys, "m.yaml")
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 0}, occ.Cells())
}

func TestReadROSMap_Errors(t *testing.T) {
	t.Parallel()

	fsys := fsutil.NewMemoryFileSystem()
	_, _, err := ReadROSMap(fsys, "missing.yaml")
	assert.Error(t, err)

	require.NoError(t, fsys.WriteFile("noimg.yaml", []byte("resolution: 1\n"), 0644))
	_, _, err = ReadROSMap(fsys, "noimg.yaml")
	assert.Error(t, err)
}

func TestWriteROSMap_Invalid(t *testing.T) {
	t.Parallel()

	fsys := fsutil.NewMemoryFileSystem()
	_, err := WriteROSMap(fsys, grid.NewOccupancy(0, 3), 0.1, 0, 0, ".", "m")
	assert.Error(t, err)
	_, err = WriteROSMap(fsys, diagonal(t, 2, 2), 0, 0, 0, ".", "m")
	assert.Error(t, err)
}

func TestWriteHTML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, diagonal(t, 4, 4), "17DRP5sb8fy"))

	html := buf.String()
	assert.True(t, strings.Contains(html, "echarts"))
	assert.Contains(t, html, "17DRP5sb8fy")
	assert.Contains(t, html, "navigable")
}
