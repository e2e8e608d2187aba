// Package semmap reads the metadata of a pre-built semantic BEV map and
// converts between world poses and map grid coordinates in its frame.
//
// The semantic map is the authority on the crop window: coords_range and
// pose_range define where the occupancy map is cut so both layers overlay.
package semmap

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"

	"github.com/banshee-data/navgrid/internal/fsutil"
)

// FileName is the semantic map metadata file inside a scene folder.
const FileName = "BEV_semantic_map.json"

var (
	// ErrInvalidMeta is returned when the metadata violates the frame contract.
	ErrInvalidMeta = errors.New("invalid semantic map metadata")
	// ErrHeightMismatch is returned when the sample height differs from the
	// height the semantic map was built at.
	ErrHeightMismatch = errors.New("sample height does not match semantic map height")
	// ErrFrameMismatch is returned when cell or world size differ from the map's.
	ErrFrameMismatch = errors.New("grid frame does not match semantic map frame")
)

// Meta is the normalized metadata of a semantic map.
type Meta struct {
	Scene string `json:"scene,omitempty"`

	// CoordsRange is min_x, min_z, max_x, max_z in non-cropped grid indices.
	CoordsRange [4]int `json:"coords_range"`
	// PoseRange is min_X, min_Z, max_X, max_Z in world metres.
	PoseRange [4]float64 `json:"pose_range"`
	// WH is the width and height of the cropped semantic map.
	WH [2]int `json:"wh"`

	// Optional build parameters. Zero or nil means the builder did not record them.
	CellSize  float64  `json:"cell_size,omitempty"`
	WorldSize float64  `json:"world_size,omitempty"`
	Height    *float64 `json:"height,omitempty"`

	// SemanticMap is the optional label grid, H rows of W labels.
	SemanticMap [][]int `json:"semantic_map,omitempty"`
}

// Path returns <folder>/<scene>/BEV_semantic_map.json.
func Path(folder, scene string) string {
	return filepath.Join(folder, scene, FileName)
}

// Read loads and validates the metadata at path.
func Read(fsys fsutil.FileSystem, path string) (*Meta, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read semantic map: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates metadata bytes.
func Parse(data []byte) (*Meta, error) {
	m := &Meta{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse semantic map JSON: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Meta) MinX() int { return m.CoordsRange[0] }
func (m *Meta) MinZ() int { return m.CoordsRange[1] }
func (m *Meta) MaxX() int { return m.CoordsRange[2] }
func (m *Meta) MaxZ() int { return m.CoordsRange[3] }

// CroppedDims returns (rows, cols) of the crop window.
func (m *Meta) CroppedDims() (int, int) {
	return m.MaxZ() - m.MinZ() + 1, m.MaxX() - m.MinX() + 1
}

// Validate checks the frame contract: a non-empty, non-negative window whose
// size equals wh, and an ordered pose range.
func (m *Meta) Validate() error {
	if m.MinX() < 0 || m.MinZ() < 0 {
		return fmt.Errorf("%w: coords_range %v has negative minimum", ErrInvalidMeta, m.CoordsRange)
	}
	if m.MaxX() < m.MinX() || m.MaxZ() < m.MinZ() {
		return fmt.Errorf("%w: coords_range %v is empty", ErrInvalidMeta, m.CoordsRange)
	}
	if m.PoseRange[2] < m.PoseRange[0] || m.PoseRange[3] < m.PoseRange[1] {
		return fmt.Errorf("%w: pose_range %v is not ordered", ErrInvalidMeta, m.PoseRange)
	}
	rows, cols := m.CroppedDims()
	if m.WH[0] != cols || m.WH[1] != rows {
		return fmt.Errorf("%w: wh %v does not match coords_range window %dx%d", ErrInvalidMeta, m.WH, cols, rows)
	}
	if len(m.SemanticMap) > 0 {
		if len(m.SemanticMap) != rows {
			return fmt.Errorf("%w: semantic_map has %d rows, want %d", ErrInvalidMeta, len(m.SemanticMap), rows)
		}
		for i, row := range m.SemanticMap {
			if len(row) != cols {
				return fmt.Errorf("%w: semantic_map row %d has %d cols, want %d", ErrInvalidMeta, i, len(row), cols)
			}
		}
	}
	if m.CellSize < 0 || m.WorldSize < 0 {
		return fmt.Errorf("%w: negative cell_size or world_size", ErrInvalidMeta)
	}
	return nil
}

// WithFrame fills an unrecorded cell or world size from the configuration and
// rejects recorded values that disagree with it. The pose conversions need
// both values set.
func (m *Meta) WithFrame(cellSize, worldSize float64) error {
	const tol = 1e-9
	if m.CellSize == 0 {
		m.CellSize = cellSize
	} else if math.Abs(m.CellSize-cellSize) > tol {
		return fmt.Errorf("%w: semantic map cell_size %v, configured %v", ErrFrameMismatch, m.CellSize, cellSize)
	}
	if m.WorldSize == 0 {
		m.WorldSize = worldSize
	} else if math.Abs(m.WorldSize-worldSize) > tol {
		return fmt.Errorf("%w: semantic map world_size %v, configured %v", ErrFrameMismatch, m.WorldSize, worldSize)
	}
	return nil
}

// CheckHeight compares the sample height against the recorded build height.
// It reports false when the map carries no height, so the caller can warn.
func (m *Meta) CheckHeight(height, tolerance float64) (bool, error) {
	if m.Height == nil {
		return false, nil
	}
	if math.Abs(*m.Height-height) > tolerance {
		return true, fmt.Errorf("%w: sample %.5f, semantic map %.5f (tolerance %.5f)",
			ErrHeightMismatch, height, *m.Height, tolerance)
	}
	return true, nil
}

// PoseToCoords maps a world (x, z) to grid indices. Non-cropped indices
// address the full world lattice; cropped ones are relative to pose_range.
func (m *Meta) PoseToCoords(x, z float64, cropped bool) (int, int) {
	if cropped {
		cx := int(math.Floor((x - m.PoseRange[0]) / m.CellSize))
		cz := int(math.Floor((z - m.PoseRange[1]) / m.CellSize))
		return cx, cz
	}
	cx := int(math.Floor((x + m.WorldSize) / m.CellSize))
	cz := int(math.Floor((z + m.WorldSize) / m.CellSize))
	return cx, cz
}

// CoordsToPose returns the world (x, z) of the centre of grid cell (cx, cz).
func (m *Meta) CoordsToPose(cx, cz int, cropped bool) (float64, float64) {
	half := m.CellSize / 2.0
	if cropped {
		return m.PoseRange[0] + float64(cx)*m.CellSize + half,
			m.PoseRange[1] + float64(cz)*m.CellSize + half
	}
	return -m.WorldSize + float64(cx)*m.CellSize + half,
		-m.WorldSize + float64(cz)*m.CellSize + half
}

// Write stores the metadata as indented JSON at path, creating the scene folder.
func Write(fsys fsutil.FileSystem, path string, m *Meta) error {
	if err := m.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode semantic map: %w", err)
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create scene dir: %w", err)
	}
	if err := fsys.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write semantic map: %w", err)
	}
	return nil
}
