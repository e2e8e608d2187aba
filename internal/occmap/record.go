package occmap

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/navgrid/internal/grid"
	"github.com/banshee-data/navgrid/internal/semmap"
)

// Record is the persisted result for one scene: the cropped occupancy array
// and the bounds that tie it to the semantic map frame.
type Record struct {
	RunID            string
	Scene            string
	CreatedUnixNanos int64
	Height           float64
	CellSize         float64

	// Occupancy is row-major, Rows x Cols.
	Rows, Cols int
	Occupancy  []uint8

	// Grid-space bounds (coords_range).
	MinX, MaxX, MinZ, MaxZ int
	// World-space bounds (pose_range).
	MinXPose, MaxXPose, MinZPose, MaxZPose float64
	// W, H of the semantic map (wh).
	W, H int

	NavigableCount int
}

// NewRecord packages a cropped occupancy array with the semantic map bounds.
func NewRecord(scene string, occ *grid.Occupancy, meta *semmap.Meta, height float64) *Record {
	rows, cols := occ.Dims()
	return &Record{
		RunID:            uuid.NewString(),
		Scene:            scene,
		CreatedUnixNanos: time.Now().UnixNano(),
		Height:           height,
		CellSize:         meta.CellSize,
		Rows:             rows,
		Cols:             cols,
		Occupancy:        occ.Cells(),
		MinX:             meta.CoordsRange[0],
		MaxX:             meta.CoordsRange[2],
		MinZ:             meta.CoordsRange[1],
		MaxZ:             meta.CoordsRange[3],
		MinXPose:         meta.PoseRange[0],
		MaxXPose:         meta.PoseRange[2],
		MinZPose:         meta.PoseRange[1],
		MaxZPose:         meta.PoseRange[3],
		W:                meta.WH[0],
		H:                meta.WH[1],
		NavigableCount:   occ.Count(),
	}
}

// Grid returns the occupancy as a grid.Occupancy backed by the record's cells.
func (r *Record) Grid() (*grid.Occupancy, error) {
	return grid.FromCells(r.Rows, r.Cols, r.Occupancy)
}

// Validate checks the alignment contract of the record.
func (r *Record) Validate() error {
	if r.Scene == "" {
		return fmt.Errorf("record has no scene")
	}
	if len(r.Occupancy) != r.Rows*r.Cols {
		return fmt.Errorf("record occupancy has %d cells, want %d", len(r.Occupancy), r.Rows*r.Cols)
	}
	if r.Rows != r.MaxZ-r.MinZ+1 || r.Cols != r.MaxX-r.MinX+1 {
		return fmt.Errorf("%w: record %dx%d, bounds x[%d,%d] z[%d,%d]",
			ErrShapeMismatch, r.Rows, r.Cols, r.MinX, r.MaxX, r.MinZ, r.MaxZ)
	}
	if r.Cols != r.W || r.Rows != r.H {
		return fmt.Errorf("%w: record %dx%d, wh [%d %d]", ErrShapeMismatch, r.Cols, r.Rows, r.W, r.H)
	}
	return nil
}

// Created returns the creation time.
func (r *Record) Created() time.Time { return time.Unix(0, r.CreatedUnixNanos) }

// Encode compresses the record using gob encoding and gzip compression.
func Encode(r *Record) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := gob.NewEncoder(gz)
	if err := enc.Encode(r); err != nil {
		gz.Close()
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode decompresses and decodes a record from a gob+gzip blob.
func Decode(blob []byte) (*Record, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("empty record blob")
	}
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	var r Record
	if err := gob.NewDecoder(gz).Decode(&r); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return &r, nil
}
