package grid

import (
	"errors"
	"fmt"
)

const (
	Blocked   uint8 = 0
	Navigable uint8 = 1
)

// ErrOutOfRange is returned for indices or windows outside the array.
var ErrOutOfRange = errors.New("index out of range")

// Occupancy is a row-major rows x cols array of 0/1 values. A cropped
// Occupancy is a view: it shares storage with its parent through stride and
// offset, so writes through either are visible in both.
type Occupancy struct {
	rows, cols int
	stride     int
	offset     int
	cells      []uint8
}

// NewOccupancy allocates a zeroed rows x cols array.
func NewOccupancy(rows, cols int) *Occupancy {
	if rows < 0 {
		rows = 0
	}
	if cols < 0 {
		cols = 0
	}
	return &Occupancy{
		rows:   rows,
		cols:   cols,
		stride: cols,
		cells:  make([]uint8, rows*cols),
	}
}

// FromCells wraps a compact row-major slice. The slice is used as-is.
func FromCells(rows, cols int, cells []uint8) (*Occupancy, error) {
	if rows < 0 || cols < 0 || len(cells) != rows*cols {
		return nil, fmt.Errorf("occupancy %dx%d needs %d cells, got %d", rows, cols, rows*cols, len(cells))
	}
	return &Occupancy{rows: rows, cols: cols, stride: cols, cells: cells}, nil
}

// Dims returns (rows, cols).
func (o *Occupancy) Dims() (int, int) { return o.rows, o.cols }

// InBounds reports whether (row, col) addresses a cell of this array.
func (o *Occupancy) InBounds(row, col int) bool {
	return row >= 0 && row < o.rows && col >= 0 && col < o.cols
}

func (o *Occupancy) index(row, col int) int {
	return o.offset + row*o.stride + col
}

// At returns the value at (row, col). It panics on out of range indices like
// a slice access would; use InBounds first when indices are untrusted.
func (o *Occupancy) At(row, col int) uint8 {
	if !o.InBounds(row, col) {
		panic(fmt.Sprintf("grid: At(%d, %d) outside %dx%d", row, col, o.rows, o.cols))
	}
	return o.cells[o.index(row, col)]
}

// Set writes v at (row, col). Out of range indices return ErrOutOfRange.
func (o *Occupancy) Set(row, col int, v uint8) error {
	if !o.InBounds(row, col) {
		return fmt.Errorf("%w: (%d, %d) outside %dx%d", ErrOutOfRange, row, col, o.rows, o.cols)
	}
	o.cells[o.index(row, col)] = v
	return nil
}

// Crop returns the view [rowMin:rowMax+1, colMin:colMax+1]. Bounds are
// inclusive on both ends.
func (o *Occupancy) Crop(rowMin, colMin, rowMax, colMax int) (*Occupancy, error) {
	if rowMin < 0 || colMin < 0 || rowMax < rowMin || colMax < colMin || rowMax >= o.rows || colMax >= o.cols {
		return nil, fmt.Errorf("%w: crop rows [%d,%d] cols [%d,%d] of %dx%d",
			ErrOutOfRange, rowMin, rowMax, colMin, colMax, o.rows, o.cols)
	}
	return &Occupancy{
		rows:   rowMax - rowMin + 1,
		cols:   colMax - colMin + 1,
		stride: o.stride,
		offset: o.index(rowMin, colMin),
		cells:  o.cells,
	}, nil
}

// Cells returns a compact row-major copy of the array.
func (o *Occupancy) Cells() []uint8 {
	out := make([]uint8, 0, o.rows*o.cols)
	for r := 0; r < o.rows; r++ {
		start := o.index(r, 0)
		out = append(out, o.cells[start:start+o.cols]...)
	}
	return out
}

// Count returns the number of navigable cells.
func (o *Occupancy) Count() int {
	n := 0
	for r := 0; r < o.rows; r++ {
		start := o.index(r, 0)
		for _, v := range o.cells[start : start+o.cols] {
			if v == Navigable {
				n++
			}
		}
	}
	return n
}

// Equal reports whether both arrays have the same shape and values.
func (o *Occupancy) Equal(other *Occupancy) bool {
	if o == nil || other == nil {
		return o == other
	}
	if o.rows != other.rows || o.cols != other.cols {
		return false
	}
	for r := 0; r < o.rows; r++ {
		for c := 0; c < o.cols; c++ {
			if o.At(r, c) != other.At(r, c) {
				return false
			}
		}
	}
	return true
}
