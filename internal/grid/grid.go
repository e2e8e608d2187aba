// Package grid owns the world sampling lattice and the occupancy array that
// the navigability sampler fills.
//
// Key types: WorldGrid, Occupancy.
// No simulator or file I/O code is allowed in this package.
package grid

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ErrInvalidGrid is returned when the grid parameters cannot describe a lattice.
var ErrInvalidGrid = errors.New("invalid grid parameters")

// sizeEpsilon absorbs float error in 2*WorldSize/CellSize so that exact
// multiples (e.g. 20/0.1) do not round up to an extra cell.
const sizeEpsilon = 1e-9

// WorldGrid is a regular lattice of (x, z) sample points spanning
// [-WorldSize, WorldSize) on both axes with CellSize spacing.
type WorldGrid struct {
	CellSize  float64
	WorldSize float64

	// X holds the raw (corner) coordinate of every column, Z of every row.
	X []float64
	Z []float64
}

// NewWorldGrid builds the sampling lattice. The result is a pure function of
// its two arguments.
func NewWorldGrid(cellSize, worldSize float64) (*WorldGrid, error) {
	if cellSize <= 0 || math.IsNaN(cellSize) || math.IsInf(cellSize, 0) {
		return nil, fmt.Errorf("%w: cell size must be positive, got %v", ErrInvalidGrid, cellSize)
	}
	if worldSize <= 0 || math.IsNaN(worldSize) || math.IsInf(worldSize, 0) {
		return nil, fmt.Errorf("%w: world size must be positive, got %v", ErrInvalidGrid, worldSize)
	}

	n := AxisLen(cellSize, worldSize)
	axis := make([]float64, n)
	if n == 1 {
		axis[0] = -worldSize
	} else {
		floats.Span(axis, -worldSize, -worldSize+float64(n-1)*cellSize)
	}

	z := make([]float64, n)
	copy(z, axis)

	return &WorldGrid{
		CellSize:  cellSize,
		WorldSize: worldSize,
		X:         axis,
		Z:         z,
	}, nil
}

// AxisLen returns the number of samples along one axis:
// ceil(2*worldSize/cellSize).
func AxisLen(cellSize, worldSize float64) int {
	return int(math.Ceil(2*worldSize/cellSize - sizeEpsilon))
}

// Dims returns (rows, cols) of the lattice.
func (g *WorldGrid) Dims() (int, int) {
	return len(g.Z), len(g.X)
}

// CellCenter returns the world (x, z) of the centre of cell (gz, gx). The raw
// lattice value marks the cell corner, so half a cell is added on each axis.
func (g *WorldGrid) CellCenter(gz, gx int) (float64, float64) {
	half := g.CellSize / 2.0
	return g.X[gx] + half, g.Z[gz] + half
}

// NewOccupancy allocates a zeroed occupancy array matching the lattice.
func (g *WorldGrid) NewOccupancy() *Occupancy {
	rows, cols := g.Dims()
	return NewOccupancy(rows, cols)
}
