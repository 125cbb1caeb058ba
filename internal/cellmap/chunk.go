package cellmap

import (
	"github.com/gravitas-games/hexalign/pkg/hex"
)

// Chunk holds the occupied cells of one Size x Size parallelogram of axial
// space.
type Chunk struct {
	Pos   hex.Axial              // Position in chunk grid
	Cells map[hex.Axial][]string // World cell -> handles, in insertion order
}

func newChunk(pos hex.Axial) *Chunk {
	return &Chunk{
		Pos:   pos,
		Cells: make(map[hex.Axial][]string),
	}
}

func (c *Chunk) add(cell hex.Axial, handle string) {
	c.Cells[cell] = append(c.Cells[cell], handle)
}

// Occupants returns the handles placed on cell
func (c *Chunk) Occupants(cell hex.Axial) []string {
	return c.Cells[cell]
}

// CellCount returns the number of occupied cells in this chunk
func (c *Chunk) CellCount() int {
	return len(c.Cells)
}

// chunkOf returns the chunk coordinate containing cell
func chunkOf(cell hex.Axial, size int) hex.Axial {
	return hex.Axial{Q: floorDiv(cell.Q, size), R: floorDiv(cell.R, size)}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
