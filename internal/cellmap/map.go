// Package cellmap indexes which objects occupy which grid cells, so that a
// pass which snaps several objects onto the same cell can be reported.
package cellmap

import (
	"slices"

	"github.com/gravitas-games/hexalign/pkg/hex"
)

// DefaultChunkSize is the chunk edge length used when New gets a size < 1
const DefaultChunkSize = 16

// CellMap is a sparse chunked index from cells to object handles
type CellMap struct {
	Chunks    map[hex.Axial]*Chunk
	ChunkSize int
	cells     int
}

// Overlap is a cell holding more than one object
type Overlap struct {
	Cell    hex.Axial
	Handles []string
}

// New creates an empty map with the given chunk size
func New(chunkSize int) *CellMap {
	if chunkSize < 1 {
		chunkSize = DefaultChunkSize
	}
	return &CellMap{
		Chunks:    make(map[hex.Axial]*Chunk),
		ChunkSize: chunkSize,
	}
}

// FromCells indexes cells[i] as occupied by handles[i]. Both slices must
// have the same length.
func FromCells(cells []hex.Axial, handles []string) *CellMap {
	m := New(DefaultChunkSize)
	for i, c := range cells {
		m.Add(c, handles[i])
	}
	return m
}

// Add records handle as occupying cell
func (m *CellMap) Add(cell hex.Axial, handle string) {
	pos := chunkOf(cell, m.ChunkSize)
	chunk, ok := m.Chunks[pos]
	if !ok {
		chunk = newChunk(pos)
		m.Chunks[pos] = chunk
	}
	if len(chunk.Cells[cell]) == 0 {
		m.cells++
	}
	chunk.add(cell, handle)
}

// GetChunk retrieves the chunk containing cell
func (m *CellMap) GetChunk(cell hex.Axial) (*Chunk, bool) {
	chunk, exists := m.Chunks[chunkOf(cell, m.ChunkSize)]
	return chunk, exists
}

// Occupants returns the handles placed on cell, in insertion order
func (m *CellMap) Occupants(cell hex.Axial) []string {
	if chunk, ok := m.GetChunk(cell); ok {
		return chunk.Occupants(cell)
	}
	return nil
}

// CellCount returns the number of distinct occupied cells
func (m *CellMap) CellCount() int {
	return m.cells
}

// Overlaps returns every cell with more than one occupant, ordered by R then Q
func (m *CellMap) Overlaps() []Overlap {
	var out []Overlap
	for _, chunk := range m.Chunks {
		for cell, handles := range chunk.Cells {
			if len(handles) > 1 {
				out = append(out, Overlap{Cell: cell, Handles: handles})
			}
		}
	}
	slices.SortFunc(out, func(a, b Overlap) int {
		if a.Cell.R != b.Cell.R {
			return a.Cell.R - b.Cell.R
		}
		return a.Cell.Q - b.Cell.Q
	})
	return out
}
