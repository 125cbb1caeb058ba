// Package align runs alignment passes over a batch of positions: snap to a
// hex grid, optionally resize the grid by a delta, keep only the selected
// axes, and report the reference radius for the next pass.
//
// AlignPositions is the stateless batch operation. Aligner wraps it for a
// Host (an editor selection) and advances a caller-owned State, so repeated
// expand and contract passes compound.
package align
