// Package hex implements hexagonal grid math: axial and cube coordinates,
// neighbor and ring iteration, and snapping plane positions to the nearest
// cell center for flat-top and pointy-top grids.
//
// Radii are outer radii (center to vertex) unless a RadiusUnit says
// otherwise; ToOuter and ToInner convert between the two.
//
//	p, err := hex.Snap(hex.Point{X: 6.8, Y: 4.1}, hex.FlatTop, 5, 5)
package hex
