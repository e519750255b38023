// Package ensimodel holds the core data model shared by every other
// package: coordinates, tiles, the map, and players.
package ensimodel

// Coord is a position on the map. Values are validated against a Map's
// bounds by the Map itself; Coord does not know its own bounds.
type Coord struct {
	X uint16
	Y uint16
}

// Index returns the row-major linear index of c on a map of width w.
func (c Coord) Index(w int) int {
	return int(c.Y)*w + int(c.X)
}

// InBounds reports whether c falls within a w x h map.
func (c Coord) InBounds(w, h int) bool {
	return int(c.X) < w && int(c.Y) < h
}

// Adjacent reports whether c and other are 4-neighbours (von Neumann,
// no diagonals): Manhattan distance exactly 1.
func (c Coord) Adjacent(other Coord) bool {
	dx := absDiff(int(c.X), int(other.X))
	dy := absDiff(int(c.Y), int(other.Y))
	return dx+dy == 1
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

// CoordFromIndex recovers (x, y) from a row-major linear index as
// x = i mod w, y = i div w; callers on the hot path should prefer
// computing it inline next to their loop.
func CoordFromIndex(i, w int) Coord {
	return Coord{X: uint16(i % w), Y: uint16(i / w)}
}
