package ensimodel

// Map is a fixed-size, row-major grid of tiles. TileType is immutable once
// set during map generation; only Owner, Army, and Population mutate after
// that, and only inside the Resolver and Economy phases.
type Map struct {
	Width, Height int
	tiles         []Tile
}

// DefaultWidth and DefaultHeight are the spec's default 64x64 board.
const (
	DefaultWidth  = 64
	DefaultHeight = 64
)

// NewMap allocates a w x h map of Desert tiles.
func NewMap(w, h int) *Map {
	m := &Map{Width: w, Height: h, tiles: make([]Tile, w*h)}
	for i := range m.tiles {
		m.tiles[i] = Tile{Type: TileDesert}
	}
	return m
}

// Get returns the tile at c. Panics if c is out of bounds; callers that
// accept untrusted coordinates (e.g. syscall arguments) must bounds-check
// first via InBounds.
func (m *Map) Get(c Coord) Tile {
	return m.tiles[c.Index(m.Width)]
}

// InBounds reports whether c lies within the map.
func (m *Map) InBounds(c Coord) bool {
	return c.InBounds(m.Width, m.Height)
}

// Set overwrites the tile at c wholesale. Used by MapGen only; turn-time
// mutation goes through the narrower Set* mutators below.
func (m *Map) Set(c Coord, t Tile) {
	m.tiles[c.Index(m.Width)] = t
}

// SetOwner changes a tile's owner in place.
func (m *Map) SetOwner(c Coord, o Owner) {
	m.tiles[c.Index(m.Width)].Owner = o
}

// SetArmy changes a tile's army count in place.
func (m *Map) SetArmy(c Coord, army uint16) {
	m.tiles[c.Index(m.Width)].Army = army
}

// SetPopulation changes a tile's population in place. Only meaningful for
// City tiles; callers must not call this on Desert/Mountain tiles.
func (m *Map) SetPopulation(c Coord, pop uint32) {
	m.tiles[c.Index(m.Width)].Population = pop
}

// Tiles returns the bare contiguous tile slice. Iteration that does not
// need coordinates should range over this directly rather than calling
// EnumerateTiles, to avoid paying div/mod per tile.
func (m *Map) Tiles() []Tile {
	return m.tiles
}

// EnumerateTiles calls fn for every tile, deriving (x, y) from the linear
// index on demand (x = i mod W, y = i div W). Use only when the coordinate
// is actually needed; see Tiles for the coordinate-free fast path.
func (m *Map) EnumerateTiles(fn func(x, y int, t Tile)) {
	w := m.Width
	for i, t := range m.tiles {
		fn(i%w, i/w, t)
	}
}

// Neighbours4 returns the in-bounds 4-neighbours of c (von Neumann,
// no diagonals), in a fixed N,S,E,W order for determinism.
func (m *Map) Neighbours4(c Coord) []Coord {
	out := make([]Coord, 0, 4)
	x, y := int(c.X), int(c.Y)
	if y > 0 {
		out = append(out, Coord{X: c.X, Y: c.Y - 1})
	}
	if y+1 < m.Height {
		out = append(out, Coord{X: c.X, Y: c.Y + 1})
	}
	if x+1 < m.Width {
		out = append(out, Coord{X: c.X + 1, Y: c.Y})
	}
	if x > 0 {
		out = append(out, Coord{X: c.X - 1, Y: c.Y})
	}
	return out
}
