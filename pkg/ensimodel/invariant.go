package ensimodel

import "fmt"

// InvariantViolation reports a broken data-model invariant. Per spec.md
// §7 this is a fatal, programmer-error class: the caller should abort the
// game rather than try to recover from it.
type InvariantViolation struct {
	Rule string
	Detail string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("ensi: invariant violated (%s): %s", e.Rule, e.Detail)
}

// CheckInvariants verifies turn-boundary invariants 1-5 from spec.md §3
// against m and players: mountains unowned and empty, population only on
// Cities, no army on unowned non-City tiles, each alive player's capital
// an owned City, and every populated City owned. The 16-bit army bound
// holds by the Tile.Army type; the stats-cache invariant is not checked.
// GameLoop does not call it; it is used from tests.
func CheckInvariants(m *Map, players []*Player) error {
	for i, t := range m.tiles {
		c := CoordFromIndex(i, m.Width)
		if t.Type == TileMountain {
			if !t.Owner.IsNone() || t.Army != 0 || t.Population != 0 {
				return &InvariantViolation{"mountain-unowned", fmt.Sprintf("tile %v", c)}
			}
		}
		if t.Type != TileCity && t.Population != 0 {
			return &InvariantViolation{"non-city-no-population", fmt.Sprintf("tile %v", c)}
		}
		if t.Owner.IsNone() && t.Type != TileCity && t.Army != 0 {
			return &InvariantViolation{"unowned-non-city-no-army", fmt.Sprintf("tile %v", c)}
		}
	}

	for _, p := range players {
		if !p.Alive {
			continue
		}
		if !p.HasCapital {
			return &InvariantViolation{"alive-has-capital", fmt.Sprintf("player %d", p.ID)}
		}
		if !m.InBounds(p.Capital) {
			return &InvariantViolation{"capital-in-bounds", fmt.Sprintf("player %d", p.ID)}
		}
		t := m.Get(p.Capital)
		if t.Type != TileCity || !t.Owner.Is(p.ID) {
			return &InvariantViolation{"capital-is-owned-city", fmt.Sprintf("player %d", p.ID)}
		}
	}

	for i, t := range m.tiles {
		if t.Type == TileCity && t.Population > 0 && t.Owner.IsNone() {
			return &InvariantViolation{"city-with-population-owned", fmt.Sprintf("index %d", i)}
		}
	}

	return nil
}
