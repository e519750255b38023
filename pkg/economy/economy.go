// Package economy applies the once-per-turn population/army update: growth
// on positive food balance, attrition on a deficit, and the adjacency
// bonus variant pinned by SPEC_FULL.md. Grounded in the teacher's
// mechanics const block and its per-tick settlement growth pass in
// engine.GameEngine, generalized from a single population track to a
// food-balance-driven growth/attrition split.
package economy

import "ensi/pkg/ensimodel"

// BaseGrowth is the population increment applied to every owned City
// per turn when its owner's food balance is positive.
const BaseGrowth = 1

// AdjacencyBonus is the extra population increment applied to a City
// 4-adjacent to another City owned by the same player. Pinned enabled
// per the Open Question resolution recorded in DESIGN.md.
const AdjacencyBonus = 1

// Apply runs one turn's Economy phase over m for the given players with
// the adjacency bonus enabled, the pinned default (see DESIGN.md). Food
// balances must already be current (RecomputeStats having run for this
// turn) before calling Apply.
func Apply(m *ensimodel.Map, players []*ensimodel.Player) {
	ApplyWithOptions(m, players, true)
}

// ApplyWithOptions is Apply with the adjacency-bonus variant exposed as
// a parameter, so pkg/gameloop.Config can carry the choice explicitly
// per SPEC_FULL.md §8 even though the pinned default leaves it on.
func ApplyWithOptions(m *ensimodel.Map, players []*ensimodel.Player, adjacencyBonus bool) {
	for _, p := range players {
		if !p.Alive {
			continue
		}
		switch {
		case p.Stats.Food > 0:
			grow(m, p, adjacencyBonus)
		case p.Stats.Food < 0:
			attrite(m, p, uint64(-p.Stats.Food))
		}
	}
}

// grow increments population on every City owned by p, plus the
// adjacency bonus (if enabled) for Cities 4-adjacent to another City p
// owns.
func grow(m *ensimodel.Map, p *ensimodel.Player, adjacencyBonus bool) {
	w := m.Width
	tiles := m.Tiles()
	for i, t := range tiles {
		if t.Type != ensimodel.TileCity || !t.Owner.Is(p.ID) {
			continue
		}
		inc := uint32(BaseGrowth)
		if adjacencyBonus && adjacentToOwnedCity(m, tiles, i, w, p.ID) {
			inc += AdjacencyBonus
		}
		m.SetPopulation(ensimodel.CoordFromIndex(i, w), saturatePopulation(uint64(t.Population)+uint64(inc)))
	}
}

func adjacentToOwnedCity(m *ensimodel.Map, tiles []ensimodel.Tile, i, w int, id ensimodel.PlayerID) bool {
	c := ensimodel.CoordFromIndex(i, w)
	for _, n := range m.Neighbours4(c) {
		nt := tiles[n.Index(w)]
		if nt.Type == ensimodel.TileCity && nt.Owner.Is(id) {
			return true
		}
	}
	return false
}

// attrite removes deficit army, one unit per tile per pass, walked in
// index order across every tile p owns, repeating passes until the
// deficit is exhausted or every owned tile has reached zero army.
// Grounded in spec.md §4.5's "attrition (army decremented on arbitrary
// owned tiles in index order, 1 per unit of deficit)".
func attrite(m *ensimodel.Map, p *ensimodel.Player, deficit uint64) {
	w := m.Width
	for deficit > 0 {
		progressed := false
		tiles := m.Tiles()
		for i := range tiles {
			if deficit == 0 {
				return
			}
			t := tiles[i]
			if !t.Owner.Is(p.ID) || t.Army == 0 {
				continue
			}
			m.SetArmy(ensimodel.CoordFromIndex(i, w), t.Army-1)
			deficit--
			progressed = true
		}
		if !progressed {
			return
		}
	}
}

func saturatePopulation(v uint64) uint32 {
	if v > 0xFFFFFFFF {
		return 0xFFFFFFFF
	}
	return uint32(v)
}
