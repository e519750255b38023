// Package resolver applies one turn's CommandQueue to the Map in the
// fixed, deterministic order spec.md §4.7 requires: player ID ascending,
// submission order within a player. Grounded in the teacher's
// engine.moveUnit/settleAtLocation mechanics, generalized to Ensi's
// move/convert/move-capital/abandon command set and combat rules.
package resolver

import (
	"sort"

	"ensi/pkg/command"
	"ensi/pkg/ensimodel"
)

// Players is the minimal view the Resolver needs of the player table: by
// PlayerID, for capital lookups and elimination.
type Players map[ensimodel.PlayerID]*ensimodel.Player

// Apply drains cmds (already ordered by caller as emitted during the
// turn) and applies them to m in submitter-ascending, then
// submission-order, sequence. It mutates m and the relevant Players in
// place and returns nothing: all effects are observable only through m
// and players afterward, matching spec.md §5's "effects become visible
// only after the Resolver runs".
func Apply(m *ensimodel.Map, players Players, cmds []command.Command) {
	ordered := make([]command.Command, len(cmds))
	copy(ordered, cmds)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Submitter < ordered[j].Submitter
	})

	eliminated := make(map[ensimodel.PlayerID]bool)

	for _, cmd := range ordered {
		if eliminated[cmd.Submitter] {
			continue
		}
		p, ok := players[cmd.Submitter]
		if !ok || !p.Alive {
			continue
		}
		switch cmd.Kind {
		case command.KindMove:
			applyMove(m, players, p, cmd, eliminated)
		case command.KindConvert:
			applyConvert(m, p, cmd)
		case command.KindMoveCapital:
			applyMoveCapital(m, p, cmd)
		case command.KindAbandon:
			applyAbandon(m, p, cmd)
		case command.KindYield:
			// No state effect; Yield only ends the bot's own turn inside
			// the Sandbox, it carries no Resolver-visible semantics.
		}
	}
}

func applyMove(m *ensimodel.Map, players Players, p *ensimodel.Player, cmd command.Command, eliminated map[ensimodel.PlayerID]bool) {
	if cmd.Count < 1 {
		return
	}
	if !m.InBounds(cmd.From) || !m.InBounds(cmd.To) {
		return
	}
	if !cmd.From.Adjacent(cmd.To) {
		return
	}
	src := m.Get(cmd.From)
	if !src.Owner.Is(p.ID) {
		return
	}
	dst := m.Get(cmd.To)
	if dst.Type == ensimodel.TileMountain {
		return
	}
	if uint32(src.Army) < cmd.Count {
		return
	}

	m.SetArmy(cmd.From, src.Army-uint16(cmd.Count))

	if dst.Owner.Is(p.ID) || dst.Army == 0 {
		resolveFriendlyArrival(m, p, cmd.To, dst, cmd.Count)
		return
	}

	resolveCombat(m, players, p, cmd.To, dst, cmd.Count, eliminated)
}

func resolveFriendlyArrival(m *ensimodel.Map, p *ensimodel.Player, to ensimodel.Coord, dst ensimodel.Tile, count uint32) {
	newArmy := saturateArmy(uint32(dst.Army) + count)
	m.SetArmy(to, newArmy)
	if dst.Owner.IsNone() || !dst.Owner.Is(p.ID) {
		// Neutral or zero-army-enemy tile becomes ours; population
		// (if any, on a City) is preserved, not reset.
		m.SetOwner(to, ensimodel.OwnedBy(p.ID))
	}
}

func resolveCombat(m *ensimodel.Map, players Players, attacker *ensimodel.Player, to ensimodel.Coord, dst ensimodel.Tile, attackCount uint32, eliminated map[ensimodel.PlayerID]bool) {
	defenderID, _ := dst.Owner.Player()
	a := int64(attackCount)
	d := int64(dst.Army)

	switch {
	case a > d:
		m.SetArmy(to, uint16(a-d))
		m.SetOwner(to, ensimodel.OwnedBy(attacker.ID))
		maybeCaptureCapital(m, players, attacker, defenderID, to, eliminated)
	case a == d:
		m.SetArmy(to, 0)
		m.SetOwner(to, ensimodel.NoOwner)
	default: // a < d
		m.SetArmy(to, uint16(d-a))
		// owner and population unchanged.
	}
}

// maybeCaptureCapital implements spec.md §4.7's capital-capture rule: if
// `to` is defender q's capital and the attacker won, q is eliminated and
// every tile q owns transfers to the attacker, army and population
// preserved.
func maybeCaptureCapital(m *ensimodel.Map, players Players, attacker *ensimodel.Player, defenderID ensimodel.PlayerID, to ensimodel.Coord, eliminated map[ensimodel.PlayerID]bool) {
	defender, ok := players[defenderID]
	if !ok || !defender.Alive || !defender.HasCapital || defender.Capital != to {
		return
	}

	defender.Eliminate()
	eliminated[defenderID] = true

	for i := range m.Tiles() {
		c := ensimodel.CoordFromIndex(i, m.Width)
		t := m.Get(c)
		if t.Owner.Is(defenderID) {
			m.SetOwner(c, ensimodel.OwnedBy(attacker.ID))
		}
	}
}

func applyConvert(m *ensimodel.Map, p *ensimodel.Player, cmd command.Command) {
	if cmd.Count < 1 {
		return
	}
	if !m.InBounds(cmd.Tile) {
		return
	}
	t := m.Get(cmd.Tile)
	if t.Type != ensimodel.TileCity || !t.Owner.Is(p.ID) {
		return
	}
	if uint64(t.Population) < uint64(cmd.Count) {
		return
	}
	m.SetPopulation(cmd.Tile, t.Population-cmd.Count)
	m.SetArmy(cmd.Tile, saturateArmy(uint32(t.Army)+cmd.Count))
}

func applyMoveCapital(m *ensimodel.Map, p *ensimodel.Player, cmd command.Command) {
	if !m.InBounds(cmd.To) {
		return
	}
	t := m.Get(cmd.To)
	if t.Type != ensimodel.TileCity || !t.Owner.Is(p.ID) {
		return
	}
	if p.HasCapital {
		current := m.Get(p.Capital)
		if t.Population <= current.Population {
			return
		}
	}
	p.Capital = cmd.To
	p.HasCapital = true
}

func applyAbandon(m *ensimodel.Map, p *ensimodel.Player, cmd command.Command) {
	if !m.InBounds(cmd.Tile) {
		return
	}
	t := m.Get(cmd.Tile)
	if !t.Owner.Is(p.ID) {
		return
	}
	if p.HasCapital && p.Capital == cmd.Tile {
		return
	}
	m.SetOwner(cmd.Tile, ensimodel.NoOwner)
}

func saturateArmy(v uint32) uint16 {
	if v > 0xFFFF {
		return 0xFFFF
	}
	return uint16(v)
}
