package ensimodel

// BotHandle is an opaque reference to whatever runs a player's turns (a
// pkg/sandbox.Sandbox in production, a stub in tests). ensimodel does not
// depend on pkg/sandbox to avoid an import cycle; callers type-assert.
type BotHandle interface{}

// Player is one of up to 8 competitors. Capital is absent (HasCapital=false)
// exactly when the player has been eliminated.
type Player struct {
	ID      PlayerID
	Capital Coord
	HasCapital bool
	Alive   bool
	Bot     BotHandle

	// Stats cache, recomputed once per turn by RecomputeStats.
	Stats PlayerStats
}

// PlayerStats are the derived per-turn totals exposed to the HostABI.
type PlayerStats struct {
	TotalPopulation uint64
	TotalArmy       uint64
	Territory       int
	Food            int64
}

// Eliminate flips Alive to false and clears Capital. Irreversible: callers
// must never set Alive back to true for this player.
func (p *Player) Eliminate() {
	p.Alive = false
	p.HasCapital = false
	p.Capital = Coord{}
}

// RecomputeStats recomputes p.Stats by scanning m for tiles owned by p.ID.
// Called once per turn, before bot resumption, so the HostABI always
// answers queries from the cache rather than rescanning the map per call.
func (p *Player) RecomputeStats(m *Map) {
	var pop, army uint64
	var territory int
	for _, t := range m.Tiles() {
		if t.Owner.Is(p.ID) {
			territory++
			pop += uint64(t.Population)
			army += uint64(t.Army)
		}
	}
	p.Stats = PlayerStats{
		TotalPopulation: pop,
		TotalArmy:       army,
		Territory:       territory,
		Food:            int64(pop) - int64(army),
	}
}
