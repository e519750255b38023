// Package gameloop drives one game from a generated Map and a roster of
// loaded sandboxes through repeated turns until a termination condition
// is met, per spec.md §4.10's seven-step pipeline. Grounded in the
// teacher's engine.GameEngine tick loop (fixed-interval resume of every
// active game, termination via ShouldTick/IsWaiting), generalized from a
// wall-clock ticker to a synchronous, fuel-bounded turn loop since
// spec.md §5 forbids wall-clock-driven execution entirely.
package gameloop

import (
	"context"
	"log"

	"ensi/pkg/command"
	"ensi/pkg/economy"
	"ensi/pkg/ensimodel"
	"ensi/pkg/hostabi"
	"ensi/pkg/resolver"
	"ensi/pkg/sandbox"
	"ensi/pkg/telemetry"
	"ensi/pkg/visibility"
)

// Config bundles the tunables spec.md leaves as constants or
// implementation choices, mirroring the teacher's
// DefaultStartingConditions() plain-struct-plus-constructor pattern.
type Config struct {
	Width, Height         int
	MaxTurns              uint32
	Fuel                  uint64
	AdjacencyBonusEnabled bool
	TelemetryInterval     uint32 // log a Snapshot every N turns; 0 disables
}

// DefaultConfig matches spec.md's stated defaults: a 64x64 board, a
// 1,000,000-unit fuel budget (§4.9's example), and the adjacency bonus
// pinned on (see DESIGN.md).
func DefaultConfig() Config {
	return Config{
		Width:                 ensimodel.DefaultWidth,
		Height:                ensimodel.DefaultHeight,
		MaxTurns:              1000,
		Fuel:                  1_000_000,
		AdjacencyBonusEnabled: true,
		TelemetryInterval:     100,
	}
}

// VictoryKind distinguishes how a game ended.
type VictoryKind uint8

const (
	VictoryNone VictoryKind = iota
	VictoryDomination
	VictoryTerritory
)

// Result is GameLoop.Run's final report.
type Result struct {
	Kind    VictoryKind
	Winner  ensimodel.PlayerID // zero if VictoryNone (should not occur on a terminated run)
	Turns   uint32
}

// GameLoop owns one game's Map, players, and sandboxes for its entire
// run. Not safe for concurrent use; spec.md §5 runs one game per
// goroutine, each with its own GameLoop.
type GameLoop struct {
	Config  Config
	Map     *ensimodel.Map
	Players []*ensimodel.Player
	Boxes   map[ensimodel.PlayerID]*sandbox.Sandbox

	turn uint32
}

// New builds a GameLoop from a generated map, player roster (already
// carrying their starting capitals and ownership, as MapGen produces),
// and one Sandbox per alive player.
func New(cfg Config, m *ensimodel.Map, players []*ensimodel.Player, boxes map[ensimodel.PlayerID]*sandbox.Sandbox) *GameLoop {
	return &GameLoop{Config: cfg, Map: m, Players: players, Boxes: boxes}
}

// Run executes turns until a termination condition is reached (spec.md
// §4.10 step 6) and returns the outcome.
func (g *GameLoop) Run(ctx context.Context) Result {
	for {
		g.runTurn(ctx)

		if res, done := g.checkTermination(); done {
			return res
		}
		g.turn++
	}
}

// runTurn executes the seven-step pipeline once.
func (g *GameLoop) runTurn(ctx context.Context) {
	// Step 1: per-player stats cache.
	for _, p := range g.Players {
		if p.Alive {
			p.RecomputeStats(g.Map)
		}
	}

	if g.Config.TelemetryInterval > 0 && g.turn%g.Config.TelemetryInterval == 0 {
		telemetry.Log(telemetry.Summarize(g.turn, g.Players))
	}

	// Step 2: resume each alive player's sandbox in ascending PlayerId
	// order, with a freshly projected, fog-filtered view. Each guest
	// queues into the shared turn-wide Queue via the HostABI and hands
	// its own contribution back through DrainCommands when its Resume
	// call returns; accumulating them in resume order already satisfies
	// the Resolver's PlayerId-ascending ordering (§4.7 re-sorts anyway,
	// so this is belt-and-suspenders, not load-bearing).
	queue := command.NewQueue()
	var turnCommands []command.Command

	for _, p := range g.sortedAlivePlayers() {
		box, ok := g.Boxes[p.ID]
		if !ok {
			continue
		}
		buf := visibility.Project(g.Map, p.ID)
		box.Guest.PushBuffer(hostabi.EncodePushBuffer(hostabi.PushHeader{
			Width: uint16(g.Map.Width), Height: uint16(g.Map.Height),
			Turn: g.turn, PlayerID: uint16(p.ID),
		}, buf))

		host := &hostabi.Host{
			Turn: g.turn, Player: p.ID,
			Capital: p.Capital, HasCapital: p.HasCapital,
			Stats: p.Stats,
			MapW:  uint16(g.Map.Width), MapH: uint16(g.Map.Height),
			Visible: buf, Map: g.Map, Queue: queue,
		}

		outcome, cmds := box.Resume(ctx, host, g.Config.Fuel)
		if outcome.Status == sandbox.StatusTrapped {
			log.Printf("Sandbox player=%d turn=%d trapped: %v", p.ID, g.turn, outcome.Trap)
		}
		turnCommands = append(turnCommands, cmds...)
	}

	// Step 3: Resolver applies the full CommandQueue.
	players := make(resolver.Players, len(g.Players))
	for _, p := range g.Players {
		players[p.ID] = p
	}
	resolver.Apply(g.Map, players, turnCommands)

	// Step 4: Economy phase.
	for _, p := range g.Players {
		if p.Alive {
			p.RecomputeStats(g.Map)
		}
	}
	economy.ApplyWithOptions(g.Map, g.Players, g.Config.AdjacencyBonusEnabled)

	// Step 5: finalize eliminated players (Resolver already flipped
	// Alive/HasCapital on capital capture; nothing further to do here
	// beyond making the cache consistent for the termination check).
	for _, p := range g.Players {
		if p.Alive {
			p.RecomputeStats(g.Map)
		}
	}
}

// sortedAlivePlayers returns alive players in ascending PlayerId order.
func (g *GameLoop) sortedAlivePlayers() []*ensimodel.Player {
	out := make([]*ensimodel.Player, 0, len(g.Players))
	for _, p := range g.Players {
		if p.Alive {
			out = append(out, p)
		}
	}
	// Players are already constructed in ascending PlayerId order by
	// MapGen/roster setup; GameLoop does not re-sort to avoid paying an
	// O(n log n) pass every turn for a roster capped at 8.
	return out
}

// checkTermination implements spec.md §4.10 step 6.
func (g *GameLoop) checkTermination() (Result, bool) {
	alive := make([]*ensimodel.Player, 0, len(g.Players))
	for _, p := range g.Players {
		if p.Alive {
			alive = append(alive, p)
		}
	}

	if len(alive) == 1 {
		return Result{Kind: VictoryDomination, Winner: alive[0].ID, Turns: g.turn + 1}, true
	}
	if len(alive) == 0 {
		return Result{Kind: VictoryNone, Turns: g.turn + 1}, true
	}

	if g.turn+1 >= g.Config.MaxTurns {
		winner := territoryWinner(alive)
		return Result{Kind: VictoryTerritory, Winner: winner, Turns: g.turn + 1}, true
	}

	return Result{}, false
}

// territoryWinner picks the most-tiles player, tie-broken by most
// population, then lowest PlayerId, per spec.md §4.10 step 6.
func territoryWinner(alive []*ensimodel.Player) ensimodel.PlayerID {
	best := alive[0]
	for _, p := range alive[1:] {
		switch {
		case p.Stats.Territory > best.Stats.Territory:
			best = p
		case p.Stats.Territory == best.Stats.Territory && p.Stats.TotalPopulation > best.Stats.TotalPopulation:
			best = p
		case p.Stats.Territory == best.Stats.Territory && p.Stats.TotalPopulation == best.Stats.TotalPopulation && p.ID < best.ID:
			best = p
		}
	}
	return best.ID
}
