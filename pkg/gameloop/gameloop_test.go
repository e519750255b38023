package gameloop

import (
	"context"
	"testing"

	"ensi/pkg/command"
	"ensi/pkg/ensimodel"
	"ensi/pkg/hostabi"
	"ensi/pkg/sandbox"
)

// scriptedGuest replays a fixed sequence of commands, one batch per
// Resume call, then yields with nothing thereafter. Used to drive
// GameLoop deterministically without a real interpreter.
type scriptedGuest struct {
	batches [][]command.Command
	calls   int
	queue   *command.Queue
}

func (s *scriptedGuest) Load(image []byte) error { return nil }
func (s *scriptedGuest) PushBuffer(buf []byte)    {}
func (s *scriptedGuest) Resume(ctx context.Context, host *hostabi.Host, fuel uint64) sandbox.Outcome {
	s.queue = host.Queue
	if s.calls < len(s.batches) {
		for _, c := range s.batches[s.calls] {
			host.Queue.Push(c)
		}
	}
	s.calls++
	return sandbox.Outcome{Status: sandbox.StatusCompleted}
}
func (s *scriptedGuest) DrainCommands() []command.Command {
	if s.queue == nil {
		return nil
	}
	return s.queue.Drain()
}

func twoPlayerMap() *ensimodel.Map {
	m := ensimodel.NewMap(3, 1)
	m.Set(ensimodel.Coord{0, 0}, ensimodel.Tile{Type: ensimodel.TileCity, Owner: ensimodel.OwnedBy(1), Population: 10, Army: 10})
	m.Set(ensimodel.Coord{1, 0}, ensimodel.Tile{Type: ensimodel.TileDesert})
	m.Set(ensimodel.Coord{2, 0}, ensimodel.Tile{Type: ensimodel.TileCity, Owner: ensimodel.OwnedBy(2), Population: 10, Army: 1})
	return m
}

func TestRun_DominationVictory(t *testing.T) {
	m := twoPlayerMap()
	p1 := &ensimodel.Player{ID: 1, Alive: true, HasCapital: true, Capital: ensimodel.Coord{0, 0}}
	p2 := &ensimodel.Player{ID: 2, Alive: true, HasCapital: true, Capital: ensimodel.Coord{2, 0}}

	// Player 1 marches 9 of its 10 army two tiles east into player 2's
	// weakly-defended capital and wins on turn 1.
	g1 := &scriptedGuest{batches: [][]command.Command{
		{{Submitter: 1, Kind: command.KindMove, From: ensimodel.Coord{0, 0}, To: ensimodel.Coord{1, 0}, Count: 9}},
	}}
	g2 := &scriptedGuest{}

	boxes := map[ensimodel.PlayerID]*sandbox.Sandbox{
		1: sandbox.NewSandbox(1, g1),
		2: sandbox.NewSandbox(2, g2),
	}

	cfg := DefaultConfig()
	cfg.MaxTurns = 50
	loop := New(cfg, m, []*ensimodel.Player{p1, p2}, boxes)

	// Turn 0: player 1 moves 9 into empty tile (1,0): army there = 9.
	// Turn 1: player 1 needs a second move to reach (2,0), so the
	// scripted guest gets a second batch that moves those 9 into the
	// capital (defended by 1) and captures it.
	g1.batches = append(g1.batches, []command.Command{
		{Submitter: 1, Kind: command.KindMove, From: ensimodel.Coord{1, 0}, To: ensimodel.Coord{2, 0}, Count: 9},
	})

	res := loop.Run(context.Background())

	if res.Kind != VictoryDomination {
		t.Fatalf("Kind = %v, want VictoryDomination", res.Kind)
	}
	if res.Winner != 1 {
		t.Fatalf("Winner = %d, want 1", res.Winner)
	}
	if p2.Alive {
		t.Fatalf("p2.Alive = %v, want false", p2.Alive)
	}
}

func TestRun_TerritoryVictory_OnMaxTurns(t *testing.T) {
	m := ensimodel.NewMap(2, 1)
	m.Set(ensimodel.Coord{0, 0}, ensimodel.Tile{Type: ensimodel.TileCity, Owner: ensimodel.OwnedBy(1), Population: 1})
	m.Set(ensimodel.Coord{1, 0}, ensimodel.Tile{Type: ensimodel.TileCity, Owner: ensimodel.OwnedBy(2), Population: 1})

	p1 := &ensimodel.Player{ID: 1, Alive: true, HasCapital: true, Capital: ensimodel.Coord{0, 0}}
	p2 := &ensimodel.Player{ID: 2, Alive: true, HasCapital: true, Capital: ensimodel.Coord{1, 0}}

	boxes := map[ensimodel.PlayerID]*sandbox.Sandbox{
		1: sandbox.NewSandbox(1, &scriptedGuest{}),
		2: sandbox.NewSandbox(2, &scriptedGuest{}),
	}

	cfg := DefaultConfig()
	cfg.MaxTurns = 3
	loop := New(cfg, m, []*ensimodel.Player{p1, p2}, boxes)

	res := loop.Run(context.Background())

	if res.Kind != VictoryTerritory {
		t.Fatalf("Kind = %v, want VictoryTerritory", res.Kind)
	}
	if res.Turns != cfg.MaxTurns {
		t.Errorf("Turns = %d, want %d", res.Turns, cfg.MaxTurns)
	}
	// Equal territory (1 each) and equal population: tie-break to
	// lowest PlayerId.
	if res.Winner != 1 {
		t.Errorf("Winner = %d, want 1 (lowest PlayerId tie-break)", res.Winner)
	}
}
