package mapgen

import (
	"testing"

	"ensi/pkg/ensimodel"
)

func TestGenerate_Deterministic(t *testing.T) {
	cfg := DefaultConfig(4, 12345)
	cfg.Width, cfg.Height = 32, 32

	m1, caps1, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	m2, caps2, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(caps1) != len(caps2) {
		t.Fatalf("capital count differs: %d vs %d", len(caps1), len(caps2))
	}
	for i := range caps1 {
		if caps1[i] != caps2[i] {
			t.Errorf("capital %d differs: %v vs %v", i, caps1[i], caps2[i])
		}
	}
	for i := range m1.Tiles() {
		if m1.Tiles()[i] != m2.Tiles()[i] {
			t.Fatalf("tile %d differs between runs", i)
		}
	}
}

func TestGenerate_CapitalsValid(t *testing.T) {
	cfg := DefaultConfig(6, 777)
	cfg.Width, cfg.Height = 40, 40

	m, caps, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(caps) != 6 {
		t.Fatalf("got %d capitals, want 6", len(caps))
	}

	for i, c := range caps {
		tile := m.Get(c)
		if tile.Type != ensimodel.TileCity {
			t.Errorf("capital %d is not a City tile: %v", i, tile.Type)
		}
		pid := ensimodel.PlayerID(i + 1)
		if !tile.Owner.Is(pid) {
			t.Errorf("capital %d not owned by player %d", i, pid)
		}
		for j, other := range caps {
			if i == j {
				continue
			}
			if c.Adjacent(other) {
				t.Errorf("capitals %d and %d are adjacent: %v, %v", i, j, c, other)
			}
		}
	}
}

func TestGenerate_AllCapitalsConnected(t *testing.T) {
	cfg := DefaultConfig(8, 55)
	cfg.Width, cfg.Height = 48, 48

	m, caps, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !allCapitalsConnected(m, caps) {
		t.Fatal("generated map's capitals are not all mutually connected")
	}
}

func TestGenerate_NoMountainCapital(t *testing.T) {
	for _, seed := range []uint64{1, 2, 3, 4, 5} {
		cfg := DefaultConfig(4, seed)
		cfg.Width, cfg.Height = 24, 24

		m, caps, err := Generate(cfg)
		if err != nil {
			t.Fatalf("Generate(seed=%d): %v", seed, err)
		}
		for _, c := range caps {
			if m.Get(c).Type == ensimodel.TileMountain {
				t.Errorf("seed %d: capital at %v is a Mountain", seed, c)
			}
		}
	}
}

func TestGenerate_TooManyPlayersForMap_Fails(t *testing.T) {
	cfg := DefaultConfig(8, 1)
	cfg.Width, cfg.Height = 2, 2
	cfg.MaxAttempts = 4

	if _, _, err := Generate(cfg); err == nil {
		t.Fatal("expected ErrMapGenFailure for an oversubscribed tiny map, got nil")
	}
}
