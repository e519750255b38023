// Package mapgen produces a Map plus one capital Coord per player as a
// pure function of (width, height, player count, seed), grounded in the
// teacher's Generator (great-circle elevation, candidate-region starting
// positions) but simplified to Ensi's three-tile-type model.
package mapgen

import (
	"errors"
	"fmt"
	"sort"

	"ensi/pkg/ensimodel"
	"ensi/pkg/rng"
)

// Config controls map generation.
type Config struct {
	Width, Height int
	NumPlayers    int
	Seed          uint64

	MountainRatio float64 // fraction of tiles, default 0.25
	CityRatio     float64 // fraction of tiles, default 0.08

	StartingPopulation uint32 // seed population at each capital, default 10
	StartingArmy       uint16 // seed army at each capital, default 1

	MaxAttempts int // regeneration bound on connectivity failure, default 64
}

// DefaultConfig returns the spec's default 64x64, 20-30% mountain /
// 5-10% city ratios, and seed capital stats.
func DefaultConfig(numPlayers int, seed uint64) Config {
	return Config{
		Width:              ensimodel.DefaultWidth,
		Height:             ensimodel.DefaultHeight,
		NumPlayers:         numPlayers,
		Seed:               seed,
		MountainRatio:      0.25,
		CityRatio:          0.08,
		StartingPopulation: 10,
		StartingArmy:       1,
		MaxAttempts:        64,
	}
}

// ErrMapGenFailure is returned when no attempt within MaxAttempts produced
// a connected map. Per spec.md §7 this is a MapGenFailure, recoverable by
// the caller retrying with a different seed range; it is not an
// InternalInvariantViolation.
var ErrMapGenFailure = errors.New("mapgen: could not produce a connected map within the attempt budget")

// Generate produces a Map and one capital Coord per player, deterministically
// from cfg. It is a pure function: two calls with the same cfg produce
// bit-identical results.
func Generate(cfg Config) (*ensimodel.Map, []ensimodel.Coord, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 64
	}
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		seed := cfg.Seed
		if attempt > 0 {
			seed = rng.DeriveAttemptSeed(cfg.Seed, attempt)
		}
		m, capitals, ok := attemptGenerate(cfg, seed)
		if ok {
			return m, capitals, nil
		}
	}
	return nil, nil, fmt.Errorf("%w: seed %d, %d players, %d attempts",
		ErrMapGenFailure, cfg.Seed, cfg.NumPlayers, cfg.MaxAttempts)
}

func attemptGenerate(cfg Config, seed uint64) (*ensimodel.Map, []ensimodel.Coord, bool) {
	r := rng.New(seed)
	m := ensimodel.NewMap(cfg.Width, cfg.Height)
	scatterTerrain(m, r, cfg.MountainRatio, cfg.CityRatio)

	capitals, ok := placeCapitals(m, r, cfg.NumPlayers)
	if !ok {
		return nil, nil, false
	}

	if !allCapitalsConnected(m, capitals) {
		return nil, nil, false
	}

	for i, c := range capitals {
		pid := ensimodel.PlayerID(i + 1)
		m.Set(c, ensimodel.Tile{
			Type:       ensimodel.TileCity,
			Owner:      ensimodel.OwnedBy(pid),
			Population: cfg.StartingPopulation,
			Army:       cfg.StartingArmy,
		})
	}

	return m, capitals, true
}

// scatterTerrain assigns TileMountain and TileCity to a roughly uniform
// random scatter of tiles (by ratio), leaving the remainder Desert.
// Grounded in the teacher's elevation-threshold terrain assignment, but
// simplified to direct per-tile sampling since Ensi has no elevation model.
func scatterTerrain(m *ensimodel.Map, r *rng.RNG, mountainRatio, cityRatio float64) {
	w := m.Width
	for i := range m.Tiles() {
		c := ensimodel.CoordFromIndex(i, w)
		roll := r.Float64()
		switch {
		case roll < mountainRatio:
			m.Set(c, ensimodel.Tile{Type: ensimodel.TileMountain})
		case roll < mountainRatio+cityRatio:
			m.Set(c, ensimodel.Tile{Type: ensimodel.TileCity})
		default:
			m.Set(c, ensimodel.Tile{Type: ensimodel.TileDesert})
		}
	}
}

// placeCapitals picks one non-Mountain, pairwise-non-adjacent tile per
// player, preferring existing City tiles (converting a Desert tile to a
// City if none are available nearby), using the same maximum-spacing
// greedy selection as the teacher's findStartingPositions.
func placeCapitals(m *ensimodel.Map, r *rng.RNG, numPlayers int) ([]ensimodel.Coord, bool) {
	type candidate struct {
		c     ensimodel.Coord
		score float64
	}

	var candidates []candidate
	for i, t := range m.Tiles() {
		if t.Type == ensimodel.TileMountain {
			continue
		}
		c := ensimodel.CoordFromIndex(i, m.Width)
		score := r.Float64()
		if t.Type == ensimodel.TileCity {
			score += 1.0 // prefer existing cities as capitals
		}
		candidates = append(candidates, candidate{c, score})
	}
	if len(candidates) < numPlayers {
		return nil, false
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	var chosen []ensimodel.Coord
	for _, cand := range candidates {
		if len(chosen) == numPlayers {
			break
		}
		tooClose := false
		for _, existing := range chosen {
			if manhattan(cand.c, existing) < 4 {
				tooClose = true
				break
			}
		}
		if tooClose {
			continue
		}
		chosen = append(chosen, cand.c)
	}

	if len(chosen) != numPlayers {
		return nil, false
	}
	return chosen, true
}

func manhattan(a, b ensimodel.Coord) int {
	dx := int(a.X) - int(b.X)
	if dx < 0 {
		dx = -dx
	}
	dy := int(a.Y) - int(b.Y)
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// allCapitalsConnected reports whether every capital is reachable from
// every other capital via passable (non-Mountain) tiles, via a single BFS
// from the first capital.
func allCapitalsConnected(m *ensimodel.Map, capitals []ensimodel.Coord) bool {
	if len(capitals) == 0 {
		return true
	}
	visited := make([]bool, m.Width*m.Height)
	queue := []ensimodel.Coord{capitals[0]}
	visited[capitals[0].Index(m.Width)] = true

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range m.Neighbours4(cur) {
			idx := n.Index(m.Width)
			if visited[idx] {
				continue
			}
			if m.Get(n).Type == ensimodel.TileMountain {
				continue
			}
			visited[idx] = true
			queue = append(queue, n)
		}
	}

	for _, c := range capitals {
		if !visited[c.Index(m.Width)] {
			return false
		}
	}
	return true
}
