// Command ensi-engine runs one deterministic bot-vs-bot game from a
// seed and a roster of precompiled guest binaries, printing the final
// result. Grounded in the teacher's cmd/main.go startup/shutdown style:
// os.Getenv-driven configuration, log.Printf/log.Fatalf for status, and
// a signal-driven graceful-cancellation path.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"ensi/pkg/ensimodel"
	"ensi/pkg/gameloop"
	"ensi/pkg/mapgen"
	"ensi/pkg/rng"
	"ensi/pkg/sandbox"
	"ensi/pkg/sandbox/riscvlite"
	"ensi/pkg/sandbox/wasmlite"
)

func main() {
	seedStr := os.Getenv("ENSI_SEED")
	if seedStr == "" {
		seedStr = "ensi-default-seed"
	}
	seed := rng.SeedFromString(seedStr)

	guestPaths := splitNonEmpty(os.Getenv("ENSI_GUESTS"), ",")
	if len(guestPaths) < 2 {
		log.Fatalf("ENSI_GUESTS must list at least 2 guest binary paths, comma-separated; got %d", len(guestPaths))
	}

	maxTurns := envUint("ENSI_MAX_TURNS", 1000)
	fuel := envUint("ENSI_FUEL", 1_000_000)

	log.Printf("Starting Ensi engine")
	log.Printf("Seed: %s (%d)", seedStr, seed)
	log.Printf("Players: %d", len(guestPaths))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Shutting down gracefully...")
		cancel()
	}()

	result, err := run(ctx, seed, guestPaths, uint32(maxTurns), fuel)
	if err != nil {
		log.Fatalf("Game run failed: %v", err)
	}

	log.Printf("Game complete: kind=%v winner=%d turns=%d", result.Kind, result.Winner, result.Turns)
}

// run wires a generated map, a player roster, and one Sandbox per
// guest into a GameLoop and executes it to completion.
func run(ctx context.Context, seed uint64, guestPaths []string, maxTurns uint32, fuel uint64) (gameloop.Result, error) {
	mgCfg := mapgen.DefaultConfig(len(guestPaths), seed)
	m, capitals, err := mapgen.Generate(mgCfg)
	if err != nil {
		return gameloop.Result{}, err
	}

	players := make([]*ensimodel.Player, len(guestPaths))
	boxes := make(map[ensimodel.PlayerID]*sandbox.Sandbox, len(guestPaths))
	guests := make([]sandbox.Guest, len(guestPaths))
	images := make([][]byte, len(guestPaths))

	for i, path := range guestPaths {
		id := ensimodel.PlayerID(i + 1)
		players[i] = &ensimodel.Player{ID: id, Capital: capitals[i], HasCapital: true, Alive: true}

		image, err := os.ReadFile(path)
		if err != nil {
			return gameloop.Result{}, err
		}
		images[i] = image
		guests[i] = newGuest(path)
	}

	pool, err := sandbox.Preload(ctx, guests, images)
	if err != nil {
		return gameloop.Result{}, err
	}
	for _, box := range pool.Sandboxes {
		boxes[box.Player] = box
	}

	cfg := gameloop.DefaultConfig()
	cfg.Width, cfg.Height = mgCfg.Width, mgCfg.Height
	cfg.MaxTurns = maxTurns
	cfg.Fuel = fuel

	loop := gameloop.New(cfg, m, players, boxes)
	return loop.Run(ctx), nil
}

// newGuest picks a dialect interpreter by the guest binary's file
// extension: ".rvl" for riscvlite, anything else for wasmlite.
func newGuest(path string) sandbox.Guest {
	if filepath.Ext(path) == ".rvl" {
		return &riscvlite.Interpreter{}
	}
	return &wasmlite.Interpreter{}
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envUint(key string, def uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		log.Fatalf("invalid %s=%q: %v", key, v, err)
	}
	return n
}
