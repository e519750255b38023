// Package sandbox hosts one guest binary per player: isolated,
// fuel-metered, suspend/resume execution with no access to host memory,
// wall-clock, or other guests. Grounded in the teacher's engine.moveUnit
// /settle command loop (one bounded unit of work per tick, driven by the
// engine rather than the guest), generalized to a guest-driven syscall
// loop since this spec's "guest" is untrusted code rather than trusted
// in-process logic.
package sandbox

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"ensi/pkg/command"
	"ensi/pkg/ensimodel"
	"ensi/pkg/hostabi"
)

// Status classifies why Resume returned control to the engine.
type Status uint8

const (
	// StatusYielded means the guest called yield explicitly.
	StatusYielded Status = iota
	// StatusCompleted means the guest's entry function returned without
	// trapping or yielding; spec.md §4.9 treats this the same as Yield.
	StatusCompleted
	// StatusTrapped means the guest hit an unrecoverable fault this
	// turn: unknown syscall, illegal instruction, an out-of-bounds
	// memory, stack or operand access, or a cancelled context.
	StatusTrapped
	// StatusFuelExhausted means the fuel budget reached zero mid-turn.
	StatusFuelExhausted
)

// Outcome is Resume's result: a status and, for traps, the reason.
type Outcome struct {
	Status Status
	Trap   error
}

// Errors a trap may report. These never propagate past Resume: a trap
// ends only the current turn, never the game (spec.md §4.9).
var (
	ErrUnknownSyscall  = errors.New("sandbox: unknown syscall")
	ErrIllegalOpcode   = errors.New("sandbox: illegal instruction")
	ErrMemoryOutOfBounds = errors.New("sandbox: memory access out of bounds")
	ErrFuelExhausted   = errors.New("sandbox: fuel exhausted")
)

// Guest is the capability every dialect interpreter (wasmlite, riscvlite)
// implements. A Sandbox holds exactly one Guest for exactly one player.
type Guest interface {
	// Load installs a guest binary image. Called once, before the game
	// starts; never again for the lifetime of the Guest.
	Load(image []byte) error
	// PushBuffer writes the per-turn visibility push buffer into the
	// guest's addressable memory at its fixed base address, overwriting
	// whatever was there (spec.md §4.8: the engine owns this region).
	PushBuffer(buf []byte)
	// Resume runs the guest from its current suspended state (or from
	// its entry point, on the first call) until it yields, traps, or
	// exhausts fuel. fuel is refilled to this amount on every call.
	Resume(ctx context.Context, host *hostabi.Host, fuel uint64) Outcome
	// DrainCommands returns every action the guest queued via the
	// HostABI since the last drain. The Sandbox calls this once after
	// each Resume.
	DrainCommands() []command.Command
}

// Sandbox owns one Guest for one player and mediates Resume through the
// shared hostabi.Host the GameLoop builds for that player each turn.
type Sandbox struct {
	Player ensimodel.PlayerID
	Guest  Guest
}

// NewSandbox wraps an already-loaded Guest for player id.
func NewSandbox(id ensimodel.PlayerID, g Guest) *Sandbox {
	return &Sandbox{Player: id, Guest: g}
}

// Resume runs one turn for this sandbox's guest and drains its commands.
func (s *Sandbox) Resume(ctx context.Context, host *hostabi.Host, fuel uint64) (Outcome, []command.Command) {
	outcome := s.Guest.Resume(ctx, host, fuel)
	return outcome, s.Guest.DrainCommands()
}

// Pool preloads N guest binaries concurrently before a game starts.
// Turn execution itself stays strictly sequential per spec.md §5; this
// is a one-time setup-phase parallelism, grounded in the teacher's
// concurrent-safe MongoRepository batch writes generalized here to
// concurrent guest loads via golang.org/x/sync/errgroup.
type Pool struct {
	Sandboxes []*Sandbox
}

// Preload calls Load(images[i]) on every guest in parallel and returns
// the first error encountered, if any. On success every Sandbox in pool
// is ready for GameLoop.Run.
func Preload(ctx context.Context, guests []Guest, images [][]byte) (*Pool, error) {
	if len(guests) != len(images) {
		return nil, errors.New("sandbox: guests/images length mismatch")
	}
	g, _ := errgroup.WithContext(ctx)
	for i := range guests {
		i := i
		g.Go(func() error {
			return guests[i].Load(images[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pool := &Pool{Sandboxes: make([]*Sandbox, len(guests))}
	for i, guest := range guests {
		pool.Sandboxes[i] = NewSandbox(ensimodel.PlayerID(i+1), guest)
	}
	return pool, nil
}
