// Package hostabi implements the query/action syscall surface a guest
// bot drives, shared verbatim between the WASM and RISC-V dialects
// (pkg/sandbox/wasmlite, pkg/sandbox/riscvlite): only the calling
// convention differs, never the semantics. Grounded in the teacher's
// control_server's HTTP handler table (one handler per named operation,
// dispatched through a single entry point), generalized from HTTP routes
// to syscall numbers/import names.
package hostabi

import (
	"ensi/pkg/command"
	"ensi/pkg/ensimodel"
	"ensi/pkg/visibility"
)

// NoCapital is the packed capital sentinel: all-ones, per spec.md §4.8.
const NoCapital uint32 = 0xFFFFFFFF

// Syscall numbers for the RISC-V ecall convention; also usable as a
// stable identity for the WASM import-name table below.
const (
	SyscallGetTurn        = 1
	SyscallGetPlayerID    = 2
	SyscallGetMyCapital   = 3
	SyscallGetTile        = 4
	SyscallGetMyFood      = 5
	SyscallGetMyPopulation = 6
	SyscallGetMyArmy      = 7
	SyscallGetMapSize     = 8
	SyscallMove           = 100
	SyscallConvert        = 101
	SyscallMoveCapital    = 102
	SyscallYield          = 103
	SyscallAbandon        = 104
)

// ImportNames maps the WASM dialect's import names onto the same
// syscall numbers the RISC-V dialect uses. wasmlite consults it to reject
// unknown import names; each interpreter then dispatches in its own
// switch (by name or by number) onto the shared Host methods.
var ImportNames = map[string]int{
	"get_turn":          SyscallGetTurn,
	"get_player_id":     SyscallGetPlayerID,
	"get_my_capital":    SyscallGetMyCapital,
	"get_tile":          SyscallGetTile,
	"get_my_food":       SyscallGetMyFood,
	"get_my_population": SyscallGetMyPopulation,
	"get_my_army":       SyscallGetMyArmy,
	"get_map_size":      SyscallGetMapSize,
	"move":              SyscallMove,
	"convert":           SyscallConvert,
	"move_capital":      SyscallMoveCapital,
	"abandon":           SyscallAbandon,
	"yield":             SyscallYield,
}

// Accepted and Rejected are the canonical 0/nonzero action-syscall
// return codes.
const (
	Accepted = 0
	Rejected = 1
)

// Host is the per-turn, per-player context every syscall handler closes
// over: the player's current visibility buffer, its cached stats, the
// turn counter, and the queue its actions append to. Map is the
// engine's own authoritative grid, held here only so action syscalls
// can reject an illegal command before it is ever queued; it is never
// exposed to the guest (GetTile reads Visible, not Map, so fog is
// still enforced identically for queries).
type Host struct {
	Turn     uint32
	Player   ensimodel.PlayerID
	Capital  ensimodel.Coord
	HasCapital bool
	Stats    ensimodel.PlayerStats
	MapW     uint16
	MapH     uint16
	Visible  *visibility.Buffer
	Map      *ensimodel.Map
	Queue    *command.Queue
	Yielded  bool
}

// GetTurn implements the get_turn query.
func (h *Host) GetTurn() uint32 { return h.Turn }

// GetPlayerID implements the get_player_id query.
func (h *Host) GetPlayerID() uint8 { return uint8(h.Player) }

// GetMyCapital implements the get_my_capital query.
func (h *Host) GetMyCapital() uint32 {
	if !h.HasCapital {
		return NoCapital
	}
	return uint32(h.Capital.X)<<16 | uint32(h.Capital.Y)
}

// GetTile implements the get_tile query, fog-respecting via the
// already-projected Visibility buffer: the push buffer and this query
// share one source of truth, per spec.md §4.8's "including when the
// push-based buffer is the source of truth".
func (h *Host) GetTile(x, y int) uint32 {
	return h.Visible.At(x, y)
}

// GetMyFood implements the get_my_food query.
func (h *Host) GetMyFood() int32 { return int32(h.Stats.Food) }

// GetMyPopulation implements the get_my_population query.
func (h *Host) GetMyPopulation() uint32 { return uint32(h.Stats.TotalPopulation) }

// GetMyArmy implements the get_my_army query.
func (h *Host) GetMyArmy() uint32 { return uint32(h.Stats.TotalArmy) }

// GetMapSize implements the get_map_size query.
func (h *Host) GetMapSize() uint32 {
	return uint32(h.MapW)<<16 | uint32(h.MapH)
}

// Move implements the move action syscall. Rejected without enqueuing
// on the same terms spec.md §4.7 gives the Resolver: from owned by the
// caller, to in bounds and 4-adjacent to from, to not a Mountain,
// count ≥ 1, and source army ≥ count. This mirrors rather than replaces
// the Resolver's own check, since a command built from a stale view
// (the map may have changed since this turn's visibility was projected)
// can still be legal at syscall time and illegal by the time the
// Resolver runs it, or vice versa.
func (h *Host) Move(fromX, fromY, toX, toY uint16, count uint32) uint32 {
	if count == 0 {
		return Rejected
	}
	from := ensimodel.Coord{X: fromX, Y: fromY}
	to := ensimodel.Coord{X: toX, Y: toY}
	if !h.inBounds(from) || !h.inBounds(to) || !from.Adjacent(to) {
		return Rejected
	}
	if !h.Map.Get(from).Owner.Is(h.Player) {
		return Rejected
	}
	if h.Map.Get(to).Type == ensimodel.TileMountain {
		return Rejected
	}
	if uint32(h.Map.Get(from).Army) < count {
		return Rejected
	}
	h.Queue.Push(command.Command{
		Submitter: h.Player,
		Kind:      command.KindMove,
		From:      from,
		To:        to,
		Count:     count,
	})
	return Accepted
}

// Convert implements the convert action syscall: the target must be a
// City owned by the caller with population ≥ count, mirroring the
// Resolver's own check.
func (h *Host) Convert(x, y uint16, count uint32) uint32 {
	if count == 0 {
		return Rejected
	}
	tile := ensimodel.Coord{X: x, Y: y}
	if !h.inBounds(tile) {
		return Rejected
	}
	t := h.Map.Get(tile)
	if t.Type != ensimodel.TileCity || !t.Owner.Is(h.Player) {
		return Rejected
	}
	if uint64(t.Population) < uint64(count) {
		return Rejected
	}
	h.Queue.Push(command.Command{
		Submitter: h.Player,
		Kind:      command.KindConvert,
		Tile:      tile,
		Count:     count,
	})
	return Accepted
}

// MoveCapital implements the move_capital action syscall: the target
// must be a City owned by the caller with strictly greater population
// than the current capital, mirroring the Resolver's own check.
func (h *Host) MoveCapital(x, y uint16) uint32 {
	to := ensimodel.Coord{X: x, Y: y}
	if !h.inBounds(to) {
		return Rejected
	}
	t := h.Map.Get(to)
	if t.Type != ensimodel.TileCity || !t.Owner.Is(h.Player) {
		return Rejected
	}
	if h.HasCapital && t.Population <= h.Map.Get(h.Capital).Population {
		return Rejected
	}
	h.Queue.Push(command.Command{
		Submitter: h.Player,
		Kind:      command.KindMoveCapital,
		To:        to,
	})
	return Accepted
}

// Abandon implements the abandon action syscall: the tile must be
// owned by the caller and must not be its capital, mirroring the
// Resolver's own check.
func (h *Host) Abandon(x, y uint16) uint32 {
	tile := ensimodel.Coord{X: x, Y: y}
	if !h.inBounds(tile) {
		return Rejected
	}
	if !h.Map.Get(tile).Owner.Is(h.Player) {
		return Rejected
	}
	if h.HasCapital && h.Capital == tile {
		return Rejected
	}
	h.Queue.Push(command.Command{
		Submitter: h.Player,
		Kind:      command.KindAbandon,
		Tile:      tile,
	})
	return Accepted
}

// inBounds reports whether c lies within this Host's map dimensions.
func (h *Host) inBounds(c ensimodel.Coord) bool {
	return h.Map.InBounds(c)
}

// Yield implements the yield action syscall: it carries no Resolver
// command (command.KindYield is a documented no-op, see pkg/resolver) but
// signals the Sandbox loop to stop resuming this bot for the turn.
func (h *Host) Yield() {
	h.Queue.Push(command.Command{Submitter: h.Player, Kind: command.KindYield})
	h.Yielded = true
}

// PushHeader is the fixed 16-byte header written before the packed tile
// buffer at the guest's push-buffer base address, per spec.md §4.8.
type PushHeader struct {
	Width, Height uint16
	Turn          uint32
	PlayerID      uint16
	_reserved     uint16
}

// PushMagic is the header's 4-byte magic, "ENSI" in ASCII.
var PushMagic = [4]byte{'E', 'N', 'S', 'I'}

// EncodePushBuffer serializes the header and the packed tile buffer into
// the little-endian flat byte layout spec.md §4.8 specifies, ready to be
// copied into a guest's linear memory / flat image at its push-buffer
// base address.
func EncodePushBuffer(h PushHeader, buf *visibility.Buffer) []byte {
	out := make([]byte, 16+4*len(buf.Tiles))
	copy(out[0:4], PushMagic[:])
	putU16(out[4:6], h.Width)
	putU16(out[6:8], h.Height)
	putU32(out[8:12], h.Turn)
	putU16(out[12:14], h.PlayerID)
	putU16(out[14:16], 0)
	for i, t := range buf.Tiles {
		putU32(out[16+4*i:20+4*i], t)
	}
	return out
}

func putU16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
