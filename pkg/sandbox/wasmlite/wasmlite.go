// Package wasmlite is a small, deterministic interpreter for Ensi's
// WebAssembly-shaped guest dialect: a stack machine over a linear
// memory, host calls resolved by import name against the §4.8 host
// functions. An image declares imports only; it has no export table and
// no run_turn entry point: every turn resumes at the interpreter's
// current program offset (byte 0 on the first turn and after a halt).
// No WebAssembly runtime library appears anywhere in the retrieved
// example corpus (see DESIGN.md), so this is a hand-rolled instruction
// set local to this module, not a binary-compatible WASM engine: guest
// images are this interpreter's own minimal flat encoding, produced by
// whatever external toolchain targets it.
package wasmlite

import (
	"context"
	"encoding/binary"

	"ensi/pkg/command"
	"ensi/pkg/hostabi"
	"ensi/pkg/sandbox"
)

// Opcodes. One byte each; Const, LocalGet, LocalSet, Jump, BrIfZero, and
// Call carry fixed-width immediate operands following the opcode byte.
const (
	OpUnreachable byte = iota
	OpNop
	OpConst    // + 8 bytes little-endian int64
	OpLocalGet // + 1 byte local index
	OpLocalSet // + 1 byte local index
	OpAdd
	OpSub
	OpJump     // + 4 bytes little-endian instruction address
	OpBrIfZero // + 4 bytes little-endian instruction address
	OpCall     // + 1 byte import index, + 1 byte argument count
	OpDrop
	OpLoad32 // pop address, push mem[addr:addr+4] zero-extended
	OpHalt
)

// PushBufferBase is the fixed linear-memory offset the engine writes
// the per-turn visibility push buffer to, per spec.md §4.8/§6.
const PushBufferBase = 0x10000

// MemorySize is this dialect's fixed linear memory size: large enough
// to hold the push buffer header plus a 64x64 tile buffer with room to
// spare for guest-declared locals/scratch space below the base offset.
const MemorySize = PushBufferBase + 16 + 4*64*64

const localCount = 16

// Interpreter is one guest's persistent WASM-lite state: program,
// memory, and machine registers survive across Resume calls exactly as
// spec.md §4.9 requires ("paused with its full state retained").
type Interpreter struct {
	program []byte
	imports []string // import index -> host function name, declared by the image header

	memory [MemorySize]byte
	stack  []int64
	locals [localCount]int64
	pc     int

	queue *command.Queue
}

var _ sandbox.Guest = (*Interpreter)(nil)

// imageHeader: 2-byte import count, then that many length-prefixed
// import names, then the bytecode program to the end of the image.
func (in *Interpreter) Load(image []byte) error {
	if len(image) < 2 {
		return sandbox.ErrIllegalOpcode
	}
	n := int(binary.LittleEndian.Uint16(image[0:2]))
	off := 2
	imports := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if off+2 > len(image) {
			return sandbox.ErrIllegalOpcode
		}
		l := int(binary.LittleEndian.Uint16(image[off : off+2]))
		off += 2
		if off+l > len(image) {
			return sandbox.ErrIllegalOpcode
		}
		imports = append(imports, string(image[off:off+l]))
		off += l
	}
	in.imports = imports
	in.program = append([]byte(nil), image[off:]...)
	in.pc = 0
	return nil
}

// PushBuffer overwrites the push-buffer region of linear memory.
func (in *Interpreter) PushBuffer(buf []byte) {
	copy(in.memory[PushBufferBase:], buf)
}

// DrainCommands returns every action queued by the most recent Resume.
func (in *Interpreter) DrainCommands() []command.Command {
	if in.queue == nil {
		return nil
	}
	return in.queue.Drain()
}

// Resume executes from the interpreter's current pc (0 on first call,
// wherever it left off otherwise) until yield, halt, a trap, or fuel
// exhaustion.
func (in *Interpreter) Resume(ctx context.Context, host *hostabi.Host, fuel uint64) sandbox.Outcome {
	in.queue = host.Queue

	for {
		select {
		case <-ctx.Done():
			return sandbox.Outcome{Status: sandbox.StatusTrapped, Trap: ctx.Err()}
		default:
		}

		if in.pc >= len(in.program) {
			in.pc = 0
			return sandbox.Outcome{Status: sandbox.StatusCompleted}
		}

		op := in.program[in.pc]
		var ok bool
		if fuel, ok = chargeFuel(fuel, 1); !ok {
			return sandbox.Outcome{Status: sandbox.StatusFuelExhausted, Trap: sandbox.ErrFuelExhausted}
		}

		switch op {
		case OpUnreachable:
			return sandbox.Outcome{Status: sandbox.StatusTrapped, Trap: sandbox.ErrIllegalOpcode}

		case OpNop:
			in.pc++

		case OpConst:
			v, ok := in.readI64(in.pc + 1)
			if !ok {
				return trapBounds()
			}
			in.push(v)
			in.pc += 9

		case OpLocalGet:
			idx, ok := in.readByte(in.pc + 1)
			if !ok || int(idx) >= localCount {
				return trapBounds()
			}
			in.push(in.locals[idx])
			in.pc += 2

		case OpLocalSet:
			idx, ok := in.readByte(in.pc + 1)
			if !ok || int(idx) >= localCount {
				return trapBounds()
			}
			v, ok := in.pop()
			if !ok {
				return trapBounds()
			}
			in.locals[idx] = v
			in.pc += 2

		case OpAdd:
			b, ok1 := in.pop()
			a, ok2 := in.pop()
			if !ok1 || !ok2 {
				return trapBounds()
			}
			in.push(a + b)
			in.pc++

		case OpSub:
			b, ok1 := in.pop()
			a, ok2 := in.pop()
			if !ok1 || !ok2 {
				return trapBounds()
			}
			in.push(a - b)
			in.pc++

		case OpJump:
			addr, ok := in.readU32(in.pc + 1)
			if !ok {
				return trapBounds()
			}
			in.pc = int(addr)

		case OpBrIfZero:
			addr, ok := in.readU32(in.pc + 1)
			if !ok {
				return trapBounds()
			}
			cond, ok := in.pop()
			if !ok {
				return trapBounds()
			}
			if cond == 0 {
				in.pc = int(addr)
			} else {
				in.pc += 5
			}

		case OpCall:
			idx, ok1 := in.readByte(in.pc + 1)
			argc, ok2 := in.readByte(in.pc + 2)
			if !ok1 || !ok2 || int(idx) >= len(in.imports) {
				return trapBounds()
			}
			args, ok := in.popN(int(argc))
			if !ok {
				return trapBounds()
			}
			var fueled bool
			if fuel, fueled = chargeFuel(fuel, 10); !fueled {
				return sandbox.Outcome{Status: sandbox.StatusFuelExhausted, Trap: sandbox.ErrFuelExhausted}
			}
			name := in.imports[idx]
			result, yielded, ok := callImport(name, args, host, in)
			if !ok {
				return sandbox.Outcome{Status: sandbox.StatusTrapped, Trap: sandbox.ErrUnknownSyscall}
			}
			in.pc += 3
			if yielded {
				return sandbox.Outcome{Status: sandbox.StatusYielded}
			}
			if name != "yield" {
				in.push(result)
			}

		case OpDrop:
			if _, ok := in.pop(); !ok {
				return trapBounds()
			}
			in.pc++

		case OpLoad32:
			addr, ok := in.pop()
			if !ok || addr < 0 || int(addr)+4 > len(in.memory) {
				return trapBounds()
			}
			in.push(int64(binary.LittleEndian.Uint32(in.memory[addr : addr+4])))
			in.pc++

		case OpHalt:
			in.pc = 0
			return sandbox.Outcome{Status: sandbox.StatusCompleted}

		default:
			return sandbox.Outcome{Status: sandbox.StatusTrapped, Trap: sandbox.ErrIllegalOpcode}
		}
	}
}

func trapBounds() sandbox.Outcome {
	return sandbox.Outcome{Status: sandbox.StatusTrapped, Trap: sandbox.ErrMemoryOutOfBounds}
}

// chargeFuel deducts cost from fuel, clamping to zero instead of
// wrapping when fuel < cost (fuel is unsigned); ok is false when the
// charge could not be fully paid, meaning the turn is out of fuel.
func chargeFuel(fuel, cost uint64) (remaining uint64, ok bool) {
	if fuel < cost {
		return 0, false
	}
	return fuel - cost, true
}

func (in *Interpreter) push(v int64) { in.stack = append(in.stack, v) }

func (in *Interpreter) pop() (int64, bool) {
	if len(in.stack) == 0 {
		return 0, false
	}
	v := in.stack[len(in.stack)-1]
	in.stack = in.stack[:len(in.stack)-1]
	return v, true
}

// popN pops n values and returns them in original push (argument) order.
func (in *Interpreter) popN(n int) ([]int64, bool) {
	if n > len(in.stack) {
		return nil, false
	}
	out := make([]int64, n)
	copy(out, in.stack[len(in.stack)-n:])
	in.stack = in.stack[:len(in.stack)-n]
	return out, true
}

func (in *Interpreter) readByte(off int) (byte, bool) {
	if off < 0 || off >= len(in.program) {
		return 0, false
	}
	return in.program[off], true
}

func (in *Interpreter) readU32(off int) (uint32, bool) {
	if off < 0 || off+4 > len(in.program) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(in.program[off : off+4]), true
}

func (in *Interpreter) readI64(off int) (int64, bool) {
	if off < 0 || off+8 > len(in.program) {
		return 0, false
	}
	return int64(binary.LittleEndian.Uint64(in.program[off : off+8])), true
}

// callImport dispatches a host call by its declared import name,
// sharing the syscall semantics and numbering table with riscvlite via
// pkg/hostabi. Returns ok=false for a name not in hostabi.ImportNames,
// or for a call with fewer arguments than the host function reads
// (either way a trap that ends the turn).
func callImport(name string, args []int64, host *hostabi.Host, in *Interpreter) (result int64, yielded bool, ok bool) {
	if _, known := hostabi.ImportNames[name]; !known {
		return 0, false, false
	}
	need := 0
	switch name {
	case "get_tile", "move_capital", "abandon":
		need = 2
	case "convert":
		need = 3
	case "move":
		need = 5
	}
	if len(args) < need {
		return 0, false, false
	}
	switch name {
	case "get_turn":
		return int64(host.GetTurn()), false, true
	case "get_player_id":
		return int64(host.GetPlayerID()), false, true
	case "get_my_capital":
		return int64(host.GetMyCapital()), false, true
	case "get_tile":
		return int64(host.GetTile(int(args[0]), int(args[1]))), false, true
	case "get_my_food":
		return int64(host.GetMyFood()), false, true
	case "get_my_population":
		return int64(host.GetMyPopulation()), false, true
	case "get_my_army":
		return int64(host.GetMyArmy()), false, true
	case "get_map_size":
		return int64(host.GetMapSize()), false, true
	case "move":
		return int64(host.Move(uint16(args[0]), uint16(args[1]), uint16(args[2]), uint16(args[3]), uint32(args[4]))), false, true
	case "convert":
		return int64(host.Convert(uint16(args[0]), uint16(args[1]), uint32(args[2]))), false, true
	case "move_capital":
		return int64(host.MoveCapital(uint16(args[0]), uint16(args[1]))), false, true
	case "abandon":
		return int64(host.Abandon(uint16(args[0]), uint16(args[1]))), false, true
	case "yield":
		host.Yield()
		return 0, true, true
	}
	return 0, false, false
}
