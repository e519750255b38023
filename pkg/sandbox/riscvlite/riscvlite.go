// Package riscvlite is a small, deterministic interpreter for Ensi's
// RISC-V-shaped guest dialect: a flat register machine with an
// ecall-style syscall convention (number in a7/x17, arguments in
// a0..a4/x10..x14, return in a0/x10), matching spec.md §6's RV32IM
// calling convention. As with wasmlite, no RISC-V execution engine
// appears anywhere in the retrieved example corpus, so this is a
// hand-rolled instruction set local to this module rather than a
// binary-compatible RV32IM core; see DESIGN.md.
package riscvlite

import (
	"context"
	"encoding/binary"

	"ensi/pkg/command"
	"ensi/pkg/hostabi"
	"ensi/pkg/sandbox"
)

// Register indices for the RISC-V calling convention this dialect uses.
const (
	RegZero = 0
	RegA0   = 10
	RegA1   = 11
	RegA2   = 12
	RegA3   = 13
	RegA4   = 14
	RegA7   = 17

	numRegisters = 32
)

// Syscall numbers, shared 1:1 with hostabi's canonical table.
const (
	SyscallGetTurn        = hostabi.SyscallGetTurn
	SyscallGetPlayerID    = hostabi.SyscallGetPlayerID
	SyscallGetMyCapital   = hostabi.SyscallGetMyCapital
	SyscallGetTile        = hostabi.SyscallGetTile
	SyscallGetMyFood      = hostabi.SyscallGetMyFood
	SyscallGetMyPopulation = hostabi.SyscallGetMyPopulation
	SyscallGetMyArmy      = hostabi.SyscallGetMyArmy
	SyscallGetMapSize     = hostabi.SyscallGetMapSize
	SyscallMove           = hostabi.SyscallMove
	SyscallConvert        = hostabi.SyscallConvert
	SyscallMoveCapital    = hostabi.SyscallMoveCapital
	SyscallYield          = hostabi.SyscallYield
	SyscallAbandon        = hostabi.SyscallAbandon
)

// Opcodes. Each instruction is a fixed 8 bytes: [op, rd, rs1, rs2, imm
// (4 bytes little-endian)]. Branch/jump immediates are in instruction
// units (not bytes), relative to the instruction's own index.
const (
	OpIllegal byte = iota
	OpNop
	OpAddI // rd = rs1 + imm
	OpAdd  // rd = rs1 + rs2
	OpSub  // rd = rs1 - rs2
	OpBeq  // if rs1 == rs2: pc += imm (else pc += 1)
	OpJal  // rd = pc + 1; pc += imm
	OpLw   // rd = mem32[rs1 + imm]
	OpSw   // mem32[rs1 + imm] = rs2
	OpEcall
	OpHalt
)

const instrSize = 8

// PushBufferBase is the fixed memory offset the engine writes the
// per-turn visibility push buffer to.
const PushBufferBase = 0x10000

// MemorySize mirrors wasmlite's: room for the push buffer plus headroom
// below it for guest-declared data.
const MemorySize = PushBufferBase + 16 + 4*64*64

// Interpreter is one guest's persistent RISC-V-lite state.
type Interpreter struct {
	program []byte // sequence of instrSize-byte instructions
	memory  [MemorySize]byte
	regs    [numRegisters]int64
	pc      int // instruction index, not byte offset

	queue *command.Queue
}

var _ sandbox.Guest = (*Interpreter)(nil)

// Load installs a flat instruction image: no header, just instrSize-byte
// instructions back to back.
func (in *Interpreter) Load(image []byte) error {
	if len(image)%instrSize != 0 {
		return sandbox.ErrIllegalOpcode
	}
	in.program = append([]byte(nil), image...)
	in.pc = 0
	return nil
}

// PushBuffer overwrites the push-buffer region of memory.
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

func (in *Interpreter) instrCount() int { return len(in.program) / instrSize }

func (in *Interpreter) fetch(i int) (op, rd, rs1, rs2 byte, imm int32) {
	b := in.program[i*instrSize : i*instrSize+instrSize]
	return b[0], b[1], b[2], b[3], int32(binary.LittleEndian.Uint32(b[4:8]))
}

// Resume executes from the current instruction index until ecall-yield,
// halt, a trap, or fuel exhaustion. Register x0 always reads zero,
// writes to it are discarded, per the RISC-V convention this dialect
// borrows.
func (in *Interpreter) Resume(ctx context.Context, host *hostabi.Host, fuel uint64) sandbox.Outcome {
	in.queue = host.Queue
	in.regs[RegZero] = 0

	for {
		select {
		case <-ctx.Done():
			return sandbox.Outcome{Status: sandbox.StatusTrapped, Trap: ctx.Err()}
		default:
		}

		if in.pc >= in.instrCount() {
			in.pc = 0
			return sandbox.Outcome{Status: sandbox.StatusCompleted}
		}

		op, rd, rs1, rs2, imm := in.fetch(in.pc)
		var ok bool
		if fuel, ok = chargeFuel(fuel, 1); !ok {
			return sandbox.Outcome{Status: sandbox.StatusFuelExhausted, Trap: sandbox.ErrFuelExhausted}
		}

		switch op {
		case OpIllegal:
			return sandbox.Outcome{Status: sandbox.StatusTrapped, Trap: sandbox.ErrIllegalOpcode}

		case OpNop:
			in.pc++

		case OpAddI:
			in.setReg(rd, in.regs[rs1]+int64(imm))
			in.pc++

		case OpAdd:
			in.setReg(rd, in.regs[rs1]+in.regs[rs2])
			in.pc++

		case OpSub:
			in.setReg(rd, in.regs[rs1]-in.regs[rs2])
			in.pc++

		case OpBeq:
			if in.regs[rs1] == in.regs[rs2] {
				in.pc += int(imm)
			} else {
				in.pc++
			}

		case OpJal:
			in.setReg(rd, int64(in.pc+1))
			in.pc += int(imm)

		case OpLw:
			addr := in.regs[rs1] + int64(imm)
			if addr < 0 || int(addr)+4 > len(in.memory) {
				return trapBounds()
			}
			in.setReg(rd, int64(binary.LittleEndian.Uint32(in.memory[addr:addr+4])))
			in.pc++

		case OpSw:
			addr := in.regs[rs1] + int64(imm)
			if addr < 0 || int(addr)+4 > len(in.memory) {
				return trapBounds()
			}
			binary.LittleEndian.PutUint32(in.memory[addr:addr+4], uint32(in.regs[rs2]))
			in.pc++

		case OpEcall:
			var fueled bool
			if fuel, fueled = chargeFuel(fuel, 10); !fueled {
				return sandbox.Outcome{Status: sandbox.StatusFuelExhausted, Trap: sandbox.ErrFuelExhausted}
			}
			yielded, ok := in.doEcall(host)
			if !ok {
				return sandbox.Outcome{Status: sandbox.StatusTrapped, Trap: sandbox.ErrUnknownSyscall}
			}
			in.pc++
			if yielded {
				return sandbox.Outcome{Status: sandbox.StatusYielded}
			}

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

func (in *Interpreter) setReg(idx byte, v int64) {
	if idx == RegZero {
		return
	}
	in.regs[idx] = v
}

// doEcall dispatches on a7's syscall number, reading arguments from
// a0..a4 and writing any result to a0, per spec.md §6.
func (in *Interpreter) doEcall(host *hostabi.Host) (yielded bool, ok bool) {
	num := in.regs[RegA7]
	a0, a1, a2, a3, a4 := in.regs[RegA0], in.regs[RegA1], in.regs[RegA2], in.regs[RegA3], in.regs[RegA4]

	switch num {
	case SyscallGetTurn:
		in.regs[RegA0] = int64(host.GetTurn())
	case SyscallGetPlayerID:
		in.regs[RegA0] = int64(host.GetPlayerID())
	case SyscallGetMyCapital:
		in.regs[RegA0] = int64(host.GetMyCapital())
	case SyscallGetTile:
		in.regs[RegA0] = int64(host.GetTile(int(a0), int(a1)))
	case SyscallGetMyFood:
		in.regs[RegA0] = int64(host.GetMyFood())
	case SyscallGetMyPopulation:
		in.regs[RegA0] = int64(host.GetMyPopulation())
	case SyscallGetMyArmy:
		in.regs[RegA0] = int64(host.GetMyArmy())
	case SyscallGetMapSize:
		in.regs[RegA0] = int64(host.GetMapSize())
	case SyscallMove:
		in.regs[RegA0] = int64(host.Move(uint16(a0), uint16(a1), uint16(a2), uint16(a3), uint32(a4)))
	case SyscallConvert:
		in.regs[RegA0] = int64(host.Convert(uint16(a0), uint16(a1), uint32(a2)))
	case SyscallMoveCapital:
		in.regs[RegA0] = int64(host.MoveCapital(uint16(a0), uint16(a1)))
	case SyscallAbandon:
		in.regs[RegA0] = int64(host.Abandon(uint16(a0), uint16(a1)))
	case SyscallYield:
		host.Yield()
		return true, true
	default:
		return false, false
	}
	return false, true
}
