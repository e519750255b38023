package riscvlite

import (
	"context"
	"encoding/binary"
	"testing"

	"ensi/pkg/command"
	"ensi/pkg/ensimodel"
	"ensi/pkg/hostabi"
	"ensi/pkg/sandbox"
	"ensi/pkg/visibility"
)

func instr(op, rd, rs1, rs2 byte, imm int32) []byte {
	b := make([]byte, instrSize)
	b[0], b[1], b[2], b[3] = op, rd, rs1, rs2
	binary.LittleEndian.PutUint32(b[4:8], uint32(imm))
	return b
}

func program(instrs ...[]byte) []byte {
	var out []byte
	for _, i := range instrs {
		out = append(out, i...)
	}
	return out
}

func newHost(t *testing.T) *hostabi.Host {
	t.Helper()
	m := ensimodel.NewMap(2, 2)
	m.Set(ensimodel.Coord{X: 1, Y: 0}, ensimodel.Tile{Type: ensimodel.TileCity, Owner: ensimodel.OwnedBy(2), Population: 9, Army: 1})
	return &hostabi.Host{
		Turn:   4,
		Player: 2,
		Stats:  ensimodel.PlayerStats{TotalPopulation: 9, TotalArmy: 1, Food: 8},
		MapW:   2, MapH: 2,
		Visible: visibility.Project(m, 2),
		Map:     m,
		Queue:   command.NewQueue(),
	}
}

func TestInterpreter_Yield(t *testing.T) {
	in := &Interpreter{}
	prog := program(
		instr(OpAddI, RegA7, RegZero, 0, SyscallYield),
		instr(OpEcall, 0, 0, 0, 0),
		instr(OpHalt, 0, 0, 0, 0),
	)
	if err := in.Load(prog); err != nil {
		t.Fatalf("Load: %v", err)
	}

	host := newHost(t)
	outcome := in.Resume(context.Background(), host, 1000)
	if outcome.Status != sandbox.StatusYielded {
		t.Fatalf("Status = %v, want StatusYielded", outcome.Status)
	}
	cmds := in.DrainCommands()
	if len(cmds) != 1 || cmds[0].Kind != command.KindYield {
		t.Fatalf("commands = %+v, want one Yield", cmds)
	}
}

func TestInterpreter_GetTurn_ViaEcall(t *testing.T) {
	in := &Interpreter{}
	prog := program(
		instr(OpAddI, RegA7, RegZero, 0, SyscallGetTurn),
		instr(OpEcall, 0, 0, 0, 0),
		instr(OpHalt, 0, 0, 0, 0),
	)
	if err := in.Load(prog); err != nil {
		t.Fatalf("Load: %v", err)
	}

	host := newHost(t)
	if outcome := in.Resume(context.Background(), host, 1000); outcome.Status != sandbox.StatusCompleted {
		t.Fatalf("Status = %v, want StatusCompleted", outcome.Status)
	}
	if in.regs[RegA0] != 4 {
		t.Errorf("a0 = %d, want 4 (the host's turn)", in.regs[RegA0])
	}
}

func TestInterpreter_Abandon_ViaEcall(t *testing.T) {
	in := &Interpreter{}
	prog := program(
		instr(OpAddI, RegA0, RegZero, 0, 1), // x
		instr(OpAddI, RegA1, RegZero, 0, 0), // y
		instr(OpAddI, RegA7, RegZero, 0, SyscallAbandon),
		instr(OpEcall, 0, 0, 0, 0),
		instr(OpHalt, 0, 0, 0, 0),
	)
	if err := in.Load(prog); err != nil {
		t.Fatalf("Load: %v", err)
	}

	host := newHost(t)
	if outcome := in.Resume(context.Background(), host, 1000); outcome.Status != sandbox.StatusCompleted {
		t.Fatalf("Status = %v, want StatusCompleted", outcome.Status)
	}
	cmds := in.DrainCommands()
	if len(cmds) != 1 || cmds[0].Kind != command.KindAbandon || cmds[0].Tile != (ensimodel.Coord{X: 1, Y: 0}) {
		t.Fatalf("unexpected commands: %+v", cmds)
	}
}

func TestInterpreter_FuelExhaustion_SyscallTariffClampsToZero(t *testing.T) {
	in := &Interpreter{}
	prog := program(
		instr(OpAddI, RegA7, RegZero, 0, SyscallYield),
		instr(OpEcall, 0, 0, 0, 0),
		instr(OpHalt, 0, 0, 0, 0),
	)
	if err := in.Load(prog); err != nil {
		t.Fatalf("Load: %v", err)
	}

	host := newHost(t)
	// Enough fuel for the AddI and the ecall's own instruction fetch,
	// but not its 10-unit syscall tariff: must exhaust, not wrap fuel
	// to a huge value.
	outcome := in.Resume(context.Background(), host, 5)
	if outcome.Status != sandbox.StatusFuelExhausted {
		t.Fatalf("Status = %v, want StatusFuelExhausted", outcome.Status)
	}
	if cmds := in.DrainCommands(); len(cmds) != 0 {
		t.Errorf("commands = %+v, want none queued before the syscall could run", cmds)
	}
}

func TestChargeFuel_ClampsInsteadOfWrapping(t *testing.T) {
	remaining, ok := chargeFuel(5, 10)
	if ok {
		t.Fatalf("ok = true, want false when fuel < cost")
	}
	if remaining != 0 {
		t.Fatalf("remaining = %d, want 0 (clamped, not wrapped)", remaining)
	}

	remaining, ok = chargeFuel(10, 10)
	if !ok || remaining != 0 {
		t.Fatalf("chargeFuel(10, 10) = %d, %v, want 0, true", remaining, ok)
	}
}

func TestInterpreter_RegisterZero_AlwaysReadsZero(t *testing.T) {
	in := &Interpreter{}
	prog := program(
		instr(OpAddI, RegZero, RegZero, 0, 42), // write to x0 discarded
		instr(OpHalt, 0, 0, 0, 0),
	)
	if err := in.Load(prog); err != nil {
		t.Fatalf("Load: %v", err)
	}

	host := newHost(t)
	in.Resume(context.Background(), host, 1000)
	if in.regs[RegZero] != 0 {
		t.Errorf("x0 = %d, want 0 (writes to it must be discarded)", in.regs[RegZero])
	}
}

func TestInterpreter_IllegalOpcodeTraps(t *testing.T) {
	in := &Interpreter{}
	if err := in.Load(instr(OpIllegal, 0, 0, 0, 0)); err != nil {
		t.Fatalf("Load: %v", err)
	}

	host := newHost(t)
	outcome := in.Resume(context.Background(), host, 100)
	if outcome.Status != sandbox.StatusTrapped {
		t.Fatalf("Status = %v, want StatusTrapped", outcome.Status)
	}
}

func TestInterpreter_UnknownEcallTraps(t *testing.T) {
	in := &Interpreter{}
	prog := program(
		instr(OpAddI, RegA7, RegZero, 0, 999),
		instr(OpEcall, 0, 0, 0, 0),
	)
	if err := in.Load(prog); err != nil {
		t.Fatalf("Load: %v", err)
	}

	host := newHost(t)
	outcome := in.Resume(context.Background(), host, 100)
	if outcome.Status != sandbox.StatusTrapped {
		t.Fatalf("Status = %v, want StatusTrapped for an unknown syscall number", outcome.Status)
	}
}

func TestInterpreter_LoadRejectsMisalignedImage(t *testing.T) {
	in := &Interpreter{}
	if err := in.Load([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected an error for an image not a multiple of instrSize")
	}
}
