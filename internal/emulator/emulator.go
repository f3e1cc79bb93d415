// Package emulator wires the CPU, bus and scheduler into the single
// top-level type a host program drives one instruction, one tick, or one
// frame at a time. Grounded on original_source/psx/src/lib.rs's
// PSXEmulator (tick/run_frame/load_disc/update_input/sideload_exe/
// get_vram/get_tty_buf), with the teacher's emulation.Emulation /
// hardware.VCS split collapsed into one struct the way lib.rs itself
// keeps cpu+bus+scheduler together rather than separating them.
package emulator

import (
	"encoding/binary"
	"fmt"

	"github.com/jetsetilly/psx/errors"
	"github.com/jetsetilly/psx/internal/bus"
	"github.com/jetsetilly/psx/internal/cdrom/disc"
	"github.com/jetsetilly/psx/internal/cpu"
	"github.com/jetsetilly/psx/internal/gte"
	"github.com/jetsetilly/psx/internal/instance"
	"github.com/jetsetilly/psx/internal/interrupts"
	"github.com/jetsetilly/psx/internal/scheduler"
)

// vblankPeriod is the CPU-cycle interval between vertical blanks lib.rs
// schedules the first event at; §4.9 leaves NTSC/PAL refinement as an open
// question, so both regions currently share this single approximation.
const vblankPeriod = 571212

// cpuCyclesPerStep is how far Bus.Tick advances the scheduler and every
// free-running peripheral per CPU instruction, matching lib.rs's constant
// "tick_scheduler(2)" call after every run_instruction.
const cpuCyclesPerStep = 2

// Emulator owns one CPU, its bus and the shared scheduler, and exposes the
// handful of operations a frontend needs: stepping, frame pumping, disc and
// pad input, EXE sideloading, and the two debug/compat windows (VRAM,
// kernel TTY output) a presenter or test harness reads from. Bus and CPU
// are exported so a presenter can reach straight through to
// Emulator.Bus.GPU, Emulator.Bus.Spu and so on without this package
// re-exposing every peripheral getter.
type Emulator struct {
	CPU       *cpu.CPU
	Bus       *bus.Bus
	Scheduler *scheduler.Scheduler

	outVRAM []uint16
}

// NewEmulator constructs a fresh machine: a reset CPU with the GTE wired in
// as its COP2, a Bus over the given BIOS image, and the first Vblank event
// already queued the way lib.rs's constructor does.
func NewEmulator(ins *instance.Instance, bios []byte) *Emulator {
	sched := scheduler.New()
	ir := interrupts.New()

	c := cpu.NewCPU(ins)
	c.COP2 = gte.New()

	b := bus.New(ins, bios, sched, ir)
	e := &Emulator{
		CPU:       c,
		Bus:       b,
		Scheduler: sched,
		outVRAM:   make([]uint16, len(b.GPU.VRAM)),
	}
	e.Scheduler.Schedule(scheduler.Event{Kind: scheduler.Vblank}, vblankPeriod)
	return e
}

// Tick executes exactly one CPU instruction and advances every peripheral
// by cpuCyclesPerStep cycles, mirroring lib.rs's per-event-then-instruction
// ordering: a single due scheduler event (if any) is dispatched before the
// instruction executes, not after. A Vblank popped here snapshots VRAM
// immediately, so GetVRAM stays current for callers driving Tick directly
// instead of RunFrame.
func (e *Emulator) Tick() {
	if e.Scheduler.NextReady() && e.Bus.DispatchOne() == scheduler.Vblank {
		e.Scheduler.Schedule(scheduler.Event{Kind: scheduler.Vblank}, vblankPeriod)
		e.snapshotVRAM()
	}
	e.CPU.Step(e.Bus)
	e.Bus.Tick(cpuCyclesPerStep)
}

// RunFrame steps the CPU until a Vblank event has been popped and handled,
// the same "loop until vblank" shape as lib.rs's run_frame, then snapshots
// VRAM for GetVRAM's caller.
func (e *Emulator) RunFrame() {
	for {
		for !e.Scheduler.NextReady() {
			e.CPU.Step(e.Bus)
			e.Bus.Tick(cpuCyclesPerStep)
		}

		if e.Bus.DispatchOne() == scheduler.Vblank {
			e.Scheduler.Schedule(scheduler.Event{Kind: scheduler.Vblank}, vblankPeriod)
			break
		}
	}
	e.snapshotVRAM()
}

func (e *Emulator) snapshotVRAM() {
	copy(e.outVRAM, e.Bus.GPU.VRAM[:])
}

// LoadDisc attaches a disc image for the CD-ROM drive to serve.
func (e *Emulator) LoadDisc(d *disc.Disc) {
	e.Bus.LoadDisc(d)
}

// UpdateInput replaces the digital pad's button state wholesale, the way a
// host samples its input devices once per frame and pushes the result down
// (§4.8, §5.1); there is no incremental button-press API.
func (e *Emulator) UpdateInput(buttons ButtonState) {
	e.Bus.Sio0.Controller.Up = buttons.Up
	e.Bus.Sio0.Controller.Down = buttons.Down
	e.Bus.Sio0.Controller.Left = buttons.Left
	e.Bus.Sio0.Controller.Right = buttons.Right
	e.Bus.Sio0.Controller.Cross = buttons.Cross
	e.Bus.Sio0.Controller.Square = buttons.Square
	e.Bus.Sio0.Controller.Triangle = buttons.Triangle
	e.Bus.Sio0.Controller.Circle = buttons.Circle
	e.Bus.Sio0.Controller.L1 = buttons.L1
	e.Bus.Sio0.Controller.L2 = buttons.L2
	e.Bus.Sio0.Controller.R1 = buttons.R1
	e.Bus.Sio0.Controller.R2 = buttons.R2
	e.Bus.Sio0.Controller.Start = buttons.Start
	e.Bus.Sio0.Controller.Select = buttons.Select
}

// ButtonState is the 14 digital-pad switches a frontend samples once per
// frame and passes to UpdateInput.
type ButtonState struct {
	Up, Down, Left, Right           bool
	Cross, Square, Triangle, Circle bool
	L1, L2, R1, R2                  bool
	Start, Select                   bool
}

// The header offsets below are the PS-EXE fields SideloadEXE reads, per
// jsgroth's PS1 sideloading writeup that original_source's sideload_exe
// itself cites.
const (
	exeHeaderInitialPC  = 0x10
	exeHeaderInitialR28 = 0x14
	exeHeaderRAMAddr    = 0x18
	exeHeaderSize       = 0x1C
	exeHeaderInitialSP  = 0x30
	exeHeaderDataStart  = 0x800

	exeShellEntryPC    = 0x80030000
	exeShellStepBudget = 50_000_000
)

// SideloadEXE runs the BIOS until it reaches the shell entry point, then
// injects a PS-EXE's code/data directly into RAM and redirects execution
// to its entry point, skipping the disc boot path entirely. Returns an
// error if the BIOS never reaches the shell within a generous step budget,
// or if the EXE is too short to hold a header.
func (e *Emulator) SideloadEXE(exe []byte) error {
	if len(exe) < exeHeaderDataStart {
		return errors.Errorf(errors.BadEXEHeader, len(exe))
	}

	for steps := 0; e.CPU.PC != exeShellEntryPC; steps++ {
		if steps >= exeShellStepBudget {
			return errors.Errorf(errors.EXELoadError, fmt.Sprintf("BIOS never reached shell entry %#08x after %d steps", exeShellEntryPC, steps))
		}
		e.Tick()
	}

	initialPC := binary.LittleEndian.Uint32(exe[exeHeaderInitialPC:])
	initialR28 := binary.LittleEndian.Uint32(exe[exeHeaderInitialR28:])
	ramAddr := binary.LittleEndian.Uint32(exe[exeHeaderRAMAddr:]) & 0x1FFFFF
	size := binary.LittleEndian.Uint32(exe[exeHeaderSize:])
	initialSP := binary.LittleEndian.Uint32(exe[exeHeaderInitialSP:])

	if uint64(exeHeaderDataStart)+uint64(size) > uint64(len(exe)) {
		return errors.Errorf(errors.EXELoadError, fmt.Sprintf("exe declares %d bytes past end of file", size))
	}
	copy(e.Bus.RAM[ramAddr:ramAddr+size], exe[exeHeaderDataStart:exeHeaderDataStart+size])

	e.CPU.Regs.Write(28, initialR28)
	if initialSP != 0 {
		e.CPU.Regs.Write(29, initialSP)
		e.CPU.Regs.Write(30, initialSP)
	}
	e.CPU.PC = initialPC
	return nil
}

// GetVRAM returns the frame buffer as it stood at the most recently
// completed Vblank, the same snapshot-not-live-view contract as lib.rs's
// get_vram (the live VRAM keeps changing mid-frame; callers want a stable
// picture to present).
func (e *Emulator) GetVRAM() []uint16 {
	return e.outVRAM
}

// GetTTYBuf drains and returns everything the BIOS/kernel has written to
// its debug putchar hook since the last call.
func (e *Emulator) GetTTYBuf() string {
	s := e.CPU.TTYBuf.String()
	e.CPU.TTYBuf.Reset()
	return s
}
