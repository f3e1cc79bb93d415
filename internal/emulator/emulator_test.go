package emulator_test

import (
	"testing"

	"github.com/jetsetilly/psx/internal/config"
	"github.com/jetsetilly/psx/internal/emulator"
	"github.com/jetsetilly/psx/internal/instance"
	"github.com/jetsetilly/psx/test"
)

// newTestEmulator returns an Emulator over a BIOS-sized image of NOPs, so
// the CPU steps harmlessly without needing a real BIOS dump.
func newTestEmulator() *emulator.Emulator {
	bios := make([]byte, 512*1024)
	ins := instance.NewInstance(config.Default())
	return emulator.NewEmulator(ins, bios)
}

func TestTickAdvancesPC(t *testing.T) {
	e := newTestEmulator()
	start := e.CPU.PC
	e.Tick()
	test.ExpectEquality(t, e.CPU.PC, start+4)
}

func TestRunFrameReachesVblank(t *testing.T) {
	e := newTestEmulator()
	e.RunFrame()
	test.ExpectEquality(t, len(e.GetVRAM()), len(e.Bus.GPU.VRAM))
}

func TestUpdateInputWritesControllerState(t *testing.T) {
	e := newTestEmulator()
	e.UpdateInput(emulator.ButtonState{Cross: true, Start: true})
	test.ExpectEquality(t, e.Bus.Sio0.Controller.Cross, true)
	test.ExpectEquality(t, e.Bus.Sio0.Controller.Start, true)
	test.ExpectEquality(t, e.Bus.Sio0.Controller.Square, false)
}

func TestGetTTYBufDrains(t *testing.T) {
	e := newTestEmulator()
	e.CPU.TTYBuf.Write([]byte("hello"))
	test.ExpectEquality(t, e.GetTTYBuf(), "hello")
	test.ExpectEquality(t, e.GetTTYBuf(), "")
}

func TestSideloadEXERejectsShortFile(t *testing.T) {
	e := newTestEmulator()
	err := e.SideloadEXE(make([]byte, 16))
	test.ExpectFailure(t, err)
}
