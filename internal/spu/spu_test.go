package spu_test

import (
	"testing"

	"github.com/jetsetilly/psx/internal/interrupts"
	"github.com/jetsetilly/psx/internal/spu"
	"github.com/jetsetilly/psx/test"
)

func TestControlRegisterRoundTrip(t *testing.T) {
	s := spu.New()
	s.Write16(0x1F801DAA, 0x8001) // spu_enable + cd_audio_enable
	test.ExpectEquality(t, s.Read16(0x1F801DAA), uint16(0x8001))
}

func TestKeyOnSetsVoiceRunning(t *testing.T) {
	s := spu.New()
	s.Write16(0x1F801C06, 0x0010) // voice 0 ADPCM start address
	s.Write16(0x1F801D88, 0x0001) // key on voice 0

	endX := s.Read16(0x1F801D9C)
	test.ExpectEquality(t, endX&1, uint16(0))
}

func TestSoundRAMTransferRoundTrip(t *testing.T) {
	s := spu.New()
	s.Write16(0x1F801DA6, 0x0100) // set transfer address, auto-shifted <<3
	s.Write16(0x1F801DA8, 0xBEEF) // FIFO write, advances the address by 2

	s.Write16(0x1F801DA6, 0x0100) // rewind to the same address
	test.ExpectEquality(t, s.ReadSRAM(), uint16(0xBEEF))
}

func TestTickProducesNoPanicWhenMuted(t *testing.T) {
	s := spu.New()
	s.EmuMute = true
	ir := interrupts.New()
	out := s.Tick(ir, [2]int16{100, -100})
	test.ExpectEquality(t, out[0], int16(0))
	test.ExpectEquality(t, out[1], int16(0))
}

func TestReverbEnableBitfield(t *testing.T) {
	s := spu.New()
	s.Write16(0x1F801D98, 0x0005) // enable reverb on voices 0 and 2
	test.ExpectEquality(t, s.Read16(0x1F801D98), uint16(0x0005))
}
