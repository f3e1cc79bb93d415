package spu

import (
	"github.com/jetsetilly/psx/internal/interrupts"
	"github.com/jetsetilly/psx/logger"
)

const sramLen = 512 * 1024

const (
	cdlBufStart    = 0x0
	cdrBufStart    = 0x400
	voice1BufStart = 0x800
	voice3BufStart = 0xC00
)

type transferMode uint8

const (
	transferStop transferMode = iota
	transferManualWrite
	transferDMAWrite
	transferDMARead
)

// soundRAM is the SPU's private 512K working memory: ADPCM sample data,
// capture buffers and the reverb work area all live in the same flat
// space. Any byte access against irqAddr (while enabled) latches irq,
// mirroring the transparent read/write IRQ original_source implements
// via a Cell-wrapped flag on its Index impl.
type soundRAM struct {
	ram []byte

	irqEnabled bool
	irqAddr    int

	irq     bool
	lastIRQ bool
}

func newSoundRAM() *soundRAM {
	return &soundRAM{ram: make([]byte, sramLen)}
}

func (s *soundRAM) touch(index int) {
	if s.irqEnabled && index == s.irqAddr {
		s.irq = true
	}
}

func (s *soundRAM) at(addr int) byte {
	s.touch(addr)
	return s.ram[addr]
}

func (s *soundRAM) set(addr int, v byte) {
	s.touch(addr)
	s.ram[addr] = v
}

func (s *soundRAM) slice(from, to int) []byte {
	for i := from; i < to; i++ {
		s.touch(i)
	}
	return s.ram[from:to]
}

func (s *soundRAM) read16(addr int) uint16 {
	return uint16(s.at(addr)) | uint16(s.at(addr+1))<<8
}

func (s *soundRAM) write16(addr int, v uint16) {
	s.set(addr, byte(v))
	s.set(addr+1, byte(v>>8))
}

// controlRegister is SPUCNT.
type controlRegister struct {
	spuEnable          bool
	unmuteSPU          bool
	noiseFreqShift     uint8
	noiseFreqStep      uint8
	reverbMasterEnable bool
	irqEnable          bool
	transferMode       transferMode
	extAudioReverb     bool
	cdAudioReverb      bool
	extAudioEnable     bool
	cdAudioEnable      bool
}

func newControlRegister() controlRegister {
	return controlRegister{unmuteSPU: true}
}

func (c *controlRegister) read() uint16 {
	var v uint16
	if c.cdAudioEnable {
		v |= 1
	}
	if c.extAudioEnable {
		v |= 1 << 1
	}
	if c.cdAudioReverb {
		v |= 1 << 2
	}
	if c.extAudioReverb {
		v |= 1 << 3
	}
	v |= uint16(c.transferMode) << 4
	if c.irqEnable {
		v |= 1 << 6
	}
	if c.reverbMasterEnable {
		v |= 1 << 7
	}
	v |= uint16(c.noiseFreqStep) << 8
	v |= uint16(c.noiseFreqShift) << 10
	if c.unmuteSPU {
		v |= 1 << 14
	}
	if c.spuEnable {
		v |= 1 << 15
	}
	return v
}

func (c *controlRegister) write(v uint16, noise *noiseGenerator, ram *soundRAM) {
	c.cdAudioEnable = v&1 != 0
	c.extAudioEnable = (v>>1)&1 != 0
	c.cdAudioReverb = (v>>2)&1 != 0
	c.extAudioReverb = (v>>3)&1 != 0

	c.transferMode = transferMode((v >> 4) & 3)

	c.irqEnable = (v>>6)&1 != 0
	if !c.irqEnable {
		ram.irq = false
		ram.irqEnabled = false
	} else {
		ram.irqEnabled = true
	}

	c.reverbMasterEnable = (v>>7)&1 != 0

	c.noiseFreqStep = uint8((v >> 8) & 3)
	c.noiseFreqShift = uint8((v >> 10) & 0xF)
	noise.write(c.noiseFreqShift, c.noiseFreqStep)

	c.unmuteSPU = (v>>14)&1 != 0
	c.spuEnable = (v>>15)&1 != 0
}

// Spu is the full sound processing unit: 24 voices, the shared noise
// generator, the reverb unit, and the register file/sound-RAM transfer
// FIFO the CPU and DMA channel 4 both address.
type Spu struct {
	control controlRegister
	reverb  reverb
	noise   noiseGenerator

	voices [24]voice

	noiseEnabled  [24]bool
	reverbEnabled [24]bool

	transferControl uint16

	evenTick bool

	sram            *soundRAM
	startSRAMAddr   uint16
	currentSRAMAddr int

	captureBufIndex int

	volumeL  sweepEnvelope
	volumeR  sweepEnvelope
	cdVolume [2]int16

	// EmuMute silences voice/CD/reverb mixing without touching any guest-
	// visible register, for frontend mute toggles.
	EmuMute bool
}

// New returns an Spu with every voice release-phased and SPUCNT reset to
// its post-BIOS-init state (unmuted, disabled).
func New() *Spu {
	s := &Spu{
		control:         newControlRegister(),
		transferControl: 0x4,
		evenTick:        true,
		sram:            newSoundRAM(),
	}
	for i := range s.voices {
		s.voices[i] = newVoice()
	}
	return s
}

// Tick advances every voice, the noise generator, both sweep envelopes
// and (every other call) the reverb unit by one sample period, mixes in
// cdSample when CD audio is enabled, and returns the final stereo
// sample. Raises interrupts.SPU on sound-RAM IRQ address's 0->1 edge.
func (s *Spu) Tick(ir *interrupts.Interrupts, cdSample [2]int16) [2]int16 {
	s.evenTick = !s.evenTick

	var prevSample int16
	for i := range s.voices {
		s.voices[i].tick(s.sram, prevSample)
		prevSample = s.voices[i].monoSample
	}

	s.sram.write16(cdlBufStart+s.captureBufIndex, uint16(cdSample[0]))
	s.sram.write16(cdrBufStart+s.captureBufIndex, uint16(cdSample[1]))
	s.sram.write16(voice1BufStart+s.captureBufIndex, uint16(s.voices[1].monoSample))
	s.sram.write16(voice3BufStart+s.captureBufIndex, uint16(s.voices[3].monoSample))
	s.captureBufIndex = (s.captureBufIndex + 2) & 0x3FF

	s.volumeL.tick()
	s.volumeR.tick()
	s.noise.tick()

	var reverbL, reverbR int32
	var mixedL, mixedR int32

	for i := range s.voices {
		var sampleL, sampleR int16
		if s.noiseEnabled[i] {
			out := s.voices[i].applyVolume(int16(s.noise.lfsr))
			sampleL, sampleR = out[0], out[1]
		} else {
			sampleL, sampleR = s.voices[i].currentSample[0], s.voices[i].currentSample[1]
		}

		mixedL += int32(sampleL)
		mixedR += int32(sampleR)

		if s.reverbEnabled[i] {
			reverbL += int32(sampleL)
			reverbR += int32(sampleR)
		}
	}

	if !s.control.unmuteSPU {
		mixedL, mixedR = 0, 0
	}

	if s.control.cdAudioEnable {
		cdL := applyVolume(cdSample[0], s.cdVolume[0])
		cdR := applyVolume(cdSample[1], s.cdVolume[1])

		mixedL = clampI32(mixedL+int32(cdL), -0x8000, 0x7FFF)
		mixedR = clampI32(mixedR+int32(cdR), -0x8000, 0x7FFF)

		if s.control.cdAudioReverb {
			reverbL += int32(cdL)
			reverbR += int32(cdR)
		}
	}

	if s.evenTick {
		outL, outR := s.reverb.tick(reverbL, reverbR, s.sram)
		mixedL = clampI32(mixedL+int32(outL), -0x8000, 0x7FFF)
		mixedR = clampI32(mixedR+int32(outR), -0x8000, 0x7FFF)
	}

	last := s.sram.irq
	if !s.sram.lastIRQ && s.sram.irq {
		logger.Log("spu", "IRQ9")
		ir.Raise(interrupts.SPU)
	}
	s.sram.lastIRQ = last

	if s.EmuMute {
		return [2]int16{0, 0}
	}
	clampedL := saturateSample(mixedL)
	clampedR := saturateSample(mixedR)
	return [2]int16{applyVolume(clampedL, s.volumeL.level), applyVolume(clampedR, s.volumeR.level)}
}

func (s *Spu) Read16(addr uint32) uint16 {
	switch {
	case addr >= 0x1F801C00 && addr <= 0x1F801D7F:
		return s.voices[(addr>>4)&0x1F].read(addr)
	case addr == 0x1F801D80:
		return s.volumeL.read()
	case addr == 0x1F801D82:
		return s.volumeR.read()
	case addr == 0x1F801D84:
		return uint16(s.reverb.volumeL)
	case addr == 0x1F801D86:
		return uint16(s.reverb.volumeR)
	case addr >= 0x1F801D80 && addr <= 0x1F801D87:
		return 0
	case addr == 0x1F801DB0:
		return uint16(s.cdVolume[0])
	case addr == 0x1F801DB2:
		return uint16(s.cdVolume[1])
	case addr == 0x1F801D90:
		return s.readPitchModulationEnabled(false)
	case addr == 0x1F801D92:
		return s.readPitchModulationEnabled(true)
	case addr == 0x1F801D9C:
		return s.readEndX(false)
	case addr == 0x1F801D9E:
		return s.readEndX(true)
	case addr == 0x1F801D94:
		return s.readNoiseEnabled(false)
	case addr == 0x1F801D96:
		return s.readNoiseEnabled(true)
	case addr == 0x1F801D98:
		return s.readReverbEnabled(false)
	case addr == 0x1F801D9A:
		return s.readReverbEnabled(true)
	case addr == 0x1F801DA4:
		return uint16(s.sram.irqAddr >> 3)
	case addr == 0x1F801DA6:
		return s.startSRAMAddr
	case addr == 0x1F801DAA:
		return s.control.read()
	case addr == 0x1F801DAC:
		return s.transferControl
	case addr >= 0x1F801DC0 && addr <= 0x1F801DFF:
		return s.reverb.read(addr)
	case addr == 0x1F801DAE:
		return s.readStat()
	default:
		return 0
	}
}

func (s *Spu) Read32(addr uint32) uint32 {
	return uint32(s.Read16(addr))<<16 | uint32(s.Read16(addr+2))
}

func (s *Spu) Write16(addr uint32, v uint16) {
	switch {
	case addr >= 0x1F801C00 && addr <= 0x1F801D7F:
		s.voices[(addr>>4)&0x1F].write(addr, v)
	case addr == 0x1F801D80:
		s.volumeL.write(v)
	case addr == 0x1F801D82:
		s.volumeR.write(v)
	case addr == 0x1F801D84:
		s.reverb.volumeL = int16(v)
	case addr == 0x1F801D86:
		s.reverb.volumeR = int16(v)
	case addr == 0x1F801DB0:
		s.cdVolume[0] = int16(v)
	case addr == 0x1F801DB2:
		s.cdVolume[1] = int16(v)
	case addr == 0x1F801D88:
		s.writeKeyOn(v, false)
	case addr == 0x1F801D8A:
		s.writeKeyOn(v, true)
	case addr == 0x1F801D8C:
		s.writeKeyOff(v, false)
	case addr == 0x1F801D8E:
		s.writeKeyOff(v, true)
	case addr == 0x1F801D90:
		s.writePitchModulationEnabled(v, false)
	case addr == 0x1F801D92:
		s.writePitchModulationEnabled(v, true)
	case addr == 0x1F801D94:
		s.writeNoiseEnabled(v, false)
	case addr == 0x1F801D96:
		s.writeNoiseEnabled(v, true)
	case addr == 0x1F801D98:
		s.writeReverbEnabled(v, false)
	case addr == 0x1F801D9A:
		s.writeReverbEnabled(v, true)
	case addr == 0x1F801DA4:
		s.sram.irqAddr = int(v) << 3
	case addr == 0x1F801DA6:
		s.startSRAMAddr = v
		s.currentSRAMAddr = int(v) << 3
	case addr == 0x1F801DAA:
		s.control.write(v, &s.noise, s.sram)
		if !s.control.spuEnable {
			for i := range s.voices {
				s.voices[i].keyOff()
				s.voices[i].adsr.level = 0
			}
		}
		s.reverb.enabled = s.control.reverbMasterEnable
	case addr == 0x1F801DA2:
		s.reverb.baseAddr = int(v) << 3
		s.reverb.currentAddr = s.reverb.baseAddr
	case addr == 0x1F801DA8:
		s.writeSRAM(v)
	case addr == 0x1F801DAC:
		s.transferControl = v
	case addr == 0x1F801DAE:
		// SPUSTAT is nominally writable; guest writes are cleared shortly
		// after, so this port simply ignores them.
	case addr >= 0x1F801DC0 && addr <= 0x1F801DFF:
		s.reverb.write(addr, v)
	default:
		logger.Logf("spu", "unhandled write16 [%#x] %#x", addr, v)
	}
}

func (s *Spu) Write32(addr uint32, v uint32) {
	s.Write16(addr, uint16(v))
	s.Write16(addr+2, uint16(v>>16))
}

// CaptureBufferKind selects which of the four 1024-byte capture ring
// buffers CaptureBuffer reads from; the addresses match the layout Tick
// writes to above (cdlBufStart/cdrBufStart/voice1BufStart/voice3BufStart).
type CaptureBufferKind int

const (
	CaptureCDLeft CaptureBufferKind = iota
	CaptureCDRight
	CaptureVoice1
	CaptureVoice3
)

// CaptureBuffer returns the 512 signed 16-bit samples currently held in one
// of the four capture ring buffers, in ring order starting at the position
// Tick will write to next (the oldest sample). A presenter or capture-dump tool
// drains this once per frame rather than on every sample.
func (s *Spu) CaptureBuffer(kind CaptureBufferKind) []int16 {
	var base int
	switch kind {
	case CaptureCDLeft:
		base = cdlBufStart
	case CaptureCDRight:
		base = cdrBufStart
	case CaptureVoice1:
		base = voice1BufStart
	case CaptureVoice3:
		base = voice3BufStart
	}

	out := make([]int16, 0x200)
	for i := range out {
		offset := (s.captureBufIndex + i*2) & 0x3FF
		out[i] = int16(s.sram.read16(base + offset))
	}
	return out
}

func (s *Spu) writeSRAM(v uint16) {
	s.sram.write16(s.currentSRAMAddr, v)
	s.currentSRAMAddr = (s.currentSRAMAddr + 2) & sramMask
}

// ReadSRAM services a CPU or DMA read of the sound-RAM data port,
// auto-incrementing the current transfer address.
func (s *Spu) ReadSRAM() uint16 {
	v := s.sram.read16(s.currentSRAMAddr)
	s.currentSRAMAddr = (s.currentSRAMAddr + 2) & sramMask
	return v
}

func bitRange(start, end int, get func(i int) bool) uint16 {
	var v uint16
	for i := start; i < end; i++ {
		if get(i) {
			v |= 1 << uint(i-start)
		}
	}
	return v
}

func writeBitRange(v uint16, start, end int, set func(i int, on bool)) {
	for i := start; i < end; i++ {
		set(i, (v>>uint(i-start))&1 != 0)
	}
}

func (s *Spu) readEndX(high bool) uint16 {
	start, end := 0, 16
	if high {
		start, end = 16, 24
	}
	return bitRange(start, end, func(i int) bool { return s.voices[i].endX })
}

func (s *Spu) writeKeyOn(v uint16, high bool) {
	start, end := 0, 16
	if high {
		start, end = 16, 24
	}
	writeBitRange(v, start, end, func(i int, on bool) {
		if on {
			s.voices[i].keyOn(s.sram)
		}
	})
}

func (s *Spu) writeKeyOff(v uint16, high bool) {
	start, end := 0, 16
	if high {
		start, end = 16, 24
	}
	writeBitRange(v, start, end, func(i int, on bool) {
		if on {
			s.voices[i].keyOff()
		}
	})
}

func (s *Spu) readReverbEnabled(high bool) uint16 {
	start, end := 0, 16
	if high {
		start, end = 16, 24
	}
	return bitRange(start, end, func(i int) bool { return s.reverbEnabled[i] })
}

func (s *Spu) writeReverbEnabled(v uint16, high bool) {
	start, end := 0, 16
	if high {
		start, end = 16, 24
	}
	writeBitRange(v, start, end, func(i int, on bool) { s.reverbEnabled[i] = on })
}

func (s *Spu) readNoiseEnabled(high bool) uint16 {
	start, end := 0, 16
	if high {
		start, end = 16, 24
	}
	return bitRange(start, end, func(i int) bool { return s.noiseEnabled[i] })
}

func (s *Spu) writeNoiseEnabled(v uint16, high bool) {
	start, end := 0, 16
	if high {
		start, end = 16, 24
	}
	writeBitRange(v, start, end, func(i int, on bool) { s.noiseEnabled[i] = on })
}

func (s *Spu) readPitchModulationEnabled(high bool) uint16 {
	start, end := 1, 16
	if high {
		start, end = 16, 24
	}
	return bitRange(start, end, func(i int) bool { return s.voices[i].pitchModulationEnabled })
}

func (s *Spu) writePitchModulationEnabled(v uint16, high bool) {
	start, end := 1, 16
	if high {
		start, end = 16, 24
	}
	writeBitRange(v, start, end, func(i int, on bool) { s.voices[i].pitchModulationEnabled = on })
}

// readStat composes SPUSTAT from the bottom six bits of SPUCNT plus the
// sound-RAM IRQ flag and DMA request/busy bits.
func (s *Spu) readStat() uint16 {
	v := s.control.read() & 0x3F
	if s.sram.irq {
		v |= 1 << 6
	}
	v |= (uint16(s.control.transferMode) & 2) << 7
	if s.control.transferMode == transferDMAWrite {
		v |= 1 << 8
	}
	if s.control.transferMode == transferDMARead {
		v |= 1 << 9
	}
	if s.captureBufIndex >= 0x200 {
		v |= 1 << 11
	}
	return v
}
