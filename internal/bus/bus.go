// Package bus implements the region-masked memory map and peripheral
// register dispatch that glue every other subsystem together, and the
// DMA controller's four transfer shapes. Grounded on
// original_source/psx/src/bus.rs (address ranges, region masking,
// read8/16/32 and write8/16/32 dispatch) and original_source/psx/src/
// dma.rs's `impl Bus` block (do_dma/do_dma_linked_list/do_dma_otc/
// do_dma_block). original_source's bus only wires GPU and DMA — its
// timers/SPU/pad/CD-ROM arms are placeholder zero-reads; this port wires
// all of them to the packages built for §4.6-§4.9.
package bus

import (
	"github.com/jetsetilly/psx/internal/cdrom"
	"github.com/jetsetilly/psx/internal/cdrom/disc"
	"github.com/jetsetilly/psx/internal/dma"
	"github.com/jetsetilly/psx/internal/gpu"
	"github.com/jetsetilly/psx/internal/instance"
	"github.com/jetsetilly/psx/internal/interrupts"
	"github.com/jetsetilly/psx/internal/scheduler"
	"github.com/jetsetilly/psx/internal/sio0"
	"github.com/jetsetilly/psx/internal/spu"
	"github.com/jetsetilly/psx/internal/timers"
	"github.com/jetsetilly/psx/logger"
)

// cyclesPerSample is the CPU-clock-to-sample-rate ratio (33.8688MHz /
// 44100Hz, rounded), the cadence Bus.Tick drives Spu.Tick at.
const cyclesPerSample = 768

const (
	biosStart = 0x1FC00000
	biosSize  = 512 * 1024
	biosEnd   = biosStart + biosSize - 1

	ramStart = 0x0
	ramSize  = 2048 * 1024
	ramEnd   = ramStart + ramSize - 1

	scratchpadStart = 0x1F800000
	scratchpadSize  = 1024
	scratchpadEnd   = scratchpadStart + 0x3FF

	memControlStart = 0x1F801000
	memControlEnd   = memControlStart + 36 - 1

	irqStart = 0x1F801070
	irqEnd   = irqStart + 8 - 1

	spuStart = 0x1F801C00
	spuEnd   = spuStart + 0x280 - 1

	timersStart = 0x1F801100
	timersEnd   = 0x1F80112F

	dmaStart = 0x1F801080
	dmaEnd   = dmaStart + 0x80 - 1

	gpuStart = 0x1F801810
	gpuEnd   = 0x1F801814

	expansion1Start = 0x1F000000
	expansion1End   = 0x1F080000

	expansion2Start = 0x1F802000
	expansion2End   = expansion2Start + 0x42

	padStart = 0x1F801040
	padEnd   = 0x1F80104E

	cdromStart = 0x1F801800
	cdromEnd   = 0x1F801803
)

// regionMask mirrors original_source's REGION_MASK: KUSEG is unmasked,
// KSEG0 drops the cache-isolation bit, KSEG1 drops both the cache bit
// and the next one (uncached, no scratchpad shadow), KSEG2 is unmasked.
var regionMask = [8]uint32{
	0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF,
	0x7FFFFFFF,
	0x1FFFFFFF,
	0xFFFFFFFF, 0xFFFFFFFF,
}

func maskAddr(addr uint32) uint32 {
	return addr & regionMask[addr>>29]
}

// Bus is the full address space plus every peripheral the CPU, GPU and
// DMA controller can reach.
type Bus struct {
	bios       []byte
	RAM        []byte
	scratchpad []byte

	GPU        *gpu.Gpu
	DMA        *dma.Controller
	Timers     *timers.Timers
	Sio0       *sio0.Sio0
	Cdrom      *cdrom.Cdrom
	Spu        *spu.Spu
	Interrupts *interrupts.Interrupts
	Scheduler  *scheduler.Scheduler

	sampleCycles uint32

	// AudioOut receives each mixed stereo sample Spu.Tick produces, for
	// cmd/psx's audio queue to drain. Left nil (as by New) the samples are
	// simply dropped, which is fine for headless/test use.
	AudioOut func(l, r int16)
}

// New returns a Bus with the given BIOS image loaded, RAM/scratchpad
// filled per the instance's RandomState preference (0xDA/0xBA when set,
// zeroed otherwise, matching original_source's non-zero fill pattern
// used to surface uninitialised-read bugs).
func New(ins *instance.Instance, bios []byte, sched *scheduler.Scheduler, ir *interrupts.Interrupts) *Bus {
	b := &Bus{
		bios:       bios,
		RAM:        make([]byte, ramSize),
		scratchpad: make([]byte, scratchpadSize),

		GPU:        gpu.New(),
		DMA:        dma.NewController(),
		Timers:     timers.New(),
		Sio0:       sio0.New(),
		Cdrom:      cdrom.New(),
		Spu:        spu.New(),
		Interrupts: ir,
		Scheduler:  sched,
	}
	if ins.Config.RandomState {
		fill(b.RAM, 0xDA)
		fill(b.scratchpad, 0xBA)
	}
	return b
}

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}

// LoadDisc attaches a disc image for the CD-ROM drive to serve.
func (b *Bus) LoadDisc(d *disc.Disc) { b.Cdrom.LoadDisc(d) }

func (b *Bus) Read8(addr uint32) uint8 {
	a := maskAddr(addr)
	switch {
	case a >= biosStart && a <= biosEnd:
		return b.bios[a-biosStart]
	case a >= ramStart && a <= ramEnd:
		return b.RAM[a-ramStart]
	case a >= scratchpadStart && a < scratchpadEnd:
		return b.scratchpad[a-scratchpadStart]
	case a >= cdromStart && a <= cdromEnd:
		return b.Cdrom.Read8(a)
	case a >= expansion1Start && a <= expansion1End:
		return 0xFF
	case a >= expansion2Start && a <= expansion2End:
		return 0
	case a >= spuStart && a <= spuEnd:
		return 0
	case a >= timersStart && a <= timersEnd:
		return 0
	case a >= irqStart && a <= irqEnd:
		return 0
	case a >= gpuStart && a <= gpuEnd:
		return 0
	case a >= padStart && a <= padEnd:
		return 0
	default:
		logger.Logf("bus", "unhandled read8 %#x", a)
		return 0xFF
	}
}

func (b *Bus) Read16(addr uint32) (uint16, bool) {
	if addr%2 != 0 {
		return 0, false
	}
	a := maskAddr(addr)
	switch {
	case a >= irqStart && a <= irqEnd:
		return uint16(b.Interrupts.Read32(a)), true
	case a >= spuStart && a <= spuEnd:
		return b.Spu.Read16(a), true
	case a >= padStart && a <= padEnd:
		return uint16(b.Sio0.Read32(a)), true
	case a >= timersStart && a <= timersEnd:
		return uint16(b.Timers.Read32(a)), true
	default:
		lo := b.Read8(addr)
		hi := b.Read8(addr + 1)
		return uint16(lo) | uint16(hi)<<8, true
	}
}

func (b *Bus) Read32(addr uint32) (uint32, bool) {
	if addr%4 != 0 {
		return 0, false
	}
	a := maskAddr(addr)
	switch {
	case a >= gpuStart && a <= gpuEnd:
		return b.GPU.Read32(a), true
	case a >= dmaStart && a <= dmaEnd:
		return b.DMA.Read32(a), true
	case a >= timersStart && a <= timersEnd:
		return b.Timers.Read32(a), true
	case a >= irqStart && a <= irqEnd:
		return b.Interrupts.Read32(a), true
	case a >= padStart && a <= padEnd:
		return b.Sio0.Read32(a), true
	case a >= spuStart && a <= spuEnd:
		return b.Spu.Read32(a), true
	case a >= memControlStart && a <= memControlEnd:
		return 0, true
	default:
		b0 := b.Read8(addr)
		b1 := b.Read8(addr + 1)
		b2 := b.Read8(addr + 2)
		b3 := b.Read8(addr + 3)
		return uint32(b0) | uint32(b1)<<8 | uint32(b2)<<16 | uint32(b3)<<24, true
	}
}

func (b *Bus) Write8(addr uint32, v uint8) {
	a := maskAddr(addr)
	switch {
	case a >= ramStart && a <= ramEnd:
		b.RAM[a-ramStart] = v
	case a >= scratchpadStart && a <= scratchpadEnd:
		b.scratchpad[a-scratchpadStart] = v
	case a >= cdromStart && a <= cdromEnd:
		b.Cdrom.Write8(a, v, b.Scheduler)
	case a >= spuStart && a <= spuEnd:
		if a%2 == 0 {
			b.Spu.Write16(a, uint16(v))
		}
	case a >= timersStart && a <= timersEnd:
		logger.Logf("bus", "unhandled write8 to timers [%#x] %#x", a, v)
	case a >= expansion2Start && a <= expansion2End:
		logger.Logf("bus", "write to expansion 2 register [%#x] %#x ignored", a, v)
	default:
		logger.Logf("bus", "unhandled write8 [%#x] %#x", a, v)
	}
}

func (b *Bus) Write16(addr uint32, v uint16) bool {
	if addr%2 != 0 {
		return false
	}
	a := maskAddr(addr)
	switch {
	case a >= irqStart && a <= irqEnd:
		b.Interrupts.Write32(a, uint32(v))
	case a >= spuStart && a <= spuEnd:
		b.Spu.Write16(a, v)
	case a >= timersStart && a <= timersEnd:
		b.Timers.Write32(a, uint32(v))
	case a >= padStart && a <= padEnd:
		b.Sio0.Write32(a, uint32(v), b.Scheduler)
	case a >= ramStart && a <= ramEnd:
		b.Write8(addr, uint8(v))
		b.Write8(addr+1, uint8(v>>8))
	case a >= scratchpadStart && a <= scratchpadEnd:
		b.Write8(addr, uint8(v))
		b.Write8(addr+1, uint8(v>>8))
	default:
		logger.Logf("bus", "unhandled write16 [%#x] %#x", a, v)
	}
	return true
}

func (b *Bus) Write32(addr uint32, v uint32) bool {
	if addr%4 != 0 {
		return false
	}
	a := maskAddr(addr)
	switch {
	case a >= ramStart && a <= ramEnd:
		b.Write8(a, uint8(v))
		b.Write8(a+1, uint8(v>>8))
		b.Write8(a+2, uint8(v>>16))
		b.Write8(a+3, uint8(v>>24))
	case a >= scratchpadStart && a <= scratchpadEnd:
		b.Write8(a, uint8(v))
		b.Write8(a+1, uint8(v>>8))
		b.Write8(a+2, uint8(v>>16))
		b.Write8(a+3, uint8(v>>24))
	case a >= memControlStart && a <= memControlEnd:
		logger.Logf("bus", "unhandled write to memcontrol [%#x] %#x", a-memControlStart, v)
	case a >= irqStart && a <= irqEnd:
		b.Interrupts.Write32(a, v)
	case a >= timersStart && a <= timersEnd:
		b.Timers.Write32(a, v)
	case a >= padStart && a <= padEnd:
		b.Sio0.Write32(a, v, b.Scheduler)
	case a >= spuStart && a <= spuEnd:
		b.Spu.Write32(a, v)
	case a >= 0x1F801060 && a <= 0x1F801064:
		// RAM_SIZE
	case a >= 0xFFFE0130 && a <= 0xFFFE0134:
		// CACHE_CONTROL
	case a >= dmaStart && a <= dmaEnd:
		ch, triggered := b.DMA.Write32(a, v)
		if triggered {
			b.doDMA(ch)
		}
	case a >= gpuStart && a <= gpuEnd:
		b.GPU.Write32(a, v)
	default:
		logger.Logf("bus", "unhandled write32 [%#x/%#x] %#x", a, addr, v)
	}
	return true
}

// InterruptsPending reports whether the interrupt controller currently
// has an unmasked pending source, the one signal COP0 reads from the
// bus each CPU step.
func (b *Bus) InterruptsPending() bool {
	return b.Interrupts.Triggered()
}

// Tick advances the scheduler and the free-running timers by the given
// number of CPU cycles and generates an SPU sample every cyclesPerSample
// cycles. It dispatches no scheduler events; the caller pops due events
// with DispatchOne or DispatchEvents.
func (b *Bus) Tick(cycles uint32) {
	b.Scheduler.Advance(uint64(cycles))

	fired := b.Timers.Tick(cycles)
	if fired[0] {
		b.Interrupts.Raise(interrupts.Timer0)
	}
	if fired[1] {
		b.Interrupts.Raise(interrupts.Timer1)
	}
	if fired[2] {
		b.Interrupts.Raise(interrupts.Timer2)
	}

	b.sampleCycles += cycles
	for b.sampleCycles >= cyclesPerSample {
		b.sampleCycles -= cyclesPerSample
		out := b.Spu.Tick(b.Interrupts, [2]int16{0, 0})
		if b.AudioOut != nil {
			b.AudioOut(out[0], out[1])
		}
	}
}

// DispatchEvents pops and handles every scheduler event that is due,
// routing each Payload to the peripheral that owns it.
func (b *Bus) DispatchEvents() {
	for b.Scheduler.NextReady() {
		b.DispatchOne()
	}
}

// DispatchOne pops and handles a single due scheduler event, returning its
// Kind. Callers that need to notice a particular event (internal/emulator's
// RunFrame watches for Vblank) use this instead of DispatchEvents, which
// drains the whole queue and loses that information.
func (b *Bus) DispatchOne() scheduler.Kind {
	e := b.Scheduler.Pop()
	switch e.Kind {
	case scheduler.Vblank:
		b.Interrupts.Raise(interrupts.Vblank)
	case scheduler.Sio0Rx:
		b.Sio0.RxEvent(b.Scheduler, e.Sio0Byte, e.Sio0Ack)
	case scheduler.Sio0Irq:
		b.Sio0.IrqEvent(b.Interrupts)
	case scheduler.CdromCmd:
		if resp, ok := e.Payload.(*cdrom.Response); ok {
			b.Cdrom.HandleResponse(resp, b.Scheduler, b.Interrupts)
		}
	case scheduler.DmaIrq:
		b.raiseDMAChannel(e.Channel)
	case scheduler.SpuTick, scheduler.TimerTarget, scheduler.TimerOverflow:
		// unused by this port: Timers ticks itself every bus.Tick, and
		// Spu.Tick runs off the cyclesPerSample cadence above rather
		// than a scheduled event.
	}
	return e.Kind
}

// raiseDMAChannel sets a channel's DICR interrupt-request bit (gated by
// its per-channel mask) and raises the system DMA interrupt on the
// master flag's 0->1 edge.
func (b *Bus) raiseDMAChannel(channel int) {
	if b.DMA.IRQ.ChannelMask&(1<<uint(channel)) == 0 {
		return
	}
	was := b.DMA.IRQ.MasterFlag
	b.DMA.IRQ.RaiseChannel(channel)
	if !was && b.DMA.IRQ.MasterFlag {
		b.Interrupts.Raise(interrupts.DMA)
	}
}

// dmaIRQDelay is the cycle delay before a completed transfer's interrupt
// actually lands, per §4.6 ("words * (channel == CDROM ? 40 : 1)").
func dmaIRQDelay(channel int, words uint32) uint64 {
	if channel == dma.ChannelCDROM {
		return uint64(words) * 40
	}
	return uint64(words)
}

func (b *Bus) doDMA(channel int) {
	ch := &b.DMA.Channels[channel]

	if !b.DMA.Control.Enabled(channel) {
		logger.Logf("bus", "triggered DMA%d when disabled in control reg", channel)
		return
	}

	var words uint32
	switch {
	case channel == dma.ChannelOTC:
		words = b.doDMAOTC()
	case ch.Sync == dma.SyncLinkedList:
		words = b.doDMALinkedList(channel)
	default:
		words = b.doDMABlock(channel)
	}

	ch.Finish()
	b.Scheduler.Schedule(scheduler.Event{Kind: scheduler.DmaIrq, Channel: channel}, dmaIRQDelay(channel, words))
}

func (b *Bus) doDMALinkedList(channelNum int) uint32 {
	ch := b.DMA.Channels[channelNum]
	addr := ch.BaseAddr
	var words uint32

	for {
		header, _ := b.Read32(addr)
		wordsToSend := header >> 24
		nextAddr := header & 0xFFFFFF

		for i := uint32(0); i < wordsToSend; i++ {
			data, _ := b.Read32(addr + 4*(i+1))
			b.GPU.Write32(gpuStart, data)
			words++
		}

		addr = nextAddr
		if nextAddr&(1<<23) != 0 {
			break
		}
	}
	return words
}

func (b *Bus) doDMAOTC() uint32 {
	ch := b.DMA.Channels[dma.ChannelOTC]
	addr := ch.BaseAddr
	dmaLen := uint32(ch.BlockSize)
	if dmaLen == 0 {
		dmaLen = 0x10000
	}

	for i := uint32(0); i < dmaLen; i++ {
		var next uint32
		if i == dmaLen-1 {
			next = 0xFFFFFF
		} else {
			next = (addr - 4) & 0x1FFFFF
		}
		b.Write32(addr, next)
		addr = next
	}
	return dmaLen
}

func (b *Bus) doDMABlock(channelNum int) uint32 {
	ch := b.DMA.Channels[channelNum]

	step := int32(4)
	if ch.StepDir == dma.StepDec {
		step = -4
	}

	addr := ch.BaseAddr
	var wordsLeft uint32
	switch ch.Sync {
	case dma.SyncBurst:
		wordsLeft = uint32(ch.BlockSize)
	case dma.SyncSlice:
		wordsLeft = uint32(ch.BlockSize) * uint32(ch.BlockAmount)
	}

	for i := uint32(0); i < wordsLeft; i++ {
		switch ch.TransferDir {
		case dma.DirFromRAM:
			word, _ := b.Read32(addr)
			switch channelNum {
			case dma.ChannelGPU:
				b.GPU.Write32(gpuStart, word)
			case dma.ChannelSPU:
				b.Spu.Write16(0x1F801DA8, uint16(word))
				b.Spu.Write16(0x1F801DA8, uint16(word>>16))
			default:
				logger.Logf("bus", "unhandled FromRAM DMA%d word", channelNum)
			}
		case dma.DirToRAM:
			var word uint32
			switch channelNum {
			case dma.ChannelGPU:
				word = b.GPU.Read32(gpuStart)
			case dma.ChannelCDROM:
				word = uint32(b.Cdrom.Read8(cdromStart+2)) |
					uint32(b.Cdrom.Read8(cdromStart+2))<<8 |
					uint32(b.Cdrom.Read8(cdromStart+2))<<16 |
					uint32(b.Cdrom.Read8(cdromStart+2))<<24
			case dma.ChannelSPU:
				lo := b.Spu.ReadSRAM()
				hi := b.Spu.ReadSRAM()
				word = uint32(lo) | uint32(hi)<<16
			default:
				logger.Logf("bus", "unhandled ToRAM DMA%d word", channelNum)
			}
			b.Write32(addr, word)
		}

		addr = uint32(int32(addr)+step) & 0x1FFFFFFF
	}
	return wordsLeft
}
