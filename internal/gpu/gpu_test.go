package gpu_test

import (
	"testing"

	"github.com/jetsetilly/psx/internal/gpu"
	"github.com/jetsetilly/psx/test"
)

func TestQuickFill(t *testing.T) {
	g := gpu.New()
	g.Write32(0x1F801810, 0x02<<24|0x00FF00) // quick fill, green
	g.Write32(0x1F801810, 0)                 // dest 0,0
	g.Write32(0x1F801810, (1<<16)|16)        // 16x1

	v := g.VRAM[0]
	test.ExpectInequality(t, v, uint16(0))
}

func TestCpuToVramDMARoundTrip(t *testing.T) {
	g := gpu.New()
	g.Write32(0x1F801810, 5<<29)       // CpuVramDma
	g.Write32(0x1F801810, 0)           // dest 0,0
	g.Write32(0x1F801810, (1<<16)|2)   // 2x1
	g.Write32(0x1F801810, 0xBEEFCAFE)  // two pixels

	test.ExpectEquality(t, g.VRAM[0], uint16(0xCAFE))
	test.ExpectEquality(t, g.VRAM[1], uint16(0xBEEF))

	g.Write32(0x1F801810, 6<<29)     // VramCpuDma
	g.Write32(0x1F801810, 0)         // source 0,0
	g.Write32(0x1F801810, (1<<16)|2) // 2x1
	test.ExpectEquality(t, g.Read32(0x1F801810), uint32(0xBEEFCAFE))
}

func TestDrawingAreaSetters(t *testing.T) {
	g := gpu.New()
	g.Write32(0x1F801810, 0xE3<<24|(10)|(20<<10))
	g.Write32(0x1F801810, 0xE4<<24|(100)|(80<<10))
	// no direct getters; exercised indirectly via GPUSTAT not asserting panic
	_ = g.Read32(0x1F801814)
}

func packVertex(x, y int32) uint32 {
	return uint32(uint16(x)) | uint32(uint16(y))<<16
}

func TestFilledTriangle(t *testing.T) {
	g := gpu.New()
	g.Write32(0x1F801810, 0xE4<<24|(20)|(20<<10)) // bottom-right (20,20)

	cmd := uint32(1<<29) | 0x0000FF // flat, untextured, unshaded, red
	g.Write32(0x1F801810, cmd)
	g.Write32(0x1F801810, packVertex(2, 2))
	g.Write32(0x1F801810, packVertex(10, 2))
	g.Write32(0x1F801810, packVertex(2, 10))

	test.ExpectInequality(t, g.VRAM[5*1024+4], uint16(0)) // well inside the triangle
	test.ExpectEquality(t, g.VRAM[1*1024+1], uint16(0))   // outside it
}

func TestRectangleFill(t *testing.T) {
	g := gpu.New()
	g.Write32(0x1F801810, 0xE4<<24|(50)|(50<<10))

	cmd := uint32(3<<29) | (2 << 26) | 0x00FF00 // untextured, 8x8, green
	g.Write32(0x1F801810, cmd)
	g.Write32(0x1F801810, packVertex(5, 5))

	for y := int32(5); y < 13; y++ {
		for x := int32(5); x < 13; x++ {
			test.ExpectInequality(t, g.VRAM[uint32(y)*1024+uint32(x)], uint16(0))
		}
	}
	test.ExpectEquality(t, g.VRAM[13*1024+13], uint16(0))
}

func TestTexturedRectangleClutAndTransparency(t *testing.T) {
	g := gpu.New()
	g.Write32(0x1F801810, 0xE4<<24|(10)|(10<<10))

	// 4bpp texel row at VRAM(0,0): u=0 -> CLUT index 1, u=1 -> CLUT index 0.
	g.VRAM[0] = 0x0001
	// CLUT at (clutX=0, clutY=1): index 0 is the transparent sentinel,
	// index 1 is opaque red.
	g.VRAM[1*1024+0] = 0x0000
	g.VRAM[1*1024+1] = 0x001F

	cmd := uint32(3<<29) | (1 << 28) | 0x808080 // textured, variable size, neutral modulation
	g.Write32(0x1F801810, cmd)
	g.Write32(0x1F801810, packVertex(5, 5))
	g.Write32(0x1F801810, 64<<16) // u0=0, v0=0, clutWord=64 -> clutX=0, clutY=1
	g.Write32(0x1F801810, 2|(1<<16))

	test.ExpectInequality(t, g.VRAM[5*1024+5], uint16(0)) // opaque texel drawn
	test.ExpectEquality(t, g.VRAM[5*1024+6], uint16(0))   // transparent texel skipped
}

func TestSemiTransparentBlendAdd(t *testing.T) {
	g := gpu.New()
	g.Write32(0x1F801810, 0xE1<<24|(1<<5)) // draw mode: blend mode 1 (B+F)
	g.Write32(0x1F801810, 0xE4<<24|(10)|(10<<10))

	idx := uint32(5*1024 + 5)
	g.VRAM[idx] = uint16(5) | uint16(5)<<5 | uint16(5)<<10

	cmd := uint32(3<<29) | (1 << 26) | (1 << 25) | 0x101010 // untextured 1x1, semi-transparent, colour 16,16,16 (->2,2,2)
	g.Write32(0x1F801810, cmd)
	g.Write32(0x1F801810, packVertex(5, 5))

	want := uint16(7) | uint16(7)<<5 | uint16(7)<<10
	test.ExpectEquality(t, g.VRAM[idx], want)
}

func TestCheckMaskSuppressesWrite(t *testing.T) {
	g := gpu.New()
	g.Write32(0x1F801810, 0xE4<<24|(10)|(10<<10))
	g.Write32(0x1F801810, 0xE6<<24|2) // check-mask on

	idx := uint32(5*1024 + 5)
	g.VRAM[idx] = 0x8000

	cmd := uint32(3<<29) | (1 << 26) | 0x00FF00
	g.Write32(0x1F801810, cmd)
	g.Write32(0x1F801810, packVertex(5, 5))

	test.ExpectEquality(t, g.VRAM[idx], uint16(0x8000))
}

func TestForceMaskSetsBit(t *testing.T) {
	g := gpu.New()
	g.Write32(0x1F801810, 0xE4<<24|(10)|(10<<10))
	g.Write32(0x1F801810, 0xE6<<24|1) // force-mask on

	cmd := uint32(3<<29) | (1 << 26) | 0x00FF00
	g.Write32(0x1F801810, cmd)
	g.Write32(0x1F801810, packVertex(5, 5))

	test.ExpectEquality(t, g.VRAM[5*1024+5]&0x8000, uint16(0x8000))
}

func TestPolylineStreamingAndTerminator(t *testing.T) {
	g := gpu.New()
	g.Write32(0x1F801810, 0xE4<<24|(50)|(50<<10))

	cmd := uint32(2<<29) | (1 << 27) | 0xFFFFFF // monochrome polyline, white
	g.Write32(0x1F801810, cmd)
	g.Write32(0x1F801810, packVertex(0, 0))
	g.Write32(0x1F801810, packVertex(5, 0))
	g.Write32(0x1F801810, packVertex(10, 0)) // streamed second segment
	g.Write32(0x1F801810, 0x5000_5000)       // terminator

	test.ExpectInequality(t, g.VRAM[3], uint16(0))
	test.ExpectInequality(t, g.VRAM[8], uint16(0))

	// the state machine must be back at WaitingForNextCmd: a fresh
	// quick-fill elsewhere in VRAM must execute cleanly, not be consumed
	// as stray polyline vertices.
	g.Write32(0x1F801810, 0x02<<24|0x00FF00)
	g.Write32(0x1F801810, (50)|(50<<16))
	g.Write32(0x1F801810, (1<<16)|16)
	test.ExpectInequality(t, g.VRAM[50*1024+50], uint16(0))
}

func TestDrawModeReflectedInStat(t *testing.T) {
	g := gpu.New()
	g.Write32(0x1F801810, 0xE1<<24|0x5) // texpage base X = 5
	stat := g.Read32(0x1F801814)
	test.ExpectEquality(t, stat&0xF, uint32(5))
}

func TestReadyBitsDuringParamWait(t *testing.T) {
	g := gpu.New()
	statBefore := g.Read32(0x1F801814)
	test.ExpectInequality(t, statBefore&(1<<28), uint32(0))

	g.Write32(0x1F801810, uint32(1<<29)) // flat triangle prolog, awaiting 3 vertex words
	statMid := g.Read32(0x1F801814)
	test.ExpectEquality(t, statMid&(1<<28), uint32(0))
}
