package gte_test

import (
	"testing"

	"github.com/jetsetilly/psx/internal/gte"
	"github.com/jetsetilly/psx/test"
)

func TestIRGBRoundTrip(t *testing.T) {
	g := gte.New()
	g.WriteData(28, 0x001F) // IRGB: blue=0, green=0, red=0x1F
	orgb := g.ReadData(29)
	test.ExpectEquality(t, orgb&0x1F, uint32(0x1F))
}

func TestFlagErrorBitSetOnSaturation(t *testing.T) {
	g := gte.New()
	g.WriteData(8, 0x7FFF) // IR0 at its signed max
	g.WriteData(9, 0x7FFF) // IR1
	g.Execute(0x28) // SQR with sf=0: IR1*IR1 overflows 0x7FFF, saturates
	flag := g.ReadControl(31)
	test.ExpectEquality(t, flag>>31, uint32(1))
}

func TestSXYFifoPushOnWrite(t *testing.T) {
	g := gte.New()
	g.WriteData(12, 0x00100020) // SXY0 = (0x20, 0x10)
	g.WriteData(14, 0x00300040) // SXY2 = (0x40, 0x30)
	test.ExpectEquality(t, g.ReadData(15), g.ReadData(14)) // SXYP mirrors SXY2

	g.WriteData(15, 0x00500060) // writing SXYP pushes the FIFO
	test.ExpectEquality(t, g.ReadData(13), uint32(0x00300040))
	test.ExpectEquality(t, g.ReadData(14), uint32(0x00500060))
}

func TestNCLIPComputesSignedArea(t *testing.T) {
	g := gte.New()
	g.WriteData(12, 0) // SXY0 = (0,0)
	g.WriteData(13, uint32(uint16(10))) // SXY1 = (10,0)
	g.WriteData(14, uint32(uint16(5))<<16) // SXY2 = (0,5)
	g.Execute(0x06) // NCLIP
	test.ExpectEquality(t, g.ReadData(24), uint32(50))
}
