// Package gte implements the geometry transform engine, the PSX's fixed
// point vector/matrix coprocessor (COP2, §4.4). The data/control register
// layout, the word packing of the vector/colour pairs, and the FLAG
// register's error-mask composition are ported closely from
// original_source/psx/src/cpu/gte.rs, which implements the register file
// precisely but leaves decode_and_exec as an empty stub. Every operation
// family (RTPS/RTPT/NCLIP/AVSZ3/AVSZ4/OP/GPF/GPL/DPCS/DPCT/DCPL/CDP/INTPL/
// MVMVA/NCS/NCT/NCDS/NCDT/NCCS/NCCT/CC/SQR) is authored fresh against the
// operation families and the clamp_mac/clamp_ir/divide primitives spec.md
// §4.4 names, since gte.rs never implements them.
package gte

// Vector3 is a signed 16-bit (X,Y,Z) vector, the layout used by V0-V2.
type Vector3 struct {
	X, Y, Z int16
}

func (v *Vector3) fromWord(word uint32) {
	v.X = int16(word)
	v.Y = int16(word >> 16)
}

// Vector3_32 is a 32-bit (X,Y,Z) vector, used by the translation vector.
type Vector3_32 struct {
	X, Y, Z int32
}

// Vector2 is a signed 16-bit screen coordinate, the SXY FIFO's element type.
type Vector2 struct {
	X, Y int16
}

func (v Vector2) asWord() uint32 {
	return uint32(uint16(v.X)) | uint32(uint16(v.Y))<<16
}

func vector2FromWord(word uint32) Vector2 {
	return Vector2{X: int16(word), Y: int16(word >> 16)}
}

// Vector2_32 is the 32-bit screen-offset register pair.
type Vector2_32 struct {
	X, Y int32
}

// Rgb is the packed colour/code quad used by RGBC and the colour FIFO.
type Rgb struct {
	R, G, B, C uint8
}

func (c Rgb) asWord() uint32 {
	return uint32(c.R) | uint32(c.G)<<8 | uint32(c.B)<<16 | uint32(c.C)<<24
}

func rgbFromWord(word uint32) Rgb {
	return Rgb{R: uint8(word), G: uint8(word >> 8), B: uint8(word >> 16), C: uint8(word >> 24)}
}

// Rgb32 is the wide background/far-colour register triple.
type Rgb32 struct {
	R, G, B uint32
}

// Matrix3x3 is a row-major 3x3 matrix of signed 16-bit fixed-point entries.
type Matrix3x3 struct {
	M11, M12, M13 int16
	M21, M22, M23 int16
	M31, M32, M33 int16
}

func (m Matrix3x3) row(n int) (a, b, c int32) {
	switch n {
	case 0:
		return int32(m.M11), int32(m.M12), int32(m.M13)
	case 1:
		return int32(m.M21), int32(m.M22), int32(m.M23)
	default:
		return int32(m.M31), int32(m.M32), int32(m.M33)
	}
}

// registers holds the full GTE data (cop2r0-31) and control (cop2r32-63)
// register banks, ported field-for-field from gte.rs's GteRegisters.
type registers struct {
	v0, v1, v2 Vector3
	rgbc       Rgb
	otz        uint16
	ir0        int16
	ir1, ir2, ir3 int16
	sxy0, sxy1, sxy2 Vector2
	sz0, sz1, sz2, sz3 uint16
	rgbFifo0, rgbFifo1, rgbFifo2 Rgb
	res1       uint32
	mac0       int32
	mac1, mac2, mac3 int32
	lzcs       int32

	rotMatrix    Matrix3x3
	translation  Vector3_32
	lightMatrix  Matrix3x3
	bgColour     Rgb32
	colourMatrix Matrix3x3
	farColour    Rgb32
	screenOffset Vector2_32
	h            uint16
	dqa          int16
	dqb          int32
	zsf3, zsf4   int16
	flag         uint32
}

func newRegisters() *registers { return &registers{} }

// The error-mask a real GTE ORs into bit 31 of the FLAG register. It
// covers the IR0/SX2/SY2/divide/SZ3/IR1 saturations plus all six MAC
// positive/negative overflow bits; colour-FIFO and MAC0 saturation sit
// outside the mask.
const flagErrorMask = 0x7F87E000

const (
	flagIR0Sat     = 1 << 13
	flagSY2Sat     = 1 << 14
	flagSX2Sat     = 1 << 15
	flagDivOverflow = 1 << 16
	flagSZ3Sat     = 1 << 17
	flagIR1Sat     = 1 << 18
	flagIR2Sat     = 1 << 23
	flagIR3Sat     = 1 << 24
	flagMAC1Neg    = 1 << 25
	flagMAC2Neg    = 1 << 26
	flagMAC3Neg    = 1 << 27
	flagMAC1Pos    = 1 << 28
	flagMAC2Pos    = 1 << 29
	flagMAC3Pos    = 1 << 30

	flagColorRSat = 1 << 19
	flagColorGSat = 1 << 20
	flagColorBSat = 1 << 21
	flagMAC0Sat   = 1 << 22
)

func (r *registers) readData(n uint32) uint32 {
	switch n {
	case 0:
		return uint32(uint16(r.v0.X)) | uint32(uint16(r.v0.Y))<<16
	case 1:
		return uint32(int32(r.v0.Z))
	case 2:
		return uint32(uint16(r.v1.X)) | uint32(uint16(r.v1.Y))<<16
	case 3:
		return uint32(int32(r.v1.Z))
	case 4:
		return uint32(uint16(r.v2.X)) | uint32(uint16(r.v2.Y))<<16
	case 5:
		return uint32(int32(r.v2.Z))
	case 6:
		return r.rgbc.asWord()
	case 7:
		return uint32(r.otz)
	case 8:
		return uint32(int32(r.ir0))
	case 9:
		return uint32(int32(r.ir1))
	case 10:
		return uint32(int32(r.ir2))
	case 11:
		return uint32(int32(r.ir3))
	case 12:
		return r.sxy0.asWord()
	case 13:
		return r.sxy1.asWord()
	case 14, 15: // SXYP mirrors SXY2 when read
		return r.sxy2.asWord()
	case 16:
		return uint32(r.sz0)
	case 17:
		return uint32(r.sz1)
	case 18:
		return uint32(r.sz2)
	case 19:
		return uint32(r.sz3)
	case 20:
		return r.rgbFifo0.asWord()
	case 21:
		return r.rgbFifo1.asWord()
	case 22:
		return r.rgbFifo2.asWord()
	case 23:
		return r.res1
	case 24:
		return uint32(r.mac0)
	case 25:
		return uint32(r.mac1)
	case 26:
		return uint32(r.mac2)
	case 27:
		return uint32(r.mac3)
	case 28, 29:
		return r.readOrgb()
	case 30:
		return uint32(r.lzcs)
	case 31:
		return r.readLzcr()
	}
	return 0
}

func (r *registers) writeData(n uint32, v uint32) {
	switch n {
	case 0:
		r.v0.fromWord(v)
	case 1:
		r.v0.Z = int16(v)
	case 2:
		r.v1.fromWord(v)
	case 3:
		r.v1.Z = int16(v)
	case 4:
		r.v2.fromWord(v)
	case 5:
		r.v2.Z = int16(v)
	case 6:
		r.rgbc = rgbFromWord(v)
	case 7:
		r.otz = uint16(v)
	case 8:
		r.ir0 = int16(v)
	case 9:
		r.ir1 = int16(v)
	case 10:
		r.ir2 = int16(v)
	case 11:
		r.ir3 = int16(v)
	case 12:
		r.sxy0 = vector2FromWord(v)
	case 13:
		r.sxy1 = vector2FromWord(v)
	case 14:
		r.sxy2 = vector2FromWord(v)
	case 15:
		r.pushSXY(v)
	case 16:
		r.sz0 = uint16(v)
	case 17:
		r.sz1 = uint16(v)
	case 18:
		r.sz2 = uint16(v)
	case 19:
		r.sz3 = uint16(v)
	case 20:
		r.rgbFifo0 = rgbFromWord(v)
	case 21:
		r.rgbFifo1 = rgbFromWord(v)
	case 22:
		r.rgbFifo2 = rgbFromWord(v)
	case 23:
		r.res1 = v
	case 24:
		r.mac0 = int32(v)
	case 25:
		r.mac1 = int32(v)
	case 26:
		r.mac2 = int32(v)
	case 27:
		r.mac3 = int32(v)
	case 28:
		r.writeIRGB(v)
	case 29, 31:
		// read-only mirrors
	case 30:
		r.lzcs = int32(v)
	}
}

func (r *registers) readControl(n uint32) uint32 {
	switch n {
	case 0:
		return uint32(uint16(r.rotMatrix.M11)) | uint32(uint16(r.rotMatrix.M12))<<16
	case 1:
		return uint32(uint16(r.rotMatrix.M13)) | uint32(uint16(r.rotMatrix.M21))<<16
	case 2:
		return uint32(uint16(r.rotMatrix.M22)) | uint32(uint16(r.rotMatrix.M23))<<16
	case 3:
		return uint32(uint16(r.rotMatrix.M31)) | uint32(uint16(r.rotMatrix.M32))<<16
	case 4:
		return uint32(int32(r.rotMatrix.M33))
	case 5:
		return uint32(r.translation.X)
	case 6:
		return uint32(r.translation.Y)
	case 7:
		return uint32(r.translation.Z)
	case 8:
		return uint32(uint16(r.lightMatrix.M11)) | uint32(uint16(r.lightMatrix.M12))<<16
	case 9:
		return uint32(uint16(r.lightMatrix.M13)) | uint32(uint16(r.lightMatrix.M21))<<16
	case 10:
		return uint32(uint16(r.lightMatrix.M22)) | uint32(uint16(r.lightMatrix.M23))<<16
	case 11:
		return uint32(uint16(r.lightMatrix.M31)) | uint32(uint16(r.lightMatrix.M32))<<16
	case 12:
		return uint32(int32(r.lightMatrix.M33))
	case 13:
		return r.bgColour.R
	case 14:
		return r.bgColour.G
	case 15:
		return r.bgColour.B
	case 16:
		return uint32(uint16(r.colourMatrix.M11)) | uint32(uint16(r.colourMatrix.M12))<<16
	case 17:
		return uint32(uint16(r.colourMatrix.M13)) | uint32(uint16(r.colourMatrix.M21))<<16
	case 18:
		return uint32(uint16(r.colourMatrix.M22)) | uint32(uint16(r.colourMatrix.M23))<<16
	case 19:
		return uint32(uint16(r.colourMatrix.M31)) | uint32(uint16(r.colourMatrix.M32))<<16
	case 20:
		return uint32(int32(r.colourMatrix.M33))
	case 21:
		return r.farColour.R
	case 22:
		return r.farColour.G
	case 23:
		return r.farColour.B
	case 24:
		return uint32(r.screenOffset.X)
	case 25:
		return uint32(r.screenOffset.Y)
	case 26:
		return uint32(int32(int16(r.h)))
	case 27:
		return uint32(r.dqa)
	case 28:
		return uint32(r.dqb)
	case 29:
		return uint32(r.zsf3)
	case 30:
		return uint32(r.zsf4)
	case 31:
		errBit := uint32(0)
		if r.flag&flagErrorMask != 0 {
			errBit = 1 << 31
		}
		return r.flag | errBit
	}
	return 0
}

func (r *registers) writeControl(n uint32, v uint32) {
	switch n {
	case 0:
		r.rotMatrix.M11, r.rotMatrix.M12 = int16(v), int16(v>>16)
	case 1:
		r.rotMatrix.M13, r.rotMatrix.M21 = int16(v), int16(v>>16)
	case 2:
		r.rotMatrix.M22, r.rotMatrix.M23 = int16(v), int16(v>>16)
	case 3:
		r.rotMatrix.M31, r.rotMatrix.M32 = int16(v), int16(v>>16)
	case 4:
		r.rotMatrix.M33 = int16(v)
	case 5:
		r.translation.X = int32(v)
	case 6:
		r.translation.Y = int32(v)
	case 7:
		r.translation.Z = int32(v)
	case 8:
		r.lightMatrix.M11, r.lightMatrix.M12 = int16(v), int16(v>>16)
	case 9:
		r.lightMatrix.M13, r.lightMatrix.M21 = int16(v), int16(v>>16)
	case 10:
		r.lightMatrix.M22, r.lightMatrix.M23 = int16(v), int16(v>>16)
	case 11:
		r.lightMatrix.M31, r.lightMatrix.M32 = int16(v), int16(v>>16)
	case 12:
		r.lightMatrix.M33 = int16(v)
	case 13:
		r.bgColour.R = v
	case 14:
		r.bgColour.G = v
	case 15:
		r.bgColour.B = v
	case 16:
		r.colourMatrix.M11, r.colourMatrix.M12 = int16(v), int16(v>>16)
	case 17:
		r.colourMatrix.M13, r.colourMatrix.M21 = int16(v), int16(v>>16)
	case 18:
		r.colourMatrix.M22, r.colourMatrix.M23 = int16(v), int16(v>>16)
	case 19:
		r.colourMatrix.M31, r.colourMatrix.M32 = int16(v), int16(v>>16)
	case 20:
		r.colourMatrix.M33 = int16(v)
	case 21:
		r.farColour.R = v
	case 22:
		r.farColour.G = v
	case 23:
		r.farColour.B = v
	case 24:
		r.screenOffset.X = int32(v)
	case 25:
		r.screenOffset.Y = int32(v)
	case 26:
		r.h = uint16(v)
	case 27:
		r.dqa = int16(v)
	case 28:
		r.dqb = int32(v)
	case 29:
		r.zsf3 = int16(v)
	case 30:
		r.zsf4 = int16(v)
	case 31:
		r.flag = v & 0x7FFFF000
	}
}

// writeIRGB expands 5:5:5 RGB (0..1Fh) into 16:16:16 (0000h..0F80h).
func (r *registers) writeIRGB(v uint32) {
	r.ir1 = int16((v & 0x1F) * 0x80)
	r.ir2 = int16(((v >> 5) & 0x1F) * 0x80)
	r.ir3 = int16(((v >> 10) & 0x1F) * 0x80)
}

// readOrgb collapses 16:16:16 (0000h..0F80h) back down to 5:5:5.
func (r *registers) readOrgb() uint32 {
	clamp := func(v int16) uint32 {
		c := int32(v) / 0x80
		if c < 0 {
			c = 0
		} else if c > 0x1F {
			c = 0x1F
		}
		return uint32(c)
	}
	return clamp(r.ir1) | clamp(r.ir2)<<5 | clamp(r.ir3)<<10
}

func (r *registers) readLzcr() uint32 {
	if r.lzcs >= 0 {
		return uint32(leadingZeros32(uint32(r.lzcs)))
	}
	return uint32(leadingOnes32(uint32(r.lzcs)))
}

func leadingZeros32(v uint32) int {
	n := 0
	for i := 31; i >= 0; i-- {
		if v&(1<<uint(i)) != 0 {
			break
		}
		n++
	}
	return n
}

func leadingOnes32(v uint32) int { return leadingZeros32(^v) }

func (r *registers) pushSXY(word uint32) {
	r.sxy0 = r.sxy1
	r.sxy1 = r.sxy2
	r.sxy2 = vector2FromWord(word)
}

// Gte is the geometry transform engine: register file plus the fixed
// point operation pipeline dispatched from decodeAndExec.
type Gte struct {
	regs *registers
}

func New() *Gte {
	return &Gte{regs: newRegisters()}
}

func (g *Gte) ReadData(n uint32) uint32       { return g.regs.readData(n) }
func (g *Gte) WriteData(n uint32, v uint32)   { g.regs.writeData(n, v) }
func (g *Gte) ReadControl(n uint32) uint32    { return g.regs.readControl(n) }
func (g *Gte) WriteControl(n uint32, v uint32) { g.regs.writeControl(n, v) }

// Execute decodes and runs one GTE instruction from its 25-bit opcode
// field (COP2 bits 24..0, already masked by the caller).
func (g *Gte) Execute(opcode uint32) {
	g.regs.flag = 0

	sf := uint((opcode >> 19) & 1)
	lm := (opcode>>10)&1 != 0

	switch opcode & 0x3F {
	case 0x01:
		g.rtp(&g.regs.v0, sf, lm, true)
	case 0x30:
		g.rtp(&g.regs.v0, sf, lm, false)
		g.rtp(&g.regs.v1, sf, lm, false)
		g.rtp(&g.regs.v2, sf, lm, true)
	case 0x06:
		g.nclip()
	case 0x2D:
		g.avsz(3)
	case 0x2E:
		g.avsz(4)
	case 0x0C:
		g.op(sf, lm)
	case 0x3D:
		g.gpf(sf, lm)
	case 0x3E:
		g.gpl(sf, lm)
	case 0x10:
		g.dpcs(sf, lm, false)
	case 0x11:
		g.dpct(sf, lm)
	case 0x16:
		g.dcpl(sf, lm)
	case 0x14:
		g.cdp(sf, lm)
	case 0x09:
		g.intpl(sf, lm)
	case 0x12:
		g.mvmva(opcode, sf, lm)
	case 0x1B:
		g.ncs(sf, lm)
	case 0x20:
		g.nct(sf, lm)
	case 0x13:
		g.ncds(sf, lm)
	case 0x2F:
		g.ncdt(sf, lm)
	case 0x1C:
		g.nccs(sf, lm)
	case 0x3F:
		g.ncct(sf, lm)
	case 0x1E:
		g.cc(sf, lm)
	case 0x28:
		g.sqr(sf, lm)
	default:
		// unimplemented opcodes are treated as a no-op; FLAG stays clear.
	}
}
