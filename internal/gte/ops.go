package gte

// This file implements the fixed point operation families spec.md §4.4
// names (RTPS/RTPT/NCLIP/AVSZ3/AVSZ4/OP/GPF/GPL/DPCS/DPCT/DCPL/CDP/INTPL/
// MVMVA/NCS/NCT/NCDS/NCDT/NCCS/NCCT/CC/SQR) and the three primitives the
// section calls out (clamp_mac, clamp_ir, and the depth-queue divide).
// None of this exists in gte.rs, whose decode_and_exec is an empty stub;
// only the register layout and the FLAG error-mask are carried over from
// there.

const mac43Limit = int64(1) << 43

// clampMAC sign-extends v to 44 bits and right-shifts by 12*sf, flagging
// overflow/underflow against register n (1, 2 or 3) when |v| exceeds the
// 44-bit range before the shift.
func (g *Gte) clampMAC(n int, v int64, sf uint) int32 {
	if v >= mac43Limit {
		g.flagMACPos(n)
	} else if v < -mac43Limit {
		g.flagMACNeg(n)
	}
	return int32(v >> (12 * sf))
}

func (g *Gte) flagMACPos(n int) {
	switch n {
	case 1:
		g.regs.flag |= flagMAC1Pos
	case 2:
		g.regs.flag |= flagMAC2Pos
	case 3:
		g.regs.flag |= flagMAC3Pos
	}
}

func (g *Gte) flagMACNeg(n int) {
	switch n {
	case 1:
		g.regs.flag |= flagMAC1Neg
	case 2:
		g.regs.flag |= flagMAC2Neg
	case 3:
		g.regs.flag |= flagMAC3Neg
	}
}

// clampMAC0 truncates a value to the 32-bit MAC0 accumulator, flagging
// saturation when it overflows signed 32-bit range.
func (g *Gte) clampMAC0(v int64) int32 {
	if v > 0x7FFFFFFF || v < -0x80000000 {
		g.regs.flag |= flagMAC0Sat
	}
	return int32(v)
}

// clampIR saturates to [0, 0x7FFF] when lm is set, else [-0x8000, 0x7FFF].
func (g *Gte) clampIR(n int, v int32, lm bool) int16 {
	lo := int32(-0x8000)
	if lm {
		lo = 0
	}
	hi := int32(0x7FFF)
	sat := false
	if v < lo {
		v, sat = lo, true
	} else if v > hi {
		v, sat = hi, true
	}
	if sat {
		switch n {
		case 1:
			g.regs.flag |= flagIR1Sat
		case 2:
			g.regs.flag |= flagIR2Sat
		case 3:
			g.regs.flag |= flagIR3Sat
		}
	}
	return int16(v)
}

func (g *Gte) clampIR0(v int32) int16 {
	if v < 0 {
		g.regs.flag |= flagIR0Sat
		v = 0
	} else if v > 0x1000 {
		g.regs.flag |= flagIR0Sat
		v = 0x1000
	}
	return int16(v)
}

func (g *Gte) clampSZ(v int64) uint16 {
	if v < 0 {
		g.regs.flag |= flagSZ3Sat
		return 0
	}
	if v > 0xFFFF {
		g.regs.flag |= flagSZ3Sat
		return 0xFFFF
	}
	return uint16(v)
}

func (g *Gte) clampSX(v int32) int16 {
	if v < -0x400 {
		g.regs.flag |= flagSX2Sat
		return -0x400
	}
	if v > 0x3FF {
		g.regs.flag |= flagSX2Sat
		return 0x3FF
	}
	return int16(v)
}

func (g *Gte) clampSY(v int32) int16 {
	if v < -0x400 {
		g.regs.flag |= flagSY2Sat
		return -0x400
	}
	if v > 0x3FF {
		g.regs.flag |= flagSY2Sat
		return 0x3FF
	}
	return int16(v)
}

func (g *Gte) clampColor(which int, v int32) uint8 {
	sat := false
	if v < 0 {
		v, sat = 0, true
	} else if v > 0xFF {
		v, sat = 0xFF, true
	}
	if sat {
		switch which {
		case 0:
			g.regs.flag |= flagColorRSat
		case 1:
			g.regs.flag |= flagColorGSat
		case 2:
			g.regs.flag |= flagColorBSat
		}
	}
	return uint8(v)
}

// divide computes the 17-bit perspective-projection quotient H/SZ, the
// un-tabulated equivalent of the hardware's Newton-Raphson reciprocal
// table: it saturates to 0x1FFFF and raises the divide-overflow flag
// whenever the numerator isn't strictly less than twice the denominator.
func (g *Gte) divide(numerator uint16, denominator uint16) uint32 {
	if denominator == 0 || uint32(numerator) >= uint32(denominator)*2 {
		g.regs.flag |= flagDivOverflow
		return 0x1FFFF
	}
	result := (uint64(numerator) << 16) / uint64(denominator)
	if result > 0x1FFFF {
		result = 0x1FFFF
		g.regs.flag |= flagDivOverflow
	}
	return uint32(result)
}

func (g *Gte) pushSZ(v uint16) {
	g.regs.sz0, g.regs.sz1, g.regs.sz2, g.regs.sz3 = g.regs.sz1, g.regs.sz2, g.regs.sz3, v
}

func (g *Gte) pushSXY(x, y int16) {
	g.regs.sxy0, g.regs.sxy1 = g.regs.sxy1, g.regs.sxy2
	g.regs.sxy2 = Vector2{X: x, Y: y}
}

func (g *Gte) pushColourFromMAC(sf uint) {
	r := g.clampColor(0, g.regs.mac1>>4)
	gg := g.clampColor(1, g.regs.mac2>>4)
	b := g.clampColor(2, g.regs.mac3>>4)
	g.regs.rgbFifo0, g.regs.rgbFifo1 = g.regs.rgbFifo1, g.regs.rgbFifo2
	g.regs.rgbFifo2 = Rgb{R: r, G: gg, B: b, C: g.regs.rgbc.C}
}

func (g *Gte) irVector() Vector3 {
	return Vector3{X: g.regs.ir1, Y: g.regs.ir2, Z: g.regs.ir3}
}

// rtp runs the perspective-transform pipeline for a single vertex,
// optionally (on the final vertex of RTPT) computing the depth-cue MAC0/
// IR0 pair.
func (g *Gte) rtp(v *Vector3, sf uint, lm bool, final bool) {
	m := g.regs.rotMatrix
	vx, vy, vz := int64(v.X), int64(v.Y), int64(v.Z)

	mac1Full := int64(g.regs.translation.X)<<12 + int64(m.M11)*vx + int64(m.M12)*vy + int64(m.M13)*vz
	mac2Full := int64(g.regs.translation.Y)<<12 + int64(m.M21)*vx + int64(m.M22)*vy + int64(m.M23)*vz
	mac3Full := int64(g.regs.translation.Z)<<12 + int64(m.M31)*vx + int64(m.M32)*vy + int64(m.M33)*vz

	g.regs.mac1 = g.clampMAC(1, mac1Full, sf)
	g.regs.mac2 = g.clampMAC(2, mac2Full, sf)
	g.regs.mac3 = g.clampMAC(3, mac3Full, sf)
	g.regs.ir1 = g.clampIR(1, g.regs.mac1, lm)
	g.regs.ir2 = g.clampIR(2, g.regs.mac2, lm)
	g.regs.ir3 = g.clampIR(3, g.regs.mac3, false)

	sz := g.clampSZ(mac3Full >> 12)
	g.pushSZ(sz)

	quot := g.divide(g.regs.h, sz)

	ofx, ofy := int64(g.regs.screenOffset.X), int64(g.regs.screenOffset.Y)
	sx := g.clampSX(int32((int64(quot)*int64(g.regs.ir1) + ofx) >> 16))
	sy := g.clampSY(int32((int64(quot)*int64(g.regs.ir2) + ofy) >> 16))
	g.pushSXY(sx, sy)

	if final {
		mac0Full := int64(quot)*int64(g.regs.dqa) + int64(g.regs.dqb)
		g.regs.mac0 = g.clampMAC0(mac0Full)
		g.regs.ir0 = g.clampIR0(g.regs.mac0 >> 12)
	}
}

func (g *Gte) nclip() {
	x0, y0 := int64(g.regs.sxy0.X), int64(g.regs.sxy0.Y)
	x1, y1 := int64(g.regs.sxy1.X), int64(g.regs.sxy1.Y)
	x2, y2 := int64(g.regs.sxy2.X), int64(g.regs.sxy2.Y)
	area := x0*(y1-y2) + x1*(y2-y0) + x2*(y0-y1)
	g.regs.mac0 = g.clampMAC0(area)
}

func (g *Gte) avsz(stages int) {
	var sum int64
	var zsf int64
	if stages == 3 {
		sum = int64(g.regs.sz1) + int64(g.regs.sz2) + int64(g.regs.sz3)
		zsf = int64(g.regs.zsf3)
	} else {
		sum = int64(g.regs.sz0) + int64(g.regs.sz1) + int64(g.regs.sz2) + int64(g.regs.sz3)
		zsf = int64(g.regs.zsf4)
	}
	full := zsf * sum
	g.regs.mac0 = g.clampMAC0(full)
	g.regs.otz = g.clampSZ(full >> 12)
}

func (g *Gte) op(sf uint, lm bool) {
	m := g.regs.rotMatrix
	d1, d2, d3 := int64(m.M11), int64(m.M22), int64(m.M33)
	ir1, ir2, ir3 := int64(g.regs.ir1), int64(g.regs.ir2), int64(g.regs.ir3)

	g.regs.mac1 = g.clampMAC(1, d2*ir3-d3*ir2, sf)
	g.regs.mac2 = g.clampMAC(2, d3*ir1-d1*ir3, sf)
	g.regs.mac3 = g.clampMAC(3, d1*ir2-d2*ir1, sf)
	g.regs.ir1 = g.clampIR(1, g.regs.mac1, lm)
	g.regs.ir2 = g.clampIR(2, g.regs.mac2, lm)
	g.regs.ir3 = g.clampIR(3, g.regs.mac3, lm)
}

func (g *Gte) gpf(sf uint, lm bool) {
	ir0 := int64(g.regs.ir0)
	g.regs.mac1 = g.clampMAC(1, ir0*int64(g.regs.ir1), sf)
	g.regs.mac2 = g.clampMAC(2, ir0*int64(g.regs.ir2), sf)
	g.regs.mac3 = g.clampMAC(3, ir0*int64(g.regs.ir3), sf)
	g.regs.ir1 = g.clampIR(1, g.regs.mac1, lm)
	g.regs.ir2 = g.clampIR(2, g.regs.mac2, lm)
	g.regs.ir3 = g.clampIR(3, g.regs.mac3, lm)
	g.pushColourFromMAC(sf)
}

func (g *Gte) gpl(sf uint, lm bool) {
	ir0 := int64(g.regs.ir0)
	shift := uint(12 * sf)
	mac1Full := int64(g.regs.mac1)<<shift + ir0*int64(g.regs.ir1)
	mac2Full := int64(g.regs.mac2)<<shift + ir0*int64(g.regs.ir2)
	mac3Full := int64(g.regs.mac3)<<shift + ir0*int64(g.regs.ir3)
	g.regs.mac1 = g.clampMAC(1, mac1Full, sf)
	g.regs.mac2 = g.clampMAC(2, mac2Full, sf)
	g.regs.mac3 = g.clampMAC(3, mac3Full, sf)
	g.regs.ir1 = g.clampIR(1, g.regs.mac1, lm)
	g.regs.ir2 = g.clampIR(2, g.regs.mac2, lm)
	g.regs.ir3 = g.clampIR(3, g.regs.mac3, lm)
	g.pushColourFromMAC(sf)
}

// depthCue blends a base (R,G,B) value, already scaled to 12-bit fraction,
// toward the far-colour register by IR0, shared by DPCS/DPCT/DCPL/CDP.
func (g *Gte) depthCue(sf uint, lm bool, baseR, baseG, baseB int64) {
	ir0 := int64(g.regs.ir0)
	fc := g.regs.farColour
	mac1Full := baseR + ((int64(fc.R)<<12-baseR)*ir0)>>12
	mac2Full := baseG + ((int64(fc.G)<<12-baseG)*ir0)>>12
	mac3Full := baseB + ((int64(fc.B)<<12-baseB)*ir0)>>12
	g.regs.mac1 = g.clampMAC(1, mac1Full, sf)
	g.regs.mac2 = g.clampMAC(2, mac2Full, sf)
	g.regs.mac3 = g.clampMAC(3, mac3Full, sf)
	g.regs.ir1 = g.clampIR(1, g.regs.mac1, lm)
	g.regs.ir2 = g.clampIR(2, g.regs.mac2, lm)
	g.regs.ir3 = g.clampIR(3, g.regs.mac3, lm)
	g.pushColourFromMAC(sf)
}

func (g *Gte) dpcs(sf uint, lm bool, fromFIFO bool) {
	c := g.regs.rgbc
	if fromFIFO {
		c = g.regs.rgbFifo0
	}
	g.depthCue(sf, lm, int64(c.R)<<16, int64(c.G)<<16, int64(c.B)<<16)
}

// dpct runs dpcs once per colour-FIFO stage, consuming the triple the
// colour FIFO accumulated from a prior NCDT/NCCT-style operation.
func (g *Gte) dpct(sf uint, lm bool) {
	for i := 0; i < 3; i++ {
		g.dpcs(sf, lm, true)
	}
}

func (g *Gte) dcpl(sf uint, lm bool) {
	c := g.regs.rgbc
	g.depthCue(sf, lm,
		(int64(g.regs.ir1)*int64(c.R)<<4),
		(int64(g.regs.ir2)*int64(c.G)<<4),
		(int64(g.regs.ir3)*int64(c.B)<<4))
}

// cdp runs the colour-matrix step against the current IR vector and then
// depth-cues the result toward the far-colour register.
func (g *Gte) cdp(sf uint, lm bool) {
	g.colourVector(sf, lm)
	g.dcpl(sf, lm)
}

func (g *Gte) intpl(sf uint, lm bool) {
	g.depthCue(sf, lm, int64(g.regs.ir1)<<12, int64(g.regs.ir2)<<12, int64(g.regs.ir3)<<12)
}

// mvmva is the general matrix*vector(+translation) primitive. mx selects
// the matrix, vx the vector operand, tx the translation. The hardware-
// documented bug (mx=3 selects a matrix the GTE never actually wires up;
// tx=2 substitutes the far-colour vector as translation using a broken
// sequencing) is reproduced as a deliberately-wrong but deterministic
// code path, per §4.4's "hardware-buggy opcodes" note.
func (g *Gte) mvmva(instr uint32, sf uint, lm bool) {
	mx := (instr >> 17) & 3
	vxSel := (instr >> 15) & 3
	tx := (instr >> 13) & 3

	var m Matrix3x3
	buggedMatrix := false
	switch mx {
	case 0:
		m = g.regs.rotMatrix
	case 1:
		m = g.regs.lightMatrix
	case 2:
		m = g.regs.colourMatrix
	case 3:
		buggedMatrix = true
		// No real matrix backs mx=3; hardware observably uses a pseudo
		// matrix built from RGBC and IR0.
		m = Matrix3x3{
			M11: int16(-int32(g.regs.rgbc.R) << 4), M12: int16(int32(g.regs.rgbc.R) << 4), M13: g.regs.ir0,
			M21: g.regs.rotMatrix.M13, M22: g.regs.rotMatrix.M13, M23: g.regs.rotMatrix.M13,
			M31: g.regs.rotMatrix.M23, M32: g.regs.rotMatrix.M23, M33: g.regs.rotMatrix.M23,
		}
	}

	var v Vector3
	switch vxSel {
	case 0:
		v = g.regs.v0
	case 1:
		v = g.regs.v1
	case 2:
		v = g.regs.v2
	case 3:
		v = g.irVector()
	}
	vx, vy, vz := int64(v.X), int64(v.Y), int64(v.Z)

	var trX, trY, trZ int64
	switch tx {
	case 0:
		trX, trY, trZ = int64(g.regs.translation.X), int64(g.regs.translation.Y), int64(g.regs.translation.Z)
	case 1:
		trX, trY, trZ = int64(g.regs.bgColour.R), int64(g.regs.bgColour.G), int64(g.regs.bgColour.B)
	case 2:
		// Bugged translation: only the first lane gets FC.R added before
		// the matrix multiply; the hardware recycles the not-yet-updated
		// IR1 register for the remaining two lanes instead of FC.G/FC.B.
		trX = int64(g.regs.farColour.R)
		trY = int64(g.regs.ir1)
		trZ = int64(g.regs.ir1)
	case 3:
		trX, trY, trZ = 0, 0, 0
	}

	m11, m12, m13 := int64(m.M11), int64(m.M12), int64(m.M13)
	m21, m22, m23 := int64(m.M21), int64(m.M22), int64(m.M23)
	m31, m32, m33 := int64(m.M31), int64(m.M32), int64(m.M33)

	mac1Full := trX<<12 + m11*vx + m12*vy + m13*vz
	if tx == 2 && buggedMatrix {
		// both quirks compound: IR1 is live-read after the first lane,
		// so lanes 2 and 3 see the lane-1 MAC already applied.
		g.regs.mac1 = g.clampMAC(1, mac1Full, sf)
		g.regs.ir1 = g.clampIR(1, g.regs.mac1, lm)
		trY, trZ = int64(g.regs.ir1), int64(g.regs.ir1)
	}
	mac2Full := trY<<12 + m21*vx + m22*vy + m23*vz
	mac3Full := trZ<<12 + m31*vx + m32*vy + m33*vz

	g.regs.mac1 = g.clampMAC(1, mac1Full, sf)
	g.regs.mac2 = g.clampMAC(2, mac2Full, sf)
	g.regs.mac3 = g.clampMAC(3, mac3Full, sf)
	g.regs.ir1 = g.clampIR(1, g.regs.mac1, lm)
	g.regs.ir2 = g.clampIR(2, g.regs.mac2, lm)
	g.regs.ir3 = g.clampIR(3, g.regs.mac3, lm)
}

// lightVector runs the light-source matrix step (surface normal -> IR),
// the first stage of NCS/NCT/NCDS/NCDT/NCCS/NCCT.
func (g *Gte) lightVector(v Vector3, sf uint) {
	m := g.regs.lightMatrix
	vx, vy, vz := int64(v.X), int64(v.Y), int64(v.Z)
	mac1Full := int64(m.M11)*vx + int64(m.M12)*vy + int64(m.M13)*vz
	mac2Full := int64(m.M21)*vx + int64(m.M22)*vy + int64(m.M23)*vz
	mac3Full := int64(m.M31)*vx + int64(m.M32)*vy + int64(m.M33)*vz
	g.regs.mac1 = g.clampMAC(1, mac1Full, sf)
	g.regs.mac2 = g.clampMAC(2, mac2Full, sf)
	g.regs.mac3 = g.clampMAC(3, mac3Full, sf)
	g.regs.ir1 = g.clampIR(1, g.regs.mac1, true)
	g.regs.ir2 = g.clampIR(2, g.regs.mac2, true)
	g.regs.ir3 = g.clampIR(3, g.regs.mac3, true)
}

// colourVector runs the colour-source matrix step (light result -> IR,
// plus the background-colour term), the second stage of the NC* family.
func (g *Gte) colourVector(sf uint, lm bool) {
	m := g.regs.colourMatrix
	ir1, ir2, ir3 := int64(g.regs.ir1), int64(g.regs.ir2), int64(g.regs.ir3)
	bg := g.regs.bgColour
	mac1Full := int64(bg.R)<<12 + int64(m.M11)*ir1 + int64(m.M12)*ir2 + int64(m.M13)*ir3
	mac2Full := int64(bg.G)<<12 + int64(m.M21)*ir1 + int64(m.M22)*ir2 + int64(m.M23)*ir3
	mac3Full := int64(bg.B)<<12 + int64(m.M31)*ir1 + int64(m.M32)*ir2 + int64(m.M33)*ir3
	g.regs.mac1 = g.clampMAC(1, mac1Full, sf)
	g.regs.mac2 = g.clampMAC(2, mac2Full, sf)
	g.regs.mac3 = g.clampMAC(3, mac3Full, sf)
	g.regs.ir1 = g.clampIR(1, g.regs.mac1, lm)
	g.regs.ir2 = g.clampIR(2, g.regs.mac2, lm)
	g.regs.ir3 = g.clampIR(3, g.regs.mac3, lm)
}

// colourMultiply multiplies the lit IR vector by RGBC component-wise,
// the step NCCS/NCCT/CC add on top of plain NCS/NCT.
func (g *Gte) colourMultiply(sf uint, lm bool) {
	c := g.regs.rgbc
	mac1Full := (int64(c.R) << 4) * int64(g.regs.ir1)
	mac2Full := (int64(c.G) << 4) * int64(g.regs.ir2)
	mac3Full := (int64(c.B) << 4) * int64(g.regs.ir3)
	g.regs.mac1 = g.clampMAC(1, mac1Full, sf)
	g.regs.mac2 = g.clampMAC(2, mac2Full, sf)
	g.regs.mac3 = g.clampMAC(3, mac3Full, sf)
	g.regs.ir1 = g.clampIR(1, g.regs.mac1, lm)
	g.regs.ir2 = g.clampIR(2, g.regs.mac2, lm)
	g.regs.ir3 = g.clampIR(3, g.regs.mac3, lm)
	g.pushColourFromMAC(sf)
}

func (g *Gte) ncs(sf uint, lm bool) {
	g.lightVector(g.regs.v0, sf)
	g.colourVector(sf, lm)
	g.pushColourFromMAC(sf)
}

func (g *Gte) nct(sf uint, lm bool) {
	for _, v := range [3]Vector3{g.regs.v0, g.regs.v1, g.regs.v2} {
		g.lightVector(v, sf)
		g.colourVector(sf, lm)
		g.pushColourFromMAC(sf)
	}
}

func (g *Gte) ncds(sf uint, lm bool) {
	g.lightVector(g.regs.v0, sf)
	g.colourVector(sf, lm)
	g.dcpl(sf, lm)
}

func (g *Gte) ncdt(sf uint, lm bool) {
	for _, v := range [3]Vector3{g.regs.v0, g.regs.v1, g.regs.v2} {
		g.lightVector(v, sf)
		g.colourVector(sf, lm)
		g.dcpl(sf, lm)
	}
}

func (g *Gte) nccs(sf uint, lm bool) {
	g.lightVector(g.regs.v0, sf)
	g.colourVector(sf, lm)
	g.colourMultiply(sf, lm)
}

func (g *Gte) ncct(sf uint, lm bool) {
	for _, v := range [3]Vector3{g.regs.v0, g.regs.v1, g.regs.v2} {
		g.lightVector(v, sf)
		g.colourVector(sf, lm)
		g.colourMultiply(sf, lm)
	}
}

func (g *Gte) cc(sf uint, lm bool) {
	g.colourVector(sf, lm)
	g.colourMultiply(sf, lm)
}

func (g *Gte) sqr(sf uint, lm bool) {
	ir1, ir2, ir3 := int64(g.regs.ir1), int64(g.regs.ir2), int64(g.regs.ir3)
	g.regs.mac1 = g.clampMAC(1, ir1*ir1, sf)
	g.regs.mac2 = g.clampMAC(2, ir2*ir2, sf)
	g.regs.mac3 = g.clampMAC(3, ir3*ir3, sf)
	g.regs.ir1 = g.clampIR(1, g.regs.mac1, lm)
	g.regs.ir2 = g.clampIR(2, g.regs.mac2, lm)
	g.regs.ir3 = g.clampIR(3, g.regs.mac3, lm)
}
