package spu

// reverb implements the SPU's comb/all-pass reverb unit, operating on a
// work area of sound RAM addressed relative to a programmable base.
// Field names mirror the register names from the hardware documentation
// this was ported against (dAPF/vIIR/mLSAME etc.) rather than being
// spelled out, matching the register's own terse naming.
type reverb struct {
	enabled   bool
	volumeL   int16
	volumeR   int16
	baseAddr  int
	currentAddr int

	dAPF1 int
	dAPF2 int

	vIIR   int32
	vCOMB1 int32
	vCOMB2 int32
	vCOMB3 int32
	vCOMB4 int32
	vWALL  int32
	vAPF1  int32
	vAPF2  int32

	mLSAME, mRSAME     int
	mLCOMB1, mRCOMB1   int
	mLCOMB2, mRCOMB2   int
	dLSAME, dRSAME     int
	mLDIFF, mRDIFF     int
	mLCOMB3, mRCOMB3   int
	mLCOMB4, mRCOMB4   int
	dLDIFF, dRDIFF     int
	mLAPF1, mRAPF1     int
	mLAPF2, mRAPF2     int

	vLIN int32
	vRIN int32
}

func (r *reverb) read(addr uint32) uint16 {
	switch addr & 0xFFFF {
	case 0x1DC0:
		return uint16(r.dAPF1 >> 3)
	case 0x1DC2:
		return uint16(r.dAPF2 >> 3)
	case 0x1DC4:
		return uint16(r.vIIR)
	case 0x1DC6:
		return uint16(r.vCOMB1)
	case 0x1DC8:
		return uint16(r.vCOMB2)
	case 0x1DCA:
		return uint16(r.vCOMB3)
	case 0x1DCC:
		return uint16(r.vCOMB4)
	case 0x1DCE:
		return uint16(r.vWALL)
	case 0x1DD0:
		return uint16(r.vAPF1)
	case 0x1DD2:
		return uint16(r.vAPF2)
	case 0x1DD4:
		return uint16(r.mLSAME >> 3)
	case 0x1DD6:
		return uint16(r.mRSAME >> 3)
	case 0x1DD8:
		return uint16(r.mLCOMB1 >> 3)
	case 0x1DDA:
		return uint16(r.mRCOMB1 >> 3)
	case 0x1DDC:
		return uint16(r.mLCOMB2 >> 3)
	case 0x1DDE:
		return uint16(r.mRCOMB2 >> 3)
	case 0x1DE0:
		return uint16(r.dLSAME >> 3)
	case 0x1DE2:
		return uint16(r.dRSAME >> 3)
	case 0x1DE4:
		return uint16(r.mLDIFF >> 3)
	case 0x1DE6:
		return uint16(r.mRDIFF >> 3)
	case 0x1DE8:
		return uint16(r.mLCOMB3 >> 3)
	case 0x1DEA:
		return uint16(r.mRCOMB3 >> 3)
	case 0x1DEC:
		return uint16(r.mLCOMB4 >> 3)
	case 0x1DEE:
		return uint16(r.mRCOMB4 >> 3)
	case 0x1DF0:
		return uint16(r.dLDIFF >> 3)
	case 0x1DF2:
		return uint16(r.dRDIFF >> 3)
	case 0x1DF4:
		return uint16(r.mLAPF1 >> 3)
	case 0x1DF6:
		return uint16(r.mRAPF1 >> 3)
	case 0x1DF8:
		return uint16(r.mLAPF2 >> 3)
	case 0x1DFA:
		return uint16(r.mRAPF2 >> 3)
	case 0x1DFC:
		return uint16(r.vLIN)
	case 0x1DFE:
		return uint16(r.vRIN)
	default:
		return 0
	}
}

func (r *reverb) write(addr uint32, v uint16) {
	sv := int16(v)
	switch addr & 0xFFFF {
	case 0x1DC0:
		r.dAPF1 = int(v) << 3
	case 0x1DC2:
		r.dAPF2 = int(v) << 3
	case 0x1DC4:
		r.vIIR = int32(sv)
	case 0x1DC6:
		r.vCOMB1 = int32(sv)
	case 0x1DC8:
		r.vCOMB2 = int32(sv)
	case 0x1DCA:
		r.vCOMB3 = int32(sv)
	case 0x1DCC:
		r.vCOMB4 = int32(sv)
	case 0x1DCE:
		r.vWALL = int32(sv)
	case 0x1DD0:
		r.vAPF1 = int32(sv)
	case 0x1DD2:
		r.vAPF2 = int32(sv)
	case 0x1DD4:
		r.mLSAME = int(v) << 3
	case 0x1DD6:
		r.mRSAME = int(v) << 3
	case 0x1DD8:
		r.mLCOMB1 = int(v) << 3
	case 0x1DDA:
		r.mRCOMB1 = int(v) << 3
	case 0x1DDC:
		r.mLCOMB2 = int(v) << 3
	case 0x1DDE:
		r.mRCOMB2 = int(v) << 3
	case 0x1DE0:
		r.dLSAME = int(v) << 3
	case 0x1DE2:
		r.dRSAME = int(v) << 3
	case 0x1DE4:
		r.mLDIFF = int(v) << 3
	case 0x1DE6:
		r.mRDIFF = int(v) << 3
	case 0x1DE8:
		r.mLCOMB3 = int(v) << 3
	case 0x1DEA:
		r.mRCOMB3 = int(v) << 3
	case 0x1DEC:
		r.mLCOMB4 = int(v) << 3
	case 0x1DEE:
		r.mRCOMB4 = int(v) << 3
	case 0x1DF0:
		r.dLDIFF = int(v) << 3
	case 0x1DF2:
		r.dRDIFF = int(v) << 3
	case 0x1DF4:
		r.mLAPF1 = int(v) << 3
	case 0x1DF6:
		r.mRAPF1 = int(v) << 3
	case 0x1DF8:
		r.mLAPF2 = int(v) << 3
	case 0x1DFA:
		r.mRAPF2 = int(v) << 3
	case 0x1DFC:
		r.vLIN = int32(v)
	case 0x1DFE:
		r.vRIN = int32(v)
	}
}

func (r *reverb) tick(sampleL, sampleR int32, ram *soundRAM) (int16, int16) {
	inputL := applyVolume32(sampleL, r.vLIN/2)
	inputR := applyVolume32(sampleR, r.vRIN/2)

	r.reflectionFilter(inputL, r.mLSAME, r.dLSAME, ram)
	r.reflectionFilter(inputR, r.mRSAME, r.dRSAME, ram)

	r.reflectionFilter(inputR, r.mLDIFF, r.dRDIFF, ram)
	r.reflectionFilter(inputL, r.mRDIFF, r.dLDIFF, ram)

	combL := r.combFilter(r.mLCOMB1, r.mLCOMB2, r.mLCOMB3, r.mLCOMB4, ram)
	combR := r.combFilter(r.mRCOMB1, r.mRCOMB2, r.mRCOMB3, r.mRCOMB4, ram)

	apf1L := r.allPassFilter(combL, r.mLAPF1, r.dAPF1, r.vAPF1, ram)
	apf1R := r.allPassFilter(combR, r.mRAPF1, r.dAPF1, r.vAPF1, ram)

	apf2L := saturateSample(r.allPassFilter(apf1L, r.mLAPF2, r.dAPF2, r.vAPF2, ram))
	apf2R := saturateSample(r.allPassFilter(apf1R, r.mRAPF2, r.dAPF2, r.vAPF2, ram))

	r.currentAddr = (r.currentAddr + 2) & sramMask
	if r.currentAddr < r.baseAddr {
		r.currentAddr = r.baseAddr
	}

	return applyVolume(apf2L, r.volumeL), applyVolume(apf2R, r.volumeR)
}

func (r *reverb) reflectionFilter(sample int32, mAddr, dAddr int, ram *soundRAM) {
	mSample := r.readReverb(mAddr-2, ram)
	dSample := r.readReverb(dAddr, ram)

	write := mSample + applyVolume32(int32(saturateSample(sample+applyVolume32(dSample, r.vWALL)-mSample)), r.vIIR)
	r.writeReverb(mAddr, uint16(saturateSample(write)), ram)
}

func (r *reverb) combFilter(mComb1, mComb2, mComb3, mComb4 int, ram *soundRAM) int32 {
	comb := applyVolume32(r.readReverb(mComb1, ram), r.vCOMB1) +
		applyVolume32(r.readReverb(mComb2, ram), r.vCOMB2) +
		applyVolume32(r.readReverb(mComb3, ram), r.vCOMB3) +
		applyVolume32(r.readReverb(mComb4, ram), r.vCOMB4)

	return int32(saturateSample(comb))
}

func (r *reverb) allPassFilter(sample int32, mAPF, dAPF int, vAPF int32, ram *soundRAM) int32 {
	apfInput := r.readReverb(mAPF-dAPF, ram)
	apfNew := saturateSample(sample - applyVolume32(apfInput, vAPF))

	r.writeReverb(mAPF, uint16(apfNew), ram)

	return apfInput + applyVolume32(int32(apfNew), vAPF)
}

func (r *reverb) readReverb(addr int, ram *soundRAM) int32 {
	span := sramLen - r.baseAddr
	offset := mod(r.currentAddr-r.baseAddr+addr, span)
	readAddr := r.baseAddr + offset

	lo := ram.at(readAddr)
	hi := ram.at(readAddr + 1)
	return int32(int16(uint16(lo) | uint16(hi)<<8))
}

func (r *reverb) writeReverb(addr int, v uint16, ram *soundRAM) {
	if !r.enabled {
		return
	}
	span := sramLen - r.baseAddr
	offset := mod(r.currentAddr-r.baseAddr+addr, span)
	writeAddr := r.baseAddr + offset

	ram.set(writeAddr, byte(v))
	ram.set(writeAddr+1, byte(v>>8))
}

// mod is Euclidean modulo: Go's % can return negative results for a
// negative dividend, unlike Rust's wrapping unsigned arithmetic here.
func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
