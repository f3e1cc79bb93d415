// Package disc implements the minutes:seconds:sectors addressing scheme
// and track/sector extraction for a loaded CD image, ported closely from
// original_source/psx/src/cdrom/disc.rs.
package disc

import "fmt"

const (
	secondsPerMinute = 60
	sectorsPerSecond = 75
	bytesPerSector   = 0x930
)

// Index is an MSF (minutes:seconds:sectors) disc address.
type Index struct {
	Minutes, Seconds, Sectors uint8
}

var Zero = Index{}

func NewIndex(m, s, sec uint8) Index { return Index{m, s, sec} }

func FromBCD(m, s, sec uint8) Index {
	return Index{bcdToBinary(m), bcdToBinary(s), bcdToBinary(sec)}
}

func FromLBA(lba int) Index {
	m := lba / (sectorsPerSecond * secondsPerMinute)
	s := (lba / sectorsPerSecond) % secondsPerMinute
	sec := lba % sectorsPerSecond
	return Index{uint8(m), uint8(s), uint8(sec)}
}

// ToLBA converts to a logical block address, accounting for the 150-sector
// (2-second) pre-gap lead-in.
func (i Index) ToLBA() int {
	lba := int(i.Minutes)*secondsPerMinute*sectorsPerSecond + int(i.Seconds)*sectorsPerSecond + int(i.Sectors)
	if lba < 150 {
		return 0
	}
	return lba - 150
}

func addWrap(a, b uint8, carryIn bool, base uint8) (uint8, bool) {
	sum := a + b
	if carryIn {
		sum++
	}
	return sum % base, sum >= base
}

func (i Index) Add(rhs Index) Index {
	sec, c := addWrap(i.Sectors, rhs.Sectors, false, sectorsPerSecond)
	s, c2 := addWrap(i.Seconds, rhs.Seconds, c, secondsPerMinute)
	m, _ := addWrap(i.Minutes, rhs.Minutes, c2, 80)
	return Index{m, s, sec}
}

func (i Index) Sub(rhs Index) Index {
	return FromLBA(i.ToLBA() - rhs.ToLBA())
}

func (i Index) String() string {
	return fmt.Sprintf("%d:%d:%d LBA %d", i.Minutes, i.Seconds, i.Sectors, i.ToLBA())
}

func bcdToBinary(v uint8) uint8 { return 10*(v>>4) + (v & 0xF) }

func BinaryToBCD(v uint8) uint8 { return (v/10)<<4 | v%10 }

type track struct {
	number   int
	data     []byte
	startLBA int
	endLBA   int
}

// Disc is a sequence of raw-image tracks (2352-byte/sector CD-ROM XA
// layout), addressed as one contiguous LBA space with 150-sector gaps
// between tracks beyond the first.
type Disc struct {
	tracks []track
}

func New() *Disc { return &Disc{} }

func (d *Disc) AddTracks(tracksData [][]byte) {
	total := 0
	num := 0
	for _, data := range tracksData {
		sectors := len(data) / bytesPerSector
		start := total + 150
		if num > 0 {
			start += 150
		}
		end := total + sectors
		total += sectors
		num++
		d.tracks = append(d.tracks, track{number: num, data: data, startLBA: start, endLBA: end})
	}
}

func (d *Disc) trackForAddr(sectorAddr int) (int, int) {
	addr := 0
	for n, t := range d.tracks {
		if sectorAddr >= addr && sectorAddr < addr+len(t.data) {
			return n, addr
		}
		addr += len(t.data)
	}
	return 0, 0
}

// Sector is one raw 0x930-byte sector.
type Sector struct {
	data []byte
}

// WholeSector strips the 12-byte sync pattern.
func (s Sector) WholeSector() []byte { return s.data[0xC:] }

// DataOnly returns the 0x800-byte user-data payload (Mode 2 Form 1 XA
// sectors, which is what PSX discs use).
func (s Sector) DataOnly() []byte { return s.data[0x18 : 0x18+0x800] }

func (d *Disc) ReadSector(index Index) Sector {
	addr := index.ToLBA() * bytesPerSector
	trackNum, start := d.trackForAddr(addr)
	trackAddr := addr - start
	return Sector{data: d.tracks[trackNum].data[trackAddr : trackAddr+bytesPerSector]}
}

func (d *Disc) TrackCount() int { return len(d.tracks) }

func (d *Disc) TrackStart(trackNum int) Index {
	return FromLBA(d.tracks[trackNum-1].startLBA)
}

func (d *Disc) DiscEnd() Index {
	if len(d.tracks) == 0 {
		return Zero
	}
	return FromLBA(d.tracks[len(d.tracks)-1].endLBA + 150)
}
