package regs

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/marcinbor85/gohex"
)

// Range is an address range [Base, Base+Size).
type Range struct {
	Base uint32
	Size uint32
}

func (r Range) contains(addr uint32) bool {
	return addr >= r.Base && uint64(addr)+4 <= uint64(r.Base)+uint64(r.Size)
}

// Dump writes the words of b in ranges as one Intel HEX image. Registers are
// stored little-endian, the way the chip lays them out.
func Dump(w io.Writer, b Bank, ranges ...Range) error {
	mem := gohex.NewMemory()
	for _, r := range ranges {
		buf := make([]byte, r.Size&^3)
		for off := uint32(0); off < uint32(len(buf)); off += 4 {
			binary.LittleEndian.PutUint32(buf[off:], b.Read32(r.Base+off))
		}
		err := mem.AddBinary(r.Base, buf)
		if err != nil {
			return fmt.Errorf("couldn't add %d bytes at %08X: %v", len(buf), r.Base, err)
		}
	}
	return mem.DumpIntelHex(w, 16)
}

// Load reads an Intel HEX image and writes every aligned whole word that falls
// into one of ranges to b. It returns the number of words written.
func Load(r io.Reader, b Bank, ranges ...Range) (int, error) {
	mem := gohex.NewMemory()
	err := mem.ParseIntelHex(r)
	if err != nil {
		return 0, fmt.Errorf("couldn't parse hex image: %v", err)
	}
	n := 0
	for _, seg := range mem.GetDataSegments() {
		for i := 0; i+4 <= len(seg.Data); i++ {
			addr := seg.Address + uint32(i)
			if addr&3 != 0 || !inRanges(ranges, addr) {
				continue
			}
			b.Write32(addr, binary.LittleEndian.Uint32(seg.Data[i:]))
			n++
		}
	}
	return n, nil
}

func inRanges(ranges []Range, addr uint32) bool {
	for _, r := range ranges {
		if r.contains(addr) {
			return true
		}
	}
	return false
}
