package regs

import (
	"fmt"
	"sort"
)

// Bank is anything 32-bit registers can be read from and written to. Addresses
// are byte addresses; every access is a single whole-word access.
type Bank interface {
	Read32(addr uint32) uint32
	Write32(addr uint32, val uint32)
}

// Field describes a bit-field of a 32-bit register.
type Field struct {
	Pos   uint
	Width uint
}

// Mask returns the in-place mask of the field.
func (f Field) Mask() uint32 {
	return uint32(((uint64(1) << f.Width) - 1) << f.Pos)
}

// Get extracts the field from word.
func (f Field) Get(word uint32) uint32 {
	return (word & f.Mask()) >> f.Pos
}

// Put returns word with the field replaced by val. Bits of val that don't fit
// the field are dropped.
func (f Field) Put(word uint32, val uint32) uint32 {
	return (word &^ f.Mask()) | ((val << f.Pos) & f.Mask())
}

// Reg32 is a handle on one register of a Bank.
type Reg32 struct {
	bank Bank
	addr uint32
}

func NewReg32(b Bank, addr uint32) Reg32 {
	return Reg32{bank: b, addr: addr}
}

func (r Reg32) Get() uint32 {
	return r.bank.Read32(r.addr)
}

func (r Reg32) Set(val uint32) {
	r.bank.Write32(r.addr, val)
}

// HasBits reads the register and reports whether any bit of mask is set.
func (r Reg32) HasBits(mask uint32) bool {
	return r.Get()&mask != 0
}

func (r Reg32) SetBits(mask uint32) {
	r.Set(r.Get() | mask)
}

func (r Reg32) ClearBits(mask uint32) {
	r.Set(r.Get() &^ mask)
}

func (r Reg32) Field(f Field) uint32 {
	return f.Get(r.Get())
}

// SetField does a read-modify-write of one field. Fields that have to move
// together must be composed with Field.Put and written with one Set.
func (r Reg32) SetField(f Field, val uint32) {
	r.Set(f.Put(r.Get(), val))
}

type window struct {
	base uint32
	size uint32
	b    Bank
}

// Bus decodes absolute addresses onto attached windows. Each window is
// addressed by offset from its base.
type Bus struct {
	windows []window
}

// Attach maps b at [base, base+size). Overlapping windows are rejected.
func (bus *Bus) Attach(base uint32, size uint32, b Bank) error {
	end := uint64(base) + uint64(size)
	for _, w := range bus.windows {
		if uint64(base) < uint64(w.base)+uint64(w.size) && uint64(w.base) < end {
			return fmt.Errorf("window %08X+%X overlaps %08X+%X", base, size, w.base, w.size)
		}
	}
	bus.windows = append(bus.windows, window{base, size, b})
	sort.Slice(bus.windows, func(i, j int) bool { return bus.windows[i].base < bus.windows[j].base })
	return nil
}

func (bus *Bus) find(addr uint32) window {
	for _, w := range bus.windows {
		if addr >= w.base && uint64(addr)+4 <= uint64(w.base)+uint64(w.size) {
			return w
		}
	}
	// There's nothing sensible to return for a register that doesn't exist.
	panic(fmt.Sprintf("regs: no window mapped at %08X", addr))
}

func (bus *Bus) Read32(addr uint32) uint32 {
	w := bus.find(addr)
	return w.b.Read32(addr - w.base)
}

func (bus *Bus) Write32(addr uint32, val uint32) {
	w := bus.find(addr)
	w.b.Write32(addr-w.base, val)
}

// Mem is a plain word array, addressed by byte offset.
type Mem struct {
	words []uint32
}

func NewMem(size uint32) *Mem {
	return &Mem{words: make([]uint32, (size+3)/4)}
}

func (m *Mem) Read32(off uint32) uint32 {
	return m.words[off/4]
}

func (m *Mem) Write32(off uint32, val uint32) {
	m.words[off/4] = val
}
