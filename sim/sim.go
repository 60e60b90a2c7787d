// Package sim is a register-level stand-in for a TC23x. It models the parts of
// the SCU, STM0 and CPU0 CSFRs that clock bring-up depends on, and keeps an
// audit of every write that real hardware would reject or that breaks the PLL
// ramp rules.
package sim

import (
	"fmt"
	"sync"

	"github.com/delphi123/TC234-Test/regs"
	"github.com/delphi123/TC234-Test/tc23x"
)

// Write is one bus write as the chip saw it.
type Write struct {
	Addr uint32
	Val  uint32
	Tick uint64
}

// Violation is a write the chip rejected or that broke a ramp rule.
type Violation struct {
	Addr uint32
	Val  uint32
	Msg  string
}

func (v Violation) String() string {
	return fmt.Sprintf("%08X <- %08X: %s", v.Addr, v.Val, v.Msg)
}

type watchdog struct {
	rel     uint32
	pw      uint32
	lck     bool
	endinit bool
}

func (w *watchdog) con0() uint32 {
	v := tc23x.WDTCON0_REL.Put(0, w.rel)
	v = tc23x.WDTCON0_PW.Put(v, w.pw^tc23x.WDT_PASSWORD_INVERT)
	if w.lck {
		v = tc23x.WDTCON0_LCK.Put(v, 1)
	}
	if w.endinit {
		v = tc23x.WDTCON0_ENDINIT.Put(v, 1)
	}
	return v
}

var (
	safetyProtected = map[uint32]string{
		tc23x.SCU_OSCCON:   "OSCCON",
		tc23x.SCU_PLLCON0:  "PLLCON0",
		tc23x.SCU_PLLCON1:  "PLLCON1",
		tc23x.SCU_PLLCON2:  "PLLCON2",
		tc23x.SCU_CCUCON0:  "CCUCON0",
		tc23x.SCU_CCUCON1:  "CCUCON1",
		tc23x.SCU_CCUCON2:  "CCUCON2",
		tc23x.SCU_CCUCON6:  "CCUCON6",
		tc23x.SCU_SWRSTCON: "SWRSTCON",
	}
	cpuProtected = map[uint32]string{
		tc23x.SCU_PMCSR0: "PMCSR0",
		tc23x.CPU_PCON0:  "PCON0",
		tc23x.CPU_PCON1:  "PCON1",
		tc23x.CPU_DCON0:  "DCON0",
	}
	// reset values of the registers the model cares about
	resetValues = map[uint32]uint32{
		tc23x.SCU_PLLCON0: 0x00010001, // powered, VCO bypassed
		tc23x.SCU_PLLCON1: 0x00010000,
		tc23x.SCU_CCUCON0: 0x00020100, // back-up clock, SRIDIV 1, SPBDIV 2
		tc23x.SCU_CCUCON1: 0x00000101, // STMDIV 1, CANDIV 1
		tc23x.SCU_CCUCON2: 0x00000001,
		tc23x.CPU_PCON0:   0x00000002, // program cache bypassed
		tc23x.CPU_PCON2:   0x00000008, // 8 KB program cache
		tc23x.CPU_DCON0:   0x00000002,
	}
)

// Chip is a simulated TC23x. The zero value isn't usable, get one from New.
type Chip struct {
	LockDelay    int    // PLLSTAT reads until VCOLOCK once the detector runs
	ReadyDelay   int    // bus reads until K2RDY after a K divider write
	UpdateDelay  int    // CCUCONx reads that LCK stays set after an update
	TickStep     uint32 // STM ticks per STM register access
	NoLockSignal bool   // VCOLOCK never rises

	mu         sync.Mutex
	mem        map[uint32]uint32
	wdts       map[uint32]*watchdog
	ccuLck     map[uint32]int
	findis     bool
	lockIn     int // -1: not locking
	readyIn    int
	tim        uint64
	matches    int
	kMatches   int
	kWrites    int
	writes     []Write
	violations []Violation
	resets     int
}

func New() *Chip {
	c := &Chip{
		LockDelay:   20,
		ReadyDelay:  3,
		UpdateDelay: 2,
		TickStep:    50,
	}
	c.reset()
	return c
}

func (c *Chip) reset() {
	c.mem = map[uint32]uint32{}
	for addr, v := range resetValues {
		c.mem[addr] = v
	}
	c.wdts = map[uint32]*watchdog{
		tc23x.SCU_WDTCPU0CON0: {rel: 0xFFFC, pw: 0x003C, lck: true, endinit: true},
		tc23x.SCU_WDTSCON0:    {rel: 0xFFFC, pw: 0x003C, lck: true, endinit: true},
	}
	c.ccuLck = map[uint32]int{}
	c.findis = false
	c.lockIn = -1
	c.readyIn = 0
	c.tim = 0
	c.kWrites = 0
}

func (c *Chip) violate(addr uint32, val uint32, format string, args ...interface{}) {
	c.violations = append(c.violations, Violation{addr, val, fmt.Sprintf(format, args...)})
}

func (c *Chip) Read32(addr uint32) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readyIn > 0 {
		c.readyIn--
	}
	switch addr {
	case tc23x.SCU_PLLSTAT:
		return c.pllstat()
	case tc23x.SCU_CCUCON0, tc23x.SCU_CCUCON1, tc23x.SCU_CCUCON2:
		v := c.mem[addr]
		if c.ccuLck[addr] > 0 {
			c.ccuLck[addr]--
			v = tc23x.CCUCON_LCK.Put(v, 1)
		}
		return v
	case tc23x.SCU_WDTCPU0CON0, tc23x.SCU_WDTSCON0:
		return c.wdts[addr].con0()
	case tc23x.STM0_TIM0:
		c.advance()
		return uint32(c.tim)
	case tc23x.STM0_ICR:
		c.advance()
		return c.mem[addr]
	}
	return c.mem[addr]
}

func (c *Chip) pllstat() uint32 {
	pllcon0 := c.mem[tc23x.SCU_PLLCON0]
	v := tc23x.PLLSTAT_VCOBYST.Put(0, tc23x.PLLCON0_VCOBYP.Get(pllcon0))
	if c.findis {
		v = tc23x.PLLSTAT_FINDIS.Put(v, 1)
	}
	if c.lockIn > 0 {
		c.lockIn--
	}
	if c.lockIn == 0 && !c.NoLockSignal {
		v = tc23x.PLLSTAT_VCOLOCK.Put(v, 1)
	}
	if c.readyIn == 0 {
		v = tc23x.PLLSTAT_K1RDY.Put(v, 1)
		v = tc23x.PLLSTAT_K2RDY.Put(v, 1)
	}
	return v
}

// advance moves TIM0 on by TickStep and raises CMP0IR when TIM0 passes CMP0
// in the bits selected by CMCON.MSIZE0.
func (c *Chip) advance() {
	old := uint32(c.tim)
	c.tim += uint64(c.TickStep)
	mask := regs.Field{Pos: 0, Width: uint(tc23x.STM_CMCON_MSIZE0.Get(c.mem[tc23x.STM0_CMCON])) + 1}.Mask()
	diff := (c.mem[tc23x.STM0_CMP0] - old) & mask
	if diff != 0 && diff <= c.TickStep {
		icr := c.mem[tc23x.STM0_ICR]
		if tc23x.STM_ICR_CMP0EN.Get(icr) != 0 {
			c.matches++
		}
		c.mem[tc23x.STM0_ICR] = tc23x.STM_ICR_CMP0IR.Put(icr, 1)
	}
}

func (c *Chip) endinit(addr uint32) (string, bool) {
	if name, ok := safetyProtected[addr]; ok {
		return name, c.wdts[tc23x.SCU_WDTSCON0].endinit
	}
	if name, ok := cpuProtected[addr]; ok {
		return name, c.wdts[tc23x.SCU_WDTCPU0CON0].endinit
	}
	return "", false
}

func (c *Chip) Write32(addr uint32, val uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, Write{addr, val, c.tim})

	if name, locked := c.endinit(addr); locked {
		c.violate(addr, val, "%s written with ENDINIT set", name)
		return
	}

	switch addr {
	case tc23x.SCU_WDTCPU0CON0, tc23x.SCU_WDTSCON0:
		c.writeWdt(addr, val)
	case tc23x.SCU_PLLCON0:
		c.writePllcon0(val)
	case tc23x.SCU_PLLCON1:
		c.writePllcon1(val)
	case tc23x.SCU_CCUCON0, tc23x.SCU_CCUCON1, tc23x.SCU_CCUCON2:
		if c.ccuLck[addr] > 0 {
			c.violate(addr, val, "CCUCON written while LCK set")
			return
		}
		if tc23x.CCUCON_UP.Get(val) != 0 {
			c.ccuLck[addr] = c.UpdateDelay
		}
		c.mem[addr] = val &^ (tc23x.CCUCON_UP.Mask() | tc23x.CCUCON_LCK.Mask())
	case tc23x.SCU_SWRSTCON:
		if tc23x.SWRSTCON_SWRSTREQ.Get(val) != 0 {
			c.reset()
			c.resets++
			return
		}
		c.mem[addr] = val
	case tc23x.STM0_ISCR:
		if tc23x.STM_ISCR_CMP0IRR.Get(val) != 0 {
			c.mem[tc23x.STM0_ICR] = tc23x.STM_ICR_CMP0IR.Put(c.mem[tc23x.STM0_ICR], 0)
		}
	case tc23x.STM0_ICR:
		ir := c.mem[addr] & tc23x.STM_ICR_CMP0IR.Mask()
		c.mem[addr] = val&^tc23x.STM_ICR_CMP0IR.Mask() | ir
	default:
		c.mem[addr] = val
	}
}

func (c *Chip) writeWdt(addr uint32, val uint32) {
	w := c.wdts[addr]
	pw := tc23x.WDTCON0_PW.Get(val)
	lck := tc23x.WDTCON0_LCK.Get(val) != 0
	if pw != w.pw {
		c.violate(addr, val, "wrong watchdog password %04X", pw)
		return
	}
	if w.lck {
		// password access
		if lck {
			c.violate(addr, val, "password access with LCK set")
			return
		}
		w.rel = tc23x.WDTCON0_REL.Get(val)
		w.lck = false
		return
	}
	// modify access
	if !lck {
		c.violate(addr, val, "modify access without LCK")
		return
	}
	w.endinit = tc23x.WDTCON0_ENDINIT.Get(val) != 0
	w.lck = true
}

func dividers(pllcon0 uint32) (uint32, uint32) {
	return tc23x.PLLCON0_NDIV.Get(pllcon0), tc23x.PLLCON0_PDIV.Get(pllcon0)
}

func (c *Chip) writePllcon0(val uint32) {
	old := c.mem[tc23x.SCU_PLLCON0]
	bypass := tc23x.PLLCON0_VCOBYP.Get(val) != 0
	on, op := dividers(old)
	nn, np := dividers(val)
	if (on != nn || op != np) && !bypass {
		c.violate(tc23x.SCU_PLLCON0, val, "P/N changed without VCO bypass")
	}
	if on != nn || op != np {
		c.lockIn = -1
	}
	if tc23x.PLLCON0_VCOBYP.Get(old) != 0 && !bypass && !c.NoLockSignal && c.lockIn != 0 {
		c.violate(tc23x.SCU_PLLCON0, val, "VCO bypass removed before lock")
	}
	if tc23x.PLLCON0_SETFINDIS.Get(val) != 0 {
		c.findis = true
		c.lockIn = -1
	}
	if tc23x.PLLCON0_CLRFINDIS.Get(val) != 0 {
		c.findis = false
		c.lockIn = c.LockDelay
	}
	// SETFINDIS and CLRFINDIS are write-only
	c.mem[tc23x.SCU_PLLCON0] = val &^ (tc23x.PLLCON0_SETFINDIS.Mask() | tc23x.PLLCON0_CLRFINDIS.Mask())
}

func (c *Chip) writePllcon1(val uint32) {
	old := c.mem[tc23x.SCU_PLLCON1]
	k2, k3 := tc23x.PLLCON1_K2DIV.Get(val), tc23x.PLLCON1_K3DIV.Get(val)
	if k2 != k3 {
		c.violate(tc23x.SCU_PLLCON1, val, "K2 %d and K3 %d differ", k2, k3)
	}
	if c.readyIn != 0 {
		c.violate(tc23x.SCU_PLLCON1, val, "K divider written while K2RDY low")
	}
	running := tc23x.PLLCON0_VCOBYP.Get(c.mem[tc23x.SCU_PLLCON0]) == 0
	if running {
		ok2 := tc23x.PLLCON1_K2DIV.Get(old)
		if k2+1 < ok2 || ok2+1 < k2 {
			c.violate(tc23x.SCU_PLLCON1, val, "K2 step %d -> %d", ok2, k2)
		}
		if c.kWrites > 0 && c.matches == c.kMatches {
			c.violate(tc23x.SCU_PLLCON1, val, "K2 stepped without settle delay")
		}
	}
	c.kWrites++
	c.kMatches = c.matches
	c.readyIn = c.ReadyDelay
	c.mem[tc23x.SCU_PLLCON1] = val
}

// Violations returns every rejected or rule-breaking write so far.
func (c *Chip) Violations() []Violation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Violation(nil), c.violations...)
}

// Writes returns the writes to addr, or all writes if addr is 0.
func (c *Chip) Writes(addr uint32) []Write {
	c.mu.Lock()
	defer c.mu.Unlock()
	var ws []Write
	for _, w := range c.writes {
		if addr == 0 || w.Addr == addr {
			ws = append(ws, w)
		}
	}
	return ws
}

// Resets returns how many software resets were requested.
func (c *Chip) Resets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resets
}

// Ticks returns the STM0 counter.
func (c *Chip) Ticks() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tim
}

// Endinit reports the ENDINIT bit of the watchdog whose CON0 is at addr.
func (c *Chip) Endinit(addr uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wdts[addr].endinit
}

type raw struct {
	c *Chip
}

func (r raw) Read32(addr uint32) uint32 {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	return r.c.mem[addr]
}

func (r raw) Write32(addr uint32, val uint32) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	r.c.mem[addr] = val
}

// Raw gives direct access to the register contents, bypassing protection and
// side effects. Use it to seed the chip, e.g. from a regs.Load image.
func (c *Chip) Raw() regs.Bank {
	return raw{c}
}
