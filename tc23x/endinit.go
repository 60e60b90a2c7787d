package tc23x

import (
	"github.com/delphi123/TC234-Test/regs"
)

// ProtectionDomain selects which ENDINIT a protection toggle acts on. Anything
// below SecurityWatchdog is a CPU watchdog; the TC23x has only CPU0, so 0, 1
// and 2 all end up at the CPU0 watchdog.
type ProtectionDomain int

const (
	CoreWatchdog     ProtectionDomain = 0
	SecurityWatchdog ProtectionDomain = 3
)

// wdt is the ENDINIT half of a watchdog: CON0 holds the ENDINIT bit, the lock
// bit and the password that has to be presented to change either.
type wdt struct {
	name string
	con0 regs.Reg32
}

func (s *System) gate(d ProtectionDomain) *wdt {
	if d < SecurityWatchdog {
		return &s.cpuWdt
	}
	return &s.safetyWdt
}

// setEndinit runs the password/modify access sequence on w.
// Reading CON0 returns PW with bits 7:2 inverted, so flipping them back gives
// the password to present.
func (s *System) setEndinit(w *wdt, endinit uint32) {
	con0 := w.con0.Get()
	pw := WDTCON0_PW.Get(con0) ^ WDT_PASSWORD_INVERT
	con0 = WDTCON0_PW.Put(con0, pw)
	if WDTCON0_LCK.Get(con0) != 0 {
		// password access: unlocks CON0 for one modify access
		v := WDTCON0_LCK.Put(con0, 0)
		v = WDTCON0_ENDINIT.Put(v, 1)
		w.con0.Set(v)
	}
	// modify access: relocks CON0
	v := WDTCON0_LCK.Put(con0, 1)
	v = WDTCON0_ENDINIT.Put(v, endinit)
	w.con0.Set(v)
	s.spin(w.name+" ENDINIT", func() bool {
		return w.con0.Field(WDTCON0_ENDINIT) == endinit
	})
}

func (s *System) unlock(w *wdt) {
	s.setEndinit(w, 0)
}

func (s *System) lock(w *wdt) {
	s.setEndinit(w, 1)
}

// protected runs fn with w's ENDINIT cleared and sets it again on the way
// out, also when fn panics. Calls must not nest.
func (s *System) protected(w *wdt, fn func()) {
	s.unlock(w)
	defer s.lock(w)
	fn()
}

// EnableProtection sets ENDINIT for domain d.
func (s *System) EnableProtection(d ProtectionDomain) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lock(s.gate(d))
}

// DisableProtection clears ENDINIT for domain d. The caller owns the open
// window and must close it with EnableProtection.
func (s *System) DisableProtection(d ProtectionDomain) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unlock(s.gate(d))
}

func (s *System) EnableSecProtection() {
	s.EnableProtection(SecurityWatchdog)
}

func (s *System) DisableSecProtection() {
	s.DisableProtection(SecurityWatchdog)
}

// Protected reports whether ENDINIT is currently set for domain d.
func (s *System) Protected(d ProtectionDomain) bool {
	return s.gate(d).con0.Field(WDTCON0_ENDINIT) != 0
}
