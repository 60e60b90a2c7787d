// Package tc23x brings up and controls the clock system of an AURIX TC23x:
// the PLL ramp to a target frequency, the ENDINIT write protection that guards
// it, clock readback, low-power requests, cache control and software reset.
//
// Everything here is blocking busy-wait code. A poll on a hardware flag that
// never comes hangs forever unless a poll limit is configured.
package tc23x

import (
	"log"
	"runtime"
	"sync"

	"github.com/delphi123/TC234-Test/regs"
)

// WatchdogDisabler turns off an external watchdog (e.g. a TLF35584 on the
// application kit) before the clock system is touched.
type WatchdogDisabler interface {
	DisableWatchdog() error
}

// System is the handle on one chip. All clock affecting operations hold mu for
// their whole duration, so a ramp in progress completes before anything else
// that touches clocks or ENDINIT starts. Clock readbacks don't take mu.
type System struct {
	mu sync.Mutex

	bank regs.Bank
	scu  scuT
	stm  stmT
	csfr csfrT

	cpuWdt    wdt
	safetyWdt wdt

	osc       uint32
	noLock    bool
	pollLimit int
	trap      func(what string)
	halt      func()
	log       *log.Logger

	extWdt   WatchdogDisabler
	initOnce sync.Once
	initErr  error
}

type Option func(*System)

// WithOscillator sets the external oscillator frequency in Hz.
func WithOscillator(hz uint32) Option {
	return func(s *System) { s.osc = hz }
}

// WithoutLockSignal is for devices whose PLL has no usable VCOLOCK flag: the
// lock wait before removing the VCO bypass is skipped.
func WithoutLockSignal() Option {
	return func(s *System) { s.noLock = true }
}

// WithPollLimit bounds every hardware poll to n reads. When a poll runs out,
// trap is called with a description of what was being waited for. A nil trap
// means log.Fatalf. If trap returns, polling starts over.
func WithPollLimit(n int, trap func(what string)) Option {
	return func(s *System) {
		s.pollLimit = n
		if trap != nil {
			s.trap = trap
		}
	}
}

// WithHalt replaces the spin Reset ends in. halt is called in a loop and
// normally never returns itself (os.Exit, runtime.Goexit, ...).
func WithHalt(halt func()) Option {
	return func(s *System) { s.halt = halt }
}

func WithLogger(l *log.Logger) Option {
	return func(s *System) { s.log = l }
}

func WithWatchdogDisabler(d WatchdogDisabler) Option {
	return func(s *System) { s.extWdt = d }
}

// New returns a System driving the registers reachable through b, which must
// decode absolute SCU, STM0 and CPU0 CSFR addresses.
func New(b regs.Bank, opts ...Option) *System {
	s := &System{
		bank: b,
		scu:  newSCU(b),
		stm:  newSTM(b),
		csfr: newCSFR(b),
		cpuWdt: wdt{
			name: "CPU0 watchdog",
			con0: regs.NewReg32(b, SCU_WDTCPU0CON0),
		},
		safetyWdt: wdt{
			name: "safety watchdog",
			con0: regs.NewReg32(b, SCU_WDTSCON0),
		},
		osc:  EXTCLK,
		halt: runtime.Gosched,
		log:  log.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.trap == nil {
		s.trap = func(what string) {
			s.log.Fatalf("gave up after %d polls waiting for %s", s.pollLimit, what)
		}
	}
	return s
}

// Init runs the one-time bring-up: the external watchdog is disabled once per
// System, later calls return the first result.
func (s *System) Init() error {
	s.initOnce.Do(func() {
		if s.extWdt == nil {
			s.log.Printf("No external watchdog configured")
			return
		}
		s.log.Printf("Disabling external watchdog")
		s.initErr = s.extWdt.DisableWatchdog()
	})
	return s.initErr
}

// spin polls until ready reports true.
func (s *System) spin(what string, ready func() bool) {
	i := 0
	for !ready() {
		i++
		if s.pollLimit > 0 && i >= s.pollLimit {
			s.trap(what)
			i = 0
		}
	}
}
