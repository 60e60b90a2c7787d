package tc23x_test

import (
	"errors"
	"io"
	"log"
	"runtime"
	"testing"

	"github.com/delphi123/TC234-Test/sim"
	"github.com/delphi123/TC234-Test/tc23x"
)

func newSystem(t *testing.T, c *sim.Chip, opts ...tc23x.Option) *tc23x.System {
	t.Helper()
	opts = append([]tc23x.Option{
		tc23x.WithLogger(log.New(io.Discard, "", 0)),
		tc23x.WithPollLimit(100000, func(what string) {
			t.Fatalf("stuck waiting for %s", what)
		}),
	}, opts...)
	return tc23x.New(c, opts...)
}

func checkClean(t *testing.T, c *sim.Chip, s *tc23x.System) {
	t.Helper()
	for _, v := range c.Violations() {
		t.Errorf("violation: %v", v)
	}
	if !s.Protected(tc23x.SecurityWatchdog) {
		t.Errorf("safety ENDINIT left open")
	}
	if !s.Protected(tc23x.CoreWatchdog) {
		t.Errorf("CPU0 ENDINIT left open")
	}
}

// kSteps returns the K2 values written to PLLCON1, in order.
func kSteps(c *sim.Chip) []uint32 {
	var ks []uint32
	for _, w := range c.Writes(tc23x.SCU_PLLCON1) {
		ks = append(ks, tc23x.PLLCON1_K2DIV.Get(w.Val))
	}
	return ks
}

func TestConfigClock200_100(t *testing.T) {
	c := sim.New()
	s := newSystem(t, c)
	s.ConfigClock200_100()
	checkClean(t, c, s)

	pllcon1 := c.Read32(tc23x.SCU_PLLCON1)
	if k2, k3 := tc23x.PLLCON1_K2DIV.Get(pllcon1), tc23x.PLLCON1_K3DIV.Get(pllcon1); k2 != 2 || k3 != 2 {
		t.Errorf("K2/K3 got: %d/%d, want: 2/2", k2, k3)
	}
	pllstat := c.Read32(tc23x.SCU_PLLSTAT)
	if tc23x.PLLSTAT_VCOBYST.Get(pllstat) != 0 || tc23x.PLLSTAT_VCOLOCK.Get(pllstat) == 0 {
		t.Errorf("PLLSTAT got: %08X, want locked and not bypassed", pllstat)
	}

	want := []uint32{5, 4, 3, 2}
	got := kSteps(c)
	if len(got) != len(want) {
		t.Fatalf("K2 steps got: %v, want: %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("K2 step %d got: %d, want: %d", i, got[i], want[i])
		}
	}

	clocks := s.Clocks()
	wantClocks := tc23x.Clocks{PLL: 200000000, CPU: 200000000, SPB: 100000000, STM: 100000000, CAN: 100000000}
	if clocks != wantClocks {
		t.Errorf("clocks got: %+v, want: %+v", clocks, wantClocks)
	}
}

func TestConfigClock100_50(t *testing.T) {
	c := sim.New()
	s := newSystem(t, c)
	s.ConfigClock100_50()
	checkClean(t, c, s)

	if got := kSteps(c); len(got) != 1 || got[0] != 6 {
		t.Errorf("K2 steps got: %v, want: [6]", got)
	}
	clocks := s.Clocks()
	wantClocks := tc23x.Clocks{PLL: 100000000, CPU: 100000000, SPB: 50000000, STM: 50000000, CAN: 100000000}
	if clocks != wantClocks {
		t.Errorf("clocks got: %+v, want: %+v", clocks, wantClocks)
	}
}

func TestProfileSwitch(t *testing.T) {
	c := sim.New()
	s := newSystem(t, c)
	s.ConfigClock200_100()
	s.ConfigClock100_50()
	s.ConfigClock200_100()
	checkClean(t, c, s)
	if got := s.PllClock(); got != 200000000 {
		t.Errorf("PllClock got: %d, want: %d", got, 200000000)
	}
}

func TestWithoutLockSignal(t *testing.T) {
	c := sim.New()
	c.NoLockSignal = true
	s := newSystem(t, c, tc23x.WithoutLockSignal())
	s.ConfigClock200_100()
	checkClean(t, c, s)
	if got := s.CpuClock(); got != 200000000 {
		t.Errorf("CpuClock got: %d, want: %d", got, 200000000)
	}
}

func TestPrescalerProfile(t *testing.T) {
	p := tc23x.Profile{
		Name:    "prescaler",
		OSCCON:  0x0007001C,
		PLLCON0: 0x01017601,
		PLLCON1: 0x00010505,
		CCUCON0: 0x12120118,
		CCUCON1: 0x10012242,
		CCUCON2: 0x00000002,
		FinalK:  5,
	}
	if err := p.Validate(tc23x.EXTCLK); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	c := sim.New()
	c.NoLockSignal = true // a lock wait would hang
	s := newSystem(t, c)
	s.ConfigurePLL(p)
	checkClean(t, c, s)
	if got, want := s.PllClock(), p.Target(tc23x.EXTCLK); got != want || got != 10000000 {
		t.Errorf("PllClock got: %d, want: %d", got, want)
	}
}

func TestPollLimit(t *testing.T) {
	c := sim.New()
	c.NoLockSignal = true
	var waited string
	s := tc23x.New(c,
		tc23x.WithLogger(log.New(io.Discard, "", 0)),
		tc23x.WithPollLimit(1000, func(what string) {
			waited = what
			panic(what)
		}))
	func() {
		defer func() { recover() }()
		s.ConfigClock200_100()
	}()
	if waited != "PLL VCO lock" {
		t.Errorf("trap got: %q, want: %q", waited, "PLL VCO lock")
	}
	if !s.Protected(tc23x.SecurityWatchdog) {
		t.Errorf("safety ENDINIT left open")
	}
	// mu must have been released
	s.Delay(10)
}

func TestReadbackDuringRamp(t *testing.T) {
	c := sim.New()
	s := newSystem(t, c)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.ConfigClock200_100()
	}()
	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
			if f := s.PllClock(); f > 200000000 {
				t.Errorf("PllClock got: %d during ramp", f)
			}
		}
	}
	checkClean(t, c, s)
}

func TestDelay(t *testing.T) {
	c := sim.New()
	s := newSystem(t, c)
	before := c.Ticks()
	s.Delay(100)
	// 100 MHz back-up clock, STMDIV 1
	if elapsed := c.Ticks() - before; elapsed < 10000 || elapsed > 10000+2*uint64(c.TickStep) {
		t.Errorf("ticks elapsed got: %d, want: about 10000", elapsed)
	}
	s.Delay(0)
	if got := len(c.Writes(tc23x.STM0_CMP0)); got != 1 {
		t.Errorf("CMP0 writes got: %d, want: 1", got)
	}
}

func TestZeroDividers(t *testing.T) {
	c := sim.New()
	s := newSystem(t, c)
	// PLL selected, SRIDIV, SPBDIV, STMDIV and CANDIV all 0
	c.Raw().Write32(tc23x.SCU_CCUCON0, tc23x.CCUCON0_CLKSEL.Put(0, 1))
	c.Raw().Write32(tc23x.SCU_CCUCON1, 0)

	tests := []struct {
		name  string
		clock func() uint32
	}{
		{"CpuClock", s.CpuClock},
		{"SysClock", s.SysClock},
		{"StmClock", s.StmClock},
		{"CanClock", s.CanClock},
	}
	for _, test := range tests {
		if got := test.clock(); got != 0 {
			t.Errorf("%s got: %d, want: 0", test.name, got)
		}
	}
	if got := s.PllClock(); got != 10000000 {
		t.Errorf("PllClock got: %d, want: %d", got, 10000000)
	}

	before := c.Ticks()
	s.Delay(100)
	if got := len(c.Writes(tc23x.STM0_CMP0)); got != 0 {
		t.Errorf("CMP0 writes got: %d, want: 0", got)
	}
	if got := c.Ticks(); got != before {
		t.Errorf("ticks got: %d, want: %d", got, before)
	}
}

func TestReset(t *testing.T) {
	c := sim.New()
	s := newSystem(t, c, tc23x.WithHalt(runtime.Goexit))
	s.ConfigClock200_100()
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Reset()
		t.Errorf("Reset returned")
	}()
	<-done
	if got := c.Resets(); got != 1 {
		t.Errorf("resets got: %d, want: 1", got)
	}
	if got := c.Read32(tc23x.SCU_PLLCON1); got != 0x00010000 {
		t.Errorf("PLLCON1 after reset got: %08X, want: %08X", got, 0x00010000)
	}
	if len(c.Violations()) != 0 {
		t.Errorf("unexpected violations: %v", c.Violations())
	}
}

type countingDisabler struct {
	calls int
	err   error
}

func (d *countingDisabler) DisableWatchdog() error {
	d.calls++
	return d.err
}

func TestInit(t *testing.T) {
	d := &countingDisabler{err: errors.New("no answer")}
	s := newSystem(t, sim.New(), tc23x.WithWatchdogDisabler(d))
	for i := 0; i < 3; i++ {
		if err := s.Init(); err != d.err {
			t.Errorf("Init got: %v, want: %v", err, d.err)
		}
	}
	if d.calls != 1 {
		t.Errorf("DisableWatchdog calls got: %d, want: 1", d.calls)
	}
	if err := newSystem(t, sim.New()).Init(); err != nil {
		t.Errorf("Init without disabler got: %v", err)
	}
}
