package tc23x_test

import (
	"testing"

	"github.com/delphi123/TC234-Test/sim"
	"github.com/delphi123/TC234-Test/tc23x"
)

func TestIdleSleep(t *testing.T) {
	c := sim.New()
	s := newSystem(t, c)
	s.Idle()
	if got := c.Read32(tc23x.SCU_PMCSR0); got != tc23x.PMCSR_REQSLP_IDLE {
		t.Errorf("PMCSR0 after Idle got: %08X, want: %08X", got, tc23x.PMCSR_REQSLP_IDLE)
	}
	s.Sleep()
	if got := c.Read32(tc23x.SCU_PMCSR0); got != tc23x.PMCSR_REQSLP_SLEEP {
		t.Errorf("PMCSR0 after Sleep got: %08X, want: %08X", got, tc23x.PMCSR_REQSLP_SLEEP)
	}
	checkClean(t, c, s)
}

func TestCache(t *testing.T) {
	c := sim.New()
	s := newSystem(t, c)
	if s.IsCacheEnabled() {
		t.Errorf("cache enabled out of reset")
	}
	if !s.SetCache(true) {
		t.Errorf("SetCache(true) got: false")
	}
	if got := c.Read32(tc23x.CPU_DCON0); got != 0 {
		t.Errorf("DCON0 got: %08X, want: 0", got)
	}
	if s.SetCache(false) {
		t.Errorf("SetCache(false) got: true")
	}
	tests := []struct {
		addr uint32
		want uint32
	}{
		{tc23x.CPU_PCON0, 0x00000002},
		{tc23x.CPU_PCON1, 0x00000003},
		{tc23x.CPU_DCON0, 0x00000002},
	}
	for _, test := range tests {
		if got := c.Read32(test.addr); got != test.want {
			t.Errorf("%08X got: %08X, want: %08X", test.addr, got, test.want)
		}
	}
	checkClean(t, c, s)

	// no program cache fitted
	c.Raw().Write32(tc23x.CPU_PCON2, 0)
	if s.SetCache(true) {
		t.Errorf("SetCache(true) with size 0 got: true")
	}
}

func TestProtection(t *testing.T) {
	tests := []struct {
		d    tc23x.ProtectionDomain
		con0 uint32
	}{
		{0, tc23x.SCU_WDTCPU0CON0},
		{1, tc23x.SCU_WDTCPU0CON0},
		{2, tc23x.SCU_WDTCPU0CON0},
		{tc23x.SecurityWatchdog, tc23x.SCU_WDTSCON0},
		{4, tc23x.SCU_WDTSCON0},
	}
	for _, test := range tests {
		c := sim.New()
		s := newSystem(t, c)
		s.DisableProtection(test.d)
		if c.Endinit(test.con0) || s.Protected(test.d) {
			t.Errorf("domain %d: ENDINIT set after DisableProtection", test.d)
		}
		s.EnableProtection(test.d)
		if !c.Endinit(test.con0) || !s.Protected(test.d) {
			t.Errorf("domain %d: ENDINIT clear after EnableProtection", test.d)
		}
		// enabling twice is harmless
		s.EnableProtection(test.d)
		checkClean(t, c, s)
	}
}

func TestSecProtection(t *testing.T) {
	c := sim.New()
	s := newSystem(t, c)
	s.DisableSecProtection()
	if !c.Endinit(tc23x.SCU_WDTCPU0CON0) {
		t.Errorf("CPU0 ENDINIT touched")
	}
	if c.Endinit(tc23x.SCU_WDTSCON0) {
		t.Errorf("safety ENDINIT still set")
	}
	s.EnableSecProtection()
	checkClean(t, c, s)
}
