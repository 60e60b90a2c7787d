package sim

import (
	"testing"

	"github.com/delphi123/TC234-Test/tc23x"
)

// openEndinit runs the password and modify accesses by hand.
func openEndinit(c *Chip, addr uint32) {
	con0 := c.Read32(addr)
	pw := tc23x.WDTCON0_PW.Get(con0) ^ tc23x.WDT_PASSWORD_INVERT
	con0 = tc23x.WDTCON0_PW.Put(con0, pw)
	c.Write32(addr, tc23x.WDTCON0_ENDINIT.Put(tc23x.WDTCON0_LCK.Put(con0, 0), 1))
	c.Write32(addr, tc23x.WDTCON0_ENDINIT.Put(tc23x.WDTCON0_LCK.Put(con0, 1), 0))
}

func TestWatchdogAccess(t *testing.T) {
	c := New()
	con0 := c.Read32(tc23x.SCU_WDTSCON0)
	if got := tc23x.WDTCON0_PW.Get(con0); got != 0x003C^0x003F {
		t.Errorf("PW readback got: %04X, want: %04X", got, 0x003C^0x003F)
	}
	// the inverted bits as read are not the password
	c.Write32(tc23x.SCU_WDTSCON0, tc23x.WDTCON0_LCK.Put(con0, 0))
	if len(c.Violations()) != 1 {
		t.Errorf("wrong password accepted")
	}
	openEndinit(c, tc23x.SCU_WDTSCON0)
	if c.Endinit(tc23x.SCU_WDTSCON0) {
		t.Errorf("ENDINIT still set after password and modify access")
	}
	if !c.Endinit(tc23x.SCU_WDTCPU0CON0) {
		t.Errorf("CPU0 ENDINIT cleared by safety watchdog access")
	}
	if len(c.Violations()) != 1 {
		t.Errorf("unexpected violations: %v", c.Violations())
	}
}

func TestProtectedWrite(t *testing.T) {
	c := New()
	c.Write32(tc23x.SCU_OSCCON, 0x1C)
	c.Write32(tc23x.CPU_PCON0, 0)
	if got := c.Read32(tc23x.SCU_OSCCON); got != 0 {
		t.Errorf("OSCCON got: %08X with ENDINIT set, want: 0", got)
	}
	if got := len(c.Violations()); got != 2 {
		t.Errorf("violations got: %d, want: 2", got)
	}
	openEndinit(c, tc23x.SCU_WDTCPU0CON0)
	c.Write32(tc23x.CPU_PCON0, 0)
	if got := c.Read32(tc23x.CPU_PCON0); got != 0 {
		t.Errorf("PCON0 got: %08X, want: 0", got)
	}
}

func TestCCUCONLock(t *testing.T) {
	c := New()
	c.UpdateDelay = 2
	openEndinit(c, tc23x.SCU_WDTSCON0)
	c.Write32(tc23x.SCU_CCUCON1, tc23x.CCUCON_UP.Put(0x0202, 1))
	for i := 0; i < 2; i++ {
		if tc23x.CCUCON_LCK.Get(c.Read32(tc23x.SCU_CCUCON1)) == 0 {
			t.Errorf("LCK clear after %d reads", i)
		}
	}
	if got := c.Read32(tc23x.SCU_CCUCON1); got != 0x0202 {
		t.Errorf("CCUCON1 got: %08X, want: %08X", got, 0x0202)
	}
	if len(c.Violations()) != 0 {
		t.Errorf("unexpected violations: %v", c.Violations())
	}
}

func TestCompareMatch(t *testing.T) {
	c := New()
	c.TickStep = 10
	now := c.Read32(tc23x.STM0_TIM0)
	c.Write32(tc23x.STM0_CMP0, now+35)
	c.Write32(tc23x.STM0_CMCON, 31)
	c.Write32(tc23x.STM0_ISCR, 1)
	c.Write32(tc23x.STM0_ICR, 1)
	reads := 0
	for tc23x.STM_ICR_CMP0IR.Get(c.Read32(tc23x.STM0_ICR)) == 0 {
		reads++
		if reads > 10 {
			t.Fatalf("no compare match after %d reads", reads)
		}
	}
	if reads != 3 {
		t.Errorf("reads before match got: %d, want: 3", reads)
	}
	c.Write32(tc23x.STM0_ISCR, 1)
	if tc23x.STM_ICR_CMP0IR.Get(c.Read32(tc23x.STM0_ICR)) != 0 {
		t.Errorf("CMP0IR not cleared by CMP0IRR")
	}
}

func TestSoftwareReset(t *testing.T) {
	c := New()
	openEndinit(c, tc23x.SCU_WDTSCON0)
	c.Write32(tc23x.SCU_OSCCON, 0x1C)
	c.Write32(tc23x.SCU_SWRSTCON, tc23x.SWRSTCON_SWRSTREQ.Mask())
	if c.Resets() != 1 {
		t.Errorf("resets got: %d, want: 1", c.Resets())
	}
	if got := c.Read32(tc23x.SCU_OSCCON); got != 0 {
		t.Errorf("OSCCON after reset got: %08X, want: 0", got)
	}
	if !c.Endinit(tc23x.SCU_WDTSCON0) {
		t.Errorf("ENDINIT clear after reset")
	}
}

func TestRaw(t *testing.T) {
	c := New()
	c.Raw().Write32(tc23x.SCU_PLLCON1, 0x00020303)
	if got := c.Read32(tc23x.SCU_PLLCON1); got != 0x00020303 {
		t.Errorf("PLLCON1 got: %08X, want: %08X", got, 0x00020303)
	}
	if len(c.Violations()) != 0 || len(c.Writes(0)) != 0 {
		t.Errorf("raw write was seen by the bus")
	}
}
