package tc23x

import (
	"github.com/delphi123/TC234-Test/regs"
)

// Register addresses and fields are from the AURIX TC23x user manual, SCU, STM
// and CPU chapters. Only what clock, protection and power control touch is
// described here.

const (
	EXTCLK    = 20 * 1000000 // external oscillator on the application kits
	BACKUPCLK = 100000000    // fBACK, typ. 100 MHz
	VCOBASE   = 800000000    // fVCOBASE in freerunning mode, to be re-checked against the datasheet

	SCU_BASE  = uint32(0xF0036000)
	SCU_SIZE  = uint32(0x400)
	STM0_BASE = uint32(0xF0000000)
	STM0_SIZE = uint32(0x100)
	CSFR_BASE = uint32(0xF8810000) // CPU0 core SFRs as seen from the bus
	CSFR_SIZE = uint32(0x10000)

	SCU_OSCCON      = SCU_BASE + 0x010
	SCU_PLLSTAT     = SCU_BASE + 0x014
	SCU_PLLCON0     = SCU_BASE + 0x018
	SCU_PLLCON1     = SCU_BASE + 0x01C
	SCU_PLLCON2     = SCU_BASE + 0x020
	SCU_CCUCON0     = SCU_BASE + 0x030
	SCU_CCUCON1     = SCU_BASE + 0x034
	SCU_CCUCON2     = SCU_BASE + 0x040
	SCU_SWRSTCON    = SCU_BASE + 0x060
	SCU_CCUCON6     = SCU_BASE + 0x080
	SCU_PMCSR0      = SCU_BASE + 0x0C8
	SCU_WDTSCON0    = SCU_BASE + 0x0F0
	SCU_WDTCPU0CON0 = SCU_BASE + 0x100

	STM0_TIM0  = STM0_BASE + 0x10
	STM0_CMP0  = STM0_BASE + 0x30
	STM0_CMCON = STM0_BASE + 0x38
	STM0_ICR   = STM0_BASE + 0x3C
	STM0_ISCR  = STM0_BASE + 0x40

	CPU_DCON0 = CSFR_BASE + 0x9040
	CPU_PCON1 = CSFR_BASE + 0x9204
	CPU_PCON2 = CSFR_BASE + 0x9208
	CPU_PCON0 = CSFR_BASE + 0x920C

	PMCSR_REQSLP_IDLE  = 1
	PMCSR_REQSLP_SLEEP = 2

	WDT_PASSWORD_INVERT = 0x003F // bits 7:2 of CON0, i.e. the low 6 bits of PW
)

// Windows are the register blocks a System touches.
var Windows = []regs.Range{
	{Base: SCU_BASE, Size: SCU_SIZE},
	{Base: STM0_BASE, Size: STM0_SIZE},
	{Base: CSFR_BASE, Size: CSFR_SIZE},
}

var (
	PLLSTAT_VCOBYST = regs.Field{Pos: 0, Width: 1}
	PLLSTAT_VCOLOCK = regs.Field{Pos: 2, Width: 1}
	PLLSTAT_FINDIS  = regs.Field{Pos: 3, Width: 1}
	PLLSTAT_K1RDY   = regs.Field{Pos: 4, Width: 1}
	PLLSTAT_K2RDY   = regs.Field{Pos: 5, Width: 1}

	PLLCON0_VCOBYP    = regs.Field{Pos: 0, Width: 1}
	PLLCON0_SETFINDIS = regs.Field{Pos: 4, Width: 1}
	PLLCON0_CLRFINDIS = regs.Field{Pos: 5, Width: 1}
	PLLCON0_NDIV      = regs.Field{Pos: 9, Width: 7}
	PLLCON0_PDIV      = regs.Field{Pos: 24, Width: 4}

	PLLCON1_K2DIV = regs.Field{Pos: 0, Width: 7}
	PLLCON1_K3DIV = regs.Field{Pos: 8, Width: 7}
	PLLCON1_K1DIV = regs.Field{Pos: 16, Width: 7}

	CCUCON0_SRIDIV = regs.Field{Pos: 8, Width: 4}
	CCUCON0_SPBDIV = regs.Field{Pos: 16, Width: 4}
	CCUCON0_CLKSEL = regs.Field{Pos: 28, Width: 2}
	CCUCON1_CANDIV = regs.Field{Pos: 0, Width: 4}
	CCUCON1_STMDIV = regs.Field{Pos: 8, Width: 4}
	CCUCON_UP      = regs.Field{Pos: 30, Width: 1} // same place in CCUCON0..2
	CCUCON_LCK     = regs.Field{Pos: 31, Width: 1}

	CCUCON6_CPU0DIV = regs.Field{Pos: 0, Width: 6}

	SWRSTCON_SWRSTREQ = regs.Field{Pos: 1, Width: 1}

	PMCSR_REQSLP = regs.Field{Pos: 0, Width: 2}

	WDTCON0_ENDINIT = regs.Field{Pos: 0, Width: 1}
	WDTCON0_LCK     = regs.Field{Pos: 1, Width: 1}
	WDTCON0_PW      = regs.Field{Pos: 2, Width: 14}
	WDTCON0_REL     = regs.Field{Pos: 16, Width: 16}

	STM_CMCON_MSIZE0 = regs.Field{Pos: 0, Width: 5}
	STM_ICR_CMP0EN   = regs.Field{Pos: 0, Width: 1}
	STM_ICR_CMP0IR   = regs.Field{Pos: 1, Width: 1}
	STM_ISCR_CMP0IRR = regs.Field{Pos: 0, Width: 1}

	PCON0_PCBYP      = regs.Field{Pos: 1, Width: 1}
	PCON2_PCACHE_SZE = regs.Field{Pos: 0, Width: 16}
	DCON0_DCBYP      = regs.Field{Pos: 1, Width: 1}
)

type scuT struct {
	osccon   regs.Reg32
	pllstat  regs.Reg32
	pllcon0  regs.Reg32
	pllcon1  regs.Reg32
	ccucon0  regs.Reg32
	ccucon1  regs.Reg32
	ccucon2  regs.Reg32
	ccucon6  regs.Reg32
	swrstcon regs.Reg32
	pmcsr0   regs.Reg32
}

type stmT struct {
	tim0  regs.Reg32
	cmp0  regs.Reg32
	cmcon regs.Reg32
	icr   regs.Reg32
	iscr  regs.Reg32
}

type csfrT struct {
	pcon0 regs.Reg32
	pcon1 regs.Reg32
	pcon2 regs.Reg32
	dcon0 regs.Reg32
}

func newSCU(b regs.Bank) scuT {
	return scuT{
		osccon:   regs.NewReg32(b, SCU_OSCCON),
		pllstat:  regs.NewReg32(b, SCU_PLLSTAT),
		pllcon0:  regs.NewReg32(b, SCU_PLLCON0),
		pllcon1:  regs.NewReg32(b, SCU_PLLCON1),
		ccucon0:  regs.NewReg32(b, SCU_CCUCON0),
		ccucon1:  regs.NewReg32(b, SCU_CCUCON1),
		ccucon2:  regs.NewReg32(b, SCU_CCUCON2),
		ccucon6:  regs.NewReg32(b, SCU_CCUCON6),
		swrstcon: regs.NewReg32(b, SCU_SWRSTCON),
		pmcsr0:   regs.NewReg32(b, SCU_PMCSR0),
	}
}

func newSTM(b regs.Bank) stmT {
	return stmT{
		tim0:  regs.NewReg32(b, STM0_TIM0),
		cmp0:  regs.NewReg32(b, STM0_CMP0),
		cmcon: regs.NewReg32(b, STM0_CMCON),
		icr:   regs.NewReg32(b, STM0_ICR),
		iscr:  regs.NewReg32(b, STM0_ISCR),
	}
}

func newCSFR(b regs.Bank) csfrT {
	return csfrT{
		pcon0: regs.NewReg32(b, CPU_PCON0),
		pcon1: regs.NewReg32(b, CPU_PCON1),
		pcon2: regs.NewReg32(b, CPU_PCON2),
		dcon0: regs.NewReg32(b, CPU_DCON0),
	}
}
