package tc23x

// Clock readback. These are plain reads of live register state, safe to call
// at any time, also while a ramp is running on another goroutine. A divider
// field of 0 means "not configured" and makes the clock read as 0.

// PllClock returns fPLL in Hz.
func (s *System) PllClock() uint32 {
	pllstat := s.scu.pllstat.Get()
	pllcon0 := s.scu.pllcon0.Get()
	pllcon1 := s.scu.pllcon1.Get()
	return pllFrequency(s.osc, pllstat, pllcon0, pllcon1)
}

func pllFrequency(osc uint32, pllstat uint32, pllcon0 uint32, pllcon1 uint32) uint32 {
	frequency := uint64(osc) // fOSC
	if PLLSTAT_VCOBYST.Get(pllstat) == 0 {
		if PLLSTAT_FINDIS.Get(pllstat) == 0 {
			// normal mode
			frequency *= uint64(PLLCON0_NDIV.Get(pllcon0) + 1) // fOSC*N
			frequency /= uint64(PLLCON0_PDIV.Get(pllcon0) + 1) // .../P
			frequency /= uint64(PLLCON1_K2DIV.Get(pllcon1) + 1) // .../K2
		} else {
			// freerunning mode
			frequency = VCOBASE
			frequency /= uint64(PLLCON1_K2DIV.Get(pllcon1) + 1) // .../K2
		}
	} else {
		// prescaler mode
		frequency /= uint64(PLLCON1_K1DIV.Get(pllcon1) + 1) // fOSC/K1
	}
	return uint32(frequency)
}

// IntClock returns the clock selected by CCUCON0.CLKSEL as source of the CCU.
func (s *System) IntClock() uint32 {
	switch s.scu.ccucon0.Field(CCUCON0_CLKSEL) {
	case 1:
		return s.PllClock()
	default:
		return BACKUPCLK
	}
}

// CpuClock returns fCPU0 = fSRI scaled by the CPU0 divider.
func (s *System) CpuClock() uint32 {
	frequency := uint64(s.IntClock())
	divider := s.scu.ccucon0.Field(CCUCON0_SRIDIV)
	cpudiv := s.scu.ccucon6.Field(CCUCON6_CPU0DIV)
	if divider == 0 {
		return 0
	}
	frequency /= uint64(divider)
	if cpudiv != 0 {
		frequency *= uint64(64 - cpudiv)
		frequency /= 64
	}
	return uint32(frequency)
}

func (s *System) divided(divider uint32) uint32 {
	if divider == 0 {
		return 0
	}
	return s.IntClock() / divider
}

// SysClock returns fSPB, the peripheral bus clock.
func (s *System) SysClock() uint32 {
	return s.divided(s.scu.ccucon0.Field(CCUCON0_SPBDIV))
}

// StmClock returns fSTM.
func (s *System) StmClock() uint32 {
	return s.divided(s.scu.ccucon1.Field(CCUCON1_STMDIV))
}

// CanClock returns fCAN.
func (s *System) CanClock() uint32 {
	return s.divided(s.scu.ccucon1.Field(CCUCON1_CANDIV))
}

// Clocks is a snapshot of all readbacks.
type Clocks struct {
	PLL uint32
	CPU uint32
	SPB uint32
	STM uint32
	CAN uint32
}

func (s *System) Clocks() Clocks {
	return Clocks{
		PLL: s.PllClock(),
		CPU: s.CpuClock(),
		SPB: s.SysClock(),
		STM: s.StmClock(),
		CAN: s.CanClock(),
	}
}
