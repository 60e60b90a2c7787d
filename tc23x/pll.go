package tc23x

import (
	"github.com/delphi123/TC234-Test/regs"
)

// ConfigurePLL takes the clock system from whatever state it is in to p,
// stepping the K2/K3 dividers down one at a time so the frequency never jumps
// by more than one step.
//
// On return K2 equals p.FinalK and the PLL is either locked or in the
// prescaler mode p asks for. If the hardware never raises a flag that is
// polled for, ConfigurePLL doesn't return (see WithPollLimit).
func (s *System) ConfigurePLL(p Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Printf("Configuring PLL for profile %s", p.Name)
	s.protected(&s.safetyWdt, func() {
		s.scu.osccon.Set(p.OSCCON)

		s.setCCUCON(s.scu.ccucon1, "CCUCON1", p.CCUCON1)
		s.setCCUCON(s.scu.ccucon2, "CCUCON2", p.CCUCON2)

		// Keep this order: with the detector disabled, the K dividers go
		// first, then P/N are written with bypass still set, then the
		// detector is re-enabled. Anything else can trip the frequency
		// detector on a half written configuration.
		pllcon0 := s.scu.pllcon0.Get()
		pllcon0 = PLLCON0_VCOBYP.Put(pllcon0, 1)
		pllcon0 = PLLCON0_SETFINDIS.Put(pllcon0, 1)
		s.scu.pllcon0.Set(pllcon0)
		s.scu.pllcon1.Set(p.PLLCON1) // set Kn divider
		pllcon0 = PLLCON0_VCOBYP.Put(p.PLLCON0, 1)
		pllcon0 = PLLCON0_CLRFINDIS.Put(pllcon0, 1)
		s.scu.pllcon0.Set(pllcon0) // set P,N divider

		s.setCCUCON(s.scu.ccucon0, "CCUCON0", p.CCUCON0)
	})

	if !p.Prescaler() {
		if !s.noLock {
			s.spin("PLL VCO lock", func() bool {
				return s.scu.pllstat.HasBits(PLLSTAT_VCOLOCK.Mask())
			})
			s.log.Printf("PLL locked")
		}
		s.protected(&s.safetyWdt, func() {
			s.scu.pllcon0.ClearBits(PLLCON0_VCOBYP.Mask()) // disable VCO bypass
		})
	}

	s.rampK(p.FinalK)
	s.log.Printf("PLL at %d Hz, CPU at %d Hz", s.PllClock(), s.CpuClock())
}

// setCCUCON writes a CCU control word once a pending update has been taken
// over by the hardware, and requests an immediate update.
func (s *System) setCCUCON(r regs.Reg32, name string, val uint32) {
	s.spin(name+" update lock", func() bool {
		return !r.HasBits(CCUCON_LCK.Mask())
	})
	r.Set(CCUCON_UP.Put(val, 1))
}

// rampK walks K2/K3 down to finalK. Each iteration is one minimal frequency
// step: wait for K2RDY, write both dividers in one word, let it settle.
func (s *System) rampK(finalK uint32) {
	k := s.scu.pllcon1.Field(PLLCON1_K2DIV)
	s.log.Printf("Stepping K2 from %d to %d", k, finalK)
	s.wait(100)
	for k > finalK {
		k--
		pllcon1 := s.scu.pllcon1.Get()
		// K2 and K3 run in lockstep: they have to change in the same write.
		pllcon1 = PLLCON1_K2DIV.Put(pllcon1, k)
		pllcon1 = PLLCON1_K3DIV.Put(pllcon1, k)
		s.spin("PLL K2 ready", func() bool {
			return s.scu.pllstat.HasBits(PLLSTAT_K2RDY.Mask())
		})
		s.protected(&s.safetyWdt, func() {
			s.scu.pllcon1.Set(pllcon1)
		})
		s.wait(100)
	}
}

// ConfigClock200_100 ramps to fCPU 200 MHz / fSPB 100 MHz.
func (s *System) ConfigClock200_100() {
	s.ConfigurePLL(Profile200_100)
}

// ConfigClock100_50 ramps to fCPU 100 MHz / fSPB 50 MHz.
func (s *System) ConfigClock100_50() {
	s.ConfigurePLL(Profile100_50)
}
