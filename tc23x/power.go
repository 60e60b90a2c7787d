package tc23x

// Idle requests CPU idle mode.
func (s *System) Idle() {
	s.requestSleep(PMCSR_REQSLP_IDLE)
}

// Sleep requests system sleep mode.
func (s *System) Sleep() {
	s.requestSleep(PMCSR_REQSLP_SLEEP)
}

func (s *System) requestSleep(mode uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.protected(&s.cpuWdt, func() {
		s.scu.pmcsr0.Set(PMCSR_REQSLP.Put(0, mode))
	})
}

// IsCacheEnabled reports whether the program cache is in use: not bypassed
// and of non-zero size.
func (s *System) IsCacheEnabled() bool {
	if s.csfr.pcon0.Field(PCON0_PCBYP) != 0 {
		return false // Cache is in bypass mode
	}
	if s.csfr.pcon2.Field(PCON2_PCACHE_SZE) == 0 {
		return false // Cache size is 0
	}
	return true
}

// SetCache enables or bypasses program and data caches and returns whether the
// program cache is active afterwards.
func (s *System) SetCache(enable bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.protected(&s.cpuWdt, func() {
		if enable {
			s.csfr.pcon0.Set(0)
			s.csfr.dcon0.Set(0)
		} else {
			s.csfr.pcon0.Set(PCON0_PCBYP.Mask())
			s.csfr.pcon1.Set(3) // invalidate program cache and buffer
			s.csfr.dcon0.Set(DCON0_DCBYP.Mask())
		}
	})
	return s.IsCacheEnabled()
}

// Reset requests an application reset and never returns. ENDINIT stays open
// and mu stays held: nothing may run against the chip past this point.
func (s *System) Reset() {
	s.mu.Lock()
	s.log.Printf("Requesting software reset")
	s.unlock(&s.safetyWdt)
	s.scu.swrstcon.SetBits(SWRSTCON_SWRSTREQ.Mask())
	for {
		s.halt()
	}
}
