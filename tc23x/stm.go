package tc23x

// STM time scaling. fSTM*us overflows 32 bits from 43 MHz on for a 100 us
// wait, so fSTM is scaled down before multiplying.
const (
	TIME_SCALE_DN = 100
	TIME_SCALE_UP = 1000000 / TIME_SCALE_DN
)

// waitTicks returns the number of STM ticks in us microseconds at fSTM Hz.
func waitTicks(fSTM uint32, us uint32) uint32 {
	return (fSTM / TIME_SCALE_DN) * us / TIME_SCALE_UP
}

// wait busy-waits us microseconds on STM0 compare match 0. fSTM is read live
// on every call, it changes while the PLL ramps.
func (s *System) wait(us uint32) {
	count := waitTicks(s.StmClock(), us)
	if count == 0 {
		// The compare would only match after a full wrap of TIM0.
		return
	}

	s.stm.cmp0.Set(s.stm.tim0.Get() + count)
	s.stm.cmcon.SetField(STM_CMCON_MSIZE0, 31)
	// Keep this order, otherwise the first match triggers too soon:
	// reset the request flag, then enable the compare.
	s.stm.iscr.SetBits(STM_ISCR_CMP0IRR.Mask())
	s.stm.icr.SetBits(STM_ICR_CMP0EN.Mask())
	s.spin("STM compare match", func() bool {
		return s.stm.icr.HasBits(STM_ICR_CMP0IR.Mask())
	})
	s.stm.icr.ClearBits(STM_ICR_CMP0EN.Mask())
}

// Delay busy-waits us microseconds. It can't be cancelled.
func (s *System) Delay(us uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wait(us)
}
