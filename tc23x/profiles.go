package tc23x

import (
	"errors"
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var (
	ErrUnknownProfile = errors.New("unknown clock profile")
	ErrBadProfile     = errors.New("invalid clock profile")
)

const (
	VCO_MIN = 400000000
	VCO_MAX = 800000000
)

// Profile is the register image of a target clock configuration. PLLCON1
// holds the first K step; the ramp then walks K2/K3 down to FinalK.
type Profile struct {
	Name    string
	OSCCON  uint32
	PLLCON0 uint32
	PLLCON1 uint32 // first step K dividers
	CCUCON0 uint32
	CCUCON1 uint32
	CCUCON2 uint32
	FinalK  uint32 // final K2DIV value
}

var (
	// Profile200_100: fCPU 200 MHz, fSPB 100 MHz @ 20 MHz ext. clock
	Profile200_100 = Profile{
		Name:    "200_100",
		OSCCON:  0x0007001C,
		PLLCON0: 0x01017600,
		PLLCON1: 0x00020505,
		CCUCON0: 0x12120118,
		CCUCON1: 0x10012242,
		CCUCON2: 0x00000002,
		FinalK:  2,
	}
	// Profile100_50: fCPU 100 MHz, fSPB 50 MHz @ 20 MHz ext. clock
	Profile100_50 = Profile{
		Name:    "100_50",
		OSCCON:  0x0007001C,
		PLLCON0: 0x01018A00,
		PLLCON1: 0x00020606,
		CCUCON0: 0x12120118,
		CCUCON1: 0x10012241,
		CCUCON2: 0x00000002,
		FinalK:  6,
	}
)

// Prescaler reports whether the profile keeps the PLL in prescaler mode.
func (p Profile) Prescaler() bool {
	return PLLCON0_VCOBYP.Get(p.PLLCON0) != 0
}

// VCO returns the VCO frequency the profile sets up at osc Hz.
func (p Profile) VCO(osc uint32) uint64 {
	return uint64(osc) * uint64(PLLCON0_NDIV.Get(p.PLLCON0)+1) / uint64(PLLCON0_PDIV.Get(p.PLLCON0)+1)
}

// Target returns fPLL once the ramp has finished.
func (p Profile) Target(osc uint32) uint32 {
	if p.Prescaler() {
		return osc / (PLLCON1_K1DIV.Get(p.PLLCON1) + 1)
	}
	return uint32(p.VCO(osc) / uint64(p.FinalK+1))
}

// Validate checks that the ramp can run p at osc Hz.
func (p Profile) Validate(osc uint32) error {
	k2 := PLLCON1_K2DIV.Get(p.PLLCON1)
	k3 := PLLCON1_K3DIV.Get(p.PLLCON1)
	if k2 != k3 {
		return fmt.Errorf("%w %s: K2 %d and K3 %d differ", ErrBadProfile, p.Name, k2, k3)
	}
	if p.FinalK > k2 {
		return fmt.Errorf("%w %s: final K %d above first step %d", ErrBadProfile, p.Name, p.FinalK, k2)
	}
	if p.Prescaler() {
		return nil
	}
	if vco := p.VCO(osc); vco < VCO_MIN || vco > VCO_MAX {
		return fmt.Errorf("%w %s: VCO %d Hz outside %d..%d", ErrBadProfile, p.Name, vco, VCO_MIN, VCO_MAX)
	}
	return nil
}

// ProfileSet is a set of named profiles.
type ProfileSet map[string]Profile

// DefaultProfiles returns the compiled-in profiles.
func DefaultProfiles() ProfileSet {
	return ProfileSet{
		Profile200_100.Name: Profile200_100,
		Profile100_50.Name:  Profile100_50,
	}
}

// Add validates p at osc Hz and adds it under p.Name.
func (ps ProfileSet) Add(p Profile, osc uint32) error {
	if p.Name == "" {
		return fmt.Errorf("%w: no name", ErrBadProfile)
	}
	err := p.Validate(osc)
	if err != nil {
		return err
	}
	ps[p.Name] = p
	return nil
}

func (ps ProfileSet) Lookup(name string) (Profile, error) {
	p, ok := ps[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w %q, have %v", ErrUnknownProfile, name, ps.Names())
	}
	return p, nil
}

// Names returns the profile names, sorted.
func (ps ProfileSet) Names() []string {
	names := maps.Keys(ps)
	slices.Sort(names)
	return names
}
