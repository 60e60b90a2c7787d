// Package board describes how a TC23x is reached from the host: which memory
// device its register windows are mapped from, the oscillator on the board and
// any extra clock profiles.
package board

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"github.com/delphi123/TC234-Test/regs"
	"github.com/delphi123/TC234-Test/tc23x"
)

//go:embed appkit.yaml
var rawDefault []byte

type Profile struct {
	Name    string `yaml:"name"`
	OSCCON  uint32 `yaml:"osccon"`
	PLLCON0 uint32 `yaml:"pllcon0"`
	PLLCON1 uint32 `yaml:"pllcon1"`
	CCUCON0 uint32 `yaml:"ccucon0"`
	CCUCON1 uint32 `yaml:"ccucon1"`
	CCUCON2 uint32 `yaml:"ccucon2"`
	FinalK  uint32 `yaml:"finalK"`
}

type Config struct {
	Device       string    `yaml:"device"`
	Oscillator   uint32    `yaml:"oscillator"`
	SCU          uint32    `yaml:"scu"`
	STM          uint32    `yaml:"stm"`
	CSFR         uint32    `yaml:"csfr"`
	NoLockSignal bool      `yaml:"noLockSignal"`
	PollLimit    int       `yaml:"pollLimit"`
	SPIDev       string    `yaml:"spidev"`
	SPISpeed     uint32    `yaml:"spiSpeed"`
	Profiles     []Profile `yaml:"profiles"`
}

// Default returns the application kit configuration.
func Default() Config {
	var c Config
	if err := yaml.Unmarshal(rawDefault, &c); err != nil {
		panic(err)
	}
	return c
}

// LoadConfig reads the YAML file at path over Default. An empty path gives
// Default.
func LoadConfig(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("couldn't read board config: %v", err)
	}
	err = yaml.Unmarshal(data, &c)
	if err != nil {
		return c, fmt.Errorf("couldn't parse board config %s: %v", path, err)
	}
	return c, nil
}

// ProfileSet returns the built-in profiles plus the configured ones, each
// validated against the configured oscillator.
func (c Config) ProfileSet() (tc23x.ProfileSet, error) {
	ps := tc23x.DefaultProfiles()
	var seen []string
	for _, p := range c.Profiles {
		if slices.Contains(seen, p.Name) {
			return nil, fmt.Errorf("%w: %s defined twice", tc23x.ErrBadProfile, p.Name)
		}
		seen = append(seen, p.Name)
		err := ps.Add(tc23x.Profile(p), c.Oscillator)
		if err != nil {
			return nil, err
		}
	}
	return ps, nil
}

// Options returns the System options the configuration asks for.
func (c Config) Options() []tc23x.Option {
	opts := []tc23x.Option{tc23x.WithOscillator(c.Oscillator)}
	if c.NoLockSignal {
		opts = append(opts, tc23x.WithoutLockSignal())
	}
	if c.PollLimit > 0 {
		opts = append(opts, tc23x.WithPollLimit(c.PollLimit, nil))
	}
	return opts
}

// Board is the SCU, STM0 and CPU0 CSFR windows of a chip, decoded at their
// TC23x bus addresses.
type Board struct {
	regs.Bus
	windows []*regs.Window
}

// Open maps the register windows c describes.
func Open(c Config) (*Board, error) {
	b := &Board{}
	phys := []uint32{c.SCU, c.STM, c.CSFR}
	for i, win := range tc23x.Windows {
		w, err := regs.MapWindow(c.Device, uintptr(phys[i]), win.Size)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.windows = append(b.windows, w)
		err = b.Attach(win.Base, win.Size, w)
		if err != nil {
			b.Close()
			return nil, err
		}
	}
	return b, nil
}

func (b *Board) Close() error {
	var first error
	for _, w := range b.windows {
		if err := w.Close(); err != nil && first == nil {
			first = err
		}
	}
	b.windows = nil
	return first
}

var _ io.Closer = (*Board)(nil)
