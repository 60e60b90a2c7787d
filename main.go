package main

import (
	"io"
	"log"
	"os"

	colorable "github.com/mattn/go-colorable"
	"github.com/spf13/cobra"

	"github.com/delphi123/TC234-Test/board"
	"github.com/delphi123/TC234-Test/regs"
	"github.com/delphi123/TC234-Test/sim"
	"github.com/delphi123/TC234-Test/tc23x"
)

var (
	rootOpts = struct {
		config   string
		sim      bool
		simImage string
		verbose  bool
	}{}

	rootCmd = &cobra.Command{
		Use:   "tcclk",
		Short: "Bring up and inspect the clock system of a TC23x",
		Long: `tcclk drives the SCU of an AURIX TC23x through its memory mapped registers:
PLL ramp to a clock profile, clock readback, ENDINIT protection, idle/sleep
requests, cache control and software reset. With --sim everything runs
against a simulated chip instead.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetOutput(colorable.NewColorableStderr())
			log.SetFlags(log.Ltime | log.Lmicroseconds)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootOpts.config, "config", "c", "", "board configuration file (YAML)")
	rootCmd.PersistentFlags().BoolVar(&rootOpts.sim, "sim", false, "run against a simulated chip")
	rootCmd.PersistentFlags().StringVar(&rootOpts.simImage, "sim-image", "", "Intel HEX register image to start the simulated chip from")
	rootCmd.PersistentFlags().BoolVarP(&rootOpts.verbose, "verbose", "v", false, "log every step of clock operations")
}

// session is one opened chip, real or simulated.
type session struct {
	cfg      board.Config
	profiles tc23x.ProfileSet
	bank     regs.Bank
	chip     *sim.Chip // nil on hardware
	sys      *tc23x.System
	closer   io.Closer
}

func systemLogger() *log.Logger {
	if !rootOpts.verbose {
		return log.New(io.Discard, "", 0)
	}
	return log.New(colorable.NewColorableStderr(), "\x1b[36mtc23x\x1b[0m ", log.Ltime|log.Lmicroseconds)
}

func loadSimImage(chip *sim.Chip, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	n, err := regs.Load(f, chip.Raw(), tc23x.Windows...)
	if err != nil {
		return err
	}
	log.Printf("Loaded %d registers from %s", n, path)
	return nil
}

// openSession loads the board configuration and opens the chip it describes.
// Setup failures are fatal.
func openSession(opts ...tc23x.Option) *session {
	cfg, err := board.LoadConfig(rootOpts.config)
	if err != nil {
		log.Fatalf("Failed loading config: %v", err)
	}
	profiles, err := cfg.ProfileSet()
	if err != nil {
		log.Fatalf("Failed loading profiles: %v", err)
	}
	s := &session{cfg: cfg, profiles: profiles}
	if rootOpts.sim {
		chip := sim.New()
		chip.NoLockSignal = cfg.NoLockSignal
		if rootOpts.simImage != "" {
			err = loadSimImage(chip, rootOpts.simImage)
			if err != nil {
				log.Fatalf("Failed loading simulator image: %v", err)
			}
		}
		s.chip = chip
		s.bank = chip
	} else {
		b, err := board.Open(cfg)
		if err != nil {
			log.Fatalf("Failed mapping registers: %v", err)
		}
		s.bank = b
		s.closer = b
	}
	all := append(cfg.Options(), tc23x.WithLogger(systemLogger()))
	s.sys = tc23x.New(s.bank, append(all, opts...)...)
	return s
}

// snapshot returns a bank for reading the registers without side effects:
// the raw state of a simulated chip, or the hardware itself.
func (s *session) snapshot() regs.Bank {
	if s.chip != nil {
		return s.chip.Raw()
	}
	return s.bank
}

func (s *session) Close() {
	if s.chip != nil {
		for _, v := range s.chip.Violations() {
			log.Printf("Simulator: %v", v)
		}
	}
	if s.closer == nil {
		return
	}
	err := s.closer.Close()
	if err != nil {
		log.Printf("Error closing register windows: %v", err)
	}
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
