package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/delphi123/TC234-Test/board"
	"github.com/delphi123/TC234-Test/regs"
	"github.com/delphi123/TC234-Test/tc23x"
	"github.com/delphi123/TC234-Test/tlf"
)

var (
	profileOpts = struct {
		wdtoff bool
		spidev string
	}{}
	dumpOpts = struct {
		output string
		csfr   bool
	}{}

	profilesCmd = &cobra.Command{
		Use:   "profiles",
		Short: "List the clock profiles",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := board.LoadConfig(rootOpts.config)
			if err != nil {
				log.Fatalf("Failed loading config: %v", err)
			}
			ps, err := cfg.ProfileSet()
			if err != nil {
				log.Fatalf("Failed loading profiles: %v", err)
			}
			for _, name := range ps.Names() {
				p := ps[name]
				mode := fmt.Sprintf("VCO %d Hz", p.VCO(cfg.Oscillator))
				if p.Prescaler() {
					mode = "prescaler"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s PLL %d Hz, %s\n", name, p.Target(cfg.Oscillator), mode)
			}
		},
	}

	profileCmd = &cobra.Command{
		Use:   "profile <name>",
		Short: "Ramp the PLL to a clock profile",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			var opts []tc23x.Option
			if profileOpts.wdtoff {
				spi := openSPI(profileOpts.spidev)
				defer spi.Close()
				opts = append(opts, tc23x.WithWatchdogDisabler(tlf.NewDisabler(spi, log.Default())))
			}
			s := openSession(opts...)
			defer s.Close()
			p, err := s.profiles.Lookup(args[0])
			if err != nil {
				log.Fatalf("Failed selecting profile: %v", err)
			}
			err = s.sys.Init()
			if err != nil {
				log.Fatalf("Failed init: %v", err)
			}
			s.sys.ConfigurePLL(p)
			printClocks(cmd.OutOrStdout(), s.sys.Clocks())
		},
	}

	clocksCmd = &cobra.Command{
		Use:   "clocks",
		Short: "Show the current clock frequencies",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			s := openSession()
			defer s.Close()
			printClocks(cmd.OutOrStdout(), s.sys.Clocks())
		},
	}

	dumpCmd = &cobra.Command{
		Use:   "dump",
		Short: "Write the SCU and STM0 registers as an Intel HEX image",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			s := openSession()
			defer s.Close()
			w := cmd.OutOrStdout()
			if dumpOpts.output != "" && dumpOpts.output != "-" {
				f, err := os.Create(dumpOpts.output)
				if err != nil {
					log.Fatalf("Failed creating %s: %v", dumpOpts.output, err)
				}
				defer f.Close()
				w = f
			}
			windows := tc23x.Windows[:2]
			if dumpOpts.csfr {
				windows = tc23x.Windows
			}
			err := regs.Dump(w, s.snapshot(), windows...)
			if err != nil {
				log.Fatalf("Failed dumping registers: %v", err)
			}
		},
	}

	wdtoffCmd = &cobra.Command{
		Use:   "wdtoff",
		Short: "Disable the TLF35584 watchdogs",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			spi := openSPI(profileOpts.spidev)
			defer spi.Close()
			err := tlf.NewDisabler(spi, log.Default()).DisableWatchdog()
			if err != nil {
				log.Fatalf("Failed disabling external watchdog: %v", err)
			}
		},
	}
)

func init() {
	profileCmd.Flags().BoolVar(&profileOpts.wdtoff, "wdtoff", false, "disable the TLF35584 watchdogs first")
	for _, c := range []*cobra.Command{profileCmd, wdtoffCmd} {
		c.Flags().StringVar(&profileOpts.spidev, "spidev", "", "spidev node the TLF35584 is on (default from config)")
	}
	dumpCmd.Flags().StringVarP(&dumpOpts.output, "output", "o", "-", "output file")
	dumpCmd.Flags().BoolVar(&dumpOpts.csfr, "csfr", false, "include the CPU0 CSFR window")
	rootCmd.AddCommand(profilesCmd, profileCmd, clocksCmd, dumpCmd, wdtoffCmd)
}

// openSPI opens the TLF35584 spidev node, dev or the configured one.
func openSPI(dev string) *tlf.SPIDev {
	cfg, err := board.LoadConfig(rootOpts.config)
	if err != nil {
		log.Fatalf("Failed loading config: %v", err)
	}
	if dev == "" {
		dev = cfg.SPIDev
	}
	spi, err := tlf.OpenSPIDev(dev, cfg.SPISpeed)
	if err != nil {
		log.Fatalf("Failed opening SPI: %v", err)
	}
	return spi
}

func printClocks(w io.Writer, c tc23x.Clocks) {
	fmt.Fprintf(w, "PLL %d Hz\nCPU %d Hz\nSPB %d Hz\nSTM %d Hz\nCAN %d Hz\n", c.PLL, c.CPU, c.SPB, c.STM, c.CAN)
}
