package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/delphi123/TC234-Test/tc23x"
)

var (
	idleCmd = &cobra.Command{
		Use:   "idle",
		Short: "Request CPU idle mode",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			s := openSession()
			defer s.Close()
			s.sys.Idle()
		},
	}

	sleepCmd = &cobra.Command{
		Use:   "sleep",
		Short: "Request system sleep mode",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			s := openSession()
			defer s.Close()
			s.sys.Sleep()
		},
	}

	cacheCmd = &cobra.Command{
		Use:   "cache [on|off]",
		Short: "Show or switch the CPU0 caches",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			s := openSession()
			defer s.Close()
			enabled := s.sys.IsCacheEnabled()
			if len(args) == 1 {
				on, err := parseOnOff(args[0])
				if err != nil {
					log.Fatalf("Failed parsing cache state: %v", err)
				}
				enabled = s.sys.SetCache(on)
			}
			fmt.Fprintln(cmd.OutOrStdout(), onOff(enabled))
		},
	}

	protectCmd = &cobra.Command{
		Use:   "protect <domain> [on|off]",
		Short: "Show or switch ENDINIT protection (domain 0-2: CPU0, 3: safety)",
		Args:  cobra.RangeArgs(1, 2),
		Run: func(cmd *cobra.Command, args []string) {
			d, err := parseDomain(args[0])
			if err != nil {
				log.Fatalf("Failed parsing domain: %v", err)
			}
			s := openSession()
			defer s.Close()
			if len(args) == 2 {
				on, err := parseOnOff(args[1])
				if err != nil {
					log.Fatalf("Failed parsing protection state: %v", err)
				}
				if on {
					s.sys.EnableProtection(d)
				} else {
					s.sys.DisableProtection(d)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), onOff(s.sys.Protected(d)))
		},
	}

	resetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Request an application reset",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			// Reset doesn't return; the process ends with it.
			s := openSession(tc23x.WithHalt(func() {
				log.Printf("Reset requested")
				os.Exit(0)
			}))
			s.sys.Reset()
		},
	}
)

func init() {
	rootCmd.AddCommand(idleCmd, sleepCmd, cacheCmd, protectCmd, resetCmd)
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToUpper(s) {
	case "ON", "1":
		return true, nil
	case "OFF", "0":
		return false, nil
	}
	return false, fmt.Errorf("want on or off, got %q", s)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func parseDomain(s string) (tc23x.ProtectionDomain, error) {
	d, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("domain %d is negative", d)
	}
	return tc23x.ProtectionDomain(d), nil
}
