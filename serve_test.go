package main

import (
	"bufio"
	"io"
	"log"
	"net"
	"os"
	"strings"
	"testing"

	"github.com/delphi123/TC234-Test/sim"
	"github.com/delphi123/TC234-Test/tc23x"
)

func TestServerCommands(t *testing.T) {
	log.SetOutput(io.Discard)
	defer log.SetOutput(os.Stderr)

	chip := sim.New()
	sys := tc23x.New(chip, tc23x.WithLogger(log.New(io.Discard, "", 0)))
	srv := NewServer(sys, tc23x.DefaultProfiles())

	client, conn := net.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.handleConnection(conn, "pipe")
	}()
	r := bufio.NewReader(client)

	tests := []struct {
		line string
		want string
	}{
		{"PROFILES", "100_50 200_100"},
		{"CLOCKS", "PLL=10000000 CPU=100000000 SPB=50000000 STM=100000000 CAN=100000000"},
		{"profile 200_100", "OK"},
		{"CLOCKS", "PLL=200000000 CPU=200000000 SPB=100000000 STM=100000000 CAN=100000000"},
		{"PROFILE 300_150", "ERR: "},
		{"PROFILE", "ERR: "},
		{"CACHE", "0"},
		{"CACHE ON", "1"},
		{"CACHE off", "0"},
		{"PROTECT 3", "1"},
		{"PROTECT 3 OFF", "OK"},
		{"PROTECT 3", "0"},
		{"PROTECT 3 ON", "OK"},
		{"PROTECT -1", "ERR: "},
		{"DELAY 10", "OK"},
		{"DELAY ten", "ERR: "},
		{"IDLE", "OK"},
		{"SLEEP", "OK"},
		{"'unterminated", "ERR: "},
		{"BLINK", "ERR: unknown command: BLINK"},
	}
	for _, test := range tests {
		_, err := client.Write([]byte(test.line + "\n"))
		if err != nil {
			t.Fatalf("write %q: %v", test.line, err)
		}
		got, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read reply to %q: %v", test.line, err)
		}
		got = strings.TrimSpace(got)
		if !strings.HasPrefix(got, test.want) || (!strings.HasPrefix(test.want, "ERR") && got != test.want) {
			t.Errorf("%q got: %q, want: %q", test.line, got, test.want)
		}
	}

	client.Write([]byte("\nQUIT\n"))
	<-done
	client.Close()
	for _, v := range chip.Violations() {
		t.Errorf("violation: %v", v)
	}
}

func TestParseOnOff(t *testing.T) {
	tests := []struct {
		in   string
		want bool
		ok   bool
	}{
		{"on", true, true},
		{"ON", true, true},
		{"1", true, true},
		{"off", false, true},
		{"0", false, true},
		{"maybe", false, false},
	}
	for _, test := range tests {
		got, err := parseOnOff(test.in)
		if (err == nil) != test.ok || got != test.want {
			t.Errorf("parseOnOff(%q) got: %v, %v, want: %v", test.in, got, err, test.want)
		}
	}
}
