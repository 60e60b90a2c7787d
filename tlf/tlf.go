// Package tlf talks to the TLF35584 safety power supply found next to the
// TC23x on the application kits. The only job here is switching off its
// watchdogs, which otherwise reset the board while clocks are being set up.
package tlf

import (
	"fmt"
	"log"
	"math/bits"
)

// TLF35584 registers used by the disable sequence.
const (
	REG_PROTCFG  = 0x03
	REG_SYSPCFG0 = 0x04
	REG_SYSPCFG1 = 0x05
	REG_WDCFG0   = 0x06
)

// Command builds one SPI command word: bit 15 is set for a write, bits 14:9
// carry the register address, bits 8:1 the data, and bit 0 makes the number
// of ones in the word even.
func Command(write bool, addr uint8, data uint8) uint16 {
	var w uint16
	if write {
		w = 1 << 15
	}
	w |= uint16(addr&0x3F) << 9
	w |= uint16(data) << 1
	w |= uint16(bits.OnesCount16(w) & 1)
	return w
}

// DisableSequence returns the command words that switch the watchdogs and the
// error pin monitor off. PROTCFG is unlocked before and locked after. Both
// error monitor disables are sent; an A-step part only honours the first,
// later steps only the second.
func DisableSequence() []uint16 {
	var seq []uint16
	for _, key := range []uint8{0xAB, 0xEF, 0x56, 0x12} {
		seq = append(seq, Command(true, REG_PROTCFG, key))
	}
	seq = append(seq,
		Command(true, REG_WDCFG0, 0x93),   // window watchdog off
		Command(true, REG_SYSPCFG0, 0x08), // err pin monitor off (A-step)
		Command(true, REG_SYSPCFG1, 0x00), // err pin monitor off
	)
	for _, key := range []uint8{0xDF, 0x34, 0xBE, 0xCA} {
		seq = append(seq, Command(true, REG_PROTCFG, key))
	}
	return seq
}

// Transferer clocks one 16-bit word out and returns the word clocked in.
type Transferer interface {
	Transfer(w uint16) (uint16, error)
}

// Disabler switches off the TLF35584 watchdogs over t.
type Disabler struct {
	t   Transferer
	log *log.Logger
}

func NewDisabler(t Transferer, l *log.Logger) *Disabler {
	if l == nil {
		l = log.Default()
	}
	return &Disabler{t: t, log: l}
}

// DisableWatchdog sends DisableSequence. Responses are ignored.
func (d *Disabler) DisableWatchdog() error {
	for i, w := range DisableSequence() {
		_, err := d.t.Transfer(w)
		if err != nil {
			return fmt.Errorf("couldn't send TLF35584 command %d (%04X): %v", i, w, err)
		}
	}
	d.log.Printf("TLF35584 watchdogs disabled")
	return nil
}
