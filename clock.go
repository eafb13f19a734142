// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: Apache-2.0 OR MIT

package tcupwm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Clock is a handle to the clock feeding one timer channel.
//
// Rates are in Hz.
type Clock interface {
	// Rate returns the current rate of the clock.
	Rate() uint64

	// RoundRate returns the achievable rate closest to, but not above,
	// the requested rate.  If the requested rate is below the lowest
	// achievable rate then the lowest achievable rate is returned.
	RoundRate(rate uint64) uint64

	// SetRate switches the clock to the given rate, which must be an
	// achievable rate as returned by RoundRate.
	SetRate(rate uint64) error

	// Enable ungates the clock so the channel counter can run.
	Enable() error

	// Disable gates the clock.
	Disable()

	// Close releases the handle.  The clock may not be used afterwards.
	Close()
}

// ClockProvider resolves clock names to Clock handles.
//
// Timer channel clocks are named "timer0" through "timer7", and the
// watchdog clock is named "wdt".
type ClockProvider interface {
	Clock(name string) (Clock, error)
}

// prescale dividers are powers of 4, from /1 to /1024.
const maxPrescale = 5

// TimerClock controls the clock of one TCU channel through the prescaler
// field of its control register and the global clock gate registers.
//
// The achievable rates are the parent rate divided by 1, 4, 16, 64, 256
// or 1024.
type TimerClock struct {
	regs    RegisterInterface
	channel int
	parent  uint64

	// control register offset, differs between timer channels and the
	// watchdog.
	creg uint32

	// bit in the gate registers, or 0 if the clock is not gated there.
	gate uint32

	// TCSR bit selecting the parent, set on Enable.
	source uint32
}

// NewTimerClock returns a TimerClock for the given channel, fed from a
// parent of the given rate.
//
// The source selects the parent in the channel control register and is
// typically EXTCLK, the 12MHz to 48MHz crystal oscillator input, in which
// case parent is the crystal frequency.
func NewTimerClock(regs RegisterInterface, channel int, parent uint64) *TimerClock {
	return &TimerClock{
		regs:    regs,
		channel: channel,
		parent:  parent,
		creg:    ChannelReg(channel, RegTCSR),
		gate:    1 << uint(channel),
		source:  TCSRSrcExt,
	}
}

// newWatchdogClock returns the clock for the watchdog counter, which has
// its own control register and no gate bit in TSR.
func newWatchdogClock(regs RegisterInterface, parent uint64) *TimerClock {
	return &TimerClock{
		regs:   regs,
		parent: parent,
		creg:   RegWDTTCSR,
		source: TCSRSrcExt,
	}
}

// Rate returns the parent rate divided by the current prescale setting.
func (c *TimerClock) Rate() uint64 {
	v, err := c.regs.Read(c.creg)
	if err != nil {
		return 0
	}
	p := (v & TCSRPrescaleMask) >> TCSRPrescaleShift
	if p > maxPrescale {
		p = maxPrescale
	}
	return c.parent >> (2 * p)
}

// RoundRate returns the highest achievable rate not above the requested
// rate, or the lowest achievable rate if the request is below that.
func (c *TimerClock) RoundRate(rate uint64) uint64 {
	for p := uint(0); p < maxPrescale; p++ {
		if c.parent>>(2*p) <= rate {
			return c.parent >> (2 * p)
		}
	}
	return c.parent >> (2 * maxPrescale)
}

// SetRate programs the prescaler for the given rate.
func (c *TimerClock) SetRate(rate uint64) error {
	for p := uint32(0); p <= maxPrescale; p++ {
		if c.parent>>(2*p) == rate {
			return c.regs.UpdateBits(c.creg, TCSRPrescaleMask, p<<TCSRPrescaleShift)
		}
	}
	return errors.Errorf("rate %d not achievable from parent %d", rate, c.parent)
}

// Enable selects the parent in the control register and ungates the
// channel clock.
func (c *TimerClock) Enable() error {
	mask := TCSRSrcPCLK | TCSRSrcRTC | TCSRSrcExt
	if err := c.regs.UpdateBits(c.creg, mask, c.source); err != nil {
		return err
	}
	if c.gate != 0 {
		return c.regs.Write(RegTSCR, c.gate)
	}
	return nil
}

// Disable gates the channel clock.
func (c *TimerClock) Disable() {
	if c.gate != 0 {
		c.regs.Write(RegTSSR, c.gate)
	}
	c.regs.UpdateBits(c.creg, TCSRSrcPCLK|TCSRSrcRTC|TCSRSrcExt, 0)
}

// Close releases the handle.
func (c *TimerClock) Close() {}

// TimerClockProvider provides TimerClocks for the channels of one TCU,
// all fed from the same parent.
type TimerClockProvider struct {
	Regs RegisterInterface

	// Parent is the rate of the clock feeding the prescalers, in Hz.
	Parent uint64
}

// Clock resolves "timer<n>" and "wdt" names.
func (p *TimerClockProvider) Clock(name string) (Clock, error) {
	if name == "wdt" {
		return newWatchdogClock(p.Regs, p.Parent), nil
	}
	if !strings.HasPrefix(name, "timer") {
		return nil, errors.Errorf("unknown clock '%s'", name)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(name, "timer"))
	if err != nil {
		return nil, errors.Errorf("unknown clock '%s'", name)
	}
	return NewTimerClock(p.Regs, n, p.Parent), nil
}

// clockName returns the name of the clock feeding the given channel.
func clockName(channel int) string {
	return fmt.Sprintf("timer%d", channel)
}
