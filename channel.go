// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: Apache-2.0 OR MIT

package tcupwm

import (
	"math"
	"math/bits"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Request acquires the given channel for PWM use.
//
// The channel is leased from the shared lease table and its clock is
// obtained and enabled.  Fails with ErrChannelBusy if any TCU consumer
// holds the channel, or ErrClockUnavailable if the channel clock cannot
// be obtained.  On failure no resources remain held.
func (c *Controller) Request(ch int) error {
	if ch < 0 || ch >= len(c.channels) {
		return errors.Errorf("channel %d out of range", ch)
	}
	if err := c.leases.Request(ch, "pwm"); err != nil {
		return err
	}
	clk, err := c.clocks.Clock(clockName(ch))
	if err != nil {
		c.leases.Release(ch)
		return errors.Wrapf(ErrClockUnavailable, "channel %d: %s", ch, err)
	}
	if err = clk.Enable(); err != nil {
		clk.Close()
		c.leases.Release(ch)
		return errors.Wrapf(err, "enabling clock for channel %d", ch)
	}
	c.channels[ch] = channel{clk: clk, requested: true}
	c.log.Debug("channel requested", zap.Int("channel", ch))
	return nil
}

// Free releases the given channel.
//
// The clock is disabled and released and the lease returned.  Freeing a
// channel that is not requested is a no-op.
func (c *Controller) Free(ch int) {
	cc, err := c.at(ch)
	if err != nil {
		return
	}
	cc.clk.Disable()
	cc.clk.Close()
	c.leases.Release(ch)
	c.channels[ch] = channel{}
	c.log.Debug("channel freed", zap.Int("channel", ch))
}

// Configure programs the period and duty cycle of the given channel.
//
// The clock rate is lowered, if necessary, until the period fits the
// 16-bit channel counter, failing with ErrRateOutOfRange if no achievable
// rate fits.  A channel that is enabled is briefly stopped while being
// reprogrammed, with the abrupt shutdown bit holding the output low, and
// is re-enabled before Configure returns.
func (c *Controller) Configure(ch int, duty, period time.Duration) error {
	cc, err := c.at(ch)
	if err != nil {
		return err
	}
	if period <= 0 || duty < 0 || duty > period {
		return errors.Errorf("invalid duty %s for period %s", duty, period)
	}

	rate, periodTicks, err := solveRate(cc.clk, period)
	if err != nil {
		return errors.Wrapf(err, "channel %d period %s", ch, period)
	}
	if err = cc.clk.SetRate(rate); err != nil {
		return errors.Wrapf(err, "setting channel %d clock to %dHz", ch, rate)
	}

	// TDHR holds the point in the period where the output falls, counted
	// from the end, so invert the duty.
	dutyTicks := periodTicks - periodTicks*uint64(duty)/uint64(period)
	if dutyTicks >= periodTicks {
		dutyTicks = periodTicks - 1
	}

	// The enabled state is taken from the live status register, not the
	// cached flag, as other consumers may have touched the counter.
	ter, err := c.regs.Read(RegTER)
	if err != nil {
		return errors.Wrap(err, "reading counter status")
	}
	wasEnabled := ter&(1<<uint(ch)) != 0
	if wasEnabled {
		if err = c.disableHW(ch); err != nil {
			return err
		}
	}
	if err = c.regs.UpdateBits(ChannelReg(ch, RegTCSR), TCSRPWMShutdown, TCSRPWMShutdown); err != nil {
		return errors.Wrapf(err, "setting channel %d abrupt shutdown", ch)
	}
	if err = c.regs.Write(ChannelReg(ch, RegTCNT), 0); err != nil {
		return errors.Wrapf(err, "resetting channel %d counter", ch)
	}
	// Duty before period, while the shutdown bit suppresses output.
	if err = c.regs.Write(ChannelReg(ch, RegTDHR), uint32(dutyTicks)); err != nil {
		return errors.Wrapf(err, "writing channel %d duty", ch)
	}
	if err = c.regs.Write(ChannelReg(ch, RegTDFR), uint32(periodTicks)); err != nil {
		return errors.Wrapf(err, "writing channel %d period", ch)
	}
	if wasEnabled {
		if err = c.enableHW(ch); err != nil {
			return err
		}
	}
	cc.periodTicks = uint32(periodTicks)
	cc.dutyTicks = uint32(dutyTicks)
	c.log.Debug("channel configured",
		zap.Int("channel", ch),
		zap.Uint64("rate", rate),
		zap.Uint64("period_ticks", periodTicks),
		zap.Uint64("duty_ticks", dutyTicks))
	return nil
}

// solveRate finds the highest rate achievable by the clock at which the
// period fits the 16-bit counter, halving downwards until the tick count
// fits or the clock cannot be rounded any lower.
func solveRate(clk Clock, period time.Duration) (rate, ticks uint64, err error) {
	rate = clk.Rate()
	for {
		ticks = periodToTicks(rate, period)
		if ticks <= maxTicks {
			break
		}
		newRate := clk.RoundRate(rate / 2)
		if newRate >= rate {
			return 0, 0, ErrRateOutOfRange
		}
		rate = newRate
	}
	// a period shorter than one tick cannot be represented either
	if ticks == 0 {
		return 0, 0, ErrRateOutOfRange
	}
	return rate, ticks, nil
}

// periodToTicks returns the number of ticks spanned by the period at the given
// rate, using a 128-bit intermediate so long periods cannot wrap the product.
func periodToTicks(rate uint64, period time.Duration) uint64 {
	hi, lo := bits.Mul64(rate, uint64(period))
	if hi >= uint64(time.Second) {
		// quotient exceeds 64 bits, far beyond the counter range
		return math.MaxUint64
	}
	ticks, _ := bits.Div64(hi, lo, uint64(time.Second))
	return ticks
}

// Enable starts the given channel's output.
//
// The output is connected before the counter is started.
func (c *Controller) Enable(ch int) error {
	cc, err := c.at(ch)
	if err != nil {
		return err
	}
	if err = c.enableHW(ch); err != nil {
		return err
	}
	cc.enabled = true
	return nil
}

// Disable stops the given channel's output.
//
// Disabling a channel that is not requested is a no-op.
func (c *Controller) Disable(ch int) {
	cc, err := c.at(ch)
	if err != nil {
		return
	}
	if err = c.disableHW(ch); err != nil {
		// Register writes are not expected to fail; the channel state is
		// unreliable from here and must be re-requested.
		c.log.Error("disable failed", zap.Int("channel", ch), zap.Error(err))
	}
	cc.enabled = false
}

// SetPolarity sets the idle level of the given channel's output.
//
// Only the initial level bit is touched.  The polarity may be changed
// while the channel is enabled, but when the new level becomes visible on
// the pin within the current cycle is hardware defined.
func (c *Controller) SetPolarity(ch int, polarity Polarity) error {
	cc, err := c.at(ch)
	if err != nil {
		return err
	}
	v := uint32(0)
	if polarity == PolarityInversed {
		v = TCSRInitLevelHigh
	}
	if err = c.regs.UpdateBits(ChannelReg(ch, RegTCSR), TCSRInitLevelHigh, v); err != nil {
		return errors.Wrapf(err, "setting channel %d polarity", ch)
	}
	cc.polarity = polarity
	return nil
}

// enableHW sets the PWM enable bit, then starts the counter.
func (c *Controller) enableHW(ch int) error {
	if err := c.regs.UpdateBits(ChannelReg(ch, RegTCSR), TCSRPWMEnable, TCSRPWMEnable); err != nil {
		return errors.Wrapf(err, "enabling channel %d output", ch)
	}
	if err := c.regs.Write(RegTESR, 1<<uint(ch)); err != nil {
		return errors.Wrapf(err, "starting channel %d counter", ch)
	}
	return nil
}

// disableHW clears the PWM enable bit, then stops the counter.
//
// On TCU2 channels the output must be disconnected before the counter
// stops to avoid a stuck output level; this order is also correct for
// TCU1 channels so is used unconditionally.
func (c *Controller) disableHW(ch int) error {
	if err := c.regs.UpdateBits(ChannelReg(ch, RegTCSR), TCSRPWMEnable, 0); err != nil {
		return errors.Wrapf(err, "disabling channel %d output", ch)
	}
	if err := c.regs.Write(RegTECR, 1<<uint(ch)); err != nil {
		return errors.Wrapf(err, "stopping channel %d counter", ch)
	}
	return nil
}
