// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: Apache-2.0 OR MIT

package tcupwm_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/go-tcupwm"
)

func TestConfigure(t *testing.T) {
	c, regs, clocks := newController(t)
	defer c.Close()
	require.Nil(t, c.Request(2))

	// 1ms period and 50% duty fit a 48MHz clock without rounding
	require.Nil(t, c.Configure(2, 500*time.Microsecond, time.Millisecond))
	assert.Equal(t, uint64(testParentRate), clock(t, clocks, 2).Rate())
	assert.Equal(t, uint32(48000), regs.Reg(tcupwm.ChannelReg(2, tcupwm.RegTDFR)))
	assert.Equal(t, uint32(24000), regs.Reg(tcupwm.ChannelReg(2, tcupwm.RegTDHR)))
	assert.Equal(t, uint32(0), regs.Reg(tcupwm.ChannelReg(2, tcupwm.RegTCNT)))
	// abrupt shutdown is left set so a later stop forces the output low
	tcsr := regs.Reg(tcupwm.ChannelReg(2, tcupwm.RegTCSR))
	assert.NotZero(t, tcsr&tcupwm.TCSRPWMShutdown)
}

func TestConfigureLowersRate(t *testing.T) {
	c, regs, clocks := newController(t)
	defer c.Close()
	require.Nil(t, c.Request(0))

	// 10ms at 48MHz is 480000 ticks; halving reaches 6MHz/60000 ticks
	require.Nil(t, c.Configure(0, 5*time.Millisecond, 10*time.Millisecond))
	assert.Equal(t, uint64(6000000), clock(t, clocks, 0).Rate())
	assert.Equal(t, uint32(60000), regs.Reg(tcupwm.ChannelReg(0, tcupwm.RegTDFR)))
	assert.Equal(t, uint32(30000), regs.Reg(tcupwm.ChannelReg(0, tcupwm.RegTDHR)))
}

func TestConfigureRateOutOfRange(t *testing.T) {
	regs := tcupwm.NewFakeRegisters()
	clocks := tcupwm.NewFakeClockProvider()
	// a clock too fast for any period to fit, and unroundable
	clocks.Add("timer0", tcupwm.NewFakeClock(100000000000000))
	c, err := tcupwm.New(tcupwm.WithRegisters(regs), tcupwm.WithClocks(clocks))
	require.Nil(t, err)
	defer c.Close()
	require.Nil(t, c.Request(0))

	err = c.Configure(0, 0, time.Nanosecond)
	assert.ErrorIs(t, err, tcupwm.ErrRateOutOfRange)
}

func TestConfigureLongPeriod(t *testing.T) {
	regs := tcupwm.NewFakeRegisters()
	clocks := tcupwm.NewFakeClockProvider()
	clocks.Add("timer0", tcupwm.NewFakeClock(testParentRate))
	clocks.Add("timer1", tcupwm.NewFakeClock(1000000000000))
	c, err := tcupwm.New(tcupwm.WithRegisters(regs), tcupwm.WithClocks(clocks))
	require.Nil(t, err)
	defer c.Close()
	require.Nil(t, c.Request(0))
	require.Nil(t, c.Request(1))

	// ~384s at 48MHz puts the rate*period product just past 2^64
	err = c.Configure(0, 0, 384307168203*time.Nanosecond)
	assert.ErrorIs(t, err, tcupwm.ErrRateOutOfRange)
	assert.Zero(t, regs.Reg(tcupwm.ChannelReg(0, tcupwm.RegTDFR)))
	assert.Zero(t, regs.Reg(tcupwm.ChannelReg(0, tcupwm.RegTDHR)))

	// and far past it
	err = c.Configure(1, 0, time.Duration(1<<62))
	assert.ErrorIs(t, err, tcupwm.ErrRateOutOfRange)
	assert.Zero(t, regs.Reg(tcupwm.ChannelReg(1, tcupwm.RegTDFR)))
}

func TestConfigureSubTickPeriod(t *testing.T) {
	c, regs, _ := newController(t)
	defer c.Close()
	require.Nil(t, c.Request(2))

	// 10ns is less than one 48MHz tick
	err := c.Configure(2, 0, 10*time.Nanosecond)
	assert.ErrorIs(t, err, tcupwm.ErrRateOutOfRange)
	assert.Zero(t, regs.Reg(tcupwm.ChannelReg(2, tcupwm.RegTDFR)))
	assert.Zero(t, regs.Reg(tcupwm.ChannelReg(2, tcupwm.RegTDHR)))
}

func TestConfigureDutyClamped(t *testing.T) {
	c, regs, _ := newController(t)
	defer c.Close()
	require.Nil(t, c.Request(1))

	// zero duty would program a duty value equal to the period
	require.Nil(t, c.Configure(1, 0, time.Millisecond))
	period := regs.Reg(tcupwm.ChannelReg(1, tcupwm.RegTDFR))
	duty := regs.Reg(tcupwm.ChannelReg(1, tcupwm.RegTDHR))
	assert.Equal(t, uint32(48000), period)
	assert.Equal(t, period-1, duty)
}

func TestConfigureInvalid(t *testing.T) {
	c, _, _ := newController(t)
	defer c.Close()
	require.Nil(t, c.Request(1))

	assert.NotNil(t, c.Configure(1, 0, 0))
	assert.NotNil(t, c.Configure(1, -time.Millisecond, time.Millisecond))
	assert.NotNil(t, c.Configure(1, 2*time.Millisecond, time.Millisecond))
}

func TestConfigurePreservesEnable(t *testing.T) {
	c, regs, _ := newController(t)
	defer c.Close()
	require.Nil(t, c.Request(4))
	bit := uint32(1) << 4

	// disabled before, disabled after
	require.Nil(t, c.Configure(4, time.Microsecond, time.Millisecond))
	assert.Zero(t, regs.Reg(tcupwm.RegTER)&bit)

	require.Nil(t, c.Enable(4))
	require.NotZero(t, regs.Reg(tcupwm.RegTER)&bit)

	// enabled before, enabled after
	require.Nil(t, c.Configure(4, 2*time.Microsecond, time.Millisecond))
	assert.NotZero(t, regs.Reg(tcupwm.RegTER)&bit)
	assert.NotZero(t, regs.Reg(tcupwm.ChannelReg(4, tcupwm.RegTCSR))&tcupwm.TCSRPWMEnable)
}

func TestConfigureSequence(t *testing.T) {
	c, regs, _ := newController(t)
	defer c.Close()
	require.Nil(t, c.Request(5))
	require.Nil(t, c.Enable(5))
	regs.ClearTrace()

	require.Nil(t, c.Configure(5, 500*time.Microsecond, time.Millisecond))

	bit := uint32(1) << 5
	tcsr := tcupwm.ChannelReg(5, tcupwm.RegTCSR)
	xtrace := []tcupwm.RegisterAccess{
		// live enabled state first
		{Op: "read", Reg: tcupwm.RegTER, Val: bit},
		// stop: disconnect the output, then stop the counter
		{Op: "update", Reg: tcsr, Val: 0},
		{Op: "write", Reg: tcupwm.RegTECR, Val: bit},
		// hold the output low while reprogramming
		{Op: "update", Reg: tcsr, Val: tcupwm.TCSRPWMShutdown},
		{Op: "write", Reg: tcupwm.ChannelReg(5, tcupwm.RegTCNT), Val: 0},
		// duty before period
		{Op: "write", Reg: tcupwm.ChannelReg(5, tcupwm.RegTDHR), Val: 24000},
		{Op: "write", Reg: tcupwm.ChannelReg(5, tcupwm.RegTDFR), Val: 48000},
		// restart: reconnect the output, then start the counter
		{Op: "update", Reg: tcsr, Val: tcupwm.TCSRPWMShutdown | tcupwm.TCSRPWMEnable},
		{Op: "write", Reg: tcupwm.RegTESR, Val: bit},
	}
	assert.Equal(t, xtrace, regs.Trace())
}

func TestEnableDisable(t *testing.T) {
	c, regs, _ := newController(t)
	defer c.Close()
	require.Nil(t, c.Request(6))
	bit := uint32(1) << 6
	tcsr := tcupwm.ChannelReg(6, tcupwm.RegTCSR)

	require.Nil(t, c.Enable(6))
	assert.NotZero(t, regs.Reg(tcsr)&tcupwm.TCSRPWMEnable)
	assert.NotZero(t, regs.Reg(tcupwm.RegTER)&bit)

	c.Disable(6)
	assert.Zero(t, regs.Reg(tcsr)&tcupwm.TCSRPWMEnable)
	assert.Zero(t, regs.Reg(tcupwm.RegTER)&bit)
}

func TestSetPolarity(t *testing.T) {
	c, regs, _ := newController(t)
	defer c.Close()
	require.Nil(t, c.Request(3))
	tcsr := tcupwm.ChannelReg(3, tcupwm.RegTCSR)

	// give the control register some other state to preserve
	require.Nil(t, c.Enable(3))
	before := regs.Reg(tcsr)

	require.Nil(t, c.SetPolarity(3, tcupwm.PolarityInversed))
	assert.Equal(t, before|tcupwm.TCSRInitLevelHigh, regs.Reg(tcsr))

	require.Nil(t, c.SetPolarity(3, tcupwm.PolarityNormal))
	assert.Equal(t, before&^tcupwm.TCSRInitLevelHigh, regs.Reg(tcsr))
}
