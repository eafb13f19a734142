// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: Apache-2.0 OR MIT

package tcupwm_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/go-tcupwm"
)

const testParentRate = 48000000

// newController builds a controller over fakes, with every channel clock
// running at testParentRate and roundable down to testParentRate/1024.
func newController(t *testing.T, options ...tcupwm.ControllerOption) (*tcupwm.Controller, *tcupwm.FakeRegisters, *tcupwm.FakeClockProvider) {
	t.Helper()
	regs := tcupwm.NewFakeRegisters()
	clocks := tcupwm.NewFakeClockProvider()
	for i := 0; i < 8; i++ {
		clk := tcupwm.NewFakeClock(testParentRate)
		clk.Min = testParentRate / 1024
		clocks.Add(clockName(i), clk)
	}
	options = append([]tcupwm.ControllerOption{
		tcupwm.WithRegisters(regs),
		tcupwm.WithClocks(clocks),
	}, options...)
	c, err := tcupwm.New(options...)
	require.Nil(t, err)
	return c, regs, clocks
}

func clockName(ch int) string {
	return fmt.Sprintf("timer%d", ch)
}

func clock(t *testing.T, clocks *tcupwm.FakeClockProvider, ch int) *tcupwm.FakeClock {
	t.Helper()
	clk, err := clocks.Clock(clockName(ch))
	require.Nil(t, err)
	return clk.(*tcupwm.FakeClock)
}

func TestNew(t *testing.T) {
	c, err := tcupwm.New()
	assert.Nil(t, c)
	assert.ErrorIs(t, err, tcupwm.ErrNoRegisters)

	c, err = tcupwm.New(tcupwm.WithRegisters(tcupwm.NewFakeRegisters()))
	require.Nil(t, err)
	assert.Equal(t, 8, c.NumChannels())
	c.Close()

	c, err = tcupwm.New(
		tcupwm.WithRegisters(tcupwm.NewFakeRegisters()),
		tcupwm.WithVariant(tcupwm.JZ4725B),
	)
	require.Nil(t, err)
	assert.Equal(t, 6, c.NumChannels())
	c.Close()
}

func TestRequestFree(t *testing.T) {
	c, _, clocks := newController(t)
	defer c.Close()

	require.Nil(t, c.Request(3))
	clk := clock(t, clocks, 3)
	assert.True(t, clk.Enabled())

	// second request without an intervening free
	err := c.Request(3)
	assert.ErrorIs(t, err, tcupwm.ErrChannelBusy)
	assert.True(t, clk.Enabled())

	c.Free(3)
	assert.False(t, clk.Enabled())
	assert.True(t, clk.Closed())

	assert.Nil(t, c.Request(3))
}

func TestRequestOutOfRange(t *testing.T) {
	c, _, _ := newController(t)
	defer c.Close()

	assert.NotNil(t, c.Request(-1))
	assert.NotNil(t, c.Request(8))
}

func TestRequestLeaseHeld(t *testing.T) {
	leases := tcupwm.NewLeaser()
	require.Nil(t, leases.Request(2, "ost"))

	c, _, _ := newController(t, tcupwm.WithLeaser(leases))
	defer c.Close()

	err := c.Request(2)
	assert.ErrorIs(t, err, tcupwm.ErrChannelBusy)

	// the existing lease is untouched
	holder, ok := leases.Holder(2)
	assert.True(t, ok)
	assert.Equal(t, "ost", holder)
}

func TestRequestNoClock(t *testing.T) {
	leases := tcupwm.NewLeaser()
	regs := tcupwm.NewFakeRegisters()
	clocks := tcupwm.NewFakeClockProvider()
	c, err := tcupwm.New(
		tcupwm.WithRegisters(regs),
		tcupwm.WithClocks(clocks),
		tcupwm.WithLeaser(leases),
	)
	require.Nil(t, err)
	defer c.Close()

	err = c.Request(0)
	assert.ErrorIs(t, err, tcupwm.ErrClockUnavailable)

	// the lease must have been unwound
	_, ok := leases.Holder(0)
	assert.False(t, ok)
}

func TestRequestClockEnableFails(t *testing.T) {
	leases := tcupwm.NewLeaser()
	c, _, clocks := newController(t, tcupwm.WithLeaser(leases))
	defer c.Close()

	clk := clock(t, clocks, 5)
	clk.EnableErr = assert.AnError

	err := c.Request(5)
	assert.ErrorIs(t, err, assert.AnError)

	// both the clock handle and the lease must have been unwound
	assert.True(t, clk.Closed())
	_, ok := leases.Holder(5)
	assert.False(t, ok)
}

func TestOperationsNotRequested(t *testing.T) {
	c, _, _ := newController(t)
	defer c.Close()

	err := c.Configure(1, time.Microsecond, time.Millisecond)
	assert.ErrorIs(t, err, tcupwm.ErrNotRequested)
	err = c.Enable(1)
	assert.ErrorIs(t, err, tcupwm.ErrNotRequested)
	err = c.SetPolarity(1, tcupwm.PolarityInversed)
	assert.ErrorIs(t, err, tcupwm.ErrNotRequested)
	// and these are no-ops
	c.Disable(1)
	c.Free(1)
}

func TestClose(t *testing.T) {
	leases := tcupwm.NewLeaser()
	c, _, clocks := newController(t, tcupwm.WithLeaser(leases))

	require.Nil(t, c.Request(0))
	require.Nil(t, c.Request(7))

	c.Close()

	for _, ch := range []int{0, 7} {
		assert.False(t, clock(t, clocks, ch).Enabled())
		_, ok := leases.Holder(ch)
		assert.False(t, ok)
	}
}
