// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: Apache-2.0 OR MIT

package tcupwm

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultParentRate is the rate of the EXTCLK crystal feeding the channel
// prescalers on typical JZ47xx boards, used when no clock provider is
// given.
const DefaultParentRate uint64 = 12000000

// Controller drives the PWM channels of one TCU.
//
// Channels are identified by index, in the range 0..NumChannels()-1.
// A channel must be successfully Requested before any other operation on
// it.  Operations on a single channel must be serialised by the caller.
type Controller struct {
	regs     RegisterInterface
	clocks   ClockProvider
	leases   *Leaser
	log      *zap.Logger
	channels []channel
}

// channel holds the controller side state of one PWM channel.
type channel struct {
	clk       Clock
	requested bool
	enabled   bool
	polarity  Polarity

	// last programmed register values, in ticks.
	periodTicks uint32
	dutyTicks   uint32
}

// builder contains all the information required to build a Controller.
type builder struct {
	variant Variant
	regs    RegisterInterface
	clocks  ClockProvider
	leases  *Leaser
	log     *zap.Logger
}

// New constructs a Controller based on the provided options.
//
// The available options are [WithVariant], [WithRegisters], [WithClocks],
// [WithLeaser] and [WithLogger].
//
// A register interface must be provided.  All other options have
// defaults: the JZ4740 variant, a TimerClockProvider over the register
// interface fed from [DefaultParentRate], a private lease table, and no
// logging.
func New(options ...ControllerOption) (*Controller, error) {
	b := builder{variant: JZ4740}
	for _, o := range options {
		o.applyControllerOption(&b)
	}
	return b.build()
}

func (b *builder) build() (*Controller, error) {
	if b.regs == nil {
		return nil, ErrNoRegisters
	}
	if b.clocks == nil {
		b.clocks = &TimerClockProvider{Regs: b.regs, Parent: DefaultParentRate}
	}
	if b.leases == nil {
		b.leases = NewLeaser()
	}
	if b.log == nil {
		b.log = zap.NewNop()
	}
	return &Controller{
		regs:     b.regs,
		clocks:   b.clocks,
		leases:   b.leases,
		log:      b.log,
		channels: make([]channel, b.variant.NumChannels()),
	}, nil
}

// NumChannels returns the number of PWM channels provided by the
// controller.
func (c *Controller) NumChannels() int {
	return len(c.channels)
}

// Close frees any channels still requested.
//
// The Controller may not be used afterwards.
func (c *Controller) Close() {
	for i := range c.channels {
		if c.channels[i].requested {
			c.Free(i)
		}
	}
}

// at returns the state of the given channel, or ErrNotRequested if the
// channel is out of range or not currently requested.
func (c *Controller) at(ch int) (*channel, error) {
	if ch < 0 || ch >= len(c.channels) {
		return nil, errors.Errorf("channel %d out of range", ch)
	}
	if !c.channels[ch].requested {
		return nil, errors.Wrapf(ErrNotRequested, "channel %d", ch)
	}
	return &c.channels[ch], nil
}
