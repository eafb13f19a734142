// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: Apache-2.0 OR MIT

/*
Package tcupwm drives the PWM channels of the Ingenic JZ47xx timer/counter
unit (TCU).

The [Controller] exposes the PWM capable channels of one TCU - 8 on the
JZ4740 and 6 on the JZ4725B, selected with [WithVariant].  Each channel
must be requested before use, which leases the channel from the table
shared by all TCU consumers and enables its clock, and freed when done.

Periods and duty cycles are given in nanoseconds, as [time.Duration], and
are quantized onto the channel's 16-bit counter.  The channel clock is
automatically slowed, through the TCU prescalers, until the requested
period fits the counter; periods too long for even the slowest achievable
rate fail with [ErrRateOutOfRange].

Register access is abstracted by [RegisterInterface].  On hardware,
[MemRegisters] maps the TCU block through /dev/mem (requiring root);
[FakeRegisters] and [FakeClockProvider] support testing anywhere.

The [Watchdog] drives the watchdog counter located in the same register
block.

# Example Usage

Pulse channel 4 at 1kHz with a 25% duty cycle:

	regs, err := tcupwm.OpenMem(tcupwm.DefaultBase)
	c, err := tcupwm.New(tcupwm.WithRegisters(regs))
	err = c.Request(4)
	err = c.Configure(4, 250*time.Microsecond, time.Millisecond)
	err = c.Enable(4)
	...
	c.Disable(4)
	c.Free(4)

Operations on a channel are synchronous and must be serialised by the
caller; operations on different channels may proceed concurrently.
*/
package tcupwm
