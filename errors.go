// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: Apache-2.0 OR MIT

package tcupwm

import "github.com/pkg/errors"

var (
	// ErrChannelBusy indicates the requested channel is already leased by
	// some consumer of the TCU.
	ErrChannelBusy = errors.New("channel busy")

	// ErrClockUnavailable indicates no clock could be obtained, or
	// enabled, for the channel.
	ErrClockUnavailable = errors.New("clock unavailable")

	// ErrRateOutOfRange indicates no achievable clock rate produces a
	// tick count within the 16-bit counter range for the requested
	// period.
	ErrRateOutOfRange = errors.New("rate out of range")

	// ErrNoRegisters indicates the controller was constructed without a
	// register interface.
	ErrNoRegisters = errors.New("no register interface")

	// ErrNotRequested indicates an operation on a channel that has not
	// been successfully requested.
	ErrNotRequested = errors.New("channel not requested")
)
