// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: Apache-2.0 OR MIT

package tcupwm

import (
	"sync"

	"github.com/pkg/errors"
)

// Leaser hands out exclusive leases on TCU channel indices.
//
// The TCU channels are shared between all consumers of the timer unit -
// PWM, the OS timer, the clocksource - so a single Leaser should be shared
// between everything driving one TCU.  A controller constructed without
// WithLeaser creates its own, which is sufficient when PWM is the only
// consumer in the process.
type Leaser struct {
	mu   sync.Mutex
	held map[int]string
}

// NewLeaser returns an empty lease table.
func NewLeaser() *Leaser {
	return &Leaser{held: make(map[int]string)}
}

// Request leases the given channel for the named consumer.
//
// Fails with ErrChannelBusy if the channel is leased by any consumer,
// leaving the existing lease untouched.
func (l *Leaser) Request(channel int, consumer string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if holder, ok := l.held[channel]; ok {
		return errors.Wrapf(ErrChannelBusy, "channel %d held by %s", channel, holder)
	}
	l.held[channel] = consumer
	return nil
}

// Release returns the lease on the given channel.
func (l *Leaser) Release(channel int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, channel)
}

// Holder returns the consumer holding the given channel, if any.
func (l *Leaser) Holder(channel int) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	holder, ok := l.held[channel]
	return holder, ok
}
