// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: Apache-2.0 OR MIT

package tcupwm

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Watchdog timeout limits.
const (
	DefaultWatchdogTimeout = 5 * time.Second
	MinWatchdogTimeout     = time.Second
	MaxWatchdogTimeout     = 2048 * time.Second
)

// Watchdog drives the watchdog counter of the TCU block.
//
// The watchdog resets the SoC when its 16-bit counter reaches the
// programmed timeout, so once started it must be pinged at least once per
// timeout period.
type Watchdog struct {
	regs    RegisterInterface
	clk     Clock
	log     *zap.Logger
	timeout time.Duration
}

// wdtBuilder contains all the information required to build a Watchdog.
type wdtBuilder struct {
	regs    RegisterInterface
	clocks  ClockProvider
	log     *zap.Logger
	timeout time.Duration
}

// NewWatchdog constructs a Watchdog based on the provided options.
//
// The available options are [WithRegisters], [WithClocks], [WithLogger]
// and [WithWatchdogTimeout].  A register interface must be provided.
//
// The watchdog does not consume a timer channel, so no lease is involved,
// but it does share the register block with the PWM controller.
func NewWatchdog(options ...WatchdogOption) (*Watchdog, error) {
	b := wdtBuilder{timeout: DefaultWatchdogTimeout}
	for _, o := range options {
		o.applyWatchdogOption(&b)
	}
	if b.regs == nil {
		return nil, ErrNoRegisters
	}
	if b.clocks == nil {
		b.clocks = &TimerClockProvider{Regs: b.regs, Parent: DefaultParentRate}
	}
	if b.log == nil {
		b.log = zap.NewNop()
	}
	if b.timeout < MinWatchdogTimeout || b.timeout > MaxWatchdogTimeout {
		return nil, errors.Errorf("timeout %s outside %s..%s", b.timeout,
			MinWatchdogTimeout, MaxWatchdogTimeout)
	}
	clk, err := b.clocks.Clock("wdt")
	if err != nil {
		return nil, errors.Wrapf(ErrClockUnavailable, "wdt: %s", err)
	}
	return &Watchdog{regs: b.regs, clk: clk, log: b.log, timeout: b.timeout}, nil
}

// WatchdogTimeoutOption sets the watchdog timeout.
type WatchdogTimeoutOption time.Duration

// WithWatchdogTimeout returns an option that sets the initial watchdog
// timeout.
//
// The timeout must lie between [MinWatchdogTimeout] and
// [MaxWatchdogTimeout].  The default is [DefaultWatchdogTimeout].
func WithWatchdogTimeout(d time.Duration) WatchdogTimeoutOption {
	return WatchdogTimeoutOption(d)
}

func (o WatchdogTimeoutOption) applyWatchdogOption(b *wdtBuilder) {
	b.timeout = time.Duration(o)
}

// Timeout returns the current timeout.
func (w *Watchdog) Timeout() time.Duration {
	return w.timeout
}

// Start enables the watchdog clock and starts the counter with the
// current timeout.
func (w *Watchdog) Start() error {
	if err := w.clk.Enable(); err != nil {
		return errors.Wrap(err, "enabling wdt clock")
	}
	if err := w.SetTimeout(w.timeout); err != nil {
		w.clk.Disable()
		return err
	}
	if err := w.regs.Write(RegWDTTCER, wdtEnable); err != nil {
		w.clk.Disable()
		return errors.Wrap(err, "starting wdt counter")
	}
	w.log.Debug("watchdog started", zap.Duration("timeout", w.timeout))
	return nil
}

// Stop halts the counter and gates the watchdog clock.
func (w *Watchdog) Stop() {
	if err := w.regs.Write(RegWDTTCER, 0); err != nil {
		w.log.Error("wdt stop failed", zap.Error(err))
	}
	w.clk.Disable()
}

// Ping restarts the timeout period by zeroing the counter.
func (w *Watchdog) Ping() error {
	return w.regs.Write(RegWDTTCNT, 0)
}

// SetTimeout reprograms the timeout.
//
// The clock is rounded down if the timeout does not fit the 16-bit
// counter at the current rate.  The counter is held stopped while being
// reprogrammed and its previous running state is restored afterwards,
// even on failure.
func (w *Watchdog) SetTimeout(d time.Duration) error {
	if d < MinWatchdogTimeout || d > MaxWatchdogTimeout {
		return errors.Errorf("timeout %s outside %s..%s", d,
			MinWatchdogTimeout, MaxWatchdogTimeout)
	}
	rate := w.clk.Rate()
	ticks := rate * uint64(d) / uint64(time.Second)
	changeRate := false
	if ticks > maxTicks {
		rate = w.clk.RoundRate(maxTicks * uint64(time.Second) / uint64(d))
		ticks = rate * uint64(d) / uint64(time.Second)
		if ticks > maxTicks {
			return errors.Wrapf(ErrRateOutOfRange, "timeout %s", d)
		}
		changeRate = true
	}

	tcer, err := w.regs.Read(RegWDTTCER)
	if err != nil {
		return errors.Wrap(err, "reading wdt state")
	}
	if err = w.regs.Write(RegWDTTCER, 0); err != nil {
		return errors.Wrap(err, "stopping wdt counter")
	}
	defer w.regs.Write(RegWDTTCER, tcer&wdtEnable)

	if changeRate {
		w.clk.Disable()
		err = w.clk.SetRate(rate)
		if eerr := w.clk.Enable(); err == nil {
			err = eerr
		}
		if err != nil {
			return errors.Wrapf(err, "setting wdt clock to %dHz", rate)
		}
	}
	if err = w.regs.Write(RegWDTTDR, uint32(ticks)); err != nil {
		return errors.Wrap(err, "writing wdt timeout")
	}
	if err = w.regs.Write(RegWDTTCNT, 0); err != nil {
		return errors.Wrap(err, "resetting wdt counter")
	}
	w.timeout = d
	return nil
}

// Restart forces a SoC reset by starting the counter with an immediate
// timeout.
//
// It does not return under normal circumstances.
func (w *Watchdog) Restart() error {
	if err := w.clk.Enable(); err != nil {
		return errors.Wrap(err, "enabling wdt clock")
	}
	if err := w.regs.Write(RegWDTTDR, 0); err != nil {
		return errors.Wrap(err, "writing wdt timeout")
	}
	if err := w.regs.Write(RegWDTTCNT, 0); err != nil {
		return errors.Wrap(err, "resetting wdt counter")
	}
	return w.regs.Write(RegWDTTCER, wdtEnable)
}
