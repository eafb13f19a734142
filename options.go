// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: Apache-2.0 OR MIT

package tcupwm

import "go.uber.org/zap"

// ControllerOption defines the interface required to provide an option
// to New.
type ControllerOption interface {
	applyControllerOption(*builder)
}

// WatchdogOption defines the interface required to provide an option to
// NewWatchdog.
type WatchdogOption interface {
	applyWatchdogOption(*wdtBuilder)
}

// VariantOption selects the SoC variant.
type VariantOption Variant

// WithVariant returns an option that selects the SoC variant, which fixes
// the number of channels.
func WithVariant(v Variant) VariantOption {
	return VariantOption(v)
}

func (o VariantOption) applyControllerOption(b *builder) {
	b.variant = Variant(o)
}

// RegistersOption provides the register interface.
type RegistersOption struct {
	regs RegisterInterface
}

// WithRegisters returns an option that provides the register interface
// for the TCU block.
//
// This option is required.
func WithRegisters(regs RegisterInterface) RegistersOption {
	return RegistersOption{regs}
}

func (o RegistersOption) applyControllerOption(b *builder) {
	b.regs = o.regs
}

func (o RegistersOption) applyWatchdogOption(b *wdtBuilder) {
	b.regs = o.regs
}

// ClocksOption provides the clock provider.
type ClocksOption struct {
	clocks ClockProvider
}

// WithClocks returns an option that provides the clock provider used to
// resolve channel clocks.
func WithClocks(clocks ClockProvider) ClocksOption {
	return ClocksOption{clocks}
}

func (o ClocksOption) applyControllerOption(b *builder) {
	b.clocks = o.clocks
}

func (o ClocksOption) applyWatchdogOption(b *wdtBuilder) {
	b.clocks = o.clocks
}

// LeaserOption provides the channel lease table.
type LeaserOption struct {
	leases *Leaser
}

// WithLeaser returns an option that provides the channel lease table.
//
// Pass the same Leaser to every consumer sharing one TCU.
func WithLeaser(leases *Leaser) LeaserOption {
	return LeaserOption{leases}
}

func (o LeaserOption) applyControllerOption(b *builder) {
	b.leases = o.leases
}

// LoggerOption provides a logger.
type LoggerOption struct {
	log *zap.Logger
}

// WithLogger returns an option that provides a logger for diagnostics.
//
// By default nothing is logged.
func WithLogger(log *zap.Logger) LoggerOption {
	return LoggerOption{log}
}

func (o LoggerOption) applyControllerOption(b *builder) {
	b.log = o.log
}

func (o LoggerOption) applyWatchdogOption(b *wdtBuilder) {
	b.log = o.log
}
