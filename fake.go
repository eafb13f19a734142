// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: Apache-2.0 OR MIT

package tcupwm

import (
	"sync"

	"github.com/pkg/errors"
)

// FakeRegisters is an in-memory RegisterInterface for testing without
// hardware.
//
// Unwritten registers read as zero.  The write-1-to-set trigger
// registers are modelled: bits written to TESR and TECR set and clear
// the corresponding bits in TER, and TSSR and TSCR likewise update TSR,
// so enable and gate state are observable through the status registers
// as on hardware.
//
// Every access through the RegisterInterface is also recorded, in order,
// for assertions on the sequence of operations.
type FakeRegisters struct {
	mu    sync.Mutex
	regs  map[uint32]uint32
	trace []RegisterAccess
}

// RegisterAccess records one access to a FakeRegisters.
type RegisterAccess struct {
	// Op is "read", "write" or "update".
	Op string

	// Reg is the register offset accessed.
	Reg uint32

	// Val is the value read or written, or, for an update, the resulting
	// register value.
	Val uint32
}

// NewFakeRegisters returns an empty register file.
func NewFakeRegisters() *FakeRegisters {
	return &FakeRegisters{regs: make(map[uint32]uint32)}
}

// Read returns the register at offset reg.
func (f *FakeRegisters) Read(reg uint32) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	val := f.regs[reg]
	f.trace = append(f.trace, RegisterAccess{Op: "read", Reg: reg, Val: val})
	return val, nil
}

// Write sets the register at offset reg to val.
func (f *FakeRegisters) Write(reg uint32, val uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, RegisterAccess{Op: "write", Reg: reg, Val: val})
	switch reg {
	case RegTESR:
		f.regs[RegTER] |= val
	case RegTECR:
		f.regs[RegTER] &^= val
	case RegTSSR:
		f.regs[RegTSR] |= val
	case RegTSCR:
		f.regs[RegTSR] &^= val
	default:
		f.regs[reg] = val
	}
	return nil
}

// UpdateBits replaces the masked bits of the register at offset reg.
func (f *FakeRegisters) UpdateBits(reg uint32, mask, val uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := (f.regs[reg] &^ mask) | (val & mask)
	f.regs[reg] = v
	f.trace = append(f.trace, RegisterAccess{Op: "update", Reg: reg, Val: v})
	return nil
}

// Trace returns a copy of the accesses recorded so far, in order.
func (f *FakeRegisters) Trace() []RegisterAccess {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RegisterAccess(nil), f.trace...)
}

// ClearTrace discards the recorded accesses.
func (f *FakeRegisters) ClearTrace() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = nil
}

// Reg returns the current value of the register at offset reg, for test
// assertions.
func (f *FakeRegisters) Reg(reg uint32) uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.regs[reg]
}

// SetReg sets the register at offset reg, for test setup.
func (f *FakeRegisters) SetReg(reg uint32, val uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regs[reg] = val
}

// FakeClock is a Clock for testing without hardware.
//
// Any rate between Min and the initial rate is achievable; RoundRate
// clamps to Min.
type FakeClock struct {
	// Min is the lowest rate RoundRate will return.  Defaults to the
	// initial rate, making the clock unroundable.
	Min uint64

	// EnableErr, if set, is returned by Enable.
	EnableErr error

	rate    uint64
	enabled bool
	closed  bool
}

// NewFakeClock returns a FakeClock running at the given rate, which
// cannot be rounded lower.
//
// Set Min to allow RoundRate to return lower rates.
func NewFakeClock(rate uint64) *FakeClock {
	return &FakeClock{rate: rate, Min: rate}
}

// Rate returns the current rate.
func (c *FakeClock) Rate() uint64 {
	return c.rate
}

// RoundRate returns the requested rate, clamped to Min.
func (c *FakeClock) RoundRate(rate uint64) uint64 {
	if rate < c.Min {
		return c.Min
	}
	return rate
}

// SetRate sets the current rate.
func (c *FakeClock) SetRate(rate uint64) error {
	if rate < c.Min {
		return errors.Errorf("rate %d below minimum %d", rate, c.Min)
	}
	c.rate = rate
	return nil
}

// Enable marks the clock enabled, or fails with EnableErr if set.
func (c *FakeClock) Enable() error {
	if c.EnableErr != nil {
		return c.EnableErr
	}
	c.enabled = true
	return nil
}

// Disable marks the clock disabled.
func (c *FakeClock) Disable() {
	c.enabled = false
}

// Close marks the handle released.
func (c *FakeClock) Close() {
	c.closed = true
}

// Enabled reports whether the clock is enabled.
func (c *FakeClock) Enabled() bool {
	return c.enabled
}

// Closed reports whether the handle has been released.
func (c *FakeClock) Closed() bool {
	return c.closed
}

// FakeClockProvider is a ClockProvider serving a fixed set of FakeClocks.
type FakeClockProvider struct {
	clocks map[string]*FakeClock
}

// NewFakeClockProvider returns a provider with no clocks.
func NewFakeClockProvider() *FakeClockProvider {
	return &FakeClockProvider{clocks: make(map[string]*FakeClock)}
}

// Add registers a clock under the given name.
func (p *FakeClockProvider) Add(name string, clk *FakeClock) {
	p.clocks[name] = clk
}

// Clock returns the clock registered under the given name.
func (p *FakeClockProvider) Clock(name string) (Clock, error) {
	clk, ok := p.clocks[name]
	if !ok {
		return nil, errors.Errorf("no clock '%s'", name)
	}
	return clk, nil
}
