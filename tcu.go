// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: Apache-2.0 OR MIT

package tcupwm

// Register offsets within the TCU block, as byte offsets passed to
// RegisterInterface.
//
// The watchdog occupies the first 0x10 bytes of the block, followed by
// the global timer registers, then one 0x10 byte window per channel.
const (
	// Watchdog registers.
	RegWDTTDR  uint32 = 0x00 // timeout, in ticks
	RegWDTTCER uint32 = 0x04 // counter enable, bit 0
	RegWDTTCNT uint32 = 0x08 // live counter
	RegWDTTCSR uint32 = 0x0c // control

	// Global timer registers, one bit per channel.
	RegTER  uint32 = 0x10 // counter enable status
	RegTESR uint32 = 0x14 // counter enable set, write 1 to start
	RegTECR uint32 = 0x18 // counter enable clear, write 1 to stop
	RegTSR  uint32 = 0x1c // clock stop status
	RegTSSR uint32 = 0x2c // clock stop set, write 1 to gate the channel clock
	RegTSCR uint32 = 0x3c // clock stop clear, write 1 to ungate

	// Per-channel registers, relative to the channel window.
	RegTDFR uint32 = 0x00 // the period, in ticks
	RegTDHR uint32 = 0x04 // the duty comparison value, in ticks
	RegTCNT uint32 = 0x08 // live counter
	RegTCSR uint32 = 0x0c // control

	channelBase   uint32 = 0x40
	channelStride uint32 = 0x10
)

// TCSR bits, common to the channel and watchdog control registers where
// applicable.
const (
	TCSRSrcPCLK       uint32 = 1 << 0 // source the counter from PCLK
	TCSRSrcRTC        uint32 = 1 << 1 // source the counter from the RTC clock
	TCSRSrcExt        uint32 = 1 << 2 // source the counter from EXTCLK
	TCSRPrescaleMask  uint32 = 0x7 << 3
	TCSRPrescaleShift        = 3
	TCSRPWMEnable     uint32 = 1 << 7 // connect the channel to its PWM pin
	TCSRInitLevelHigh uint32 = 1 << 8 // output idles high instead of low
	TCSRPWMShutdown   uint32 = 1 << 9 // abrupt shutdown - force output low on stop
)

// wdtEnable is the counter enable bit in RegWDTTCER.
const wdtEnable uint32 = 1 << 0

// maxTicks is the largest value representable by the 16-bit counters.
const maxTicks = 0xffff

// DefaultBase is the physical address of the TCU block on the JZ47xx
// SoCs.
const DefaultBase uintptr = 0x10002000

// ChannelReg returns the offset of a per-channel register (one of
// RegTDFR, RegTDHR, RegTCNT or RegTCSR) for the given channel.
func ChannelReg(channel int, reg uint32) uint32 {
	return channelBase + uint32(channel)*channelStride + reg
}

// RegisterInterface provides atomic access to the registers of the TCU
// block, addressed by byte offset from the start of the block.
//
// Implementations must serialise UpdateBits internally so that
// read-modify-write sequences from different channels do not interleave.
type RegisterInterface interface {
	// Read returns the current value of the register at offset reg.
	Read(reg uint32) (uint32, error)

	// Write sets the register at offset reg to val.
	Write(reg uint32, val uint32) error

	// UpdateBits replaces the bits selected by mask in the register at
	// offset reg with the corresponding bits of val.
	UpdateBits(reg uint32, mask, val uint32) error
}

// Variant identifies the SoC hosting the TCU, which fixes the number of
// PWM capable channels.
type Variant int

const (
	// JZ4740 provides 8 PWM channels.
	JZ4740 Variant = iota

	// JZ4725B provides 6 PWM channels.
	JZ4725B
)

// NumChannels returns the number of PWM channels provided by the variant.
func (v Variant) NumChannels() int {
	if v == JZ4725B {
		return 6
	}
	return 8
}

// Polarity determines the idle level of a PWM output.
type Polarity int

const (
	// PolarityNormal idles low, so the duty portion of each period is
	// driven high.
	PolarityNormal Polarity = iota

	// PolarityInversed idles high, so the duty portion of each period is
	// driven low.
	PolarityInversed
)
