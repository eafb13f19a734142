// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: Apache-2.0 OR MIT

//go:build linux

package tcupwm

import (
	"os"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// MemRegisters is a RegisterInterface over a /dev/mem mapping of the TCU
// physical register block.
//
// Read-modify-write sequences are serialised by an internal mutex, as
// required of RegisterInterface implementations.  Requires a kernel
// built with /dev/mem access to the SoC peripheral space, and root.
type MemRegisters struct {
	mu  sync.Mutex
	f   *os.File
	mem []byte
}

// OpenMem maps one page of /dev/mem at the given physical base address.
//
// For the TCU on JZ47xx SoCs the base is [DefaultBase].
func OpenMem(base uintptr) (*MemRegisters, error) {
	f, err := os.OpenFile("/dev/mem", os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, errors.Wrap(err, "opening /dev/mem")
	}
	pagesize := unix.Getpagesize()
	mem, err := unix.Mmap(int(f.Fd()), int64(base), pagesize,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "mapping %#x", base)
	}
	return &MemRegisters{f: f, mem: mem}, nil
}

// Close unmaps the register block.
func (m *MemRegisters) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mem == nil {
		return nil
	}
	err := unix.Munmap(m.mem)
	m.mem = nil
	m.f.Close()
	return err
}

// Read returns the register at offset reg.
func (m *MemRegisters) Read(reg uint32) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read(reg)
}

// Write sets the register at offset reg to val.
func (m *MemRegisters) Write(reg uint32, val uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.write(reg, val)
}

// UpdateBits replaces the masked bits of the register at offset reg.
func (m *MemRegisters) UpdateBits(reg uint32, mask, val uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, err := m.read(reg)
	if err != nil {
		return err
	}
	return m.write(reg, (v&^mask)|(val&mask))
}

func (m *MemRegisters) read(reg uint32) (uint32, error) {
	if m.mem == nil || int(reg)+4 > len(m.mem) {
		return 0, errors.Errorf("register %#x out of range", reg)
	}
	return *(*uint32)(unsafe.Pointer(&m.mem[reg])), nil
}

func (m *MemRegisters) write(reg uint32, val uint32) error {
	if m.mem == nil || int(reg)+4 > len(m.mem) {
		return errors.Errorf("register %#x out of range", reg)
	}
	*(*uint32)(unsafe.Pointer(&m.mem[reg])) = val
	return nil
}
