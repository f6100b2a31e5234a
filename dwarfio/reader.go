// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarfio

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/debugcore/go-dwarf/elffile"
)

// A DecodeError reports a malformed DWARF section. It wraps the
// underlying cause, so truncation is matchable with
// errors.Is(err, io.ErrUnexpectedEOF).
type DecodeError struct {
	Name   string
	Offset uint64
	Err    error
}

func (e DecodeError) Error() string {
	return fmt.Sprintf("decoding dwarf section %s at offset %#x: %v", e.Name, e.Offset, e.Err)
}

func (e DecodeError) Unwrap() error { return e.Err }

func errInvalid(name string, off uint64, msg string) error {
	return DecodeError{name, off, fmt.Errorf("%s", msg)}
}

// A Reader is a position-tracked cursor over one debug section or raw
// data buffer. Reads do not return errors; the first failure latches
// and all subsequent reads return zero values. Callers check Err at
// decode boundaries.
type Reader struct {
	name  string
	sect  *elffile.Section // nil for raw data readers
	data  []byte
	off   uint64
	order binary.ByteOrder
	unit  *UnitDescriptor
	err   error
}

// NewSectionReader binds a cursor to a loaded section at the given
// offset. unit may be nil when no unit is in scope yet.
func NewSectionReader(unit *UnitDescriptor, sec *elffile.Section, off uint64) (*Reader, error) {
	if err := sec.Load(); err != nil {
		return nil, err
	}
	r := &Reader{
		name:  sec.Name,
		sect:  sec,
		data:  sec.Data[:sec.Size],
		off:   off,
		order: byteOrder(sec.File.BigEndian),
		unit:  unit,
	}
	return r, nil
}

// NewDataReader binds a cursor to a raw buffer, typically a slice of
// a section owned by another unit. Byte order comes from the unit's
// file.
func NewDataReader(unit *UnitDescriptor, name string, data []byte, off, size uint64) *Reader {
	return &Reader{
		name:  name,
		data:  data[:size],
		off:   off,
		order: byteOrder(unit.File.BigEndian),
		unit:  unit,
	}
}

func byteOrder(bigEndian bool) binary.ByteOrder {
	if bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Pos returns the current offset within the bound buffer.
func (r *Reader) Pos() uint64 { return r.off }

// Len returns the size of the bound buffer.
func (r *Reader) Len() uint64 { return uint64(len(r.data)) }

// Err returns the first error latched by a read, or nil.
func (r *Reader) Err() error { return r.err }

func (r *Reader) fail(err error) {
	if r.err == nil {
		r.err = DecodeError{r.name, r.off, err}
	}
}

func (r *Reader) require(n uint64) bool {
	if r.err != nil {
		return false
	}
	if r.off+n > uint64(len(r.data)) || r.off+n < r.off {
		r.fail(io.ErrUnexpectedEOF)
		return false
	}
	return true
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n uint64) {
	if r.require(n) {
		r.off += n
	}
}

// Bytes reads n bytes and returns a view into the bound buffer. The
// view is owned by the section; callers must not modify it.
func (r *Reader) Bytes(n uint64) []byte {
	if !r.require(n) {
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *Reader) Uint8() byte {
	if !r.require(1) {
		return 0
	}
	x := r.data[r.off]
	r.off++
	return x
}

func (r *Reader) Uint16() uint16 {
	if !r.require(2) {
		return 0
	}
	x := r.order.Uint16(r.data[r.off:])
	r.off += 2
	return x
}

func (r *Reader) Uint32() uint32 {
	if !r.require(4) {
		return 0
	}
	x := r.order.Uint32(r.data[r.off:])
	r.off += 4
	return x
}

func (r *Reader) Uint64() uint64 {
	if !r.require(8) {
		return 0
	}
	x := r.order.Uint64(r.data[r.off:])
	r.off += 8
	return x
}

// UintSized reads an unsigned integer of 1, 2, 4 or 8 bytes.
func (r *Reader) UintSized(size int) uint64 {
	switch size {
	case 1:
		return uint64(r.Uint8())
	case 2:
		return uint64(r.Uint16())
	case 4:
		return uint64(r.Uint32())
	case 8:
		return r.Uint64()
	}
	r.fail(fmt.Errorf("unsupported integer size %d", size))
	return 0
}

// Addr reads a target address using the bound unit's address size.
func (r *Reader) Addr() uint64 {
	switch r.unit.AddressSize {
	case 2:
		return uint64(r.Uint16())
	case 4:
		return uint64(r.Uint32())
	case 8:
		return r.Uint64()
	}
	r.fail(fmt.Errorf("unsupported address size %d", r.unit.AddressSize))
	return 0
}

// ULEB reads an unsigned LEB128 value truncated to 32 bits.
func (r *Reader) ULEB() uint32 {
	var x uint32
	for i := uint(0); ; i += 7 {
		b := r.Uint8()
		x |= uint32(b&0x7f) << i
		if b&0x80 == 0 {
			break
		}
	}
	return x
}

// ULEB64 reads an unsigned LEB128 value.
func (r *Reader) ULEB64() uint64 {
	var x uint64
	for i := uint(0); ; i += 7 {
		b := r.Uint8()
		x |= uint64(b&0x7f) << i
		if b&0x80 == 0 {
			break
		}
	}
	return x
}

// SLEB reads a signed LEB128 value truncated to 32 bits. Bit 6 of the
// final septet is the sign.
func (r *Reader) SLEB() int32 {
	var x uint32
	for i := uint(0); ; i += 7 {
		b := r.Uint8()
		x |= uint32(b&0x7f) << i
		if b&0x80 == 0 {
			x |= -uint32(b&0x40) << i
			break
		}
	}
	return int32(x)
}

// SLEB64 reads a signed LEB128 value.
func (r *Reader) SLEB64() int64 {
	var x uint64
	for i := uint(0); ; i += 7 {
		b := r.Uint8()
		x |= uint64(b&0x7f) << i
		if b&0x80 == 0 {
			x |= -uint64(b&0x40) << i
			break
		}
	}
	return int64(x)
}

// view returns the bytes between start and the current position.
func (r *Reader) view(start uint64) []byte {
	if r.err != nil {
		return nil
	}
	return r.data[start:r.off]
}

// String reads a NUL-terminated string. The terminator is consumed;
// an empty string reads a lone NUL.
func (r *Reader) String() string {
	start := r.off
	for {
		b := r.Uint8()
		if b == 0 || r.err != nil {
			break
		}
	}
	if r.err != nil {
		return ""
	}
	return string(r.data[start : r.off-1])
}
