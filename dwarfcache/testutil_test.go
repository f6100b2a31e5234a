// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarfcache

import (
	"encoding/binary"

	"github.com/debugcore/go-dwarf/elffile"
)

// enc builds synthetic section contents for tests.
type enc struct {
	buf []byte
	be  bool
}

func (e *enc) order() binary.ByteOrder {
	if e.be {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (e *enc) raw(b ...byte) *enc {
	e.buf = append(e.buf, b...)
	return e
}

func (e *enc) u1(v byte) *enc { return e.raw(v) }

func (e *enc) u2(v uint16) *enc {
	var b [2]byte
	e.order().PutUint16(b[:], v)
	return e.raw(b[:]...)
}

func (e *enc) u4(v uint32) *enc {
	var b [4]byte
	e.order().PutUint32(b[:], v)
	return e.raw(b[:]...)
}

func (e *enc) u8(v uint64) *enc {
	var b [8]byte
	e.order().PutUint64(b[:], v)
	return e.raw(b[:]...)
}

func (e *enc) uleb(v uint64) *enc {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		e.raw(b)
		if v == 0 {
			return e
		}
	}
}

func (e *enc) sleb(v int64) *enc {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return e.raw(b)
		}
		e.raw(b | 0x80)
	}
}

func (e *enc) str(s string) *enc {
	return e.raw(append([]byte(s), 0)...)
}

// testFile assembles an in-memory object file from pre-loaded
// sections.
func testFile(elf64, bigEndian bool, secs ...*elffile.Section) *elffile.File {
	f := &elffile.File{Elf64: elf64, BigEndian: bigEndian}
	f.Sections = append(f.Sections, &elffile.Section{File: f})
	for i, s := range secs {
		s.File = f
		s.Index = i + 1
		if s.Size == 0 {
			s.Size = uint64(len(s.Data))
		}
		if s.Data == nil {
			s.Data = []byte{}
		}
		f.Sections = append(f.Sections, s)
	}
	return f
}

func testSection(name string, data []byte) *elffile.Section {
	return &elffile.Section{Name: name, Data: data, Size: uint64(len(data))}
}

// unit32 frames entries as one 32-bit little-endian unit of the given
// version, with address size 4 and abbreviation table offset 0.
func unit32(version uint16, entries []byte) []byte {
	e := &enc{}
	e.u4(uint32(7 + len(entries)))
	e.u2(version)
	e.u4(0)
	e.u1(4)
	return append(e.buf, entries...)
}

// unit64 frames entries as one 64-bit little-endian DWARF 3 unit with
// address size 8.
func unit64(entries []byte) []byte {
	e := &enc{}
	e.u4(0xffffffff)
	e.u8(uint64(7 + len(entries)))
	e.u2(3)
	e.u4(0)
	e.u1(8)
	return append(e.buf, entries...)
}
