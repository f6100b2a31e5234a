// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarfio

import (
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debugcore/go-dwarf/elffile"
)

func dataReader(t *testing.T, bigEndian bool, data []byte) *Reader {
	t.Helper()
	u := &UnitDescriptor{
		File:        &elffile.File{BigEndian: bigEndian},
		AddressSize: 4,
	}
	return NewDataReader(u, "test", data, 0, uint64(len(data)))
}

func TestULEBRoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 127, 128, 129, 0x3fff, 0x4000, math.MaxUint32, math.MaxUint64} {
		e := &enc{}
		e.uleb(v)
		r := dataReader(t, false, e.buf)
		got := r.ULEB64()
		require.NoError(t, r.Err())
		assert.Equal(t, v, got, "value %d", v)
		if v <= math.MaxUint32 {
			r = dataReader(t, false, e.buf)
			assert.Equal(t, uint32(v), r.ULEB())
		}
	}
}

func TestSLEBRoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 63, 64, -64, -65, 127, 128, math.MaxInt32, math.MinInt32, math.MaxInt64, math.MinInt64} {
		e := &enc{}
		e.sleb(v)
		r := dataReader(t, false, e.buf)
		got := r.SLEB64()
		require.NoError(t, r.Err())
		assert.Equal(t, v, got, "value %d", v)
		if v >= math.MinInt32 && v <= math.MaxInt32 {
			r = dataReader(t, false, e.buf)
			assert.Equal(t, int32(v), r.SLEB())
		}
	}
}

func TestEndianness(t *testing.T) {
	data := []byte{0x12, 0x34}
	r := dataReader(t, true, data)
	assert.Equal(t, uint16(0x1234), r.Uint16())
	r = dataReader(t, false, data)
	assert.Equal(t, uint16(0x3412), r.Uint16())
}

func TestPrimitives(t *testing.T) {
	e := &enc{}
	e.u1(0xab).u2(0x1234).u4(0xdeadbeef).u8(0x1122334455667788)
	r := dataReader(t, false, e.buf)
	assert.Equal(t, byte(0xab), r.Uint8())
	assert.Equal(t, uint16(0x1234), r.Uint16())
	assert.Equal(t, uint32(0xdeadbeef), r.Uint32())
	assert.Equal(t, uint64(0x1122334455667788), r.Uint64())
	require.NoError(t, r.Err())
	assert.Equal(t, uint64(15), r.Pos())
}

func TestAddressSizes(t *testing.T) {
	for _, size := range []uint8{2, 4, 8} {
		e := &enc{}
		switch size {
		case 2:
			e.u2(0x1000)
		case 4:
			e.u4(0x1000)
		case 8:
			e.u8(0x1000)
		}
		u := &UnitDescriptor{File: &elffile.File{}, AddressSize: size}
		r := NewDataReader(u, "test", e.buf, 0, uint64(len(e.buf)))
		assert.Equal(t, uint64(0x1000), r.Addr(), "address size %d", size)
		require.NoError(t, r.Err())
	}
}

func TestReadPastEnd(t *testing.T) {
	r := dataReader(t, false, []byte{0x01, 0x02})
	r.Uint32()
	require.Error(t, r.Err())
	assert.ErrorIs(t, r.Err(), io.ErrUnexpectedEOF)

	// The error latches: later reads return zero values.
	assert.Equal(t, byte(0), r.Uint8())
	assert.Equal(t, uint64(0), r.ULEB64())
}

func TestSkipPastEnd(t *testing.T) {
	r := dataReader(t, false, []byte{0x01, 0x02})
	r.Skip(2)
	require.NoError(t, r.Err())
	r.Skip(1)
	assert.ErrorIs(t, r.Err(), io.ErrUnexpectedEOF)
}

func TestString(t *testing.T) {
	e := &enc{}
	e.str("hello").str("")
	r := dataReader(t, false, e.buf)
	assert.Equal(t, "hello", r.String())
	assert.Equal(t, "", r.String())
	require.NoError(t, r.Err())

	// An unterminated string is a truncation error.
	r = dataReader(t, false, []byte("oops"))
	_ = r.String()
	assert.ErrorIs(t, r.Err(), io.ErrUnexpectedEOF)
}

func TestBytesView(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	r := dataReader(t, false, data)
	b := r.Bytes(3)
	require.NoError(t, r.Err())
	assert.Equal(t, []byte{1, 2, 3}, b)
	assert.Equal(t, uint64(3), r.Pos())
	assert.Nil(t, r.Bytes(2))
	assert.ErrorIs(t, r.Err(), io.ErrUnexpectedEOF)
}
