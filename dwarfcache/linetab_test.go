// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarfcache

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debugcore/go-dwarf/dwarfio"
)

// lineProgram frames a version 2 line-number unit: the standard
// header with the given parameters, one source file "a.c", and the
// given program bytes.
func lineProgram(lineBase int8, lineRange, opcodeBase byte, program []byte) []byte {
	hdr := &enc{}
	hdr.u1(1)              // min instruction length
	hdr.u1(1)              // default is_stmt
	hdr.u1(byte(lineBase)) //
	hdr.u1(lineRange)      //
	hdr.u1(opcodeBase)     //
	for i := byte(1); i < opcodeBase; i++ {
		hdr.u1(0) // standard opcode argument counts, unused
	}
	hdr.u1(0)                              // end of include directories
	hdr.str("a.c").uleb(0).uleb(0).uleb(0) // file table
	hdr.u1(0)                              // end of file table

	e := &enc{}
	e.u4(uint32(2 + 4 + len(hdr.buf) + len(program))) // unit size less the length field
	e.u2(2)                                           // version
	e.u4(uint32(len(hdr.buf)))                        // header size
	e.raw(hdr.buf...)
	e.raw(program...)
	return e.buf
}

func lineCache(t *testing.T, data []byte) (*Cache, *CompUnit) {
	t.Helper()
	f := testFile(false, false, testSection(".debug_line", data))
	u := &CompUnit{
		File: f,
		Dir:  "/src",
		Desc: dwarfio.UnitDescriptor{File: f, AddressSize: 4},
	}
	c := &Cache{File: f, DebugLine: f.SectionByName(".debug_line")}
	return c, u
}

func TestLineProgramSpecialOpcode(t *testing.T) {
	prog := &enc{}
	prog.u1(0).uleb(5).u1(lneSetAddress).u4(0x2000)
	prog.u1(10 + 4 + 2) // special opcode: adjusted 6 with line range 4
	prog.u1(0).uleb(1).u1(lneEndSequence)

	c, u := lineCache(t, lineProgram(-1, 4, 10, prog.buf))
	require.NoError(t, LoadLineNumbers(c, u))

	want := []LineState{
		{Address: 0x2001, File: 1, Line: 2, Flags: LineIsStmt},
		{Address: 0x2001, File: 1, Line: 2, Flags: LineIsStmt | LineEndSequence},
	}
	if diff := cmp.Diff(want, u.States); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, u.Files, 1)
	assert.Equal(t, "a.c", u.Files[0].Name)
	assert.Equal(t, "/src", u.Files[0].Dir, "directory index 0 is the compilation directory")
}

func TestLineProgramStandardOpcodes(t *testing.T) {
	prog := &enc{}
	prog.u1(0).uleb(5).u1(lneSetAddress).u4(0x100)
	prog.u1(lnsAdvancePC).uleb(8)
	prog.u1(lnsAdvanceLine).sleb(41)
	prog.u1(lnsSetColumn).uleb(3)
	prog.u1(lnsNegateStmt)
	prog.u1(lnsSetBasicBlock)
	prog.u1(lnsCopy)
	prog.u1(lnsConstAddPC) // (255-10)/4 = 61
	prog.u1(lnsFixedAdvancePC).u2(7)
	prog.u1(lnsCopy)
	prog.u1(0).uleb(1).u1(lneEndSequence)

	c, u := lineCache(t, lineProgram(-1, 4, 10, prog.buf))
	require.NoError(t, LoadLineNumbers(c, u))

	require.Len(t, u.States, 3)
	first := u.States[0]
	assert.Equal(t, uint64(0x108), first.Address)
	assert.Equal(t, uint32(42), first.Line)
	assert.Equal(t, uint32(3), first.Column)
	assert.Equal(t, LineBasicBlock, first.Flags, "negate_stmt cleared the default is_stmt")

	second := u.States[1]
	assert.Equal(t, uint64(0x108+61+7), second.Address)
	assert.Equal(t, LineFlags(0), second.Flags, "copy cleared basic_block")
}

func TestLineProgramDefineFile(t *testing.T) {
	df := &enc{}
	df.str("b.c").uleb(0).uleb(0).uleb(0)

	prog := &enc{}
	prog.u1(0).uleb(uint64(1 + len(df.buf))).u1(lneDefineFile).raw(df.buf...)
	prog.u1(lnsCopy)
	prog.u1(0).uleb(1).u1(lneEndSequence)

	c, u := lineCache(t, lineProgram(-1, 4, 10, prog.buf))
	require.NoError(t, LoadLineNumbers(c, u))
	require.Len(t, u.Files, 2)
	assert.Equal(t, "b.c", u.Files[1].Name)
}

func TestLineProgramUnknownExtendedOpcode(t *testing.T) {
	prog := &enc{}
	prog.u1(0).uleb(3).u1(0x47).raw(0xaa, 0xbb) // skipped by size
	prog.u1(0).uleb(1).u1(lneEndSequence)

	c, u := lineCache(t, lineProgram(-1, 4, 10, prog.buf))
	require.NoError(t, LoadLineNumbers(c, u))
	require.Len(t, u.States, 1)
}

func TestLineProgramIdempotent(t *testing.T) {
	prog := &enc{}
	prog.u1(lnsCopy)
	prog.u1(0).uleb(1).u1(lneEndSequence)

	c, u := lineCache(t, lineProgram(-1, 4, 10, prog.buf))
	require.NoError(t, LoadLineNumbers(c, u))
	rows := len(u.States)
	require.NoError(t, LoadLineNumbers(c, u))
	assert.Len(t, u.States, rows)
}

func TestLineProgramBadHeaderSize(t *testing.T) {
	data := lineProgram(-1, 4, 10, []byte{lnsCopy})
	// Corrupt the header-size field.
	data[6]++
	c, u := lineCache(t, data)
	err := LoadLineNumbers(c, u)
	require.ErrorContains(t, err, "invalid line info header")
	assert.Nil(t, u.States)
	assert.Nil(t, u.Dirs)
	assert.Nil(t, u.Files)
}

func TestLineProgramBadOpcode(t *testing.T) {
	// With opcode_base 14, opcode 13 is below the special range but
	// past the defined standard set.
	prog := &enc{}
	prog.u1(13)

	c, u := lineCache(t, lineProgram(-1, 4, 14, prog.buf))
	err := LoadLineNumbers(c, u)
	require.ErrorContains(t, err, "invalid line info op code")
	assert.Nil(t, u.States)
}

func TestLineProgramBadExtendedSize(t *testing.T) {
	prog := &enc{}
	prog.u1(0).uleb(9).u1(lneEndSequence) // claims 9 bytes, has 1

	c, u := lineCache(t, lineProgram(-1, 4, 10, prog.buf))
	err := LoadLineNumbers(c, u)
	require.ErrorContains(t, err, "invalid line info op size")
}

func TestLineProgramMissingSection(t *testing.T) {
	f := testFile(false, false)
	u := &CompUnit{File: f, Desc: dwarfio.UnitDescriptor{File: f, AddressSize: 4}}
	c := &Cache{File: f}
	assert.ErrorContains(t, LoadLineNumbers(c, u), ".debug_line not found")
}
