// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarfcache

import (
	"fmt"

	"github.com/debugcore/go-dwarf/dwarfio"
)

// Statement program standard opcode encodings
const (
	lnsCopy           = 1
	lnsAdvancePC      = 2
	lnsAdvanceLine    = 3
	lnsSetFile        = 4
	lnsSetColumn      = 5
	lnsNegateStmt     = 6
	lnsSetBasicBlock  = 7
	lnsConstAddPC     = 8
	lnsFixedAdvancePC = 9

	// DWARF 3
	lnsSetPrologueEnd   = 10
	lnsSetEpilogueBegin = 11
	lnsSetISA           = 12
)

// Statement program extended opcode encodings
const (
	lneEndSequence = 1
	lneSetAddress  = 2
	lneDefineFile  = 3
)

// LineFlags mark properties of one line table row.
type LineFlags uint8

const (
	LineIsStmt LineFlags = 1 << iota
	LineBasicBlock
	LinePrologueEnd
	LineEpilogueBegin
	LineEndSequence
)

// A FileInfo is one entry of a unit's file table.
type FileInfo struct {
	Name    string
	Dir     string
	ModTime uint64
	Size    uint64
}

// A LineState is one row of a unit's line table: the machine state of
// the statement program at an emit point.
type LineState struct {
	Address uint64
	File    uint32
	Line    uint32
	Column  uint32
	ISA     uint8
	Flags   LineFlags
}

func lineErr(off uint64, msg string) error {
	return dwarfio.DecodeError{Name: ".debug_line", Offset: off, Err: fmt.Errorf("%s", msg)}
}

// LoadLineNumbers populates the unit's directory, file and line
// tables from its statement program. It is idempotent; a failure
// drops the unit's partial tables and leaves the rest of the cache
// intact.
func LoadLineNumbers(c *Cache, u *CompUnit) error {
	if u.Files != nil && u.Dirs != nil {
		return nil
	}
	if c.DebugLine == nil {
		return lineErr(0, "section .debug_line not found")
	}
	if err := c.DebugLine.Load(); err != nil {
		return err
	}
	if err := runLineProgram(c, u); err != nil {
		u.Dirs = nil
		u.Files = nil
		u.States = nil
		return err
	}
	return nil
}

func addFile(u *CompUnit, fi FileInfo) {
	if fi.Dir == "" {
		fi.Dir = u.Dir
	}
	u.Files = append(u.Files, fi)
}

func runLineProgram(c *Cache, u *CompUnit) error {
	r := dwarfio.NewDataReader(&u.Desc, ".debug_line", c.DebugLine.Data, u.LineInfoOffs, c.DebugLine.Size)

	unitSize := uint64(r.Uint32())
	dwarf64 := false
	if unitSize == 0xffffffff {
		unitSize = r.Uint64() + 12
		dwarf64 = true
	} else {
		unitSize += 4
	}
	r.Uint16() // line info version
	headerSize := uint64(0)
	if dwarf64 {
		headerSize = r.Uint64()
	} else {
		headerSize = uint64(r.Uint32())
	}
	headerPos := r.Pos()
	minInstructionLength := r.Uint8()
	defaultIsStmt := r.Uint8() != 0
	lineBase := int8(r.Uint8())
	lineRange := r.Uint8()
	opcodeBase := r.Uint8()
	if err := r.Err(); err != nil {
		return err
	}
	if lineRange == 0 || opcodeBase == 0 {
		return lineErr(headerPos, "invalid line info header")
	}
	r.Bytes(uint64(opcodeBase) - 1) // standard opcode argument counts

	u.Dirs = make([]string, 0, 8)
	u.Files = make([]FileInfo, 0, 16)

	// Include directories.
	for {
		name := r.String()
		if err := r.Err(); err != nil {
			return err
		}
		if name == "" {
			break
		}
		u.Dirs = append(u.Dirs, name)
	}

	// File table. Directory index 0 refers to the compilation
	// directory.
	for {
		name := r.String()
		if err := r.Err(); err != nil {
			return err
		}
		if name == "" {
			break
		}
		fi := FileInfo{Name: name}
		dir := r.ULEB()
		if dir > 0 && uint64(dir) <= uint64(len(u.Dirs)) {
			fi.Dir = u.Dirs[dir-1]
		}
		fi.ModTime = uint64(r.ULEB())
		fi.Size = uint64(r.ULEB())
		addFile(u, fi)
	}

	if err := r.Err(); err != nil {
		return err
	}
	if headerPos+headerSize != r.Pos() {
		return lineErr(r.Pos(), "invalid line info header")
	}

	state := LineState{File: 1, Line: 1}
	if defaultIsStmt {
		state.Flags |= LineIsStmt
	}
	for r.Pos() < u.LineInfoOffs+unitSize {
		opcode := r.Uint8()
		if err := r.Err(); err != nil {
			return err
		}
		switch {
		case opcode >= opcodeBase:
			// Special opcode: advance line and address in one step.
			adj := uint32(opcode - opcodeBase)
			state.Line += uint32(int32(adj%uint32(lineRange)) + int32(lineBase))
			state.Address += uint64(adj/uint32(lineRange)) * uint64(minInstructionLength)
			u.States = append(u.States, state)
			state.Flags &^= LineBasicBlock | LinePrologueEnd | LineEpilogueBegin
		case opcode == 0:
			opSize := uint64(r.ULEB())
			opPos := r.Pos()
			switch r.Uint8() {
			case lneDefineFile:
				fi := FileInfo{Name: r.String()}
				dir := r.ULEB()
				if dir > 0 && uint64(dir) <= uint64(len(u.Dirs)) {
					fi.Dir = u.Dirs[dir-1]
				}
				fi.ModTime = uint64(r.ULEB())
				fi.Size = uint64(r.ULEB())
				addFile(u, fi)
			case lneEndSequence:
				state.Flags |= LineEndSequence
				u.States = append(u.States, state)
				state = LineState{File: 1, Line: 1}
				if defaultIsStmt {
					state.Flags |= LineIsStmt
				}
			case lneSetAddress:
				state.Address = r.Addr()
			default:
				r.Skip(opSize - 1)
			}
			if err := r.Err(); err != nil {
				return err
			}
			if r.Pos() != opPos+opSize {
				return lineErr(r.Pos(), "invalid line info op size")
			}
		default:
			switch opcode {
			case lnsCopy:
				u.States = append(u.States, state)
				state.Flags &^= LineBasicBlock | LinePrologueEnd | LineEpilogueBegin
			case lnsAdvancePC:
				state.Address += r.ULEB64() * uint64(minInstructionLength)
			case lnsAdvanceLine:
				state.Line += uint32(r.SLEB())
			case lnsSetFile:
				state.File = r.ULEB()
			case lnsSetColumn:
				state.Column = r.ULEB()
			case lnsNegateStmt:
				state.Flags ^= LineIsStmt
			case lnsSetBasicBlock:
				state.Flags |= LineBasicBlock
			case lnsConstAddPC:
				state.Address += uint64((255-uint32(opcodeBase))/uint32(lineRange)) * uint64(minInstructionLength)
			case lnsFixedAdvancePC:
				state.Address += uint64(r.Uint16())
			case lnsSetPrologueEnd:
				state.Flags |= LinePrologueEnd
			case lnsSetEpilogueBegin:
				state.Flags |= LineEpilogueBegin
			case lnsSetISA:
				state.ISA = uint8(r.ULEB())
			default:
				return lineErr(r.Pos(), "invalid line info op code")
			}
			if err := r.Err(); err != nil {
				return err
			}
		}
	}
	return r.Err()
}
