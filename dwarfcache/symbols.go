// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarfcache

import (
	"debug/elf"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/ianlancetaylor/demangle"

	"github.com/debugcore/go-dwarf/elffile"
)

// SymHashSize is the bucket count of the per-section symbol name
// hash. CalcSymbolNameHash returns values in [0, SymHashSize).
const SymHashSize = 1023

// A SymbolSection is one SHT_SYMTAB section: views of the raw symbol
// and string pools plus a chained name hash over the symbol indexes.
type SymbolSection struct {
	File    *elffile.File
	Index   int
	StrPool []byte
	SymPool []byte
	SymCnt  int

	// symbolHash chains symbol indexes by name hash; index 0 is the
	// null symbol and doubles as the chain terminator.
	symbolHash [SymHashSize]uint32
	hashNext   []uint32
}

// A Symbol references one entry of a symbol section's pool.
type Symbol struct {
	Section *SymbolSection
	Index   int
}

func (s Symbol) order() binary.ByteOrder {
	if s.Section.File.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (s Symbol) raw() []byte {
	size := elf.Sym32Size
	if s.Section.File.Elf64 {
		size = elf.Sym64Size
	}
	return s.Section.SymPool[s.Index*size : (s.Index+1)*size]
}

func (s Symbol) nameOffset() uint32 {
	return s.order().Uint32(s.raw())
}

// Value returns the symbol's raw st_value.
func (s Symbol) Value() uint64 {
	b := s.raw()
	if s.Section.File.Elf64 {
		return s.order().Uint64(b[8:])
	}
	return uint64(s.order().Uint32(b[4:]))
}

// Info returns the symbol's st_info byte.
func (s Symbol) Info() byte {
	b := s.raw()
	if s.Section.File.Elf64 {
		return b[4]
	}
	return b[12]
}

// Type returns the symbol type from st_info.
func (s Symbol) Type() elf.SymType {
	return elf.ST_TYPE(s.Info())
}

// Address returns the symbol's value for function and data symbols,
// and 0 for everything else.
func (s Symbol) Address() uint64 {
	switch s.Type() {
	case elf.STT_OBJECT, elf.STT_FUNC:
		return s.Value()
	}
	return 0
}

// Name returns the symbol's name from the linked string pool.
func (s Symbol) Name() string {
	off := s.nameOffset()
	pool := s.Section.StrPool
	if uint64(off) >= uint64(len(pool)) {
		return ""
	}
	end := off
	for end < uint32(len(pool)) && pool[end] != 0 {
		end++
	}
	return string(pool[off:end])
}

// DemangledName returns the symbol's name with any C++ mangling
// removed, or the raw name when it does not demangle.
func (s Symbol) DemangledName() string {
	return demangle.Filter(s.Name())
}

// CalcSymbolNameHash hashes a symbol name into [0, SymHashSize). The
// function is the PJW string hash reduced modulo the table size.
func CalcSymbolNameHash(s string) uint32 {
	var h uint32
	for i := 0; i < len(s); i++ {
		h = h<<4 + uint32(s[i])
		g := h & 0xf0000000
		if g != 0 {
			h ^= g >> 24
		}
		h &^= g
	}
	return h % SymHashSize
}

func (c *Cache) loadSymbolTables() error {
	f := c.File
	symSize := elf.Sym32Size
	if f.Elf64 {
		symSize = elf.Sym64Size
	}
	cnt := 0
	for _, sec := range f.Sections[1:] {
		if sec.Size == 0 || sec.Type != elf.SHT_SYMTAB {
			continue
		}
		if sec.Link == 0 || int(sec.Link) >= len(f.Sections) {
			return fmt.Errorf("symbol section %s: invalid string table link %d", sec.Name, sec.Link)
		}
		strSec := f.Sections[sec.Link]
		if err := sec.Load(); err != nil {
			return err
		}
		if err := strSec.Load(); err != nil {
			return err
		}
		tbl := &SymbolSection{
			File:    f,
			Index:   len(c.SymSections),
			StrPool: strSec.Data[:strSec.Size],
			SymPool: sec.Data[:sec.Size],
			SymCnt:  int(sec.Size) / symSize,
		}
		tbl.hashNext = make([]uint32, tbl.SymCnt)
		c.SymSections = append(c.SymSections, tbl)
		for i := 0; i < tbl.SymCnt; i++ {
			sym := Symbol{tbl, i}
			if sym.Address() != 0 {
				cnt++
			}
			off := sym.nameOffset()
			if off == 0 {
				continue
			}
			if uint64(off) >= uint64(len(tbl.StrPool)) {
				return fmt.Errorf("symbol section %s: name offset %#x outside string pool", sec.Name, off)
			}
			h := CalcSymbolNameHash(sym.Name())
			tbl.hashNext[i] = tbl.symbolHash[h]
			tbl.symbolHash[h] = uint32(i)
		}
	}
	c.SortedSymbols = make([]Symbol, 0, cnt)
	for _, tbl := range c.SymSections {
		for i := 0; i < tbl.SymCnt; i++ {
			sym := Symbol{tbl, i}
			if sym.Address() != 0 {
				c.SortedSymbols = append(c.SortedSymbols, sym)
			}
		}
	}
	sort.SliceStable(c.SortedSymbols, func(i, j int) bool {
		return c.SortedSymbols[i].Address() < c.SortedSymbols[j].Address()
	})
	return nil
}

// LookupName returns the symbols of this section whose name equals
// name, in reverse insertion order.
func (t *SymbolSection) LookupName(name string) []Symbol {
	var out []Symbol
	h := CalcSymbolNameHash(name)
	for i := t.symbolHash[h]; i != 0; i = t.hashNext[i] {
		sym := Symbol{t, int(i)}
		if sym.Name() == name {
			out = append(out, sym)
		}
	}
	return out
}

// FindSymbol returns the function or data symbol covering the largest
// address not above addr.
func (c *Cache) FindSymbol(addr uint64) (Symbol, bool) {
	i := sort.Search(len(c.SortedSymbols), func(i int) bool {
		return c.SortedSymbols[i].Address() > addr
	})
	if i == 0 {
		return Symbol{}, false
	}
	return c.SortedSymbols[i-1], true
}
