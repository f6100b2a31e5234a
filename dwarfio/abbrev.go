// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarfio

import (
	"github.com/debugcore/go-dwarf/elffile"
)

// An AttrSpec is one (attribute, form) pair of an abbreviation.
type AttrSpec struct {
	Attr uint16
	Form uint16
}

// An Abbrev is one abbreviation declaration: the schema shared by all
// entries that reference its code.
type Abbrev struct {
	Tag      uint16
	Children bool
	Attrs    []AttrSpec
}

// An AbbrevTable holds the abbreviations of one .debug_abbrev table,
// indexed by abbreviation code. Code 0 is never declared.
type AbbrevTable struct {
	Offset  uint64
	Abbrevs []*Abbrev
}

// ioCache is the per-file state of this package: parsed abbreviation
// tables keyed by table offset and the loaded .debug_str contents.
// It is dropped by a file close listener.
type ioCache struct {
	abbrevTables map[uint64]*AbbrevTable
	stringTable  []byte
	haveStrings  bool
}

var ioCaches = map[*elffile.File]*ioCache{}
var ioCloseListenerOK bool

func fileIOCache(f *elffile.File) *ioCache {
	if !ioCloseListenerOK {
		elffile.AddCloseListener(func(f *elffile.File) {
			delete(ioCaches, f)
		})
		ioCloseListenerOK = true
	}
	c := ioCaches[f]
	if c == nil {
		c = &ioCache{}
		ioCaches[f] = c
	}
	return c
}

// LoadAbbrevTables parses the .debug_abbrev section of f into the
// per-file cache. It is idempotent. A file without .debug_abbrev
// loads an empty cache; units that then reference a table fail with
// an invalid-offset error.
func LoadAbbrevTables(f *elffile.File) error {
	cache := fileIOCache(f)
	if cache.abbrevTables != nil {
		return nil
	}
	cache.abbrevTables = map[uint64]*AbbrevTable{}

	var sec *elffile.Section
	for _, s := range f.Sections[1:] {
		if s.Name == ".debug_abbrev" {
			if sec != nil {
				return errInvalid(".debug_abbrev", 0, "more than one .debug_abbrev section in a file")
			}
			sec = s
		}
	}
	if sec == nil {
		return nil
	}

	r, err := NewSectionReader(nil, sec, 0)
	if err != nil {
		return err
	}
	var tableOffset uint64
	var table *AbbrevTable
	for {
		id := r.ULEB()
		if err := r.Err(); err != nil {
			return err
		}
		if id == 0 {
			// End of one abbreviation table.
			if table == nil {
				table = &AbbrevTable{Offset: tableOffset}
			}
			cache.abbrevTables[tableOffset] = table
			table = nil
			if r.Pos() >= sec.Size {
				break
			}
			tableOffset = r.Pos()
			continue
		}
		if id >= 0x1000000 {
			return errInvalid(sec.Name, r.Pos(), "invalid abbreviation table")
		}
		if table == nil {
			table = &AbbrevTable{Offset: tableOffset}
		}
		if uint64(len(table.Abbrevs)) <= uint64(id) {
			grown := make([]*Abbrev, id+1)
			copy(grown, table.Abbrevs)
			table.Abbrevs = grown
		}
		ab := &Abbrev{
			Tag:      uint16(r.ULEB()),
			Children: r.Uint8() != 0,
		}
		for {
			attr := r.ULEB()
			form := r.ULEB()
			if err := r.Err(); err != nil {
				return err
			}
			if attr >= 0x10000 || form >= 0x10000 {
				return errInvalid(sec.Name, r.Pos(), "invalid abbreviation table")
			}
			if attr == 0 && form == 0 {
				break
			}
			ab.Attrs = append(ab.Attrs, AttrSpec{uint16(attr), uint16(form)})
		}
		table.Abbrevs[id] = ab
	}
	return nil
}

// findAbbrevTable resolves a unit's abbreviation table by its exact
// .debug_abbrev offset.
func findAbbrevTable(f *elffile.File, offs uint64) (*AbbrevTable, error) {
	cache := fileIOCache(f)
	if t := cache.abbrevTables[offs]; t != nil {
		return t, nil
	}
	return nil, errInvalid(".debug_abbrev", offs, "invalid abbreviation table offset")
}

// loadStringTable loads the .debug_str section of f, caching the
// contents. Exactly one .debug_str section may exist.
func loadStringTable(f *elffile.File) ([]byte, error) {
	cache := fileIOCache(f)
	if cache.haveStrings {
		return cache.stringTable, nil
	}
	var sec *elffile.Section
	for _, s := range f.Sections[1:] {
		if s.Name == ".debug_str" {
			if sec != nil {
				return nil, errInvalid(".debug_str", 0, "more than one .debug_str section in a file")
			}
			sec = s
		}
	}
	if sec == nil {
		return nil, errInvalid(".debug_str", 0, "section .debug_str not found")
	}
	if err := sec.Load(); err != nil {
		return nil, errInvalid(".debug_str", 0, "invalid .debug_str section")
	}
	cache.stringTable = sec.Data[:sec.Size]
	cache.haveStrings = true
	return cache.stringTable, nil
}
