// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dwarfcache builds a queryable in-memory model of the DWARF
// debug information of a loaded object file: compilation units, the
// cross-referenced entry tree, symbol tables sorted for address
// lookup, and per-unit line-number tables.
//
// Construction and queries run on a single dispatch thread; the
// package performs no locking.
package dwarfcache

import (
	"github.com/debugcore/go-dwarf/dwarfio"
	"github.com/debugcore/go-dwarf/elffile"
)

const cacheMagic = 0x44574143

// An ObjectInfo is one debugging information entry. Its ID is the
// absolute section offset of the entry, which is unique within a
// file.
type ObjectInfo struct {
	ID       uint64
	Tag      uint16
	Encoding uint16
	Name     string
	LowPC    uint64
	HighPC   uint64

	CompUnit *CompUnit
	Parent   *ObjectInfo
	Children *ObjectInfo
	Sibling  *ObjectInfo
	Type     *ObjectInfo

	// ListNext chains entries in insertion order across the whole
	// cache.
	ListNext *ObjectInfo
}

// A CompUnit is one compilation unit. Its ID is the absolute section
// offset of the unit header.
type CompUnit struct {
	ID      uint64
	File    *elffile.File
	Section *elffile.Section
	Desc    dwarfio.UnitDescriptor

	Name            string
	Dir             string
	LowPC           uint64
	HighPC          uint64
	DebugRangesOffs uint64
	LineInfoOffs    uint64
	BaseTypes       *CompUnit
	Children        *ObjectInfo

	// Line-number state, populated lazily by LoadLineNumbers.
	Dirs   []string
	Files  []FileInfo
	States []LineState
}

// A Cache is the DWARF model of one object file. It is created
// lazily by GetCache and dropped when the file is closed.
type Cache struct {
	File *elffile.File

	CompUnits   []*CompUnit
	SymSections []*SymbolSection

	// SortedSymbols holds every function and data symbol with a
	// non-zero address, ascending by address.
	SortedSymbols []Symbol

	// ObjectList is the head of the insertion-order entry chain.
	ObjectList *ObjectInfo

	DebugRanges  *elffile.Section
	DebugARanges *elffile.Section
	DebugLine    *elffile.Section
	DebugLoc     *elffile.Section

	objects        map[uint64]*ObjectInfo
	objectListTail *ObjectInfo
	err            error
	magic          uint32
}

var caches = map[*elffile.File]*Cache{}
var cacheCloseListenerOK bool

// GetCache returns the DWARF cache for f, building it on first call.
// A failed build is permanent for this file load: the error is stored
// and returned by every subsequent call.
func GetCache(f *elffile.File) (*Cache, error) {
	c := caches[f]
	if c == nil {
		if !cacheCloseListenerOK {
			elffile.AddCloseListener(freeCache)
			cacheCloseListenerOK = true
		}
		c = &Cache{
			File:    f,
			objects: map[uint64]*ObjectInfo{},
			magic:   cacheMagic,
		}
		caches[f] = c
		c.err = c.build()
	}
	if c.err != nil {
		return nil, c.err
	}
	return c, nil
}

func (c *Cache) build() error {
	if err := dwarfio.LoadAbbrevTables(c.File); err != nil {
		return err
	}
	if err := c.loadSymbolTables(); err != nil {
		return err
	}
	return c.loadDebugSections()
}

func freeCache(f *elffile.File) {
	c := caches[f]
	if c == nil || c.magic != cacheMagic {
		return
	}
	c.magic = 0
	delete(caches, f)
}

// FindObject returns the entry whose ID equals the given absolute
// section offset, or nil.
func (c *Cache) FindObject(id uint64) *ObjectInfo {
	return c.objects[id]
}

// findObjectInfo is the single creation point for entries: it returns
// the existing entry at id or inserts a fresh one, linking it into
// the insertion-order chain.
func (c *Cache) findObjectInfo(id uint64) *ObjectInfo {
	if info := c.objects[id]; info != nil {
		return info
	}
	info := &ObjectInfo{ID: id}
	c.objects[id] = info
	if c.ObjectList == nil {
		c.ObjectList = info
	} else {
		c.objectListTail.ListNext = info
	}
	c.objectListTail = info
	return info
}

// findCompUnit returns the unit with the given ID, creating it on
// first reference. Forward references from base-types links create
// the unit before its header is scanned.
func (c *Cache) findCompUnit(id uint64) *CompUnit {
	for _, u := range c.CompUnits {
		if u.ID == id {
			return u
		}
	}
	u := &CompUnit{ID: id}
	c.CompUnits = append(c.CompUnits, u)
	return u
}
