// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarfcache

import (
	"fmt"

	"github.com/debugcore/go-dwarf/dwarfio"
	"github.com/debugcore/go-dwarf/elffile"
)

// builder holds the scan-local state of one debug-section walk: the
// published current unit, the parent and previous-sibling cursors,
// and the per-entry latches of the two visitors. Sibling-triggered
// child recursion saves and restores the cursors around the nested
// walk.
type builder struct {
	cache   *Cache
	section *elffile.Section

	unit        *CompUnit
	parent      *ObjectInfo
	prevSibling *ObjectInfo

	cu      *CompUnit
	obj     *ObjectInfo
	sibling uint64
}

func (c *Cache) loadDebugSections() error {
	for _, sec := range c.File.Sections[1:] {
		if sec.Size == 0 || sec.Name == "" {
			continue
		}
		switch sec.Name {
		case ".debug", ".debug_info":
			if err := c.scanDebugSection(sec); err != nil {
				return err
			}
		case ".debug_ranges":
			c.DebugRanges = sec
		case ".debug_aranges":
			c.DebugARanges = sec
		case ".debug_line":
			c.DebugLine = sec
		case ".debug_loc":
			c.DebugLoc = sec
		}
	}
	return nil
}

func (c *Cache) scanDebugSection(sec *elffile.Section) error {
	w, err := dwarfio.NewSectionWalker(sec, 0)
	if err != nil {
		return err
	}
	b := &builder{cache: c, section: sec}
	for w.Pos() < sec.Size {
		desc, err := w.ReadUnit(b.visit)
		if err != nil {
			return err
		}
		if b.unit == nil {
			return fmt.Errorf("section %s: unit at offset %#x has no compile unit entry", sec.Name, desc.UnitOffs)
		}
		b.unit.Desc = *desc
	}
	return nil
}

// visit dispatches the entry stream: compile units feed the unit
// visitor, everything else the object visitor.
func (b *builder) visit(w *dwarfio.Walker, ev *dwarfio.Event) error {
	if ev.Tag == dwarfio.TagCompileUnit {
		return b.visitCompUnit(w, ev)
	}
	return b.visitObject(w, ev)
}

func (b *builder) visitCompUnit(w *dwarfio.Walker, ev *dwarfio.Event) error {
	switch ev.Kind {
	case dwarfio.EntryBegin:
		u := b.cache.findCompUnit(b.section.Addr + w.EntryPos())
		u.File = b.cache.File
		u.Section = b.section
		u.DebugRangesOffs = ^uint64(0)
		b.cu = u
	case dwarfio.EntryEnd:
		// Publish the unit: following entries are its children.
		b.unit = b.cu
		b.prevSibling = nil
	case dwarfio.EntryAttr:
		u := b.cu
		val := &ev.Val
		switch ev.Attr {
		case dwarfio.AttrLowPC:
			if err := val.CheckAddr(); err != nil {
				return err
			}
			u.LowPC = val.Ref
		case dwarfio.AttrHighPC:
			if err := val.CheckAddr(); err != nil {
				return err
			}
			u.HighPC = val.Ref
		case dwarfio.AttrRanges:
			if err := val.CheckData(); err != nil {
				return err
			}
			u.DebugRangesOffs = val.Data
		case dwarfio.AttrName:
			s, err := val.Text()
			if err != nil {
				return err
			}
			u.Name = s
		case dwarfio.AttrCompDir:
			s, err := val.Text()
			if err != nil {
				return err
			}
			u.Dir = s
		case dwarfio.AttrStmtList:
			if err := val.CheckData(); err != nil {
				return err
			}
			u.LineInfoOffs = val.Data
		case dwarfio.AttrBaseTypes:
			u.BaseTypes = b.cache.findCompUnit(val.Ref)
		}
	}
	return nil
}

func (b *builder) visitObject(w *dwarfio.Walker, ev *dwarfio.Event) error {
	switch ev.Kind {
	case dwarfio.EntryBegin:
		if b.unit == nil {
			return fmt.Errorf("section %s: entry at offset %#x outside any compilation unit", b.section.Name, w.EntryPos())
		}
		info := b.cache.findObjectInfo(b.section.Addr + w.EntryPos())
		info.Tag = ev.Tag
		info.CompUnit = b.unit
		info.Parent = b.parent
		b.obj = info
		b.sibling = 0
	case dwarfio.EntryEnd:
		return b.finishObject(w)
	case dwarfio.EntryAttr:
		info := b.obj
		val := &ev.Val
		switch ev.Attr {
		case dwarfio.AttrSibling:
			if err := val.CheckRef(); err != nil {
				return err
			}
			b.sibling = val.Ref - b.section.Addr
		case dwarfio.AttrType, dwarfio.AttrUserDefType:
			if err := val.CheckRef(); err != nil {
				return err
			}
			info.Type = b.cache.findObjectInfo(val.Ref)
		case dwarfio.AttrFundType:
			if err := val.CheckData(); err != nil {
				return err
			}
			size := uint64(len(val.Buf))
			if val.Form == dwarfio.FormSdata || val.Form == dwarfio.FormUdata {
				size = 8
			}
			info.Type = b.cache.findObjectInfo(b.section.Addr + w.Pos() - size)
			info.Type.Tag = dwarfio.TagLoUser
			info.CompUnit = b.unit
			info.Type.Encoding = uint16(val.Data)
		case dwarfio.AttrModFundType:
			t, err := b.readModFundType(w, val)
			if err != nil {
				return err
			}
			info.Type = t
		case dwarfio.AttrModUDType:
			t, err := b.readModUserDefType(w, val)
			if err != nil {
				return err
			}
			info.Type = t
		case dwarfio.AttrEncoding:
			if err := val.CheckData(); err != nil {
				return err
			}
			info.Encoding = uint16(val.Data)
		case dwarfio.AttrLowPC:
			if err := val.CheckAddr(); err != nil {
				return err
			}
			info.LowPC = val.Ref
		case dwarfio.AttrHighPC:
			if err := val.CheckAddr(); err != nil {
				return err
			}
			info.HighPC = val.Ref
		case dwarfio.AttrName:
			s, err := val.Text()
			if err != nil {
				return err
			}
			info.Name = s
		}
	}
	return nil
}

// finishObject stitches the finished entry into the tree and, when
// the entry carried a sibling hint, reads its children by recursing
// until the cursor reaches the sibling target.
func (b *builder) finishObject(w *dwarfio.Walker) error {
	info := b.obj
	if info.Tag == dwarfio.TagEnumerator && info.Type == nil {
		info.Type = b.parent
	}
	if b.prevSibling != nil {
		b.prevSibling.Sibling = info
	} else if b.parent != nil {
		b.parent.Children = info
	} else {
		b.unit.Children = info
	}
	b.prevSibling = info
	if b.sibling != 0 {
		sibPos := b.sibling
		parent, prev := b.parent, b.prevSibling
		b.parent, b.prevSibling = info, nil
		for w.Pos() < sibPos {
			if err := w.ReadEntry(b.visit); err != nil {
				return err
			}
		}
		b.parent, b.prevSibling = parent, prev
	}
	return nil
}

// readModFundType expands an AT_mod_fund_type block. The final byte
// names a fundamental type encoding; preceding bytes, scanned right
// to left, wrap it in pointer and reference nodes. Type qualifiers
// produce no node.
func (b *builder) readModFundType(w *dwarfio.Walker, val *dwarfio.AttributeValue) (*ObjectInfo, error) {
	buf, err := val.Block()
	if err != nil {
		return nil, err
	}
	if len(buf) < 1 {
		return nil, fmt.Errorf("invalid AT_mod_fund_type block")
	}
	t := b.cache.findObjectInfo(b.section.Addr + w.Pos() - 1)
	t.Tag = dwarfio.TagLoUser
	t.CompUnit = b.unit
	t.Encoding = uint16(buf[len(buf)-1])
	return b.expandModifiers(w, buf, len(buf)-1, t), nil
}

// readModUserDefType expands an AT_mod_u_d_type block. The final four
// bytes, in the file's byte order, reference the base type entry.
func (b *builder) readModUserDefType(w *dwarfio.Walker, val *dwarfio.AttributeValue) (*ObjectInfo, error) {
	buf, err := val.Block()
	if err != nil {
		return nil, err
	}
	if len(buf) < 4 {
		return nil, fmt.Errorf("invalid AT_mod_u_d_type block")
	}
	var ref uint64
	for i := 0; i < 4; i++ {
		idx := len(buf) - 4 + i
		if b.section.File.BigEndian {
			idx = len(buf) - 4 + (3 - i)
		}
		ref |= uint64(buf[idx]) << (i * 8)
	}
	t := b.cache.findObjectInfo(b.section.Addr + ref)
	return b.expandModifiers(w, buf, len(buf)-4, t), nil
}

func (b *builder) expandModifiers(w *dwarfio.Walker, buf []byte, pos int, t *ObjectInfo) *ObjectInfo {
	for pos > 0 {
		pos--
		var tag uint16
		switch buf[pos] {
		case dwarfio.ModVolatile, dwarfio.ModConst:
			continue
		case dwarfio.ModPointerTo:
			tag = dwarfio.TagPointerType
		case dwarfio.ModReferenceTo:
			tag = dwarfio.TagReferenceType
		}
		mod := b.cache.findObjectInfo(b.section.Addr + w.Pos() - uint64(len(buf)) + uint64(pos))
		mod.Tag = tag
		mod.CompUnit = b.unit
		mod.Type = t
		t = mod
	}
	return t
}
