// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarfio

import (
	"fmt"

	"github.com/debugcore/go-dwarf/elffile"
)

// A UnitDescriptor describes one compilation unit's framing: its
// position and size in the debug section, DWARF version, address
// size, 32/64-bit format and resolved abbreviation table.
type UnitDescriptor struct {
	File        *elffile.File
	Section     *elffile.Section
	Version     uint16
	AddressSize uint8
	Is64        bool
	AbbrevOffs  uint64
	UnitOffs    uint64
	UnitSize    uint64
	Abbrevs     *AbbrevTable
}

// An AttributeValue is the decoded body of one attribute. Which
// fields are meaningful depends on the form: references and addresses
// fill Ref, numeric forms fill Data, and block, string and
// fixed-width data forms fill Buf with a view into section data.
type AttributeValue struct {
	Form uint16
	Ref  uint64
	Data uint64
	Buf  []byte
}

// CheckAddr verifies the value carries a machine address.
func (v *AttributeValue) CheckAddr() error {
	if v.Form == FormAddr {
		return nil
	}
	return fmt.Errorf("attribute form %#x is not an address", v.Form)
}

// CheckRef verifies the value carries an entry reference.
func (v *AttributeValue) CheckRef() error {
	switch v.Form {
	case FormRef, FormRefAddr, FormRef1, FormRef2, FormRef4, FormRef8, FormRefUdata:
		return nil
	}
	return fmt.Errorf("attribute form %#x is not a reference", v.Form)
}

// CheckData verifies the value carries a constant.
func (v *AttributeValue) CheckData() error {
	switch v.Form {
	case FormData1, FormData2, FormData4, FormData8, FormSdata, FormUdata:
		return nil
	}
	return fmt.Errorf("attribute form %#x is not a constant", v.Form)
}

// CheckFlag verifies the value carries a flag.
func (v *AttributeValue) CheckFlag() error {
	if v.Form == FormFlag {
		return nil
	}
	return fmt.Errorf("attribute form %#x is not a flag", v.Form)
}

// Block returns the raw bytes of a block-like value: blocks,
// fixed-width data, inline and indirect strings.
func (v *AttributeValue) Block() ([]byte, error) {
	switch v.Form {
	case FormBlock1, FormBlock2, FormBlock4, FormBlock,
		FormData1, FormData2, FormData4, FormData8,
		FormString, FormStrp:
		return v.Buf, nil
	}
	return nil, fmt.Errorf("attribute form %#x is not a block", v.Form)
}

// Text returns the string of an inline or indirect string value,
// without the terminator.
func (v *AttributeValue) Text() (string, error) {
	switch v.Form {
	case FormString, FormStrp:
		b := v.Buf
		if n := len(b); n > 0 && b[n-1] == 0 {
			b = b[:n-1]
		}
		return string(b), nil
	}
	return "", fmt.Errorf("attribute form %#x is not a string", v.Form)
}

// An EventKind distinguishes the three visitor events of one entry.
type EventKind uint8

const (
	// EntryBegin opens an entry; only Tag is set.
	EntryBegin EventKind = iota
	// EntryAttr delivers one decoded attribute.
	EntryAttr
	// EntryEnd closes an entry.
	EntryEnd
)

// An Event is one step of the entry stream delivered to a Visitor.
type Event struct {
	Kind EventKind
	Tag  uint16
	Attr uint16
	Form uint16
	Val  AttributeValue
}

// A Visitor receives the event stream of a walk. Returning an error
// aborts the walk.
type Visitor func(w *Walker, ev *Event) error

// A Walker iterates the compilation units and entries of one debug
// section scan. It owns the cursor and the current unit descriptor;
// re-entrant walks (sibling recursion, single-entry re-reads) create
// their own Walker or call ReadEntry recursively from a visitor.
type Walker struct {
	r        *Reader
	unit     *UnitDescriptor
	entryPos uint64
}

// NewSectionWalker binds a walker to a debug section at the given
// offset, before any unit is in scope.
func NewSectionWalker(sec *elffile.Section, off uint64) (*Walker, error) {
	r, err := NewSectionReader(nil, sec, off)
	if err != nil {
		return nil, err
	}
	return &Walker{r: r}, nil
}

// NewUnitWalker binds a walker to the section of an already-parsed
// unit, at a section-relative offset. Used to re-read single entries.
func NewUnitWalker(u *UnitDescriptor, off uint64) (*Walker, error) {
	r, err := NewSectionReader(u, u.Section, off)
	if err != nil {
		return nil, err
	}
	return &Walker{r: r, unit: u}, nil
}

// Pos returns the cursor position within the section.
func (w *Walker) Pos() uint64 { return w.r.Pos() }

// EntryPos returns the section offset of the entry currently being
// read.
func (w *Walker) EntryPos() uint64 { return w.entryPos }

// Unit returns the descriptor of the unit in scope.
func (w *Walker) Unit() *UnitDescriptor { return w.unit }

// ReadUnit parses one compilation unit header at the cursor and
// iterates its entries, driving the visitor. In the legacy ".debug"
// section the unit is DWARF version 1: there is no header, and the
// unit size is derived from the compile unit's sibling attribute.
func (w *Walker) ReadUnit(visit Visitor) (*UnitDescriptor, error) {
	sec := w.r.sect
	u := &UnitDescriptor{File: sec.File, Section: sec, UnitOffs: w.r.Pos()}
	if sec.Name != ".debug" {
		size := uint64(w.r.Uint32())
		if size == 0xffffffff {
			u.Is64 = true
			size = w.r.Uint64() + 12
		} else {
			size += 4
		}
		u.UnitSize = size
		u.Version = w.r.Uint16()
		u.AbbrevOffs = uint64(w.r.Uint32())
		u.AddressSize = w.r.Uint8()
		if err := w.r.Err(); err != nil {
			return nil, err
		}
		table, err := findAbbrevTable(sec.File, u.AbbrevOffs)
		if err != nil {
			return nil, err
		}
		u.Abbrevs = table
	} else {
		u.Version = 1
		u.AddressSize = 4
	}
	w.unit = u
	w.r.unit = u
	for u.UnitSize == 0 || w.r.Pos() < u.UnitOffs+u.UnitSize {
		if err := w.ReadEntry(visit); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// ReadEntry reads one entry at the cursor and drives the visitor with
// its begin/attribute/end events. A null entry (abbreviation code 0)
// produces no events; the cursor still advances past it.
func (w *Walker) ReadEntry(visit Visitor) error {
	r := w.r
	u := w.unit
	w.entryPos = r.Pos()

	var abbr *Abbrev
	var tag uint16
	var entryEnd uint64
	if u.Version >= 2 {
		code := r.ULEB()
		if err := r.Err(); err != nil {
			return err
		}
		if code == 0 {
			return nil
		}
		if u.Abbrevs == nil || uint64(code) >= uint64(len(u.Abbrevs.Abbrevs)) || u.Abbrevs.Abbrevs[code] == nil {
			return errInvalid(r.name, w.entryPos, "invalid abbreviation table")
		}
		abbr = u.Abbrevs.Abbrevs[code]
		tag = abbr.Tag
	} else {
		size := r.Uint32()
		if err := r.Err(); err != nil {
			return err
		}
		if size < 8 {
			// Padding entry.
			if size > 4 {
				r.Skip(uint64(size - 4))
			}
			return r.Err()
		}
		entryEnd = w.entryPos + uint64(size)
		tag = r.Uint16()
		if err := r.Err(); err != nil {
			return err
		}
	}

	ev := Event{Kind: EntryBegin, Tag: tag}
	if err := visit(w, &ev); err != nil {
		return err
	}

	emit := func(attr, form uint16) error {
		val, err := w.readAttribute(form)
		if err != nil {
			return err
		}
		if tag == TagCompileUnit && attr == AttrSibling && u.UnitSize == 0 {
			// Version 1 compile units have no size prefix; the
			// sibling reference bounds the unit.
			if err := val.CheckRef(); err != nil {
				return DecodeError{r.name, w.entryPos, err}
			}
			u.UnitSize = val.Ref - r.sect.Addr - u.UnitOffs
		}
		ev := Event{Kind: EntryAttr, Tag: tag, Attr: attr, Form: form, Val: val}
		return visit(w, &ev)
	}

	if abbr != nil {
		for _, as := range abbr.Attrs {
			form := as.Form
			if form == FormIndirect {
				form = uint16(r.ULEB())
				if err := r.Err(); err != nil {
					return err
				}
			}
			if err := emit(as.Attr, form); err != nil {
				return err
			}
		}
	} else {
		for r.Pos() < entryEnd {
			packed := r.Uint16()
			if err := r.Err(); err != nil {
				return err
			}
			attr, form := packed>>4, packed&0xf
			if attr == 0 || form == 0 {
				continue
			}
			if err := emit(attr, form); err != nil {
				return err
			}
		}
	}

	if tag == TagCompileUnit && u.UnitSize == 0 {
		return errInvalid(r.name, w.entryPos, "missing compilation unit sibling attribute")
	}
	ev = Event{Kind: EntryEnd, Tag: tag}
	return visit(w, &ev)
}

// readAttribute decodes one attribute body according to its form.
func (w *Walker) readAttribute(form uint16) (AttributeValue, error) {
	r := w.r
	u := w.unit
	v := AttributeValue{Form: form}
	switch form {
	case FormAddr:
		v.Ref = r.Addr()
	case FormRef:
		v.Ref = uint64(r.Uint32())
	case FormBlock1:
		v.Buf = r.Bytes(uint64(r.Uint8()))
	case FormBlock2:
		v.Buf = r.Bytes(uint64(r.Uint16()))
	case FormBlock4:
		v.Buf = r.Bytes(uint64(r.Uint32()))
	case FormBlock:
		v.Buf = r.Bytes(uint64(r.ULEB()))
	case FormData1, FormFlag:
		start := r.Pos()
		v.Data = uint64(r.Uint8())
		v.Buf = r.view(start)
	case FormData2:
		start := r.Pos()
		v.Data = uint64(r.Uint16())
		v.Buf = r.view(start)
	case FormData4:
		start := r.Pos()
		v.Data = uint64(r.Uint32())
		v.Buf = r.view(start)
	case FormData8:
		start := r.Pos()
		v.Data = r.Uint64()
		v.Buf = r.view(start)
	case FormSdata:
		v.Data = uint64(r.SLEB64())
	case FormUdata:
		v.Data = r.ULEB64()
	case FormString:
		start := r.Pos()
		_ = r.String()
		v.Buf = r.view(start)
	case FormStrp:
		size := 4
		if u.Is64 {
			size = 8
		}
		off := r.UintSized(size)
		if err := r.Err(); err != nil {
			return v, err
		}
		strtab, err := loadStringTable(u.File)
		if err != nil {
			return v, err
		}
		end := off
		for {
			if end >= uint64(len(strtab)) {
				return v, errInvalid(".debug_str", off, "invalid FORM_STRP attribute")
			}
			if strtab[end] == 0 {
				break
			}
			end++
		}
		v.Buf = strtab[off : end+1]
	case FormRefAddr:
		size := int(u.AddressSize)
		if u.Version >= 3 {
			if u.Is64 {
				size = 8
			} else {
				size = 4
			}
		}
		v.Ref = r.UintSized(size)
	case FormRef1:
		return w.readRelRef(form, uint64(r.Uint8()))
	case FormRef2:
		return w.readRelRef(form, uint64(r.Uint16()))
	case FormRef4:
		return w.readRelRef(form, uint64(r.Uint32()))
	case FormRef8:
		return w.readRelRef(form, r.Uint64())
	case FormRefUdata:
		return w.readRelRef(form, uint64(r.ULEB()))
	default:
		return v, errInvalid(r.name, r.Pos(), "invalid FORM")
	}
	return v, r.Err()
}

// readRelRef resolves a unit-relative reference to an absolute
// section address.
func (w *Walker) readRelRef(form uint16, off uint64) (AttributeValue, error) {
	if err := w.r.Err(); err != nil {
		return AttributeValue{}, err
	}
	u := w.unit
	if u.UnitSize > 0 && off >= u.UnitSize {
		return AttributeValue{}, errInvalid(w.r.name, w.r.Pos(), "invalid REF attribute value")
	}
	return AttributeValue{Form: form, Ref: w.r.sect.Addr + u.UnitOffs + off}, nil
}
