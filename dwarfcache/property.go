// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarfcache

import (
	"errors"
	"fmt"

	"github.com/debugcore/go-dwarf/dwarfio"
)

// A Context provides access to the memory of the debugged target.
type Context interface {
	ReadMemory(addr uint64, buf []byte) error
}

// External collaborators, injected by the embedding agent.
var (
	// EvaluateExpression evaluates a location or bound expression
	// held in v and stores the result back into v.
	EvaluateExpression = func(base uint64, v *PropertyValue) error {
		return errors.New("no expression evaluator")
	}

	// CheckBreakpointsOnMemoryRead is notified after every target
	// memory read performed while resolving a property.
	CheckBreakpointsOnMemoryRead = func(ctx Context, addr uint64, buf []byte) {}
)

// ErrNoAttr reports that an entry does not carry the requested
// attribute.
var ErrNoAttr = errors.New("no such attribute")

// ErrInvalidDataType reports a memory-backed property whose size
// cannot be read as a scalar.
var ErrInvalidDataType = errors.New("invalid data type")

// A PropertyValue is the resolved value of one entry attribute:
// either a scalar in Value, raw bytes in Addr, or a location
// expression result installed by the expression evaluator, possibly
// as an AccessFunc closure.
type PropertyValue struct {
	Ctx        Context
	Frame      int
	Object     *ObjectInfo
	Attr       uint16
	Form       uint16
	Value      uint64
	Addr       []byte
	BigEndian  bool
	AccessFunc func(v *PropertyValue, offset uint64) (uint64, error)
}

// GetNumericPropertyValue assembles a property's scalar value,
// honouring the byte order of raw-byte results.
func GetNumericPropertyValue(v *PropertyValue) uint64 {
	if v.Addr == nil {
		return v.Value
	}
	var res uint64
	n := len(v.Addr)
	for i := 0; i < n; i++ {
		idx := n - i - 1
		if v.BigEndian {
			idx = i
		}
		res = res<<8 | uint64(v.Addr[idx])
	}
	return res
}

// ReadObjectProperty extracts one attribute of obj by re-reading its
// entry with a single-attribute visitor. Reference-form values are
// chased through the target: the referenced entry's location names an
// address whose contents, sized by the entry's byte size, become the
// value.
func ReadObjectProperty(ctx Context, frame int, obj *ObjectInfo, attr uint16) (*PropertyValue, error) {
	unit := obj.CompUnit
	if unit == nil || unit.Desc.Section == nil {
		return nil, ErrNoAttr
	}
	v := &PropertyValue{
		Ctx:       ctx,
		Frame:     frame,
		Object:    obj,
		Attr:      attr,
		BigEndian: unit.File.BigEndian,
	}

	// An entry with a code address is its own location.
	if attr == dwarfio.AttrLocation && obj.LowPC != 0 {
		v.Value = obj.LowPC
		return v, nil
	}

	w, err := dwarfio.NewUnitWalker(&unit.Desc, obj.ID-unit.Desc.Section.Addr)
	if err != nil {
		return nil, err
	}
	var form uint16
	var val dwarfio.AttributeValue
	err = w.ReadEntry(func(_ *dwarfio.Walker, ev *dwarfio.Event) error {
		if ev.Kind == dwarfio.EntryAttr && ev.Attr == attr {
			form = ev.Form
			val = ev.Val
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	v.Form = form
	switch form {
	case dwarfio.FormRef, dwarfio.FormRefAddr, dwarfio.FormRef1, dwarfio.FormRef2,
		dwarfio.FormRef4, dwarfio.FormRef8, dwarfio.FormRefUdata:
		cache := caches[unit.File]
		if cache == nil {
			return nil, fmt.Errorf("no cache for %s", unit.File.Path)
		}
		refObj := cache.FindObject(val.Ref)
		if refObj == nil {
			return nil, fmt.Errorf("no entry at reference %#x", val.Ref)
		}
		addrVal, err := ReadAndEvaluateObjectProperty(ctx, frame, 0, refObj, dwarfio.AttrLocation)
		if err != nil {
			return nil, err
		}
		if addrVal.AccessFunc != nil {
			x, err := addrVal.AccessFunc(addrVal, 0)
			if err != nil {
				return nil, err
			}
			v.Value = x
			break
		}
		addr := GetNumericPropertyValue(addrVal)
		sizeVal, err := ReadAndEvaluateObjectProperty(ctx, frame, addr, refObj, dwarfio.AttrByteSize)
		if err != nil {
			return nil, err
		}
		size := GetNumericPropertyValue(sizeVal)
		if size < 1 || size > 8 {
			return nil, ErrInvalidDataType
		}
		buf := make([]byte, size)
		if err := ctx.ReadMemory(addr, buf); err != nil {
			return nil, err
		}
		CheckBreakpointsOnMemoryRead(ctx, addr, buf)
		v.Addr = buf
	case dwarfio.FormData1, dwarfio.FormData2, dwarfio.FormData4, dwarfio.FormData8,
		dwarfio.FormFlag, dwarfio.FormBlock1, dwarfio.FormBlock2, dwarfio.FormBlock4,
		dwarfio.FormBlock:
		v.Addr = val.Buf
	case dwarfio.FormSdata, dwarfio.FormUdata:
		v.Value = val.Data
	default:
		return nil, ErrNoAttr
	}
	return v, nil
}

// ReadAndEvaluateObjectProperty resolves an attribute and evaluates
// any location or bound expression it carries. Members of a union
// share offset 0, so a missing member location resolves to 0 without
// touching the target.
func ReadAndEvaluateObjectProperty(ctx Context, frame int, base uint64, obj *ObjectInfo, attr uint16) (*PropertyValue, error) {
	v, err := ReadObjectProperty(ctx, frame, obj, attr)
	if err != nil {
		if errors.Is(err, ErrNoAttr) && attr == dwarfio.AttrDataMemberLocation &&
			obj.Tag == dwarfio.TagMember && obj.Parent != nil && obj.Parent.Tag == dwarfio.TagUnionType {
			v := &PropertyValue{Ctx: ctx, Frame: frame, Object: obj, Attr: attr}
			if obj.CompUnit != nil && obj.CompUnit.File != nil {
				v.BigEndian = obj.CompUnit.File.BigEndian
			}
			return v, nil
		}
		return nil, err
	}
	switch attr {
	case dwarfio.AttrLocation, dwarfio.AttrDataMemberLocation, dwarfio.AttrFrameBase:
		switch v.Form {
		case dwarfio.FormBlock1, dwarfio.FormBlock2, dwarfio.FormBlock4, dwarfio.FormBlock:
			if err := EvaluateExpression(base, v); err != nil {
				return nil, err
			}
		case dwarfio.FormData4, dwarfio.FormData8:
			if attr == dwarfio.AttrLocation {
				if err := EvaluateExpression(base, v); err != nil {
					return nil, err
				}
			}
		}
	case dwarfio.AttrCount, dwarfio.AttrByteSize, dwarfio.AttrLowerBound, dwarfio.AttrUpperBound:
		switch v.Form {
		case dwarfio.FormBlock1, dwarfio.FormBlock2, dwarfio.FormBlock4, dwarfio.FormBlock:
			if err := EvaluateExpression(base, v); err != nil {
				return nil, err
			}
		}
	}
	return v, nil
}
