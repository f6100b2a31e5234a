// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarfio

// Entry tag encodings
const (
	TagArrayType       = 0x01
	TagClassType       = 0x02
	TagEntryPoint      = 0x03
	TagEnumerationType = 0x04
	TagFormalParameter = 0x05
	TagLexicalBlock    = 0x0b
	TagMember          = 0x0d
	TagPointerType     = 0x0f
	TagReferenceType   = 0x10
	TagCompileUnit     = 0x11
	TagStringType      = 0x12
	TagStructureType   = 0x13
	TagSubroutineType  = 0x15
	TagTypedef         = 0x16
	TagUnionType       = 0x17
	TagVariant         = 0x19
	TagInheritance     = 0x1c
	TagSubrangeType    = 0x21
	TagBaseType        = 0x24
	TagConstType       = 0x26
	TagEnumerator      = 0x28
	TagSubprogram      = 0x2e
	TagVariable        = 0x34
	TagVolatileType    = 0x35
	TagLoUser          = 0x4080
	TagHiUser          = 0xffff
)

// Attribute encodings. DWARF version 1 stores attributes as packed
// 16-bit fields with the form in the low 4 bits; after the >>4 shift
// the v1 codes for shared attributes coincide with these values, so a
// single namespace covers versions 1 through 3.
const (
	AttrSibling            = 0x01
	AttrLocation           = 0x02
	AttrName               = 0x03
	AttrFundType           = 0x05 // DWARF 1
	AttrModFundType        = 0x06 // DWARF 1
	AttrUserDefType        = 0x07 // DWARF 1
	AttrModUDType          = 0x08 // DWARF 1
	AttrOrdering           = 0x09
	AttrByteSize           = 0x0b
	AttrBitOffset          = 0x0c
	AttrBitSize            = 0x0d
	AttrStmtList           = 0x10
	AttrLowPC              = 0x11
	AttrHighPC             = 0x12
	AttrLanguage           = 0x13
	AttrCompDir            = 0x1b
	AttrConstValue         = 0x1c
	AttrLowerBound         = 0x22
	AttrUpperBound         = 0x2f
	AttrBaseTypes          = 0x35
	AttrCount              = 0x37
	AttrDataMemberLocation = 0x38
	AttrDeclFile           = 0x3a
	AttrDeclLine           = 0x3b
	AttrEncoding           = 0x3e
	AttrExternal           = 0x3f
	AttrFrameBase          = 0x40
	AttrType               = 0x49
	AttrRanges             = 0x55
)

// Attribute form encodings. FormRef is the DWARF 1 unit-absolute
// reference; the rest follow the DWARF 2/3 numbering.
const (
	FormAddr     = 0x01
	FormRef      = 0x02 // DWARF 1
	FormBlock2   = 0x03
	FormBlock4   = 0x04
	FormData2    = 0x05
	FormData4    = 0x06
	FormData8    = 0x07
	FormString   = 0x08
	FormBlock    = 0x09
	FormBlock1   = 0x0a
	FormData1    = 0x0b
	FormFlag     = 0x0c
	FormSdata    = 0x0d
	FormStrp     = 0x0e
	FormUdata    = 0x0f
	FormRefAddr  = 0x10
	FormRef1     = 0x11
	FormRef2     = 0x12
	FormRef4     = 0x13
	FormRef8     = 0x14
	FormRefUdata = 0x15
	FormIndirect = 0x16
)

// DWARF 1 type modifier encodings, scanned right to left in
// AT_mod_fund_type and AT_mod_u_d_type blocks.
const (
	ModPointerTo   = 0x01
	ModReferenceTo = 0x02
	ModConst       = 0x03
	ModVolatile    = 0x04
)
