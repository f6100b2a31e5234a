// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/debugcore/go-dwarf/dwarfcache"
	"github.com/debugcore/go-dwarf/dwarfio"
	"github.com/debugcore/go-dwarf/elffile"
)

var (
	heading = color.New(color.FgCyan, color.Bold).SprintfFunc()
	dim     = color.New(color.Faint).SprintfFunc()
)

func openCache(path string) (*elffile.File, *dwarfcache.Cache, error) {
	f, err := elffile.Open(path)
	if err != nil {
		return nil, nil, err
	}
	c, err := dwarfcache.GetCache(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return f, c, nil
}

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Print compilation units and their entry trees",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, c, err := openCache(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		for _, u := range c.CompUnits {
			fmt.Println(heading("unit %#x %s", u.ID, u.Name))
			fmt.Printf("  dir %s  pc %#x-%#x  version %d\n", u.Dir, u.LowPC, u.HighPC, u.Desc.Version)
			dumpTree(u.Children, 1)
		}
		return nil
	},
}

func dumpTree(obj *dwarfcache.ObjectInfo, depth int) {
	for ; obj != nil; obj = obj.Sibling {
		for i := 0; i < depth; i++ {
			fmt.Print("  ")
		}
		fmt.Printf("%s %s", tagName(obj.Tag), obj.Name)
		if obj.LowPC != 0 || obj.HighPC != 0 {
			fmt.Printf(" pc %#x-%#x", obj.LowPC, obj.HighPC)
		}
		if obj.Type != nil {
			fmt.Print(dim(" type %#x", obj.Type.ID))
		}
		fmt.Println()
		dumpTree(obj.Children, depth+1)
	}
}

var linesCmd = &cobra.Command{
	Use:   "lines <file>",
	Short: "Print per-unit line-number tables",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, c, err := openCache(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		for _, u := range c.CompUnits {
			fmt.Println(heading("unit %#x %s", u.ID, u.Name))
			if err := dwarfcache.LoadLineNumbers(c, u); err != nil {
				fmt.Println(dim("  %v", err))
				continue
			}
			for _, s := range u.States {
				file := "?"
				if s.File >= 1 && int(s.File) <= len(u.Files) {
					file = u.Files[s.File-1].Name
				}
				fmt.Printf("  %#x %s:%d:%d%s\n", s.Address, file, s.Line, s.Column, lineFlags(s.Flags))
			}
		}
		return nil
	},
}

func lineFlags(f dwarfcache.LineFlags) string {
	var s string
	if f&dwarfcache.LineIsStmt != 0 {
		s += " stmt"
	}
	if f&dwarfcache.LineBasicBlock != 0 {
		s += " bb"
	}
	if f&dwarfcache.LinePrologueEnd != 0 {
		s += " prologue_end"
	}
	if f&dwarfcache.LineEpilogueBegin != 0 {
		s += " epilogue_begin"
	}
	if f&dwarfcache.LineEndSequence != 0 {
		s += " end_sequence"
	}
	return s
}

var symbolsCmd = &cobra.Command{
	Use:   "symbols <file>",
	Short: "Print the address-sorted symbol table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, c, err := openCache(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		for _, sym := range c.SortedSymbols {
			name := sym.Name()
			if viper.GetBool("demangle") {
				name = sym.DemangledName()
			}
			fmt.Printf("%#16x %s %s\n", sym.Address(), sym.Type(), name)
		}
		return nil
	},
}

var tagNames = map[uint16]string{
	dwarfio.TagArrayType:       "array_type",
	dwarfio.TagClassType:       "class_type",
	dwarfio.TagEnumerationType: "enumeration_type",
	dwarfio.TagFormalParameter: "formal_parameter",
	dwarfio.TagLexicalBlock:    "lexical_block",
	dwarfio.TagMember:          "member",
	dwarfio.TagPointerType:     "pointer_type",
	dwarfio.TagReferenceType:   "reference_type",
	dwarfio.TagCompileUnit:     "compile_unit",
	dwarfio.TagStructureType:   "structure_type",
	dwarfio.TagSubroutineType:  "subroutine_type",
	dwarfio.TagTypedef:         "typedef",
	dwarfio.TagUnionType:       "union_type",
	dwarfio.TagSubrangeType:    "subrange_type",
	dwarfio.TagBaseType:        "base_type",
	dwarfio.TagConstType:       "const_type",
	dwarfio.TagEnumerator:      "enumerator",
	dwarfio.TagSubprogram:      "subprogram",
	dwarfio.TagVariable:        "variable",
	dwarfio.TagVolatileType:    "volatile_type",
	dwarfio.TagLoUser:          "fundamental_type",
}

func tagName(tag uint16) string {
	if s, ok := tagNames[tag]; ok {
		return s
	}
	return fmt.Sprintf("tag_%#x", tag)
}
