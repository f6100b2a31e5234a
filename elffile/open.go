// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elffile

import (
	"debug/elf"
	"encoding/binary"
	"fmt"
)

// Open loads the section table of the named ELF file. Section
// contents are read on first Load.
//
// The caller must Close the returned File to release the underlying
// reader and run close listeners.
func Open(path string) (*File, error) {
	ef, err := elf.Open(path)
	if err != nil {
		return nil, err
	}
	f := &File{
		Path:      path,
		Elf64:     ef.Class == elf.ELFCLASS64,
		BigEndian: ef.ByteOrder == binary.BigEndian,
		closer:    ef,
	}
	if len(ef.Sections) == 0 {
		ef.Close()
		return nil, fmt.Errorf("%s: no section table", path)
	}
	for i, es := range ef.Sections {
		es := es
		s := &Section{
			File:  f,
			Index: i,
			Name:  es.Name,
			Type:  es.Type,
			Link:  es.Link,
			Addr:  es.Addr,
			Size:  es.Size,
		}
		if es.Type != elf.SHT_NOBITS {
			s.load = es.Data
		}
		f.Sections = append(f.Sections, s)
	}
	return f, nil
}
