package elf_decoder

// This file contains the decoder for the .dynamic section.

import (
	"fmt"

	"github.com/pkg/errors"
)

const (
	DynamicTagNull           = 0
	DynamicTagNeeded         = 1
	DynamicTagPltRelSz       = 2
	DynamicTagPltGot         = 3
	DynamicTagHash           = 4
	DynamicTagStrTab         = 5
	DynamicTagSymTab         = 6
	DynamicTagRelA           = 7
	DynamicTagRelASz         = 8
	DynamicTagRelAEnt        = 9
	DynamicTagStrSz          = 10
	DynamicTagSymEnt         = 11
	DynamicTagInit           = 12
	DynamicTagFini           = 13
	DynamicTagSOName         = 14
	DynamicTagRPath          = 15
	DynamicTagSymbolic       = 16
	DynamicTagRel            = 17
	DynamicTagRelSz          = 18
	DynamicTagRelEnt         = 19
	DynamicTagPltRel         = 20
	DynamicTagDebug          = 21
	DynamicTagTextRel        = 22
	DynamicTagJmpRel         = 23
	DynamicTagBindNow        = 24
	DynamicTagInitArray      = 25
	DynamicTagFiniArray      = 26
	DynamicTagInitArraySz    = 27
	DynamicTagFiniArraySz    = 28
	DynamicTagRunPath        = 29
	DynamicTagFlags          = 30
	DynamicTagPreInitArray   = 32
	DynamicTagPreInitArraySz = 33
	DynamicTagGNUHash        = 0x6ffffef5
	DynamicTagVerSym         = 0x6ffffff0
	DynamicTagRelACount      = 0x6ffffff9
	DynamicTagRelCount       = 0x6ffffffa
	DynamicTagFlags1         = 0x6ffffffb
	DynamicTagVerDef         = 0x6ffffffc
	DynamicTagVerDefNum      = 0x6ffffffd
	DynamicTagVerNeed        = 0x6ffffffe
	DynamicTagVerNeedNum     = 0x6fffffff
)

// The d_tag field of a dynamic entry. 32-bit tags are widened.
type DynamicTag uint64

var dynamicTagNames = map[DynamicTag]string{
	DynamicTagNull:           "DT_NULL",
	DynamicTagNeeded:         "DT_NEEDED",
	DynamicTagPltRelSz:       "DT_PLTRELSZ",
	DynamicTagPltGot:         "DT_PLTGOT",
	DynamicTagHash:           "DT_HASH",
	DynamicTagStrTab:         "DT_STRTAB",
	DynamicTagSymTab:         "DT_SYMTAB",
	DynamicTagRelA:           "DT_RELA",
	DynamicTagRelASz:         "DT_RELASZ",
	DynamicTagRelAEnt:        "DT_RELAENT",
	DynamicTagStrSz:          "DT_STRSZ",
	DynamicTagSymEnt:         "DT_SYMENT",
	DynamicTagInit:           "DT_INIT",
	DynamicTagFini:           "DT_FINI",
	DynamicTagSOName:         "DT_SONAME",
	DynamicTagRPath:          "DT_RPATH",
	DynamicTagSymbolic:       "DT_SYMBOLIC",
	DynamicTagRel:            "DT_REL",
	DynamicTagRelSz:          "DT_RELSZ",
	DynamicTagRelEnt:         "DT_RELENT",
	DynamicTagPltRel:         "DT_PLTREL",
	DynamicTagDebug:          "DT_DEBUG",
	DynamicTagTextRel:        "DT_TEXTREL",
	DynamicTagJmpRel:         "DT_JMPREL",
	DynamicTagBindNow:        "DT_BIND_NOW",
	DynamicTagInitArray:      "DT_INIT_ARRAY",
	DynamicTagFiniArray:      "DT_FINI_ARRAY",
	DynamicTagInitArraySz:    "DT_INIT_ARRAYSZ",
	DynamicTagFiniArraySz:    "DT_FINI_ARRAYSZ",
	DynamicTagRunPath:        "DT_RUNPATH",
	DynamicTagFlags:          "DT_FLAGS",
	DynamicTagPreInitArray:   "DT_PREINIT_ARRAY",
	DynamicTagPreInitArraySz: "DT_PREINIT_ARRAYSZ",
	DynamicTagGNUHash:        "DT_GNU_HASH",
	DynamicTagVerSym:         "DT_VERSYM",
	DynamicTagRelACount:      "DT_RELACOUNT",
	DynamicTagRelCount:       "DT_RELCOUNT",
	DynamicTagFlags1:         "DT_FLAGS_1",
	DynamicTagVerDef:         "DT_VERDEF",
	DynamicTagVerDefNum:      "DT_VERDEFNUM",
	DynamicTagVerNeed:        "DT_VERNEED",
	DynamicTagVerNeedNum:     "DT_VERNEEDNUM",
}

func (t DynamicTag) String() string {
	if name, ok := dynamicTagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown dynamic tag 0x%x", uint64(t))
}

// Returns true for tags whose value is an offset into the dynamic string
// table.
func (t DynamicTag) HasStringValue() bool {
	switch t {
	case DynamicTagNeeded, DynamicTagSOName, DynamicTagRPath,
		DynamicTagRunPath:
		return true
	}
	return false
}

// Holds a single entry in a .dynamic section. The Value can be either an
// address, a size or a string table offset, depending on the Tag.
type DynamicEntry struct {
	Tag   DynamicTag
	Value uint64
	// Filled in after parsing, only for tags where HasStringValue is true.
	Name string
}

func (n *DynamicEntry) String() string {
	if n.Tag.HasStringValue() {
		return fmt.Sprintf("%s, value 0x%x (%s)", n.Tag, n.Value, n.Name)
	}
	return fmt.Sprintf("%s, value 0x%x", n.Tag, n.Value)
}

// A section of type Dynamic. Entries end with the first DT_NULL entry, which
// is included; any slots after it are not decoded.
type DynamicSection struct {
	SectionHeader
	Entries []DynamicEntry
}

// Returns the first entry with the given tag, or nil if there isn't one.
func (s *DynamicSection) Entry(tag DynamicTag) *DynamicEntry {
	for i := range s.Entries {
		if s.Entries[i].Tag == tag {
			return &(s.Entries[i])
		}
	}
	return nil
}

func decodeDynamicSection(r *ByteReader, class Class, h SectionHeader) (
	*DynamicSection, error) {
	count, e := h.entryCount(r.Extent())
	if e != nil {
		return nil, e
	}
	s := &DynamicSection{SectionHeader: h}
	for i := uint64(0); i < count; i++ {
		f := newFieldReader(r, class, h.Offset+i*h.EntrySize)
		entry := DynamicEntry{
			Tag:   DynamicTag(f.word()),
			Value: f.word(),
		}
		if f.e != nil {
			return nil, errors.Wrapf(f.e, "reading dynamic entry %d", i)
		}
		s.Entries = append(s.Entries, entry)
		if entry.Tag == DynamicTagNull {
			break
		}
	}
	return s, nil
}
