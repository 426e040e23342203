package elf_decoder

// This file contains the decoder for REL and RELA relocation sections.

import (
	"fmt"

	"github.com/pkg/errors"
)

// Relocation types for the x86-64 machine.
const (
	X86_64RelocationNone     = 0
	X86_64Relocation64       = 1
	X86_64RelocationPC32     = 2
	X86_64RelocationGOT32    = 3
	X86_64RelocationPLT32    = 4
	X86_64RelocationCopy     = 5
	X86_64RelocationGlobDat  = 6
	X86_64RelocationJumpSlot = 7
	X86_64RelocationRelative = 8
	X86_64RelocationGOTPCRel = 9
	X86_64Relocation32       = 10
	X86_64Relocation32S      = 11
	X86_64Relocation16       = 12
	X86_64RelocationPC16     = 13
	X86_64Relocation8        = 14
	X86_64RelocationPC8      = 15
	X86_64RelocationPC64     = 24
)

type X86_64RelocationType uint32

var x86_64RelocationNames = map[X86_64RelocationType]string{
	X86_64RelocationNone:     "R_X86_64_NONE",
	X86_64Relocation64:       "R_X86_64_64",
	X86_64RelocationPC32:     "R_X86_64_PC32",
	X86_64RelocationGOT32:    "R_X86_64_GOT32",
	X86_64RelocationPLT32:    "R_X86_64_PLT32",
	X86_64RelocationCopy:     "R_X86_64_COPY",
	X86_64RelocationGlobDat:  "R_X86_64_GLOB_DAT",
	X86_64RelocationJumpSlot: "R_X86_64_JUMP_SLOT",
	X86_64RelocationRelative: "R_X86_64_RELATIVE",
	X86_64RelocationGOTPCRel: "R_X86_64_GOTPCREL",
	X86_64Relocation32:       "R_X86_64_32",
	X86_64Relocation32S:      "R_X86_64_32S",
	X86_64Relocation16:       "R_X86_64_16",
	X86_64RelocationPC16:     "R_X86_64_PC16",
	X86_64Relocation8:        "R_X86_64_8",
	X86_64RelocationPC8:      "R_X86_64_PC8",
	X86_64RelocationPC64:     "R_X86_64_PC64",
}

func (t X86_64RelocationType) String() string {
	if name, ok := x86_64RelocationNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown x86-64 relocation type %d", uint32(t))
}

// A single REL or RELA entry. Type and SymbolIndex are split out of Info
// according to the file's class.
type RelocationEntry struct {
	Offset      uint64
	Info        uint64
	Type        uint32
	SymbolIndex uint32
	// Only meaningful if HasAddend is set, which is the case for entries in
	// RELA sections.
	Addend    int64
	HasAddend bool
	// Filled in from the linked symbol table after all sections are decoded.
	Symbol      string
	SymbolValue uint64
}

// Returns the relocation type interpreted as an x86-64 relocation. Only
// meaningful for files targeting that machine.
func (r *RelocationEntry) X86_64Type() X86_64RelocationType {
	return X86_64RelocationType(r.Type)
}

func (r *RelocationEntry) String() string {
	if r.HasAddend {
		return fmt.Sprintf("relocation at address 0x%016x with addend %d, "+
			"type %d, symbol %d (%s)", r.Offset, r.Addend, r.Type,
			r.SymbolIndex, r.Symbol)
	}
	return fmt.Sprintf("relocation at address 0x%016x, type %d, symbol %d "+
		"(%s)", r.Offset, r.Type, r.SymbolIndex, r.Symbol)
}

// Splits a relocation info word into its symbol index and type.
func splitRelocationInfo(class Class, info uint64) (symbolIndex,
	relocationType uint32) {
	if class == Class64 {
		return uint32(info >> 32), uint32(info & 0xffffffff)
	}
	return uint32(info >> 8), uint32(info & 0xff)
}

// A section of type Rel or RelA.
type RelocationSection struct {
	SectionHeader
	Entries []RelocationEntry
}

// Returns true if the entries in this section carry addends.
func (s *RelocationSection) HasAddends() bool {
	return s.Type == SectionTypeRelA
}

func decodeRelocation(r *ByteReader, class Class, offset uint64,
	hasAddend bool) (RelocationEntry, error) {
	var entry RelocationEntry
	f := newFieldReader(r, class, offset)
	entry.Offset = f.word()
	entry.Info = f.word()
	if hasAddend {
		entry.Addend = f.signedWord()
		entry.HasAddend = true
	}
	entry.SymbolIndex, entry.Type = splitRelocationInfo(class, entry.Info)
	return entry, f.e
}

func decodeRelocationSection(r *ByteReader, class Class, h SectionHeader) (
	*RelocationSection, error) {
	count, e := h.entryCount(r.Extent())
	if e != nil {
		return nil, e
	}
	s := &RelocationSection{
		SectionHeader: h,
		Entries:       make([]RelocationEntry, count),
	}
	hasAddends := s.HasAddends()
	for i := range s.Entries {
		s.Entries[i], e = decodeRelocation(r, class,
			h.Offset+uint64(i)*h.EntrySize, hasAddends)
		if e != nil {
			return nil, errors.Wrapf(e, "reading relocation %d", i)
		}
	}
	return s, nil
}
