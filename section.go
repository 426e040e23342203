package elf_decoder

// This file contains the section header table decoder, along with the Section
// variants that sections are decoded into.

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

const (
	SectionTypeNull          = 0
	SectionTypeProgBits      = 1
	SectionTypeSymTab        = 2
	SectionTypeStrTab        = 3
	SectionTypeRelA          = 4
	SectionTypeHash          = 5
	SectionTypeDynamic       = 6
	SectionTypeNote          = 7
	SectionTypeNoBits        = 8
	SectionTypeRel           = 9
	SectionTypeShlib         = 10
	SectionTypeDynSym        = 11
	SectionTypeInitArray     = 14
	SectionTypeFiniArray     = 15
	SectionTypePreInitArray  = 16
	SectionTypeGroup         = 17
	SectionTypeSymTabShndx   = 18
	SectionTypeLowOS         = 0x60000000
	SectionTypeHighOS        = 0x6fffffff
	SectionTypeLowProcessor  = 0x70000000
	SectionTypeHighProcessor = 0x7fffffff
	SectionTypeLowUser       = 0x80000000
)

const (
	SectionFlagWrite     = 0x1
	SectionFlagAlloc     = 0x2
	SectionFlagExec      = 0x4
	SectionFlagMerge     = 0x10
	SectionFlagStrings   = 0x20
	SectionFlagInfoLink  = 0x40
	SectionFlagLinkOrder = 0x80
	SectionFlagGroup     = 0x200
	SectionFlagTLS       = 0x400
)

type SectionType uint32

func (st SectionType) String() string {
	// Like SegmentType, prevent printf recursion.
	t := uint32(st)
	switch t {
	case SectionTypeNull:
		return "unused section"
	case SectionTypeProgBits:
		return "bits section"
	case SectionTypeSymTab:
		return "symbol table"
	case SectionTypeStrTab:
		return "string table"
	case SectionTypeRelA:
		return "relocation entries with addends"
	case SectionTypeHash:
		return "symbol hash table"
	case SectionTypeDynamic:
		return "dynamic linking table"
	case SectionTypeNote:
		return "note section"
	case SectionTypeNoBits:
		return "uninitialized memory"
	case SectionTypeRel:
		return "relocation entries"
	case SectionTypeShlib:
		return "reserved section"
	case SectionTypeDynSym:
		return "dynamic loader symbol table"
	case SectionTypeInitArray:
		return "constructor array"
	case SectionTypeFiniArray:
		return "destructor array"
	case SectionTypePreInitArray:
		return "pre-constructor array"
	case SectionTypeGroup:
		return "section group"
	case SectionTypeSymTabShndx:
		return "extended section indices"
	}
	if t >= SectionTypeLowUser {
		return fmt.Sprintf("application-specific section type: 0x%x", t)
	}
	if t >= SectionTypeLowProcessor {
		return fmt.Sprintf("processor-specific section type: 0x%x", t)
	}
	if t >= SectionTypeLowOS {
		return fmt.Sprintf("OS-specific section type: 0x%x", t)
	}
	return fmt.Sprintf("invalid section type: 0x%x", t)
}

// Section flags are read as 32-bit values in 32-bit files and widened.
type SectionFlags uint64

func (f SectionFlags) Executable() bool {
	return (f & SectionFlagExec) != 0
}

func (f SectionFlags) Allocated() bool {
	return (f & SectionFlagAlloc) != 0
}

func (f SectionFlags) Writable() bool {
	return (f & SectionFlagWrite) != 0
}

// Returns true if the section's Info field holds a section index.
func (f SectionFlags) InfoLink() bool {
	return (f & SectionFlagInfoLink) != 0
}

func (f SectionFlags) String() string {
	var writeStatus, allocStatus, execStatus string
	if !f.Writable() {
		writeStatus = "not "
	}
	if !f.Allocated() {
		allocStatus = "not "
	}
	if !f.Executable() {
		execStatus = "not "
	}
	return fmt.Sprintf("%swritable, %sallocated, %sexecutable", writeStatus,
		allocStatus, execStatus)
}

// The fields shared by every kind of section.
type SectionHeader struct {
	// Position of the section in the section header table.
	Index int
	// Read from the section-name string table after all sections are
	// decoded. Stays empty if the file has no such table.
	Name       string
	NameOffset uint32
	Type       SectionType
	Flags      SectionFlags
	Address    uint64
	Offset     uint64
	Size       uint64
	Link       uint32
	Info       uint32
	Alignment  uint64
	EntrySize  uint64
}

func (h *SectionHeader) Header() *SectionHeader {
	return h
}

func (h *SectionHeader) isSection() {}

func (h *SectionHeader) String() string {
	return fmt.Sprintf("%s. %d bytes at address 0x%x (offset 0x%x in "+
		"file). Linked to section %d. %s", h.Type, h.Size, h.Address,
		h.Offset, h.Link, h.Flags)
}

// Returns a reader over the section's bytes in the file. Sections of type
// NoBits occupy no file space, so their reader is empty.
func (h *SectionHeader) Open(r io.ReaderAt) *io.SectionReader {
	if h.Type == SectionTypeNoBits {
		return io.NewSectionReader(r, int64(h.Offset), 0)
	}
	return io.NewSectionReader(r, int64(h.Offset), int64(h.Size))
}

// Returns the number of fixed-size entries in the section, after making sure
// the entries fit in the input.
func (h *SectionHeader) entryCount(extent uint64) (uint64, error) {
	if h.Size == 0 {
		return 0, nil
	}
	if h.EntrySize == 0 {
		return 0, formatErrorf("Section %d (%s) has entries of size 0",
			h.Index, h.Type)
	}
	if e := h.checkExtent(extent); e != nil {
		return 0, e
	}
	return h.Size / h.EntrySize, nil
}

func (h *SectionHeader) checkExtent(extent uint64) error {
	end := h.Offset + h.Size
	if (end < h.Offset) || (end > extent) {
		return formatErrorf("Section %d (%s, 0x%x bytes at offset 0x%x) "+
			"extends past the end of the 0x%x-byte input", h.Index, h.Type,
			h.Size, h.Offset, extent)
	}
	return nil
}

// A section is exactly one of *GenericSection, *DynamicSection,
// *SymbolTable, *RelocationSection or *StringTable, chosen from the section
// type when the section is decoded.
type Section interface {
	Header() *SectionHeader
	String() string
	isSection()
}

// Any section whose contents aren't decoded.
type GenericSection struct {
	SectionHeader
}

func decodeSectionHeader(r *ByteReader, class Class, offset uint64) (
	SectionHeader, error) {
	var h SectionHeader
	f := newFieldReader(r, class, offset)
	h.NameOffset = f.uint32()
	h.Type = SectionType(f.uint32())
	h.Flags = SectionFlags(f.word())
	h.Address = f.word()
	h.Offset = f.word()
	h.Size = f.word()
	h.Link = f.uint32()
	h.Info = f.uint32()
	h.Alignment = f.word()
	h.EntrySize = f.word()
	return h, f.e
}

// Decodes the section header at the given offset, and the section's contents
// if its type is one of the decoded variants.
func decodeSection(r *ByteReader, class Class, index int, offset uint64) (
	Section, error) {
	h, e := decodeSectionHeader(r, class, offset)
	if e != nil {
		return nil, e
	}
	h.Index = index
	switch h.Type {
	case SectionTypeDynamic:
		return decodeDynamicSection(r, class, h)
	case SectionTypeSymTab, SectionTypeDynSym:
		return decodeSymbolTable(r, class, h)
	case SectionTypeRel, SectionTypeRelA:
		return decodeRelocationSection(r, class, h)
	case SectionTypeStrTab:
		return decodeStringTable(r, h)
	}
	return &GenericSection{SectionHeader: h}, nil
}

// Used during parsing to decode every entry in the section header table, in
// table order.
func decodeSections(r *ByteReader, h *Header) ([]Section, error) {
	sections := make([]Section, h.SectionHeaderEntryCount)
	for i := range sections {
		offset := h.SectionHeaderOffset +
			uint64(i)*uint64(h.SectionHeaderEntrySize)
		s, e := decodeSection(r, h.Class, i, offset)
		if e != nil {
			return nil, errors.Wrapf(e, "reading section %d", i)
		}
		sections[i] = s
	}
	return sections, nil
}
