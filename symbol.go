package elf_decoder

// This file contains the decoder for symbol tables (.symtab and .dynsym).

import (
	"fmt"

	"github.com/pkg/errors"
)

const (
	SymbolBindingLocal        = 0
	SymbolBindingGlobal       = 1
	SymbolBindingWeak         = 2
	SymbolBindingGNUUnique    = 10
	SymbolTypeNoType          = 0
	SymbolTypeObject          = 1
	SymbolTypeFunc            = 2
	SymbolTypeSection         = 3
	SymbolTypeFile            = 4
	SymbolTypeCommon          = 5
	SymbolTypeTLS             = 6
	SymbolTypeGNUIFunc        = 10
	SymbolVisibilityDefault   = 0
	SymbolVisibilityInternal  = 1
	SymbolVisibilityHidden    = 2
	SymbolVisibilityProtected = 3
)

// Special values of SymbolTableEntry.SectionIndex.
const (
	SectionIndexUndefined = 0
	SectionIndexAbsolute  = 0xfff1
	SectionIndexCommon    = 0xfff2
)

type SymbolBinding uint8

func (b SymbolBinding) String() string {
	switch {
	case b == SymbolBindingLocal:
		return "local binding"
	case b == SymbolBindingGlobal:
		return "global binding"
	case b == SymbolBindingWeak:
		return "weak binding"
	case b == SymbolBindingGNUUnique:
		return "unique binding"
	case (b >= 10) && (b <= 12):
		return fmt.Sprintf("os-specific binding %d", uint8(b))
	case (b >= 13) && (b <= 15):
		return fmt.Sprintf("processor-specific binding %d", uint8(b))
	}
	return fmt.Sprintf("unknown binding %d", uint8(b))
}

type SymbolType uint8

func (t SymbolType) String() string {
	switch {
	case t == SymbolTypeNoType:
		return "no type"
	case t == SymbolTypeObject:
		return "object"
	case t == SymbolTypeFunc:
		return "function"
	case t == SymbolTypeSection:
		return "section"
	case t == SymbolTypeFile:
		return "file"
	case t == SymbolTypeCommon:
		return "common"
	case t == SymbolTypeTLS:
		return "thread-local"
	case t == SymbolTypeGNUIFunc:
		return "indirect function"
	case (t >= 10) && (t <= 12):
		return fmt.Sprintf("os-specific type %d", uint8(t))
	case (t >= 13) && (t <= 15):
		return fmt.Sprintf("processor-specific type %d", uint8(t))
	}
	return fmt.Sprintf("unknown type %d", uint8(t))
}

type SymbolVisibility uint8

func (v SymbolVisibility) String() string {
	switch v {
	case SymbolVisibilityDefault:
		return "default"
	case SymbolVisibilityInternal:
		return "internal"
	case SymbolVisibilityHidden:
		return "hidden"
	case SymbolVisibilityProtected:
		return "protected"
	}
	return fmt.Sprintf("unknown visibility %d", uint8(v))
}

// Holds a symbol table entry for either a 32- or 64-bit ELF.
type SymbolTableEntry struct {
	// Read from the linked string table after all sections are decoded.
	Name         string
	NameIndex    uint32
	Value        uint64
	Size         uint64
	Binding      SymbolBinding
	Type         SymbolType
	Visibility   SymbolVisibility
	SectionIndex uint16
}

func (s *SymbolTableEntry) String() string {
	return fmt.Sprintf("%d byte %s symbol (%s, %s visibility). Value: 0x%x, "+
		"associated section: %d", s.Size, s.Type, s.Binding, s.Visibility,
		s.Value, s.SectionIndex)
}

// A section of type SymTab or DynSym.
type SymbolTable struct {
	SectionHeader
	Entries []SymbolTableEntry
}

// Returns the symbol at the given index, or an error if the index is out of
// range.
func (s *SymbolTable) Symbol(index uint32) (*SymbolTableEntry, error) {
	if uint64(index) >= uint64(len(s.Entries)) {
		return nil, formatErrorf("Invalid index %d in symbol table %d (%d "+
			"entries)", index, s.Index, len(s.Entries))
	}
	return &(s.Entries[index]), nil
}

func decodeSymbol(r *ByteReader, class Class, offset uint64) (
	SymbolTableEntry, error) {
	var s SymbolTableEntry
	var info, other uint8
	f := newFieldReader(r, class, offset)
	s.NameIndex = f.uint32()
	if class == Class64 {
		info = f.uint8()
		other = f.uint8()
		s.SectionIndex = f.uint16()
		s.Value = f.word()
		s.Size = f.word()
	} else {
		s.Value = f.word()
		s.Size = f.word()
		info = f.uint8()
		other = f.uint8()
		s.SectionIndex = f.uint16()
	}
	s.Binding = SymbolBinding(info >> 4)
	s.Type = SymbolType(info & 0xf)
	s.Visibility = SymbolVisibility(other & 0x3)
	return s, f.e
}

func decodeSymbolTable(r *ByteReader, class Class, h SectionHeader) (
	*SymbolTable, error) {
	count, e := h.entryCount(r.Extent())
	if e != nil {
		return nil, e
	}
	s := &SymbolTable{
		SectionHeader: h,
		Entries:       make([]SymbolTableEntry, count),
	}
	for i := range s.Entries {
		s.Entries[i], e = decodeSymbol(r, class, h.Offset+uint64(i)*h.EntrySize)
		if e != nil {
			return nil, errors.Wrapf(e, "reading symbol %d", i)
		}
	}
	return s, nil
}
