package elf_decoder

// This file contains the cross-reference pass, which runs once every section
// has been decoded. It is the only code that fills in the names and values
// that the section decoders leave empty.

import (
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

const dynamicStringTableName = ".dynstr"

type resolver struct {
	r        *ByteReader
	header   *Header
	sections []Section
	segments []Segment
	logger   log.Logger
}

func (res *resolver) resolve() error {
	if e := res.resolveSectionNames(); e != nil {
		return errors.Wrap(e, "resolving section names")
	}
	if e := res.resolveDynamicNames(); e != nil {
		return errors.Wrap(e, "resolving dynamic entry names")
	}
	if e := res.resolveSymbolNames(); e != nil {
		return errors.Wrap(e, "resolving symbol names")
	}
	if e := res.resolveRelocationSymbols(); e != nil {
		return errors.Wrap(e, "resolving relocation symbols")
	}
	res.resolveSegmentSections()
	return nil
}

// Reads the null-terminated string at the given offset into a section,
// directly from the input rather than from any decoded string table entries.
func (res *resolver) readString(table *SectionHeader, offset uint64) (string,
	error) {
	if offset >= table.Size {
		return "", formatErrorf("String offset 0x%x is outside of section %d "+
			"(0x%x bytes)", offset, table.Index, table.Size)
	}
	s, e := res.r.ReadCStringAt(table.Offset + offset)
	if e != nil {
		return "", errors.Wrapf(e, "reading string at offset 0x%x in section "+
			"%d", offset, table.Index)
	}
	if offset+uint64(len(s)) >= table.Size {
		return "", formatErrorf("Unterminated string at offset 0x%x in "+
			"section %d", offset, table.Index)
	}
	return s, nil
}

func (res *resolver) resolveSectionNames() error {
	if !res.header.HasSectionNames() {
		level.Debug(res.logger).Log("msg", "no section name table")
		return nil
	}
	index := int(res.header.SectionNamesTable)
	if index >= len(res.sections) {
		return formatErrorf("Invalid section name table index %d (%d "+
			"sections)", index, len(res.sections))
	}
	names := res.sections[index].Header()
	for _, s := range res.sections {
		h := s.Header()
		name, e := res.readString(names, uint64(h.NameOffset))
		if e != nil {
			return errors.Wrapf(e, "section %d", h.Index)
		}
		h.Name = name
	}
	return nil
}

// Returns the first section (other than the null section) loaded at the
// given address.
func (res *resolver) sectionAtAddress(address uint64) *SectionHeader {
	for _, s := range res.sections {
		h := s.Header()
		if h.Type == SectionTypeNull {
			continue
		}
		if h.Address == address {
			return h
		}
	}
	return nil
}

func (res *resolver) resolveDynamicNames() error {
	for _, s := range res.sections {
		dynamic, ok := s.(*DynamicSection)
		if !ok {
			continue
		}
		strTab := dynamic.Entry(DynamicTagStrTab)
		if strTab == nil {
			level.Debug(res.logger).Log("msg", "dynamic section has no "+
				"string table", "section", dynamic.Index)
			continue
		}
		table := res.sectionAtAddress(strTab.Value)
		if table == nil {
			return formatErrorf("Dynamic section %d refers to a string "+
				"table at address 0x%x, but no section is loaded there",
				dynamic.Index, strTab.Value)
		}
		for i := range dynamic.Entries {
			entry := &(dynamic.Entries[i])
			if !entry.Tag.HasStringValue() {
				continue
			}
			name, e := res.readString(table, entry.Value)
			if e != nil {
				return errors.Wrapf(e, "dynamic entry %d (%s)", i, entry.Tag)
			}
			entry.Name = name
		}
	}
	return nil
}

// Returns the string table holding a symbol table's names: the linked
// section if it is a string table, and otherwise the dynamic string table.
func (res *resolver) symbolNameTable(symbols *SymbolTable) *SectionHeader {
	link := int(symbols.Link)
	if (link != sectionIndexUndefined) && (link < len(res.sections)) {
		if table, ok := res.sections[link].(*StringTable); ok {
			return &(table.SectionHeader)
		}
	}
	for _, s := range res.sections {
		if table, ok := s.(*StringTable); ok {
			if table.Name == dynamicStringTableName {
				return &(table.SectionHeader)
			}
		}
	}
	return nil
}

func (res *resolver) resolveSymbolNames() error {
	for _, s := range res.sections {
		symbols, ok := s.(*SymbolTable)
		if !ok {
			continue
		}
		names := res.symbolNameTable(symbols)
		if names == nil {
			return formatErrorf("Symbol table %d has no string table",
				symbols.Index)
		}
		for i := range symbols.Entries {
			entry := &(symbols.Entries[i])
			name, e := res.readString(names, uint64(entry.NameIndex))
			if e != nil {
				return errors.Wrapf(e, "symbol %d in section %d", i,
					symbols.Index)
			}
			entry.Name = name
		}
		level.Debug(res.logger).Log("msg", "resolved symbol names",
			"section", symbols.Index, "symbols", len(symbols.Entries),
			"strings", names.Index)
	}
	return nil
}

// Returns the symbol table a relocation section refers to: the linked
// section if it is a symbol table, and otherwise the first symbol table in
// the file. Returns nil if the file has no symbol tables.
func (res *resolver) relocationSymbols(r *RelocationSection) *SymbolTable {
	link := int(r.Link)
	if (link != sectionIndexUndefined) && (link < len(res.sections)) {
		if symbols, ok := res.sections[link].(*SymbolTable); ok {
			return symbols
		}
	}
	for _, s := range res.sections {
		if symbols, ok := s.(*SymbolTable); ok {
			return symbols
		}
	}
	return nil
}

func (res *resolver) resolveRelocationSymbols() error {
	for _, s := range res.sections {
		relocations, ok := s.(*RelocationSection)
		if !ok {
			continue
		}
		symbols := res.relocationSymbols(relocations)
		for i := range relocations.Entries {
			entry := &(relocations.Entries[i])
			if symbols == nil {
				if entry.SymbolIndex != 0 {
					return formatErrorf("Relocation %d in section %d refers "+
						"to symbol %d, but the file has no symbol table", i,
						relocations.Index, entry.SymbolIndex)
				}
				continue
			}
			symbol, e := symbols.Symbol(entry.SymbolIndex)
			if e != nil {
				return errors.Wrapf(e, "relocation %d in section %d", i,
					relocations.Index)
			}
			entry.Symbol = symbol.Name
			entry.SymbolValue = symbol.Value
		}
	}
	return nil
}

// Records, for each segment, the sections whose file range lies inside the
// segment's file range. The null section describes no bytes and is never
// included, and an empty section must start before the segment's end.
func (res *resolver) resolveSegmentSections() {
	for i := range res.segments {
		segment := &(res.segments[i])
		segment.Sections = nil
		for _, s := range res.sections {
			h := s.Header()
			if h.Type == SectionTypeNull {
				continue
			}
			if !segment.containsRange(h.Offset, h.Size) {
				continue
			}
			if (h.Size == 0) && (h.Offset >= segment.Offset+segment.FileSize) {
				continue
			}
			segment.Sections = append(segment.Sections, h.Index)
		}
	}
}
