package elf_decoder

// This file contains the decoder for string table sections.

import (
	"sort"

	"github.com/pkg/errors"
)

// One null-terminated string in a string table. Index is the string's byte
// offset from the start of the section, so the first string after the
// leading empty string has index 1.
type StringTableEntry struct {
	Index uint32
	Value string
}

// A section of type StrTab. Entries holds every string found by scanning the
// section, in order; the implicit empty string at offset 0 isn't included.
type StringTable struct {
	SectionHeader
	Entries []StringTableEntry
}

// Returns the string starting at the given byte offset in the table. Offsets
// pointing into the middle of a string return its tail, as ELF allows names
// to share suffixes. Returns false if the offset is outside of the table.
func (s *StringTable) Lookup(offset uint32) (string, bool) {
	if offset == 0 {
		return "", s.Size > 0
	}
	// Find the last entry starting at or before the offset.
	i := sort.Search(len(s.Entries), func(i int) bool {
		return s.Entries[i].Index > offset
	}) - 1
	if i < 0 {
		return "", false
	}
	entry := &(s.Entries[i])
	start := uint64(offset - entry.Index)
	if start > uint64(len(entry.Value)) {
		return "", false
	}
	return entry.Value[start:], true
}

// Returns every string in the table, including the leading empty string.
func (s *StringTable) Strings() []string {
	toReturn := make([]string, 0, len(s.Entries)+1)
	toReturn = append(toReturn, "")
	for _, entry := range s.Entries {
		toReturn = append(toReturn, entry.Value)
	}
	return toReturn
}

func decodeStringTable(r *ByteReader, h SectionHeader) (*StringTable, error) {
	if e := h.checkExtent(r.Extent()); e != nil {
		return nil, e
	}
	s := &StringTable{SectionHeader: h}
	if h.Size == 0 {
		return s, nil
	}
	end := h.Offset + h.Size
	// Byte 0 is always the empty string.
	if e := r.Seek(h.Offset + 1); e != nil {
		return nil, e
	}
	for r.Position() < end {
		index := r.Position() - h.Offset
		value, e := r.ReadCString()
		if e != nil {
			return nil, errors.Wrapf(e, "reading string at index 0x%x", index)
		}
		if r.Position() > end {
			return nil, formatErrorf("Unterminated string at index 0x%x in "+
				"string table %d", index, h.Index)
		}
		s.Entries = append(s.Entries, StringTableEntry{
			Index: uint32(index),
			Value: value,
		})
	}
	return s, nil
}
