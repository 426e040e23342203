package elf_decoder

// This file contains utility functions which aren't associated with specific
// ELF structures.

import (
	"golang.org/x/exp/constraints"
)

// Returns a string starting at the offset in the data, or an error if the
// offset is invalid or the string isn't terminated. This can be used to
// extract strings from string table content that was already read into
// memory.
func ReadStringAtOffset(offset uint32, data []byte) ([]byte, error) {
	if offset >= uint32(len(data)) {
		return nil, formatErrorf("Invalid string offset: %d", offset)
	}
	endIndex := offset
	for data[endIndex] != 0 {
		endIndex++
		if endIndex >= uint32(len(data)) {
			return nil, formatErrorf("Unterminated string starting at "+
				"offset %d", offset)
		}
	}
	return data[offset:endIndex], nil
}

// Rounds v up to a multiple of alignment. Alignments of 0 and 1 leave v
// unchanged.
func alignUp[T constraints.Unsigned](v, alignment T) T {
	if alignment <= 1 {
		return v
	}
	return (v + alignment - 1) / alignment * alignment
}
