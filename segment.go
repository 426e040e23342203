package elf_decoder

// This file contains the program header table (segment) decoder.

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

const (
	SegmentTypeNull          = 0
	SegmentTypeLoad          = 1
	SegmentTypeDynamic       = 2
	SegmentTypeInterp        = 3
	SegmentTypeNote          = 4
	SegmentTypeShlib         = 5
	SegmentTypePHdr          = 6
	SegmentTypeTLS           = 7
	SegmentTypeLowOS         = 0x60000000
	SegmentTypeLowProcessor  = 0x70000000
	SegmentTypeHighProcessor = 0x7fffffff
)

const (
	SegmentFlagExec  = 1
	SegmentFlagWrite = 2
	SegmentFlagRead  = 4
)

type SegmentType uint32

func (st SegmentType) String() string {
	// Avoid printf recursion by explicitly casting this to a uint32
	t := uint32(st)
	switch t {
	case SegmentTypeNull:
		return "unused segment"
	case SegmentTypeLoad:
		return "loadable segment"
	case SegmentTypeDynamic:
		return "dynamic linking tables"
	case SegmentTypeInterp:
		return "interpreter path name segment"
	case SegmentTypeNote:
		return "note segment"
	case SegmentTypeShlib:
		return "reserved segment type"
	case SegmentTypePHdr:
		return "program header table"
	case SegmentTypeTLS:
		return "thread-local storage template"
	}
	if t > SegmentTypeHighProcessor {
		return fmt.Sprintf("invalid segment type: 0x%x", t)
	}
	if t >= SegmentTypeLowProcessor {
		return fmt.Sprintf("processor-specific segment: 0x%x", t)
	}
	if t >= SegmentTypeLowOS {
		return fmt.Sprintf("OS-specific segment: 0x%x", t)
	}
	return fmt.Sprintf("invalid segment type 0x%x", t)
}

type SegmentFlags uint32

func (f SegmentFlags) Readable() bool {
	return (f & SegmentFlagRead) != 0
}

func (f SegmentFlags) Writable() bool {
	return (f & SegmentFlagWrite) != 0
}

func (f SegmentFlags) Executable() bool {
	return (f & SegmentFlagExec) != 0
}

func (f SegmentFlags) String() string {
	var readStatus, writeStatus, execStatus string
	if !f.Executable() {
		execStatus = "not "
	}
	if !f.Writable() {
		writeStatus = "not "
	}
	if !f.Readable() {
		readStatus = "not "
	}
	return fmt.Sprintf("%sreadable, %swritable, %sexecutable", readStatus,
		writeStatus, execStatus)
}

// A single program header table entry.
type Segment struct {
	Type            SegmentType
	Flags           SegmentFlags
	Offset          uint64
	VirtualAddress  uint64
	PhysicalAddress uint64
	FileSize        uint64
	MemorySize      uint64
	Alignment       uint64
	// Indices of the sections whose file bytes lie inside this segment, in
	// section table order. See File.SegmentSections.
	Sections []int
}

func (s *Segment) String() string {
	return fmt.Sprintf("%s at address 0x%x (offset 0x%x in file). "+
		"%d bytes in memory, %d in the file, alignment 0x%x. %s", s.Type,
		s.VirtualAddress, s.Offset, s.MemorySize, s.FileSize, s.Alignment,
		s.Flags)
}

// Returns a reader over the segment's bytes in the file.
func (s *Segment) Open(r io.ReaderAt) *io.SectionReader {
	return io.NewSectionReader(r, int64(s.Offset), int64(s.FileSize))
}

// Returns true if the file range [offset, offset+size) lies entirely inside
// the segment's file image.
func (s *Segment) containsRange(offset, size uint64) bool {
	end := offset + size
	if end < offset {
		return false
	}
	return (offset >= s.Offset) && (end <= s.Offset+s.FileSize)
}

func decodeSegment(r *ByteReader, class Class, offset uint64) (Segment,
	error) {
	var s Segment
	f := newFieldReader(r, class, offset)
	s.Type = SegmentType(f.uint32())
	if class == Class64 {
		s.Flags = SegmentFlags(f.uint32())
		s.Offset = f.word()
		s.VirtualAddress = f.word()
		s.PhysicalAddress = f.word()
		s.FileSize = f.word()
		s.MemorySize = f.word()
		s.Alignment = f.word()
	} else {
		s.Offset = f.word()
		s.VirtualAddress = f.word()
		s.PhysicalAddress = f.word()
		s.FileSize = f.word()
		s.MemorySize = f.word()
		s.Flags = SegmentFlags(f.uint32())
		s.Alignment = f.word()
	}
	return s, f.e
}

// Used during parsing to decode every entry in the program header table.
func decodeSegments(r *ByteReader, h *Header) ([]Segment, error) {
	segments := make([]Segment, h.ProgramHeaderEntryCount)
	for i := range segments {
		offset := h.ProgramHeaderOffset +
			uint64(i)*uint64(h.ProgramHeaderEntrySize)
		s, e := decodeSegment(r, h.Class, offset)
		if e != nil {
			return nil, errors.Wrapf(e, "reading segment %d", i)
		}
		segments[i] = s
	}
	return segments, nil
}
