package elf_decoder

// This file contains the note decoder. Notes aren't decoded during parsing;
// callers read them one at a time from a note section or segment.

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

const noteAlignment = 4

// A single note record. The description isn't read, only located:
// DescriptionOffset is its absolute offset in the file.
type Note struct {
	Name              string
	Type              uint32
	DescriptionSize   uint32
	DescriptionOffset uint64
}

func (n *Note) String() string {
	return fmt.Sprintf("%s note, type 0x%x, %d-byte description at offset "+
		"0x%x", n.Name, n.Type, n.DescriptionSize, n.DescriptionOffset)
}

// Decodes the note at the reader's cursor, leaving the cursor at the start of
// the next note. Returns io.EOF if the cursor is already at or past end.
// Any other error is a *FormatError.
func ReadNote(r *ByteReader, end uint64) (*Note, error) {
	if r.Position() >= end {
		return nil, io.EOF
	}
	n, e := readNote(r)
	if e != nil {
		return nil, asFormatError(errors.Wrap(e, "reading note"))
	}
	return n, nil
}

func readNote(r *ByteReader) (*Note, error) {
	var n Note
	start := r.Position()
	// The name size is redundant with the name's terminator.
	if _, e := r.ReadUint32(); e != nil {
		return nil, e
	}
	f := fieldReader{r: r}
	n.DescriptionSize = f.uint32()
	n.Type = f.uint32()
	if f.e != nil {
		return nil, f.e
	}
	name, e := r.ReadCString()
	if e != nil {
		return nil, errors.Wrapf(e, "note at 0x%x", start)
	}
	n.Name = name
	if e = r.AlignTo(noteAlignment); e != nil {
		return nil, e
	}
	n.DescriptionOffset = r.Position()
	if e = r.Skip(uint64(n.DescriptionSize)); e != nil {
		return nil, errors.Wrapf(e, "note at 0x%x", start)
	}
	if e = r.AlignTo(noteAlignment); e != nil {
		return nil, e
	}
	return &n, nil
}

// Reads the notes in a note section or segment in order. Not safe for
// concurrent use; it owns the source's position while in use.
type NoteReader struct {
	r     *ByteReader
	start uint64
	end   uint64
}

// Returns a NoteReader over the given range of the source. The range is
// normally that of a note section or segment.
func NewNoteReader(source io.ReadSeeker, order ByteOrder, offset,
	size uint64) (*NoteReader, error) {
	r, e := NewByteReader(source, order)
	if e != nil {
		return nil, e
	}
	end := offset + size
	if (end < offset) || (end > r.Extent()) {
		return nil, formatErrorf("Note range 0x%x-0x%x is outside of the "+
			"0x%x-byte input", offset, end, r.Extent())
	}
	if e = r.Seek(offset); e != nil {
		return nil, asFormatError(e)
	}
	return &NoteReader{r: r, start: offset, end: end}, nil
}

// Returns a NoteReader over a section of type Note.
func NewSectionNoteReader(source io.ReadSeeker, order ByteOrder,
	s Section) (*NoteReader, error) {
	h := s.Header()
	if h.Type != SectionTypeNote {
		return nil, &ArgumentError{Argument: "section",
			Err: errors.Errorf("section %d is a %s, not a note section",
				h.Index, h.Type)}
	}
	return NewNoteReader(source, order, h.Offset, h.Size)
}

// Returns a NoteReader over a segment of type Note.
func NewSegmentNoteReader(source io.ReadSeeker, order ByteOrder,
	s *Segment) (*NoteReader, error) {
	if s.Type != SegmentTypeNote {
		return nil, &ArgumentError{Argument: "segment",
			Err: errors.Errorf("segment is a %s, not a note segment", s.Type)}
	}
	return NewNoteReader(source, order, s.Offset, s.FileSize)
}

// Returns the next note, or io.EOF once the end of the range is reached.
func (n *NoteReader) Next() (*Note, error) {
	return ReadNote(n.r, n.end)
}

// Rewinds to the first note in the range.
func (n *NoteReader) Reset() error {
	return asFormatError(n.r.Seek(n.start))
}

// Reads every remaining note.
func (n *NoteReader) All() ([]Note, error) {
	var toReturn []Note
	for {
		note, e := n.Next()
		if e == io.EOF {
			return toReturn, nil
		}
		if e != nil {
			return nil, e
		}
		toReturn = append(toReturn, *note)
	}
}
