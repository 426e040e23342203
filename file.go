package elf_decoder

// This file contains the top-level parsing entry points and the File type
// they return.

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// A fully decoded ELF file. Segments and Sections are in table order, so
// Sections[i].Header().Index == i.
type File struct {
	Header   Header
	Segments []Segment
	Sections []Section
}

type config struct {
	logger log.Logger
	host   ByteOrder
}

type Option = func(c *config)

// Sets the logger used for debug output while parsing. Parsing is silent by
// default.
func WithLogger(logger log.Logger) Option {
	return Option(func(c *config) {
		c.logger = logger
	})
}

// Overrides the detected host byte order. Only useful for exercising the
// byte-swapping paths on a machine of the other order.
func WithHostByteOrder(order ByteOrder) Option {
	return Option(func(c *config) {
		c.host = order
	})
}

func configFromOpts(opts ...Option) *config {
	c := &config{
		logger: log.NewNopLogger(),
		host:   HostByteOrder(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.NewNopLogger()
	}
	return c
}

// Decodes an ELF file starting at the source's current position. Header
// offsets are treated as absolute offsets in the source. Returns an
// *ArgumentError if the source can't be used, and a *FormatError if the
// input isn't a well-formed ELF file. No partial File is ever returned.
func Parse(source io.ReadSeeker, opts ...Option) (*File, error) {
	c := configFromOpts(opts...)
	r, e := newByteReader(source, LittleEndian, c.host)
	if e != nil {
		return nil, e
	}
	f, e := parse(r, c.logger)
	if e != nil {
		level.Debug(c.logger).Log("msg", "parsing failed", "err", e)
		return nil, asFormatError(e)
	}
	return f, nil
}

// Parses an ELF file already held in memory.
func ParseBytes(raw []byte, opts ...Option) (*File, error) {
	return Parse(bytes.NewReader(raw), opts...)
}

func parse(r *ByteReader, logger log.Logger) (*File, error) {
	header, r, e := decodeHeader(r)
	if e != nil {
		return nil, e
	}
	level.Debug(logger).Log("msg", "decoded header", "class", header.Class,
		"order", header.ByteOrder, "segments",
		header.ProgramHeaderEntryCount, "sections",
		header.SectionHeaderEntryCount)
	segments, e := decodeSegments(r, header)
	if e != nil {
		return nil, e
	}
	sections, e := decodeSections(r, header)
	if e != nil {
		return nil, e
	}
	res := resolver{
		r:        r,
		header:   header,
		sections: sections,
		segments: segments,
		logger:   logger,
	}
	if e = res.resolve(); e != nil {
		return nil, e
	}
	return &File{
		Header:   *header,
		Segments: segments,
		Sections: sections,
	}, nil
}

// Returns the first section with the given name, or nil if there isn't one.
func (f *File) Section(name string) Section {
	for _, s := range f.Sections {
		if s.Header().Name == name {
			return s
		}
	}
	return nil
}

// Returns the sections contained in the segment at the given index.
func (f *File) SegmentSections(index int) ([]Section, error) {
	if (index < 0) || (index >= len(f.Segments)) {
		return nil, &ArgumentError{Argument: "index",
			Err: errors.Errorf("segment %d doesn't exist (%d segments)",
				index, len(f.Segments))}
	}
	indices := f.Segments[index].Sections
	toReturn := make([]Section, len(indices))
	for i, sectionIndex := range indices {
		toReturn[i] = f.Sections[sectionIndex]
	}
	return toReturn, nil
}

// Returns every section of type T, in table order.
func SectionsOfType[T Section](f *File) []T {
	var toReturn []T
	for _, s := range f.Sections {
		if typed, ok := s.(T); ok {
			toReturn = append(toReturn, typed)
		}
	}
	return toReturn
}

// Returns a NoteReader over the section at the given index, which must be a
// note section.
func (f *File) SectionNotes(source io.ReadSeeker, index int) (*NoteReader,
	error) {
	if (index < 0) || (index >= len(f.Sections)) {
		return nil, &ArgumentError{Argument: "index",
			Err: errors.Errorf("section %d doesn't exist (%d sections)",
				index, len(f.Sections))}
	}
	return NewSectionNoteReader(source, f.Header.ByteOrder, f.Sections[index])
}

// Returns a NoteReader over the segment at the given index, which must be a
// note segment.
func (f *File) SegmentNotes(source io.ReadSeeker, index int) (*NoteReader,
	error) {
	if (index < 0) || (index >= len(f.Segments)) {
		return nil, &ArgumentError{Argument: "index",
			Err: errors.Errorf("segment %d doesn't exist (%d segments)",
				index, len(f.Segments))}
	}
	return NewSegmentNoteReader(source, f.Header.ByteOrder,
		&(f.Segments[index]))
}

func (f *File) String() string {
	return fmt.Sprintf("%s: %d segments, %d sections", &f.Header,
		len(f.Segments), len(f.Sections))
}
