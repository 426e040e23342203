package elf_decoder

// This file builds small synthetic ELF images for the tests. The default
// image looks like a tiny dynamically linked executable: an interpreter
// path, notes, a dynamic symbol table with its string table, PLT
// relocations and a dynamic section, covered by PHdr, Interp, Load, Dynamic
// and Note segments.

import (
	"encoding/binary"
)

const (
	testBaseAddress = 0x400000
	testEntryPoint  = 0x4019e0
	testDynStr      = "\x00libc.so.6\x00__uflow\x00data_obj\x00"
	testInterpreter = "/lib/ld-linux.so.2\x00"
)

// Indices of the sections in the default image.
const (
	testSectionInterp = 1 + iota
	testSectionNote
	testSectionDynSym
	testSectionDynStr
	testSectionRelA
	testSectionDynamic
	testSectionNames
	testSectionCount
)

// Indices of the segments in the default image.
const (
	testSegmentPHdr = iota
	testSegmentInterp
	testSegmentLoad
	testSegmentDynamic
	testSegmentNote
	testSegmentCount
)

type testSymbol struct {
	name    uint32
	value   uint64
	size    uint64
	binding uint8
	typ     uint8
	other   uint8
	section uint16
}

type testRelocation struct {
	offset uint64
	symbol uint32
	typ    uint32
	addend int64
}

type testNote struct {
	name        string
	typ         uint32
	description []byte
}

// A section of the image being built. offset and address are filled in
// during layout.
type testSection struct {
	name       string
	nameOffset uint32
	typ        uint32
	flags      uint64
	address    uint64
	offset     uint64
	size       uint64
	link       uint32
	info       uint32
	alignment  uint64
	entrySize  uint64
	content    []byte
}

type testEncoder struct {
	class Class
	order binary.AppendByteOrder
	data  []byte
}

func newTestEncoder(class Class, order ByteOrder) *testEncoder {
	var o binary.AppendByteOrder = binary.LittleEndian
	if order == BigEndian {
		o = binary.BigEndian
	}
	return &testEncoder{class: class, order: o}
}

func (w *testEncoder) u8(v uint8) {
	w.data = append(w.data, v)
}

func (w *testEncoder) u16(v uint16) {
	w.data = w.order.AppendUint16(w.data, v)
}

func (w *testEncoder) u32(v uint32) {
	w.data = w.order.AppendUint32(w.data, v)
}

func (w *testEncoder) u64(v uint64) {
	w.data = w.order.AppendUint64(w.data, v)
}

func (w *testEncoder) word(v uint64) {
	if w.class == Class64 {
		w.u64(v)
		return
	}
	w.u32(uint32(v))
}

func (w *testEncoder) raw(b []byte) {
	w.data = append(w.data, b...)
}

func (w *testEncoder) padTo(alignment int) {
	for (len(w.data) % alignment) != 0 {
		w.data = append(w.data, 0)
	}
}

// Describes a synthetic ELF image. Tests adjust the fields before calling
// bytes() to produce broken or unusual files.
type testELF struct {
	class       Class
	order       ByteOrder
	osABI       uint8
	symbols     []testSymbol
	relocations []testRelocation
	notes       []testNote
	dynStr      string
	// Overrides the DT_STRTAB value if nonzero.
	strTabAddress uint64
	// Called after layout, before the section headers are written.
	mutate func(sections []*testSection)
	// Filled in by bytes().
	sections []*testSection
	segments []Segment
}

func newTestELF(class Class, order ByteOrder) *testELF {
	return &testELF{
		class: class,
		order: order,
		osABI: OSABILinux,
		symbols: []testSymbol{
			{},
			{name: 11, value: 0x401000, size: 0x20, binding: 1, typ: 2,
				section: 12},
			{name: 19, value: 0x403010, size: 8, binding: 2, typ: 1,
				other: 2, section: 14},
		},
		relocations: []testRelocation{
			{offset: 0x404018, symbol: 1, typ: X86_64RelocationJumpSlot},
			{offset: 0x404020, symbol: 2, typ: X86_64RelocationGlobDat,
				addend: -8},
		},
		notes: []testNote{
			{name: "GNU", typ: 1, description: []byte{0, 0, 0, 0, 3, 0, 0, 0,
				2, 0, 0, 0, 0, 0, 0, 0}},
			{name: "GNU", typ: 3, description: []byte{1, 2, 3, 4, 5}},
			{name: "Go", typ: 4, description: []byte{'a', 'b', 'c', 'd'}},
		},
		dynStr: testDynStr,
	}
}

func (f *testELF) wordSize() uint64 {
	return f.class.WordSize()
}

func (f *testELF) headerSize() uint64 {
	if f.class == Class64 {
		return 64
	}
	return 52
}

func (f *testELF) programHeaderSize() uint64 {
	if f.class == Class64 {
		return elf64ProgramHeaderSize
	}
	return elf32ProgramHeaderSize
}

func (f *testELF) sectionHeaderSize() uint64 {
	if f.class == Class64 {
		return elf64SectionHeaderSize
	}
	return elf32SectionHeaderSize
}

func (f *testELF) symbolSize() uint64 {
	if f.class == Class64 {
		return 24
	}
	return 16
}

func (f *testELF) relocationSize() uint64 {
	return 3 * f.wordSize()
}

func (f *testELF) encodeSymbols() []byte {
	w := newTestEncoder(f.class, f.order)
	for _, s := range f.symbols {
		info := (s.binding << 4) | (s.typ & 0xf)
		w.u32(s.name)
		if f.class == Class64 {
			w.u8(info)
			w.u8(s.other)
			w.u16(s.section)
			w.u64(s.value)
			w.u64(s.size)
			continue
		}
		w.u32(uint32(s.value))
		w.u32(uint32(s.size))
		w.u8(info)
		w.u8(s.other)
		w.u16(s.section)
	}
	return w.data
}

func (f *testELF) encodeRelocations() []byte {
	w := newTestEncoder(f.class, f.order)
	for _, r := range f.relocations {
		w.word(r.offset)
		if f.class == Class64 {
			w.u64((uint64(r.symbol) << 32) | uint64(r.typ))
		} else {
			w.u32((r.symbol << 8) | (r.typ & 0xff))
		}
		w.word(uint64(r.addend))
	}
	return w.data
}

func (f *testELF) encodeNotes() []byte {
	w := newTestEncoder(f.class, f.order)
	for _, n := range f.notes {
		w.u32(uint32(len(n.name) + 1))
		w.u32(uint32(len(n.description)))
		w.u32(n.typ)
		w.raw([]byte(n.name))
		w.u8(0)
		w.padTo(noteAlignment)
		w.raw(n.description)
		w.padTo(noteAlignment)
	}
	return w.data
}

// The dynamic section holds four entries ending in DT_NULL, followed by one
// unused slot that must not be decoded.
const testDynamicSlots = 5

func (f *testELF) encodeDynamic(strTab uint64) []byte {
	w := newTestEncoder(f.class, f.order)
	entries := [][2]uint64{
		{DynamicTagNeeded, 1},
		{DynamicTagStrTab, strTab},
		{DynamicTagStrSz, uint64(len(f.dynStr))},
		{DynamicTagNull, 0},
		{DynamicTagNeeded, 11},
	}
	for _, entry := range entries {
		w.word(entry[0])
		w.word(entry[1])
	}
	return w.data
}

// Returns the encoded image, filling in f.sections and f.segments.
func (f *testELF) bytes() []byte {
	ws := f.wordSize()
	alloc := uint64(SectionFlagAlloc)
	sections := []*testSection{
		{typ: SectionTypeNull},
		{name: ".interp", typ: SectionTypeProgBits, flags: alloc,
			alignment: 1, content: []byte(testInterpreter)},
		{name: ".note.gnu", typ: SectionTypeNote, flags: alloc,
			alignment: 4, content: f.encodeNotes()},
		{name: ".dynsym", typ: SectionTypeDynSym, flags: alloc,
			link: testSectionDynStr, info: 1, alignment: ws,
			entrySize: f.symbolSize(), content: f.encodeSymbols()},
		{name: ".dynstr", typ: SectionTypeStrTab, flags: alloc,
			alignment: 1, content: []byte(f.dynStr)},
		{name: ".rela.plt", typ: SectionTypeRelA,
			flags: alloc | SectionFlagInfoLink, link: testSectionDynSym,
			alignment: ws, entrySize: f.relocationSize(),
			content: f.encodeRelocations()},
		{name: ".dynamic", typ: SectionTypeDynamic,
			flags: alloc | SectionFlagWrite, link: testSectionDynStr,
			alignment: ws, entrySize: 2 * ws},
		{name: ".shstrtab", typ: SectionTypeStrTab, alignment: 1},
	}
	sections[testSectionDynamic].size = testDynamicSlots * 2 * ws

	names := []byte{0}
	for _, s := range sections[1:] {
		s.nameOffset = uint32(len(names))
		names = append(names, []byte(s.name)...)
		names = append(names, 0)
	}
	sections[testSectionNames].content = names

	// Lay out the file: header, program headers, section contents, then the
	// section header table.
	phOffset := f.headerSize()
	offset := phOffset + testSegmentCount*f.programHeaderSize()
	for _, s := range sections[1:] {
		if s.content != nil {
			s.size = uint64(len(s.content))
		}
		offset = alignUp(offset, 8)
		s.offset = offset
		if (s.flags & alloc) != 0 {
			s.address = testBaseAddress + offset
		}
		offset += s.size
	}
	shOffset := alignUp(offset, 8)
	strTab := sections[testSectionDynStr].address
	if f.strTabAddress != 0 {
		strTab = f.strTabAddress
	}
	sections[testSectionDynamic].content = f.encodeDynamic(strTab)

	dynamic := sections[testSectionDynamic]
	f.segments = []Segment{
		{Type: SegmentTypePHdr, Flags: SegmentFlagRead, Offset: phOffset,
			FileSize: testSegmentCount * f.programHeaderSize(),
			Alignment: ws},
		{Type: SegmentTypeInterp, Flags: SegmentFlagRead,
			Offset:   sections[testSectionInterp].offset,
			FileSize: sections[testSectionInterp].size, Alignment: 1},
		{Type: SegmentTypeLoad, Flags: SegmentFlagRead | SegmentFlagExec,
			Offset: 0, FileSize: dynamic.offset + dynamic.size,
			Alignment: 0x1000},
		{Type: SegmentTypeDynamic, Flags: SegmentFlagRead | SegmentFlagWrite,
			Offset: dynamic.offset, FileSize: dynamic.size, Alignment: ws},
		{Type: SegmentTypeNote, Flags: SegmentFlagRead,
			Offset:    sections[testSectionNote].offset,
			FileSize:  sections[testSectionNote].size,
			Alignment: 4},
	}
	for i := range f.segments {
		s := &(f.segments[i])
		s.VirtualAddress = testBaseAddress + s.Offset
		s.PhysicalAddress = s.VirtualAddress
		s.MemorySize = s.FileSize
	}
	if f.mutate != nil {
		f.mutate(sections)
	}
	f.sections = sections

	w := newTestEncoder(f.class, f.order)
	w.raw(Magic[:])
	w.u8(uint8(f.class))
	w.u8(uint8(f.order))
	w.u8(1)
	w.u8(f.osABI)
	w.u8(0)
	w.padTo(identSize)
	w.u16(ELFTypeExecutable)
	w.u16(MachineTypeAMD64)
	w.u32(1)
	w.word(testEntryPoint)
	w.word(phOffset)
	w.word(shOffset)
	w.u32(0)
	w.u16(uint16(f.headerSize()))
	w.u16(uint16(f.programHeaderSize()))
	w.u16(testSegmentCount)
	w.u16(uint16(f.sectionHeaderSize()))
	w.u16(uint16(len(sections)))
	w.u16(testSectionNames)

	for i := range f.segments {
		s := &(f.segments[i])
		w.u32(uint32(s.Type))
		if f.class == Class64 {
			w.u32(uint32(s.Flags))
		}
		w.word(s.Offset)
		w.word(s.VirtualAddress)
		w.word(s.PhysicalAddress)
		w.word(s.FileSize)
		w.word(s.MemorySize)
		if f.class == Class32 {
			w.u32(uint32(s.Flags))
		}
		w.word(s.Alignment)
	}

	for _, s := range sections[1:] {
		w.padTo(8)
		w.raw(s.content)
	}
	w.padTo(8)
	for _, s := range sections {
		w.u32(s.nameOffset)
		w.u32(s.typ)
		w.word(s.flags)
		w.word(s.address)
		w.word(s.offset)
		w.word(s.size)
		w.u32(s.link)
		w.u32(s.info)
		w.word(s.alignment)
		w.word(s.entrySize)
	}
	return w.data
}

// The classes and byte orders every image-based test runs with.
var testFormats = []struct {
	name  string
	class Class
	order ByteOrder
}{
	{"elf64-little", Class64, LittleEndian},
	{"elf64-big", Class64, BigEndian},
	{"elf32-little", Class32, LittleEndian},
	{"elf32-big", Class32, BigEndian},
}
