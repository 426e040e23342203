package elf_decoder

// This file contains the ELF file header and the enumerations it uses.

import (
	"fmt"

	"github.com/pkg/errors"
)

// The four bytes every ELF file starts with.
var Magic = [4]byte{0x7f, 'E', 'L', 'F'}

const (
	ELFTypeNone        = 0
	ELFTypeRelocatable = 1
	ELFTypeExecutable  = 2
	ELFTypeShared      = 3
	ELFTypeCore        = 4
	MachineTypeSPARC   = 0x02
	MachineTypeX86     = 0x03
	MachineTypeMIPS    = 0x08
	MachineTypePowerPC = 0x14
	MachineTypeARM     = 0x28
	MachineTypeAMD64   = 0x3e
	MachineTypeARM64   = 0xb7
	MachineTypeRISCV   = 0xf3
	OSABISystemV       = 0
	OSABIHPUX          = 1
	OSABINetBSD        = 2
	OSABILinux         = 3
	OSABISolaris       = 6
	OSABIFreeBSD       = 9
	OSABIOpenBSD       = 12
	OSABIARM           = 97
	OSABIStandalone    = 255
)

// Sizes of the fixed-format records for each class.
const (
	identSize              = 16
	elf32ProgramHeaderSize = 32
	elf64ProgramHeaderSize = 56
	elf32SectionHeaderSize = 40
	elf64SectionHeaderSize = 64
	sectionIndexUndefined  = 0
)

// The EI_CLASS byte of an ELF identifier. The class is the only thing that
// differs between the 32- and 64-bit layouts, and is passed to every decoder.
type Class uint8

const (
	Class32 Class = 1
	Class64 Class = 2
)

func (c Class) String() string {
	switch c {
	case Class32:
		return "ELF32"
	case Class64:
		return "ELF64"
	}
	return fmt.Sprintf("unknown ELF class: %d", uint8(c))
}

// Returns the size, in bytes, of address-sized fields in this class.
func (c Class) WordSize() uint64 {
	if c == Class64 {
		return 8
	}
	return 4
}

type OSABI uint8

func (a OSABI) String() string {
	switch a {
	case OSABISystemV:
		return "UNIX System V"
	case OSABIHPUX:
		return "HP-UX"
	case OSABINetBSD:
		return "NetBSD"
	case OSABILinux:
		return "Linux"
	case OSABISolaris:
		return "Solaris"
	case OSABIFreeBSD:
		return "FreeBSD"
	case OSABIOpenBSD:
		return "OpenBSD"
	case OSABIARM:
		return "ARM"
	case OSABIStandalone:
		return "standalone"
	}
	return fmt.Sprintf("unknown OS ABI: %d", uint8(a))
}

type ELFFileType uint16

func (t ELFFileType) String() string {
	switch t {
	case ELFTypeNone:
		return "no file type"
	case ELFTypeRelocatable:
		return "relocatable file"
	case ELFTypeExecutable:
		return "executable file"
	case ELFTypeShared:
		return "shared file"
	case ELFTypeCore:
		return "core file"
	}
	return fmt.Sprintf("unknown ELF type: %d", uint16(t))
}

type MachineType uint16

func (t MachineType) String() string {
	switch t {
	case 0:
		return "unspecified machine type"
	case MachineTypeSPARC:
		return "SPARC"
	case MachineTypeX86:
		return "x86"
	case MachineTypeMIPS:
		return "MIPS"
	case MachineTypePowerPC:
		return "PowerPC"
	case MachineTypeARM:
		return "ARM"
	case MachineTypeAMD64:
		return "AMD64"
	case MachineTypeARM64:
		return "ARM64"
	case MachineTypeRISCV:
		return "RISC-V"
	}
	return fmt.Sprintf("unknown machine type: 0x%02x", uint16(t))
}

// The decoded ELF file header. Address-sized fields are widened to 64 bits
// for 32-bit files.
type Header struct {
	Class                   Class
	ByteOrder               ByteOrder
	OSABI                   OSABI
	ABIVersion              uint8
	Type                    ELFFileType
	Machine                 MachineType
	Version                 uint32
	Entry                   uint64
	ProgramHeaderOffset     uint64
	SectionHeaderOffset     uint64
	Flags                   uint32
	Size                    uint16
	ProgramHeaderEntrySize  uint16
	ProgramHeaderEntryCount uint16
	SectionHeaderEntrySize  uint16
	SectionHeaderEntryCount uint16
	SectionNamesTable       uint16
}

func (h *Header) String() string {
	return fmt.Sprintf("%s %s %s for %s (%s), entry point 0x%x. %d segments "+
		"at offset 0x%x, %d sections at offset 0x%x", h.Class, h.ByteOrder,
		h.Type, h.Machine, h.OSABI, h.Entry, h.ProgramHeaderEntryCount,
		h.ProgramHeaderOffset, h.SectionHeaderEntryCount,
		h.SectionHeaderOffset)
}

// Returns true if the header names a section-name string table.
func (h *Header) HasSectionNames() bool {
	return h.SectionNamesTable != sectionIndexUndefined
}

// Validates the identifier at the reader's cursor and decodes the header that
// follows it. Returns the header and a reader configured for the file's byte
// order.
func decodeHeader(r *ByteReader) (*Header, *ByteReader, error) {
	start := r.Position()
	var magic [4]byte
	for i := range magic {
		b, e := r.ReadUint8()
		if e != nil {
			return nil, nil, errors.Wrap(e, "reading ELF magic")
		}
		magic[i] = b
	}
	if magic != Magic {
		return nil, nil, formatErrorf("Invalid ELF magic bytes: 0x%02x 0x%02x "+
			"0x%02x 0x%02x", magic[0], magic[1], magic[2], magic[3])
	}
	classByte, e := r.ReadUint8()
	if e != nil {
		return nil, nil, errors.Wrap(e, "reading ELF class")
	}
	class := Class(classByte)
	if (class != Class32) && (class != Class64) {
		return nil, nil, formatErrorf("Invalid ELF class: 0x%02x", classByte)
	}
	orderByte, e := r.ReadUint8()
	if e != nil {
		return nil, nil, errors.Wrap(e, "reading ELF byte order")
	}
	order := ByteOrder(orderByte)
	if !order.valid() {
		return nil, nil, formatErrorf("Invalid ELF endianness: 0x%02x",
			orderByte)
	}
	r, e = r.WithOrder(order)
	if e != nil {
		return nil, nil, e
	}

	h := &Header{Class: class, ByteOrder: order}
	// Skip EI_VERSION.
	if e = r.Skip(1); e != nil {
		return nil, nil, errors.Wrap(e, "reading ELF identifier")
	}
	osABI, e := r.ReadUint8()
	if e != nil {
		return nil, nil, errors.Wrap(e, "reading ELF identifier")
	}
	h.OSABI = OSABI(osABI)
	if h.ABIVersion, e = r.ReadUint8(); e != nil {
		return nil, nil, errors.Wrap(e, "reading ELF identifier")
	}
	if e = r.Seek(start + identSize); e != nil {
		return nil, nil, errors.Wrap(e, "reading ELF identifier")
	}

	f := fieldReader{r: r, class: class}
	h.Type = ELFFileType(f.uint16())
	h.Machine = MachineType(f.uint16())
	h.Version = f.uint32()
	h.Entry = f.word()
	h.ProgramHeaderOffset = f.word()
	h.SectionHeaderOffset = f.word()
	h.Flags = f.uint32()
	h.Size = f.uint16()
	h.ProgramHeaderEntrySize = f.uint16()
	h.ProgramHeaderEntryCount = f.uint16()
	h.SectionHeaderEntrySize = f.uint16()
	h.SectionHeaderEntryCount = f.uint16()
	h.SectionNamesTable = f.uint16()
	if f.e != nil {
		return nil, nil, errors.Wrap(f.e, "reading ELF header")
	}
	if e = h.validateTables(r.Extent()); e != nil {
		return nil, nil, e
	}
	return h, r, nil
}

// Makes sure the program and section header tables fit in the input.
func (h *Header) validateTables(extent uint64) error {
	minProgramHeader := uint16(elf32ProgramHeaderSize)
	minSectionHeader := uint16(elf32SectionHeaderSize)
	if h.Class == Class64 {
		minProgramHeader = elf64ProgramHeaderSize
		minSectionHeader = elf64SectionHeaderSize
	}
	e := validateTable("program header", h.ProgramHeaderOffset,
		h.ProgramHeaderEntrySize, h.ProgramHeaderEntryCount, minProgramHeader,
		extent)
	if e != nil {
		return e
	}
	return validateTable("section header", h.SectionHeaderOffset,
		h.SectionHeaderEntrySize, h.SectionHeaderEntryCount, minSectionHeader,
		extent)
}

func validateTable(name string, offset uint64, entrySize, count,
	minEntrySize uint16, extent uint64) error {
	if count == 0 {
		return nil
	}
	if entrySize < minEntrySize {
		return formatErrorf("Invalid %s entry size: %d (need at least %d)",
			name, entrySize, minEntrySize)
	}
	end := offset + uint64(entrySize)*uint64(count)
	if (end < offset) || (end > extent) {
		return formatErrorf("The %s table (%d entries of %d bytes at 0x%x) "+
			"extends past the end of the 0x%x-byte input", name, count,
			entrySize, offset, extent)
	}
	return nil
}
