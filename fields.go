package elf_decoder

// Decodes a run of consecutive fixed-layout fields. The first failure is kept
// in e and every later read becomes a no-op returning 0, so a whole record
// can be decoded before checking for an error once.
type fieldReader struct {
	r     *ByteReader
	class Class
	e     error
}

// Starts a new record at the given offset.
func newFieldReader(r *ByteReader, class Class, offset uint64) *fieldReader {
	return &fieldReader{r: r, class: class, e: r.Seek(offset)}
}

func (f *fieldReader) uint8() uint8 {
	if f.e != nil {
		return 0
	}
	var v uint8
	v, f.e = f.r.ReadUint8()
	return v
}

func (f *fieldReader) uint16() uint16 {
	if f.e != nil {
		return 0
	}
	var v uint16
	v, f.e = f.r.ReadUint16()
	return v
}

func (f *fieldReader) uint32() uint32 {
	if f.e != nil {
		return 0
	}
	var v uint32
	v, f.e = f.r.ReadUint32()
	return v
}

// Reads an address-sized field for the record's class.
func (f *fieldReader) word() uint64 {
	if f.e != nil {
		return 0
	}
	var v uint64
	v, f.e = f.r.ReadWord(f.class)
	return v
}

func (f *fieldReader) signedWord() int64 {
	if f.e != nil {
		return 0
	}
	var v int64
	v, f.e = f.r.ReadSignedWord(f.class)
	return v
}
