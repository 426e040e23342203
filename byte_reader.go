package elf_decoder

// This file contains the ByteReader, which decodes primitive values from a
// seekable byte source in a fixed byte order, independent of the host.

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"
	"strings"

	"github.com/pkg/errors"
)

// The EI_DATA byte of an ELF identifier.
type ByteOrder uint8

const (
	LittleEndian ByteOrder = 1
	BigEndian    ByteOrder = 2
)

func (o ByteOrder) String() string {
	switch o {
	case LittleEndian:
		return "little-endian"
	case BigEndian:
		return "big-endian"
	}
	return fmt.Sprintf("unknown byte order: %d", uint8(o))
}

func (o ByteOrder) valid() bool {
	return (o == LittleEndian) || (o == BigEndian)
}

// Returns the encoding/binary equivalent of o. Only valid orders may be
// converted.
func (o ByteOrder) binaryOrder() binary.ByteOrder {
	if o == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Returns the byte order of the machine running this code.
func HostByteOrder() ByteOrder {
	if binary.NativeEndian.Uint16([]byte{1, 0}) == 1 {
		return LittleEndian
	}
	return BigEndian
}

// Reads integers and null-terminated strings from a seekable source. Every
// multi-byte value is decoded in the host's order and then byte-swapped if the
// configured order differs, so values always follow the configured order.
// A ByteReader is not safe for concurrent use, and readers sharing a source
// (see WithOrder) must not be used concurrently either.
type ByteReader struct {
	source   io.ReadSeeker
	order    ByteOrder
	host     ByteOrder
	extent   uint64
	position uint64
	buffer   [8]byte
}

// Returns a new ByteReader over the source, starting at the source's current
// position. Returns an ArgumentError if the source can't be seeked (for
// example, if it was already closed).
func NewByteReader(source io.ReadSeeker, order ByteOrder) (*ByteReader, error) {
	return newByteReader(source, order, HostByteOrder())
}

func newByteReader(source io.ReadSeeker, order, host ByteOrder) (*ByteReader,
	error) {
	if source == nil {
		return nil, &ArgumentError{Argument: "source",
			Err: errors.New("nil byte source")}
	}
	if !order.valid() {
		return nil, &ArgumentError{Argument: "order",
			Err: errors.Errorf("%s", order)}
	}
	if !host.valid() {
		return nil, &ArgumentError{Argument: "host order",
			Err: errors.Errorf("%s", host)}
	}
	current, e := source.Seek(0, io.SeekCurrent)
	if e != nil {
		return nil, &ArgumentError{Argument: "source", Err: e}
	}
	end, e := source.Seek(0, io.SeekEnd)
	if e != nil {
		return nil, &ArgumentError{Argument: "source", Err: e}
	}
	_, e = source.Seek(current, io.SeekStart)
	if e != nil {
		return nil, &ArgumentError{Argument: "source", Err: e}
	}
	return &ByteReader{
		source:   source,
		order:    order,
		host:     host,
		extent:   uint64(end),
		position: uint64(current),
	}, nil
}

// Returns a reader over the same source and position using a different byte
// order.
func (r *ByteReader) WithOrder(order ByteOrder) (*ByteReader, error) {
	if !order.valid() {
		return nil, &ArgumentError{Argument: "order",
			Err: errors.Errorf("%s", order)}
	}
	return &ByteReader{
		source:   r.source,
		order:    order,
		host:     r.host,
		extent:   r.extent,
		position: r.position,
	}, nil
}

func (r *ByteReader) Order() ByteOrder {
	return r.order
}

// Returns the total size of the underlying source, in bytes.
func (r *ByteReader) Extent() uint64 {
	return r.extent
}

func (r *ByteReader) Position() uint64 {
	return r.position
}

// Moves the cursor to the given absolute offset. The end of the source is a
// valid position; anything past it is not.
func (r *ByteReader) Seek(offset uint64) error {
	if offset > r.extent {
		return &boundsError{Offset: offset, Extent: r.extent}
	}
	r.position = offset
	return nil
}

// Advances the cursor by n bytes.
func (r *ByteReader) Skip(n uint64) error {
	end := r.position + n
	if end < r.position {
		return &boundsError{Offset: r.position, Length: n, Extent: r.extent}
	}
	return r.Seek(end)
}

// Rounds the cursor up to the next multiple of alignment.
func (r *ByteReader) AlignTo(alignment uint64) error {
	return r.Seek(alignUp(r.position, alignment))
}

// Reads exactly n bytes (at most 8) into the internal buffer.
func (r *ByteReader) read(n uint64) ([]byte, error) {
	end := r.position + n
	if (end > r.extent) || (end < r.position) {
		return nil, &boundsError{Offset: r.position, Length: n,
			Extent: r.extent}
	}
	_, e := r.source.Seek(int64(r.position), io.SeekStart)
	if e != nil {
		return nil, errors.Wrapf(e, "seeking to 0x%x", r.position)
	}
	b := r.buffer[:n]
	_, e = io.ReadFull(r.source, b)
	if e != nil {
		return nil, errors.Wrapf(e, "reading %d bytes at 0x%x", n, r.position)
	}
	r.position = end
	return b, nil
}

func (r *ByteReader) swapped() bool {
	return r.order != r.host
}

func (r *ByteReader) ReadUint8() (uint8, error) {
	b, e := r.read(1)
	if e != nil {
		return 0, e
	}
	return b[0], nil
}

func (r *ByteReader) ReadUint16() (uint16, error) {
	b, e := r.read(2)
	if e != nil {
		return 0, e
	}
	v := r.host.binaryOrder().Uint16(b)
	if r.swapped() {
		v = bits.ReverseBytes16(v)
	}
	return v, nil
}

func (r *ByteReader) ReadUint32() (uint32, error) {
	b, e := r.read(4)
	if e != nil {
		return 0, e
	}
	v := r.host.binaryOrder().Uint32(b)
	if r.swapped() {
		v = bits.ReverseBytes32(v)
	}
	return v, nil
}

func (r *ByteReader) ReadUint64() (uint64, error) {
	b, e := r.read(8)
	if e != nil {
		return 0, e
	}
	v := r.host.binaryOrder().Uint64(b)
	if r.swapped() {
		v = bits.ReverseBytes64(v)
	}
	return v, nil
}

func (r *ByteReader) ReadInt8() (int8, error) {
	v, e := r.ReadUint8()
	return int8(v), e
}

func (r *ByteReader) ReadInt16() (int16, error) {
	v, e := r.ReadUint16()
	return int16(v), e
}

func (r *ByteReader) ReadInt32() (int32, error) {
	v, e := r.ReadUint32()
	return int32(v), e
}

func (r *ByteReader) ReadInt64() (int64, error) {
	v, e := r.ReadUint64()
	return int64(v), e
}

// Reads an address-sized field: 4 bytes for 32-bit files, 8 for 64-bit ones.
func (r *ByteReader) ReadWord(class Class) (uint64, error) {
	if class == Class64 {
		return r.ReadUint64()
	}
	v, e := r.ReadUint32()
	return uint64(v), e
}

// Reads the signed counterpart of ReadWord, sign-extending 32-bit values.
func (r *ByteReader) ReadSignedWord(class Class) (int64, error) {
	if class == Class64 {
		return r.ReadInt64()
	}
	v, e := r.ReadInt32()
	return int64(v), e
}

// Reads a null-terminated string at the cursor. The cursor ends up just past
// the terminator.
func (r *ByteReader) ReadCString() (string, error) {
	start := r.position
	var s strings.Builder
	for {
		c, e := r.ReadUint8()
		if e != nil {
			return "", errors.Wrapf(e, "unterminated string at 0x%x", start)
		}
		if c == 0 {
			return s.String(), nil
		}
		s.WriteByte(c)
	}
}

// Reads a null-terminated string at the given offset without moving the
// cursor.
func (r *ByteReader) ReadCStringAt(offset uint64) (string, error) {
	saved := r.position
	e := r.Seek(offset)
	if e != nil {
		return "", e
	}
	s, e := r.ReadCString()
	r.position = saved
	return s, e
}

func (r *ByteReader) ReadFloat32() (float32, error) {
	return 0, &UnsupportedOperationError{Operation: "ReadFloat32"}
}

func (r *ByteReader) ReadFloat64() (float64, error) {
	return 0, &UnsupportedOperationError{Operation: "ReadFloat64"}
}

// Would read a 128-bit decimal value.
func (r *ByteReader) ReadDecimal() ([16]byte, error) {
	return [16]byte{}, &UnsupportedOperationError{Operation: "ReadDecimal"}
}

func (r *ByteReader) ReadLengthPrefixedString() (string, error) {
	return "", &UnsupportedOperationError{
		Operation: "ReadLengthPrefixedString"}
}
