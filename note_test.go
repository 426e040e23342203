package elf_decoder

import (
	"bytes"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expectedTestNotes(sectionOffset uint64) []Note {
	return []Note{
		{Name: "GNU", Type: 1, DescriptionSize: 16,
			DescriptionOffset: sectionOffset + 16},
		{Name: "GNU", Type: 3, DescriptionSize: 5,
			DescriptionOffset: sectionOffset + 48},
		{Name: "Go", Type: 4, DescriptionSize: 4,
			DescriptionOffset: sectionOffset + 72},
	}
}

func TestNoteReader(t *testing.T) {
	for _, format := range testFormats {
		t.Run(format.name, func(t *testing.T) {
			tf := newTestELF(format.class, format.order)
			data := tf.bytes()
			f, e := ParseBytes(data)
			require.NoError(t, e)
			expected := expectedTestNotes(tf.sections[testSectionNote].offset)

			source := bytes.NewReader(data)
			notes, e := f.SectionNotes(source, testSectionNote)
			require.NoError(t, e)
			for i := range expected {
				note, e := notes.Next()
				require.NoError(t, e, "Failed reading note %d", i)
				assert.Empty(t, cmp.Diff(&expected[i], note))
				t.Logf("Note %d: %s\n", i, note)
			}
			_, e = notes.Next()
			assert.Equal(t, io.EOF, e)
			_, e = notes.Next()
			assert.Equal(t, io.EOF, e)

			require.NoError(t, notes.Reset())
			all, e := notes.All()
			require.NoError(t, e)
			assert.Empty(t, cmp.Diff(expected, all))

			notes, e = f.SegmentNotes(source, testSegmentNote)
			require.NoError(t, e)
			all, e = notes.All()
			require.NoError(t, e)
			assert.Empty(t, cmp.Diff(expected, all))

			// The description bytes are where the notes say they are.
			description := make([]byte, expected[1].DescriptionSize)
			_, e = source.ReadAt(description,
				int64(expected[1].DescriptionOffset))
			require.NoError(t, e)
			assert.Equal(t, []byte{1, 2, 3, 4, 5}, description)
		})
	}
}

func TestReadNote(t *testing.T) {
	tf := newTestELF(Class64, BigEndian)
	data := tf.bytes()
	section := tf.sections[testSectionNote]
	r, e := NewByteReader(bytes.NewReader(data), BigEndian)
	require.NoError(t, e)
	require.NoError(t, r.Seek(section.offset))
	end := section.offset + section.size
	note, e := ReadNote(r, end)
	require.NoError(t, e)
	assert.Equal(t, "GNU", note.Name)
	assert.Equal(t, section.offset+32, r.Position())

	// Nothing is read at or past the end.
	require.NoError(t, r.Seek(end))
	_, e = ReadNote(r, end)
	assert.Equal(t, io.EOF, e)
	assert.Equal(t, end, r.Position())
	_, e = ReadNote(r, section.offset)
	assert.Equal(t, io.EOF, e)
}

func TestNoteErrors(t *testing.T) {
	f := parseTestELF(t, newTestELF(Class64, LittleEndian))
	source := bytes.NewReader(nil)
	var argumentError *ArgumentError
	_, e := f.SectionNotes(source, testSectionInterp)
	assert.ErrorAs(t, e, &argumentError)
	_, e = f.SectionNotes(source, 100)
	assert.ErrorAs(t, e, &argumentError)
	_, e = f.SegmentNotes(source, testSegmentLoad)
	assert.ErrorAs(t, e, &argumentError)
	_, e = f.SegmentNotes(source, -1)
	assert.ErrorAs(t, e, &argumentError)

	// A range outside of the input.
	_, e = NewNoteReader(bytes.NewReader(make([]byte, 8)), LittleEndian, 4,
		8)
	requireFormatError(t, e)

	// A description that runs past the end of the input.
	w := newTestEncoder(Class32, LittleEndian)
	w.u32(4)
	w.u32(100)
	w.u32(1)
	w.raw([]byte("GNU\x00"))
	w.raw([]byte{1, 2, 3, 4})
	notes, e := NewNoteReader(bytes.NewReader(w.data), LittleEndian, 0,
		uint64(len(w.data)))
	require.NoError(t, e)
	_, e = notes.Next()
	requireFormatError(t, e)

	// A name without a terminator.
	w = newTestEncoder(Class32, BigEndian)
	w.u32(4)
	w.u32(0)
	w.u32(1)
	w.raw([]byte("GNU!"))
	notes, e = NewNoteReader(bytes.NewReader(w.data), BigEndian, 0,
		uint64(len(w.data)))
	require.NoError(t, e)
	_, e = notes.All()
	requireFormatError(t, e)
}
