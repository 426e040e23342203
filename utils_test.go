package elf_decoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadStringAtOffset(t *testing.T) {
	buffer := []byte("\x00Hi there!\x00ASDFASDF")
	s, e := ReadStringAtOffset(0, buffer)
	require.NoError(t, e, "Failed reading empty string")
	assert.Equal(t, "", string(s))

	_, e = ReadStringAtOffset(999, buffer)
	require.Error(t, e, "Didn't get expected error for reading invalid offset")
	t.Logf("Got expected error for reading invalid offset: %s\n", e)
	var formatError *FormatError
	assert.ErrorAs(t, e, &formatError)

	_, e = ReadStringAtOffset(15, buffer)
	require.Error(t, e, "Didn't get expected error for reading unterminated "+
		"string")
	t.Logf("Got expected error for reading unterminated string: %s\n", e)

	s, e = ReadStringAtOffset(1, buffer)
	require.NoError(t, e, "Failed reading valid string")
	assert.Equal(t, "Hi there!", string(s))
}

func TestAlignUp(t *testing.T) {
	assert.Equal(t, uint64(0), alignUp(uint64(0), 4))
	assert.Equal(t, uint64(4), alignUp(uint64(1), 4))
	assert.Equal(t, uint64(4), alignUp(uint64(4), 4))
	assert.Equal(t, uint64(8), alignUp(uint64(5), 4))
	assert.Equal(t, uint32(7), alignUp(uint32(7), 1))
	assert.Equal(t, uint32(7), alignUp(uint32(7), 0))
	assert.Equal(t, uint16(0x1000), alignUp(uint16(0xff1), 0x1000))
}
