package storage

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompress_RoundTrip(t *testing.T) {
	inputs := [][]byte{
		{},
		[]byte("blob 5\x00hello"),
		bytes.Repeat([]byte("tensor"), 10000),
	}
	for _, in := range inputs {
		z, err := Compress(in)
		require.NoError(t, err)

		out, err := Decompress(z)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	}
}

func TestCompress_ZlibHeader(t *testing.T) {
	z, err := Compress([]byte("blob 0\x00"))
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(z), 2)
	// CMF byte for deflate with a 32K window.
	assert.Equal(t, byte(0x78), z[0])
	assert.Zero(t, (uint16(z[0])<<8|uint16(z[1]))%31, "zlib header checksum")
}

func TestDecompress_Corrupt(t *testing.T) {
	_, err := Decompress([]byte("definitely not zlib"))
	assert.ErrorIs(t, err, ErrDecompression)

	z, err := Compress(bytes.Repeat([]byte("x"), 1024))
	require.NoError(t, err)
	_, err = Decompress(z[:len(z)/2])
	assert.ErrorIs(t, err, ErrDecompression)
}

func TestParseWritePolicy(t *testing.T) {
	p, err := ParseWritePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicySkip, p)

	p, err = ParseWritePolicy("strict")
	require.NoError(t, err)
	assert.Equal(t, PolicyStrict, p)

	_, err = ParseWritePolicy("overwrite")
	assert.Error(t, err)
}

func TestAlreadyExists(t *testing.T) {
	err := AlreadyExists("abcd")
	assert.ErrorIs(t, err, ErrWritingFile)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestShardKey(t *testing.T) {
	dir, file := ShardKey("2aae6c35c94fcfb415dbe95f408b9ce91ee846ed")
	assert.Equal(t, "2a", dir)
	assert.Equal(t, "ae6c35c94fcfb415dbe95f408b9ce91ee846ed", file)
	assert.Len(t, file, 38)
}
