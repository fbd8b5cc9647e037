package pngfile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ssargent/pngframe/pkg/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWriter(t *testing.T) {
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "out.png")

	writer, err := NewWriter(WriterConfig{FilePath: filePath, BufferSize: 4096})
	require.NoError(t, err)
	assert.NotNil(t, writer)
	assert.FileExists(t, filePath)
	assert.Equal(t, int64(8), writer.Offset())
	assert.Equal(t, filePath, writer.Path())

	require.NoError(t, writer.Close())

	data, err := os.ReadFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, codec.Signature[:], data)
}

func TestNewWriter_DirectoryCreation(t *testing.T) {
	tmpDir := t.TempDir()
	nestedDir := filepath.Join(tmpDir, "nested", "deep", "path")

	writer, err := NewWriter(WriterConfig{FilePath: filepath.Join(nestedDir, "out.png")})
	require.NoError(t, err)
	assert.DirExists(t, nestedDir)
	require.NoError(t, writer.Close())
}

func TestNewWriter_TruncatesExistingFile(t *testing.T) {
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "out.png")
	require.NoError(t, os.WriteFile(filePath, bytes.Repeat([]byte{0xFF}, 500), 0600))

	writer, err := NewWriter(WriterConfig{FilePath: filePath})
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	info, err := os.Stat(filePath)
	require.NoError(t, err)
	assert.Equal(t, int64(8), info.Size())
}

func TestWriter_WriteChunk(t *testing.T) {
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "tiny.png")

	writer, err := NewWriter(WriterConfig{FilePath: filePath, Strict: true})
	require.NoError(t, err)

	offsets := make([]int64, 0, 4)
	for _, c := range []codec.Chunk{
		{Type: codec.TypeIHDR, Data: tinyIHDR},
		{Type: typeGAMA, Data: []byte{0, 0, 0xB1, 0x8F}},
		{Type: codec.TypeIDAT, Data: tinyIDAT},
	} {
		off, err := writer.WriteEntry(&c)
		require.NoError(t, err)
		offsets = append(offsets, off)
	}
	off, err := writer.WriteChunk(codec.TypeIEND, nil)
	require.NoError(t, err)
	offsets = append(offsets, off)

	assert.Equal(t, []int64{8, 33, 49, 71}, offsets)
	assert.Equal(t, 4, writer.Chunks())
	require.NoError(t, writer.Close())

	data, err := os.ReadFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, tinyPNG(t), data)
}

func TestWriter_Strict(t *testing.T) {
	t.Run("first chunk must be IHDR", func(t *testing.T) {
		var out bytes.Buffer
		writer, err := NewStreamWriter(&out, WriterConfig{Strict: true})
		require.NoError(t, err)

		_, err = writer.WriteChunk(codec.TypeIDAT, tinyIDAT)
		assert.ErrorIs(t, err, ErrFirstChunkNotIHDR)
		assert.Equal(t, 0, writer.Chunks())
	})

	t.Run("nothing after IEND", func(t *testing.T) {
		var out bytes.Buffer
		writer, err := NewStreamWriter(&out, WriterConfig{Strict: true})
		require.NoError(t, err)

		_, err = writer.WriteChunk(codec.TypeIHDR, tinyIHDR)
		require.NoError(t, err)
		_, err = writer.WriteChunk(codec.TypeIEND, nil)
		require.NoError(t, err)
		_, err = writer.WriteChunk(codec.TypeTEXT, []byte("a\x00b"))
		assert.ErrorIs(t, err, ErrChunkAfterIEND)
		assert.NoError(t, writer.Close())
	})

	t.Run("close without IEND", func(t *testing.T) {
		var out bytes.Buffer
		writer, err := NewStreamWriter(&out, WriterConfig{Strict: true})
		require.NoError(t, err)
		_, err = writer.WriteChunk(codec.TypeIHDR, tinyIHDR)
		require.NoError(t, err)

		assert.ErrorIs(t, writer.Close(), ErrMissingIEND)
		assert.Equal(t, 8+25, out.Len(), "buffered frames are flushed before reporting")
	})

	t.Run("lenient writer accepts any order", func(t *testing.T) {
		var out bytes.Buffer
		writer, err := NewStreamWriter(&out, WriterConfig{})
		require.NoError(t, err)
		_, err = writer.WriteChunk(codec.TypeIDAT, tinyIDAT)
		require.NoError(t, err)
		assert.NoError(t, writer.Close())
	})
}

func TestWriter_Closed(t *testing.T) {
	var out bytes.Buffer
	writer, err := NewStreamWriter(&out, WriterConfig{})
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	_, err = writer.WriteChunk(codec.TypeIEND, nil)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, writer.Close(), ErrClosed)
}

type failingWriter struct{ err error }

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

func TestWriter_DestinationFailure(t *testing.T) {
	boom := errors.New("broken pipe")

	// the signature sits in the buffer until the first flush
	writer, err := NewStreamWriter(failingWriter{boom}, WriterConfig{BufferSize: 16})
	require.NoError(t, err)

	_, err = writer.WriteChunk(codec.TypeIDAT, bytes.Repeat([]byte{1}, 64))
	assert.ErrorIs(t, err, codec.ErrInvalidDestination)
	assert.ErrorIs(t, err, boom)
}

func TestWriter_FsyncInterval(t *testing.T) {
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "timed.png")

	writer, err := NewWriter(WriterConfig{FilePath: filePath, FsyncInterval: 10 * time.Millisecond})
	require.NoError(t, err)

	_, err = writer.WriteChunk(codec.TypeIHDR, tinyIHDR)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		info, err := os.Stat(filePath)
		return err == nil && info.Size() == 33
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, writer.Sync())
	require.NoError(t, writer.Close())
}

func TestWriterReaderRoundTrip(t *testing.T) {
	var out bytes.Buffer
	writer, err := NewStreamWriter(&out, WriterConfig{Strict: true})
	require.NoError(t, err)

	payloads := [][]byte{tinyIHDR, bytes.Repeat([]byte{0x42}, 70000), nil}
	types := []codec.ChunkType{codec.TypeIHDR, codec.TypeIDAT, codec.TypeIEND}
	for i := range types {
		_, err := writer.WriteChunk(types[i], payloads[i])
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	reader, err := NewStreamReader(&out, ReaderConfig{Strict: true})
	require.NoError(t, err)
	for i := range types {
		entry, err := reader.Next()
		require.NoError(t, err)
		assert.Equal(t, types[i], entry.Chunk.Type)
		assert.Equal(t, len(payloads[i]), len(entry.Chunk.Data))
		assert.True(t, bytes.Equal(payloads[i], entry.Chunk.Data))
	}
}
