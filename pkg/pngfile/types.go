package pngfile

import (
	"errors"
	"fmt"
	"time"

	"github.com/ssargent/pngframe/pkg/codec"
)

// WriterConfig holds configuration for the chunk writer
type WriterConfig struct {
	FilePath      string        // Path to the PNG file to create
	FsyncInterval time.Duration // How often to fsync (0 = every chunk)
	BufferSize    int           // Write buffer size
	Strict        bool          // Enforce IHDR first and IEND last
}

// ReaderConfig holds configuration for the chunk reader
type ReaderConfig struct {
	FilePath             string // Path to the PNG file
	MaxDataLength        uint32 // Largest accepted chunk data length (0 = no limit)
	Strict               bool   // Enforce IHDR first, IEND last, nothing after IEND
	SkipCorruptAncillary bool   // Skip ancillary chunks whose checksum fails
}

// Entry is a parsed chunk together with where its frame starts in the file
type Entry struct {
	Offset int64
	Chunk  *codec.Chunk
	CRC    uint32
}

// ChunkIterator provides streaming access to chunks
type ChunkIterator interface {
	Next() bool
	Entry() *Entry
	Err() error
	Close() error
}

// Errors
var (
	ErrFirstChunkNotIHDR = errors.New("first chunk is not IHDR")
	ErrChunkAfterIEND    = errors.New("data after IEND chunk")
	ErrMissingIEND       = errors.New("stream ended without IEND chunk")
	ErrClosed            = errors.New("png file already closed")
)

// OrderError reports a chunk that violates the file-level chunk sequence
type OrderError struct {
	Offset int64
	Type   codec.ChunkType
	Err    error
}

func (e *OrderError) Error() string {
	if e.Type == (codec.ChunkType{}) {
		return fmt.Sprintf("%v at offset %d", e.Err, e.Offset)
	}
	return fmt.Sprintf("%v: %s chunk at offset %d", e.Err, e.Type, e.Offset)
}

func (e *OrderError) Unwrap() error {
	return e.Err
}

// Kind extends codec.Kind with the chunk sequence errors
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingIEND):
		return "missing_iend"
	case errors.Is(err, ErrFirstChunkNotIHDR):
		return "first_chunk_not_ihdr"
	case errors.Is(err, ErrChunkAfterIEND):
		return "chunk_after_iend"
	default:
		return codec.Kind(err)
	}
}

func (c ReaderConfig) codec() *codec.ChunkCodec {
	if c.MaxDataLength > 0 {
		return codec.NewChunkCodec(codec.WithMaxDataLength(c.MaxDataLength))
	}
	return codec.NewChunkCodec()
}
