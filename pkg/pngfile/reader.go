package pngfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ssargent/pngframe/pkg/bytestream"
	"github.com/ssargent/pngframe/pkg/codec"
	"github.com/ssargent/pngframe/pkg/crc"
)

// Reader provides sequential access to the chunks of a PNG stream
type Reader struct {
	file     *os.File // nil for stream readers
	src      bytestream.Source
	codec    *codec.ChunkCodec
	offset   int64
	config   ReaderConfig
	chunks   int
	skipped  int
	seenIEND bool
	afterErr error // sticky once trailing data is found
}

// NewReader opens config.FilePath and verifies its signature
func NewReader(config ReaderConfig) (*Reader, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, err
	}

	r, err := newReader(file, file, config)
	if err != nil {
		file.Close()
		return nil, err
	}
	return r, nil
}

// NewStreamReader reads a PNG stream from in and verifies its signature
func NewStreamReader(in io.Reader, config ReaderConfig) (*Reader, error) {
	return newReader(nil, in, config)
}

func newReader(file *os.File, in io.Reader, config ReaderConfig) (*Reader, error) {
	r := &Reader{
		file:   file,
		src:    bytestream.NewReaderSource(bufio.NewReader(in)),
		codec:  config.codec(),
		config: config,
	}

	if err := r.codec.ReadSignature(r.src); err != nil {
		return nil, err
	}
	r.offset = int64(len(codec.Signature))

	return r, nil
}

// Next reads the next chunk. It returns io.EOF after IEND, or at a clean
// end of stream when not strict.
func (r *Reader) Next() (*Entry, error) {
	if r.seenIEND {
		return nil, r.afterIEND()
	}

	for {
		start := r.offset
		chunk, err := r.codec.Parse(r.src)
		if err != nil {
			if errors.Is(err, io.EOF) {
				if r.config.Strict {
					return nil, fmt.Errorf("%w: %w", ErrMissingIEND, err)
				}
				return nil, io.EOF
			}

			var csErr *codec.ChecksumError
			if r.config.SkipCorruptAncillary && errors.As(err, &csErr) && !csErr.Chunk.Type.IsCritical() {
				r.skipped++
				r.offset += int64(codec.FrameSize(len(csErr.Chunk.Data)))
				continue
			}
			return nil, fmt.Errorf("chunk at offset %d: %w", start, err)
		}

		r.offset += int64(codec.FrameSize(len(chunk.Data)))

		if r.config.Strict && r.chunks == 0 && chunk.Type != codec.TypeIHDR {
			return nil, &OrderError{Offset: start, Type: chunk.Type, Err: ErrFirstChunkNotIHDR}
		}
		r.chunks++
		if chunk.Type == codec.TypeIEND {
			r.seenIEND = true
		}

		return &Entry{
			Offset: start,
			Chunk:  chunk,
			CRC:    crc.New(chunk.Type[:]).Update(chunk.Data).Sum32(),
		}, nil
	}
}

// afterIEND reports io.EOF, or ErrChunkAfterIEND in strict mode when any
// byte follows the IEND frame
func (r *Reader) afterIEND() error {
	if !r.config.Strict {
		return io.EOF
	}
	if r.afterErr != nil {
		return r.afterErr
	}
	trailing, err := r.src.ReadFull(1)
	if len(trailing) > 0 {
		r.offset += int64(len(trailing))
		r.afterErr = &OrderError{Offset: r.offset - 1, Err: ErrChunkAfterIEND}
		return r.afterErr
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return io.EOF
}

// ReadAt reads the single chunk whose frame starts at offset in the file.
// Only file-backed readers support it.
func (r *Reader) ReadAt(offset int64) (*codec.Chunk, error) {
	if r.file == nil {
		return nil, errors.New("ReadAt requires a file-backed reader")
	}

	section := io.NewSectionReader(r.file, offset, 1<<62)
	return r.codec.Parse(bytestream.NewReaderSource(section))
}

// Offset returns the offset of the next unread frame
func (r *Reader) Offset() int64 {
	return r.offset
}

// Chunks returns the number of chunks returned so far
func (r *Reader) Chunks() int {
	return r.chunks
}

// Skipped returns the number of corrupt ancillary chunks skipped
func (r *Reader) Skipped() int {
	return r.skipped
}

// Complete reports whether the IEND chunk has been read
func (r *Reader) Complete() bool {
	return r.seenIEND
}

// Iterator returns a streaming iterator for chunks
func (r *Reader) Iterator() ChunkIterator {
	return &chunkIterator{reader: r}
}

// Close closes the underlying file, if any
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}

// chunkIterator implements ChunkIterator for streaming access
type chunkIterator struct {
	reader *Reader
	entry  *Entry
	err    error
}

func (it *chunkIterator) Next() bool {
	if it.err != nil {
		return false
	}
	it.entry, it.err = it.reader.Next()
	return it.err == nil
}

func (it *chunkIterator) Entry() *Entry {
	return it.entry
}

// Err returns the error that stopped iteration, or nil at a normal end
func (it *chunkIterator) Err() error {
	if errors.Is(it.err, io.EOF) && !errors.Is(it.err, ErrMissingIEND) {
		return nil
	}
	return it.err
}

func (it *chunkIterator) Close() error {
	// Don't close the underlying reader as it's owned by the caller
	return nil
}
