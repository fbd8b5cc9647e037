package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/ssargent/pngframe/pkg/bytestream"
	"github.com/ssargent/pngframe/pkg/crc"
)

const (
	headerSize = 8 // Length(4) + Type(4)
	crcSize    = 4
)

// ChunkCodec handles serialization and deserialization of chunk frames
type ChunkCodec struct {
	maxDataLength uint32
}

// Option configures a ChunkCodec
type Option func(*ChunkCodec)

// WithMaxDataLength makes Parse reject frames declaring more than n data
// bytes with ErrChunkTooLarge before reading any payload.
func WithMaxDataLength(n uint32) Option {
	return func(c *ChunkCodec) {
		c.maxDataLength = n
	}
}

// NewChunkCodec creates a new chunk codec instance
func NewChunkCodec(opts ...Option) *ChunkCodec {
	c := &ChunkCodec{maxDataLength: math.MaxUint32}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxDataLength returns the largest data length Parse accepts
func (c *ChunkCodec) MaxDataLength() uint32 {
	return c.maxDataLength
}

// Format writes one chunk frame to dst as three writes: header, data, CRC.
// Format: [Length(4)][Type(4)][Data][CRC32(4)]
func (c *ChunkCodec) Format(dst bytestream.Destination, typ ChunkType, data []byte) error {
	if uint64(len(data)) > math.MaxUint32 {
		return fmt.Errorf("%w: %d bytes", ErrChunkTooLarge, len(data))
	}

	var header [headerSize]byte
	binary.BigEndian.PutUint32(header[0:4], uint32(len(data)))
	copy(header[4:8], typ[:])

	var footer [crcSize]byte
	binary.BigEndian.PutUint32(footer[:], crc.New(header[4:8]).Update(data).Sum32())

	if err := dst.Write(header[:]); err != nil {
		return fmt.Errorf("%w: chunk header: %w", ErrInvalidDestination, err)
	}
	if err := dst.Write(data); err != nil {
		return fmt.Errorf("%w: chunk data: %w", ErrInvalidDestination, err)
	}
	if err := dst.Write(footer[:]); err != nil {
		return fmt.Errorf("%w: chunk checksum: %w", ErrInvalidDestination, err)
	}
	return nil
}

// Parse reads one chunk frame from src and verifies its checksum. On success
// src is positioned at the start of the next frame.
func (c *ChunkCodec) Parse(src bytestream.Source) (*Chunk, error) {
	header, err := src.ReadFull(headerSize)
	if err != nil {
		if errors.Is(err, io.EOF) {
			// nothing left at a frame boundary; io.EOF stays matchable
			return nil, fmt.Errorf("%w: no chunk header: %w", ErrUnexpectedEndOfStream, io.EOF)
		}
		return nil, readError(err, "chunk header")
	}

	length := binary.BigEndian.Uint32(header[0:4])
	var typ ChunkType
	copy(typ[:], header[4:8])

	if length > c.maxDataLength || uint64(length) > math.MaxInt {
		return nil, fmt.Errorf("%w: %s chunk declares %d bytes, limit %d",
			ErrChunkTooLarge, typ, length, c.maxDataLength)
	}

	data, err := src.ReadFull(int(length))
	if err != nil {
		return nil, readError(err, "chunk data")
	}

	footer, err := src.ReadFull(crcSize)
	if err != nil {
		return nil, readError(err, "chunk checksum")
	}

	chunk := &Chunk{Type: typ, Data: data}
	stored := binary.BigEndian.Uint32(footer)
	computed := crc.New(header[4:8]).Update(data).Sum32()
	if stored != computed {
		return nil, &ChecksumError{Chunk: chunk, Stored: stored, Computed: computed}
	}

	return chunk, nil
}

// Encode serializes a chunk into a new byte slice
func (c *ChunkCodec) Encode(typ ChunkType, data []byte) ([]byte, error) {
	buf := bytestream.NewBuffer(make([]byte, 0, FrameSize(len(data))))
	if err := c.Format(buf, typ, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses the chunk frame at the front of frame and returns it along
// with the number of bytes consumed
func (c *ChunkCodec) Decode(frame []byte) (*Chunk, int, error) {
	buf := bytestream.NewBuffer(frame)
	chunk, err := c.Parse(buf)
	if err != nil {
		return nil, 0, err
	}
	return chunk, len(frame) - buf.Len(), nil
}

// readError classifies a failed read of one frame field
func readError(err error, field string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %s truncated", ErrUnexpectedEndOfStream, field)
	}
	return fmt.Errorf("reading %s: %w", field, err)
}
