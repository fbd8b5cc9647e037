// Package codec provides PNG container framing: the file signature and the
// chunk frame that carries every piece of data in the file.
//
// The codec operates on the bytestream capabilities rather than on files or
// sockets, so the same framing logic serves any medium. It never buffers a
// whole file, never interprets chunk payloads, and never logs.
//
// # Signature
//
// Every PNG file opens with the eight bytes:
//
//	89 50 4E 47 0D 0A 1A 0A
//
// # Chunk Format
//
// Chunks are serialized in a binary format with the following structure:
//
//	[Length(4)][Type(4)][Data(Length)][CRC32(4)]
//
// Fields:
//   - Length: 32-bit unsigned count of data bytes (big-endian)
//   - Type: 4-byte chunk type tag, opaque to this package
//   - Data: Length bytes of payload
//   - CRC32: 32-bit CRC of Type followed by Data (big-endian)
//
// The total frame size is: 12 bytes + len(Data)
//
// # CRC32 Calculation
//
// The checksum accumulator is seeded with the four type bytes and then
// updated with the data. The length field and the checksum field itself are
// not covered.
//
// # Usage
//
//	c := codec.NewChunkCodec()
//
//	dst := bytestream.NewWriterDestination(w)
//	if err := c.WriteSignature(dst); err != nil {
//	    return err
//	}
//	if err := c.Format(dst, codec.TypeIEND, nil); err != nil {
//	    return err
//	}
//
//	src := bytestream.NewReaderSource(r)
//	if err := c.ReadSignature(src); err != nil {
//	    return err
//	}
//	chunk, err := c.Parse(src)
//
// # Error Handling
//
// Failures are classified by sentinel errors, matched with errors.Is:
//   - ErrInvalidDestination: a destination write failed
//   - ErrInvalidSignature: the first eight bytes are not the PNG signature
//   - ErrUnexpectedEndOfStream: the header, data, or checksum was truncated
//   - ErrChecksumMismatch: the stored checksum disagrees with the data
//   - ErrChunkTooLarge: the data length exceeds the frame or codec limit
//
// A checksum failure is reported as a *ChecksumError, which carries the
// decoded chunk so callers can decide whether to skip it. No error is
// retried.
//
// # Thread Safety
//
// ChunkCodec instances hold only immutable options and are safe for
// concurrent use on distinct streams.
package codec
