package codec

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrInvalidDestination    = errors.New("invalid destination: write failed")
	ErrInvalidSignature      = errors.New("invalid PNG signature")
	ErrUnexpectedEndOfStream = errors.New("unexpected end of stream")
	ErrChecksumMismatch      = errors.New("chunk checksum mismatch")
	ErrChunkTooLarge         = errors.New("chunk data too large")
)

// ChecksumError reports a chunk whose stored CRC disagrees with its contents.
// Chunk holds the frame as decoded, so a caller may choose to skip it.
type ChecksumError struct {
	Chunk    *Chunk
	Stored   uint32
	Computed uint32
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("%v in %s chunk: stored %08x, computed %08x",
		ErrChecksumMismatch, e.Chunk.Type, e.Stored, e.Computed)
}

func (e *ChecksumError) Unwrap() error {
	return ErrChecksumMismatch
}

// Kind returns a short stable name for the codec error class of err, or
// "unknown" when err is not one of them.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidDestination):
		return "invalid_destination"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrUnexpectedEndOfStream):
		return "unexpected_end_of_stream"
	case errors.Is(err, ErrChecksumMismatch):
		return "checksum_mismatch"
	case errors.Is(err, ErrChunkTooLarge):
		return "chunk_too_large"
	default:
		return "unknown"
	}
}
