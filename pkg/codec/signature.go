package codec

import (
	"bytes"
	"fmt"

	"github.com/ssargent/pngframe/pkg/bytestream"
)

// Signature is the eight-byte sequence that opens every PNG file
var Signature = [8]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}

// WriteSignature emits the signature to dst
func (c *ChunkCodec) WriteSignature(dst bytestream.Destination) error {
	sig := Signature
	if err := dst.Write(sig[:]); err != nil {
		return fmt.Errorf("%w: signature: %w", ErrInvalidDestination, err)
	}
	return nil
}

// ReadSignature consumes eight bytes from src and checks them against the
// signature. On truncation only the available bytes are consumed.
func (c *ChunkCodec) ReadSignature(src bytestream.Source) error {
	got, err := src.ReadFull(len(Signature))
	if err != nil {
		return readError(err, "signature")
	}
	if !bytes.Equal(got, Signature[:]) {
		return fmt.Errorf("%w: got % x", ErrInvalidSignature, got)
	}
	return nil
}

// HasSignature reports whether p begins with the signature
func HasSignature(p []byte) bool {
	return bytes.HasPrefix(p, Signature[:])
}
