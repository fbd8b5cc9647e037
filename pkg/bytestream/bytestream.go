// Package bytestream defines the byte sink and byte source capabilities the
// chunk codec reads from and writes to, plus adapters for io.Writer,
// io.Reader and memory buffers.
package bytestream

import (
	"bytes"
	"errors"
	"io"
)

// Destination is a write-only byte sink.
//
// Write either accepts all of p or returns an error. A failed write may have
// left any number of bytes in the sink; callers treat the whole higher-level
// operation as failed.
type Destination interface {
	Write(p []byte) error
}

// Source is a read-only byte source.
//
// ReadFull returns exactly n bytes and a nil error, or the bytes that were
// available together with io.EOF (none) or io.ErrUnexpectedEOF (some). Any
// other error is a failure of the backing medium.
type Source interface {
	ReadFull(n int) ([]byte, error)
}

// growStep bounds how much ReadFull allocates ahead of the bytes it has
// actually received.
const growStep = 64 * 1024

// writerDestination adapts an io.Writer to Destination
type writerDestination struct {
	w io.Writer
}

// NewWriterDestination wraps w. A short write is reported as io.ErrShortWrite;
// bytes accepted before a failure stay written.
func NewWriterDestination(w io.Writer) Destination {
	return &writerDestination{w: w}
}

func (d *writerDestination) Write(p []byte) error {
	n, err := d.w.Write(p)
	if err != nil {
		return err
	}
	if n < len(p) {
		return io.ErrShortWrite
	}
	return nil
}

// readerSource adapts an io.Reader to Source
type readerSource struct {
	r io.Reader
}

// NewReaderSource wraps r. The returned source grows its buffer as bytes
// arrive, so a large n against a short stream fails without allocating n
// bytes up front.
func NewReaderSource(r io.Reader) Source {
	return &readerSource{r: r}
}

func (s *readerSource) ReadFull(n int) ([]byte, error) {
	if n <= growStep {
		buf := make([]byte, n)
		read, err := io.ReadFull(s.r, buf)
		return buf[:read], err
	}

	var buf bytes.Buffer
	buf.Grow(growStep)
	copied, err := io.CopyN(&buf, s.r, int64(n))
	if err == io.EOF {
		if copied == 0 {
			return buf.Bytes(), io.EOF
		}
		return buf.Bytes(), io.ErrUnexpectedEOF
	}
	return buf.Bytes(), err
}

// Buffer is an in-memory Destination and Source. Writes append; reads
// consume from the front. The zero value is an empty buffer ready for use.
type Buffer struct {
	data []byte
	off  int
}

// NewBuffer creates a buffer whose unread contents are p
func NewBuffer(p []byte) *Buffer {
	return &Buffer{data: p}
}

// Write appends p to the buffer
func (b *Buffer) Write(p []byte) error {
	b.data = append(b.data, p...)
	return nil
}

// ReadFull consumes up to n bytes from the front of the buffer
func (b *Buffer) ReadFull(n int) ([]byte, error) {
	if n < 0 {
		return nil, errors.New("bytestream: negative read length")
	}
	remaining := len(b.data) - b.off
	if remaining == 0 && n > 0 {
		return nil, io.EOF
	}
	if remaining < n {
		out := append([]byte(nil), b.data[b.off:]...)
		b.off = len(b.data)
		return out, io.ErrUnexpectedEOF
	}
	out := append([]byte(nil), b.data[b.off:b.off+n]...)
	b.off += n
	return out, nil
}

// Bytes returns the unread portion of the buffer
func (b *Buffer) Bytes() []byte {
	return b.data[b.off:]
}

// Len returns the number of unread bytes
func (b *Buffer) Len() int {
	return len(b.data) - b.off
}

// Reset empties the buffer
func (b *Buffer) Reset() {
	b.data = b.data[:0]
	b.off = 0
}

// ErrBudgetExceeded is returned by a LimitedDestination once its byte budget
// would be exceeded.
var ErrBudgetExceeded = errors.New("bytestream: destination byte budget exceeded")

// LimitedDestination forwards writes to Dst until Remaining bytes have been
// written. A write that does not fit is rejected whole.
type LimitedDestination struct {
	Dst       Destination
	Remaining int64
}

func (l *LimitedDestination) Write(p []byte) error {
	if int64(len(p)) > l.Remaining {
		return ErrBudgetExceeded
	}
	if err := l.Dst.Write(p); err != nil {
		return err
	}
	l.Remaining -= int64(len(p))
	return nil
}
