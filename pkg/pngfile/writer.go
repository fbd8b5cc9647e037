package pngfile

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ssargent/pngframe/pkg/bytestream"
	"github.com/ssargent/pngframe/pkg/codec"
)

const defaultBufferSize = 32 * 1024

// Writer emits a PNG stream: the signature on open, then one frame per chunk
type Writer struct {
	file       *os.File // nil for stream writers
	writer     *bufio.Writer
	dst        bytestream.Destination
	codec      *codec.ChunkCodec
	fsyncTimer *time.Timer
	config     WriterConfig
	mutex      sync.Mutex
	offset     int64 // Current write offset
	chunks     int
	seenIEND   bool
	closed     bool
}

// NewWriter creates the file at config.FilePath, truncating any existing
// contents, and writes the signature
func NewWriter(config WriterConfig) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0750); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, err
	}

	w, err := newWriter(file, file, config)
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	if config.FsyncInterval > 0 {
		w.fsyncTimer = time.AfterFunc(config.FsyncInterval, func() {
			w.mutex.Lock()
			defer w.mutex.Unlock()
			if !w.closed {
				_ = w.sync()
			}
		})
	}

	return w, nil
}

// NewStreamWriter writes a PNG stream to out. Sync flushes the buffer only.
func NewStreamWriter(out io.Writer, config WriterConfig) (*Writer, error) {
	return newWriter(nil, out, config)
}

func newWriter(file *os.File, out io.Writer, config WriterConfig) (*Writer, error) {
	size := config.BufferSize
	if size <= 0 {
		size = defaultBufferSize
	}
	buffered := bufio.NewWriterSize(out, size)

	w := &Writer{
		file:   file,
		writer: buffered,
		dst:    bytestream.NewWriterDestination(buffered),
		codec:  codec.NewChunkCodec(),
		config: config,
	}

	if err := w.codec.WriteSignature(w.dst); err != nil {
		return nil, err
	}
	w.offset = int64(len(codec.Signature))

	return w, nil
}

// WriteChunk appends a chunk frame and returns the offset where it starts
func (w *Writer) WriteChunk(typ codec.ChunkType, data []byte) (int64, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.closed {
		return 0, ErrClosed
	}

	if w.config.Strict {
		if w.chunks == 0 && typ != codec.TypeIHDR {
			return 0, &OrderError{Offset: w.offset, Type: typ, Err: ErrFirstChunkNotIHDR}
		}
		if w.seenIEND {
			return 0, &OrderError{Offset: w.offset, Type: typ, Err: ErrChunkAfterIEND}
		}
	}

	if err := w.codec.Format(w.dst, typ, data); err != nil {
		return 0, err
	}

	chunkOffset := w.offset
	w.offset += int64(codec.FrameSize(len(data)))
	w.chunks++
	if typ == codec.TypeIEND {
		w.seenIEND = true
	}

	if w.config.FsyncInterval == 0 {
		if err := w.sync(); err != nil {
			return 0, err
		}
	} else if w.fsyncTimer != nil {
		w.fsyncTimer.Reset(w.config.FsyncInterval)
	}

	return chunkOffset, nil
}

// WriteEntry appends a chunk read from another stream
func (w *Writer) WriteEntry(c *codec.Chunk) (int64, error) {
	return w.WriteChunk(c.Type, c.Data)
}

// Sync flushes buffered frames and fsyncs the file
func (w *Writer) Sync() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.sync()
}

func (w *Writer) sync() error {
	if err := w.writer.Flush(); err != nil {
		return err
	}
	if w.file == nil {
		return nil
	}
	return w.file.Sync()
}

// Close flushes and closes the writer. In strict mode it reports
// ErrMissingIEND if no IEND chunk was written; the file is closed regardless.
func (w *Writer) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.closed {
		return ErrClosed
	}
	w.closed = true

	if w.fsyncTimer != nil {
		w.fsyncTimer.Stop()
	}

	err := w.sync()
	if w.file != nil {
		if closeErr := w.file.Close(); err == nil {
			err = closeErr
		}
	}
	if err != nil {
		return err
	}

	if w.config.Strict && !w.seenIEND {
		return ErrMissingIEND
	}
	return nil
}

// Offset returns the number of bytes written so far
func (w *Writer) Offset() int64 {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.offset
}

// Chunks returns the number of chunks written
func (w *Writer) Chunks() int {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.chunks
}

// Path returns the file path
func (w *Writer) Path() string {
	return w.config.FilePath
}
