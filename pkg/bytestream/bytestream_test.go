package bytestream

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"testing/iotest"
)

// shortWriter accepts at most limit bytes per call without reporting an error
type shortWriter struct {
	limit int
	buf   bytes.Buffer
}

func (w *shortWriter) Write(p []byte) (int, error) {
	if len(p) > w.limit {
		p = p[:w.limit]
	}
	return w.buf.Write(p)
}

func TestWriterDestination(t *testing.T) {
	t.Run("full write succeeds", func(t *testing.T) {
		var out bytes.Buffer
		dst := NewWriterDestination(&out)
		if err := dst.Write([]byte("abc")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if out.String() != "abc" {
			t.Errorf("got %q, want %q", out.String(), "abc")
		}
	})

	t.Run("short write is a failure", func(t *testing.T) {
		w := &shortWriter{limit: 2}
		err := NewWriterDestination(w).Write([]byte("abcd"))
		if !errors.Is(err, io.ErrShortWrite) {
			t.Fatalf("expected io.ErrShortWrite, got %v", err)
		}
		if w.buf.String() != "ab" {
			t.Errorf("accepted bytes = %q, want %q", w.buf.String(), "ab")
		}
	})

	t.Run("writer error is propagated", func(t *testing.T) {
		boom := errors.New("disk full")
		err := NewWriterDestination(errWriter{boom}).Write([]byte{1})
		if !errors.Is(err, boom) {
			t.Fatalf("expected %v, got %v", boom, err)
		}
	})
}

type errWriter struct{ err error }

func (w errWriter) Write([]byte) (int, error) { return 0, w.err }

func TestReaderSource(t *testing.T) {
	testCases := []struct {
		name    string
		input   []byte
		n       int
		want    []byte
		wantErr error
	}{
		{name: "exact", input: []byte("12345678"), n: 8, want: []byte("12345678")},
		{name: "more available", input: []byte("123456789"), n: 4, want: []byte("1234")},
		{name: "empty stream", input: nil, n: 4, want: []byte{}, wantErr: io.EOF},
		{name: "short stream", input: []byte("12"), n: 4, want: []byte("12"), wantErr: io.ErrUnexpectedEOF},
		{name: "zero length", input: nil, n: 0, want: []byte{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			src := NewReaderSource(bytes.NewReader(tc.input))
			got, err := src.ReadFull(tc.n)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if !bytes.Equal(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestReaderSource_LargeReads(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, growStep*3+17)

	t.Run("one byte at a time", func(t *testing.T) {
		src := NewReaderSource(iotest.OneByteReader(bytes.NewReader(payload)))
		got, err := src.ReadFull(len(payload))
		if err != nil {
			t.Fatalf("ReadFull failed: %v", err)
		}
		if !bytes.Equal(got, payload) {
			t.Errorf("large read mismatch: got %d bytes", len(got))
		}
	})

	t.Run("forged length against short stream", func(t *testing.T) {
		src := NewReaderSource(bytes.NewReader(payload[:100]))
		got, err := src.ReadFull(1 << 30)
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Fatalf("err = %v, want io.ErrUnexpectedEOF", err)
		}
		if len(got) != 100 {
			t.Errorf("got %d bytes, want 100", len(got))
		}
	})

	t.Run("large read on empty stream", func(t *testing.T) {
		_, err := NewReaderSource(bytes.NewReader(nil)).ReadFull(growStep + 1)
		if !errors.Is(err, io.EOF) {
			t.Fatalf("err = %v, want io.EOF", err)
		}
	})

	t.Run("medium error is not a truncation", func(t *testing.T) {
		boom := errors.New("connection reset")
		_, err := NewReaderSource(iotest.ErrReader(boom)).ReadFull(growStep + 1)
		if !errors.Is(err, boom) {
			t.Fatalf("err = %v, want %v", err, boom)
		}
	})
}

func TestBuffer(t *testing.T) {
	var b Buffer
	if err := b.Write([]byte{1, 2, 3}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := b.Write([]byte{4, 5}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if b.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", b.Len())
	}

	got, err := b.ReadFull(2)
	if err != nil || !bytes.Equal(got, []byte{1, 2}) {
		t.Fatalf("ReadFull(2) = %v, %v", got, err)
	}

	got, err = b.ReadFull(5)
	if !errors.Is(err, io.ErrUnexpectedEOF) || !bytes.Equal(got, []byte{3, 4, 5}) {
		t.Fatalf("ReadFull(5) = %v, %v; want [3 4 5], io.ErrUnexpectedEOF", got, err)
	}

	if _, err := b.ReadFull(1); !errors.Is(err, io.EOF) {
		t.Fatalf("ReadFull on drained buffer: %v, want io.EOF", err)
	}

	b.Reset()
	if b.Len() != 0 || len(b.Bytes()) != 0 {
		t.Errorf("Reset left %d bytes", b.Len())
	}

	if _, err := NewBuffer([]byte{1}).ReadFull(-1); err == nil {
		t.Error("expected error for negative length")
	}
}

func TestBuffer_ReadsAreCopies(t *testing.T) {
	b := NewBuffer([]byte{9, 9, 9})
	got, _ := b.ReadFull(2)
	got[0] = 0
	if b.data[0] != 9 {
		t.Error("ReadFull returned an alias into the buffer")
	}
}

func TestLimitedDestination(t *testing.T) {
	var b Buffer
	l := &LimitedDestination{Dst: &b, Remaining: 5}

	if err := l.Write([]byte("abc")); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := l.Write([]byte("def")); !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("err = %v, want ErrBudgetExceeded", err)
	}
	if err := l.Write([]byte("de")); err != nil {
		t.Fatalf("fitting write failed: %v", err)
	}
	if string(b.Bytes()) != "abcde" {
		t.Errorf("got %q, want %q", b.Bytes(), "abcde")
	}
}
