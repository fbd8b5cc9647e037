package pngfile

import (
	"io"

	"github.com/ssargent/pngframe/pkg/bytestream"
	"github.com/ssargent/pngframe/pkg/codec"
)

// ChunkInfo describes one chunk without its data
type ChunkInfo struct {
	Type     string `json:"type"`
	Length   uint32 `json:"length"`
	Offset   int64  `json:"offset"`
	CRC      uint32 `json:"crc"`
	Critical bool   `json:"critical"`
}

// Summary is the result of walking a whole PNG stream
type Summary struct {
	Chunks    []ChunkInfo    `json:"chunks"`
	Counts    map[string]int `json:"counts"`
	DataBytes int64          `json:"data_bytes"`
	Skipped   int            `json:"skipped"`
	Complete  bool           `json:"complete"`
}

// Scan walks every chunk of the stream in and summarizes it. On error the
// summary of the chunks read so far is returned alongside it.
func Scan(in io.Reader, config ReaderConfig) (*Summary, error) {
	r, err := NewStreamReader(in, config)
	if err != nil {
		return &Summary{Counts: make(map[string]int)}, err
	}
	return Summarize(r)
}

// Summarize reads the remaining chunks of r
func Summarize(r *Reader) (*Summary, error) {
	summary := &Summary{Counts: make(map[string]int)}

	it := r.Iterator()
	defer it.Close()
	for it.Next() {
		e := it.Entry()
		name := e.Chunk.Type.String()
		summary.Chunks = append(summary.Chunks, ChunkInfo{
			Type:     name,
			Length:   uint32(len(e.Chunk.Data)),
			Offset:   e.Offset,
			CRC:      e.CRC,
			Critical: e.Chunk.Type.IsCritical(),
		})
		summary.Counts[name]++
		summary.DataBytes += int64(len(e.Chunk.Data))
	}
	summary.Skipped = r.Skipped()
	summary.Complete = r.Complete()

	return summary, it.Err()
}

// CopyStats counts the chunks Copy kept and dropped
type CopyStats struct {
	Kept    int `json:"kept"`
	Dropped int `json:"dropped"`
}

// Copy re-frames the PNG stream in onto dst. Ancillary chunks for which keep
// returns false are dropped; critical chunks are always kept. A nil keep
// keeps everything.
func Copy(dst bytestream.Destination, in io.Reader, config ReaderConfig, keep func(codec.ChunkType) bool) (CopyStats, error) {
	var stats CopyStats

	r, err := NewStreamReader(in, config)
	if err != nil {
		return stats, err
	}

	if err := r.codec.WriteSignature(dst); err != nil {
		return stats, err
	}

	for {
		e, err := r.Next()
		if err == io.EOF {
			return stats, nil
		}
		if err != nil {
			return stats, err
		}

		typ := e.Chunk.Type
		if keep != nil && !typ.IsCritical() && !keep(typ) {
			stats.Dropped++
			continue
		}
		if err := r.codec.Format(dst, typ, e.Chunk.Data); err != nil {
			return stats, err
		}
		stats.Kept++
	}
}
