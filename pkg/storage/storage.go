// Package storage archives PNG chunks in a pebble database.
//
// Each chunk is stored as its complete wire frame under a KSUID, so every
// read re-verifies the frame checksum. Archived files are stored as a
// manifest listing their chunk IDs in order.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/pngframe/pkg/bytestream"
	"github.com/ssargent/pngframe/pkg/codec"
	"github.com/ssargent/pngframe/pkg/pngfile"
)

// Key prefixes
const (
	chunkPrefix    byte = 'c'
	manifestPrefix byte = 'f'
)

// Errors
var (
	ErrNotFound        = errors.New("not found")
	ErrCorruptManifest = errors.New("corrupt file manifest")
)

// Config holds configuration for the chunk store
type Config struct {
	DataDir  string         // Directory for the pebble database
	InMemory bool           // Keep everything in memory (DataDir ignored)
	Sync     bool           // Fsync every write
	Logger   zerolog.Logger // Store lifecycle logging
}

// Entry describes an archived chunk
type Entry struct {
	ID      ksuid.KSUID     `json:"id"`
	Type    codec.ChunkType `json:"type"`
	Length  int             `json:"length"`
	Created time.Time       `json:"created"`
}

// ChunkStore is a pebble-backed archive of chunk frames
type ChunkStore struct {
	db        *pebble.DB
	codec     *codec.ChunkCodec
	writeOpts *pebble.WriteOptions
	logger    zerolog.Logger
}

// NewChunkStore opens (or creates) the archive described by config
func NewChunkStore(config Config) (*ChunkStore, error) {
	opts := &pebble.Options{}
	dir := config.DataDir
	if config.InMemory {
		opts.FS = vfs.NewMem()
		dir = ""
	}

	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open chunk store: %w", err)
	}

	writeOpts := pebble.NoSync
	if config.Sync {
		writeOpts = pebble.Sync
	}

	config.Logger.Debug().
		Str("data_dir", config.DataDir).
		Bool("in_memory", config.InMemory).
		Msg("chunk store opened")

	return &ChunkStore{
		db:        db,
		codec:     codec.NewChunkCodec(),
		writeOpts: writeOpts,
		logger:    config.Logger,
	}, nil
}

// Put archives one chunk and returns its ID
func (s *ChunkStore) Put(chunk *codec.Chunk) (ksuid.KSUID, error) {
	frame, err := s.codec.Encode(chunk.Type, chunk.Data)
	if err != nil {
		return ksuid.Nil, err
	}

	id := ksuid.New()
	if err := s.db.Set(chunkKey(id), frame, s.writeOpts); err != nil {
		return ksuid.Nil, err
	}
	return id, nil
}

// Get returns the chunk stored under id, verifying its checksum
func (s *ChunkStore) Get(id ksuid.KSUID) (*codec.Chunk, error) {
	frame, err := s.Frame(id)
	if err != nil {
		return nil, err
	}
	chunk, _, err := s.codec.Decode(frame)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", id, err)
	}
	return chunk, nil
}

// Frame returns the raw wire frame stored under id
func (s *ChunkStore) Frame(id ksuid.KSUID) ([]byte, error) {
	value, closer, err := s.db.Get(chunkKey(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, fmt.Errorf("chunk %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	defer closer.Close()

	return append([]byte(nil), value...), nil
}

// Delete removes the chunk stored under id
func (s *ChunkStore) Delete(id ksuid.KSUID) error {
	if _, err := s.Frame(id); err != nil {
		return err
	}
	return s.db.Delete(chunkKey(id), s.writeOpts)
}

// List returns up to limit archived chunks in ID order, which follows
// creation time to the second; limit <= 0 lists everything
func (s *ChunkStore) List(limit int) ([]Entry, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte{chunkPrefix},
		UpperBound: []byte{chunkPrefix + 1},
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var entries []Entry
	for iter.First(); iter.Valid(); iter.Next() {
		if limit > 0 && len(entries) >= limit {
			break
		}
		id, err := ksuid.FromBytes(iter.Key()[1:])
		if err != nil {
			return nil, fmt.Errorf("bad chunk key: %w", err)
		}
		frame := iter.Value()
		if len(frame) < codec.FrameSize(0) {
			return nil, fmt.Errorf("chunk %s: %w", id, codec.ErrUnexpectedEndOfStream)
		}
		var typ codec.ChunkType
		copy(typ[:], frame[4:8])
		entries = append(entries, Entry{
			ID:      id,
			Type:    typ,
			Length:  len(frame) - codec.FrameSize(0),
			Created: id.Time(),
		})
	}
	return entries, iter.Error()
}

// PutFile archives every chunk of the PNG stream in, plus a manifest
// recording their order. The stream is read under config, so strict
// ordering and the data length limit apply. It returns the manifest ID.
// Nothing is stored if the stream is rejected.
func (s *ChunkStore) PutFile(in io.Reader, config pngfile.ReaderConfig) (ksuid.KSUID, []ksuid.KSUID, error) {
	r, err := pngfile.NewStreamReader(in, config)
	if err != nil {
		return ksuid.Nil, nil, err
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	var ids []ksuid.KSUID
	var manifest bytes.Buffer
	for {
		e, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ksuid.Nil, nil, err
		}
		chunk := e.Chunk

		frame, err := s.codec.Encode(chunk.Type, chunk.Data)
		if err != nil {
			return ksuid.Nil, nil, err
		}
		id := ksuid.New()
		if err := batch.Set(chunkKey(id), frame, nil); err != nil {
			return ksuid.Nil, nil, err
		}
		ids = append(ids, id)
		manifest.Write(id.Bytes())
	}

	fileID := ksuid.New()
	if err := batch.Set(manifestKey(fileID), manifest.Bytes(), nil); err != nil {
		return ksuid.Nil, nil, err
	}
	if err := batch.Commit(s.writeOpts); err != nil {
		return ksuid.Nil, nil, err
	}

	s.logger.Info().
		Str("file_id", fileID.String()).
		Int("chunks", len(ids)).
		Msg("archived png file")

	return fileID, ids, nil
}

// Manifest returns the chunk IDs of an archived file in order
func (s *ChunkStore) Manifest(fileID ksuid.KSUID) ([]ksuid.KSUID, error) {
	value, closer, err := s.db.Get(manifestKey(fileID))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, fmt.Errorf("file %s: %w", fileID, ErrNotFound)
		}
		return nil, err
	}
	defer closer.Close()

	if len(value)%ksuidLen != 0 {
		return nil, fmt.Errorf("file %s: %w", fileID, ErrCorruptManifest)
	}
	ids := make([]ksuid.KSUID, 0, len(value)/ksuidLen)
	for off := 0; off < len(value); off += ksuidLen {
		id, err := ksuid.FromBytes(value[off : off+ksuidLen])
		if err != nil {
			return nil, fmt.Errorf("file %s: %w", fileID, ErrCorruptManifest)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Assemble writes the signature followed by the chunks ids, in order, to dst
func (s *ChunkStore) Assemble(dst bytestream.Destination, ids []ksuid.KSUID) error {
	if err := s.codec.WriteSignature(dst); err != nil {
		return err
	}
	for _, id := range ids {
		chunk, err := s.Get(id)
		if err != nil {
			return err
		}
		if err := s.codec.Format(dst, chunk.Type, chunk.Data); err != nil {
			return err
		}
	}
	return nil
}

// AssembleFile reproduces an archived file from its manifest
func (s *ChunkStore) AssembleFile(dst bytestream.Destination, fileID ksuid.KSUID) error {
	ids, err := s.Manifest(fileID)
	if err != nil {
		return err
	}
	return s.Assemble(dst, ids)
}

// Close closes the underlying database
func (s *ChunkStore) Close() error {
	s.logger.Debug().Msg("chunk store closed")
	return s.db.Close()
}

const ksuidLen = 20

func chunkKey(id ksuid.KSUID) []byte {
	return append([]byte{chunkPrefix}, id.Bytes()...)
}

func manifestKey(id ksuid.KSUID) []byte {
	return append([]byte{manifestPrefix}, id.Bytes()...)
}
