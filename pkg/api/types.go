package api

import (
	"io"

	"github.com/segmentio/ksuid"

	"github.com/ssargent/pngframe/pkg/bytestream"
	"github.com/ssargent/pngframe/pkg/codec"
	"github.com/ssargent/pngframe/pkg/pngfile"
	"github.com/ssargent/pngframe/pkg/storage"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// VerifyResponse is the result of checking a PNG stream
type VerifyResponse struct {
	Valid     bool   `json:"valid"`
	Chunks    int    `json:"chunks"`
	Skipped   int    `json:"skipped"`
	ErrorKind string `json:"error_kind,omitempty"`
	Error     string `json:"error,omitempty"`
}

// PutChunkResponse is returned after archiving a single chunk
type PutChunkResponse struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Length int    `json:"length"`
}

// PutFileResponse is returned after archiving a whole PNG stream
type PutFileResponse struct {
	FileID   string   `json:"file_id"`
	ChunkIDs []string `json:"chunk_ids"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind         string
	Port         int
	APIKey       string // empty disables authentication
	MaxBodyBytes int64
	Reader       pngfile.ReaderConfig // applied to every uploaded stream
}

// ChunkArchive defines the archive operations the API needs
type ChunkArchive interface {
	Put(chunk *codec.Chunk) (ksuid.KSUID, error)
	Get(id ksuid.KSUID) (*codec.Chunk, error)
	Frame(id ksuid.KSUID) ([]byte, error)
	Delete(id ksuid.KSUID) error
	List(limit int) ([]storage.Entry, error)
	PutFile(in io.Reader, config pngfile.ReaderConfig) (ksuid.KSUID, []ksuid.KSUID, error)
	Manifest(fileID ksuid.KSUID) ([]ksuid.KSUID, error)
	AssembleFile(dst bytestream.Destination, fileID ksuid.KSUID) error
}

var _ ChunkArchive = (*storage.ChunkStore)(nil)
