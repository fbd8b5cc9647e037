package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/pngframe/pkg/bytestream"
	"github.com/ssargent/pngframe/pkg/codec"
	"github.com/ssargent/pngframe/pkg/pngfile"
	"github.com/ssargent/pngframe/pkg/storage"
)

const defaultListLimit = 100

// handleHealth handles GET /api/v1/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleInspect handles POST /api/v1/inspect
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	summary, err := pngfile.Scan(s.body(w, r), s.config.Reader)
	s.metrics.RecordSummary(summary)
	if err != nil {
		s.metrics.RecordFrameError(err)
		sendError(w, err.Error(), statusForError(err))
		return
	}
	sendSuccess(w, summary)
}

// handleVerify handles POST /api/v1/verify. A malformed stream is a
// successful verification with valid=false.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	summary, err := pngfile.Scan(s.body(w, r), s.config.Reader)
	s.metrics.RecordSummary(summary)

	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		sendError(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	}

	resp := VerifyResponse{
		Valid:   err == nil,
		Chunks:  len(summary.Chunks),
		Skipped: summary.Skipped,
	}
	if err != nil {
		s.metrics.RecordFrameError(err)
		resp.ErrorKind = pngfile.Kind(err)
		resp.Error = err.Error()
	}
	sendSuccess(w, resp)
}

// handleStrip handles POST /api/v1/strip?keep=tEXt,pHYs and returns the
// stream with every other ancillary chunk removed
func (s *Server) handleStrip(w http.ResponseWriter, r *http.Request) {
	keep := map[codec.ChunkType]bool{}
	if list := r.URL.Query().Get("keep"); list != "" {
		for _, name := range strings.Split(list, ",") {
			typ, err := codec.ParseChunkType(strings.TrimSpace(name))
			if err != nil {
				sendError(w, err.Error(), http.StatusBadRequest)
				return
			}
			keep[typ] = true
		}
	}

	var out bytestream.Buffer
	dst := &bytestream.LimitedDestination{Dst: &out, Remaining: s.config.MaxBodyBytes}
	stats, err := pngfile.Copy(dst, s.body(w, r), s.config.Reader, func(t codec.ChunkType) bool {
		return keep[t]
	})
	if err != nil {
		s.metrics.RecordFrameError(err)
		sendError(w, err.Error(), statusForError(err))
		return
	}

	w.Header().Set("X-Chunks-Kept", strconv.Itoa(stats.Kept))
	w.Header().Set("X-Chunks-Dropped", strconv.Itoa(stats.Dropped))
	sendBytes(w, "image/png", out.Bytes())
}

// handlePutChunk handles POST /api/v1/chunks?type=XXXX
func (s *Server) handlePutChunk(w http.ResponseWriter, r *http.Request) {
	typ, err := codec.ParseChunkType(r.URL.Query().Get("type"))
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(s.body(w, r))
	if err != nil {
		sendError(w, fmt.Sprintf("reading body: %v", err), statusForError(err))
		return
	}

	id, err := s.archive.Put(&codec.Chunk{Type: typ, Data: data})
	s.metrics.RecordArchiveOperation("put", err == nil)
	if err != nil {
		sendError(w, err.Error(), archiveStatus(err))
		return
	}
	s.metrics.RecordChunkParsed(typ.String())

	sendJSON(w, PutChunkResponse{ID: id.String(), Type: typ.String(), Length: len(data)}, http.StatusCreated)
}

// handleListChunks handles GET /api/v1/chunks?limit=N
func (s *Server) handleListChunks(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			sendError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := s.archive.List(limit)
	s.metrics.RecordArchiveOperation("list", err == nil)
	if err != nil {
		sendError(w, err.Error(), archiveStatus(err))
		return
	}
	if entries == nil {
		entries = []storage.Entry{}
	}
	sendSuccess(w, entries)
}

// handleGetChunk handles GET /api/v1/chunks/{id}
func (s *Server) handleGetChunk(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	chunk, err := s.archive.Get(id)
	s.metrics.RecordArchiveOperation("get", err == nil)
	if err != nil {
		sendError(w, err.Error(), archiveStatus(err))
		return
	}

	w.Header().Set("X-Chunk-Type", chunk.Type.String())
	sendBytes(w, "application/octet-stream", chunk.Data)
}

// handleGetFrame handles GET /api/v1/chunks/{id}/frame
func (s *Server) handleGetFrame(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	frame, err := s.archive.Frame(id)
	s.metrics.RecordArchiveOperation("frame", err == nil)
	if err != nil {
		sendError(w, err.Error(), archiveStatus(err))
		return
	}
	sendBytes(w, "application/octet-stream", frame)
}

// handleDeleteChunk handles DELETE /api/v1/chunks/{id}
func (s *Server) handleDeleteChunk(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	err := s.archive.Delete(id)
	s.metrics.RecordArchiveOperation("delete", err == nil)
	if err != nil {
		sendError(w, err.Error(), archiveStatus(err))
		return
	}
	sendSuccess(w, map[string]string{"id": id.String(), "status": "deleted"})
}

// handlePutFile handles POST /api/v1/files
func (s *Server) handlePutFile(w http.ResponseWriter, r *http.Request) {
	fileID, ids, err := s.archive.PutFile(s.body(w, r), s.config.Reader)
	s.metrics.RecordArchiveOperation("put_file", err == nil)
	if err != nil {
		s.metrics.RecordFrameError(err)
		sendError(w, err.Error(), statusForError(err))
		return
	}

	resp := PutFileResponse{FileID: fileID.String(), ChunkIDs: make([]string, len(ids))}
	for i, id := range ids {
		resp.ChunkIDs[i] = id.String()
	}
	sendJSON(w, resp, http.StatusCreated)
}

// handleGetFile handles GET /api/v1/files/{id}
func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var out bytestream.Buffer
	dst := &bytestream.LimitedDestination{Dst: &out, Remaining: s.config.MaxBodyBytes}
	err := s.archive.AssembleFile(dst, id)
	s.metrics.RecordArchiveOperation("assemble", err == nil)
	if err != nil {
		status := archiveStatus(err)
		if errors.Is(err, bytestream.ErrBudgetExceeded) {
			status = http.StatusRequestEntityTooLarge
		}
		sendError(w, err.Error(), status)
		return
	}
	sendBytes(w, "image/png", out.Bytes())
}

// handleGetManifest handles GET /api/v1/files/{id}/manifest
func (s *Server) handleGetManifest(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	ids, err := s.archive.Manifest(id)
	s.metrics.RecordArchiveOperation("manifest", err == nil)
	if err != nil {
		sendError(w, err.Error(), archiveStatus(err))
		return
	}

	chunkIDs := make([]string, len(ids))
	for i, c := range ids {
		chunkIDs[i] = c.String()
	}
	sendSuccess(w, PutFileResponse{FileID: id.String(), ChunkIDs: chunkIDs})
}

// body limits the request body to the configured size
func (s *Server) body(w http.ResponseWriter, r *http.Request) io.Reader {
	return http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
}

func parseID(w http.ResponseWriter, r *http.Request) (ksuid.KSUID, bool) {
	id, err := ksuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, "invalid id", http.StatusBadRequest)
		return ksuid.Nil, false
	}
	return id, true
}

// statusForError maps an error from an uploaded stream to a status code
func statusForError(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes),
		errors.Is(err, codec.ErrChunkTooLarge),
		errors.Is(err, bytestream.ErrBudgetExceeded):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, codec.ErrInvalidSignature),
		errors.Is(err, codec.ErrUnexpectedEndOfStream),
		errors.Is(err, codec.ErrChecksumMismatch),
		errors.Is(err, pngfile.ErrFirstChunkNotIHDR),
		errors.Is(err, pngfile.ErrChunkAfterIEND),
		errors.Is(err, pngfile.ErrMissingIEND):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// archiveStatus maps an error reading stored data. Anything other than a
// missing id is a server-side fault.
func archiveStatus(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, codec.ErrChunkTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}
