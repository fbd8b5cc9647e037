// Package api provides interfaces for dependency injection
package api

import (
	"context"

	"github.com/rs/zerolog"
)

// ServerStarter defines the interface for starting the API server
type ServerStarter interface {
	// StartServer serves the API until ctx is cancelled
	StartServer(ctx context.Context, archive ChunkArchive, config ServerConfig, logger zerolog.Logger) error
}

// ServerFactory creates server instances
type ServerFactory interface {
	// CreateServerStarter creates a server starter
	CreateServerStarter() ServerStarter
}
