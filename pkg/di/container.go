// Package di provides dependency injection container
package di

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/ssargent/pngframe/pkg/api" //nolint:depguard
	"github.com/ssargent/pngframe/pkg/config"
	"github.com/ssargent/pngframe/pkg/pngfile"
	"github.com/ssargent/pngframe/pkg/storage"
)

// StoreOpener opens the chunk archive
type StoreOpener func(storage.Config) (*storage.ChunkStore, error)

// Container holds all the dependencies for the application
type Container struct {
	config        *config.Config
	logger        zerolog.Logger
	serverFactory api.ServerFactory
	storeOpener   StoreOpener
}

// NewContainer creates a new dependency injection container with the
// default configuration and a disabled logger
func NewContainer() *Container {
	return &Container{
		config:        config.DefaultConfig(),
		logger:        zerolog.Nop(),
		serverFactory: api.NewServerFactory(),
		storeOpener:   storage.NewChunkStore,
	}
}

// Configure replaces the configuration and logger
func (c *Container) Configure(cfg *config.Config, logger zerolog.Logger) {
	c.config = cfg
	c.logger = logger
}

// Config returns the active configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the application logger
func (c *Container) Logger() zerolog.Logger {
	return c.logger
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}

// SetStoreOpener allows overriding how the archive is opened (for testing)
func (c *Container) SetStoreOpener(opener StoreOpener) {
	c.storeOpener = opener
}

// OpenStore opens the chunk archive described by the archive section
func (c *Container) OpenStore() (*storage.ChunkStore, error) {
	archive := c.config.Archive
	if !archive.InMemory {
		if err := os.MkdirAll(archive.DataDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
	}
	return c.storeOpener(storage.Config{
		DataDir:  archive.DataDir,
		InMemory: archive.InMemory,
		Sync:     archive.Sync,
		Logger:   c.logger.With().Str("component", "archive").Logger(),
	})
}

// ReaderConfig converts the codec section into reader options
func (c *Container) ReaderConfig(path string) pngfile.ReaderConfig {
	return ReaderConfig(c.config.Codec, path)
}

// ServerConfig converts the server and codec sections into API options
func (c *Container) ServerConfig() api.ServerConfig {
	return api.ServerConfig{
		Bind:         c.config.Server.Bind,
		Port:         c.config.Server.Port,
		APIKey:       c.config.Server.APIKey,
		MaxBodyBytes: c.config.Server.MaxBodyBytes,
		Reader:       ReaderConfig(c.config.Codec, ""),
	}
}

// ReaderConfig converts a codec section into reader options for path
func ReaderConfig(cfg config.Codec, path string) pngfile.ReaderConfig {
	return pngfile.ReaderConfig{
		FilePath:             path,
		MaxDataLength:        cfg.MaxDataLength,
		Strict:               cfg.Strict,
		SkipCorruptAncillary: cfg.SkipCorruptAncillary,
	}
}
