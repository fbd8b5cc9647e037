package di

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/pngframe/pkg/api"
	"github.com/ssargent/pngframe/pkg/codec"
	"github.com/ssargent/pngframe/pkg/config"
	"github.com/ssargent/pngframe/pkg/storage"
)

func TestNewContainer(t *testing.T) {
	c := NewContainer()
	assert.Equal(t, config.DefaultConfig(), c.Config())
	assert.IsType(t, &api.DefaultServerFactory{}, c.GetServerFactory())
}

func TestContainer_ServerConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Port = 9100
	cfg.Server.APIKey = "k"
	cfg.Codec.MaxDataLength = 4096
	cfg.Codec.SkipCorruptAncillary = true

	c := NewContainer()
	c.Configure(cfg, zerolog.Nop())

	sc := c.ServerConfig()
	assert.Equal(t, "127.0.0.1", sc.Bind)
	assert.Equal(t, 9100, sc.Port)
	assert.Equal(t, "k", sc.APIKey)
	assert.Equal(t, cfg.Server.MaxBodyBytes, sc.MaxBodyBytes)
	assert.Equal(t, uint32(4096), sc.Reader.MaxDataLength)
	assert.True(t, sc.Reader.Strict)
	assert.True(t, sc.Reader.SkipCorruptAncillary)
	assert.Empty(t, sc.Reader.FilePath)

	rc := c.ReaderConfig("/tmp/a.png")
	assert.Equal(t, "/tmp/a.png", rc.FilePath)
	assert.Equal(t, uint32(4096), rc.MaxDataLength)
}

func TestContainer_OpenStore(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Archive.DataDir = filepath.Join(t.TempDir(), "nested", "data")

	c := NewContainer()
	c.Configure(cfg, zerolog.Nop())

	store, err := c.OpenStore()
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Put(&codec.Chunk{Type: codec.TypeIEND})
	assert.NoError(t, err)
	assert.DirExists(t, cfg.Archive.DataDir)
}

func TestContainer_SetStoreOpener(t *testing.T) {
	c := NewContainer()

	var got storage.Config
	c.SetStoreOpener(func(sc storage.Config) (*storage.ChunkStore, error) {
		got = sc
		sc.InMemory = true
		return storage.NewChunkStore(sc)
	})
	cfg := config.DefaultConfig()
	cfg.Archive.InMemory = true
	cfg.Archive.Sync = true
	c.Configure(cfg, zerolog.Nop())

	store, err := c.OpenStore()
	require.NoError(t, err)
	defer store.Close()

	assert.True(t, got.InMemory)
	assert.True(t, got.Sync)
}
