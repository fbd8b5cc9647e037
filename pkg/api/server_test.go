package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/pngframe/pkg/storage"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestStartServer_ShutsDownOnCancel(t *testing.T) {
	store, err := storage.NewChunkStore(storage.Config{InMemory: true})
	require.NoError(t, err)
	defer store.Close()

	port := freePort(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- NewServerFactory().CreateServerStarter().StartServer(ctx, store, ServerConfig{
			Bind: "127.0.0.1",
			Port: port,
		}, zerolog.Nop())
	}()

	url := fmt.Sprintf("http://127.0.0.1:%d/api/v1/health", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestStartServer_BindFailure(t *testing.T) {
	store, err := storage.NewChunkStore(storage.Config{InMemory: true})
	require.NoError(t, err)
	defer store.Close()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	err = StartServer(context.Background(), store, ServerConfig{
		Bind: "127.0.0.1",
		Port: l.Addr().(*net.TCPAddr).Port,
	}, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server failed")
}

func TestNewServer_Defaults(t *testing.T) {
	s := NewServer(nil, ServerConfig{}, nil, zerolog.Nop())
	assert.Equal(t, int64(64<<20), s.config.MaxBodyBytes)
	assert.NotNil(t, s.metrics)
}
