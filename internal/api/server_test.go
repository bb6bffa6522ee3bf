package api

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_ListenServeShutdown(t *testing.T) {
	env := newTestEnv(t)
	srv := NewServer(env.cfg)

	require.NoError(t, srv.Listen())
	require.True(t, strings.HasPrefix(srv.Addr(), "127.0.0.1:"), "addr = %s", srv.Addr())
	require.NotEqual(t, "127.0.0.1:0", srv.Addr())

	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}
}

func TestServer_ListenPortInUse(t *testing.T) {
	env := newTestEnv(t)
	first := NewServer(env.cfg)
	require.NoError(t, first.Listen())
	t.Cleanup(func() { first.listener.Close() })

	cfg := env.cfg
	cfg.Port = portOf(t, first.Addr())
	assert.Error(t, NewServer(cfg).Listen())
}

func portOf(t *testing.T, addr string) int {
	t.Helper()
	_, p, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(p)
	require.NoError(t, err)
	return port
}
