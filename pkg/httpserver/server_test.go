package httpserver_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isaacmorgado/splice-core/pkg/httpserver"
)

func startServer(t *testing.T, handler http.Handler) (string, context.CancelFunc, chan error) {
	t.Helper()

	srv := httpserver.New(httpserver.Config{
		Addr:            "127.0.0.1:0",
		ShutdownTimeout: time.Second,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, handler) }()

	var addr string
	require.Eventually(t, func() bool {
		addr = srv.Addr()
		return addr != ""
	}, time.Second, 5*time.Millisecond)

	return addr, cancel, done
}

func TestRunServesAndDrainsOnCancel(t *testing.T) {
	t.Parallel()

	addr, cancel, done := startServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	}))

	resp, err := http.Get("http://" + addr + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}

func TestRunNilHandlerAnswersNotFound(t *testing.T) {
	t.Parallel()

	addr, cancel, done := startServer(t, nil)
	defer func() {
		cancel()
		<-done
	}()

	resp, err := http.Get("http://" + addr + "/")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRunUnbindableAddr(t *testing.T) {
	t.Parallel()

	srv := httpserver.New(httpserver.Config{Addr: "256.0.0.1:1"}, nil)
	err := srv.Run(context.Background(), nil)
	assert.ErrorIs(t, err, httpserver.ErrServe)
}

func TestHealthCheckHandler(t *testing.T) {
	t.Parallel()

	t.Run("liveness always ok", func(t *testing.T) {
		t.Parallel()

		addr, cancel, done := startServer(t, httpserver.HealthCheckHandler(context.Background(), nil))
		defer func() {
			cancel()
			<-done
		}()

		resp, err := http.Get("http://" + addr + "/")
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("readiness reflects checks", func(t *testing.T) {
		t.Parallel()

		healthy := true
		check := func(ctx context.Context) error {
			if !healthy {
				return errors.New("db unreachable")
			}
			return nil
		}

		addr, cancel, done := startServer(t, httpserver.HealthCheckHandler(context.Background(), nil, check))
		defer func() {
			cancel()
			<-done
		}()

		resp, err := http.Get("http://" + addr + "/")
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		healthy = false
		resp, err = http.Get("http://" + addr + "/")
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}
