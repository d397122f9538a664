package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janisto/hello-fixture/internal/adapter"
	"github.com/janisto/hello-fixture/internal/config"
	"github.com/janisto/hello-fixture/internal/router"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

// runServer starts s in the background and waits until it is bound.
func runServer(t *testing.T, s *Server) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-s.Ready():
	case err := <-done:
		cancel()
		t.Fatalf("server exited before becoming ready: %v", err)
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatalf("server did not become ready")
	}
	return cancel, done
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "initializing", Initializing.String())
	assert.Equal(t, "serving", Serving.String())
	assert.Equal(t, "stopped", Stopped.String())
	assert.Equal(t, "State(7)", State(7).String())
}

func TestRunLifecycle(t *testing.T) {
	s, err := Prepare("127.0.0.1", freePort(t), Options{Name: "test"}, func(b *Builder) {
		b.Map("/", adapter.Hello())
	})
	require.NoError(t, err)
	assert.Equal(t, Initializing, s.State())

	cancel, done := runServer(t, s)
	assert.Equal(t, Serving, s.State())

	resp, body := get(t, "http://"+s.Addr()+"/anything")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Hello world!", body)
	assert.Equal(t, uint64(1), s.Requests())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop")
	}
	assert.Equal(t, Stopped, s.State())
}

func TestRunWithCancelledContextDoesNotBind(t *testing.T) {
	port := freePort(t)
	s := New("127.0.0.1", port, http.NotFoundHandler(), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.Run(ctx))
	assert.Equal(t, Stopped, s.State())
	select {
	case <-s.Ready():
		t.Fatalf("server must not report ready without a listener")
	default:
	}

	ln, err := net.Listen("tcp", "127.0.0.1:"+strconv.Itoa(port))
	require.NoError(t, err, "port must still be free")
	require.NoError(t, ln.Close())
}

func TestRunReportsBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	port := ln.Addr().(*net.TCPAddr).Port

	err = Start(context.Background(), "127.0.0.1", port, func(b *Builder) {
		b.Map("/", adapter.Hello())
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen on 127.0.0.1:"+strconv.Itoa(port))
}

func TestPrepareRejectsInvalidPort(t *testing.T) {
	for _, port := range []int{0, -1, 65536} {
		called := false
		_, err := Prepare("127.0.0.1", port, Options{}, func(*Builder) { called = true })
		assert.ErrorIs(t, err, config.ErrPortInvalid)
		assert.False(t, called, "configure must not run for port %d", port)
	}
}

func TestPrepareReportsRouteErrors(t *testing.T) {
	_, err := Prepare("127.0.0.1", 8080, Options{}, func(b *Builder) {
		b.Map("/", adapter.Hello())
		b.Map("/", adapter.Hello())
	})
	assert.ErrorIs(t, err, router.ErrDuplicatePrefix)
}

func TestBuilderRecoversPanicsInsideMiddleware(t *testing.T) {
	sawStatus := make(chan int, 1)
	b := NewBuilder()
	b.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rw, r)
			sawStatus <- rw.status
		})
	})
	b.Map("/", adapter.Func(func(*http.Request) adapter.Response {
		panic("boom")
	}))
	h, err := b.Handler()
	require.NoError(t, err)

	s := New("127.0.0.1", freePort(t), h, Options{})
	cancel, done := runServer(t, s)
	defer func() {
		cancel()
		<-done
	}()

	resp, body := get(t, "http://"+s.Addr()+"/")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Internal Server Error", body)
	select {
	case status := <-sawStatus:
		assert.Equal(t, http.StatusInternalServerError, status)
	case <-time.After(5 * time.Second):
		t.Fatalf("outer middleware never completed")
	}
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	d := config.Default()
	assert.Equal(t, "app", o.Name)
	assert.Equal(t, d.ReadTimeout, o.ReadTimeout)
	assert.Equal(t, d.ShutdownTimeout, o.ShutdownTimeout)
	assert.Equal(t, d.MaxHeaderBytes, o.MaxHeaderBytes)

	cfg := d
	cfg.WriteTimeout = time.Minute
	o = OptionsFromConfig("admin", cfg)
	assert.Equal(t, "admin", o.Name)
	assert.Equal(t, time.Minute, o.WriteTimeout)
}

func TestAddrBeforeBind(t *testing.T) {
	s := New("0.0.0.0", 3000, http.NotFoundHandler(), Options{})
	assert.Equal(t, "0.0.0.0:3000", s.Addr())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
