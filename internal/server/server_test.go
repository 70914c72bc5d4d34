package server

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/bandstand/internal/band"
	"github.com/dreamware/bandstand/internal/client"
	"github.com/dreamware/bandstand/internal/collection"
	"github.com/dreamware/bandstand/internal/command"
	"github.com/dreamware/bandstand/internal/gateway"
	"github.com/dreamware/bandstand/internal/protocol"
)

var alice = protocol.User{Login: "alice", Password: "secret"}

type testServer struct {
	srv     *Server
	store   *collection.Store
	gw      gateway.Gateway
	session *client.Session
	cancel  context.CancelFunc
	done    chan error
}

func openGateway(t *testing.T) *gateway.SQL {
	t.Helper()
	gw, err := gateway.Open(context.Background(), gateway.Config{
		Driver: gateway.DriverSQLite,
		URL:    filepath.Join(t.TempDir(), "bands.db"),
	})
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = gw.Close() })
	return gw
}

func startServer(t *testing.T, cfg Config, gw gateway.Gateway, opts command.Options) *testServer {
	t.Helper()
	store := collection.New()
	_, err := store.Reload(context.Background(), gw)
	require.NoError(t, err)

	env := &command.Env{Store: store, Gateway: gw, Logger: log.New(io.Discard, "", 0)}
	cfg.Addr = "127.0.0.1:0"
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	srv := New(cfg, command.NewDispatcher(env, opts), env)
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx)
		close(done)
	}()

	ts := &testServer{
		srv:   srv,
		store: store,
		gw:    gw,
		session: client.NewSession(client.SessionConfig{
			Addr:              srv.Addr().String(),
			ReconnectDelay:    10 * time.Millisecond,
			ReconnectAttempts: 1,
			Logger:            log.New(io.Discard, "", 0),
		}),
		cancel: cancel,
		done:   done,
	}
	t.Cleanup(ts.stop)
	return ts
}

func (ts *testServer) stop() {
	ts.cancel()
	select {
	case <-ts.done:
	case <-time.After(10 * time.Second):
	}
}

func (ts *testServer) send(t *testing.T, req protocol.Request) protocol.Response {
	t.Helper()
	resp, err := ts.session.Send(context.Background(), req)
	require.NoError(t, err)
	return resp
}

func newBand(name string) *band.Band {
	return &band.Band{
		Name:         name,
		Coordinates:  band.Coordinates{X: 1, Y: 2},
		Participants: 3,
		Genre:        band.GenreHipHop,
		Label:        band.Label{Name: "Def Jam", Bands: 40, Sales: 1000},
	}
}

func TestServeRoundTrip(t *testing.T) {
	ts := startServer(t, Config{}, openGateway(t), command.Options{RequireAuth: true})

	resp := ts.send(t, protocol.Request{Command: protocol.CmdShow, User: alice})
	assert.Equal(t, protocol.TagAuthFailed, resp.Tag)

	assert.Equal(t, command.MsgRegistered, ts.send(t, protocol.Request{Command: protocol.CmdRegister, User: alice}).Result)
	assert.Equal(t, protocol.TagLoginTaken, ts.send(t, protocol.Request{Command: protocol.CmdRegister, User: alice}).Tag)
	assert.Equal(t, command.MsgLoggedIn, ts.send(t, protocol.Request{Command: protocol.CmdLogin, User: alice}).Result)

	resp = ts.send(t, protocol.Request{Command: protocol.CmdAdd, Band: newBand("Run-DMC"), User: alice})
	assert.True(t, strings.HasPrefix(resp.Result, command.MsgAdded), resp.Result)

	resp = ts.send(t, protocol.Request{Command: protocol.CmdShow, User: alice})
	assert.Contains(t, resp.Result, `"Run-DMC"`)

	loaded, err := ts.gw.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "alice", loaded[0].Owner)

	resp = ts.send(t, protocol.Request{Command: protocol.CmdRemoveByID, Arg: protocol.IntArg(loaded[0].ID), User: alice})
	assert.Equal(t, command.MsgRemoved, resp.Result)
	assert.Equal(t, command.MsgEmpty, ts.send(t, protocol.Request{Command: protocol.CmdShow, User: alice}).Result)

	assert.Equal(t, command.MsgUnknownCommand, ts.send(t, protocol.Request{Command: "dance", User: alice}).Result)
}

func TestServerSurvivesGarbage(t *testing.T) {
	metrics := NewMetrics(nil)
	ts := startServer(t, Config{Metrics: metrics}, openGateway(t), command.Options{})

	conn, err := net.Dial("tcp", ts.srv.Addr().String())
	require.NoError(t, err)
	_, err = conn.Write([]byte("this is not a request"))
	require.NoError(t, err)
	require.NoError(t, conn.(*net.TCPConn).CloseWrite())

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	n, err := conn.Read(make([]byte, 16))
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF, "no response is expected for garbage")
	conn.Close()

	assert.Equal(t, command.MsgEmpty, ts.send(t, protocol.Request{Command: protocol.CmdShow}).Result)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DecodeErrors))
}

func TestConcurrentClients(t *testing.T) {
	metrics := NewMetrics(nil)
	ts := startServer(t, Config{Workers: 3, Metrics: metrics}, openGateway(t), command.Options{})

	const clients = 20
	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := ts.session.Send(context.Background(), protocol.Request{
				Command: protocol.CmdAdd, Band: newBand(fmt.Sprintf("crew-%d", i)), User: alice,
			})
			if assert.NoError(t, err) {
				assert.True(t, strings.HasPrefix(resp.Result, command.MsgAdded), resp.Result)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, clients, ts.store.Len())
	loaded, err := ts.gw.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, loaded, clients)
	assert.Equal(t, float64(clients), testutil.ToFloat64(metrics.Commands.WithLabelValues(protocol.CmdAdd, "ok")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.InFlight))
}

// gatedGateway blocks UserExists until release is closed and records the
// highest number of concurrent calls.
type gatedGateway struct {
	gateway.Gateway
	release chan struct{}
	current int64
	peak    int64
}

func (g *gatedGateway) UserExists(ctx context.Context, u protocol.User) (bool, error) {
	n := atomic.AddInt64(&g.current, 1)
	for {
		p := atomic.LoadInt64(&g.peak)
		if n <= p || atomic.CompareAndSwapInt64(&g.peak, p, n) {
			break
		}
	}
	<-g.release
	atomic.AddInt64(&g.current, -1)
	return g.Gateway.UserExists(ctx, u)
}

func TestWorkerPoolBoundsExecution(t *testing.T) {
	gw := &gatedGateway{Gateway: openGateway(t), release: make(chan struct{})}
	metrics := NewMetrics(nil)
	ts := startServer(t, Config{Workers: 2, Metrics: metrics}, gw, command.Options{})

	const clients = 6
	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ts.session.Send(context.Background(), protocol.Request{Command: protocol.CmdLogin, User: alice})
			assert.NoError(t, err)
		}()
	}

	require.Eventually(t, func() bool { return atomic.LoadInt64(&gw.current) == 2 }, 5*time.Second, 10*time.Millisecond)
	// connections keep being accepted and decoded while the pool is full
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.Connections) == clients
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(2), atomic.LoadInt64(&gw.current))
	close(gw.release)
	wg.Wait()
	assert.Equal(t, int64(2), atomic.LoadInt64(&gw.peak))
}

func TestConsoleReload(t *testing.T) {
	gw := openGateway(t)
	console, feed := io.Pipe()
	defer feed.Close()
	ts := startServer(t, Config{Console: console}, gw, command.Options{})

	_, err := gw.Insert(context.Background(), *newBand("Outkast"), "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, ts.store.Len())

	_, err = io.WriteString(feed, "ignored\nsave\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return ts.store.Len() == 1 }, 5*time.Second, 10*time.Millisecond)
}

func TestServeStopsOnCancel(t *testing.T) {
	ts := startServer(t, Config{ShutdownGrace: 100 * time.Millisecond}, openGateway(t), command.Options{})

	// an idle connection that never sends a request
	conn, err := net.Dial("tcp", ts.srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	time.Sleep(20 * time.Millisecond)

	ts.cancel()
	select {
	case err := <-ts.done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	_, err = net.DialTimeout("tcp", ts.srv.Addr().String(), 200*time.Millisecond)
	assert.Error(t, err, "listener must be closed")
}

// slowLoadGateway holds LoadAll once blocking is switched on.
type slowLoadGateway struct {
	gateway.Gateway
	blocking atomic.Bool
	loading  chan struct{}
	release  chan struct{}
}

func (g *slowLoadGateway) LoadAll(ctx context.Context) ([]band.Band, error) {
	if g.blocking.Load() {
		select {
		case g.loading <- struct{}{}:
		default:
		}
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return g.Gateway.LoadAll(ctx)
}

func TestConsoleReloadDoesNotBlockConnections(t *testing.T) {
	gw := &slowLoadGateway{
		Gateway: openGateway(t),
		loading: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	metrics := NewMetrics(nil)
	console, feed := io.Pipe()
	defer feed.Close()
	ts := startServer(t, Config{Console: console, Metrics: metrics}, gw, command.Options{})

	gw.blocking.Store(true)
	_, err := io.WriteString(feed, "s\n")
	require.NoError(t, err)
	select {
	case <-gw.loading:
	case <-time.After(5 * time.Second):
		t.Fatal("reload did not start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := ts.session.Send(ctx, protocol.Request{Command: protocol.CmdShow})
	require.NoError(t, err, "requests must be served while a reload is running")
	assert.Equal(t, command.MsgEmpty, resp.Result)

	close(gw.release)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.Reloads.WithLabelValues("ok")) == 1
	}, 5*time.Second, 10*time.Millisecond)
}
