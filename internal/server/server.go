package server

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/dreamware/bandstand/internal/command"
	"github.com/dreamware/bandstand/internal/protocol"
)

var defaultLogger = log.New(os.Stderr, "[server] ", log.LstdFlags|log.Lmicroseconds)

const msgInternal = "internal server error"

// Config holds the settings of a Server. Zero values select the defaults
// noted on each field.
type Config struct {
	// Addr is the TCP address to listen on.
	Addr string
	// Workers bounds the number of commands executing at once. Default 3.
	Workers int
	// ReadTimeout bounds reading the request and writing the response of a
	// connection. Default 30s.
	ReadTimeout time.Duration
	// ShutdownGrace is how long Serve waits for open connections after its
	// context is cancelled. Default 5s.
	ShutdownGrace time.Duration
	// Console is the operator input. Lines "save" and "s" reload the
	// collection from the database. Nil disables the console.
	Console io.Reader
	Logger  *log.Logger
	// Metrics receives the server's measurements. Nil creates unregistered
	// collectors.
	Metrics *Metrics
}

func (c *Config) setDefaults() {
	if c.Workers <= 0 {
		c.Workers = 3
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = defaultLogger
	}
	if c.Metrics == nil {
		c.Metrics = NewMetrics(nil)
	}
}

// Server accepts client connections and answers one request per
// connection.
//
// Connection I/O runs in one goroutine per connection. Command execution
// is bounded separately by a weighted semaphore of Config.Workers slots, so
// slow commands never stop the server from accepting and decoding.
type Server struct {
	cfg        Config
	dispatcher *command.Dispatcher
	reloader   Reloader
	pool       *semaphore.Weighted
	logger     *log.Logger
	metrics    *Metrics

	listener net.Listener
	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
}

// Reloader refreshes the collection from the database. *command.Env
// implements it.
type Reloader interface {
	Reload(ctx context.Context) (int, error)
}

// New creates a server. Reloads requested on the console go through r.
func New(cfg Config, d *command.Dispatcher, r Reloader) *Server {
	cfg.setDefaults()
	return &Server{
		cfg:        cfg,
		dispatcher: d,
		reloader:   r,
		pool:       semaphore.NewWeighted(int64(cfg.Workers)),
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		conns:      make(map[net.Conn]struct{}),
	}
}

// Listen binds the listening socket. Serve calls it when it has not been
// called before.
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}
	l, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	s.listener = l
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve runs the server until ctx is cancelled or the listener fails, then
// shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.logger.Printf("listening on %s with %d workers", s.listener.Addr(), s.cfg.Workers)

	connCh := make(chan net.Conn)
	listenErrCh := make(chan error, 1)
	go func() {
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				listenErrCh <- err
				close(listenErrCh)
				return
			}
			select {
			case connCh <- conn:
			case <-ctx.Done():
				_ = conn.Close()
			}
		}
	}()

	var consoleCh <-chan string
	if s.cfg.Console != nil {
		consoleCh = s.readConsole(ctx, s.cfg.Console)
	}

	var serveErr error
loop:
	for {
		select {
		case <-ctx.Done():
			s.logger.Println("shutdown requested")
			break loop
		case err := <-listenErrCh:
			s.logger.Printf("accept failed: %v", err)
			serveErr = err
			break loop
		case conn := <-connCh:
			s.track(conn)
			s.wg.Add(1)
			go s.handle(conn)
		case line, ok := <-consoleCh:
			if !ok {
				consoleCh = nil
				continue
			}
			s.handleConsole(ctx, line)
		}
	}

	_ = s.listener.Close()
	s.shutdown()
	// the accept goroutine has exited once its channel is closed
	for range listenErrCh {
	}
	return serveErr
}

// readConsole forwards console lines until EOF. The reader goroutine may
// outlive Serve while it is blocked on input.
func (s *Server) readConsole(ctx context.Context, r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case ch <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// handleConsole runs reloads in their own goroutine so that a slow
// database never holds up accepted connections. Shutdown waits for them
// like for connections.
func (s *Server) handleConsole(ctx context.Context, line string) {
	switch strings.TrimSpace(line) {
	case "save", "s":
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.Reload(ctx)
		}()
	}
}

// Reload replaces the collection with the content of the database.
func (s *Server) Reload(ctx context.Context) {
	n, err := s.reloader.Reload(ctx)
	if err != nil {
		s.metrics.Reloads.WithLabelValues("error").Inc()
		s.logger.Printf("reload failed: %v", err)
		return
	}
	s.metrics.Reloads.WithLabelValues("ok").Inc()
	s.logger.Printf("collection reloaded: %d bands", n)
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

// shutdown waits up to the grace period for open connections, closes the
// ones still open and then drains the worker pool.
func (s *Server) shutdown() {
	graceCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGrace)
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-graceCtx.Done():
		s.mu.Lock()
		s.logger.Printf("grace period over, closing %d connections", len(s.conns))
		for conn := range s.conns {
			_ = conn.Close()
		}
		s.mu.Unlock()
	}

	if err := s.pool.Acquire(graceCtx, int64(s.cfg.Workers)); err != nil {
		s.logger.Printf("commands still running at shutdown: %v", err)
		return
	}
	s.pool.Release(int64(s.cfg.Workers))
	s.logger.Println("server stopped")
}

// handle serves one connection: read a request, execute it, write the
// response, close.
func (s *Server) handle(conn net.Conn) {
	id := uuid.NewString()
	defer s.wg.Done()
	defer s.untrack(conn)
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("[%s] panic: %v\n%s", id, r, debug.Stack())
		}
	}()

	s.metrics.Connections.Inc()
	_ = conn.SetDeadline(time.Now().Add(s.cfg.ReadTimeout))
	req, err := protocol.ReadRequest(conn)
	if err != nil {
		s.metrics.DecodeErrors.Inc()
		s.logger.Printf("[%s] decode request from %s: %v", id, conn.RemoteAddr(), err)
		return
	}
	s.logger.Printf("[%s] %s %s from %s", id, req.Command, req.Arg, req.User)

	// execution is not bounded by the read deadline
	_ = conn.SetDeadline(time.Time{})
	resp := s.execute(req)

	_ = conn.SetDeadline(time.Now().Add(s.cfg.ReadTimeout))
	if err := protocol.WriteResponse(conn, resp); err != nil {
		s.logger.Printf("[%s] encode response: %v", id, err)
		return
	}
	s.logger.Printf("[%s] done: %s", id, firstLine(resp.Result))
}

// execute runs req on a worker slot. Commands are not cancelled: once a
// request was decoded it is answered.
func (s *Server) execute(req protocol.Request) (resp protocol.Response) {
	start := time.Now()
	label := commandLabel(req.Command)
	defer func() {
		s.metrics.Latency.WithLabelValues(label).Observe(time.Since(start).Seconds())
		s.metrics.Commands.WithLabelValues(label, outcomeLabel(resp)).Inc()
	}()

	if err := s.pool.Acquire(context.Background(), 1); err != nil {
		return protocol.Text(msgInternal)
	}
	defer s.pool.Release(1)
	s.metrics.InFlight.Inc()
	defer s.metrics.InFlight.Dec()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("command %s panicked: %v\n%s", req.Command, r, debug.Stack())
			resp = protocol.Text(msgInternal)
		}
	}()
	return s.dispatcher.Dispatch(context.Background(), req)
}

func firstLine(s string) string {
	line, _, cut := strings.Cut(s, "\n")
	if cut {
		return line + " ..."
	}
	return line
}
