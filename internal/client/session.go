package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"github.com/dreamware/bandstand/internal/protocol"
)

// ErrUnreachable is returned by Send when every attempt to reach the
// server failed.
var ErrUnreachable = errors.New("server unreachable")

var defaultLogger = log.New(os.Stderr, "[client] ", log.LstdFlags|log.Lmicroseconds)

// SessionConfig configures a Session.
type SessionConfig struct {
	Addr string
	// ReconnectDelay is the fixed pause between attempts. Default 5s.
	ReconnectDelay time.Duration
	// ReconnectAttempts is the number of retries after the first attempt
	// failed. Zero or negative disables retries.
	ReconnectAttempts int
	// IOTimeout bounds dialing and writing the request. Waiting for the
	// response is not bounded: the server answers once the command ran.
	// Default 30s.
	IOTimeout time.Duration
	Logger    *log.Logger
}

// Session sends requests to one server. Every request uses a fresh
// connection.
type Session struct {
	cfg    SessionConfig
	dialer net.Dialer
}

// notDeliveredError marks a failure that happened before the request was
// completely written. Only those failures are retried.
type notDeliveredError struct {
	err error
}

func (e *notDeliveredError) Error() string { return e.err.Error() }
func (e *notDeliveredError) Unwrap() error { return e.err }

// NewSession creates a session. It does not connect.
func NewSession(cfg SessionConfig) *Session {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.ReconnectAttempts < 0 {
		cfg.ReconnectAttempts = 0
	}
	if cfg.IOTimeout <= 0 {
		cfg.IOTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = defaultLogger
	}
	return &Session{cfg: cfg}
}

// Send delivers req and waits for its response. When connecting or writing
// fails it waits ReconnectDelay and tries again, up to ReconnectAttempts
// times, then returns an error wrapping ErrUnreachable.
//
// Once the request is written it is never sent again, since the server may
// already have executed it. A failure while waiting for the response is
// returned as is, and so is a protocol version mismatch.
func (s *Session) Send(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= s.cfg.ReconnectAttempts; attempt++ {
		if attempt > 0 {
			s.cfg.Logger.Printf("reconnecting to %s in %v (attempt %d/%d): %v",
				s.cfg.Addr, s.cfg.ReconnectDelay, attempt, s.cfg.ReconnectAttempts, lastErr)
			select {
			case <-time.After(s.cfg.ReconnectDelay):
			case <-ctx.Done():
				return protocol.Response{}, ctx.Err()
			}
		}
		resp, err := s.roundTrip(ctx, req)
		if err == nil {
			return resp, nil
		}
		var nd *notDeliveredError
		if !errors.As(err, &nd) {
			return protocol.Response{}, err
		}
		if ctx.Err() != nil {
			return protocol.Response{}, ctx.Err()
		}
		lastErr = nd.err
	}
	return protocol.Response{}, fmt.Errorf("%w: %s: %v", ErrUnreachable, s.cfg.Addr, lastErr)
}

func (s *Session) roundTrip(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	dialCtx, cancel := context.WithTimeout(ctx, s.cfg.IOTimeout)
	conn, err := s.dialer.DialContext(dialCtx, "tcp", s.cfg.Addr)
	cancel()
	if err != nil {
		return protocol.Response{}, &notDeliveredError{fmt.Errorf("dial: %w", err)}
	}
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.IOTimeout))
	if err := protocol.WriteRequest(conn, req); err != nil {
		return protocol.Response{}, &notDeliveredError{err}
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.SetReadDeadline(time.Now()) })
	defer stop()
	resp, err := protocol.ReadResponse(conn)
	if err != nil && ctx.Err() != nil {
		return protocol.Response{}, ctx.Err()
	}
	return resp, err
}
