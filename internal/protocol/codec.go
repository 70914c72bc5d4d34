package protocol

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
)

// Version is the wire schema version. It must be bumped whenever a field of
// Request, Response or band.Band changes meaning or is added.
const Version = 1

// ErrVersion is returned when the peer speaks a different schema version.
var ErrVersion = errors.New("protocol version mismatch")

type requestEnvelope struct {
	Version int
	Request Request
}

type responseEnvelope struct {
	Version  int
	Response Response
}

// WriteRequest encodes req to w as a single gob value.
func WriteRequest(w io.Writer, req Request) error {
	if err := gob.NewEncoder(w).Encode(requestEnvelope{Version: Version, Request: req}); err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return nil
}

// ReadRequest decodes a single request written by WriteRequest.
func ReadRequest(r io.Reader) (Request, error) {
	var env requestEnvelope
	if err := gob.NewDecoder(r).Decode(&env); err != nil {
		return Request{}, fmt.Errorf("decode request: %w", err)
	}
	if env.Version != Version {
		return Request{}, fmt.Errorf("%w: got %d, want %d", ErrVersion, env.Version, Version)
	}
	return env.Request, nil
}

// WriteResponse encodes resp to w as a single gob value.
func WriteResponse(w io.Writer, resp Response) error {
	if err := gob.NewEncoder(w).Encode(responseEnvelope{Version: Version, Response: resp}); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return nil
}

// ReadResponse decodes a single response written by WriteResponse.
func ReadResponse(r io.Reader) (Response, error) {
	var env responseEnvelope
	if err := gob.NewDecoder(r).Decode(&env); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	if env.Version != Version {
		return Response{}, fmt.Errorf("%w: got %d, want %d", ErrVersion, env.Version, Version)
	}
	return env.Response, nil
}
