package command

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/dreamware/bandstand/internal/collection"
	"github.com/dreamware/bandstand/internal/gateway"
	"github.com/dreamware/bandstand/internal/protocol"
)

// Command executes one kind of request.
type Command interface {
	Name() string
	Description() string
	Execute(ctx context.Context, req protocol.Request) protocol.Response
}

// Env is the state shared by all commands of one server process.
type Env struct {
	Store   *collection.Store
	Gateway gateway.Gateway

	// ScriptDir is the base of relative execute_script paths. Empty means
	// the working directory.
	ScriptDir string

	Logger *log.Logger

	// Now stamps new bands. Defaults to time.Now.
	Now func() time.Time

	// mu serialises mutating commands from the gateway call to the store
	// update that follows it.
	mu sync.Mutex
}

// Reload replaces the store content with the gateway's records. It holds
// the mutation lock, so a reload never lands between a command's gateway
// call and the store update that follows it.
func (e *Env) Reload(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Store.Reload(ctx, e.Gateway)
}

func (e *Env) logf(format string, args ...any) {
	if e.Logger != nil {
		e.Logger.Printf(format, args...)
		return
	}
	defaultLogger.Printf(format, args...)
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

var defaultLogger = log.New(os.Stderr, "[command] ", log.LstdFlags|log.Lmicroseconds)

// base supplies Name and Description from the protocol catalog.
type base struct {
	spec protocol.Spec
}

func newBase(name string) base {
	spec, ok := protocol.Lookup(name)
	if !ok {
		panic("command: " + name + " missing from protocol catalog")
	}
	return base{spec: spec}
}

func (b base) Name() string        { return b.spec.Name }
func (b base) Description() string { return b.spec.Description }
