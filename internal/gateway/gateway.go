package gateway

import (
	"context"
	"errors"

	"github.com/dreamware/bandstand/internal/band"
	"github.com/dreamware/bandstand/internal/protocol"
)

var (
	// ErrNotFound is returned when no band with the given id belongs to the
	// given owner.
	ErrNotFound = errors.New("no band with this id owned by user")
	// ErrLoginTaken is returned by CreateUser when the login is already
	// registered.
	ErrLoginTaken = errors.New("login already taken")
)

// Gateway is the durable side of the collection. Commands call it before
// they touch the in-memory store; a nil error means the change is durable.
//
// Implementations must be safe for concurrent use. Every call is its own
// unit of work.
type Gateway interface {
	// Insert stores b for owner and returns the id the database assigned.
	Insert(ctx context.Context, b band.Band, owner string) (int64, error)
	// Update replaces the band id owned by owner with b.
	Update(ctx context.Context, id int64, owner string, b band.Band) error
	// Delete removes the band id owned by owner.
	Delete(ctx context.Context, owner string, id int64) error
	// DeleteMany removes all ids owned by owner, or none of them.
	DeleteMany(ctx context.Context, owner string, ids []int64) error
	// LoadAll returns every stored band ordered by id.
	LoadAll(ctx context.Context) ([]band.Band, error)
	// UserExists reports whether u is registered with this password.
	UserExists(ctx context.Context, u protocol.User) (bool, error)
	// CreateUser registers u with a fresh salt.
	CreateUser(ctx context.Context, u protocol.User) error
	// Ping checks that the database is reachable.
	Ping(ctx context.Context) error
	Close() error
}
