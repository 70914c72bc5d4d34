package command

import (
	"context"
	"errors"
	"sync"

	"github.com/dreamware/bandstand/internal/band"
	"github.com/dreamware/bandstand/internal/gateway"
	"github.com/dreamware/bandstand/internal/protocol"
)

var errInjected = errors.New("injected database failure")

// fakeGateway is an in-memory Gateway. Setting fail makes every call
// return errInjected.
type fakeGateway struct {
	mu     sync.Mutex
	fail   bool
	nextID int64
	bands  map[int64]band.Band
	users  map[string]string
	calls  []string

	// afterInsert runs once an insert is durable, outside the lock.
	afterInsert func()
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{bands: map[int64]band.Band{}, users: map[string]string{}}
}

func (g *fakeGateway) record(call string) error {
	g.calls = append(g.calls, call)
	if g.fail {
		return errInjected
	}
	return nil
}

func (g *fakeGateway) Insert(_ context.Context, b band.Band, owner string) (int64, error) {
	id, err := g.insert(b, owner)
	if err == nil && g.afterInsert != nil {
		g.afterInsert()
	}
	return id, err
}

func (g *fakeGateway) insert(b band.Band, owner string) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record("insert"); err != nil {
		return 0, err
	}
	g.nextID++
	b.ID = g.nextID
	b.Owner = owner
	g.bands[b.ID] = b
	return b.ID, nil
}

func (g *fakeGateway) Update(_ context.Context, id int64, owner string, b band.Band) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record("update"); err != nil {
		return err
	}
	old, ok := g.bands[id]
	if !ok || old.Owner != owner {
		return gateway.ErrNotFound
	}
	b.ID = id
	b.Owner = owner
	g.bands[id] = b
	return nil
}

func (g *fakeGateway) Delete(_ context.Context, owner string, id int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record("delete"); err != nil {
		return err
	}
	old, ok := g.bands[id]
	if !ok || old.Owner != owner {
		return gateway.ErrNotFound
	}
	delete(g.bands, id)
	return nil
}

func (g *fakeGateway) DeleteMany(_ context.Context, owner string, ids []int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record("delete_many"); err != nil {
		return err
	}
	for _, id := range ids {
		if old, ok := g.bands[id]; !ok || old.Owner != owner {
			return gateway.ErrNotFound
		}
	}
	for _, id := range ids {
		delete(g.bands, id)
	}
	return nil
}

func (g *fakeGateway) LoadAll(context.Context) ([]band.Band, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record("load_all"); err != nil {
		return nil, err
	}
	out := make([]band.Band, 0, len(g.bands))
	for id := int64(1); id <= g.nextID; id++ {
		if b, ok := g.bands[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

func (g *fakeGateway) UserExists(_ context.Context, u protocol.User) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record("user_exists"); err != nil {
		return false, err
	}
	pw, ok := g.users[u.Login]
	return ok && pw == u.Password, nil
}

func (g *fakeGateway) CreateUser(_ context.Context, u protocol.User) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record("create_user"); err != nil {
		return err
	}
	if _, ok := g.users[u.Login]; ok {
		return gateway.ErrLoginTaken
	}
	g.users[u.Login] = u.Password
	return nil
}

func (g *fakeGateway) Ping(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail {
		return errInjected
	}
	return nil
}

func (g *fakeGateway) Close() error { return nil }

func (g *fakeGateway) setFail(fail bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fail = fail
}
