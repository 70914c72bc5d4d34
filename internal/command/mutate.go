package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/dreamware/bandstand/internal/collection"
	"github.com/dreamware/bandstand/internal/gateway"
	"github.com/dreamware/bandstand/internal/protocol"
)

// gatewayFailure maps an error of a scoped gateway call to a response.
// ErrNotFound means the row is missing or owned by someone else; anything
// else is a database fault and gets logged.
func (e *Env) gatewayFailure(op string, req protocol.Request, err error, notFound string) protocol.Response {
	if errors.Is(err, gateway.ErrNotFound) {
		return protocol.Text(notFound)
	}
	e.logf("%s for %s: %v", op, req.User, err)
	return protocol.Text(MsgDatabase)
}

type addCommand struct {
	base
	env *Env
}

func (c *addCommand) Execute(ctx context.Context, req protocol.Request) protocol.Response {
	if req.Band == nil {
		return protocol.Text(MsgNeedBand)
	}
	b := *req.Band
	b.Owner = req.User.Login
	b.CreatedAt = c.env.now()
	if err := b.Validate(); err != nil {
		return protocol.Text(MsgInvalidBand + ": " + err.Error())
	}

	c.env.mu.Lock()
	defer c.env.mu.Unlock()
	id, err := c.env.Gateway.Insert(ctx, b, b.Owner)
	if err != nil {
		c.env.logf("insert band for %s: %v", req.User, err)
		return protocol.Text(MsgNotAdded)
	}
	b.ID = id
	stored, err := c.env.Store.Add(b)
	if err != nil {
		c.env.logf("store band %d: %v", id, err)
		return protocol.Text(MsgNotAdded)
	}
	if stored.ID != id {
		// id is already in memory, so the reassigned copy has no row
		c.env.logf("band %d already in store, dropping copy %d", id, stored.ID)
		if err := c.env.Store.RemoveByID(stored.ID); err != nil {
			c.env.logf("store remove %d: %v", stored.ID, err)
		}
	}
	return protocol.Text(fmt.Sprintf("%s with id %d", MsgAdded, id))
}

type updateCommand struct {
	base
	env *Env
}

func (c *updateCommand) Execute(ctx context.Context, req protocol.Request) protocol.Response {
	id, ok := req.Arg.AsInt()
	if !ok {
		return protocol.Text(MsgNeedInteger)
	}
	if req.Band == nil {
		return protocol.Text(MsgNeedBand)
	}

	c.env.mu.Lock()
	defer c.env.mu.Unlock()
	existing, err := c.env.Store.Get(id)
	if err != nil {
		return protocol.Text(MsgNoSuchID)
	}
	repl := *req.Band
	repl.ID = existing.ID
	repl.CreatedAt = existing.CreatedAt
	repl.Owner = existing.Owner
	if err := repl.Validate(); err != nil {
		return protocol.Text(MsgInvalidBand + ": " + err.Error())
	}
	if err := c.env.Gateway.Update(ctx, id, req.User.Login, repl); err != nil {
		return c.env.gatewayFailure("update band", req, err, MsgNotUpdated)
	}
	if err := c.env.Store.UpdateByID(id, repl); err != nil {
		c.env.logf("store update %d: %v", id, err)
		return protocol.Text(MsgNotUpdated)
	}
	return protocol.Text(MsgUpdated)
}

type removeByIDCommand struct {
	base
	env *Env
}

func (c *removeByIDCommand) Execute(ctx context.Context, req protocol.Request) protocol.Response {
	id, ok := req.Arg.AsInt()
	if !ok {
		return protocol.Text(MsgNeedInteger)
	}
	c.env.mu.Lock()
	defer c.env.mu.Unlock()
	if _, err := c.env.Store.Get(id); err != nil {
		return protocol.Text(MsgNoSuchID)
	}
	return c.env.remove(ctx, req, id)
}

type removeAtCommand struct {
	base
	env *Env
}

func (c *removeAtCommand) Execute(ctx context.Context, req protocol.Request) protocol.Response {
	index, ok := req.Arg.AsInt()
	if !ok {
		return protocol.Text(MsgNeedInteger)
	}
	c.env.mu.Lock()
	defer c.env.mu.Unlock()
	if index < 0 || index >= int64(c.env.Store.Len()) {
		return protocol.Text(MsgNoSuchIndex)
	}
	b, err := c.env.Store.At(int(index))
	if err != nil {
		return protocol.Text(MsgNoSuchIndex)
	}
	return c.env.remove(ctx, req, b.ID)
}

type removeFirstCommand struct {
	base
	env *Env
}

func (c *removeFirstCommand) Execute(ctx context.Context, req protocol.Request) protocol.Response {
	c.env.mu.Lock()
	defer c.env.mu.Unlock()
	id, err := c.env.Store.FirstID()
	if err != nil {
		return protocol.Text(MsgEmpty)
	}
	return c.env.remove(ctx, req, id)
}

// remove deletes id in the gateway and then in the store. The caller holds
// e.mu.
func (e *Env) remove(ctx context.Context, req protocol.Request, id int64) protocol.Response {
	if err := e.Gateway.Delete(ctx, req.User.Login, id); err != nil {
		return e.gatewayFailure("delete band", req, err, MsgNotRemoved)
	}
	if err := e.Store.RemoveByID(id); err != nil && !errors.Is(err, collection.ErrNotFound) {
		e.logf("store remove %d: %v", id, err)
	}
	return protocol.Text(MsgRemoved)
}

type clearCommand struct {
	base
	env *Env
}

func (c *clearCommand) Execute(ctx context.Context, req protocol.Request) protocol.Response {
	c.env.mu.Lock()
	defer c.env.mu.Unlock()
	ids := c.env.Store.OwnedBy(req.User.Login)
	if len(ids) == 0 {
		return protocol.Text(MsgNothingToClear)
	}
	if err := c.env.Gateway.DeleteMany(ctx, req.User.Login, ids); err != nil {
		return c.env.gatewayFailure("clear bands", req, err, MsgNotCleared)
	}
	n := c.env.Store.RemoveMany(ids)
	return protocol.Text(fmt.Sprintf("%s (%d)", MsgCleared, n))
}

type shuffleCommand struct {
	base
	env *Env
}

func (c *shuffleCommand) Execute(_ context.Context, _ protocol.Request) protocol.Response {
	c.env.mu.Lock()
	defer c.env.mu.Unlock()
	if err := c.env.Store.Shuffle(); err != nil {
		return protocol.Text(MsgEmpty)
	}
	return protocol.Text(MsgShuffled)
}
