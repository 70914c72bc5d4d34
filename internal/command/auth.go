package command

import (
	"context"
	"errors"
	"strings"

	"github.com/dreamware/bandstand/internal/gateway"
	"github.com/dreamware/bandstand/internal/protocol"
)

type loginCommand struct {
	base
	env *Env
}

func (c *loginCommand) Execute(ctx context.Context, req protocol.Request) protocol.Response {
	ok, err := c.env.Gateway.UserExists(ctx, req.User)
	if err != nil {
		c.env.logf("verify user %s: %v", req.User, err)
		return protocol.Fail(protocol.TagAuthFailed, MsgDatabase)
	}
	if !ok {
		return protocol.Fail(protocol.TagAuthFailed, MsgAuthFailed)
	}
	return protocol.Text(MsgLoggedIn)
}

type registerCommand struct {
	base
	env *Env
}

func (c *registerCommand) Execute(ctx context.Context, req protocol.Request) protocol.Response {
	if strings.TrimSpace(req.User.Login) == "" || req.User.Password == "" {
		return protocol.Fail(protocol.TagAuthFailed, MsgBadLogin)
	}
	err := c.env.Gateway.CreateUser(ctx, req.User)
	switch {
	case errors.Is(err, gateway.ErrLoginTaken):
		return protocol.Fail(protocol.TagLoginTaken, MsgLoginTaken)
	case err != nil:
		c.env.logf("register %s: %v", req.User, err)
		return protocol.Fail(protocol.TagAuthFailed, MsgDatabase)
	}
	return protocol.Text(MsgRegistered)
}
