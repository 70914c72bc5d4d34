package command

import (
	"context"

	"github.com/dreamware/bandstand/internal/protocol"
)

// Dispatcher resolves requests to commands.
type Dispatcher struct {
	registry    *Registry
	env         *Env
	requireAuth bool
}

// Options tune NewDispatcher.
type Options struct {
	// RequireAuth makes every command except login, register and help
	// verify the request's credentials first.
	RequireAuth bool
}

// NewDispatcher registers the full command set against env.
func NewDispatcher(env *Env, opts Options) *Dispatcher {
	d := &Dispatcher{registry: NewRegistry(), env: env, requireAuth: opts.RequireAuth}
	for _, c := range []Command{
		&addCommand{newBase(protocol.CmdAdd), env},
		&clearCommand{newBase(protocol.CmdClear), env},
		&scriptCommand{newBase(protocol.CmdExecuteScript), env, d},
		&groupCommand{newBase(protocol.CmdGroupCountingByLabel), env},
		&helpCommand{newBase(protocol.CmdHelp), d.registry},
		&infoCommand{newBase(protocol.CmdInfo), env},
		&loginCommand{newBase(protocol.CmdLogin), env},
		&descendingCommand{newBase(protocol.CmdPrintDescending), env},
		&labelsCommand{newBase(protocol.CmdPrintFieldAscendingLabel), env},
		&registerCommand{newBase(protocol.CmdRegister), env},
		&removeAtCommand{newBase(protocol.CmdRemoveAt), env},
		&removeByIDCommand{newBase(protocol.CmdRemoveByID), env},
		&removeFirstCommand{newBase(protocol.CmdRemoveFirst), env},
		&showCommand{newBase(protocol.CmdShow), env},
		&shuffleCommand{newBase(protocol.CmdShuffle), env},
		&updateCommand{newBase(protocol.CmdUpdate), env},
	} {
		d.registry.Register(c)
	}
	return d
}

// Registry returns the registry the dispatcher resolves against.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch executes req and returns its response. Unknown commands get
// MsgUnknownCommand.
func (d *Dispatcher) Dispatch(ctx context.Context, req protocol.Request) protocol.Response {
	c, ok := d.registry.Lookup(req.Command)
	if !ok {
		return protocol.Text(MsgUnknownCommand)
	}
	if d.requireAuth && !exemptFromAuth(req.Command) {
		ok, err := d.env.Gateway.UserExists(ctx, req.User)
		if err != nil {
			d.env.logf("verify user %s: %v", req.User, err)
			return protocol.Text(MsgDatabase)
		}
		if !ok {
			return protocol.Fail(protocol.TagAuthFailed, MsgAuthFailed)
		}
	}
	return c.Execute(ctx, req)
}

// dispatchTrusted runs req without checking credentials. Scripts use it:
// their user was verified when the script command itself was dispatched.
func (d *Dispatcher) dispatchTrusted(ctx context.Context, req protocol.Request) protocol.Response {
	c, ok := d.registry.Lookup(req.Command)
	if !ok {
		return protocol.Text(MsgUnknownCommand)
	}
	return c.Execute(ctx, req)
}

func exemptFromAuth(name string) bool {
	switch name {
	case protocol.CmdLogin, protocol.CmdRegister, protocol.CmdHelp:
		return true
	}
	return false
}
