package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/dreamware/bandstand/internal/band"
	"github.com/dreamware/bandstand/internal/protocol"
)

type scriptCommand struct {
	base
	env *Env
	d   *Dispatcher
}

func (c *scriptCommand) Execute(ctx context.Context, req protocol.Request) protocol.Response {
	path, ok := req.Arg.AsString()
	if !ok || strings.TrimSpace(path) == "" {
		return protocol.Text(MsgNeedString)
	}
	return c.run(ctx, req.User, path, nil)
}

var errOutsideScriptDir = errors.New("script outside the script directory")

// resolve returns the absolute path of a script. With a ScriptDir set,
// paths that leave it are rejected.
func (c *scriptCommand) resolve(path string) (string, error) {
	path = strings.TrimSpace(path)
	if c.env.ScriptDir == "" {
		return filepath.Abs(path)
	}
	base, err := filepath.Abs(c.env.ScriptDir)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(base, path)
	}
	abs := filepath.Clean(path)
	rel, err := filepath.Rel(base, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errOutsideScriptDir
	}
	return abs, nil
}

// run executes the script at path line by line. stack holds the absolute
// paths of the scripts currently running, outermost first.
//
// Records for add and update are read from the lines that follow the
// command, one field per line. A line that would re-enter a script on the
// stack stops the script with MsgRecursion.
func (c *scriptCommand) run(ctx context.Context, user protocol.User, path string, stack []string) protocol.Response {
	abs, err := c.resolve(path)
	if errors.Is(err, errOutsideScriptDir) {
		return protocol.Text(MsgScriptOutside)
	}
	if err != nil {
		return protocol.Text(MsgScriptRead)
	}
	f, err := os.Open(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return protocol.Text(MsgScriptNotFound)
	}
	if err != nil {
		c.env.logf("open script %s: %v", abs, err)
		return protocol.Text(MsgScriptRead)
	}
	defer f.Close()
	stack = append(slices.Clip(stack), abs)

	var results []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		name, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		if name == protocol.CmdExecuteScript {
			if nested, err := c.resolve(rest); err == nil && slices.Contains(stack, nested) {
				results = append(results, MsgRecursion)
				break
			}
			results = append(results, c.run(ctx, user, rest, stack).Result)
			continue
		}

		spec, ok := protocol.Lookup(name)
		if !ok {
			results = append(results, fmt.Sprintf("%s: %s", MsgUnknownCommand, name))
			continue
		}
		req := protocol.Request{Command: name, User: user}
		switch spec.Arg {
		case protocol.ArgInt:
			n, err := strconv.ParseInt(rest, 10, 64)
			if err != nil {
				return protocol.Text(MsgBadNumber)
			}
			req.Arg = protocol.IntArg(n)
		case protocol.ArgString:
			req.Arg = protocol.StringArg(rest)
		}
		if spec.Record {
			b, err := band.NewBuilder(sc, nil, false).Build()
			if err != nil {
				results = append(results, MsgInvalidBand+": "+err.Error())
				break
			}
			req.Band = &b
		}
		results = append(results, c.d.dispatchTrusted(ctx, req).Result)
	}
	if err := sc.Err(); err != nil {
		c.env.logf("read script %s: %v", abs, err)
		return protocol.Text(MsgScriptRead)
	}
	return protocol.Text(strings.Join(results, "\n\n"))
}
