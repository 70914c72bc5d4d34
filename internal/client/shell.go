package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/dreamware/bandstand/internal/band"
	"github.com/dreamware/bandstand/internal/protocol"
)

// Exit codes of the client.
const (
	ExitOK           = 0
	ExitRegistration = 1
	ExitUnreachable  = 2
)

// historyLength is the number of entries the history command prints.
const historyLength = 20

// Sender delivers one request and returns its response. *Session
// implements it.
type Sender interface {
	Send(ctx context.Context, req protocol.Request) (protocol.Response, error)
}

// IsInteractive reports whether f is a terminal.
func IsInteractive(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ShellConfig configures a Shell.
type ShellConfig struct {
	In  io.Reader
	Out io.Writer
	// Interactive enables prompts and re-asking for invalid band fields.
	Interactive bool
	// History records entered lines. Nil disables the history command.
	History *History
}

// Shell is the line-oriented user interface of the client.
type Shell struct {
	sender      Sender
	in          *bufio.Scanner
	out         io.Writer
	interactive bool
	history     *History
	user        protocol.User
}

// NewShell creates a shell sending through sender.
func NewShell(sender Sender, cfg ShellConfig) *Shell {
	out := cfg.Out
	if out == nil {
		out = io.Discard
	}
	return &Shell{
		sender:      sender,
		in:          bufio.NewScanner(cfg.In),
		out:         out,
		interactive: cfg.Interactive,
		history:     cfg.History,
	}
}

// Run signs the user in and then executes commands until exit or end of
// input. It returns the process exit code.
func (sh *Shell) Run(ctx context.Context) int {
	if code, ok := sh.authenticate(ctx); !ok {
		return code
	}
	if sh.interactive {
		fmt.Fprintf(sh.out, "signed in as %s, type help for the list of commands\n", sh.user.Login)
	}
	for {
		line, ok := sh.ask("> ")
		if !ok {
			return ExitOK
		}
		if line == "" {
			continue
		}
		if sh.history != nil {
			if _, err := sh.history.Add(line); err != nil {
				defaultLogger.Printf("history: %v", err)
			}
		}
		if code, done := sh.execLine(ctx, line); done {
			return code
		}
	}
}

func (sh *Shell) ask(prompt string) (string, bool) {
	if sh.interactive {
		fmt.Fprint(sh.out, prompt)
	}
	if !sh.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(sh.in.Text()), true
}

// authenticate asks for credentials until login succeeds, offering to
// register an unknown login.
func (sh *Shell) authenticate(ctx context.Context) (int, bool) {
	for {
		login, ok := sh.ask("login: ")
		if !ok {
			return ExitOK, false
		}
		password, ok := sh.ask("password: ")
		if !ok {
			return ExitOK, false
		}
		sh.user = protocol.User{Login: login, Password: password}

		resp, err := sh.sender.Send(ctx, protocol.Request{Command: protocol.CmdLogin, User: sh.user})
		if err != nil {
			return sh.transportFailure(err), false
		}
		if !resp.Failed() {
			return ExitOK, true
		}
		fmt.Fprintln(sh.out, resp.Result)

		answer, ok := sh.ask("register " + login + "? [y/n]: ")
		if !ok {
			return ExitOK, false
		}
		if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
			continue
		}
		resp, err = sh.sender.Send(ctx, protocol.Request{Command: protocol.CmdRegister, User: sh.user})
		if err != nil {
			return sh.transportFailure(err), false
		}
		fmt.Fprintln(sh.out, resp.Result)
		switch resp.Tag {
		case protocol.TagNone:
			return ExitOK, true
		case protocol.TagLoginTaken:
			continue
		default:
			return ExitRegistration, false
		}
	}
}

func (sh *Shell) transportFailure(err error) int {
	if errors.Is(err, ErrUnreachable) {
		fmt.Fprintln(sh.out, "cannot reach the server:", err)
	} else {
		fmt.Fprintln(sh.out, "request failed:", err)
	}
	return ExitUnreachable
}

// execLine runs one input line. done is true when the shell must stop with
// code.
func (sh *Shell) execLine(ctx context.Context, line string) (code int, done bool) {
	name, rest, _ := strings.Cut(line, " ")
	args := strings.Fields(rest)

	switch name {
	case "exit":
		return ExitOK, true
	case "history":
		sh.printHistory()
		return 0, false
	}

	spec, ok := protocol.Lookup(name)
	if !ok {
		fmt.Fprintf(sh.out, "unknown command %q, type help for the list of commands\n", name)
		return 0, false
	}
	req, ok := sh.buildRequest(spec, args)
	if !ok {
		return 0, false
	}

	resp, err := sh.sender.Send(ctx, req)
	if err != nil {
		code := sh.transportFailure(err)
		// the server was reached; the request may or may not have run
		return code, errors.Is(err, ErrUnreachable)
	}
	fmt.Fprintln(sh.out, resp.Result)
	return 0, false
}

// buildRequest checks the arguments of a command and assembles its
// request. It reports problems to the user and returns false.
func (sh *Shell) buildRequest(spec protocol.Spec, args []string) (protocol.Request, bool) {
	req := protocol.Request{Command: spec.Name, User: sh.user}
	switch {
	case spec.Arg == protocol.ArgNone && len(args) != 0:
		fmt.Fprintf(sh.out, "command %s takes no arguments\n", spec.Name)
		return req, false
	case spec.Arg != protocol.ArgNone && len(args) != 1:
		fmt.Fprintf(sh.out, "command %s takes exactly one argument\n", spec.Name)
		return req, false
	}

	switch spec.Arg {
	case protocol.ArgInt:
		n, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			fmt.Fprintf(sh.out, "argument of %s must be an integer\n", spec.Name)
			return req, false
		}
		req.Arg = protocol.IntArg(n)
	case protocol.ArgString:
		req.Arg = protocol.StringArg(args[0])
	}

	if spec.Name == protocol.CmdExecuteScript {
		rec, err := HasRecursion(args[0])
		if err != nil {
			defaultLogger.Printf("check script %s: %v", args[0], err)
		}
		if rec {
			fmt.Fprintf(sh.out, "script %s runs itself, not sending it\n", args[0])
			return req, false
		}
	}

	if spec.Record {
		b, err := band.NewBuilder(sh.in, sh.out, sh.interactive).Build()
		if err != nil {
			fmt.Fprintln(sh.out, err)
			return req, false
		}
		req.Band = &b
	}
	return req, true
}

func (sh *Shell) printHistory() {
	if sh.history == nil {
		fmt.Fprintln(sh.out, "history is disabled")
		return
	}
	entries, err := sh.history.Recent(historyLength)
	if err != nil {
		fmt.Fprintln(sh.out, "history:", err)
		return
	}
	for _, e := range entries {
		fmt.Fprintf(sh.out, "%5d  %s\n", e.Seq, e.Text)
	}
}
