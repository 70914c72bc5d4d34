// Package main implements the bandstand client, an interactive shell that
// signs the user in and sends commands to the server.
//
// Configuration is read from the YAML file named by BANDSTAND_CONFIG and
// the environment:
//   - BANDSTAND_SERVER: server address (default "localhost:1782")
//   - BANDSTAND_RECONNECT_DELAY: pause between connection attempts (default 5s)
//   - BANDSTAND_RECONNECT_ATTEMPTS: retries after a failed attempt (default 3)
//   - BANDSTAND_HISTORY: file keeping the command history; empty disables it
//
// Exit codes:
//   - 0: exit command or end of input
//   - 1: registration refused
//   - 2: server unreachable
//
// Example usage:
//
//	BANDSTAND_SERVER=bands.example.org:1782 ./client
//	./client < script.txt
package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dreamware/bandstand/internal/client"
	"github.com/dreamware/bandstand/internal/config"
)

// logFatal is a variable to allow mocking log.Fatal in tests.
var logFatal = log.Fatalf

func main() {
	cfg, err := config.LoadClient(os.Getenv)
	if err != nil {
		logFatal("config: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
	}()

	code := run(ctx, cfg, os.Stdin, os.Stdout, client.IsInteractive(os.Stdin))
	cancel()
	os.Exit(code)
}

// run executes the shell and returns the process exit code.
func run(ctx context.Context, cfg config.Client, in io.Reader, out io.Writer, interactive bool) int {
	session := client.NewSession(client.SessionConfig{
		Addr:              cfg.Server,
		ReconnectDelay:    cfg.ReconnectDelay,
		ReconnectAttempts: cfg.ReconnectAttempts,
	})

	var history *client.History
	if cfg.History != "" {
		h, err := client.OpenHistory(cfg.History)
		if err != nil {
			log.Printf("history disabled: %v", err)
		} else {
			defer h.Close()
			history = h
		}
	}

	return client.NewShell(session, client.ShellConfig{
		In:          in,
		Out:         out,
		Interactive: interactive,
		History:     history,
	}).Run(ctx)
}
